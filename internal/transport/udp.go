package transport

import (
	"net"
	"syscall"

	"github.com/yanun0323/errors"

	"main/pkg/exception"
)

// DefaultRecvBuf is the socket receive buffer requested at setup. Large
// enough to ride out scheduling hiccups at feed burst rates.
const DefaultRecvBuf = 4 << 20

// Receiver wraps a non-blocking UDP socket. The hot path is Recv, a single
// read syscall that never parks the thread: when no datagram is queued it
// reports would-block and the caller keeps spinning.
type Receiver struct {
	fd     int
	closed bool
}

// NewReceiver opens a non-blocking UDP socket bound to port. When addr is a
// multicast group it is joined with INADDR_ANY as the membership interface,
// so the kernel picks the interface.
func NewReceiver(addr string, port int, recvBuf int) (*Receiver, error) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return nil, exception.ErrInvalidMulticast
	}
	if recvBuf <= 0 {
		recvBuf = DefaultRecvBuf
	}

	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_DGRAM, syscall.IPPROTO_UDP)
	if err != nil {
		return nil, errors.Wrap(err, "create socket")
	}

	if err := syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); err != nil {
		syscall.Close(fd)
		return nil, errors.Wrap(err, "set reuseaddr")
	}
	// Best effort: the kernel clamps to rmem_max without reporting it.
	_ = syscall.SetsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, recvBuf)

	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return nil, errors.Wrap(err, "set nonblock")
	}

	if err := syscall.Bind(fd, &syscall.SockaddrInet4{Port: port}); err != nil {
		syscall.Close(fd)
		return nil, errors.Wrap(err, "bind").With("port", port)
	}

	if ip.IsMulticast() {
		var group [4]byte
		copy(group[:], ip.To4())
		mreq := &syscall.IPMreq{Multiaddr: group}
		if err := syscall.SetsockoptIPMreq(fd, syscall.IPPROTO_IP, syscall.IP_ADD_MEMBERSHIP, mreq); err != nil {
			syscall.Close(fd)
			return nil, errors.Wrap(err, "join multicast group").With("group", addr)
		}
	}

	return &Receiver{fd: fd}, nil
}

// Recv reads one datagram into buf without blocking. It returns the datagram
// length, or wouldBlock when the socket is empty. Errors other than EINTR
// are returned for the caller to count and continue.
func (r *Receiver) Recv(buf []byte) (n int, wouldBlock bool, err error) {
	if r == nil || r.closed {
		return 0, false, exception.ErrSocketClosed
	}
	for {
		n, err := syscall.Read(r.fd, buf)
		if err == nil {
			return n, false, nil
		}
		switch err {
		case syscall.EAGAIN:
			return 0, true, nil
		case syscall.EINTR:
			continue
		default:
			return 0, false, err
		}
	}
}

// Close releases the socket.
func (r *Receiver) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true
	return syscall.Close(r.fd)
}

// Sender pushes datagrams to a fixed destination.
type Sender struct {
	fd     int
	dest   syscall.SockaddrInet4
	closed bool
}

// NewSender opens a UDP socket aimed at addr:port. For multicast
// destinations the TTL is applied; pass 0 to keep the OS default.
func NewSender(addr string, port int, ttl int) (*Sender, error) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.To4() == nil {
		return nil, exception.ErrInvalidMulticast
	}

	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_DGRAM, syscall.IPPROTO_UDP)
	if err != nil {
		return nil, errors.Wrap(err, "create socket")
	}

	if ip.IsMulticast() && ttl > 0 {
		if err := syscall.SetsockoptInt(fd, syscall.IPPROTO_IP, syscall.IP_MULTICAST_TTL, ttl); err != nil {
			syscall.Close(fd)
			return nil, errors.Wrap(err, "set multicast ttl")
		}
	}

	s := &Sender{fd: fd}
	copy(s.dest.Addr[:], ip.To4())
	s.dest.Port = port
	return s, nil
}

// Send transmits one datagram.
func (s *Sender) Send(b []byte) error {
	if s == nil || s.closed {
		return exception.ErrSocketClosed
	}
	if err := syscall.Sendto(s.fd, b, 0, &s.dest); err != nil {
		return errors.Wrap(err, "sendto")
	}
	return nil
}

// Close releases the socket.
func (s *Sender) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	return syscall.Close(s.fd)
}
