package transport

import (
	"bytes"
	"testing"
	"time"
)

func TestUnicastSendRecv(t *testing.T) {
	const port = 18341

	r, err := NewReceiver("127.0.0.1", port, 0)
	if err != nil {
		t.Fatalf("receiver: %v", err)
	}
	defer r.Close()

	buf := make([]byte, 2048)
	if _, wouldBlock, err := r.Recv(buf); err != nil || !wouldBlock {
		t.Fatalf("empty socket: wouldBlock=%v err=%v", wouldBlock, err)
	}

	s, err := NewSender("127.0.0.1", port, 0)
	if err != nil {
		t.Fatalf("sender: %v", err)
	}
	defer s.Close()

	payload := []byte("tick")
	if err := s.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		n, wouldBlock, err := r.Recv(buf)
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		if !wouldBlock {
			if !bytes.Equal(buf[:n], payload) {
				t.Fatalf("payload mismatch: %q", buf[:n])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("datagram never arrived")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReceiverRejectsBadAddress(t *testing.T) {
	if _, err := NewReceiver("not-an-ip", 1234, 0); err == nil {
		t.Fatal("bad address accepted")
	}
	if _, err := NewSender("::1", 1234, 0); err == nil {
		t.Fatal("v6 address accepted by v4 sender")
	}
}

func TestClosedSocketErrors(t *testing.T) {
	r, err := NewReceiver("127.0.0.1", 18342, 0)
	if err != nil {
		t.Fatalf("receiver: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, _, err := r.Recv(make([]byte, 16)); err == nil {
		t.Fatal("recv succeeded on closed socket")
	}
	if err := r.Close(); err != nil {
		t.Fatalf("double close: %v", err)
	}
}
