package exception

import "errors"

var (
	ErrSocketClosed     = errors.New("transport: socket closed")
	ErrInvalidMulticast = errors.New("transport: invalid multicast address")
	ErrSendFailed       = errors.New("transport: send failed")
)
