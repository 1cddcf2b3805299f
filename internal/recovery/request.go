package recovery

import (
	"encoding/binary"

	"main/pkg/exception"
)

// Request kinds on the recovery wire.
const (
	KindRetransmit uint8 = 'R'
	KindSnapshot   uint8 = 'S'

	requestSize = 17 // kind u8 | start u64 | end u64
)

// Request is the out-of-band message asking the recovery service for a
// sequence range (retransmit) or a full snapshot.
type Request struct {
	Kind     uint8
	StartSeq uint64
	EndSeq   uint64
}

// EncodeRequest appends the request to dst.
func EncodeRequest(dst []byte, req Request) []byte {
	dst = append(dst, req.Kind)
	dst = binary.LittleEndian.AppendUint64(dst, req.StartSeq)
	dst = binary.LittleEndian.AppendUint64(dst, req.EndSeq)
	return dst
}

// DecodeRequest parses a recovery request datagram.
func DecodeRequest(b []byte) (Request, error) {
	if len(b) < requestSize {
		return Request{}, exception.ErrPacketTooShort
	}
	req := Request{
		Kind:     b[0],
		StartSeq: binary.LittleEndian.Uint64(b[1:9]),
		EndSeq:   binary.LittleEndian.Uint64(b[9:17]),
	}
	if req.Kind != KindRetransmit && req.Kind != KindSnapshot {
		return Request{}, exception.ErrUnknownKind
	}
	return req, nil
}
