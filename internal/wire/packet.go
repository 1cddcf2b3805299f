package wire

import (
	"encoding/binary"

	"main/internal/model/enum"
	"main/pkg/exception"
)

// Packet layout, all integers little-endian:
//
//	header : kind u8 | version u8 | payload_size u16 | sequence u64
//	trade  : source_ts u64 | seq_echo u64 | symbol u32 | trade_id u32 |
//	         price u64 | quantity u32 | side u8 | pad[3]
//	quote  : source_ts u64 | seq_echo u64 | symbol u32 | bid_price u64 |
//	         ask_price u64 | bid_size u32 | ask_size u32 | depth u8 | pad[7]
//
// Prices are fixed-point scaled by PriceScale. Bytes beyond payload_size are
// ignored; packets shorter than the header are rejected.
const (
	HeaderSize       = 12
	TradePayloadSize = 40
	QuotePayloadSize = 52
	MaxPacketSize    = HeaderSize + 256

	Version uint8 = 1

	// PriceScale is the fixed-point denominator: 4 decimal places.
	PriceScale = 10_000
)

// Header is the fixed prefix of every feed packet.
type Header struct {
	Kind        enum.MessageKind
	Version     uint8
	PayloadSize uint16
	Sequence    uint64
}

// Trade is the decoded trade payload.
type Trade struct {
	SourceTsNano  uint64
	SequenceEcho  uint64
	SymbolID      uint32
	TradeID       uint32
	PriceFixed    uint64
	Quantity      uint32
	Side          byte
}

// Quote is the decoded quote payload.
type Quote struct {
	SourceTsNano uint64
	SequenceEcho uint64
	SymbolID     uint32
	BidPrice     uint64
	AskPrice     uint64
	BidSize      uint32
	AskSize      uint32
	Depth        uint8
}

// ParseHeader reads the packet header in place.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, exception.ErrPacketTooShort
	}
	return Header{
		Kind:        enum.MessageKind(b[0]),
		Version:     b[1],
		PayloadSize: binary.LittleEndian.Uint16(b[2:4]),
		Sequence:    binary.LittleEndian.Uint64(b[4:12]),
	}, nil
}

// Sequence extracts only the sequence number. The ingest loop uses it on the
// fast path before deciding whether the rest of the packet is worth parsing.
func Sequence(b []byte) (uint64, bool) {
	if len(b) < HeaderSize {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b[4:12]), true
}

// ParseTrade decodes the trade payload following the header.
func ParseTrade(b []byte) (Trade, error) {
	if len(b) < HeaderSize+TradePayloadSize {
		return Trade{}, exception.ErrPayloadTruncated
	}
	p := b[HeaderSize:]
	return Trade{
		SourceTsNano: binary.LittleEndian.Uint64(p[0:8]),
		SequenceEcho: binary.LittleEndian.Uint64(p[8:16]),
		SymbolID:     binary.LittleEndian.Uint32(p[16:20]),
		TradeID:      binary.LittleEndian.Uint32(p[20:24]),
		PriceFixed:   binary.LittleEndian.Uint64(p[24:32]),
		Quantity:     binary.LittleEndian.Uint32(p[32:36]),
		Side:         p[36],
	}, nil
}

// ParseQuote decodes the quote payload following the header.
func ParseQuote(b []byte) (Quote, error) {
	if len(b) < HeaderSize+QuotePayloadSize {
		return Quote{}, exception.ErrPayloadTruncated
	}
	p := b[HeaderSize:]
	return Quote{
		SourceTsNano: binary.LittleEndian.Uint64(p[0:8]),
		SequenceEcho: binary.LittleEndian.Uint64(p[8:16]),
		SymbolID:     binary.LittleEndian.Uint32(p[16:20]),
		BidPrice:     binary.LittleEndian.Uint64(p[20:28]),
		AskPrice:     binary.LittleEndian.Uint64(p[28:36]),
		BidSize:      binary.LittleEndian.Uint32(p[36:40]),
		AskSize:      binary.LittleEndian.Uint32(p[40:44]),
		Depth:        p[44],
	}, nil
}

// EncodeTrade appends a complete trade packet to dst and returns the
// extended slice.
func EncodeTrade(dst []byte, seq uint64, t Trade) []byte {
	dst = appendHeader(dst, enum.MessageKindTrade, TradePayloadSize, seq)
	dst = binary.LittleEndian.AppendUint64(dst, t.SourceTsNano)
	dst = binary.LittleEndian.AppendUint64(dst, t.SequenceEcho)
	dst = binary.LittleEndian.AppendUint32(dst, t.SymbolID)
	dst = binary.LittleEndian.AppendUint32(dst, t.TradeID)
	dst = binary.LittleEndian.AppendUint64(dst, t.PriceFixed)
	dst = binary.LittleEndian.AppendUint32(dst, t.Quantity)
	dst = append(dst, t.Side, 0, 0, 0)
	return dst
}

// EncodeQuote appends a complete quote packet to dst and returns the
// extended slice.
func EncodeQuote(dst []byte, seq uint64, q Quote) []byte {
	dst = appendHeader(dst, enum.MessageKindQuote, QuotePayloadSize, seq)
	dst = binary.LittleEndian.AppendUint64(dst, q.SourceTsNano)
	dst = binary.LittleEndian.AppendUint64(dst, q.SequenceEcho)
	dst = binary.LittleEndian.AppendUint32(dst, q.SymbolID)
	dst = binary.LittleEndian.AppendUint64(dst, q.BidPrice)
	dst = binary.LittleEndian.AppendUint64(dst, q.AskPrice)
	dst = binary.LittleEndian.AppendUint32(dst, q.BidSize)
	dst = binary.LittleEndian.AppendUint32(dst, q.AskSize)
	dst = append(dst, q.Depth, 0, 0, 0, 0, 0, 0, 0)
	return dst
}

// EncodeHeartbeat appends a heartbeat packet carrying only the header.
func EncodeHeartbeat(dst []byte, seq uint64) []byte {
	return appendHeader(dst, enum.MessageKindHeartbeat, 0, seq)
}

func appendHeader(dst []byte, kind enum.MessageKind, payloadSize uint16, seq uint64) []byte {
	dst = append(dst, byte(kind), Version)
	dst = binary.LittleEndian.AppendUint16(dst, payloadSize)
	dst = binary.LittleEndian.AppendUint64(dst, seq)
	return dst
}
