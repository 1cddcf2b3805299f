package enum

// MessageKind identifies the payload carried by a feed packet or event.
// Wire values follow the exchange protocol.
type MessageKind uint8

const (
	MessageKindUnknown     MessageKind = 0x00
	MessageKindTrade       MessageKind = 0x01
	MessageKindQuote       MessageKind = 0x02
	MessageKindOrderAdd    MessageKind = 0x03
	MessageKindOrderDelete MessageKind = 0x04
	MessageKindOrderModify MessageKind = 0x05
	MessageKindHeartbeat   MessageKind = 0xFF
)

// IsAvailable reports whether the kind is one the feed understands.
func (k MessageKind) IsAvailable() bool {
	switch k {
	case MessageKindTrade, MessageKindQuote, MessageKindOrderAdd,
		MessageKindOrderDelete, MessageKindOrderModify, MessageKindHeartbeat:
		return true
	default:
		return false
	}
}

func (k MessageKind) String() string {
	switch k {
	case MessageKindTrade:
		return "trade"
	case MessageKindQuote:
		return "quote"
	case MessageKindOrderAdd:
		return "order_add"
	case MessageKindOrderDelete:
		return "order_delete"
	case MessageKindOrderModify:
		return "order_modify"
	case MessageKindHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}
