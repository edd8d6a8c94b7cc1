package event

// StubCode is the transport-defined code of a system notification.
type StubCode int

// Participant change stub codes as used by the WhatsApp web protocol.
const (
	StubParticipantAdd    StubCode = 27
	StubParticipantRemove StubCode = 28
	StubParticipantInvite StubCode = 31
	StubParticipantLeave  StubCode = 32
)

const (
	StatusBroadcastChat = "status@broadcast"
	DirectChatSuffix    = "@s.whatsapp.net"
	GroupChatSuffix     = "@g.us"
)

// Key identifies one message in a chat.
type Key struct {
	ChatID string
	// Participant is the author inside a group chat, empty in direct chats.
	Participant string
	ID          string
	FromMe      bool
}

// RawEvent is one decoded transport event. The variant set is closed:
// MessageEvent, StubEvent and ProtocolEvent.
type RawEvent interface {
	EventKey() Key
	isRawEvent()
}

// MessageEvent is a user authored message.
type MessageEvent struct {
	Key     Key
	Payload Payload
}

// StubEvent is a system generated notification such as a participant
// joining or leaving a group.
type StubEvent struct {
	Key          Key
	Code         StubCode
	Participants []string
}

type Marker int

const (
	MarkerProtocol Marker = iota
	MarkerReceipt
	MarkerReaction
)

func (m Marker) String() string {
	switch m {
	case MarkerReceipt:
		return "receipt"
	case MarkerReaction:
		return "reaction"
	default:
		return "protocol"
	}
}

// ProtocolEvent carries protocol internal markers that never reach handlers.
type ProtocolEvent struct {
	Key    Key
	Marker Marker
}

func (e *MessageEvent) EventKey() Key  { return e.Key }
func (e *StubEvent) EventKey() Key     { return e.Key }
func (e *ProtocolEvent) EventKey() Key { return e.Key }

func (*MessageEvent) isRawEvent()  {}
func (*StubEvent) isRawEvent()     {}
func (*ProtocolEvent) isRawEvent() {}

// Payload is the content of a MessageEvent. The variant set is closed.
type Payload interface {
	PayloadType() string
	isPayload()
}

// Conversation is a plain text body.
type Conversation struct {
	Text string
}

// ExtendedText is a text body that may quote another message.
type ExtendedText struct {
	Text string
	// Quoted is nil unless the message is a reply.
	Quoted Payload
}

// ButtonReply is a tap on a button of an earlier buttons message.
type ButtonReply struct {
	DisplayText string
	ButtonID    string
}

type MediaKind int

const (
	MediaImage MediaKind = iota + 1
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Media references downloadable content. Ref is opaque to everything but
// the session that produced it.
type Media struct {
	Kind     MediaKind
	Mimetype string
	Caption  string
	Ref      any
}

type Image struct {
	Media  Media
	Quoted Payload
}

type Video struct {
	Media  Media
	Quoted Payload
}

// Unsupported is any payload the bot has no use for. Type names the
// transport message type for diagnostics.
type Unsupported struct {
	Type string
}

func (Conversation) PayloadType() string { return "conversation" }
func (ExtendedText) PayloadType() string { return "extended_text" }
func (ButtonReply) PayloadType() string  { return "button_reply" }
func (Image) PayloadType() string        { return "image" }
func (Video) PayloadType() string        { return "video" }
func (u Unsupported) PayloadType() string {
	if u.Type == "" {
		return "unsupported"
	}
	return u.Type
}

func (Conversation) isPayload() {}
func (ExtendedText) isPayload() {}
func (ButtonReply) isPayload()  {}
func (Image) isPayload()        {}
func (Video) isPayload()        {}
func (Unsupported) isPayload()  {}
