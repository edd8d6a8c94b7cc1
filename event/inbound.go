package event

type MembershipKind int

const (
	Joined MembershipKind = iota + 1
	Left
)

func (k MembershipKind) String() string {
	switch k {
	case Joined:
		return "joined"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

type Membership struct {
	Kind         MembershipKind
	ChatID       string
	Participants []string
}

// Quoted is the message an inbound message replies to.
type Quoted struct {
	Text string
	// Media is set when the quoted message is an image or a video.
	Media *Media
}

// InboundMessage is the normalized view of one RawEvent. It is created by
// the Classifier and never mutated afterwards.
type InboundMessage struct {
	ChatID    string
	SenderID  string
	MessageID string
	FromMe    bool
	Direct    bool

	Text          string
	Quoted        *Quoted
	IsButtonReply bool
	ButtonID      string

	Membership *Membership
}

func (m *InboundMessage) IsReply() bool {
	return m.Quoted != nil
}

func (m *InboundMessage) QuotedText() string {
	if m.Quoted == nil {
		return ""
	}
	return m.Quoted.Text
}

func (m *InboundMessage) IsMembership() bool {
	return m.Membership != nil
}

func (m *InboundMessage) Key() Key {
	k := Key{ChatID: m.ChatID, ID: m.MessageID, FromMe: m.FromMe}
	if !m.Direct {
		k.Participant = m.SenderID
	}
	return k
}
