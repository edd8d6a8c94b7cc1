package event

import (
	"fmt"
	"log/slog"
)

// Classifier turns raw transport events into InboundMessages.
type Classifier struct {
	own    string
	logger *slog.Logger
}

// NewClassifier returns a classifier for the session whose own identity is
// ownIdentity. The own identity is the sender of messages the bot authored
// in direct chats.
func NewClassifier(ownIdentity string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		own:    NormalizeIdentity(ownIdentity),
		logger: logger,
	}
}

// Classify returns the normalized message for raw, or false when the event
// carries nothing actionable.
func (c *Classifier) Classify(raw RawEvent) (InboundMessage, bool) {
	if raw == nil {
		return InboundMessage{}, false
	}

	key := raw.EventKey()
	if key.ChatID == StatusBroadcastChat {
		return InboundMessage{}, false
	}

	switch ev := raw.(type) {
	case *ProtocolEvent:
		return InboundMessage{}, false
	case *StubEvent:
		return c.classifyStub(ev)
	case *MessageEvent:
		return c.classifyMessage(ev)
	default:
		c.logger.Warn("unknown raw event variant", "type", fmt.Sprintf("%T", raw))
		return InboundMessage{}, false
	}
}

func (c *Classifier) classifyStub(ev *StubEvent) (InboundMessage, bool) {
	var kind MembershipKind
	switch ev.Code {
	case StubParticipantAdd, StubParticipantInvite:
		kind = Joined
	case StubParticipantRemove, StubParticipantLeave:
		kind = Left
	default:
		return InboundMessage{}, false
	}

	msg := c.base(ev.Key)
	msg.Membership = &Membership{
		Kind:         kind,
		ChatID:       ev.Key.ChatID,
		Participants: ev.Participants,
	}
	return msg, true
}

func (c *Classifier) classifyMessage(ev *MessageEvent) (InboundMessage, bool) {
	text, button, ok := extractText(ev.Payload)
	if !ok {
		c.logger.Debug("ignored message without text",
			"chat", ev.Key.ChatID,
			"id", ev.Key.ID,
			"payload_type", payloadType(ev.Payload),
			"payload", ev.Payload)
		return InboundMessage{}, false
	}

	msg := c.base(ev.Key)
	msg.Text = text
	if button != nil {
		msg.IsButtonReply = true
		msg.ButtonID = button.ButtonID
	}
	if quoted := quotedOf(ev.Payload); quoted != nil {
		msg.Quoted = quotedView(quoted)
	}
	return msg, true
}

func (c *Classifier) base(key Key) InboundMessage {
	msg := InboundMessage{
		ChatID:    key.ChatID,
		MessageID: key.ID,
		FromMe:    key.FromMe,
		Direct:    IsDirectChat(key),
	}

	switch {
	case key.FromMe && c.own != "":
		msg.SenderID = c.own
	case !msg.Direct:
		msg.SenderID = NormalizeIdentity(key.Participant)
	default:
		msg.SenderID = NormalizeIdentity(key.ChatID)
	}
	return msg
}

// extractText applies the text precedence: direct text body, quoting text
// body, button reply display text.
func extractText(p Payload) (string, *ButtonReply, bool) {
	switch v := p.(type) {
	case Conversation:
		return v.Text, nil, v.Text != ""
	case ExtendedText:
		return v.Text, nil, v.Text != ""
	case ButtonReply:
		return v.DisplayText, &v, v.DisplayText != ""
	default:
		return "", nil, false
	}
}

func quotedOf(p Payload) Payload {
	switch v := p.(type) {
	case ExtendedText:
		return v.Quoted
	case Image:
		return v.Quoted
	case Video:
		return v.Quoted
	default:
		return nil
	}
}

func quotedView(p Payload) *Quoted {
	q := &Quoted{}
	if text, _, ok := extractText(p); ok {
		q.Text = text
	}

	switch v := p.(type) {
	case Image:
		m := v.Media
		m.Kind = MediaImage
		q.Media = &m
	case Video:
		m := v.Media
		m.Kind = MediaVideo
		q.Media = &m
	}
	return q
}

func payloadType(p Payload) string {
	if p == nil {
		return "empty"
	}
	return p.PayloadType()
}
