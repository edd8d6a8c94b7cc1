package whatsapp

import (
	"context"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/event"
)

// keepAliveFailures is the number of missed keepalives after which the
// connection counts as timed out.
const keepAliveFailures = 3

func (s *Session) handleEvent(evt any) {
	if reason, ok := reasonOf(evt); ok {
		s.logger.Info("whatsapp disconnected", "reason", reason.String())
		s.fail(reason)
		return
	}

	switch v := evt.(type) {
	case *events.Connected:
		s.connectedOnce.Do(func() { close(s.connected) })

	case *events.PairSuccess:
		s.logger.Info("device paired", "id", v.ID.String(), "platform", v.Platform)

	case *events.KeepAliveTimeout:
		s.logger.Warn("keepalive timeout", "error_count", v.ErrorCount)

	case *events.Message:
		s.emit(convertMessage(v))

	case *events.GroupInfo:
		for _, ev := range convertGroupInfo(v, s.phoneNumberOf) {
			s.emit(ev)
		}
	}
}

// reasonOf maps the events that end a connection to a disconnect reason.
func reasonOf(evt any) (channel.DisconnectReason, bool) {
	switch v := evt.(type) {
	case *events.Disconnected:
		return channel.Reason(channel.ReasonConnectionLost), true

	case *events.LoggedOut:
		return channel.DisconnectReason{Kind: channel.ReasonLoggedOut, Message: v.Reason.String()}, true

	case *events.StreamReplaced:
		return channel.OtherReason(440, "stream replaced by another client"), true

	case *events.KeepAliveTimeout:
		if v.ErrorCount < keepAliveFailures {
			return channel.DisconnectReason{}, false
		}
		return channel.Reason(channel.ReasonTimedOut), true

	case *events.ConnectFailure:
		switch {
		case v.Reason.IsLoggedOut():
			return channel.DisconnectReason{Kind: channel.ReasonLoggedOut, Message: v.Reason.String()}, true
		case int(v.Reason) == 500 || int(v.Reason) == 503:
			return channel.DisconnectReason{Kind: channel.ReasonRestartRequired, Message: v.Reason.String()}, true
		default:
			return channel.OtherReason(int(v.Reason), v.Message), true
		}

	case *events.TemporaryBan:
		return channel.OtherReason(402, v.String()), true

	case *events.ClientOutdated:
		return channel.OtherReason(405, "client outdated"), true
	}

	return channel.DisconnectReason{}, false
}

// jidString drops the device part so that one user has one identity.
func jidString(jid types.JID) string {
	if jid.IsEmpty() {
		return ""
	}
	return jid.ToNonAD().String()
}

// senderOf prefers the phone number jid over a hidden user id.
func senderOf(info *types.MessageInfo) types.JID {
	if info.Sender.Server == types.HiddenUserServer && !info.SenderAlt.IsEmpty() {
		return info.SenderAlt
	}
	return info.Sender
}

func chatOf(info *types.MessageInfo) types.JID {
	chat := info.Chat
	if chat.Server != types.HiddenUserServer {
		return chat
	}
	alt := info.SenderAlt
	if info.IsFromMe {
		alt = info.RecipientAlt
	}
	if alt.IsEmpty() {
		return chat
	}
	return alt
}

func convertMessage(v *events.Message) event.RawEvent {
	key := event.Key{
		ChatID: jidString(chatOf(&v.Info)),
		ID:     v.Info.ID,
		FromMe: v.Info.IsFromMe,
	}
	if v.Info.IsGroup {
		key.Participant = jidString(senderOf(&v.Info))
	}

	switch {
	case v.Message.GetProtocolMessage() != nil:
		return &event.ProtocolEvent{Key: key, Marker: event.MarkerProtocol}
	case v.Message.GetReactionMessage() != nil:
		return &event.ProtocolEvent{Key: key, Marker: event.MarkerReaction}
	}

	return &event.MessageEvent{
		Key:     key,
		Payload: convertPayload(v.Message, true),
	}
}

// convertPayload picks the first known payload of msg. Quoted payloads are
// only resolved one level deep.
func convertPayload(msg *waE2E.Message, withQuote bool) event.Payload {
	if msg == nil {
		return event.Unsupported{Type: "empty"}
	}

	quoted := func(ci *waE2E.ContextInfo) event.Payload {
		if !withQuote || ci.GetQuotedMessage() == nil {
			return nil
		}
		return convertPayload(ci.GetQuotedMessage(), false)
	}

	switch {
	case msg.GetConversation() != "":
		return event.Conversation{Text: msg.GetConversation()}

	case msg.GetExtendedTextMessage() != nil:
		m := msg.GetExtendedTextMessage()
		return event.ExtendedText{Text: m.GetText(), Quoted: quoted(m.GetContextInfo())}

	case msg.GetButtonsResponseMessage() != nil:
		m := msg.GetButtonsResponseMessage()
		return event.ButtonReply{DisplayText: m.GetSelectedDisplayText(), ButtonID: m.GetSelectedButtonID()}

	case msg.GetTemplateButtonReplyMessage() != nil:
		m := msg.GetTemplateButtonReplyMessage()
		return event.ButtonReply{DisplayText: m.GetSelectedDisplayText(), ButtonID: m.GetSelectedID()}

	case msg.GetImageMessage() != nil:
		m := msg.GetImageMessage()
		return event.Image{
			Media: event.Media{
				Kind:     event.MediaImage,
				Mimetype: m.GetMimetype(),
				Caption:  m.GetCaption(),
				Ref:      m,
			},
			Quoted: quoted(m.GetContextInfo()),
		}

	case msg.GetVideoMessage() != nil:
		m := msg.GetVideoMessage()
		return event.Video{
			Media: event.Media{
				Kind:     event.MediaVideo,
				Mimetype: m.GetMimetype(),
				Caption:  m.GetCaption(),
				Ref:      m,
			},
			Quoted: quoted(m.GetContextInfo()),
		}
	}

	return event.Unsupported{Type: payloadName(msg)}
}

// payloadName names the first populated field of msg for diagnostics.
func payloadName(msg *waE2E.Message) string {
	name := "unknown"
	msg.ProtoReflect().Range(func(fd protoreflect.FieldDescriptor, _ protoreflect.Value) bool {
		name = string(fd.Name())
		return false
	})
	return name
}

// convertGroupInfo turns participant changes into stub events. resolve maps
// hidden user ids to phone number jids and may be nil.
func convertGroupInfo(v *events.GroupInfo, resolve func(types.JID) types.JID) []event.RawEvent {
	ids := func(jids []types.JID) []string {
		out := make([]string, 0, len(jids))
		for _, jid := range jids {
			if resolve != nil {
				jid = resolve(jid)
			}
			out = append(out, jidString(jid))
		}
		return out
	}

	var author types.JID
	if v.Sender != nil {
		author = *v.Sender
		if resolve != nil {
			author = resolve(author)
		}
	}

	key := event.Key{
		ChatID:      jidString(v.JID),
		Participant: jidString(author),
	}

	var out []event.RawEvent
	if len(v.Join) > 0 {
		out = append(out, &event.StubEvent{
			Key:          key,
			Code:         event.StubParticipantAdd,
			Participants: ids(v.Join),
		})
	}

	if len(v.Leave) > 0 {
		var left, removed []types.JID
		for _, jid := range v.Leave {
			if v.Sender == nil || jid.User == v.Sender.User {
				left = append(left, jid)
			} else {
				removed = append(removed, jid)
			}
		}
		if len(left) > 0 {
			out = append(out, &event.StubEvent{Key: key, Code: event.StubParticipantLeave, Participants: ids(left)})
		}
		if len(removed) > 0 {
			out = append(out, &event.StubEvent{Key: key, Code: event.StubParticipantRemove, Participants: ids(removed)})
		}
	}

	for _, ev := range out {
		stub := ev.(*event.StubEvent)
		if stub.Key.Participant == "" && len(stub.Participants) > 0 {
			stub.Key.Participant = stub.Participants[0]
		}
	}
	return out
}

// phoneNumberOf resolves a hidden user id through the local id map.
func (s *Session) phoneNumberOf(jid types.JID) types.JID {
	if jid.Server != types.HiddenUserServer {
		return jid
	}
	pn, err := s.client.Store.LIDs.GetPNForLID(context.Background(), jid)
	if err != nil || pn.IsEmpty() {
		if err != nil {
			s.logger.Debug("failed to resolve hidden user id", "jid", jid.String(), "error", err)
		}
		return jid
	}
	return pn
}
