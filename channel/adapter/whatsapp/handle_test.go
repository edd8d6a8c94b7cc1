package whatsapp

import (
	"testing"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/event"
)

var (
	testGroup = types.NewJID("120363000000000001", types.GroupServer)
	testUser  = types.NewJID("905551112233", types.DefaultUserServer)
	testOther = types.NewJID("905554445566", types.DefaultUserServer)
)

func TestReasonOf(t *testing.T) {
	cases := []struct {
		name string
		evt  any
		want channel.ReasonKind
		code int
		ok   bool
	}{
		{"disconnected", &events.Disconnected{}, channel.ReasonConnectionLost, 0, true},
		{"logged out", &events.LoggedOut{Reason: events.ConnectFailureLoggedOut}, channel.ReasonLoggedOut, 0, true},
		{"stream replaced", &events.StreamReplaced{}, channel.ReasonOther, 440, true},
		{"keepalive once", &events.KeepAliveTimeout{ErrorCount: 1}, 0, 0, false},
		{"keepalive exhausted", &events.KeepAliveTimeout{ErrorCount: 3}, channel.ReasonTimedOut, 0, true},
		{"connect failure logged out", &events.ConnectFailure{Reason: events.ConnectFailureLoggedOut}, channel.ReasonLoggedOut, 0, true},
		{"connect failure unavailable", &events.ConnectFailure{Reason: events.ConnectFailureReason(503)}, channel.ReasonRestartRequired, 0, true},
		{"connect failure other", &events.ConnectFailure{Reason: events.ConnectFailureReason(409)}, channel.ReasonOther, 409, true},
		{"client outdated", &events.ClientOutdated{}, channel.ReasonOther, 405, true},
		{"connected", &events.Connected{}, 0, 0, false},
		{"message", &events.Message{}, 0, 0, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, ok := reasonOf(c.evt)
			if ok != c.ok {
				t.Fatalf("reasonOf() ok = %v, want %v", ok, c.ok)
			}
			if !ok {
				return
			}
			if got.Kind != c.want || got.Code != c.code {
				t.Errorf("reasonOf() = %s, want kind %s code %d", got, c.want, c.code)
			}
		})
	}
}

func TestConvertMessage_GroupReply(t *testing.T) {
	sender := testUser
	sender.Device = 12

	v := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:    testGroup,
				Sender:  sender,
				IsGroup: true,
			},
			ID: "3EB0C0FFEE",
		},
		Message: &waE2E.Message{
			ExtendedTextMessage: &waE2E.ExtendedTextMessage{
				Text: proto.String(".tagall"),
				ContextInfo: &waE2E.ContextInfo{
					StanzaID:      proto.String("QUOTED"),
					QuotedMessage: &waE2E.Message{Conversation: proto.String("hello all")},
				},
			},
		},
	}

	ev, ok := convertMessage(v).(*event.MessageEvent)
	if !ok {
		t.Fatalf("convertMessage() = %T, want *event.MessageEvent", convertMessage(v))
	}
	want := event.Key{
		ChatID:      "120363000000000001@g.us",
		Participant: "905551112233@s.whatsapp.net",
		ID:          "3EB0C0FFEE",
	}
	if ev.Key != want {
		t.Errorf("Key = %+v, want %+v", ev.Key, want)
	}

	text, ok := ev.Payload.(event.ExtendedText)
	if !ok {
		t.Fatalf("Payload = %T, want ExtendedText", ev.Payload)
	}
	if text.Text != ".tagall" {
		t.Errorf("Text = %q", text.Text)
	}
	if q, ok := text.Quoted.(event.Conversation); !ok || q.Text != "hello all" {
		t.Errorf("Quoted = %#v, want conversation %q", text.Quoted, "hello all")
	}
}

func TestConvertMessage_HiddenUserUsesPhoneNumber(t *testing.T) {
	lid := types.NewJID("81234567890123", types.HiddenUserServer)

	v := &events.Message{
		Info: types.MessageInfo{
			MessageSource: types.MessageSource{
				Chat:      lid,
				Sender:    lid,
				SenderAlt: testUser,
			},
			ID: "ID1",
		},
		Message: &waE2E.Message{Conversation: proto.String(".ping")},
	}

	ev := convertMessage(v).(*event.MessageEvent)
	if ev.Key.ChatID != "905551112233@s.whatsapp.net" || ev.Key.Participant != "" {
		t.Errorf("Key = %+v, want direct chat with the phone number", ev.Key)
	}
	if !event.IsDirectChat(ev.Key) {
		t.Error("IsDirectChat() = false, want true")
	}
}

func TestConvertMessage_ProtocolMarkers(t *testing.T) {
	info := types.MessageInfo{
		MessageSource: types.MessageSource{Chat: testUser, Sender: testUser},
		ID:            "ID2",
	}

	reaction := convertMessage(&events.Message{
		Info:    info,
		Message: &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{Text: proto.String("👍")}},
	})
	if p, ok := reaction.(*event.ProtocolEvent); !ok || p.Marker != event.MarkerReaction {
		t.Errorf("reaction = %#v, want reaction marker", reaction)
	}

	revoke := convertMessage(&events.Message{
		Info:    info,
		Message: &waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{}},
	})
	if p, ok := revoke.(*event.ProtocolEvent); !ok || p.Marker != event.MarkerProtocol {
		t.Errorf("protocol = %#v, want protocol marker", revoke)
	}
}

func TestConvertPayload(t *testing.T) {
	image := &waE2E.ImageMessage{Mimetype: proto.String("image/jpeg"), Caption: proto.String("look")}

	cases := []struct {
		name  string
		msg   *waE2E.Message
		check func(t *testing.T, p event.Payload)
	}{
		{
			name: "conversation",
			msg:  &waE2E.Message{Conversation: proto.String("hi")},
			check: func(t *testing.T, p event.Payload) {
				if c, ok := p.(event.Conversation); !ok || c.Text != "hi" {
					t.Errorf("payload = %#v", p)
				}
			},
		},
		{
			name: "buttons response",
			msg: &waE2E.Message{ButtonsResponseMessage: &waE2E.ButtonsResponseMessage{
				SelectedButtonID: proto.String("btn-1"),
				Response:         &waE2E.ButtonsResponseMessage_SelectedDisplayText{SelectedDisplayText: ".menu"},
			}},
			check: func(t *testing.T, p event.Payload) {
				b, ok := p.(event.ButtonReply)
				if !ok || b.DisplayText != ".menu" || b.ButtonID != "btn-1" {
					t.Errorf("payload = %#v", p)
				}
			},
		},
		{
			name: "template button reply",
			msg: &waE2E.Message{TemplateButtonReplyMessage: &waE2E.TemplateButtonReplyMessage{
				SelectedID:          proto.String("tpl-1"),
				SelectedDisplayText: proto.String(".alive"),
			}},
			check: func(t *testing.T, p event.Payload) {
				b, ok := p.(event.ButtonReply)
				if !ok || b.DisplayText != ".alive" || b.ButtonID != "tpl-1" {
					t.Errorf("payload = %#v", p)
				}
			},
		},
		{
			name: "image keeps the downloadable ref",
			msg:  &waE2E.Message{ImageMessage: image},
			check: func(t *testing.T, p event.Payload) {
				img, ok := p.(event.Image)
				if !ok {
					t.Fatalf("payload = %#v", p)
				}
				if img.Media.Kind != event.MediaImage || img.Media.Caption != "look" || img.Media.Mimetype != "image/jpeg" {
					t.Errorf("media = %+v", img.Media)
				}
				if img.Media.Ref != image {
					t.Error("Ref is not the image message")
				}
			},
		},
		{
			name: "video",
			msg:  &waE2E.Message{VideoMessage: &waE2E.VideoMessage{Mimetype: proto.String("video/mp4")}},
			check: func(t *testing.T, p event.Payload) {
				if v, ok := p.(event.Video); !ok || v.Media.Kind != event.MediaVideo {
					t.Errorf("payload = %#v", p)
				}
			},
		},
		{
			name: "sticker is unsupported",
			msg:  &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}},
			check: func(t *testing.T, p event.Payload) {
				u, ok := p.(event.Unsupported)
				if !ok || u.Type == "" || u.Type == "unknown" {
					t.Errorf("payload = %#v", p)
				}
			},
		},
		{
			name: "nil message",
			msg:  nil,
			check: func(t *testing.T, p event.Payload) {
				if _, ok := p.(event.Unsupported); !ok {
					t.Errorf("payload = %#v", p)
				}
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			c.check(t, convertPayload(c.msg, true))
		})
	}
}

func TestConvertPayload_QuoteDepth(t *testing.T) {
	inner := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String("middle"),
			ContextInfo: &waE2E.ContextInfo{
				QuotedMessage: &waE2E.Message{Conversation: proto.String("deepest")},
			},
		},
	}
	outer := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text:        proto.String("top"),
			ContextInfo: &waE2E.ContextInfo{QuotedMessage: inner},
		},
	}

	top := convertPayload(outer, true).(event.ExtendedText)
	middle, ok := top.Quoted.(event.ExtendedText)
	if !ok || middle.Text != "middle" {
		t.Fatalf("Quoted = %#v", top.Quoted)
	}
	if middle.Quoted != nil {
		t.Errorf("nested quote resolved: %#v", middle.Quoted)
	}
}

func TestConvertGroupInfo(t *testing.T) {
	admin := testOther

	t.Run("join", func(t *testing.T) {
		out := convertGroupInfo(&events.GroupInfo{JID: testGroup, Join: []types.JID{testUser}}, nil)
		if len(out) != 1 {
			t.Fatalf("events = %d, want 1", len(out))
		}
		stub := out[0].(*event.StubEvent)
		if stub.Code != event.StubParticipantAdd {
			t.Errorf("Code = %d, want add", stub.Code)
		}
		if stub.Key.ChatID != "120363000000000001@g.us" || stub.Key.Participant != "905551112233@s.whatsapp.net" {
			t.Errorf("Key = %+v", stub.Key)
		}
	})

	t.Run("leave and remove", func(t *testing.T) {
		out := convertGroupInfo(&events.GroupInfo{
			JID:    testGroup,
			Sender: &admin,
			Leave:  []types.JID{admin, testUser},
		}, nil)
		if len(out) != 2 {
			t.Fatalf("events = %d, want 2", len(out))
		}
		left := out[0].(*event.StubEvent)
		removed := out[1].(*event.StubEvent)
		if left.Code != event.StubParticipantLeave || left.Participants[0] != "905554445566@s.whatsapp.net" {
			t.Errorf("left = %+v", left)
		}
		if removed.Code != event.StubParticipantRemove || removed.Participants[0] != "905551112233@s.whatsapp.net" {
			t.Errorf("removed = %+v", removed)
		}
	})

	t.Run("resolves hidden users", func(t *testing.T) {
		lid := types.NewJID("81234567890123", types.HiddenUserServer)
		resolve := func(jid types.JID) types.JID {
			if jid == lid {
				return testUser
			}
			return jid
		}
		out := convertGroupInfo(&events.GroupInfo{JID: testGroup, Join: []types.JID{lid}}, resolve)
		if got := out[0].(*event.StubEvent).Participants; len(got) != 1 || got[0] != "905551112233@s.whatsapp.net" {
			t.Errorf("Participants = %v", got)
		}
	})

	t.Run("nothing changed", func(t *testing.T) {
		if out := convertGroupInfo(&events.GroupInfo{JID: testGroup}, nil); len(out) != 0 {
			t.Errorf("events = %d, want 0", len(out))
		}
	})
}

func TestTextMessage(t *testing.T) {
	plain := textMessage(model.Text("pong"), "")
	if plain.GetConversation() != "pong" || plain.GetExtendedTextMessage() != nil {
		t.Errorf("plain = %v", plain)
	}

	own := "905550000000@s.whatsapp.net"
	trigger := event.Key{ChatID: testUser.String(), ID: "T1"}
	msg := model.Text("hi all").
		WithMentions([]string{testUser.String(), testOther.String()}).
		Quoting(trigger, ".tagall")

	wa := textMessage(msg, own)
	ext := wa.GetExtendedTextMessage()
	if ext == nil {
		t.Fatal("want an extended text message")
	}
	ci := ext.GetContextInfo()
	if len(ci.GetMentionedJID()) != 2 {
		t.Errorf("MentionedJID = %v", ci.GetMentionedJID())
	}
	if ci.GetStanzaID() != "T1" || ci.GetQuotedMessage().GetConversation() != ".tagall" {
		t.Errorf("quote = %v", ci)
	}
	if ci.GetParticipant() != testUser.String() {
		t.Errorf("Participant = %q, want the direct chat", ci.GetParticipant())
	}
}

func TestQuotedAuthor(t *testing.T) {
	own := "905550000000@s.whatsapp.net"
	cases := []struct {
		key  event.Key
		want string
	}{
		{event.Key{ChatID: "g@g.us", Participant: "a@s.whatsapp.net"}, "a@s.whatsapp.net"},
		{event.Key{ChatID: "b@s.whatsapp.net", FromMe: true}, own},
		{event.Key{ChatID: "b@s.whatsapp.net"}, "b@s.whatsapp.net"},
	}
	for _, c := range cases {
		if got := quotedAuthor(c.key, own); got != c.want {
			t.Errorf("quotedAuthor(%+v) = %q, want %q", c.key, got, c.want)
		}
	}
}
