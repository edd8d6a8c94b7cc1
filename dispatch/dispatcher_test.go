package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/event"
	"github.com/ryanreadbooks/primon/greeting"
	"github.com/ryanreadbooks/primon/lang"
	"github.com/ryanreadbooks/primon/media"
)

const (
	ownID     = "905550000000@s.whatsapp.net"
	sudoID    = "905551112233@s.whatsapp.net"
	strangeID = "905559999999@s.whatsapp.net"
	groupID   = "120363000000000000@g.us"
)

type sent struct {
	chatID string
	msg    *model.OutgoingMessage
}

type fakeSession struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeSession) Connect(ctx context.Context) (<-chan event.RawEvent, error) { return nil, nil }

func (f *fakeSession) Disconnected() <-chan channel.DisconnectReason { return nil }

func (f *fakeSession) OwnIdentity() string { return ownID }

func (f *fakeSession) EraseCredentials(ctx context.Context) error { return nil }

func (f *fakeSession) Close() {}

func (f *fakeSession) Send(ctx context.Context, chatID string, msg *model.OutgoingMessage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{chatID, msg})
	return "OUT", nil
}

func (f *fakeSession) GroupInfo(ctx context.Context, chatID string) (*channel.GroupInfo, error) {
	return &channel.GroupInfo{ChatID: chatID, Subject: "Test", Participants: []string{sudoID, strangeID}}, nil
}

func (f *fakeSession) DownloadMedia(ctx context.Context, media *event.Media) ([]byte, error) {
	return nil, nil
}

func (f *fakeSession) ProfilePictureURL(ctx context.Context, chatID string) (string, error) {
	return "", channel.ErrNoProfilePicture
}

func (f *fakeSession) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func newTestDispatcher(t *testing.T, store greeting.Store) *Dispatcher {
	t.Helper()
	d, err := New(Options{
		Prefixes:   ".",
		Sudo:       sudoID,
		Strings:    lang.MustLoad("en"),
		Store:      store,
		Fetcher:    media.NewFetcher(media.Options{Timeout: time.Second}),
		ScratchDir: t.TempDir(),
		Workers:    4,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Close)
	return d
}

// serve pushes raws through a session and waits for every task to finish.
func serve(t *testing.T, d *Dispatcher, raws ...event.RawEvent) []sent {
	t.Helper()
	sess := &fakeSession{}
	events := make(chan event.RawEvent, len(raws))
	for _, raw := range raws {
		events <- raw
	}
	close(events)

	d.Serve(context.Background(), sess, events)
	d.Wait()
	return sess.messages()
}

func groupText(sender, text string) *event.MessageEvent {
	return &event.MessageEvent{
		Key:     event.Key{ChatID: groupID, Participant: sender, ID: "M1"},
		Payload: event.Conversation{Text: text},
	}
}

func TestDispatcher_PingFromSudo(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	out := serve(t, d, groupText(sudoID, ".ping"))
	if len(out) != 2 {
		t.Fatalf("sent %d messages, want check and result: %+v", len(out), out)
	}
	if out[0].msg.Text != "_Ping, Pong!_" {
		t.Errorf("check = %q", out[0].msg.Text)
	}
	if !strings.Contains(out[1].msg.Text, "ms") || out[1].chatID != groupID {
		t.Errorf("result = %+v", out[1])
	}
}

func TestDispatcher_OwnPingDeletesTriggerBeforeSending(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	raw := &event.MessageEvent{
		Key:     event.Key{ChatID: groupID, Participant: ownID, ID: "M3", FromMe: true},
		Payload: event.Conversation{Text: ".ping"},
	}
	out := serve(t, d, raw)
	if len(out) != 3 {
		t.Fatalf("sent %d messages: %+v", len(out), out)
	}
	if out[0].msg.Kind != model.KindDelete || out[0].msg.Target.ID != "M3" {
		t.Errorf("out[0] = %+v, want delete of M3", out[0].msg)
	}
	if out[1].msg.Text != "_Ping, Pong!_" {
		t.Errorf("out[1] = %q", out[1].msg.Text)
	}
	if !strings.HasPrefix(out[2].msg.Text, "Latency: ") {
		t.Errorf("out[2] = %q", out[2].msg.Text)
	}
}

func TestDispatcher_PingFromStrangerIsIgnored(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	if out := serve(t, d, groupText(strangeID, ".ping")); len(out) != 0 {
		t.Fatalf("sent %+v to a non sudo sender", out)
	}
}

func TestDispatcher_OwnMessagesAreAuthorized(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	raw := &event.MessageEvent{
		Key:     event.Key{ChatID: groupID, Participant: ownID, ID: "M2", FromMe: true},
		Payload: event.Conversation{Text: ".alive"},
	}
	out := serve(t, d, raw)
	if len(out) != 2 || out[0].msg.Kind != model.KindDelete {
		t.Fatalf("sent = %+v, want delete then alive", out)
	}
}

func TestDispatcher_IgnoresNonCommands(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	out := serve(t, d,
		groupText(sudoID, "hello"),
		groupText(sudoID, ". spaced"),
		&event.ProtocolEvent{Key: event.Key{ChatID: groupID}, Marker: event.MarkerReaction},
	)
	if len(out) != 0 {
		t.Fatalf("sent %+v", out)
	}
}

func TestDispatcher_WelcomeDeleteAbsent(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	out := serve(t, d, groupText(sudoID, ".welcome delete"))
	if len(out) != 1 || !strings.Contains(out[0].msg.Text, "deleted") {
		t.Fatalf("sent = %+v", out)
	}
}

func TestDispatcher_MembershipWithoutProfilePicture(t *testing.T) {
	store := greeting.NewMemoryStore()
	store.Upsert(context.Background(), &greeting.Template{Scope: groupID, Type: greeting.TypeWelcome, Content: "{gpp} Welcome!"})
	d := newTestDispatcher(t, store)

	out := serve(t, d, &event.StubEvent{
		Key:          event.Key{ChatID: groupID, ID: "S1"},
		Code:         event.StubParticipantAdd,
		Participants: []string{strangeID},
	})
	if len(out) != 1 {
		t.Fatalf("sent %d messages: %+v", len(out), out)
	}
	if out[0].msg.Kind != model.KindText || out[0].msg.Text != "This chat has no profile picture." {
		t.Errorf("sent = %+v", out[0].msg)
	}
}

func TestDispatcher_MembershipWithoutTemplateIsSilent(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())

	out := serve(t, d, &event.StubEvent{
		Key:          event.Key{ChatID: groupID, ID: "S2"},
		Code:         event.StubParticipantLeave,
		Participants: []string{strangeID},
	})
	if len(out) != 0 {
		t.Fatalf("sent %+v", out)
	}
}

func TestDispatcher_GoodbyeOnLeave(t *testing.T) {
	store := greeting.NewMemoryStore()
	store.Upsert(context.Background(), &greeting.Template{Scope: groupID, Type: greeting.TypeGoodbye, Content: "Bye"})
	store.Upsert(context.Background(), &greeting.Template{Scope: groupID, Type: greeting.TypeWelcome, Content: "Hi"})
	d := newTestDispatcher(t, store)

	out := serve(t, d, &event.StubEvent{
		Key:          event.Key{ChatID: groupID, ID: "S3"},
		Code:         event.StubParticipantRemove,
		Participants: []string{strangeID},
	})
	if len(out) != 1 || out[0].msg.Text != "Bye" {
		t.Fatalf("sent = %+v", out)
	}
}

func TestDispatcher_StopsWhenNotOpen(t *testing.T) {
	d := newTestDispatcher(t, greeting.NewMemoryStore())
	sess := &fakeSession{}
	events := make(chan event.RawEvent)
	done := make(chan struct{})
	go func() {
		d.Serve(context.Background(), sess, events)
		close(done)
	}()

	events <- groupText(sudoID, ".alive")
	deadline := time.Now().Add(2 * time.Second)
	for len(sess.messages()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first command never answered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	d.OnStateChange(channel.StateClosing, channel.Reason(channel.ReasonConnectionLost))
	events <- groupText(sudoID, ".alive")
	close(events)
	<-done
	d.Wait()

	if got := len(sess.messages()); got != 1 {
		t.Fatalf("sent %d messages, want only the one before closing", got)
	}
}

func TestDispatcher_BusyGreetingsDoNotBlock(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	defer close(release)

	store := greeting.NewMemoryStore()
	store.Upsert(context.Background(), &greeting.Template{Scope: groupID, Type: greeting.TypeWelcome, Content: "{img: " + srv.URL + "/slow.png}"})
	d, err := New(Options{
		Prefixes:   ".",
		Sudo:       sudoID,
		Strings:    lang.MustLoad("en"),
		Store:      store,
		Fetcher:    media.NewFetcher(media.Options{Timeout: 5 * time.Second}),
		ScratchDir: t.TempDir(),
		Workers:    1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(d.Close)

	sess := &fakeSession{}
	events := make(chan event.RawEvent, 4)
	for i := range 3 {
		events <- &event.StubEvent{
			Key:          event.Key{ChatID: groupID, ID: "J" + strconv.Itoa(i)},
			Code:         event.StubParticipantAdd,
			Participants: []string{strangeID},
		}
	}
	events <- groupText(sudoID, ".alive")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Serve(ctx, sess, events)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for len(sess.messages()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("command stalled behind greetings")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := sess.messages()[0].msg.Text; !strings.Contains(got, "alive") {
		t.Errorf("first message = %q, want the alive reply", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Serve did not return after cancel")
	}
}
