package channel

import (
	"context"

	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/event"
)

type Sender interface {
	// Send delivers msg to chatID and returns the id of the sent message.
	Send(ctx context.Context, chatID string, msg *model.OutgoingMessage) (string, error)
}

type GroupInfo struct {
	ChatID       string
	Subject      string
	Participants []string
}

type Directory interface {
	GroupInfo(ctx context.Context, chatID string) (*GroupInfo, error)
}

type MediaDownloader interface {
	DownloadMedia(ctx context.Context, media *event.Media) ([]byte, error)
}

type ProfilePictures interface {
	// ProfilePictureURL returns ErrNoProfilePicture when chatID has none.
	ProfilePictureURL(ctx context.Context, chatID string) (string, error)
}

// Session is one logical connection to the messaging backend. A Session is
// used for a single connect/disconnect cycle, the supervisor creates a new
// one for every restart.
type Session interface {
	Sender
	Directory
	MediaDownloader
	ProfilePictures

	// Connect performs the handshake and returns the event stream. The
	// stream is closed when the session ends.
	Connect(ctx context.Context) (<-chan event.RawEvent, error)

	// Disconnected delivers the reason of the disconnect that ended the
	// session. It receives at most one value.
	Disconnected() <-chan DisconnectReason

	OwnIdentity() string

	// EraseCredentials removes the persisted credentials of this session.
	EraseCredentials(ctx context.Context) error

	Close()
}

// Factory creates a fresh Session.
type Factory func(ctx context.Context) (Session, error)
