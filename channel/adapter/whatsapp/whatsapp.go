// Package whatsapp implements channel.Session on top of the whatsmeow
// multi-device client.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/event"
	"github.com/ryanreadbooks/primon/pkg/safe"
)

var _ channel.Session = (*Session)(nil)

const eventBuffer = 256

type Options struct {
	// sqlite file holding the device credentials.
	StorePath string
	// Name shown in the linked devices list of the phone.
	DeviceName string
	// Pairing codes are rendered here, os.Stdout when nil.
	QRWriter io.Writer
	Logger   *slog.Logger
}

// Session is one connection of the paired device. It is not reusable after
// Close.
type Session struct {
	opts      Options
	logger    *slog.Logger
	container *sqlstore.Container
	client    *whatsmeow.Client
	handlerID uint32

	events        chan event.RawEvent
	disconnected  chan channel.DisconnectReason
	connected     chan struct{}
	connectedOnce sync.Once
	failOnce      sync.Once

	done      chan struct{}
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewFactory returns a factory creating one Session per connection attempt.
func NewFactory(opts Options) channel.Factory {
	return func(ctx context.Context) (channel.Session, error) {
		return New(ctx, opts)
	}
}

func New(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "whatsapp")

	if opts.DeviceName != "" {
		store.SetOSInfo(opts.DeviceName, [3]uint32{1, 0, 0})
	}

	container, err := openContainer(ctx, opts.StorePath, logger)
	if err != nil {
		return nil, err
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to load device: %w", err)
	}

	client := whatsmeow.NewClient(device, newLogger(logger, "client"))
	// restarts are owned by the supervisor
	client.EnableAutoReconnect = false

	s := &Session{
		opts:         opts,
		logger:       logger,
		container:    container,
		client:       client,
		events:       make(chan event.RawEvent, eventBuffer),
		disconnected: make(chan channel.DisconnectReason, 1),
		connected:    make(chan struct{}),
		done:         make(chan struct{}),
	}
	s.handlerID = client.AddEventHandler(s.handleEvent)
	return s, nil
}

func openContainer(ctx context.Context, path string, logger *slog.Logger) (*sqlstore.Container, error) {
	if path == "" {
		return nil, errors.New("session store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	dsn := "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
	container, err := sqlstore.New(ctx, "sqlite3", dsn, newLogger(logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	return container, nil
}

// Connect performs the handshake, pairing a new device first when no
// credentials are stored. A disconnect before the handshake completes is
// returned as *channel.DisconnectError.
func (s *Session) Connect(ctx context.Context) (<-chan event.RawEvent, error) {
	if s.client.Store.ID == nil {
		qr, err := s.client.GetQRChannel(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to start pairing: %w", err)
		}
		if err := s.client.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
		safe.Go("whatsapp.pair", func() { s.pair(qr) })
	} else if err := s.client.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	select {
	case <-s.connected:
		return s.events, nil
	case reason := <-s.disconnected:
		return nil, &channel.DisconnectError{Reason: reason}
	case <-s.done:
		return nil, errors.New("session closed while connecting")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) Disconnected() <-chan channel.DisconnectReason {
	return s.disconnected
}

func (s *Session) OwnIdentity() string {
	if s.client.Store.ID == nil {
		return ""
	}
	return event.NormalizeIdentity(s.client.Store.ID.User)
}

// EraseCredentials removes the device from the session store.
func (s *Session) EraseCredentials(ctx context.Context) error {
	if s.client.Store.ID == nil {
		return nil
	}
	if err := s.client.Store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	return nil
}

// ErrNotPaired is returned by Logout when no device is stored.
var ErrNotPaired = errors.New("no paired device")

// Logout unlinks the device on the server and erases the local credentials.
// The local credentials are erased even when the server cannot be reached.
func (s *Session) Logout(ctx context.Context) error {
	if s.client.Store.ID == nil {
		return ErrNotPaired
	}

	if _, err := s.Connect(ctx); err != nil {
		s.logger.Warn("failed to connect for logout, erasing local credentials", "error", err)
		return s.EraseCredentials(ctx)
	}
	if err := s.client.Logout(ctx); err != nil {
		s.logger.Warn("failed to log out on the server, erasing local credentials", "error", err)
		return s.EraseCredentials(ctx)
	}
	return nil
}

// Close disconnects the client and closes the event stream. It is safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.client.RemoveEventHandler(s.handlerID)
		s.client.Disconnect()

		s.mu.Lock()
		s.closed = true
		close(s.events)
		s.mu.Unlock()

		if err := s.container.Close(); err != nil {
			s.logger.Warn("failed to close session store", "error", err)
		}
	})
}

// emit hands ev to the consumer. It blocks while the buffer is full so that
// events keep their order.
func (s *Session) emit(ev event.RawEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// fail reports the first disconnect reason of the session.
func (s *Session) fail(reason channel.DisconnectReason) {
	s.failOnce.Do(func() {
		s.disconnected <- reason
	})
}
