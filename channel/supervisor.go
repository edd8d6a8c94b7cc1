package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cenkalti/backoff/v4"

	"github.com/ryanreadbooks/primon/event"
	"github.com/ryanreadbooks/primon/pkg/safe"
)

// ServeFunc consumes the events of one open session. It must return once
// ctx is done or events is closed.
type ServeFunc func(ctx context.Context, sess Session, events <-chan event.RawEvent)

type RestartPolicy struct {
	// Zero restarts immediately.
	Initial     time.Duration
	Max         time.Duration
	Multiplier  float64
	StableAfter time.Duration
}

type SupervisorOptions struct {
	Factory Factory
	Serve   ServeFunc
	Restart RestartPolicy
	// Glob patterns of files removed when the credentials are revoked.
	EraseGlobs []string
	Logger     *slog.Logger
}

// Supervisor owns the session lifecycle. It opens sessions, restarts them
// after recoverable disconnects and stops for good when the credentials are
// revoked or the disconnect reason is not understood.
type Supervisor struct {
	opts   SupervisorOptions
	logger *slog.Logger
	bus    *Bus

	mu    sync.RWMutex
	state State
}

func NewSupervisor(opts SupervisorOptions) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		opts:   opts,
		logger: logger.With("component", "supervisor"),
		bus:    NewBus(),
		state:  StateConnecting,
	}
}

func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Supervisor) OnStateChange(l StateListener) {
	s.bus.Subscribe(l)
}

func (s *Supervisor) transition(state State, reason DisconnectReason) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	s.logger.Debug("state changed", "from", prev.String(), "to", state.String(), "reason", reason.String())
	s.bus.Publish(state, reason)
}

func (s *Supervisor) newBackOff() backoff.BackOff {
	p := s.opts.Restart
	if p.Initial <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.Initial),
		backoff.WithMaxElapsedTime(0),
	)
	if p.Max > 0 {
		b.MaxInterval = p.Max
	}
	if p.Multiplier >= 1 {
		b.Multiplier = p.Multiplier
	}
	b.Reset()
	return b
}

// Run blocks until ctx is done or the session ends for good. It returns nil
// on shutdown, ErrLoggedOut when the credentials were revoked and
// ErrUnknownDisconnect for reasons it does not handle.
func (s *Supervisor) Run(ctx context.Context) error {
	bo := s.newBackOff()

	for {
		s.transition(StateConnecting, DisconnectReason{})

		sess, err := s.opts.Factory(ctx)
		if err != nil {
			s.transition(StateTerminated, DisconnectReason{})
			return fmt.Errorf("failed to create session: %w", err)
		}

		var (
			reason   DisconnectReason
			openedAt time.Time
		)
		events, err := sess.Connect(ctx)
		var de *DisconnectError
		switch {
		case errors.As(err, &de):
			reason = de.Reason
			s.transition(StateClosing, reason)

		case err != nil:
			sess.Close()
			if ctx.Err() != nil {
				s.transition(StateTerminated, DisconnectReason{})
				return nil
			}
			delay := bo.NextBackOff()
			s.logger.Warn("failed to connect, retrying", "error", err, "delay", delay)
			if sleep(ctx, delay) != nil {
				s.transition(StateTerminated, DisconnectReason{})
				return nil
			}
			continue

		default:
			openedAt = time.Now()
			s.transition(StateOpen, DisconnectReason{})
			s.logger.Info("session open", "identity", sess.OwnIdentity())

			var shutdown bool
			reason, shutdown = s.serve(ctx, sess, events)
			if shutdown {
				s.transition(StateClosing, DisconnectReason{})
				sess.Close()
				s.transition(StateTerminated, DisconnectReason{})
				return nil
			}
			s.transition(StateClosing, reason)
		}

		s.logger.Info("session closed", "reason", reason.String())

		switch {
		case reason.Revoked():
			err := s.erase(ctx, sess)
			sess.Close()
			s.transition(StateTerminated, reason)
			if err != nil {
				return errors.Join(fmt.Errorf("%w: %s", ErrLoggedOut, reason), err)
			}
			return fmt.Errorf("%w: %s", ErrLoggedOut, reason)

		case reason.Recoverable():
			sess.Close()
			if !openedAt.IsZero() && s.opts.Restart.StableAfter > 0 && time.Since(openedAt) >= s.opts.Restart.StableAfter {
				bo.Reset()
			}
			delay := bo.NextBackOff()
			s.logger.Info("restarting session", "delay", delay)
			if sleep(ctx, delay) != nil {
				s.transition(StateTerminated, DisconnectReason{})
				return nil
			}

		default:
			sess.Close()
			s.transition(StateTerminated, reason)
			return fmt.Errorf("%w: %s", ErrUnknownDisconnect, reason)
		}
	}
}

// serve runs the ServeFunc until the session disconnects or ctx is done.
// No event is handed to the ServeFunc after it returns.
func (s *Supervisor) serve(ctx context.Context, sess Session, events <-chan event.RawEvent) (DisconnectReason, bool) {
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	safe.Go("supervisor.serve", func() {
		defer close(done)
		if s.opts.Serve != nil {
			s.opts.Serve(serveCtx, sess, events)
		}
	})

	var (
		reason   DisconnectReason
		shutdown bool
	)
	select {
	case <-ctx.Done():
		shutdown = true
	case reason = <-sess.Disconnected():
	}

	cancel()
	<-done
	return reason, shutdown
}

func (s *Supervisor) erase(ctx context.Context, sess Session) error {
	var errs []error
	if err := sess.EraseCredentials(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to erase credentials: %w", err))
	}

	if err := RemoveMatching(s.opts.EraseGlobs, s.logger); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// RemoveMatching removes the files matching any of patterns. Files that are
// already gone are ignored.
func RemoveMatching(patterns []string, logger *slog.Logger) error {
	var errs []error
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to glob %s: %w", pattern, err))
			continue
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
				continue
			}
			if logger != nil {
				logger.Info("removed session file", "path", path)
			}
		}
	}
	return errors.Join(errs...)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
