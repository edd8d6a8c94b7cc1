// Package dispatch wires classified events to the command and greeting
// pipelines.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/command/builtin"
	"github.com/ryanreadbooks/primon/event"
	"github.com/ryanreadbooks/primon/greeting"
	"github.com/ryanreadbooks/primon/lang"
	"github.com/ryanreadbooks/primon/media"
	"github.com/ryanreadbooks/primon/pkg/safe"
)

const (
	defaultWorkers     = 64
	defaultTaskTimeout = 2 * time.Minute
	releaseTimeout     = 5 * time.Second
)

type Options struct {
	// Prefixes is the set of command prefix characters.
	Prefixes string
	// Sudo is the comma separated list of authorized identities.
	Sudo    string
	Strings lang.Strings
	Store   greeting.Store
	Fetcher *media.Fetcher
	// ScratchDir receives downloaded videos.
	ScratchDir  string
	// Workers bounds both the command and the greeting pool. Events that
	// find their pool full are dropped.
	Workers     int
	TaskTimeout time.Duration
	Logger      *slog.Logger
	// Now is the clock used by ping, time.Now when nil.
	Now func() time.Time
}

type Dispatcher struct {
	opts      Options
	commands  *ants.Pool
	greetings *ants.Pool
	registry *command.Registry
	renderer *greeting.Renderer
	current  *currentSession
	logger   *slog.Logger

	open     atomic.Bool
	inflight sync.WaitGroup
}

func New(opts Options) (*Dispatcher, error) {
	if opts.Prefixes == "" {
		return nil, errors.New("at least one command prefix is required")
	}
	if opts.Strings == nil || opts.Store == nil || opts.Fetcher == nil {
		return nil, errors.New("strings, store and fetcher are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = defaultTaskTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dispatcher")

	commands, err := newPool(opts.Workers, "dispatch.commands")
	if err != nil {
		return nil, err
	}
	greetings, err := newPool(opts.Workers, "dispatch.greetings")
	if err != nil {
		commands.Release()
		return nil, err
	}

	current := &currentSession{}
	renderer := greeting.NewRenderer(opts.Fetcher.WithProfiles(current), opts.Strings, opts.ScratchDir, logger)

	registry := command.NewRegistry(opts.Strings)
	builtin.Register(registry, builtin.Deps{Store: opts.Store, Renderer: renderer, Now: opts.Now})

	return &Dispatcher{
		opts:      opts,
		commands:  commands,
		greetings: greetings,
		registry: registry,
		renderer: renderer,
		current:  current,
		logger:   logger,
	}, nil
}

// newPool never blocks the submitter, a full pool rejects with
// ants.ErrPoolOverload.
func newPool(size int, name string) (*ants.Pool, error) {
	pool, err := ants.NewPool(size,
		ants.WithNonblocking(true),
		ants.WithPanicHandler(safe.PanicHandler(name)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s pool: %w", name, err)
	}
	return pool, nil
}

func (d *Dispatcher) Registry() *command.Registry {
	return d.registry
}

// OnStateChange stops dispatching as soon as the session leaves Open.
func (d *Dispatcher) OnStateChange(state channel.State, _ channel.DisconnectReason) {
	d.open.Store(state == channel.StateOpen)
}

// Serve consumes the events of one session until ctx is done or the stream
// ends. It is a channel.ServeFunc.
func (d *Dispatcher) Serve(ctx context.Context, sess channel.Session, events <-chan event.RawEvent) {
	own := sess.OwnIdentity()
	classifier := event.NewClassifier(own, d.logger)
	sudo := command.NewSudoList(d.opts.Sudo, own)
	d.current.set(sess)
	d.open.Store(true)
	defer d.open.Store(false)

	d.logger.InfoContext(ctx, "dispatching events", "identity", own, "sudo", sudo.Len())
	for {
		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "dispatch stopped", "reason", ctx.Err())
			return
		case raw, ok := <-events:
			if !ok {
				d.logger.InfoContext(ctx, "event stream closed")
				return
			}
			if !d.open.Load() {
				continue
			}
			msg, ok := classifier.Classify(raw)
			if !ok {
				continue
			}
			d.submit(ctx, sess, sudo, msg)
		}
	}
}

func (d *Dispatcher) submit(ctx context.Context, sess channel.Session, sudo *command.SudoList, msg event.InboundMessage) {
	pool := d.commands
	if msg.IsMembership() {
		pool = d.greetings
	}

	d.inflight.Add(1)
	err := pool.Submit(func() {
		defer d.inflight.Done()

		// handlers finish even when the session goes away meanwhile
		taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.TaskTimeout)
		defer cancel()

		if msg.IsMembership() {
			d.greet(taskCtx, sess, msg.Membership)
			return
		}
		d.handle(taskCtx, sess, sudo, msg)
	})
	if err != nil {
		d.inflight.Done()
		if errors.Is(err, ants.ErrPoolOverload) {
			d.logger.WarnContext(ctx, "workers busy, event dropped", "chat", msg.ChatID, "membership", msg.IsMembership())
			return
		}
		d.logger.ErrorContext(ctx, "failed to submit event", "chat", msg.ChatID, "error", err)
	}
}

// greet sends the welcome or goodbye template of the chat, if any.
func (d *Dispatcher) greet(ctx context.Context, sess channel.Session, m *event.Membership) {
	typ := greeting.TypeWelcome
	if m.Kind == event.Left {
		typ = greeting.TypeGoodbye
	}

	tpl, err := d.opts.Store.Get(ctx, m.ChatID, typ)
	if err != nil {
		if !errors.Is(err, greeting.ErrNotFound) {
			d.logger.ErrorContext(ctx, "failed to load greeting", "chat", m.ChatID, "type", typ, "error", err)
		}
		return
	}

	res := d.renderer.Render(ctx, tpl, m.ChatID)
	if res.Err != nil {
		d.logger.WarnContext(ctx, "greeting render failed", "chat", m.ChatID, "type", typ, "error", res.Err)
	}
	if _, err := sess.Send(ctx, m.ChatID, res.Message); err != nil {
		d.logger.ErrorContext(ctx, "failed to send greeting", "chat", m.ChatID, "type", typ, "error", err)
	}
}

func (d *Dispatcher) handle(ctx context.Context, sess channel.Session, sudo *command.SudoList, msg event.InboundMessage) {
	if !sudo.IsAuthorized(msg.SenderID) {
		return
	}
	cmd, ok := command.Parse(msg.Text, d.opts.Prefixes)
	if !ok || cmd.Verb == "" {
		return
	}

	logger := d.logger.With("request_id", uuid.NewString(), "chat", msg.ChatID, "verb", cmd.Verb)
	logger.InfoContext(ctx, "dispatching command", "sender", msg.SenderID)

	c := &command.Context{
		Message: msg,
		Command: cmd,
		Session: sess,
		Strings: d.opts.Strings,
		Logger:  logger,
	}
	start := time.Now()
	reply := d.registry.Dispatch(ctx, c)

	for _, out := range reply {
		if _, err := sess.Send(ctx, msg.ChatID, out); err != nil {
			logger.ErrorContext(ctx, "failed to send reply", "kind", out.Kind.String(), "error", err)
			return
		}
	}
	logger.DebugContext(ctx, "command done", "replies", len(reply), "took", time.Since(start))
}

// Wait blocks until all submitted events are handled.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}

// Close waits for in-flight work and releases the worker pools.
func (d *Dispatcher) Close() {
	d.Wait()
	for _, pool := range []*ants.Pool{d.commands, d.greetings} {
		if err := pool.ReleaseTimeout(releaseTimeout); err != nil {
			d.logger.Warn("worker pool release timed out", "error", err)
		}
	}
}
