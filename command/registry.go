package command

import (
	"context"
	"fmt"
	"slices"

	"github.com/ryanreadbooks/primon/lang"
)

// Registry maps verbs to handlers. Register everything before the first
// Dispatch, the registry is read-only afterwards.
type Registry struct {
	handlers map[string]Handler
	verbs    []string
	strings  lang.Strings
}

func NewRegistry(strings lang.Strings) *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		strings:  strings,
	}
}

func (r *Registry) Register(h Handler) error {
	verb := h.Info().Verb
	if verb == "" {
		return fmt.Errorf("handler has no verb")
	}
	if _, ok := r.handlers[verb]; ok {
		return fmt.Errorf("verb %s already registered", verb)
	}
	r.handlers[verb] = h
	r.verbs = append(r.verbs, verb)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(handlers ...Handler) {
	for _, h := range handlers {
		if err := r.Register(h); err != nil {
			panic(err)
		}
	}
}

// Verbs returns the registered verbs in registration order.
func (r *Registry) Verbs() []string {
	return slices.Clone(r.verbs)
}

func (r *Registry) Lookup(verb string) (Handler, bool) {
	h, ok := r.handlers[verb]
	return h, ok
}

// Suggest returns the registered verb closest to verb.
func (r *Registry) Suggest(verb string) (string, bool) {
	return Suggest(verb, r.verbs, SuggestThreshold)
}

// Dispatch runs the handler for c.Command. Unknown verbs get a suggestion or
// an "unknown command" reply, handler errors a short failure text.
func (r *Registry) Dispatch(ctx context.Context, c *Context) Reply {
	verb := c.Command.Verb
	h, ok := r.Lookup(verb)
	if !ok {
		if best, ok := r.Suggest(verb); ok {
			return c.Reply(c.Text("cmd.did_you_mean", c.Prefix(), best))
		}
		return c.Reply(c.Text("cmd.unknown"))
	}

	if h.Info().GroupOnly && c.IsDirect() {
		return c.Reply(c.Text("cmd.only_group"))
	}

	reply, err := h.Handle(ctx, c, c.Command.Args)
	if err != nil {
		c.Log().ErrorContext(ctx, "command failed", "verb", verb, "chat", c.ChatID(), "error", err)
		return c.Reply(c.Text("cmd.failed"))
	}
	return reply
}
