package command

import (
	"context"

	"github.com/ryanreadbooks/primon/channel/model"
)

type Info struct {
	Verb string
	// GroupOnly handlers answer "only in groups" in direct chats.
	GroupOnly bool
}

// Reply is the ordered list of messages a handler wants sent.
type Reply []*model.OutgoingMessage

// Handler is the interface for all commands.
type Handler interface {
	Info() Info

	// Handle runs the command. args is the raw text after the verb.
	Handle(ctx context.Context, c *Context, args string) (Reply, error)
}

type HandlerFunc func(ctx context.Context, c *Context, args string) (Reply, error)

type handler struct {
	info Info
	fn   HandlerFunc
}

func (h *handler) Info() Info {
	return h.info
}

func (h *handler) Handle(ctx context.Context, c *Context, args string) (Reply, error) {
	return h.fn(ctx, c, args)
}

// NewHandler creates a Handler from a function.
func NewHandler(info Info, fn HandlerFunc) Handler {
	return &handler{info: info, fn: fn}
}
