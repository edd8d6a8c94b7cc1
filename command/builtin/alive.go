package builtin

import (
	"context"
	"errors"

	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/greeting"
)

type Renderer interface {
	Render(ctx context.Context, tpl *greeting.Template, chatID string) greeting.Result
}

// Alive answers with the global alive template, or a default text when none
// is set.
func Alive(store greeting.Store, renderer Renderer) command.Handler {
	return command.NewHandler(command.Info{Verb: "alive"}, func(ctx context.Context, c *command.Context, args string) (command.Reply, error) {
		tpl, err := store.Get(ctx, greeting.GlobalScope, greeting.TypeAlive)
		if errors.Is(err, greeting.ErrNotFound) {
			return c.Reply(model.Text(c.Strings.Get("alive.default"))), nil
		}
		if err != nil {
			return storageFailed(ctx, c, err), nil
		}

		res := renderer.Render(ctx, tpl, c.ChatID())
		if res.Err != nil {
			c.Log().WarnContext(ctx, "failed to render alive message", "error", res.Err)
		}
		return c.Reply(res.Message), nil
	})
}
