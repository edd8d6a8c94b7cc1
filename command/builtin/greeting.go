package builtin

import (
	"context"
	"errors"

	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/greeting"
)

const deleteArg = "delete"

// Greeting shows, sets or deletes the per chat template of typ.
func Greeting(typ greeting.Type, store greeting.Store) command.Handler {
	return command.NewHandler(command.Info{Verb: string(typ), GroupOnly: true}, func(ctx context.Context, c *command.Context, args string) (command.Reply, error) {
		name := c.Strings.Get("greeting." + string(typ))

		if args == "" && !c.IsReply() {
			tpl, err := store.Get(ctx, c.ChatID(), typ)
			switch {
			case errors.Is(err, greeting.ErrNotFound):
				return c.Reply(c.Text("greeting.not_set", name)), nil
			case err != nil:
				return storageFailed(ctx, c, err), nil
			}
			return c.Reply(c.Text("greeting.current", name, tpl.Content)), nil
		}

		content := args
		if c.IsReply() && args != deleteArg {
			content = c.QuotedText()
		}

		if content == deleteArg {
			if err := store.Delete(ctx, c.ChatID(), typ); err != nil {
				return storageFailed(ctx, c, err), nil
			}
			return c.Reply(c.Text("greeting.deleted", name)), nil
		}
		if content == "" {
			return c.Reply(c.Text("edit.unsupported")), nil
		}

		tpl := &greeting.Template{Scope: c.ChatID(), Type: typ, Kind: greeting.KindText, Content: content}
		if err := store.Upsert(ctx, tpl); err != nil {
			return storageFailed(ctx, c, err), nil
		}
		return c.Reply(c.Text("greeting.set", name)), nil
	})
}

func storageFailed(ctx context.Context, c *command.Context, err error) command.Reply {
	c.Log().ErrorContext(ctx, "greeting storage failed", "chat", c.ChatID(), "error", err)
	return c.Reply(c.Text("greeting.storage_failed"))
}
