package builtin

import (
	"context"
	"strings"

	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/event"
	"github.com/ryanreadbooks/primon/greeting"
)

// Edit stores the quoted text, image or video as the alive, welcome or
// goodbye template.
func Edit(store greeting.Store) command.Handler {
	return command.NewHandler(command.Info{Verb: "edit"}, func(ctx context.Context, c *command.Context, args string) (command.Reply, error) {
		typ, err := greeting.ParseType(strings.ToLower(strings.TrimSpace(args)))
		if err != nil {
			return c.Reply(c.Text("edit.need_type")), nil
		}

		scope := c.ChatID()
		if typ == greeting.TypeAlive {
			scope = greeting.GlobalScope
		} else if c.IsDirect() {
			return c.Reply(c.Text("cmd.only_group")), nil
		}

		if !c.IsReply() {
			return c.Reply(c.Text("edit.need_reply")), nil
		}

		tpl := &greeting.Template{Scope: scope, Type: typ}
		if m := c.QuotedMedia(); m != nil {
			data, err := c.Session.DownloadMedia(ctx, m)
			if err != nil {
				c.Log().WarnContext(ctx, "failed to download quoted media", "chat", c.ChatID(), "error", err)
				return c.Reply(c.Text("edit.media_failed")), nil
			}
			tpl.Kind = templateKind(m.Kind)
			tpl.Media = data
			tpl.Mimetype = m.Mimetype
			tpl.Content = m.Caption
		} else if text := c.QuotedText(); text != "" {
			tpl.Kind = greeting.KindText
			tpl.Content = text
		} else {
			return c.Reply(c.Text("edit.unsupported")), nil
		}

		if err := store.Upsert(ctx, tpl); err != nil {
			return storageFailed(ctx, c, err), nil
		}
		return c.Reply(c.Text("edit.success", c.Strings.Get("greeting."+string(typ)))), nil
	})
}

func templateKind(k event.MediaKind) greeting.Kind {
	if k == event.MediaVideo {
		return greeting.KindVideo
	}
	return greeting.KindImage
}
