package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/event"
)

// DegradedLatency is the round trip above which ping warns.
const DegradedLatency = 600 * time.Millisecond

// Ping sends a check message and reports how long the send took. An own
// trigger is deleted before anything else goes out.
func Ping(now func() time.Time) command.Handler {
	if now == nil {
		now = time.Now
	}
	return command.NewHandler(command.Info{Verb: "ping"}, func(ctx context.Context, c *command.Context, args string) (command.Reply, error) {
		if c.Message.FromMe {
			if _, err := c.Session.Send(ctx, c.ChatID(), model.Delete(c.Trigger())); err != nil {
				return nil, fmt.Errorf("failed to delete ping trigger: %w", err)
			}
		}

		check := c.Strings.Get("ping.check")
		start := now()
		id, err := c.Session.Send(ctx, c.ChatID(), model.Text(check))
		if err != nil {
			return nil, fmt.Errorf("failed to send ping message: %w", err)
		}
		latency := now().Sub(start)

		text := c.Strings.Format("ping.result", latency.Milliseconds())
		msg := model.Text(text)
		if latency > DegradedLatency {
			msg.Text += c.Strings.Get("ping.degraded")
			msg.Quoting(event.Key{ChatID: c.ChatID(), ID: id, FromMe: true}, check)
		}
		return command.Reply{msg}, nil
	})
}
