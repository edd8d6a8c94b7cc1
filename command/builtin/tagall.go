package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/command"
	"github.com/ryanreadbooks/primon/event"
)

// TagAll mentions every participant of the group. The text is the quoted
// message, the arguments or a roster of all participants, in that order.
func TagAll() command.Handler {
	return command.NewHandler(command.Info{Verb: "tagall", GroupOnly: true}, func(ctx context.Context, c *command.Context, args string) (command.Reply, error) {
		info, err := c.Session.GroupInfo(ctx, c.ChatID())
		if err != nil {
			return nil, fmt.Errorf("failed to get group info: %w", err)
		}

		var text string
		switch {
		case c.IsReply() && c.QuotedText() != "":
			text = c.QuotedText()
		case args != "":
			text = args
		default:
			var sb strings.Builder
			sb.WriteString(c.Strings.Format("tagall.header", info.Subject))
			for _, p := range info.Participants {
				sb.WriteString(c.Strings.Format("tagall.line", event.UserPart(p)))
			}
			text = strings.TrimRight(sb.String(), "\n")
		}

		return c.Reply(model.Text(text).WithMentions(info.Participants)), nil
	})
}
