package builtin

import (
	"context"
	"strings"

	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/command"
)

// Menu lists the commands of reg, or shows the help page of one of them.
func Menu(reg *command.Registry) command.Handler {
	return command.NewHandler(command.Info{Verb: "menu"}, func(ctx context.Context, c *command.Context, args string) (command.Reply, error) {
		topic := strings.ToLower(strings.TrimSpace(args))
		if topic == "" {
			return c.Reply(model.Text(menuText(c, reg.Verbs()))), nil
		}

		if _, ok := reg.Lookup(topic); ok {
			return c.Reply(c.Quote(model.Text(helpText(c, topic)))), nil
		}
		if best, ok := reg.Suggest(topic); ok {
			return c.Reply(c.Text("cmd.did_you_mean", c.Prefix(), "menu "+best)), nil
		}
		return c.Reply(c.Text("menu.unknown_topic")), nil
	})
}

func menuText(c *command.Context, verbs []string) string {
	var sb strings.Builder
	sb.WriteString(c.Strings.Format("menu.header", c.Prefix()))
	for _, verb := range verbs {
		sb.WriteString("\n")
		sb.WriteString(c.Strings.Format("menu.line", c.Prefix(), verb, c.Strings.Get("help."+verb+".desc")))
	}
	return sb.String()
}

func helpText(c *command.Context, verb string) string {
	return "```" + c.Strings.Format("help."+verb+".usage", c.Prefix()) + "```\n\n" + c.Strings.Get("help."+verb+".desc")
}
