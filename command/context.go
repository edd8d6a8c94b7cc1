package command

import (
	"log/slog"

	"github.com/ryanreadbooks/primon/channel"
	"github.com/ryanreadbooks/primon/channel/model"
	"github.com/ryanreadbooks/primon/event"
	"github.com/ryanreadbooks/primon/lang"
)

// Session is the part of the session handlers may use.
type Session interface {
	channel.Sender
	channel.Directory
	channel.MediaDownloader
}

// Context carries what a handler knows about the triggering message.
type Context struct {
	Message event.InboundMessage
	Command Command
	Session Session
	Strings lang.Strings
	Logger  *slog.Logger
}

func (c *Context) ChatID() string   { return c.Message.ChatID }
func (c *Context) SenderID() string { return c.Message.SenderID }
func (c *Context) IsDirect() bool   { return c.Message.Direct }
func (c *Context) IsReply() bool    { return c.Message.IsReply() }

func (c *Context) QuotedText() string {
	return c.Message.QuotedText()
}

// QuotedMedia returns the media of the quoted message, nil when the quoted
// message carries none.
func (c *Context) QuotedMedia() *event.Media {
	if c.Message.Quoted == nil {
		return nil
	}
	return c.Message.Quoted.Media
}

func (c *Context) Trigger() event.Key {
	return c.Message.Key()
}

func (c *Context) Prefix() string {
	return c.Command.Prefix
}

// Log returns the logger of the context, never nil.
func (c *Context) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Text builds a localized text reply. Replies to other people quote the
// triggering message, own triggers are deleted instead.
func (c *Context) Text(key string, args ...any) *model.OutgoingMessage {
	return c.Quote(model.Text(c.Strings.Format(key, args...)))
}

// Quote makes msg quote the trigger unless the trigger is going to be deleted.
func (c *Context) Quote(msg *model.OutgoingMessage) *model.OutgoingMessage {
	if c.Message.FromMe {
		return msg
	}
	return msg.Quoting(c.Trigger(), c.Message.Text)
}

// Reply builds a Reply that first removes the trigger when it was sent from
// the bot's own account.
func (c *Context) Reply(msgs ...*model.OutgoingMessage) Reply {
	reply := make(Reply, 0, len(msgs)+1)
	if c.Message.FromMe {
		reply = append(reply, model.Delete(c.Trigger()))
	}
	for _, m := range msgs {
		if m != nil {
			reply = append(reply, m)
		}
	}
	return reply
}
