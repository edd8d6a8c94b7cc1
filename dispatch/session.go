package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/ryanreadbooks/primon/channel"
)

// currentSession resolves profile pictures through whichever session is
// being served. Renderers outlive sessions, sessions come and go.
type currentSession struct {
	sess atomic.Pointer[channel.Session]
}

func (c *currentSession) set(s channel.Session) {
	c.sess.Store(&s)
}

func (c *currentSession) ProfilePictureURL(ctx context.Context, chatID string) (string, error) {
	p := c.sess.Load()
	if p == nil || *p == nil {
		return "", channel.ErrNoProfilePicture
	}
	return (*p).ProfilePictureURL(ctx, chatID)
}
