package channel

import "errors"

var (
	ErrLoggedOut         = errors.New("session logged out")
	ErrUnknownDisconnect = errors.New("unknown disconnect reason")
	ErrNoProfilePicture  = errors.New("no profile picture")
	ErrNotGroup          = errors.New("chat is not a group")
)

// DisconnectError is returned by Session.Connect when the session ended
// before the handshake completed.
type DisconnectError struct {
	Reason DisconnectReason
}

func (e *DisconnectError) Error() string {
	return "disconnected during connect: " + e.Reason.String()
}
