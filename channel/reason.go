package channel

import "fmt"

type ReasonKind int

const (
	ReasonOther ReasonKind = iota
	ReasonBadSession
	ReasonConnectionClosed
	ReasonConnectionLost
	ReasonLoggedOut
	ReasonRestartRequired
	ReasonTimedOut
)

var reasonNames = map[ReasonKind]string{
	ReasonOther:            "other",
	ReasonBadSession:       "bad_session",
	ReasonConnectionClosed: "connection_closed",
	ReasonConnectionLost:   "connection_lost",
	ReasonLoggedOut:        "logged_out",
	ReasonRestartRequired:  "restart_required",
	ReasonTimedOut:         "timed_out",
}

func (k ReasonKind) String() string {
	if name, ok := reasonNames[k]; ok {
		return name
	}
	return fmt.Sprintf("reason(%d)", int(k))
}

// DisconnectReason tells why a session ended. Code is only meaningful for
// ReasonOther and carries the transport code.
type DisconnectReason struct {
	Kind    ReasonKind
	Code    int
	Message string
}

func Reason(kind ReasonKind) DisconnectReason {
	return DisconnectReason{Kind: kind}
}

func OtherReason(code int, message string) DisconnectReason {
	return DisconnectReason{Kind: ReasonOther, Code: code, Message: message}
}

func (r DisconnectReason) String() string {
	s := r.Kind.String()
	if r.Kind == ReasonOther {
		s = fmt.Sprintf("%s(%d)", s, r.Code)
	}
	if r.Message != "" {
		s += ": " + r.Message
	}
	return s
}

// Recoverable reports whether the supervisor restarts after r.
func (r DisconnectReason) Recoverable() bool {
	switch r.Kind {
	case ReasonConnectionClosed, ReasonConnectionLost, ReasonRestartRequired, ReasonTimedOut:
		return true
	default:
		return false
	}
}

// Revoked reports whether r invalidates the stored credentials.
func (r DisconnectReason) Revoked() bool {
	return r.Kind == ReasonBadSession || r.Kind == ReasonLoggedOut
}
