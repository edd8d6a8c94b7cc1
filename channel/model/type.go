package model

// Kind is the kind of an outgoing message.
type Kind string

func (k Kind) String() string { return string(k) }

const (
	KindText   Kind = "text"
	KindImage  Kind = "image"
	KindVideo  Kind = "video"
	KindDelete Kind = "delete"
)
