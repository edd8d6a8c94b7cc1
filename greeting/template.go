package greeting

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound          = errors.New("greeting template not found")
	ErrAmbiguousTemplate = errors.New("ambiguous greeting template")
)

// GlobalScope is the scope of templates that belong to no chat.
const GlobalScope = ""

type Type string

const (
	TypeAlive   Type = "alive"
	TypeWelcome Type = "welcome"
	TypeGoodbye Type = "goodbye"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeAlive, TypeWelcome, TypeGoodbye:
		return t, nil
	}
	return "", fmt.Errorf("unknown greeting type %q", s)
}

// Kind is the kind of message a template renders to when it has no token.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

type Template struct {
	// Scope is the chat id, GlobalScope for the alive message.
	Scope    string
	Type     Type
	Kind     Kind
	Content  string
	Media    []byte
	Mimetype string

	UpdatedAt time.Time
}

// Store keeps at most one template per (scope, type).
type Store interface {
	// Get returns ErrNotFound when no template exists.
	Get(ctx context.Context, scope string, typ Type) (*Template, error)

	// Upsert creates or replaces the template of (tpl.Scope, tpl.Type).
	Upsert(ctx context.Context, tpl *Template) error

	// Delete removes the template. Deleting an absent template succeeds.
	Delete(ctx context.Context, scope string, typ Type) error
}
