package command

import (
	"strings"

	"github.com/ryanreadbooks/primon/event"
)

// SudoList is the set of identities allowed to run commands. It is read-only
// after construction.
type SudoList struct {
	members map[string]struct{}
}

// NewSudoList builds the list from a comma separated string of phone numbers
// or jids. own is always a member.
func NewSudoList(configured, own string) *SudoList {
	s := &SudoList{members: make(map[string]struct{})}
	for _, entry := range strings.Split(configured, ",") {
		if id := normalizeSudo(entry); id != "" {
			s.members[id] = struct{}{}
		}
	}
	if id := normalizeSudo(own); id != "" {
		s.members[id] = struct{}{}
	}
	return s
}

func normalizeSudo(entry string) string {
	entry = strings.TrimSpace(entry)
	if !strings.Contains(entry, "@") {
		entry = strings.Map(func(r rune) rune {
			switch r {
			case '+', ' ', '-', '(', ')':
				return -1
			}
			return r
		}, entry)
	}
	id := event.NormalizeIdentity(entry)
	if !validIdentity(id) {
		return ""
	}
	return id
}

func validIdentity(id string) bool {
	user := event.UserPart(id)
	if user == "" || strings.Trim(user, "0") == "" {
		return false
	}
	for _, r := range user {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsAuthorized reports whether sender is a member.
func (s *SudoList) IsAuthorized(sender string) bool {
	id := event.NormalizeIdentity(sender)
	if !validIdentity(id) {
		return false
	}
	_, ok := s.members[id]
	return ok
}

func (s *SudoList) Len() int {
	return len(s.members)
}
