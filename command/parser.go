package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Command is a parsed command line.
type Command struct {
	// Prefix is the prefix character the command was written with.
	Prefix string
	Verb   string
	Args   string
}

// Parse reports whether text is a command for the given prefix set. Every
// rune of prefixes is a prefix on its own. Verb and Args are taken verbatim,
// Args has exactly one separating whitespace rune removed.
func Parse(text, prefixes string) (Command, bool) {
	first, size := utf8.DecodeRuneInString(text)
	if size == 0 || first == utf8.RuneError || !strings.ContainsRune(prefixes, first) {
		return Command{}, false
	}

	rest := text[size:]
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		return Command{Prefix: string(first), Verb: rest}, true
	}

	_, sepSize := utf8.DecodeRuneInString(rest[end:])
	return Command{
		Prefix: string(first),
		Verb:   rest[:end],
		Args:   rest[end+sepSize:],
	}, true
}
