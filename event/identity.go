package event

import "strings"

// NormalizeIdentity maps any jid form of a user ("905551112233",
// "905551112233:12@s.whatsapp.net", ...) to "905551112233@s.whatsapp.net".
// It returns "" when no user part is present.
func NormalizeIdentity(id string) string {
	user, _, _ := strings.Cut(strings.TrimSpace(id), "@")
	user, _, _ = strings.Cut(user, ":")
	if user == "" {
		return ""
	}
	return user + DirectChatSuffix
}

// UserPart returns the part of a jid before the server and device suffixes.
func UserPart(id string) string {
	user, _, _ := strings.Cut(id, "@")
	user, _, _ = strings.Cut(user, ":")
	return user
}

// IsDirectChat reports whether key belongs to a one-to-one conversation.
func IsDirectChat(key Key) bool {
	return key.Participant == "" && strings.HasSuffix(key.ChatID, DirectChatSuffix)
}

func IsGroupChat(chatID string) bool {
	return strings.HasSuffix(chatID, GroupChatSuffix)
}
