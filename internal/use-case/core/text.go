package core

import (
	"strings"
	"unicode/utf8"
)

// Clip trims surrounding space and cuts the text to n runes.
func Clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Mentions returns the user ids whose username follows an @ in text.
// Matching ignores case; each user is listed once.
func Mentions(text string, usernames map[string]string) []string {
	ids := []string{}
	if !strings.Contains(text, "@") {
		return ids
	}

	byName := make(map[string]string, len(usernames))
	for id, name := range usernames {
		byName[strings.ToLower(name)] = id
	}

	seen := make(map[string]bool)
	for _, field := range strings.Fields(text) {
		if !strings.HasPrefix(field, "@") {
			continue
		}
		name := strings.ToLower(strings.TrimRight(field[1:], ".,!?;:"))
		if id, ok := byName[name]; ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
