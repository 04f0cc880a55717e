// internal/filter/filter.go

// Package filter implements the content filter applied to inbound messages.
package filter

import "strings"

// Matches reports whether the message contains at least one of the filters
// as a substring. The comparison is case-insensitive. An empty filter list
// matches nothing; callers are expected to treat "no filters configured" as
// "keep everything" before calling.
func Matches(messageData string, filters []string) bool {
	messageLower := strings.ToLower(messageData)
	for _, f := range filters {
		if strings.Contains(messageLower, strings.ToLower(f)) {
			return true
		}
	}
	return false
}
