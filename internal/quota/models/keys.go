package models

import (
	"strings"
)

// KeyPrefix namespaces every counter key.
const KeyPrefix = "quota"

// CounterKey builds the store key for (policy, client, window). The client
// segment is caller-controlled, so delimiters in it are escaped before use.
//
//	quota:chat:203.0.113.7
//	quota:classifier:203.0.113.7:2025-03-14
func CounterKey(policy PolicyID, clientID string, window Window) string {
	var b strings.Builder
	b.WriteString(KeyPrefix)
	b.WriteByte(':')
	b.WriteString(sanitizeKeySegment(string(policy)))
	b.WriteByte(':')
	b.WriteString(sanitizeKeySegment(clientID))
	if window.ID != "" {
		b.WriteByte(':')
		b.WriteString(window.ID)
	}
	return b.String()
}

// sanitizeKeySegment escapes '_' then ':' so distinct inputs never collide:
// "a:b" becomes "a_cb" and "a_cb" becomes "a__cb".
func sanitizeKeySegment(s string) string {
	s = strings.ReplaceAll(s, "_", "__")
	s = strings.ReplaceAll(s, ":", "_c")
	return s
}
