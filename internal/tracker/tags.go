package tracker

import (
	"fmt"
	"strings"
)

// Tags is an append-only list of key:value entries. With always copies, so a
// Tags value handed to a nested scope can never be mutated by it.
type Tags []string

// Tag formats a single key:value entry.
func Tag(key string, value any) string {
	return fmt.Sprintf("%s:%v", key, value)
}

func (t Tags) With(tags ...string) Tags {
	out := make(Tags, len(t), len(t)+len(tags))
	copy(out, t)
	return append(out, tags...)
}

// Lookup returns the value of the last entry for key.
func (t Tags) Lookup(key string) (string, bool) {
	prefix := key + ":"
	for i := len(t) - 1; i >= 0; i-- {
		if strings.HasPrefix(t[i], prefix) {
			return t[i][len(prefix):], true
		}
	}
	return "", false
}
