package pilots

import "strings"

// Key derives the storage key for a display name: lowercase, then drop every
// character outside [a-z0-9]. Distinct names that normalize alike share a key.
// Key("") is "", which callers must reject before touching storage.
func Key(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}
