package transport

import "strings"

// slugify derives a per-device topic component from a display name:
// lowercase, replace anything outside [a-z0-9_] with '_', collapse runs
// of '_' and trim them from the ends (spec.md §4.6 topic convention).
func slugify(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	collapsed := collapseUnderscores(b.String())
	return strings.Trim(collapsed, "_")
}

func collapseUnderscores(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevUnderscore := false
	for _, r := range s {
		if r == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
