// Package presence assigns collaborator colors and keeps them distinct as
// clients join concurrently.
package presence

import (
	"hash/fnv"
	"slices"
)

// Palette is the ordered list colors are claimed from.
var Palette = []string{
	"#ef4444", "#3b82f6", "#22c55e", "#f59e0b",
	"#a855f7", "#ec4899", "#14b8a6", "#f97316",
	"#6366f1", "#84cc16", "#06b6d4", "#e11d48",
}

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Record is what a client publishes under its own slot.
type Record struct {
	User   User    `json:"user"`
	Cursor *Cursor `json:"cursor"`
}

// PickAvailableColor returns the first palette entry not in used. When every
// entry is taken it falls back to a stable hash of userID.
func PickAvailableColor(palette, used []string, userID string) string {
	if len(palette) == 0 {
		return ""
	}
	for _, c := range palette {
		if !slices.Contains(used, c) {
			return c
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}

// usedColors lists the colors of every slot except self.
func usedColors(states map[string]Record, self string) []string {
	out := make([]string, 0, len(states))
	for slot, r := range states {
		if slot != self && r.User.Color != "" {
			out = append(out, r.User.Color)
		}
	}
	return out
}
