package styles

import (
	"fmt"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Truncate shortens s to at most maxWidth terminal cells, ending in an
// ellipsis when it had to cut.
func Truncate(s string, maxWidth int) string {
	if maxWidth < 1 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth, "…")
}

// CharCount counts user-perceived characters, so a combined emoji or an
// accented letter built from two code points counts once.
func CharCount(s string) int {
	return uniseg.GraphemeClusterCount(s)
}

// FormatCounter renders "used/limit", or "" without a limit.
func FormatCounter(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", CharCount(s), limit)
}
