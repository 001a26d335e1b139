// Package overlay draws modal and toast content on top of an already
// rendered view without clearing the screen.
package overlay

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Position specifies where to place the overlay content.
type Position int

const (
	// Center places the overlay in the center of the viewport.
	Center Position = iota
	// Top places the overlay at the top center of the viewport.
	Top
	// Bottom places the overlay at the bottom center of the viewport.
	Bottom
	// TopRight places the overlay in the top right corner, PadX from the edge.
	TopRight
)

// Config controls overlay rendering behavior.
type Config struct {
	Width    int
	Height   int
	Position Position
	// PadX is the distance from the right edge for TopRight.
	PadX int
	// PadY is the distance from the top or bottom edge.
	PadY int
}

// Place renders fg on top of bg. Both may carry ANSI styling; cuts in the
// background are made with ANSI-aware truncation.
func Place(cfg Config, fg, bg string) string {
	fgLines := strings.Split(fg, "\n")
	bgLines := strings.Split(bg, "\n")
	for len(bgLines) < cfg.Height {
		bgLines = append(bgLines, strings.Repeat(" ", cfg.Width))
	}

	startX, startY := position(cfg, lipgloss.Width(fg), len(fgLines))

	for i, fgLine := range fgLines {
		y := startY + i
		if y >= len(bgLines) {
			break
		}
		bgLine := bgLines[y]

		left := ansi.Truncate(bgLine, startX, "")
		if w := ansi.StringWidth(left); w < startX {
			left += strings.Repeat(" ", startX-w)
		}

		var right string
		if endX := startX + ansi.StringWidth(fgLine); endX < ansi.StringWidth(bgLine) {
			right = ansi.TruncateLeft(bgLine, endX, "")
		}

		bgLines[y] = left + fgLine + right
	}

	return strings.Join(bgLines, "\n")
}

func position(cfg Config, fgWidth, fgHeight int) (x, y int) {
	switch cfg.Position {
	case Top:
		x, y = (cfg.Width-fgWidth)/2, cfg.PadY
	case Bottom:
		x, y = (cfg.Width-fgWidth)/2, cfg.Height-fgHeight-cfg.PadY
	case TopRight:
		x, y = cfg.Width-fgWidth-cfg.PadX, cfg.PadY
	default:
		x, y = (cfg.Width-fgWidth)/2, (cfg.Height-fgHeight)/2
	}
	return max(x, 0), max(y, 0)
}
