package draft

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/depositform/internal/tree"
)

// Op is the kind of a diff line.
type Op int

const (
	OpEqual Op = iota
	OpInsert
	OpDelete
)

// Line is one rendered line of a draft diff.
type Line struct {
	Op   Op
	Text string
}

// Diff compares the current values with a stored draft line by line, over
// a YAML rendering of both. Lines only in the draft are inserts.
func Diff(current, stored tree.Tree) ([]Line, error) {
	a, err := render(current)
	if err != nil {
		return nil, fmt.Errorf("render current values: %w", err)
	}
	b, err := render(stored)
	if err != nil {
		return nil, fmt.Errorf("render draft: %w", err)
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out []Line
	for _, d := range diffs {
		op := OpEqual
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = OpInsert
		case diffmatchpatch.DiffDelete:
			op = OpDelete
		}
		for _, text := range strings.SplitAfter(d.Text, "\n") {
			if text == "" {
				continue
			}
			out = append(out, Line{Op: op, Text: strings.TrimSuffix(text, "\n")})
		}
	}
	return out, nil
}

// Changes returns only the inserted and deleted lines.
func Changes(lines []Line) []Line {
	var out []Line
	for _, l := range lines {
		if l.Op != OpEqual {
			out = append(out, l)
		}
	}
	return out
}

// Format renders lines with "+", "-" and " " markers.
func Format(lines []Line) string {
	var sb strings.Builder
	for _, l := range lines {
		switch l.Op {
		case OpInsert:
			sb.WriteString("+ ")
		case OpDelete:
			sb.WriteString("- ")
		default:
			sb.WriteString("  ")
		}
		sb.WriteString(l.Text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func render(t tree.Tree) (string, error) {
	c := tree.Clone(t)
	for _, p := range AutosaveIgnore {
		tree.Delete(c, p)
	}
	if len(c) == 0 {
		return "", nil
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
