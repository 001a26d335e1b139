// Package tree provides the path-addressed map utilities shared by the form
// engines: flattening nested value, error and touched trees into dot-joined
// field paths, reading and writing leaves by path, ancestor lookup and deep
// equality with ignored paths.
package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tree is a nested mapping of string keys to scalars, slices or sub-trees.
// Values, errors and touched state all share this shape.
type Tree = map[string]any

// Separator joins path segments.
const Separator = "."

// Split breaks a dot-joined path into its segments.
func Split(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, Separator)
}

// Join builds a dot-joined path, skipping empty segments.
func Join(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, Separator)
}

// Leaves flattens t into the dot-joined paths of its leaves, sorted.
//
// Maps are descended. Slices holding maps are descended by index; slices of
// scalars are a single leaf, so a list-valued field is addressed as one path.
// Empty nested maps contribute nothing.
func Leaves(t Tree) []string {
	var out []string
	collect("", t, &out)
	sort.Strings(out)
	return out
}

func collect(prefix string, node map[string]any, out *[]string) {
	for k, v := range node {
		key := Join(prefix, k)
		switch val := v.(type) {
		case map[string]any:
			collect(key, val, out)
		case []any:
			if !hasContainer(val) {
				*out = append(*out, key)
				continue
			}
			for i, item := range val {
				ik := Join(key, strconv.Itoa(i))
				switch iv := item.(type) {
				case nil:
				case map[string]any:
					collect(ik, iv, out)
				default:
					*out = append(*out, ik)
				}
			}
		default:
			*out = append(*out, key)
		}
	}
}

func hasContainer(items []any) bool {
	for _, item := range items {
		if _, ok := item.(map[string]any); ok {
			return true
		}
	}
	return false
}

// Get returns the value stored at path. Numeric segments index into slices.
func Get(t Tree, path string) (any, bool) {
	var cur any = t
	for _, seg := range Split(path) {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// Set stores v at path, creating intermediate maps as needed. A scalar met
// on the way is replaced by a map. Set mutates t and returns it; a nil t is
// allocated.
func Set(t Tree, path string, v any) Tree {
	if t == nil {
		t = Tree{}
	}
	segs := Split(path)
	if len(segs) == 0 {
		return t
	}
	setIn(t, segs, v)
	return t
}

func setIn(node map[string]any, segs []string, v any) {
	key := segs[0]
	if len(segs) == 1 {
		node[key] = v
		return
	}
	switch child := node[key].(type) {
	case map[string]any:
		setIn(child, segs[1:], v)
	case []any:
		i, err := strconv.Atoi(segs[1])
		if err != nil || i < 0 {
			m := Tree{}
			setIn(m, segs[1:], v)
			node[key] = m
			return
		}
		for len(child) <= i {
			child = append(child, nil)
		}
		if len(segs) == 2 {
			child[i] = v
		} else {
			elem, ok := child[i].(map[string]any)
			if !ok {
				elem = Tree{}
			}
			setIn(elem, segs[2:], v)
			child[i] = elem
		}
		node[key] = child
	default:
		m := Tree{}
		setIn(m, segs[1:], v)
		node[key] = m
	}
}

// Delete removes the leaf or subtree at path. Missing paths are ignored.
func Delete(t Tree, path string) {
	segs := Split(path)
	if len(segs) == 0 {
		return
	}
	parent, ok := Get(t, Join(segs[:len(segs)-1]...))
	if !ok {
		return
	}
	if m, ok := parent.(map[string]any); ok {
		delete(m, segs[len(segs)-1])
	}
}

// Ancestors returns the proper ancestors of path, nearest first.
func Ancestors(path string) []string {
	segs := Split(path)
	out := make([]string, 0, len(segs))
	for i := len(segs) - 1; i > 0; i-- {
		out = append(out, Join(segs[:i]...))
	}
	return out
}

// IsTouched reports whether path is marked true in touched, either directly
// or through an ancestor holding true.
func IsTouched(touched Tree, path string) bool {
	if v, ok := Get(touched, path); ok && v == true {
		return true
	}
	return TouchedAncestor(touched, path) != ""
}

// TouchedAncestor returns the nearest ancestor of path marked true, or "".
func TouchedAncestor(touched Tree, path string) string {
	for _, a := range Ancestors(path) {
		if v, ok := Get(touched, a); ok && v == true {
			return a
		}
	}
	return ""
}

// LeafAncestor returns the nearest ancestor of path holding a non-container
// value in t, or "". In an error tree this is an error sitting above path.
func LeafAncestor(t Tree, path string) string {
	for _, a := range Ancestors(path) {
		v, ok := Get(t, a)
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case map[string]any:
		case []any:
			if !hasContainer(val) {
				return a
			}
		default:
			return a
		}
	}
	return ""
}

// HasBelow reports whether t holds any leaf strictly beneath path.
func HasBelow(t Tree, path string) bool {
	v, ok := Get(t, path)
	if !ok {
		return false
	}
	switch node := v.(type) {
	case map[string]any:
		return len(Leaves(node)) > 0
	case []any:
		return hasContainer(node) && len(Leaves(Tree{"_": node})) > 0
	}
	return false
}

// String returns the leaf at path formatted for display, or "".
func String(t Tree, path string) string {
	v, ok := Get(t, path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
