package tree

import (
	"reflect"
	"strings"
)

// HasPathPrefix reports whether prefix addresses path or one of its
// ancestors. With loose set, the comparison is a raw string prefix, so
// "metadata.title" is also a prefix of "metadata.titles_extra".
func HasPathPrefix(path, prefix string, loose bool) bool {
	if loose {
		return strings.HasPrefix(path, prefix)
	}
	return path == prefix || strings.HasPrefix(path, prefix+Separator)
}

// Related reports whether a and b are on the same branch: either one is an
// ancestor of (or equal to) the other.
func Related(a, b string, loose bool) bool {
	return HasPathPrefix(a, b, loose) || HasPathPrefix(b, a, loose)
}

// MatchesAny reports whether path is related to any entry of set.
func MatchesAny(path string, set []string, loose bool) bool {
	for _, s := range set {
		if Related(path, s, loose) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of t. Only maps and slices are copied; scalars
// are shared.
func Clone(t Tree) Tree {
	if t == nil {
		return Tree{}
	}
	return cloneValue(t).(map[string]any)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = cloneValue(item)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = cloneValue(item)
		}
		return s
	default:
		return v
	}
}

// Equal reports whether a and b are deeply equal, skipping any path listed
// in ignore together with everything beneath it. Numbers compare by value
// regardless of their Go type; a missing key equals an explicit nil.
func Equal(a, b any, ignore ...string) bool {
	return equalAt("", a, b, ignore)
}

func equalAt(path string, a, b any, ignore []string) bool {
	if path != "" && ignored(path, ignore) {
		return true
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return false
		}
		for k, item := range av {
			if !equalAt(Join(path, k), item, bv[k], ignore) {
				return false
			}
		}
		for k, item := range bv {
			if _, seen := av[k]; !seen && !equalAt(Join(path, k), nil, item, ignore) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalAt(path, av[i], bv[i], nil) {
				return false
			}
		}
		return true
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

func ignored(path string, ignore []string) bool {
	for _, p := range ignore {
		if HasPathPrefix(path, p, false) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
