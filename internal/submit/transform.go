package submit

import (
	"strings"

	"github.com/zjrosen/depositform/internal/tree"
)

// DefaultPublisher fills an empty publisher before submission.
const DefaultPublisher = "Knowledge Commons"

const orcidPrefix = "https://orcid.org/"

// Transform applies the behind-the-scenes fixes made to the values just
// before they are sent: empty identifiers are dropped, an empty publisher
// gets DefaultPublisher, files are enabled when files were uploaded, and an
// ORCID given as a URL is reduced to the bare identifier. It returns the
// fixed copy and the paths it changed.
func Transform(values tree.Tree, hasFiles bool) (tree.Tree, []string) {
	out := tree.Clone(values)
	if out == nil {
		out = tree.Tree{}
	}
	var changed []string

	if ids, ok := identifiers(out); ok {
		kept := make([]any, 0, len(ids))
		for _, item := range ids {
			m, _ := item.(map[string]any)
			if str(m, "identifier") != "" && str(m, "scheme") != "" {
				kept = append(kept, item)
			}
		}
		if len(kept) != len(ids) {
			tree.Set(out, "metadata.identifiers", kept)
			changed = append(changed, "metadata.identifiers")
		}
	}

	if tree.String(out, "metadata.publisher") == "" {
		tree.Set(out, "metadata.publisher", DefaultPublisher)
		changed = append(changed, "metadata.publisher")
	}

	if enabled, _ := tree.Get(out, "files.enabled"); hasFiles && enabled != true {
		tree.Set(out, "files.enabled", true)
		changed = append(changed, "files.enabled")
	}

	if ids, ok := identifiers(out); ok {
		if fixed, ok := fixORCID(ids); ok {
			tree.Set(out, "metadata.identifiers", fixed)
			changed = appendOnce(changed, "metadata.identifiers")
		}
	}

	return out, changed
}

// fixORCID strips the URL prefix from the first ORCID identifier. The fixed
// entry replaces every ORCID entry and moves to the end of the list.
func fixORCID(ids []any) ([]any, bool) {
	var orcid map[string]any
	for _, item := range ids {
		if m, ok := item.(map[string]any); ok && str(m, "scheme") == "orcid" {
			orcid = m
			break
		}
	}
	if orcid == nil || !strings.HasPrefix(str(orcid, "identifier"), orcidPrefix) {
		return nil, false
	}

	out := make([]any, 0, len(ids))
	for _, item := range ids {
		if m, ok := item.(map[string]any); ok && str(m, "scheme") == "orcid" {
			continue
		}
		out = append(out, item)
	}
	fixed := make(map[string]any, len(orcid))
	for k, v := range orcid {
		fixed[k] = v
	}
	fixed["identifier"] = strings.TrimPrefix(str(orcid, "identifier"), orcidPrefix)
	return append(out, fixed), true
}

// HasFiles reports whether values list any uploaded file entries.
func HasFiles(values tree.Tree) bool {
	v, ok := tree.Get(values, "files.entries")
	if !ok {
		return false
	}
	switch e := v.(type) {
	case map[string]any:
		return len(e) > 0
	case []any:
		return len(e) > 0
	}
	return false
}

func identifiers(values tree.Tree) ([]any, bool) {
	v, ok := tree.Get(values, "metadata.identifiers")
	if !ok {
		return nil, false
	}
	ids, ok := v.([]any)
	return ids, ok && len(ids) > 0
}

func appendOnce(list []string, s string) []string {
	for _, have := range list {
		if have == s {
			return list
		}
	}
	return append(list, s)
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
