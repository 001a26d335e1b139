package nav

import (
	"net/url"

	"github.com/zjrosen/depositform/internal/layout"
)

// PageParam is the query parameter carrying the current page id.
const PageParam = "depositFormPage"

// Entry is one position in a navigable history.
type Entry struct {
	URL *url.URL
	// Synthetic marks the entry pushed on mount to absorb a single back
	// action.
	Synthetic bool
}

// History is the navigable layer the controller mirrors its position into.
type History interface {
	Current() Entry
	Push(u *url.URL, synthetic bool)
	Back() bool
}

// URLHistory is an in-memory browser-style history. Pushing drops any
// forward entries.
type URLHistory struct {
	entries []Entry
	pos     int
}

var _ History = (*URLHistory)(nil)

// NewURLHistory starts a history at start. A nil start means "/".
func NewURLHistory(start *url.URL) *URLHistory {
	if start == nil {
		start = &url.URL{Path: "/"}
	}
	return &URLHistory{entries: []Entry{{URL: cloneURL(start)}}}
}

// ParseURLHistory starts a history at the parsed raw URL.
func ParseURLHistory(raw string) (*URLHistory, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return NewURLHistory(u), nil
}

// Current returns the entry at the cursor.
func (h *URLHistory) Current() Entry {
	e := h.entries[h.pos]
	return Entry{URL: cloneURL(e.URL), Synthetic: e.Synthetic}
}

// Push appends u after the cursor.
func (h *URLHistory) Push(u *url.URL, synthetic bool) {
	h.entries = append(h.entries[:h.pos+1], Entry{URL: cloneURL(u), Synthetic: synthetic})
	h.pos++
}

// Back moves the cursor one entry back. It reports false at the start.
func (h *URLHistory) Back() bool {
	if h.pos == 0 {
		return false
	}
	h.pos--
	return true
}

// Forward moves the cursor one entry forward. It reports false at the end.
func (h *URLHistory) Forward() bool {
	if h.pos == len(h.entries)-1 {
		return false
	}
	h.pos++
	return true
}

// Len returns the number of entries, forward entries included.
func (h *URLHistory) Len() int {
	return len(h.entries)
}

// PageURL returns a copy of base with the page parameter set to page. Other
// query parameters are kept.
func PageURL(base *url.URL, page layout.PageID) *url.URL {
	u := cloneURL(base)
	q := u.Query()
	q.Set(PageParam, string(page))
	u.RawQuery = q.Encode()
	return u
}

// PageFromURL returns the page parameter of u.
func PageFromURL(u *url.URL) (layout.PageID, bool) {
	if u == nil {
		return "", false
	}
	v := u.Query().Get(PageParam)
	return layout.PageID(v), v != ""
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{Path: "/"}
	}
	c := *u
	if u.User != nil {
		user := *u.User
		c.User = &user
	}
	return &c
}
