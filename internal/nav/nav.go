// Package nav is the wizard's page navigation state machine. Leaving a page
// that still has errors asks for confirmation first; every committed move is
// mirrored into a navigable history.
//
// A Controller is driven from a single event loop and is not safe for
// concurrent use.
package nav

import (
	"errors"
	"fmt"

	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/reconcile"
	"github.com/zjrosen/depositform/internal/resolver"
)

// ErrUnknownPage is returned when a navigation target is not a page.
var ErrUnknownPage = errors.New("unknown page")

// Toucher marks fields touched.
type Toucher interface {
	TouchAll(paths []string)
}

// ErrorView exposes the pages that currently hold errors.
type ErrorView interface {
	PagesWithErrors() reconcile.PageErrors
}

// FieldSource exposes the current page field index.
type FieldSource interface {
	Index() resolver.Index
}

// Focuser moves focus for the confirmation flow.
type Focuser interface {
	FocusConfirm()
	FocusFirstInvalid(page layout.PageID)
}

type noopFocuser struct{}

func (noopFocuser) FocusConfirm() {}
func (noopFocuser) FocusFirstInvalid(layout.PageID) {}

// Outcome is the result of a navigation request.
type Outcome int

const (
	// Committed means the controller moved to the target.
	Committed Outcome = iota
	// Confirming means the move waits for ProceedConfirm or CancelConfirm.
	Confirming
)

func (o Outcome) String() string {
	if o == Confirming {
		return "confirming"
	}
	return "committed"
}

// State is the controller's observable state.
type State struct {
	Current    layout.PageID
	Pending    layout.PageID
	Confirming bool
}

// Controller gates page moves on the pages with errors.
type Controller struct {
	pages   []layout.PageID
	state   State
	mounted bool

	toucher Toucher
	errs    ErrorView
	fields  FieldSource
	focus   Focuser
	history History
}

// Option configures a Controller.
type Option func(*Controller)

// WithFocuser sets the focus collaborator.
func WithFocuser(f Focuser) Option {
	return func(c *Controller) {
		if f != nil {
			c.focus = f
		}
	}
}

// WithHistory sets the navigable history. The default is an in-memory
// URLHistory rooted at "/".
func WithHistory(h History) Option {
	return func(c *Controller) {
		if h != nil {
			c.history = h
		}
	}
}

// New creates a controller over pages. The initial page is the one named by
// the history's current URL when it is a known page, else the first page.
func New(pages []layout.PageID, t Toucher, ev ErrorView, fs FieldSource, opts ...Option) (*Controller, error) {
	if len(pages) == 0 {
		return nil, layout.ErrNoPages
	}
	c := &Controller{
		pages:   append([]layout.PageID(nil), pages...),
		toucher: t,
		errs:    ev,
		fields:  fs,
		focus:   noopFocuser{},
		history: NewURLHistory(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Current = c.pages[0]
	if p, ok := c.pageFromHistory(); ok {
		c.state.Current = p
	}
	return c, nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Current returns the current page.
func (c *Controller) Current() layout.PageID {
	return c.state.Current
}

// History returns the navigable history.
func (c *Controller) History() History {
	return c.history
}

// Next returns the page after the current one.
func (c *Controller) Next() (layout.PageID, bool) {
	i := c.indexOf(c.state.Current)
	if i < 0 || i+1 >= len(c.pages) {
		return "", false
	}
	return c.pages[i+1], true
}

// Previous returns the page before the current one.
func (c *Controller) Previous() (layout.PageID, bool) {
	i := c.indexOf(c.state.Current)
	if i <= 0 {
		return "", false
	}
	return c.pages[i-1], true
}

// Mount re-derives the current page from the history and pushes one
// synthetic entry for it, so a single external back action stays inside the
// form. Mounting twice is a no-op.
func (c *Controller) Mount() {
	if c.mounted {
		return
	}
	c.mounted = true
	if p, ok := c.pageFromHistory(); ok {
		c.state.Current = p
	}
	c.history.Push(PageURL(c.history.Current().URL, c.state.Current), true)
	log.Debug(log.CatNav, "Mounted", "page", c.state.Current)
}

// Unmount drops the synthetic entry when it is still the current one.
func (c *Controller) Unmount() {
	if !c.mounted {
		return
	}
	c.mounted = false
	if c.history.Current().Synthetic {
		c.history.Back()
	}
}

// PopState re-derives the current page after the history moved outside the
// controller. A URL without a known page leaves the current page as is. Any
// pending confirmation is dropped.
func (c *Controller) PopState() {
	if p, ok := c.pageFromHistory(); ok {
		c.state.Current = p
	}
	c.state.Pending = ""
	c.state.Confirming = false
	log.Debug(log.CatNav, "History popped", "page", c.state.Current)
}

// RequestNavigate asks to move to target. Every field of the current page
// is touched first. When the current page has errors and no confirmation is
// open, the move is held until the user decides.
func (c *Controller) RequestNavigate(target layout.PageID) (Outcome, error) {
	if c.indexOf(target) < 0 {
		return Committed, fmt.Errorf("navigate to %q: %w", target, ErrUnknownPage)
	}

	if c.fields != nil && c.toucher != nil {
		c.toucher.TouchAll(c.fields.Index()[c.state.Current])
	}

	if !c.state.Confirming && c.hasErrors(c.state.Current) {
		c.state.Confirming = true
		c.state.Pending = target
		log.Debug(log.CatNav, "Confirming page change", "from", c.state.Current, "to", target)
		c.focus.FocusConfirm()
		return Confirming, nil
	}

	c.Commit(target)
	return Committed, nil
}

// CancelConfirm closes the confirmation and returns focus to the first
// invalid control of the current page.
func (c *Controller) CancelConfirm() {
	c.state.Confirming = false
	c.state.Pending = ""
	c.focus.FocusFirstInvalid(c.state.Current)
}

// ProceedConfirm commits the held move. It reports false when nothing was
// held.
func (c *Controller) ProceedConfirm() bool {
	target := c.state.Pending
	c.state.Confirming = false
	c.state.Pending = ""
	if target == "" {
		return false
	}
	c.Commit(target)
	return true
}

// Commit moves to target and records it in the history.
func (c *Controller) Commit(target layout.PageID) {
	c.state.Current = target
	c.state.Pending = ""
	c.state.Confirming = false
	c.history.Push(PageURL(c.history.Current().URL, target), false)
	log.Debug(log.CatNav, "Page committed", "page", target)
}

func (c *Controller) hasErrors(page layout.PageID) bool {
	if c.errs == nil {
		return false
	}
	return c.errs.PagesWithErrors().Has(page)
}

func (c *Controller) pageFromHistory() (layout.PageID, bool) {
	p, ok := PageFromURL(c.history.Current().URL)
	if !ok || c.indexOf(p) < 0 {
		return "", false
	}
	return p, true
}

func (c *Controller) indexOf(page layout.PageID) int {
	for i, p := range c.pages {
		if p == page {
			return i
		}
	}
	return -1
}
