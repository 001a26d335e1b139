package shell

import "github.com/zjrosen/depositform/internal/layout"

// focusRequests records the focus moves the nav controller asks for while
// one of its methods runs. The model applies them after the call returns.
type focusRequests struct {
	confirm bool
	invalid layout.PageID
}

func (f *focusRequests) FocusConfirm() { f.confirm = true }

func (f *focusRequests) FocusFirstInvalid(page layout.PageID) { f.invalid = page }

func (f *focusRequests) take() (confirm bool, invalid layout.PageID) {
	confirm, invalid = f.confirm, f.invalid
	f.confirm, f.invalid = false, ""
	return confirm, invalid
}
