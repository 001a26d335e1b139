// Package draft keeps unsaved form values on the local machine so an
// interrupted session can be recovered the next time the record is opened.
package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zjrosen/depositform/internal/tree"
)

// ErrNotFound is returned by Store.Load when no draft is stored for a key.
var ErrNotFound = errors.New("draft not found")

// keyPrefix matches the storage key used by the web deposit form, so a key
// can be shared with that tooling.
const keyPrefix = "rdmDepositFormValues"

// RecoveryIgnore lists the paths that do not make a stored draft worth
// offering. They are set by the server or by the first page on every load.
var RecoveryIgnore = []string{"ui", "metadata.resource_type", "metadata.publication_date", "pids.doi"}

// AutosaveIgnore lists the paths that do not count as user changes.
var AutosaveIgnore = []string{"ui"}

// Key identifies a draft by user and record.
type Key struct {
	UserID   string
	RecordID string
}

// String renders the storage key.
func (k Key) String() string {
	return fmt.Sprintf("%s.%s.%s", keyPrefix, k.UserID, k.RecordID)
}

// Draft is a stored set of form values.
type Draft struct {
	Key     Key
	Values  tree.Tree
	SavedAt time.Time
}

// Store persists drafts.
type Store interface {
	Save(ctx context.Context, d Draft) error
	Load(ctx context.Context, k Key) (Draft, error)
	Delete(ctx context.Context, k Key) error
}

// Differs reports whether a stored draft holds anything the current values
// do not, ignoring RecoveryIgnore.
func Differs(stored, current tree.Tree) bool {
	return !tree.Equal(stored, current, RecoveryIgnore...)
}

// Changed reports whether values moved away from initial, ignoring
// AutosaveIgnore.
func Changed(initial, values tree.Tree) bool {
	return !tree.Equal(initial, values, AutosaveIgnore...)
}
