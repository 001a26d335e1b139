// Package shell is the deposit form's terminal front end.
//
// The shell owns no form state of its own. Values, errors and touched flags
// live in the store; page errors come from the reconcile controller; the
// current page comes from the nav controller. The shell renders them and
// turns input into store mutations and navigation requests.
package shell

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/depositform/internal/config"
	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/flags"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/nav"
	"github.com/zjrosen/depositform/internal/registry"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/submit"
)

// VocabularySource lists the selectable resource types.
type VocabularySource interface {
	ResourceTypes(ctx context.Context) ([]layout.ResourceTypeOption, error)
}

// LayoutLoader reads the layout again after it changed on disk.
type LayoutLoader func() (*layout.Layout, error)

// Services holds the collaborators the shell runs against. Layout and Store
// are required; everything else is optional.
type Services struct {
	Layout *layout.Layout
	// Registry defaults to the layout's own registry.
	Registry *registry.Registry
	Store    *store.Store

	// Drafts enables local draft recovery and autosave.
	Drafts *draft.Manager
	// Submitter enables save and publish.
	Submitter submit.Submitter
	// Vocabulary replaces the layout's resource types when the
	// remote-vocabulary flag is on.
	Vocabulary VocabularySource

	// History defaults to an in-memory history rooted at "/".
	History *nav.URLHistory

	Flags  *flags.Registry
	Config config.Config

	// LayoutChanges fires when the layout file was written. Each signal
	// triggers ReloadLayout.
	LayoutChanges <-chan struct{}
	ReloadLayout  LayoutLoader

	Tracer trace.Tracer
}
