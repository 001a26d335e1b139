package shell

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/submit"
	"github.com/zjrosen/depositform/internal/tracing"
	"github.com/zjrosen/depositform/internal/tree"
)

// autosaveDelay is the quiet period after the last edit before a draft is
// written.
const autosaveDelay = 2 * time.Second

type submitOp string

const (
	opSave    submitOp = "save"
	opPublish submitOp = "publish"
)

type draftCheckedMsg struct {
	draft   draft.Draft
	found   bool
	current tree.Tree
	err     error
}

type draftResolvedMsg struct {
	values   tree.Tree
	restored bool
	err      error
}

type autosaveTickMsg struct{ seq int }

type autosavedMsg struct {
	saved bool
	err   error
}

type submittedMsg struct {
	op      submitOp
	resp    submit.Response
	changed []string
	err     error
}

type draftDiscardedMsg struct{ err error }

type vocabularyMsg struct {
	options []layout.ResourceTypeOption
	err     error
}

type layoutChangedMsg struct{}

type layoutReloadedMsg struct {
	layout *layout.Layout
	err    error
}

func (m Model) checkDraftCmd() tea.Cmd {
	mgr, ctx := m.svc.Drafts, m.ctx
	values := m.svc.Store.Snapshot().Values
	return func() tea.Msg {
		d, found, err := mgr.Check(ctx, values)
		return draftCheckedMsg{draft: d, found: found, current: values, err: err}
	}
}

func (m Model) resolveDraftCmd(restore bool) tea.Cmd {
	mgr, ctx := m.svc.Drafts, m.ctx
	return func() tea.Msg {
		values, restored, err := mgr.Resolve(ctx, restore)
		return draftResolvedMsg{values: values, restored: restored, err: err}
	}
}

func (m Model) autosaveCmd() tea.Cmd {
	mgr, ctx := m.svc.Drafts, m.ctx
	snap := m.svc.Store.Snapshot()
	return func() tea.Msg {
		saved, err := mgr.Autosave(ctx, snap.InitialValues, snap.Values)
		return autosavedMsg{saved: saved, err: err}
	}
}

func (m Model) discardDraftCmd() tea.Cmd {
	mgr, ctx := m.svc.Drafts, m.ctx
	return func() tea.Msg {
		return draftDiscardedMsg{err: mgr.Discard(ctx)}
	}
}

func (m Model) submitCmd(op submitOp) tea.Cmd {
	s, ctx, timeout := m.svc.Submitter, m.ctx, m.svc.Config.Submit.Timeout
	values := m.svc.Store.Snapshot().Values
	payload, changed := submit.Transform(values, submit.HasFiles(values))
	return func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		ctx, requestID := tracing.EnsureRequestID(ctx)
		log.Debug(log.CatSubmit, "Submitting record", "op", string(op), "request_id", requestID, "transformed", len(changed))

		var (
			resp submit.Response
			err  error
		)
		if op == opPublish {
			resp, err = s.Publish(ctx, payload)
		} else {
			resp, err = s.SaveDraft(ctx, payload)
		}
		return submittedMsg{op: op, resp: resp, changed: changed, err: err}
	}
}

func (m Model) fetchVocabularyCmd() tea.Cmd {
	src, ctx := m.svc.Vocabulary, m.ctx
	return func() tea.Msg {
		opts, err := src.ResourceTypes(ctx)
		return vocabularyMsg{options: opts, err: err}
	}
}

func (m Model) waitLayoutCmd() tea.Cmd {
	ch, ctx := m.svc.LayoutChanges, m.ctx
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			return layoutChangedMsg{}
		}
	}
}

func (m Model) reloadLayoutCmd() tea.Cmd {
	load := m.svc.ReloadLayout
	return func() tea.Msg {
		l, err := load()
		return layoutReloadedMsg{layout: l, err: err}
	}
}

func scheduleAutosave(seq int) tea.Cmd {
	return tea.Tick(autosaveDelay, func(time.Time) tea.Msg { return autosaveTickMsg{seq: seq} })
}

// withTimeout bounds a remote call. A zero d leaves it unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
