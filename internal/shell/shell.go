package shell

import (
	"context"
	"errors"
	"fmt"
	"slices"

	bubbleshelp "github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/depositform/internal/draft"
	"github.com/zjrosen/depositform/internal/flags"
	"github.com/zjrosen/depositform/internal/keys"
	"github.com/zjrosen/depositform/internal/layout"
	"github.com/zjrosen/depositform/internal/log"
	"github.com/zjrosen/depositform/internal/nav"
	"github.com/zjrosen/depositform/internal/pubsub"
	"github.com/zjrosen/depositform/internal/reconcile"
	"github.com/zjrosen/depositform/internal/registry"
	"github.com/zjrosen/depositform/internal/resolver"
	"github.com/zjrosen/depositform/internal/store"
	"github.com/zjrosen/depositform/internal/submit"
	"github.com/zjrosen/depositform/internal/tree"
	"github.com/zjrosen/depositform/internal/ui/help"
	"github.com/zjrosen/depositform/internal/ui/markdown"
	"github.com/zjrosen/depositform/internal/ui/modal"
	"github.com/zjrosen/depositform/internal/ui/toaster"
	"github.com/zjrosen/depositform/internal/validation"
)

const (
	confirmModalID  = "confirm"
	recoveryModalID = "recovery"

	defaultWidth  = 80
	defaultHeight = 24

	// maxDiffLines caps the recovery modal body.
	maxDiffLines = 12
)

// Model is the form shell.
type Model struct {
	svc      Services
	registry *registry.Registry
	resolver *resolver.Resolver
	rec      *reconcile.Controller
	nav      *nav.Controller
	focus    *focusRequests
	listener *pubsub.ContinuousListener[store.Change]

	ctx    context.Context
	cancel context.CancelFunc

	rt            layout.ResourceType
	resourceTypes []layout.ResourceTypeOption
	page          layout.PageID
	fields        []field
	focused       int

	modal    *modal.Model
	toast    toaster.Model
	help     help.Model
	showHelp bool
	keyHelp  bubbleshelp.Model
	viewport viewport.Model
	markdown *markdown.Renderer

	width       int
	height      int
	autosaveSeq int
	busy        bool
}

var _ tea.Model = Model{}

// New wires the controllers for svc and mounts the form.
func New(svc Services) (Model, error) {
	if svc.Layout == nil {
		return Model{}, errors.New("shell: layout is required")
	}
	if svc.Store == nil {
		return Model{}, errors.New("shell: store is required")
	}
	if svc.Flags == nil {
		svc.Flags = flags.New(nil)
	}
	if svc.History == nil {
		svc.History = nav.NewURLHistory(nil)
	}
	if svc.Tracer == nil {
		svc.Tracer = noop.NewTracerProvider().Tracer("noop")
	}
	reg := svc.Registry
	if reg == nil {
		var err error
		if reg, err = svc.Layout.Registry(); err != nil {
			return Model{}, fmt.Errorf("building registry: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		svc:           svc,
		registry:      reg,
		focus:         &focusRequests{},
		listener:      pubsub.NewContinuousListener(ctx, svc.Store, pubsub.WithMerge(store.MergeChanges)),
		ctx:           ctx,
		cancel:        cancel,
		resourceTypes: svc.Layout.ResourceTypes,
		toast:         toaster.New(),
		help:          help.New(help.FormSections()),
		keyHelp:       bubbleshelp.New(),
		width:         defaultWidth,
		height:        defaultHeight,
	}
	if svc.Config.UI.Width > 0 {
		m.width = svc.Config.UI.Width
	}

	if err := m.wire(svc.Layout); err != nil {
		cancel()
		return Model{}, err
	}
	m.nav.Mount()
	m.sync()

	if svc.Config.UI.ShowHelp {
		md, err := markdown.New(svc.Config.UI.MarkdownStyle, m.contentWidth()-4)
		if err != nil {
			log.ErrorErr(log.CatUI, "Markdown renderer unavailable", err)
		} else {
			m.markdown = md
		}
	}

	m.viewport = viewport.New(m.contentWidth(), m.bodyHeight())
	m = m.rebuildFields(0)
	return m, nil
}

// wire builds the resolver, reconciler and nav controller for l.
func (m *Model) wire(l *layout.Layout) error {
	res := resolver.New(l, m.registry)
	rt := validation.ResourceType(m.svc.Store.Snapshot().Values)
	ix, err := res.Resolve(rt)
	if err != nil {
		return fmt.Errorf("resolving page fields: %w", err)
	}

	rec := reconcile.NewController(m.svc.Store, l.Pages, ix,
		reconcile.WithTracer(m.svc.Tracer),
		reconcile.WithMaxPasses(m.svc.Config.Reconcile.MaxPasses),
		reconcile.WithOptions(reconcile.Options{Matching: m.svc.Config.Matching()}),
	)
	nc, err := nav.New(l.PageIDs(), m.svc.Store, rec, rec,
		nav.WithFocuser(m.focus),
		nav.WithHistory(m.svc.History),
	)
	if err != nil {
		return fmt.Errorf("creating navigation: %w", err)
	}

	m.svc.Layout = l
	m.resolver = res
	m.rec = rec
	m.nav = nc
	m.rt = rt
	return nil
}

// Init starts the store listener and the background checks.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.listener.Listen(), textinput.Blink}
	if m.svc.Drafts != nil && m.svc.Flags.Enabled(flags.FlagDraftRecovery) {
		cmds = append(cmds, m.checkDraftCmd())
	}
	if m.svc.Vocabulary != nil && m.svc.Flags.Enabled(flags.FlagRemoteVocabulary) {
		cmds = append(cmds, m.fetchVocabularyCmd())
	}
	if m.svc.LayoutChanges != nil && m.svc.ReloadLayout != nil {
		cmds = append(cmds, m.waitLayoutCmd())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.update(msg)
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case pubsub.Event[store.Change]:
		m.sync()
		return m, m.listener.Listen()

	case modal.ChoiceMsg:
		return m.handleChoice(msg)

	case toaster.DismissMsg:
		m.toast = m.toast.Update(msg)
		return m, nil

	case draftCheckedMsg:
		return m.handleDraftChecked(msg)

	case draftResolvedMsg:
		return m.handleDraftResolved(msg)

	case autosaveTickMsg:
		if msg.seq != m.autosaveSeq || m.svc.Drafts == nil {
			return m, nil
		}
		return m, m.autosaveCmd()

	case autosavedMsg:
		if msg.err != nil {
			return m.showToast("Could not save local draft", toaster.StyleWarn)
		}
		return m, nil

	case draftDiscardedMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatDraft, "Discarding draft failed", msg.err)
		}
		return m, nil

	case submittedMsg:
		return m.handleSubmitted(msg)

	case vocabularyMsg:
		if msg.err != nil {
			log.ErrorErr(log.CatSubmit, "Resource type vocabulary unavailable", msg.err)
			return m, nil
		}
		if len(msg.options) > 0 {
			m.resourceTypes = msg.options
			m = m.rebuildFields(m.focused)
		}
		return m, nil

	case layoutChangedMsg:
		return m, m.reloadLayoutCmd()

	case layoutReloadedMsg:
		return m.handleLayoutReloaded(msg)
	}

	return m.updateInput(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.modal != nil {
		if key.Matches(msg, keys.Form.Quit) {
			return m.quit()
		}
		md, cmd := m.modal.Update(msg)
		m.modal = &md
		return m, cmd
	}

	if m.showHelp {
		switch {
		case key.Matches(msg, keys.Form.Quit):
			return m.quit()
		case key.Matches(msg, keys.Form.Help), msg.Type == tea.KeyEsc:
			m.showHelp = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Form.Quit):
		return m.quit()
	case key.Matches(msg, keys.Form.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, keys.Form.NextField):
		return m.moveFocus(1), nil
	case key.Matches(msg, keys.Form.PrevField):
		return m.moveFocus(-1), nil
	case key.Matches(msg, keys.Form.NextPage):
		if next, ok := m.nav.Next(); ok {
			return m.navigate(next)
		}
		return m, nil
	case key.Matches(msg, keys.Form.PrevPage):
		if prev, ok := m.nav.Previous(); ok {
			return m.navigate(prev)
		}
		return m, nil
	case key.Matches(msg, keys.Form.HistBack):
		return m.historyBack(), nil
	case key.Matches(msg, keys.Form.Save):
		return m.submit(opSave)
	case key.Matches(msg, keys.Form.Publish):
		return m.submit(opPublish)
	}

	if f, ok := m.focusedField(); ok && f.isSelect() {
		switch {
		case key.Matches(msg, keys.Form.NextOption):
			return m.cycleOption(1)
		case key.Matches(msg, keys.Form.PrevOption):
			return m.cycleOption(-1)
		}
	}
	return m.updateInput(msg)
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if m.modal != nil {
		md, cmd := m.modal.Update(msg)
		m.modal = &md
		return m, cmd
	}
	if msg.Action == tea.MouseActionPress && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	for _, p := range m.svc.Layout.Pages {
		if z := zone.Get(stepZone(p.ID)); z != nil && z.InBounds(msg) {
			if p.ID == m.nav.Current() {
				return m, nil
			}
			return m.navigate(p.ID)
		}
	}
	if z := zone.Get(zoneBack); z != nil && z.InBounds(msg) {
		if prev, ok := m.nav.Previous(); ok {
			return m.navigate(prev)
		}
	}
	if z := zone.Get(zoneContinue); z != nil && z.InBounds(msg) {
		if next, ok := m.nav.Next(); ok {
			return m.navigate(next)
		}
	}
	for i := range m.fields {
		if z := zone.Get(fieldZone(i)); z != nil && z.InBounds(msg) {
			return m.setFocus(i, true), nil
		}
	}
	return m, nil
}

// updateInput forwards msg to the focused text input and writes a changed
// value into the store.
func (m Model) updateInput(msg tea.Msg) (Model, tea.Cmd) {
	f, ok := m.focusedField()
	if !ok || !f.isInput() {
		return m, nil
	}
	before := f.input.Value()
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	m.fields[m.focused] = f
	if f.input.Value() == before {
		return m, cmd
	}
	m, save := m.setValue(f.path(), f.input.Value())
	return m, tea.Batch(cmd, save)
}

func (m Model) cycleOption(delta int) (Model, tea.Cmd) {
	f, _ := m.focusedField()
	v, ok := f.cycle(m.svc.Store.Snapshot().Values, delta)
	if !ok {
		return m, nil
	}
	return m.setValue(f.path(), v)
}

// setValue writes v at path, re-resolves the page index when the resource
// type moved and schedules an autosave.
func (m Model) setValue(path string, v any) (Model, tea.Cmd) {
	m.svc.Store.SetFieldValue(path, v)
	if path == validation.TypePath {
		m = m.resourceTypeChanged()
	}
	m.sync()

	if m.svc.Drafts == nil || !m.svc.Flags.Enabled(flags.FlagAutosave) {
		return m, nil
	}
	m.autosaveSeq++
	return m, scheduleAutosave(m.autosaveSeq)
}

// resourceTypeChanged swaps in the page index for the current resource type
// and rebuilds the page when it differs from the one in use.
func (m Model) resourceTypeChanged() Model {
	rt := validation.ResourceType(m.svc.Store.Snapshot().Values)
	if rt == m.rt {
		return m
	}
	ix, err := m.resolver.Resolve(rt)
	if err != nil {
		log.ErrorErr(log.CatResolve, "Resolving page fields failed", err, "resource_type", rt)
		return m
	}
	log.Info(log.CatResolve, "Resource type changed", "from", m.rt, "to", rt)
	m.rt = rt
	m.rec.SetIndex(ix)
	return m.rebuildFields(m.focused)
}

func (m Model) sync() {
	m.rec.Sync(m.ctx)
}

// navigate asks the nav controller to move to target and applies the focus
// moves it requested.
func (m Model) navigate(target layout.PageID) (Model, tea.Cmd) {
	if _, err := m.nav.RequestNavigate(target); err != nil {
		log.ErrorErr(log.CatNav, "Navigation rejected", err)
		return m.showToast(err.Error(), toaster.StyleError)
	}
	m.sync()
	return m.afterNav(), nil
}

// afterNav follows the nav controller: it opens the confirmation, moves
// focus to an invalid field, or rebuilds the page after a move.
func (m Model) afterNav() Model {
	confirm, invalid := m.focus.take()
	if m.nav.Current() != m.page {
		m = m.rebuildFields(0)
		m.viewport.GotoTop()
	}
	if confirm {
		md := modal.New(modal.Config{
			ID:             confirmModalID,
			Title:          "Unresolved problems",
			Message:        "There are problems with the information you've entered. Do you want to fix them before moving on?",
			PrimaryLabel:   "Fix the problems",
			SecondaryLabel: "Continue anyway",
		})
		md.SetSize(m.width, m.height)
		m.modal = &md
	}
	if invalid != "" && invalid == m.page {
		m = m.focusFirstInvalid(invalid)
	}
	return m
}

func (m Model) focusFirstInvalid(page layout.PageID) Model {
	invalid := m.rec.PagesWithErrors()[page]
	for i, f := range m.fields {
		for _, p := range f.paths {
			if slices.Contains(invalid, p) {
				return m.setFocus(i, false)
			}
		}
	}
	return m
}

// historyBack moves the history one entry back and lets the nav controller
// follow it.
func (m Model) historyBack() Model {
	if !m.svc.History.Back() {
		return m
	}
	m.nav.PopState()
	m.sync()
	return m.afterNav()
}

func (m Model) handleChoice(msg modal.ChoiceMsg) (Model, tea.Cmd) {
	m.modal = nil
	switch msg.ID {
	case confirmModalID:
		if msg.Choice == modal.ChoiceSecondary {
			m.nav.ProceedConfirm()
		} else {
			m.nav.CancelConfirm()
		}
		m.sync()
		return m.afterNav(), nil

	case recoveryModalID:
		return m, m.resolveDraftCmd(msg.Choice == modal.ChoicePrimary)
	}
	return m, nil
}

func (m Model) handleDraftChecked(msg draftCheckedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		log.ErrorErr(log.CatDraft, "Draft check failed", msg.err)
		return m.showToast("Could not read local draft", toaster.StyleWarn)
	}
	if !msg.found {
		return m, nil
	}

	body := ""
	if lines, err := draft.Diff(msg.current, msg.draft.Values); err != nil {
		log.ErrorErr(log.CatDraft, "Draft diff failed", err)
	} else {
		body = truncateLines(draft.Format(draft.Changes(lines)), maxDiffLines)
	}

	md := modal.New(modal.Config{
		ID:             recoveryModalID,
		Title:          "Unsaved changes",
		Message:        fmt.Sprintf("You have unsaved changes from %s. Do you want to recover them?", msg.draft.SavedAt.Format("Jan 2 15:04")),
		Body:           body,
		PrimaryLabel:   "Recover",
		SecondaryLabel: "Discard",
		Width:          60,
	})
	md.SetSize(m.width, m.height)
	m.modal = &md
	return m, nil
}

func (m Model) handleDraftResolved(msg draftResolvedMsg) (Model, tea.Cmd) {
	if msg.err != nil {
		log.ErrorErr(log.CatDraft, "Draft resolve failed", msg.err)
		return m.showToast("Could not clear local draft", toaster.StyleWarn)
	}
	if !msg.restored {
		return m, nil
	}
	m.svc.Store.ReplaceDraft(msg.values)
	m = m.resourceTypeChanged()
	m.sync()
	m = m.rebuildFields(m.focused)
	return m.showToast("Recovered unsaved changes", toaster.StyleSuccess)
}

func (m Model) submit(op submitOp) (Model, tea.Cmd) {
	if m.svc.Submitter == nil {
		return m.showToast("No repository configured", toaster.StyleWarn)
	}
	if m.busy {
		return m, nil
	}
	m.busy = true
	return m, m.submitCmd(op)
}

func (m Model) handleSubmitted(msg submittedMsg) (Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		if errors.Is(msg.err, submit.ErrNoRecordID) {
			return m.showToast("Save the draft before publishing", toaster.StyleWarn)
		}
		log.ErrorErr(log.CatSubmit, "Submit failed", msg.err, "op", string(msg.op))
		return m.showToast("Save failed: "+msg.err.Error(), toaster.StyleError)
	}

	m.svc.Store.ApplyServerResponse(msg.resp.Values, msg.resp.Errors)
	m = m.resourceTypeChanged()
	m.sync()
	m = m.rebuildFields(m.focused)

	var cmds []tea.Cmd
	if m.svc.Drafts != nil && msg.resp.Values != nil {
		cmds = append(cmds, m.discardDraftCmd())
	}

	var toastCmd tea.Cmd
	switch n := len(tree.Leaves(msg.resp.Errors)); {
	case n == 0 && msg.op == opPublish:
		m, toastCmd = m.showToast("Published", toaster.StyleSuccess)
	case n == 0:
		m, toastCmd = m.showToast("Draft saved", toaster.StyleSuccess)
	case msg.op == opPublish:
		m, toastCmd = m.showToast("Not published: "+problems(n), toaster.StyleError)
	default:
		m, toastCmd = m.showToast("Draft saved with "+problems(n), toaster.StyleWarn)
	}
	return m, tea.Batch(append(cmds, toastCmd)...)
}

func (m Model) handleLayoutReloaded(msg layoutReloadedMsg) (Model, tea.Cmd) {
	next := m.waitLayoutCmd()
	if msg.err != nil {
		log.ErrorErr(log.CatLayout, "Layout reload failed", msg.err)
		m, cmd := m.showToast("Layout not reloaded: "+msg.err.Error(), toaster.StyleError)
		return m, tea.Batch(cmd, next)
	}

	reg, err := msg.layout.Registry()
	if err == nil {
		err = layout.Validate(msg.layout, reg)
	}
	if err != nil {
		log.ErrorErr(log.CatLayout, "Reloaded layout is invalid", err)
		m, cmd := m.showToast("Layout not reloaded: "+err.Error(), toaster.StyleError)
		return m, tea.Batch(cmd, next)
	}

	prevRegistry := m.registry
	m.registry = reg
	if err := m.wire(msg.layout); err != nil {
		m.registry = prevRegistry
		log.ErrorErr(log.CatLayout, "Layout reload failed", err)
		m, cmd := m.showToast("Layout not reloaded: "+err.Error(), toaster.StyleError)
		return m, tea.Batch(cmd, next)
	}
	if len(m.svc.Layout.ResourceTypes) > 0 && !m.svc.Flags.Enabled(flags.FlagRemoteVocabulary) {
		m.resourceTypes = m.svc.Layout.ResourceTypes
	}
	m.sync()
	m = m.rebuildFields(0)
	log.Info(log.CatLayout, "Layout reloaded", "pages", len(m.svc.Layout.Pages))
	m, cmd := m.showToast("Layout reloaded", toaster.StyleInfo)
	return m, tea.Batch(cmd, next)
}

func problems(n int) string {
	if n == 1 {
		return "1 problem"
	}
	return fmt.Sprintf("%d problems", n)
}

func (m Model) quit() (Model, tea.Cmd) {
	m.nav.Unmount()
	m.cancel()
	return m, tea.Quit
}

func (m Model) showToast(msg string, style toaster.Style) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.toast, cmd = m.toast.Show(msg, style, toaster.DefaultDuration)
	return m, cmd
}

func (m Model) resize(width, height int) Model {
	m.width = width
	m.height = height
	if m.svc.Config.UI.Width > 0 {
		m.width = min(width, m.svc.Config.UI.Width)
	}
	m.viewport.Width = m.contentWidth()
	m.viewport.Height = m.bodyHeight()
	m.help = m.help.SetSize(width, height)
	m.keyHelp.Width = m.contentWidth()
	if m.modal != nil {
		m.modal.SetSize(width, height)
	}
	return m.rebuildFields(m.focused)
}

// rebuildFields lays out the current page again, keeping focus at index
// focus where possible.
func (m Model) rebuildFields(focus int) Model {
	m.page = m.nav.Current()
	page, _ := m.svc.Layout.Page(m.page)
	descs, err := m.resolver.ActiveLayout(m.rt, m.page)
	if err != nil {
		log.ErrorErr(log.CatResolve, "Active layout failed", err, "page", m.page)
		descs = page.Fields
	}
	values := m.svc.Store.Snapshot().Values
	m.fields = buildFields(m.svc.Layout, m.registry, m.rt, descs, m.resourceTypes, values, m.contentWidth())
	m.focused = -1
	if len(m.fields) == 0 {
		return m
	}
	return m.setFocus(min(max(focus, 0), len(m.fields)-1), false)
}

// moveFocus steps to the next focusable field, touching the one it leaves.
func (m Model) moveFocus(delta int) Model {
	n := len(m.fields)
	if n == 0 {
		return m
	}
	i := m.focused
	for range n {
		i = (i + delta + n) % n
		if m.fields[i].focusable() {
			return m.setFocus(i, true)
		}
	}
	return m
}

// setFocus focuses field i. With blur the previously focused field is
// marked touched.
func (m Model) setFocus(i int, blur bool) Model {
	if i < 0 || i >= len(m.fields) {
		return m
	}
	if prev, ok := m.focusedField(); ok && prev.isInput() {
		prev.input.Blur()
		m.fields[m.focused] = prev
	}
	if prev, ok := m.focusedField(); ok && blur && i != m.focused && prev.path() != "" {
		m.svc.Store.SetFieldTouched(prev.path(), true)
		m.sync()
	}

	m.focused = i
	f := m.fields[i]
	if f.isInput() {
		f.input.Focus()
		m.fields[i] = f
	}
	return m
}

func (m Model) focusedField() (field, bool) {
	if m.focused < 0 || m.focused >= len(m.fields) {
		return field{}, false
	}
	return m.fields[m.focused], true
}

// Close stops the listeners started by Init.
func (m Model) Close() {
	m.cancel()
}

// Page returns the current page.
func (m Model) Page() layout.PageID {
	return m.nav.Current()
}

// Confirming reports whether the page change confirmation is open.
func (m Model) Confirming() bool {
	return m.modal != nil && m.modal.ID() == confirmModalID
}
