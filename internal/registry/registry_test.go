package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(
		Entry{ID: "A", Render: CapText, GovernedPaths: []string{"metadata.a"}},
		Entry{ID: "A", Render: CapText, GovernedPaths: []string{"metadata.b"}},
	)
	require.ErrorIs(t, err, ErrDuplicateComponent)
}

func TestNew_AggregatesErrors(t *testing.T) {
	_, err := New(
		Entry{ID: "A", Render: CapText},
		Entry{ID: "A", Render: CapText},
		Entry{ID: "B", Render: Capability(99)},
	)
	require.ErrorIs(t, err, ErrDuplicateComponent)
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestNew_CopiesGovernedPaths(t *testing.T) {
	paths := []string{"metadata.title"}
	r, err := New(Entry{ID: "T", Render: CapText, GovernedPaths: paths})
	require.NoError(t, err)

	paths[0] = "changed"
	got, err := r.Governed("T")
	require.NoError(t, err)
	require.Equal(t, []string{"metadata.title"}, got)
}

func TestGoverned_Unknown(t *testing.T) {
	r := MustNew(Entry{ID: "T", Render: CapText})
	_, err := r.Governed("Missing")
	require.ErrorIs(t, err, ErrUnknownComponent)
	require.Contains(t, err.Error(), "Missing")
}

func TestDefault(t *testing.T) {
	r := Default()
	require.Equal(t, len(DefaultEntries()), r.Len())

	paths, err := r.Governed(CombinedTitles)
	require.NoError(t, err)
	require.Equal(t, []string{"metadata.title", "metadata.additional_titles"}, paths)

	e, ok := r.Lookup(Publisher)
	require.True(t, ok)
	require.Equal(t, CapText, e.Render)
	require.Equal(t, []string{"metadata.publisher"}, e.GovernedPaths)

	e, ok = r.Lookup(SubmitActions)
	require.True(t, ok)
	require.Equal(t, CapAction, e.Render)
	require.False(t, e.Render.Editable())
}

func TestExtend_OverridesStockEntry(t *testing.T) {
	r, err := Default().Extend(
		Entry{ID: Publisher, Render: CapSelect, GovernedPaths: []string{"metadata.publisher"}},
		Entry{ID: "FundingNoteComponent", Render: CapTextArea, GovernedPaths: []string{"custom_fields.kcr:funding_note"}},
	)
	require.NoError(t, err)
	require.Equal(t, Default().Len()+1, r.Len())

	e, _ := r.Lookup(Publisher)
	require.Equal(t, CapSelect, e.Render)

	// the receiver is untouched
	e, _ = Default().Lookup(Publisher)
	require.Equal(t, CapText, e.Render)
}

func TestExtend_RejectsDuplicateExtras(t *testing.T) {
	_, err := Default().Extend(
		Entry{ID: "X", Render: CapText},
		Entry{ID: "X", Render: CapText},
	)
	require.ErrorIs(t, err, ErrDuplicateComponent)
}

func TestIDs_Sorted(t *testing.T) {
	r := MustNew(
		Entry{ID: "b", Render: CapText},
		Entry{ID: "a", Render: CapText},
		Entry{ID: "c", Render: CapText},
	)
	require.Equal(t, []ComponentID{"a", "b", "c"}, r.IDs())
}

func TestCapability_RoundTripsThroughYAML(t *testing.T) {
	var e Entry
	err := yaml.Unmarshal([]byte("id: Notes\nrender: textarea\ngoverned_paths: [metadata.notes]\n"), &e)
	require.NoError(t, err)
	require.Equal(t, Entry{ID: "Notes", Render: CapTextArea, GovernedPaths: []string{"metadata.notes"}}, e)

	err = yaml.Unmarshal([]byte("id: Notes\nrender: wysiwyg\n"), &e)
	require.ErrorIs(t, err, ErrUnknownCapability)
}

func TestCapability_String(t *testing.T) {
	require.Equal(t, "multiselect", CapMultiSelect.String())
	require.Equal(t, "Capability(42)", Capability(42).String())

	_, err := ParseCapability("nope")
	require.ErrorIs(t, err, ErrUnknownCapability)
}
