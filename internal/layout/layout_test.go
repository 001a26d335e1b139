package layout

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/depositform/internal/registry"
)

func TestDefault_IsValid(t *testing.T) {
	l := Default()
	reg, err := l.Registry()
	require.NoError(t, err)
	require.NoError(t, Validate(l, reg))

	require.Equal(t, []PageID{"page-1", "page-2", "page-3", "page-4", "page-5", "page-6"}, l.PageIDs())
}

func TestDefault_LabelModifications(t *testing.T) {
	l := Default()
	require.Equal(t, "Article title", l.Label("textDocument-journalArticle", "metadata.title", "Title"))
	require.Equal(t, "Title", l.Label("textDocument-preprint", "metadata.publisher", "Title"))
	require.Equal(t, "Title", l.Label("no-such-type", "metadata.title", "Title"))
}

func TestDefault_ExtraRequiredFields(t *testing.T) {
	l := Default()
	require.Equal(t, []string{"custom_fields.journal:journal.title"}, l.ExtraRequiredFields["textDocument-journalArticle"])
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("pages:\n  - id: page-1\n    lable: Oops\n"))
	require.Error(t, err)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.yaml")
	doc := `
pages:
  - id: page-1
    label: Only
    fields:
      - component: TitleComponent
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	l, err := Load(path)
	require.NoError(t, err)
	require.Len(t, l.Pages, 1)
	require.Equal(t, registry.Title, l.Pages[0].Fields[0].Component)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_EmptyPathUsesDefault(t *testing.T) {
	l, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().PageIDs(), l.PageIDs())
}

func TestLeaves_FlattensCompositesDepthFirst(t *testing.T) {
	fields := []FieldDescriptor{
		{Component: "A"},
		{Section: "row", Subsections: []FieldDescriptor{
			{Component: "B"},
			{Subsections: []FieldDescriptor{{Component: "C"}}},
		}},
		{Component: "D"},
	}
	var got []registry.ComponentID
	for _, f := range Leaves(fields) {
		got = append(got, f.Component)
	}
	require.Equal(t, []registry.ComponentID{"A", "B", "C", "D"}, got)
}

func testLayout() *Layout {
	return &Layout{
		Pages: []Page{
			{ID: "page-1", Fields: []FieldDescriptor{{Component: registry.Title}}},
			{ID: "page-2", Fields: []FieldDescriptor{{Component: registry.Creators}}},
		},
		FieldsByType: FieldsByType{},
	}
}

func TestValidate(t *testing.T) {
	reg := registry.Default()

	tests := []struct {
		name   string
		mutate func(l *Layout)
		want   error
	}{
		{"no pages", func(l *Layout) { l.Pages = nil }, ErrNoPages},
		{"duplicate page", func(l *Layout) { l.Pages = append(l.Pages, l.Pages[0]) }, ErrDuplicatePage},
		{"unknown page override", func(l *Layout) {
			l.FieldsByType["A"] = map[PageID][]FieldDescriptor{"page-9": {{Component: registry.Title}}}
		}, ErrUnknownPage},
		{"unknown component", func(l *Layout) {
			l.Pages[0].Fields = append(l.Pages[0].Fields, FieldDescriptor{Component: "NopeComponent"})
		}, registry.ErrUnknownComponent},
		{"unknown nested component", func(l *Layout) {
			l.Pages[1].Fields = []FieldDescriptor{{Subsections: []FieldDescriptor{{Component: "NopeComponent"}}}}
		}, registry.ErrUnknownComponent},
		{"unknown alias", func(l *Layout) {
			l.FieldsByType["B"] = map[PageID][]FieldDescriptor{"page-2": {{SameAs: "ghost"}}}
		}, ErrUnknownAlias},
		{"alias chain", func(l *Layout) {
			l.FieldsByType["C"] = map[PageID][]FieldDescriptor{"page-2": {{Component: registry.Publisher}}}
			l.FieldsByType["A"] = map[PageID][]FieldDescriptor{"page-2": {{SameAs: "C"}}}
			l.FieldsByType["B"] = map[PageID][]FieldDescriptor{"page-2": {{SameAs: "A"}}}
		}, ErrAliasChain},
		{"alias not first", func(l *Layout) {
			l.FieldsByType["A"] = map[PageID][]FieldDescriptor{"page-2": {{Component: registry.Title}}}
			l.FieldsByType["B"] = map[PageID][]FieldDescriptor{"page-2": {{Component: registry.Title}, {SameAs: "A"}}}
		}, ErrMisplacedAlias},
		{"alias on default page", func(l *Layout) {
			l.FieldsByType["A"] = map[PageID][]FieldDescriptor{"page-2": {{Component: registry.Title}}}
			l.Pages[0].Fields = []FieldDescriptor{{SameAs: "A"}}
		}, ErrMisplacedAlias},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testLayout()
			tt.mutate(l)
			require.ErrorIs(t, Validate(l, reg), tt.want)
		})
	}
}

func TestValidate_AliasToTypeWithoutPageOverride(t *testing.T) {
	l := testLayout()
	l.ResourceTypes = []ResourceTypeOption{{ID: "A"}}
	l.FieldsByType["B"] = map[PageID][]FieldDescriptor{"page-2": {{SameAs: "A"}}}
	require.NoError(t, Validate(l, registry.Default()))
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	l := testLayout()
	l.Pages[0].Fields = append(l.Pages[0].Fields, FieldDescriptor{Component: "X"})
	l.Pages[1].Fields = append(l.Pages[1].Fields, FieldDescriptor{Component: "Y"})

	err := Validate(l, registry.Default())
	require.ErrorContains(t, err, "X")
	require.ErrorContains(t, err, "Y")
}
