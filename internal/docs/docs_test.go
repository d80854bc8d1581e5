package docs_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/flowdoc/internal/dag"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/mapper"
	"github.com/leapstack-labs/flowdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleCatalog(t *testing.T) *docs.Catalog {
	t.Helper()
	gen := docs.NewGenerator(docs.Options{
		Logger: testutil.NewTestLogger(t),
		Now:    func() time.Time { return fixedNow },
	})
	catalog, err := gen.FromReader(strings.NewReader(testutil.SampleFlowJSON), flow.FormatJSON)
	require.NoError(t, err)
	return catalog
}

func TestGenerator_Catalog(t *testing.T) {
	catalog := sampleCatalog(t)

	_, err := uuid.Parse(catalog.ReportID)
	assert.NoError(t, err)
	assert.Equal(t, fixedNow, catalog.GeneratedAt)
	assert.Equal(t, docs.FlowInfo{ID: "flow-1", Version: "3", Hash: "abc123"}, catalog.Flow)
	assert.Equal(t, docs.DefaultIndexSheet, catalog.IndexSheet)
	assert.Equal(t, 3, catalog.EdgeCount)

	sheets := make([]string, 0, len(catalog.Resources))
	for _, r := range catalog.Resources {
		sheets = append(sheets, r.Sheet)
	}
	assert.Equal(t, []string{"Bank statements", "Ledger", "Bank vs Ledger", "All movements", "Resource"}, sheets)
}

func TestGenerator_Lineage(t *testing.T) {
	catalog := sampleCatalog(t)

	bank, _ := catalog.Find("1")
	assert.Empty(t, bank.Parents)
	assert.Equal(t, docs.NoParents, bank.ParentsText())
	assert.Equal(t, "Bank vs Ledger", bank.ChildrenText())

	union, ok := catalog.Find("All movements")
	require.True(t, ok)
	assert.Equal(t, []string{"Bank vs Ledger", "99"}, union.Parents)
	assert.Equal(t, docs.NoChildren, union.ChildrenText())
}

func TestGenerator_Columns(t *testing.T) {
	catalog := sampleCatalog(t)

	bank, _ := catalog.Find("Bank statements")
	require.Len(t, bank.Columns, 3)
	assert.Equal(t, docs.ColumnDoc{Label: "Amount", DataType: "decimal", Position: 1}, bank.Columns[0])
	assert.Equal(t, "ƒ TRIM(reference)", bank.Columns[2].Logic)
	assert.True(t, bank.Columns[2].Hidden)

	ledger, _ := catalog.Find("2")
	assert.Equal(t, "Lookup from Bank statements: [Reference == Ledger ref]", ledger.Columns[2].Logic)

	union, _ := catalog.Find("4")
	assert.Len(t, union.Columns, 1, "synthetic union columns are not listed")
}

func TestGenerator_Segments(t *testing.T) {
	catalog := sampleCatalog(t)

	bank, _ := catalog.Find("1")
	assert.Equal(t, []docs.SegmentDoc{
		{Name: "Positive amounts", Logic: "([Amount > 0] AND [Reference is_not_null])"},
	}, bank.Segments)

	ledger, _ := catalog.Find("2")
	assert.Equal(t, []docs.SegmentDoc{{Name: "All rows", Logic: "No filters (matches everything)"}}, ledger.Segments)
}

func TestGenerator_Reconciliation(t *testing.T) {
	catalog := sampleCatalog(t)

	recon, _ := catalog.Find("3")
	require.NotNil(t, recon.Reconciliation)
	assert.Equal(t, "RECONCILIATION", recon.DisplayType())
	assert.Equal(t, []docs.SideDoc{
		{Side: "A", Source: "Bank statements", Segment: "Positive amounts"},
		{Side: "B", Source: "Ledger", Segment: docs.AllSegments},
	}, recon.Reconciliation.Sides)
	assert.Equal(t, []docs.RuleDoc{
		{RuleSet: "Primary", Position: 1, ColumnA: "Amount", Operator: "=", ColumnB: "Ledger amount", Tolerance: "5 %"},
		{RuleSet: "Primary", Position: 1, ColumnA: "Date", Operator: "=", ColumnB: "Ledger date", Tolerance: "Exact match"},
	}, recon.Reconciliation.Rules)

	bank, _ := catalog.Find("1")
	assert.Nil(t, bank.Reconciliation)
}

func TestGenerator_UnnamedResource(t *testing.T) {
	catalog := sampleCatalog(t)

	res, ok := catalog.Find("abc")
	require.True(t, ok)
	assert.Equal(t, mapper.Unnamed, res.DisplayName())
	assert.Equal(t, docs.NotApplicable, res.DisplayType())
	assert.NotNil(t, res.Columns)
	assert.NotNil(t, res.Segments)
}

func TestGenerator_FromFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "flow.yaml", testutil.SampleFlowYAML)

	catalog, err := docs.NewGenerator(docs.Options{IndexSheet: "Contents"}).FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Contents", catalog.IndexSheet)
	assert.Len(t, catalog.Resources, 5)
}

func TestGenerator_FromFileErrors(t *testing.T) {
	gen := docs.NewGenerator(docs.Options{})

	_, err := gen.FromFile(testutil.WriteFile(t, t.TempDir(), "flow.json", "not json"))
	var le *flow.LoadError
	assert.ErrorAs(t, err, &le)

	_, err = gen.FromFile(testutil.WriteFile(t, t.TempDir(), "flow.json", `{"resources": "nope"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode flow")
	assert.ErrorIs(t, err, flow.ErrInvalidDocument)
}

func TestGenerator_OddFlowID(t *testing.T) {
	doc := flow.Document{
		"_id": map[string]any{"$oid": "abc"},
		"resources": []any{
			map[string]any{"export_id": 1, "name": "A"},
			map[string]any{"export_id": 2, "name": "B"},
		},
		"nodes": []any{map[string]any{"target": 2, "source": 1}},
	}

	catalog, err := docs.NewGenerator(docs.Options{Logger: testutil.NewTestLogger(t)}).FromDocument(doc)
	require.NoError(t, err)
	assert.Empty(t, catalog.Flow.ID)
	require.Len(t, catalog.Resources, 2)
	assert.Equal(t, []string{"A"}, catalog.Resources[1].Parents)
}

func TestGenerator_MalformedColumnStaysLocal(t *testing.T) {
	doc := flow.Document{
		"resources": []any{
			map[string]any{
				"export_id": 1,
				"name":      "A",
				"columns": []any{
					map[string]any{"export_id": 10, "label": "Date"},
					map[string]any{"export_id": 11, "label": "Amount", "is_hidden": "maybe"},
				},
			},
			map[string]any{
				"export_id": 2,
				"name":      "B",
				"segments": []any{map[string]any{
					"export_id": 20,
					"name":      "Threes",
					"segment_filter_sets": []any{map[string]any{
						"condition": "AND",
						"segment_filter_rules": []any{
							map[string]any{"column_id": 11, "operator": "=", "value": 3},
						},
					}},
				}},
			},
		},
	}

	catalog, err := docs.NewGenerator(docs.Options{Logger: testutil.NewTestLogger(t)}).FromDocument(doc)
	require.NoError(t, err)

	a := catalog.Resources[0]
	assert.Empty(t, a.Error)
	require.Len(t, a.Columns, 2)
	assert.Equal(t, "Amount", a.Columns[1].Label)
	require.Len(t, a.Warnings, 1)
	assert.Contains(t, a.Warnings[0], "is_hidden")
	assert.True(t, a.HasErrors())

	b := catalog.Resources[1]
	assert.False(t, b.HasErrors())
	assert.Equal(t, "([Amount = 3])", b.Segments[0].Logic)

	assert.Equal(t, 1, docs.GenerateManifest(catalog).Stats.ErrorCount)
}

func TestGenerator_ScalarSourceMatchesList(t *testing.T) {
	resources := []any{
		map[string]any{"export_id": 1, "name": "A"},
		map[string]any{"export_id": 2, "name": "B"},
	}
	gen := docs.NewGenerator(docs.Options{})

	scalar, err := gen.FromDocument(flow.Document{
		"resources": resources,
		"nodes":     []any{map[string]any{"target": 2, "source": 1}},
	})
	require.NoError(t, err)
	list, err := gen.FromDocument(flow.Document{
		"resources": resources,
		"nodes":     []any{map[string]any{"target": 2, "source": []any{1}}},
	})
	require.NoError(t, err)

	for i := range scalar.Resources {
		assert.Equal(t, list.Resources[i].Parents, scalar.Resources[i].Parents)
		assert.Equal(t, list.Resources[i].Children, scalar.Resources[i].Children)
	}
	assert.Equal(t, []string{"A"}, scalar.Resources[1].Parents)
	assert.Equal(t, []string{"B"}, scalar.Resources[0].Children)
}

func TestAssemble_PlaceholderForBrokenResource(t *testing.T) {
	f := &flow.Flow{
		Resources: []flow.Resource{
			{ID: "1", Name: "Good", Variant: flow.PlainVariant{Tag: "native"}},
			{ID: "2", Name: "Bad", Variant: flow.PlainVariant{Tag: "native"}, Err: errors.New("columns malformed")},
		},
		Edges: []flow.Edge{{Target: "2", Sources: []string{"1"}}},
	}
	idx := mapper.Build(f.Resources)
	catalog := docs.Assemble(f, idx, dag.BuildLineage(idx, f.Edges), docs.AssembleOptions{})

	require.Len(t, catalog.Resources, 2)
	bad := catalog.Resources[1]
	assert.Equal(t, "columns malformed", bad.Error)
	assert.Equal(t, "Bad", bad.Sheet)
	assert.Equal(t, []string{"Good"}, bad.Parents)
	assert.Empty(t, bad.Columns)
	assert.Empty(t, bad.Segments)
	assert.Empty(t, catalog.Resources[0].Error)
}

func TestAssemble_SegmentError(t *testing.T) {
	f := &flow.Flow{
		Resources: []flow.Resource{{
			ID:       "1",
			Name:     "Filtered",
			Segments: []flow.Segment{{Name: "Broken", Err: errors.New("bad tree")}},
		}},
	}
	idx := mapper.Build(f.Resources)
	catalog := docs.Assemble(f, idx, dag.BuildLineage(idx, nil), docs.AssembleOptions{Logger: testutil.NewTestLogger(t)})

	seg := catalog.Resources[0].Segments[0]
	assert.Equal(t, "Error in filters", seg.Logic)
	assert.Equal(t, "bad tree", seg.Error)
	assert.Empty(t, catalog.Resources[0].Error, "a segment fault does not fail the resource")
}

func TestCatalog_Find(t *testing.T) {
	catalog := sampleCatalog(t)

	for _, key := range []string{"3", "Bank vs Ledger", "bank vs ledger"} {
		res, ok := catalog.Find(key)
		require.True(t, ok, key)
		assert.Equal(t, "3", res.ID)
	}

	_, ok := catalog.Find("nope")
	assert.False(t, ok)
}

func TestGenerateManifest(t *testing.T) {
	catalog := sampleCatalog(t)
	m := docs.GenerateManifest(catalog)

	assert.Equal(t, catalog.ReportID, m.ReportID)
	assert.Equal(t, docs.Stats{
		ResourceCount:       5,
		EdgeCount:           3,
		ColumnCount:         8,
		SegmentCount:        2,
		ReconciliationCount: 1,
		RuleCount:           2,
		ErrorCount:          0,
	}, m.Stats)

	types := make([]string, 0, len(m.Groups))
	for _, g := range m.Groups {
		types = append(types, g.Type)
	}
	assert.Equal(t, []string{"N/A", "NATIVE", "RECONCILIATION", "SOURCE_UNION"}, types)

	native := m.Groups[1]
	assert.Equal(t, []docs.NavItem{
		{ID: "1", Name: "Bank statements", Sheet: "Bank statements"},
		{ID: "2", Name: "Ledger", Sheet: "Ledger"},
	}, native.Resources)
	assert.Equal(t, mapper.Unnamed, m.Groups[0].Resources[0].Name)
}

func TestDisplayType(t *testing.T) {
	assert.Equal(t, "SOURCE_UNION", docs.DisplayType("source_union"))
	assert.Equal(t, "N/A", docs.DisplayType(""))
}
