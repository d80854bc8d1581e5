package health_test

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/health"
	"github.com/leapstack-labs/flowdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleContext(t *testing.T) *health.Context {
	t.Helper()
	doc, err := flow.Parse([]byte(testutil.SampleFlowJSON), flow.FormatJSON)
	require.NoError(t, err)
	f, err := flow.Decode(doc, flow.DecodeOptions{})
	require.NoError(t, err)
	return health.Build(f, docs.AssembleOptions{})
}

func messages(diags []health.Diagnostic, ruleID string) []string {
	var out []string
	for _, d := range diags {
		if d.RuleID == ruleID {
			out = append(out, d.Message)
		}
	}
	return out
}

func native(id, name string) flow.Resource {
	return flow.Resource{ID: id, Name: name, Variant: flow.PlainVariant{Tag: "native"}}
}

func TestRegistry(t *testing.T) {
	rules := health.GetAll()
	require.Len(t, rules, 8)
	for i, id := range []string{"FD01", "FD02", "FD03", "FD04", "FD05", "FD06", "FD07", "FD08"} {
		assert.Equal(t, id, rules[i].ID)
		assert.NotEmpty(t, rules[i].Fix, id)
		assert.NotNil(t, rules[i].Check, id)
	}

	rule, ok := health.GetByID("FD07")
	require.True(t, ok)
	assert.Equal(t, "lineage-cycles", rule.Name)
	assert.Equal(t, health.SeverityError, rule.Severity)

	_, ok = health.GetByID("PM01")
	assert.False(t, ok)
}

func TestAnalyze_SampleFlow(t *testing.T) {
	diags := health.NewAnalyzer(nil).Analyze(sampleContext(t))

	assert.Equal(t, []string{"Resource 'abc' has no name"}, messages(diags, "FD03"))
	assert.Equal(t, []string{"Resource 'All movements' has unknown source '99'"}, messages(diags, "FD04"))
	assert.Len(t, diags, 2)

	for _, d := range diags {
		assert.Equal(t, health.SeverityWarning, d.Severity)
	}
}

func TestAnalyze_NilContext(t *testing.T) {
	assert.Nil(t, health.NewAnalyzer(nil).Analyze(nil))
}

func TestAnalyzer_DisableAndOverride(t *testing.T) {
	cfg := health.NewAnalyzerConfig()
	cfg.SeverityOverrides["FD04"] = health.SeverityError
	a := health.NewAnalyzer(cfg)
	a.Disable("FD03")

	diags := a.Analyze(sampleContext(t))
	require.Len(t, diags, 1)
	assert.Equal(t, "FD04", diags[0].RuleID)
	assert.Equal(t, health.SeverityError, diags[0].Severity)
	assert.Len(t, a.Rules(), 7)

	a.Enable("FD03")
	assert.Len(t, a.Analyze(sampleContext(t)), 2)
}

func TestCheck_DecodeErrors(t *testing.T) {
	bad := native("2", "")
	bad.Err = errors.New("columns malformed")
	partial := native("4", "Partial")
	partial.Faults = []error{errors.New("columns[1]: 'is_hidden' cannot parse value as 'bool'")}
	f := &flow.Flow{Resources: []flow.Resource{native("1", "Good"), bad, {Err: errors.New("not an object")}, partial}}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{
		"Resource '2' could not be decoded: columns malformed",
		"Resource #3 could not be decoded: not an object",
		"Resource 'Partial' is partly malformed: columns[1]: 'is_hidden' cannot parse value as 'bool'",
	}, messages(diags, "FD01"))
	assert.Contains(t, messages(diags, "FD03"), "Resource #3 has neither name nor id")
}

func TestCheck_SegmentFilters(t *testing.T) {
	res := native("1", "Filtered")
	res.Segments = []flow.Segment{{ID: "9", Name: "Broken", Err: errors.New("bad tree")}}
	f := &flow.Flow{Resources: []flow.Resource{res}}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{"Segment 'Broken' of 'Filtered': bad tree"}, messages(diags, "FD02"))
}

func TestCheck_UnknownTarget(t *testing.T) {
	f := &flow.Flow{
		Resources: []flow.Resource{native("1", "Source")},
		Edges:     []flow.Edge{{Target: "5", Sources: []string{"1"}}},
	}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{"Flow node targets unknown resource '5'"}, messages(diags, "FD04"))
}

func TestCheck_LookupReferences(t *testing.T) {
	res := native("1", "Orders")
	res.Columns = []flow.Column{
		{ID: "11", Label: "Customer", Lookup: &flow.Lookup{OriginResourceID: "8", Keys: []flow.KeyPair{{ColumnA: "11", ColumnB: "80"}}}},
		{ID: "12", Label: "Region", Lookup: &flow.Lookup{}},
	}
	f := &flow.Flow{Resources: []flow.Resource{res}}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{
		"Column 'Customer' of 'Orders' looks up unknown resource '8'",
		"Column 'Customer' of 'Orders' uses unknown lookup key column '80'",
		"Column 'Region' of 'Orders' has a lookup without origin",
	}, messages(diags, "FD05"))
}

func TestCheck_ReconciliationReferences(t *testing.T) {
	src := native("1", "Bank")
	src.Columns = []flow.Column{{ID: "11", Label: "Amount"}}
	rec := flow.Resource{
		ID:   "3",
		Name: "Match",
		Variant: flow.ReconciliationVariant{Config: flow.Reconciliation{
			SourceA:  "1",
			SourceB:  "77",
			SegmentA: "555",
			RuleSets: []flow.RuleSet{{
				Name:  "Primary",
				Rules: []flow.MatchRule{{ColumnA: "11", ColumnB: "99", Operator: "="}},
			}},
		}},
	}
	f := &flow.Flow{Resources: []flow.Resource{src, rec}}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{
		"Reconciliation 'Match' side A references unknown segment '555'",
		"Reconciliation 'Match' side B references unknown resource '77'",
		"Reconciliation 'Match' rule set 'Primary' references unknown column '99'",
	}, messages(diags, "FD06"))
}

func TestCheck_ReconciliationWithoutSource(t *testing.T) {
	rec := flow.Resource{ID: "3", Name: "Match", Variant: flow.ReconciliationVariant{}}
	f := &flow.Flow{Resources: []flow.Resource{rec}}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{
		"Reconciliation 'Match' side A has no source",
		"Reconciliation 'Match' side B has no source",
	}, messages(diags, "FD06"))
}

func TestCheck_LineageCycles(t *testing.T) {
	f := &flow.Flow{
		Resources: []flow.Resource{native("1", "A"), native("2", "B")},
		Edges: []flow.Edge{
			{Target: "2", Sources: []string{"1"}},
			{Target: "1", Sources: []string{"2"}},
		},
	}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{"Lineage cycle: A -> B -> A"}, messages(diags, "FD07"))
}

func TestCheck_RenamedSheets(t *testing.T) {
	f := &flow.Flow{Resources: []flow.Resource{
		native("1", "Dup"),
		native("2", "dup"),
		native("3", "Index"),
		native("4", "Rates: daily"),
	}}

	diags := health.NewAnalyzer(nil).Analyze(health.Build(f, docs.AssembleOptions{}))
	assert.Equal(t, []string{
		"Resource 'dup' is documented on sheet 'dup(1)'",
		"Resource 'Index' is documented on sheet 'Index(1)'",
		"Resource 'Rates: daily' is documented on sheet 'Rates daily'",
	}, messages(diags, "FD08"))
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		name string
		want health.Severity
		ok   bool
	}{
		{"error", health.SeverityError, true},
		{"warning", health.SeverityWarning, true},
		{"warn", health.SeverityWarning, true},
		{"info", health.SeverityInfo, true},
		{"fatal", health.SeverityInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := health.ParseSeverity(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	text, err := health.SeverityWarning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(text))
}
