package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/flowdoc/internal/cli/testutil"
	"github.com/leapstack-labs/flowdoc/internal/health"
	flowtest "github.com/leapstack-labs/flowdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cyclicFlow has two resources feeding each other.
const cyclicFlow = `{
  "_id": "loop",
  "resources": [
    {"export_id": 1, "name": "A", "resource_type": "native"},
    {"export_id": 2, "name": "B", "resource_type": "native"}
  ],
  "nodes": [
    {"target": 2, "source": 1},
    {"target": 1, "source": 2}
  ]
}`

func runDoctorJSON(t *testing.T, args ...string) *DoctorOutput {
	t.Helper()
	out, err := executeCommand(t, NewDoctorCommand(), testConfig("json"), args...)
	require.NoError(t, err)

	var result DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	return &result
}

func TestDoctor_JSON(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)
	result := runDoctorJSON(t, path)

	assert.Equal(t, FlowSummary{
		FlowID:          "flow-1",
		Resources:       5,
		FlowNodes:       3,
		Reconciliations: 1,
		DAGDepth:        3,
		RootCount:       3,
		LeafCount:       2,
	}, result.Summary)
	assert.Equal(t, 2, result.IssueCount)
	assert.Equal(t, 90, result.Score)

	ids := make([]string, 0, len(result.HealthChecks))
	for _, check := range result.HealthChecks {
		ids = append(ids, check.RuleID)
	}
	assert.Equal(t, []string{"FD04", "FD05", "FD07", "FD06", "FD01", "FD02", "FD03", "FD08"}, ids,
		"sorted by group, then rule id")

	unknown := result.HealthChecks[0]
	assert.Equal(t, "lineage", unknown.Group)
	assert.Equal(t, "warn", unknown.Status)
	assert.Equal(t, []string{"Resource 'All movements' has unknown source '99'"}, unknown.Details)
	assert.Equal(t, "pass", result.HealthChecks[1].Status)

	require.Len(t, result.Recommendations, 2)
	assert.Contains(t, result.Recommendations[0], "Export the full flow")
	assert.Contains(t, result.Recommendations[1], "Name every resource")
}

func TestDoctor_Markdown(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewDoctorCommand(), testConfig("markdown"), path)
	require.NoError(t, err)

	assert.Contains(t, out, "# Flow Health Report")
	assert.Contains(t, out, "- **Flow**: flow-1")
	assert.Contains(t, out, "### Lineage")
	assert.Contains(t, out, "- **[WARN]** FD03: unnamed-resources (1 issues)")
	assert.Contains(t, out, "  - Resource 'abc' has no name")
	assert.Contains(t, out, "- **[PASS]** FD07: lineage-cycles\n")
	assert.Contains(t, out, "**90/100**")
	assert.Contains(t, out, "## Recommendations")
	testutil.AssertValidMarkdown(t, out)
	testutil.AssertNoANSI(t, out)
}

func TestDoctor_Text(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewDoctorCommand(), testConfig("text"), path)
	require.NoError(t, err)

	assert.Contains(t, out, "Flow Health Report")
	assert.Contains(t, out, "Flow: flow-1 | Resources: 5 | Flow nodes: 3 | Reconciliations: 1")
	assert.Contains(t, out, "! FD04: unknown-node-references (1 issues)")
	assert.Contains(t, out, "✓ FD07: lineage-cycles")
	assert.Contains(t, out, "Health Score: 90/100")
}

func TestDoctor_DisabledRules(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)
	cfg := testConfig("json")
	cfg.Doctor.DisabledRules = []string{" fd03 "}

	out, err := executeCommand(t, NewDoctorCommand(), cfg, path)
	require.NoError(t, err)

	var result DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Len(t, result.HealthChecks, 7)
	assert.Equal(t, 1, result.IssueCount)
	assert.Equal(t, 95, result.Score)
}

func TestDoctor_UnknownRule(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)
	cfg := testConfig("json")
	cfg.Doctor.DisabledRules = []string{"PM01"}

	_, err := executeCommand(t, NewDoctorCommand(), cfg, path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown health rule: PM01")
}

func TestDoctor_Strict(t *testing.T) {
	dir := t.TempDir()
	cyclic := flowtest.WriteFile(t, dir, "loop.json", cyclicFlow)

	out, err := executeCommand(t, NewDoctorCommand(), testConfig("markdown"), cyclic)
	require.NoError(t, err, "without --strict failures are only reported")
	assert.Contains(t, out, "- **[ERROR]** FD07: lineage-cycles (1 issues)")
	assert.Contains(t, out, "  - Lineage cycle: A -> B -> A")

	_, err = executeCommand(t, NewDoctorCommand(), testConfig("markdown"), cyclic, "--strict")
	require.Error(t, err)
	assert.Equal(t, "health check failed: FD07", err.Error())

	_, path := testutil.SetupTestFlow(t)
	_, err = executeCommand(t, NewDoctorCommand(), testConfig("markdown"), path, "--strict")
	assert.NoError(t, err, "warnings do not fail --strict")
}

func TestDoctor_CyclicSummary(t *testing.T) {
	cyclic := flowtest.WriteFile(t, t.TempDir(), "loop.json", cyclicFlow)
	result := runDoctorJSON(t, cyclic)

	assert.Equal(t, 0, result.Summary.DAGDepth)
	assert.Equal(t, 90, result.Score, "one error counts double")
}

func TestDoctor_MissingFile(t *testing.T) {
	_, err := executeCommand(t, NewDoctorCommand(), testConfig("json"), "missing.json")
	assert.Error(t, err)
}

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name      string
		checks    []HealthCheck
		resources int
		want      int
	}{
		{"no checks", nil, 0, 100},
		{"all pass", []HealthCheck{{Status: "pass"}}, 5, 100},
		{"one warning", []HealthCheck{{Status: "warn", IssueCount: 1}}, 5, 95},
		{"one error", []HealthCheck{{Status: "error", IssueCount: 1}}, 5, 90},
		{"larger flow", []HealthCheck{{Status: "warn", IssueCount: 2}}, 20, 94},
		{"very large flow", []HealthCheck{{Status: "error", IssueCount: 3}}, 200, 94},
		{"clamped", []HealthCheck{{Status: "error", IssueCount: 50}}, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks, tt.resources))
		})
	}
}

func TestGenerateRecommendations_Limit(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: "FD03", Status: "warn", IssueCount: 1},
		{RuleID: "FD01", Status: "error", IssueCount: 1},
		{RuleID: "FD02", Status: "error", IssueCount: 1},
		{RuleID: "FD04", Status: "warn", IssueCount: 1},
		{RuleID: "FD05", Status: "warn", IssueCount: 1},
		{RuleID: "FD06", Status: "error", IssueCount: 1},
		{RuleID: "FD08", Status: "pass"},
	}
	recs := generateRecommendations(checks, health.GetAll())
	require.Len(t, recs, 5)
	assert.Contains(t, recs[0], "Re-export the flow", "errors first")
}
