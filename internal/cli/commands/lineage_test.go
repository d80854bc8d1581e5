package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/flowdoc/internal/cli/testutil"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	flowtest "github.com/leapstack-labs/flowdoc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineage_Markdown(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewLineageCommand(), testConfig("markdown"), path)
	require.NoError(t, err)

	assert.Contains(t, out, "# Lineage of flow flow-1")
	assert.Contains(t, out, "Bank vs Ledger, 99")
	assert.Contains(t, out, "- **Level 0**: Bank statements, Ledger, Unnamed")
	assert.Contains(t, out, "- **Level 1**: Bank vs Ledger")
	assert.Contains(t, out, "- **Level 2**: All movements")
	assert.Contains(t, out, "Total: 5 resources, 3 links, 3 primary sources, 2 final nodes")
	testutil.AssertValidMarkdown(t, out)
}

func TestLineage_Focus(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewLineageCommand(), testConfig("markdown"), path, "Bank statements")
	require.NoError(t, err)

	assert.Contains(t, out, "## Focus: Bank statements")
	assert.Contains(t, out, "- **Upstream**: "+docs.NoParents)
	assert.Contains(t, out, "- **Downstream**: Bank vs Ledger, All movements")
}

func TestLineage_JSON(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewLineageCommand(), testConfig("json"), path, "3")
	require.NoError(t, err)

	var result LineageOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "flow-1", result.Flow.ID)
	assert.Equal(t, "Bank vs Ledger", result.Focus)
	assert.Equal(t, []string{"Bank statements", "Ledger"}, result.Upstream)
	assert.Equal(t, []string{"All movements"}, result.Downstream)
	assert.Equal(t, LineageStats{Resources: 5, Nodes: 5, Edges: 3, Roots: 3, Leaves: 2}, result.Stats)
	require.Len(t, result.Resources, 5)
	assert.Equal(t, []string{"Bank vs Ledger", "99"}, result.Resources[3].Parents)
	assert.Empty(t, result.Cycle)
}

func TestLineage_Cycle(t *testing.T) {
	path := flowtest.WriteFile(t, t.TempDir(), "loop.json", cyclicFlow)

	out, err := executeCommand(t, NewLineageCommand(), testConfig("json"), path)
	require.NoError(t, err)

	var result LineageOutput
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"A", "B", "A"}, result.Cycle)
	assert.Empty(t, result.Levels)
}

func TestLineage_UnknownResource(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	_, err := executeCommand(t, NewLineageCommand(), testConfig("markdown"), path, "nope")
	require.Error(t, err)
	assert.Equal(t, "resource not found: nope", err.Error())
}
