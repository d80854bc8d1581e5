package commands

import (
	"encoding/json"
	"testing"

	"github.com/leapstack-labs/flowdoc/internal/cli/testutil"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect_Catalog(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewInspectCommand(), testConfig("markdown"), path)
	require.NoError(t, err)

	assert.Contains(t, out, "# Flow documentation")
	assert.Contains(t, out, "- **Flow ID**: flow-1")
	assert.Contains(t, out, "- **Resources**: 5")
	assert.Contains(t, out, "- **Reconciliations**: 1")
	assert.Contains(t, out, "All movements")
	testutil.AssertValidMarkdown(t, out)
}

func TestInspect_CatalogJSON(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewInspectCommand(), testConfig("json"), path)
	require.NoError(t, err)

	var manifest docs.Manifest
	require.NoError(t, json.Unmarshal([]byte(out), &manifest))
	assert.Equal(t, 5, manifest.Stats.ResourceCount)
	assert.Equal(t, 2, manifest.Stats.RuleCount)
}

func TestInspect_Resource(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewInspectCommand(), testConfig("markdown"), path, "Bank vs Ledger")
	require.NoError(t, err)

	assert.Contains(t, out, "# Bank vs Ledger")
	assert.Contains(t, out, "- **Type**: RECONCILIATION")
	assert.Contains(t, out, "- **Parents**: Bank statements, Ledger")
	assert.Contains(t, out, "## Reconciliation")
	assert.Contains(t, out, "Positive amounts")
	assert.Contains(t, out, "Exact match")
	testutil.AssertValidMarkdown(t, out)
}

func TestInspect_ResourceJSON(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	out, err := executeCommand(t, NewInspectCommand(), testConfig("json"), path, "2")
	require.NoError(t, err)

	var doc docs.ResourceDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Ledger", doc.Name)
	require.Len(t, doc.Columns, 4)
	assert.Equal(t, "Lookup from Bank statements: [Reference == Ledger ref]", doc.Columns[2].Logic)
}

func TestInspect_UnknownResource(t *testing.T) {
	_, path := testutil.SetupTestFlow(t)

	_, err := executeCommand(t, NewInspectCommand(), testConfig("markdown"), path, "nope")
	require.Error(t, err)
	assert.Equal(t, "resource not found: nope", err.Error())
}
