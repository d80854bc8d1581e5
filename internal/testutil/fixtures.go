package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleFlowJSON is a small flow export covering every resource variant:
// two plain sources, a reconciliation between them, a union fed by the
// reconciliation and an unknown id, and a resource with neither name nor
// export id.
const SampleFlowJSON = `{
  "_id": "flow-1",
  "version": 3,
  "hash": "abc123",
  "resources": [
    {
      "export_id": 1,
      "name": "Bank statements",
      "resource_type": "native",
      "columns": [
        {"export_id": 11, "label": "Amount", "data_format": "decimal", "position": 1},
        {"export_id": 12, "label": "Date", "data_format": "date", "position": 2},
        {
          "export_id": 13,
          "name": "Reference",
          "data_format": "text",
          "is_hidden": true,
          "transformations": [
            {"operation": "trim", "query": "TRIM(reference)"},
            {"operation": "noop", "query": "N/A"}
          ]
        }
      ],
      "segments": [
        {
          "export_id": 101,
          "name": "Positive amounts",
          "segment_filter_sets": [
            {
              "condition": "AND",
              "segment_filter_rules": [
                {"column_id": 11, "operator": ">", "value": 0},
                {"column_id": 13, "operator": "IS_NOT_NULL"}
              ]
            }
          ]
        }
      ]
    },
    {
      "export_id": 2,
      "name": "Ledger",
      "resource_type": "native",
      "columns": [
        {"export_id": 21, "label": "Ledger amount", "data_format": "decimal"},
        {"export_id": 22, "label": "Ledger date", "data_format": "date"},
        {
          "export_id": 23,
          "label": "Customer",
          "data_format": "text",
          "lookup": {
            "origin_resource_id": 1,
            "lookup_keys": [{"column_a_id": 13, "column_b_id": 24}]
          }
        },
        {"export_id": 24, "label": "Ledger ref", "data_format": "text"}
      ],
      "segments": [
        {"export_id": 201, "name": "All rows", "segment_filter_sets": []}
      ]
    },
    {
      "export_id": 3,
      "name": "Bank vs Ledger",
      "resource_type": "reconciliation",
      "reconciliation": {
        "a_source_settings": {"resource_id": 1},
        "b_source_settings": {"resource_id": 2},
        "segment_a_id": 101,
        "segment_b_id": null,
        "reconciliation_rule_sets": [
          {
            "name": "Primary",
            "position": 1,
            "reconciliation_rules": [
              {"column_a_id": 11, "column_b_id": 21, "operator": "=", "tolerance": 5, "tolerance_unit": "%"},
              {"column_a_id": 12, "column_b_id": 22, "operator": "=", "tolerance": 0}
            ]
          }
        ]
      }
    },
    {
      "export_id": 4,
      "name": "All movements",
      "resource_type": "source_union",
      "source_union": {"union_columns": [{"union_column_id": 41}]},
      "columns": [{"export_id": 42, "label": "Movement", "data_format": "text"}]
    },
    {
      "_id": "abc"
    }
  ],
  "nodes": [
    {"target": 3, "source": [1, 2]},
    {"target": 4, "source": 3},
    {"target": 4, "source": 99},
    {"source": 1}
  ]
}`

// SampleFlowYAML is SampleFlowJSON written as YAML.
const SampleFlowYAML = `_id: flow-1
version: 3
hash: abc123
resources:
  - export_id: 1
    name: Bank statements
    resource_type: native
    columns:
      - {export_id: 11, label: Amount, data_format: decimal, position: 1}
      - {export_id: 12, label: Date, data_format: date, position: 2}
      - export_id: 13
        name: Reference
        data_format: text
        is_hidden: true
        transformations:
          - {operation: trim, query: TRIM(reference)}
          - {operation: noop, query: N/A}
    segments:
      - export_id: 101
        name: Positive amounts
        segment_filter_sets:
          - condition: AND
            segment_filter_rules:
              - {column_id: 11, operator: ">", value: 0}
              - {column_id: 13, operator: IS_NOT_NULL}
  - export_id: 2
    name: Ledger
    resource_type: native
    columns:
      - {export_id: 21, label: Ledger amount, data_format: decimal}
      - {export_id: 22, label: Ledger date, data_format: date}
      - export_id: 23
        label: Customer
        data_format: text
        lookup:
          origin_resource_id: 1
          lookup_keys:
            - {column_a_id: 13, column_b_id: 24}
      - {export_id: 24, label: Ledger ref, data_format: text}
    segments:
      - {export_id: 201, name: All rows, segment_filter_sets: []}
  - export_id: 3
    name: Bank vs Ledger
    resource_type: reconciliation
    reconciliation:
      a_source_settings: {resource_id: 1}
      b_source_settings: {resource_id: 2}
      segment_a_id: 101
      segment_b_id: null
      reconciliation_rule_sets:
        - name: Primary
          position: 1
          reconciliation_rules:
            - {column_a_id: 11, column_b_id: 21, operator: "=", tolerance: 5, tolerance_unit: "%"}
            - {column_a_id: 12, column_b_id: 22, operator: "=", tolerance: 0}
  - export_id: 4
    name: All movements
    resource_type: source_union
    source_union:
      union_columns:
        - {union_column_id: 41}
    columns:
      - {export_id: 42, label: Movement, data_format: text}
  - _id: abc
nodes:
  - {target: 3, source: [1, 2]}
  - {target: 4, source: 3}
  - {target: 4, source: 99}
  - {source: 1}
`

// WriteFile writes content to name inside dir and returns the path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// WriteSampleFlow writes SampleFlowJSON to a temp dir and returns its path.
func WriteSampleFlow(t testing.TB) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), "flow.json", SampleFlowJSON)
}
