// Package rules renders filter and matching rules of a flow as readable text.
package rules

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/shopspring/decimal"
)

// Canonical texts.
const (
	NoFilters            = "No filters (matches everything)"
	FilterError          = "Error in filters"
	ExactMatch           = "Exact match"
	NotApplicable        = "N/A"
	TransformationMarker = "ƒ "
)

// ColumnLookup resolves column ids to display labels.
type ColumnLookup interface {
	ColumnLabel(id string) (string, bool)
}

// ResourceLookup resolves resource ids to display labels.
type ResourceLookup interface {
	ResourceLabel(id string) string
}

// Result is the outcome of formatting a segment: either text or the reason
// the filter tree could not be rendered.
type Result struct {
	Text string
	Err  error
}

// OK reports whether formatting succeeded.
func (r Result) OK() bool { return r.Err == nil }

// String returns the rendered text, or FilterError when formatting failed.
func (r Result) String() string {
	if r.Err != nil {
		return FilterError
	}
	return r.Text
}

// FormatSegment renders the filter logic of a segment. Rules of a filter set
// are joined with the set's condition and parenthesised; filter sets are
// joined with OR. A segment without renderable rules yields NoFilters.
func FormatSegment(seg flow.Segment, cols ColumnLookup) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Result{Err: fmt.Errorf("malformed filter tree in segment %q: %v", seg.Name, p)}
		}
	}()

	if seg.Err != nil {
		return Result{Err: seg.Err}
	}

	sets := make([]string, 0, len(seg.FilterSets))
	for _, fs := range seg.FilterSets {
		parts := make([]string, 0, len(fs.Rules))
		for _, rule := range fs.Rules {
			parts = append(parts, formatFilterRule(rule, cols))
		}
		if len(parts) == 0 {
			continue
		}
		condition := fs.Condition
		if condition == "" {
			condition = flow.DefaultCondition
		}
		sets = append(sets, "("+strings.Join(parts, " "+condition+" ")+")")
	}

	if len(sets) == 0 {
		return Result{Text: NoFilters}
	}
	return Result{Text: strings.Join(sets, " OR ")}
}

func formatFilterRule(rule flow.FilterRule, cols ColumnLookup) string {
	label := columnLabel(rule.ColumnID, cols)
	op := strings.ToLower(rule.Operator)
	if op == "" {
		op = flow.DefaultOperator
	}
	if IsNullTest(op) {
		return "[" + label + " " + op + "]"
	}
	return "[" + label + " " + op + " " + rule.Value + "]"
}

// IsNullTest reports whether an operator tests for null and takes no value.
func IsNullTest(operator string) bool {
	return strings.Contains(strings.ToLower(operator), "null")
}

// FormatLookup describes a column lookup: the origin resource and its match
// keys. It returns "" when no lookup is configured.
func FormatLookup(lookup *flow.Lookup, resources ResourceLookup, cols ColumnLookup) string {
	if lookup == nil {
		return ""
	}

	text := "Lookup from " + resources.ResourceLabel(lookup.OriginResourceID)
	if len(lookup.Keys) == 0 {
		return text
	}

	keys := make([]string, 0, len(lookup.Keys))
	for _, k := range lookup.Keys {
		keys = append(keys, "["+columnLabel(k.ColumnA, cols)+" == "+columnLabel(k.ColumnB, cols)+"]")
	}
	return text + ": " + strings.Join(keys, " & ")
}

// FormatTolerance renders a matching rule's tolerance as "<value> <unit>" with
// the value as written in the export, or ExactMatch when the tolerance is
// absent or numerically zero.
func FormatTolerance(rule flow.MatchRule) string {
	raw := strings.TrimSpace(rule.Tolerance)
	if raw == "" {
		return ExactMatch
	}

	if d, err := decimal.NewFromString(raw); err == nil && d.IsZero() {
		return ExactMatch
	}

	unit := strings.TrimSpace(rule.ToleranceUnit)
	if unit == "" {
		return raw
	}
	return raw + " " + unit
}

// RuleColumnName resolves a reconciliation rule column. Labels of the form
// "source -> column" keep only the column part.
func RuleColumnName(id string, cols ColumnLookup) string {
	name, ok := cols.ColumnLabel(id)
	if !ok {
		name = id
	}
	if i := strings.LastIndex(name, "->"); i >= 0 {
		name = name[i+len("->"):]
	}
	return strings.TrimSpace(name)
}

// ColumnLogic composes the logic text of a column: the lookup description
// followed by each transformation query. Empty and N/A queries are skipped.
func ColumnLogic(col flow.Column, resources ResourceLookup, cols ColumnLookup) string {
	parts := make([]string, 0, len(col.Transformations)+1)
	if lk := FormatLookup(col.Lookup, resources, cols); lk != "" {
		parts = append(parts, lk)
	}
	for _, t := range col.Transformations {
		q := strings.TrimSpace(t.Query)
		if q == "" || strings.EqualFold(q, NotApplicable) {
			continue
		}
		parts = append(parts, TransformationMarker+q)
	}
	return strings.Join(parts, " | ")
}

func columnLabel(id string, cols ColumnLookup) string {
	if label, ok := cols.ColumnLabel(id); ok && label != "" {
		return label
	}
	return "ID_" + id
}
