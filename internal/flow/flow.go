// Package flow models a Simetrik flow-export document.
//
// A document is loaded into a generic nested map (Load, Parse) and then decoded
// once into the typed entities below (Decode). Every optional field is defaulted
// during decoding so downstream packages never re-check presence.
package flow

// Resource type tags with dedicated handling. Any other tag is carried verbatim
// by PlainVariant.
const (
	TypeReconciliation         = "reconciliation"
	TypeAdvancedReconciliation = "advanced_reconciliation"
	TypeSourceUnion            = "source_union"
)

// Flow is the decoded document.
type Flow struct {
	ID        string
	Version   string
	Hash      string
	Resources []Resource
	Edges     []Edge
}

// Edge is one entry of the document's node list. Sources is always a list,
// whatever shape the document used.
type Edge struct {
	Target  string
	Sources []string
}

// Resource is one data asset of the flow.
type Resource struct {
	ID       string
	Name     string
	Variant  Variant
	Columns  []Column
	Segments []Segment

	// Err is set when the resource could not be decoded. ID and Name are
	// filled on a best-effort basis so the resource can still be listed.
	Err error

	// Faults lists malformed parts of an otherwise decoded resource. The
	// affected columns keep their identity and labels.
	Faults []error
}

// Type returns the resource type tag.
func (r Resource) Type() string {
	if r.Variant == nil {
		return ""
	}
	return r.Variant.Type()
}

// Reconciliation returns the reconciliation configuration for reconciliation
// variants.
func (r Resource) Reconciliation() (*Reconciliation, bool) {
	v, ok := r.Variant.(ReconciliationVariant)
	if !ok {
		return nil, false
	}
	return &v.Config, true
}

// AllColumns returns the declared columns followed by the variant's synthetic
// columns.
func (r Resource) AllColumns() []Column {
	if r.Variant == nil {
		return r.Columns
	}
	extra := r.Variant.ExtraColumns()
	if len(extra) == 0 {
		return r.Columns
	}
	out := make([]Column, 0, len(r.Columns)+len(extra))
	out = append(out, r.Columns...)
	return append(out, extra...)
}

// Variant is the closed set of resource kinds.
type Variant interface {
	// Type returns the resource_type tag as found in the document.
	Type() string
	// ExtraColumns returns columns the variant defines outside the
	// resource's regular column list.
	ExtraColumns() []Column

	variant()
}

// PlainVariant covers every resource kind without kind-specific fields.
type PlainVariant struct {
	Tag string
}

func (v PlainVariant) Type() string           { return v.Tag }
func (v PlainVariant) ExtraColumns() []Column { return nil }
func (PlainVariant) variant()                 {}

// ReconciliationVariant is a (possibly advanced) reconciliation between two
// sides.
type ReconciliationVariant struct {
	Advanced bool
	Config   Reconciliation
}

func (v ReconciliationVariant) Type() string {
	if v.Advanced {
		return TypeAdvancedReconciliation
	}
	return TypeReconciliation
}

func (v ReconciliationVariant) ExtraColumns() []Column { return nil }
func (ReconciliationVariant) variant()                 {}

// UnionVariant is a union of several sources exposing its own union columns.
type UnionVariant struct {
	UnionColumns []string
}

func (v UnionVariant) Type() string { return TypeSourceUnion }

// ExtraColumns returns one synthetic column per union column id.
func (v UnionVariant) ExtraColumns() []Column {
	cols := make([]Column, 0, len(v.UnionColumns))
	for _, id := range v.UnionColumns {
		cols = append(cols, Column{ID: id, Label: "UnionCol_" + id})
	}
	return cols
}

func (UnionVariant) variant() {}

// Column is a field defined on a resource.
type Column struct {
	ID              string
	Label           string
	Name            string
	DataFormat      string
	ColumnType      string
	Hidden          bool
	Position        int
	Transformations []Transformation
	Lookup          *Lookup
}

// DisplayLabel returns the label, falling back to the name.
func (c Column) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// Transformation is one step of a column's transformation chain.
type Transformation struct {
	Operation string
	Query     string
}

// Lookup references columns of another resource used to enrich a column.
type Lookup struct {
	OriginResourceID string
	Keys             []KeyPair
}

// KeyPair is a match key between the current resource and the lookup origin.
type KeyPair struct {
	ColumnA string
	ColumnB string
}

// Segment is a named filter definition attached to a resource.
type Segment struct {
	ID         string
	Name       string
	FilterSets []FilterSet

	// Err is set when the filter tree could not be decoded.
	Err error
}

// FilterSet is a group of rules combined with Condition. Filter sets of a
// segment are OR-combined.
type FilterSet struct {
	Condition string
	Rules     []FilterRule
}

// FilterRule compares a column to a value.
type FilterRule struct {
	ColumnID string
	Operator string
	Value    string
}

// Reconciliation configures the matching between side A and side B.
type Reconciliation struct {
	SourceA  string
	SourceB  string
	SegmentA string
	SegmentB string
	RuleSets []RuleSet
}

// RuleSet is a named, ordered group of matching rules.
type RuleSet struct {
	Name     string
	Position int
	Rules    []MatchRule
}

// MatchRule compares a column of side A with a column of side B.
type MatchRule struct {
	ColumnA       string
	ColumnB       string
	Operator      string
	Tolerance     string
	ToleranceUnit string
}
