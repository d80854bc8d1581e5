// Package mapper builds the id lookup tables shared by every stage of report
// generation: resource names, column labels and segment names.
package mapper

import "github.com/leapstack-labs/flowdoc/internal/flow"

// Unnamed labels a resource that has no name.
const Unnamed = "Unnamed"

// Index holds the read-only lookups built from a flow's resources.
// It is never mutated after Build returns.
type Index struct {
	resources map[string]string
	columns   map[string]string
	segments  map[string]string
	order     []string
}

// Build indexes the given resources. Resources without an id are skipped.
// Columns defined by a variant outside the regular column list (such as
// union columns) share the column lookup with regular columns.
func Build(resources []flow.Resource) *Index {
	idx := &Index{
		resources: make(map[string]string, len(resources)),
		columns:   make(map[string]string),
		segments:  make(map[string]string),
	}

	for _, res := range resources {
		if res.ID != "" {
			if _, seen := idx.resources[res.ID]; !seen {
				idx.order = append(idx.order, res.ID)
			}
			idx.resources[res.ID] = res.Name
		}

		for _, col := range res.AllColumns() {
			if col.ID != "" {
				idx.columns[col.ID] = col.DisplayLabel()
			}
		}

		for _, seg := range res.Segments {
			if seg.ID != "" {
				idx.segments[seg.ID] = seg.Name
			}
		}
	}

	return idx
}

// HasResource reports whether id belongs to a resource of the flow.
func (i *Index) HasResource(id string) bool {
	_, ok := i.resources[id]
	return ok
}

// ResourceIDs returns the known resource ids in document order.
func (i *Index) ResourceIDs() []string {
	out := make([]string, len(i.order))
	copy(out, i.order)
	return out
}

// ResourceName returns the name of the resource with the given id.
func (i *Index) ResourceName(id string) (string, bool) {
	name, ok := i.resources[id]
	return name, ok
}

// ResourceNameOr returns the resource name, or fallback when the id is unknown.
func (i *Index) ResourceNameOr(id, fallback string) string {
	if name, ok := i.resources[id]; ok {
		return name
	}
	return fallback
}

// ResourceLabel returns the label used when one resource is referenced from
// another: the name, Unnamed for a known resource without a name, or the raw
// id for references outside the flow.
func (i *Index) ResourceLabel(id string) string {
	name, ok := i.resources[id]
	switch {
	case !ok:
		return id
	case name == "":
		return Unnamed
	default:
		return name
	}
}

// ColumnLabel returns the display label of the column with the given id.
func (i *Index) ColumnLabel(id string) (string, bool) {
	label, ok := i.columns[id]
	return label, ok
}

// SegmentName returns the name of the segment with the given id.
func (i *Index) SegmentName(id string) (string, bool) {
	name, ok := i.segments[id]
	return name, ok
}

// Len returns the number of indexed resources.
func (i *Index) Len() int { return len(i.resources) }
