// Package docs assembles the documentation catalog of a flow: one record per
// resource with resolved lineage, segments, reconciliation rules and columns.
package docs

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/flowdoc/internal/dag"
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/mapper"
	"github.com/leapstack-labs/flowdoc/internal/rules"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical texts used in resource records.
const (
	NoParents     = "None (primary source)"
	NoChildren    = "None (final node)"
	AllSegments   = "All"
	NotApplicable = rules.NotApplicable

	DefaultIndexSheet = "Index"
)

// FlowInfo identifies the exported flow.
type FlowInfo struct {
	ID      string `json:"id,omitempty"`
	Version string `json:"version,omitempty"`
	Hash    string `json:"hash,omitempty"`
}

// SegmentDoc is one segment row.
type SegmentDoc struct {
	Name  string `json:"name"`
	Logic string `json:"logic"`
	Error string `json:"error,omitempty"`
}

// SideDoc describes one side of a reconciliation.
type SideDoc struct {
	Side    string `json:"side"`
	Source  string `json:"source"`
	Segment string `json:"segment"`
}

// RuleDoc is one matching rule of a reconciliation rule set.
type RuleDoc struct {
	RuleSet   string `json:"rule_set"`
	Position  int    `json:"position"`
	ColumnA   string `json:"column_a"`
	Operator  string `json:"operator"`
	ColumnB   string `json:"column_b"`
	Tolerance string `json:"tolerance"`
}

// ReconciliationDoc summarises a reconciliation resource.
type ReconciliationDoc struct {
	Sides []SideDoc `json:"sides"`
	Rules []RuleDoc `json:"rules"`
}

// ColumnDoc is one column row.
type ColumnDoc struct {
	Label      string `json:"label"`
	DataType   string `json:"data_type"`
	Logic      string `json:"logic"`
	ColumnType string `json:"column_type,omitempty"`
	Hidden     bool   `json:"hidden,omitempty"`
	Position   int    `json:"position"`
}

// ResourceDoc is the normalized record of one resource.
type ResourceDoc struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Type           string             `json:"type"`
	Sheet          string             `json:"sheet"`
	Parents        []string           `json:"parents"`
	Children       []string           `json:"children"`
	Segments       []SegmentDoc       `json:"segments"`
	Reconciliation *ReconciliationDoc `json:"reconciliation,omitempty"`
	Columns        []ColumnDoc        `json:"columns"`

	// Error is set when the resource could not be documented; the record then
	// only carries identity, lineage and sheet.
	Error string `json:"error,omitempty"`

	// Warnings lists parts of the resource that were malformed in the export.
	Warnings []string `json:"warnings,omitempty"`
}

// HasErrors reports whether the resource was documented with an error or
// warnings.
func (r *ResourceDoc) HasErrors() bool {
	return r.Error != "" || len(r.Warnings) > 0
}

// ParentsText returns the parents joined for display, or NoParents.
func (r *ResourceDoc) ParentsText() string {
	if len(r.Parents) == 0 {
		return NoParents
	}
	return strings.Join(r.Parents, ", ")
}

// ChildrenText returns the children joined for display, or NoChildren.
func (r *ResourceDoc) ChildrenText() string {
	if len(r.Children) == 0 {
		return NoChildren
	}
	return strings.Join(r.Children, ", ")
}

// DisplayName returns the resource name, or mapper.Unnamed.
func (r *ResourceDoc) DisplayName() string {
	if r.Name == "" {
		return mapper.Unnamed
	}
	return r.Name
}

// DisplayType returns the type tag upper-cased, or N/A.
func (r *ResourceDoc) DisplayType() string {
	return DisplayType(r.Type)
}

// Catalog is the documentation of a whole flow.
type Catalog struct {
	ReportID    string         `json:"report_id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Flow        FlowInfo       `json:"flow"`
	IndexSheet  string         `json:"index_sheet"`
	EdgeCount   int            `json:"edge_count"`
	Resources   []*ResourceDoc `json:"resources"`

	lineage *dag.Lineage
}

// Lineage returns the lineage the catalog was assembled from.
func (c *Catalog) Lineage() *dag.Lineage {
	return c.lineage
}

// Find returns the resource whose id, name or sheet matches key.
func (c *Catalog) Find(key string) (*ResourceDoc, bool) {
	for _, r := range c.Resources {
		if r.ID == key || r.Name == key || strings.EqualFold(r.Sheet, key) {
			return r, true
		}
	}
	return nil, false
}

// AssembleOptions configures Assemble.
type AssembleOptions struct {
	// IndexSheet is the reserved name of the index sheet.
	IndexSheet string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Assemble builds the catalog of f. Resources are documented in document
// order; a resource that cannot be documented gets a placeholder record and
// the remaining resources are still processed.
func Assemble(f *flow.Flow, idx *mapper.Index, lineage *dag.Lineage, opts AssembleOptions) *Catalog {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	indexSheet := opts.IndexSheet
	if indexSheet == "" {
		indexSheet = DefaultIndexSheet
	}

	catalog := &Catalog{
		ReportID:    uuid.NewString(),
		GeneratedAt: now().UTC(),
		Flow:        FlowInfo{ID: f.ID, Version: f.Version, Hash: f.Hash},
		IndexSheet:  indexSheet,
		EdgeCount:   len(f.Edges),
		Resources:   make([]*ResourceDoc, 0, len(f.Resources)),
		lineage:     lineage,
	}

	namer := NewSheetNamer(indexSheet)
	for _, res := range f.Resources {
		doc := &ResourceDoc{
			ID:    res.ID,
			Name:  res.Name,
			Type:  res.Type(),
			Sheet: namer.Assign(res.Name),
		}
		rel := lineage.Relations(res.ID)
		doc.Parents = rel.Parents
		doc.Children = rel.Children

		if err := documentResource(doc, res, idx); err != nil {
			logger.Warn("resource documented with placeholder",
				slog.String("id", res.ID),
				slog.String("name", res.Name),
				slog.String("error", err.Error()))
			doc.Error = err.Error()
			doc.Segments = []SegmentDoc{}
			doc.Columns = []ColumnDoc{}
			doc.Reconciliation = nil
		}

		for _, seg := range doc.Segments {
			if seg.Error != "" {
				logger.Warn("segment filters could not be rendered",
					slog.String("resource", res.Name),
					slog.String("segment", seg.Name),
					slog.String("error", seg.Error))
			}
		}

		catalog.Resources = append(catalog.Resources, doc)
	}

	logger.Debug("catalog assembled",
		slog.String("report_id", catalog.ReportID),
		slog.Int("resources", len(catalog.Resources)))

	return catalog
}

// documentResource fills the segment, reconciliation and column sections.
// Unexpected faults are converted to an error so one resource never aborts
// the catalog.
func documentResource(doc *ResourceDoc, res flow.Resource, idx *mapper.Index) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("failed to document resource: %v", p)
		}
	}()

	if res.Err != nil {
		return res.Err
	}
	for _, fault := range res.Faults {
		doc.Warnings = append(doc.Warnings, fault.Error())
	}

	doc.Segments = make([]SegmentDoc, 0, len(res.Segments))
	for _, seg := range res.Segments {
		result := rules.FormatSegment(seg, idx)
		sd := SegmentDoc{Name: seg.Name, Logic: result.String()}
		if !result.OK() {
			sd.Error = result.Err.Error()
		}
		doc.Segments = append(doc.Segments, sd)
	}

	if rec, ok := res.Reconciliation(); ok {
		doc.Reconciliation = documentReconciliation(rec, idx)
	}

	doc.Columns = make([]ColumnDoc, 0, len(res.Columns))
	for _, col := range res.Columns {
		doc.Columns = append(doc.Columns, ColumnDoc{
			Label:      col.DisplayLabel(),
			DataType:   col.DataFormat,
			Logic:      rules.ColumnLogic(col, idx, idx),
			ColumnType: col.ColumnType,
			Hidden:     col.Hidden,
			Position:   col.Position,
		})
	}
	return nil
}

func documentReconciliation(rec *flow.Reconciliation, idx *mapper.Index) *ReconciliationDoc {
	segmentName := func(id string) string {
		if name, ok := idx.SegmentName(id); ok {
			return name
		}
		return AllSegments
	}

	out := &ReconciliationDoc{
		Sides: []SideDoc{
			{Side: "A", Source: idx.ResourceNameOr(rec.SourceA, NotApplicable), Segment: segmentName(rec.SegmentA)},
			{Side: "B", Source: idx.ResourceNameOr(rec.SourceB, NotApplicable), Segment: segmentName(rec.SegmentB)},
		},
		Rules: []RuleDoc{},
	}

	for _, rs := range rec.RuleSets {
		for _, rule := range rs.Rules {
			out.Rules = append(out.Rules, RuleDoc{
				RuleSet:   rs.Name,
				Position:  rs.Position,
				ColumnA:   rules.RuleColumnName(rule.ColumnA, idx),
				Operator:  rule.Operator,
				ColumnB:   rules.RuleColumnName(rule.ColumnB, idx),
				Tolerance: rules.FormatTolerance(rule),
			})
		}
	}
	return out
}

// DisplayType upper-cases a resource type tag for display.
func DisplayType(t string) string {
	if t == "" {
		return NotApplicable
	}
	// Casers are stateful and must not be shared between goroutines.
	return cases.Upper(language.Und).String(t)
}
