package health

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/flowdoc/internal/flow"
)

func init() {
	Register(RuleDef{
		ID:          "FD01",
		Name:        "decode-errors",
		Group:       "resources",
		Description: "Resources that could not be decoded in full",
		Severity:    SeverityError,
		Fix:         "Re-export the flow; resources that fail to decode are documented without columns or segments",
		Check:       checkDecodeErrors,
	})
	Register(RuleDef{
		ID:          "FD02",
		Name:        "segment-filters",
		Group:       "resources",
		Description: "Segments whose filter tree could not be rendered",
		Severity:    SeverityError,
		Fix:         "Check the segment filter sets of the flagged segments",
		Check:       checkSegmentFilters,
	})
	Register(RuleDef{
		ID:          "FD03",
		Name:        "unnamed-resources",
		Group:       "structure",
		Description: "Resources without a name",
		Severity:    SeverityWarning,
		Fix:         "Name every resource so its sheet and references are readable",
		Check:       checkUnnamedResources,
	})
	Register(RuleDef{
		ID:          "FD04",
		Name:        "unknown-node-references",
		Group:       "lineage",
		Description: "Flow nodes referencing resources missing from the export",
		Severity:    SeverityWarning,
		Fix:         "Export the full flow so every node in the lineage resolves to a resource",
		Check:       checkUnknownNodeReferences,
	})
	Register(RuleDef{
		ID:          "FD05",
		Name:        "lookup-references",
		Group:       "lineage",
		Description: "Column lookups referencing unknown resources or columns",
		Severity:    SeverityWarning,
		Fix:         "Include the lookup origin resources in the export",
		Check:       checkLookupReferences,
	})
	Register(RuleDef{
		ID:          "FD06",
		Name:        "reconciliation-references",
		Group:       "reconciliation",
		Description: "Reconciliations whose sides or rules reference unknown ids",
		Severity:    SeverityError,
		Fix:         "Fix reconciliation sides and rules that point outside the flow",
		Check:       checkReconciliationReferences,
	})
	Register(RuleDef{
		ID:          "FD07",
		Name:        "lineage-cycles",
		Group:       "lineage",
		Description: "Cycles in the resource lineage",
		Severity:    SeverityError,
		Fix:         "Break lineage cycles; a resource cannot feed itself",
		Check:       checkLineageCycles,
	})
	Register(RuleDef{
		ID:          "FD08",
		Name:        "renamed-sheets",
		Group:       "structure",
		Description: "Resources documented on a sheet whose name differs from the resource name",
		Severity:    SeverityWarning,
		Fix:         "Shorten or deduplicate resource names so sheets keep the resource name",
		Check:       checkRenamedSheets,
	})
}

// resourceLabel names a resource in messages: its name, its id, or its
// position in the document.
func resourceLabel(res flow.Resource, i int) string {
	switch {
	case res.Name != "":
		return res.Name
	case res.ID != "":
		return res.ID
	default:
		return "#" + strconv.Itoa(i+1)
	}
}

func checkDecodeErrors(ctx *Context) []Diagnostic {
	var diags []Diagnostic
	for i, res := range ctx.Flow.Resources {
		if res.Err != nil {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Resource '%s' could not be decoded: %v", resourceLabel(res, i), res.Err),
				Resource: res.ID,
			})
		}
		for _, fault := range res.Faults {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Resource '%s' is partly malformed: %v", resourceLabel(res, i), fault),
				Resource: res.ID,
			})
		}
	}
	return diags
}

func checkSegmentFilters(ctx *Context) []Diagnostic {
	if ctx.Catalog == nil {
		return nil
	}
	var diags []Diagnostic
	for _, doc := range ctx.Catalog.Resources {
		for _, seg := range doc.Segments {
			if seg.Error == "" {
				continue
			}
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Segment '%s' of '%s': %s", seg.Name, doc.DisplayName(), seg.Error),
				Resource: doc.ID,
			})
		}
	}
	return diags
}

func checkUnnamedResources(ctx *Context) []Diagnostic {
	var diags []Diagnostic
	for i, res := range ctx.Flow.Resources {
		if res.Name != "" {
			continue
		}
		msg := fmt.Sprintf("Resource '%s' has no name", resourceLabel(res, i))
		if res.ID == "" {
			msg = fmt.Sprintf("Resource %s has neither name nor id", resourceLabel(res, i))
		}
		diags = append(diags, Diagnostic{Message: msg, Resource: res.ID})
	}
	return diags
}

func checkUnknownNodeReferences(ctx *Context) []Diagnostic {
	var diags []Diagnostic
	for _, edge := range ctx.Flow.Edges {
		if !ctx.Index.HasResource(edge.Target) {
			diags = append(diags, Diagnostic{
				Message: fmt.Sprintf("Flow node targets unknown resource '%s'", edge.Target),
			})
			continue
		}
		for _, src := range edge.Sources {
			if ctx.Index.HasResource(src) {
				continue
			}
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Resource '%s' has unknown source '%s'", ctx.Index.ResourceLabel(edge.Target), src),
				Resource: edge.Target,
			})
		}
	}
	return diags
}

func checkLookupReferences(ctx *Context) []Diagnostic {
	var diags []Diagnostic
	for i, res := range ctx.Flow.Resources {
		for _, col := range res.Columns {
			if col.Lookup == nil {
				continue
			}
			where := fmt.Sprintf("Column '%s' of '%s'", col.DisplayLabel(), resourceLabel(res, i))
			origin := col.Lookup.OriginResourceID
			switch {
			case origin == "":
				diags = append(diags, Diagnostic{Message: where + " has a lookup without origin", Resource: res.ID})
			case !ctx.Index.HasResource(origin):
				diags = append(diags, Diagnostic{
					Message:  fmt.Sprintf("%s looks up unknown resource '%s'", where, origin),
					Resource: res.ID,
				})
			}
			for _, key := range col.Lookup.Keys {
				for _, id := range []string{key.ColumnA, key.ColumnB} {
					if _, ok := ctx.Index.ColumnLabel(id); ok || id == "" {
						continue
					}
					diags = append(diags, Diagnostic{
						Message:  fmt.Sprintf("%s uses unknown lookup key column '%s'", where, id),
						Resource: res.ID,
					})
				}
			}
		}
	}
	return diags
}

func checkReconciliationReferences(ctx *Context) []Diagnostic {
	var diags []Diagnostic
	for i, res := range ctx.Flow.Resources {
		rec, ok := res.Reconciliation()
		if !ok {
			continue
		}
		name := resourceLabel(res, i)
		report := func(format string, a ...any) {
			diags = append(diags, Diagnostic{
				Message:  fmt.Sprintf("Reconciliation '%s' ", name) + fmt.Sprintf(format, a...),
				Resource: res.ID,
			})
		}

		for _, side := range []struct{ name, source, segment string }{
			{"A", rec.SourceA, rec.SegmentA},
			{"B", rec.SourceB, rec.SegmentB},
		} {
			switch {
			case side.source == "":
				report("side %s has no source", side.name)
			case !ctx.Index.HasResource(side.source):
				report("side %s references unknown resource '%s'", side.name, side.source)
			}
			if side.segment == "" {
				continue
			}
			if _, ok := ctx.Index.SegmentName(side.segment); !ok {
				report("side %s references unknown segment '%s'", side.name, side.segment)
			}
		}

		for _, rs := range rec.RuleSets {
			for _, rule := range rs.Rules {
				for _, id := range []string{rule.ColumnA, rule.ColumnB} {
					if id == "" {
						report("rule set '%s' has a rule without column", rs.Name)
						continue
					}
					if _, ok := ctx.Index.ColumnLabel(id); ok {
						continue
					}
					report("rule set '%s' references unknown column '%s'", rs.Name, id)
				}
			}
		}
	}
	return diags
}

func checkLineageCycles(ctx *Context) []Diagnostic {
	if ctx.Lineage == nil {
		return nil
	}
	cyclic, path := ctx.Lineage.Graph().HasCycle()
	if !cyclic {
		return nil
	}
	labels := make([]string, 0, len(path))
	for _, id := range path {
		labels = append(labels, ctx.Index.ResourceLabel(id))
	}
	var resource string
	if len(path) > 0 {
		resource = path[0]
	}
	return []Diagnostic{{
		Message:  "Lineage cycle: " + strings.Join(labels, " -> "),
		Resource: resource,
	}}
}

func checkRenamedSheets(ctx *Context) []Diagnostic {
	if ctx.Catalog == nil {
		return nil
	}
	var diags []Diagnostic
	for _, doc := range ctx.Catalog.Resources {
		if doc.Name == "" || doc.Sheet == doc.Name {
			continue
		}
		diags = append(diags, Diagnostic{
			Message:  fmt.Sprintf("Resource '%s' is documented on sheet '%s'", doc.Name, doc.Sheet),
			Resource: doc.ID,
		})
	}
	return diags
}
