package commands

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/flowdoc/internal/cli/output"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/spf13/cobra"
)

// LineageResource is one resource in lineage output.
type LineageResource struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     string   `json:"type"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// LineageOutput is the JSON form of the lineage command.
type LineageOutput struct {
	Flow       docs.FlowInfo     `json:"flow"`
	Focus      string            `json:"focus,omitempty"`
	Resources  []LineageResource `json:"resources"`
	Levels     [][]string        `json:"levels,omitempty"`
	Upstream   []string          `json:"upstream,omitempty"`
	Downstream []string          `json:"downstream,omitempty"`
	Cycle      []string          `json:"cycle,omitempty"`
	Stats      LineageStats      `json:"stats"`
}

// LineageStats counts graph elements.
type LineageStats struct {
	Resources int `json:"resources"`
	Nodes     int `json:"nodes"`
	Edges     int `json:"edges"`
	Roots     int `json:"roots"`
	Leaves    int `json:"leaves"`
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lineage <input> [resource]",
		Short: "Show the lineage graph of a flow",
		Long: `Display the parents and children of every resource in a flow export,
grouped into depth levels from the primary sources.

With a resource id or name, show everything upstream and downstream of it.

Output adapts to environment:
  - Terminal: Styled output with tables
  - Piped/Scripted: Markdown format (agent-friendly)`,
		Example: `  # Lineage of the whole flow
  flowdoc lineage flow.json

  # Everything feeding into and fed by one resource
  flowdoc lineage flow.json "Bank statements"

  # Output as JSON
  flowdoc lineage flow.json --output json`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: flowFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			focus := ""
			if len(args) == 2 {
				focus = args[1]
			}
			return runLineage(cmd, args[0], focus)
		},
	}

	return cmd
}

func runLineage(cmd *cobra.Command, input, focus string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	catalog, err := cmdCtx.Generator().FromFile(input)
	if err != nil {
		return err
	}

	out, err := buildLineageOutput(catalog, focus)
	if err != nil {
		return err
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	default:
		lineageReport(r, out)
		return nil
	}
}

func buildLineageOutput(catalog *docs.Catalog, focus string) (*LineageOutput, error) {
	graph := catalog.Lineage().Graph()

	out := &LineageOutput{
		Flow:      catalog.Flow,
		Resources: make([]LineageResource, 0, len(catalog.Resources)),
		Stats: LineageStats{
			Resources: len(catalog.Resources),
			Nodes:     graph.NodeCount(),
			Edges:     graph.EdgeCount(),
			Roots:     len(graph.Roots()),
			Leaves:    len(graph.Leaves()),
		},
	}

	name := func(id string) string {
		if doc, ok := catalog.Find(id); ok {
			return doc.DisplayName()
		}
		return id
	}
	names := func(ids []string) []string {
		result := make([]string, len(ids))
		for i, id := range ids {
			result[i] = name(id)
		}
		return result
	}

	if focus != "" {
		doc, ok := catalog.Find(focus)
		if !ok {
			return nil, fmt.Errorf("resource not found: %s", focus)
		}
		out.Focus = doc.DisplayName()
		out.Upstream = names(graph.Upstream(doc.ID))
		out.Downstream = names(graph.Downstream(doc.ID))
	}

	for _, doc := range catalog.Resources {
		out.Resources = append(out.Resources, LineageResource{
			ID:       doc.ID,
			Name:     doc.DisplayName(),
			Type:     doc.DisplayType(),
			Parents:  doc.Parents,
			Children: doc.Children,
		})
	}

	if hasCycle, cycle := graph.HasCycle(); hasCycle {
		out.Cycle = names(cycle)
		return out, nil
	}
	levels, err := graph.Levels()
	if err != nil {
		return nil, fmt.Errorf("failed to compute lineage levels: %w", err)
	}
	for _, level := range levels {
		out.Levels = append(out.Levels, names(level))
	}
	return out, nil
}

// lineageReport renders lineage as styled text or markdown; tables adapt to
// the renderer's mode.
func lineageReport(r *output.Renderer, out *LineageOutput) {
	markdown := r.EffectiveMode() == output.ModeMarkdown
	styles := r.Styles()

	title := "Lineage"
	if out.Flow.ID != "" {
		title += " of flow " + out.Flow.ID
	}
	r.Header(1, title)

	if out.Focus != "" {
		r.Header(2, "Focus: "+out.Focus)
		if markdown {
			r.Println(output.FormatKeyValue("Upstream", joinOr(out.Upstream, docs.NoParents)))
			r.Println(output.FormatKeyValue("Downstream", joinOr(out.Downstream, docs.NoChildren)))
		} else {
			r.Printf("  %s %s\n", styles.Muted.Render("upstream:"), joinOr(out.Upstream, docs.NoParents))
			r.Printf("  %s %s\n", styles.Muted.Render("downstream:"), joinOr(out.Downstream, docs.NoChildren))
		}
		r.Println("")
	}

	rows := make([][]string, 0, len(out.Resources))
	for _, res := range out.Resources {
		rows = append(rows, []string{
			res.Name,
			res.Type,
			joinOr(res.Parents, docs.NoParents),
			joinOr(res.Children, docs.NoChildren),
		})
	}
	r.Table([]string{"Resource", "Type", "Parents", "Children"}, rows)
	r.Println("")

	if len(out.Cycle) > 0 {
		r.Warning("lineage contains a cycle: " + strings.Join(out.Cycle, " -> "))
	} else {
		r.Header(2, "Levels")
		for i, level := range out.Levels {
			if markdown {
				r.Println(output.FormatKeyValue(fmt.Sprintf("Level %d", i), strings.Join(level, ", ")))
				continue
			}
			r.Printf("%s %s\n", styles.Header2.Render(fmt.Sprintf("Level %d:", i)), strings.Join(level, ", "))
		}
		r.Println("")
	}

	summary := fmt.Sprintf("Total: %d resources, %d links, %d primary sources, %d final nodes",
		out.Stats.Resources, out.Stats.Edges, out.Stats.Roots, out.Stats.Leaves)
	if markdown {
		r.Println(summary)
		return
	}
	r.Muted(summary)
}

func joinOr(items []string, empty string) string {
	if len(items) == 0 {
		return empty
	}
	return strings.Join(items, ", ")
}
