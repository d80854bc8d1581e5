package commands

import (
	"fmt"
	"strconv"

	"github.com/leapstack-labs/flowdoc/internal/cli/output"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/spf13/cobra"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <input> [resource]",
		Short: "Inspect the documentation of a flow or one resource",
		Long: `Print the documentation that generate would write, without writing a workbook.

Without a resource, list every resource with its sheet name and section sizes.
With a resource id, name or sheet name, print its full record: lineage,
reconciliation rules, segment filters and columns.`,
		Example: `  # Overview of a flow
  flowdoc inspect flow.json

  # One resource, by name or id
  flowdoc inspect flow.json "Bank statements"
  flowdoc inspect flow.json 42

  # Full record as JSON
  flowdoc inspect flow.json 42 --output json`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: flowFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			catalog, err := cmdCtx.Generator().FromFile(args[0])
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return inspectCatalog(cmdCtx.Renderer, catalog)
			}
			doc, ok := catalog.Find(args[1])
			if !ok {
				return fmt.Errorf("resource not found: %s", args[1])
			}
			return inspectResource(cmdCtx.Renderer, doc)
		},
	}

	return cmd
}

func inspectCatalog(r *output.Renderer, catalog *docs.Catalog) error {
	manifest := docs.GenerateManifest(catalog)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(manifest)
	}

	r.Header(1, "Flow documentation")
	for _, kv := range [][2]string{
		{"Flow ID", orNA(manifest.Flow.ID)},
		{"Version", orNA(manifest.Flow.Version)},
		{"Hash", orNA(manifest.Flow.Hash)},
		{"Resources", strconv.Itoa(manifest.Stats.ResourceCount)},
		{"Flow nodes", strconv.Itoa(manifest.Stats.EdgeCount)},
		{"Columns", strconv.Itoa(manifest.Stats.ColumnCount)},
		{"Segments", strconv.Itoa(manifest.Stats.SegmentCount)},
		{"Reconciliations", strconv.Itoa(manifest.Stats.ReconciliationCount)},
		{"Resources with errors", strconv.Itoa(manifest.Stats.ErrorCount)},
	} {
		r.Println(keyValue(r, kv[0], kv[1]))
	}
	r.Println("")

	rows := make([][]string, 0, len(catalog.Resources))
	for _, doc := range catalog.Resources {
		status := "ok"
		switch {
		case doc.Error != "":
			status = "error"
		case len(doc.Warnings) > 0:
			status = "warning"
		}
		rows = append(rows, []string{
			doc.ID,
			doc.DisplayName(),
			doc.DisplayType(),
			doc.Sheet,
			strconv.Itoa(len(doc.Columns)),
			strconv.Itoa(len(doc.Segments)),
			status,
		})
	}
	r.Table([]string{"ID", "Name", "Type", "Sheet", "Columns", "Segments", "Status"}, rows)
	return nil
}

func inspectResource(r *output.Renderer, doc *docs.ResourceDoc) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(doc)
	}

	r.Header(1, doc.DisplayName())
	r.Println(keyValue(r, "ID", doc.ID))
	r.Println(keyValue(r, "Type", doc.DisplayType()))
	r.Println(keyValue(r, "Sheet", doc.Sheet))
	r.Println(keyValue(r, "Parents", doc.ParentsText()))
	r.Println(keyValue(r, "Children", doc.ChildrenText()))
	if doc.Error != "" {
		r.Println(keyValue(r, "Error", doc.Error))
	}
	for _, warning := range doc.Warnings {
		r.Println(keyValue(r, "Warning", warning))
	}
	r.Println("")

	if rec := doc.Reconciliation; rec != nil {
		r.Header(2, "Reconciliation")
		sides := make([][]string, 0, len(rec.Sides))
		for _, s := range rec.Sides {
			sides = append(sides, []string{s.Side, s.Source, s.Segment})
		}
		r.Table([]string{"Side", "Source", "Segment"}, sides)
		r.Println("")

		if len(rec.Rules) > 0 {
			rules := make([][]string, 0, len(rec.Rules))
			for _, rule := range rec.Rules {
				rules = append(rules, []string{
					rule.RuleSet, strconv.Itoa(rule.Position), rule.ColumnA, rule.Operator, rule.ColumnB, rule.Tolerance,
				})
			}
			r.Table([]string{"Rule set", "Position", "Column A", "Operator", "Column B", "Tolerance"}, rules)
			r.Println("")
		}
	}

	if len(doc.Segments) > 0 {
		r.Header(2, "Segments")
		segments := make([][]string, 0, len(doc.Segments))
		for _, s := range doc.Segments {
			segments = append(segments, []string{s.Name, s.Logic})
		}
		r.Table([]string{"Name", "Logic"}, segments)
		r.Println("")
	}

	r.Header(2, "Columns")
	columns := make([][]string, 0, len(doc.Columns))
	for _, c := range doc.Columns {
		columns = append(columns, []string{c.Label, c.DataType, c.Logic})
	}
	r.Table([]string{"Column", "Data type", "Logic"}, columns)
	return nil
}

func keyValue(r *output.Renderer, key, value string) string {
	if r.EffectiveMode() == output.ModeMarkdown {
		return output.FormatKeyValue(key, value)
	}
	return r.Styles().Muted.Render(key+":") + " " + value
}

func orNA(v string) string {
	if v == "" {
		return docs.NotApplicable
	}
	return v
}
