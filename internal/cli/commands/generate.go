package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/flowdoc/internal/cli/output"
	"github.com/leapstack-labs/flowdoc/internal/export"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// OutputSuffix is appended to the input base name for default output paths.
const OutputSuffix = "_documentation"

// GenerateOptions holds options for the generate command.
type GenerateOptions struct {
	Out      string
	OutDir   string
	JSONPath string
}

// GenerateResult is the outcome of converting one flow document.
type GenerateResult struct {
	Input     string `json:"input"`
	Output    string `json:"output,omitempty"`
	JSON      string `json:"json,omitempty"`
	ReportID  string `json:"report_id,omitempty"`
	Resources int    `json:"resources"`
	Errors    int    `json:"resource_errors"`
	Error     string `json:"error,omitempty"`
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <input>...",
		Short: "Generate a documentation workbook from flow exports",
		Long: `Convert one or more flow-export documents into documentation workbooks.

Each workbook has an index sheet summarising the flow and linking to one
detail sheet per resource: lineage, reconciliation rules, segment filters
and the column table with lookup and transformation logic.

Several inputs are converted concurrently (see --concurrency).`,
		Example: `  # Convert one export
  flowdoc generate flow.json

  # Choose the workbook path and also write the JSON catalog
  flowdoc generate flow.json -o report.xlsx --json catalog.json

  # Convert a batch into a directory
  flowdoc generate exports/*.json --out-dir reports`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: flowFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "Workbook path (single input only)")
	cmd.Flags().StringVar(&opts.OutDir, "out-dir", "", "Directory for generated workbooks")
	cmd.Flags().StringVar(&opts.JSONPath, "json", "", "Also write the JSON catalog to this path (single input only)")
	cmd.Flags().String("index-sheet", "", "Name of the index sheet")
	cmd.Flags().String("link-text", "", "Text of the index links to resource sheets")
	cmd.Flags().Int("concurrency", 0, "Number of documents converted at once")

	return cmd
}

func runGenerate(cmd *cobra.Command, inputs []string, opts *GenerateOptions) error {
	if len(inputs) > 1 && (opts.Out != "" || opts.JSONPath != "") {
		return errors.New("--out and --json accept a single input; use --out-dir for batches")
	}

	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	outputs := outputPaths(inputs, opts)
	results := make([]GenerateResult, len(inputs))

	gen := cmdCtx.Generator()
	wb := cmdCtx.Workbook()

	var g errgroup.Group
	g.SetLimit(cmdCtx.Cfg.Report.Concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			res := GenerateResult{Input: input, Output: outputs[i]}
			if len(inputs) == 1 {
				res.JSON = opts.JSONPath
			}

			catalog, err := gen.FromFile(input)
			if err != nil {
				res.Error = err.Error()
				results[i] = res
				return nil
			}
			res.ReportID = catalog.ReportID
			res.Resources = len(catalog.Resources)
			for _, doc := range catalog.Resources {
				if doc.HasErrors() {
					res.Errors++
				}
			}

			if err := wb.WriteFile(catalog, res.Output); err != nil {
				res.Error = err.Error()
				results[i] = res
				return nil
			}
			if res.JSON != "" {
				if err := export.WriteJSON(res.JSON, export.NewReport(catalog)); err != nil {
					res.Error = err.Error()
				}
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
			cmdCtx.Logger.Error("generation failed", "input", res.Input, "error", res.Error)
		}
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(results); err != nil {
			return err
		}
	case output.ModeMarkdown:
		generateMarkdown(r, results)
	default:
		generateText(r, results)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(inputs))
	}
	return nil
}

func generateText(r *output.Renderer, results []GenerateResult) {
	r.Header(1, fmt.Sprintf("Generated %d workbook(s)", len(results)))
	for _, res := range results {
		if res.Error != "" {
			r.StatusLine(res.Input, "error", res.Error)
			continue
		}
		status := "success"
		if res.Errors > 0 {
			status = "warning"
		}
		r.StatusLine(res.Output, status, resultDetail(res))
		if res.JSON != "" {
			r.StatusLine(res.JSON, "success", "")
		}
	}
}

func generateMarkdown(r *output.Renderer, results []GenerateResult) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Generated %d workbook(s)", len(results))))
	r.Println("")
	for _, res := range results {
		r.Println(output.FormatHeader(2, res.Input))
		if res.Error != "" {
			r.Println(output.FormatKeyValue("Error", res.Error))
			r.Println("")
			continue
		}
		r.Println(output.FormatKeyValue("Workbook", res.Output))
		if res.JSON != "" {
			r.Println(output.FormatKeyValue("Catalog", res.JSON))
		}
		r.Println(output.FormatKeyValue("Resources", strconv.Itoa(res.Resources)))
		if res.Errors > 0 {
			r.Println(output.FormatKeyValue("Resources with errors", strconv.Itoa(res.Errors)))
		}
		r.Println("")
	}
}

func resultDetail(res GenerateResult) string {
	detail := fmt.Sprintf("(%d resources", res.Resources)
	if res.Errors > 0 {
		detail += fmt.Sprintf(", %d with errors", res.Errors)
	}
	return detail + ")"
}

// outputPaths computes one workbook path per input. Inputs sharing a base
// name get numbered paths so batch outputs never overwrite each other.
func outputPaths(inputs []string, opts *GenerateOptions) []string {
	if len(inputs) == 1 && opts.Out != "" {
		return []string{opts.Out}
	}

	paths := make([]string, len(inputs))
	used := make(map[string]int, len(inputs))
	for i, input := range inputs {
		base := filepath.Base(input)
		base = strings.TrimSuffix(base, filepath.Ext(base)) + OutputSuffix

		name := base
		if n := used[strings.ToLower(base)]; n > 0 {
			name = fmt.Sprintf("%s_%d", base, n+1)
		}
		used[strings.ToLower(base)]++

		paths[i] = filepath.Join(opts.OutDir, name+".xlsx")
	}
	return paths
}
