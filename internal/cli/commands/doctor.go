package commands

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/flowdoc/internal/cli/output"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/health"
	"github.com/spf13/cobra"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Strict bool // Fail when any error-level check fails
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor <input>",
		Short: "Run a health check on a flow export",
		Long: `Analyze a flow export for problems that degrade its documentation.

The doctor command runs all flow health rules and provides a report including:
- Flow summary (resources, flow nodes, lineage depth)
- Health checks grouped by category (Resources, Lineage, Reconciliation, Structure)
- Health score (0-100)
- Actionable recommendations

Rules can be disabled with --disable or the doctor.disabled_rules config key.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  flowdoc doctor flow.json

  # Fail in CI when an error-level check fails
  flowdoc doctor flow.json --strict

  # Skip the sheet rename check
  flowdoc doctor flow.json --disable FD08 --output json`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: flowFileCompletion,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "Exit with an error when an error-level check fails")
	cmd.Flags().StringSlice("disable", nil, "Rule IDs to skip (e.g. FD03,FD08)")

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         FlowSummary   `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// FlowSummary contains flow-level statistics.
type FlowSummary struct {
	FlowID          string `json:"flow_id,omitempty"`
	Resources       int    `json:"resources"`
	FlowNodes       int    `json:"flow_nodes"`
	Reconciliations int    `json:"reconciliations"`
	DAGDepth        int    `json:"dag_depth"`
	RootCount       int    `json:"root_count"`
	LeafCount       int    `json:"leaf_count"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, input string, opts *DoctorOptions) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	analyzerCfg := health.NewAnalyzerConfig()
	for _, id := range cmdCtx.Cfg.Doctor.DisabledRules {
		id = strings.ToUpper(strings.TrimSpace(id))
		if _, ok := health.GetByID(id); !ok {
			return fmt.Errorf("unknown health rule: %s", id)
		}
		analyzerCfg.DisabledRules[id] = true
	}
	analyzer := health.NewAnalyzer(analyzerCfg)

	doc, err := flow.Load(input)
	if err != nil {
		return err
	}
	f, err := flow.Decode(doc, flow.DecodeOptions{Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("failed to decode flow: %w", err)
	}

	flowCtx := health.Build(f, docs.AssembleOptions{
		IndexSheet: cmdCtx.Cfg.Report.IndexSheet,
		Logger:     cmdCtx.Logger,
	})
	diags := analyzer.Analyze(flowCtx)
	doctorOutput := buildDoctorOutput(flowCtx, analyzer.Rules(), diags)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(doctorOutput)
	case output.ModeMarkdown:
		err = renderDoctorMarkdown(r, doctorOutput)
	default:
		err = renderDoctorText(r, doctorOutput)
	}
	if err != nil {
		return err
	}

	if opts.Strict {
		if failed := failedChecks(doctorOutput.HealthChecks); len(failed) > 0 {
			return fmt.Errorf("health check failed: %s", strings.Join(failed, ", "))
		}
	}
	return nil
}

func buildDoctorOutput(ctx *health.Context, rules []health.RuleDef, diags []health.Diagnostic) *DoctorOutput {
	summary := buildFlowSummary(ctx)

	// Group diagnostics by rule
	diagsByRule := make(map[string][]health.Diagnostic)
	for _, d := range diags {
		diagsByRule[d.RuleID] = append(diagsByRule[d.RuleID], d)
	}

	healthChecks := make([]HealthCheck, 0, len(rules))
	for _, rule := range rules {
		ruleDiags := diagsByRule[rule.ID]
		status := "pass"
		if len(ruleDiags) > 0 {
			if rule.Severity == health.SeverityError {
				status = "error"
			} else {
				status = "warn"
			}
		}

		details := make([]string, 0, len(ruleDiags))
		for _, d := range ruleDiags {
			details = append(details, d.Message)
		}

		healthChecks = append(healthChecks, HealthCheck{
			RuleID:     rule.ID,
			Name:       rule.Name,
			Group:      rule.Group,
			Status:     status,
			IssueCount: len(ruleDiags),
			Details:    details,
		})
	}

	// Sort health checks by group then by rule ID
	sort.Slice(healthChecks, func(i, j int) bool {
		if healthChecks[i].Group != healthChecks[j].Group {
			return healthChecks[i].Group < healthChecks[j].Group
		}
		return healthChecks[i].RuleID < healthChecks[j].RuleID
	})

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    healthChecks,
		Score:           calculateHealthScore(healthChecks, summary.Resources),
		Recommendations: generateRecommendations(healthChecks, rules),
		IssueCount:      len(diags),
	}
}

func buildFlowSummary(ctx *health.Context) FlowSummary {
	stats := docs.GenerateManifest(ctx.Catalog).Stats
	summary := FlowSummary{
		FlowID:          ctx.Flow.ID,
		Resources:       stats.ResourceCount,
		FlowNodes:       stats.EdgeCount,
		Reconciliations: stats.ReconciliationCount,
	}

	graph := ctx.Lineage.Graph()
	summary.RootCount = len(graph.Roots())
	summary.LeafCount = len(graph.Leaves())
	// A cyclic lineage has no depth; FD07 reports it.
	if levels, err := graph.Levels(); err == nil {
		summary.DAGDepth = len(levels)
	}

	return summary
}

// calculateHealthScore computes a health score from 0-100.
// The scoring weights:
// - Each issue reduces points
// - Errors count double
// - Larger flows mean issues have less individual impact
func calculateHealthScore(checks []HealthCheck, resourceCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 5.0
	if resourceCount > 10 {
		basePenalty = 3.0
	}
	if resourceCount > 50 {
		basePenalty = 2.0
	}
	if resourceCount > 100 {
		basePenalty = 1.0
	}

	for _, check := range checks {
		switch check.Status {
		case "error":
			score -= float64(check.IssueCount) * basePenalty * 2
		case "warn":
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	// Clamp to 0-100
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(score)
}

// generateRecommendations lists the fix of every failing rule, errors first.
func generateRecommendations(checks []HealthCheck, rules []health.RuleDef) []string {
	fixes := make(map[string]string, len(rules))
	for _, rule := range rules {
		fixes[rule.ID] = rule.Fix
	}

	var recommendations []string
	seen := make(map[string]bool)
	for _, status := range []string{"error", "warn"} {
		for _, check := range checks {
			if check.Status != status {
				continue
			}
			rec := fixes[check.RuleID]
			if rec != "" && !seen[rec] {
				recommendations = append(recommendations, rec)
				seen[rec] = true
			}
		}
	}

	// Limit to top 5 recommendations
	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

func failedChecks(checks []HealthCheck) []string {
	var failed []string
	for _, check := range checks {
		if check.Status == "error" {
			failed = append(failed, check.RuleID)
		}
	}
	return failed
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("Flow Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header2.Render("Flow Summary"))
	r.Printf("   Flow: %s | Resources: %d | Flow nodes: %d | Reconciliations: %d\n",
		orNA(out.Summary.FlowID), out.Summary.Resources, out.Summary.FlowNodes, out.Summary.Reconciliations)
	r.Printf("   DAG Depth: %d levels | Roots: %d | Leaves: %d\n", out.Summary.DAGDepth, out.Summary.RootCount, out.Summary.LeafCount)
	r.Println("")

	r.Println(styles.Header2.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case "warn":
			icon = styles.Warning.Render("!")
		case "error":
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		// Show first 3 details for issues
		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header2.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# Flow Health Report")
	r.Println("")

	r.Println("## Flow Summary")
	r.Println("")
	r.Printf("- **Flow**: %s\n", orNA(out.Summary.FlowID))
	r.Printf("- **Resources**: %d\n", out.Summary.Resources)
	r.Printf("- **Flow nodes**: %d\n", out.Summary.FlowNodes)
	r.Printf("- **Reconciliations**: %d\n", out.Summary.Reconciliations)
	r.Printf("- **DAG Depth**: %d levels\n", out.Summary.DAGDepth)
	r.Printf("- **Root Resources**: %d\n", out.Summary.RootCount)
	r.Printf("- **Leaf Resources**: %d\n", out.Summary.LeafCount)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case "warn":
			status = "WARN"
		case "error":
			status = "ERROR"
		}

		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}
