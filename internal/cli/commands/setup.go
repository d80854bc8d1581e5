package commands

import (
	"log/slog"

	"github.com/leapstack-labs/flowdoc/internal/cli/config"
	"github.com/leapstack-labs/flowdoc/internal/cli/output"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/export"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext builds the command context from the config and logger
// the root command stored in the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// Generator returns a documentation generator configured for this command.
func (c *CommandContext) Generator() *docs.Generator {
	return docs.NewGenerator(docs.Options{
		IndexSheet: c.Cfg.Report.IndexSheet,
		Logger:     c.Logger,
	})
}

// Workbook returns a workbook writer configured for this command.
func (c *CommandContext) Workbook() *export.WorkbookWriter {
	return export.NewWorkbookWriter(export.WorkbookOptions{
		LinkText: c.Cfg.Report.LinkText,
		Logger:   c.Logger,
	})
}

// flowFileCompletion restricts shell completion to flow documents.
func flowFileCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"json", "yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
}
