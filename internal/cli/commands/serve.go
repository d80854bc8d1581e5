package commands

import (
	"errors"
	"strconv"

	"github.com/leapstack-labs/flowdoc/internal/server"
	"github.com/spf13/cobra"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Watch       string
	WatchOutput string
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve flow conversion over HTTP",
		Long: `Start an HTTP server that converts uploaded flow exports.

Endpoints:
  POST /api/convert   flow document in, workbook download out
  POST /api/catalog   flow document in, JSON catalog out
  GET  /api/events    server-sent events for watch-mode regenerations
  GET  /healthz       liveness check

Documents are sent as the raw request body (JSON, or YAML with ?format=yaml)
or as the "file" field of a multipart form.

With --watch, the given flow document is regenerated into --watch-output
whenever it changes.`,
		Example: `  # Start on the default port
  flowdoc serve

  # Convert with curl
  curl -F file=@flow.json http://localhost:8080/api/convert -o report.xlsx

  # Keep report.xlsx in sync with flow.json
  flowdoc serve --watch flow.json --watch-output report.xlsx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Int("max-upload-mb", 0, "Maximum upload size in megabytes")
	cmd.Flags().String("index-sheet", "", "Name of the index sheet")
	cmd.Flags().String("link-text", "", "Text of the index links to resource sheets")
	cmd.Flags().StringVar(&opts.Watch, "watch", "", "Flow document to regenerate on change")
	cmd.Flags().StringVar(&opts.WatchOutput, "watch-output", "", "Workbook written by --watch")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	if (opts.Watch == "") != (opts.WatchOutput == "") {
		return errors.New("--watch and --watch-output must be used together")
	}

	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg

	srv := server.New(server.Config{
		Port:        cfg.Server.Port,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		IndexSheet:  cfg.Report.IndexSheet,
		LinkText:    cfg.Report.LinkText,
		WatchInput:  opts.Watch,
		WatchOutput: opts.WatchOutput,
		Logger:      cmdCtx.Logger,
	})

	cmdCtx.Renderer.Success("Serving on http://localhost:" + strconv.Itoa(cfg.Server.Port))
	return srv.Serve(cmd.Context())
}
