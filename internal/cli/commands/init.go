package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/flowdoc/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var example bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a flowdoc workspace",
		Long: `Initialize a flowdoc workspace with a configuration file and a flows/ directory.

This creates:
  - flowdoc.yaml configuration file
  - flows/ directory for flow exports

Use --example to also add a sample flow export with sources, a lookup and
a reconciliation, ready to document.`,
		Example: `  # Initialize in current directory
  flowdoc init

  # Initialize with an example flow
  flowdoc init --example

  # Initialize in a new directory
  flowdoc init reports --example

  # Force overwrite existing config
  flowdoc init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			r := NewCommandContext(cmd).Renderer
			if example {
				return runInitExample(r, dir, force)
			}
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&example, "example", false, "Add an example flow export")

	return cmd
}

// prepareInitDir creates dir and refuses to replace an existing config
// unless force is set.
func prepareInitDir(dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(filepath.Join(dir, "flowdoc.yaml")); err == nil && !force {
		return fmt.Errorf("flowdoc.yaml already exists. Use --force to overwrite")
	}
	return nil
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if err := prepareInitDir(dir, force); err != nil {
		return err
	}

	if err := copyTemplate("minimal", dir, force); err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}

	files, _ := listTemplateFiles("minimal")
	for _, f := range files {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("flowdoc workspace initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Export a flow into flows/")
	r.Println("  2. Run 'flowdoc doctor flows/<flow>.json' to check it")
	r.Println("  3. Run 'flowdoc generate flows/<flow>.json' to build the workbook")

	return nil
}

func runInitExample(r *output.Renderer, dir string, force bool) error {
	if err := prepareInitDir(dir, force); err != nil {
		return err
	}

	if err := copyTemplate("example", dir, force); err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}

	files, _ := listTemplateFiles("example")
	groups := groupTemplateFiles(files)

	r.Header(2, "Configuration")
	for _, f := range groups["config"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Header(2, "Flows")
	for _, f := range groups["flows"] {
		r.StatusLine(f, "success", "")
	}

	r.Println("")
	r.Success("flowdoc workspace initialized with an example flow!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  flowdoc inspect flows/example.json     Overview of the example flow")
	r.Println("  flowdoc lineage flows/example.json     Resource lineage")
	r.Println("  flowdoc doctor flows/example.json      Flow health check")
	r.Println("  flowdoc generate flows/example.json    Write the documentation workbook")

	return nil
}
