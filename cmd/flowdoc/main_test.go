// Package main provides tests for the flowdoc CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/flowdoc/internal/cli"
	"github.com/leapstack-labs/flowdoc/internal/testutil"
	"github.com/xuri/excelize/v2"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCommand(t *testing.T) {
	output, err := execute(t, "version")
	if err != nil {
		t.Errorf("version command error = %v", err)
	}

	if !strings.Contains(output, "flowdoc v") {
		t.Errorf("version output should contain 'flowdoc v', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	output, err := execute(t, "--help")
	if err != nil {
		t.Errorf("help command error = %v", err)
	}

	expectedCommands := []string{"generate", "lineage", "inspect", "doctor", "serve", "init", "version", "completion"}
	for _, expected := range expectedCommands {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestGenerateCommand(t *testing.T) {
	input := testutil.WriteSampleFlow(t)
	out := filepath.Join(t.TempDir(), "report.xlsx")

	output, err := execute(t, "generate", input, "-o", out, "--index-sheet", "Contents", "--link-text", "Open")
	if err != nil {
		t.Fatalf("generate command error = %v\n%s", err, output)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	if sheets := f.GetSheetList(); len(sheets) != 6 || sheets[0] != "Contents" {
		t.Errorf("unexpected sheets: %v", sheets)
	}
	if link, _ := f.GetCellValue("Contents", "F15"); link != "Open" {
		t.Errorf("link text = %q, want %q", link, "Open")
	}
}

func TestInspectCommandJSON(t *testing.T) {
	input := testutil.WriteSampleFlow(t)

	output, err := execute(t, "inspect", input, "--output", "json")
	if err != nil {
		t.Fatalf("inspect command error = %v", err)
	}

	if !strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("inspect --output json should print JSON, got: %s", output)
	}
	if !strings.Contains(output, `"resource_count": 5`) {
		t.Errorf("inspect output should count 5 resources, got: %s", output)
	}
}

func TestDoctorCommand(t *testing.T) {
	input := testutil.WriteSampleFlow(t)

	output, err := execute(t, "doctor", input, "--output", "markdown", "--disable", "FD03,FD04")
	if err != nil {
		t.Fatalf("doctor command error = %v", err)
	}

	if !strings.Contains(output, "**100/100**") {
		t.Errorf("doctor with disabled rules should score 100, got: %s", output)
	}
}

func TestInvalidConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "flowdoc.yaml")
	if err := os.WriteFile(cfg, []byte("output: html\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "--config", cfg, "inspect", testutil.WriteSampleFlow(t))
	if err == nil || !strings.Contains(err.Error(), "output must be one of") {
		t.Errorf("expected config validation error, got %v", err)
	}
}
