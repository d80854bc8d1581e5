// Package export writes assembled catalogs as an xlsx workbook or as JSON.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/xuri/excelize/v2"
)

// Defaults for workbook rendering.
const (
	DefaultLinkText = "Go to sheet"
	BackLinkText    = "Back to index"

	headerColor     = "EA0050"
	headerTextColor = "FFFFFF"
	borderColor     = "CCCCCC"
)

// WorkbookOptions configures a WorkbookWriter.
type WorkbookOptions struct {
	LinkText string
	Logger   *slog.Logger
}

// WorkbookWriter renders catalogs as multi-sheet workbooks: one index sheet
// followed by one detail sheet per resource.
type WorkbookWriter struct {
	linkText string
	logger   *slog.Logger
}

// NewWorkbookWriter creates a workbook writer.
func NewWorkbookWriter(opts WorkbookOptions) *WorkbookWriter {
	w := &WorkbookWriter{linkText: opts.LinkText, logger: opts.Logger}
	if w.linkText == "" {
		w.linkText = DefaultLinkText
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}
	return w
}

// Write renders the catalog and writes the workbook to out.
func (w *WorkbookWriter) Write(catalog *docs.Catalog, out io.Writer) error {
	f, err := w.Build(catalog)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// WriteFile renders the catalog and saves the workbook at path.
func (w *WorkbookWriter) WriteFile(catalog *docs.Catalog, path string) error {
	f, err := w.Build(catalog)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	w.logger.Info("workbook written", slog.String("path", path), slog.Int("sheets", len(catalog.Resources)+1))
	return nil
}

// Build renders the catalog into an in-memory workbook. The caller closes it.
func (w *WorkbookWriter) Build(catalog *docs.Catalog) (*excelize.File, error) {
	f := excelize.NewFile()

	st, err := newStyles(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	// The default sheet becomes the index.
	if err := f.SetSheetName(f.GetSheetName(0), catalog.IndexSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to create index sheet: %w", err)
	}

	if err := w.writeIndex(f, st, catalog); err != nil {
		_ = f.Close()
		return nil, err
	}

	for _, res := range catalog.Resources {
		if _, err := f.NewSheet(res.Sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create sheet %q: %w", res.Sheet, err)
		}
		if err := w.writeResource(f, st, catalog.IndexSheet, res); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write sheet %q: %w", res.Sheet, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func (w *WorkbookWriter) writeIndex(f *excelize.File, st *styles, catalog *docs.Catalog) error {
	manifest := docs.GenerateManifest(catalog)
	s := newSheetWriter(f, catalog.IndexSheet, st)

	s.title("FLOW DOCUMENTATION", 6)
	s.row++
	for _, kv := range [][2]any{
		{"Report ID", manifest.ReportID},
		{"Flow ID", valueOr(manifest.Flow.ID, docs.NotApplicable)},
		{"Version", valueOr(manifest.Flow.Version, docs.NotApplicable)},
		{"Hash", valueOr(manifest.Flow.Hash, docs.NotApplicable)},
		{"Generated at", manifest.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		{"Resources", manifest.Stats.ResourceCount},
		{"Flow nodes", manifest.Stats.EdgeCount},
		{"Columns", manifest.Stats.ColumnCount},
		{"Segments", manifest.Stats.SegmentCount},
		{"Reconciliations", manifest.Stats.ReconciliationCount},
		{"Resources with errors", manifest.Stats.ErrorCount},
	} {
		s.values(kv[0], kv[1])
	}
	s.row++

	s.header("ID", "NAME", "TYPE", "PARENTS", "CHILDREN", "LINK")
	for _, res := range catalog.Resources {
		s.set(1, res.ID)
		s.set(2, res.DisplayName())
		s.set(3, res.DisplayType())
		s.set(4, res.ParentsText())
		s.set(5, res.ChildrenText())
		s.link(6, w.linkText, res.Sheet)
		s.border(5)
		s.row++
	}

	s.widths(map[string]float64{"A": 26, "B": 40, "C": 24, "D": 50, "E": 50, "F": 14})
	return s.err
}

func (w *WorkbookWriter) writeResource(f *excelize.File, st *styles, indexSheet string, res *docs.ResourceDoc) error {
	s := newSheetWriter(f, res.Sheet, st)

	s.title("RESOURCE: "+res.DisplayName(), 5)
	s.link(6, BackLinkText, indexSheet)
	s.row++
	s.set(1, "ID: "+res.ID)
	s.row++
	s.set(1, "Type: "+res.DisplayType())
	s.row++
	if res.Error != "" {
		s.set(1, "ERROR: "+res.Error)
		s.row++
	}
	for _, warning := range res.Warnings {
		s.set(1, "WARNING: "+warning)
		s.row++
	}
	s.row++

	s.section("DATA FLOW")
	s.header("DIRECTION", "RELATED RESOURCES")
	s.values("PARENTS (inputs)", res.ParentsText())
	s.values("CHILDREN (outputs)", res.ChildrenText())
	s.row += 2

	if rec := res.Reconciliation; rec != nil {
		s.section("RECONCILIATION")
		s.header("SIDE", "SOURCE", "SEGMENT")
		for _, side := range rec.Sides {
			s.values("SIDE "+side.Side, side.Source, side.Segment)
		}
		s.row++

		if len(rec.Rules) > 0 {
			s.header("RULE SET", "POSITION", "COLUMN A", "OPERATOR", "COLUMN B", "TOLERANCE")
			for _, rule := range rec.Rules {
				s.values(rule.RuleSet, rule.Position, rule.ColumnA, rule.Operator, rule.ColumnB, rule.Tolerance)
			}
		}
		s.row += 2
	}

	if len(res.Segments) > 0 {
		s.section("SEGMENTS")
		s.header("NAME", "LOGIC")
		for _, seg := range res.Segments {
			s.values(seg.Name, seg.Logic)
		}
		s.row += 2
	}

	s.section("COLUMNS")
	s.header("COLUMN", "DATA TYPE", "LOGIC")
	for _, col := range res.Columns {
		s.values(col.Label, col.DataType, col.Logic)
	}

	s.widths(map[string]float64{"A": 35, "B": 30, "C": 60, "D": 18, "E": 30, "F": 18})
	return s.err
}

// sheetLink builds an in-document hyperlink location for a sheet.
func sheetLink(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!A1"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

type styles struct {
	header  int
	cell    int
	title   int
	section int
}

func newStyles(f *excelize.File) (*styles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColor, Style: 1},
		{Type: "right", Color: borderColor, Style: 1},
		{Type: "top", Color: borderColor, Style: 1},
		{Type: "bottom", Color: borderColor, Style: 1},
	}
	align := &excelize.Alignment{Vertical: "center", WrapText: true}

	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: headerTextColor, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Border:    border,
		Alignment: align,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	cell, err := f.NewStyle(&excelize.Style{Border: border, Alignment: align})
	if err != nil {
		return nil, fmt.Errorf("failed to create cell style: %w", err)
	}
	title, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14, Color: headerColor}})
	if err != nil {
		return nil, fmt.Errorf("failed to create title style: %w", err)
	}
	section, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Color: headerColor}})
	if err != nil {
		return nil, fmt.Errorf("failed to create section style: %w", err)
	}

	return &styles{header: header, cell: cell, title: title, section: section}, nil
}

// sheetWriter writes rows top to bottom, keeping the first error.
type sheetWriter struct {
	f      *excelize.File
	sheet  string
	styles *styles
	row    int
	err    error
}

func newSheetWriter(f *excelize.File, sheet string, st *styles) *sheetWriter {
	return &sheetWriter{f: f, sheet: sheet, styles: st, row: 1}
}

func (s *sheetWriter) cell(col int) string {
	name, err := excelize.CoordinatesToCellName(col, s.row)
	if err != nil && s.err == nil {
		s.err = err
	}
	return name
}

func (s *sheetWriter) set(col int, value any) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellValue(s.sheet, s.cell(col), value)
}

func (s *sheetWriter) style(fromCol, toCol, styleID int) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(s.sheet, s.cell(fromCol), s.cell(toCol), styleID)
}

func (s *sheetWriter) border(cols int) {
	s.style(1, cols, s.styles.cell)
}

func (s *sheetWriter) title(text string, span int) {
	s.set(1, text)
	if s.err == nil && span > 1 {
		s.err = s.f.MergeCell(s.sheet, s.cell(1), s.cell(span))
	}
	s.style(1, 1, s.styles.title)
}

func (s *sheetWriter) section(text string) {
	s.set(1, text)
	s.style(1, 1, s.styles.section)
	s.row++
}

func (s *sheetWriter) header(titles ...string) {
	for i, t := range titles {
		s.set(i+1, t)
	}
	s.style(1, len(titles), s.styles.header)
	s.row++
}

func (s *sheetWriter) values(values ...any) {
	for i, v := range values {
		s.set(i+1, v)
	}
	s.border(len(values))
	s.row++
}

func (s *sheetWriter) link(col int, text, target string) {
	s.set(col, text)
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellHyperLink(s.sheet, s.cell(col), sheetLink(target), "Location")
}

func (s *sheetWriter) widths(widths map[string]float64) {
	for col, width := range widths {
		if s.err != nil {
			return
		}
		s.err = s.f.SetColWidth(s.sheet, col, col, width)
	}
}
