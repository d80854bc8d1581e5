package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/flowdoc/internal/docs"
)

// Report is the JSON form of a generated documentation set.
type Report struct {
	Manifest *docs.Manifest `json:"manifest"`
	Catalog  *docs.Catalog  `json:"catalog"`
}

// NewReport pairs a catalog with its manifest.
func NewReport(catalog *docs.Catalog) *Report {
	return &Report{Manifest: docs.GenerateManifest(catalog), Catalog: catalog}
}

// EncodeJSON writes data as indented JSON.
func EncodeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// WriteJSON writes data as indented JSON to path.
func WriteJSON(path string, data any) error {
	f, err := os.Create(path) //nolint:gosec // G304: path is provided by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := EncodeJSON(f, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
