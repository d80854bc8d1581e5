package docs

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/leapstack-labs/flowdoc/internal/dag"
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/mapper"
)

// Options configures a Generator.
type Options struct {
	IndexSheet string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Generator runs the whole transformation: load, decode, index, lineage and
// assembly. It holds no per-document state and may be shared.
type Generator struct {
	opts   Options
	logger *slog.Logger
}

// NewGenerator creates a new documentation generator.
func NewGenerator(opts Options) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{opts: opts, logger: logger}
}

// FromFile builds the catalog of the document at path.
func (g *Generator) FromFile(path string) (*Catalog, error) {
	g.logger.Debug("loading flow document", slog.String("path", path))
	doc, err := flow.Load(path)
	if err != nil {
		return nil, err
	}
	return g.FromDocument(doc)
}

// FromReader builds the catalog of a document read from r.
func (g *Generator) FromReader(r io.Reader, format flow.Format) (*Catalog, error) {
	doc, err := flow.Read(r, format)
	if err != nil {
		return nil, err
	}
	return g.FromDocument(doc)
}

// FromDocument builds the catalog of an already loaded document.
func (g *Generator) FromDocument(doc flow.Document) (*Catalog, error) {
	f, err := flow.Decode(doc, flow.DecodeOptions{Logger: g.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to decode flow: %w", err)
	}

	idx := mapper.Build(f.Resources)
	lineage := dag.BuildLineage(idx, f.Edges)

	return Assemble(f, idx, lineage, AssembleOptions{
		IndexSheet: g.opts.IndexSheet,
		Logger:     g.logger,
		Now:        g.opts.Now,
	}), nil
}
