// Package health checks a decoded flow for problems that degrade its
// documentation: undecodable resources, dangling references, broken
// lineage and renamed sheets.
package health

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/flowdoc/internal/dag"
	"github.com/leapstack-labs/flowdoc/internal/docs"
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/mapper"
)

// Severity indicates the importance of a diagnostic.
type Severity int

// Severity levels for diagnostics.
const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "info"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity parses a severity name. Unknown names report false.
func ParseSeverity(name string) (Severity, bool) {
	switch name {
	case "error":
		return SeverityError, true
	case "warning", "warn":
		return SeverityWarning, true
	case "info":
		return SeverityInfo, true
	}
	return SeverityInfo, false
}

// Check is the function signature for rule checks.
type Check func(ctx *Context) []Diagnostic

// RuleDef is a health rule definition.
type RuleDef struct {
	ID          string   // e.g. "FD01"
	Name        string   // e.g. "decode-errors"
	Group       string   // "resources", "lineage", "reconciliation", "structure"
	Description string
	Severity    Severity
	Fix         string // Recommendation shown when the rule fires
	Check       Check
}

// Diagnostic is one finding.
type Diagnostic struct {
	RuleID   string   `json:"rule_id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Resource string   `json:"resource,omitempty"` // Resource id that triggered the finding
}

// Context provides the data rules inspect.
type Context struct {
	Flow    *flow.Flow
	Index   *mapper.Index
	Lineage *dag.Lineage
	Catalog *docs.Catalog
}

// NewContext creates the context for one flow.
func NewContext(f *flow.Flow, idx *mapper.Index, lineage *dag.Lineage, catalog *docs.Catalog) *Context {
	return &Context{Flow: f, Index: idx, Lineage: lineage, Catalog: catalog}
}

// Build indexes f, resolves its lineage and assembles its catalog.
func Build(f *flow.Flow, opts docs.AssembleOptions) *Context {
	idx := mapper.Build(f.Resources)
	lineage := dag.BuildLineage(idx, f.Edges)
	return NewContext(f, idx, lineage, docs.Assemble(f, idx, lineage, opts))
}

var registry = struct {
	mu    sync.RWMutex
	rules map[string]RuleDef
}{rules: make(map[string]RuleDef)}

// Register adds a rule to the global registry.
func Register(rule RuleDef) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.rules[rule.ID] = rule
}

// GetAll returns all registered rules ordered by id.
func GetAll() []RuleDef {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	rules := make([]RuleDef, 0, len(registry.rules))
	for _, rule := range registry.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// GetByID returns a rule by its ID.
func GetByID(id string) (RuleDef, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	rule, ok := registry.rules[id]
	return rule, ok
}
