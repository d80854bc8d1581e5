package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Defaults applied while decoding.
const (
	DefaultCondition = "AND"
	DefaultOperator  = "="
)

// ErrInvalidDocument is returned when the resources or nodes of a document
// are not lists.
var ErrInvalidDocument = errors.New("invalid flow document")

type rawColumn struct {
	ExportID        string              `mapstructure:"export_id"`
	Label           string              `mapstructure:"label"`
	Name            string              `mapstructure:"name"`
	DataFormat      string              `mapstructure:"data_format"`
	ColumnType      string              `mapstructure:"column_type"`
	Hidden          bool                `mapstructure:"is_hidden"`
	Position        int                 `mapstructure:"position"`
	Transformations []rawTransformation `mapstructure:"transformations"`
	Lookup          *rawLookup          `mapstructure:"lookup"`
}

type rawTransformation struct {
	Operation string `mapstructure:"operation"`
	Query     string `mapstructure:"query"`
}

type rawLookup struct {
	OriginResourceID string       `mapstructure:"origin_resource_id"`
	LookupKeys       []rawKeyPair `mapstructure:"lookup_keys"`
}

type rawKeyPair struct {
	ColumnA string `mapstructure:"column_a_id"`
	ColumnB string `mapstructure:"column_b_id"`
}

type rawSegmentBody struct {
	FilterSets []rawFilterSet `mapstructure:"segment_filter_sets"`
}

type rawFilterSet struct {
	Condition string          `mapstructure:"condition"`
	Rules     []rawFilterRule `mapstructure:"segment_filter_rules"`
}

type rawFilterRule struct {
	ColumnID string `mapstructure:"column_id"`
	Operator string `mapstructure:"operator"`
	Value    any    `mapstructure:"value"`
}

type rawSourceSettings struct {
	ResourceID string `mapstructure:"resource_id"`
}

type rawRecon struct {
	ASource  rawSourceSettings `mapstructure:"a_source_settings"`
	BSource  rawSourceSettings `mapstructure:"b_source_settings"`
	SegmentA string            `mapstructure:"segment_a_id"`
	SegmentB string            `mapstructure:"segment_b_id"`
	RuleSets []rawRuleSet      `mapstructure:"reconciliation_rule_sets"`
}

type rawRuleSet struct {
	Name     string         `mapstructure:"name"`
	Position int            `mapstructure:"position"`
	Rules    []rawMatchRule `mapstructure:"reconciliation_rules"`
}

type rawMatchRule struct {
	ColumnA       string `mapstructure:"column_a_id"`
	ColumnB       string `mapstructure:"column_b_id"`
	Operator      string `mapstructure:"operator"`
	Tolerance     string `mapstructure:"tolerance"`
	ToleranceUnit string `mapstructure:"tolerance_unit"`
}

type rawUnion struct {
	UnionColumns []struct {
		ID string `mapstructure:"union_column_id"`
	} `mapstructure:"union_columns"`
}

// DecodeOptions configures Decode.
type DecodeOptions struct {
	Logger *slog.Logger
}

// Decode converts a loaded document into the typed model. Only resources or
// nodes that are not lists fail the document. Summary fields of the wrong
// shape are left empty, and faults inside a resource stay on that resource.
func Decode(doc Document, opts DecodeOptions) (*Flow, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	resources, err := listField(doc, "resources")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	nodes, err := listField(doc, "nodes")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	f := &Flow{
		ID:        stringField(doc, "_id"),
		Version:   stringField(doc, "version"),
		Hash:      stringField(doc, "hash"),
		Resources: make([]Resource, 0, len(resources)),
		Edges:     make([]Edge, 0, len(nodes)),
	}

	for i, item := range resources {
		var res Resource
		if m, ok := item.(map[string]any); ok {
			res = decodeResource(m)
		} else {
			res = Resource{Variant: PlainVariant{}, Err: fmt.Errorf("resource %d is not an object", i)}
		}
		if res.Err != nil {
			logger.Warn("resource could not be decoded",
				slog.Int("index", i),
				slog.String("id", res.ID),
				slog.String("error", res.Err.Error()))
		}
		for _, fault := range res.Faults {
			logger.Warn("resource decoded partially",
				slog.Int("index", i),
				slog.String("id", res.ID),
				slog.String("error", fault.Error()))
		}
		f.Resources = append(f.Resources, res)
	}

	for _, item := range nodes {
		m, _ := item.(map[string]any)
		edge, ok := decodeEdge(m)
		if !ok {
			logger.Debug("skipping edge without target or source", slog.Any("node", m))
			continue
		}
		f.Edges = append(f.Edges, edge)
	}

	logger.Debug("flow decoded",
		slog.String("flow_id", f.ID),
		slog.Int("resources", len(f.Resources)),
		slog.Int("edges", len(f.Edges)))

	return f, nil
}

// decodeResource reads identity, variant, columns and segments separately so a
// malformed part never hides the others.
func decodeResource(m map[string]any) Resource {
	res := Resource{
		ID:   firstNonEmpty(stringField(m, "export_id"), stringField(m, "_id")),
		Name: stringField(m, "name"),
	}

	variant, err := decodeVariant(m, stringField(m, "resource_type"))
	res.Variant = variant
	if err != nil {
		res.Faults = append(res.Faults, err)
	}

	columns, err := listField(m, "columns")
	if err != nil {
		res.Faults = append(res.Faults, err)
	}
	res.Columns = make([]Column, 0, len(columns))
	for i, item := range columns {
		col, err := decodeColumn(item)
		if err != nil {
			res.Faults = append(res.Faults, fmt.Errorf("columns[%d]: %w", i, err))
		}
		res.Columns = append(res.Columns, col)
	}

	segments, err := listField(m, "segments")
	if err != nil {
		res.Faults = append(res.Faults, err)
	}
	res.Segments = make([]Segment, 0, len(segments))
	for i, item := range segments {
		sm, ok := item.(map[string]any)
		if !ok {
			res.Segments = append(res.Segments, Segment{Err: fmt.Errorf("segments[%d] is not an object", i)})
			continue
		}
		res.Segments = append(res.Segments, decodeSegment(sm))
	}
	return res
}

// decodeVariant returns the variant for tag. On a malformed configuration the
// variant keeps its type with an empty configuration.
func decodeVariant(m map[string]any, tag string) (Variant, error) {
	switch tag {
	case TypeReconciliation, TypeAdvancedReconciliation:
		v := ReconciliationVariant{Advanced: tag == TypeAdvancedReconciliation}
		cfg := m["reconciliation"]
		if cfg == nil {
			cfg = m["advanced_reconciliation"]
		}
		if cfg == nil {
			return v, nil
		}
		var raw rawRecon
		if err := decodeInto(cfg, &raw); err != nil {
			return v, fmt.Errorf("reconciliation: %w", err)
		}
		v.Config = convertRecon(raw)
		return v, nil
	case TypeSourceUnion:
		v := UnionVariant{}
		cfg := m["source_union"]
		if cfg == nil {
			return v, nil
		}
		var raw rawUnion
		if err := decodeInto(cfg, &raw); err != nil {
			return v, fmt.Errorf("source_union: %w", err)
		}
		for _, uc := range raw.UnionColumns {
			if uc.ID != "" {
				v.UnionColumns = append(v.UnionColumns, uc.ID)
			}
		}
		return v, nil
	default:
		return PlainVariant{Tag: tag}, nil
	}
}

// decodeColumn decodes one column. When a field has the wrong shape the
// identity and display fields are still returned with the error.
func decodeColumn(item any) (Column, error) {
	m, ok := item.(map[string]any)
	if !ok {
		return Column{}, errors.New("not an object")
	}
	var raw rawColumn
	if err := decodeInto(m, &raw); err != nil {
		return Column{
			ID:         stringField(m, "export_id"),
			Label:      stringField(m, "label"),
			Name:       stringField(m, "name"),
			DataFormat: stringField(m, "data_format"),
			ColumnType: stringField(m, "column_type"),
		}, err
	}
	return convertColumn(raw), nil
}

func convertColumn(c rawColumn) Column {
	col := Column{
		ID:              c.ExportID,
		Label:           c.Label,
		Name:            c.Name,
		DataFormat:      c.DataFormat,
		ColumnType:      c.ColumnType,
		Hidden:          c.Hidden,
		Position:        c.Position,
		Transformations: make([]Transformation, 0, len(c.Transformations)),
	}
	for _, t := range c.Transformations {
		col.Transformations = append(col.Transformations, Transformation(t))
	}
	if c.Lookup != nil {
		lk := &Lookup{OriginResourceID: c.Lookup.OriginResourceID}
		for _, k := range c.Lookup.LookupKeys {
			lk.Keys = append(lk.Keys, KeyPair(k))
		}
		col.Lookup = lk
	}
	return col
}

func decodeSegment(m map[string]any) Segment {
	seg := Segment{ID: stringField(m, "export_id"), Name: stringField(m, "name")}

	var body rawSegmentBody
	if err := decodeInto(m, &body); err != nil {
		seg.Err = err
		return seg
	}

	seg.FilterSets = make([]FilterSet, 0, len(body.FilterSets))
	for _, fs := range body.FilterSets {
		set := FilterSet{
			Condition: fs.Condition,
			Rules:     make([]FilterRule, 0, len(fs.Rules)),
		}
		if set.Condition == "" {
			set.Condition = DefaultCondition
		}
		for _, r := range fs.Rules {
			rule := FilterRule{
				ColumnID: r.ColumnID,
				Operator: r.Operator,
				Value:    formatValue(r.Value),
			}
			if rule.Operator == "" {
				rule.Operator = DefaultOperator
			}
			set.Rules = append(set.Rules, rule)
		}
		seg.FilterSets = append(seg.FilterSets, set)
	}
	return seg
}

func convertRecon(r rawRecon) Reconciliation {
	rec := Reconciliation{
		SourceA:  r.ASource.ResourceID,
		SourceB:  r.BSource.ResourceID,
		SegmentA: r.SegmentA,
		SegmentB: r.SegmentB,
		RuleSets: make([]RuleSet, 0, len(r.RuleSets)),
	}
	for _, rs := range r.RuleSets {
		set := RuleSet{Name: rs.Name, Position: rs.Position, Rules: make([]MatchRule, 0, len(rs.Rules))}
		for _, rule := range rs.Rules {
			set.Rules = append(set.Rules, MatchRule(rule))
		}
		rec.RuleSets = append(rec.RuleSets, set)
	}
	return rec
}

// decodeEdge normalizes a node entry. The source may be a single id or a list
// of ids; both become a list. Entries missing a target or any source are
// rejected.
func decodeEdge(m map[string]any) (Edge, bool) {
	target, ok := IDString(m["target"])
	if !ok {
		return Edge{}, false
	}

	var sources []string
	switch src := m["source"].(type) {
	case []any:
		for _, s := range src {
			if id, ok := IDString(s); ok {
				sources = append(sources, id)
			}
		}
	default:
		if id, ok := IDString(src); ok {
			sources = []string{id}
		}
	}
	if len(sources) == 0 {
		return Edge{}, false
	}
	return Edge{Target: target, Sources: sources}, true
}

// IDString renders a scalar id as a string. Absent, empty and non-scalar ids
// report false.
func IDString(v any) (string, bool) {
	var s string
	switch id := v.(type) {
	case nil:
		return "", false
	case string:
		s = id
	case json.Number:
		s = id.String()
	case float64:
		s = strconv.FormatFloat(id, 'f', -1, 64)
	case int:
		s = strconv.Itoa(id)
	case int64:
		s = strconv.FormatInt(id, 10)
	case uint64:
		s = strconv.FormatUint(id, 10)
	default:
		switch reflect.ValueOf(id).Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Pointer:
			return "", false
		}
		s = fmt.Sprint(id)
	}
	if s == "" {
		return "", false
	}
	return s, true
}

// formatValue renders a filter value; lists render as "[a, b]".
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, formatValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		s, _ := IDString(val)
		return s
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := IDString(m[key])
	return s
}

// listField returns m[key] as a list. An absent key is an empty list.
func listField(m map[string]any, key string) ([]any, error) {
	switch v := m[key].(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	default:
		return nil, fmt.Errorf("%s is not a list", key)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func decodeInto(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
