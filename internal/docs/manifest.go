package docs

import (
	"sort"
	"time"
)

// Manifest is the summary block of a report: flow identity, counts and the
// resources grouped by type.
type Manifest struct {
	ReportID    string      `json:"report_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Flow        FlowInfo    `json:"flow"`
	Groups      []TypeGroup `json:"groups"`
	Stats       Stats       `json:"stats"`
}

// TypeGroup lists the resources of one type.
type TypeGroup struct {
	Type      string    `json:"type"`
	Resources []NavItem `json:"resources"`
}

// NavItem points at a resource's detail sheet.
type NavItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Sheet string `json:"sheet"`
}

// Stats contains counts for the summary block.
type Stats struct {
	ResourceCount       int `json:"resource_count"`
	EdgeCount           int `json:"edge_count"`
	ColumnCount         int `json:"column_count"`
	SegmentCount        int `json:"segment_count"`
	ReconciliationCount int `json:"reconciliation_count"`
	RuleCount           int `json:"rule_count"`
	ErrorCount          int `json:"error_count"`
}

// GenerateManifest summarises a catalog.
func GenerateManifest(catalog *Catalog) *Manifest {
	byType := make(map[string][]NavItem)
	stats := Stats{
		ResourceCount: len(catalog.Resources),
		EdgeCount:     catalog.EdgeCount,
	}

	for _, r := range catalog.Resources {
		t := r.DisplayType()
		byType[t] = append(byType[t], NavItem{ID: r.ID, Name: r.DisplayName(), Sheet: r.Sheet})

		stats.ColumnCount += len(r.Columns)
		stats.SegmentCount += len(r.Segments)
		if r.Reconciliation != nil {
			stats.ReconciliationCount++
			stats.RuleCount += len(r.Reconciliation.Rules)
		}
		if r.HasErrors() {
			stats.ErrorCount++
		}
	}

	groups := make([]TypeGroup, 0, len(byType))
	for t, items := range byType {
		sort.SliceStable(items, func(i, j int) bool { return items[i].Name < items[j].Name })
		groups = append(groups, TypeGroup{Type: t, Resources: items})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Type < groups[j].Type })

	return &Manifest{
		ReportID:    catalog.ReportID,
		GeneratedAt: catalog.GeneratedAt,
		Flow:        catalog.Flow,
		Groups:      groups,
		Stats:       stats,
	}
}
