package dag

import (
	"github.com/leapstack-labs/flowdoc/internal/flow"
	"github.com/leapstack-labs/flowdoc/internal/mapper"
)

// Relations lists the display labels of a resource's direct parents and
// children, in edge order.
type Relations struct {
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// Lineage is the parent/child adjacency of a flow keyed by resource id.
type Lineage struct {
	relations map[string]*Relations
	graph     *Graph
}

// BuildLineage builds the lineage of the indexed resources from the flow's
// edges. An edge target T with sources S1..Sn adds each Si to T's parents
// when T is a known resource, and T to each Si's children when Si is known.
// References to ids outside the flow are kept using the raw id as label.
func BuildLineage(idx *mapper.Index, edges []flow.Edge) *Lineage {
	l := &Lineage{
		relations: make(map[string]*Relations, idx.Len()),
		graph:     NewGraph(),
	}

	for _, id := range idx.ResourceIDs() {
		l.relations[id] = &Relations{Parents: []string{}, Children: []string{}}
		l.graph.AddNode(id)
	}

	for _, edge := range edges {
		if edge.Target == "" || len(edge.Sources) == 0 {
			continue
		}
		target, targetKnown := l.relations[edge.Target]

		for _, src := range edge.Sources {
			if targetKnown {
				target.Parents = append(target.Parents, idx.ResourceLabel(src))
			}
			if source, ok := l.relations[src]; ok {
				source.Children = append(source.Children, idx.ResourceLabel(edge.Target))
			}
			if targetKnown && l.graph.HasNode(src) {
				_ = l.graph.AddEdge(src, edge.Target)
			}
		}
	}

	return l
}

// Relations returns the lineage of a resource. Unknown ids yield empty lists.
func (l *Lineage) Relations(id string) Relations {
	if r, ok := l.relations[id]; ok {
		return *r
	}
	return Relations{Parents: []string{}, Children: []string{}}
}

// Parents returns the parent labels of a resource.
func (l *Lineage) Parents(id string) []string {
	return l.Relations(id).Parents
}

// Children returns the child labels of a resource.
func (l *Lineage) Children(id string) []string {
	return l.Relations(id).Children
}

// Graph returns the structural graph between known resources.
func (l *Lineage) Graph() *Graph {
	return l.graph
}
