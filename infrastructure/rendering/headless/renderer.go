// Package headless is a RenderingAdapter with no screen. It keeps the
// renderer's view of the graph so tests, the CLI and server-side replays can
// drive the editor and inspect what a real renderer would have been told.
package headless

import (
	"sort"
	"sync"

	"ontograph/application/ports"
	"ontograph/domain/core/entities"
	"ontograph/domain/core/valueobjects"

	"go.uber.org/zap"
)

// Renderer implements ports.RenderingAdapter
type Renderer struct {
	mu       sync.Mutex
	caps     ports.Capabilities
	nodes    map[valueobjects.ElementID]entities.NodeRecord
	edges    map[valueobjects.ElementID]entities.EdgeRecord
	selected []valueobjects.ElementID
	changed  map[valueobjects.ElementID]int
	redraws  int
	logger   *zap.Logger
}

var _ ports.RenderingAdapter = (*Renderer)(nil)

// NewRenderer creates a renderer advertising caps
func NewRenderer(caps ports.Capabilities, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		caps:    caps,
		nodes:   make(map[valueobjects.ElementID]entities.NodeRecord),
		edges:   make(map[valueobjects.ElementID]entities.EdgeRecord),
		changed: make(map[valueobjects.ElementID]int),
		logger:  logger,
	}
}

func (r *Renderer) Capabilities() ports.Capabilities {
	return r.caps
}

func (r *Renderer) OnNodeAdded(node *entities.Node) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID()] = node.Record()
	r.logger.Debug("node drawn", zap.String("id", node.ID().String()))
}

func (r *Renderer) OnEdgeCreated(edge *entities.Edge) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.ID()] = edge.Record()
	r.logger.Debug("edge drawn", zap.String("id", edge.ID().String()))
}

func (r *Renderer) OnElementRemoved(id valueobjects.ElementID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
	delete(r.edges, id)
	delete(r.changed, id)
}

func (r *Renderer) OnElementChanged(id valueobjects.ElementID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed[id]++
}

func (r *Renderer) OnSelectionChanged(selected []valueobjects.ElementID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = append(r.selected[:0], selected...)
}

// RequestRedraw drops the incremental view; the next Sync rebuilds it
func (r *Renderer) RequestRedraw() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.redraws++
}

// GraphSource is what Sync reads after a redraw request
type GraphSource interface {
	Nodes() []*entities.Node
	Edges() []*entities.Edge
}

// Sync replaces the drawn elements with the source's current elements, the
// way a real renderer repaints after RequestRedraw.
func (r *Renderer) Sync(src GraphSource) {
	nodes := src.Nodes()
	edges := src.Edges()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes = make(map[valueobjects.ElementID]entities.NodeRecord, len(nodes))
	for _, n := range nodes {
		r.nodes[n.ID()] = n.Record()
	}
	r.edges = make(map[valueobjects.ElementID]entities.EdgeRecord, len(edges))
	for _, e := range edges {
		r.edges[e.ID()] = e.Record()
	}
}

// Drawn returns the ids currently drawn, sorted
func (r *Renderer) Drawn() []valueobjects.ElementID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]valueobjects.ElementID, 0, len(r.nodes)+len(r.edges))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	for id := range r.edges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Node returns the drawn record for id
func (r *Renderer) Node(id valueobjects.ElementID) (entities.NodeRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	return n, ok
}

// Selected returns the last selection the renderer was told about
func (r *Renderer) Selected() []valueobjects.ElementID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]valueobjects.ElementID(nil), r.selected...)
}

// Changes reports how many change notifications id received
func (r *Renderer) Changes(id valueobjects.ElementID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed[id]
}

// Redraws reports how many full redraws were requested
func (r *Renderer) Redraws() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.redraws
}
