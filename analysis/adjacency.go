package analysis

import (
	"sort"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
	"github.com/bsaid97/go-parcel-consolidator/utils"
)

// Edge joins vertices From < To.
type Edge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Graph is the adjacency graph of a parcel slice: vertex i is parcel i.
// Neighbor lists are sorted and the graph is symmetric with no self-loops.
type Graph struct {
	IDs       []string
	Neighbors [][]int
	Edges     []Edge
	// Parsed reports whether the boundary of vertex i parsed. Unparsed
	// vertices have no edges.
	Parsed []bool
	Geoms  []*geos.Geom

	index map[string]int
}

func newGraph(ps []parcels.Parcel) *Graph {
	g := &Graph{
		IDs:       parcels.IDs(ps),
		Neighbors: make([][]int, len(ps)),
		Edges:     []Edge{},
		Parsed:    make([]bool, len(ps)),
		Geoms:     make([]*geos.Geom, len(ps)),
		index:     make(map[string]int, len(ps)),
	}
	for i, id := range g.IDs {
		if _, dup := g.index[id]; !dup {
			g.index[id] = i
		}
	}
	return g
}

func (g *Graph) Len() int { return len(g.IDs) }

func (g *Graph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

func (g *Graph) Adjacent(i, j int) bool {
	if i < 0 || i >= len(g.Neighbors) {
		return false
	}
	ns := g.Neighbors[i]
	k := sort.SearchInts(ns, j)
	return k < len(ns) && ns[k] == j
}

// NeighborIDs lists the ids adjacent to id in vertex order.
func (g *Graph) NeighborIDs(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]string, len(g.Neighbors[i]))
	for k, j := range g.Neighbors[i] {
		out[k] = g.IDs[j]
	}
	return out
}

// EdgeIDs returns the edges as id pairs.
func (g *Graph) EdgeIDs() [][2]string {
	out := make([][2]string, len(g.Edges))
	for k, e := range g.Edges {
		out[k] = [2]string{g.IDs[e.From], g.IDs[e.To]}
	}
	return out
}

func (g *Graph) setEdges(edges []Edge) {
	sort.Slice(edges, func(a, b int) bool {
		if edges[a].From != edges[b].From {
			return edges[a].From < edges[b].From
		}
		return edges[a].To < edges[b].To
	})
	g.Edges = edges
	for _, e := range edges {
		g.Neighbors[e.From] = append(g.Neighbors[e.From], e.To)
		g.Neighbors[e.To] = append(g.Neighbors[e.To], e.From)
	}
	for i := range g.Neighbors {
		sort.Ints(g.Neighbors[i])
	}
}

type parsedBoundary struct {
	geom   *geos.Geom
	bounds *geos.Box2D
	err    error
}

type pairVerdict struct {
	adjacent bool
	err      error
}

// BuildAdjacency evaluates the predicate on every pair of parcels whose
// bounding boxes intersect. Boundaries that fail to parse and pairs whose
// predicate fails are reported and left without edges.
//
// All workers share the GEOS context of opts.Adapter, and go-geos runs the
// calls on one context one at a time. The parse and predicate passes are
// therefore not faster with more workers; parallel speedup comes from
// running regions on separate adapters.
func BuildAdjacency(ps []parcels.Parcel, opts Options) (*Graph, []diagnostics.Diagnostic) {
	opts = opts.withDefaults()
	logger := opts.Logger.Named("adjacency")
	diags := diagnostics.NewCollector("adjacency", logger)

	g := newGraph(ps)
	if len(ps) == 0 {
		return g, diags.Items()
	}

	pp := utils.NewParallelProcessor(opts.Workers, opts.Progress, logger)

	parsed := utils.ProcessBatch(pp, ps, func(p parcels.Parcel) parsedBoundary {
		geom, err := opts.Adapter.ParseBoundary(p.Boundary)
		if err != nil {
			return parsedBoundary{err: err}
		}
		bounds, err := opts.Adapter.Bounds(geom)
		if err != nil {
			return parsedBoundary{err: err}
		}
		return parsedBoundary{geom: geom, bounds: bounds}
	}, "parse boundaries")

	boxes := make([]*geos.Box2D, 0, len(ps))
	for i, r := range parsed {
		if r.err != nil {
			diags.Report(r.err, ps[i].ID)
			continue
		}
		g.Parsed[i] = true
		g.Geoms[i] = r.geom
		boxes = append(boxes, r.bounds)
	}

	cellSize := opts.CellSize
	if cellSize <= 0 {
		cellSize = utils.AutoCellSize(boxes)
	}
	index := utils.NewSpatialIndex(cellSize)
	for i, r := range parsed {
		if r.err == nil {
			index.Add(i, r.bounds)
		}
	}
	pairs := index.CandidatePairs()

	verdicts := utils.ProcessBatch(pp, pairs, func(pair [2]int) pairVerdict {
		ok, err := opts.Predicate(opts.Adapter, g.Geoms[pair[0]], g.Geoms[pair[1]])
		return pairVerdict{adjacent: ok, err: err}
	}, "evaluate pairs")

	edges := []Edge{}
	for k, v := range verdicts {
		i, j := pairs[k][0], pairs[k][1]
		if v.err != nil {
			diags.Report(v.err, ps[i].ID, ps[j].ID)
			continue
		}
		if v.adjacent {
			edges = append(edges, Edge{From: i, To: j})
		}
	}
	g.setEdges(edges)

	items := diags.Items()
	logger.Info("adjacency graph built",
		zap.Int("parcels", len(ps)),
		zap.Int("parsed", index.Len()),
		zap.Float64("cellSize", index.CellSize()),
		zap.Int("candidatePairs", len(pairs)),
		zap.Int("edges", len(edges)),
		zap.Int("diagnostics", len(items)))
	return g, items
}
