package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/katalvlaran/lvlath/core"

	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

// ownerPrefix keeps blank owners addressable: lvlath rejects empty vertex ids.
const ownerPrefix = "owner:"

// OwnerEdge joins two distinct owners, From < To.
type OwnerEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// OwnerGraph is the simple undirected graph of owners holding adjacent
// parcels.
type OwnerGraph struct {
	Owners []string    `json:"owners"`
	Edges  []OwnerEdge `json:"edges"`

	graph *core.Graph
}

// BuildOwnerGraph collapses the parcel adjacency of g onto owners. Every
// owner of ps is a vertex. Adjacent parcels of one owner never produce an
// edge, and repeated owner pairs collapse into one.
func BuildOwnerGraph(ps []parcels.Parcel, g *Graph) (*OwnerGraph, error) {
	if g == nil || g.Len() != len(ps) {
		return nil, fmt.Errorf("owner graph: graph does not match the %d parcels", len(ps))
	}

	owners := canonicalOwners(ps)
	og := &OwnerGraph{
		Owners: []string{},
		Edges:  []OwnerEdge{},
		graph:  core.NewGraph(),
	}
	for _, o := range owners {
		if err := og.graph.AddVertex(ownerVertex(o)); err != nil {
			return nil, fmt.Errorf("owner graph: add owner %q: %w", o, err)
		}
	}
	for _, v := range og.graph.Vertices() {
		og.Owners = append(og.Owners, ownerName(v))
	}

	for _, e := range g.Edges {
		a, b := owners[e.From], owners[e.To]
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		_, err := og.graph.AddEdge(ownerVertex(a), ownerVertex(b), 0)
		switch {
		case errors.Is(err, core.ErrMultiEdgeNotAllowed):
			continue
		case err != nil:
			return nil, fmt.Errorf("owner graph: join %q and %q: %w", a, b, err)
		}
		og.Edges = append(og.Edges, OwnerEdge{From: a, To: b})
	}

	sort.Slice(og.Edges, func(i, j int) bool {
		if og.Edges[i].From != og.Edges[j].From {
			return og.Edges[i].From < og.Edges[j].From
		}
		return og.Edges[i].To < og.Edges[j].To
	})
	return og, nil
}

func (og *OwnerGraph) Adjacent(a, b string) bool {
	return og.graph.HasEdge(ownerVertex(parcels.CanonicalOwner(a)), ownerVertex(parcels.CanonicalOwner(b)))
}

// Neighbors lists the owners adjacent to owner, sorted. Unknown owners have
// none.
func (og *OwnerGraph) Neighbors(owner string) []string {
	ids, err := og.graph.NeighborIDs(ownerVertex(parcels.CanonicalOwner(owner)))
	if err != nil {
		return []string{}
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = ownerName(id)
	}
	return out
}

func ownerVertex(owner string) string { return ownerPrefix + owner }

func ownerName(vertex string) string { return strings.TrimPrefix(vertex, ownerPrefix) }
