package analysis

import (
	"fmt"
	"sort"

	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

// Merge replaces every connected group of same-owner adjacent parcels by
// one parcel whose boundary is the union of the group. ps and g must
// describe the same parcels in the same order. The input is not modified.
//
// Output parcels keep the input order of the first member of each group.
// When a union fails the group is rebuilt incrementally and the members
// that cannot be unioned stay unmerged with a warning.
func Merge(ps []parcels.Parcel, g *Graph, opts Options) ([]parcels.Parcel, []diagnostics.Diagnostic, error) {
	if g == nil || g.Len() != len(ps) {
		return nil, nil, fmt.Errorf("merge: graph does not match the %d parcels", len(ps))
	}
	for i := range ps {
		if g.IDs[i] != ps[i].ID {
			return nil, nil, fmt.Errorf("merge: parcel %d is %q but graph vertex is %q", i, ps[i].ID, g.IDs[i])
		}
	}

	opts = opts.withDefaults()
	logger := opts.Logger.Named("merge")
	diags := diagnostics.NewCollector("merge", logger)

	owners := canonicalOwners(ps)
	uf := newUnionFind(len(ps))
	for _, e := range g.Edges {
		if owners[e.From] == owners[e.To] {
			uf.union(e.From, e.To)
		}
	}

	m := merger{ps: ps, g: g, owners: owners, opts: opts, diags: diags}
	var groups []mergedGroup
	merges := 0
	for _, comp := range uf.components() {
		if len(comp) == 1 {
			groups = append(groups, mergedGroup{first: comp[0], parcel: parcels.Clone(ps[comp[0]:comp[0]+1])[0]})
			continue
		}
		out := m.mergeComponent(comp)
		for _, grp := range out {
			if grp.parcel.Merged() {
				merges++
			}
		}
		groups = append(groups, out...)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].first < groups[j].first })
	result := make([]parcels.Parcel, len(groups))
	for i, grp := range groups {
		result[i] = grp.parcel
	}

	items := diags.Items()
	logger.Info("parcels merged",
		zap.Int("parcels", len(ps)),
		zap.Int("result", len(result)),
		zap.Int("merged", merges),
		zap.Int("diagnostics", len(items)))
	return result, items, nil
}

type mergedGroup struct {
	first  int
	parcel parcels.Parcel
}

type merger struct {
	ps     []parcels.Parcel
	g      *Graph
	owners []string
	opts   Options
	diags  *diagnostics.Collector
}

// mergeComponent unions a component in one cascaded pass and falls back to
// incremental union when that fails.
func (m *merger) mergeComponent(comp []int) []mergedGroup {
	geoms := make([]*geos.Geom, len(comp))
	for k, v := range comp {
		geoms[k] = m.g.Geoms[v]
	}

	union, err := m.opts.Adapter.CascadedUnion(geoms)
	if err == nil {
		p, err := m.build(comp, union)
		if err == nil {
			return []mergedGroup{{first: comp[0], parcel: p}}
		}
		m.diags.Report(err, m.memberIDs(comp)...)
	} else {
		m.diags.Report(err, m.memberIDs(comp)...)
	}
	return m.incremental(comp)
}

// incremental grows a union breadth-first from the lowest-id member of the
// remaining vertices. A member whose union fails is kept on its own and not
// expanded through; whatever stays unreached starts the next group.
func (m *merger) incremental(comp []int) []mergedGroup {
	remaining := make(map[int]bool, len(comp))
	for _, v := range comp {
		remaining[v] = true
	}

	var out []mergedGroup
	for len(remaining) > 0 {
		start := m.lowestID(remaining)
		delete(remaining, start)

		acc := m.g.Geoms[start]
		members := []int{start}
		queue := []int{start}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			for _, w := range m.g.Neighbors[v] {
				if !remaining[w] || m.owners[w] != m.owners[v] {
					continue
				}
				delete(remaining, w)

				next, err := m.opts.Adapter.Union(acc, m.g.Geoms[w])
				if err != nil {
					m.diags.Warn(diagnostics.KindGeometryOperation,
						fmt.Errorf("member left unmerged: %w", err), m.ps[w].ID)
					out = append(out, mergedGroup{first: w, parcel: parcels.Clone(m.ps[w : w+1])[0]})
					continue
				}
				acc = next
				members = append(members, w)
				queue = append(queue, w)
			}
		}

		sort.Ints(members)
		if len(members) == 1 {
			out = append(out, mergedGroup{first: start, parcel: parcels.Clone(m.ps[start : start+1])[0]})
			continue
		}
		p, err := m.build(members, acc)
		if err != nil {
			m.diags.Report(err, m.memberIDs(members)...)
			for _, v := range members {
				out = append(out, mergedGroup{first: v, parcel: parcels.Clone(m.ps[v : v+1])[0]})
			}
			continue
		}
		out = append(out, mergedGroup{first: members[0], parcel: p})
	}
	return out
}

// build makes the merged parcel of members (ascending vertex order) from
// their union. Attributes other than geometry come from the lowest-id
// member.
func (m *merger) build(members []int, union *geos.Geom) (parcels.Parcel, error) {
	area, err := m.opts.Adapter.Area(union)
	if err != nil {
		return parcels.Parcel{}, err
	}
	perimeter, err := m.opts.Adapter.Perimeter(union)
	if err != nil {
		return parcels.Parcel{}, err
	}
	text, err := m.opts.Adapter.WKT(union)
	if err != nil {
		return parcels.Parcel{}, err
	}

	var sourceIDs []string
	for _, v := range members {
		sourceIDs = append(sourceIDs, m.ps[v].SourceIDs()...)
	}
	sort.Strings(sourceIDs)

	lead := m.ps[members[0]]
	for _, v := range members[1:] {
		if m.ps[v].ID < lead.ID {
			lead = m.ps[v]
		}
	}

	return parcels.Parcel{
		ID:           parcels.MergedID(sourceIDs),
		ParcelID:     lead.ParcelID,
		ParcelNumber: lead.ParcelNumber,
		Owner:        lead.Owner,
		Boundary:     text,
		Area:         parcels.MeasureOf(area),
		Perimeter:    parcels.MeasureOf(perimeter),
		Parish:       lead.Parish,
		Municipality: lead.Municipality,
		Island:       lead.Island,
		Members:      sourceIDs,
	}, nil
}

func (m *merger) lowestID(set map[int]bool) int {
	best := -1
	for v := range set {
		if best < 0 || m.ps[v].ID < m.ps[best].ID || (m.ps[v].ID == m.ps[best].ID && v < best) {
			best = v
		}
	}
	return best
}

func (m *merger) memberIDs(vs []int) []string {
	ids := make([]string, len(vs))
	for k, v := range vs {
		ids[k] = m.ps[v].ID
	}
	sort.Strings(ids)
	return ids
}

// canonicalOwners folds owners once per parcel so that parcels built
// without parcels.New still compare case-insensitively.
func canonicalOwners(ps []parcels.Parcel) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = parcels.CanonicalOwner(p.Owner)
	}
	return out
}
