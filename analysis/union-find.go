package analysis

// unionFind is a disjoint-set forest over vertex indices with path
// compression and union by rank.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(u int) int {
	for uf.parent[u] != u {
		uf.parent[u] = uf.parent[uf.parent[u]]
		u = uf.parent[u]
	}
	return u
}

func (uf *unionFind) union(u, v int) {
	ru, rv := uf.find(u), uf.find(v)
	if ru == rv {
		return
	}
	switch {
	case uf.rank[ru] < uf.rank[rv]:
		uf.parent[ru] = rv
	case uf.rank[ru] > uf.rank[rv]:
		uf.parent[rv] = ru
	default:
		uf.parent[rv] = ru
		uf.rank[ru]++
	}
}

// components returns the sets with their members in ascending order. Sets
// are ordered by their smallest member, so the result does not depend on
// the order unions were applied in.
func (uf *unionFind) components() [][]int {
	byRoot := make(map[int]int)
	var out [][]int
	for v := range uf.parent {
		r := uf.find(v)
		k, ok := byRoot[r]
		if !ok {
			k = len(out)
			byRoot[r] = k
			out = append(out, nil)
		}
		out[k] = append(out[k], v)
	}
	return out
}
