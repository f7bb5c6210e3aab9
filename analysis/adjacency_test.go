package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/geometry"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

func TestBuildAdjacencyScenario(t *testing.T) {
	g, diags := BuildAdjacency(scenario(), testOptions())
	assert.Empty(t, diags)
	assert.Equal(t, [][2]string{{"A", "B"}, {"B", "C"}}, g.EdgeIDs())
	assert.Equal(t, []string{"A", "C"}, g.NeighborIDs("B"))
	assert.Nil(t, g.NeighborIDs("missing"))
}

func TestBuildAdjacencySymmetricWithoutSelfLoops(t *testing.T) {
	ps := append(grid(4, "a", "b", "c"),
		parcel("dup", "z", squareA, "100"),
		parcel("over", "z", overlapA, "100"),
		parcel("far", "z", squareFar, "100"),
	)
	g, _ := BuildAdjacency(ps, testOptions())

	for i := 0; i < g.Len(); i++ {
		assert.False(t, g.Adjacent(i, i), "self-loop on %s", g.IDs[i])
		for j := 0; j < g.Len(); j++ {
			assert.Equal(t, g.Adjacent(i, j), g.Adjacent(j, i), "%s/%s", g.IDs[i], g.IDs[j])
		}
	}
	for _, e := range g.Edges {
		assert.Less(t, e.From, e.To)
	}
	far, ok := g.Index("far")
	require.True(t, ok)
	assert.Empty(t, g.Neighbors[far])
}

// The grid prefilter must not lose any pair the predicate would accept.
func TestBuildAdjacencyMatchesBruteForce(t *testing.T) {
	ps := append(grid(5, "a", "b"),
		parcel("over", "z", overlapA, "100"),
		parcel("inside", "z", "POLYGON((2 2, 3 2, 3 3, 2 3, 2 2))", "1"),
	)

	adapter := geometry.NewAdapter()
	var want [][2]string
	for i := range ps {
		gi, err := adapter.ParseBoundary(ps[i].Boundary)
		require.NoError(t, err)
		for j := i + 1; j < len(ps); j++ {
			gj, err := adapter.ParseBoundary(ps[j].Boundary)
			require.NoError(t, err)
			ok, err := adapter.Related(gi, gj)
			require.NoError(t, err)
			if ok {
				want = append(want, [2]string{ps[i].ID, ps[j].ID})
			}
		}
	}

	for _, cell := range []float64{0, 1, 7, 1000} {
		opts := testOptions()
		opts.CellSize = cell
		g, diags := BuildAdjacency(ps, opts)
		assert.Empty(t, diags)
		assert.ElementsMatch(t, want, g.EdgeIDs(), "cell size %v", cell)
	}
}

func TestBuildAdjacencyIndependentOfWorkers(t *testing.T) {
	ps := grid(6, "a", "b", "c")
	var reference [][2]string
	for _, workers := range []int{1, 2, 8} {
		opts := testOptions()
		opts.Workers = workers
		g, _ := BuildAdjacency(ps, opts)
		if reference == nil {
			reference = g.EdgeIDs()
			continue
		}
		assert.Equal(t, reference, g.EdgeIDs(), "workers=%d", workers)
	}
	// 6x6 grid: 2*6*5 edge neighbors and 2*5*5 diagonal corner neighbors
	assert.Len(t, reference, 110)
}

func TestBuildAdjacencyEmptyAndSingle(t *testing.T) {
	g, diags := BuildAdjacency(nil, testOptions())
	assert.Equal(t, 0, g.Len())
	assert.Empty(t, g.Edges)
	assert.Empty(t, diags)

	g, diags = BuildAdjacency([]parcels.Parcel{parcel("A", "x", squareA, "100")}, testOptions())
	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.Edges)
	assert.Empty(t, diags)
	assert.True(t, g.Parsed[0])
}

func TestBuildAdjacencyMalformedBoundary(t *testing.T) {
	ps := []parcels.Parcel{
		parcel("A", "x", squareA, "100"),
		parcel("bad", "x", malformed, "100"),
		parcel("B", "y", squareB, "100"),
	}
	g, diags := BuildAdjacency(ps, testOptions())

	assert.Equal(t, [][2]string{{"A", "B"}}, g.EdgeIDs())
	assert.False(t, g.Parsed[1])
	assert.Empty(t, g.Neighbors[1])

	require.Len(t, diags, 1)
	assert.Equal(t, diagnostics.KindGeometryParse, diags[0].Kind)
	assert.Equal(t, diagnostics.SeverityError, diags[0].Severity)
	assert.Equal(t, []string{"bad"}, diags[0].ParcelIDs)
	assert.ErrorIs(t, diags[0], diagnostics.ErrGeometryParse)
}

func TestBuildAdjacencyTouchesPredicate(t *testing.T) {
	ps := []parcels.Parcel{
		parcel("A", "x", squareA, "100"),
		parcel("B", "y", squareB, "100"),
		parcel("O", "z", overlapA, "100"),
	}

	related, _ := BuildAdjacency(ps, testOptions())
	assert.Equal(t, [][2]string{{"A", "B"}, {"A", "O"}, {"B", "O"}}, related.EdgeIDs())

	opts := testOptions()
	opts.Predicate = geometry.PredicateTouches
	touches, _ := BuildAdjacency(ps, opts)
	assert.Equal(t, [][2]string{{"A", "B"}}, touches.EdgeIDs())
}

func TestBuildAdjacencyPredicateFailure(t *testing.T) {
	opts := testOptions()
	opts.Predicate = func(a *geometry.Adapter, g1, g2 *geos.Geom) (bool, error) {
		return a.Related(g1, nil)
	}
	g, diags := BuildAdjacency(scenario(), opts)
	assert.Empty(t, g.Edges)
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, diagnostics.KindGeometryOperation, d.Kind)
		assert.Len(t, d.ParcelIDs, 2)
	}
}

func TestBuildAdjacencyLogsSummary(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	opts := testOptions()
	opts.Logger = zap.New(core)

	BuildAdjacency(scenario(), opts)

	entries := logs.FilterMessage("adjacency graph built").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "adjacency", entries[0].LoggerName)
	assert.Equal(t, int64(2), entries[0].ContextMap()["edges"])
}
