package geometry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
)

const (
	squareA   = "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))"
	squareB   = "POLYGON((10 0, 20 0, 20 10, 10 10, 10 0))"
	squareFar = "POLYGON((50 50, 60 50, 60 60, 50 60, 50 50))"
	overlapA  = "POLYGON((5 0, 15 0, 15 10, 5 10, 5 0))"
	insideA   = "POLYGON((2 2, 4 2, 4 4, 2 4, 2 2))"
)

func TestParseBoundary(t *testing.T) {
	a := NewAdapter()

	tests := []struct {
		name string
		text string
		ok   bool
	}{
		{"polygon", squareA, true},
		{"multipolygon", "MULTIPOLYGON(((0 0, 1 0, 1 1, 0 1, 0 0)), ((5 5, 6 5, 6 6, 5 6, 5 5)))", true},
		{"geojson", `{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,1],[0,0]]]}`, true},
		{"padded", "  " + squareA + "\n", true},
		{"empty text", "   ", false},
		{"truncated", "POLYGON((0 0, 1", false},
		{"garbage", "not a geometry", false},
		{"point", "POINT(1 1)", false},
		{"empty polygon", "POLYGON EMPTY", false},
		{"bow tie", "POLYGON((0 0, 10 10, 10 0, 0 10, 0 0))", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := a.ParseBoundary(tt.text)
			if tt.ok {
				require.NoError(t, err)
				assert.NotNil(t, g)
				return
			}
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, errors.Is(err, diagnostics.ErrGeometryParse), err.Error())
		})
	}
}

func TestRelatedAndTouches(t *testing.T) {
	a := NewAdapter()
	base, err := a.ParseBoundary(squareA)
	require.NoError(t, err)

	tests := []struct {
		name    string
		other   string
		related bool
		touches bool
	}{
		{"shared edge", squareB, true, true},
		{"disjoint", squareFar, false, false},
		{"overlap", overlapA, true, false},
		{"contained", insideA, true, false},
		{"identical", squareA, true, false},
		{"corner only", "POLYGON((10 10, 20 10, 20 20, 10 20, 10 10))", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other, err := a.ParseBoundary(tt.other)
			require.NoError(t, err)

			got, err := a.Related(base, other)
			require.NoError(t, err)
			assert.Equal(t, tt.related, got)

			rev, err := a.Related(other, base)
			require.NoError(t, err)
			assert.Equal(t, got, rev, "related must be symmetric")

			touch, err := a.Touches(base, other)
			require.NoError(t, err)
			assert.Equal(t, tt.touches, touch)
		})
	}
}

func TestNilGeometryErrors(t *testing.T) {
	a := NewAdapter()
	g, err := a.ParseBoundary(squareA)
	require.NoError(t, err)

	_, err = a.Related(g, nil)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))
	_, err = a.Touches(nil, g)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))
	_, err = a.Union(nil, g)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))
	_, err = a.Area(nil)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))
	_, err = a.Perimeter(nil)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))
	_, err = a.WKT(nil)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))

	b, err := a.Bounds(nil)
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestUnionMeasurements(t *testing.T) {
	a := NewAdapter()
	g1, err := a.ParseBoundary(squareA)
	require.NoError(t, err)
	g2, err := a.ParseBoundary(squareB)
	require.NoError(t, err)

	u, err := a.Union(g1, g2)
	require.NoError(t, err)

	area, err := a.Area(u)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, area, 1e-9)

	perimeter, err := a.Perimeter(u)
	require.NoError(t, err)
	assert.InDelta(t, 60.0, perimeter, 1e-9)

	text, err := a.WKT(u)
	require.NoError(t, err)
	assert.Contains(t, text, "POLYGON")

	bounds, err := a.Bounds(u)
	require.NoError(t, err)
	assert.Equal(t, 0.0, bounds.MinX)
	assert.Equal(t, 20.0, bounds.MaxX)
}

func TestCascadedUnion(t *testing.T) {
	a := NewAdapter()
	parts := []string{squareA, squareB, "POLYGON((20 0, 30 0, 30 10, 20 10, 20 0))", squareFar}

	geoms := make([]*geos.Geom, 0, len(parts))
	for _, p := range parts {
		g, err := a.ParseBoundary(p)
		require.NoError(t, err)
		geoms = append(geoms, g)
	}

	u, err := a.CascadedUnion(geoms)
	require.NoError(t, err)
	area, err := a.Area(u)
	require.NoError(t, err)
	assert.InDelta(t, 400.0, area, 1e-9)

	_, err = a.CascadedUnion(nil)
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))

	_, err = a.CascadedUnion([]*geos.Geom{geoms[0], nil})
	assert.True(t, errors.Is(err, diagnostics.ErrGeometryOperation))
}

func TestParsePredicate(t *testing.T) {
	a := NewAdapter()
	g1, err := a.ParseBoundary(squareA)
	require.NoError(t, err)
	g2, err := a.ParseBoundary(overlapA)
	require.NoError(t, err)

	related, err := ParsePredicate("")
	require.NoError(t, err)
	ok, err := related(a, g1, g2)
	require.NoError(t, err)
	assert.True(t, ok)

	touches, err := ParsePredicate("Touches")
	require.NoError(t, err)
	ok, err = touches(a, g1, g2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ParsePredicate("crosses")
	assert.Error(t, err)
}

func TestCheckGeometry(t *testing.T) {
	a := NewAdapter()
	problems, err := a.CheckGeometry(
		[]string{"1", "2", "3"},
		[]string{squareA, "POLYGON((0 0, 1", "POLYGON((0 0, 10 10, 10 0, 0 10, 0 0))"},
	)
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "2", problems[0].ID)
	assert.Equal(t, 1, problems[0].Ref)
	assert.Equal(t, "3", problems[1].ID)
	assert.Contains(t, problems[1].ErrorMessage, "invalid geometry")

	_, err = a.CheckGeometry([]string{"1"}, nil)
	assert.Error(t, err)
}
