package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

func TestAverageArea(t *testing.T) {
	avg, err := AverageArea(scenario())
	require.NoError(t, err)
	assert.InDelta(t, 290.0/3, avg, 1e-9)

	_, err = AverageArea(nil)
	assert.ErrorIs(t, err, diagnostics.ErrEmptyInput)

	_, err = AverageArea([]parcels.Parcel{parcel("A", "x", squareA, "n/a")})
	assert.ErrorIs(t, err, diagnostics.ErrEmptyInput)
}

func TestAverageAreaPerOwner(t *testing.T) {
	ps := append(scenario(),
		parcel("D", "x", squareD, "40"),
		parcel("E", "z", squareFar, "bad"),
	)
	got := AverageAreaPerOwner(ps)
	assert.Equal(t, map[string]float64{"x": 80, "y": 90}, got)
}

func TestSummarizeArea(t *testing.T) {
	ps := append(scenario(), parcel("E", "z", squareFar, "-5"))
	c := diagnostics.NewCollector("areas", zap.NewNop())

	s, err := SummarizeArea("Sé", ps, c)
	require.NoError(t, err)
	assert.Equal(t, AreaSummary{Label: "Sé", Count: 3, Skipped: 1, TotalArea: 290, AverageArea: 290.0 / 3}, s)

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, diagnostics.KindNumericParse, items[0].Kind)
	assert.Equal(t, []string{"E"}, items[0].ParcelIDs)

	_, err = SummarizeArea("empty", nil, nil)
	assert.ErrorIs(t, err, diagnostics.ErrEmptyInput)
}
