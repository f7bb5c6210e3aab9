package analysis

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

const (
	squareA = "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0))"
	squareB = "POLYGON((10 0, 20 0, 20 10, 10 10, 10 0))"
	// 9 wide, area 90
	squareC   = "POLYGON((20 0, 29 0, 29 10, 20 10, 20 0))"
	squareD   = "POLYGON((0 10, 10 10, 10 20, 0 20, 0 10))"
	squareFar = "POLYGON((100 100, 110 100, 110 110, 100 110, 100 100))"
	overlapA  = "POLYGON((5 0, 15 0, 15 10, 5 10, 5 0))"
	malformed = "POLYGON((0 0, 10 0, 10"
)

func parcel(id, owner, boundary, area string) parcels.Parcel {
	return parcels.New(parcels.Record{
		ID:           id,
		ParcelID:     "par-" + id,
		ParcelNumber: "num-" + id,
		Owner:        owner,
		Boundary:     boundary,
		Area:         area,
		Perimeter:    "40",
		Parish:       "Sé",
		Municipality: "Funchal",
		Island:       "Madeira",
	})
}

// scenario is A (X, 100) touching B (X, 100) touching C (Y, 90).
func scenario() []parcels.Parcel {
	return []parcels.Parcel{
		parcel("A", "X", squareA, "100"),
		parcel("B", "X", squareB, "100"),
		parcel("C", "Y", squareC, "90"),
	}
}

// grid returns n×n unit-10 squares with owners cycling through owners.
func grid(n int, owners ...string) []parcels.Parcel {
	var ps []parcels.Parcel
	k := 0
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			x0, y0 := float64(x*10), float64(y*10)
			boundary := fmt.Sprintf("POLYGON((%g %g, %g %g, %g %g, %g %g, %g %g))",
				x0, y0, x0+10, y0, x0+10, y0+10, x0, y0+10, x0, y0)
			ps = append(ps, parcel(fmt.Sprintf("g%02d", k), owners[k%len(owners)], boundary, "100"))
			k++
		}
	}
	return ps
}

func testOptions() Options {
	return Options{Workers: 4, Logger: zap.NewNop()}
}

// memberSets canonicalizes a merge result into sorted member-id sets.
func memberSets(ps []parcels.Parcel) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = parcels.MergedID(p.SourceIDs())
	}
	sort.Strings(out)
	return out
}
