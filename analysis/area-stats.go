package analysis

import (
	"fmt"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

// AreaSummary aggregates the valid areas of a parcel set.
type AreaSummary struct {
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	Skipped     int     `json:"skipped"`
	TotalArea   float64 `json:"totalArea"`
	AverageArea float64 `json:"averageArea"`
}

// AverageArea is the mean of the valid areas in ps. It fails with
// diagnostics.ErrEmptyInput when no parcel has a valid area.
func AverageArea(ps []parcels.Parcel) (float64, error) {
	var total float64
	var n int
	for _, p := range ps {
		if p.Area.Valid() {
			total += p.Area.Value
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("average area of %d parcels without a valid area: %w", len(ps), diagnostics.ErrEmptyInput)
	}
	return total / float64(n), nil
}

// AverageAreaPerOwner maps each owner to the mean of its valid areas.
// Owners without a valid area are absent.
func AverageAreaPerOwner(ps []parcels.Parcel) map[string]float64 {
	return averagePerOwner(ps, nil)
}

// averagePerOwner skips parcels whose index is marked in exclude.
func averagePerOwner(ps []parcels.Parcel, exclude []bool) map[string]float64 {
	totals := make(map[string]float64)
	counts := make(map[string]int)
	for i, p := range ps {
		if !p.Area.Valid() || (exclude != nil && exclude[i]) {
			continue
		}
		o := parcels.CanonicalOwner(p.Owner)
		totals[o] += p.Area.Value
		counts[o]++
	}
	out := make(map[string]float64, len(totals))
	for o, t := range totals {
		out[o] = t / float64(counts[o])
	}
	return out
}

// SummarizeArea totals the valid areas of ps. Parcels with an invalid area
// are counted as skipped and reported on c when it is not nil.
func SummarizeArea(label string, ps []parcels.Parcel, c *diagnostics.Collector) (AreaSummary, error) {
	s := AreaSummary{Label: label}
	for _, p := range ps {
		if !p.Area.Valid() {
			s.Skipped++
			if c != nil {
				c.Report(p.Area.Err, p.ID)
			}
			continue
		}
		s.Count++
		s.TotalArea += p.Area.Value
	}
	if s.Count == 0 {
		return s, fmt.Errorf("summarize area %q: %w", label, diagnostics.ErrEmptyInput)
	}
	s.AverageArea = s.TotalArea / float64(s.Count)
	return s, nil
}
