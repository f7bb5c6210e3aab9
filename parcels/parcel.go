// Package parcels models cadastral parcels and loads them from tabular
// (CSV) or shapefile sources.
package parcels

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
)

// MergedIDSeparator joins member ids into the id of a merged parcel.
const MergedIDSeparator = "_"

// Measure is a numeric attribute kept together with its source text.
type Measure struct {
	Raw   string  `json:"raw"`
	Value float64 `json:"value"`
	Err   error   `json:"-"`
}

// ParseMeasure accepts finite, non-negative reals. Both "." and "," are
// accepted as decimal separator.
func ParseMeasure(raw string) Measure {
	m := Measure{Raw: raw}
	text := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	v, err := strconv.ParseFloat(text, 64)
	switch {
	case err != nil:
		m.Err = fmt.Errorf("value %q is not a number: %w", raw, diagnostics.ErrNumericParse)
	case math.IsNaN(v) || math.IsInf(v, 0):
		m.Err = fmt.Errorf("value %q is not finite: %w", raw, diagnostics.ErrNumericParse)
	case v < 0:
		m.Err = fmt.Errorf("value %q is negative: %w", raw, diagnostics.ErrNumericParse)
	default:
		m.Value = v
	}
	return m
}

// MeasureOf builds a valid Measure from a computed value.
func MeasureOf(v float64) Measure {
	return Measure{Raw: strconv.FormatFloat(v, 'f', -1, 64), Value: v}
}

func (m Measure) Valid() bool { return m.Err == nil }

// Parcel is a single cadastral land unit.
type Parcel struct {
	ID           string  `json:"id"`
	ParcelID     string  `json:"parcelId"`
	ParcelNumber string  `json:"parcelNumber"`
	Owner        string  `json:"owner"`
	Boundary     string  `json:"boundary"`
	Area         Measure `json:"area"`
	Perimeter    Measure `json:"perimeter"`
	Parish       string  `json:"parish"`
	Municipality string  `json:"municipality"`
	Island       string  `json:"island"`
	// Members lists the original ids of a merged parcel, sorted.
	Members []string `json:"members,omitempty"`
}

// Record is the raw text of one source row.
type Record struct {
	ID, ParcelID, ParcelNumber   string
	Perimeter, Area              string
	Boundary                     string
	Owner                        string
	Parish, Municipality, Island string
}

// New builds a Parcel from raw source text. The owner is case-folded here
// once so that engines can compare owners with ==.
func New(r Record) Parcel {
	return Parcel{
		ID:           strings.TrimSpace(r.ID),
		ParcelID:     strings.TrimSpace(r.ParcelID),
		ParcelNumber: strings.TrimSpace(r.ParcelNumber),
		Owner:        CanonicalOwner(r.Owner),
		Boundary:     strings.TrimSpace(r.Boundary),
		Area:         ParseMeasure(r.Area),
		Perimeter:    ParseMeasure(r.Perimeter),
		Parish:       strings.TrimSpace(r.Parish),
		Municipality: strings.TrimSpace(r.Municipality),
		Island:       strings.TrimSpace(r.Island),
	}
}

func CanonicalOwner(owner string) string {
	return cases.Fold().String(strings.TrimSpace(owner))
}

// SourceIDs returns the original parcel ids this parcel stands for.
func (p Parcel) SourceIDs() []string {
	if len(p.Members) > 0 {
		return p.Members
	}
	return []string{p.ID}
}

func (p Parcel) Merged() bool { return len(p.Members) > 1 }

// MergedID is the id of the parcel that consolidates ids: the sorted ids
// joined by MergedIDSeparator, whatever order they come in.
func MergedID(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, MergedIDSeparator)
}

// Clone copies the parcel so that a working set can be mutated freely.
func Clone(ps []Parcel) []Parcel {
	out := make([]Parcel, len(ps))
	copy(out, ps)
	for i := range out {
		if out[i].Members != nil {
			out[i].Members = append([]string(nil), out[i].Members...)
		}
	}
	return out
}

// IDs lists parcel ids in slice order.
func IDs(ps []Parcel) []string {
	ids := make([]string, len(ps))
	for i, p := range ps {
		ids[i] = p.ID
	}
	return ids
}
