package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/bsaid97/go-parcel-consolidator/config"
	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
	"github.com/bsaid97/go-parcel-consolidator/parcels"
)

// Potential scores the area parity of a swap between parcels of areas a
// and b. It must be symmetric and return values in [0, 1].
type Potential func(a, b float64) float64

const (
	PotentialNameRatio             = config.PotentialRatio
	PotentialNameInverseDifference = config.PotentialInverseDifference
)

// PotentialRatio is min(a,b)/max(a,b). It does not depend on the area unit.
func PotentialRatio(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi == 0 {
		return 0
	}
	return math.Min(a, b) / hi
}

// PotentialInverseDifference is 1/(1+|a-b|). Its scale depends on the area
// unit, so thresholds tuned for PotentialRatio do not carry over.
func PotentialInverseDifference(a, b float64) float64 {
	return 1 / (1 + math.Abs(a-b))
}

func ParsePotential(name string) (Potential, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PotentialNameRatio:
		return PotentialRatio, nil
	case PotentialNameInverseDifference:
		return PotentialInverseDifference, nil
	default:
		return nil, fmt.Errorf("unknown swap potential %q", name)
	}
}

// Suggestion proposes that parcel A changes hands to the owner of B.
type Suggestion struct {
	A         parcels.Parcel `json:"a"`
	B         parcels.Parcel `json:"b"`
	Potential float64        `json:"potential"`
}

// SwapReport holds the ranked suggestions and the average area per
// involved owner before the swaps, after them, and after merging the
// swapped parcels.
type SwapReport struct {
	Suggestions    []Suggestion             `json:"suggestions"`
	InvolvedOwners []string                 `json:"involvedOwners"`
	Before         map[string]float64       `json:"before"`
	After          map[string]float64       `json:"after"`
	AfterMerge     map[string]float64       `json:"afterMerge"`
	Diagnostics    []diagnostics.Diagnostic `json:"diagnostics"`
}

// SuggestSwaps ranks ownership swaps between parcels of different owners
// where the receiving owner already holds a parcel adjacent to the one it
// would acquire.
//
// A pair is oriented with the lower id as A when the owner of that parcel
// qualifies. Otherwise the reverse orientation is tried, so a pair is
// suggested whenever either owner holds a parcel next to the other one.
//
// The swaps are then simulated on a copy of ps in rank order. Each swap
// gives A the current owner of B in the copy, which may already differ
// from the owner B had in ps because of an earlier swap: the order of the
// suggestions changes the simulated outcome.
func SuggestSwaps(ps []parcels.Parcel, g *Graph, opts Options) (*SwapReport, error) {
	if g == nil || g.Len() != len(ps) {
		return nil, fmt.Errorf("swap suggestions: graph does not match the %d parcels", len(ps))
	}
	opts = opts.withDefaults()
	logger := opts.Logger.Named("swaps")
	diags := diagnostics.NewCollector("swaps", logger)

	owners := canonicalOwners(ps)
	candidates := swapCandidates(ps, g, owners)

	reported := make(map[int]bool)
	reportArea := func(i int) {
		if !reported[i] {
			reported[i] = true
			diags.Warn(diagnostics.KindNumericParse, ps[i].Area.Err, ps[i].ID)
		}
	}

	accepted := []swapPair{}
	for _, c := range candidates {
		a, b := ps[c.a].Area, ps[c.b].Area
		if !a.Valid() || !b.Valid() {
			if !a.Valid() {
				reportArea(c.a)
			}
			if !b.Valid() {
				reportArea(c.b)
			}
			continue
		}
		if a.Value == 0 && b.Value == 0 {
			continue
		}
		c.potential = opts.Potential(a.Value, b.Value)
		if c.potential >= opts.SwapThreshold {
			accepted = append(accepted, c)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		x, y := accepted[i], accepted[j]
		if x.potential != y.potential {
			return x.potential > y.potential
		}
		if ps[x.a].ID != ps[y.a].ID {
			return ps[x.a].ID < ps[y.a].ID
		}
		return ps[x.b].ID < ps[y.b].ID
	})

	report := &SwapReport{
		Suggestions:    make([]Suggestion, len(accepted)),
		InvolvedOwners: []string{},
		Before:         map[string]float64{},
		After:          map[string]float64{},
		AfterMerge:     map[string]float64{},
	}
	involved := make(map[string]struct{})
	for k, c := range accepted {
		report.Suggestions[k] = Suggestion{
			A:         parcels.Clone(ps[c.a : c.a+1])[0],
			B:         parcels.Clone(ps[c.b : c.b+1])[0],
			Potential: c.potential,
		}
		involved[owners[c.a]] = struct{}{}
		involved[owners[c.b]] = struct{}{}
	}
	for o := range involved {
		report.InvolvedOwners = append(report.InvolvedOwners, o)
	}
	sort.Strings(report.InvolvedOwners)

	if len(accepted) > 0 {
		unparsed := make([]bool, len(ps))
		for i := range ps {
			unparsed[i] = !g.Parsed[i]
		}
		report.Before = restrict(averagePerOwner(ps, unparsed), involved)

		working := parcels.Clone(ps)
		for _, c := range accepted {
			working[c.a].Owner = working[c.b].Owner
		}
		report.After = restrict(averagePerOwner(working, unparsed), involved)

		merged, mergeDiags, err := Merge(working, g, opts)
		if err != nil {
			return nil, fmt.Errorf("swap suggestions: %w", err)
		}
		for _, d := range mergeDiags {
			diags.Warn(d.Kind, d.Err, d.ParcelIDs...)
		}
		report.AfterMerge = restrict(averagePerOwner(merged, unparsedAfterMerge(merged, g)), involved)
	}

	report.Diagnostics = diags.Items()
	logger.Info("swap suggestions ranked",
		zap.Int("candidates", len(candidates)),
		zap.Int("suggestions", len(report.Suggestions)),
		zap.Int("involvedOwners", len(report.InvolvedOwners)),
		zap.Float64("threshold", opts.SwapThreshold),
		zap.Int("diagnostics", len(report.Diagnostics)))
	return report, nil
}

type swapPair struct {
	a, b      int
	potential float64
}

// swapCandidates lists each unordered pair of parsed parcels with different
// owners where the owner of one holds a parcel adjacent to the other. The
// pair is oriented with the lower id first when that owner qualifies.
func swapCandidates(ps []parcels.Parcel, g *Graph, owners []string) []swapPair {
	holdings := make(map[string][]int)
	for i, o := range owners {
		if g.Parsed[i] {
			holdings[o] = append(holdings[o], i)
		}
	}

	// qualifies[{p,q}] is true when owner(p) holds a parcel adjacent to q.
	qualifies := make(map[[2]int]bool)
	for q := range ps {
		seen := make(map[string]bool)
		for _, n := range g.Neighbors[q] {
			o := owners[n]
			if o == owners[q] || seen[o] {
				continue
			}
			seen[o] = true
			for _, p := range holdings[o] {
				qualifies[[2]int{p, q}] = true
			}
		}
	}

	pairs := make(map[[2]int]struct{})
	for k := range qualifies {
		lo, hi := k[0], k[1]
		if lowerID(ps, hi, lo) {
			lo, hi = hi, lo
		}
		pairs[[2]int{lo, hi}] = struct{}{}
	}

	out := make([]swapPair, 0, len(pairs))
	for k := range pairs {
		lo, hi := k[0], k[1]
		if qualifies[[2]int{lo, hi}] {
			out = append(out, swapPair{a: lo, b: hi})
		} else {
			out = append(out, swapPair{a: hi, b: lo})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

// lowerID orders parcels by id, then by position.
func lowerID(ps []parcels.Parcel, i, j int) bool {
	if ps[i].ID != ps[j].ID {
		return ps[i].ID < ps[j].ID
	}
	return i < j
}

func restrict(m map[string]float64, keep map[string]struct{}) map[string]float64 {
	out := make(map[string]float64, len(keep))
	for o := range keep {
		if v, ok := m[o]; ok {
			out[o] = v
		}
	}
	return out
}

// unparsedAfterMerge marks the unmerged parcels whose boundary did not
// parse in g. Merged parcels always come from parsed boundaries.
func unparsedAfterMerge(merged []parcels.Parcel, g *Graph) []bool {
	out := make([]bool, len(merged))
	for i, p := range merged {
		if p.Merged() {
			continue
		}
		if v, ok := g.Index(p.ID); ok {
			out[i] = !g.Parsed[v]
		}
	}
	return out
}
