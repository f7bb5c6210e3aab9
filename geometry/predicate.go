package geometry

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-geos"
)

// Predicate decides whether two parsed boundaries count as adjacent. It
// must give the same answer for (a, b) and (b, a).
type Predicate func(a *Adapter, g1, g2 *geos.Geom) (bool, error)

const (
	PredicateNameRelated = "related"
	PredicateNameTouches = "touches"
)

// PredicateRelated treats any non-disjoint pair as adjacent, including
// overlapping and duplicated parcels.
func PredicateRelated(a *Adapter, g1, g2 *geos.Geom) (bool, error) {
	return a.Related(g1, g2)
}

// PredicateTouches only accepts pairs that share boundary points with
// disjoint interiors.
func PredicateTouches(a *Adapter, g1, g2 *geos.Geom) (bool, error) {
	return a.Touches(g1, g2)
}

func ParsePredicate(name string) (Predicate, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PredicateNameRelated:
		return PredicateRelated, nil
	case PredicateNameTouches:
		return PredicateTouches, nil
	default:
		return nil, fmt.Errorf("unknown adjacency predicate %q", name)
	}
}
