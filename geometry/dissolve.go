package geometry

import (
	"fmt"

	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
)

// CascadedUnion unions geometries by splitting the slice in halves and
// merging the partial results, which keeps intermediate geometries small.
func (a *Adapter) CascadedUnion(geometries []*geos.Geom) (*geos.Geom, error) {
	switch len(geometries) {
	case 0:
		return nil, fmt.Errorf("cascaded union of no geometries: %w", diagnostics.ErrGeometryOperation)
	case 1:
		if geometries[0] == nil {
			return nil, fmt.Errorf("cascaded union of nil geometry: %w", diagnostics.ErrGeometryOperation)
		}
		return geometries[0], nil
	}

	mid := len(geometries) / 2
	left, err := a.CascadedUnion(geometries[:mid])
	if err != nil {
		return nil, err
	}
	right, err := a.CascadedUnion(geometries[mid:])
	if err != nil {
		return nil, err
	}

	return a.Union(left, right)
}
