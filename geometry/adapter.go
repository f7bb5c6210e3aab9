// Package geometry wraps GEOS for the parcel engines: boundary parsing,
// topological predicates, union and measurements.
//
// go-geos panics when GEOS reports an error inside an operation. Every
// exported method here recovers those panics and returns an error wrapping
// diagnostics.ErrGeometryOperation, so one broken geometry cannot take
// down a batch.
package geometry

import (
	"fmt"
	"strings"

	"github.com/twpayne/go-geos"

	"github.com/bsaid97/go-parcel-consolidator/diagnostics"
)

// Adapter owns a GEOS context. Calls on one context are serialized by
// go-geos, so an Adapter is safe for concurrent use.
type Adapter struct {
	ctx *geos.Context
}

func NewAdapter() *Adapter {
	return &Adapter{ctx: geos.NewContext()}
}

// ParseBoundary parses WKT, or GeoJSON when the text is a JSON object.
// Only non-empty, valid polygons and multipolygons are accepted.
func (a *Adapter) ParseBoundary(text string) (g *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("parse boundary: %v: %w", r, diagnostics.ErrGeometryParse)
		}
	}()

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty boundary text: %w", diagnostics.ErrGeometryParse)
	}

	if strings.HasPrefix(text, "{") {
		g, err = a.ctx.NewGeomFromGeoJSON(text)
	} else {
		g, err = a.ctx.NewGeomFromWKT(text)
	}
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, diagnostics.ErrGeometryParse)
	}

	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
	default:
		return nil, fmt.Errorf("non-polygon geometry (type %d): %w", g.TypeID(), diagnostics.ErrGeometryParse)
	}
	if g.IsEmpty() {
		return nil, fmt.Errorf("empty geometry: %w", diagnostics.ErrGeometryParse)
	}
	if !g.IsValid() {
		return nil, fmt.Errorf("invalid geometry: %s: %w", g.IsValidReason(), diagnostics.ErrGeometryParse)
	}
	return g, nil
}

// Related reports whether a and b are not disjoint: they touch, overlap,
// or one contains the other.
func (a *Adapter) Related(g1, g2 *geos.Geom) (ok bool, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "related")
	if g1 == nil || g2 == nil {
		return false, fmt.Errorf("related on nil geometry: %w", diagnostics.ErrGeometryOperation)
	}
	return g1.Intersects(g2), nil
}

// Touches reports whether the boundaries of a and b meet while their
// interiors stay disjoint.
func (a *Adapter) Touches(g1, g2 *geos.Geom) (ok bool, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "touches")
	if g1 == nil || g2 == nil {
		return false, fmt.Errorf("touches on nil geometry: %w", diagnostics.ErrGeometryOperation)
	}
	return g1.Touches(g2), nil
}

func (a *Adapter) Union(g1, g2 *geos.Geom) (u *geos.Geom, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "union")
	if g1 == nil || g2 == nil {
		return nil, fmt.Errorf("union on nil geometry: %w", diagnostics.ErrGeometryOperation)
	}
	return g1.Union(g2), nil
}

func (a *Adapter) Area(g *geos.Geom) (area float64, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "area")
	if g == nil {
		return 0, fmt.Errorf("area of nil geometry: %w", diagnostics.ErrGeometryOperation)
	}
	return g.Area(), nil
}

// Perimeter is the total boundary length, holes included.
func (a *Adapter) Perimeter(g *geos.Geom) (length float64, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "perimeter")
	if g == nil {
		return 0, fmt.Errorf("perimeter of nil geometry: %w", diagnostics.ErrGeometryOperation)
	}
	return g.Length(), nil
}

func (a *Adapter) WKT(g *geos.Geom) (text string, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "wkt")
	if g == nil {
		return "", fmt.Errorf("wkt of nil geometry: %w", diagnostics.ErrGeometryOperation)
	}
	return g.ToWKT(), nil
}

// Bounds returns the bounding box of g, or nil when g is nil.
func (a *Adapter) Bounds(g *geos.Geom) (b *geos.Box2D, err error) {
	defer recoverInto(&err, diagnostics.ErrGeometryOperation, "bounds")
	if g == nil {
		return nil, nil
	}
	return g.Bounds(), nil
}

func recoverInto(err *error, sentinel error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: %v: %w", op, r, sentinel)
	}
}
