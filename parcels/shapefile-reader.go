package parcels

import (
	"fmt"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// dbfNameLength is the longest field name a DBF header can hold.
const dbfNameLength = 10

var shapefileColumns = []string{
	ColumnObjectID, ColumnParcelID, ColumnParcelNumber, ColumnLength, ColumnArea,
	ColumnOwner, ColumnParish, ColumnMunicipality, ColumnIsland,
}

// LoadShapefile reads parcels from a .shp file and its .dbf attribute
// table. Polygon records are converted to WKT; other shape types leave the
// boundary empty so the engines report them as unparseable.
func LoadShapefile(path string) ([]Parcel, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer reader.Close()

	fields := reader.Fields()
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.String()
	}
	cols, err := columnIndex(header, shapefileColumns, matchDBFName)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var out []Parcel
	for reader.Next() {
		row, shape := reader.Shape()
		get := func(col string) string {
			if col == ColumnGeometry {
				return ""
			}
			return strings.TrimSpace(reader.ReadAttribute(row, cols[col]))
		}
		if get(ColumnObjectID) == "" {
			continue
		}

		rec := recordFrom(get)
		if poly, ok := shape.(*shp.Polygon); ok {
			text, err := polygonWKT(poly)
			if err != nil {
				return nil, fmt.Errorf("%s: record %d: %w", path, row, err)
			}
			rec.Boundary = text
		}
		out = append(out, New(rec))
	}
	if err := reader.Err(); err != nil {
		return nil, fmt.Errorf("read shapefile %s: %w", path, err)
	}
	return out, nil
}

// matchDBFName also accepts column names cut to the DBF length limit, so
// Shape_Length matches Shape_Leng.
func matchDBFName(want, got string) bool {
	if strings.EqualFold(want, got) {
		return true
	}
	return len(got) >= dbfNameLength && len(got) < len(want) && strings.EqualFold(want[:len(got)], got)
}

// polygonWKT groups shapefile rings into polygons. Clockwise rings start a
// new polygon, counter-clockwise rings are holes of the polygon before them.
func polygonWKT(poly *shp.Polygon) (string, error) {
	rings := splitParts(poly.Parts, poly.Points)

	var polygons [][][]geom.Coord
	for _, ring := range rings {
		if len(ring) < 4 {
			continue
		}
		if signedArea(ring) <= 0 || len(polygons) == 0 {
			polygons = append(polygons, [][]geom.Coord{ring})
			continue
		}
		last := len(polygons) - 1
		polygons[last] = append(polygons[last], ring)
	}

	switch len(polygons) {
	case 0:
		return "", fmt.Errorf("polygon record without rings")
	case 1:
		p, err := geom.NewPolygon(geom.XY).SetCoords(polygons[0])
		if err != nil {
			return "", err
		}
		return wkt.Marshal(p)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for _, coords := range polygons {
		p, err := geom.NewPolygon(geom.XY).SetCoords(coords)
		if err != nil {
			return "", err
		}
		if err := mp.Push(p); err != nil {
			return "", err
		}
	}
	return wkt.Marshal(mp)
}

func splitParts(parts []int32, points []shp.Point) [][]geom.Coord {
	rings := make([][]geom.Coord, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		ring := make([]geom.Coord, 0, end-start)
		for _, pt := range points[start:end] {
			ring = append(ring, geom.Coord{pt.X, pt.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// signedArea is positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}
