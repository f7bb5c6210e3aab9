package utils

import (
	"math"
	"sort"

	"github.com/twpayne/go-geos"
)

// maxCellsPerGeometry bounds how many grid cells one bounding box may
// occupy. Larger boxes go to an overflow list checked against everything.
const maxCellsPerGeometry = 4096

// maxCellCoord keeps cell coordinates exactly representable and within int.
const maxCellCoord = 1 << 53

type cellKey struct {
	x, y int
}

// SpatialIndex is a uniform grid over bounding boxes. Two geometries that
// are not disjoint always have intersecting boxes, so the pairs it yields
// are a superset of the related pairs.
type SpatialIndex struct {
	geometries []*IndexedGeometry
	cellSize   float64
	grid       map[cellKey][]*IndexedGeometry
	overflow   []*IndexedGeometry
}

type IndexedGeometry struct {
	Index  int
	Bounds geos.Box2D
}

func NewSpatialIndex(cellSize float64) *SpatialIndex {
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = 1
	}
	return &SpatialIndex{
		geometries: make([]*IndexedGeometry, 0),
		cellSize:   cellSize,
		grid:       make(map[cellKey][]*IndexedGeometry),
	}
}

// AutoCellSize picks a cell edge equal to the mean of the larger side of
// each box, which keeps most boxes within a handful of cells.
func AutoCellSize(boxes []*geos.Box2D) float64 {
	var sum float64
	var n int
	for _, b := range boxes {
		if b == nil {
			continue
		}
		sum += math.Max(b.MaxX-b.MinX, b.MaxY-b.MinY)
		n++
	}
	if n == 0 || sum <= 0 {
		return 1
	}
	return sum / float64(n)
}

func (si *SpatialIndex) CellSize() float64 { return si.cellSize }

func (si *SpatialIndex) Len() int { return len(si.geometries) }

// Add indexes a bounding box under index. Nil boxes are ignored.
func (si *SpatialIndex) Add(index int, bounds *geos.Box2D) {
	if bounds == nil {
		return
	}
	ig := &IndexedGeometry{Index: index, Bounds: *bounds}
	si.geometries = append(si.geometries, ig)

	minX, minY, maxX, maxY, ok := si.cellRange(ig.Bounds)
	if !ok {
		si.overflow = append(si.overflow, ig)
		return
	}
	for x := minX; x <= maxX; x++ {
		for y := minY; y <= maxY; y++ {
			key := cellKey{x, y}
			si.grid[key] = append(si.grid[key], ig)
		}
	}
}

// cellRange returns the cells b spans. ok is false when b spans more than
// maxCellsPerGeometry cells or its cell coordinates do not fit an int.
func (si *SpatialIndex) cellRange(b geos.Box2D) (minX, minY, maxX, maxY int, ok bool) {
	fx0 := math.Floor(b.MinX / si.cellSize)
	fy0 := math.Floor(b.MinY / si.cellSize)
	fx1 := math.Floor(b.MaxX / si.cellSize)
	fy1 := math.Floor(b.MaxY / si.cellSize)
	for _, f := range []float64{fx0, fy0, fx1, fy1} {
		if math.IsNaN(f) || math.Abs(f) > maxCellCoord {
			return 0, 0, 0, 0, false
		}
	}
	if (fx1-fx0+1)*(fy1-fy0+1) > maxCellsPerGeometry {
		return 0, 0, 0, 0, false
	}
	return int(fx0), int(fy0), int(fx1), int(fy1), true
}

// CandidatePairs returns every pair (i, j), i < j, of indexed geometries
// whose boxes intersect, boundaries included. Pairs are sorted.
func (si *SpatialIndex) CandidatePairs() [][2]int {
	seen := make(map[[2]int]struct{})
	add := func(a, b *IndexedGeometry) {
		if a.Index == b.Index || !boxesIntersect(a.Bounds, b.Bounds) {
			return
		}
		pair := [2]int{a.Index, b.Index}
		if pair[0] > pair[1] {
			pair[0], pair[1] = pair[1], pair[0]
		}
		seen[pair] = struct{}{}
	}

	for _, cell := range si.grid {
		for i := 0; i < len(cell); i++ {
			for j := i + 1; j < len(cell); j++ {
				add(cell[i], cell[j])
			}
		}
	}
	for _, big := range si.overflow {
		for _, other := range si.geometries {
			add(big, other)
		}
	}

	pairs := make([][2]int, 0, len(seen))
	for p := range seen {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

func boxesIntersect(a, b geos.Box2D) bool {
	return a.MinX <= b.MaxX && b.MinX <= a.MaxX && a.MinY <= b.MaxY && b.MinY <= a.MaxY
}
