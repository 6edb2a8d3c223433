// Package spatial implements the uniform grid used as the collision broad phase.
package spatial

import (
	"math"

	"github.com/citydefense/server/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultCellSize gives one world unit per cell.
const DefaultCellSize = 1.0

// CellKey is an integer cell coordinate.
type CellKey struct {
	X, Y, Z int32
}

// Grid buckets entities by every cell their bounding box overlaps.
// It is rebuilt from scratch each tick: Clear, then Insert everything.
// Cells are visited in the order they were first occupied, so a rebuild
// from the same input yields the same traversal.
// Accessed only from the game loop goroutine, no locks.
type Grid struct {
	cellSize float64
	index    map[CellKey]int
	keys     []CellKey
	buckets  [][]ecs.EntityID
	entries  int
}

func NewGrid(cellSize float64) *Grid {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	return &Grid{
		cellSize: cellSize,
		index:    make(map[CellKey]int, 1024),
		keys:     make([]CellKey, 0, 1024),
		buckets:  make([][]ecs.EntityID, 0, 1024),
	}
}

func (g *Grid) CellSize() float64 { return g.cellSize }

// Clear empties every cell, keeping allocated capacity.
func (g *Grid) Clear() {
	clear(g.index)
	g.keys = g.keys[:0]
	for i := range g.buckets {
		g.buckets[i] = g.buckets[i][:0]
	}
	g.entries = 0
}

// MaxCoord bounds cell coordinates. Positions beyond it, and non-finite
// ones, land in the edge cells; the narrow phase still decides exactly.
const MaxCoord = 1 << 20

func (g *Grid) coord(v float64) int32 {
	c := math.Floor(v / g.cellSize)
	switch {
	case math.IsNaN(c):
		return 0
	case c > MaxCoord:
		return MaxCoord
	case c < -MaxCoord:
		return -MaxCoord
	}
	return int32(c)
}

// Bounds returns the inclusive cell range covered by a collider at pos with
// the given radius and capsule half-height: x and z extend by radius, y by
// radius+height.
func (g *Grid) Bounds(pos mgl64.Vec3, radius, height float64) (lo, hi CellKey) {
	h := radius + height
	lo = CellKey{g.coord(pos.X() - radius), g.coord(pos.Y() - h), g.coord(pos.Z() - radius)}
	hi = CellKey{g.coord(pos.X() + radius), g.coord(pos.Y() + h), g.coord(pos.Z() + radius)}
	return lo, hi
}

// Insert adds id to every cell its bounding box overlaps. Duplication across
// cells is intended: pairs straddling a boundary share at least one cell.
func (g *Grid) Insert(id ecs.EntityID, pos mgl64.Vec3, radius, height float64) {
	lo, hi := g.Bounds(pos, radius, height)
	for x := int(lo.X); x <= int(hi.X); x++ {
		for y := int(lo.Y); y <= int(hi.Y); y++ {
			for z := int(lo.Z); z <= int(hi.Z); z++ {
				g.add(CellKey{int32(x), int32(y), int32(z)}, id)
			}
		}
	}
}

func (g *Grid) add(k CellKey, id ecs.EntityID) {
	i, ok := g.index[k]
	if !ok {
		i = len(g.keys)
		g.index[k] = i
		g.keys = append(g.keys, k)
		if i == len(g.buckets) {
			g.buckets = append(g.buckets, make([]ecs.EntityID, 0, 4))
		}
	}
	g.buckets[i] = append(g.buckets[i], id)
	g.entries++
}

// Cell returns the entities in one cell.
func (g *Grid) Cell(k CellKey) []ecs.EntityID {
	i, ok := g.index[k]
	if !ok {
		return nil
	}
	return g.buckets[i]
}

// EachCell visits occupied cells in first-occupied order.
func (g *Grid) EachCell(fn func(k CellKey, ids []ecs.EntityID)) {
	for i, k := range g.keys {
		fn(k, g.buckets[i])
	}
}

// Occupied returns the number of non-empty cells.
func (g *Grid) Occupied() int { return len(g.keys) }

// Entries returns the total number of (cell, entity) insertions.
func (g *Grid) Entries() int { return g.entries }
