// Package world provides the island grid, terrain, resource deposits,
// and the simulated clock.
package world

import "math"

// Terrain classifies a tile. Water blocks movement.
type Terrain string

const (
	TerrainWater Terrain = "water"
	TerrainSand  Terrain = "sand"
	TerrainGrass Terrain = "grass"
)

// ResourceKind classifies a gatherable deposit. Empty means no deposit.
type ResourceKind string

const (
	ResourceNone       ResourceKind = ""
	ResourceFreshwater ResourceKind = "freshwater"
	ResourceFish       ResourceKind = "fish"
	ResourceFruit      ResourceKind = "fruit"
	ResourceTree       ResourceKind = "tree"
	ResourceWreckage   ResourceKind = "wreckage"
)

// KnownResource reports whether s names a resource kind.
func KnownResource(s string) bool {
	switch ResourceKind(s) {
	case ResourceFreshwater, ResourceFish, ResourceFruit, ResourceTree, ResourceWreckage:
		return true
	}
	return false
}

// Grid holds the island terrain and resource state. Terrain is immutable
// after generation; Kind and Amount are mutated by gathering and daily
// regeneration. Amount is zero wherever Kind is ResourceNone.
type Grid struct {
	Size    int
	Terrain [][]Terrain
	Kind    [][]ResourceKind
	Amount  [][]int
}

// NewGrid allocates an all-water grid of the given size.
func NewGrid(size int) *Grid {
	g := &Grid{
		Size:    size,
		Terrain: make([][]Terrain, size),
		Kind:    make([][]ResourceKind, size),
		Amount:  make([][]int, size),
	}
	for x := 0; x < size; x++ {
		g.Terrain[x] = make([]Terrain, size)
		g.Kind[x] = make([]ResourceKind, size)
		g.Amount[x] = make([]int, size)
		for y := 0; y < size; y++ {
			g.Terrain[x][y] = TerrainWater
		}
	}
	return g
}

// InBounds reports whether the tile coordinate is on the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Size && y >= 0 && y < g.Size
}

// Walkable reports whether the tile exists and is not water.
func (g *Grid) Walkable(x, y int) bool {
	return g.InBounds(x, y) && g.Terrain[x][y] != TerrainWater
}

// Clamp bounds a continuous position to the grid.
func (g *Grid) Clamp(x, y float64) (float64, float64) {
	return math.Max(0, math.Min(float64(g.Size-1), x)),
		math.Max(0, math.Min(float64(g.Size-1), y))
}

// Deposit is a snapshot of one resource cell, used by the sense step.
type Deposit struct {
	Kind   ResourceKind `json:"type"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Amount int          `json:"amount"`
}

// NearbyDeposits returns every non-empty deposit within a square window
// of the given radius around a continuous position. Full recompute every
// call; iteration order is row-major and therefore stable.
func (g *Grid) NearbyDeposits(x, y float64, radius int) []Deposit {
	var found []Deposit
	cx, cy := int(x), int(y)
	for tx := max(0, cx-radius); tx <= min(g.Size-1, cx+radius); tx++ {
		for ty := max(0, cy-radius); ty <= min(g.Size-1, cy+radius); ty++ {
			if g.Kind[tx][ty] != ResourceNone && g.Amount[tx][ty] > 0 {
				found = append(found, Deposit{
					Kind:   g.Kind[tx][ty],
					X:      tx,
					Y:      ty,
					Amount: g.Amount[tx][ty],
				})
			}
		}
	}
	return found
}
