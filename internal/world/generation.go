// Island generation using simplex noise with radial falloff.
// A single landmass sits in the middle of the grid, ringed by sand and
// open water; deposits are placed by terrain.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds island generation parameters.
type GenConfig struct {
	Size         int     // grid edge length
	Seed         int64   // 0 = random
	IslandRadius float64 // approximate land radius in tiles
	SeaLevel     float64 // elevation threshold for water
	BeachLevel   float64 // elevation threshold for sand
}

// DefaultGenConfig returns the reference island layout.
func DefaultGenConfig(size int) GenConfig {
	return GenConfig{
		Size:         size,
		Seed:         0,
		IslandRadius: float64(size) / 3,
		SeaLevel:     0.30,
		BeachLevel:   0.42,
	}
}

// Generate builds a complete island grid with terrain and deposits.
func Generate(cfg GenConfig) *Grid {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	noise := opensimplex.NewNormalized(seed)
	rng := rand.New(rand.NewSource(seed + 1))
	g := NewGrid(cfg.Size)

	center := float64(cfg.Size) / 2

	for x := 0; x < cfg.Size; x++ {
		for y := 0; y < cfg.Size; y++ {
			// Multi-octave elevation, shaped by distance from center so
			// the coastline stays inside the grid.
			fx, fy := float64(x), float64(y)
			elev := octaveNoise(noise, fx, fy, 3, 0.12, 0.5)

			dist := math.Hypot(fx-center, fy-center)
			falloff := 1.0 - math.Pow(dist/cfg.IslandRadius, 2.2)
			if falloff < 0 {
				falloff = 0
			}
			elev *= falloff

			switch {
			case elev < cfg.SeaLevel:
				g.Terrain[x][y] = TerrainWater
			case elev < cfg.BeachLevel:
				g.Terrain[x][y] = TerrainSand
			default:
				g.Terrain[x][y] = TerrainGrass
			}
		}
	}

	placeDeposits(g, rng)
	return g
}

// octaveNoise samples layered simplex noise normalized to [0, 1].
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total, amplitude, maxAmp := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxAmp += amplitude
		amplitude *= persistence
		freq *= 2
	}
	return total / maxAmp
}

// placeDeposits seeds resource cells by terrain type.
func placeDeposits(g *Grid, rng *rand.Rand) {
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			switch g.Terrain[x][y] {
			case TerrainWater:
				if rng.Float64() < 0.10 {
					g.Kind[x][y] = ResourceFish
					g.Amount[x][y] = 3 + rng.Intn(6)
				}
			case TerrainGrass:
				switch roll := rng.Float64(); {
				case roll < 0.05:
					g.Kind[x][y] = ResourceFreshwater
					g.Amount[x][y] = 10 + rng.Intn(11)
				case roll < 0.07:
					g.Kind[x][y] = ResourceFruit
					g.Amount[x][y] = 3 + rng.Intn(5)
				case roll < 0.11:
					g.Kind[x][y] = ResourceTree
					g.Amount[x][y] = 3 + rng.Intn(5)
				}
			case TerrainSand:
				if rng.Float64() < 0.02 {
					g.Kind[x][y] = ResourceWreckage
					g.Amount[x][y] = 2 + rng.Intn(3)
				}
			}
		}
	}
}

// restockRange holds the daily regeneration amounts per kind.
var restockRange = map[ResourceKind][2]int{
	ResourceTree:       {3, 7},
	ResourceFreshwater: {5, 15},
	ResourceFruit:      {2, 5},
	ResourceFish:       {2, 6},
	ResourceWreckage:   {1, 3},
}

// RefreshDepleted rolls the daily restock chance for every depleted
// deposit and restocks a kind-specific random amount. Returns the number
// of cells restocked.
func (g *Grid) RefreshDepleted(rng *rand.Rand, prob float64) int {
	restocked := 0
	for x := 0; x < g.Size; x++ {
		for y := 0; y < g.Size; y++ {
			if g.Kind[x][y] == ResourceNone || g.Amount[x][y] > 0 {
				continue
			}
			if rng.Float64() >= prob {
				continue
			}
			r, ok := restockRange[g.Kind[x][y]]
			if !ok {
				continue
			}
			g.Amount[x][y] = r[0] + rng.Intn(r[1]-r[0]+1)
			restocked++
		}
	}
	return restocked
}
