// World generation using layered simplex noise.
// Heights come from one noise layer and rock outcrops from a second; both
// are quantized so neighbouring floors differ by walkable steps.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/actorcore/internal/tile"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Cols, Rows int
	Seed       int64   // Random seed (0 = random)
	WaterLvl   float64 // Elevation below which tiles flood (0.0-1.0)
	RockLvl    float64 // Rock noise above which tiles become walls (0.0-1.0)
	MaxHeight  int16   // Floor height at elevation 1.0
	Ladders    int     // Ladders placed against walls
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Cols:      64,
		Rows:      64,
		WaterLvl:  0.22,
		RockLvl:   0.78,
		MaxHeight: 48,
		Ladders:   4,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Cols:      16,
		Rows:      16,
		Seed:      42,
		WaterLvl:  0.15,
		RockLvl:   0.9,
		MaxHeight: 16,
	}
}

// heightStep is the quantum floor heights are rounded to.
const heightStep = 8

// Generate creates a complete map with floors, water, walls and ladders.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	rockNoise := opensimplex.NewNormalized(seed + 1)

	m := NewMap(cfg.Cols, cfg.Rows)

	for v := 0; v < cfg.Rows; v++ {
		for u := 0; u < cfg.Cols; u++ {
			t := m.At(u, v)
			x, y := float64(u), float64(v)

			elev := octaveNoise(elevNoise, x, y, 4, 0.06, 0.5)
			rock := octaveNoise(rockNoise, x, y, 2, 0.15, 0.5)

			switch {
			case u == 0 || v == 0 || u == cfg.Cols-1 || v == cfg.Rows-1:
				t.Terrain, t.Height = TerrainWall, WallHeight
			case elev < cfg.WaterLvl:
				t.Terrain, t.Height = TerrainWater, WaterBottom
			case rock > cfg.RockLvl:
				t.Terrain, t.Height = TerrainWall, WallHeight
			default:
				t.Terrain = TerrainGround
				span := 1.0 - cfg.WaterLvl
				h := int16((elev - cfg.WaterLvl) / span * float64(cfg.MaxHeight))
				t.Height = h / heightStep * heightStep
			}
		}
	}

	smoothSteps(m)
	placeLadders(m, cfg.Ladders, seed)

	return m
}

// smoothSteps turns ground tiles that sit one step below a neighbour into
// stairs so walkers are not stopped by every height change.
func smoothSteps(m *Map) {
	for v := 1; v < m.Rows-1; v++ {
		for u := 1; u < m.Cols-1; u++ {
			t := m.At(u, v)
			if t.Terrain != TerrainGround {
				continue
			}
			for _, d := range [...]tile.Direction{tile.UpRight, tile.UpLeft, tile.DownLeft, tile.DownRight} {
				s := d.Step()
				n := m.At(u+int(s.U), v+int(s.V))
				if n != nil && n.Terrain == TerrainGround && n.Height == t.Height+tile.TileUVSize {
					t.Terrain = TerrainStairs
					t.StairDir = d
					break
				}
			}
		}
	}
}

// placeLadders converts walls that border open ground into ladders.
func placeLadders(m *Map, n int, seed int64) {
	rng := rand.New(rand.NewSource(seed + 100))
	for tries := 0; n > 0 && tries < n*200; tries++ {
		u, v := 1+rng.Intn(m.Cols-2), 1+rng.Intn(m.Rows-2)
		if m.At(u, v).Terrain != TerrainWall {
			continue
		}
		for _, d := range [...]tile.Direction{tile.UpRight, tile.UpLeft, tile.DownLeft, tile.DownRight} {
			s := d.Step()
			floor := m.At(u+int(s.U), v+int(s.V))
			if floor == nil || floor.Terrain != TerrainGround {
				continue
			}
			PlaceLadder(m, u, v, d, floor.Height, floor.Height+48)
			n--
			break
		}
	}
}

// PlaceLadder makes tile (u, v) a ladder climbed from side face. The tile
// becomes a ledge at top.
func PlaceLadder(m *Map, u, v int, face tile.Direction, base, top int16) {
	t := m.At(u, v)
	if t == nil {
		return
	}
	*t = Tile{Terrain: TerrainLadder, Height: top, Face: face, Base: base, Top: top, Roof: t.Roof}
}

// PlaceStairs makes tile (u, v) stairs ascending toward dir from base.
func PlaceStairs(m *Map, u, v int, dir tile.Direction, base int16) {
	if t := m.At(u, v); t != nil {
		*t = Tile{Terrain: TerrainStairs, Height: base, StairDir: dir, Roof: t.Roof}
	}
}

// Fill sets every tile in the rectangle [u0,u1) x [v0,v1) to t.
func Fill(m *Map, u0, v0, u1, v1 int, t Tile) {
	for v := v0; v < v1; v++ {
		for u := u0; u < u1; u++ {
			if p := m.At(u, v); p != nil {
				*p = t
			}
		}
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
