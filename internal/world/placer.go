// Spawn placement: finds open floor for actors and lays out patrol routes.
package world

import (
	"math/rand"
	"sort"

	"github.com/talgya/actorcore/internal/tile"
)

// SpawnPoint is a scored location suitable for placing an actor.
type SpawnPoint struct {
	Location tile.Point
	Score    float64 // Openness of the surrounding floor
}

// PlaceSpawns picks up to n open ground tiles at least minDist tiles apart,
// most open first.
func PlaceSpawns(m *Map, seed int64, n, minDist int) []SpawnPoint {
	rng := rand.New(rand.NewSource(seed + 200))

	type scored struct {
		u, v  int
		score float64
	}
	var candidates []scored
	for v := 1; v < m.Rows-1; v++ {
		for u := 1; u < m.Cols-1; u++ {
			if s := openness(m, u, v); s > 0 {
				// Jitter so equally open tiles do not always resolve the same way.
				candidates = append(candidates, scored{u, v, s + rng.Float64()*0.01})
			}
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	var out []SpawnPoint
	for _, c := range candidates {
		if len(out) >= n {
			break
		}
		if tooClose(c.u, c.v, out, minDist) {
			continue
		}
		out = append(out, SpawnPoint{Location: m.Center(c.u, c.v), Score: c.score})
	}
	return out
}

// openness scores a tile by how many of its neighbours share its floor.
func openness(m *Map, u, v int) float64 {
	t := m.At(u, v)
	if t == nil || t.Terrain != TerrainGround {
		return 0
	}
	score := 0.0
	for dv := -2; dv <= 2; dv++ {
		for du := -2; du <= 2; du++ {
			n := m.At(u+du, v+dv)
			if n != nil && n.Terrain == TerrainGround && n.Height == t.Height {
				score++
			}
		}
	}
	return score / 25
}

func tooClose(u, v int, taken []SpawnPoint, minDist int) bool {
	for _, s := range taken {
		su, sv := s.Location.Tile()
		if abs(int(su)-u) < minDist && abs(int(sv)-v) < minDist {
			return true
		}
	}
	return false
}

// PatrolRoute builds a closed route visiting the given spawn points.
func PatrolRoute(points []SpawnPoint) []tile.Point {
	route := make([]tile.Point, len(points))
	for i, p := range points {
		route[i] = p.Location
	}
	return route
}
