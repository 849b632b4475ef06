package task

import (
	"slices"

	"github.com/talgya/actorcore/internal/tile"
)

// Repulsor is a point, relative to the actor, that pushes the actor away
// with the given strength.
type Repulsor struct {
	Vector   tile.Point
	Strength int16
}

// maxRepulsors is how many of the nearest repulsors are weighed.
const maxRepulsors = 6

// ComputeRepulsionVector sums the push of every repulsor. Each one is
// weighted by the inverse square of its distance, so near repulsors
// dominate; a repulsor on top of the actor gets the full weight of 4096.
func ComputeRepulsionVector(reps []Repulsor) tile.Point {
	var u, v, z int32
	for _, r := range reps {
		dist := int32(r.Vector.QuickHDistance()) + int32(tile.Abs(r.Vector.Z))
		weight := int32(4096)
		if dist != 0 {
			weight = 4096 / (dist * dist)
		}
		scale := int32(r.Strength) * weight
		u -= int32(r.Vector.U) * scale / 16
		v -= int32(r.Vector.V) * scale / 16
		z -= int32(r.Vector.Z) * scale / 16
	}
	return tile.Point{U: int16(u), V: int16(v), Z: int16(z)}
}

// nearest keeps the n repulsors closest to the actor, in order of
// distance. Ties keep their input order.
func nearest(reps []Repulsor, n int) []Repulsor {
	slices.SortStableFunc(reps, func(a, b Repulsor) int {
		return int(a.Vector.QuickHDistance()) - int(b.Vector.QuickHDistance())
	})
	return reps[:min(n, len(reps))]
}
