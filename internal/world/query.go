package world

import "github.com/talgya/actorcore/internal/tile"

// surface returns the floor height of t under world point p.
func (m *Map) surface(t *Tile, p tile.Point) int16 {
	if t == nil {
		return WallHeight
	}
	if t.Terrain != TerrainStairs {
		return t.Height
	}
	step := t.StairDir.Step()
	fu, fv := int16(0), int16(0)
	switch {
	case step.U > 0:
		fu = p.U & (tile.TileUVSize - 1)
	case step.U < 0:
		fu = tile.TileUVSize - 1 - p.U&(tile.TileUVSize-1)
	}
	switch {
	case step.V > 0:
		fv = p.V & (tile.TileUVSize - 1)
	case step.V < 0:
		fv = tile.TileUVSize - 1 - p.V&(tile.TileUVSize-1)
	}
	if step.U != 0 && step.V != 0 {
		return t.Height + (fu+fv)/2
	}
	return t.Height + fu + fv
}

// surfaceAt returns the floor height under world point p.
func (m *Map) surfaceAt(p tile.Point) int16 {
	if p.U < 0 || p.V < 0 {
		return WallHeight
	}
	return m.surface(m.TileAt(p), p)
}

// footprint returns the corner sample points of b standing at p.
func footprint(b Body, p tile.Point) [4]tile.Point {
	c := b.Cross
	return [4]tile.Point{
		{U: p.U - c, V: p.V - c, Z: p.Z},
		{U: p.U + c, V: p.V - c, Z: p.Z},
		{U: p.U - c, V: p.V + c, Z: p.Z},
		{U: p.U + c, V: p.V + c, Z: p.Z},
	}
}

// terrainHit tests the floor under b's footprint. The center must be
// strictly above the floor (or touching it when touch is set); corners
// tolerate a smooth step so a body can stand beside a low ledge.
func (m *Map) terrainHit(b Body, at tile.Point, touch bool) bool {
	h := m.surfaceAt(at)
	if h > at.Z || (touch && h == at.Z) {
		return true
	}
	for _, p := range footprint(b, at) {
		if m.surfaceAt(p) > at.Z+tile.MaxSmoothStep {
			return true
		}
	}
	return false
}

// bodyHit returns the first other body overlapping b at the given point.
func (m *Map) bodyHit(b Body, at tile.Point, touch bool) (uint16, bool) {
	if m.Bodies == nil {
		return 0, false
	}
	for _, o := range m.Bodies.Bodies() {
		if o.ID == b.ID {
			continue
		}
		reach := b.Cross + o.Cross
		d := o.Location.Sub(at)
		if tile.Abs(d.U) >= reach || tile.Abs(d.V) >= reach {
			continue
		}
		top, otop := at.Z+b.Height, o.Location.Z+o.Height
		if touch {
			if at.Z <= otop && o.Location.Z <= top {
				return o.ID, true
			}
		} else if at.Z < otop && o.Location.Z < top {
			return o.ID, true
		}
	}
	return 0, false
}

// Blocked reports whether b would intersect terrain or another body at at.
func (m *Map) Blocked(b Body, at tile.Point) Blockage {
	if m.terrainHit(b, at, false) {
		return BlockTerrain
	}
	if _, hit := m.bodyHit(b, at, false); hit {
		return BlockObject
	}
	return BlockNone
}

// Contact is like Blocked but also counts touching a floor or body. It
// returns the ID of the body touched, or zero for terrain.
func (m *Map) Contact(b Body, at tile.Point) (Blockage, uint16) {
	if m.terrainHit(b, at, true) {
		return BlockTerrain, 0
	}
	if id, hit := m.bodyHit(b, at, true); hit {
		return BlockObject, id
	}
	return BlockNone, 0
}

// Walkable reports whether b can stand at at without a fall of more than
// two step heights.
func (m *Map) Walkable(b Body, at tile.Point) bool {
	if m.Blocked(b, at) != BlockNone {
		return false
	}
	return m.surfaceAt(at) >= at.Z-2*tile.MaxStepHeight
}

// SlopeHeight describes the surface under at.
func (m *Map) SlopeHeight(at tile.Point) Standing {
	t := m.TileAt(at)
	if t == nil || at.U < 0 || at.V < 0 {
		return Standing{Height: WallHeight, Terrain: TerrainWall}
	}
	return Standing{Height: m.surface(t, at), Terrain: t.Terrain, StairDir: t.StairDir}
}

// RoofID returns the roof over at, or zero under open sky.
func (m *Map) RoofID(at tile.Point) uint16 {
	if t := m.TileAt(at); t != nil && at.U >= 0 && at.V >= 0 {
		return t.Roof
	}
	return 0
}

// Ladder returns the first ladder tile within twice b's cross section of at.
// The margin is wider than the blocking footprint so a walker stopped
// against the ladder still finds it.
func (m *Map) Ladder(b Body, at tile.Point) (Ladder, bool) {
	c := b.Cross * 2
	u0, v0 := (at.U-c)>>tile.TileUVShift, (at.V-c)>>tile.TileUVShift
	u1, v1 := (at.U+c)>>tile.TileUVShift, (at.V+c)>>tile.TileUVShift
	for v := v0; v <= v1; v++ {
		for u := u0; u <= u1; u++ {
			t := m.At(int(u), int(v))
			if t == nil || t.Terrain != TerrainLadder {
				continue
			}
			return Ladder{U: u, V: v, Base: t.Base, Top: t.Top, Face: t.Face}, true
		}
	}
	return Ladder{}, false
}

// LineOfSight reports whether the straight line from eye to target passes
// over every intervening floor.
func (m *Map) LineOfSight(eye, target tile.Point) bool {
	u0, v0 := int(eye.U>>tile.TileUVShift), int(eye.V>>tile.TileUVShift)
	u1, v1 := int(target.U>>tile.TileUVShift), int(target.V>>tile.TileUVShift)
	du, dv := abs(u1-u0), -abs(v1-v0)
	su, sv := 1, 1
	if u0 > u1 {
		su = -1
	}
	if v0 > v1 {
		sv = -1
	}
	steps := du
	if -dv > steps {
		steps = -dv
	}
	err := du + dv
	for i := 0; ; i++ {
		if (u0 != int(eye.U>>tile.TileUVShift) || v0 != int(eye.V>>tile.TileUVShift)) &&
			(u0 != u1 || v0 != v1) {
			z := int(eye.Z)
			if steps > 0 {
				z += (int(target.Z) - int(eye.Z)) * i / steps
			}
			t := m.At(u0, v0)
			if t == nil || int(t.Height) > z {
				return false
			}
		}
		if u0 == u1 && v0 == v1 {
			return true
		}
		e2 := 2 * err
		if e2 >= dv {
			err += dv
			u0 += su
		}
		if e2 <= du {
			err += du
			v0 += sv
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
