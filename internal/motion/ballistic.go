package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// Probe bits recording which axes a ballistic object collided along.
const (
	probeU = 1 << iota
	probeV
	probeZ
)

// ballisticAction moves a thrown or shot object one tick along its arc.
// Fast objects are advanced in sub-steps no longer than their smallest
// dimension so they cannot tunnel through thin terrain.
func (l *List) ballisticAction(mt *Task, obj *agents.Object) {
	a := l.Objects.Actor(obj.ID)
	if a != nil {
		a.SetInterruptable(false)
	}

	if mt.has(FlagInWater) {
		mt.Velocity = tile.Point{Z: -l.Gravity}
	} else {
		mt.Velocity.Z -= l.Gravity
	}
	loc := obj.Location
	total := mt.Velocity

	b := &mt.Ballistic
	if b.Steps > 0 {
		if b.UFrac != 0 {
			b.UErr += tile.Abs(b.UFrac)
			if b.UErr >= b.Steps {
				b.UErr -= b.Steps
				total.U += sign(b.UFrac)
			}
		}
		if b.VFrac != 0 {
			b.VErr += tile.Abs(b.VFrac)
			if b.VErr >= b.Steps {
				b.VErr -= b.Steps
				total.V += sign(b.VFrac)
			}
		}
	}

	minDim := max(min(obj.Height, obj.CrossSection*2), 1)
	steps := (total.Magnitude()-1)/minDim + 1

	if a != nil && mt.Velocity.Magnitude() > 16 && a.IsActionAvailable(agents.ActionFreeFall) {
		a.SetAction(agents.ActionFreeFall, 0)
	}

	for i := int16(0); i < steps; i++ {
		step := total.Div(int(steps - i))
		total = total.Sub(step)
		newPos := loc.Add(step)

		if a != nil && a.ID == l.CenterActor && l.checkLadder(a, newPos) {
			return
		}

		hit, id := l.World.Contact(obj.Body(), newPos)
		if hit == world.BlockNone {
			loc = newPos
			continue
		}

		if mt.Type == TypeShot && hit == world.BlockObject {
			// Arrows pass through everything except their target.
			if agents.ObjectID(id) == mt.Target {
				if l.Effects.Strike(obj.ID, b.Enactor, mt.Target) {
					l.Remove(mt, ResultCompleted)
					l.Objects.Remove(obj.ID)
					return
				}
				mt.Target = agents.Nothing
			}
			loc = newPos
			continue
		}

		if l.unstick(obj) {
			return
		}

		old := mt.Velocity
		body := obj.Body()
		probe := 0
		if l.World.Blocked(body, tile.Point{U: newPos.U, V: obj.Location.V, Z: obj.Location.Z}) != world.BlockNone {
			probe |= probeU
		}
		if l.World.Blocked(body, tile.Point{U: obj.Location.U, V: newPos.V, Z: obj.Location.Z}) != world.BlockNone {
			probe |= probeV
		}
		if c, _ := l.World.Contact(body, tile.Point{U: obj.Location.U, V: obj.Location.V, Z: newPos.Z}); c != world.BlockNone {
			probe |= probeZ
		}

		if probe == 0 {
			// Corner hit: bounce straight back.
			mt.Velocity = mt.Velocity.Neg().Div(2)
			total = total.Neg().Div(2)
		} else {
			mt.Velocity.U, total.U = rebound(mt.Velocity.U, total.U, probe&probeU != 0)
			mt.Velocity.V, total.V = rebound(mt.Velocity.V, total.V, probe&probeV != 0)
			mt.Velocity.Z, total.Z = rebound(mt.Velocity.Z, total.Z, probe&probeZ != 0)
		}
		b.UFrac, b.VFrac = 0, 0

		if a != nil && probe&probeZ != 0 {
			// Actors absorb a floor impact rather than bounce.
			if !l.freeFall(mt, obj, &loc) {
				impact := old.Magnitude()
				l.Effects.FallingDamage(a, impact)
				obj.Location = loc
				if a.Dead {
					l.Remove(mt, ResultInterrupted)
					return
				}
				if impact <= 16 {
					mt.Type = TypeLand
				} else {
					mt.Type = TypeLandBadly
				}
				mt.Flags |= FlagReset
			}
			return
		}

		v := mt.Velocity
		if tile.Abs(v.U) < 2 && tile.Abs(v.V) < 2 && tile.Abs(v.Z) < 2 {
			// Too slow to keep bouncing; come to rest.
			if !l.freeFall(mt, obj, &loc) {
				obj.Location = loc
				l.Remove(mt, ResultCompleted)
			}
			return
		}
	}

	obj.Location = loc
}

// rebound reverses and halves a velocity component that struck a wall,
// and damps one that did not.
func rebound(v, total int16, struck bool) (int16, int16) {
	if struck {
		return -v / 2, -total / 2
	}
	return v * 2 / 3, total * 2 / 3
}

func sign(n int16) int16 {
	if n < 0 {
		return -1
	}
	return 1
}

// freeFall settles obj at *newPos if something supports it there, or
// starts a fall. It reports true when obj is now falling or rising, in
// which case obj has already been moved and the caller must not move it.
// A wading walker whose floor rises out of the water becomes a rise.
func (l *List) freeFall(mt *Task, obj *agents.Object, newPos *tile.Point) bool {
	if obj.Flags&agents.FlagFloating != 0 {
		return false
	}
	h := l.World.SlopeHeight(*newPos).Height
	mt.Velocity = newPos.Sub(obj.Location).Mul(2).Div(3)

	slack := l.Gravity * 4
	if h >= newPos.Z-slack {
		return l.supported(mt, obj, newPos, h)
	}

	t := *newPos
	if t.Z > h {
		t.Z--
	}
	fall := func(at tile.Point) bool {
		if mt.Type != TypeWalk || newPos.Z > slack || h >= 0 {
			mt.Type = TypeThrown
			obj.Location = at
			return true
		}
		// Walkers sink into deep water without a fall.
		*newPos = at
		return false
	}

	body := obj.Body()
	if c, _ := l.World.Contact(body, t); c == world.BlockNone {
		return fall(t)
	}

	// Landed on something: try slipping off it sideways.
	cross := obj.CrossSection
	offsets := [4]tile.Point{{U: cross}, {U: -cross}, {V: cross}, {V: -cross}}
	for _, d := range offsets {
		p := t.Add(d)
		if l.World.Blocked(body, p) != world.BlockNone {
			continue
		}
		if c, _ := l.World.Contact(body, p); c == world.BlockNone {
			return fall(p)
		}
	}

	// Nowhere to fall; look for a nearby surface to stand on instead.
	for _, d := range offsets {
		p := newPos.Add(d)
		ph := l.World.SlopeHeight(p).Height
		if ph <= p.Z+tile.MaxStepHeight && ph >= p.Z-slack {
			*newPos = p
			return l.supported(mt, obj, newPos, ph)
		}
	}

	newPos.Z--
	obj.Location = *newPos
	l.unstick(obj)
	*newPos = obj.Location
	return true
}

func (l *List) supported(mt *Task, obj *agents.Object, newPos *tile.Point, h int16) bool {
	if mt.Type != TypeWalk || h <= newPos.Z || !mt.has(FlagInWater) {
		if h > newPos.Z+tile.MaxStepHeight {
			l.unstick(obj)
			h = l.World.SlopeHeight(*newPos).Height
		}
		newPos.Z = h
		return false
	}
	mt.Type = TypeRise
	mt.Walk.Immediate.Z = h
	obj.Location = *newPos
	return true
}
