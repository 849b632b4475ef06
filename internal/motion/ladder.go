package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// checkLadder starts a climb when a is about to step onto a ladder: from
// the floor tile in front of it while facing the ladder, or off the ledge
// on top of it toward that floor tile. a is snapped against the ladder
// face before the climb begins.
func (l *List) checkLadder(a *agents.Actor, newPos tile.Point) bool {
	if l.World == nil {
		return false
	}
	lad, ok := l.World.Ladder(a.Body(), newPos)
	if !ok {
		return false
	}
	face := lad.Face.Step()
	floorU, floorV := lad.U+face.U, lad.V+face.V
	nu, nv := newPos.Tile()
	cu, cv := a.Location.Tile()
	intoFloor := nu == floorU && nv == floorV

	toward := a.Facing.Step()
	facingLadder := -(int(toward.U)*int(face.U) + int(toward.V)*int(face.V)) > 0

	switch {
	case intoFloor && newPos.Z < lad.Top-tile.MaxStepHeight && facingLadder:
	case cu == lad.U && cv == lad.V && a.Location.Z >= lad.Top-tile.MaxStepHeight && intoFloor:
	default:
		return false
	}

	at := tile.Point{
		U: lad.U<<tile.TileUVShift + tile.TileUVSize/2,
		V: lad.V<<tile.TileUVShift + tile.TileUVSize/2,
	}.Add(face.Mul(int(tile.TileUVSize/2 + a.CrossSection)))
	at.Z = newPos.Z
	a.Facing = lad.Face.Opposite()
	a.Location = at

	if newPos.Z < l.World.SlopeHeight(at).Height+tile.MaxStepHeight {
		l.UpLadder(a)
	} else {
		l.DownLadder(a)
	}
	return true
}

// upLadderAction climbs until a's head clears the top of the ladder, then
// steps off onto the ledge.
func (l *List) upLadderAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		a.SetAction(agents.ActionClimbLadder, agents.AnimRepeat)
		mt.Flags &^= FlagReset
		return
	}

	loc := a.Location
	loc.Z += ladderStep
	top := loc.Z + a.Height
	if lad, ok := l.World.Ladder(a.Body(), loc); ok && lad.Top > top && lad.Base <= top {
		a.NextAnimationFrame()
		a.Location = loc
		return
	}

	l.stepOffLadder(a, loc, a.Facing.Step().Mul(int(a.CrossSection)*2))
	a.SetAction(agents.ActionStand, 0)
	l.Remove(mt, ResultCompleted)
}

// downLadderAction climbs down until a's feet pass the bottom of the
// ladder, then steps back onto the floor.
func (l *List) downLadderAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		a.SetAction(agents.ActionClimbLadder, agents.AnimRepeat|agents.AnimReverse)
		mt.Flags &^= FlagReset
		return
	}

	loc := a.Location
	loc.Z -= ladderStep
	if lad, ok := l.World.Ladder(a.Body(), loc); ok && lad.Top > loc.Z && lad.Base <= loc.Z {
		a.NextAnimationFrame()
		a.Location = loc
		return
	}

	l.stepOffLadder(a, loc, a.Facing.Step().Mul(-tile.TileUVSize))
	a.SetAction(agents.ActionStand, 0)
	l.Remove(mt, ResultCompleted)
}

// stepOffLadder moves a from loc by off, or by off rotated a quarter turn
// either way, onto the first unblocked floor. If all three are blocked a
// goes straight ahead and is unstuck.
func (l *List) stepOffLadder(a *agents.Actor, loc, off tile.Point) {
	for _, rot := range [...]int{0, -2, 2} {
		p := loc.Add(rotateStep(off, rot))
		p.Z = l.World.SlopeHeight(p).Height
		if l.World.Blocked(a.Body(), p) == world.BlockNone {
			a.Location = p
			return
		}
	}
	p := loc.Add(off)
	p.Z = l.World.SlopeHeight(p).Height
	a.Location = p
	l.unstick(&a.Object)
}

// rotateStep turns an octant-aligned offset by n octants, keeping its
// length along each axis.
func rotateStep(off tile.Point, n int) tile.Point {
	if n == 0 {
		return off
	}
	mag := max(tile.Abs(off.U), tile.Abs(off.V))
	return off.QuickDir().Rotate(n).Step().Mul(int(mag))
}
