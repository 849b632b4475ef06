package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

type walkKind uint8

const (
	walkNormal walkKind = iota
	walkSlow
	walkRun
	walkStairs
)

// nextWayPoint advances the immediate target along the path, or falls
// back to the final target. It reports false when there is nowhere left
// to go.
func (l *List) nextWayPoint(mt *Task, loc tile.Point) bool {
	w := &mt.Walk
	if mt.has(FlagPathFind|FlagWandering) && w.PathIndex < w.PathCount {
		var toWaypoint tile.Point
		if w.PathIndex > 0 {
			toWaypoint = w.Immediate.Sub(loc)
		}
		if toWaypoint.QuickHDistance() != 0 {
			return false
		}
		w.Immediate = w.Path[w.PathIndex]
		w.PathIndex++
		return true
	}

	switch {
	case mt.has(FlagWandering):
		w.Immediate = tile.Nowhere
		if !mt.pathPending {
			l.requestWanderPath(mt)
		}
	case mt.has(FlagAgitated):
		w.Immediate = tile.Nowhere
	default:
		d := w.Final.Sub(loc)
		if d.QuickHDistance() == 0 && tile.Abs(d.Z) <= tile.MaxStepHeight {
			return false
		}
		if mt.has(FlagPathFind) && !mt.has(FlagFinalPath) && !mt.pathPending {
			l.requestPath(mt)
		}
		w.Immediate = w.Final
	}
	return true
}

// checkWalk reports whether a can take a short stride in dir, stepping
// up by stepUp, and returns the resulting position.
func (l *List) checkWalk(a *agents.Actor, dir tile.Direction, scale, stepUp int16) (tile.Point, bool) {
	pos := a.Location.Add(dir.Stride().Mul(int(scale)).Div(2))
	pos.Z = a.Location.Z + stepUp
	if !l.World.Walkable(a.Body(), pos) {
		return pos, false
	}
	return pos, true
}

// walkAction moves a walking actor one step toward its immediate target,
// steering around obstacles, and falls back to waiting on the pathfinder
// or to an agitated random walk when it cannot make progress.
func (l *List) walkAction(mt *Task, a *agents.Actor) {
	if a.Immobile {
		l.Remove(mt, ResultWalkBlocked)
		return
	}
	a.SetInterruptable(true)

	var (
		speed int16 = WalkSpeed
		scale int16 = 2
		kind        = walkNormal
	)

	if mt.has(FlagRequestRun) && mt.Walk.RunCount == 0 && !mt.has(FlagInWater|FlagOnStairs) {
		speed, scale, kind = RunSpeed, 4, walkRun
		if a.Anim != nil && a.Anim.Loaded&agents.BankRun == 0 {
			kind = walkNormal
			a.Anim.RequestBank(agents.BankRun)
		}
	}
	if kind != walkRun {
		switch {
		case mt.has(FlagOnStairs):
			speed, scale, kind = SlowWalkSpeed, 1, walkStairs
			mt.Walk.RunCount = max(mt.Walk.RunCount, 8)
		case mt.has(FlagInWater):
			speed, scale, kind = SlowWalkSpeed, 1, walkSlow
			mt.Walk.RunCount = max(mt.Walk.RunCount, 8)
		default:
			speed, scale, kind = WalkSpeed, 2, walkNormal
		}
		if kind != walkStairs && a.Anim != nil && a.Anim.Loaded&agents.BankWalk == 0 {
			a.Anim.RequestBank(agents.BankWalk)
			return
		}
	}

	if mt.has(FlagAgitated) {
		mt.ActionCounter--
		if mt.ActionCounter <= 0 {
			mt.Flags &^= FlagAgitated
			mt.Flags |= FlagPathFind | FlagReset
		}
	}

	var (
		target  = mt.immediateTarget(a.Location, a.Facing)
		vector  tile.Point
		dist    int16
		done    bool
		waiting bool
		blocked bool
		moveDir tile.Direction
		newPos  tile.Point
		body    = a.Body()
		loc     = a.Location
	)

	for {
		if !mt.has(FlagReset) {
			vector = target.Sub(loc)
			dist = vector.QuickHDistance()
			if dist > 0 || tile.Abs(vector.Z) > tile.MaxStepHeight {
				break
			}
		}
		if !l.nextWayPoint(mt, loc) {
			if mt.pathPending {
				waiting = true
			} else {
				done = true
			}
			break
		}
		mt.Flags &^= FlagReset
		target = mt.immediateTarget(loc, a.Facing)
	}

	switch {
	case done || waiting:
		moveDir = a.Facing

	case dist == 0 && tile.Abs(vector.Z) > tile.MaxStepHeight:
		moveDir = a.Facing
		if mt.pathPending {
			waiting = true
		} else {
			blocked = true
		}

	case dist <= speed:
		// Close enough to jump straight onto the target.
		moveDir = vector.QuickDir()
		newPos = tile.Point{U: target.U, V: target.V, Z: loc.Z}
		if angle := a.Facing.AngleTo(moveDir); angle >= -1 && angle <= 1 && !l.World.Walkable(body, newPos) {
			newPos.Z = loc.Z + tile.MaxStepHeight
			if !l.World.Walkable(body, newPos) {
				if mt.pathPending {
					waiting = true
				} else {
					moveDir = a.Facing
					blocked = true
				}
			}
		}

	default:
		moveDir = vector.QuickDir()
		pos := loc.Add(tile.Point{
			U: int16(int(vector.U) * int(speed) / int(dist)),
			V: int16(int(vector.V) * int(speed) / int(dist)),
			Z: int16(int(vector.Z) * int(speed) / int(dist)),
		})
		found := false
		for h := int16(0); h <= tile.MaxStepHeight; h += tile.MaxSmoothStep {
			pos.Z = loc.Z + h
			if l.World.Walkable(body, pos) {
				newPos, found = pos, true
				break
			}
		}
		if !found {
			right, left := moveDir.Rotate(-1), moveDir.Rotate(1)
			for h := int16(0); h <= tile.MaxStepHeight && !found; h += 8 {
				if p, ok := l.checkWalk(a, right, scale, h); ok {
					newPos, moveDir, found = p, right, true
				} else if p, ok := l.checkWalk(a, left, scale, h); ok {
					newPos, moveDir, found = p, left, true
				}
			}
		}
		if !found {
			// Sidestep at a right angle to get around the obstacle.
			half := speed / 2
			for _, alt := range []struct {
				ok  bool
				dir tile.Direction
			}{
				{vector.U > half, tile.UpRight},
				{-vector.U > half, tile.DownLeft},
				{vector.V > half, tile.UpLeft},
				{-vector.V > half, tile.DownRight},
			} {
				if !alt.ok {
					continue
				}
				if p, ok := l.checkWalk(a, alt.dir, scale, 0); ok {
					newPos, moveDir, found = p, alt.dir, true
				}
				break
			}
		}
		if !found {
			if mt.pathPending {
				waiting = true
			} else {
				moveDir = a.Facing
				blocked = true
			}
		}
	}

	if a.ID == l.CenterActor && !done && !waiting && moveDir == a.Facing {
		// A ladder face reads as a wall, so probe it even when blocked.
		probe := newPos
		if blocked {
			probe = loc.Add(moveDir.Stride().Mul(int(scale)).Div(2))
		}
		if l.checkLadder(a, probe) {
			return
		}
	}

	turning := moveDir != a.Facing
	if turning {
		if a.Facing.AngleTo(moveDir) < 0 {
			a.Facing = a.Facing.Rotate(-1)
		} else {
			a.Facing = a.Facing.Rotate(1)
		}
	}

	switch {
	case done:
		l.Remove(mt, ResultCompleted)

	case blocked:
		a.SetAction(agents.ActionStand, 0)
		if !mt.has(FlagAgitatable) {
			l.Remove(mt, ResultWalkBlocked)
			return
		}
		if l.freeFall(mt, &a.Object, &a.Location) {
			return
		}
		mt.Walk.RunCount = max(mt.Walk.RunCount, 8)
		mt.Flags |= FlagAgitated | FlagReset
		mt.Direction = tile.Direction(l.Rand.RandomNumber(7))
		mt.ActionCounter = int16(8 + l.Rand.RandomNumber(7))
		if mt.has(FlagPathFind) {
			mt.Flags &^= FlagFinalPath
			mt.Walk.PathIndex, mt.Walk.PathCount = 0, 0
		}

	case waiting || turning:
		mt.Walk.RunCount = max(mt.Walk.RunCount, 8)
		a.SetAction(agents.ActionStand, 0)
		l.freeFall(mt, &a.Object, &a.Location)

	default:
		l.stride(mt, a, newPos, kind)
	}
}

// stride completes a successful walk step: settle onto the floor, then
// pick the walk, run or stair animation and advance it.
func (l *List) stride(mt *Task, a *agents.Actor, newPos tile.Point, kind walkKind) {
	mt.Flags &^= FlagBlocked

	st := l.World.SlopeHeight(newPos)
	smooth := int16(tile.MaxSmoothStep)
	if st.Stairs() {
		smooth *= 4
	}
	if st.Height >= a.Location.Z-smooth && st.Height < newPos.Z {
		newPos.Z = st.Height
	}

	if l.freeFall(mt, &a.Object, &newPos) {
		return
	}

	st = l.World.SlopeHeight(newPos)
	newAction := agents.ActionWalk
	if kind == walkRun {
		newAction = agents.ActionRun
	}
	switch {
	case st.Stairs() && a.IsActionAvailable(agents.ActionSpecial7) && a.Facing == st.StairDir:
		newAction = agents.ActionSpecial7
		mt.Flags |= FlagOnStairs
	case st.Stairs() && a.IsActionAvailable(agents.ActionSpecial7) && a.Facing == st.StairDir.Opposite():
		newAction = agents.ActionSpecial8
		mt.Flags |= FlagOnStairs
	default:
		mt.Flags &^= FlagOnStairs
		if kind == walkStairs {
			kind = walkNormal
		}
	}

	a.Location = newPos

	advance := func() {
		if kind != walkSlow {
			a.NextAnimationFrame()
			return
		}
		if mt.has(FlagNextAnim) {
			a.NextAnimationFrame()
		}
		mt.Flags ^= FlagNextAnim
	}
	switch cur := a.CurrentAction(); {
	case cur == newAction:
		advance()
	case cur == agents.ActionWalk || cur == agents.ActionRun ||
		cur == agents.ActionSpecial7 || cur == agents.ActionSpecial8:
		a.SetAction(newAction, agents.AnimRepeat|agents.AnimNoRestart)
		advance()
	default:
		a.SetAction(newAction, agents.AnimRepeat)
		if kind == walkSlow {
			mt.Flags |= FlagNextAnim
		}
	}

	if mt.Walk.RunCount > 0 {
		mt.Walk.RunCount--
	}
}

// blocked reports whether o would intersect anything at at.
func (l *List) blocked(o *agents.Object, at tile.Point) bool {
	return l.World.Blocked(o.Body(), at) != world.BlockNone
}
