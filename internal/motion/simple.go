package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// talkAction alternates the talk animation with short random pauses until
// the conversation is finished from outside.
func (l *List) talkAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		a.SetAction(agents.ActionStand, 0)
		a.CycleCount = int16(l.Rand.RandomNumber(3))
		mt.Flags &^= FlagReset | FlagNextAnim
	}
	switch {
	case a.CycleCount == 0:
		a.SetAction(agents.ActionTalk, 0)
		mt.Flags |= FlagNextAnim
		a.CycleCount = -1
	case mt.has(FlagNextAnim):
		if a.NextAnimationFrame() {
			a.SetAction(agents.ActionStand, 0)
			a.CycleCount = int16(l.Rand.RandomNumber(3))
			mt.Flags &^= FlagNextAnim
		}
	default:
		a.CycleCount--
	}
}

// resumeWalk turns a landing or rise back into the walk it interrupted.
func (l *List) resumeWalk(mt *Task) {
	mt.Type = mt.PrevType
	run := mt.has(FlagRequestRun)
	if mt.has(FlagPathFind) {
		l.ChangeTarget(mt, mt.Walk.Final, run)
	} else {
		l.ChangeDirectTarget(mt, mt.Walk.Final, run)
	}
	mt.redispatch()
}

// landAction plays the landing after a fall. A running walker cuts the
// landing short after one frame.
func (l *List) landAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		act := agents.ActionJumpUp
		if mt.Type == TypeLandBadly {
			act = agents.ActionFallBadly
		}
		if !a.IsActionAvailable(act) {
			if mt.PrevType == TypeWalk {
				l.resumeWalk(mt)
			} else {
				l.Remove(mt, ResultCompleted)
			}
			return
		}
		a.SetAction(act, 0)
		a.SetInterruptable(false)
		mt.Flags &^= FlagReset
		return
	}

	switch {
	case a.NextAnimationFrame() || mt.has(FlagInWater):
		if mt.PrevType == TypeWalk {
			l.resumeWalk(mt)
		} else if !l.freeFall(mt, &a.Object, &a.Location) {
			l.Remove(mt, ResultCompleted)
		}
	case mt.PrevType == TypeWalk && mt.has(FlagRequestRun) && mt.Walk.RunCount == 0 && !mt.has(FlagInWater):
		l.resumeWalk(mt)
	}
}

// jumpAction crouches, then launches the actor with the velocity set up by
// Jump.
func (l *List) jumpAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		a.SetAction(agents.ActionJumpUp, 0)
		a.SetInterruptable(false)
		mt.Flags &^= FlagReset
		return
	}
	if a.NextAnimationFrame() {
		mt.Type = TypeThrown
		a.SetAction(agents.ActionFreeFall, 0)
	}
}

// turnAction rotates one octant per tick until the actor faces Direction.
func (l *List) turnAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		a.SetActionPoints(tile.TurnFrames(a.Facing, mt.Direction))
		mt.Flags &^= FlagReset
	}
	if a.Facing != mt.Direction {
		a.Turn(mt.Direction)
		return
	}
	l.Remove(mt, ResultCompleted)
}

// giveAction turns toward the recipient and plays the hand-over.
func (l *List) giveAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		a.SetAction(agents.ActionGiveItem, 0)
		mt.Flags &^= FlagReset
	}
	// Skills used on a place or active item have no recipient.
	dir := mt.Direction
	if mt.Target != agents.Nothing {
		to := l.Objects.Location(mt.Target)
		if to.IsNowhere() {
			l.Remove(mt, ResultInterrupted)
			return
		}
		dir = to.Sub(a.Location).QuickDir()
	}
	if a.Facing != dir {
		a.Turn(dir)
		return
	}
	if a.NextAnimationFrame() {
		l.Remove(mt, ResultCompleted)
	}
}

// riseAction lifts a wading actor one unit per tick onto the floor that
// rose out of the water, then resumes the walk if there is distance left.
func (l *List) riseAction(mt *Task, a *agents.Actor) {
	if a.Location.Z < mt.Walk.Immediate.Z {
		a.Location.Z++
		if mt.has(FlagNextAnim) {
			a.NextAnimationFrame()
		}
		mt.Flags ^= FlagNextAnim
		return
	}
	if mt.Walk.Final.Sub(a.Location).QuickHDistance() > tile.TileUVSize {
		mt.Type = mt.PrevType
		mt.Flags |= FlagReset
		mt.redispatch()
		return
	}
	l.Remove(mt, ResultCompleted)
}

// waitCount is how many ticks a wait lasts.
const waitCount = 5

func (l *List) waitAction(mt *Task) {
	if mt.has(FlagReset) {
		mt.ActionCounter = waitCount
		mt.Flags &^= FlagReset
		return
	}
	mt.ActionCounter--
	if mt.ActionCounter <= 0 {
		l.Remove(mt, ResultCompleted)
	}
}

// dieAction plays the death animation, then leaves a corpse or, for
// actors that vanish on death, removes the body and drops what it carried.
func (l *List) dieAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		mt.Flags &^= FlagReset
		if a.SetAction(agents.ActionDie, 0) {
			a.SetInterruptable(false)
			return
		}
	} else if !a.NextAnimationFrame() {
		return
	}

	a.SetInterruptable(true)
	if a.DisappearOnDeath {
		l.Effects.Die(a)
		l.Remove(mt, ResultCompleted)
		l.Effects.Vanish(a)
		return
	}
	a.SetAction(agents.ActionDead, 0)
	l.Effects.Die(a)
	l.Remove(mt, ResultCompleted)
}

// useAction drives the use and drop family: turn toward whatever is being
// used or dropped on, then perform the gesture. If the gesture starts a
// different motion on this actor, that motion runs in the same tick.
func (l *List) useAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		mt.Flags &^= FlagReset
		switch mt.Type {
		case TypeUseObjectOnTAI, TypeUseTAI:
			if it, ok := l.activeItem(mt.Use.TAI); ok {
				at := it.Region.Clamp(a.Location)
				mt.Direction = at.Sub(a.Location).QuickDir()
			}
		case TypeUseObjectOnLocation, TypeDropObjectOnTAI:
			mt.Direction = mt.Use.TargetLoc.Sub(a.Location).QuickDir()
		case TypeDropObject:
			if l.placingInWorld(mt) {
				mt.Direction = mt.Use.TargetLoc.Sub(a.Location).QuickDir()
			} else {
				mt.Direction = a.Facing
			}
		}
	}

	switch mt.Type {
	case TypeUseObject:
		mt.Direction = a.Facing
	case TypeUseObjectOnObject, TypeDropObjectOnObject:
		if ind := l.Objects.Lookup(mt.Use.Indirect); ind != nil && ind.InWorld() {
			mt.Direction = ind.Location.Sub(a.Location).QuickDir()
		} else {
			mt.Direction = a.Facing
		}
	}

	if a.Facing != mt.Direction {
		a.Turn(mt.Direction)
		return
	}

	kind := mt.Type
	a.SetActionPoints(2)
	l.Effects.Invoke(a, kind, mt.Use)
	if mt.removed {
		return
	}
	if mt.Type == kind {
		l.Remove(mt, ResultCompleted)
		return
	}
	mt.redispatch()
}

// placingInWorld reports whether a drop targets the world rather than a
// container. Drops into containers need no turn.
func (l *List) placingInWorld(mt *Task) bool {
	return !mt.Use.TargetLoc.IsNowhere()
}

func (l *List) activeItem(id int16) (*world.ActiveItem, bool) {
	if l.World == nil || id == NoActiveItem {
		return nil, false
	}
	return l.World.ActiveItem(id)
}
