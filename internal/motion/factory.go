package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
)

// Turn starts a turn to face dir.
func (l *List) Turn(a *agents.Actor, dir tile.Direction) {
	if mt := l.NewTask(a.ID); mt != nil {
		mt.Direction = dir & 7
		mt.Type = TypeTurn
		mt.Flags = FlagReset
	}
}

// TurnTowards starts a turn to face where.
func (l *List) TurnTowards(a *agents.Actor, where tile.Point) {
	l.Turn(a, where.Sub(a.Location).QuickDir())
}

// Give plays the hand-over gesture toward givee.
func (l *List) Give(a *agents.Actor, givee agents.ObjectID) {
	if mt := l.NewTask(a.ID); mt != nil {
		mt.Target = givee
		mt.Type = TypeGive
		mt.Flags = FlagReset
	}
}

// ThrowObject launches obj with the given velocity.
func (l *List) ThrowObject(obj agents.ObjectID, velocity tile.Point) {
	if mt := l.NewTask(obj); mt != nil {
		mt.Velocity = velocity
		mt.Type = TypeThrown
	}
}

// ThrowObjectTo lobs obj so that it lands on where after a fixed flight.
func (l *List) ThrowObjectTo(obj agents.ObjectID, where tile.Point) {
	const turns = 15
	o := l.Objects.Lookup(obj)
	if o == nil {
		return
	}
	if mt := l.NewTask(obj); mt != nil {
		mt.calcVelocity(where.Sub(o.Location), turns, l.Gravity)
		mt.Type = TypeThrown
	}
}

// ShootObject fires obj at target's midsection with the given horizontal
// speed, leading a walking target.
func (l *List) ShootObject(obj agents.ObjectID, doer *agents.Actor, target agents.ObjectID, speed int16) {
	o, t := l.Objects.Lookup(obj), l.Objects.Lookup(target)
	if o == nil || t == nil {
		return
	}
	mt := l.NewTask(obj)
	if mt == nil {
		return
	}
	aim := t.Location
	aim.Z += t.Height / 2
	vector := aim.Sub(o.Location)
	turns := max(vector.QuickHDistance()/speed, 1)
	if tm := l.For(target); tm != nil && tm.Type == TypeWalk {
		vector = vector.Add(tm.Velocity.Mul(int(turns)))
	}
	mt.calcVelocity(vector, turns, l.Gravity)
	mt.Type = TypeShot
	mt.Ballistic.Enactor = doer.ID
	mt.Target = target
}

// startWalk resets mt into a fresh walk. It reports false when the
// record is a reflex or the actor cannot move.
func (l *List) startWalk(mt *Task, a *agents.Actor, flags Flags, run bool) bool {
	if mt.IsReflex() || a.Immobile {
		return false
	}
	l.unstick(&a.Object)
	mt.Type, mt.PrevType = TypeWalk, TypeWalk
	mt.Walk.PathCount, mt.Walk.PathIndex = 0, 0
	mt.Walk.RunCount = initialRunCount
	mt.Flags = flags
	if run && a.IsActionAvailable(agents.ActionRun) {
		mt.Flags |= FlagRequestRun
	}
	return true
}

// WalkTo walks a to target using the pathfinder.
func (l *List) WalkTo(a *agents.Actor, target tile.Point, run, canAgitate bool) {
	mt := l.NewTask(a.ID)
	if mt == nil || !l.startWalk(mt, a, FlagPathFind|FlagReset, run) {
		return
	}
	mt.Walk.Final, mt.Walk.Immediate = target, target
	if canAgitate {
		mt.Flags |= FlagAgitatable
	}
	l.abortPath(mt)
	l.requestPath(mt)
}

// WalkToDirect walks a straight at target without pathfinding.
func (l *List) WalkToDirect(a *agents.Actor, target tile.Point, run, canAgitate bool) {
	mt := l.NewTask(a.ID)
	if mt == nil || mt.IsReflex() || a.Immobile {
		return
	}
	l.abortPath(mt)
	l.startWalk(mt, a, FlagReset, run)
	mt.Walk.Final, mt.Walk.Immediate = target, target
	if canAgitate {
		mt.Flags |= FlagAgitatable
	}
}

// Wander walks a aimlessly, following wander paths when the pathfinder
// supplies them.
func (l *List) Wander(a *agents.Actor, run bool) {
	mt := l.NewTask(a.ID)
	if mt == nil || mt.IsReflex() || a.Immobile {
		return
	}
	l.abortPath(mt)
	l.startWalk(mt, a, FlagReset|FlagWandering, run)
	mt.Walk.Immediate = tile.Nowhere
	l.requestWanderPath(mt)
}

// TetheredWander wanders within reg.
func (l *List) TetheredWander(a *agents.Actor, reg tile.Region, run bool) {
	mt := l.NewTask(a.ID)
	if mt == nil || mt.IsReflex() || a.Immobile {
		return
	}
	l.abortPath(mt)
	l.startWalk(mt, a, FlagReset|FlagWandering|FlagTethered, run)
	mt.Walk.Immediate = tile.Nowhere
	mt.Walk.Tether = reg
	l.requestWanderPath(mt)
}

// start sets the type of a new motion unless the record is already
// running that type, in which case it is left alone.
func (l *List) start(obj agents.ObjectID, t Type, init func(mt *Task)) *Task {
	mt := l.NewTask(obj)
	if mt == nil {
		return nil
	}
	if mt.Type != t {
		mt.Type = t
		mt.Flags = FlagReset
		if init != nil {
			init(mt)
		}
	}
	return mt
}

func (l *List) UpLadder(a *agents.Actor)   { l.start(a.ID, TypeClimbUp, nil) }
func (l *List) DownLadder(a *agents.Actor) { l.start(a.ID, TypeClimbDown, nil) }
func (l *List) Talk(a *agents.Actor)       { l.start(a.ID, TypeTalk, nil) }
func (l *List) Wait(a *agents.Actor)       { l.start(a.ID, TypeWait, nil) }

// Jump launches a straight up. A record already in flight is left alone.
func (l *List) Jump(a *agents.Actor) {
	mt := l.NewTask(a.ID)
	if mt == nil || mt.Type == TypeThrown {
		return
	}
	mt.Velocity.Z = 10
	mt.Type = TypeJump
	mt.Flags = FlagReset
}

func (l *List) privilege(a *agents.Actor, mt *Task) {
	if a.Player {
		mt.Flags |= FlagPrivileged
	}
}

// UseObject uses obj.
func (l *List) UseObject(a *agents.Actor, obj agents.ObjectID) {
	l.start(a.ID, TypeUseObject, func(mt *Task) {
		mt.Use.Direct = obj
		l.privilege(a, mt)
	})
}

// UseObjectOnObject uses obj on target.
func (l *List) UseObjectOnObject(a *agents.Actor, obj, target agents.ObjectID) {
	l.start(a.ID, TypeUseObjectOnObject, func(mt *Task) {
		mt.Use.Direct = obj
		mt.Use.Indirect = target
		l.privilege(a, mt)
	})
}

// UseObjectOnTAI uses obj on an active item.
func (l *List) UseObjectOnTAI(a *agents.Actor, obj agents.ObjectID, tai int16) {
	l.start(a.ID, TypeUseObjectOnTAI, func(mt *Task) {
		mt.Use.Direct = obj
		mt.Use.TAI = tai
	})
}

// UseObjectOnLocation uses obj on a point.
func (l *List) UseObjectOnLocation(a *agents.Actor, obj agents.ObjectID, loc tile.Point) {
	l.start(a.ID, TypeUseObjectOnLocation, func(mt *Task) {
		mt.Use.Direct = obj
		mt.Use.TargetLoc = loc
	})
}

// UseTAI operates an active item directly.
func (l *List) UseTAI(a *agents.Actor, tai int16) {
	l.start(a.ID, TypeUseTAI, func(mt *Task) { mt.Use.TAI = tai })
}

// DropObject puts count of obj down at loc.
func (l *List) DropObject(a *agents.Actor, obj agents.ObjectID, loc tile.Point, count int16) {
	l.start(a.ID, TypeDropObject, func(mt *Task) {
		mt.Use.Direct = obj
		mt.Use.TargetLoc = loc
		mt.Use.MoveCount = count
	})
}

// DropObjectOnObject drops obj on target. A player dropping an item they
// already carry onto themselves uses it instead.
func (l *List) DropObjectOnObject(a *agents.Actor, obj, target agents.ObjectID, count int16) {
	if ta := l.Objects.Actor(target); ta != nil && ta.Player {
		if o := l.Objects.Lookup(obj); o != nil && o.Parent == target && len(l.Objects.Children(obj)) == 0 {
			l.UseObject(a, obj)
			return
		}
	}
	l.start(a.ID, TypeDropObjectOnObject, func(mt *Task) {
		mt.Use.Direct = obj
		mt.Use.Indirect = target
		mt.Use.MoveCount = count
	})
}

// DropObjectOnTAI drops obj onto an active item at loc.
func (l *List) DropObjectOnTAI(a *agents.Actor, obj agents.ObjectID, tai int16, loc tile.Point) {
	l.start(a.ID, TypeDropObjectOnTAI, func(mt *Task) {
		mt.Use.Direct = obj
		mt.Use.TAI = tai
		mt.Use.TargetLoc = loc
	})
}

// TwoHandedSwing attacks target with a two-handed weapon.
func (l *List) TwoHandedSwing(a *agents.Actor, target agents.ObjectID) {
	l.start(a.ID, TypeTwoHandedSwing, func(mt *Task) { mt.Target = target })
}

// OneHandedSwing attacks target with a one-handed weapon or bare hands.
func (l *List) OneHandedSwing(a *agents.Actor, target agents.ObjectID) {
	l.start(a.ID, TypeOneHandedSwing, func(mt *Task) { mt.Target = target })
}

// FireBow shoots at target with the bow in a's left hand.
func (l *List) FireBow(a *agents.Actor, target agents.ObjectID) {
	l.start(a.ID, TypeFireBow, func(mt *Task) { mt.Target = target })
}

// UseWand discharges the wand a wields at target.
func (l *List) UseWand(a *agents.Actor, target agents.ObjectID) {
	l.start(a.ID, TypeUseWand, func(mt *Task) { mt.Target = target })
}

// castType is Give for skills, which need no incantation.
func (l *List) castType(spell agents.ObjectID) Type {
	if o := l.Objects.Lookup(spell); o != nil && o.Skill {
		return TypeGive
	}
	return TypeCastSpell
}

// CastSpell casts spell at target.
func (l *List) CastSpell(a *agents.Actor, spell, target agents.ObjectID) {
	t := l.Objects.Lookup(target)
	if t == nil {
		return
	}
	loc := l.Objects.Location(target)
	l.start(a.ID, l.castType(spell), func(mt *Task) {
		mt.Spell = Spell{Object: spell, TAG: NoActiveItem}
		mt.Target = target
		mt.Direction = loc.Sub(a.Location).QuickDir()
		l.privilege(a, mt)
	})
}

// CastSpellAt casts spell at a location.
func (l *List) CastSpellAt(a *agents.Actor, spell agents.ObjectID, loc tile.Point) {
	l.start(a.ID, l.castType(spell), func(mt *Task) {
		mt.Spell = Spell{Object: spell, TAG: NoActiveItem, Loc: loc}
		mt.Target = agents.Nothing
		mt.Flags |= FlagLocTarg
		mt.Direction = loc.Sub(a.Location).QuickDir()
		l.privilege(a, mt)
	})
}

// CastSpellOnTAG casts spell at an active item.
func (l *List) CastSpellOnTAG(a *agents.Actor, spell agents.ObjectID, tag int16) {
	if l.World == nil {
		return
	}
	it, ok := l.World.ActiveItem(tag)
	if !ok {
		return
	}
	loc := it.Region.Min
	loc.Z = it.Z
	l.start(a.ID, l.castType(spell), func(mt *Task) {
		mt.Spell = Spell{Object: spell, TAG: tag, Loc: loc}
		mt.Target = agents.Nothing
		mt.Flags |= FlagTAGTarg
		mt.Direction = loc.Sub(a.Location).QuickDir()
		l.privilege(a, mt)
	})
}

// defend starts a defensive motion. Unlike attacks, defenses always
// restart their block window.
func (l *List) defend(a *agents.Actor, t Type, attacker, obj agents.ObjectID) {
	mt := l.NewTask(a.ID)
	if mt == nil {
		return
	}
	if mt.Type != t {
		mt.Type = t
		mt.Combat.Attacker = attacker
		mt.Combat.DefensiveObj = obj
	}
	mt.Flags = FlagReset
	mt.Combat.DefenseFlags = 0
}

func (l *List) TwoHandedParry(a *agents.Actor, weapon, opponent agents.ObjectID) {
	l.defend(a, TypeTwoHandedParry, opponent, weapon)
}

func (l *List) OneHandedParry(a *agents.Actor, weapon, opponent agents.ObjectID) {
	l.defend(a, TypeOneHandedParry, opponent, weapon)
}

func (l *List) ShieldParry(a *agents.Actor, shield, opponent agents.ObjectID) {
	l.defend(a, TypeShieldParry, opponent, shield)
}

func (l *List) Dodge(a *agents.Actor, opponent agents.ObjectID) {
	l.defend(a, TypeDodge, opponent, agents.Nothing)
}

// AcceptHit staggers a from a blow by opponent.
func (l *List) AcceptHit(a *agents.Actor, opponent agents.ObjectID) {
	l.start(a.ID, TypeAcceptHit, func(mt *Task) { mt.Combat.Attacker = opponent })
}

// FallDown knocks a over.
func (l *List) FallDown(a *agents.Actor, opponent agents.ObjectID) {
	l.start(a.ID, TypeFallDown, func(mt *Task) { mt.Combat.Attacker = opponent })
}

// Die plays a's death.
func (l *List) Die(a *agents.Actor) { l.start(a.ID, TypeDie, nil) }

// ChangeTarget redirects a walk to a new destination and requests a
// fresh path.
func (l *List) ChangeTarget(mt *Task, pos tile.Point, run bool) {
	if mt.PrevType != TypeWalk {
		return
	}
	agitatable := mt.Flags & FlagAgitatable
	l.abortPath(mt)
	mt.Walk.Final, mt.Walk.Immediate = pos, pos
	mt.Walk.PathCount, mt.Walk.PathIndex = 0, 0
	mt.Flags = FlagPathFind | FlagReset | agitatable
	l.setRun(mt, run)
	l.requestPath(mt)
}

// ChangeDirectTarget redirects a walk straight at a new destination.
func (l *List) ChangeDirectTarget(mt *Task, pos tile.Point, run bool) {
	if mt.PrevType != TypeWalk {
		return
	}
	mt.Walk.Final, mt.Walk.Immediate = pos, pos
	mt.Flags |= FlagReset
	mt.Flags &^= FlagPathFind
	l.setRun(mt, run)
}

func (l *List) setRun(mt *Task, run bool) {
	if a := l.Objects.Actor(mt.Object); run && a != nil && a.IsActionAvailable(agents.ActionRun) {
		mt.Flags |= FlagRequestRun
	} else {
		mt.Flags &^= FlagRequestRun
	}
}

// FinishWalk stops a walk in its tracks.
func (l *List) FinishWalk(mt *Task) {
	if mt.Type == TypeWalk {
		l.Remove(mt, ResultInterrupted)
	}
}

// FinishTurn completes a turn instantly.
func (l *List) FinishTurn(mt *Task) {
	if !mt.IsTurn() {
		return
	}
	if a := l.Objects.Actor(mt.Object); a != nil {
		a.Facing = mt.Direction
	}
	l.Remove(mt, ResultInterrupted)
}

// FinishTalking ends a conversation gesture.
func (l *List) FinishTalking(mt *Task) {
	if mt.Type != TypeTalk {
		return
	}
	if a := l.Objects.Actor(mt.Object); a != nil && a.CurrentAction() != agents.ActionStand {
		a.SetAction(agents.ActionStand, 0)
	}
	l.Remove(mt, ResultInterrupted)
}
