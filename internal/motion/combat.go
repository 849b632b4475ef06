package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
)

// swingSet lists the swing sub-types an attack may pick from, by the
// target's height relative to the attacker's midsection.
type swingSet struct {
	all, high, low []uint8
	anims          []agents.Action // Indexed by sub-type
	fallback       int16           // Ticks to the strike without an animation
}

var twoHandedSwings = swingSet{
	all: []uint8{
		TwoHandedSwingHigh, TwoHandedSwingLow,
		TwoHandedSwingLeftHigh, TwoHandedSwingLeftLow,
		TwoHandedSwingRightHigh, TwoHandedSwingRightLow,
	},
	high: []uint8{TwoHandedSwingHigh, TwoHandedSwingLeftHigh, TwoHandedSwingRightHigh},
	low:  []uint8{TwoHandedSwingLow, TwoHandedSwingLeftLow, TwoHandedSwingRightLow},
	anims: []agents.Action{
		agents.ActionTwoHandSwingHigh, agents.ActionTwoHandSwingLow,
		agents.ActionTwoHandSwingLeftHigh, agents.ActionTwoHandSwingLeftLow,
		agents.ActionTwoHandSwingRightHigh, agents.ActionTwoHandSwingRightLow,
	},
	fallback: 2,
}

var oneHandedSwings = swingSet{
	all:      []uint8{OneHandedSwingHigh, OneHandedSwingLow},
	high:     []uint8{OneHandedSwingHigh},
	low:      []uint8{OneHandedSwingLow},
	anims:    []agents.Action{agents.ActionSwingHigh, agents.ActionSwingLow},
	fallback: 1,
}

// playAnimation starts act and returns its frame count, marking the record
// as animation driven. Without the animation it returns fallback and the
// record counts ticks instead.
func (mt *Task) playAnimation(a *agents.Actor, act agents.Action, fallback int16) int16 {
	if a.SetAction(act, 0) {
		mt.Flags |= FlagNextAnim
		return a.AnimationFrames(act)
	}
	mt.Flags &^= FlagNextAnim
	return fallback
}

// countdown advances the animation, or the bare tick counter when there is
// none, and ends the motion when it runs out.
func (l *List) countdown(mt *Task, a *agents.Actor) {
	if a.Anim == nil {
		mt.Flags &^= FlagNextAnim
	}
	if mt.has(FlagNextAnim) {
		if a.NextAnimationFrame() {
			l.Remove(mt, ResultCompleted)
		} else if mt.ActionCounter >= 0 {
			mt.ActionCounter--
		}
		return
	}
	if mt.ActionCounter > 0 {
		mt.ActionCounter--
	} else {
		l.Remove(mt, ResultCompleted)
	}
}

// swingAction picks a swing suited to the target's height, then turns to
// face it and strikes when the swing connects.
func (l *List) swingAction(mt *Task, a *agents.Actor, set *swingSet) {
	target := l.Objects.Lookup(mt.Target)
	if target == nil {
		l.Remove(mt, ResultInterrupted)
		return
	}

	if mt.has(FlagReset) {
		l.Effects.LogAggressiveAct(a.ID, target.ID)
		if ta := l.Objects.Actor(target.ID); ta != nil {
			l.Effects.EvaluateMeleeAttack(ta, a)
		}

		mid := a.Location.Z + a.Height>>1
		choices := set.all
		switch {
		case target.Location.Z > mid:
			choices = set.high
		case target.Location.Z+target.Height < mid:
			choices = set.low
		}
		mt.Direction = target.Location.Sub(a.Location).QuickDir()
		mt.Combat.SubType = choices[l.Rand.RandomNumber(len(choices)-1)]

		act := set.anims[mt.Combat.SubType]
		if n := mt.playAnimation(a, act, 0); mt.has(FlagNextAnim) {
			mt.ActionCounter = n - 2
		} else {
			mt.ActionCounter = set.fallback
		}
		a.SetActionPoints(tile.TurnFrames(a.Facing, mt.Direction) + 10)
		mt.Flags &^= FlagReset
		return
	}

	if a.Facing != mt.Direction {
		a.Turn(mt.Direction)
		return
	}
	if mt.ActionCounter == 0 {
		if weapon := l.Effects.OffensiveObject(a); weapon != agents.Nothing {
			l.Effects.Strike(weapon, a.ID, mt.Target)
		}
	}
	l.countdown(mt, a)
}

// fireBowAction draws, turns toward the target and looses one projectile
// from the bow in a's left hand.
func (l *List) fireBowAction(mt *Task, a *agents.Actor) {
	target := l.Objects.Lookup(mt.Target)
	if target == nil {
		l.Remove(mt, ResultInterrupted)
		return
	}

	if mt.has(FlagReset) {
		l.Effects.LogAggressiveAct(a.ID, target.ID)
		mt.Direction = target.Location.Sub(a.Location).QuickDir()
		mt.ActionCounter = mt.playAnimation(a, agents.ActionFireBow, 2) - 1
		a.SetActionPoints(tile.TurnFrames(a.Facing, mt.Direction) + 10)
		a.Turn(mt.Direction)
		mt.Flags &^= FlagReset
		return
	}

	if a.Facing != mt.Direction {
		a.Turn(mt.Direction)
		return
	}
	if mt.ActionCounter == 0 && a.LeftHand != agents.Nothing {
		l.loose(a, target.ID)
	}
	l.countdown(mt, a)
}

// loose places a projectile just in front of a at shoulder height and
// shoots it at target.
func (l *List) loose(a *agents.Actor, target agents.ObjectID) {
	proj := l.Effects.Projectile(a.LeftHand, a)
	p := l.Objects.Lookup(proj)
	if p == nil {
		return
	}
	at := a.Location.Add(a.Facing.Step().Mul(int(a.CrossSection + p.CrossSection)))
	at.Z += a.Height * 7 / 8
	l.Objects.Move(proj, agents.WorldID, at)
	l.ShootObject(proj, a, target, 16)
}

// castSpellAction faces the target, then releases the spell at the end of
// the incantation.
func (l *List) castSpellAction(mt *Task, a *agents.Actor) {
	if a.Facing != mt.Direction {
		a.Turn(mt.Direction)
		return
	}
	if mt.has(FlagReset) {
		mt.ActionCounter = mt.playAnimation(a, agents.ActionCastSpell, 4) - 1
		mt.Flags &^= FlagReset
	}
	if mt.ActionCounter == 0 && mt.Spell.Object != agents.Nothing {
		spell, target := mt.Spell, mt.Target
		switch {
		case mt.has(FlagTAGTarg):
			target = agents.Nothing
		case mt.has(FlagLocTarg):
			target = agents.Nothing
			spell.TAG = NoActiveItem
		default:
			spell.TAG = NoActiveItem
		}
		l.Effects.CastSpell(a.ID, spell, target)
	}
	l.countdown(mt, a)
}

// useWandAction aims the wielded wand and discharges its bound spell.
func (l *List) useWandAction(mt *Task, a *agents.Actor) {
	target := l.Objects.Lookup(mt.Target)
	if target == nil {
		l.Remove(mt, ResultInterrupted)
		return
	}

	if mt.has(FlagReset) {
		l.Effects.LogAggressiveAct(a.ID, target.ID)
		mt.Direction = target.Location.Sub(a.Location).QuickDir()
		mt.ActionCounter = mt.playAnimation(a, agents.ActionUseWand, 4) - 1
		a.SetActionPoints(tile.TurnFrames(a.Facing, mt.Direction) + 10)
		mt.Flags &^= FlagReset
	}

	if a.Facing != mt.Direction {
		a.Turn(mt.Direction)
		return
	}
	if mt.ActionCounter == 0 {
		wand := l.Objects.Lookup(l.Effects.OffensiveObject(a))
		if wand != nil && wand.Spell != agents.Nothing {
			l.Effects.CastSpell(wand.ID, Spell{Object: wand.Spell, TAG: NoActiveItem}, target.ID)
		}
	}
	l.countdown(mt, a)
}

var parries = map[Type]struct {
	act    agents.Action
	frames int16
}{
	TypeTwoHandedParry: {agents.ActionTwoHandParry, 2},
	TypeOneHandedParry: {agents.ActionParryHigh, 2},
	TypeShieldParry:    {agents.ActionShieldParry, 1},
}

// attackerSwing returns the attacker's melee swing, or nil once the
// attacker is no longer swinging.
func (l *List) attackerSwing(mt *Task) (*Task, *agents.Actor) {
	atk := l.Objects.Actor(mt.Combat.Attacker)
	if atk == nil {
		return nil, nil
	}
	am := l.For(atk.ID)
	if am == nil || !am.IsMeleeAttack() {
		return nil, nil
	}
	return am, atk
}

// parryAction raises a weapon or shield against the attacker and holds
// it until the attacker's swing is over.
func (l *List) parryAction(mt *Task, a *agents.Actor) {
	if mt.has(FlagReset) {
		if at := l.Objects.Location(mt.Combat.Attacker); !at.IsNowhere() {
			mt.Direction = at.Sub(a.Location).QuickDir()
		}
		p := parries[mt.Type]
		frames := mt.playAnimation(a, p.act, p.frames)
		if mt.Type == TypeOneHandedParry {
			mt.Combat.SubType = OneHandedParryHigh
		}
		a.SetActionPoints(tile.TurnFrames(a.Facing, mt.Direction) + int(frames) + 1)
		mt.Flags &^= FlagReset
	}

	am, atk := l.attackerSwing(mt)
	if mt.Combat.DefenseFlags&DefenseBlocking == 0 {
		if am == nil {
			a.SetInterruptable(true)
			l.Remove(mt, ResultCompleted)
			return
		}
		if a.Facing != mt.Direction {
			a.Turn(mt.Direction)
		}
		if am.FramesUntilStrike(atk.Facing) <= 1 {
			mt.Combat.DefenseFlags |= DefenseBlocking
		}
		return
	}

	if a.Anim == nil {
		mt.Flags &^= FlagNextAnim
	}
	if !mt.has(FlagNextAnim) || a.NextAnimationFrame() {
		if am == nil {
			a.SetInterruptable(true)
			l.Remove(mt, ResultCompleted)
		}
	}
}

// dodgeAction waits for the attacker's swing to be about to land, then
// jumps out of the way.
func (l *List) dodgeAction(mt *Task, a *agents.Actor) {
	if !mt.has(FlagReset) {
		l.countdown(mt, a)
		return
	}

	am, atk := l.attackerSwing(mt)
	if am == nil {
		a.SetInterruptable(true)
		l.Remove(mt, ResultCompleted)
		return
	}
	if am.FramesUntilStrike(atk.Facing) <= 2 {
		frames := mt.playAnimation(a, agents.ActionJumpUp, 3)
		mt.ActionCounter = frames - 1
		a.SetActionPoints(int(frames) + 1)
		mt.Flags &^= FlagReset
	}
}

// knockbackAction staggers or floors the actor, facing whoever hit it,
// and on a coin flip pushes it back a stride.
func (l *List) knockbackAction(mt *Task, a *agents.Actor) {
	if !mt.has(FlagReset) {
		if a.Anim == nil {
			mt.Flags &^= FlagNextAnim
		}
		if !mt.has(FlagNextAnim) || a.NextAnimationFrame() {
			l.Remove(mt, ResultCompleted)
		}
		return
	}

	if at := l.Objects.Location(mt.Combat.Attacker); !at.IsNowhere() {
		a.Facing = at.Sub(a.Location).QuickDir()
	}
	act, fallback := agents.ActionHit, int16(1)
	if mt.Type == TypeFallDown {
		act, fallback = agents.ActionKnockedDown, 6
	}
	frames := mt.playAnimation(a, act, fallback)
	a.SetActionPoints(int(frames) + 1)

	if l.Rand.RandomNumber(1) == 1 {
		back := a.Location.Add(a.Facing.Opposite().Stride())
		if !l.blocked(&a.Object, back) {
			back.Z = l.World.SlopeHeight(back).Height
			a.Location = back
		}
	}
	mt.Flags &^= FlagReset
}
