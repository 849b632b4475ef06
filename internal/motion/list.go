package motion

import (
	"log/slog"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/entropy"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// World is the geometry the action routines probe. *world.Map implements it.
type World interface {
	Blocked(b world.Body, at tile.Point) world.Blockage
	Contact(b world.Body, at tile.Point) (world.Blockage, uint16)
	Walkable(b world.Body, at tile.Point) bool
	SlopeHeight(at tile.Point) world.Standing
	RoofID(at tile.Point) uint16
	Ladder(b world.Body, at tile.Point) (world.Ladder, bool)
	ActiveItem(id int16) (*world.ActiveItem, bool)
}

// Pathfinder accepts asynchronous path jobs. A job finishes by calling
// SetPath or PathFailed on the record.
type Pathfinder interface {
	RequestPath(mt *Task, iq int)
	RequestWanderPath(mt *Task, iq int)
	Abort(mt *Task)
}

// Waker resumes a script thread suspended on a motion.
type Waker interface {
	WakeUpThread(thread ThreadID, result Result)
}

// Effects applies the gameplay consequences of motions: hits, spells,
// item use, damage and death.
type Effects interface {
	LogAggressiveAct(attacker, target agents.ObjectID)
	EvaluateMeleeAttack(defender, attacker *agents.Actor)
	// Strike resolves weapon, wielded or thrown by enactor, hitting target.
	Strike(weapon, enactor, target agents.ObjectID) bool
	// OffensiveObject returns what a wields for attacks: a weapon, or the
	// actor itself when bare-handed.
	OffensiveObject(a *agents.Actor) agents.ObjectID
	// Projectile takes one round of ammunition for bow out of a's
	// inventory.
	Projectile(bow agents.ObjectID, a *agents.Actor) agents.ObjectID
	// Invoke performs one use or drop gesture of the given type.
	Invoke(a *agents.Actor, kind Type, u Use)
	CastSpell(caster agents.ObjectID, spell Spell, target agents.ObjectID)
	FallingDamage(a *agents.Actor, impact int16)
	Die(a *agents.Actor)
	// Vanish drops a's inventory and deletes a.
	Vanish(a *agents.Actor)
}

// Rand is the random source used for every roll.
type Rand interface {
	RandomNumber(max int) int
}

// Env holds the collaborators a List drives.
type Env struct {
	World   World
	Objects *agents.Registry
	Paths   Pathfinder
	Waker   Waker
	Effects Effects
	Rand    Rand

	Gravity     int16
	CenterActor agents.ObjectID // Player-controlled actor; the only one that climbs ladders
}

// List owns every live motion record. Iteration order is creation order.
type List struct {
	Env

	tasks    []*Task
	byObject map[agents.ObjectID]*Task
	paused   bool
}

// maxRedispatch bounds how many times one record may chain into another
// state within a tick.
const maxRedispatch = 4

// NewList returns an empty list. Missing collaborators are replaced with
// inert defaults.
func NewList(env Env) *List {
	if env.Paths == nil {
		env.Paths = noPaths{}
	}
	if env.Waker == nil {
		env.Waker = noWaker{}
	}
	if env.Effects == nil {
		env.Effects = NopEffects{}
	}
	if env.Rand == nil {
		env.Rand = entropy.New(1)
	}
	if env.Objects == nil {
		env.Objects = agents.NewRegistry()
	}
	if env.Gravity == 0 {
		env.Gravity = DefaultGravity
	}
	return &List{Env: env, byObject: make(map[agents.ObjectID]*Task)}
}

// For returns the live record of obj, or nil.
func (l *List) For(obj agents.ObjectID) *Task { return l.byObject[obj] }

// Len returns the number of live records.
func (l *List) Len() int { return len(l.tasks) }

// Each calls fn for every live record in order.
func (l *List) Each(fn func(*Task)) {
	for _, mt := range l.tasks {
		fn(mt)
	}
}

// PauseInterruptable suspends every motion of an interruptable actor
// until ResumeInterruptable.
func (l *List) PauseInterruptable()  { l.paused = true }
func (l *List) ResumeInterruptable() { l.paused = false }

// NewTask returns the record for obj, creating it if needed. An existing
// record is reused: its waiting thread is woken as interrupted and
// detached, and the caller reinitializes the state. It returns nil for an
// unknown object.
func (l *List) NewTask(obj agents.ObjectID) *Task {
	o := l.Objects.Lookup(obj)
	if o == nil {
		return nil
	}
	mt := l.byObject[obj]
	if mt != nil {
		l.Waker.WakeUpThread(mt.Thread, ResultInterrupted)
		mt.Thread = NoThread
	} else {
		mt = &Task{
			Object: obj,
			Thread: NoThread,
			Walk: Walk{
				Immediate: o.Location,
				Final:     o.Location,
				PathCount: -1,
			},
			Use:   Use{TAI: NoActiveItem},
			Spell: Spell{TAG: NoActiveItem},
		}
		l.add(mt)
	}
	o.Flags |= agents.FlagMoving
	return mt
}

func (l *List) add(mt *Task) {
	l.tasks = append(l.tasks, mt)
	l.byObject[mt.Object] = mt
}

// Remove ends mt: the object stops moving, any path job is cancelled and
// the waiting thread is woken with result. Removing twice is harmless.
func (l *List) Remove(mt *Task, result Result) {
	if mt == nil || mt.removed {
		return
	}
	mt.removed = true

	if o := l.Objects.Lookup(mt.Object); o != nil {
		o.Flags &^= agents.FlagMoving | agents.FlagObscured
	}
	if a := l.Objects.Actor(mt.Object); a != nil {
		a.CycleCount = int16(l.Rand.RandomNumber(19))
		if a.IsPermanentlyUninterruptable() {
			a.SetInterruptable(true)
		}
	}

	for i, t := range l.tasks {
		if t == mt {
			l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
			break
		}
	}
	if l.byObject[mt.Object] == mt {
		delete(l.byObject, mt.Object)
	}

	l.abortPath(mt)
	l.Waker.WakeUpThread(mt.Thread, result)
}

// Clear drops every record without waking threads, cancelling path jobs.
func (l *List) Clear() {
	for _, mt := range l.tasks {
		l.abortPath(mt)
		mt.removed = true
	}
	l.tasks = nil
	l.byObject = make(map[agents.ObjectID]*Task)
}

// UpdatePositions advances every record that was live at the start of the
// call exactly once. Records created during the pass wait for the next
// tick; records removed during the pass are skipped.
func (l *List) UpdatePositions() {
	snapshot := make([]*Task, len(l.tasks))
	copy(snapshot, l.tasks)

	for _, mt := range snapshot {
		if mt.removed {
			continue
		}
		obj := l.Objects.Lookup(mt.Object)
		if obj == nil || !obj.InWorld() {
			l.Remove(mt, ResultInterrupted)
			continue
		}
		a := l.Objects.Actor(mt.Object)
		if l.paused && a != nil && a.IsInterruptable() {
			continue
		}

		if obj.Location.Z < -(obj.Height >> 2) {
			mt.Flags |= FlagInWater
		} else {
			mt.Flags &^= FlagInWater
		}

		for i := 0; i < maxRedispatch; i++ {
			mt.again = false
			l.dispatch(mt, obj, a)
			if !mt.again || mt.removed {
				break
			}
		}
	}
}

func (l *List) dispatch(mt *Task, obj *agents.Object, a *agents.Actor) {
	switch mt.Type {
	case TypeThrown, TypeShot:
		l.ballisticAction(mt, obj)
		return
	case TypeNone:
		l.Remove(mt, ResultCompleted)
		return
	}

	if a == nil {
		slog.Debug("motion dropped: object is not an actor", "object", mt.Object, "type", mt.Type)
		l.Remove(mt, ResultInterrupted)
		return
	}

	switch mt.Type {
	case TypeWalk, TypeStep, TypeRun:
		l.walkAction(mt, a)
	case TypeClimbUp:
		l.upLadderAction(mt, a)
	case TypeClimbDown:
		l.downLadderAction(mt, a)
	case TypeTalk:
		l.talkAction(mt, a)
	case TypeLand, TypeLandBadly:
		l.landAction(mt, a)
	case TypeJump:
		l.jumpAction(mt, a)
	case TypeTurn:
		l.turnAction(mt, a)
	case TypeGive:
		l.giveAction(mt, a)
	case TypeRise:
		l.riseAction(mt, a)
	case TypeWait:
		l.waitAction(mt)
	case TypeUseObject, TypeUseObjectOnObject, TypeUseObjectOnTAI,
		TypeUseObjectOnLocation, TypeUseTAI, TypeDropObject,
		TypeDropObjectOnObject, TypeDropObjectOnTAI:
		l.useAction(mt, a)
	case TypeTwoHandedSwing:
		l.swingAction(mt, a, &twoHandedSwings)
	case TypeOneHandedSwing:
		l.swingAction(mt, a, &oneHandedSwings)
	case TypeFireBow:
		l.fireBowAction(mt, a)
	case TypeCastSpell:
		l.castSpellAction(mt, a)
	case TypeUseWand:
		l.useWandAction(mt, a)
	case TypeTwoHandedParry, TypeOneHandedParry, TypeShieldParry:
		l.parryAction(mt, a)
	case TypeDodge:
		l.dodgeAction(mt, a)
	case TypeAcceptHit, TypeFallDown:
		l.knockbackAction(mt, a)
	case TypeDie:
		l.dieAction(mt, a)
	default:
		l.Remove(mt, ResultInterrupted)
	}
}

// redispatch asks UpdatePositions to run mt again this tick.
func (mt *Task) redispatch() { mt.again = true }

func (l *List) requestPath(mt *Task) {
	mt.pathPending = true
	l.Paths.RequestPath(mt, l.PathFindIQ(mt.Object))
}

func (l *List) requestWanderPath(mt *Task) {
	mt.pathPending = true
	l.Paths.RequestWanderPath(mt, l.PathFindIQ(mt.Object))
}

func (l *List) abortPath(mt *Task) {
	if mt.pathPending {
		l.Paths.Abort(mt)
		mt.pathPending = false
	}
}

// PathFindIQ is the search budget granted to obj's path requests. The
// player outranks party members, who outrank hostiles and bystanders; a
// tenth of requests get a lucky boost.
func (l *List) PathFindIQ(obj agents.ObjectID) int {
	a := l.Objects.Actor(obj)
	if a == nil {
		return 50
	}
	switch {
	case a.ID == l.CenterActor:
		return 400
	case a.Player:
		return 300
	}
	iq := 100
	if a.Disposition == agents.Enemy {
		iq = 250
	}
	if l.Rand.RandomNumber(9) == 5 {
		iq += 200
	}
	return iq
}

// unstick nudges obj out of terrain it has been pushed into, searching
// random offsets in a shrinking radius. It returns false if obj was not
// stuck.
func (l *List) unstick(obj *agents.Object) bool {
	if l.World == nil || l.World.Blocked(obj.Body(), obj.Location) == world.BlockNone {
		return false
	}
	outside := l.World.RoofID(obj.Location) == 0
	radius := 256
	var best tile.Point
	for tries := 128; tries >= 0; tries-- {
		du := l.Rand.RandomNumber(radius*2) - radius
		dv := l.Rand.RandomNumber(radius*2) - radius
		dz := l.Rand.RandomNumber(radius*2) - radius
		pos := obj.Location.Add(tile.P(du, dv, dz))
		h := l.World.SlopeHeight(pos).Height
		if h > pos.Z+tile.MaxStepHeight || h < pos.Z-tile.MaxStepHeight*4 {
			continue
		}
		dz = int(h) - int(obj.Location.Z)
		if outside != (l.World.RoofID(pos) == 0) || l.World.Blocked(obj.Body(), pos) != world.BlockNone {
			continue
		}
		if r := max(tile.Abs(du), tile.Abs(dv), tile.Abs(dz)) - 1; r < radius {
			radius = r
			tries = radius*2 + 8
		}
		pos.Z = h
		best = pos
	}
	if radius < 128 {
		slog.Debug("unstuck object", "object", obj.ID, "from", obj.Location, "to", best)
		obj.Location = best
	}
	return true
}

// NopEffects ignores every gameplay effect. Strikes always hit.
type NopEffects struct{}

func (NopEffects) LogAggressiveAct(agents.ObjectID, agents.ObjectID)             {}
func (NopEffects) EvaluateMeleeAttack(*agents.Actor, *agents.Actor)              {}
func (NopEffects) Strike(agents.ObjectID, agents.ObjectID, agents.ObjectID) bool { return true }
func (NopEffects) OffensiveObject(a *agents.Actor) agents.ObjectID               { return a.ID }
func (NopEffects) Projectile(agents.ObjectID, *agents.Actor) agents.ObjectID     { return agents.Nothing }
func (NopEffects) Invoke(*agents.Actor, Type, Use)                               {}
func (NopEffects) CastSpell(agents.ObjectID, Spell, agents.ObjectID)             {}
func (NopEffects) FallingDamage(*agents.Actor, int16)                            {}
func (NopEffects) Die(a *agents.Actor)                                           { a.Dead = true }
func (NopEffects) Vanish(*agents.Actor)                                          {}

type noPaths struct{}

func (noPaths) RequestPath(mt *Task, _ int)       { mt.PathFailed() }
func (noPaths) RequestWanderPath(mt *Task, _ int) { mt.PathFailed() }
func (noPaths) Abort(*Task)                       {}

type noWaker struct{}

func (noWaker) WakeUpThread(ThreadID, Result) {}
