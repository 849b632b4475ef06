package task

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// Hunt subtask flags.
const (
	huntWander uint8 = 1 << iota // Subtask is a wander
	huntGoto                     // Subtask is a goto toward the current target
)

// huntCore is the subtask state shared by every hunt. While away from the
// target a hunt runs a goto toward it, or a wander when there is nothing
// to go to.
type huntCore struct {
	sub   Task
	flags uint8
}

func (c *huntCore) hunt() *huntCore { return c }

// hunter is implemented by every hunt variant.
type hunter interface {
	Task
	hunt() *huntCore
	evaluateTarget()
	atTarget() bool
	atTargetAbort()
	atTargetEvaluate() Result
	atTargetUpdate() Result
	targetHasChanged(g Task) bool
	// setupGoto returns a goto toward the current target, or nil when
	// there is none.
	setupGoto() Task
}

func (c *huntCore) removeSub(n *node) {
	if c.sub != nil {
		n.drop(c.sub)
	}
	c.sub, c.flags = nil, 0
}

func huntEvaluate(h hunter) Result {
	if !h.atTarget() {
		return NotDone
	}
	h.hunt().removeSub(h.base())
	return h.atTargetEvaluate()
}

func huntUpdate(h hunter) Result {
	n, c := h.base(), h.hunt()
	if mt := n.motion(); mt != nil && mt.IsPrivileged() {
		return NotDone
	}

	h.evaluateTarget()

	if h.atTarget() {
		c.removeSub(n)
		return h.atTargetUpdate()
	}

	if c.flags&huntGoto != 0 && h.targetHasChanged(c.sub) {
		c.removeSub(n)
	}
	if c.flags&huntGoto == 0 {
		if g := h.setupGoto(); g != nil {
			c.removeSub(n)
			c.sub, c.flags = g, huntGoto
		} else if c.flags&huntWander == 0 {
			c.sub, c.flags = NewWander(n.stack), huntWander
		}
	}
	if c.sub != nil {
		c.sub.Update()
	}
	return NotDone
}

func huntAbort(h hunter) {
	h.hunt().removeSub(h.base())
	if h.atTarget() {
		h.atTargetAbort()
	}
}

func (c *huntCore) subtasks() []Task {
	if c.sub == nil {
		return nil
	}
	return []Task{c.sub}
}

func (c *huntCore) archiveCore(w *archive.Writer) {
	w.U8(c.flags)
	if c.flags != 0 {
		w.I16(int16(c.sub.base().id))
	}
}

func (c *huntCore) restoreCore(r *archive.Reader, n *node) {
	c.flags = r.U8()
	n.links[0] = NoTask
	if c.flags != 0 {
		n.links[0] = ID(r.I16())
	}
}

func (c *huntCore) fixupCore(ts *Tasks, n *node) {
	c.sub = resolve[Task](ts, n.links[0])
}

// senseObject returns the nearest object matching target that n's actor
// can sense.
func senseObject(n *node, target ObjectTarget) (agents.ObjectID, bool) {
	a, env := n.actor(), n.env()
	for _, o := range target.Objects(env.Objects, a.Location) {
		if env.canSense(a, o) {
			return o.ID, true
		}
	}
	return agents.Nothing, false
}

// HuntToBeNearLocation heads for the nearest point of a location target
// until within range of it.
type HuntToBeNearLocation struct {
	node
	huntCore
	target  LocationTarget
	current tile.Point
	rng     int16
	evalCtr uint8
}

func NewHuntToBeNearLocation(s *Stack, target LocationTarget, rng int16) *HuntToBeNearLocation {
	return register(s, &HuntToBeNearLocation{target: target, current: tile.Nowhere, rng: rng})
}

func (t *HuntToBeNearLocation) Kind() Kind       { return KindHuntToBeNearLocation }
func (t *HuntToBeNearLocation) Evaluate() Result { return huntEvaluate(t) }
func (t *HuntToBeNearLocation) Update() Result   { return huntUpdate(t) }
func (t *HuntToBeNearLocation) Abort()           { huntAbort(t) }

func (t *HuntToBeNearLocation) Equal(o Task) bool {
	ot, ok := o.(*HuntToBeNearLocation)
	return ok && ot.target.equal(t.target) && ot.rng == t.rng
}

func (t *HuntToBeNearLocation) evaluateTarget() {
	if t.evalCtr == 0 {
		t.current = t.target.Where(t.actor().Location)
		t.evalCtr = TargetEvaluateRate
	}
	t.evalCtr--
}

func (t *HuntToBeNearLocation) atTarget() bool {
	return !t.current.IsNowhere() && t.actor().InRange(t.current, t.rng)
}

func (t *HuntToBeNearLocation) atTargetAbort()           {}
func (t *HuntToBeNearLocation) atTargetEvaluate() Result { return Succeeded }
func (t *HuntToBeNearLocation) atTargetUpdate() Result   { return Succeeded }

func (t *HuntToBeNearLocation) targetHasChanged(g Task) bool {
	return g.(*GotoLocation).Target() != t.current
}

func (t *HuntToBeNearLocation) setupGoto() Task {
	if t.current.IsNowhere() {
		return nil
	}
	return NewGotoLocation(t.stack, t.current, NoRun)
}

func (t *HuntToBeNearLocation) archive(w *archive.Writer) {
	t.archiveCore(w)
	w.Point(t.current)
	writeLocationTarget(w, t.target)
	w.U16(uint16(t.rng))
	w.U8(t.evalCtr)
}

func (t *HuntToBeNearLocation) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.current = r.Point()
	t.target = readLocationTarget(r)
	t.rng = int16(r.U16())
	t.evalCtr = r.U8()
}

func (t *HuntToBeNearLocation) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// objectHunt is the target state of hunts after an object.
type objectHunt struct {
	current agents.ObjectID
	evalCtr uint8
}

func (h *objectHunt) targetHasChanged(g Task) bool {
	return g.(*GotoObject).Target() != h.current
}

func (h *objectHunt) evaluate(n *node, target ObjectTarget) {
	if h.evalCtr == 0 {
		if id, ok := senseObject(n, target); ok {
			h.current = id
		}
		h.evalCtr = TargetEvaluateRate
	}
	h.evalCtr--
}

func (h *objectHunt) location(n *node) tile.Point {
	if h.current == agents.Nothing {
		return tile.Nowhere
	}
	return n.env().Objects.Location(h.current)
}

func (h *objectHunt) archiveHunt(w *archive.Writer) {
	w.U16(uint16(h.current))
	w.U8(h.evalCtr)
}

func (h *objectHunt) restoreHunt(r *archive.Reader) {
	h.current = agents.ObjectID(r.U16())
	h.evalCtr = r.U8()
}

// HuntToBeNearObject heads for the nearest sensed object of a target
// until within range of it.
type HuntToBeNearObject struct {
	node
	huntCore
	objectHunt
	target ObjectTarget
	rng    int16
}

func NewHuntToBeNearObject(s *Stack, target ObjectTarget, rng int16) *HuntToBeNearObject {
	return register(s, &HuntToBeNearObject{target: target, rng: rng})
}

func (t *HuntToBeNearObject) Kind() Kind       { return KindHuntToBeNearObject }
func (t *HuntToBeNearObject) Evaluate() Result { return huntEvaluate(t) }
func (t *HuntToBeNearObject) Update() Result   { return huntUpdate(t) }
func (t *HuntToBeNearObject) Abort()           { huntAbort(t) }

func (t *HuntToBeNearObject) Equal(o Task) bool {
	ot, ok := o.(*HuntToBeNearObject)
	return ok && ot.target == t.target && ot.rng == t.rng
}

func (t *HuntToBeNearObject) evaluateTarget() { t.evaluate(&t.node, t.target) }

func (t *HuntToBeNearObject) atTarget() bool {
	loc := t.location(&t.node)
	return !loc.IsNowhere() && t.actor().InRange(loc, t.rng)
}

func (t *HuntToBeNearObject) atTargetAbort()           {}
func (t *HuntToBeNearObject) atTargetEvaluate() Result { return Succeeded }
func (t *HuntToBeNearObject) atTargetUpdate() Result   { return Succeeded }

func (t *HuntToBeNearObject) setupGoto() Task {
	if t.current == agents.Nothing {
		return nil
	}
	return NewGotoObject(t.stack, t.current, false)
}

func (t *HuntToBeNearObject) archive(w *archive.Writer) {
	t.archiveCore(w)
	writeObjectTarget(w, t.target)
	t.archiveHunt(w)
	w.U16(uint16(t.rng))
}

func (t *HuntToBeNearObject) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = readObjectTarget(r)
	t.restoreHunt(r)
	t.rng = int16(r.U16())
}

func (t *HuntToBeNearObject) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// HuntToPossess heads for an object and succeeds once the actor holds it.
type HuntToPossess struct {
	node
	huntCore
	objectHunt
	target ObjectTarget
	grab   bool
}

func NewHuntToPossess(s *Stack, target ObjectTarget) *HuntToPossess {
	return register(s, &HuntToPossess{target: target})
}

func (t *HuntToPossess) Kind() Kind       { return KindHuntToPossess }
func (t *HuntToPossess) Evaluate() Result { return huntEvaluate(t) }
func (t *HuntToPossess) Update() Result   { return huntUpdate(t) }
func (t *HuntToPossess) Abort()           { huntAbort(t) }

func (t *HuntToPossess) Equal(o Task) bool {
	ot, ok := o.(*HuntToPossess)
	return ok && ot.target == t.target
}

func (t *HuntToPossess) evaluateTarget() { t.evaluate(&t.node, t.target) }

// holding reports whether the current target is somewhere inside the
// actor's inventory.
func (t *HuntToPossess) holding() bool {
	reg := t.env().Objects
	id := t.actor().ID
	for o := reg.Lookup(t.current); o != nil; o = reg.Lookup(o.Parent) {
		if o.Parent == id {
			return true
		}
		if o.Parent == agents.WorldID || o.Parent == agents.Nothing {
			break
		}
	}
	return false
}

func (t *HuntToPossess) atTarget() bool {
	if t.current == agents.Nothing {
		return false
	}
	return t.actor().InReach(t.location(&t.node)) || (t.grab && t.holding())
}

func (t *HuntToPossess) atTargetAbort() {}

func (t *HuntToPossess) atTargetEvaluate() Result {
	if t.current != agents.Nothing && t.holding() {
		return Succeeded
	}
	return NotDone
}

// TODO: pick the object up once a pickup motion exists.
func (t *HuntToPossess) atTargetUpdate() Result { return NotDone }

func (t *HuntToPossess) setupGoto() Task {
	if t.current == agents.Nothing {
		return nil
	}
	return NewGotoObject(t.stack, t.current, false)
}

func (t *HuntToPossess) archive(w *archive.Writer) {
	t.archiveCore(w)
	writeObjectTarget(w, t.target)
	t.archiveHunt(w)
	w.Bool(t.grab)
}

func (t *HuntToPossess) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = readObjectTarget(r)
	t.restoreHunt(r)
	t.grab = r.Bool()
}

func (t *HuntToPossess) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// actorHunt is the target state of hunts after an actor.
type actorHunt struct {
	current agents.ObjectID
	track   bool
}

func (h *actorHunt) targetHasChanged(g Task) bool {
	return g.(*GotoActor).Target() != h.current
}

func (h *actorHunt) targetActor(n *node) *agents.Actor {
	if h.current == agents.Nothing {
		return nil
	}
	return n.env().Objects.Actor(h.current)
}

func (h *actorHunt) location(n *node) tile.Point {
	if ta := h.targetActor(n); ta != nil {
		return ta.Location
	}
	return tile.Nowhere
}

func (h *actorHunt) setup(n *node) Task {
	if h.targetActor(n) == nil {
		return nil
	}
	return NewGotoActor(n.stack, h.current, h.track)
}

func (h *actorHunt) senses(n *node, ta *agents.Actor) bool {
	return h.track || n.env().canSense(n.actor(), &ta.Object)
}

func (h *actorHunt) archiveHunt(w *archive.Writer) {
	w.U16(uint16(h.current))
	w.Bool(h.track)
}

func (h *actorHunt) restoreHunt(r *archive.Reader) {
	h.current = agents.ObjectID(r.U16())
	h.track = r.Bool()
}

// HuntToBeNearActor heads for an actor until within range, backing off
// when it gets too close.
type HuntToBeNearActor struct {
	node
	huntCore
	actorHunt
	target  ActorTarget
	goAway  *GoAwayFromObject
	rng     int16
	evalCtr uint8
}

func NewHuntToBeNearActor(s *Stack, target ActorTarget, rng int16, track bool) *HuntToBeNearActor {
	return register(s, &HuntToBeNearActor{
		actorHunt: actorHunt{track: track},
		target:    target,
		rng:       rng,
	})
}

func (t *HuntToBeNearActor) Kind() Kind       { return KindHuntToBeNearActor }
func (t *HuntToBeNearActor) Evaluate() Result { return huntEvaluate(t) }
func (t *HuntToBeNearActor) Update() Result   { return huntUpdate(t) }
func (t *HuntToBeNearActor) Abort()           { huntAbort(t) }

func (t *HuntToBeNearActor) Equal(o Task) bool {
	ot, ok := o.(*HuntToBeNearActor)
	return ok && ot.target == t.target && ot.track == t.track && ot.rng == t.rng
}

func (t *HuntToBeNearActor) evaluateTarget() {
	if t.evalCtr == 0 {
		for _, s := range t.target.actors(t.env().Objects, t.actor()) {
			if !t.senses(&t.node, s.actor) {
				continue
			}
			if s.actor.ID != t.current {
				if t.atTarget() {
					t.atTargetAbort()
				}
				t.current = s.actor.ID
			}
			break
		}
		t.evalCtr = TargetEvaluateRate
	}
	t.evalCtr--
}

func (t *HuntToBeNearActor) atTarget() bool {
	loc := t.location(&t.node)
	if !loc.IsNowhere() && t.actor().InRange(loc, t.rng) {
		return true
	}
	t.dropGoAway()
	return false
}

func (t *HuntToBeNearActor) dropGoAway() {
	if t.goAway != nil {
		t.drop(t.goAway)
		t.goAway = nil
	}
}

func (t *HuntToBeNearActor) atTargetAbort() { t.dropGoAway() }

func (t *HuntToBeNearActor) atTargetEvaluate() Result {
	if t.actor().InRange(t.location(&t.node), tile.TooClose) {
		return NotDone
	}
	t.dropGoAway()
	return Succeeded
}

func (t *HuntToBeNearActor) atTargetUpdate() Result {
	if t.actor().InRange(t.location(&t.node), tile.TooClose) {
		if t.goAway == nil {
			t.goAway = NewGoAwayFromObject(t.stack, t.current, false)
		}
		t.goAway.Update()
		return NotDone
	}
	t.dropGoAway()
	return Succeeded
}

func (t *HuntToBeNearActor) setupGoto() Task { return t.setup(&t.node) }

func (t *HuntToBeNearActor) subtasks() []Task {
	return appendSub(t.huntCore.subtasks(), t.goAway)
}

func (t *HuntToBeNearActor) archive(w *archive.Writer) {
	t.archiveCore(w)
	writeActorTarget(w, t.target)
	t.archiveHunt(w)
	w.I16(int16(subID(t.goAway)))
	w.U16(uint16(t.rng))
	w.U8(t.evalCtr)
}

func (t *HuntToBeNearActor) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = readActorTarget(r)
	t.restoreHunt(r)
	t.links[1] = ID(r.I16())
	t.rng = int16(r.U16())
	t.evalCtr = r.U8()
}

func (t *HuntToBeNearActor) fixup(ts *Tasks) {
	t.fixupCore(ts, &t.node)
	t.goAway = resolve[*GoAwayFromObject](ts, t.links[1])
}

// HuntToKill flags.
const killEvalWeapon uint8 = 1 << iota

// currentWeaponBonus favors keeping the weapon in hand over an equal one.
const currentWeaponBonus = 1

// HuntToKill picks the best enemy to fight according to the actor's
// combat behavior, closes in and attacks. It never finishes by itself.
type HuntToKill struct {
	node
	huntCore
	actorHunt
	target     ActorTarget
	evalCtr    uint8
	specialCtr uint8
	killFlags  uint8
}

// NewHuntToKill starts a fight, keeping the actor's current target if it
// already has one, and draws its weapon.
func NewHuntToKill(s *Stack, target ActorTarget, track bool) *HuntToKill {
	t := register(s, &HuntToKill{
		actorHunt:  actorHunt{track: track},
		target:     target,
		specialCtr: 10,
		killFlags:  killEvalWeapon,
	})
	a := t.actor()
	if t.env().Objects.Actor(a.CurrentTarget) != nil {
		t.current = a.CurrentTarget
	}
	a.SetFightStance(true)
	return t
}

func (t *HuntToKill) Kind() Kind       { return KindHuntToKill }
func (t *HuntToKill) Evaluate() Result { return huntEvaluate(t) }

func (t *HuntToKill) Update() Result {
	if t.specialCtr == 0 {
		a := t.actor()
		a.Status |= agents.ActorSpecialAttack
		if a.Skills.Spellcraft >= 99 {
			t.specialCtr = 3
		} else {
			t.specialCtr = 10
		}
	} else {
		t.specialCtr--
	}
	return huntUpdate(t)
}

func (t *HuntToKill) Abort() {
	huntAbort(t)
	a := t.actor()
	a.Status &^= agents.ActorSpecialAttack
	a.SetFightStance(false)
}

func (t *HuntToKill) Equal(o Task) bool {
	ot, ok := o.(*HuntToKill)
	return ok && ot.target == t.target && ot.track == t.track
}

// closeness scores a candidate higher the nearer it is.
func closeness(dist int) int { return max(tile.MaxSenseRange-dist, 0) }

func (t *HuntToKill) evaluateTarget() {
	a, env := t.actor(), t.env()

	if t.killFlags&killEvalWeapon != 0 && a.IsInterruptable() {
		t.evaluateWeapon()
		t.killFlags &^= killEvalWeapon
	}

	cur := t.targetActor(&t.node)
	if t.evalCtr != 0 && (cur == nil || !cur.Dead) {
		t.evalCtr--
		return
	}

	var best *agents.Actor
	bestScore := 0
pick:
	for _, s := range t.target.actors(env.Objects, a) {
		c := s.actor
		if c.Dead || !t.senses(&t.node, c) {
			continue
		}
		var score int
		switch a.Behavior {
		case agents.BehaviorHungry:
			best = c
			break pick
		case agents.BehaviorCowardly:
			score = closeness(s.dist) * 16 / max(env.Combat.DefenseScore(c), 1)
		case agents.BehaviorBerserk:
			score = closeness(s.dist) * env.Combat.OffenseScore(c)
		case agents.BehaviorSmart:
			score = closeness(s.dist) * env.Combat.OffenseScore(c) / max(env.Combat.DefenseScore(c), 1)
		}
		if score > bestScore || best == nil {
			best, bestScore = c, score
		}
	}

	bestID := agents.Nothing
	if best != nil {
		bestID = best.ID
	}
	if bestID != t.current {
		if t.atTarget() {
			t.atTargetAbort()
		}
		t.current = bestID
		a.CurrentTarget = bestID
	}
	t.killFlags |= killEvalWeapon
	t.evalCtr = TargetEvaluateRate - 1
}

func (t *HuntToKill) atTarget() bool {
	ta := t.targetActor(&t.node)
	return ta != nil && t.env().Combat.InAttackRange(t.actor(), ta.Location)
}

func (t *HuntToKill) atTargetAbort() { t.env().Combat.StopAttack(t.actor()) }

func (t *HuntToKill) atTargetEvaluate() Result { return NotDone }

func (t *HuntToKill) atTargetUpdate() Result {
	a := t.actor()
	ta := t.targetActor(&t.node)
	if ta != nil && a.IsInterruptable() && t.rand(7) == 0 {
		t.env().Combat.Attack(a, ta)
		t.killFlags |= killEvalWeapon
	}
	return NotDone
}

func (t *HuntToKill) setupGoto() Task { return t.setup(&t.node) }

// evaluateWeapon wields the best rated weapon the actor carries against
// the current target. Non-player actors also put on any armor they have.
// Players keep whatever they hold unless it is useless.
func (t *HuntToKill) evaluateWeapon() {
	a, env := t.actor(), t.env()
	rules := env.Combat
	target := t.targetActor(&t.node)
	current := a.RightHand

	if a.Player {
		if target == nil || current == agents.Nothing || rules.WeaponRating(current, a, target) != 0 {
			return
		}
	}

	best, bestRating := agents.Nothing, 0
	for _, o := range env.Objects.Children(a.ID) {
		if !a.Player && o.Kind == agents.KindArmor {
			if !o.Worn {
				rules.Use(a, o.ID)
			}
			continue
		}
		if !o.IsWeapon() || target == nil {
			continue
		}
		rating := rules.WeaponRating(o.ID, a, target)
		if rating == 0 {
			continue
		}
		if o.ID == current {
			rating += currentWeaponBonus
		}
		if rating > bestRating {
			best, bestRating = o.ID, rating
		}
	}

	switch {
	case best != agents.Nothing:
		if best != current {
			rules.Use(a, best)
		}
	case current != agents.Nothing:
		rules.Use(a, current)
	}
}

func (t *HuntToKill) archive(w *archive.Writer) {
	t.archiveCore(w)
	writeActorTarget(w, t.target)
	t.archiveHunt(w)
	w.U8(t.evalCtr)
	w.U8(t.specialCtr)
	w.U8(t.killFlags)
}

func (t *HuntToKill) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = readActorTarget(r)
	t.restoreHunt(r)
	t.evalCtr = r.U8()
	t.specialCtr = r.U8()
	t.killFlags = r.U8()
}

func (t *HuntToKill) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// HuntToGive follows an actor while carrying something for it. Handing
// the object over is left to the caller, so the hunt never arrives.
type HuntToGive struct {
	node
	huntCore
	actorHunt
	target ActorTarget
	give   agents.ObjectID
}

func NewHuntToGive(s *Stack, target ActorTarget, give agents.ObjectID, track bool) *HuntToGive {
	t := register(s, &HuntToGive{actorHunt: actorHunt{track: track}, target: target, give: give})
	t.current = target.ID
	return t
}

func (t *HuntToGive) Kind() Kind       { return KindHuntToGive }
func (t *HuntToGive) Evaluate() Result { return huntEvaluate(t) }
func (t *HuntToGive) Update() Result   { return huntUpdate(t) }
func (t *HuntToGive) Abort()           { huntAbort(t) }

func (t *HuntToGive) Equal(o Task) bool {
	ot, ok := o.(*HuntToGive)
	return ok && ot.target == t.target && ot.track == t.track && ot.give == t.give
}

// Gift returns the object being carried to the target.
func (t *HuntToGive) Gift() agents.ObjectID { return t.give }

func (t *HuntToGive) evaluateTarget()          {}
func (t *HuntToGive) atTarget() bool           { return false }
func (t *HuntToGive) atTargetAbort()           {}
func (t *HuntToGive) atTargetEvaluate() Result { return NotDone }
func (t *HuntToGive) atTargetUpdate() Result   { return NotDone }
func (t *HuntToGive) setupGoto() Task          { return t.setup(&t.node) }

func (t *HuntToGive) archive(w *archive.Writer) {
	t.archiveCore(w)
	writeActorTarget(w, t.target)
	t.archiveHunt(w)
	w.U16(uint16(t.give))
}

func (t *HuntToGive) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = readActorTarget(r)
	t.restoreHunt(r)
	t.give = agents.ObjectID(r.U16())
}

func (t *HuntToGive) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }
