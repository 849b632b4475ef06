// Package rules resolves what motions do to the world: which attack an
// actor makes with what it wields, how defenders react, how much a hit
// hurts, and what happens when an item is used.
package rules

import (
	"log/slog"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/task"
	"github.com/talgya/actorcore/internal/tile"
)

// Rand is the random source used for every combat roll.
type Rand interface {
	RandomNumber(max int) int
}

// Tunables.
const (
	bareHandDamage  = 2
	dodgeChance     = 3  // One in this many unarmed defenders dodge
	knockdownRatio  = 4  // A hit of MaxVitality/knockdownRatio knocks the target down
	safeFallImpact  = 16 // Impacts up to this magnitude do no damage
	fallDamageScale = 8  // One point of damage per this much extra impact
	arrowRange      = 160
	wandRange       = 128
)

// Rules implements motion.Effects and the task layer's Combat surface.
// Motion must be set before the first tick; the motion list and the rules
// each need the other.
type Rules struct {
	Motion  *motion.List
	Objects *agents.Registry
	Rand    Rand

	// Tick stamps aggression events.
	Tick uint64

	// OnDeath, if set, is called once when an actor dies.
	OnDeath func(a *agents.Actor)

	Log *AggressionLog
}

// New returns rules over objs. The caller wires Motion once the motion
// list exists.
func New(objs *agents.Registry, rnd Rand) *Rules {
	return &Rules{
		Objects: objs,
		Rand:    rnd,
		Log:     NewAggressionLog(DefaultLogSize),
	}
}

var (
	_ motion.Effects = (*Rules)(nil)
	_ task.Combat    = (*Rules)(nil)
)

func (r *Rules) roll(n int) int {
	if n <= 0 {
		return 0
	}
	return r.Rand.RandomNumber(n)
}

// wielded returns the object in a's right hand, or the bow in its left.
func (r *Rules) wielded(a *agents.Actor) *agents.Object {
	if o := r.Objects.Lookup(a.RightHand); o != nil {
		return o
	}
	if o := r.Objects.Lookup(a.LeftHand); o != nil && o.Kind == agents.KindBow {
		return o
	}
	return nil
}

// Attack starts the attack motion suited to what a wields.
func (r *Rules) Attack(a, target *agents.Actor) {
	a.CurrentTarget = target.ID
	w := r.wielded(a)
	switch {
	case w == nil:
		r.Motion.OneHandedSwing(a, target.ID)
	case w.Kind == agents.KindBow:
		r.Motion.FireBow(a, target.ID)
	case w.Kind == agents.KindWand:
		r.Motion.UseWand(a, target.ID)
	case w.TwoHanded || (a.Anim != nil && !a.IsActionAvailable(agents.ActionSwingHigh)):
		r.Motion.TwoHandedSwing(a, target.ID)
	default:
		r.Motion.OneHandedSwing(a, target.ID)
	}
}

// StopAttack abandons any attack a is making.
func (r *Rules) StopAttack(a *agents.Actor) {
	if mt := r.Motion.For(a.ID); mt != nil && mt.IsAttack() {
		r.Motion.Remove(mt, motion.ResultInterrupted)
	}
}

// InAttackRange reports whether a could hit something at loc with what
// it wields.
func (r *Rules) InAttackRange(a *agents.Actor, loc tile.Point) bool {
	w := r.wielded(a)
	switch {
	case w == nil:
		return a.InReach(loc)
	case w.Kind == agents.KindBow || w.Kind == agents.KindWand:
		return a.InRange(loc, r.weaponRange(w))
	}
	return a.InRange(loc, a.CrossSection+max(w.MaxRange, tile.TileUVSize))
}

func (r *Rules) weaponRange(w *agents.Object) int16 {
	if w.MaxRange > 0 {
		return w.MaxRange
	}
	if w.Kind == agents.KindBow {
		return arrowRange
	}
	return wandRange
}

// OffenseScore rates how dangerous a is.
func (r *Rules) OffenseScore(a *agents.Actor) int {
	score := int(a.Skills.Brawn)/4 + 1
	if w := r.wielded(a); w != nil {
		score += int(w.Damage) * 2
		switch w.Kind {
		case agents.KindBow:
			score += int(a.Skills.Archery) / 4
		case agents.KindWand:
			score += int(a.Skills.Spellcraft) / 4
		}
	}
	return score
}

// DefenseScore rates how hard a is to kill.
func (r *Rules) DefenseScore(a *agents.Actor) int {
	score := int(a.Vitality) + 1
	if sh := r.Objects.Lookup(a.LeftHand); sh != nil && sh.Kind == agents.KindShield {
		score += int(sh.Damage) + 4
	}
	for _, o := range r.Objects.Children(a.ID) {
		if o.Kind == agents.KindArmor && o.Worn {
			score += int(o.Damage)
		}
	}
	return score
}

// WeaponRating scores weapon in a's hands against target. Zero means the
// weapon is of no use: not a weapon, out of ammunition, or no skill.
func (r *Rules) WeaponRating(weapon agents.ObjectID, a, target *agents.Actor) int {
	w := r.Objects.Lookup(weapon)
	if w == nil || !w.IsWeapon() {
		return 0
	}
	dist := int(target.Location.Sub(a.Location).QuickHDistance())
	switch w.Kind {
	case agents.KindBow:
		if a.Skills.Archery == 0 || r.arrowFor(a) == nil {
			return 0
		}
		// Bows are best kept out of melee.
		rating := int(w.Damage) + int(a.Skills.Archery)/10
		if dist < int(a.CrossSection)*4 {
			rating /= 2
		}
		return max(rating, 1)
	case agents.KindWand:
		if w.Spell == agents.Nothing {
			return 0
		}
		return int(w.Damage) + int(a.Skills.Spellcraft)/10 + 1
	}
	return int(w.Damage) + int(a.Skills.Brawn)/10 + 1
}

// Use toggles an item in a's possession. Weapons are wielded or put
// away, shields go on or off the left arm, armor is worn or removed.
func (r *Rules) Use(a *agents.Actor, obj agents.ObjectID) {
	o := r.Objects.Lookup(obj)
	if o == nil || o.Parent != a.ID {
		return
	}
	switch o.Kind {
	case agents.KindArmor:
		o.Worn = !o.Worn
	case agents.KindShield:
		if a.LeftHand == obj {
			a.LeftHand = agents.Nothing
		} else {
			a.LeftHand = obj
		}
	case agents.KindBow:
		if a.LeftHand == obj {
			a.LeftHand = agents.Nothing
			return
		}
		a.LeftHand, a.RightHand = obj, agents.Nothing
	case agents.KindMeleeWeapon, agents.KindWand:
		if a.RightHand == obj {
			a.RightHand = agents.Nothing
			return
		}
		a.RightHand = obj
		if o.TwoHanded || r.holding(a.LeftHand, agents.KindBow) {
			a.LeftHand = agents.Nothing
		}
	default:
		return
	}
	slog.Debug("item used", "actor", a.ID, "object", obj, "kind", o.Kind)
}

func (r *Rules) holding(id agents.ObjectID, k agents.Kind) bool {
	o := r.Objects.Lookup(id)
	return o != nil && o.Kind == k
}

// LogAggressiveAct records that attacker went for target.
func (r *Rules) LogAggressiveAct(attacker, target agents.ObjectID) {
	r.Log.Add(Aggression{Tick: r.Tick, Attacker: attacker, Target: target})
}

// EvaluateMeleeAttack lets defender react to a swing from attacker: raise
// a shield or weapon, or failing that maybe duck out of the way.
func (r *Rules) EvaluateMeleeAttack(defender, attacker *agents.Actor) {
	if defender.Dead || defender.Player || !defender.IsInterruptable() {
		return
	}
	if mt := r.Motion.For(defender.ID); mt != nil && (mt.IsDefense() || mt.IsReflex()) {
		return
	}

	if sh := r.Objects.Lookup(defender.LeftHand); sh != nil && sh.Kind == agents.KindShield {
		r.Motion.ShieldParry(defender, sh.ID, attacker.ID)
		return
	}
	if w := r.Objects.Lookup(defender.RightHand); w != nil && w.Kind == agents.KindMeleeWeapon {
		if w.TwoHanded {
			r.Motion.TwoHandedParry(defender, w.ID, attacker.ID)
		} else {
			r.Motion.OneHandedParry(defender, w.ID, attacker.ID)
		}
		return
	}
	if r.roll(dodgeChance-1) == 0 {
		r.Motion.Dodge(defender, attacker.ID)
	}
}

// Strike resolves weapon hitting target. It reports whether the blow
// landed; a blocked arrow keeps flying.
func (r *Rules) Strike(weapon, enactor, target agents.ObjectID) bool {
	t := r.Objects.Actor(target)
	if t == nil {
		return r.Objects.Lookup(target) != nil
	}
	if t.Dead || t.Vitality <= 0 {
		return true
	}
	if mt := r.Motion.For(t.ID); mt != nil {
		if mt.BlockingObject(enactor) != agents.Nothing {
			slog.Debug("strike blocked", "attacker", enactor, "target", target)
			return false
		}
		if mt.Type == motion.TypeDodge && mt.Combat.Attacker == enactor {
			return false
		}
	}

	dmg := r.damage(weapon, enactor)
	dmg = max(dmg-r.armor(t), 1)
	r.hurt(t, dmg, enactor)
	return true
}

func (r *Rules) damage(weapon, enactor agents.ObjectID) int16 {
	base := int16(bareHandDamage)
	bonus := 0
	if a := r.Objects.Actor(enactor); a != nil {
		bonus = int(a.Skills.Brawn) / 20
	}
	if w := r.Objects.Lookup(weapon); w != nil && w.Kind != agents.KindActor {
		base = max(w.Damage, 1)
		if w.Kind == agents.KindArrow {
			bonus = 0
			if a := r.Objects.Actor(enactor); a != nil {
				bonus = int(a.Skills.Archery) / 20
			}
		}
	}
	return base + int16(r.roll(bonus))
}

func (r *Rules) armor(a *agents.Actor) int16 {
	var n int16
	for _, o := range r.Objects.Children(a.ID) {
		if o.Kind == agents.KindArmor && o.Worn {
			n += o.Damage
		}
	}
	return n
}

// hurt takes dmg from a and plays the matching reaction.
func (r *Rules) hurt(a *agents.Actor, dmg int16, by agents.ObjectID) {
	a.Vitality -= dmg
	slog.Debug("actor hurt", "actor", a.ID, "damage", dmg, "vitality", a.Vitality, "by", by)
	if a.Vitality <= 0 {
		a.Vitality = 0
		r.Motion.Die(a)
		return
	}
	if !a.IsInterruptable() {
		return
	}
	if dmg >= max(a.MaxVitality/knockdownRatio, 1) {
		r.Motion.FallDown(a, by)
	} else {
		r.Motion.AcceptHit(a, by)
	}
}

// OffensiveObject returns the weapon a attacks with, or a itself when
// bare-handed.
func (r *Rules) OffensiveObject(a *agents.Actor) agents.ObjectID {
	if w := r.wielded(a); w != nil {
		return w.ID
	}
	return a.ID
}

func (r *Rules) arrowFor(a *agents.Actor) *agents.Object {
	for _, o := range r.Objects.Children(a.ID) {
		if o.Kind == agents.KindArrow {
			return o
		}
	}
	return nil
}

// Projectile hands out one arrow from a's inventory. The arrow leaves the
// inventory; the motion places it in the world.
func (r *Rules) Projectile(bow agents.ObjectID, a *agents.Actor) agents.ObjectID {
	if !r.holding(bow, agents.KindBow) {
		return agents.Nothing
	}
	arrow := r.arrowFor(a)
	if arrow == nil {
		return agents.Nothing
	}
	return arrow.ID
}

// Invoke performs one use or drop gesture.
func (r *Rules) Invoke(a *agents.Actor, kind motion.Type, u motion.Use) {
	switch kind {
	case motion.TypeUseObject:
		r.Use(a, u.Direct)
	case motion.TypeDropObject:
		r.drop(a, u.Direct, u.TargetLoc)
	case motion.TypeDropObjectOnObject:
		if ind := r.Objects.Lookup(u.Indirect); ind != nil {
			if ind.Kind == agents.KindActor {
				r.give(a, u.Direct, ind.ID)
			} else {
				r.drop(a, u.Direct, ind.Location)
			}
		}
	case motion.TypeDropObjectOnTAI:
		r.drop(a, u.Direct, u.TargetLoc)
	default:
		slog.Debug("use gesture ignored", "actor", a.ID, "type", kind, "object", u.Direct)
	}
}

func (r *Rules) release(a *agents.Actor, obj agents.ObjectID) {
	if a.RightHand == obj {
		a.RightHand = agents.Nothing
	}
	if a.LeftHand == obj {
		a.LeftHand = agents.Nothing
	}
	if o := r.Objects.Lookup(obj); o != nil {
		o.Worn = false
	}
}

func (r *Rules) drop(a *agents.Actor, obj agents.ObjectID, at tile.Point) {
	o := r.Objects.Lookup(obj)
	if o == nil || o.Parent != a.ID {
		return
	}
	if at.IsNowhere() {
		at = a.Location
	}
	r.release(a, obj)
	r.Objects.Move(obj, agents.WorldID, at)
}

func (r *Rules) give(a *agents.Actor, obj, to agents.ObjectID) {
	o := r.Objects.Lookup(obj)
	if o == nil || o.Parent != a.ID {
		return
	}
	r.release(a, obj)
	r.Objects.Move(obj, to, tile.Point{})
}

// CastSpell releases spell, cast by caster (an actor or a wand), at
// target. Skills are not cast at anything.
func (r *Rules) CastSpell(caster agents.ObjectID, spell motion.Spell, target agents.ObjectID) {
	s := r.Objects.Lookup(spell.Object)
	if s == nil || s.Skill {
		return
	}
	r.LogAggressiveAct(r.owner(caster), target)
	t := r.Objects.Actor(target)
	if t == nil || t.Dead || t.Vitality <= 0 {
		return
	}
	dmg := max(s.Damage, 1)
	if a := r.Objects.Actor(r.owner(caster)); a != nil {
		dmg += int16(r.roll(int(a.Skills.Spellcraft) / 20))
	}
	r.hurt(t, dmg, caster)
}

// owner returns the actor holding obj, or obj itself.
func (r *Rules) owner(obj agents.ObjectID) agents.ObjectID {
	if o := r.Objects.Lookup(obj); o != nil && o.Kind != agents.KindActor && r.Objects.Actor(o.Parent) != nil {
		return o.Parent
	}
	return obj
}

// FallingDamage hurts a in proportion to how hard it hit the ground.
func (r *Rules) FallingDamage(a *agents.Actor, impact int16) {
	if impact <= safeFallImpact || a.Dead {
		return
	}
	dmg := (impact-safeFallImpact)/fallDamageScale + 1
	a.Vitality -= dmg
	slog.Debug("falling damage", "actor", a.ID, "impact", impact, "damage", dmg)
	if a.Vitality <= 0 {
		a.Vitality = 0
		r.Die(a)
	}
}

// Die marks a dead once. Its band lets it go.
func (r *Rules) Die(a *agents.Actor) {
	if a.Dead {
		return
	}
	a.Dead = true
	a.Vitality = 0
	a.SetFightStance(false)
	a.CurrentTarget = agents.Nothing
	if leader := r.Objects.Actor(a.Leader); leader != nil && leader.Followers != nil {
		leader.Followers.Remove(a.ID)
	}
	a.Leader = agents.Nothing
	slog.Info("actor died", "actor", a.ID, "name", a.Name)
	if r.OnDeath != nil {
		r.OnDeath(a)
	}
}

// Vanish drops a's belongings where it stood and removes it.
func (r *Rules) Vanish(a *agents.Actor) {
	for _, o := range r.Objects.Children(a.ID) {
		r.Objects.Move(o.ID, agents.WorldID, a.Location)
	}
	r.Objects.Remove(a.ID)
	slog.Debug("actor vanished", "actor", a.ID)
}
