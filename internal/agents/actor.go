package agents

import (
	"github.com/talgya/actorcore/internal/tile"
)

// Disposition is an actor's allegiance toward the player party.
type Disposition uint8

const (
	Friendly Disposition = iota
	Enemy
)

// CombatBehavior selects how an actor picks among hostile targets.
type CombatBehavior uint8

const (
	BehaviorHungry   CombatBehavior = iota // First sensed target
	BehaviorCowardly                       // Weakest defense nearby
	BehaviorBerserk                        // Strongest offense nearby
	BehaviorSmart                          // Best offense to defense ratio
)

// ActorFlags are per-actor status bits.
type ActorFlags uint8

const (
	ActorSpecialAttack ActorFlags = 1 << iota // May open with a special attack
	ActorFightStance                          // Weapon drawn
)

// Skills are an actor's trained abilities on a 0-100 scale.
type Skills struct {
	Brawn      uint8 `json:"brawn"`
	Archery    uint8 `json:"archery"`
	Spellcraft uint8 `json:"spellcraft"`
}

// Counter values for the interruptable state.
const (
	interruptable   = 0
	uninterruptable = 255
)

// Actor is a living object that can own a motion record and a task stack.
type Actor struct {
	Object

	Facing      tile.Direction `json:"facing"`
	Disposition Disposition    `json:"disposition"`
	Player      bool           `json:"player"`
	Behavior    CombatBehavior `json:"behavior"`
	Skills      Skills         `json:"skills"`
	Vitality    int16          `json:"vitality"`
	MaxVitality int16          `json:"max_vitality"`
	Dead        bool           `json:"dead"`
	Immobile    bool           `json:"immobile,omitempty"`

	// DisappearOnDeath removes the body entirely when the death animation ends.
	DisappearOnDeath bool `json:"disappear_on_death,omitempty"`

	Status        ActorFlags `json:"status"`
	CurrentTarget ObjectID   `json:"current_target"`
	RightHand     ObjectID   `json:"right_hand"`
	LeftHand      ObjectID   `json:"left_hand"`
	Leader        ObjectID   `json:"leader"`
	Followers     *Band      `json:"-"`

	CycleCount int16       `json:"cycle_count"`
	Anim       *Appearance `json:"anim,omitempty"`

	actionCounter uint8
}

// NewActor returns a living actor placed in the world.
func NewActor(id ObjectID, name string, at tile.Point) *Actor {
	return &Actor{
		Object: Object{
			ID:           id,
			Name:         name,
			Kind:         KindActor,
			Location:     at,
			Parent:       WorldID,
			Height:       40,
			CrossSection: 8,
		},
		Facing:      tile.Up,
		Vitality:    20,
		MaxVitality: 20,
	}
}

// IsInterruptable reports whether a new goal or motion may preempt the actor.
func (a *Actor) IsInterruptable() bool { return a.actionCounter == interruptable }

// IsPermanentlyUninterruptable reports whether the actor is locked until
// explicitly released.
func (a *Actor) IsPermanentlyUninterruptable() bool {
	return a.actionCounter == uninterruptable
}

// SetInterruptable releases the actor, or locks it until released.
func (a *Actor) SetInterruptable(val bool) {
	if val {
		a.actionCounter = interruptable
	} else {
		a.actionCounter = uninterruptable
	}
}

// SetActionPoints makes the actor uninterruptable for n ticks.
func (a *Actor) SetActionPoints(n int) {
	a.actionCounter = uint8(tile.Clamp(0, n, uninterruptable-1))
}

// ActionCounter returns the raw interruptable counter.
func (a *Actor) ActionCounter() uint8 { return a.actionCounter }

// RestoreActionCounter sets the raw counter when loading a save.
func (a *Actor) RestoreActionCounter(n uint8) { a.actionCounter = n }

// Tick counts down temporary uninterruptability.
func (a *Actor) Tick() {
	if a.actionCounter != interruptable && a.actionCounter != uninterruptable {
		a.actionCounter--
	}
}

// Turn rotates the actor one octant toward dir along the shorter way.
func (a *Actor) Turn(dir tile.Direction) {
	if a.Facing == dir {
		return
	}
	if (int(dir)-int(a.Facing))&7 < 4 {
		a.Facing = a.Facing.Rotate(1)
	} else {
		a.Facing = a.Facing.Rotate(-1)
	}
}

// IsActionAvailable reports whether the actor can play act.
func (a *Actor) IsActionAvailable(act Action) bool { return a.Anim.Available(act) }

// SetAction starts act; false means the actor has no such animation.
func (a *Actor) SetAction(act Action, flags AnimFlags) bool { return a.Anim.Set(act, flags) }

// NextAnimationFrame advances the animation and reports whether a
// non-repeating sequence has finished.
func (a *Actor) NextAnimationFrame() bool { return a.Anim.Next() }

// AnimationFrames returns the frame count of act, or zero when unavailable.
func (a *Actor) AnimationFrames(act Action) int16 { return a.Anim.FrameCount(act) }

// CurrentAction returns the sequence being played.
func (a *Actor) CurrentAction() Action {
	if a.Anim == nil {
		return ActionStand
	}
	return a.Anim.Current
}

// InRange reports whether loc is within r horizontally and vertically.
func (a *Actor) InRange(loc tile.Point, r int16) bool {
	d := loc.Sub(a.Location)
	return d.QuickHDistance() <= r && tile.Abs(d.Z) <= r
}

// InReach reports whether loc is close enough to pick up or hand over.
func (a *Actor) InReach(loc tile.Point) bool {
	return a.InRange(loc, a.CrossSection+tile.TileUVSize)
}

// SetFightStance draws or sheathes the actor's weapon.
func (a *Actor) SetFightStance(on bool) {
	if on {
		a.Status |= ActorFightStance
	} else {
		a.Status &^= ActorFightStance
	}
}

// Heal restores vitality up to the maximum.
func (a *Actor) Heal(n int16) {
	a.Vitality = tile.Clamp(0, a.Vitality+n, a.MaxVitality)
}
