// Package motion runs the physical side of every actor and thrown object:
// one record per moving object, advanced once per tick by a List. Walks,
// falls, ladder climbs, combat choreography and use/drop gestures are all
// states of the same record, selected by its Type.
package motion

import "fmt"

// Type selects which action routine advances a record.
type Type uint8

const (
	TypeNone Type = iota
	TypeWalk
	TypeStep
	TypeRun
	TypeClimbUp
	TypeClimbDown
	TypeTalk
	TypeLand
	TypeLandBadly
	TypeJump
	TypeTurn
	TypeGive
	TypeRise
	TypeWait
	TypeThrown
	TypeShot
	TypeUseObject
	TypeUseObjectOnObject
	TypeUseObjectOnTAI
	TypeUseObjectOnLocation
	TypeUseTAI
	TypeDropObject
	TypeDropObjectOnObject
	TypeDropObjectOnTAI
	TypeTwoHandedSwing
	TypeOneHandedSwing
	TypeFireBow
	TypeCastSpell
	TypeUseWand
	TypeTwoHandedParry
	TypeOneHandedParry
	TypeShieldParry
	TypeDodge
	TypeAcceptHit
	TypeFallDown
	TypeDie

	numTypes
)

var typeNames = [numTypes]string{
	"none", "walk", "step", "run", "climb-up", "climb-down", "talk", "land",
	"land-badly", "jump", "turn", "give", "rise", "wait", "thrown", "shot",
	"use-object", "use-object-on-object", "use-object-on-tai",
	"use-object-on-location", "use-tai", "drop-object",
	"drop-object-on-object", "drop-object-on-tai", "two-handed-swing",
	"one-handed-swing", "fire-bow", "cast-spell", "use-wand",
	"two-handed-parry", "one-handed-parry", "shield-parry", "dodge",
	"accept-hit", "fall-down", "die",
}

func (t Type) String() string {
	if t < numTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// Flags are the per-record state bits.
type Flags uint16

const (
	FlagReset      Flags = 1 << iota // Target changed; reinitialize on the next tick
	FlagPathFind                     // Use the pathfinder
	FlagFinalPath                    // Pathfinder delivered a complete path
	FlagWandering                    // Walk has no destination
	FlagTethered                     // Wander is confined to a region
	FlagAgitated                     // Temporary random walk around a block
	FlagAgitatable                   // May become agitated when blocked
	FlagRequestRun                   // Run once the run count expires
	FlagBlocked                      // Last step was blocked
	FlagInWater                      // Below the water line
	FlagOnStairs                     // Climbing or descending stairs
	FlagNextAnim                     // Animation is playing, or alternate-frame toggle
	FlagPrivileged                   // Player-issued; goals may not preempt it
	FlagLocTarg                      // Spell targets a location
	FlagTAGTarg                      // Spell targets an active item
)

// Result is the code a suspended script thread is woken with.
type Result int16

const (
	ResultInterrupted Result = iota // Replaced by another motion or cancelled
	ResultStarted                   // Motion began (returned by non-waiting calls)
	ResultCompleted                 // Ran to completion
	ResultWalkBlocked               // Walk gave up against an obstacle
)

var resultNames = [...]string{"interrupted", "started", "completed", "walk-blocked"}

func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("result(%d)", r)
}

// ThreadID identifies a suspended script thread.
type ThreadID int16

// NoThread marks a record nobody is waiting on.
const NoThread ThreadID = -1

// NoActiveItem marks an absent active item reference.
const NoActiveItem int16 = -1

// Combat sub-types. Two-handed swings index twoHandedAnims, one-handed
// swings index oneHandedAnims.
const (
	TwoHandedSwingHigh uint8 = iota
	TwoHandedSwingLow
	TwoHandedSwingLeftHigh
	TwoHandedSwingLeftLow
	TwoHandedSwingRightHigh
	TwoHandedSwingRightLow
)

const (
	OneHandedSwingHigh uint8 = iota
	OneHandedSwingLow
)

// OneHandedParryHigh is the only one-handed parry stance.
const OneHandedParryHigh uint8 = 0

// Defense flags.
const (
	DefenseBlocking uint8 = 1 << iota // Block window is open
)

// Movement constants in tile units per tick.
const (
	WalkSpeed     = 4
	SlowWalkSpeed = 2
	RunSpeed      = 8

	// DefaultGravity is the downward acceleration applied to ballistic
	// records each tick.
	DefaultGravity = 2

	// MaxPath is the number of waypoints a walk record holds.
	MaxPath = 16

	// ladderStep is the climb rate on a ladder.
	ladderStep = 6

	// initialRunCount is the number of ticks a walk accelerates before it
	// may run.
	initialRunCount = 12
)
