package motion

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
)

// Walk is the payload of walk records, and of reflex records that will
// resume a walk.
type Walk struct {
	Immediate tile.Point          `json:"immediate"` // Next point to head for
	Final     tile.Point          `json:"final"`     // Destination
	Tether    tile.Region         `json:"tether"`
	Path      [MaxPath]tile.Point `json:"-"`
	PathIndex int16               `json:"path_index"`
	PathCount int16               `json:"path_count"` // -1 until a path has been requested
	RunCount  int16               `json:"run_count"`  // Ticks until running is allowed
}

// Waypoints returns the unvisited part of the path.
func (w *Walk) Waypoints() []tile.Point {
	if w.PathIndex < 0 || w.PathIndex >= w.PathCount {
		return nil
	}
	return w.Path[w.PathIndex:w.PathCount]
}

// Ballistic is the payload of thrown and shot records. Velocity lives on
// the record header because walks hand theirs over when they fall.
type Ballistic struct {
	Steps   int16           `json:"steps"`
	UFrac   int16           `json:"u_frac"` // Remainder of u velocity, spread over Steps
	VFrac   int16           `json:"v_frac"`
	UErr    int16           `json:"u_err"`
	VErr    int16           `json:"v_err"`
	Enactor agents.ObjectID `json:"enactor"` // Who shot it
}

// Use is the payload of the use and drop family.
type Use struct {
	Direct    agents.ObjectID `json:"direct"`
	Indirect  agents.ObjectID `json:"indirect"`
	TAI       int16           `json:"tai"`
	TargetLoc tile.Point      `json:"target_loc"`
	MoveCount int16           `json:"move_count"`
}

// Combat is the payload of attacks and defenses.
type Combat struct {
	SubType      uint8           `json:"sub_type"`
	Attacker     agents.ObjectID `json:"attacker"`
	DefensiveObj agents.ObjectID `json:"defensive_obj"`
	DefenseFlags uint8           `json:"defense_flags"`
}

// Spell is the payload of cast records. The spell object's ID doubles as
// its spell ID.
type Spell struct {
	Object agents.ObjectID `json:"object"`
	TAG    int16           `json:"tag"`
	Loc    tile.Point      `json:"loc"`
}

// Task is the physical-execution record for one moving object. It is
// owned by a List; callers reach it through List.For.
type Task struct {
	Type     Type            `json:"type"`
	PrevType Type            `json:"prev_type"`
	Thread   ThreadID        `json:"thread"`
	Flags    Flags           `json:"flags"`
	Object   agents.ObjectID `json:"object"`

	Direction     tile.Direction  `json:"direction"`
	ActionCounter int16           `json:"action_counter"`
	Target        agents.ObjectID `json:"target"`
	Velocity      tile.Point      `json:"velocity"`

	Walk      Walk      `json:"walk"`
	Ballistic Ballistic `json:"ballistic"`
	Use       Use       `json:"use"`
	Combat    Combat    `json:"combat"`
	Spell     Spell     `json:"spell"`

	pathPending bool
	removed     bool
	again       bool // Dispatch again this tick
}

func (mt *Task) has(f Flags) bool { return mt.Flags&f != 0 }

// PathPending reports whether a pathfinder job is outstanding.
func (mt *Task) PathPending() bool { return mt.pathPending }

// Removed reports whether the record has left its list.
func (mt *Task) Removed() bool { return mt.removed }

// IsReflex reports whether the motion is one the actor has no control
// over. Reflexes are not replaced by voluntary walks.
func (mt *Task) IsReflex() bool {
	switch mt.Type {
	case TypeThrown, TypeLand, TypeAcceptHit, TypeFallDown, TypeDie:
		return true
	}
	return false
}

func (mt *Task) IsDefense() bool {
	switch mt.Type {
	case TypeOneHandedParry, TypeTwoHandedParry, TypeShieldParry, TypeDodge:
		return true
	}
	return false
}

func (mt *Task) IsMeleeAttack() bool {
	return mt.Type == TypeOneHandedSwing || mt.Type == TypeTwoHandedSwing
}

func (mt *Task) IsAttack() bool {
	switch mt.Type {
	case TypeFireBow, TypeCastSpell, TypeUseWand:
		return true
	}
	return mt.IsMeleeAttack()
}

// IsWalk reports whether the record is a walk, or a reflex that will
// resume one.
func (mt *Task) IsWalk() bool { return mt.PrevType == TypeWalk }

// IsWalkToDest reports whether the record is a walk with a destination.
func (mt *Task) IsWalkToDest() bool { return mt.IsWalk() && !mt.has(FlagWandering) }

// IsWander reports whether the record is an aimless walk.
func (mt *Task) IsWander() bool { return mt.IsWalk() && mt.has(FlagWandering) }

func (mt *Task) IsTethered() bool { return mt.IsWander() && mt.has(FlagTethered) }

func (mt *Task) IsTurn() bool { return mt.Type == TypeTurn }

// IsPrivileged reports whether the motion was issued by the player.
func (mt *Task) IsPrivileged() bool { return mt.has(FlagPrivileged) }

// Tether returns the wander region, or a region at Nowhere when untethered.
func (mt *Task) Tether() tile.Region {
	if mt.has(FlagTethered) {
		return mt.Walk.Tether
	}
	return tile.Region{Min: tile.Nowhere, Max: tile.Nowhere}
}

// FinalTarget returns the walk destination.
func (mt *Task) FinalTarget() tile.Point { return mt.Walk.Final }

// FramesUntilStrike returns how many ticks remain before a melee attack
// lands, counting the turn still needed to face the target.
func (mt *Task) FramesUntilStrike(facing tile.Direction) int {
	if mt.has(FlagReset) {
		return 0xFFFF
	}
	return tile.TurnFrames(facing, mt.Direction) + int(mt.ActionCounter)
}

// BlockingObject returns the object raised against attacker, or Nothing
// if this record is not blocking that attacker.
func (mt *Task) BlockingObject(attacker agents.ObjectID) agents.ObjectID {
	if mt.IsDefense() && mt.Combat.DefenseFlags&DefenseBlocking != 0 && mt.Combat.Attacker == attacker {
		return mt.Combat.DefensiveObj
	}
	return agents.Nothing
}

// SetPath installs waypoints delivered by the pathfinder. complete marks
// a path that reaches the final target.
func (mt *Task) SetPath(points []tile.Point, complete bool) {
	mt.pathPending = false
	n := copy(mt.Walk.Path[:], points)
	mt.Walk.PathCount = int16(n)
	mt.Walk.PathIndex = 0
	mt.Flags |= FlagReset
	if complete {
		mt.Flags |= FlagFinalPath
	} else {
		mt.Flags &^= FlagFinalPath
	}
}

// PathFailed clears the pending job without delivering a path.
func (mt *Task) PathFailed() { mt.pathPending = false }

// calcVelocity sets up a ballistic arc covering vector in turns ticks.
func (mt *Task) calcVelocity(vector tile.Point, turns int16, gravity int16) {
	mt.Ballistic.Steps = turns
	mt.Ballistic.UFrac = vector.U % turns
	mt.Ballistic.VFrac = vector.V % turns
	mt.Ballistic.UErr = 0
	mt.Ballistic.VErr = 0
	mt.Velocity = tile.Point{
		U: vector.U / turns,
		V: vector.V / turns,
		Z: (gravity*turns)>>1 + vector.Z/turns,
	}
}

// immediateTarget returns the point the walk is heading for. A walk with
// no immediate point heads one tile forward.
func (mt *Task) immediateTarget(loc tile.Point, facing tile.Direction) tile.Point {
	if !mt.Walk.Immediate.IsNowhere() {
		return mt.Walk.Immediate
	}
	dir := facing
	if mt.has(FlagAgitated) {
		dir = mt.Direction
	}
	return loc.Add(dir.Step().Mul(tile.TileUVSize))
}
