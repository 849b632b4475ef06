package task

import (
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// Repulsor strengths used when banding.
const (
	leaderRepulsion = 3
	memberRepulsion = 1
	enemyRepulsion  = 6
)

// bandArrival is how close to its slot a follower must be to stop walking.
const bandArrival = 6

// Band keeps a follower near its leader, spread out from the other
// followers. Once in place it watches the leader. It never finishes.
type Band struct {
	node
	huntCore
	attend  *Attend
	current tile.Point
	evalCtr uint8

	avoidEnemies bool
}

func NewBand(s *Stack) *Band {
	return register(s, &Band{current: tile.Nowhere})
}

func (t *Band) Kind() Kind       { return KindBand }
func (t *Band) Evaluate() Result { return huntEvaluate(t) }
func (t *Band) Update() Result   { return huntUpdate(t) }
func (t *Band) Abort()           { huntAbort(t) }

func (t *Band) Equal(o Task) bool { return o.Kind() == KindBand }

// runThreshold is how far from its slot a follower starts running.
func (t *Band) runThreshold() uint8 {
	if t.avoidEnemies {
		return 0
	}
	return tile.TileUVSize * 3
}

// repulsors returns the leader, the other followers and, when avoiding
// enemies, every sensed enemy as seen from the actor.
func (t *Band) repulsors(leaderLoc tile.Point) []Repulsor {
	a, env := t.actor(), t.env()
	loc := a.Location
	reps := []Repulsor{{Vector: leaderLoc.Sub(loc), Strength: leaderRepulsion}}

	if leader := env.Objects.Actor(a.Leader); leader != nil && leader.Followers != nil {
		for _, id := range leader.Followers.Members() {
			if id == a.ID {
				continue
			}
			if m := env.Objects.Actor(id); m != nil {
				reps = append(reps, Repulsor{Vector: m.Location.Sub(loc), Strength: memberRepulsion})
			}
		}
	}
	if t.avoidEnemies {
		for _, s := range Matching(EnemyActors).actors(env.Objects, a) {
			reps = append(reps, Repulsor{Vector: s.actor.Location.Sub(loc), Strength: enemyRepulsion})
		}
	}
	return nearest(reps, maxRepulsors)
}

// evaluateTarget places the follower's slot at the leader, pushed away
// from whoever is nearest.
func (t *Band) evaluateTarget() {
	if t.evalCtr == 0 {
		a := t.actor()
		leader := t.env().Objects.Actor(a.Leader)
		if leader == nil {
			return
		}
		toLeader := leader.Location.Sub(a.Location)
		t.current = a.Location.Add(toLeader.Add(ComputeRepulsionVector(t.repulsors(leader.Location))))
		t.current.Z = leader.Location.Z
		t.evalCtr = TargetEvaluateRate
	}
	t.evalCtr--
}

// targetHasChanged retargets the goto in place when the slot has moved
// by more than half the remaining distance. It never asks for a new goto.
func (t *Band) targetHasChanged(g Task) bool {
	gl := g.(*GotoLocation)
	slop := distance(t.actor().Location, t.current) / 2
	if distance(gl.Target(), t.current) > slop {
		gl.ChangeTarget(t.current)
	}
	return false
}

func (t *Band) setupGoto() Task {
	if t.current.IsNowhere() {
		return nil
	}
	return NewGotoLocation(t.stack, t.current, t.runThreshold())
}

func (t *Band) atTarget() bool {
	loc := t.actor().Location
	if !t.current.IsNowhere() {
		d := t.current.Sub(loc)
		if d.QuickHDistance() <= bandArrival && tile.Abs(d.Z) <= tile.MaxStepHeight {
			return true
		}
	}
	t.dropAttend()
	return false
}

func (t *Band) dropAttend() {
	if t.attend != nil {
		t.drop(t.attend)
		t.attend = nil
	}
}

func (t *Band) atTargetAbort()           { t.dropAttend() }
func (t *Band) atTargetEvaluate() Result { return NotDone }

func (t *Band) atTargetUpdate() Result {
	if t.attend == nil {
		t.attend = NewAttend(t.stack, t.actor().Leader)
	}
	t.attend.Update()
	return NotDone
}

func (t *Band) subtasks() []Task { return appendSub(t.huntCore.subtasks(), t.attend) }

func (t *Band) archive(w *archive.Writer) {
	t.archiveCore(w)
	w.I16(int16(subID(t.attend)))
	w.Point(t.current)
	w.U8(t.evalCtr)
}

func (t *Band) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.links[1] = ID(r.I16())
	t.current = r.Point()
	t.evalCtr = r.U8()
}

func (t *Band) fixup(ts *Tasks) {
	t.fixupCore(ts, &t.node)
	t.attend = resolve[*Attend](ts, t.links[1])
}

// BandAndAvoidEnemies bands like Band but is also pushed away by nearby
// enemies, and always runs.
type BandAndAvoidEnemies struct {
	Band
}

func NewBandAndAvoidEnemies(s *Stack) *BandAndAvoidEnemies {
	return register(s, &BandAndAvoidEnemies{Band{current: tile.Nowhere, avoidEnemies: true}})
}

func (t *BandAndAvoidEnemies) Kind() Kind { return KindBandAndAvoidEnemies }

func (t *BandAndAvoidEnemies) Equal(o Task) bool { return o.Kind() == KindBandAndAvoidEnemies }
