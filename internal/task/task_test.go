package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/entropy"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// countingPaths records path requests without ever answering them.
type countingPaths struct {
	requests, wanders, aborts int
}

func (p *countingPaths) RequestPath(*motion.Task, int)       { p.requests++ }
func (p *countingPaths) RequestWanderPath(*motion.Task, int) { p.wanders++ }
func (p *countingPaths) Abort(*motion.Task)                  { p.aborts++ }

// fixedRand always rolls n, or max when n is larger.
type fixedRand int

func (r fixedRand) RandomNumber(max int) int { return min(int(r), max) }

type fixture struct {
	stacks  *Stacks
	objects *agents.Registry
	motions *motion.List
	paths   *countingPaths
}

func newFixture(t *testing.T, rnd Rand) *fixture {
	t.Helper()
	m := world.NewMap(16, 16)
	reg := agents.NewRegistry()
	m.Bodies = reg
	f := &fixture{objects: reg, paths: &countingPaths{}}
	f.motions = motion.NewList(motion.Env{
		World:   m,
		Objects: reg,
		Paths:   f.paths,
		Rand:    entropy.New(7),
	})
	if rnd == nil {
		rnd = entropy.New(11)
	}
	f.stacks = NewStacks(Env{Motion: f.motions, Objects: reg, Rand: rnd})
	return f
}

func (f *fixture) actor(id agents.ObjectID, at tile.Point) *agents.Actor {
	a := agents.NewActor(id, fmt.Sprintf("actor-%d", id), at)
	f.objects.AddActor(a)
	return a
}

func mustPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("panic = %v, want %v", r, target)
		}
	}()
	fn()
}

func TestComputeRepulsionVector(t *testing.T) {
	tests := []struct {
		name string
		reps []Repulsor
		want tile.Point
	}{
		{"none", nil, tile.Point{}},
		{"single", []Repulsor{{tile.P(16, 0, 0), 1}}, tile.P(-16, 0, 0)},
		{"stronger", []Repulsor{{tile.P(0, 16, 0), 3}}, tile.P(0, -48, 0)},
		{"balanced", []Repulsor{{tile.P(16, 0, 0), 1}, {tile.P(-16, 0, 0), 1}}, tile.Point{}},
		{"on top", []Repulsor{{tile.Point{}, 2}}, tile.Point{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeRepulsionVector(tt.reps); got != tt.want {
				t.Errorf("ComputeRepulsionVector = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNearestKeepsClosest(t *testing.T) {
	reps := []Repulsor{
		{tile.P(90, 0, 0), 1},
		{tile.P(10, 0, 0), 2},
		{tile.P(50, 0, 0), 3},
		{tile.P(10, 0, 0), 4},
	}
	got := nearest(reps, 3)
	want := []int16{2, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Strength != want[i] {
			t.Errorf("nearest[%d].Strength = %d, want %d", i, r.Strength, want[i])
		}
	}
}

func TestWanderPausesWhenCounterRunsOut(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(40, 40, 0))
	s := f.stacks.NewStack(a)
	w := NewWander(s)
	w.paused, w.counter = false, 0

	if r := w.Update(); r != NotDone {
		t.Fatalf("Update = %v, want not-done", r)
	}
	if !w.paused {
		t.Error("wander should be paused")
	}
	if w.counter < 0 || w.counter > 63 {
		t.Errorf("pause counter = %d, want [0,63]", w.counter)
	}
	if f.motions.For(a.ID) != nil {
		t.Error("a paused wander should not start a motion")
	}
}

func TestGotoLocationRequestsPathOnce(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(40, 40, 0))
	s := f.stacks.NewStack(a)
	g := NewGotoLocation(s, tile.P(200, 40, 0), NoRun)

	for range 3 {
		if r := g.Update(); r != NotDone {
			t.Fatalf("Update = %v, want not-done", r)
		}
	}
	if f.paths.requests != 1 {
		t.Errorf("path requests = %d, want 1", f.paths.requests)
	}
	mt := f.motions.For(a.ID)
	if mt == nil || !mt.IsWalkToDest() || mt.FinalTarget() != tile.P(200, 40, 0) {
		t.Fatalf("motion = %+v, want a walk to the target", mt)
	}

	g.ChangeTarget(tile.P(40, 200, 0))
	g.Update()
	if f.paths.requests != 2 {
		t.Errorf("path requests after retarget = %d, want 2", f.paths.requests)
	}
}

func TestGotoObjectDropsReachedLastKnownPoint(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(40, 40, 0))
	chest := &agents.Object{ID: 4, Name: "chest", Location: tile.P(200, 200, 0), Parent: agents.WorldID, Height: 8, CrossSection: 4}
	f.objects.Add(chest)
	f.objects.Add(&agents.Object{ID: 3, Name: "gem", Parent: chest.ID, Location: tile.Nowhere})

	s := f.stacks.NewStack(a)
	g := NewGotoObject(s, 3, false)
	s.SetTask(g)
	// The gem was last seen where the actor now stands, and is hidden.
	stale := tile.P(42, 40, 0)
	g.lastKnown = stale

	g.Update()
	if !g.lastKnown.IsNowhere() {
		t.Errorf("last known = %v, want cleared", g.lastKnown)
	}
	if mt := f.motions.For(a.ID); mt != nil && mt.FinalTarget() == stale {
		t.Error("walked toward the stale last known point")
	}
	if g.wander == nil {
		t.Error("goto with nowhere to head should wander")
	}
}

func TestStackIgnoresUninterruptableActor(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(40, 40, 0))
	s := f.stacks.NewStack(a)
	s.SetTask(NewGotoLocation(s, tile.P(200, 40, 0), NoRun))
	a.SetInterruptable(false)

	for range 20 {
		if r := s.Update(); r != NotDone {
			t.Fatalf("Update = %v, want not-done", r)
		}
	}
	if f.motions.For(a.ID) != nil {
		t.Error("an uninterruptable actor should not be given a motion")
	}
	if s.evalCount != DefaultEvalRate {
		t.Errorf("evalCount = %d, want untouched %d", s.evalCount, DefaultEvalRate)
	}
}

func TestUpdateAllReportsCompletion(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(40, 40, 0))
	s := f.stacks.NewStack(a)
	s.SetTask(NewGotoLocation(s, a.Location, NoRun))

	var got []Result
	f.stacks.OnComplete = func(who *agents.Actor, r Result) {
		if who != a {
			t.Errorf("completion for %v, want %v", who, a)
		}
		got = append(got, r)
	}

	f.stacks.Pause()
	f.stacks.UpdateAll()
	if len(got) != 0 {
		t.Fatal("paused stacks should not update")
	}
	f.stacks.Resume()
	f.stacks.UpdateAll()

	if len(got) != 1 || got[0] != Succeeded {
		t.Fatalf("completions = %v, want [succeeded]", got)
	}
	if s.Root() != nil || f.stacks.Tasks().Len() != 0 {
		t.Error("finished root should be freed")
	}
}

func TestHuntToKillAttacksEnemyInReach(t *testing.T) {
	f := newFixture(t, fixedRand(0))
	a := f.actor(2, tile.P(40, 40, 0))
	enemy := f.actor(3, tile.P(50, 40, 0))
	enemy.Disposition = agents.Enemy
	bystander := f.actor(4, tile.P(30, 40, 0))
	bystander.Disposition = agents.Friendly

	s := f.stacks.NewStack(a)
	s.SetTask(NewHuntToKill(s, Matching(EnemyActors), false))
	if a.Status&agents.ActorFightStance == 0 {
		t.Error("hunting to kill should draw the weapon")
	}

	attacked := false
	for range TargetEvaluateRate {
		s.Update()
		if mt := f.motions.For(a.ID); mt != nil && mt.IsAttack() {
			attacked = true
			break
		}
	}
	if a.CurrentTarget != enemy.ID {
		t.Errorf("CurrentTarget = %d, want %d", a.CurrentTarget, enemy.ID)
	}
	if !attacked {
		t.Error("actor never attacked")
	}

	s.Abort()
	if a.Status&(agents.ActorFightStance|agents.ActorSpecialAttack) != 0 {
		t.Errorf("status after abort = %b, want cleared", a.Status)
	}
}

func TestBandDropsAttendWhenOutOfPlace(t *testing.T) {
	f := newFixture(t, nil)
	leader := f.actor(2, tile.P(100, 100, 0))
	a := f.actor(3, tile.P(200, 100, 0))
	leader.Followers = agents.NewBand(leader.ID)
	leader.Followers.Add(a.ID)
	a.Leader = leader.ID

	s := f.stacks.NewStack(a)
	b := NewBand(s)
	b.current = tile.P(100, 100, 0)
	b.attend = NewAttend(s, leader.ID)
	if n := f.stacks.Tasks().Len(); n != 2 {
		t.Fatalf("tasks = %d, want 2", n)
	}

	if b.atTarget() {
		t.Error("follower 100 units out should not be at its slot")
	}
	if b.attend != nil || f.stacks.Tasks().Len() != 1 {
		t.Error("attend should be dropped and freed")
	}

	a.Location = tile.P(104, 100, 0)
	if !b.atTarget() {
		t.Error("follower 4 units out should be at its slot")
	}
}

func TestPatrolIterator(t *testing.T) {
	route := []tile.Point{tile.P(16, 16, 0), tile.P(64, 16, 0), tile.P(64, 64, 0)}
	routes := [][]tile.Point{route}
	index := func(p tile.Point) int {
		for i, q := range route {
			if p == q {
				return i
			}
		}
		return -1
	}

	tests := []struct {
		name  string
		flags PatrolFlags
		want  []int
	}{
		{"forward", 0, []int{0, 1, 2, -1, -1}},
		{"reverse", PatrolReverse, []int{2, 1, 0, -1, -1}},
		{"repeat", PatrolRepeat, []int{0, 1, 2, 0, 1}},
		{"alternate", PatrolAlternate, []int{0, 1, 2, 1, 0, 1}},
		{"reverse repeat", PatrolReverse | PatrolRepeat, []int{2, 1, 0, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := NewPatrolIterator(routes, 0, tt.flags)
			for i, want := range tt.want {
				if got := index(it.Current(routes)); got != want {
					t.Fatalf("step %d: waypoint %d, want %d", i, got, want)
				}
				it.Next(routes)
			}
		})
	}

	if p := NewPatrolIterator(routes, 5, 0).Current(routes); !p.IsNowhere() {
		t.Errorf("unknown route Current = %v, want Nowhere", p)
	}
}

func TestRegistryCapacity(t *testing.T) {
	t.Run("stacks", func(t *testing.T) {
		f := newFixture(t, nil)
		for i := range MaxStacks {
			f.stacks.NewStack(f.actor(agents.ObjectID(i+2), tile.P(16, 16, 0)))
		}
		extra := f.actor(100, tile.P(16, 16, 0))
		mustPanic(t, agents.ErrCapacity, func() { f.stacks.NewStack(extra) })
	})
	t.Run("tasks", func(t *testing.T) {
		f := newFixture(t, nil)
		s := f.stacks.NewStack(f.actor(2, tile.P(16, 16, 0)))
		for range MaxTasks {
			NewAttend(s, agents.Nothing)
		}
		mustPanic(t, agents.ErrCapacity, func() { NewAttend(s, agents.Nothing) })
	})
}

func TestSlotsAreReused(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(16, 16, 0))
	s := f.stacks.NewStack(a)
	f.stacks.Delete(s)
	if f.stacks.Len() != 0 || f.stacks.For(a.ID) != nil {
		t.Fatal("deleted stack still registered")
	}
	if again := f.stacks.NewStack(a); f.stacks.ID(again) != s.id {
		t.Errorf("stack id = %d, want reused %d", again.id, s.id)
	}
	mustPanic(t, agents.ErrUnregistered, func() { f.stacks.ID(s) })
}

func TestArchiveRestoresPlan(t *testing.T) {
	f := newFixture(t, nil)
	a := f.actor(2, tile.P(40, 40, 0))
	target := tile.P(200, 40, 0)
	s := f.stacks.NewStack(a)
	hunt := NewHuntToBeNearLocation(s, At(target), 8)
	s.SetTask(hunt)
	s.Update()
	if _, ok := hunt.sub.(*GotoLocation); !ok {
		t.Fatalf("hunt subtask = %T, want *GotoLocation", hunt.sub)
	}

	w := archive.NewWriter()
	f.stacks.Archive(w)
	f.stacks.Tasks().Archive(w)

	restored := NewStacks(Env{Motion: f.motions, Objects: f.objects})
	r := archive.NewReader(w.Bytes())
	if err := restored.Restore(r); err != nil {
		t.Fatalf("Restore stacks: %v", err)
	}
	if err := restored.Tasks().Restore(r, restored); err != nil {
		t.Fatalf("Restore tasks: %v", err)
	}
	if r.Remaining() != 0 {
		t.Errorf("%d bytes left over", r.Remaining())
	}

	rs := restored.For(a.ID)
	if rs == nil {
		t.Fatal("stack not restored")
	}
	root, ok := rs.Root().(*HuntToBeNearLocation)
	if !ok {
		t.Fatalf("root = %T, want *HuntToBeNearLocation", rs.Root())
	}
	if !root.Equal(hunt) || root.current != target {
		t.Errorf("restored hunt = %+v", root)
	}
	g, ok := root.sub.(*GotoLocation)
	if !ok || g.Target() != target || g.base().stack != rs {
		t.Errorf("restored subtask = %+v", root.sub)
	}
	if n := restored.Tasks().Len(); n != 2 {
		t.Errorf("restored tasks = %d, want 2", n)
	}
}

func TestRestoreTaskWithoutStackIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	s := f.stacks.NewStack(f.actor(2, tile.P(40, 40, 0)))
	NewWander(s)

	w := archive.NewWriter()
	f.stacks.Tasks().Archive(w)

	empty := NewStacks(Env{Motion: f.motions, Objects: f.objects})
	mustPanic(t, agents.ErrLoadOrder, func() {
		empty.Tasks().Restore(archive.NewReader(w.Bytes()), empty)
	})
}

func TestRestoreStackForUnknownActorIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.stacks.NewStack(f.actor(2, tile.P(40, 40, 0)))
	w := archive.NewWriter()
	f.stacks.Archive(w)

	other := NewStacks(Env{})
	mustPanic(t, agents.ErrUnregistered, func() {
		other.Restore(archive.NewReader(w.Bytes()))
	})
}
