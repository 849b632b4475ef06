package engine

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/persistence"
	"github.com/talgya/actorcore/internal/task"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

func TestEngineStepCallbacks(t *testing.T) {
	e := NewEngine(0, time.Millisecond)
	e.SaveEvery = 3
	var ticks, saves []uint64
	e.OnTick = func(tick uint64) { ticks = append(ticks, tick) }
	e.OnSave = func(tick uint64) { saves = append(saves, tick) }
	for range 7 {
		e.Step()
	}
	if len(ticks) != 7 || ticks[6] != 7 {
		t.Errorf("ticks = %v", ticks)
	}
	if len(saves) != 2 || saves[0] != 3 || saves[1] != 6 {
		t.Errorf("saves = %v, want [3 6]", saves)
	}
}

func TestEngineRunStop(t *testing.T) {
	e := NewEngine(100, time.Millisecond)
	reached := make(chan struct{})
	e.OnTick = func(tick uint64) {
		if tick == 103 {
			close(reached)
		}
	}
	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case <-reached:
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not tick")
	}
	e.Stop()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if e.Running() {
		t.Error("still running after Stop")
	}
}

func TestEnginePausedDoesNotTick(t *testing.T) {
	e := NewEngine(0, time.Millisecond)
	e.SetSpeed(0)
	go e.Run()
	time.Sleep(50 * time.Millisecond)
	e.Stop()
	if got := e.Tick(); got != 0 {
		t.Errorf("paused engine reached tick %d", got)
	}
}

func TestTicksIn(t *testing.T) {
	tests := []struct {
		d, interval time.Duration
		want        uint64
	}{
		{time.Minute, 100 * time.Millisecond, 600},
		{time.Millisecond, time.Second, 1},
		{0, time.Second, 0},
	}
	for _, tt := range tests {
		if got := TicksIn(tt.d, tt.interval); got != tt.want {
			t.Errorf("TicksIn(%v, %v) = %d, want %d", tt.d, tt.interval, got, tt.want)
		}
	}
}

// newSim builds a band of two friendly actors and one enemy at enemyAt.
func newSim(t *testing.T, enemyAt tile.Point) *Simulation {
	t.Helper()
	s := NewSimulation(Options{Map: world.NewMap(32, 32), Seed: 7})

	leader := agents.NewActor(2, "leader", tile.P(40, 40, 0))
	follower := agents.NewActor(3, "follower", tile.P(56, 40, 0))
	enemy := agents.NewActor(4, "enemy", enemyAt)
	enemy.Disposition = agents.Enemy
	for _, a := range []*agents.Actor{leader, follower, enemy} {
		a.Anim = agents.NewAppearance(agents.StandardFrames)
		s.Objects.AddActor(a)
	}
	leader.Followers = agents.NewBand(leader.ID)
	leader.Followers.Add(follower.ID)
	follower.Leader = leader.ID
	return s
}

func rootKind(t *testing.T, s *Simulation, id agents.ObjectID) task.Kind {
	t.Helper()
	st := s.Stacks.For(id)
	if st == nil || st.Root() == nil {
		t.Fatalf("actor %d has no plan", id)
	}
	return st.Root().Kind()
}

func TestPopulatePlans(t *testing.T) {
	tests := []struct {
		name    string
		enemyAt tile.Point
		want    map[agents.ObjectID]task.Kind
	}{
		{
			name:    "foe out of sight",
			enemyAt: tile.P(450, 450, 0),
			want: map[agents.ObjectID]task.Kind{
				2: task.KindWander,
				3: task.KindBandAndAvoidEnemies,
				4: task.KindWander,
			},
		},
		{
			name:    "foe nearby",
			enemyAt: tile.P(88, 56, 0),
			want: map[agents.ObjectID]task.Kind{
				2: task.KindHuntToKill,
				3: task.KindBandAndAvoidEnemies,
				4: task.KindHuntToKill,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSim(t, tt.enemyAt)
			s.Populate()
			for id, want := range tt.want {
				if got := rootKind(t, s, id); got != want {
					t.Errorf("actor %d plan = %v, want %v", id, got, want)
				}
			}
		})
	}
}

func TestPatrolRouteForLeaders(t *testing.T) {
	m := world.NewMap(32, 32)
	route := []tile.Point{tile.P(40, 40, 0), tile.P(200, 40, 0), tile.P(200, 200, 0)}
	s := NewSimulation(Options{Map: m, Seed: 1, Routes: [][]tile.Point{route}})
	leader := agents.NewActor(2, "leader", tile.P(40, 40, 0))
	leader.Followers = agents.NewBand(leader.ID)
	s.Objects.AddActor(leader)

	s.Populate()
	if got := rootKind(t, s, 2); got != task.KindFollowPatrolRoute {
		t.Errorf("leader plan = %v, want patrol", got)
	}
}

func TestStepAdvancesAndSweepsDead(t *testing.T) {
	s := newSim(t, tile.P(450, 450, 0))
	s.Populate()
	ctx := context.Background()
	for tick := uint64(1); tick <= 5; tick++ {
		s.Step(ctx, tick)
	}
	if s.CurrentTick() != 5 || s.Rules.Tick != 5 {
		t.Errorf("tick = %d rules tick = %d", s.CurrentTick(), s.Rules.Tick)
	}

	enemy := s.Objects.Actor(4)
	s.Rules.Die(enemy)
	s.Step(ctx, 6)
	if s.Stacks.For(4) != nil {
		t.Error("dead actor kept its stack")
	}
	if s.Stats.Deaths != 1 {
		t.Errorf("deaths = %d, want 1", s.Stats.Deaths)
	}
}

func TestSetEvalRate(t *testing.T) {
	s := newSim(t, tile.P(450, 450, 0))
	s.Populate()
	s.SetEvalRate(3)
	if s.evalRate != 3 {
		t.Errorf("eval rate = %d", s.evalRate)
	}
}

func TestSnapshotRestore(t *testing.T) {
	s := newSim(t, tile.P(450, 450, 0))
	s.Populate()
	ctx := context.Background()
	for tick := uint64(1); tick <= 5; tick++ {
		s.Step(ctx, tick)
	}
	s.Rules.LogAggressiveAct(4, 2)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "sim.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	id, err := db.Save(s.Snapshot())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, err := db.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	other := NewSimulation(Options{Map: world.NewMap(32, 32), Seed: 7})
	if err := other.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	if other.CurrentTick() != 5 {
		t.Errorf("tick = %d, want 5", other.CurrentTick())
	}
	if other.Objects.Len() != s.Objects.Len() {
		t.Errorf("objects = %d, want %d", other.Objects.Len(), s.Objects.Len())
	}
	if other.Motion.Len() != s.Motion.Len() {
		t.Errorf("motions = %d, want %d", other.Motion.Len(), s.Motion.Len())
	}
	if other.Stacks.Len() != s.Stacks.Len() || other.Stacks.Tasks().Len() != s.Stacks.Tasks().Len() {
		t.Errorf("stacks/tasks = %d/%d, want %d/%d",
			other.Stacks.Len(), other.Stacks.Tasks().Len(), s.Stacks.Len(), s.Stacks.Tasks().Len())
	}
	for _, id := range []agents.ObjectID{2, 3, 4} {
		if got, want := rootKind(t, other, id), rootKind(t, s, id); got != want {
			t.Errorf("actor %d plan = %v, want %v", id, got, want)
		}
	}
	if b := other.Objects.Actor(2).Followers; b == nil || !b.Contains(3) {
		t.Error("band not restored")
	}
	if got := other.Rules.Log.Against(2); len(got) != 1 || got[0].Attacker != 4 {
		t.Errorf("aggressions = %+v", got)
	}

	other.Step(ctx, 6)
}

func TestRestoreNeedsEveryChunk(t *testing.T) {
	s := newSim(t, tile.P(450, 450, 0))
	s.Populate()
	snap := s.Snapshot()
	delete(snap.Chunks, persistence.ChunkStacks)

	other := NewSimulation(Options{Map: world.NewMap(32, 32)})
	if err := other.Restore(snap); !errors.Is(err, agents.ErrLoadOrder) {
		t.Errorf("err = %v, want ErrLoadOrder", err)
	}
}
