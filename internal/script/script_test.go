package script

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/d5/tengo/v2"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/entropy"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/task"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

const turnThenExit = `
run := func(engine, state, result) {
	if is_undefined(state.seen) { state.seen = [] }
	state.seen = append(state.seen, result)
	if result == "started" {
		engine.turn(4)
	} else {
		engine.exit()
	}
}
`

func newScheduler(t *testing.T) (*Scheduler, *agents.Actor) {
	t.Helper()
	reg := agents.NewRegistry()
	m := world.NewMap(16, 16)
	m.Bodies = reg
	ml := motion.NewList(motion.Env{World: m, Objects: reg, Rand: entropy.New(3)})
	ss := task.NewStacks(task.Env{Motion: ml, Objects: reg})
	s := New(ml, ss, nil)
	ml.Waker = s

	a := agents.NewActor(2, "scout", tile.P(40, 40, 0))
	reg.AddActor(a)
	return s, a
}

func mustSpawn(t *testing.T, s *Scheduler, name, src string, a *agents.Actor) *Thread {
	t.Helper()
	if err := s.Compile(name, []byte(src)); err != nil {
		t.Fatalf("compile: %v", err)
	}
	th, err := s.Spawn(name, a.ID)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	return th
}

func seen(t *testing.T, th *Thread) []string {
	t.Helper()
	arr, ok := th.state.Value["seen"].(*tengo.Array)
	if !ok {
		t.Fatalf("state.seen = %v", th.state.Value["seen"])
	}
	var out []string
	for _, o := range arr.Value {
		out = append(out, objectAsString(o))
	}
	return out
}

func TestCompileRequiresRun(t *testing.T) {
	s, _ := newScheduler(t)
	if err := s.Compile("empty", []byte(`x := 1`)); err == nil {
		t.Error("script without run should not compile")
	}
	if err := s.Compile("broken", []byte(`run := func(`)); err == nil {
		t.Error("syntax error should not compile")
	}
	if _, err := s.Spawn("missing", 2); !errors.Is(err, ErrNoScript) {
		t.Errorf("spawn missing script: %v, want ErrNoScript", err)
	}
}

func TestLoadDirSampleScripts(t *testing.T) {
	s, a := newScheduler(t)
	n, err := s.LoadDir("../../scripts")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if got := s.Scripts(); n != 2 || len(got) != 2 || got[0] != "enemy" || got[1] != "friendly" {
		t.Fatalf("loaded %d scripts %v, want [enemy friendly]", n, got)
	}

	a.Disposition = agents.Enemy
	th, err := s.Spawn("enemy", a.ID)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	s.Run(context.Background())
	if th.Status() != Sleeping {
		t.Errorf("status = %s, want sleeping", th.Status())
	}
	if st := s.Stacks.For(a.ID); st == nil || st.Root() == nil || st.Root().Kind() != task.KindWander {
		t.Error("enemy with no foe in sight should wander")
	}
}

func TestThreadWaitsForMotion(t *testing.T) {
	tests := []struct {
		name string
		end  func(s *Scheduler, a *agents.Actor)
		want string
	}{
		{"completed", func(s *Scheduler, a *agents.Actor) {
			s.Motion.Remove(s.Motion.For(a.ID), motion.ResultCompleted)
		}, "completed"},
		{"replaced", func(s *Scheduler, a *agents.Actor) {
			s.Motion.Wander(a, false)
		}, "interrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, a := newScheduler(t)
			th := mustSpawn(t, s, "turner", turnThenExit, a)
			ctx := context.Background()

			s.Run(ctx)
			if th.Status() != Waiting {
				t.Fatalf("status = %s, want waiting", th.Status())
			}
			if mt := s.Motion.For(a.ID); mt == nil || mt.Thread != th.ID {
				t.Fatal("turn should carry the thread")
			}
			s.Run(ctx)
			if th.runs != 1 {
				t.Fatalf("waiting thread ran: runs = %d", th.runs)
			}

			tt.end(s, a)
			s.Run(ctx)
			if th.Status() != Done {
				t.Fatalf("status = %s, want done", th.Status())
			}
			got := seen(t, th)
			if len(got) != 2 || got[0] != "started" || got[1] != tt.want {
				t.Errorf("results = %v, want [started %s]", got, tt.want)
			}
			if s.Thread(th.ID) != nil {
				t.Error("finished thread should be reaped")
			}
		})
	}
}

func TestSleep(t *testing.T) {
	s, a := newScheduler(t)
	th := mustSpawn(t, s, "napper", `
run := func(engine, state, result) {
	if result == "started" {
		engine.sleep(2)
	} else if result == "slept" {
		engine.exit()
	}
}
`, a)
	ctx := context.Background()

	for i := range 3 {
		s.Run(ctx)
		if th.Status() == Done {
			t.Fatalf("exited after %d runs", i+1)
		}
	}
	s.Run(ctx)
	if th.Status() != Done {
		t.Errorf("status = %s, want done", th.Status())
	}
}

func TestIdleThreadRunsEveryTick(t *testing.T) {
	s, a := newScheduler(t)
	th := mustSpawn(t, s, "idler", `
run := func(engine, state, result) {
	if is_undefined(state.seen) { state.seen = [] }
	state.seen = append(state.seen, result)
}
`, a)
	for range 3 {
		s.Run(context.Background())
	}
	got := seen(t, th)
	if len(got) != 3 || got[0] != "started" || got[2] != "idle" {
		t.Errorf("results = %v", got)
	}
}

func TestPlanFunctions(t *testing.T) {
	tests := []struct {
		call string
		want task.Kind
	}{
		{`engine.hunt_to_kill("enemies")`, task.KindHuntToKill},
		{`engine.goto(80, 80, 0)`, task.KindGotoLocation},
		{`engine.band(true)`, task.KindBandAndAvoidEnemies},
		{`engine.follow(3, 32)`, task.KindHuntToBeNearActor},
		{`engine.wander_plan()`, task.KindWander},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			s, a := newScheduler(t)
			th := mustSpawn(t, s, "planner", `
run := func(engine, state, result) {
	`+tt.call+`
	engine.exit()
}
`, a)
			s.Run(context.Background())
			if th.Err() != nil {
				t.Fatalf("script error: %v", th.Err())
			}
			st := s.Stacks.For(a.ID)
			if st == nil || st.Root() == nil {
				t.Fatal("no plan set")
			}
			if got := st.Root().Kind(); got != tt.want {
				t.Errorf("root = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFailedThreadIsReaped(t *testing.T) {
	s, a := newScheduler(t)
	th := mustSpawn(t, s, "bad", `
run := func(engine, state, result) {
	engine.no_such_function()
}
`, a)
	s.Run(context.Background())
	if th.Status() != Failed || th.Err() == nil {
		t.Fatalf("status = %s err = %v, want failed", th.Status(), th.Err())
	}
	if s.Thread(th.ID) != nil {
		t.Error("failed thread should be reaped")
	}
}

func TestDeadActorEndsThread(t *testing.T) {
	s, a := newScheduler(t)
	th := mustSpawn(t, s, "turner", turnThenExit, a)
	a.Dead = true
	s.Run(context.Background())
	if th.Status() != Done || th.runs != 0 {
		t.Errorf("status = %s runs = %d, want done without running", th.Status(), th.runs)
	}
}

func TestThreadLimit(t *testing.T) {
	s, a := newScheduler(t)
	mustSpawn(t, s, "turner", turnThenExit, a)
	for range MaxThreads - 1 {
		if _, err := s.Spawn("turner", a.ID); err != nil {
			t.Fatalf("spawn: %v", err)
		}
	}
	if _, err := s.Spawn("turner", a.ID); !errors.Is(err, ErrTooManyThreads) {
		t.Errorf("spawn past limit: %v, want ErrTooManyThreads", err)
	}
}

func TestSnapshotRestoresSleepingThread(t *testing.T) {
	const counter = `
run := func(engine, state, result) {
	state.count = 3
	state.name = "watch"
	engine.sleep(5)
}
`
	s, a := newScheduler(t)
	mustSpawn(t, s, "counter", counter, a)
	s.Run(context.Background())

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var states []ThreadState
	if err := json.Unmarshal(data, &states); err != nil {
		t.Fatal(err)
	}

	s2, _ := newScheduler(t)
	if err := s2.Restore(states); !errors.Is(err, ErrNoScript) {
		t.Fatalf("restore before load: %v, want ErrNoScript", err)
	}
	if err := s2.Compile("counter", []byte(counter)); err != nil {
		t.Fatal(err)
	}
	if err := s2.Restore(states); err != nil {
		t.Fatalf("restore: %v", err)
	}
	threads := s2.Threads()
	if len(threads) != 1 {
		t.Fatalf("threads = %d, want 1", len(threads))
	}
	th := threads[0]
	if th.Status() != Sleeping || th.sleep != 5 {
		t.Errorf("status = %s sleep = %d, want sleeping 5", th.Status(), th.sleep)
	}
	if n, ok := th.state.Value["count"].(*tengo.Int); !ok || n.Value != 3 {
		t.Errorf("count = %v, want int 3", th.state.Value["count"])
	}
}
