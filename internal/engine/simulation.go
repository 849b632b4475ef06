package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/entropy"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/pathfind"
	"github.com/talgya/actorcore/internal/rules"
	"github.com/talgya/actorcore/internal/script"
	"github.com/talgya/actorcore/internal/task"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// Options configure a new Simulation.
type Options struct {
	Map      *world.Map
	Seed     int64
	Gravity  int16 // 0 uses the motion default
	EvalRate uint8 // 0 uses the task default
	PathJobs int   // 0 uses the pathfinder default
	Routes   [][]tile.Point
}

// Simulation holds the complete world state and wires the layers
// together. Readers outside the tick loop go through View.
type Simulation struct {
	mu sync.RWMutex

	Map     *world.Map
	Objects *agents.Registry
	Rand    *entropy.Source
	Rules   *rules.Rules
	Motion  *motion.List
	Paths   *pathfind.Queue
	Stacks  *task.Stacks
	Scripts *script.Scheduler

	LastTick uint64
	Stats    SimStats

	evalRate uint8
}

// SimStats are running totals since the simulation was created or loaded.
type SimStats struct {
	Deaths      int `json:"deaths"`
	Completions int `json:"completions"` // Plans that finished
	Failures    int `json:"failures"`    // Plans that failed
}

// NewSimulation creates an empty simulation over opts.Map.
func NewSimulation(opts Options) *Simulation {
	m := opts.Map
	reg := agents.NewRegistry()
	m.Bodies = reg
	rnd := entropy.New(opts.Seed)

	rl := rules.New(reg, rnd)
	paths := pathfind.NewQueue(m, reg, rnd)
	if opts.PathJobs > 0 {
		paths.PerTick = opts.PathJobs
	}
	ml := motion.NewList(motion.Env{
		World:   m,
		Objects: reg,
		Paths:   paths,
		Effects: rl,
		Rand:    rnd,
		Gravity: opts.Gravity,
	})
	rl.Motion = ml

	ss := task.NewStacks(task.Env{
		Motion:  ml,
		Objects: reg,
		World:   m,
		Rand:    rnd,
		Combat:  rl,
		Routes:  opts.Routes,
	})
	sched := script.New(ml, ss, rl)
	ml.Waker = sched

	s := &Simulation{
		Map:      m,
		Objects:  reg,
		Rand:     rnd,
		Rules:    rl,
		Motion:   ml,
		Paths:    paths,
		Stacks:   ss,
		Scripts:  sched,
		evalRate: opts.EvalRate,
	}
	if opts.EvalRate == 0 {
		s.evalRate = task.DefaultEvalRate
	}
	ss.OnComplete = s.planFinished
	rl.OnDeath = s.actorDied
	return s
}

// View runs fn with the simulation locked against ticks.
func (s *Simulation) View(fn func(*Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s)
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// SetEvalRate changes how often every stack re-evaluates its plan.
func (s *Simulation) SetEvalRate(n uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evalRate = max(n, 1)
	s.Stacks.Each(func(st *task.Stack) { st.SetEvalRate(s.evalRate) })
}

// Populate registers nothing itself; it gives every living actor in the
// registry a thread or a plan. Actors whose disposition has a script
// ("friendly" or "enemy") run it; the rest follow default plans.
func (s *Simulation) Populate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	scripts := make(map[string]bool)
	for _, name := range s.Scripts.Scripts() {
		scripts[name] = true
	}
	for _, a := range s.Objects.Actors() {
		if a.Dead {
			continue
		}
		name := dispositionScript(a.Disposition)
		if a.Leader == agents.Nothing && scripts[name] {
			if _, err := s.Scripts.Spawn(name, a.ID); err != nil {
				slog.Warn("script thread not started", "actor", a.ID, "script", name, "error", err)
			} else {
				continue
			}
		}
		s.plan(a)
	}
	slog.Info("population planned",
		"actors", len(s.Objects.Actors()),
		"stacks", s.Stacks.Len(),
		"threads", len(s.Scripts.Threads()),
	)
}

func dispositionScript(d agents.Disposition) string {
	if d == agents.Enemy {
		return "enemy"
	}
	return "friendly"
}

// Step runs one tick: scripts, then plans, then path jobs, then motion.
func (s *Simulation) Step(ctx context.Context, tick uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick = tick
	s.Rules.Tick = tick

	s.Scripts.Run(ctx)
	s.Stacks.UpdateAll()
	s.Paths.Process()
	s.Motion.UpdatePositions()

	for _, a := range s.Objects.Actors() {
		a.Tick()
		a.Anim.Pump()
	}
	s.sweep()
}

// sweep frees the stacks of actors that died or vanished this tick.
func (s *Simulation) sweep() {
	var gone []*task.Stack
	s.Stacks.Each(func(st *task.Stack) {
		a := st.Actor()
		if a.Dead || s.Objects.Actor(a.ID) == nil {
			gone = append(gone, st)
		}
	})
	for _, st := range gone {
		s.Stacks.Delete(st)
	}
}

func (s *Simulation) actorDied(a *agents.Actor) {
	s.Stats.Deaths++
}

// planFinished gives an actor whose plan ended a new one. Scripted actors
// plan for themselves.
func (s *Simulation) planFinished(a *agents.Actor, r task.Result) {
	if r == task.Succeeded {
		s.Stats.Completions++
	} else {
		s.Stats.Failures++
	}
	if a.Dead || s.scripted(a.ID) {
		return
	}
	s.plan(a)
}

func (s *Simulation) scripted(id agents.ObjectID) bool {
	for _, t := range s.Scripts.Threads() {
		if t.Actor == id {
			return true
		}
	}
	return false
}

// plan picks a default root task:
//   - followers band up behind their leader;
//   - actors that sense a foe hunt it;
//   - leaders walk a patrol route when there is one;
//   - everyone else wanders.
func (s *Simulation) plan(a *agents.Actor) {
	if a.Player {
		return
	}
	st := s.Stacks.For(a.ID)
	if st == nil {
		if s.Stacks.Len() >= task.MaxStacks {
			slog.Debug("no stack for actor", "actor", a.ID)
			return
		}
		st = s.Stacks.NewStack(a)
		st.SetEvalRate(s.evalRate)
	}

	foe := foeOf(a)
	switch {
	case a.Leader != agents.Nothing && s.Objects.Actor(a.Leader) != nil:
		if a.Disposition == agents.Friendly {
			st.SetTask(task.NewBandAndAvoidEnemies(st))
		} else {
			st.SetTask(task.NewBand(st))
		}
	case foe.Nearest(s.Objects, a) != nil:
		st.SetTask(task.NewHuntToKill(st, foe, true))
	case len(s.Stacks.Routes) > 0 && a.Followers != nil:
		route := int16(int(a.ID) % len(s.Stacks.Routes))
		iter := task.NewPatrolIterator(s.Stacks.Routes, route, task.PatrolAlternate)
		st.SetTask(task.NewFollowPatrolRoute(st, iter, task.NoLastWayPoint))
	default:
		st.SetTask(task.NewWander(st))
	}
	slog.Debug("actor planned", "actor", a.ID, "task", st.Root().Kind())
}

// foeOf selects the actors a hunts.
func foeOf(a *agents.Actor) task.ActorTarget {
	if a.Disposition == agents.Enemy {
		return task.Matching(task.FriendlyActors)
	}
	return task.Matching(task.EnemyActors)
}
