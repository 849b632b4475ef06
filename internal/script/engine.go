package script

import (
	"log/slog"
	"strings"

	"github.com/d5/tengo/v2"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/task"
	"github.com/talgya/actorcore/internal/tile"
)

type engineFunc func(args ...tengo.Object) (tengo.Object, error)

// engine builds the functions a thread's run function may call. Motion
// functions suspend the thread and return true when a motion started.
func (s *Scheduler) engine(t *Thread, a *agents.Actor) *tengo.ImmutableMap {
	values := map[string]tengo.Object{}
	def := func(name string, fn engineFunc) {
		values[name] = &tengo.UserFunction{Name: name, Value: fn}
	}
	motionStarted := func() (tengo.Object, error) {
		if s.suspend(t) {
			return tengo.TrueValue, nil
		}
		return tengo.FalseValue, nil
	}

	def("self", func(...tengo.Object) (tengo.Object, error) {
		return &tengo.Int{Value: int64(a.ID)}, nil
	})

	def("location", func(args ...tengo.Object) (tengo.Object, error) {
		id := a.ID
		if len(args) > 0 {
			id = objectAsID(args[0])
		}
		loc := s.Motion.Objects.Location(id)
		if loc.IsNowhere() {
			return tengo.UndefinedValue, nil
		}
		return pointObject(loc), nil
	})

	def("vitality", func(args ...tengo.Object) (tengo.Object, error) {
		target := a
		if len(args) > 0 {
			if target = s.Motion.Objects.Actor(objectAsID(args[0])); target == nil {
				return tengo.UndefinedValue, nil
			}
		}
		return &tengo.Int{Value: int64(target.Vitality)}, nil
	})

	def("distance", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.UndefinedValue, nil
		}
		loc := s.Motion.Objects.Location(objectAsID(args[0]))
		if loc.IsNowhere() {
			return tengo.UndefinedValue, nil
		}
		return &tengo.Int{Value: int64(loc.Sub(a.Location).QuickHDistance())}, nil
	})

	def("nearest", func(args ...tengo.Object) (tengo.Object, error) {
		prop := task.AnyActor
		if len(args) > 0 {
			prop = actorProperty(objectAsString(args[0]))
		}
		if n := task.Matching(prop).Nearest(s.Motion.Objects, a); n != nil {
			return &tengo.Int{Value: int64(n.ID)}, nil
		}
		return &tengo.Int{Value: 0}, nil
	})

	def("random", func(args ...tengo.Object) (tengo.Object, error) {
		n, _ := objectAsInt(args, 0)
		if n <= 0 {
			return &tengo.Int{Value: 0}, nil
		}
		return &tengo.Int{Value: int64(s.Motion.Rand.RandomNumber(n))}, nil
	})

	def("log", func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, arg := range args {
			parts = append(parts, objectAsString(arg))
		}
		slog.Info("script", "thread", t.ID, "actor", a.ID, "msg", strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	})

	// Motions.

	def("walk_to", func(args ...tengo.Object) (tengo.Object, error) {
		p, ok := objectAsPoint(args, 0)
		if !ok {
			return tengo.FalseValue, nil
		}
		s.Motion.WalkTo(a, p, objectAsBool(args, 3), false)
		return motionStarted()
	})

	def("wander", func(args ...tengo.Object) (tengo.Object, error) {
		s.Motion.Wander(a, objectAsBool(args, 0))
		return motionStarted()
	})

	def("turn", func(args ...tengo.Object) (tengo.Object, error) {
		dir, ok := objectAsInt(args, 0)
		if !ok {
			return tengo.FalseValue, nil
		}
		s.Motion.Turn(a, tile.Direction(dir))
		return motionStarted()
	})

	def("face", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		loc := s.Motion.Objects.Location(objectAsID(args[0]))
		if loc.IsNowhere() {
			return tengo.FalseValue, nil
		}
		s.Motion.TurnTowards(a, loc)
		return motionStarted()
	})

	def("attack", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		target := s.Motion.Objects.Actor(objectAsID(args[0]))
		if target == nil || target.Dead {
			return tengo.FalseValue, nil
		}
		s.Combat.Attack(a, target)
		return motionStarted()
	})

	def("use", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		s.Motion.UseObject(a, objectAsID(args[0]))
		return motionStarted()
	})

	def("give", func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		s.Motion.Give(a, objectAsID(args[0]))
		return motionStarted()
	})

	def("sleep", func(args ...tengo.Object) (tengo.Object, error) {
		n, _ := objectAsInt(args, 0)
		t.sleep = max(n, 1)
		t.status = Sleeping
		return tengo.TrueValue, nil
	})

	def("exit", func(...tengo.Object) (tengo.Object, error) {
		t.status = Done
		return tengo.TrueValue, nil
	})

	// Plans. These replace the actor's root task and return at once.

	plan := func(name string, build func(st *task.Stack, args []tengo.Object) task.Task) {
		def(name, func(args ...tengo.Object) (tengo.Object, error) {
			st := s.stackFor(a)
			if st == nil {
				return tengo.FalseValue, nil
			}
			nt := build(st, args)
			if nt == nil {
				return tengo.FalseValue, nil
			}
			st.SetTask(nt)
			return tengo.TrueValue, nil
		})
	}

	plan("goto", func(st *task.Stack, args []tengo.Object) task.Task {
		p, ok := objectAsPoint(args, 0)
		if !ok {
			return nil
		}
		return task.NewGotoLocation(st, p, task.NoRun)
	})
	plan("hunt_to_kill", func(st *task.Stack, args []tengo.Object) task.Task {
		return task.NewHuntToKill(st, actorTarget(args), objectAsBool(args, 1))
	})
	plan("follow", func(st *task.Stack, args []tengo.Object) task.Task {
		rng, ok := objectAsInt(args, 1)
		if !ok {
			rng = tile.TileUVSize * 2
		}
		return task.NewHuntToBeNearActor(st, actorTarget(args), int16(rng), objectAsBool(args, 2))
	})
	plan("band", func(st *task.Stack, args []tengo.Object) task.Task {
		if objectAsBool(args, 0) {
			return task.NewBandAndAvoidEnemies(st)
		}
		return task.NewBand(st)
	})
	plan("patrol", func(st *task.Stack, args []tengo.Object) task.Task {
		route, ok := objectAsInt(args, 0)
		if !ok {
			return nil
		}
		flags, _ := objectAsInt(args, 1)
		last := int(task.NoLastWayPoint)
		if n, ok := objectAsInt(args, 2); ok {
			last = n
		}
		it := task.NewPatrolIterator(s.Stacks.Routes, int16(route), task.PatrolFlags(flags))
		return task.NewFollowPatrolRoute(st, it, int16(last))
	})
	plan("wander_plan", func(st *task.Stack, _ []tengo.Object) task.Task {
		return task.NewWander(st)
	})
	plan("attend", func(st *task.Stack, args []tengo.Object) task.Task {
		if len(args) < 1 {
			return nil
		}
		return task.NewAttend(st, objectAsID(args[0]))
	})

	def("clear_plan", func(...tengo.Object) (tengo.Object, error) {
		if st := s.Stacks.For(a.ID); st != nil {
			st.Abort()
		}
		return tengo.TrueValue, nil
	})

	def("plan", func(...tengo.Object) (tengo.Object, error) {
		if st := s.Stacks.For(a.ID); st != nil {
			if root := st.Root(); root != nil {
				return &tengo.String{Value: root.Kind().String()}, nil
			}
		}
		return &tengo.String{Value: ""}, nil
	})

	return &tengo.ImmutableMap{Value: values}
}

// stackFor returns a's task stack, creating one if there is room.
func (s *Scheduler) stackFor(a *agents.Actor) *task.Stack {
	if st := s.Stacks.For(a.ID); st != nil {
		return st
	}
	if s.Stacks.Len() >= task.MaxStacks {
		slog.Warn("no task stack for script actor", "actor", a.ID)
		return nil
	}
	return s.Stacks.NewStack(a)
}

// actorTarget reads a specific actor ID or an allegiance name from the
// first argument.
func actorTarget(args []tengo.Object) task.ActorTarget {
	if len(args) < 1 {
		return task.Matching(task.EnemyActors)
	}
	if sv, ok := args[0].(*tengo.String); ok {
		return task.Matching(actorProperty(sv.Value))
	}
	return task.ActorTarget{ID: objectAsID(args[0])}
}

func actorProperty(name string) task.ActorProperty {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "enemy", "enemies":
		return task.EnemyActors
	case "friend", "friends", "friendly":
		return task.FriendlyActors
	case "player", "players":
		return task.PlayerActors
	}
	return task.AnyActor
}
