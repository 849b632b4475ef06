package task

import (
	"fmt"
	"log/slog"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/tile"
)

// Registry capacities. Exceeding either is fatal.
const (
	MaxStacks = 32
	MaxTasks  = 64
)

// ID names a task slot; it is stable for the task's lifetime and is what
// archives store.
type ID int16

// NoTask marks an empty subtask reference.
const NoTask ID = -1

// StackID names a stack slot.
type StackID int16

// NoStack marks a missing stack.
const NoStack StackID = -1

// Sight answers line-of-sight queries. *world.Map implements it.
type Sight interface {
	LineOfSight(eye, target tile.Point) bool
}

// Rand is the random source for every roll the goal layer makes.
type Rand interface {
	RandomNumber(max int) int
}

// Combat is the fighting surface hunts drive.
type Combat interface {
	Attack(a, target *agents.Actor)
	StopAttack(a *agents.Actor)
	InAttackRange(a *agents.Actor, loc tile.Point) bool
	OffenseScore(a *agents.Actor) int
	DefenseScore(a *agents.Actor) int
	// WeaponRating scores weapon in a's hands against target; zero means
	// useless.
	WeaponRating(weapon agents.ObjectID, a, target *agents.Actor) int
	// Use toggles an item: wielding or unwielding a weapon, wearing armor.
	Use(a *agents.Actor, obj agents.ObjectID)
}

// Env holds the collaborators every task reaches through its stack.
type Env struct {
	Motion  *motion.List
	Objects *agents.Registry
	World   Sight
	Rand    Rand
	Combat  Combat
	Routes  [][]tile.Point // Patrol routes by number
}

// Tasks is the fixed-capacity task arena. Slot IDs are reused through a
// free list.
type Tasks struct {
	slots [MaxTasks]Task
	free  []ID
	n     int
}

func newTasks() *Tasks {
	ts := &Tasks{free: make([]ID, 0, MaxTasks)}
	ts.reset()
	return ts
}

func (ts *Tasks) reset() {
	ts.slots = [MaxTasks]Task{}
	ts.free = ts.free[:0]
	for id := ID(MaxTasks - 1); id >= 0; id-- {
		ts.free = append(ts.free, id)
	}
	ts.n = 0
}

func (ts *Tasks) add(t Task) {
	if len(ts.free) == 0 {
		panic(fmt.Errorf("task registry full at %d adding %s: %w", MaxTasks, t.Kind(), agents.ErrCapacity))
	}
	id := ts.free[len(ts.free)-1]
	ts.free = ts.free[:len(ts.free)-1]
	ts.put(id, t)
}

func (ts *Tasks) put(id ID, t Task) {
	ts.slots[id] = t
	t.base().id = id
	ts.n++
}

// place puts t at a specific slot when restoring.
func (ts *Tasks) place(id ID, t Task) error {
	if id < 0 || id >= MaxTasks {
		return fmt.Errorf("task id %d out of range", id)
	}
	if ts.slots[id] != nil {
		return fmt.Errorf("task id %d restored twice", id)
	}
	for i, f := range ts.free {
		if f == id {
			ts.free = append(ts.free[:i], ts.free[i+1:]...)
			break
		}
	}
	ts.put(id, t)
	return nil
}

// release frees t and every subtask beneath it.
func (ts *Tasks) release(t Task) {
	for _, sub := range t.subtasks() {
		ts.release(sub)
	}
	n := t.base()
	if n.id == NoTask || ts.slots[n.id] != t {
		return
	}
	ts.slots[n.id] = nil
	ts.free = append(ts.free, n.id)
	n.id = NoTask
	ts.n--
}

// ID returns t's slot. Asking about an unregistered task is fatal.
func (ts *Tasks) ID(t Task) ID {
	id := t.base().id
	if id < 0 || id >= MaxTasks || ts.slots[id] != t {
		panic(fmt.Errorf("task %s: %w", t.Kind(), agents.ErrUnregistered))
	}
	return id
}

// Lookup returns the task at id, or nil.
func (ts *Tasks) Lookup(id ID) Task {
	if id < 0 || id >= MaxTasks {
		return nil
	}
	return ts.slots[id]
}

// Len returns the number of live tasks.
func (ts *Tasks) Len() int { return ts.n }

// Stacks is the fixed-capacity stack arena and the owner of the task
// arena. UpdateAll is the goal layer's per-tick entry point.
type Stacks struct {
	Env

	// OnComplete receives a stack's terminal result; the usual response
	// is to give the actor a new root task.
	OnComplete func(a *agents.Actor, r Result)

	slots  [MaxStacks]*Stack
	free   []StackID
	tasks  *Tasks
	paused bool
}

// NewStacks returns empty registries. Missing collaborators get inert
// defaults.
func NewStacks(env Env) *Stacks {
	if env.Objects == nil {
		env.Objects = agents.NewRegistry()
	}
	if env.Motion == nil {
		env.Motion = motion.NewList(motion.Env{Objects: env.Objects})
	}
	if env.Rand == nil {
		env.Rand = env.Motion.Rand
	}
	if env.Combat == nil {
		env.Combat = basicCombat{env.Motion}
	}
	ss := &Stacks{Env: env, tasks: newTasks(), free: make([]StackID, 0, MaxStacks)}
	ss.reset()
	return ss
}

func (ss *Stacks) reset() {
	ss.slots = [MaxStacks]*Stack{}
	ss.free = ss.free[:0]
	for id := StackID(MaxStacks - 1); id >= 0; id-- {
		ss.free = append(ss.free, id)
	}
	ss.tasks.reset()
}

// Tasks returns the task arena.
func (ss *Stacks) Tasks() *Tasks { return ss.tasks }

// NewStack gives a an empty stack.
func (ss *Stacks) NewStack(a *agents.Actor) *Stack {
	if len(ss.free) == 0 {
		panic(fmt.Errorf("stack registry full at %d adding actor %d: %w", MaxStacks, a.ID, agents.ErrCapacity))
	}
	id := ss.free[len(ss.free)-1]
	ss.free = ss.free[:len(ss.free)-1]
	s := &Stack{stacks: ss, actor: a, id: id, root: NoTask, evalCount: DefaultEvalRate, evalRate: DefaultEvalRate}
	ss.slots[id] = s
	slog.Debug("task stack created", "actor", a.ID, "stack", id)
	return s
}

// Delete aborts s's plan and frees its slot.
func (ss *Stacks) Delete(s *Stack) {
	if s == nil || ss.slots[s.id] != s {
		return
	}
	s.Abort()
	ss.slots[s.id] = nil
	ss.free = append(ss.free, s.id)
}

// ID returns s's slot. Asking about an unregistered stack is fatal.
func (ss *Stacks) ID(s *Stack) StackID {
	if s == nil || s.id < 0 || s.id >= MaxStacks || ss.slots[s.id] != s {
		panic(fmt.Errorf("task stack: %w", agents.ErrUnregistered))
	}
	return s.id
}

// Lookup returns the stack at id, or nil.
func (ss *Stacks) Lookup(id StackID) *Stack {
	if id < 0 || id >= MaxStacks {
		return nil
	}
	return ss.slots[id]
}

// For returns the stack owned by actor, or nil.
func (ss *Stacks) For(actor agents.ObjectID) *Stack {
	for _, s := range ss.slots {
		if s != nil && s.actor.ID == actor {
			return s
		}
	}
	return nil
}

// Len returns the number of live stacks.
func (ss *Stacks) Len() int { return MaxStacks - len(ss.free) }

// Each calls fn for every live stack in slot order.
func (ss *Stacks) Each(fn func(*Stack)) {
	for _, s := range ss.slots {
		if s != nil {
			fn(s)
		}
	}
}

// Pause stops UpdateAll until Resume.
func (ss *Stacks) Pause()       { ss.paused = true }
func (ss *Stacks) Resume()      { ss.paused = false }
func (ss *Stacks) Paused() bool { return ss.paused }

// UpdateAll advances every stack in slot order and reports terminal
// results to OnComplete.
func (ss *Stacks) UpdateAll() {
	if ss.paused {
		return
	}
	for i := range ss.slots {
		s := ss.slots[i]
		if s == nil {
			continue
		}
		if r := s.Update(); r != NotDone {
			slog.Debug("task stack finished", "actor", s.actor.ID, "result", r)
			if ss.OnComplete != nil {
				ss.OnComplete(s.actor, r)
			}
		}
	}
}
