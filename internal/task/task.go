// Package task is the goal layer. Each actor that thinks for itself owns a
// Stack whose root Task decides, tick by tick, which motion the actor
// should be making. Tasks nest: a hunt drives a goto, a goto falls back to
// a wander, and aborting the outer task unwinds everything beneath it.
package task

import (
	"fmt"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/motion"
)

// Result is the outcome of one Evaluate or Update call.
type Result int8

const (
	NotDone   Result = iota // Still working
	Succeeded               // Goal reached
	Failed                  // Goal cannot be reached
)

var resultNames = [...]string{"not-done", "succeeded", "failed"}

func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("result(%d)", r)
}

// Kind is the archive tag of a task variant.
type Kind int16

const (
	KindWander Kind = iota
	KindTetheredWander
	KindGotoLocation
	KindGotoRegion
	KindGotoObject
	KindGotoActor
	KindGoAwayFromObject
	KindGoAwayFromActor
	KindHuntToBeNearLocation
	KindHuntToBeNearObject
	KindHuntToPossess
	KindHuntToBeNearActor
	KindHuntToKill
	KindHuntToGive
	KindBand
	KindBandAndAvoidEnemies
	KindFollowPatrolRoute
	KindAttend
	numKinds
)

var kindNames = [...]string{
	"wander", "tethered-wander",
	"goto-location", "goto-region", "goto-object", "goto-actor",
	"go-away-from-object", "go-away-from-actor",
	"hunt-to-be-near-location", "hunt-to-be-near-object", "hunt-to-possess",
	"hunt-to-be-near-actor", "hunt-to-kill", "hunt-to-give",
	"band", "band-and-avoid-enemies", "follow-patrol-route", "attend",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Timing constants, in ticks.
const (
	TargetEvaluateRate = 13 // Hunts re-pick their target this often
	SightRate          = 16 // Out-of-sight goto targets are re-sensed this often
	DefaultEvalRate    = 10 // Stacks evaluate their root this often
)

// Task is one node of an actor's plan. The set of variants is closed.
type Task interface {
	Kind() Kind
	// Evaluate reports whether the goal is already met. It may tidy up
	// subtasks but never starts new work.
	Evaluate() Result
	// Update does one tick of work toward the goal.
	Update() Result
	// Abort cancels every subtask and motion the task owns. Calling it
	// again is harmless.
	Abort()
	// Equal reports whether t is the same goal, so callers can avoid
	// replacing a task with a duplicate.
	Equal(t Task) bool

	base() *node
	subtasks() []Task
	archive(w *archive.Writer)
	restore(r *archive.Reader)
	fixup(ts *Tasks)
}

// node is the state every variant shares.
type node struct {
	stack *Stack
	id    ID

	// Subtask IDs read from an archive, resolved by fixup.
	links [2]ID
}

func (n *node) base() *node { return n }

func (n *node) actor() *agents.Actor { return n.stack.actor }

func (n *node) env() *Env { return &n.stack.stacks.Env }

func (n *node) motion() *motion.Task { return n.env().Motion.For(n.stack.actor.ID) }

func (n *node) rand(max int) int { return n.env().Rand.RandomNumber(max) }

// register places t in the task registry as a member of s.
func register[T Task](s *Stack, t T) T {
	t.base().stack = s
	s.stacks.tasks.add(t)
	return t
}

// drop aborts t and frees it with everything beneath it.
func (n *node) drop(t Task) {
	t.Abort()
	n.stack.stacks.tasks.release(t)
}

// subID returns the registry ID of t, or NoTask for a nil subtask.
func subID[T interface {
	comparable
	Task
}](t T) ID {
	var zero T
	if t == zero {
		return NoTask
	}
	return t.base().id
}

// resolve converts an archived subtask ID back into a reference.
func resolve[T Task](ts *Tasks, id ID) T {
	var zero T
	if id == NoTask {
		return zero
	}
	t, ok := ts.Lookup(id).(T)
	if !ok {
		panic(fmt.Errorf("subtask %d: %w", id, agents.ErrUnregistered))
	}
	return t
}

// appendSub appends t to out unless it is nil.
func appendSub[T interface {
	comparable
	Task
}](out []Task, t T) []Task {
	var zero T
	if t == zero {
		return out
	}
	return append(out, t)
}
