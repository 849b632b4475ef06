package task

import (
	"fmt"

	"github.com/talgya/actorcore/internal/agents"
)

// Stack holds an actor's current plan: a single root task and whatever
// subtasks it has spawned.
type Stack struct {
	stacks *Stacks
	actor  *agents.Actor
	id     StackID
	root   ID

	evalCount uint8
	evalRate  uint8
}

// Actor returns the stack's owner.
func (s *Stack) Actor() *agents.Actor { return s.actor }

// Root returns the root task, or nil when the stack is idle.
func (s *Stack) Root() Task { return s.stacks.tasks.Lookup(s.root) }

// SetTask makes t the root. Any previous root is aborted and freed.
func (s *Stack) SetTask(t Task) {
	if t.base().stack != s {
		panic(fmt.Errorf("task %s belongs to another stack", t.Kind()))
	}
	if old := s.Root(); old != nil && old != t {
		old.Abort()
		s.stacks.tasks.release(old)
	}
	s.root = s.stacks.tasks.ID(t)
}

// SetEvalRate sets how many updates pass between root evaluations.
func (s *Stack) SetEvalRate(n uint8) {
	s.evalRate = max(n, 1)
	s.evalCount = s.evalRate
}

// Abort cancels and frees the whole plan, leaving the stack idle.
func (s *Stack) Abort() {
	if root := s.Root(); root != nil {
		root.Abort()
		s.stacks.tasks.release(root)
	}
	s.root = NoTask
}

// Evaluate asks the root whether its goal is already met.
func (s *Stack) Evaluate() Result {
	if root := s.Root(); root != nil {
		return root.Evaluate()
	}
	return Failed
}

// Update does one tick of the plan. Nothing happens while the actor is
// uninterruptable. A terminal result frees the root, leaving the stack
// idle for the caller to refill.
func (s *Stack) Update() Result {
	if !s.actor.IsInterruptable() {
		return NotDone
	}
	root := s.Root()
	if root == nil {
		return Failed
	}

	s.evalCount--
	if s.evalCount == 0 {
		if r := root.Evaluate(); r != NotDone {
			s.finish(root)
			return r
		}
		s.evalCount = s.evalRate
	}

	if r := root.Update(); r != NotDone {
		s.finish(root)
		return r
	}
	return NotDone
}

func (s *Stack) finish(root Task) {
	s.stacks.tasks.release(root)
	s.root = NoTask
}
