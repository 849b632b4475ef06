package task

import (
	"fmt"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
)

// Archive writes every live stack in slot order. Stacks are saved before
// tasks and must be restored before them.
func (ss *Stacks) Archive(w *archive.Writer) {
	w.I16(int16(ss.Len()))
	ss.Each(func(s *Stack) {
		w.I16(int16(s.id))
		w.U16(uint16(s.actor.ID))
		w.I16(int16(s.root))
		w.U8(s.evalCount)
		w.U8(s.evalRate)
	})
}

// Restore replaces every stack with those in r and empties the task
// arena, which Tasks().Restore refills. A stack owned by an actor that is
// not registered is fatal.
func (ss *Stacks) Restore(r *archive.Reader) error {
	ss.reset()
	n := int(r.I16())
	if n < 0 || n > MaxStacks {
		return fmt.Errorf("restore task stacks: count %d: %w", n, agents.ErrCapacity)
	}
	for range n {
		id := StackID(r.I16())
		actorID := agents.ObjectID(r.U16())
		root := ID(r.I16())
		evalCount, evalRate := r.U8(), r.U8()
		if err := r.Err(); err != nil {
			return fmt.Errorf("restore task stacks: %w", err)
		}
		if id < 0 || id >= MaxStacks || ss.slots[id] != nil {
			return fmt.Errorf("restore task stacks: bad stack id %d", id)
		}
		a := ss.Objects.Actor(actorID)
		if a == nil {
			panic(fmt.Errorf("task stack %d for actor %d: %w", id, actorID, agents.ErrUnregistered))
		}
		ss.slots[id] = &Stack{
			stacks:    ss,
			actor:     a,
			id:        id,
			root:      root,
			evalCount: evalCount,
			evalRate:  max(evalRate, 1),
		}
		for i, f := range ss.free {
			if f == id {
				ss.free = append(ss.free[:i], ss.free[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Archive writes every live task in slot order: its ID, kind, owning
// stack and state. Subtasks are stored by ID.
func (ts *Tasks) Archive(w *archive.Writer) {
	w.I16(int16(ts.n))
	for id, t := range ts.slots {
		if t == nil {
			continue
		}
		w.I16(int16(id))
		w.I16(int16(t.Kind()))
		w.I16(int16(t.base().stack.id))
		t.archive(w)
	}
}

// Restore replaces every task with those in r, then resolves subtask
// IDs. The stacks in ss must already be restored; a task whose stack is
// missing is fatal.
func (ts *Tasks) Restore(r *archive.Reader, ss *Stacks) error {
	ts.reset()
	n := int(r.I16())
	if n < 0 || n > MaxTasks {
		return fmt.Errorf("restore tasks: count %d: %w", n, agents.ErrCapacity)
	}
	for range n {
		id := ID(r.I16())
		kind := Kind(r.I16())
		sid := StackID(r.I16())
		if err := r.Err(); err != nil {
			return fmt.Errorf("restore tasks: %w", err)
		}
		t := blank(kind)
		if t == nil {
			return fmt.Errorf("restore tasks: task %d has unknown kind %d", id, kind)
		}
		s := ss.Lookup(sid)
		if s == nil {
			panic(fmt.Errorf("task %d (%s) for stack %d: %w", id, kind, sid, agents.ErrLoadOrder))
		}
		t.base().stack = s
		t.restore(r)
		if err := r.Err(); err != nil {
			return fmt.Errorf("restore task %d (%s): %w", id, kind, err)
		}
		if err := ts.place(id, t); err != nil {
			return fmt.Errorf("restore tasks: %w", err)
		}
	}

	for _, t := range ts.slots {
		if t != nil {
			t.fixup(ts)
		}
	}
	for _, s := range ss.slots {
		if s != nil && s.root != NoTask && ts.Lookup(s.root) == nil {
			return fmt.Errorf("restore tasks: stack %d root %d missing", s.id, s.root)
		}
	}
	return nil
}

// blank returns a zero task of kind k ready to restore into.
func blank(k Kind) Task {
	switch k {
	case KindWander:
		return &Wander{}
	case KindTetheredWander:
		return &TetheredWander{}
	case KindGotoLocation:
		return &GotoLocation{}
	case KindGotoRegion:
		return &GotoRegion{}
	case KindGotoObject:
		return &GotoObject{}
	case KindGotoActor:
		return &GotoActor{}
	case KindGoAwayFromObject:
		return &GoAwayFromObject{}
	case KindGoAwayFromActor:
		return &GoAwayFromActor{}
	case KindHuntToBeNearLocation:
		return &HuntToBeNearLocation{}
	case KindHuntToBeNearObject:
		return &HuntToBeNearObject{}
	case KindHuntToPossess:
		return &HuntToPossess{}
	case KindHuntToBeNearActor:
		return &HuntToBeNearActor{}
	case KindHuntToKill:
		return &HuntToKill{}
	case KindHuntToGive:
		return &HuntToGive{}
	case KindBand:
		return &Band{}
	case KindBandAndAvoidEnemies:
		return &BandAndAvoidEnemies{Band{avoidEnemies: true}}
	case KindFollowPatrolRoute:
		return &FollowPatrolRoute{}
	case KindAttend:
		return &Attend{}
	}
	return nil
}
