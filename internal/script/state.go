package script

import (
	"fmt"

	"github.com/d5/tengo/v2"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/motion"
)

// ThreadState is the saved form of a thread. State holds only values
// that survive a JSON round trip.
type ThreadState struct {
	ID     motion.ThreadID `json:"id"`
	Actor  agents.ObjectID `json:"actor"`
	Script string          `json:"script"`
	Status string          `json:"status"`
	Wake   string          `json:"wake"`
	Sleep  int             `json:"sleep,omitempty"`
	Runs   uint64          `json:"runs"`
	State  map[string]any  `json:"state"`
	Error  string          `json:"error,omitempty"`
}

// Snapshot describes every live thread in ID order.
func (s *Scheduler) Snapshot() []ThreadState {
	out := make([]ThreadState, 0, len(s.threads))
	for _, t := range s.Threads() {
		st := ThreadState{
			ID:     t.ID,
			Actor:  t.Actor,
			Script: t.Script,
			Status: t.status.String(),
			Wake:   t.wake,
			Sleep:  t.sleep,
			Runs:   t.runs,
			State:  map[string]any{},
		}
		if m, ok := tengo.ToInterface(t.state).(map[string]any); ok {
			st.State = m
		}
		if t.err != nil {
			st.Error = t.err.Error()
		}
		out = append(out, st)
	}
	return out
}

func parseStatus(name string) (Status, bool) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), true
		}
	}
	return Ready, false
}

// Restore replaces every thread with those in states. Scripts must be
// loaded first. Motions restored alongside still name their waiting
// threads by ID.
func (s *Scheduler) Restore(states []ThreadState) error {
	threads := make(map[motion.ThreadID]*Thread, len(states))
	for _, st := range states {
		compiled, ok := s.library[st.Script]
		if !ok {
			return fmt.Errorf("restore thread %d: %s: %w", st.ID, st.Script, ErrNoScript)
		}
		if st.ID < 0 || st.ID >= MaxThreads || threads[st.ID] != nil {
			return fmt.Errorf("restore thread %d: bad id", st.ID)
		}
		status, ok := parseStatus(st.Status)
		if !ok || status == Done || status == Failed {
			return fmt.Errorf("restore thread %d: bad status %q", st.ID, st.Status)
		}
		state, err := tengo.FromInterface(normalize(st.State))
		if err != nil {
			return fmt.Errorf("restore thread %d state: %w", st.ID, err)
		}
		m, ok := state.(*tengo.Map)
		if !ok {
			m = &tengo.Map{Value: map[string]tengo.Object{}}
		}
		threads[st.ID] = &Thread{
			ID:       st.ID,
			Actor:    st.Actor,
			Script:   st.Script,
			status:   status,
			wake:     st.Wake,
			sleep:    st.Sleep,
			runs:     st.Runs,
			compiled: compiled.Clone(),
			state:    m,
		}
	}
	s.threads = threads
	s.next = 0
	return nil
}
