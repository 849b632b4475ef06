// Package script runs actor scripts as threads that suspend on motions.
//
// A script defines a run function that the scheduler calls each time the
// thread is ready:
//
//	run := func(engine, state, result) {
//		if result == "started" {
//			engine.walk_to(64, 64, 0)
//		}
//	}
//
// Starting a motion suspends the thread until the motion ends; the next
// call sees how it ended in result. state is a map that survives between
// calls. A thread that does not start a motion, sleep or exit runs again
// on the next tick with result "idle".
package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/task"
)

// MaxThreads bounds the number of live threads.
const MaxThreads = 256

// DefaultTimeout bounds one call of a script's run function.
const DefaultTimeout = 50 * time.Millisecond

var (
	ErrNoScript       = errors.New("script not loaded")
	ErrTooManyThreads = errors.New("too many script threads")
)

// What a thread's run function sees in result besides the motion
// results.
const (
	wakeStarted = "started" // First call
	wakeIdle    = "idle"    // Previous call neither waited nor slept
	wakeSlept   = "slept"
)

const dispatch = `
__ret := run(__engine, __state, __result)
`

// Status is where a thread is in its life.
type Status uint8

const (
	Ready    Status = iota // Runs on the next tick
	Waiting                // Suspended on a motion
	Sleeping               // Suspended for a number of ticks
	Done                   // Exited
	Failed                 // Stopped by an error
)

var statusNames = [...]string{"ready", "waiting", "sleeping", "done", "failed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", s)
}

// Thread is one running copy of a script bound to an actor.
type Thread struct {
	ID     motion.ThreadID
	Actor  agents.ObjectID
	Script string

	status   Status
	wake     string
	sleep    int
	runs     uint64
	err      error
	compiled *tengo.Compiled
	state    *tengo.Map
}

func (t *Thread) Status() Status { return t.status }
func (t *Thread) Err() error     { return t.err }

// Scheduler owns the compiled scripts and every live thread. It is the
// motion list's Waker.
type Scheduler struct {
	Motion *motion.List
	Stacks *task.Stacks
	Combat task.Combat

	// Timeout bounds each call into a script.
	Timeout time.Duration

	library map[string]*tengo.Compiled
	threads map[motion.ThreadID]*Thread
	next    motion.ThreadID
}

// New returns a scheduler with no scripts loaded.
func New(ml *motion.List, ss *task.Stacks, combat task.Combat) *Scheduler {
	return &Scheduler{
		Motion:  ml,
		Stacks:  ss,
		Combat:  combat,
		Timeout: DefaultTimeout,
		library: make(map[string]*tengo.Compiled),
		threads: make(map[motion.ThreadID]*Thread),
	}
}

var _ motion.Waker = (*Scheduler)(nil)

// Compile adds or replaces the script called name. Running threads keep
// the version they started with.
func (s *Scheduler) Compile(name string, src []byte) error {
	sc := tengo.NewScript(append(append([]byte{}, src...), dispatch...))
	err := errors.Join(
		sc.Add("__engine", map[string]any{}),
		sc.Add("__state", map[string]any{}),
		sc.Add("__result", ""),
	)
	if err != nil {
		return fmt.Errorf("compile script %s: %w", name, err)
	}
	sc.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	// A script without run fails here: dispatch calls it.
	compiled, err := sc.Compile()
	if err != nil {
		return fmt.Errorf("compile script %s: %w", name, err)
	}
	s.library[name] = compiled
	return nil
}

// LoadDir compiles every .tengo file in dir, named by its base name
// without the extension.
func (s *Scheduler) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("load scripts: %w", err)
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() || !isScriptFile(e.Name()) {
			continue
		}
		if err := s.LoadFile(filepath.Join(dir, e.Name())); err != nil {
			return n, err
		}
		n++
	}
	slog.Info("scripts loaded", "dir", dir, "count", n)
	return n, nil
}

// LoadFile compiles one script file.
func (s *Scheduler) LoadFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	return s.Compile(scriptName(path), src)
}

func scriptName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func isScriptFile(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == ".tengo"
}

// Scripts returns the loaded script names in order.
func (s *Scheduler) Scripts() []string {
	return slices.Sorted(maps.Keys(s.library))
}

func (s *Scheduler) allocID() (motion.ThreadID, error) {
	for range MaxThreads {
		id := s.next
		s.next = (s.next + 1) % MaxThreads
		if _, used := s.threads[id]; !used {
			return id, nil
		}
	}
	return motion.NoThread, fmt.Errorf("%w: %d live", ErrTooManyThreads, len(s.threads))
}

// Spawn starts the named script on actor. The thread first runs on the
// next call to Run, with result "started".
func (s *Scheduler) Spawn(name string, actor agents.ObjectID) (*Thread, error) {
	compiled, ok := s.library[name]
	if !ok {
		return nil, fmt.Errorf("spawn %s: %w", name, ErrNoScript)
	}
	if s.Motion.Objects.Actor(actor) == nil {
		return nil, fmt.Errorf("spawn %s on %d: %w", name, actor, agents.ErrUnregistered)
	}
	id, err := s.allocID()
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}
	t := &Thread{
		ID:       id,
		Actor:    actor,
		Script:   name,
		status:   Ready,
		wake:     wakeStarted,
		compiled: compiled.Clone(),
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
	}
	s.threads[id] = t
	slog.Debug("script thread spawned", "thread", id, "script", name, "actor", actor)
	return t, nil
}

// Thread returns the live thread with id, or nil.
func (s *Scheduler) Thread(id motion.ThreadID) *Thread { return s.threads[id] }

// Threads returns the live threads in ID order.
func (s *Scheduler) Threads() []*Thread {
	out := make([]*Thread, 0, len(s.threads))
	for _, id := range slices.Sorted(maps.Keys(s.threads)) {
		out = append(out, s.threads[id])
	}
	return out
}

// Kill ends a thread, detaching it from any motion it waits on.
func (s *Scheduler) Kill(id motion.ThreadID) {
	t := s.threads[id]
	if t == nil {
		return
	}
	if mt := s.Motion.For(t.Actor); mt != nil && mt.Thread == id {
		mt.Thread = motion.NoThread
	}
	delete(s.threads, id)
}

// WakeUpThread resumes a thread suspended on a motion.
func (s *Scheduler) WakeUpThread(id motion.ThreadID, result motion.Result) {
	if id == motion.NoThread {
		return
	}
	t := s.threads[id]
	if t == nil || t.status != Waiting {
		return
	}
	t.status = Ready
	t.wake = result.String()
}

// Run calls every ready thread once, counts down sleepers and reaps
// finished threads.
func (s *Scheduler) Run(ctx context.Context) {
	for _, t := range s.Threads() {
		switch t.status {
		case Sleeping:
			if t.sleep--; t.sleep <= 0 {
				t.status = Ready
				t.wake = wakeSlept
			}
		case Ready:
			s.step(ctx, t)
		}
		if t.status == Done || t.status == Failed {
			delete(s.threads, t.ID)
		}
	}
}

func (s *Scheduler) step(ctx context.Context, t *Thread) {
	a := s.Motion.Objects.Actor(t.Actor)
	if a == nil || a.Dead {
		t.status = Done
		return
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := t.compiled
	err := errors.Join(
		c.Set("__engine", s.engine(t, a)),
		c.Set("__state", t.state),
		c.Set("__result", t.wake),
	)
	if err == nil {
		err = c.RunContext(ctx)
	}
	t.runs++
	if err != nil {
		t.status = Failed
		t.err = err
		slog.Error("script thread failed", "thread", t.ID, "script", t.Script, "actor", t.Actor, "error", err)
		return
	}
	if t.status == Ready {
		t.wake = wakeIdle
	}
}

// suspend parks t on whatever motion its actor now has.
func (s *Scheduler) suspend(t *Thread) bool {
	mt := s.Motion.For(t.Actor)
	if mt == nil || mt.Removed() {
		return false
	}
	mt.Thread = t.ID
	t.status = Waiting
	return true
}
