package engine

import (
	"fmt"
	"slices"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/persistence"
	"github.com/talgya/actorcore/internal/rules"
)

// Snapshot captures everything a save needs. Band, motion, stack and
// task state are archived into their chunks.
func (s *Simulation) Snapshot() *persistence.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &persistence.Snapshot{
		Tick:   s.LastTick,
		Chunks: make(map[string][]byte, len(persistence.LoadOrder)),
	}
	// Copies, so the save can be written after the lock is released.
	for _, o := range s.Objects.Objects() {
		if o.Kind != agents.KindActor {
			c := *o
			snap.Objects = append(snap.Objects, &c)
		}
	}
	for _, a := range s.Objects.Actors() {
		c := *a
		c.Followers = nil
		if a.Anim != nil {
			anim := *a.Anim
			c.Anim = &anim
		}
		snap.Actors = append(snap.Actors, &c)
	}

	w := archive.NewWriter()
	s.archiveBands(w)
	snap.Chunks[persistence.ChunkBands] = w.Bytes()

	w = archive.NewWriter()
	s.Motion.Archive(w)
	snap.Chunks[persistence.ChunkMotion] = w.Bytes()

	w = archive.NewWriter()
	s.Stacks.Archive(w)
	snap.Chunks[persistence.ChunkStacks] = w.Bytes()

	w = archive.NewWriter()
	s.Stacks.Tasks().Archive(w)
	snap.Chunks[persistence.ChunkTasks] = w.Bytes()

	snap.Threads = s.Scripts.Snapshot()

	recent := s.Rules.Log.Recent(s.Rules.Log.Len())
	slices.Reverse(recent)
	snap.Aggressions = recent
	return snap
}

// Restore replaces the simulation state with snap. Objects and actors are
// registered first, then each chunk is restored in load order. Scripts
// named by saved threads must already be loaded.
func (s *Simulation) Restore(snap *persistence.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range persistence.LoadOrder {
		if _, ok := snap.Chunks[tag]; !ok {
			return fmt.Errorf("restore: chunk %s missing: %w", tag, agents.ErrLoadOrder)
		}
	}

	s.Motion.Clear()
	s.Objects.Reset()
	for _, o := range snap.Objects {
		s.Objects.Add(o)
	}
	for _, a := range snap.Actors {
		a.Followers = nil
		s.Objects.AddActor(a)
	}

	if err := s.restoreBands(archive.NewReader(snap.Chunks[persistence.ChunkBands])); err != nil {
		return err
	}
	if err := s.Motion.Restore(archive.NewReader(snap.Chunks[persistence.ChunkMotion])); err != nil {
		return err
	}
	if err := s.Stacks.Restore(archive.NewReader(snap.Chunks[persistence.ChunkStacks])); err != nil {
		return err
	}
	if err := s.Stacks.Tasks().Restore(archive.NewReader(snap.Chunks[persistence.ChunkTasks]), s.Stacks); err != nil {
		return err
	}
	if err := s.Scripts.Restore(snap.Threads); err != nil {
		return err
	}

	s.Rules.Log = rules.NewAggressionLog(rules.DefaultLogSize)
	for _, ag := range snap.Aggressions {
		s.Rules.Log.Add(ag)
	}
	s.LastTick = snap.Tick
	s.Rules.Tick = snap.Tick
	s.Stats = SimStats{}
	return nil
}

// archiveBands writes the band of every leader, in registry order.
func (s *Simulation) archiveBands(w *archive.Writer) {
	var bands []*agents.Band
	for _, a := range s.Objects.Actors() {
		if a.Followers != nil {
			bands = append(bands, a.Followers)
		}
	}
	w.I16(int16(len(bands)))
	for _, b := range bands {
		b.Archive(w)
	}
}

// restoreBands reattaches each band to its leader. Every leader and
// member must already be registered.
func (s *Simulation) restoreBands(r *archive.Reader) error {
	n := int(r.I16())
	for range n {
		b := agents.RestoreBand(r)
		if err := r.Err(); err != nil {
			return fmt.Errorf("restore bands: %w", err)
		}
		leader := s.Objects.Actor(b.Leader)
		if leader == nil {
			panic(fmt.Errorf("band leader %d: %w", b.Leader, agents.ErrUnregistered))
		}
		for _, id := range b.Members() {
			if s.Objects.Actor(id) == nil {
				panic(fmt.Errorf("band member %d of %d: %w", id, b.Leader, agents.ErrUnregistered))
			}
		}
		leader.Followers = b
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("restore bands: %w", err)
	}
	return nil
}
