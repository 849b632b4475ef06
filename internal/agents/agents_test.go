package agents

import (
	"errors"
	"testing"

	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

func TestInterruptableCounter(t *testing.T) {
	a := NewActor(2, "Ava", tile.P(0, 0, 0))
	if !a.IsInterruptable() {
		t.Fatal("new actor should be interruptable")
	}
	a.SetActionPoints(2)
	if a.IsInterruptable() || a.IsPermanentlyUninterruptable() {
		t.Fatal("action points should make a temporary lock")
	}
	a.Tick()
	a.Tick()
	if !a.IsInterruptable() {
		t.Fatal("lock should expire after two ticks")
	}
	a.SetInterruptable(false)
	for i := 0; i < 300; i++ {
		a.Tick()
	}
	if !a.IsPermanentlyUninterruptable() {
		t.Fatal("permanent lock must not count down")
	}
}

func TestTurn(t *testing.T) {
	tests := []struct {
		from, to, want tile.Direction
	}{
		{tile.Up, tile.Up, tile.Up},
		{tile.Up, tile.Left, tile.UpLeft},
		{tile.Up, tile.Right, tile.UpRight},
		{tile.Up, tile.Down, tile.UpRight},
		{tile.DownRight, tile.Up, tile.Right},
	}
	for _, tt := range tests {
		a := &Actor{Facing: tt.from}
		a.Turn(tt.to)
		if a.Facing != tt.want {
			t.Errorf("turn %v toward %v = %v, want %v", tt.from, tt.to, a.Facing, tt.want)
		}
	}
}

func TestAppearance(t *testing.T) {
	ap := NewAppearance(map[Action]int16{ActionStand: 1, ActionWalk: 3, ActionRun: 2})
	ap.Loaded = BankWalk

	if ap.Available(ActionRun) {
		t.Fatal("run bank is not loaded")
	}
	ap.RequestBank(BankRun)
	ap.Pump()
	if !ap.Available(ActionRun) {
		t.Fatal("run bank should load after pump")
	}
	if ap.Set(ActionDie, 0) {
		t.Fatal("die has no frames")
	}

	ap.Set(ActionWalk, 0)
	done := 0
	for i := 0; i < 3; i++ {
		if ap.Next() {
			done++
		}
	}
	if done != 1 || ap.Frame != 2 {
		t.Fatalf("walk finished %d times at frame %d", done, ap.Frame)
	}

	ap.Set(ActionWalk, AnimRepeat)
	for i := 0; i < 5; i++ {
		if ap.Next() {
			t.Fatal("repeating sequence never finishes")
		}
	}

	var none *Appearance
	if !none.Next() || none.Available(ActionStand) {
		t.Fatal("nil appearance finishes immediately and has no actions")
	}
}

func TestBandCapacity(t *testing.T) {
	b := NewBand(2)
	for i := 0; i < MaxBandMembers; i++ {
		b.Add(ObjectID(10 + i))
	}
	b.Add(10)
	if b.Size() != MaxBandMembers {
		t.Fatalf("size = %d", b.Size())
	}

	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, ErrCapacity) {
			t.Fatalf("recovered %v, want ErrCapacity", err)
		}
	}()
	b.Add(99)
}

func TestBandArchive(t *testing.T) {
	b := NewBand(7)
	b.Add(8)
	b.Add(9)
	b.Remove(8)

	w := archive.NewWriter()
	b.Archive(w)
	got := RestoreBand(archive.NewReader(w.Bytes()))
	if got.Leader != 7 || got.Size() != 1 || !got.Contains(9) {
		t.Fatalf("restored band = %+v", got)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewActor(r.NextID(), "Bram", tile.P(16, 16, 0))
	r.AddActor(a)
	sword := &Object{ID: r.NextID(), Name: "sword", Kind: KindMeleeWeapon, Parent: a.ID}
	r.Add(sword)
	bag := &Object{ID: r.NextID(), Name: "bag", Parent: a.ID}
	r.Add(bag)
	gem := &Object{ID: r.NextID(), Name: "gem", Parent: bag.ID}
	r.Add(gem)

	if a.ID != 2 || gem.ID != 5 {
		t.Fatalf("ids = %d, %d", a.ID, gem.ID)
	}
	if kids := r.Children(a.ID); len(kids) != 2 || kids[0] != sword {
		t.Fatalf("children = %v", kids)
	}
	if got := r.Location(gem.ID); got != a.Location {
		t.Errorf("gem location = %v, want carrier's %v", got, a.Location)
	}
	if r.Actor(sword.ID) != nil {
		t.Error("sword is not an actor")
	}
	if len(r.Bodies()) != 1 {
		t.Errorf("bodies = %d, want 1", len(r.Bodies()))
	}
	r.Remove(a.ID)
	if r.Lookup(a.ID) != nil || len(r.Actors()) != 0 {
		t.Error("actor should be gone")
	}
}

func TestSpawnerBands(t *testing.T) {
	r := NewRegistry()
	s := NewSpawner(r, SpawnConfig{Seed: 11, BandSize: 2})
	var locs []tile.Point
	for i := range 12 {
		locs = append(locs, tile.P(16+i*32, 16, 0))
	}
	actors := s.Spawn(locs)
	if len(actors) != 12 || len(r.Actors()) != 12 {
		t.Fatalf("spawned %d, registry has %d", len(actors), len(r.Actors()))
	}

	for _, a := range actors {
		if a.Anim == nil || a.Vitality != a.MaxVitality || a.Vitality < 14 {
			t.Errorf("actor %d not ready: %+v", a.ID, a)
		}
		switch {
		case a.Followers != nil:
			if a.Followers.Size() > 2 {
				t.Errorf("leader %d has %d followers", a.ID, a.Followers.Size())
			}
			for _, id := range a.Followers.Members() {
				f := r.Actor(id)
				if f == nil || f.Leader != a.ID || f.Disposition != a.Disposition {
					t.Errorf("follower %d of %d mismatched", id, a.ID)
				}
			}
		case a.Leader == 0:
			t.Errorf("actor %d is neither leader nor follower", a.ID)
		}
		for _, id := range []ObjectID{a.RightHand, a.LeftHand} {
			if id == 0 {
				continue
			}
			if o := r.Lookup(id); o == nil || o.Parent != a.ID {
				t.Errorf("actor %d wields %d it does not carry", a.ID, id)
			}
		}
	}
}

func TestSpawnerLoners(t *testing.T) {
	r := NewRegistry()
	actors := NewSpawner(r, SpawnConfig{Seed: 5}).Spawn([]tile.Point{tile.P(16, 16, 0), tile.P(48, 16, 0)})
	for _, a := range actors {
		if a.Followers != nil || a.Leader != 0 {
			t.Errorf("actor %d banded with BandSize 0", a.ID)
		}
	}
}
