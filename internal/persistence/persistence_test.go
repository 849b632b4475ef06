package persistence

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/rules"
	"github.com/talgya/actorcore/internal/script"
	"github.com/talgya/actorcore/internal/tile"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testSnapshot(tick uint64) *Snapshot {
	a := agents.NewActor(2, "guard", tile.P(40, 48, 0))
	a.Disposition = agents.Enemy
	a.Skills = agents.Skills{Brawn: 60, Archery: 20}
	a.Vitality = 11
	a.RightHand = 3
	a.Leader = 5
	a.Anim = agents.NewAppearance(map[agents.Action]int16{agents.ActionStand: 1, agents.ActionWalk: 8})
	a.RestoreActionCounter(3)

	sword := &agents.Object{
		ID: 3, Name: "sword", Kind: agents.KindMeleeWeapon, Parent: 2,
		Location: tile.Nowhere, Damage: 6, MaxRange: 24, TwoHanded: true,
	}
	return &Snapshot{
		Tick:    tick,
		Objects: []*agents.Object{sword},
		Actors:  []*agents.Actor{a},
		Chunks: map[string][]byte{
			ChunkMotion: {1, 2, 3},
			ChunkTasks:  {4, 5},
		},
		Threads: []script.ThreadState{{
			ID: 1, Actor: 2, Script: "guard", Status: "sleeping", Sleep: 3,
			State: map[string]any{"post": "gate"},
		}},
		Aggressions: []rules.Aggression{{Tick: tick - 1, Attacker: 2, Target: 9}},
	}
}

func TestSaveAndLoad(t *testing.T) {
	db := openTestDB(t)
	if db.HasWorldState() {
		t.Fatal("fresh database should have no saves")
	}

	snap := testSnapshot(1200)
	id, err := db.Save(snap)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" || snap.ID != id {
		t.Fatalf("save id = %q, snapshot id = %q", id, snap.ID)
	}
	if !db.HasWorldState() {
		t.Error("HasWorldState after save = false")
	}
	if tick, ok := db.LastTick(); !ok || tick != 1200 {
		t.Errorf("LastTick = %d, %v", tick, ok)
	}

	got, err := db.Load(id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Tick != 1200 || got.Name != "tick 1200" {
		t.Errorf("tick = %d name = %q", got.Tick, got.Name)
	}
	if !bytes.Equal(got.Chunks[ChunkMotion], []byte{1, 2, 3}) || len(got.Chunks[ChunkTasks]) != 2 {
		t.Errorf("chunks = %v", got.Chunks)
	}

	if len(got.Objects) != 1 || len(got.Actors) != 1 {
		t.Fatalf("objects = %d actors = %d", len(got.Objects), len(got.Actors))
	}
	if o := got.Objects[0]; o.Name != "sword" || !o.TwoHanded || o.Parent != 2 || o.Location != tile.Nowhere {
		t.Errorf("sword = %+v", o)
	}
	a := got.Actors[0]
	if a.Kind != agents.KindActor || a.Disposition != agents.Enemy || a.Vitality != 11 {
		t.Errorf("actor = %+v", a)
	}
	if a.Skills.Brawn != 60 || a.RightHand != 3 || a.Leader != 5 {
		t.Errorf("actor links lost: %+v", a)
	}
	if a.ActionCounter() != 3 {
		t.Errorf("action counter = %d, want 3", a.ActionCounter())
	}
	if a.Anim == nil || a.Anim.FrameCount(agents.ActionWalk) != 8 {
		t.Error("appearance not restored")
	}

	if len(got.Threads) != 1 || got.Threads[0].Script != "guard" || got.Threads[0].State["post"] != "gate" {
		t.Errorf("threads = %+v", got.Threads)
	}
	if len(got.Aggressions) != 1 || got.Aggressions[0] != snap.Aggressions[0] {
		t.Errorf("aggressions = %+v", got.Aggressions)
	}
}

func TestLoadMissing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Load("nope"); !errors.Is(err, ErrNoSave) {
		t.Errorf("Load err = %v, want ErrNoSave", err)
	}
	if _, err := db.Latest(); !errors.Is(err, ErrNoSave) {
		t.Errorf("Latest err = %v, want ErrNoSave", err)
	}
	if err := db.Delete("nope"); !errors.Is(err, ErrNoSave) {
		t.Errorf("Delete err = %v, want ErrNoSave", err)
	}
}

func TestSavesNewestFirstAndPrune(t *testing.T) {
	db := openTestDB(t)
	base := time.Now()
	var ids []string
	for i := range 4 {
		s := testSnapshot(uint64(100 * (i + 1)))
		s.Created = base.Add(time.Duration(i) * time.Minute)
		id, err := db.Save(s)
		if err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	latest, err := db.Latest()
	if err != nil || latest.ID != ids[3] {
		t.Fatalf("Latest = %+v, %v", latest, err)
	}

	n, err := db.Prune(2)
	if err != nil || n != 2 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	saves, err := db.Saves()
	if err != nil {
		t.Fatal(err)
	}
	if len(saves) != 2 || saves[0].ID != ids[3] || saves[1].ID != ids[2] {
		t.Errorf("saves after prune = %+v", saves)
	}

	if _, err := db.Load(ids[0]); !errors.Is(err, ErrNoSave) {
		t.Errorf("pruned save still loads: %v", err)
	}
	var rows int
	if err := db.conn.Get(&rows, "SELECT COUNT(*) FROM objects WHERE save_id = ?", ids[0]); err != nil || rows != 0 {
		t.Errorf("pruned save left %d object rows (%v)", rows, err)
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetMeta("seed"); err == nil {
		t.Error("missing key should fail")
	}
	if err := db.SaveMeta("seed", "42"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("seed", "43"); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMeta("seed"); err != nil || v != "43" {
		t.Errorf("seed = %q, %v", v, err)
	}
}
