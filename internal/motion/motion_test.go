package motion

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/entropy"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

type wake struct {
	thread ThreadID
	result Result
}

type wakeLog []wake

func (w *wakeLog) WakeUpThread(thread ThreadID, result Result) {
	*w = append(*w, wake{thread, result})
}

type countingEffects struct {
	NopEffects
	strikes int
	died    []agents.ObjectID
}

func (e *countingEffects) Strike(weapon, enactor, target agents.ObjectID) bool {
	e.strikes++
	return true
}

func (e *countingEffects) Die(a *agents.Actor) {
	a.Dead = true
	e.died = append(e.died, a.ID)
}

type fixture struct {
	list    *List
	objects *agents.Registry
	wakes   *wakeLog
	effects *countingEffects
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := world.NewMap(16, 16)
	reg := agents.NewRegistry()
	m.Bodies = reg
	f := &fixture{objects: reg, wakes: &wakeLog{}, effects: &countingEffects{}}
	f.list = NewList(Env{
		World:   m,
		Objects: reg,
		Waker:   f.wakes,
		Effects: f.effects,
		Rand:    entropy.New(7),
	})
	return f
}

func (f *fixture) actor(id agents.ObjectID, at tile.Point) *agents.Actor {
	a := agents.NewActor(id, fmt.Sprintf("actor-%d", id), at)
	f.objects.AddActor(a)
	return a
}

func (f *fixture) item(id agents.ObjectID, at tile.Point) *agents.Object {
	o := &agents.Object{ID: id, Name: "stone", Location: at, Parent: agents.WorldID, Height: 4, CrossSection: 2}
	f.objects.Add(o)
	return o
}

func (f *fixture) tick(n int) {
	for i := 0; i < n; i++ {
		f.list.UpdatePositions()
	}
}

func TestNewTaskReusesRecord(t *testing.T) {
	f := newFixture(t)
	f.actor(2, tile.P(40, 40, 0))

	if f.list.NewTask(99) != nil {
		t.Fatal("NewTask for an unknown object should return nil")
	}
	mt := f.list.NewTask(2)
	mt.Thread = 5
	if again := f.list.NewTask(2); again != mt {
		t.Fatal("second NewTask should reuse the live record")
	}
	if f.list.Len() != 1 {
		t.Fatalf("Len = %d, want 1", f.list.Len())
	}
	if mt.Thread != NoThread {
		t.Errorf("Thread = %d, want detached", mt.Thread)
	}
	want := wakeLog{{5, ResultInterrupted}}
	if len(*f.wakes) != 1 || (*f.wakes)[0] != want[0] {
		t.Errorf("wakes = %v, want %v", *f.wakes, want)
	}
}

func TestRemoveWakesOnce(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	mt := f.list.NewTask(2)
	mt.Thread = 3
	if a.Flags&agents.FlagMoving == 0 {
		t.Fatal("object with a record should be marked moving")
	}

	f.list.Remove(mt, ResultCompleted)
	f.list.Remove(mt, ResultCompleted)

	if len(*f.wakes) != 1 || (*f.wakes)[0] != (wake{3, ResultCompleted}) {
		t.Errorf("wakes = %v, want one completed wake", *f.wakes)
	}
	if f.list.For(2) != nil || !mt.Removed() {
		t.Error("record should be gone")
	}
	if a.Flags&agents.FlagMoving != 0 {
		t.Error("moving flag should be cleared")
	}
}

func TestUpdateSurvivesSelfRemoval(t *testing.T) {
	f := newFixture(t)
	for _, id := range []agents.ObjectID{2, 3} {
		a := f.actor(id, tile.P(40+int(id)*32, 40, 0))
		f.list.Wait(a)
		f.list.For(id).Thread = ThreadID(id) * 10
	}

	f.tick(5)
	if f.list.Len() != 2 {
		t.Fatalf("Len after 5 ticks = %d, want 2", f.list.Len())
	}
	f.tick(1)
	if f.list.Len() != 0 {
		t.Fatalf("Len after 6 ticks = %d, want 0", f.list.Len())
	}
	want := []wake{{20, ResultCompleted}, {30, ResultCompleted}}
	if len(*f.wakes) != len(want) {
		t.Fatalf("wakes = %v, want %v", *f.wakes, want)
	}
	for i, w := range want {
		if (*f.wakes)[i] != w {
			t.Errorf("wake %d = %v, want %v", i, (*f.wakes)[i], w)
		}
	}
}

func TestPausedActorsWait(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	f.list.Wait(a)

	f.list.PauseInterruptable()
	f.tick(10)
	if mt := f.list.For(2); mt == nil || !mt.has(FlagReset) {
		t.Fatal("paused record should not have advanced")
	}
	f.list.ResumeInterruptable()
	f.tick(6)
	if f.list.For(2) != nil {
		t.Error("record should finish once resumed")
	}
}

func TestNonActorMotionDropped(t *testing.T) {
	f := newFixture(t)
	f.item(5, tile.P(40, 40, 0))
	mt := f.list.start(5, TypeWait, nil)
	mt.Thread = 1

	f.tick(1)
	if f.list.For(5) != nil {
		t.Fatal("wait on an item should be dropped")
	}
	if (*f.wakes)[0] != (wake{1, ResultInterrupted}) {
		t.Errorf("wake = %v, want interrupted", (*f.wakes)[0])
	}
}

func TestTurn(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	f.list.Turn(a, tile.Left)

	f.tick(1)
	if a.Facing != tile.UpLeft {
		t.Fatalf("after one tick facing %v, want up-left", a.Facing)
	}
	f.tick(1)
	if a.Facing != tile.Left || f.list.For(2) == nil {
		t.Fatalf("after two ticks facing %v, record live %v", a.Facing, f.list.For(2) != nil)
	}
	f.tick(1)
	if f.list.For(2) != nil {
		t.Error("turn should complete once facing the target")
	}
}

func TestThrownObjectFollowsGravity(t *testing.T) {
	f := newFixture(t)
	o := f.item(5, tile.P(100, 100, 50))
	f.list.ThrowObject(5, tile.P(4, 0, 0))

	f.tick(2)
	if want := tile.P(108, 100, 44); o.Location != want {
		t.Errorf("location = %v, want %v", o.Location, want)
	}
}

func TestThrownObjectKeepsMomentum(t *testing.T) {
	f := newFixture(t)
	f.list.Gravity = 0
	o := f.item(5, tile.P(100, 100, 50))
	// 37 and 22 leave remainders of 7 over the 15 tick flight.
	f.list.ThrowObjectTo(5, tile.P(137, 122, 50))

	mt := f.list.For(5)
	if mt == nil {
		t.Fatal("no record")
	}
	if mt.Velocity != tile.P(2, 1, 0) || mt.Ballistic.UFrac != 7 || mt.Ballistic.VFrac != 7 {
		t.Fatalf("velocity = %v fractions = %d/%d", mt.Velocity, mt.Ballistic.UFrac, mt.Ballistic.VFrac)
	}
	f.tick(1)
	if want := tile.P(102, 101, 50); o.Location != want {
		t.Errorf("after one tick location = %v, want %v", o.Location, want)
	}
	f.tick(14)
	if want := tile.P(137, 122, 50); o.Location != want {
		t.Errorf("after 15 ticks location = %v, want %v", o.Location, want)
	}
}

func TestThrownObjectSettles(t *testing.T) {
	f := newFixture(t)
	o := f.item(5, tile.P(40, 40, 6))
	f.list.ThrowObject(5, tile.Point{})

	for i := 0; i < 20 && f.list.For(5) != nil; i++ {
		f.tick(1)
	}
	if f.list.For(5) != nil {
		t.Fatal("object never came to rest")
	}
	if o.Location.Z != 0 {
		t.Errorf("rest height = %d, want 0", o.Location.Z)
	}
}

func TestWalkToDirect(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	f.list.WalkToDirect(a, tile.P(80, 40, 0), false, false)
	f.list.For(2).Thread = 1

	// The first tick only turns toward the target.
	f.tick(1)
	if a.Location != tile.P(40, 40, 0) || a.Facing != tile.UpRight {
		t.Fatalf("after first tick at %v facing %v", a.Location, a.Facing)
	}
	f.tick(1)
	if a.Location != tile.P(44, 40, 0) {
		t.Fatalf("after second tick at %v, want one stride", a.Location)
	}

	for i := 0; i < 20 && f.list.For(2) != nil; i++ {
		f.tick(1)
	}
	if f.list.For(2) != nil {
		t.Fatal("walk never finished")
	}
	if a.Location != tile.P(80, 40, 0) {
		t.Errorf("final location = %v", a.Location)
	}
	if got := (*f.wakes)[len(*f.wakes)-1]; got != (wake{1, ResultCompleted}) {
		t.Errorf("wake = %v, want completed", got)
	}
}

func TestWalkBlockedByWall(t *testing.T) {
	f := newFixture(t)
	world.Fill(f.list.World.(*world.Map), 4, 0, 5, 16, world.Tile{Terrain: world.TerrainWall, Height: world.WallHeight})
	a := f.actor(2, tile.P(40, 40, 0))
	a.Facing = tile.UpRight
	f.list.WalkToDirect(a, tile.P(120, 40, 0), false, false)
	f.list.For(2).Thread = 4

	for i := 0; i < 40 && f.list.For(2) != nil; i++ {
		f.tick(1)
	}
	if f.list.For(2) != nil {
		t.Fatal("blocked walk should give up")
	}
	if a.Location.U >= 64 {
		t.Errorf("walked into the wall: %v", a.Location)
	}
	if got := (*f.wakes)[len(*f.wakes)-1]; got != (wake{4, ResultWalkBlocked}) {
		t.Errorf("wake = %v, want walk-blocked", got)
	}
}

func TestSwingStrikesOnce(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	a.Facing = tile.UpRight
	f.actor(3, tile.P(60, 40, 0))
	f.list.OneHandedSwing(a, 3)

	f.tick(2)
	if f.effects.strikes != 0 {
		t.Fatalf("struck early after 2 ticks")
	}
	f.tick(1)
	if f.effects.strikes != 1 {
		t.Fatalf("strikes = %d, want 1", f.effects.strikes)
	}
	if f.list.For(2) != nil {
		t.Error("swing should end after the strike")
	}
}

func TestDodgeWithoutAttack(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	f.actor(3, tile.P(60, 40, 0))
	f.list.Dodge(a, 3)
	a.SetInterruptable(false)

	f.tick(1)
	if f.list.For(2) != nil {
		t.Fatal("dodge should end when the attacker is not swinging")
	}
	if !a.IsInterruptable() {
		t.Error("dodge should release the actor")
	}
}

func TestDieWithoutAnimation(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	f.list.Die(a)

	f.tick(1)
	if !a.Dead || len(f.effects.died) != 1 {
		t.Fatalf("dead = %v, died = %v", a.Dead, f.effects.died)
	}
	if f.list.For(2) != nil {
		t.Error("death should end the record")
	}
}

func TestArchiveRestore(t *testing.T) {
	f := newFixture(t)
	walker := f.actor(2, tile.P(40, 40, 0))
	f.list.TetheredWander(walker, tile.Region{Min: tile.P(0, 0, 0), Max: tile.P(128, 128, 0)}, false)
	fighter := f.actor(3, tile.P(80, 40, 0))
	f.list.OneHandedSwing(fighter, 2)
	f.item(5, tile.P(100, 100, 50))
	f.list.ThrowObjectTo(5, tile.P(130, 100, 0))

	w := archive.NewWriter()
	f.list.Archive(w)

	restored := NewList(Env{World: f.list.World, Objects: f.objects})
	if err := restored.Restore(archive.NewReader(w.Bytes())); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Len() != f.list.Len() {
		t.Fatalf("restored %d records, want %d", restored.Len(), f.list.Len())
	}

	tests := []struct {
		name string
		id   agents.ObjectID
	}{
		{"tethered wander", 2},
		{"swing", 3},
		{"thrown", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, got := f.list.For(tt.id), restored.For(tt.id)
			if got == nil {
				t.Fatal("record missing")
			}
			if got.Type != want.Type || got.PrevType != want.PrevType || got.Flags != want.Flags {
				t.Errorf("header = %v/%v/%#x, want %v/%v/%#x",
					got.Type, got.PrevType, got.Flags, want.Type, want.PrevType, want.Flags)
			}
			if got.Target != want.Target || got.Velocity != want.Velocity || got.Ballistic != want.Ballistic {
				t.Errorf("payload = %+v, want %+v", got, want)
			}
			if want.IsWalk() && (got.Walk.Final != want.Walk.Final || got.Tether() != want.Tether()) {
				t.Errorf("walk = %+v, want %+v", got.Walk, want.Walk)
			}
		})
	}
}

func TestArchiveEveryType(t *testing.T) {
	walk := Walk{
		Immediate: tile.P(20, 24, 0),
		Final:     tile.P(90, 60, 8),
		PathIndex: 1,
		PathCount: 3,
		RunCount:  4,
	}
	walk.Path[0], walk.Path[1], walk.Path[2] = tile.P(20, 24, 0), tile.P(56, 40, 0), tile.P(90, 60, 8)
	ballistic := Ballistic{Steps: 15, UFrac: 7, VFrac: -3, UErr: 2, VErr: 5}

	walking := func(mt *Task) {
		mt.Walk = walk
		mt.Direction = tile.UpLeft
	}
	header := func(*Task) {}
	use := func(mt *Task) {
		mt.Use = Use{Direct: 11, Indirect: 12, TAI: 3, TargetLoc: tile.P(64, 64, 0), MoveCount: 2}
		mt.Direction = tile.Down
	}
	attack := func(mt *Task) {
		mt.Direction = tile.Right
		mt.Combat.SubType = 2
		mt.Target = 4
		mt.ActionCounter = 3
	}
	defense := func(mt *Task) {
		mt.Direction = tile.Left
		mt.Combat = Combat{SubType: 1, Attacker: 4, DefensiveObj: 12, DefenseFlags: 1}
		mt.ActionCounter = 2
	}
	hit := func(mt *Task) {
		mt.Combat.Attacker = 4
		mt.ActionCounter = 9
	}

	tests := []struct {
		typ  Type
		prev Type
		fill func(mt *Task)
	}{
		{TypeNone, TypeNone, header},
		{TypeWalk, TypeWalk, func(mt *Task) {
			walking(mt)
			mt.Flags |= FlagTethered | FlagAgitated | FlagWandering
			mt.Walk.Tether = tile.Region{Min: tile.P(0, 0, 0), Max: tile.P(128, 128, 0)}
			mt.ActionCounter = 5
		}},
		{TypeStep, TypeNone, header},
		{TypeRun, TypeNone, header},
		{TypeClimbUp, TypeWalk, walking},
		{TypeClimbDown, TypeNone, header},
		{TypeTalk, TypeNone, header},
		{TypeLand, TypeWalk, walking},
		{TypeLandBadly, TypeNone, header},
		{TypeJump, TypeNone, func(mt *Task) { mt.Velocity = tile.P(6, -4, 12) }},
		{TypeTurn, TypeNone, func(mt *Task) { mt.Direction = tile.DownRight }},
		{TypeGive, TypeNone, func(mt *Task) {
			mt.Target = 4
			mt.Direction = tile.UpRight
			mt.Spell.Object = 11
		}},
		{TypeRise, TypeNone, header},
		{TypeWait, TypeNone, func(mt *Task) { mt.ActionCounter = 7 }},
		{TypeThrown, TypeWalk, func(mt *Task) {
			walking(mt)
			mt.Velocity = tile.P(2, -1, 8)
			mt.Ballistic = ballistic
		}},
		{TypeShot, TypeNone, func(mt *Task) {
			mt.Velocity = tile.P(16, 0, 2)
			mt.Ballistic = ballistic
			mt.Ballistic.Enactor = 2
			mt.Target = 4
		}},
		{TypeUseObject, TypeNone, use},
		{TypeUseObjectOnObject, TypeNone, use},
		{TypeUseObjectOnTAI, TypeNone, use},
		{TypeUseObjectOnLocation, TypeNone, use},
		{TypeUseTAI, TypeNone, use},
		{TypeDropObject, TypeNone, use},
		{TypeDropObjectOnObject, TypeNone, use},
		{TypeDropObjectOnTAI, TypeNone, use},
		{TypeTwoHandedSwing, TypeNone, attack},
		{TypeOneHandedSwing, TypeNone, attack},
		{TypeFireBow, TypeNone, attack},
		{TypeCastSpell, TypeNone, func(mt *Task) {
			mt.Flags |= FlagLocTarg
			mt.Direction = tile.Up
			mt.Target = 4
			mt.Spell = Spell{Object: 11, TAG: 2, Loc: tile.P(72, 30, 0)}
			mt.ActionCounter = 6
		}},
		{TypeUseWand, TypeNone, attack},
		{TypeTwoHandedParry, TypeNone, defense},
		{TypeOneHandedParry, TypeNone, defense},
		{TypeShieldParry, TypeNone, defense},
		{TypeDodge, TypeNone, defense},
		{TypeAcceptHit, TypeNone, hit},
		{TypeFallDown, TypeWalk, func(mt *Task) {
			walking(mt)
			hit(mt)
		}},
		{TypeDie, TypeNone, header},
	}

	covered := make(map[Type]bool)
	for _, tt := range tests {
		covered[tt.typ] = true
		t.Run(tt.typ.String(), func(t *testing.T) {
			want := &Task{
				Type:     tt.typ,
				PrevType: tt.prev,
				Thread:   3,
				Flags:    FlagNextAnim | FlagPrivileged,
				Object:   9,
				Walk:     Walk{PathCount: -1},
				Use:      Use{TAI: NoActiveItem},
				Spell:    Spell{TAG: NoActiveItem},
			}
			tt.fill(want)

			w := archive.NewWriter()
			want.archive(w)
			r := archive.NewReader(w.Bytes())
			got := restoreTask(r)
			if err := r.Err(); err != nil {
				t.Fatalf("restore: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("restored %+v\nwant %+v", got, want)
			}
		})
	}
	for typ := TypeNone; typ < numTypes; typ++ {
		if !covered[typ] {
			t.Errorf("type %v has no archive case", typ)
		}
	}
}

func TestRestoreUnknownObjectPanics(t *testing.T) {
	f := newFixture(t)
	a := f.actor(2, tile.P(40, 40, 0))
	f.list.Wait(a)
	w := archive.NewWriter()
	f.list.Archive(w)

	empty := NewList(Env{World: f.list.World})
	defer func() {
		err, _ := recover().(error)
		if !errors.Is(err, agents.ErrUnregistered) {
			t.Errorf("recovered %v, want ErrUnregistered", err)
		}
	}()
	empty.Restore(archive.NewReader(w.Bytes()))
}
