package pathfind

import (
	"testing"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/entropy"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

func wallMap() *world.Map {
	m := world.NewMap(16, 16)
	// A wall across column 6 with a gap at row 12.
	world.Fill(m, 6, 0, 7, 12, world.Tile{Terrain: world.TerrainWall, Height: world.WallHeight})
	return m
}

func TestRoute(t *testing.T) {
	tests := []struct {
		name     string
		from, to tile.Point
		iq       int
		complete bool
		maxLen   int
	}{
		{"open ground", tile.P(24, 24, 0), tile.P(24, 120, 0), 400, true, 1},
		{"around wall", tile.P(40, 40, 0), tile.P(200, 40, 0), 400, true, motion.MaxPath},
		{"tiny budget", tile.P(40, 40, 0), tile.P(200, 40, 0), 16, false, motion.MaxPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(wallMap(), agents.NewRegistry(), entropy.New(3))
			points, complete, ok := q.Route(tt.from, tt.to, tt.iq)
			if !ok {
				t.Fatal("no route")
			}
			if complete != tt.complete {
				t.Errorf("complete = %v, want %v", complete, tt.complete)
			}
			if len(points) == 0 || len(points) > tt.maxLen {
				t.Fatalf("len(points) = %d, want 1..%d", len(points), tt.maxLen)
			}
			if complete && points[len(points)-1] != tt.to {
				t.Errorf("last waypoint = %v, want %v", points[len(points)-1], tt.to)
			}
		})
	}
}

func TestRouteThroughGap(t *testing.T) {
	q := NewQueue(wallMap(), agents.NewRegistry(), entropy.New(3))
	points, _, ok := q.Route(tile.P(40, 40, 0), tile.P(200, 40, 0), 400)
	if !ok {
		t.Fatal("no route")
	}
	for _, p := range points {
		if u, v := p.Tile(); u == 6 && v < 12 {
			t.Errorf("waypoint %v is inside the wall", p)
		}
	}
	passed := false
	for _, p := range points {
		if _, v := p.Tile(); v >= 12 {
			passed = true
		}
	}
	if !passed {
		t.Error("route never went through the gap")
	}
}

func TestRouteRejectsCliffs(t *testing.T) {
	m := world.NewMap(8, 8)
	world.Fill(m, 4, 0, 8, 8, world.Tile{Height: 64})
	q := NewQueue(m, agents.NewRegistry(), entropy.New(3))
	if _, complete, _ := q.Route(tile.P(24, 24, 0), tile.P(104, 24, 64), 400); complete {
		t.Error("route should not climb a cliff")
	}
}

type fixture struct {
	objects *agents.Registry
	list    *motion.List
	queue   *Queue
}

func newFixture(m *world.Map) *fixture {
	reg := agents.NewRegistry()
	m.Bodies = reg
	q := NewQueue(m, reg, entropy.New(5))
	l := motion.NewList(motion.Env{World: m, Objects: reg, Paths: q, Rand: entropy.New(5)})
	return &fixture{objects: reg, list: l, queue: q}
}

func TestQueueDeliversPath(t *testing.T) {
	f := newFixture(wallMap())
	a := agents.NewActor(2, "walker", tile.P(40, 40, 0))
	f.objects.AddActor(a)

	f.list.WalkTo(a, tile.P(200, 40, 0), false, false)
	mt := f.list.For(2)
	if !mt.PathPending() || f.queue.Pending() != 1 {
		t.Fatal("walk should queue a path job")
	}
	f.queue.Process()
	if mt.PathPending() || f.queue.Pending() != 0 {
		t.Fatal("job should be answered")
	}
	if mt.Walk.PathCount <= 0 || mt.Flags&motion.FlagFinalPath == 0 {
		t.Errorf("path count %d, flags %#x", mt.Walk.PathCount, mt.Flags)
	}
	if got := mt.Walk.Path[mt.Walk.PathCount-1]; got != tile.P(200, 40, 0) {
		t.Errorf("path ends at %v", got)
	}
}

func TestQueueAbort(t *testing.T) {
	f := newFixture(wallMap())
	a := agents.NewActor(2, "walker", tile.P(40, 40, 0))
	f.objects.AddActor(a)

	f.list.WalkTo(a, tile.P(200, 40, 0), false, false)
	f.list.Turn(a, tile.Left)
	f.list.WalkToDirect(a, tile.P(60, 40, 0), false, false)
	if f.queue.Pending() != 0 {
		t.Errorf("pending = %d, want the replaced job dropped", f.queue.Pending())
	}
}

func TestQueuePerTick(t *testing.T) {
	f := newFixture(world.NewMap(16, 16))
	for id := agents.ObjectID(2); id < 8; id++ {
		a := agents.NewActor(id, "walker", tile.P(24, 24+int(id)*16, 0))
		f.objects.AddActor(a)
		f.list.WalkTo(a, tile.P(200, 24, 0), false, false)
	}
	f.queue.PerTick = 4
	f.queue.Process()
	if f.queue.Pending() != 2 {
		t.Errorf("pending = %d, want 2", f.queue.Pending())
	}
}

func TestWanderStaysInTether(t *testing.T) {
	f := newFixture(world.NewMap(16, 16))
	a := agents.NewActor(2, "wanderer", tile.P(40, 40, 0))
	f.objects.AddActor(a)
	tether := tile.Region{Min: tile.P(32, 32, 0), Max: tile.P(96, 96, 0)}

	for i := 0; i < 10; i++ {
		f.list.TetheredWander(a, tether, false)
		f.queue.Process()
		mt := f.list.For(2)
		if mt.Walk.PathCount <= 0 {
			t.Fatalf("round %d: no wander path", i)
		}
		if end := mt.Walk.Path[mt.Walk.PathCount-1]; !tether.Contains(end) {
			t.Errorf("round %d: wander goal %v outside tether", i, end)
		}
	}
}
