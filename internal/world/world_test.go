package world

import (
	"testing"

	"github.com/talgya/actorcore/internal/tile"
)

type bodyList []Body

func (b bodyList) Bodies() []Body { return b }

var walker = Body{ID: 10, Height: 40, Cross: 4}

func TestBlockedAndContact(t *testing.T) {
	m := NewMap(8, 8)
	Fill(m, 3, 2, 4, 3, Tile{Terrain: TerrainWall, Height: WallHeight})
	m.Bodies = bodyList{{ID: 11, Location: tile.P(100, 100, 0), Height: 40, Cross: 4}}

	tests := []struct {
		name    string
		at      tile.Point
		blocked Blockage
		contact Blockage
	}{
		{"open floor", tile.P(40, 40, 0), BlockNone, BlockTerrain},
		{"hovering", tile.P(40, 40, 1), BlockNone, BlockNone},
		{"sunk into floor", tile.P(40, 40, -1), BlockTerrain, BlockTerrain},
		{"inside wall", tile.P(56, 40, 0), BlockTerrain, BlockTerrain},
		{"off the map", tile.P(-5, 40, 0), BlockTerrain, BlockTerrain},
		{"overlapping body", tile.P(104, 100, 2), BlockObject, BlockObject},
		{"beside body", tile.P(120, 100, 2), BlockNone, BlockNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Blocked(walker, tt.at); got != tt.blocked {
				t.Errorf("Blocked = %d, want %d", got, tt.blocked)
			}
			if got, _ := m.Contact(walker, tt.at); got != tt.contact {
				t.Errorf("Contact = %d, want %d", got, tt.contact)
			}
		})
	}
}

func TestContactReportsBody(t *testing.T) {
	m := NewMap(8, 8)
	m.Bodies = bodyList{walker, {ID: 11, Location: tile.P(40, 40, 0), Height: 40, Cross: 4}}
	kind, id := m.Contact(walker, tile.P(44, 40, 20))
	if kind != BlockObject || id != 11 {
		t.Fatalf("Contact = %d/%d, want object 11", kind, id)
	}
}

func TestWalkable(t *testing.T) {
	m := NewMap(8, 8)
	m.At(5, 5).Height = -40
	if !m.Walkable(walker, tile.P(40, 40, 0)) {
		t.Error("flat floor should be walkable")
	}
	if m.Walkable(walker, m.Center(5, 5).Add(tile.P(0, 0, 40))) {
		t.Error("edge of a deep pit should not be walkable")
	}
}

func TestStairsSlope(t *testing.T) {
	m := NewMap(8, 8)
	PlaceStairs(m, 2, 2, tile.UpRight, 0)
	tests := []struct {
		at   tile.Point
		want int16
	}{
		{tile.P(32, 40, 0), 0},
		{tile.P(42, 40, 0), 10},
		{tile.P(47, 40, 0), 15},
	}
	for _, tt := range tests {
		s := m.SlopeHeight(tt.at)
		if !s.Stairs() || s.Height != tt.want {
			t.Errorf("SlopeHeight(%v) = %+v, want stairs at %d", tt.at, s, tt.want)
		}
	}
}

func TestLadderFootprint(t *testing.T) {
	m := NewMap(8, 8)
	PlaceLadder(m, 4, 4, tile.UpRight, 0, 48)
	l, ok := m.Ladder(walker, tile.P(82, 72, 0))
	if !ok {
		t.Fatal("expected to find the ladder")
	}
	if l.U != 4 || l.V != 4 || l.Top != 48 || l.Face != tile.UpRight {
		t.Errorf("Ladder = %+v", l)
	}
	if _, ok := m.Ladder(walker, tile.P(24, 24, 0)); ok {
		t.Error("no ladder expected near the origin")
	}
}

func TestLineOfSight(t *testing.T) {
	m := NewMap(8, 8)
	eye, target := tile.P(8, 8, 10), tile.P(120, 8, 10)
	if !m.LineOfSight(eye, target) {
		t.Fatal("flat map should have a clear line")
	}
	Fill(m, 3, 0, 4, 1, Tile{Terrain: TerrainWall, Height: WallHeight})
	if m.LineOfSight(eye, target) {
		t.Fatal("wall should block the line")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(SmallTestConfig())
	b := Generate(SmallTestConfig())
	for i := range a.Tiles {
		if a.Tiles[i] != b.Tiles[i] {
			t.Fatalf("tile %d differs between runs", i)
		}
	}
	for u := 0; u < a.Cols; u++ {
		if a.At(u, 0).Terrain != TerrainWall || a.At(u, a.Rows-1).Terrain != TerrainWall {
			t.Fatalf("border column %d is not walled", u)
		}
	}
}

func TestPlaceSpawns(t *testing.T) {
	m := NewMap(16, 16)
	spawns := PlaceSpawns(m, 1, 4, 3)
	if len(spawns) != 4 {
		t.Fatalf("got %d spawns, want 4", len(spawns))
	}
	for i, a := range spawns {
		for _, b := range spawns[i+1:] {
			au, av := a.Location.Tile()
			bu, bv := b.Location.Tile()
			if abs(int(au-bu)) < 3 && abs(int(av-bv)) < 3 {
				t.Errorf("spawns %v and %v are too close", a.Location, b.Location)
			}
		}
	}
}
