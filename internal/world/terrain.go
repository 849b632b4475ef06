// Package world provides the square tile map and the geometry queries the
// motion layer relies on: blockage, contact, walkability, slope height,
// ladders, roofs and line of sight.
package world

import "github.com/talgya/actorcore/internal/tile"

// Terrain types for map tiles.
type Terrain uint8

const (
	TerrainGround Terrain = iota // Walkable floor
	TerrainWater                 // Floor below the water line
	TerrainWall                  // Tall solid tile
	TerrainStairs                // Floor ramping up toward StairDir
	TerrainLadder                // Wall with a climbable face
)

// Water surface height. Anything standing below it is wading or swimming.
const (
	WaterLevel  = 0
	WaterBottom = -16
	WallHeight  = 1024
)

// Tile is one cell of the map.
type Tile struct {
	Terrain  Terrain        `json:"terrain"`
	Height   int16          `json:"height"`              // Floor height at the low edge
	StairDir tile.Direction `json:"stair_dir,omitempty"` // Direction the stairs ascend
	Face     tile.Direction `json:"face,omitempty"`      // Side a ladder is climbed from
	Base     int16          `json:"base,omitempty"`      // Ladder bottom
	Top      int16          `json:"top,omitempty"`       // Ladder top
	Roof     uint16         `json:"roof,omitempty"`      // Roof/building id, 0 when open sky
	Item     int16          `json:"item,omitempty"`      // Active item id + 1, 0 when none
}

// Body is the collision shape of an object.
type Body struct {
	ID       uint16
	Location tile.Point
	Height   int16
	Cross    int16
}

// BodySource lists the bodies that can block movement.
type BodySource interface {
	Bodies() []Body
}

// Blockage says what a probe ran into.
type Blockage uint8

const (
	BlockNone    Blockage = iota // Free space
	BlockTerrain                 // Floor, wall or map edge
	BlockObject                  // Another body
)

// Standing describes the surface under a point.
type Standing struct {
	Height   int16
	Terrain  Terrain
	StairDir tile.Direction
}

// Water reports whether the surface is under water.
func (s Standing) Water() bool { return s.Terrain == TerrainWater }

// Stairs reports whether the surface is a staircase.
func (s Standing) Stairs() bool { return s.Terrain == TerrainStairs }

// Ladder is a climbable tile face found in an object's footprint.
type Ladder struct {
	U, V int16 // Tile coordinates
	Base int16
	Top  int16
	Face tile.Direction
}

// ActiveItem is a scripted region an actor can use or drop things on.
type ActiveItem struct {
	ID     int16       `json:"id"`
	Name   string      `json:"name"`
	Region tile.Region `json:"region"` // In world units
	Z      int16       `json:"z"`
	Uses   int         `json:"uses"`
}

// TerrainName returns a human-readable name for a terrain type.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainGround:
		return "Ground"
	case TerrainWater:
		return "Water"
	case TerrainWall:
		return "Wall"
	case TerrainStairs:
		return "Stairs"
	case TerrainLadder:
		return "Ladder"
	default:
		return "Unknown"
	}
}
