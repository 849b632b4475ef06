package world

import (
	"fmt"

	"github.com/talgya/actorcore/internal/tile"
)

// Map holds the complete tile grid.
type Map struct {
	Cols  int    `json:"cols"`
	Rows  int    `json:"rows"`
	Tiles []Tile `json:"-"`

	Items  []ActiveItem `json:"items"`
	Bodies BodySource   `json:"-"`
}

// NewMap creates a flat ground map of cols x rows tiles.
func NewMap(cols, rows int) *Map {
	return &Map{
		Cols:  cols,
		Rows:  rows,
		Tiles: make([]Tile, cols*rows),
	}
}

// InBounds returns true if tile coordinate (u, v) lies on the map.
func (m *Map) InBounds(u, v int) bool {
	return u >= 0 && v >= 0 && u < m.Cols && v < m.Rows
}

// At returns the tile at tile coordinate (u, v), or nil if out of bounds.
func (m *Map) At(u, v int) *Tile {
	if !m.InBounds(u, v) {
		return nil
	}
	return &m.Tiles[v*m.Cols+u]
}

// TileAt returns the tile containing world point p.
func (m *Map) TileAt(p tile.Point) *Tile {
	u, v := p.Tile()
	return m.At(int(u), int(v))
}

// Extent returns the map bounds in world units.
func (m *Map) Extent() tile.Region {
	return tile.Region{
		Max: tile.P(m.Cols*tile.TileUVSize, m.Rows*tile.TileUVSize, 0),
	}
}

// Center returns the world point at the middle of tile (u, v) on its floor.
func (m *Map) Center(u, v int) tile.Point {
	p := tile.P(u*tile.TileUVSize+tile.TileUVSize/2, v*tile.TileUVSize+tile.TileUVSize/2, 0)
	if t := m.At(u, v); t != nil {
		p.Z = m.surface(t, p)
	}
	return p
}

// AddItem registers an active item and marks the tiles it covers.
func (m *Map) AddItem(name string, reg tile.Region) ActiveItem {
	it := ActiveItem{ID: int16(len(m.Items)), Name: name, Region: reg}
	if t := m.TileAt(reg.Min); t != nil {
		it.Z = t.Height
	}
	m.Items = append(m.Items, it)
	for v := reg.Min.V >> tile.TileUVShift; v < (reg.Max.V+tile.TileUVSize-1)>>tile.TileUVShift; v++ {
		for u := reg.Min.U >> tile.TileUVShift; u < (reg.Max.U+tile.TileUVSize-1)>>tile.TileUVShift; u++ {
			if t := m.At(int(u), int(v)); t != nil {
				t.Item = it.ID + 1
			}
		}
	}
	return it
}

// ActiveItem returns the active item with the given id.
func (m *Map) ActiveItem(id int16) (*ActiveItem, bool) {
	if id < 0 || int(id) >= len(m.Items) {
		return nil, false
	}
	return &m.Items[id], true
}

// TerrainCounts returns a summary of terrain type distribution.
func (m *Map) TerrainCounts() map[Terrain]int {
	counts := make(map[Terrain]int)
	for i := range m.Tiles {
		counts[m.Tiles[i].Terrain]++
	}
	return counts
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, items=%d)", m.Cols, m.Rows, len(m.Items))
}
