// Package pathfind plans walking routes over the tile map. Requests are
// queued by the motion layer and answered a few per tick, each search
// bounded by the requester's IQ.
package pathfind

import (
	"container/heap"

	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// Grid is the map surface the search walks over.
type Grid interface {
	InBounds(u, v int) bool
	At(u, v int) *world.Tile
	Center(u, v int) tile.Point
}

type cell struct{ u, v int }

type neighbor struct {
	du, dv   int
	cost     int
	diagonal bool
}

// Orthogonal steps cost 10, diagonals 14.
var neighbors = [...]neighbor{
	{0, -1, 10, false},
	{1, 0, 10, false},
	{0, 1, 10, false},
	{-1, 0, 10, false},
	{1, -1, 14, true},
	{1, 1, 14, true},
	{-1, 1, 14, true},
	{-1, -1, 14, true},
}

const waterPenalty = 10

func heuristic(a, b cell) int {
	du, dv := tile.Abs(a.u-b.u), tile.Abs(a.v-b.v)
	return 10*max(du, dv) + 4*min(du, dv)
}

// standable reports whether a walker can stand on the tile at c.
func standable(g Grid, c cell) bool {
	t := g.At(c.u, c.v)
	if t == nil {
		return false
	}
	return t.Terrain != world.TerrainWall && t.Terrain != world.TerrainLadder
}

// step reports whether a walker can cross from a to its neighbor b, and
// what it costs. Height changes beyond a step are impassable and diagonals
// may not cut a corner.
func step(g Grid, a cell, n neighbor) (cell, int, bool) {
	b := cell{a.u + n.du, a.v + n.dv}
	if !standable(g, b) {
		return b, 0, false
	}
	if n.diagonal && (!standable(g, cell{a.u + n.du, a.v}) || !standable(g, cell{a.u, a.v + n.dv})) {
		return b, 0, false
	}
	ha, hb := g.Center(a.u, a.v).Z, g.Center(b.u, b.v).Z
	if tile.Abs(hb-ha) > tile.MaxStepHeight {
		return b, 0, false
	}
	cost := n.cost
	if g.At(b.u, b.v).Terrain == world.TerrainWater {
		cost += waterPenalty
	}
	return b, cost, true
}

type node struct {
	at     cell
	g, f   int
	index  int
	parent *node
}

type openSet []*node

func (q openSet) Len() int { return len(q) }

func (q openSet) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	return q[i].g > q[j].g
}

func (q openSet) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openSet) Push(x any) {
	n := x.(*node)
	n.index = len(*q)
	*q = append(*q, n)
}

func (q *openSet) Pop() any {
	old := *q
	n := old[len(old)-1]
	old[len(old)-1] = nil
	n.index = -1
	*q = old[:len(old)-1]
	return n
}

// search runs A* from start toward goal, expanding at most budget nodes.
// When the goal is not reached it returns the route to the expanded node
// closest to the goal and complete is false. The returned cells exclude
// start.
func search(g Grid, start, goal cell, budget int) (route []cell, complete bool) {
	open := &openSet{}
	heap.Push(open, &node{at: start, f: heuristic(start, goal)})
	best := map[cell]int{start: 0}
	closed := make(map[cell]bool)
	var nearest *node

	for expanded := 0; open.Len() > 0 && expanded < budget; {
		cur := heap.Pop(open).(*node)
		if closed[cur.at] {
			continue
		}
		closed[cur.at] = true
		expanded++

		if cur.at == goal {
			return unwind(cur), true
		}
		if nearest == nil || cur.f-cur.g < nearest.f-nearest.g {
			nearest = cur
		}

		for _, n := range neighbors {
			next, cost, ok := step(g, cur.at, n)
			if !ok || closed[next] {
				continue
			}
			gs := cur.g + cost
			if prev, seen := best[next]; seen && gs >= prev {
				continue
			}
			best[next] = gs
			heap.Push(open, &node{at: next, g: gs, f: gs + heuristic(next, goal), parent: cur})
		}
	}
	if nearest == nil || nearest.at == start {
		return nil, false
	}
	return unwind(nearest), false
}

func unwind(end *node) []cell {
	var route []cell
	for n := end; n.parent != nil; n = n.parent {
		route = append(route, n.at)
	}
	for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
		route[i], route[j] = route[j], route[i]
	}
	return route
}
