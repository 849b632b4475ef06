package pathfind

import (
	"log/slog"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/tile"
)

// Locator finds where an object is.
type Locator interface {
	Location(id agents.ObjectID) tile.Point
}

// Rand is the random source for wander destinations.
type Rand interface {
	RandomNumber(max int) int
}

// Defaults.
const (
	DefaultPerTick = 4 // Jobs answered per tick
	WanderRadius   = 6 // Tiles an untethered wanderer strays per leg
	wanderTries    = 8
	minIQ          = 16
)

type job struct {
	mt     *motion.Task
	iq     int
	wander bool
}

// Queue holds pending path jobs and answers them in request order. It
// implements motion.Pathfinder.
type Queue struct {
	grid    Grid
	objects Locator
	rand    Rand
	jobs    []job

	PerTick int
}

// NewQueue returns an empty queue over g.
func NewQueue(g Grid, objects Locator, rand Rand) *Queue {
	return &Queue{grid: g, objects: objects, rand: rand, PerTick: DefaultPerTick}
}

// RequestPath queues a route to mt's final target.
func (q *Queue) RequestPath(mt *motion.Task, iq int) {
	q.Abort(mt)
	q.jobs = append(q.jobs, job{mt: mt, iq: iq})
}

// RequestWanderPath queues a route to a random nearby spot, inside the
// tether when mt has one.
func (q *Queue) RequestWanderPath(mt *motion.Task, iq int) {
	q.Abort(mt)
	q.jobs = append(q.jobs, job{mt: mt, iq: iq, wander: true})
}

// Abort drops mt's queued job, if any.
func (q *Queue) Abort(mt *motion.Task) {
	for i, j := range q.jobs {
		if j.mt == mt {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued jobs.
func (q *Queue) Pending() int { return len(q.jobs) }

// Process answers up to PerTick jobs. Each answered record receives
// either SetPath or PathFailed.
func (q *Queue) Process() {
	n := min(q.PerTick, len(q.jobs))
	if n <= 0 {
		return
	}
	batch := make([]job, n)
	copy(batch, q.jobs)
	q.jobs = append(q.jobs[:0], q.jobs[n:]...)

	for _, j := range batch {
		if j.mt.Removed() || !j.mt.PathPending() {
			continue
		}
		q.answer(j)
	}
}

func (q *Queue) answer(j job) {
	from := q.objects.Location(j.mt.Object)
	if from.IsNowhere() {
		j.mt.PathFailed()
		return
	}

	goal := j.mt.FinalTarget()
	if j.wander {
		var ok bool
		if goal, ok = q.wanderGoal(from, j.mt.Tether()); !ok {
			j.mt.PathFailed()
			return
		}
	}

	points, complete, ok := q.Route(from, goal, j.iq)
	if !ok {
		slog.Debug("no path", "object", j.mt.Object, "from", from, "to", goal, "iq", j.iq)
		j.mt.PathFailed()
		return
	}
	j.mt.SetPath(points, complete)
}

// Route plans a path from one point to another and returns its waypoints
// at most motion.MaxPath long. When the goal is out of reach or the
// route is too long, the path leads as close as the search got and
// complete is false; the walker asks again when it runs out.
func (q *Queue) Route(from, to tile.Point, iq int) (points []tile.Point, complete, ok bool) {
	fu, fv := from.Tile()
	tu, tv := to.Tile()
	start, goal := cell{int(fu), int(fv)}, cell{int(tu), int(tv)}
	if start == goal {
		return []tile.Point{to}, true, true
	}

	route, complete := search(q.grid, start, goal, max(iq, minIQ))
	if len(route) == 0 {
		return nil, false, false
	}
	points = waypoints(q.grid, start, route)
	if len(points) > motion.MaxPath {
		points, complete = points[:motion.MaxPath], false
	}
	if complete {
		points[len(points)-1] = to
	}
	return points, complete, true
}

// waypoints turns a cell route into tile-center points, keeping only the
// cells where the route changes direction.
func waypoints(g Grid, start cell, route []cell) []tile.Point {
	var out []tile.Point
	prev := start
	for i, c := range route {
		if i+1 < len(route) {
			next := route[i+1]
			if c.u-prev.u == next.u-c.u && c.v-prev.v == next.v-c.v {
				prev = c
				continue
			}
		}
		out = append(out, g.Center(c.u, c.v))
		prev = c
	}
	return out
}

// wanderGoal picks a standable spot inside tether, or within
// WanderRadius tiles of from when there is no tether.
func (q *Queue) wanderGoal(from tile.Point, tether tile.Region) (tile.Point, bool) {
	area := tether
	if tether.Min.IsNowhere() || tether.Empty() {
		r := int16(WanderRadius * tile.TileUVSize)
		area = tile.Region{
			Min: tile.Point{U: from.U - r, V: from.V - r},
			Max: tile.Point{U: from.U + r, V: from.V + r},
		}
	}
	for range wanderTries {
		p := tile.Point{
			U: area.Min.U + int16(q.rand.RandomNumber(int(area.Max.U-area.Min.U)-1)),
			V: area.Min.V + int16(q.rand.RandomNumber(int(area.Max.V-area.Min.V)-1)),
		}
		u, v := p.Tile()
		if standable(q.grid, cell{int(u), int(v)}) {
			return q.grid.Center(int(u), int(v)), true
		}
	}
	return tile.Point{}, false
}
