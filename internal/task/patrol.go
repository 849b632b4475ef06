package task

import (
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// PatrolFlags change how a patrol iterator walks its route.
type PatrolFlags uint8

const (
	PatrolReverse   PatrolFlags = 1 << iota // Walk the route from its last waypoint
	PatrolAlternate                         // Turn back at each end
	PatrolRepeat                            // Start over after the last waypoint
)

// PatrolIterator walks the waypoints of one route in Env.Routes.
type PatrolIterator struct {
	Route int16       `json:"route"`
	Index int16       `json:"index"`
	Flags PatrolFlags `json:"flags"`
}

// NewPatrolIterator starts at the first waypoint of route in the
// direction given by flags.
func NewPatrolIterator(routes [][]tile.Point, route int16, flags PatrolFlags) PatrolIterator {
	it := PatrolIterator{Route: route, Flags: flags}
	if flags&PatrolReverse != 0 {
		it.Index = int16(len(it.points(routes)) - 1)
	}
	return it
}

func (it PatrolIterator) points(routes [][]tile.Point) []tile.Point {
	if it.Route < 0 || int(it.Route) >= len(routes) {
		return nil
	}
	return routes[it.Route]
}

// Current returns the waypoint the iterator is on, or Nowhere once the
// route is finished.
func (it PatrolIterator) Current(routes [][]tile.Point) tile.Point {
	pts := it.points(routes)
	if it.Index < 0 || int(it.Index) >= len(pts) {
		return tile.Nowhere
	}
	return pts[it.Index]
}

// Next moves to the following waypoint.
func (it *PatrolIterator) Next(routes [][]tile.Point) {
	n := int16(len(it.points(routes)))
	if it.Index < 0 || it.Index >= n {
		return
	}
	step := int16(1)
	if it.Flags&PatrolReverse != 0 {
		step = -1
	}
	it.Index += step
	if it.Index >= 0 && it.Index < n {
		return
	}

	switch {
	case it.Flags&PatrolAlternate != 0 && n > 1:
		it.Flags ^= PatrolReverse
		it.Index -= 2 * step
	case it.Flags&PatrolRepeat != 0:
		if step > 0 {
			it.Index = 0
		} else {
			it.Index = n - 1
		}
	default:
		it.Index = n
	}
}

func (it PatrolIterator) archive(w *archive.Writer) {
	w.I16(it.Route)
	w.I16(it.Index)
	w.U8(uint8(it.Flags))
}

func readPatrolIterator(r *archive.Reader) PatrolIterator {
	return PatrolIterator{Route: r.I16(), Index: r.I16(), Flags: PatrolFlags(r.U8())}
}

// NoLastWayPoint follows a patrol route to its end.
const NoLastWayPoint int16 = -1

// FollowPatrolRoute walks a patrol route waypoint by waypoint, sometimes
// stopping for a while on arrival. It succeeds at the end of the route or
// on reaching the last waypoint it was given.
type FollowPatrolRoute struct {
	node
	gotoWayPoint *GotoLocation
	iter         PatrolIterator
	last         int16
	paused       bool
	counter      int16
}

func NewFollowPatrolRoute(s *Stack, iter PatrolIterator, last int16) *FollowPatrolRoute {
	return register(s, &FollowPatrolRoute{iter: iter, last: last})
}

func (t *FollowPatrolRoute) Kind() Kind { return KindFollowPatrolRoute }

func (t *FollowPatrolRoute) Abort() {
	if t.gotoWayPoint != nil {
		t.drop(t.gotoWayPoint)
		t.gotoWayPoint = nil
	}
}

func (t *FollowPatrolRoute) Evaluate() Result {
	if t.iter.Current(t.env().Routes).IsNowhere() {
		return Succeeded
	}
	return NotDone
}

func (t *FollowPatrolRoute) Update() Result {
	if t.paused {
		return t.handlePaused()
	}
	return t.handleFollow()
}

func (t *FollowPatrolRoute) Equal(o Task) bool {
	ot, ok := o.(*FollowPatrolRoute)
	return ok && ot.iter == t.iter && ot.last == t.last
}

// Iterator returns the route position.
func (t *FollowPatrolRoute) Iterator() PatrolIterator { return t.iter }

func (t *FollowPatrolRoute) handleFollow() Result {
	routes := t.env().Routes
	wp := t.iter.Current(routes)
	if wp.IsNowhere() {
		return Succeeded
	}

	loc := t.actor().Location
	if loc.SameTile(wp) && tile.Abs(loc.Z-wp.Z) <= tile.MaxStepHeight {
		t.Abort()
		if t.last != NoLastWayPoint && t.iter.Index == t.last {
			return Succeeded
		}
		t.iter.Next(routes)
		if wp = t.iter.Current(routes); wp.IsNowhere() {
			return Succeeded
		}
		if t.rand(3) == 0 {
			t.paused = true
			t.counter = int16((t.rand(63) + t.rand(63)) / 2)
			return NotDone
		}
	}

	if t.gotoWayPoint == nil {
		t.gotoWayPoint = NewGotoLocation(t.stack, wp, NoRun)
	}
	t.gotoWayPoint.Update()
	return NotDone
}

func (t *FollowPatrolRoute) handlePaused() Result {
	r := t.Evaluate()
	if r != NotDone {
		return r
	}
	if t.counter == 0 {
		t.paused = false
	} else {
		t.counter--
	}
	return NotDone
}

func (t *FollowPatrolRoute) subtasks() []Task { return appendSub(nil, t.gotoWayPoint) }

func (t *FollowPatrolRoute) archive(w *archive.Writer) {
	w.I16(int16(subID(t.gotoWayPoint)))
	t.iter.archive(w)
	w.I16(t.last)
	w.Bool(t.paused)
	w.I16(t.counter)
}

func (t *FollowPatrolRoute) restore(r *archive.Reader) {
	t.links[0] = ID(r.I16())
	t.iter = readPatrolIterator(r)
	t.last = r.I16()
	t.paused = r.Bool()
	t.counter = r.I16()
}

func (t *FollowPatrolRoute) fixup(ts *Tasks) {
	t.gotoWayPoint = resolve[*GotoLocation](ts, t.links[0])
}
