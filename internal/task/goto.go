package task

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// NoRun is the run threshold of a goto that always walks.
const NoRun uint8 = 255

// gotoCore is the state shared by the goto family: the wander used while
// there is nowhere to head for, and the run state last requested.
type gotoCore struct {
	wander  *Wander
	prevRun bool
}

func (c *gotoCore) core() *gotoCore { return c }

// goer is what the goto helpers need from a variant.
type goer interface {
	Task
	core() *gotoCore
	// destination is where the goto ends.
	destination() tile.Point
	// intermediate is where to head when the destination is out of
	// sight, or Nowhere.
	intermediate() tile.Point
	lineOfSight() bool
	run() bool
}

func gotoEvaluate(g goer) Result {
	if g.base().actor().Location == g.destination() {
		g.Abort()
		return Succeeded
	}
	return NotDone
}

// gotoUpdate heads for the destination, reissuing the walk only when the
// destination tile or the run state has changed.
func gotoUpdate(g goer) Result {
	if r := gotoEvaluate(g); r != NotDone {
		return r
	}
	n, c := g.base(), g.core()
	a, motions := n.actor(), n.env().Motion

	// lineOfSight refreshes the last known point, so it goes first.
	var dest tile.Point
	if g.lineOfSight() {
		dest = g.destination()
	} else {
		dest = g.intermediate()
	}

	if dest.IsNowhere() {
		if c.wander == nil {
			c.wander = NewWander(n.stack)
		}
		c.wander.Update()
		return NotDone
	}
	if c.wander != nil {
		n.drop(c.wander)
		c.wander = nil
	}

	loc := a.Location
	if mt := n.motion(); mt != nil && mt.IsWalkToDest() {
		run := g.run()
		current := mt.FinalTarget()
		if loc.SameTile(dest) {
			if current != dest || run != c.prevRun {
				c.prevRun = run
				motions.ChangeDirectTarget(mt, dest, run)
			}
		} else if !current.SameTile(dest) || tile.Abs(current.Z-dest.Z) > tile.MaxStepHeight || run != c.prevRun {
			c.prevRun = run
			motions.ChangeTarget(mt, dest, run)
		}
		return NotDone
	}

	c.prevRun = g.run()
	if loc.SameTile(dest) {
		motions.WalkToDirect(a, dest, c.prevRun, true)
	} else {
		motions.WalkTo(a, dest, c.prevRun, true)
	}
	return NotDone
}

func gotoAbort(g goer) {
	n, c := g.base(), g.core()
	if c.wander != nil {
		n.drop(c.wander)
		c.wander = nil
		return
	}
	if mt := n.motion(); mt != nil && mt.IsWalk() {
		n.env().Motion.FinishWalk(mt)
	}
}

func (c *gotoCore) subtasks() []Task { return appendSub(nil, c.wander) }

func (c *gotoCore) archiveCore(w *archive.Writer) {
	w.I16(int16(subID(c.wander)))
	w.Bool(c.prevRun)
}

func (c *gotoCore) restoreCore(r *archive.Reader, n *node) {
	n.links[0] = ID(r.I16())
	c.prevRun = r.Bool()
}

func (c *gotoCore) fixupCore(ts *Tasks, n *node) {
	c.wander = resolve[*Wander](ts, n.links[0])
}

// GotoLocation walks to a fixed point, running when farther than the
// run threshold.
type GotoLocation struct {
	node
	gotoCore
	target       tile.Point
	runThreshold uint8
}

// NewGotoLocation returns a goto toward target. Pass NoRun to always walk.
func NewGotoLocation(s *Stack, target tile.Point, runThreshold uint8) *GotoLocation {
	return register(s, &GotoLocation{target: target, runThreshold: runThreshold})
}

func (t *GotoLocation) Kind() Kind       { return KindGotoLocation }
func (t *GotoLocation) Evaluate() Result { return gotoEvaluate(t) }
func (t *GotoLocation) Update() Result   { return gotoUpdate(t) }
func (t *GotoLocation) Abort()           { gotoAbort(t) }

func (t *GotoLocation) Equal(o Task) bool {
	ot, ok := o.(*GotoLocation)
	return ok && ot.target == t.target && ot.runThreshold == t.runThreshold
}

// Target returns the destination.
func (t *GotoLocation) Target() tile.Point { return t.target }

// ChangeTarget moves the destination. The walk follows on the next update.
func (t *GotoLocation) ChangeTarget(p tile.Point) { t.target = p }

func (t *GotoLocation) destination() tile.Point  { return t.target }
func (t *GotoLocation) intermediate() tile.Point { return t.target }
func (t *GotoLocation) lineOfSight() bool        { return true }

func (t *GotoLocation) run() bool {
	if t.runThreshold == NoRun {
		return false
	}
	d := t.target.Sub(t.actor().Location)
	return int(d.QuickHDistance()) > int(t.runThreshold) || int(tile.Abs(d.Z)) > int(t.runThreshold)
}

func (t *GotoLocation) archive(w *archive.Writer) {
	t.archiveCore(w)
	w.Point(t.target)
	w.U8(t.runThreshold)
}

func (t *GotoLocation) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = r.Point()
	t.runThreshold = r.U8()
}

func (t *GotoLocation) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// GotoRegion walks to the nearest point inside a region.
type GotoRegion struct {
	node
	gotoCore
	region tile.Region
}

func NewGotoRegion(s *Stack, region tile.Region) *GotoRegion {
	return register(s, &GotoRegion{region: region})
}

func (t *GotoRegion) Kind() Kind       { return KindGotoRegion }
func (t *GotoRegion) Evaluate() Result { return gotoEvaluate(t) }
func (t *GotoRegion) Update() Result   { return gotoUpdate(t) }
func (t *GotoRegion) Abort()           { gotoAbort(t) }

func (t *GotoRegion) Equal(o Task) bool {
	ot, ok := o.(*GotoRegion)
	return ok && ot.region == t.region
}

// Region returns the destination region.
func (t *GotoRegion) Region() tile.Region { return t.region }

func (t *GotoRegion) destination() tile.Point  { return t.region.Clamp(t.actor().Location) }
func (t *GotoRegion) intermediate() tile.Point { return t.destination() }
func (t *GotoRegion) lineOfSight() bool        { return true }
func (t *GotoRegion) run() bool                { return false }

func (t *GotoRegion) archive(w *archive.Writer) {
	t.archiveCore(w)
	w.Point(t.region.Min)
	w.Point(t.region.Max)
}

func (t *GotoRegion) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.region = tile.Region{Min: r.Point(), Max: r.Point()}
}

func (t *GotoRegion) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// Sight flags of an object-following goto.
const (
	sightTrack   uint8 = 1 << iota // Always knows where the target is
	sightInSight                   // Target was sensed at the last test
)

// retestRange is how far a sighted target may move before line of sight
// is tested again.
const retestRange = 25

// objectSight tracks whether a followed object can be sensed and where it
// was last seen.
type objectSight struct {
	lastTested tile.Point
	lastKnown  tile.Point
	sightCtr   int16
	flags      uint8
}

func newObjectSight(track bool) objectSight {
	s := objectSight{lastTested: tile.Nowhere, lastKnown: tile.Nowhere}
	if track {
		s.flags = sightTrack
	}
	return s
}

func (s *objectSight) tracking() bool { return s.flags&sightTrack != 0 }
func (s *objectSight) inSight() bool  { return s.flags&sightInSight != 0 }

// update refreshes the sight state of target as seen by n's actor and
// reports whether it is in sight.
func (s *objectSight) update(n *node, target *agents.Object) bool {
	if target == nil {
		s.flags &^= sightInSight
		return false
	}
	a, env := n.actor(), n.env()
	loc := target.Location

	if s.tracking() {
		s.flags |= sightInSight
		s.lastKnown = loc
		return true
	}

	test := func() {
		if env.canSense(a, target) {
			s.flags |= sightInSight
		} else {
			s.flags &^= sightInSight
		}
		s.lastTested = loc
	}
	if s.inSight() {
		d := loc.Sub(s.lastTested)
		if s.lastTested.IsNowhere() || d.QuickHDistance() > retestRange || tile.Abs(d.Z) > retestRange {
			test()
		}
	} else {
		if s.sightCtr == 0 {
			s.sightCtr = SightRate
			test()
		}
		s.sightCtr--
	}

	if s.inSight() {
		s.lastKnown = loc
	} else if !s.lastKnown.IsNowhere() && s.lastKnown.Sub(a.Location).QuickHDistance() <= 4 {
		s.lastKnown = tile.Nowhere
	}
	return s.inSight()
}

func (s *objectSight) archive(w *archive.Writer) {
	w.Point(s.lastTested)
	w.I16(s.sightCtr)
	w.U8(s.flags)
	w.Point(s.lastKnown)
}

func (s *objectSight) restore(r *archive.Reader) {
	s.lastTested = r.Point()
	s.sightCtr = r.I16()
	s.flags = r.U8()
	s.lastKnown = r.Point()
}

// GotoObject walks to an object, heading for where it was last seen
// while it is out of sight.
type GotoObject struct {
	node
	gotoCore
	objectSight
	target agents.ObjectID
}

func NewGotoObject(s *Stack, target agents.ObjectID, track bool) *GotoObject {
	return register(s, &GotoObject{objectSight: newObjectSight(track), target: target})
}

func (t *GotoObject) Kind() Kind { return KindGotoObject }

func (t *GotoObject) Evaluate() Result {
	if t.object() == nil {
		t.Abort()
		return Failed
	}
	return gotoEvaluate(t)
}

func (t *GotoObject) Update() Result {
	if t.object() == nil {
		t.Abort()
		return Failed
	}
	return gotoUpdate(t)
}

func (t *GotoObject) Abort() { gotoAbort(t) }

func (t *GotoObject) Equal(o Task) bool {
	ot, ok := o.(*GotoObject)
	return ok && ot.tracking() == t.tracking() && ot.target == t.target
}

// Target returns the followed object.
func (t *GotoObject) Target() agents.ObjectID { return t.target }

func (t *GotoObject) object() *agents.Object { return t.env().Objects.Lookup(t.target) }

func (t *GotoObject) destination() tile.Point  { return t.env().Objects.Location(t.target) }
func (t *GotoObject) intermediate() tile.Point { return t.lastKnown }
func (t *GotoObject) lineOfSight() bool        { return t.objectSight.update(&t.node, t.object()) }
func (t *GotoObject) run() bool                { return false }

func (t *GotoObject) archive(w *archive.Writer) {
	t.archiveCore(w)
	t.objectSight.archive(w)
	w.U16(uint16(t.target))
}

func (t *GotoObject) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.objectSight.restore(r)
	t.target = agents.ObjectID(r.U16())
}

func (t *GotoObject) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }

// GotoActor walks to an actor, running when it is far off or out of
// sight.
type GotoActor struct {
	node
	gotoCore
	objectSight
	target agents.ObjectID
}

func NewGotoActor(s *Stack, target agents.ObjectID, track bool) *GotoActor {
	return register(s, &GotoActor{objectSight: newObjectSight(track), target: target})
}

func (t *GotoActor) Kind() Kind { return KindGotoActor }

func (t *GotoActor) Evaluate() Result {
	if t.targetActor() == nil {
		t.Abort()
		return Failed
	}
	return gotoEvaluate(t)
}

func (t *GotoActor) Update() Result {
	if t.targetActor() == nil {
		t.Abort()
		return Failed
	}
	return gotoUpdate(t)
}

func (t *GotoActor) Abort() { gotoAbort(t) }

func (t *GotoActor) Equal(o Task) bool {
	ot, ok := o.(*GotoActor)
	return ok && ot.tracking() == t.tracking() && ot.target == t.target
}

// Target returns the followed actor.
func (t *GotoActor) Target() agents.ObjectID { return t.target }

func (t *GotoActor) targetActor() *agents.Actor { return t.env().Objects.Actor(t.target) }

func (t *GotoActor) destination() tile.Point  { return t.env().Objects.Location(t.target) }
func (t *GotoActor) intermediate() tile.Point { return t.lastKnown }

func (t *GotoActor) lineOfSight() bool {
	if ta := t.targetActor(); ta != nil {
		return t.objectSight.update(&t.node, &ta.Object)
	}
	return t.objectSight.update(&t.node, nil)
}

func (t *GotoActor) run() bool {
	if t.inSight() {
		return t.destination().Sub(t.actor().Location).QuickHDistance() >= tile.TileUVSize*4
	}
	return !t.lastKnown.IsNowhere()
}

func (t *GotoActor) archive(w *archive.Writer) {
	t.archiveCore(w)
	t.objectSight.archive(w)
	w.U16(uint16(t.target))
}

func (t *GotoActor) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.objectSight.restore(r)
	t.target = agents.ObjectID(r.U16())
}

func (t *GotoActor) fixup(ts *Tasks) { t.fixupCore(ts, &t.node) }
