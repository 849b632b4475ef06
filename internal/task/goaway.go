package task

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// fleeStride is how far ahead a fleeing actor aims each update.
const fleeStride = 64

// fleeDirs are the flee offsets used when there is nothing to flee from,
// indexed by facing.
var fleeDirs = [8]tile.Point{
	{U: 64, V: 64},
	{U: 0, V: 64},
	{U: -64, V: 64},
	{U: -64, V: 0},
	{U: -64, V: -64},
	{U: 0, V: -64},
	{U: 64, V: -64},
	{U: 64, V: 0},
}

// goAwayCore drives a goto toward a point one stride along the
// repulsion vector. Going away is never done.
type goAwayCore struct {
	goTask *GotoLocation
	run    bool
}

func goAwayUpdate(n *node, c *goAwayCore, repulsion tile.Point) Result {
	a := n.actor()
	loc := a.Location
	var dest tile.Point
	if dist := int32(repulsion.QuickHDistance()); dist != 0 {
		dest = tile.Point{
			U: loc.U + int16(int32(repulsion.U)*fleeStride/dist),
			V: loc.V + int16(int32(repulsion.V)*fleeStride/dist),
			Z: loc.Z,
		}
	} else {
		dest = loc.Add(fleeDirs[a.Facing&7])
	}

	if c.goTask == nil {
		threshold := NoRun
		if c.run {
			threshold = 0
		}
		c.goTask = NewGotoLocation(n.stack, dest, threshold)
	} else if c.goTask.Target() != dest {
		c.goTask.ChangeTarget(dest)
	}
	c.goTask.Update()
	return NotDone
}

func (c *goAwayCore) abort(n *node) {
	if c.goTask != nil {
		n.drop(c.goTask)
		c.goTask = nil
	}
}

func (c *goAwayCore) subtasks() []Task { return appendSub(nil, c.goTask) }

func (c *goAwayCore) archiveCore(w *archive.Writer) {
	w.I16(int16(subID(c.goTask)))
	w.Bool(c.run)
}

func (c *goAwayCore) restoreCore(r *archive.Reader, n *node) {
	n.links[0] = ID(r.I16())
	c.run = r.Bool()
}

// GoAwayFromObject flees a single object.
type GoAwayFromObject struct {
	node
	goAwayCore
	obj agents.ObjectID
}

func NewGoAwayFromObject(s *Stack, obj agents.ObjectID, run bool) *GoAwayFromObject {
	return register(s, &GoAwayFromObject{goAwayCore: goAwayCore{run: run}, obj: obj})
}

func (t *GoAwayFromObject) Kind() Kind       { return KindGoAwayFromObject }
func (t *GoAwayFromObject) Evaluate() Result { return NotDone }
func (t *GoAwayFromObject) Abort()           { t.abort(&t.node) }

func (t *GoAwayFromObject) Update() Result {
	var v tile.Point
	if loc := t.env().Objects.Location(t.obj); !loc.IsNowhere() {
		v = t.actor().Location.Sub(loc)
	}
	return goAwayUpdate(&t.node, &t.goAwayCore, v)
}

func (t *GoAwayFromObject) Equal(o Task) bool {
	ot, ok := o.(*GoAwayFromObject)
	return ok && ot.obj == t.obj
}

func (t *GoAwayFromObject) archive(w *archive.Writer) {
	t.archiveCore(w)
	w.U16(uint16(t.obj))
}

func (t *GoAwayFromObject) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.obj = agents.ObjectID(r.U16())
}

func (t *GoAwayFromObject) fixup(ts *Tasks) {
	t.goTask = resolve[*GotoLocation](ts, t.links[0])
}

// GoAwayFromActor flees the nearest actors matching a target.
type GoAwayFromActor struct {
	node
	goAwayCore
	target ActorTarget
}

func NewGoAwayFromActor(s *Stack, target ActorTarget, run bool) *GoAwayFromActor {
	return register(s, &GoAwayFromActor{goAwayCore: goAwayCore{run: run}, target: target})
}

func (t *GoAwayFromActor) Kind() Kind       { return KindGoAwayFromActor }
func (t *GoAwayFromActor) Evaluate() Result { return NotDone }
func (t *GoAwayFromActor) Abort()           { t.abort(&t.node) }

func (t *GoAwayFromActor) Update() Result {
	return goAwayUpdate(&t.node, &t.goAwayCore, t.repulsion())
}

func (t *GoAwayFromActor) Equal(o Task) bool {
	ot, ok := o.(*GoAwayFromActor)
	return ok && ot.target == t.target
}

// repulsion weighs the nearest matching actors equally. When they cancel
// out it flees straight away from the nearest one.
func (t *GoAwayFromActor) repulsion() tile.Point {
	a := t.actor()
	found := t.target.actors(t.env().Objects, a)
	if len(found) == 0 {
		return tile.Point{}
	}
	reps := make([]Repulsor, 0, maxRepulsors)
	for _, s := range found[:min(len(found), maxRepulsors)] {
		reps = append(reps, Repulsor{Vector: s.actor.Location.Sub(a.Location), Strength: 1})
	}
	if v := ComputeRepulsionVector(reps); v.QuickHDistance() > 0 {
		return v
	}
	return reps[0].Vector.Neg()
}

func (t *GoAwayFromActor) archive(w *archive.Writer) {
	t.archiveCore(w)
	writeActorTarget(w, t.target)
}

func (t *GoAwayFromActor) restore(r *archive.Reader) {
	t.restoreCore(r, &t.node)
	t.target = readActorTarget(r)
}

func (t *GoAwayFromActor) fixup(ts *Tasks) {
	t.goTask = resolve[*GotoLocation](ts, t.links[0])
}
