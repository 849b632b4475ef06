package task

import (
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// Wander alternates random spells of wandering with random pauses. It is
// never done.
type Wander struct {
	node
	paused  bool
	counter int16
}

// NewWander returns a wander that starts paused.
func NewWander(s *Stack) *Wander {
	t := register(s, &Wander{})
	t.pause(t.Abort)
	return t
}

func (t *Wander) Kind() Kind { return KindWander }

func (t *Wander) Abort() {
	if mt := t.motion(); mt != nil && mt.IsWander() {
		t.env().Motion.FinishWalk(mt)
	}
}

func (t *Wander) Evaluate() Result { return NotDone }

func (t *Wander) Update() Result { return t.step(t.Abort, t.handleWander) }

func (t *Wander) Equal(o Task) bool { return o.Kind() == KindWander }

// step counts down the current spell and switches between pausing and
// wandering when it runs out.
func (t *Wander) step(abort func(), handle func() Result) Result {
	if t.counter == 0 {
		if !t.paused {
			t.pause(abort)
		} else {
			t.resume()
		}
	} else {
		t.counter--
	}
	if t.paused {
		return NotDone
	}
	return handle()
}

func (t *Wander) handleWander() Result {
	if mt := t.motion(); mt == nil || !mt.IsWander() {
		t.env().Motion.Wander(t.actor(), false)
	}
	return NotDone
}

func (t *Wander) pause(abort func()) {
	abort()
	t.paused = true
	t.counter = int16((t.rand(63) + t.rand(63)) / 2)
}

func (t *Wander) resume() {
	t.paused = false
	t.counter = int16((t.rand(255) + t.rand(255)) / 2)
}

func (t *Wander) subtasks() []Task { return nil }

func (t *Wander) archive(w *archive.Writer) {
	w.Bool(t.paused)
	w.I16(t.counter)
}

func (t *Wander) restore(r *archive.Reader) {
	t.paused = r.Bool()
	t.counter = r.I16()
}

func (t *Wander) fixup(*Tasks) {}

// TetheredWander wanders inside a region, first walking back into it
// when the actor has strayed outside.
type TetheredWander struct {
	Wander
	tether     tile.Region
	gotoTether *GotoRegion
}

// NewTetheredWander returns a tethered wander that starts paused.
func NewTetheredWander(s *Stack, tether tile.Region) *TetheredWander {
	t := register(s, &TetheredWander{tether: tether})
	t.pause(t.Abort)
	return t
}

func (t *TetheredWander) Kind() Kind { return KindTetheredWander }

// Tether returns the region the actor is confined to.
func (t *TetheredWander) Tether() tile.Region { return t.tether }

func (t *TetheredWander) Abort() {
	if t.gotoTether != nil {
		t.drop(t.gotoTether)
		t.gotoTether = nil
		return
	}
	if mt := t.motion(); mt != nil && mt.IsTethered() {
		t.env().Motion.FinishWalk(mt)
	}
}

func (t *TetheredWander) Update() Result { return t.step(t.Abort, t.handleWander) }

func (t *TetheredWander) Equal(o Task) bool {
	ot, ok := o.(*TetheredWander)
	return ok && ot.tether == t.tether
}

func (t *TetheredWander) handleWander() Result {
	a := t.actor()
	if !t.tether.Contains(a.Location) {
		if t.gotoTether == nil {
			t.gotoTether = NewGotoRegion(t.stack, t.tether)
		}
		t.gotoTether.Update()
		return NotDone
	}
	if t.gotoTether != nil {
		t.drop(t.gotoTether)
		t.gotoTether = nil
	}
	if mt := t.motion(); mt == nil || !mt.IsTethered() || mt.Tether() != t.tether {
		t.env().Motion.TetheredWander(a, t.tether, false)
	}
	return NotDone
}

func (t *TetheredWander) subtasks() []Task { return appendSub(nil, t.gotoTether) }

func (t *TetheredWander) archive(w *archive.Writer) {
	t.Wander.archive(w)
	w.Point(t.tether.Min)
	w.Point(t.tether.Max)
	w.I16(int16(subID(t.gotoTether)))
}

func (t *TetheredWander) restore(r *archive.Reader) {
	t.Wander.restore(r)
	t.tether = tile.Region{Min: r.Point(), Max: r.Point()}
	t.links[0] = ID(r.I16())
}

func (t *TetheredWander) fixup(ts *Tasks) {
	t.gotoTether = resolve[*GotoRegion](ts, t.links[0])
}
