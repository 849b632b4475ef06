package task

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
)

// Attend keeps the actor turned toward an object until aborted.
type Attend struct {
	node
	obj agents.ObjectID
}

func NewAttend(s *Stack, obj agents.ObjectID) *Attend {
	return register(s, &Attend{obj: obj})
}

func (t *Attend) Kind() Kind       { return KindAttend }
func (t *Attend) Evaluate() Result { return NotDone }

func (t *Attend) Abort() {
	if mt := t.motion(); mt != nil && mt.IsTurn() {
		t.env().Motion.FinishTurn(mt)
	}
}

func (t *Attend) Update() Result {
	loc := t.env().Objects.Location(t.obj)
	if loc.IsNowhere() {
		return NotDone
	}
	a := t.actor()
	if a.Facing != loc.Sub(a.Location).QuickDir() {
		if mt := t.motion(); mt == nil || !mt.IsTurn() {
			t.env().Motion.TurnTowards(a, loc)
		}
	}
	return NotDone
}

func (t *Attend) Equal(o Task) bool {
	ot, ok := o.(*Attend)
	return ok && ot.obj == t.obj
}

// Object returns the attended object.
func (t *Attend) Object() agents.ObjectID { return t.obj }

func (t *Attend) subtasks() []Task { return nil }

func (t *Attend) archive(w *archive.Writer) { w.U16(uint16(t.obj)) }

func (t *Attend) restore(r *archive.Reader) { t.obj = agents.ObjectID(r.U16()) }

func (t *Attend) fixup(*Tasks) {}
