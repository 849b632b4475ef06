package motion

import (
	"fmt"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// Archive writes every live record to w in list order. Cross-references
// are stored as object IDs. Path jobs in flight are not saved; a restored
// walk asks for a new path when it next needs one.
func (l *List) Archive(w *archive.Writer) {
	w.U16(uint16(len(l.tasks)))
	for _, mt := range l.tasks {
		mt.archive(w)
	}
}

// Restore replaces the list's records with those in r. Every referenced
// object must already be registered; a record for an unknown object
// means the save was loaded out of order and is fatal.
func (l *List) Restore(r *archive.Reader) error {
	l.Clear()
	n := int(r.U16())
	for i := 0; i < n && r.Err() == nil; i++ {
		mt := restoreTask(r)
		if r.Err() != nil {
			break
		}
		o := l.Objects.Lookup(mt.Object)
		if o == nil {
			panic(fmt.Errorf("motion record for object %d: %w", mt.Object, agents.ErrUnregistered))
		}
		o.Flags |= agents.FlagMoving
		l.add(mt)
	}
	if err := r.Err(); err != nil {
		return fmt.Errorf("restore motion list: %w", err)
	}
	return nil
}

func (mt *Task) isUse() bool {
	return mt.Type >= TypeUseObject && mt.Type <= TypeDropObjectOnTAI
}

func (mt *Task) archive(w *archive.Writer) {
	w.U8(uint8(mt.Type))
	w.U8(uint8(mt.PrevType))
	w.I16(int16(mt.Thread))
	w.U16(uint16(mt.Flags))
	w.U16(uint16(mt.Object))

	if mt.Type == TypeWalk || mt.PrevType == TypeWalk {
		wk := &mt.Walk
		w.Point(wk.Immediate)
		w.Point(wk.Final)
		if mt.has(FlagTethered) {
			w.Point(wk.Tether.Min)
			w.Point(wk.Tether.Max)
		}
		w.U8(uint8(mt.Direction))
		w.I16(wk.PathIndex)
		w.I16(wk.PathCount)
		w.I16(wk.RunCount)
		if mt.has(FlagAgitated) {
			w.I16(mt.ActionCounter)
		}
		for i := int16(0); i < wk.PathCount; i++ {
			w.Point(wk.Path[i])
		}
	}

	switch {
	case mt.Type == TypeThrown || mt.Type == TypeShot:
		b := &mt.Ballistic
		w.Point(mt.Velocity)
		w.I16(b.Steps)
		w.I16(b.UFrac)
		w.I16(b.VFrac)
		w.I16(b.UErr)
		w.I16(b.VErr)
		if mt.Type == TypeShot {
			w.U16(uint16(mt.Target))
			w.U16(uint16(b.Enactor))
		}
	case mt.Type == TypeJump:
		w.Point(mt.Velocity)
	case mt.Type == TypeTurn:
		w.U8(uint8(mt.Direction))
	case mt.Type == TypeGive:
		w.U16(uint16(mt.Target))
		w.U8(uint8(mt.Direction))
		w.U16(uint16(mt.Spell.Object))
	case mt.Type == TypeWait:
		w.I16(mt.ActionCounter)
	case mt.isUse():
		u := &mt.Use
		w.U16(uint16(u.Direct))
		w.U16(uint16(u.Indirect))
		w.I16(u.TAI)
		w.Point(u.TargetLoc)
		w.I16(u.MoveCount)
		w.U8(uint8(mt.Direction))
	case mt.IsMeleeAttack() || mt.Type == TypeFireBow || mt.Type == TypeUseWand:
		w.U8(uint8(mt.Direction))
		w.U8(mt.Combat.SubType)
		w.U16(uint16(mt.Target))
		w.I16(mt.ActionCounter)
	case mt.Type == TypeCastSpell:
		w.U8(uint8(mt.Direction))
		w.U16(uint16(mt.Target))
		w.U16(uint16(mt.Spell.Object))
		w.I16(mt.Spell.TAG)
		w.Point(mt.Spell.Loc)
		w.I16(mt.ActionCounter)
	case mt.IsDefense():
		c := &mt.Combat
		w.U8(uint8(mt.Direction))
		w.U16(uint16(c.Attacker))
		w.U16(uint16(c.DefensiveObj))
		w.U8(c.DefenseFlags)
		w.U8(c.SubType)
		w.I16(mt.ActionCounter)
	case mt.Type == TypeAcceptHit || mt.Type == TypeFallDown:
		w.U16(uint16(mt.Combat.Attacker))
		w.I16(mt.ActionCounter)
	}
}

func restoreTask(r *archive.Reader) *Task {
	mt := &Task{
		Use:   Use{TAI: NoActiveItem},
		Spell: Spell{TAG: NoActiveItem},
	}
	mt.Type = Type(r.U8())
	mt.PrevType = Type(r.U8())
	mt.Thread = ThreadID(r.I16())
	mt.Flags = Flags(r.U16())
	mt.Object = agents.ObjectID(r.U16())
	mt.Walk.PathCount = -1

	if mt.Type == TypeWalk || mt.PrevType == TypeWalk {
		wk := &mt.Walk
		wk.Immediate = r.Point()
		wk.Final = r.Point()
		if mt.has(FlagTethered) {
			wk.Tether = tile.Region{Min: r.Point(), Max: r.Point()}
		}
		mt.Direction = tile.Direction(r.U8())
		wk.PathIndex = r.I16()
		wk.PathCount = r.I16()
		wk.RunCount = r.I16()
		if mt.has(FlagAgitated) {
			mt.ActionCounter = r.I16()
		}
		if wk.PathCount > MaxPath {
			r.Fail(fmt.Errorf("motion record for object %d: path of %d points", mt.Object, wk.PathCount))
			return mt
		}
		for i := int16(0); i < wk.PathCount; i++ {
			wk.Path[i] = r.Point()
		}
	}

	switch {
	case mt.Type == TypeThrown || mt.Type == TypeShot:
		b := &mt.Ballistic
		mt.Velocity = r.Point()
		b.Steps = r.I16()
		b.UFrac = r.I16()
		b.VFrac = r.I16()
		b.UErr = r.I16()
		b.VErr = r.I16()
		if mt.Type == TypeShot {
			mt.Target = agents.ObjectID(r.U16())
			b.Enactor = agents.ObjectID(r.U16())
		}
	case mt.Type == TypeJump:
		mt.Velocity = r.Point()
	case mt.Type == TypeTurn:
		mt.Direction = tile.Direction(r.U8())
	case mt.Type == TypeGive:
		mt.Target = agents.ObjectID(r.U16())
		mt.Direction = tile.Direction(r.U8())
		mt.Spell.Object = agents.ObjectID(r.U16())
	case mt.Type == TypeWait:
		mt.ActionCounter = r.I16()
	case mt.isUse():
		u := &mt.Use
		u.Direct = agents.ObjectID(r.U16())
		u.Indirect = agents.ObjectID(r.U16())
		u.TAI = r.I16()
		u.TargetLoc = r.Point()
		u.MoveCount = r.I16()
		mt.Direction = tile.Direction(r.U8())
	case mt.IsMeleeAttack() || mt.Type == TypeFireBow || mt.Type == TypeUseWand:
		mt.Direction = tile.Direction(r.U8())
		mt.Combat.SubType = r.U8()
		mt.Target = agents.ObjectID(r.U16())
		mt.ActionCounter = r.I16()
	case mt.Type == TypeCastSpell:
		mt.Direction = tile.Direction(r.U8())
		mt.Target = agents.ObjectID(r.U16())
		mt.Spell.Object = agents.ObjectID(r.U16())
		mt.Spell.TAG = r.I16()
		mt.Spell.Loc = r.Point()
		mt.ActionCounter = r.I16()
	case mt.IsDefense():
		c := &mt.Combat
		mt.Direction = tile.Direction(r.U8())
		c.Attacker = agents.ObjectID(r.U16())
		c.DefensiveObj = agents.ObjectID(r.U16())
		c.DefenseFlags = r.U8()
		c.SubType = r.U8()
		mt.ActionCounter = r.I16()
	case mt.Type == TypeAcceptHit || mt.Type == TypeFallDown:
		mt.Combat.Attacker = agents.ObjectID(r.U16())
		mt.ActionCounter = r.I16()
	}
	return mt
}
