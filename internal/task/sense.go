package task

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/tile"
)

// eye returns where a looks from.
func eye(o *agents.Object) tile.Point {
	p := o.Location
	p.Z += o.Height * 7 / 8
	return p
}

// sees reports whether a can directly sense something at loc of the
// given height.
func (e *Env) sees(a *agents.Actor, loc tile.Point, height int16) bool {
	if !a.InWorld() || !a.InRange(loc, tile.MaxSenseRange) {
		return false
	}
	if e.World == nil {
		return true
	}
	target := loc
	target.Z += height * 7 / 8
	return e.World.LineOfSight(eye(&a.Object), target)
}

// canSense reports whether a senses o, either itself or through any
// member of its band.
func (e *Env) canSense(a *agents.Actor, o *agents.Object) bool {
	if o == nil || !o.InWorld() {
		return false
	}
	if e.sees(a, o.Location, o.Height) {
		return true
	}
	for _, m := range e.bandmates(a) {
		if m.ID != o.ID && e.sees(m, o.Location, o.Height) {
			return true
		}
	}
	return false
}

// bandmates returns the other living members of a's band, leader
// included.
func (e *Env) bandmates(a *agents.Actor) []*agents.Actor {
	var band *agents.Band
	switch {
	case a.Followers != nil:
		band = a.Followers
	case a.Leader != agents.Nothing:
		if l := e.Objects.Actor(a.Leader); l != nil {
			band = l.Followers
		}
	}
	if band == nil {
		return nil
	}
	var out []*agents.Actor
	if l := e.Objects.Actor(band.Leader); l != nil && l != a && !l.Dead {
		out = append(out, l)
	}
	for _, id := range band.Members() {
		if m := e.Objects.Actor(id); m != nil && m != a && !m.Dead {
			out = append(out, m)
		}
	}
	return out
}
