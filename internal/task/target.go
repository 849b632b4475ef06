package task

import (
	"fmt"
	"slices"

	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/archive"
	"github.com/talgya/actorcore/internal/tile"
)

// maxSensed bounds how many candidates a target query returns.
const maxSensed = 16

// maxTargetPoints bounds a location target's point set.
const maxTargetPoints = 8

// LocationTarget is a place to go: a single location, or the nearest of a
// set.
type LocationTarget struct {
	Points []tile.Point `json:"points"`
}

// At returns a target for one specific location.
func At(p tile.Point) LocationTarget { return LocationTarget{Points: []tile.Point{p}} }

// Where returns the target point nearest from, or Nowhere.
func (t LocationTarget) Where(from tile.Point) tile.Point {
	best, bestDist := tile.Nowhere, -1
	for _, p := range t.Points {
		if d := distance(from, p); bestDist < 0 || d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

func (t LocationTarget) equal(o LocationTarget) bool { return slices.Equal(t.Points, o.Points) }

// ObjectTarget selects an object: one specific object when ID is set,
// otherwise every object of Kind in sensing range.
type ObjectTarget struct {
	ID   agents.ObjectID `json:"id"`
	Kind agents.Kind     `json:"kind"`
}

// Objects returns the matching objects in the world nearest first.
func (t ObjectTarget) Objects(reg *agents.Registry, from tile.Point) []*agents.Object {
	if t.ID != agents.Nothing {
		if o := reg.Lookup(t.ID); o != nil {
			return []*agents.Object{o}
		}
		return nil
	}
	var out []*agents.Object
	for _, o := range reg.Objects() {
		if o.Kind == t.Kind && o.InWorld() && distance(from, o.Location) <= tile.MaxSenseRange {
			out = append(out, o)
		}
	}
	slices.SortStableFunc(out, func(a, b *agents.Object) int {
		return distance(from, a.Location) - distance(from, b.Location)
	})
	return out[:min(len(out), maxSensed)]
}

// ActorProperty selects actors by allegiance.
type ActorProperty uint8

const (
	AnyActor       ActorProperty = iota // Every other actor
	EnemyActors                         // Hostile disposition
	FriendlyActors                      // Friendly disposition
	PlayerActors                        // Player-controlled
)

// ActorTarget selects an actor: one specific actor when ID is set,
// otherwise every other actor with Property in sensing range.
type ActorTarget struct {
	ID       agents.ObjectID `json:"id"`
	Property ActorProperty   `json:"property"`
}

// Specific returns a target naming exactly a.
func Specific(a *agents.Actor) ActorTarget { return ActorTarget{ID: a.ID} }

// Matching returns a target for actors with property p.
func Matching(p ActorProperty) ActorTarget { return ActorTarget{Property: p} }

type sensed struct {
	actor *agents.Actor
	dist  int
}

// actors returns the matching actors nearest first, never including self.
func (t ActorTarget) actors(reg *agents.Registry, self *agents.Actor) []sensed {
	from := self.Location
	if t.ID != agents.Nothing {
		if a := reg.Actor(t.ID); a != nil && a != self && a.InWorld() {
			return []sensed{{a, distance(from, a.Location)}}
		}
		return nil
	}
	var out []sensed
	for _, a := range reg.Actors() {
		if a == self || a.Dead || !a.InWorld() || !t.matches(a) {
			continue
		}
		if d := distance(from, a.Location); d <= tile.MaxSenseRange {
			out = append(out, sensed{a, d})
		}
	}
	slices.SortStableFunc(out, func(a, b sensed) int { return a.dist - b.dist })
	return out[:min(len(out), maxSensed)]
}

// Nearest returns the closest actor self senses that t selects, or nil.
func (t ActorTarget) Nearest(reg *agents.Registry, self *agents.Actor) *agents.Actor {
	if s := t.actors(reg, self); len(s) > 0 {
		return s[0].actor
	}
	return nil
}

func (t ActorTarget) matches(a *agents.Actor) bool {
	switch t.Property {
	case EnemyActors:
		return a.Disposition == agents.Enemy
	case FriendlyActors:
		return a.Disposition == agents.Friendly
	case PlayerActors:
		return a.Player
	}
	return true
}

func distance(a, b tile.Point) int {
	d := b.Sub(a)
	return int(d.QuickHDistance()) + int(tile.Abs(d.Z))
}

// Target archive tags.
const (
	tagLocation uint8 = iota + 1
	tagObject
	tagActor
)

func writeLocationTarget(w *archive.Writer, t LocationTarget) {
	w.U8(tagLocation)
	w.U8(uint8(len(t.Points)))
	for _, p := range t.Points {
		w.Point(p)
	}
}

func readLocationTarget(r *archive.Reader) LocationTarget {
	if tag := r.U8(); tag != tagLocation {
		r.Fail(fmt.Errorf("location target: tag %d", tag))
		return LocationTarget{}
	}
	n := int(r.U8())
	if n > maxTargetPoints {
		r.Fail(fmt.Errorf("location target: %d points", n))
		return LocationTarget{}
	}
	t := LocationTarget{Points: make([]tile.Point, n)}
	for i := range t.Points {
		t.Points[i] = r.Point()
	}
	return t
}

func writeObjectTarget(w *archive.Writer, t ObjectTarget) {
	w.U8(tagObject)
	w.U16(uint16(t.ID))
	w.U8(uint8(t.Kind))
}

func readObjectTarget(r *archive.Reader) ObjectTarget {
	if tag := r.U8(); tag != tagObject {
		r.Fail(fmt.Errorf("object target: tag %d", tag))
		return ObjectTarget{}
	}
	return ObjectTarget{ID: agents.ObjectID(r.U16()), Kind: agents.Kind(r.U8())}
}

func writeActorTarget(w *archive.Writer, t ActorTarget) {
	w.U8(tagActor)
	w.U16(uint16(t.ID))
	w.U8(uint8(t.Property))
}

func readActorTarget(r *archive.Reader) ActorTarget {
	if tag := r.U8(); tag != tagActor {
		r.Fail(fmt.Errorf("actor target: tag %d", tag))
		return ActorTarget{}
	}
	return ActorTarget{ID: agents.ObjectID(r.U16()), Property: ActorProperty(r.U8())}
}
