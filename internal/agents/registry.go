package agents

import (
	"fmt"
	"sort"

	"github.com/talgya/actorcore/internal/tile"
	"github.com/talgya/actorcore/internal/world"
)

// Registry owns every object in the simulation, keyed by ID.
type Registry struct {
	objects map[ObjectID]*Object
	actors  map[ObjectID]*Actor
	order   []ObjectID // Registration order, for stable iteration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		objects: make(map[ObjectID]*Object),
		actors:  make(map[ObjectID]*Actor),
	}
}

// Add registers an item. Adding an ID twice replaces the earlier object.
func (r *Registry) Add(o *Object) {
	if o.ID == Nothing || o.ID == WorldID {
		panic(fmt.Errorf("object id %d is reserved", o.ID))
	}
	if _, ok := r.objects[o.ID]; !ok {
		r.order = append(r.order, o.ID)
	}
	r.objects[o.ID] = o
}

// AddActor registers an actor.
func (r *Registry) AddActor(a *Actor) {
	r.Add(&a.Object)
	r.actors[a.ID] = a
}

// Remove forgets id and detaches anything it contained.
func (r *Registry) Remove(id ObjectID) {
	if _, ok := r.objects[id]; !ok {
		return
	}
	delete(r.objects, id)
	delete(r.actors, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Reset forgets every object.
func (r *Registry) Reset() {
	clear(r.objects)
	clear(r.actors)
	r.order = r.order[:0]
}

// Lookup returns the object for id, or nil.
func (r *Registry) Lookup(id ObjectID) *Object { return r.objects[id] }

// Actor returns the actor for id, or nil if id is not an actor.
func (r *Registry) Actor(id ObjectID) *Actor { return r.actors[id] }

// Len returns the number of registered objects.
func (r *Registry) Len() int { return len(r.order) }

// Objects returns every object in registration order.
func (r *Registry) Objects() []*Object {
	out := make([]*Object, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.objects[id])
	}
	return out
}

// Actors returns every actor in registration order.
func (r *Registry) Actors() []*Actor {
	out := make([]*Actor, 0, len(r.actors))
	for _, id := range r.order {
		if a, ok := r.actors[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Children returns the objects whose parent is id, ordered by ID.
func (r *Registry) Children(id ObjectID) []*Object {
	var out []*Object
	for _, oid := range r.order {
		if o := r.objects[oid]; o.Parent == id {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NextID returns an unused object ID.
func (r *Registry) NextID() ObjectID {
	id := WorldID + 1
	for _, oid := range r.order {
		if oid >= id {
			id = oid + 1
		}
	}
	return id
}

// Location returns where id is in world terms, following containers up to
// the world.
func (r *Registry) Location(id ObjectID) tile.Point {
	for depth := 0; depth < 8; depth++ {
		o := r.objects[id]
		if o == nil {
			return tile.Nowhere
		}
		if o.InWorld() {
			return o.Location
		}
		id = o.Parent
	}
	return tile.Nowhere
}

// Move puts id into parent at loc.
func (r *Registry) Move(id, parent ObjectID, loc tile.Point) {
	if o := r.objects[id]; o != nil {
		o.Parent = parent
		o.Location = loc
	}
}

// Bodies lists the living actors in the world for collision tests.
func (r *Registry) Bodies() []world.Body {
	out := make([]world.Body, 0, len(r.actors))
	for _, id := range r.order {
		a, ok := r.actors[id]
		if !ok || !a.InWorld() || a.Dead {
			continue
		}
		out = append(out, a.Body())
	}
	return out
}

// Body returns the collision shape of o at its current location.
func (o *Object) Body() world.Body {
	return world.Body{
		ID:       uint16(o.ID),
		Location: o.Location,
		Height:   o.Height,
		Cross:    o.CrossSection,
	}
}
