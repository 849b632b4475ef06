// Package agents provides the game object and actor model consumed by the
// motion and task layers: positions, facing, animation banks, combat stats,
// the interruptable counter, bands, and the object registry.
package agents

import (
	"fmt"

	"github.com/talgya/actorcore/internal/tile"
)

// ObjectID is a stable identifier for a game object. IDs double as the
// save-file reference for every cross-link between records.
type ObjectID uint16

const (
	Nothing ObjectID = 0 // No object
	WorldID ObjectID = 1 // Parent of every object placed directly in the world
)

// Kind classifies what an object is and which capability queries apply.
type Kind uint8

const (
	KindItem        Kind = iota // Inert item
	KindActor                   // Living actor
	KindMeleeWeapon             // Sword, axe, club
	KindShield                  // Defensive object
	KindBow                     // Fires arrows from inventory
	KindArrow                   // Ammunition
	KindWand                    // Casts its bound spell
	KindArmor                   // Worn automatically by non-players
	KindSpell                   // Skill/spell object
)

var kindNames = [...]string{"item", "actor", "melee-weapon", "shield", "bow", "arrow", "wand", "armor", "spell"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// ObjectFlags are per-object status bits.
type ObjectFlags uint16

const (
	FlagMoving   ObjectFlags = 1 << iota // Has a live motion record
	FlagObscured                         // Needs a visibility refresh
	FlagFloating                         // Unaffected by gravity
)

// Object is anything that can exist in the world or in a container.
type Object struct {
	ID           ObjectID    `json:"id"`
	Name         string      `json:"name"`
	Kind         Kind        `json:"kind"`
	Location     tile.Point  `json:"location"`
	Parent       ObjectID    `json:"parent"`
	Height       int16       `json:"height"`
	CrossSection int16       `json:"cross_section"`
	Flags        ObjectFlags `json:"flags"`

	// Weapon and spell attributes.
	Damage    int16    `json:"damage,omitempty"`
	MaxRange  int16    `json:"max_range,omitempty"` // Reach for melee weapons, range for bows and wands
	TwoHanded bool     `json:"two_handed,omitempty"`
	Spell     ObjectID `json:"spell,omitempty"` // Spell bound to a wand
	Skill     bool     `json:"skill,omitempty"` // Spell is a skill rather than a cast
	Worn      bool     `json:"worn,omitempty"`  // Armor in use
}

// InWorld reports whether o sits directly in the world rather than in a
// container.
func (o *Object) InWorld() bool { return o.Parent == WorldID }

// ThisID returns the object's ID.
func (o *Object) ThisID() ObjectID { return o.ID }

// IsWeapon reports whether the object can be wielded offensively.
func (o *Object) IsWeapon() bool {
	switch o.Kind {
	case KindMeleeWeapon, KindBow, KindWand:
		return true
	}
	return false
}

func (o *Object) String() string {
	return fmt.Sprintf("%s#%d", o.Name, o.ID)
}
