package task

import (
	"github.com/talgya/actorcore/internal/agents"
	"github.com/talgya/actorcore/internal/motion"
	"github.com/talgya/actorcore/internal/tile"
)

// basicCombat fights bare-handed. Stacks use it until real rules are
// wired in.
type basicCombat struct {
	list *motion.List
}

func (c basicCombat) Attack(a, target *agents.Actor) { c.list.OneHandedSwing(a, target.ID) }

func (c basicCombat) StopAttack(a *agents.Actor) {
	if mt := c.list.For(a.ID); mt != nil && mt.IsAttack() {
		c.list.Remove(mt, motion.ResultInterrupted)
	}
}

func (basicCombat) InAttackRange(a *agents.Actor, loc tile.Point) bool { return a.InReach(loc) }

func (basicCombat) OffenseScore(a *agents.Actor) int { return int(a.Skills.Brawn) + 1 }

func (basicCombat) DefenseScore(a *agents.Actor) int { return int(a.Vitality) + 1 }

func (basicCombat) WeaponRating(agents.ObjectID, *agents.Actor, *agents.Actor) int { return 0 }

func (basicCombat) Use(*agents.Actor, agents.ObjectID) {}
