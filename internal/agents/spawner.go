// Actor spawning: creates the starting population with equipment, skills
// and bands.
package agents

import (
	"math/rand"

	"github.com/talgya/actorcore/internal/tile"
)

// SpawnConfig controls initial population generation.
type SpawnConfig struct {
	Seed       int64
	EnemyShare float64 // Fraction of actors spawned hostile
	BandSize   int     // Followers per leader; 0 spawns loners only
}

// Spawner creates actors and their gear in a registry.
type Spawner struct {
	rng *rand.Rand
	reg *Registry
	cfg SpawnConfig
}

// NewSpawner creates a spawner adding to reg.
func NewSpawner(reg *Registry, cfg SpawnConfig) *Spawner {
	if cfg.EnemyShare == 0 {
		cfg.EnemyShare = 0.5
	}
	cfg.BandSize = min(max(cfg.BandSize, 0), MaxBandMembers)
	return &Spawner{
		rng: rand.New(rand.NewSource(cfg.Seed + 300)),
		reg: reg,
		cfg: cfg,
	}
}

// Loadout is the gear one actor starts with.
type Loadout uint8

const (
	LoadoutBrawler Loadout = iota // Bare hands
	LoadoutSword
	LoadoutGreatsword
	LoadoutArcher
	LoadoutMage
)

var loadoutNames = [...]string{"brawler", "sword", "greatsword", "archer", "mage"}

func (l Loadout) String() string {
	if int(l) < len(loadoutNames) {
		return loadoutNames[l]
	}
	return "unknown"
}

// StandardFrames is the frame count of every sequence a humanoid actor
// has.
var StandardFrames = map[Action]int16{
	ActionStand:                 1,
	ActionWalk:                  8,
	ActionRun:                   8,
	ActionClimbLadder:           4,
	ActionTalk:                  4,
	ActionJumpUp:                3,
	ActionFallBadly:             4,
	ActionFreeFall:              1,
	ActionTwoHandSwingHigh:      6,
	ActionTwoHandSwingLow:       6,
	ActionTwoHandSwingLeftHigh:  6,
	ActionTwoHandSwingLeftLow:   6,
	ActionTwoHandSwingRightHigh: 6,
	ActionTwoHandSwingRightLow:  6,
	ActionSwingHigh:             5,
	ActionSwingLow:              5,
	ActionFireBow:               6,
	ActionCastSpell:             6,
	ActionUseWand:               5,
	ActionTwoHandParry:          4,
	ActionParryHigh:             4,
	ActionShieldParry:           4,
	ActionHit:                   3,
	ActionKnockedDown:           6,
	ActionGiveItem:              4,
	ActionDie:                   6,
	ActionDead:                  1,
}

// Spawn places one actor per location. Hostile and friendly actors are
// mixed by EnemyShare, and consecutive actors of the same side are
// grouped into bands of BandSize followers behind a leader.
func (s *Spawner) Spawn(locations []tile.Point) []*Actor {
	out := make([]*Actor, 0, len(locations))
	var leaders [2]*Actor
	for _, loc := range locations {
		a := s.spawnOne(loc)
		out = append(out, a)

		side := a.Disposition
		lead := leaders[side]
		if s.cfg.BandSize == 0 {
			continue
		}
		if lead == nil || lead.Followers.Size() >= s.cfg.BandSize {
			a.Followers = NewBand(a.ID)
			leaders[side] = a
			continue
		}
		lead.Followers.Add(a.ID)
		a.Leader = lead.ID
	}
	return out
}

func (s *Spawner) spawnOne(loc tile.Point) *Actor {
	id := s.reg.NextID()
	disp := Friendly
	if s.rng.Float64() < s.cfg.EnemyShare {
		disp = Enemy
	}

	a := NewActor(id, s.generateName(disp), loc)
	a.Disposition = disp
	a.Behavior = CombatBehavior(s.rng.Intn(int(BehaviorSmart) + 1))
	a.Facing = tile.Direction(s.rng.Intn(8))
	a.MaxVitality = int16(14 + s.rng.Intn(12))
	a.Vitality = a.MaxVitality
	a.Anim = NewAppearance(StandardFrames)

	lo := Loadout(s.rng.Intn(int(LoadoutMage) + 1))
	a.Skills = s.skillsFor(lo)
	s.reg.AddActor(a)
	s.equip(a, lo)
	return a
}

// skillsFor gives the loadout's primary skill a high roll and the others
// a low one.
func (s *Spawner) skillsFor(lo Loadout) Skills {
	low := func() uint8 { return uint8(5 + s.rng.Intn(20)) }
	high := func() uint8 { return uint8(50 + s.rng.Intn(50)) }
	sk := Skills{Brawn: low(), Archery: low(), Spellcraft: low()}
	switch lo {
	case LoadoutBrawler, LoadoutSword, LoadoutGreatsword:
		sk.Brawn = high()
	case LoadoutArcher:
		sk.Archery = high()
	case LoadoutMage:
		sk.Spellcraft = high()
	}
	return sk
}

func (s *Spawner) item(owner *Actor, name string, kind Kind) *Object {
	o := &Object{
		ID:           s.reg.NextID(),
		Name:         name,
		Kind:         kind,
		Parent:       owner.ID,
		Location:     tile.Nowhere,
		Height:       4,
		CrossSection: 2,
	}
	s.reg.Add(o)
	return o
}

// equip creates a's gear in its inventory and wields it.
func (s *Spawner) equip(a *Actor, lo Loadout) {
	switch lo {
	case LoadoutSword:
		w := s.item(a, "sword", KindMeleeWeapon)
		w.Damage, w.MaxRange = int16(4+s.rng.Intn(3)), 20
		a.RightHand = w.ID
		if s.rng.Intn(2) == 0 {
			sh := s.item(a, "shield", KindShield)
			sh.Damage = 2
			a.LeftHand = sh.ID
		}
	case LoadoutGreatsword:
		w := s.item(a, "greatsword", KindMeleeWeapon)
		w.Damage, w.MaxRange, w.TwoHanded = int16(7+s.rng.Intn(3)), 28, true
		a.RightHand = w.ID
	case LoadoutArcher:
		bow := s.item(a, "bow", KindBow)
		bow.Damage, bow.MaxRange, bow.TwoHanded = 3, tile.MaxSenseRange, true
		a.LeftHand = bow.ID
		for range 6 + s.rng.Intn(10) {
			arrow := s.item(a, "arrow", KindArrow)
			arrow.Damage = 3
		}
	case LoadoutMage:
		spell := s.item(a, "fireball", KindSpell)
		spell.Damage = int16(4 + s.rng.Intn(4))
		wand := s.item(a, "wand", KindWand)
		wand.Damage, wand.MaxRange, wand.Spell = 1, tile.MaxSenseRange*3/4, spell.ID
		a.RightHand = wand.ID
	}
	if s.rng.Intn(3) == 0 {
		armor := s.item(a, "leather armor", KindArmor)
		armor.Damage, armor.Worn = 1, true
	}
}

var (
	friendlyNames = []string{"Aldric", "Brenna", "Corwin", "Dalla", "Edric", "Fenna", "Garrick", "Hilde", "Ivor", "Jorunn"}
	enemyNames    = []string{"Grak", "Murz", "Skarn", "Vol", "Drekka", "Thug", "Urzog", "Krell", "Nargh", "Zub"}
	titles        = []string{"the Bold", "the Grim", "of the Marsh", "Redhand", "the Quiet", "Stonefist"}
)

func (s *Spawner) generateName(d Disposition) string {
	names := friendlyNames
	if d == Enemy {
		names = enemyNames
	}
	return names[s.rng.Intn(len(names))] + " " + titles[s.rng.Intn(len(titles))]
}
