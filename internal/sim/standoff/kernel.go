package standoff

import (
	"github.com/louisbranch/combatsim/internal/sim/dice"
)

const (
	critDamage         = 5
	homebrewCritDamage = 100
	burnDamage         = 2
	headshotArmorCut   = 11
	headshotPenalty    = 7
	// smartWindow is how close a miss must land to earn a smart reroll.
	smartWindow = 4
	// smartBonus replaces the shooter's modifier on a smart reroll.
	smartBonus = 10
)

// target is the per-trial mutable state.
type target struct {
	hp      int
	armor   int
	burning bool
	stunned int
}

// penetration describes what a damage roll does once it gets past armor.
type penetration struct {
	armorIgnored int
	armorLoss    int
	critDamage   int
	factor       int
}

// apply reports whether dmg penetrated. A roll that does not penetrate leaves
// the armor untouched.
func (p penetration) apply(t *target, dmg dice.Damage) bool {
	armor := max(t.armor-p.armorIgnored, 0)
	if dmg.Total <= armor {
		return false
	}
	t.hp -= p.factor * (dmg.Total - armor)
	t.armor = max(t.armor-p.armorLoss, 0)
	if dmg.Crit {
		t.hp -= p.critDamage
	}
	return true
}

// kernel is a scenario compiled into hooks around the shared loop.
type kernel struct {
	s        Scenario
	modifier int
	pen      penetration
	// reroll is used by a smart reroll hit; nil disables smart rerolls.
	reroll    *penetration
	setup     func(t *target)
	turnStart func(t *target)
	turnEnd   func(t *target)
	// penetrated runs after any penetrating hit.
	penetrated func(t *target)
	// damage rolls the pool for a hit landing margin points over the DV.
	damage func(src dice.Source, margin int) dice.Damage
	// outcome turns the finished trial into the reported sample.
	outcome func(t *target, turns int) float64
	// shotCost is the ammo one attack spends.
	shotCost int
}

func compile(s Scenario) *kernel {
	k := &kernel{
		s:        s,
		modifier: s.Modifier,
		pen:      penetration{armorLoss: 1, critDamage: critDamage, factor: 1},
		shotCost: s.shotCost(),
		damage: func(src dice.Source, _ int) dice.Damage {
			return dice.RollDamage(src, s.Dice)
		},
		outcome: func(_ *target, turns int) float64 {
			return float64(turns)
		},
	}

	switch s.Variant {
	case ArmorPiercing:
		k.pen.armorLoss = 2
	case HomebrewCrit:
		k.pen.critDamage = homebrewCritDamage
	case Incendiary:
		k.penetrated = ignite
		k.turnEnd = burn
	case IncendiaryPutOut:
		k.penetrated = ignite
		k.turnStart = putOut
		k.outcome = func(t *target, turns int) float64 {
			return float64(t.stunned) / float64(turns)
		}
	case SmartAmmo:
		reroll := k.pen
		k.reroll = &reroll
	case Headshot, SmartHeadshot:
		k.setup = aimForTheHead
		k.modifier -= headshotPenalty
		doubled := k.pen
		doubled.factor = 2
		if s.Variant == SmartHeadshot {
			k.reroll = &doubled
		} else {
			k.pen = doubled
		}
	case Autofire:
		k.damage = autofireDamage(s)
	case CapacitorGated:
		k.pen.armorIgnored = s.Capacitor.ArmorIgnored
		k.pen.armorLoss = s.Capacitor.ArmorDestroyed
	}
	return k
}

func ignite(t *target) { t.burning = true }

func burn(t *target) {
	if t.burning {
		t.hp -= burnDamage
	}
}

func putOut(t *target) {
	if t.burning {
		t.burning = false
		t.stunned++
	}
}

func aimForTheHead(t *target) {
	t.armor = max(t.armor-headshotArmorCut, 0)
}

func autofireDamage(s Scenario) func(dice.Source, int) dice.Damage {
	rules := s.Autofire
	return func(src dice.Source, margin int) dice.Damage {
		multiplier := max(min(margin+rules.GuaranteedBonus, rules.MaxMultiplier), 1)
		if rules.RollAllDice {
			return dice.RollDamage(src, multiplier*s.Dice)
		}
		dmg := dice.RollDamage(src, s.Dice)
		dmg.Total *= multiplier
		return dmg
	}
}

// run plays one trial to the kill.
func (k *kernel) run(src dice.Source) (float64, error) {
	s := k.s
	t := &target{hp: s.HP, armor: s.Armor}
	if k.setup != nil {
		k.setup(t)
	}

	ammo, charge := s.Magazine, s.Capacitor.Charge
	reloading := 0
	turns := 0
	for t.hp > 0 {
		if turns >= s.MaxTurns {
			return 0, ErrStalled
		}
		turns++
		if k.turnStart != nil {
			k.turnStart(t)
		}

		switch {
		case s.Measure == Hits:
			k.land(src, t, k.pen, 0)
		default:
			if reloading == 0 && k.short(ammo, charge) {
				reloading = s.ReloadTurns
			}
			if reloading > 0 {
				reloading--
				if reloading == 0 {
					ammo, charge = s.Magazine, s.Capacitor.Charge
				}
				break
			}
			for shot := 0; shot < s.RateOfFire && t.hp > 0; shot++ {
				if s.Magazine > 0 {
					ammo = max(ammo-k.shotCost, 0)
				}
				k.attack(src, t)
			}
		}

		if k.turnEnd != nil {
			k.turnEnd(t)
		}
	}
	return k.outcome(t, turns), nil
}

// short reports whether the loaded ammo or the capacitor cannot feed a volley.
func (k *kernel) short(ammo, charge int) bool {
	s := k.s
	if s.Magazine > 0 && ammo < s.RateOfFire*k.shotCost {
		return true
	}
	return s.Variant == CapacitorGated && charge < s.RateOfFire
}

// attack rolls to hit and resolves damage, with a smart reroll on a near miss.
func (k *kernel) attack(src dice.Source, t *target) {
	dv := k.s.Difficulty
	roll := dice.RollCheck(src) + k.modifier
	if roll > dv {
		k.land(src, t, k.pen, roll-dv)
		return
	}
	if k.reroll == nil || dv-roll >= smartWindow {
		return
	}
	if again := dice.RollCheck(src) + smartBonus; again > dv {
		k.land(src, t, *k.reroll, again-dv)
	}
}

func (k *kernel) land(src dice.Source, t *target, pen penetration, margin int) {
	if pen.apply(t, k.damage(src, margin)) && k.penetrated != nil {
		k.penetrated(t)
	}
}
