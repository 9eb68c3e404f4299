package duel

import (
	"github.com/louisbranch/combatsim/internal/sim/dice"
)

// fighter is the per-trial mutable state built from a template.
type fighter struct {
	c     *Combatant
	hp    int
	armor int
	ammo  int
}

func newFighter(c *Combatant) *fighter {
	f := &fighter{c: c, hp: c.HP, armor: c.BodyArmor}
	if c.Gun != nil {
		f.ammo = c.Gun.MaxAmmo
	}
	return f
}

func (f *fighter) wounded() bool {
	return f.hp <= f.c.HP/2
}

func (f *fighter) penalty() int {
	if f.wounded() {
		return -woundedPenalty
	}
	return 0
}

// absorb applies dmg against armor. Only a penetrating roll costs hp and
// wears the armor down by one.
func (f *fighter) absorb(dmg dice.Damage, armor int) {
	if dmg.Total <= armor {
		return
	}
	f.hp -= dmg.Total - armor
	f.armor = max(f.armor-1, 0)
	if dmg.Crit {
		f.hp -= critDamage
	}
}

// act resolves one combatant's turn: reposition, then sprint, reload, fire
// a volley, or swing at melee range.
func act(src dice.Source, cfg Config, actor, defender *fighter, distance *int) error {
	gun, sword := actor.c.Gun, actor.c.Sword

	if sword != nil || gun == nil || *distance > gun.BestRangeHigh {
		*distance = closeIn(*distance, actor.c.Speed)
	}

	if *distance == 0 && sword != nil {
		melee(src, actor, defender)
		return nil
	}

	if gun == nil {
		*distance = closeIn(*distance, actor.c.Speed)
		return nil
	}
	dv, err := gun.Range.Difficulty(*distance)
	if err != nil {
		return err
	}
	switch {
	case dv > cfg.RunThreshold:
		*distance = closeIn(*distance, actor.c.Speed)
	case actor.ammo < gun.RateOfFire:
		actor.ammo = gun.MaxAmmo
	default:
		volley(src, cfg, actor, defender, dv)
	}
	return nil
}

func volley(src dice.Source, cfg Config, actor, defender *fighter, rangeDV int) {
	gun := actor.c.Gun
	skills := defender.c.Skills
	for shot := 0; shot < gun.RateOfFire; shot++ {
		dv := rangeDV
		if skills.CanDodgeBullets && skills.Evade+cfg.DodgeThreshold >= dv {
			dv = skills.Evade + dice.RollCheck(src) + defender.penalty()
		}
		toHit := dice.RollCheck(src) + actor.c.Skills.Shoot + actor.penalty()
		actor.ammo = max(actor.ammo-1, 0)
		if toHit > dv {
			defender.absorb(dice.RollDamage(src, gun.DamageDice), defender.armor)
		}
	}
}

// melee swings the actor's sword. Melee halves the defender's armor.
func melee(src dice.Source, actor, defender *fighter) {
	sword := actor.c.Sword
	for swing := 0; swing < sword.RateOfFire; swing++ {
		dv := defender.c.Skills.Evade + dice.RollCheck(src) + defender.penalty()
		toHit := dice.RollCheck(src) + actor.c.Skills.Melee + actor.penalty()
		if toHit > dv {
			defender.absorb(dice.RollDamage(src, sword.DamageDice), defender.armor/2)
		}
	}
}

func closeIn(distance, speed int) int {
	return max(distance-speed, 0)
}
