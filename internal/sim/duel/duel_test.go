package duel

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/louisbranch/combatsim/internal/sim/dice"
	"github.com/louisbranch/combatsim/internal/sim/dice/dicetest"
	"github.com/louisbranch/combatsim/internal/sim/gear"
	"github.com/louisbranch/combatsim/internal/sim/trial"
)

func flatGun(dv, dice, rof, ammo int) *gear.Gun {
	return &gear.Gun{
		Name:          "test gun",
		DamageDice:    dice,
		RateOfFire:    rof,
		MaxAmmo:       ammo,
		BestRangeHigh: gear.MaxRange,
		Range:         gear.NewRangeTable(dv, dv, dv, dv, dv),
	}
}

func shooter(name string, gun *gear.Gun) *Combatant {
	return &Combatant{
		Name:      name,
		HP:        40,
		BodyArmor: 3,
		Speed:     6,
		Skills:    Skills{Initiative: 8, Shoot: 10, Melee: 10, Evade: 8},
		Gun:       gun,
	}
}

func TestVolleyPenetratingCrit(t *testing.T) {
	actor := newFighter(shooter("a", flatGun(10, 2, 1, 4)))
	defender := newFighter(shooter("d", flatGun(10, 2, 1, 4)))
	distance := 5

	// to-hit 5+10 beats DV 10, damage 6+6 crits through armor 3.
	src := dicetest.NewSequence(5, 6, 6)
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if defender.hp != 40-(12-3)-5 {
		t.Fatalf("hp = %d, want %d", defender.hp, 40-(12-3)-5)
	}
	if defender.armor != 2 {
		t.Fatalf("armor = %d, want 2", defender.armor)
	}
	if actor.ammo != 3 {
		t.Fatalf("ammo = %d, want 3", actor.ammo)
	}
	if src.Remaining() != 0 {
		t.Fatalf("%d draws left over", src.Remaining())
	}
}

func TestVolleyArmorAbsorbsWithoutWear(t *testing.T) {
	actor := newFighter(shooter("a", flatGun(10, 2, 1, 4)))
	defender := newFighter(shooter("d", flatGun(10, 2, 1, 4)))
	distance := 5

	src := dicetest.NewSequence(5, 1, 2)
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if defender.hp != 40 || defender.armor != 3 {
		t.Fatalf("hp/armor = %d/%d, want 40/3", defender.hp, defender.armor)
	}
}

func TestVolleyDodgeReplacesDifficulty(t *testing.T) {
	actor := newFighter(shooter("a", flatGun(10, 2, 1, 4)))
	dodger := shooter("d", flatGun(10, 2, 1, 4))
	dodger.Skills.CanDodgeBullets = true
	defender := newFighter(dodger)
	distance := 5

	// evade 8 + 4 >= 10 so DV becomes 8 + 9 = 17; to-hit 5+10 misses.
	src := dicetest.NewSequence(9, 5)
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if defender.hp != 40 {
		t.Fatalf("hp = %d, want 40", defender.hp)
	}
	if actor.ammo != 3 {
		t.Fatalf("a miss still spends ammo: ammo = %d, want 3", actor.ammo)
	}
}

func TestVolleyWoundedPenalties(t *testing.T) {
	actor := newFighter(shooter("a", flatGun(14, 1, 1, 4)))
	actor.hp = 20
	defender := newFighter(shooter("d", flatGun(14, 1, 1, 4)))
	distance := 5

	// 6+10-2 = 14 does not beat DV 14.
	src := dicetest.NewSequence(6)
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if defender.hp != 40 {
		t.Fatalf("wounded shooter should miss, hp = %d", defender.hp)
	}
}

func TestActReloadsWhenShort(t *testing.T) {
	actor := newFighter(shooter("a", flatGun(10, 2, 2, 6)))
	actor.ammo = 1
	defender := newFighter(shooter("d", flatGun(10, 2, 1, 4)))
	distance := 5

	src := dicetest.NewSequence()
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if actor.ammo != 6 {
		t.Fatalf("ammo = %d, want refilled 6", actor.ammo)
	}
	if defender.hp != 40 {
		t.Fatal("reload turn must not attack")
	}
}

func TestActSprintsPastRunThreshold(t *testing.T) {
	gun := flatGun(25, 2, 1, 4)
	gun.BestRangeHigh = 3
	actor := newFighter(shooter("a", gun))
	defender := newFighter(shooter("d", flatGun(10, 2, 1, 4)))
	distance := 30

	src := dicetest.NewSequence()
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	// Reposition then sprint, 6m each.
	if distance != 18 {
		t.Fatalf("distance = %d, want 18", distance)
	}
}

func TestActMeleeHalvesArmor(t *testing.T) {
	swordsman := shooter("s", flatGun(10, 2, 1, 4))
	swordsman.Sword = &gear.Sword{Name: "blade", DamageDice: 3, RateOfFire: 1}
	actor := newFighter(swordsman)
	target := shooter("d", flatGun(10, 2, 1, 4))
	target.BodyArmor = 5
	defender := newFighter(target)
	distance := 4

	// closes to 0; DV 8+2 = 10; to-hit 5+10 hits; 3+3+3 = 9 against armor 5/2 = 2.
	src := dicetest.NewSequence(2, 5, 3, 3, 3)
	if err := act(src, DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if distance != 0 {
		t.Fatalf("distance = %d, want 0", distance)
	}
	if defender.hp != 40-7 {
		t.Fatalf("hp = %d, want 33", defender.hp)
	}
	if defender.armor != 4 {
		t.Fatalf("armor = %d, want 4", defender.armor)
	}
}

func TestActSwordOnlyClosesDistance(t *testing.T) {
	swordsman := shooter("s", nil)
	swordsman.Gun = nil
	swordsman.Sword = &gear.Sword{Name: "blade", DamageDice: 3, RateOfFire: 1}
	actor := newFighter(swordsman)
	defender := newFighter(shooter("d", flatGun(10, 2, 1, 4)))
	distance := 20

	if err := act(dicetest.NewSequence(), DefaultConfig(), actor, defender, &distance); err != nil {
		t.Fatalf("act: %v", err)
	}
	if distance != 8 {
		t.Fatalf("distance = %d, want 8", distance)
	}
}

func TestAbsorbNeverDrivesArmorNegative(t *testing.T) {
	f := newFighter(shooter("d", flatGun(10, 1, 1, 1)))
	f.hp = 1000
	f.armor = 1
	for i := 0; i < 10; i++ {
		f.absorb(dice.Damage{Total: 30}, f.armor)
		if f.armor < 0 {
			t.Fatalf("armor went negative after hit %d", i)
		}
	}
	if f.armor != 0 {
		t.Fatalf("armor = %d, want 0", f.armor)
	}
}

func TestFightInitiativeRerollsTies(t *testing.T) {
	one := shooter("one", flatGun(2, 1, 1, 4))
	two := shooter("two", flatGun(2, 1, 1, 4))
	two.HP = 1
	cfg := DefaultConfig()
	cfg.StartingDistance = 5

	// tie 5/5, then one leads 6/2; one hits with 5+10 > 2 and 4 > armor 3.
	src := dicetest.NewSequence(5, 5, 6, 2, 5, 4)
	got, err := Fight(src, cfg, *one, *two)
	if err != nil {
		t.Fatalf("fight: %v", err)
	}
	if got != WinnerOne {
		t.Fatalf("winner = %v, want One", got)
	}
}

func TestFightRoundCapIsDraw(t *testing.T) {
	// One damage die can never beat armor 20.
	tank := shooter("tank", flatGun(2, 1, 1, 100))
	tank.BodyArmor = 20
	cfg := DefaultConfig()
	cfg.MaxRounds = 5
	cfg.StartingDistance = 3

	got, err := Fight(dice.NewSource(1, 0), cfg, *tank, *tank)
	if err != nil {
		t.Fatalf("fight: %v", err)
	}
	if got != WinnerNone {
		t.Fatalf("winner = %v, want draw", got)
	}
}

func TestSimulateSymmetricCombatantsSplitEvenly(t *testing.T) {
	rifle := gear.AssaultRifle()
	a := Combatant{Name: "A", HP: 40, BodyArmor: 11, Speed: 6, Skills: Skills{Initiative: 8, Shoot: 10, Melee: 10, Evade: 10}, Gun: &rifle}
	b := a
	b.Name = "B"
	cfg := DefaultConfig()
	cfg.Trials = 4000
	cfg.StartingDistance = 30

	tally, err := Simulate(context.Background(), trial.Runner{Seed: 99, Workers: 4}, "", cfg, a, b)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if tally.One+tally.Two+tally.Draws != cfg.Trials {
		t.Fatalf("tally does not add up: %+v", tally)
	}
	if math.Abs(tally.OnePercent()-50) > 4 {
		t.Fatalf("one wins %.2f%%, want about 50%%", tally.OnePercent())
	}
	if got, ok := tally.Percent("B"); !ok || math.Abs(got-tally.TwoPercent()) > 1e-9 {
		t.Fatalf("Percent(B) = %v, %v", got, ok)
	}
}

func TestSimulateRejectsInvalidInput(t *testing.T) {
	rifle := gear.AssaultRifle()
	ok := Combatant{Name: "ok", HP: 40, Gun: &rifle}
	cfg := DefaultConfig()

	unarmed := Combatant{Name: "unarmed", HP: 40}
	if _, err := Simulate(context.Background(), trial.Runner{}, "", cfg, ok, unarmed); !errors.Is(err, ErrNoWeapon) {
		t.Fatalf("error = %v, want %v", err, ErrNoWeapon)
	}

	far := cfg
	far.StartingDistance = 80
	if _, err := Simulate(context.Background(), trial.Runner{}, "", far, ok, ok); !errors.Is(err, gear.ErrOutOfRange) {
		t.Fatalf("error = %v, want %v", err, gear.ErrOutOfRange)
	}

	dead := Combatant{Name: "dead", Gun: &rifle}
	if _, err := Simulate(context.Background(), trial.Runner{}, "", cfg, ok, dead); !errors.Is(err, ErrInvalidCombatant) {
		t.Fatalf("error = %v, want %v", err, ErrInvalidCombatant)
	}
}
