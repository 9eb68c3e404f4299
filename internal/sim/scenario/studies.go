package scenario

import (
	"context"
	"fmt"

	"github.com/louisbranch/combatsim/internal/report"
	"github.com/louisbranch/combatsim/internal/sim/duel"
	"github.com/louisbranch/combatsim/internal/sim/gear"
	"github.com/louisbranch/combatsim/internal/sim/standoff"
	"github.com/louisbranch/combatsim/internal/sim/stats"
)

const (
	enemyHP    = 40
	enemyArmor = 11
	// tuningModifier is a skilled shooter's check bonus.
	tuningModifier = 14
	// duelDistance is the opening range for the duel studies.
	duelDistance = 30
)

// tuningGun is a weapon reduced to the damage pool a standoff needs.
type tuningGun struct {
	label string
	dice  int
}

var tuningGuns = []tuningGun{
	{label: "Heavy SMG", dice: gear.HeavySMG().DamageDice},
	{label: "Very Heavy Pistol", dice: gear.VeryHeavyPistol().DamageDice},
	{label: "Rifle", dice: gear.AssaultRifle().DamageDice},
}

var rifleDice = gear.AssaultRifle().DamageDice

func dvLabel(dv int) string { return fmt.Sprintf("DV %d", dv) }

func baseline(dice, modifier, dv int) standoff.Scenario {
	return standoff.Scenario{HP: enemyHP, Armor: enemyArmor, Dice: dice, Modifier: modifier, Difficulty: dv}
}

// compare runs each variant against a basic control and nests the results
// under node with the control first.
func compare(ctx context.Context, env Env, path []string, node *report.Node, control standoff.Scenario, variants ...namedScenario) error {
	node.Add(trialNode(control, true))
	for _, entry := range append([]namedScenario{{name: "basic", s: control}}, variants...) {
		leaf, _, err := standoffLeaf(ctx, env, path, entry.name, entry.s)
		if err != nil {
			return err
		}
		node.Add(leaf)
	}
	return nil
}

type namedScenario struct {
	name string
	s    standoff.Scenario
}

func withVariant(s standoff.Scenario, v standoff.Variant) standoff.Scenario {
	s.Variant = v
	return s
}

func armorPiercingStudy() Study {
	return Study{
		Name:        "armor-piercing",
		Description: "Hits to kill with armor-piercing rounds that strip two points of armor per penetration.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("armor-piercing")
			for _, gun := range tuningGuns {
				control := baseline(gun.dice, 0, 0)
				control.Measure = standoff.Hits
				path := []string{"armor-piercing", gun.label}
				if err := compare(ctx, env, path, root.Branch(gun.label), control,
					namedScenario{name: "ap", s: withVariant(control, standoff.ArmorPiercing)},
				); err != nil {
					return nil, err
				}
			}
			return root, nil
		},
	}
}

func incendiaryStudy() Study {
	return Study{
		Name:        "incendiary",
		Description: "Turns to kill when targets keep burning, and the share of turns spent putting the fire out.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("incendiary")
			const dv = 15
			for _, gun := range tuningGuns {
				control := baseline(gun.dice, tuningModifier, dv)
				path := []string{"incendiary", "Roll with It", gun.label}
				if err := compare(ctx, env, path, root.Branch("Roll with It").Branch(gun.label), control,
					namedScenario{name: "incendiary", s: withVariant(control, standoff.Incendiary)},
				); err != nil {
					return nil, err
				}
			}
			for _, gun := range tuningGuns {
				control := baseline(gun.dice, tuningModifier, dv)
				path := []string{"incendiary", "Put it Out", gun.label}
				node := root.Branch("Put it Out").Branch(gun.label).Add(trialNode(control, true))
				leaf, _, err := standoffLeaf(ctx, env, path, "incendiary", withVariant(control, standoff.IncendiaryPutOut))
				if err != nil {
					return nil, err
				}
				node.Add(leaf)
			}
			return root, nil
		},
	}
}

var smartDVs = []int{13, 15, 16, 17, 20}

func smartAmmoStudy() Study {
	return Study{
		Name:        "smart-ammo",
		Description: "Turns to kill with smart rounds that reroll near misses, for regular and aimed rifle shots.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("smart-ammo")
			shots := []struct {
				label    string
				modifier int
			}{
				{label: "Regular Shots", modifier: 13},
				{label: "Aimed Shots", modifier: 6},
			}
			for _, shot := range shots {
				for _, dv := range smartDVs {
					control := baseline(rifleDice, shot.modifier, dv)
					path := []string{"smart-ammo", shot.label, dvLabel(dv), "Rifle"}
					node := root.Branch(shot.label).Branch(dvLabel(dv)).Branch("Rifle")
					if err := compare(ctx, env, path, node, control,
						namedScenario{name: "smart", s: withVariant(control, standoff.SmartAmmo)},
					); err != nil {
						return nil, err
					}
				}
			}
			return root, nil
		},
	}
}

func homebrewCritStudy() Study {
	return Study{
		Name:        "homebrew-crit",
		Description: "Turns to kill when a critical hit deals 100 instead of 5.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("homebrew-crit")
			for _, dv := range []int{13, 15, 20} {
				for _, gun := range tuningGuns {
					control := baseline(gun.dice, tuningModifier, dv)
					path := []string{"homebrew-crit", dvLabel(dv), gun.label}
					if err := compare(ctx, env, path, root.Branch(dvLabel(dv)).Branch(gun.label), control,
						namedScenario{name: "homebrew", s: withVariant(control, standoff.HomebrewCrit)},
					); err != nil {
						return nil, err
					}
				}
			}
			return root, nil
		},
	}
}

// kerberosBand is a range band with its single-shot and autofire DVs.
type kerberosBand struct {
	label      string
	rifleDV    int
	autofireDV int
}

var kerberosBands = []kerberosBand{
	{label: "0-6m", rifleDV: 17, autofireDV: 22},
	{label: "7-12m", rifleDV: 16, autofireDV: 20},
	{label: "13-25m", rifleDV: 15, autofireDV: 17},
	{label: "26-50m", rifleDV: 13, autofireDV: 20},
}

func kerberosStudy() Study {
	return Study{
		Name:        "kerberos",
		Description: "A twin-shot 4d6 rifle against single shots and autofire at each range band.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			const modifier = 13
			root := report.New("kerberos")
			for _, band := range kerberosBands {
				path := []string{"kerberos", band.label}
				node := root.Branch(band.label)
				node.Add(report.New("trial").
					Set("hp", enemyHP).
					Set("armor", enemyArmor).
					Set("modifier", modifier).
					Set("range", band.label))

				autofire := baseline(2, modifier, band.autofireDV)
				autofire.Variant = standoff.Autofire
				autofire.Autofire = standoff.AutofireRules{MaxMultiplier: standoff.DefaultMaxMultiplier}

				twin := baseline(4, modifier, band.rifleDV)
				twin.RateOfFire = 2
				sloppy := twin
				sloppy.Modifier--

				for _, entry := range []namedScenario{
					{name: "basic", s: baseline(rifleDice, modifier, band.rifleDV)},
					{name: "autofire", s: autofire},
					{name: "kerberos", s: twin},
					{name: "Non-Excellent Kerberos", s: sloppy},
				} {
					leaf, _, err := standoffLeaf(ctx, env, path, entry.name, entry.s)
					if err != nil {
						return nil, err
					}
					node.Add(leaf)
				}
			}
			return root, nil
		},
	}
}

func headshotStudy() Study {
	return Study{
		Name:        "headshots",
		Description: "Aimed head shots that bypass armor and double damage, with and without smart rounds.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("headshots")
			for _, dv := range smartDVs {
				control := baseline(rifleDice, 13, dv)
				path := []string{"headshots", "Rifle", dvLabel(dv)}
				node := root.Branch("Rifle").Branch(dvLabel(dv)).Add(trialNode(control, true))
				for _, entry := range []namedScenario{
					{name: "Basic Body Shots", s: control},
					{name: "Basic Head Shots", s: withVariant(control, standoff.Headshot)},
					{name: "Smart Head Shots", s: withVariant(control, standoff.SmartHeadshot)},
				} {
					leaf, _, err := standoffLeaf(ctx, env, path, entry.name, entry.s)
					if err != nil {
						return nil, err
					}
					node.Add(leaf)
				}
			}
			return root, nil
		},
	}
}

func armorTierStudy() Study {
	return Study{
		Name:        "armor-tiers",
		Description: "Turns to kill through light, medium and heavy armor, and through light armor with a to-hit debuff.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("armor-tiers")
			for _, dv := range []int{15, 20} {
				for _, gun := range tuningGuns {
					path := []string{"armor-tiers", dvLabel(dv), gun.label}
					node, err := armorTiers(ctx, env, path, baseline(gun.dice, tuningModifier, dv))
					if err != nil {
						return nil, err
					}
					root.Branch(dvLabel(dv)).Add(node)
				}
			}
			return root, nil
		},
	}
}

// armorTiers compares turns to kill at +0, +1 and +2 armor and at a −2
// modifier, then reports each against the baseline.
func armorTiers(ctx context.Context, env Env, path []string, light standoff.Scenario) (*report.Node, error) {
	medium, heavy, debuff := light, light, light
	medium.Armor++
	heavy.Armor += 2
	debuff.Modifier -= 2

	node := report.New(path[len(path)-1]).Add(trialNode(light, false))
	summaries := make([]stats.Summary, 0, 4)
	for _, entry := range []namedScenario{
		{name: fmt.Sprintf("%d SP", light.Armor), s: light},
		{name: fmt.Sprintf("%d SP", medium.Armor), s: medium},
		{name: fmt.Sprintf("%d SP", heavy.Armor), s: heavy},
		{name: fmt.Sprintf("%d SP with debuff", light.Armor), s: debuff},
	} {
		leaf, summary, err := standoffLeaf(ctx, env, path, entry.name, entry.s)
		if err != nil {
			return nil, err
		}
		node.Add(leaf)
		summaries = append(summaries, summary)
	}
	node.Add(report.Leaf("analysis", report.Fields{
		{Label: "medium", Value: stats.Ratio(summaries[1], summaries[0])},
		{Label: "heavy", Value: stats.Ratio(summaries[2], summaries[0])},
		{Label: "debuff", Value: stats.Ratio(summaries[3], summaries[0])},
	}))
	return node, nil
}

// Armor weight classes for the duel studies. Heavier armor costs initiative
// and evade.
func lightFighter(name string, evade int, dodge bool, gun gear.Gun) duel.Combatant {
	return duel.Combatant{
		Name: name, HP: enemyHP, BodyArmor: 11, Speed: 6,
		Skills: duel.Skills{Initiative: 8, Shoot: 10, Melee: 10, Evade: evade, CanDodgeBullets: dodge},
		Gun:    &gun,
	}
}

func mediumFighter(name string, evade int, dodge bool, gun gear.Gun) duel.Combatant {
	c := lightFighter(name, evade-2, dodge, gun)
	c.BodyArmor = 13
	c.Skills.Initiative = 6
	return c
}

func heavyFighter(name string, evade int, dodge bool, gun gear.Gun) duel.Combatant {
	c := lightFighter(name, evade-4, dodge, gun)
	c.BodyArmor = 15
	c.Skills.Initiative = 4
	return c
}

func withSword(c duel.Combatant) duel.Combatant {
	sword := gear.Katana()
	c.Sword = &sword
	return c
}

func armorDodgeStudy() Study {
	return Study{
		Name:        "armor-dodge",
		Description: "Win rates of dodging or armored riflemen against a light rifleman across evade ratings.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New("armor-dodge")
			for _, group := range []struct {
				label string
				dodge bool
			}{
				{label: "armor can dodge", dodge: true},
				{label: "armor cannot dodge", dodge: false},
			} {
				for _, evade := range []int{10, 12, 14} {
					gun := gear.AssaultRifle()
					if group.dodge && evade == 10 {
						gun = gear.VeryHeavyPistol()
					}
					row := fmt.Sprintf("%d evade", evade)
					path := []string{"armor-dodge", group.label, row}
					node := root.Branch(group.label).Branch(row)

					light := lightFighter("Light Rifleman", evade, false, gun)
					for _, entry := range []struct {
						label string
						rival duel.Combatant
					}{
						{label: "laj", rival: lightFighter("Light Dodge Rifleman", evade, true, gun)},
						{label: "haj", rival: mediumFighter("Medium Rifleman", evade, group.dodge, gun)},
						{label: "flak", rival: heavyFighter("Heavy Rifleman", evade, group.dodge, gun)},
					} {
						tally, err := simulateDuel(ctx, env, child(path, entry.label), duelDistance, light, entry.rival)
						if err != nil {
							return nil, err
						}
						node.Set(entry.label, stats.Round2(tally.TwoPercent()))
					}
				}
			}
			return root, nil
		},
	}
}

func meleeMatchupStudy() Study {
	return Study{
		Name:        "melee-matchups",
		Description: "Win rates of swordsmen and riflemen against common loadouts.",
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			rifle, shotgun := gear.AssaultRifle(), gear.Shotgun()
			pistol, vhp := gear.HeavyPistol(), gear.VeryHeavyPistol()

			heavySword := withSword(mediumFighter("Heavy Armorjack Swordsman", 10, false, pistol))
			dodgeSword := withSword(lightFighter("Light Armorjack Dodge Swordsman", 10, true, pistol))
			heavyRifle := mediumFighter("Heavy Armorjack Rifleman", 10, false, rifle)
			dodgeRifle := lightFighter("Light Armorjack Dodge Rifleman", 10, true, rifle)

			dodgingRivals := []duel.Combatant{
				lightFighter("Light Armorjack Rifleman", 10, true, rifle),
				lightFighter("Light Armorjack Shotgun", 10, true, shotgun),
				withSword(lightFighter("Light Armorjack Swordsman", 10, true, pistol)),
			}
			standingRivals := []duel.Combatant{
				lightFighter("Light Armorjack Rifleman", 10, false, rifle),
				lightFighter("Light Armorjack Shotgun", 10, false, shotgun),
				withSword(lightFighter("Light Armorjack VHP n Sword", 10, false, vhp)),
			}
			rivalLabels := map[string]string{
				"Light Armorjack Rifleman":    "Rifle",
				"Light Armorjack Shotgun":     "Shotgun",
				"Light Armorjack Swordsman":   "Light Sword",
				"Light Armorjack VHP n Sword": "VHP n Sword",
			}

			root := report.New("melee-matchups")
			for _, group := range []struct {
				label  string
				one    duel.Combatant
				rivals []duel.Combatant
			}{
				{label: "Heavy Sword", one: heavySword, rivals: dodgingRivals},
				{label: "Dodge Sword", one: dodgeSword, rivals: dodgingRivals},
				{label: "Heavy Rifle", one: heavyRifle, rivals: standingRivals},
				{label: "Dodge Rifle", one: dodgeRifle, rivals: standingRivals},
			} {
				for _, rival := range group.rivals {
					label := group.label + " vs " + rivalLabels[rival.Name]
					tally, err := simulateDuel(ctx, env, []string{"melee-matchups", label}, duelDistance, group.one, rival)
					if err != nil {
						return nil, err
					}
					root.Set(label, report.Fields{
						{Label: tally.OneName, Value: stats.Round2(tally.OnePercent())},
						{Label: tally.TwoName, Value: stats.Round2(tally.TwoPercent())},
					})
				}
			}
			return root, nil
		},
	}
}
