// Package duel simulates two-combatant engagements with initiative, movement,
// range bands, reloads, and reciprocal ranged or melee attacks.
package duel

import (
	"context"
	"errors"
	"fmt"

	"github.com/louisbranch/combatsim/internal/sim/dice"
	"github.com/louisbranch/combatsim/internal/sim/gear"
	"github.com/louisbranch/combatsim/internal/sim/trial"
)

const (
	// critDamage is the extra hp lost on a critical damage roll.
	critDamage = 5
	// woundedPenalty applies to every roll made by or against a wounded combatant.
	woundedPenalty = 2
)

var (
	// ErrInvalidCombatant indicates a combatant template cannot fight.
	ErrInvalidCombatant = errors.New("invalid combatant")
	// ErrNoWeapon indicates a combatant carries neither a gun nor a sword.
	ErrNoWeapon = errors.New("combatant needs a gun or a sword")
	// ErrInvalidConfig indicates the duel configuration is unusable.
	ErrInvalidConfig = errors.New("invalid duel config")
)

// Config holds the tunable constants of the duel kernel.
type Config struct {
	// Trials is the number of engagements per matchup.
	Trials int
	// DodgeThreshold lets a dodging defender contest a shot when
	// evade + DodgeThreshold reaches the range difficulty.
	DodgeThreshold int
	// RunThreshold makes a shooter sprint instead of firing when the range
	// difficulty exceeds it.
	RunThreshold int
	// StartingDistance is the opening range in meters.
	StartingDistance int
	// MaxRounds ends a stalled engagement as a draw.
	MaxRounds int
}

// DefaultConfig returns the balance constants used by the rules designers.
func DefaultConfig() Config {
	return Config{
		Trials:           1000,
		DodgeThreshold:   4,
		RunThreshold:     20,
		StartingDistance: gear.MaxRange,
		MaxRounds:        1000,
	}
}

// Validate reports whether cfg can drive an engagement.
func (c Config) Validate() error {
	switch {
	case c.Trials <= 0:
		return fmt.Errorf("%w: trials must be positive", ErrInvalidConfig)
	case c.MaxRounds <= 0:
		return fmt.Errorf("%w: max rounds must be positive", ErrInvalidConfig)
	case c.StartingDistance < 0 || c.StartingDistance > gear.MaxRange:
		return fmt.Errorf("%w: starting distance %dm: %w", ErrInvalidConfig, c.StartingDistance, gear.ErrOutOfRange)
	}
	return nil
}

// Skills are the combatant ratings added to checks.
type Skills struct {
	Initiative      int
	Shoot           int
	Melee           int
	Evade           int
	CanDodgeBullets bool
}

// Combatant is an immutable fighter template.
type Combatant struct {
	Name      string
	HP        int
	BodyArmor int
	Speed     int
	Skills    Skills
	Gun       *gear.Gun
	Sword     *gear.Sword
}

// Validate reports whether the combatant can take part in a duel.
func (c Combatant) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidCombatant)
	case c.HP <= 0:
		return fmt.Errorf("%w: %s: hp must be positive", ErrInvalidCombatant, c.Name)
	case c.BodyArmor < 0:
		return fmt.Errorf("%w: %s: body armor cannot be negative", ErrInvalidCombatant, c.Name)
	case c.Speed < 0:
		return fmt.Errorf("%w: %s: speed cannot be negative", ErrInvalidCombatant, c.Name)
	case c.Gun == nil && c.Sword == nil:
		return fmt.Errorf("%w: %s", ErrNoWeapon, c.Name)
	}
	if c.Gun != nil {
		if err := c.Gun.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidCombatant, c.Name, err)
		}
	}
	if c.Sword != nil {
		if err := c.Sword.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidCombatant, c.Name, err)
		}
	}
	return nil
}

// Winner identifies who survived an engagement.
type Winner int

const (
	// WinnerNone marks an engagement that hit the round cap.
	WinnerNone Winner = iota
	WinnerOne
	WinnerTwo
)

func (w Winner) String() string {
	switch w {
	case WinnerNone:
		return "Draw"
	case WinnerOne:
		return "One"
	case WinnerTwo:
		return "Two"
	default:
		return "Unknown"
	}
}

// Tally counts engagement winners by the combatants' original identity.
type Tally struct {
	OneName string
	TwoName string
	One     int
	Two     int
	Draws   int
	Trials  int
}

// OnePercent returns the first combatant's win percentage.
func (t Tally) OnePercent() float64 {
	return percent(t.One, t.Trials)
}

// TwoPercent returns the second combatant's win percentage.
func (t Tally) TwoPercent() float64 {
	return percent(t.Two, t.Trials)
}

// Percent returns the win percentage of the combatant called name.
func (t Tally) Percent(name string) (float64, bool) {
	switch name {
	case t.OneName:
		return t.OnePercent(), true
	case t.TwoName:
		return t.TwoPercent(), true
	default:
		return 0, false
	}
}

func percent(wins, trials int) float64 {
	if trials == 0 {
		return 0
	}
	return float64(wins) / float64(trials) * 100
}

// Simulate runs cfg.Trials engagements between one and two. The name keys
// the random streams; an empty name uses "<one> vs <two>".
func Simulate(ctx context.Context, r trial.Runner, name string, cfg Config, one, two Combatant) (Tally, error) {
	if err := cfg.Validate(); err != nil {
		return Tally{}, err
	}
	if err := one.Validate(); err != nil {
		return Tally{}, err
	}
	if err := two.Validate(); err != nil {
		return Tally{}, err
	}

	if name == "" {
		name = one.Name + " vs " + two.Name
	}
	winners, err := trial.Collect(ctx, r.WithTrials(cfg.Trials), name, func(src dice.Source) (Winner, error) {
		return fight(src, cfg, &one, &two)
	})
	if err != nil {
		return Tally{}, err
	}

	tally := Tally{OneName: one.Name, TwoName: two.Name, Trials: cfg.Trials}
	for _, w := range winners {
		switch w {
		case WinnerOne:
			tally.One++
		case WinnerTwo:
			tally.Two++
		default:
			tally.Draws++
		}
	}
	return tally, nil
}

// Fight runs a single engagement between one and two.
func Fight(src dice.Source, cfg Config, one, two Combatant) (Winner, error) {
	if err := cfg.Validate(); err != nil {
		return WinnerNone, err
	}
	if err := one.Validate(); err != nil {
		return WinnerNone, err
	}
	if err := two.Validate(); err != nil {
		return WinnerNone, err
	}
	return fight(src, cfg, &one, &two)
}

func fight(src dice.Source, cfg Config, one, two *Combatant) (Winner, error) {
	a, b := newFighter(one), newFighter(two)
	lead, trail, leadIsOne := rollInitiative(src, a, b)

	distance := cfg.StartingDistance
	for round := 0; lead.hp > 0 && trail.hp > 0; round++ {
		if round >= cfg.MaxRounds {
			return WinnerNone, nil
		}
		if err := act(src, cfg, lead, trail, &distance); err != nil {
			return WinnerNone, err
		}
		if trail.hp > 0 {
			if err := act(src, cfg, trail, lead, &distance); err != nil {
				return WinnerNone, err
			}
		}
	}

	if lead.hp > 0 {
		if leadIsOne {
			return WinnerOne, nil
		}
		return WinnerTwo, nil
	}
	if leadIsOne {
		return WinnerTwo, nil
	}
	return WinnerOne, nil
}

// rollInitiative rerolls ties until one side leads for the whole engagement.
func rollInitiative(src dice.Source, one, two *fighter) (lead, trail *fighter, leadIsOne bool) {
	for {
		a := dice.RollCheck(src) + one.c.Skills.Initiative
		b := dice.RollCheck(src) + two.c.Skills.Initiative
		switch {
		case a > b:
			return one, two, true
		case b > a:
			return two, one, false
		}
	}
}
