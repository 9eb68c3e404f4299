// Package standoff measures how long a single shooter takes to drop a
// stationary target. Rule variants share one loop and differ only in the
// hooks they install.
package standoff

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/combatsim/internal/sim/dice"
	"github.com/louisbranch/combatsim/internal/sim/stats"
	"github.com/louisbranch/combatsim/internal/sim/trial"
)

const (
	// DefaultMaxTurns bounds a single trial. Validate rejects magazines that
	// can never fire a volley, so only a capacitor whose charge is below the
	// rate of fire still reaches it.
	DefaultMaxTurns = 10000
	// DefaultBurstSize is the ammo an autofire burst consumes.
	DefaultBurstSize = 10
	// DefaultMaxMultiplier caps the autofire damage multiplier.
	DefaultMaxMultiplier = 4
)

var (
	// ErrInvalidScenario indicates a standoff configuration cannot run.
	ErrInvalidScenario = errors.New("invalid standoff scenario")
	// ErrStalled indicates a trial hit the turn cap without a kill.
	ErrStalled = errors.New("standoff stalled before the target dropped")
)

// Variant selects the rule hooks applied by the kernel.
type Variant int

const (
	Basic Variant = iota
	ArmorPiercing
	Incendiary
	IncendiaryPutOut
	SmartAmmo
	Headshot
	SmartHeadshot
	Autofire
	CapacitorGated
	HomebrewCrit
)

var variantNames = map[Variant]string{
	Basic:            "basic",
	ArmorPiercing:    "armor-piercing",
	Incendiary:       "incendiary",
	IncendiaryPutOut: "incendiary-put-out",
	SmartAmmo:        "smart",
	Headshot:         "headshot",
	SmartHeadshot:    "smart-headshot",
	Autofire:         "autofire",
	CapacitorGated:   "capacitor",
	HomebrewCrit:     "homebrew-crit",
}

func (v Variant) String() string {
	if name, ok := variantNames[v]; ok {
		return name
	}
	return fmt.Sprintf("variant(%d)", int(v))
}

// ParseVariant resolves a variant by its String form.
func ParseVariant(name string) (Variant, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Basic, nil
	}
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return Basic, fmt.Errorf("%w: unknown variant %q", ErrInvalidScenario, name)
}

// Measure selects what a trial reports.
type Measure int

const (
	// Turns counts turns until the target drops.
	Turns Measure = iota
	// Hits skips the to-hit roll and counts damage rolls until the target drops.
	Hits
)

func (m Measure) String() string {
	switch m {
	case Turns:
		return "turns"
	case Hits:
		return "hits"
	default:
		return fmt.Sprintf("measure(%d)", int(m))
	}
}

// ParseMeasure resolves a measure by its String form.
func ParseMeasure(name string) (Measure, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "turns":
		return Turns, nil
	case "hits":
		return Hits, nil
	default:
		return Turns, fmt.Errorf("%w: unknown measure %q", ErrInvalidScenario, name)
	}
}

// AutofireRules tune the burst variant.
type AutofireRules struct {
	// GuaranteedBonus is added to the hit margin before capping.
	GuaranteedBonus int
	// MaxMultiplier caps the damage multiplier.
	MaxMultiplier int
	// RollAllDice rolls multiplier × Dice dice instead of scaling one pool.
	RollAllDice bool
	// BurstSize is the ammo spent per burst when a magazine is set.
	BurstSize int
}

// CapacitorRules tune the capacitor-gated variant.
type CapacitorRules struct {
	// Charge is the capacitor value restored on every recharge. Firing does
	// not drain it.
	Charge int
	// ArmorIgnored comes off the armor for the penetration test only.
	ArmorIgnored int
	// ArmorDestroyed comes off the armor on every penetration.
	ArmorDestroyed int
}

// Scenario is an immutable standoff configuration.
type Scenario struct {
	HP         int
	Armor      int
	Dice       int
	Modifier   int
	Difficulty int
	// RateOfFire is the number of attacks per turn. Zero means one.
	RateOfFire int
	// Magazine gates shots on ammo when positive.
	Magazine int
	// ReloadTurns is the number of turns a reload takes. Zero means one.
	ReloadTurns int
	Measure     Measure
	Variant     Variant
	Autofire    AutofireRules
	Capacitor   CapacitorRules
	// MaxTurns fails a trial with ErrStalled. Zero means DefaultMaxTurns.
	MaxTurns int
}

// Label names the statistic a scenario's outcome represents.
func (s Scenario) Label() string {
	switch {
	case s.Variant == IncendiaryPutOut:
		return "Percent of Turns Stunned before Killed"
	case s.Measure == Hits:
		return "Average Hits to Kill"
	default:
		return "Turns to Kill"
	}
}

func (s Scenario) withDefaults() Scenario {
	if s.RateOfFire == 0 {
		s.RateOfFire = 1
	}
	if s.ReloadTurns == 0 {
		s.ReloadTurns = 1
	}
	if s.MaxTurns == 0 {
		s.MaxTurns = DefaultMaxTurns
	}
	if s.Autofire.BurstSize == 0 {
		s.Autofire.BurstSize = DefaultBurstSize
	}
	if s.Autofire.MaxMultiplier == 0 {
		s.Autofire.MaxMultiplier = DefaultMaxMultiplier
	}
	if s.Capacitor.ArmorDestroyed == 0 {
		s.Capacitor.ArmorDestroyed = 1
	}
	return s
}

// shotCost is the ammo one attack spends.
func (s Scenario) shotCost() int {
	if s.Variant == Autofire {
		return s.Autofire.BurstSize
	}
	return 1
}

// Validate reports whether the scenario can run.
func (s Scenario) Validate() error {
	s = s.withDefaults()
	switch {
	case s.HP <= 0:
		return fmt.Errorf("%w: hp must be positive", ErrInvalidScenario)
	case s.Armor < 0:
		return fmt.Errorf("%w: armor cannot be negative", ErrInvalidScenario)
	case s.Dice <= 0:
		return fmt.Errorf("%w: dice must be positive", ErrInvalidScenario)
	case s.RateOfFire < 0:
		return fmt.Errorf("%w: rate of fire cannot be negative", ErrInvalidScenario)
	case s.Magazine < 0:
		return fmt.Errorf("%w: magazine cannot be negative", ErrInvalidScenario)
	case s.ReloadTurns < 0:
		return fmt.Errorf("%w: reload turns cannot be negative", ErrInvalidScenario)
	case s.MaxTurns < 0:
		return fmt.Errorf("%w: max turns cannot be negative", ErrInvalidScenario)
	case s.Measure != Turns && s.Measure != Hits:
		return fmt.Errorf("%w: %s", ErrInvalidScenario, s.Measure)
	case s.Variant < Basic || s.Variant > HomebrewCrit:
		return fmt.Errorf("%w: %s", ErrInvalidScenario, s.Variant)
	}
	if volley := s.RateOfFire * s.shotCost(); s.Measure == Turns && s.Magazine > 0 && s.Magazine < volley {
		return fmt.Errorf("%w: magazine of %d cannot fire a volley of %d", ErrInvalidScenario, s.Magazine, volley)
	}
	switch s.Variant {
	case Autofire:
		if s.Measure == Hits {
			return fmt.Errorf("%w: autofire needs a to-hit margin and cannot count hits", ErrInvalidScenario)
		}
		if s.Autofire.MaxMultiplier < 1 || s.Autofire.BurstSize < 1 {
			return fmt.Errorf("%w: autofire multiplier and burst must be positive", ErrInvalidScenario)
		}
	case CapacitorGated:
		if s.Capacitor.Charge <= 0 {
			return fmt.Errorf("%w: capacitor charge must be positive", ErrInvalidScenario)
		}
		if s.Capacitor.ArmorIgnored < 0 || s.Capacitor.ArmorDestroyed < 0 {
			return fmt.Errorf("%w: capacitor armor values cannot be negative", ErrInvalidScenario)
		}
	}
	return nil
}

// Run samples r.Trials standoffs and aggregates their outcomes.
func Run(ctx context.Context, r trial.Runner, name string, s Scenario) (stats.Summary, error) {
	if err := s.Validate(); err != nil {
		return stats.Summary{}, fmt.Errorf("%s: %w", name, err)
	}
	k := compile(s.withDefaults())
	return trial.Summarize(ctx, r, name, k.run)
}

// Trial runs a single standoff and returns its outcome.
func Trial(src dice.Source, s Scenario) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return compile(s.withDefaults()).run(src)
}
