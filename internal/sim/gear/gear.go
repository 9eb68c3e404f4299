// Package gear defines the weapons carried into a duel and their range tables.
package gear

import (
	"errors"
	"fmt"
)

// MaxRange is the farthest distance, in meters, a range table covers.
const MaxRange = 50

// ErrOutOfRange indicates a range lookup outside the table's bands.
var ErrOutOfRange = errors.New("distance is outside the range table")

// rangeBands are the inclusive upper bounds of each band, in meters.
var rangeBands = [...]int{3, 6, 12, 25, MaxRange}

// RangeTable maps distance bands to shot difficulty values.
//
// Bands are ≤3, ≤6, ≤12, ≤25 and ≤50 meters.
type RangeTable [len(rangeBands)]int

// NewRangeTable builds a table from one difficulty per band, nearest first.
func NewRangeTable(upTo3, upTo6, upTo12, upTo25, upTo50 int) RangeTable {
	return RangeTable{upTo3, upTo6, upTo12, upTo25, upTo50}
}

// Difficulty returns the difficulty value at distance meters.
func (t RangeTable) Difficulty(distance int) (int, error) {
	if distance < 0 {
		return 0, fmt.Errorf("%w: %dm", ErrOutOfRange, distance)
	}
	for i, limit := range rangeBands {
		if distance <= limit {
			return t[i], nil
		}
	}
	return 0, fmt.Errorf("%w: %dm beyond %dm", ErrOutOfRange, distance, MaxRange)
}

// Gun is a ranged weapon template.
type Gun struct {
	Name          string
	DamageDice    int
	RateOfFire    int
	MaxAmmo       int
	BestRangeLow  int
	BestRangeHigh int
	Range         RangeTable
	// AutoFire marks burst-capable guns. The duel kernel does not use it.
	AutoFire bool
}

// Validate reports whether the gun can be fired by a kernel.
func (g Gun) Validate() error {
	switch {
	case g.DamageDice <= 0:
		return fmt.Errorf("gun %q: damage dice must be positive", g.Name)
	case g.RateOfFire <= 0:
		return fmt.Errorf("gun %q: rate of fire must be positive", g.Name)
	case g.MaxAmmo < g.RateOfFire:
		return fmt.Errorf("gun %q: max ammo %d cannot feed a volley of %d", g.Name, g.MaxAmmo, g.RateOfFire)
	case g.BestRangeLow > g.BestRangeHigh:
		return fmt.Errorf("gun %q: best range %d-%d is inverted", g.Name, g.BestRangeLow, g.BestRangeHigh)
	}
	return nil
}

// Sword is a melee weapon template.
type Sword struct {
	Name       string
	DamageDice int
	RateOfFire int
}

// Validate reports whether the sword can be swung by a kernel.
func (s Sword) Validate() error {
	switch {
	case s.DamageDice <= 0:
		return fmt.Errorf("sword %q: damage dice must be positive", s.Name)
	case s.RateOfFire <= 0:
		return fmt.Errorf("sword %q: rate of fire must be positive", s.Name)
	}
	return nil
}
