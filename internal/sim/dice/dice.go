// Package dice implements the rolling primitives shared by every combat kernel.
package dice

import (
	"errors"
	"math/rand/v2"
)

const (
	// CheckSides is the die rolled for skill checks.
	CheckSides = 10
	// DamageSides is the die rolled for damage pools.
	DamageSides = 6
	// critFace is the face counted toward a critical hit, whatever the die size.
	critFace = 6
	// critSixes is how many crit faces a pool needs to be a critical hit.
	critSixes = 2
)

// ErrInvalidDiceSpec indicates a pool request has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and non-negative count")

// Source is the uniform randomness consumed by the primitives.
//
// *rand.Rand from math/rand/v2 satisfies Source.
type Source interface {
	// IntN returns a uniform int in [0, n). n is always positive.
	IntN(n int) int
}

// NewSource returns a PCG-backed source for the given seed and stream.
//
// Two sources built from the same seed and stream produce the same sequence.
func NewSource(seed, stream uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, stream))
}

// Damage captures one damage pool roll.
type Damage struct {
	Total int
	Sixes int
	Crit  bool
}

// RollCheck performs an exploding d10 skill check.
//
// A 10 rolls again and adds, a 1 rolls again and subtracts. Any other face
// is returned as is without consuming a second draw.
func RollCheck(src Source) int {
	first := roll(src, CheckSides)
	switch first {
	case CheckSides:
		return first + roll(src, CheckSides)
	case 1:
		return first - roll(src, CheckSides)
	default:
		return first
	}
}

// RollPool rolls count dice with the given number of sides.
//
// Faces showing 6 are counted regardless of sides, and the roll is a crit
// when at least two of them come up.
func RollPool(src Source, count, sides int) (Damage, error) {
	if count < 0 || sides <= 0 {
		return Damage{}, ErrInvalidDiceSpec
	}
	return rollPool(src, count, sides), nil
}

// RollDamage rolls a d6 damage pool. A non-positive count rolls nothing.
func RollDamage(src Source, count int) Damage {
	if count <= 0 {
		return Damage{}
	}
	return rollPool(src, count, DamageSides)
}

func rollPool(src Source, count, sides int) Damage {
	var dmg Damage
	for i := 0; i < count; i++ {
		face := roll(src, sides)
		if face == critFace {
			dmg.Sixes++
		}
		dmg.Total += face
	}
	dmg.Crit = dmg.Sixes >= critSixes
	return dmg
}

// roll rolls a die with the provided number of sides.
func roll(src Source, sides int) int {
	return src.IntN(sides) + 1
}
