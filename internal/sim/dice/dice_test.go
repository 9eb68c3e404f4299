package dice

import (
	"errors"
	"testing"

	"github.com/louisbranch/combatsim/internal/sim/dice/dicetest"
)

func TestRollCheck(t *testing.T) {
	tcs := []struct {
		name     string
		faces    []int
		want     int
		consumed int
	}{
		{name: "explodes up on ten", faces: []int{10, 7}, want: 17, consumed: 2},
		{name: "explodes down on one", faces: []int{1, 3}, want: -2, consumed: 2},
		{name: "fumble can reach minus nine", faces: []int{1, 10}, want: -9, consumed: 2},
		{name: "plain face", faces: []int{5, 9}, want: 5, consumed: 1},
		{name: "nine does not explode", faces: []int{9, 9}, want: 9, consumed: 1},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			src := dicetest.NewSequence(tc.faces...)
			got := RollCheck(src)
			if got != tc.want {
				t.Fatalf("RollCheck = %d, want %d", got, tc.want)
			}
			if src.Consumed() != tc.consumed {
				t.Fatalf("consumed %d draws, want %d", src.Consumed(), tc.consumed)
			}
		})
	}
}

func TestRollPoolCrit(t *testing.T) {
	tcs := []struct {
		name      string
		faces     []int
		sides     int
		wantTotal int
		wantCrit  bool
	}{
		{name: "two sixes crit", faces: []int{6, 2, 6}, sides: 6, wantTotal: 14, wantCrit: true},
		{name: "one six is not a crit", faces: []int{6, 2, 3}, sides: 6, wantTotal: 11, wantCrit: false},
		{name: "three sixes crit", faces: []int{6, 6, 6}, sides: 6, wantTotal: 18, wantCrit: true},
		{name: "sixes on a d10 still count", faces: []int{6, 6, 10}, sides: 10, wantTotal: 22, wantCrit: true},
		{name: "tens on a d10 do not count", faces: []int{10, 10}, sides: 10, wantTotal: 20, wantCrit: false},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RollPool(dicetest.NewSequence(tc.faces...), len(tc.faces), tc.sides)
			if err != nil {
				t.Fatalf("RollPool returned error: %v", err)
			}
			if got.Total != tc.wantTotal {
				t.Fatalf("total = %d, want %d", got.Total, tc.wantTotal)
			}
			if got.Crit != tc.wantCrit {
				t.Fatalf("crit = %v, want %v", got.Crit, tc.wantCrit)
			}
		})
	}
}

func TestRollPoolBounds(t *testing.T) {
	src := NewSource(7, 0)
	for count := 1; count <= 8; count++ {
		for i := 0; i < 500; i++ {
			got, err := RollPool(src, count, DamageSides)
			if err != nil {
				t.Fatalf("RollPool returned error: %v", err)
			}
			if got.Total < count || got.Total > count*DamageSides {
				t.Fatalf("%dd6 total %d out of [%d, %d]", count, got.Total, count, count*DamageSides)
			}
			if got.Crit != (got.Sixes >= 2) {
				t.Fatalf("crit %v does not match %d sixes", got.Crit, got.Sixes)
			}
		}
	}
}

func TestRollPoolRejectsInvalidSpec(t *testing.T) {
	tcs := []struct {
		count int
		sides int
	}{
		{count: -1, sides: 6},
		{count: 2, sides: 0},
		{count: 2, sides: -6},
	}

	for _, tc := range tcs {
		_, err := RollPool(NewSource(1, 0), tc.count, tc.sides)
		if !errors.Is(err, ErrInvalidDiceSpec) {
			t.Fatalf("RollPool(%d, %d) error = %v, want %v", tc.count, tc.sides, err, ErrInvalidDiceSpec)
		}
	}
}

func TestRollDamageEmptyPool(t *testing.T) {
	src := dicetest.NewSequence()
	if got := RollDamage(src, 0); got != (Damage{}) {
		t.Fatalf("RollDamage(0) = %+v, want zero", got)
	}
	if src.Consumed() != 0 {
		t.Fatalf("empty pool consumed %d draws", src.Consumed())
	}
}

func TestNewSourceDeterministic(t *testing.T) {
	a := NewSource(42, 3)
	b := NewSource(42, 3)
	for i := 0; i < 50; i++ {
		if x, y := RollCheck(a), RollCheck(b); x != y {
			t.Fatalf("roll %d: got %d and %d from same seed", i, x, y)
		}
	}
}

func TestRollCheckRange(t *testing.T) {
	src := NewSource(99, 0)
	for i := 0; i < 5000; i++ {
		got := RollCheck(src)
		if got < -9 || got > 20 || got == 1 || got == 10 {
			t.Fatalf("RollCheck produced impossible value %d", got)
		}
	}
}
