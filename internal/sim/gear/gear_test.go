package gear

import (
	"errors"
	"testing"
)

func TestRangeTableBands(t *testing.T) {
	table := NewRangeTable(11, 12, 13, 14, 15)
	tcs := []struct {
		distance int
		want     int
	}{
		{0, 11}, {3, 11},
		{4, 12}, {6, 12},
		{7, 13}, {12, 13},
		{13, 14}, {25, 14},
		{26, 15}, {50, 15},
	}

	for _, tc := range tcs {
		got, err := table.Difficulty(tc.distance)
		if err != nil {
			t.Fatalf("Difficulty(%d) error: %v", tc.distance, err)
		}
		if got != tc.want {
			t.Fatalf("Difficulty(%d) = %d, want %d", tc.distance, got, tc.want)
		}
	}
}

func TestRangeTableRejectsOutOfContract(t *testing.T) {
	table := AssaultRifle().Range
	for _, distance := range []int{-1, 51, 100} {
		if _, err := table.Difficulty(distance); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("Difficulty(%d) error = %v, want %v", distance, err, ErrOutOfRange)
		}
	}
}

func TestCatalogWeaponsValidate(t *testing.T) {
	for _, name := range GunNames() {
		gun, err := LookupGun(name)
		if err != nil {
			t.Fatalf("lookup %q: %v", name, err)
		}
		if err := gun.Validate(); err != nil {
			t.Fatalf("catalog gun %q invalid: %v", name, err)
		}
	}
	for _, name := range SwordNames() {
		sword, err := LookupSword(name)
		if err != nil {
			t.Fatalf("lookup %q: %v", name, err)
		}
		if err := sword.Validate(); err != nil {
			t.Fatalf("catalog sword %q invalid: %v", name, err)
		}
	}
}

func TestLookupNormalizesNames(t *testing.T) {
	gun, err := LookupGun(" Very_Heavy-Pistol ")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if gun.Name != "VHP" {
		t.Fatalf("gun = %q, want VHP", gun.Name)
	}
	if _, err := LookupGun("railgun"); err == nil {
		t.Fatal("expected unknown gun error")
	}
	if _, err := LookupSword("spoon"); err == nil {
		t.Fatal("expected unknown sword error")
	}
}

func TestGunValidate(t *testing.T) {
	tcs := []Gun{
		{Name: "no dice", RateOfFire: 1, MaxAmmo: 1},
		{Name: "no rof", DamageDice: 1, MaxAmmo: 1},
		{Name: "tiny mag", DamageDice: 1, RateOfFire: 3, MaxAmmo: 2},
		{Name: "inverted", DamageDice: 1, RateOfFire: 1, MaxAmmo: 1, BestRangeLow: 5, BestRangeHigh: 2},
	}
	for _, tc := range tcs {
		if err := tc.Validate(); err == nil {
			t.Fatalf("expected %q to be invalid", tc.Name)
		}
	}
}
