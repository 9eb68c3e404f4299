package gear

import (
	"fmt"
	"sort"
	"strings"
)

var (
	pistolRange = NewRangeTable(13, 15, 20, 25, 30)
	smgRange    = NewRangeTable(15, 13, 15, 20, 25)
	rifleRange  = NewRangeTable(17, 16, 15, 13, 15)
)

// HeavyPistol returns the heavy pistol template.
func HeavyPistol() Gun {
	return Gun{Name: "HP", DamageDice: 3, RateOfFire: 2, MaxAmmo: 8, BestRangeLow: 0, BestRangeHigh: 3, Range: pistolRange}
}

// VeryHeavyPistol returns the very heavy pistol template.
func VeryHeavyPistol() Gun {
	return Gun{Name: "VHP", DamageDice: 4, RateOfFire: 1, MaxAmmo: 8, BestRangeLow: 0, BestRangeHigh: 3, Range: pistolRange}
}

// SMG returns the submachine gun template.
func SMG() Gun {
	return Gun{Name: "smg", DamageDice: 2, RateOfFire: 1, MaxAmmo: 30, BestRangeLow: 4, BestRangeHigh: 6, Range: smgRange}
}

// HeavySMG returns the heavy submachine gun template.
func HeavySMG() Gun {
	return Gun{Name: "hsmg", DamageDice: 3, RateOfFire: 1, MaxAmmo: 40, BestRangeLow: 4, BestRangeHigh: 6, Range: smgRange}
}

// Shotgun returns the shotgun template.
func Shotgun() Gun {
	return Gun{Name: "shotty", DamageDice: 5, RateOfFire: 1, MaxAmmo: 4, BestRangeLow: 0, BestRangeHigh: 3, Range: pistolRange}
}

// AssaultRifle returns the assault rifle template.
func AssaultRifle() Gun {
	return Gun{Name: "AR", DamageDice: 5, RateOfFire: 1, MaxAmmo: 25, BestRangeLow: 13, BestRangeHigh: 25, Range: rifleRange}
}

// Katana returns the katana template.
func Katana() Sword {
	return Sword{Name: "katana", DamageDice: 3, RateOfFire: 2}
}

var guns = map[string]func() Gun{
	"heavy-pistol":      HeavyPistol,
	"very-heavy-pistol": VeryHeavyPistol,
	"smg":               SMG,
	"heavy-smg":         HeavySMG,
	"shotgun":           Shotgun,
	"rifle":             AssaultRifle,
}

var swords = map[string]func() Sword{
	"katana": Katana,
}

// LookupGun returns the catalog gun registered under name.
func LookupGun(name string) (Gun, error) {
	build, ok := guns[normalizeName(name)]
	if !ok {
		return Gun{}, fmt.Errorf("unknown gun %q (known: %s)", name, strings.Join(GunNames(), ", "))
	}
	return build(), nil
}

// LookupSword returns the catalog sword registered under name.
func LookupSword(name string) (Sword, error) {
	build, ok := swords[normalizeName(name)]
	if !ok {
		return Sword{}, fmt.Errorf("unknown sword %q (known: %s)", name, strings.Join(SwordNames(), ", "))
	}
	return build(), nil
}

// GunNames lists catalog gun names in sorted order.
func GunNames() []string {
	return sortedKeys(guns)
}

// SwordNames lists catalog sword names in sorted order.
func SwordNames() []string {
	return sortedKeys(swords)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}
