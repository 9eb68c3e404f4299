package scenario

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"

	"github.com/louisbranch/combatsim/internal/report"
	"github.com/louisbranch/combatsim/internal/sim/duel"
	"github.com/louisbranch/combatsim/internal/sim/gear"
	"github.com/louisbranch/combatsim/internal/sim/standoff"
	"github.com/louisbranch/combatsim/internal/sim/stats"
)

const studyTypeName = "study"

// script is the study a Lua file builds step by step.
type script struct {
	name        string
	description string
	steps       []scriptStep
}

type scriptStep struct {
	path     []string
	standoff *standoff.Scenario
	duel     *scriptDuel
}

type scriptDuel struct {
	distance int
	one      duel.Combatant
	two      duel.Combatant
}

// LoadFile runs a Lua scenario script and returns the study it builds.
//
// The script must return a Study:
//
//	local s = Study.new("rifle-tuning")
//	s:standoff("DV 15 / Rifle", {hp = 40, armor = 11, dice = 5, modifier = 14, dv = 15})
//	s:duel("Rifle vs Shotgun", {distance = 30, one = {name = "A", gun = "rifle"}, two = {...}})
//	return s
//
// Labels containing "/" nest the result under intermediate branches.
func LoadFile(path string) (Study, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return Study{}, fmt.Errorf("load scenario %s: %w", path, err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return Study{}, fmt.Errorf("run scenario %s: %w", path, err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return Study{}, fmt.Errorf("scenario %s must return a Study", path)
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	sc, ok := ud.(*script)
	if !ok || sc == nil {
		return Study{}, fmt.Errorf("scenario %s returned an invalid Study", path)
	}
	if strings.TrimSpace(sc.name) == "" {
		sc.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if len(sc.steps) == 0 {
		return Study{}, fmt.Errorf("scenario %s defines no steps", path)
	}
	return sc.study(), nil
}

func (sc *script) study() Study {
	return Study{
		Name:        sc.name,
		Description: sc.description,
		Run: func(ctx context.Context, env Env) (*report.Node, error) {
			root := report.New(sc.name)
			for _, step := range sc.steps {
				parent := root
				for _, name := range step.path[:len(step.path)-1] {
					parent = parent.Branch(name)
				}
				leafName := step.path[len(step.path)-1]
				path := append([]string{sc.name}, step.path[:len(step.path)-1]...)

				switch {
				case step.standoff != nil:
					leaf, _, err := standoffLeaf(ctx, env, path, leafName, *step.standoff)
					if err != nil {
						return nil, err
					}
					parent.Add(leaf)
				case step.duel != nil:
					d := step.duel
					tally, err := simulateDuel(ctx, env, child(path, leafName), d.distance, d.one, d.two)
					if err != nil {
						return nil, err
					}
					parent.Set(leafName, report.Fields{
						{Label: tally.OneName, Value: stats.Round2(tally.OnePercent())},
						{Label: tally.TwoName, Value: stats.Round2(tally.TwoPercent())},
					})
				}
			}
			return root, nil
		},
	}
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, studyTypeName)
	state.NewTable()
	lua.SetFunctions(state, studyMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, studyConstructor, 0)
	state.SetGlobal("Study")
}

var studyConstructor = []lua.RegistryFunction{
	{Name: "new", Function: studyNew},
}

var studyMethods = []lua.RegistryFunction{
	{Name: "standoff", Function: studyStandoff},
	{Name: "duel", Function: studyDuel},
}

func studyNew(state *lua.State) int {
	sc := &script{
		name:        lua.OptString(state, 1, ""),
		description: lua.OptString(state, 2, ""),
	}
	state.PushUserData(sc)
	lua.SetMetaTableNamed(state, studyTypeName)
	return 1
}

func studyStandoff(state *lua.State) int {
	sc := checkStudy(state)
	path := checkLabel(state, 2)
	lua.CheckType(state, 3, lua.TypeTable)
	s, err := standoffFromArgs(tableToMap(state, 3))
	if err != nil {
		lua.Errorf(state, "standoff '%s': %s", strings.Join(path, "/"), err.Error())
		return 0
	}
	sc.steps = append(sc.steps, scriptStep{path: path, standoff: &s})
	return 0
}

func studyDuel(state *lua.State) int {
	sc := checkStudy(state)
	path := checkLabel(state, 2)
	lua.CheckType(state, 3, lua.TypeTable)
	d, err := duelFromArgs(tableToMap(state, 3))
	if err != nil {
		lua.Errorf(state, "duel '%s': %s", strings.Join(path, "/"), err.Error())
		return 0
	}
	sc.steps = append(sc.steps, scriptStep{path: path, duel: &d})
	return 0
}

func checkStudy(state *lua.State) *script {
	ud := lua.CheckUserData(state, 1, studyTypeName)
	if sc, ok := ud.(*script); ok && sc != nil {
		return sc
	}
	lua.ArgumentError(state, 1, "study expected")
	return nil
}

func checkLabel(state *lua.State, index int) []string {
	label := lua.CheckString(state, index)
	var path []string
	for _, part := range strings.Split(label, "/") {
		if part = strings.TrimSpace(part); part != "" {
			path = append(path, part)
		}
	}
	if len(path) == 0 {
		lua.ArgumentError(state, index, "label is required")
	}
	return path
}

func standoffFromArgs(args map[string]any) (standoff.Scenario, error) {
	variant, err := standoff.ParseVariant(optionalString(args, "variant", ""))
	if err != nil {
		return standoff.Scenario{}, err
	}
	measure, err := standoff.ParseMeasure(optionalString(args, "measure", ""))
	if err != nil {
		return standoff.Scenario{}, err
	}
	s := standoff.Scenario{
		HP:          optionalInt(args, "hp", enemyHP),
		Armor:       optionalInt(args, "armor", enemyArmor),
		Dice:        optionalInt(args, "dice", 0),
		Modifier:    optionalInt(args, "modifier", 0),
		Difficulty:  optionalInt(args, "dv", 0),
		RateOfFire:  optionalInt(args, "rof", 0),
		Magazine:    optionalInt(args, "magazine", 0),
		ReloadTurns: optionalInt(args, "reload_turns", 0),
		MaxTurns:    optionalInt(args, "max_turns", 0),
		Measure:     measure,
		Variant:     variant,
	}
	if auto := optionalTable(args, "autofire"); auto != nil {
		s.Autofire = standoff.AutofireRules{
			GuaranteedBonus: optionalInt(auto, "bonus", 0),
			MaxMultiplier:   optionalInt(auto, "max", 0),
			RollAllDice:     optionalBool(auto, "roll_all", false),
			BurstSize:       optionalInt(auto, "burst", 0),
		}
	}
	if capacitor := optionalTable(args, "capacitor"); capacitor != nil {
		s.Capacitor = standoff.CapacitorRules{
			Charge:         optionalInt(capacitor, "charge", 0),
			ArmorIgnored:   optionalInt(capacitor, "armor_ignored", 0),
			ArmorDestroyed: optionalInt(capacitor, "armor_destroyed", 0),
		}
	}
	if err := s.Validate(); err != nil {
		return standoff.Scenario{}, err
	}
	return s, nil
}

func duelFromArgs(args map[string]any) (scriptDuel, error) {
	d := scriptDuel{distance: optionalInt(args, "distance", configDistance)}
	if d.distance != configDistance && (d.distance < 0 || d.distance > gear.MaxRange) {
		return scriptDuel{}, fmt.Errorf("distance %dm: %w", d.distance, gear.ErrOutOfRange)
	}
	for _, side := range []struct {
		key  string
		into *duel.Combatant
	}{
		{key: "one", into: &d.one},
		{key: "two", into: &d.two},
	} {
		table := optionalTable(args, side.key)
		if table == nil {
			return scriptDuel{}, fmt.Errorf("%s combatant is required", side.key)
		}
		c, err := combatantFromArgs(table)
		if err != nil {
			return scriptDuel{}, fmt.Errorf("%s: %w", side.key, err)
		}
		*side.into = c
	}
	return d, nil
}

func combatantFromArgs(args map[string]any) (duel.Combatant, error) {
	c := duel.Combatant{
		Name:      optionalString(args, "name", ""),
		HP:        optionalInt(args, "hp", enemyHP),
		BodyArmor: optionalInt(args, "armor", enemyArmor),
		Speed:     optionalInt(args, "speed", 6),
		Skills: duel.Skills{
			Initiative:      optionalInt(args, "initiative", 8),
			Shoot:           optionalInt(args, "shoot", 10),
			Melee:           optionalInt(args, "melee", 10),
			Evade:           optionalInt(args, "evade", 10),
			CanDodgeBullets: optionalBool(args, "dodge", false),
		},
	}
	gun, err := gunFromValue(args["gun"])
	if err != nil {
		return duel.Combatant{}, err
	}
	sword, err := swordFromValue(args["sword"])
	if err != nil {
		return duel.Combatant{}, err
	}
	c.Gun, c.Sword = gun, sword
	if err := c.Validate(); err != nil {
		return duel.Combatant{}, err
	}
	return c, nil
}

// gunFromValue accepts a catalog name or an inline gun table.
func gunFromValue(value any) (*gear.Gun, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case string:
		gun, err := gear.LookupGun(typed)
		if err != nil {
			return nil, err
		}
		return &gun, nil
	case map[string]any:
		table, err := rangeFromValue(typed["range"])
		if err != nil {
			return nil, err
		}
		gun := gear.Gun{
			Name:          optionalString(typed, "name", "custom gun"),
			DamageDice:    optionalInt(typed, "dice", 0),
			RateOfFire:    optionalInt(typed, "rof", 1),
			MaxAmmo:       optionalInt(typed, "ammo", 0),
			BestRangeLow:  optionalInt(typed, "best_low", 0),
			BestRangeHigh: optionalInt(typed, "best_high", gear.MaxRange),
			Range:         table,
			AutoFire:      optionalBool(typed, "autofire", false),
		}
		if err := gun.Validate(); err != nil {
			return nil, err
		}
		return &gun, nil
	default:
		return nil, fmt.Errorf("gun must be a name or a table, got %T", value)
	}
}

// swordFromValue accepts a catalog name or an inline sword table.
func swordFromValue(value any) (*gear.Sword, error) {
	switch typed := value.(type) {
	case nil:
		return nil, nil
	case string:
		sword, err := gear.LookupSword(typed)
		if err != nil {
			return nil, err
		}
		return &sword, nil
	case map[string]any:
		sword := gear.Sword{
			Name:       optionalString(typed, "name", "custom sword"),
			DamageDice: optionalInt(typed, "dice", 0),
			RateOfFire: optionalInt(typed, "rof", 1),
		}
		if err := sword.Validate(); err != nil {
			return nil, err
		}
		return &sword, nil
	default:
		return nil, fmt.Errorf("sword must be a name or a table, got %T", value)
	}
}

func rangeFromValue(value any) (gear.RangeTable, error) {
	values, ok := value.([]any)
	if !ok || len(values) != len(gear.RangeTable{}) {
		return gear.RangeTable{}, fmt.Errorf("range must list %d difficulties, nearest first", len(gear.RangeTable{}))
	}
	var table gear.RangeTable
	for i, v := range values {
		switch typed := v.(type) {
		case int:
			table[i] = typed
		case float64:
			table[i] = int(typed)
		default:
			return gear.RangeTable{}, fmt.Errorf("range entry %d must be a number", i+1)
		}
	}
	return table, nil
}

func optionalTable(args map[string]any, key string) map[string]any {
	value, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	return value
}

func optionalString(args map[string]any, key, fallback string) string {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	text, ok := value.(string)
	if ok && text != "" {
		return text
	}
	return fallback
}

func optionalInt(args map[string]any, key string, fallback int) int {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	switch typed := value.(type) {
	case int:
		return typed
	case float64:
		return int(typed)
	default:
		return fallback
	}
}

func optionalBool(args map[string]any, key string, fallback bool) bool {
	value, ok := args[key]
	if !ok {
		return fallback
	}
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		lower := strings.ToLower(strings.TrimSpace(typed))
		if lower == "true" || lower == "yes" || lower == "1" {
			return true
		}
		if lower == "false" || lower == "no" || lower == "0" {
			return false
		}
	}
	return fallback
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a []any for sequences and a map otherwise.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				maxIndex = max(maxIndex, idx)
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}
	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
