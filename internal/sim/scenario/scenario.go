// Package scenario holds the balance studies the simulator knows how to run.
//
// A study is a named function that drives the standoff and duel kernels and
// returns a result tree. The built-in catalog mirrors the experiments the
// rules designers ran; scripts can define more (see LoadFile).
package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/combatsim/internal/report"
	"github.com/louisbranch/combatsim/internal/sim/duel"
	"github.com/louisbranch/combatsim/internal/sim/standoff"
	"github.com/louisbranch/combatsim/internal/sim/stats"
	"github.com/louisbranch/combatsim/internal/sim/trial"
)

const tracerName = "github.com/louisbranch/combatsim/internal/sim/scenario"

const (
	// DefaultStandoffTrials is the trial count for standoff scenarios.
	DefaultStandoffTrials = 100000
	// DefaultStudy is run when no study is requested.
	DefaultStudy = "armor-tiers"

	standardDeviation = "Standard Deviation"
)

// ErrUnknownStudy indicates a study name is not in the catalog.
var ErrUnknownStudy = errors.New("unknown study")

// Env carries what a study needs to run its kernels.
type Env struct {
	// Runner drives standoff scenarios. Its Trials is the standoff count.
	Runner trial.Runner
	// Duel configures duel scenarios, including their own trial count.
	Duel   duel.Config
	Logger *log.Logger
}

func (e Env) normalized() Env {
	if e.Runner.Trials <= 0 {
		e.Runner.Trials = DefaultStandoffTrials
	}
	if e.Duel == (duel.Config{}) {
		e.Duel = duel.DefaultConfig()
	}
	if e.Logger == nil {
		e.Logger = log.New(io.Discard, "", 0)
	}
	if e.Runner.Logger == nil {
		e.Runner.Logger = e.Logger
	}
	return e
}

// Study is one named experiment.
type Study struct {
	Name        string
	Description string
	Run         func(ctx context.Context, env Env) (*report.Node, error)
}

// Catalog returns the built-in studies in a stable order.
func Catalog() []Study {
	return []Study{
		armorPiercingStudy(),
		incendiaryStudy(),
		smartAmmoStudy(),
		homebrewCritStudy(),
		kerberosStudy(),
		headshotStudy(),
		armorTierStudy(),
		armorDodgeStudy(),
		meleeMatchupStudy(),
	}
}

// Names lists the built-in study names, sorted.
func Names() []string {
	catalog := Catalog()
	names := make([]string, 0, len(catalog))
	for _, study := range catalog {
		names = append(names, study.Name)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves names against the catalog, keeping the requested order.
func Lookup(names ...string) ([]Study, error) {
	byName := map[string]Study{}
	for _, study := range Catalog() {
		byName[study.Name] = study
	}
	studies := make([]Study, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		study, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownStudy, name, strings.Join(Names(), ", "))
		}
		studies = append(studies, study)
	}
	return studies, nil
}

// Run executes studies in order and collects their trees under one root.
func Run(ctx context.Context, env Env, studies ...Study) (*report.Node, error) {
	env = env.normalized()
	root := report.New("results")
	for _, study := range studies {
		node, err := runStudy(ctx, env, study)
		if err != nil {
			return nil, err
		}
		root.Add(node)
	}
	return root, nil
}

func runStudy(ctx context.Context, env Env, study Study) (*report.Node, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "scenario.study", trace.WithAttributes(
		attribute.String("study.name", study.Name),
	))
	defer span.End()

	if study.Run == nil {
		err := fmt.Errorf("study %s has no runner", study.Name)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	env.Logger.Printf("running %s", study.Name)
	started := time.Now()
	node, err := study.Run(ctx, env)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("study %s: %w", study.Name, err)
	}
	if node == nil {
		node = report.New(study.Name)
	}
	node.Name = study.Name
	env.Logger.Printf("finished %s in %s", study.Name, time.Since(started).Round(time.Millisecond))
	return node, nil
}

// runStandoff summarizes one standoff scenario keyed by path.
func runStandoff(ctx context.Context, env Env, path []string, s standoff.Scenario) (stats.Summary, error) {
	return standoff.Run(ctx, env.Runner, strings.Join(path, report.PathSeparator), s)
}

// standoffLeaf runs s and returns a leaf with its labeled statistics.
func standoffLeaf(ctx context.Context, env Env, path []string, name string, s standoff.Scenario) (*report.Node, stats.Summary, error) {
	summary, err := runStandoff(ctx, env, child(path, name), s)
	if err != nil {
		return nil, stats.Summary{}, err
	}
	return report.Leaf(name, summary.Fields(s.Label(), standardDeviation)), summary, nil
}

// child extends path without sharing its backing array.
func child(path []string, name string) []string {
	return append(path[:len(path):len(path)], name)
}

// trialNode describes the target and shooter shared by sibling scenarios.
func trialNode(s standoff.Scenario, withArmor bool) *report.Node {
	node := report.New("trial").Set("hp", s.HP)
	if withArmor {
		node.Set("armor", s.Armor)
	}
	node.Set("dice", s.Dice)
	if s.Measure == standoff.Turns {
		node.Set("modifier", s.Modifier).Set("dv", s.Difficulty)
	}
	return node
}

// configDistance makes a duel open at the configured starting distance.
const configDistance = -1

// simulateDuel runs a duel keyed by path and returns the tally.
func simulateDuel(ctx context.Context, env Env, path []string, distance int, one, two duel.Combatant) (duel.Tally, error) {
	cfg := env.Duel
	if distance != configDistance {
		cfg.StartingDistance = distance
	}
	return duel.Simulate(ctx, env.Runner, strings.Join(path, report.PathSeparator), cfg, one, two)
}
