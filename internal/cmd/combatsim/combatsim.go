// Package combatsim wires configuration, studies, and outputs into the
// combatsim command.
package combatsim

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"

	platformcmd "github.com/louisbranch/combatsim/internal/platform/cmd"
	apperrors "github.com/louisbranch/combatsim/internal/platform/errors"
	"github.com/louisbranch/combatsim/internal/platform/id"
	"github.com/louisbranch/combatsim/internal/random"
	"github.com/louisbranch/combatsim/internal/report"
	"github.com/louisbranch/combatsim/internal/sim/duel"
	"github.com/louisbranch/combatsim/internal/sim/scenario"
	"github.com/louisbranch/combatsim/internal/sim/trial"
	"github.com/louisbranch/combatsim/internal/storage"
	"github.com/louisbranch/combatsim/internal/storage/sqlite"
)

const tracerName = "github.com/louisbranch/combatsim/internal/cmd/combatsim"

// Config holds combatsim command configuration.
type Config struct {
	Studies          []string `env:"STUDY"             envSeparator:","`
	Scenario         string   `env:"SCENARIO_FILE"`
	Trials           int      `env:"TRIALS"            envDefault:"100000"`
	DuelTrials       int      `env:"DUEL_TRIALS"       envDefault:"1000"`
	Seed             uint64   `env:"SEED"`
	Workers          int      `env:"WORKERS"`
	Out              string   `env:"OUT"               envDefault:"results.json"`
	DB               string   `env:"DB"`
	Locale           string   `env:"LOCALE"            envDefault:"en"`
	Verbose          bool     `env:"VERBOSE"`
	DodgeThreshold   int      `env:"DODGE_THRESHOLD"   envDefault:"4"`
	RunThreshold     int      `env:"RUN_THRESHOLD"     envDefault:"20"`
	StartingDistance int      `env:"STARTING_DISTANCE" envDefault:"50"`
	List             bool
	Runs             int
	ShowRun          string
}

// ParseConfig loads COMBATSIM_ environment defaults and applies flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	var studiesFromFlags bool
	fs.Func("study", "comma-separated study names; repeatable (default "+scenario.DefaultStudy+")", func(value string) error {
		if !studiesFromFlags {
			cfg.Studies = nil
			studiesFromFlags = true
		}
		cfg.Studies = append(cfg.Studies, splitList(value)...)
		return nil
	})
	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to a lua study script")
	fs.IntVar(&cfg.Trials, "trials", cfg.Trials, "trials per standoff scenario")
	fs.IntVar(&cfg.DuelTrials, "duel-trials", cfg.DuelTrials, "trials per duel matchup")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "root seed; 0 draws a random one")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "parallel workers; 0 uses every cpu")
	fs.StringVar(&cfg.Out, "out", cfg.Out, "results json path; empty skips the file")
	fs.StringVar(&cfg.DB, "db", cfg.DB, "sqlite database recording runs")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for the printed summary")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log every trial batch")
	fs.IntVar(&cfg.DodgeThreshold, "dodge-threshold", cfg.DodgeThreshold, "evade margin that lets a defender dodge bullets")
	fs.IntVar(&cfg.RunThreshold, "run-threshold", cfg.RunThreshold, "range difficulty above which shooters sprint")
	fs.IntVar(&cfg.StartingDistance, "starting-distance", cfg.StartingDistance, "opening duel distance in meters")
	fs.BoolVar(&cfg.List, "list", cfg.List, "list the built-in studies and exit")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "list the newest N runs recorded in --db and exit")
	fs.StringVar(&cfg.ShowRun, "show-run", cfg.ShowRun, "print the results of a run recorded in --db and exit")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Run executes the combatsim command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	logger := log.New(errOut, "", 0)

	if cfg.List {
		return listStudies(out)
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeInvalidConfig, fmt.Sprintf("locale %q", cfg.Locale), map[string]string{"flag": "locale"}, err)
	}
	if cfg.Runs != 0 || cfg.ShowRun != "" {
		return history(ctx, cfg, report.NewPrinter(tag), out)
	}
	if err := validate(cfg); err != nil {
		return err
	}

	studies, err := resolveStudies(cfg)
	if err != nil {
		return err
	}

	duelCfg := duel.DefaultConfig()
	duelCfg.Trials = cfg.DuelTrials
	duelCfg.DodgeThreshold = cfg.DodgeThreshold
	duelCfg.RunThreshold = cfg.RunThreshold
	duelCfg.StartingDistance = cfg.StartingDistance
	if err := duelCfg.Validate(); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidConfig, "duel config", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed, err = random.NewSeed()
		if err != nil {
			return apperrors.Wrap(apperrors.CodeUnknown, "seed", err)
		}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger.Printf("seed %d, %d workers", seed, workers)

	names := make([]string, 0, len(studies))
	for _, study := range studies {
		names = append(names, study.Name)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "combatsim.run", trace.WithAttributes(
		attribute.StringSlice("studies", names),
		attribute.String("seed", strconv.FormatUint(seed, 10)),
		attribute.Int("trials", cfg.Trials),
	))
	defer span.End()

	started := time.Now().UTC()
	root, err := scenario.Run(ctx, scenario.Env{
		Runner: trial.Runner{
			Trials:  cfg.Trials,
			Workers: workers,
			Seed:    seed,
			Logger:  logger,
			Verbose: cfg.Verbose,
		},
		Duel:   duelCfg,
		Logger: logger,
	}, studies...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return apperrors.Wrap(apperrors.CodeCanceled, "run interrupted", err)
		}
		return apperrors.Wrap(apperrors.CodeSimulationFailed, "run studies", err)
	}
	finished := time.Now().UTC()

	if cfg.Out != "" {
		if err := writeResults(cfg.Out, root); err != nil {
			return apperrors.WrapWithMetadata(apperrors.CodeOutputFailed, "write results", map[string]string{"path": cfg.Out}, err)
		}
		logger.Printf("wrote %s", cfg.Out)
	}

	if cfg.DB != "" {
		run := storage.Run{
			Studies:        names,
			Seed:           seed,
			StandoffTrials: cfg.Trials,
			DuelTrials:     cfg.DuelTrials,
			Workers:        workers,
			StartedAt:      started,
			FinishedAt:     finished,
		}
		runID, err := saveRun(ctx, cfg.DB, run, root)
		if err != nil {
			return apperrors.WrapWithMetadata(apperrors.CodeStorageFailed, "save run", map[string]string{"path": cfg.DB}, err)
		}
		logger.Printf("saved run %s to %s", runID, cfg.DB)
	}

	header := report.Header{Title: strings.Join(names, ", "), Trials: cfg.Trials, Seed: seed}
	if err := report.WriteSummary(out, report.NewPrinter(tag), header, root); err != nil {
		return apperrors.Wrap(apperrors.CodeOutputFailed, "write summary", err)
	}
	return nil
}

func validate(cfg Config) error {
	switch {
	case cfg.Trials <= 0:
		return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "trials must be positive", map[string]string{"flag": "trials"})
	case cfg.DuelTrials <= 0:
		return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "duel trials must be positive", map[string]string{"flag": "duel-trials"})
	case cfg.Workers < 0:
		return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "workers must not be negative", map[string]string{"flag": "workers"})
	}
	return nil
}

// history prints stored runs, or the results of one stored run.
func history(ctx context.Context, cfg Config, loc report.Localizer, out io.Writer) error {
	if cfg.DB == "" {
		return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "a results database is required", map[string]string{"flag": "db"})
	}
	if cfg.Runs < 0 {
		return apperrors.WithMetadata(apperrors.CodeInvalidConfig, "runs must be positive", map[string]string{"flag": "runs"})
	}
	store, err := sqlite.Open(ctx, cfg.DB)
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeStorageFailed, "open results database", map[string]string{"path": cfg.DB}, err)
	}
	defer store.Close()

	if cfg.ShowRun != "" {
		return showRun(ctx, store, cfg.ShowRun, loc, out)
	}
	return listRuns(ctx, store, cfg.Runs, out)
}

func listRuns(ctx context.Context, store storage.RunStore, limit int, out io.Writer) error {
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStorageFailed, "list runs", err)
	}
	for _, run := range runs {
		if _, err := fmt.Fprintf(out, "%s  %s  %-8s seed %d  %s\n",
			run.ID,
			run.StartedAt.Format(time.RFC3339),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
			run.Seed,
			strings.Join(run.Studies, ","),
		); err != nil {
			return apperrors.Wrap(apperrors.CodeOutputFailed, "list runs", err)
		}
	}
	return nil
}

func showRun(ctx context.Context, store storage.RunStore, runID string, loc report.Localizer, out io.Writer) error {
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeStorageFailed, "load run", map[string]string{"run": runID}, err)
	}
	results, err := store.ListResults(ctx, runID)
	if err != nil {
		return apperrors.WrapWithMetadata(apperrors.CodeStorageFailed, "list results", map[string]string{"run": runID}, err)
	}
	entries := make([]report.Entry, 0, len(results))
	for _, result := range results {
		entries = append(entries, report.Entry{Path: result.Path, Label: result.Label, Value: result.Value, Text: result.Text})
	}
	header := report.Header{Title: strings.Join(run.Studies, ", "), Trials: run.StandoffTrials, Seed: run.Seed}
	if err := report.WriteEntries(out, loc, header, entries); err != nil {
		return apperrors.Wrap(apperrors.CodeOutputFailed, "write results", err)
	}
	return nil
}

// FormatError renders a command failure with its code and sorted metadata.
func FormatError(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error [%s]: %v", apperrors.CodeOf(err), err)
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) && len(domainErr.Metadata) > 0 {
		keys := make([]string, 0, len(domainErr.Metadata))
		for key := range domainErr.Metadata {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(&b, "\n  %s: %s", key, domainErr.Metadata[key])
		}
	}
	return b.String()
}

// resolveStudies returns the requested built-in studies followed by the
// scripted one, defaulting to DefaultStudy when nothing is requested.
func resolveStudies(cfg Config) ([]scenario.Study, error) {
	requested := cfg.Studies
	if len(requested) == 0 && cfg.Scenario == "" {
		requested = []string{scenario.DefaultStudy}
	}
	studies, err := scenario.Lookup(requested...)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeUnknownStudy, "resolve studies", err)
	}
	if cfg.Scenario != "" {
		scripted, err := scenario.LoadFile(cfg.Scenario)
		if err != nil {
			return nil, apperrors.WrapWithMetadata(apperrors.CodeScenarioLoad, "load scenario", map[string]string{"path": cfg.Scenario}, err)
		}
		studies = append(studies, scripted)
	}
	if len(studies) == 0 {
		return nil, apperrors.New(apperrors.CodeUnknownStudy, "no studies requested")
	}
	return studies, nil
}

func listStudies(out io.Writer) error {
	for _, study := range scenario.Catalog() {
		if _, err := fmt.Fprintf(out, "%-16s %s\n", study.Name, study.Description); err != nil {
			return apperrors.Wrap(apperrors.CodeOutputFailed, "list studies", err)
		}
	}
	return nil
}

func writeResults(path string, root *report.Node) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return report.WriteJSON(f, root)
}

func saveRun(ctx context.Context, path string, run storage.Run, root *report.Node) (string, error) {
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	return recordRun(ctx, store, run, root)
}

func recordRun(ctx context.Context, store storage.RunStore, run storage.Run, root *report.Node) (string, error) {
	runID, err := id.NewID()
	if err != nil {
		return "", err
	}
	run.ID = runID
	if err := store.RecordRun(ctx, run, storage.ResultsFromEntries(runID, report.Flatten(root))); err != nil {
		return "", err
	}
	return runID, nil
}
