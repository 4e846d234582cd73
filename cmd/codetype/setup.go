package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/codetype/internal/aggregator"
	"github.com/verte-zerg/codetype/internal/api"
	"github.com/verte-zerg/codetype/internal/catalog"
	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/logging"
	"github.com/verte-zerg/codetype/internal/model"
	"github.com/verte-zerg/codetype/internal/session"
	"github.com/verte-zerg/codetype/internal/store"
	"github.com/verte-zerg/codetype/internal/textfile"
)

// modeDefaults are the snippet language and difficulty used when neither flag nor config sets one.
var modeDefaults = map[session.Kind][2]string{
	session.KindTimed:    {"python", "medium"},
	session.KindSpeed:    {"java", "medium"},
	session.KindAccuracy: {"python", "easy"},
	session.KindPractice: {"python", "easy"},
}

// loadConfig reads .env files, then the TOML file, then CODETYPE_* overrides.
func loadConfig() (config.FileConfig, error) {
	if err := config.LoadEnvFiles(".env", config.DefaultEnvPath()); err != nil {
		return config.FileConfig{}, err
	}
	cfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func applyPracticeConfig(cmd *cobra.Command, p config.PracticeConfig) {
	applyStringConfig(cmd, "mode", &testMode, p.Mode)
	applyStringConfig(cmd, "lang", &testLang, p.Lang)
	applyStringConfig(cmd, "difficulty", &testDifficulty, p.Difficulty)
	applyIntConfig(cmd, "duration", &testDuration, p.Duration)
	applyIntConfig(cmd, "accuracy-target", &testAccuracyTarget, p.AccuracyTarget)
	applyBoolConfig(cmd, "backspace", &testBackspace, p.Backspace)
	applyStringConfig(cmd, "snippets", &testSnippets, p.Snippets)
}

func parseKind(mode string) (session.Kind, error) {
	switch kind := session.Kind(strings.ToLower(strings.TrimSpace(mode))); kind {
	case session.KindTimed, session.KindSpeed, session.KindAccuracy, session.KindCustom:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown --mode %q (use timed, speed, accuracy or custom)", mode)
	}
}

// resolvePractice fills mode defaults into the flag values.
func resolvePractice(kind session.Kind) model.Config {
	cfg := model.Config{
		Language:         strings.TrimSpace(testLang),
		Difficulty:       strings.TrimSpace(testDifficulty),
		Mode:             string(kind),
		Duration:         time.Duration(testDuration) * time.Second,
		AccuracyTarget:   testAccuracyTarget,
		BackspaceAllowed: testBackspace,
		TickInterval:     session.DefaultTickInterval,
	}
	if defaults, ok := modeDefaults[kind]; ok {
		if cfg.Language == "" {
			cfg.Language = defaults[0]
		}
		if cfg.Difficulty == "" {
			cfg.Difficulty = defaults[1]
		}
	}
	if kind == session.KindTimed {
		cfg.TickInterval = session.DefaultTimedTick
	}
	return cfg
}

func validatePractice(cfg model.Config) error {
	if cfg.Duration <= 0 {
		return fmt.Errorf("--duration must be > 0")
	}
	if cfg.AccuracyTarget < 0 || cfg.AccuracyTarget > 100 {
		return fmt.Errorf("--accuracy-target must be between 0 and 100")
	}
	return nil
}

func resolveStats(cmd *cobra.Command, s config.StatsConfig) (model.StatsConfig, error) {
	applyIntConfig(cmd, "last", &statsLast, s.Last)
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, s.CurveWindow)
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}

	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	return model.StatsConfig{
		Language:    statsLang,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}, nil
}

func loadCatalog(snippetsPath string) (*catalog.Catalog, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if snippetsPath == "" {
		return cat, nil
	}
	extra, err := catalog.LoadFile(snippetsPath)
	if err != nil {
		return nil, err
	}
	if err := cat.Add(extra...); err != nil {
		return nil, fmt.Errorf("invalid snippets in %s: %w", snippetsPath, err)
	}
	return cat, nil
}

func loadCustomText(path string) (string, error) {
	text, err := textfile.LoadText(path)
	if err != nil {
		return "", fmt.Errorf("failed to load custom text: %w", err)
	}
	return text, nil
}

// openAggregator returns the results service client when --remote is set, otherwise the local store.
func openAggregator(logger *zap.Logger) (aggregator.Aggregator, func(), error) {
	if remote := strings.TrimSpace(globalRemote); remote != "" {
		logger.Debug("using remote results service", zap.String("url", remote))
		return api.NewClient(remote), func() {}, nil
	}
	st, err := store.Open(globalDB, store.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open db: %w", err)
	}
	closeStore := func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("failed to close db", zap.Error(cerr))
		}
	}
	return st, closeStore, nil
}

// newFileLogger keeps log output off the terminal while a full-screen view runs.
func newFileLogger() (*zap.Logger, error) {
	return logging.New(logging.Options{Verbose: globalVerbose, Path: config.DefaultLogPath()})
}

func newStderrLogger() (*zap.Logger, error) {
	return logging.New(logging.Options{Verbose: globalVerbose})
}

func syncLogger(logger *zap.Logger) {
	logging.Sync(logger)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# codetype configuration
# Uncomment a value to enable it. CLI flags override environment (%[1]s*) and config values.

[practice]
# mode = "timed"            # timed, speed, accuracy or custom
# lang = "python"           # Snippet language (see: codetype langs)
# difficulty = "medium"     # easy, medium or hard
# duration = %[2]d             # Timed test length in seconds
# accuracy-target = %[3]d      # Accuracy mode threshold (0-100)
# backspace = true          # Allow backspace
# snippets = ""             # YAML file with extra snippets

[stats]
# last = 0                  # Limit to last N results (0 means all)
# curve-window = %[4]d         # Moving average window
# database = ""             # SQLite path (default %[5]q)

[server]
# addr = %[6]q
# remote = ""               # Results service URL used instead of the local database
# cors-origins = []
`,
		config.EnvPrefix,
		int(session.DefaultTimedDuration/time.Second),
		session.DefaultAccuracyTarget,
		defaultCurveWindow,
		config.DefaultDBPath(),
		defaultAddr,
	)
}
