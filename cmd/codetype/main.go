// Package main provides the CLI entrypoint for codetype.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/codetype/internal/api"
	"github.com/verte-zerg/codetype/internal/catalog"
	"github.com/verte-zerg/codetype/internal/config"
	"github.com/verte-zerg/codetype/internal/session"
	"github.com/verte-zerg/codetype/internal/stats"
	"github.com/verte-zerg/codetype/internal/statsui"
	"github.com/verte-zerg/codetype/internal/tui"
)

const (
	defaultAddr         = "127.0.0.1:8080"
	defaultCurveWindow  = 20
	defaultHistoryLimit = 20
	historyPlotHeight   = 8
)

var (
	globalVerbose bool
	globalDB      string
	globalRemote  string

	testMode           string
	testLang           string
	testDifficulty     string
	testDuration       int
	testAccuracyTarget int
	testFile           string
	testBackspace      bool
	testSnippets       string

	statsLang        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	historyLimit     int

	serveAddr string
	serveCORS []string

	learnSection string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "codetype",
		Short:         "Typing practice on real code snippets",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTestCmd,
	}
	rootCmd.PersistentFlags().BoolVarP(&globalVerbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&globalDB, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&globalRemote, "remote", "", "results service URL (overrides --db)")
	addTestFlags(rootCmd)

	rootCmd.AddCommand(newTestCmd())
	rootCmd.AddCommand(newPracticeCmd())
	rootCmd.AddCommand(newChallengeCmd())
	rootCmd.AddCommand(newChallengesCmd())
	rootCmd.AddCommand(newLearnCmd())
	rootCmd.AddCommand(newLangsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addTestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&testMode, "mode", string(session.KindTimed), "test mode: timed, speed, accuracy or custom")
	cmd.Flags().StringVar(&testLang, "lang", "", "snippet language (default depends on mode)")
	cmd.Flags().StringVar(&testDifficulty, "difficulty", "", "snippet difficulty (default depends on mode)")
	cmd.Flags().IntVar(&testDuration, "duration", int(session.DefaultTimedDuration/time.Second), "timed test length in seconds")
	cmd.Flags().IntVar(&testAccuracyTarget, "accuracy-target", session.DefaultAccuracyTarget, "accuracy mode threshold (0-100)")
	cmd.Flags().StringVar(&testFile, "file", "", "text file for custom mode")
	cmd.Flags().BoolVar(&testBackspace, "backspace", true, "allow backspace")
	cmd.Flags().StringVar(&testSnippets, "snippets", "", "YAML file with extra snippets")
}

func newTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run a recorded typing test",
		Args:  cobra.NoArgs,
		RunE:  runTestCmd,
	}
	addTestFlags(cmd)
	return cmd
}

func runTestCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPracticeConfig(cmd, fileCfg.Practice)

	kind, err := parseKind(testMode)
	if err != nil {
		return err
	}
	cfg := resolvePractice(kind)
	if err := validatePractice(cfg); err != nil {
		return err
	}
	opts := tui.Options{
		Kind:             kind,
		Language:         cfg.Language,
		Difficulty:       cfg.Difficulty,
		Duration:         cfg.Duration,
		AccuracyTarget:   cfg.AccuracyTarget,
		BackspaceAllowed: cfg.BackspaceAllowed,
		TickInterval:     cfg.TickInterval,
	}
	if kind == session.KindCustom && testFile != "" {
		text, err := loadCustomText(testFile)
		if err != nil {
			return err
		}
		opts.CustomText = text
	}
	return runTypingTUI(cmd, opts, fileCfg)
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice untimed without recording results",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().StringVar(&testLang, "lang", "", "snippet language")
	cmd.Flags().StringVar(&testDifficulty, "difficulty", "", "snippet difficulty")
	cmd.Flags().BoolVar(&testBackspace, "backspace", true, "allow backspace")
	cmd.Flags().StringVar(&testSnippets, "snippets", "", "YAML file with extra snippets")
	return cmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPracticeConfig(cmd, fileCfg.Practice)
	cfg := resolvePractice(session.KindPractice)
	return runTypingTUI(cmd, tui.Options{
		Kind:             session.KindPractice,
		Language:         cfg.Language,
		Difficulty:       cfg.Difficulty,
		BackspaceAllowed: cfg.BackspaceAllowed,
		TickInterval:     cfg.TickInterval,
	}, fileCfg)
}

func newChallengeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "challenge [id]",
		Short: "Attempt a challenge (today's daily challenge by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runChallengeCmd,
	}
	cmd.Flags().BoolVar(&testBackspace, "backspace", true, "allow backspace")
	return cmd
}

func runChallengeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyBoolConfig(cmd, "backspace", &testBackspace, fileCfg.Practice.Backspace)

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	ch, err := selectChallenge(cat, args)
	if err != nil {
		return err
	}
	return runTypingTUI(cmd, tui.Options{
		Kind:             session.KindChallenge,
		Challenge:        &ch,
		Language:         ch.Language,
		Difficulty:       ch.Difficulty,
		BackspaceAllowed: testBackspace,
		TickInterval:     session.DefaultTimedTick,
	}, fileCfg)
}

func selectChallenge(cat *catalog.Catalog, args []string) (catalog.Challenge, error) {
	if len(args) == 1 {
		ch, err := cat.Challenge(args[0])
		if err != nil {
			if errors.Is(err, catalog.ErrUnknownChallenge) {
				return catalog.Challenge{}, fmt.Errorf("%w (run: codetype challenges)", err)
			}
			return catalog.Challenge{}, err
		}
		return ch, nil
	}
	daily := cat.Daily()
	if len(daily) == 0 {
		return catalog.Challenge{}, fmt.Errorf("no daily challenge available")
	}
	// Rotate through the daily pool by UTC day.
	idx := int(stats.DayIndex(time.Now()) % int64(len(daily)))
	return daily[idx], nil
}

func newChallengesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "challenges",
		Short: "List daily, weekly and level challenges",
		Args:  cobra.NoArgs,
		RunE:  runChallengesCmd,
	}
}

func runChallengesCmd(cmd *cobra.Command, _ []string) error {
	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}
	now := time.Now()
	groups := []struct {
		title string
		typ   catalog.ChallengeType
		list  []catalog.Challenge
	}{
		{"Daily", catalog.ChallengeDaily, cat.Daily()},
		{"Weekly", catalog.ChallengeWeekly, cat.Weekly()},
		{"Levels", catalog.ChallengeLevel, cat.Levels()},
	}
	out := cmd.OutOrStdout()
	for _, g := range groups {
		header := g.title
		if reset := catalog.NextReset(g.typ, now); !reset.IsZero() {
			header = fmt.Sprintf("%s (resets in %s)", g.title, formatUntil(reset.Sub(now)))
		}
		if _, err := fmt.Fprintln(out, header); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		for _, ch := range g.list {
			line := fmt.Sprintf("  %-18s %-28s %s/%s  %d WPM  %d%%", ch.ID, ch.Title, ch.Language, ch.Difficulty, ch.TargetWPM, ch.TargetAccuracy)
			if ch.Duration > 0 {
				line += fmt.Sprintf("  %ds", ch.Duration)
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newLearnCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Show typing tips, common mistakes and shortcuts",
		Args:  cobra.NoArgs,
		RunE:  runLearnCmd,
	}
	cmd.Flags().StringVar(&learnSection, "section", "", "only show one section: "+strings.Join(catalog.GuideSections, ", "))
	return cmd
}

func runLearnCmd(cmd *cobra.Command, _ []string) error {
	section := strings.ToLower(strings.TrimSpace(learnSection))
	if section != "" && !catalog.HasSection(section) {
		return fmt.Errorf("unknown --section %q (use %s)", learnSection, strings.Join(catalog.GuideSections, ", "))
	}
	guide, err := catalog.DefaultGuide()
	if err != nil {
		return fmt.Errorf("failed to load guide: %w", err)
	}

	var lines []string
	if section == "" || section == catalog.SectionTips {
		lines = append(lines, "Typing tips for programmers")
		for i, tip := range guide.Tips {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, tip.Title), "     "+tip.Detail)
		}
		lines = append(lines, "")
	}
	if section == "" || section == catalog.SectionFingers {
		lines = append(lines, "Finger placement")
		for _, zone := range guide.Fingers {
			lines = append(lines, fmt.Sprintf("  %-11s %-12s %s", zone.Hand, zone.Keys, zone.Fingers))
		}
		lines = append(lines, "")
	}
	if section == "" || section == catalog.SectionMistakes {
		lines = append(lines, "Common code typing mistakes")
		for _, m := range guide.Mistakes {
			lines = append(lines, "  "+m.Mistake)
			for _, ex := range strings.Split(m.Example, "\n") {
				lines = append(lines, "     x "+ex)
			}
			lines = append(lines, "     fix: "+m.Fix)
		}
		lines = append(lines, "")
	}
	if section == "" || section == catalog.SectionShortcuts {
		lines = append(lines, "Keyboard shortcuts")
		for _, category := range guide.ShortcutCategories() {
			lines = append(lines, "  "+category)
			for _, sc := range guide.Shortcuts {
				if sc.Category == category {
					lines = append(lines, fmt.Sprintf("    %-18s %s", sc.Keys, sc.Action))
				}
			}
		}
		lines = append(lines, "")
	}

	out := cmd.OutOrStdout()
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newLangsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "langs",
		Short: "List snippet languages and difficulties",
		Args:  cobra.NoArgs,
		RunE:  runLangsCmd,
	}
	cmd.Flags().StringVar(&testSnippets, "snippets", "", "YAML file with extra snippets")
	return cmd
}

func runLangsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "snippets", &testSnippets, fileCfg.Practice.Snippets)
	cat, err := loadCatalog(testSnippets)
	if err != nil {
		return err
	}
	for _, lang := range cat.Languages() {
		var levels []string
		for _, diff := range cat.Difficulties() {
			if n := len(cat.Snippets(lang, diff)); n > 0 {
				levels = append(levels, fmt.Sprintf("%s (%d)", diff, n))
			}
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", lang, strings.Join(levels, ", ")); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func addStatsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&statsLang, "lang", "", "language filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N results")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Browse stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	addStatsFlags(cmd)
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := resolveStats(cmd, fileCfg.Stats)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "remote", &globalRemote, fileCfg.Server.Remote)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Stats.Database)

	logger, err := newFileLogger()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	agg, closeAgg, err := openAggregator(logger)
	if err != nil {
		return err
	}
	defer closeAgg()

	m := statsui.NewModel(agg, cfg, time.Now, logger)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(contextOrBackground(cmd.Context())))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print stats and recent results",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	addStatsFlags(cmd)
	cmd.Flags().IntVar(&historyLimit, "limit", defaultHistoryLimit, "rows in the results table (0 for all)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err := resolveStats(cmd, fileCfg.Stats)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "remote", &globalRemote, fileCfg.Server.Remote)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Stats.Database)

	logger, err := newStderrLogger()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	agg, closeAgg, err := openAggregator(logger)
	if err != nil {
		return err
	}
	defer closeAgg()

	ctx := contextOrBackground(cmd.Context())
	report, err := stats.BuildReport(ctx, agg, cfg, time.Now())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color := stats.ColorEnabled(out)
	if err := stats.RenderSummary(out, report.Overall, report.Streak); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if report.Overall.Total == 0 {
		return nil
	}
	if err := stats.RenderHistory(out, report.Records, historyLimit); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCurves(out, report.Records, report.Window, stats.TerminalPlotWidth(), historyPlotHeight, color); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderCalendar(out, report.Calendar, color); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the results store over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "listen address")
	cmd.Flags().StringSliceVar(&serveCORS, "cors-origin", nil, "allowed CORS origin (repeatable)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Server.Addr)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Stats.Database)
	if !cmd.Flags().Changed("cors-origin") && len(fileCfg.Server.CORSOrigins) > 0 {
		serveCORS = fileCfg.Server.CORSOrigins
	}
	if globalRemote != "" {
		return fmt.Errorf("--remote cannot be used with serve")
	}

	logger, err := newStderrLogger()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	agg, closeAgg, err := openAggregator(logger)
	if err != nil {
		return err
	}
	defer closeAgg()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd.Context()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(agg, logger, api.ServerOptions{CORSOrigins: serveCORS})
	logServeStart(logger)
	return srv.ListenAndServe(ctx, serveAddr)
}

func logServeStart(logger *zap.Logger) {
	logger.Info("serving results",
		zap.String("addr", serveAddr),
		zap.String("url", "http://"+serveAddr),
		zap.String("db", globalDB),
	)
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func runTypingTUI(cmd *cobra.Command, opts tui.Options, fileCfg config.FileConfig) error {
	applyStringConfig(cmd, "remote", &globalRemote, fileCfg.Server.Remote)
	applyStringConfig(cmd, "db", &globalDB, fileCfg.Stats.Database)

	logger, err := newFileLogger()
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	cat, err := loadCatalog(testSnippets)
	if err != nil {
		return err
	}
	agg, closeAgg, err := openAggregator(logger)
	if err != nil {
		return err
	}
	defer closeAgg()

	m, err := tui.NewModel(opts, cat, agg, logger)
	if err != nil {
		return err
	}
	logger.Info("starting attempt",
		zap.String("kind", string(opts.Kind)),
		zap.String("language", opts.Language),
		zap.String("difficulty", opts.Difficulty),
	)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(contextOrBackground(cmd.Context())))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func formatUntil(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	if h >= 24 {
		return fmt.Sprintf("%dd %dh", h/24, h%24)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
