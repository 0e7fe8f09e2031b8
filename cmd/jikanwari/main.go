// Package main provides the CLI entrypoint for jikanwari.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/jikanwari/internal/config"
	"github.com/verte-zerg/jikanwari/internal/dataset"
	"github.com/verte-zerg/jikanwari/internal/model"
	"github.com/verte-zerg/jikanwari/internal/timetable"
	"github.com/verte-zerg/jikanwari/internal/tui"
	"github.com/verte-zerg/jikanwari/internal/web"
)

const (
	defaultAddr     = ":8080"
	defaultEncoding = "cp932"
	latestWeek      = "latest"
)

var (
	viewData    string
	viewClass   string
	viewWeek    string
	viewDefault string
	viewLocale  string
	logLevel    string
	verbose     bool

	serveAddr  string
	serveWatch bool

	showColor bool

	importOut      string
	importArchive  bool
	importEncoding string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jikanwari",
		Short:         "Weekly class timetable viewer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runViewCmd,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&viewData, "data", config.DefaultDataPath(), "dataset file (.json, .js, .yaml, .csv)")
	flags.StringVar(&viewWeek, "week", "", "archived week to show instead of the data file (or 'latest')")
	flags.StringVar(&viewDefault, "default-class", timetable.DefaultClass, "class shown when none is requested")
	flags.StringVar(&viewLocale, "locale", timetable.DefaultLocale, "collation locale for class names")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.Flags().StringVar(&viewClass, "class", "", "class to show first")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newClassesCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newWeeksCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func runViewCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, cfg, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}
	// The viewer owns the terminal, so logs always go to a file.
	logger, err := newLogger(logFile(fileCfg, config.DefaultLogPath()))
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	opts := importOptions(fileCfg)
	state, week, loadErr := loadState(cmd.Context(), cfg, opts, logger)
	if loadErr != nil {
		logger.Error("failed to load timetable", zap.Error(loadErr))
	}
	logger.Info("viewer started", zap.String("week", week), zap.Int("classes", len(state.Classes)))

	m := tui.NewModel(state, tui.Options{
		Requested: cfg.Class,
		Preferred: cfg.DefaultClass,
		LoadErr:   loadErr,
		Week:      week,
		Weeks:     archivedWeeks(cmd.Context(), logger),
		LoadWeek: func(w string) (timetable.State, error) {
			weekCfg := cfg
			weekCfg.Week = w
			state, _, err := loadState(cmd.Context(), weekCfg, opts, logger)
			return state, err
		},
	}, logger)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve timetables over HTTP",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", defaultAddr, "HTTP listen address")
	cmd.Flags().BoolVar(&serveWatch, "watch", false, "reload when the data file changes")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, view, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "addr", &serveAddr, fileCfg.Serve.Addr)
	applyBoolConfig(cmd, "watch", &serveWatch, fileCfg.Serve.Watch)
	cfg := model.ServeConfig{
		Addr:         serveAddr,
		DataPath:     view.DataPath,
		Week:         view.Week,
		Watch:        serveWatch,
		DefaultClass: view.DefaultClass,
		Locale:       view.Locale,
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("--addr must not be empty")
	}

	logger, err := newLogger(logFile(fileCfg, ""))
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	opts := importOptions(fileCfg)
	load := func() (timetable.State, error) {
		state, _, err := loadState(context.Background(), view, opts, logger)
		return state, err
	}

	state, week, loadErr := loadState(cmd.Context(), view, opts, logger)
	if loadErr != nil {
		logger.Error("failed to load timetable", zap.Error(loadErr))
	}
	srv := web.New(web.Options{Preferred: cfg.DefaultClass, Week: week, Logger: logger})
	srv.SetState(state, loadErr)

	watchPath := ""
	if cfg.Watch {
		if cfg.Week != "" {
			logger.Warn("--watch ignored for archived weeks", zap.String("week", cfg.Week))
		} else {
			watchPath = cfg.DataPath
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Run(ctx, cfg.Addr, watchPath, load); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one class timetable",
		Args:  cobra.NoArgs,
		RunE:  runShowCmd,
	}
	cmd.Flags().StringVar(&viewClass, "class", "", "class to print")
	cmd.Flags().BoolVar(&showColor, "color", false, "force styled output")
	return cmd
}

func runShowCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, cfg, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(logFile(fileCfg, ""))
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	state, _, err := loadState(cmd.Context(), cfg, importOptions(fileCfg), logger)
	if err != nil {
		return err
	}
	_, view := timetable.InitialView(state, cfg.Class, cfg.DefaultClass)
	if cfg.Class != "" && !state.HasClass(cfg.Class) {
		view = timetable.Render(state, cfg.Class)
	}
	if view.Kind != timetable.ViewGrid {
		return errors.New(timetable.FormatView(view))
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, formatShow(view, shouldUseColor(out, showColor))); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

var (
	showTitleStyle  = lipgloss.NewStyle().Bold(true)
	showHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

func formatShow(view timetable.View, styled bool) string {
	if !styled {
		return timetable.FormatView(view)
	}
	lines := timetable.FormatGrid(view.Grid)
	out := []string{showTitleStyle.Render(view.Grid.Title), ""}
	for i, line := range lines {
		if i == 0 {
			line = showHeaderStyle.Render(line)
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func newClassesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List class names in display order",
		Args:  cobra.NoArgs,
		RunE:  runClassesCmd,
	}
}

func runClassesCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, cfg, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(logFile(fileCfg, ""))
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	state, _, err := loadState(cmd.Context(), cfg, importOptions(fileCfg), logger)
	if err != nil {
		return err
	}
	if len(state.Classes) == 0 {
		logErrln(timetable.MsgNoClasses)
		return fmt.Errorf("no classes found")
	}
	for _, class := range state.Classes {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), class); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <csv>",
		Short: "Convert a weekly CSV export into a dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  runImportCmd,
	}
	cmd.Flags().StringVarP(&importOut, "out", "o", "", "output dataset (.json or .js, '-' for stdout; default: --data)")
	cmd.Flags().BoolVar(&importArchive, "archive", false, "also archive the week in the snapshot store")
	cmd.Flags().StringVar(&importEncoding, "encoding", defaultEncoding, "CSV encoding (cp932, utf-8)")
	return cmd
}

func runImportCmd(cmd *cobra.Command, args []string) error {
	fileCfg, cfg, err := resolveViewConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "encoding", &importEncoding, fileCfg.Import.Encoding)
	logger, err := newLogger(logFile(fileCfg, ""))
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	src := args[0]
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close csv: %v\n", cerr)
		}
	}()
	opts := importOptions(fileCfg)
	opts.Encoding = importEncoding
	imp, err := dataset.ImportCSV(f, opts)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", src, err)
	}
	if len(imp.Records) == 0 {
		logErrf("warning: %s contains no lessons\n", src)
	}
	warnConflicts(logger, timetable.Normalize(imp.Records))

	out := importOut
	if out == "" {
		out = cfg.DataPath
	}
	if out == "-" {
		if err := dataset.Write(cmd.OutOrStdout(), imp.Records, false); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
	} else {
		if err := writeDataset(out, imp.Records); err != nil {
			return err
		}
		logErrf("Wrote %d lessons for week %s to %s\n", len(imp.Records), imp.Week, out)
	}

	if importArchive {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		snap := model.Snapshot{Week: imp.Week, Source: filepath.Base(src), Records: imp.Records}
		if err := st.SaveSnapshot(cmd.Context(), snap, time.Now()); err != nil {
			return fmt.Errorf("failed to archive week: %w", err)
		}
		logger.Info("week archived", zap.String("week", imp.Week), zap.Int("lessons", len(imp.Records)))
		logErrf("Archived week %s\n", imp.Week)
	}
	return nil
}

// writeDataset replaces path atomically. A .js path gets the
// "const timetableData = ...;" wrapper.
func writeDataset(path string, records []model.RawRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create dataset dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "dataset-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp dataset: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	asJS := strings.EqualFold(filepath.Ext(path), ".js")
	if err := dataset.Write(tmpFile, records, asJS); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close dataset: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write dataset: %w", err)
	}
	return nil
}

func newWeeksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "weeks",
		Short: "List archived weeks",
		Args:  cobra.NoArgs,
		RunE:  runWeeksCmd,
	}
}

func runWeeksCmd(cmd *cobra.Command, _ []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	weeks, err := st.ListWeeks(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list weeks: %w", err)
	}
	if len(weeks) == 0 {
		logErrln("No archived weeks. Archive one with: jikanwari import <csv> --archive")
		return nil
	}
	rows := make([][]string, 0, len(weeks))
	for _, w := range weeks {
		rows = append(rows, []string{
			w.Week,
			strconv.Itoa(w.Lessons),
			w.ImportedAt.Local().Format("2006-01-02 15:04"),
			w.Source,
		})
	}
	lines := timetable.FormatTable([]string{"week", "lessons", "imported", "source"}, rows, map[int]bool{1: true})
	for _, line := range lines {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
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

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# jikanwari configuration
# Uncomment a value to enable it. CLI flags override config values.

[view]
# data = %q           # Dataset file (.json, .js, .yaml, .csv)
# default-class = %q  # Class shown when none is requested
# locale = %q         # Collation locale for class names

[serve]
# addr = %q           # HTTP listen address
# watch = false       # Reload when the data file changes

[import]
# encoding = %q       # CSV encoding (cp932, utf-8)

[import.aliases]
# "２理探" = "2年理数探究"  # Raw CSV class cell -> display name

[log]
# level = "info"      # debug, info, warn, error
# file = ""           # Log file (the viewer always logs to a file)
`,
		config.DefaultDataPath(),
		timetable.DefaultClass,
		timetable.DefaultLocale,
		defaultAddr,
		defaultEncoding,
	)
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

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
