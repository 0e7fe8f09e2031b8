package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/jikanwari/internal/config"
	"github.com/verte-zerg/jikanwari/internal/dataset"
	"github.com/verte-zerg/jikanwari/internal/logging"
	"github.com/verte-zerg/jikanwari/internal/model"
	"github.com/verte-zerg/jikanwari/internal/store"
	"github.com/verte-zerg/jikanwari/internal/timetable"
)

// resolveViewConfig merges the config file into the shared view flags.
func resolveViewConfig(cmd *cobra.Command) (config.FileConfig, model.Config, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, model.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "data", &viewData, fileCfg.View.Data)
	applyStringConfig(cmd, "default-class", &viewDefault, fileCfg.View.DefaultClass)
	applyStringConfig(cmd, "locale", &viewLocale, fileCfg.View.Locale)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)

	cfg := model.Config{
		DataPath:     strings.TrimSpace(viewData),
		Week:         strings.TrimSpace(viewWeek),
		Class:        strings.TrimSpace(viewClass),
		DefaultClass: strings.TrimSpace(viewDefault),
		Locale:       strings.TrimSpace(viewLocale),
	}
	if cfg.Week == "" && cfg.DataPath == "" {
		return config.FileConfig{}, model.Config{}, fmt.Errorf("--data must not be empty")
	}
	return fileCfg, cfg, nil
}

// logFile returns the configured log file, or fallback ("" means stderr).
func logFile(fileCfg config.FileConfig, fallback string) string {
	if fileCfg.Log.File != nil && strings.TrimSpace(*fileCfg.Log.File) != "" {
		return *fileCfg.Log.File
	}
	return fallback
}

func newLogger(file string) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{Level: logLevel, File: file, Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

func syncLogger(logger *zap.Logger) {
	if err := logger.Sync(); err != nil {
		// Syncing stderr fails on some terminals; nothing to do about it.
		_ = err
	}
}

func importOptions(fileCfg config.FileConfig) dataset.ImportOptions {
	opts := dataset.ImportOptions{Encoding: defaultEncoding, Aliases: fileCfg.Import.Aliases}
	if fileCfg.Import.Encoding != nil {
		opts.Encoding = *fileCfg.Import.Encoding
	}
	return opts
}

// loadState reads the working set from the data file, or from the snapshot
// store when a week is requested. It returns the week label when known.
func loadState(ctx context.Context, cfg model.Config, opts dataset.ImportOptions, logger *zap.Logger) (timetable.State, string, error) {
	normalizer, err := timetable.NewNormalizer(cfg.Locale)
	if err != nil {
		return timetable.State{}, "", err
	}

	var records []model.RawRecord
	week := ""
	if cfg.Week != "" {
		snap, err := loadSnapshot(ctx, cfg.Week)
		if err != nil {
			return timetable.State{}, "", err
		}
		records = snap.Records
		week = snap.Week
		logger.Debug("loaded snapshot", zap.String("week", week), zap.String("source", snap.Source))
	} else {
		records, err = dataset.Load(cfg.DataPath, opts)
		if err != nil {
			return timetable.State{}, "", err
		}
		logger.Debug("loaded dataset", zap.String("path", cfg.DataPath), zap.Int("records", len(records)))
	}

	state := normalizer.Normalize(records)
	warnConflicts(logger, state)
	return state, week, nil
}

func loadSnapshot(ctx context.Context, week string) (model.Snapshot, error) {
	st, err := openStore()
	if err != nil {
		return model.Snapshot{}, err
	}
	defer closeStore(st)

	if strings.EqualFold(week, latestWeek) {
		week = ""
	}
	snap, err := st.LoadSnapshot(ctx, week)
	if errors.Is(err, store.ErrNotFound) {
		if week == "" {
			return model.Snapshot{}, fmt.Errorf("no archived weeks; run: jikanwari import <csv> --archive")
		}
		return model.Snapshot{}, fmt.Errorf("week %s is not archived; run: jikanwari weeks", week)
	}
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("failed to load week: %w", err)
	}
	return snap, nil
}

func warnConflicts(logger *zap.Logger, state timetable.State) {
	for _, c := range state.Conflicts {
		logger.Warn("more than one lesson in a slot; showing the first",
			zap.String("class", c.Class),
			zap.String("weekday", c.Weekday),
			zap.Int("period", c.Period),
			zap.Strings("subjects", c.Subjects))
	}
}

// archivedWeeks lists archived weeks for the viewer's week picker. A
// missing database means no archive, and is not created.
func archivedWeeks(ctx context.Context, logger *zap.Logger) []store.WeekInfo {
	if _, err := os.Stat(config.DefaultDBPath()); err != nil {
		return nil
	}
	st, err := openStore()
	if err != nil {
		logger.Warn("snapshot store unavailable", zap.Error(err))
		return nil
	}
	defer closeStore(st)
	weeks, err := st.ListWeeks(ctx)
	if err != nil {
		logger.Warn("failed to list weeks", zap.Error(err))
		return nil
	}
	return weeks
}

func openStore() (*store.Store, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}
