package app

import (
	"context"
	"fmt"
	"os"

	"dupcat/internal/catalog"
	"dupcat/internal/config"
	"dupcat/internal/digest"
	"dupcat/internal/dupcat"

	"github.com/google/uuid"
)

// Options control how the App opens the catalog and how loudly it logs.
type Options struct {
	Create    bool // initialize a fresh catalog (full-rebuild mode)
	Force     bool // allow overwriting an existing catalog on Create
	Verbosity int  // repeatable -v flag count
}

// App is the application layer between the CLI and the dupcat Service.
// It constructs all dependencies from config, exposes high-level
// operations, and manages the catalog lifecycle on Close.
type App struct {
	cfg     *config.Config
	catalog *catalog.SQLiteCatalog
	service *dupcat.Service
	logFile *os.File
	runID   string
}

// NewApp creates a fully wired App from the given config.
// operation identifies the CLI command being run (e.g. "Init", "Update").
// The caller must call Close when done.
func NewApp(cfg *config.Config, operation string, opts Options) (*App, error) {
	threshold, err := dupcat.ParseSize(cfg.Hashing.Threshold)
	if err != nil {
		return nil, fmt.Errorf("invalid hashing threshold: %w", err)
	}
	engine := digest.NewEngine(threshold, cfg.Hashing.Sequential)

	var cat *catalog.SQLiteCatalog
	if opts.Create {
		path, err := catalog.CatalogPath(cfg.Catalog)
		if err != nil {
			return nil, fmt.Errorf("resolving catalog path: %w", err)
		}
		cat, err = catalog.Initialize(path, opts.Force)
		if err != nil {
			return nil, fmt.Errorf("initializing catalog: %w", err)
		}
	} else {
		cat, err = catalog.NewFromConfig(cfg.Catalog)
		if err != nil {
			return nil, fmt.Errorf("opening catalog: %w", err)
		}
		if err := cat.CheckMigrations(); err != nil {
			cat.Close()
			return nil, fmt.Errorf("catalog schema out of date: %w", err)
		}
	}

	runID := uuid.New().String()[:8]
	logger, logFile, err := newLogger(cfg.LogDir, runID, opts.Verbosity)
	if err != nil {
		cat.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	log := &slogAdapter{l: logger}
	log.Info("run started", "operation", operation)

	return &App{
		cfg:     cfg,
		catalog: cat,
		service: dupcat.NewService(cat, engine, log, dupcat.RealClock{}),
		logFile: logFile,
		runID:   runID,
	}, nil
}

// ScanDefaults builds scan options from the config, resolving size
// bound strings. root overrides the configured default root; at least
// one of the two must be set.
//
// This is a pure function of the config so callers can validate an
// invocation fully before opening (or, for a full rebuild, destroying)
// the catalog.
func ScanDefaults(cfg *config.Config, root string) (dupcat.ScanOptions, error) {
	if root == "" {
		root = cfg.Root
	}
	if root == "" {
		return dupcat.ScanOptions{}, fmt.Errorf("no data path given and no root configured")
	}

	minSize, err := dupcat.ParseSize(cfg.Scan.MinSize)
	if err != nil {
		return dupcat.ScanOptions{}, fmt.Errorf("invalid min_size: %w", err)
	}
	maxSize, err := dupcat.ParseSize(cfg.Scan.MaxSize)
	if err != nil {
		return dupcat.ScanOptions{}, fmt.Errorf("invalid max_size: %w", err)
	}

	return dupcat.ScanOptions{
		Root:           root,
		Excludes:       cfg.Scan.Excludes,
		FollowSymlinks: cfg.Scan.FollowSymlinks,
		MinSize:        minSize,
		MaxSize:        maxSize,
		NoHash:         cfg.Hashing.Disable,
		LowerPriority:  cfg.Scan.LowerPriority,
	}, nil
}

// Scan runs a full or incremental scan with the given options.
func (a *App) Scan(ctx context.Context, opts dupcat.ScanOptions) (*dupcat.ScanResult, error) {
	return a.service.Scan(ctx, opts)
}

// Update runs an incremental scan, preceded by an implicit catalog
// cleanup unless noCleanup is set. Returns the number of stale records
// removed alongside the scan result.
func (a *App) Update(ctx context.Context, opts dupcat.ScanOptions, noCleanup bool) (int, *dupcat.ScanResult, error) {
	removed := 0
	if !noCleanup {
		var err error
		removed, err = a.service.Cleanup(ctx)
		if err != nil {
			return removed, nil, fmt.Errorf("implicit cleanup: %w", err)
		}
	}

	opts.Incremental = true
	res, err := a.service.Scan(ctx, opts)
	return removed, res, err
}

// Cleanup removes catalog records whose path no longer exists on disk.
func (a *App) Cleanup(ctx context.Context) (int, error) {
	return a.service.Cleanup(ctx)
}

// Duplicates resolves duplicate groups from the catalog.
func (a *App) Duplicates(ctx context.Context, opts dupcat.ResolveOptions) (*dupcat.DuplicateReport, error) {
	return a.service.FindDuplicateGroups(ctx, opts)
}

// Merge replaces duplicate paths with hardlinks to their group
// representative.
func (a *App) Merge(ctx context.Context, opts dupcat.ResolveOptions, force bool) (*dupcat.MergeResult, error) {
	return a.service.MergeDuplicates(ctx, opts, force)
}

// Close closes the catalog and the log file.
func (a *App) Close() error {
	var firstErr error

	if err := a.catalog.Close(); err != nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
