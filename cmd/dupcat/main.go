package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"dupcat/internal/app"
	"dupcat/internal/config"
	"dupcat/internal/dupcat"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	verbosity    int
	experimental bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config from its default (or env-overridden)
// location.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp creates an App from an already-loaded config. The caller must
// defer app.Close(). operation identifies the CLI command being run
// (e.g. "Init", "Update").
func newApp(cfg *config.Config, operation string, opts app.Options) (*app.App, error) {
	opts.Verbosity = verbosity
	a, err := app.NewApp(cfg, operation, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// runContext returns a context cancelled on SIGINT/SIGTERM, so the
// long-running loops can stop between files or groups and report the
// partial result collected so far.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

var rootCmd = &cobra.Command{
	Use:           "dupcat",
	Short:         "Catalog a file tree and reclaim duplicate files via hardlinks",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Root:      %s\n", cfg.Root)
		fmt.Printf("Catalog:   %s (%s)\n", cfg.Catalog.Type, cfg.Catalog.DataDir)
		fmt.Printf("Excludes:  %v\n", cfg.Scan.Excludes)
		return nil
	},
}

// applyScanFlags overrides config-derived scan options with any flags
// the user set explicitly on this invocation.
func applyScanFlags(cmd *cobra.Command, opts *dupcat.ScanOptions) error {
	flags := cmd.Flags()

	if flags.Changed("exclude") {
		excludes, _ := flags.GetStringArray("exclude")
		opts.Excludes = excludes
	}
	if flags.Changed("follow") {
		opts.FollowSymlinks, _ = flags.GetBool("follow")
	}
	if flags.Changed("no-hash") {
		opts.NoHash, _ = flags.GetBool("no-hash")
	}
	if flags.Changed("min-size") {
		raw, _ := flags.GetString("min-size")
		size, err := dupcat.ParseSize(raw)
		if err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
		opts.MinSize = size
	}
	if flags.Changed("max-size") {
		raw, _ := flags.GetString("max-size")
		size, err := dupcat.ParseSize(raw)
		if err != nil {
			return fmt.Errorf("invalid --max-size: %w", err)
		}
		opts.MaxSize = size
	}
	return nil
}

// addScanFlags registers the traversal policy flags shared by init and
// update.
func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("exclude", nil, "Exclude directories matching this pattern (repeatable)")
	cmd.Flags().Bool("follow", false, "Follow symbolic links")
	cmd.Flags().Bool("no-hash", false, "Skip hashing and store empty digests (experimental; defeats duplicate detection)")
	cmd.Flags().String("min-size", "", "Ignore files smaller than this (suffixes k/m/g/t, powers of 1024)")
	cmd.Flags().String("max-size", "", "Ignore files larger than this (suffixes k/m/g/t, powers of 1024)")
}

func printScanSummary(res *dupcat.ScanResult) {
	fmt.Printf("Indexed %d new, %d updated, %d skipped, %d errors\n",
		res.Added, res.Updated, res.Skipped, res.Errors)
}

// init command
var initCmd = &cobra.Command{
	Use:   "init [PATH]",
	Short: "Build the catalog from scratch (drops any existing catalog)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root := ""
		if len(args) > 0 {
			root = args[0]
		}
		// The invocation is validated fully before the App is built:
		// a full rebuild drops the existing catalog, and a bad root or
		// size flag must not cost the user their index.
		opts, err := app.ScanDefaults(cfg, root)
		if err != nil {
			return err
		}
		if err := applyScanFlags(cmd, &opts); err != nil {
			return err
		}

		a, err := newApp(cfg, "Init", app.Options{Create: true, Force: force})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := runContext()
		defer stop()

		res, err := a.Scan(ctx, opts)
		if err != nil {
			return fmt.Errorf("full rebuild failed: %w", err)
		}
		printScanSummary(res)
		return nil
	},
}

// update command
var updateCmd = &cobra.Command{
	Use:   "update [PATH]",
	Short: "Incrementally update the catalog (re-hashes only changed files)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noCleanup, _ := cmd.Flags().GetBool("no-cleanup")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root := ""
		if len(args) > 0 {
			root = args[0]
		}
		opts, err := app.ScanDefaults(cfg, root)
		if err != nil {
			return err
		}
		if err := applyScanFlags(cmd, &opts); err != nil {
			return err
		}

		a, err := newApp(cfg, "Update", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := runContext()
		defer stop()

		removed, res, err := a.Update(ctx, opts, noCleanup)
		if err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		if !noCleanup {
			fmt.Printf("Removed %d stale record(s)\n", removed)
		}
		printScanSummary(res)
		return nil
	},
}

// cleanup command
var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove catalog records whose files no longer exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cfg, "Cleanup", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := runContext()
		defer stop()

		removed, err := a.Cleanup(ctx)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Printf("Removed %d stale record(s)\n", removed)
		return nil
	},
}

// resolveFlags reads the filter flags shared by dupes, csv and link.
func resolveFlags(cmd *cobra.Command) (dupcat.ResolveOptions, error) {
	flags := cmd.Flags()
	opts := dupcat.ResolveOptions{}

	opts.PathPrefix, _ = flags.GetString("prefix")
	if raw, _ := flags.GetString("min-size"); raw != "" {
		size, err := dupcat.ParseSize(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid --min-size: %w", err)
		}
		opts.MinSize = size
	}
	if raw, _ := flags.GetString("max-size"); raw != "" {
		size, err := dupcat.ParseSize(raw)
		if err != nil {
			return opts, fmt.Errorf("invalid --max-size: %w", err)
		}
		opts.MaxSize = size
	}
	return opts, nil
}

func addResolveFlags(cmd *cobra.Command) {
	cmd.Flags().String("prefix", "", "Only consider cataloged paths under this prefix")
	cmd.Flags().String("min-size", "", "Only consider files at least this large (suffixes k/m/g/t)")
	cmd.Flags().String("max-size", "", "Only consider files at most this large (suffixes k/m/g/t)")
}

// dupes command
var dupesCmd = &cobra.Command{
	Use:   "dupes",
	Short: "Report duplicate files and wasted space",
	RunE: func(cmd *cobra.Command, args []string) error {
		brief, _ := cmd.Flags().GetBool("brief")

		opts, err := resolveFlags(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cfg, "Duplicates", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := runContext()
		defer stop()

		report, err := a.Duplicates(ctx, opts)
		if err != nil {
			return fmt.Errorf("duplicate resolution failed: %w", err)
		}

		printReport(report, brief)
		return nil
	},
}

func printReport(report *dupcat.DuplicateReport, brief bool) {
	if report.Sentinel {
		fmt.Println("WARNING: catalog contains records indexed with hashing disabled;")
		fmt.Println("groups built from empty digests do not indicate identical content.")
		fmt.Println()
	}

	var running int64
	for _, g := range report.Groups {
		fmt.Println(g.Representative())
		for _, cluster := range g.Clusters[1:] {
			for _, path := range cluster.Paths {
				fmt.Printf("  %s\n", path)
			}
		}
		running += g.Waste
		if !brief {
			fmt.Printf("  wasted: %s (running total %s)\n",
				humanize.IBytes(uint64(g.Waste)), humanize.IBytes(uint64(running)))
		}
	}

	fmt.Printf("\n%d duplicate group(s), %s wasted\n",
		len(report.Groups), humanize.IBytes(uint64(report.TotalWaste)))
	if report.Partial {
		fmt.Println("(interrupted; totals cover groups resolved so far)")
	}
}

// csv command
var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Emit duplicate clusters as CSV (group, size, path)",
	RunE: func(cmd *cobra.Command, args []string) error {
		noTotal, _ := cmd.Flags().GetBool("no-total")

		opts, err := resolveFlags(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cfg, "DuplicatesCSV", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := runContext()
		defer stop()

		report, err := a.Duplicates(ctx, opts)
		if err != nil {
			return fmt.Errorf("duplicate resolution failed: %w", err)
		}

		return writeCSV(os.Stdout, report, noTotal)
	},
}

// writeCSV emits one row per physical cluster as (group sequence
// number, size, path). A cluster's hardlinked aliases share one row,
// so summing the size column over a group's non-first rows gives its
// wasted bytes exactly once.
func writeCSV(out io.Writer, report *dupcat.DuplicateReport, noTotal bool) error {
	w := csv.NewWriter(out)
	for i, g := range report.Groups {
		for _, cluster := range g.Clusters {
			record := []string{
				strconv.Itoa(i + 1),
				strconv.FormatInt(cluster.Size, 10),
				cluster.Paths[0],
			}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("writing csv: %w", err)
			}
		}
	}
	if !noTotal {
		total := []string{"total", strconv.FormatInt(report.TotalWaste, 10), ""}
		if err := w.Write(total); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// link command
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Merge duplicate files into hardlinks (experimental)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !experimental {
			return fmt.Errorf("link rewrites files on disk; pass --experimental to enable it")
		}
		force, _ := cmd.Flags().GetBool("force")

		opts, err := resolveFlags(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		a, err := newApp(cfg, "Link", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := runContext()
		defer stop()

		res, err := a.Merge(ctx, opts, force)
		if err != nil {
			return fmt.Errorf("merge failed: %w", err)
		}

		fmt.Printf("Linked %d path(s), skipped %d, failed %d, reclaimed %s\n",
			res.Linked, res.Skipped, res.Failed, humanize.IBytes(uint64(res.Reclaimed)))
		if res.Skipped > 0 && !force {
			fmt.Println("(existing files are left untouched without --force)")
		}
		if res.Partial {
			fmt.Println("(interrupted; remaining groups were not merged)")
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&experimental, "experimental", false, "Allow experimental features")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	rootCmd.AddCommand(configCmd)

	// init
	addScanFlags(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing catalog")
	rootCmd.AddCommand(initCmd)

	// update
	addScanFlags(updateCmd)
	updateCmd.Flags().Bool("no-cleanup", false, "Skip the implicit catalog cleanup")
	rootCmd.AddCommand(updateCmd)

	// cleanup
	rootCmd.AddCommand(cleanupCmd)

	// dupes
	addResolveFlags(dupesCmd)
	dupesCmd.Flags().Bool("brief", false, "Suppress per-group waste lines")
	rootCmd.AddCommand(dupesCmd)

	// csv
	addResolveFlags(csvCmd)
	csvCmd.Flags().Bool("no-total", false, "Suppress the trailing total line")
	rootCmd.AddCommand(csvCmd)

	// link
	addResolveFlags(linkCmd)
	linkCmd.Flags().Bool("force", false, "Remove pre-existing files before linking")
	rootCmd.AddCommand(linkCmd)
}
