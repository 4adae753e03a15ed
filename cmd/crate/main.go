// Package main provides the crate command-line interface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/crateapp/crate/internal/config"
	"github.com/crateapp/crate/internal/debounce"
	"github.com/crateapp/crate/internal/di"
	"github.com/crateapp/crate/internal/logger"
	"github.com/crateapp/crate/internal/sorter"
	"github.com/crateapp/crate/internal/systemd"
	"github.com/crateapp/crate/internal/watcher"
)

var (
	version = "0.1.0"
	cfgFile string

	sortFormat    string
	sortDryrun    bool
	sortRecursive bool
	sortRmEmpty   bool
	sortExfat     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crate",
		Short: "Sort music libraries by their tags",
		Long: `Crate watches your configured library folders and sorts every new
file into a destination computed from its audio tags and a per-library
format string. It can also sort a directory once, on demand.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/crate/config.yaml)")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch libraries and sort added files",
		RunE:  runWatch,
	}

	sortCmd := &cobra.Command{
		Use:   "sort [path]",
		Short: "Sort a music directory once",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSort,
	}
	sortCmd.Flags().StringVarP(&sortFormat, "format", "f", "", "custom format string")
	sortCmd.Flags().BoolVarP(&sortDryrun, "dryrun", "d", false, "don't move anything (simulated run)")
	sortCmd.Flags().BoolVarP(&sortRecursive, "recursive", "r", false, "sort files recursively")
	sortCmd.Flags().BoolVar(&sortRmEmpty, "rm-empty", false, "remove empty directories found while and after sorting")
	sortCmd.Flags().BoolVarP(&sortExfat, "exfat-compat", "e", false, "keep file names compatible with FAT32")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE:  runInit,
	}

	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Install the systemd user unit running crate watch",
		RunE:  runService,
	}

	rootCmd.AddCommand(watchCmd, sortCmd, initCmd, serviceCmd, &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("crate version %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	injector := di.NewContainer(cfgFile)

	log, err := do.Invoke[*logger.Logger](injector)
	if err != nil {
		return err
	}

	w, err := do.Invoke[*watcher.Watcher](injector)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := w.Run(ctx)

	log.Info("shutting down")

	if source, err := do.Invoke[*debounce.Debouncer](injector); err == nil {
		if err := source.Stop(); err != nil {
			log.Error("failed to stop event source", "error", err)
		}
	}

	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}

	return runErr
}

func runSort(cmd *cobra.Command, args []string) error {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	// The config is optional here: a custom --format is enough to sort a
	// directory that belongs to no configured library.
	cfg, cfgErr := config.Load(cfgFile)
	if cfgErr != nil && sortFormat == "" {
		return fmt.Errorf("no config and no --format given: %w", cfgErr)
	}

	log := logger.New(logger.Config{Level: logger.ParseLevel(os.Getenv("CRATE_LOG_LEVEL"))})

	format := sortFormat
	exfat := sortExfat
	root := abs

	if cfg != nil {
		if index, err := watcher.NewRootIndex(cfg.Roots()); err == nil {
			if r, ok := index.FindRoot(abs); ok {
				root = r
				library, _ := index.Library(r)
				if format == "" {
					format, _ = cfg.FormatOf(library)
				}
				exfat = exfat || cfg.IsExfatCompat(library)
			}
		}
	}

	if format == "" {
		return fmt.Errorf("path %q belongs to no configured library: pass --format", abs)
	}

	opts := sorter.Options{
		Format:      format,
		DryRun:      sortDryrun,
		Recursive:   sortRecursive,
		ExfatCompat: exfat,
		RemoveEmpty: sortRmEmpty,
	}

	engine := sorter.New(log.Logger)

	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	if info.IsDir() {
		report, err := engine.SortFolder(cmd.Context(), root, abs, opts)
		if err != nil {
			return err
		}
		log.Info("sort complete", "success", report.Success, "total", report.Total, "failed", report.Total-report.Success)
		return nil
	}

	newPath, err := engine.SortFile(cmd.Context(), root, abs, opts)
	if err != nil {
		return err
	}
	log.Info("sort complete", "from", abs, "to", newPath)
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if err := os.WriteFile(path, []byte(config.DefaultYAML), 0o644); err != nil {
		return err
	}

	fmt.Printf("wrote starter config to %s\n", path)
	return nil
}

func runService(cmd *cobra.Command, args []string) error {
	dest, err := systemd.Install()
	if err != nil {
		return err
	}

	fmt.Printf("installed %s\n", dest)
	fmt.Println("enable it with: systemctl --user enable --now crate.service")
	return nil
}
