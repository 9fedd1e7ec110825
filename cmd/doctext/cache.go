package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/doctext/cache"
	"github.com/wudi/doctext/logging"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the extraction result cache",
}

var cacheDirCmd = &cobra.Command{
	Use:   "dir",
	Short: "Print the cache directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(cfg.CacheDir)
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cache entries older than a maximum age",
	Long: `Delete cache entries whose files are older than the maximum age.
Entries for changed documents become unreachable under their old
fingerprint and linger on disk until pruned; nothing ever reads them, so
pruning is purely a disk-space measure.`,
	Args: cobra.NoArgs,
	RunE: runCachePrune,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheDirCmd)
	cacheCmd.AddCommand(cachePruneCmd)

	cachePruneCmd.Flags().Duration("max-age", 0, "delete entries older than this (e.g. 720h); defaults to DOCTEXT_CACHE_MAX_AGE")
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	maxAge, _ := cmd.Flags().GetDuration("max-age")
	if maxAge <= 0 {
		maxAge = cfg.CacheMaxAge
	}
	if maxAge <= 0 {
		return fmt.Errorf("no age limit: pass --max-age or set DOCTEXT_CACHE_MAX_AGE")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	store, err := cache.NewFileStore(cfg.CacheDir, logging.WithComponent("cache"))
	if err != nil {
		return err
	}
	removed, err := cache.New(store, logging.WithComponent("cache")).Sweep(ctx, maxAge)
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d entries older than %s from %s\n", removed, maxAge, store.Dir())
	return nil
}
