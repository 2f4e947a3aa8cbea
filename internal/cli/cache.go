package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"chartscan/internal/cache"
	"chartscan/internal/config"
)

var ErrCacheUsage = errors.New("usage: cache <info|clear> [source-id]")

// CacheCmd returns the cache maintenance command.
func CacheCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("cache", flag.ContinueOnError),
		Usage: "cache <info|clear> [source-id]",
		Short: "Inspect or clear the extraction cache",
		Long: `info shows per-source entry counts; clear drops cached extractions,
for every source or for one source id.`,
		Exec: func(_ context.Context, o *IO, args []string) error {
			return execCache(o, cfg, args)
		},
	}
}

func execCache(o *IO, cfg *config.Config, args []string) error {
	if len(args) == 0 {
		return ErrCacheUsage
	}

	store, err := cache.OpenSQLite(cfg.Scan.CachePath)
	if err != nil {
		return fmt.Errorf("opening cache %s: %w", cfg.Scan.CachePath, err)
	}

	defer func() { _ = store.Close() }()

	switch args[0] {
	case "info":
		return cacheInfo(o, cfg, store)
	case "clear":
		sourceID := ""
		if len(args) > 1 {
			sourceID = args[1]
		}

		return cacheClear(o, store, sourceID)
	default:
		return fmt.Errorf("%w: unknown subcommand %s", ErrCacheUsage, args[0])
	}
}

func cacheInfo(o *IO, cfg *config.Config, store *cache.SQLite) error {
	stats, err := store.Stats()
	if err != nil {
		return err
	}

	o.Println("cache:", cfg.Scan.CachePath)

	if len(stats) == 0 {
		o.Println("(empty)")

		return nil
	}

	total := 0

	for _, stat := range stats {
		o.Printf("  %-24s %6d entries  last seen %s\n", stat.SourceID, stat.Entries, stat.LastSeen)
		total += stat.Entries
	}

	o.Printf("  %-24s %6d entries\n", "total", total)

	return nil
}

func cacheClear(o *IO, store *cache.SQLite, sourceID string) error {
	err := store.Clear(sourceID)
	if err != nil {
		return err
	}

	if sourceID == "" {
		o.Println("cache cleared")
	} else {
		o.Println("cache cleared for", sourceID)
	}

	return nil
}
