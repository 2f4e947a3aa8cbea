package cli

import (
	"context"
	"time"

	flag "github.com/spf13/pflag"

	"chartscan/internal/config"
	"chartscan/internal/engine"
	"chartscan/internal/report"
	"chartscan/internal/watch"
)

type watchOptions struct {
	quietSec int
	verbose  bool
}

// WatchCmd returns the watch command.
func WatchCmd(cfg *config.Config) *Command {
	var opts watchOptions

	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.IntVar(&opts.quietSec, "quiet", 2, "Seconds of inactivity before a rescan")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show per-item diagnostics and scan progress")

	return &Command{
		Flags: flags,
		Usage: "watch [flags]",
		Short: "Rescan automatically when device folders change",
		Long: `Watch every source root and rerun today's scan after folder activity
settles. Stop with Ctrl-C.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execWatch(ctx, o, cfg, &opts)
		},
	}
}

func execWatch(ctx context.Context, o *IO, cfg *config.Config, opts *watchOptions) error {
	store := openStore(o, cfg, false)

	defer func() { _ = store.Close() }()

	eng := engine.New(cfg, engine.Options{
		Cache:    store,
		Progress: scanProgress(o, opts.verbose),
	})

	rescan := func() {
		res := eng.Run(ctx, time.Now(), nil)

		for _, w := range res.Warnings {
			o.ErrPrintln("warning:", w)
		}

		writeErr := report.WriteText(o.Stdout(), cfg, res, opts.verbose)
		if writeErr != nil {
			o.ErrPrintln("error:", writeErr)
		}

		o.Println()
	}

	// One scan up front, then rescan per settled burst.
	rescan()

	o.ErrPrintln("watching", len(watch.Roots(cfg)), "roots, Ctrl-C to stop")

	return watch.Run(ctx, watch.Roots(cfg), time.Duration(opts.quietSec)*time.Second, rescan,
		func(root string, err error) {
			if root == "" {
				o.ErrPrintln("warning: watcher:", err)

				return
			}

			o.ErrPrintln("warning: cannot watch", root+":", err)
		})
}
