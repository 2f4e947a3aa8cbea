package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"chartscan/internal/cache"
	"chartscan/internal/config"
	"chartscan/internal/engine"
	"chartscan/internal/report"
)

var (
	ErrBadDate   = errors.New("invalid date, expected YYYY-MM-DD")
	ErrBadManual = errors.New("invalid manual value, expected key=integer")
)

type scanOptions struct {
	date        string
	excel       string
	manual      []string
	interactive bool
	noCache     bool
	verbose     bool
}

// ScanCmd returns the scan command.
func ScanCmd(cfg *config.Config, in io.Reader) *Command {
	var opts scanOptions

	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	flags.StringVar(&opts.date, "date", "", "Target date (YYYY-MM-DD) [default: today]")
	flags.StringVar(&opts.excel, "excel", "", "Also write an Excel report to this path")
	flags.StringArrayVar(&opts.manual, "manual", nil, "Manual count as key=value (repeatable)")
	flags.BoolVar(&opts.interactive, "interactive", false, "Prompt for manual counts")
	flags.BoolVar(&opts.noCache, "no-cache", false, "Scan without the extraction cache")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show per-item diagnostics and scan progress")

	return &Command{
		Flags: flags,
		Usage: "scan [flags]",
		Short: "Count patients per device for one date",
		Long: `Scan every configured source for the target date, deduplicate chart
numbers per device, compute special items, and print the report.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execScan(ctx, o, cfg, in, &opts)
		},
	}
}

func execScan(ctx context.Context, o *IO, cfg *config.Config, in io.Reader, opts *scanOptions) error {
	date, err := resolveDate(opts.date)
	if err != nil {
		return err
	}

	manual, manualErr := parseManual(opts.manual)
	if manualErr != nil {
		return manualErr
	}

	if opts.interactive {
		promptErr := promptManual(in, o, manualKeys(cfg), manual)
		if promptErr != nil {
			return promptErr
		}
	}

	store := openStore(o, cfg, opts.noCache)

	defer func() { _ = store.Close() }()

	eng := engine.New(cfg, engine.Options{
		Cache:    store,
		Progress: scanProgress(o, opts.verbose),
	})

	res := eng.Run(ctx, date, manual)

	for _, w := range res.Warnings {
		o.Warn(w)
	}

	writeErr := report.WriteText(o.Stdout(), cfg, res, opts.verbose)
	if writeErr != nil {
		return writeErr
	}

	if opts.excel != "" {
		excelErr := report.WriteExcel(opts.excel, cfg, res)
		if excelErr != nil {
			return excelErr
		}

		o.Println()
		o.Println("excel report written:", opts.excel)
	}

	return nil
}

// openStore opens the configured SQLite cache, degrading to a no-op
// store with a single notice when the database cannot be used.
func openStore(o *IO, cfg *config.Config, noCache bool) cache.Store {
	if noCache {
		return cache.NewNoop()
	}

	store, err := cache.OpenSQLite(cfg.Scan.CachePath)
	if err != nil {
		o.Warn(fmt.Sprintf("cache unavailable, scanning without it: %v", err))

		return cache.NewNoop()
	}

	return store
}

func resolveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}

	date, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrBadDate, s)
	}

	return date, nil
}

func parseManual(pairs []string) (map[string]int, error) {
	manual := make(map[string]int, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %s", ErrBadManual, pair)
		}

		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s", ErrBadManual, pair)
		}

		manual[key] = n
	}

	return manual, nil
}

// manualKeys lists the manual-count keys of every sum item, in config
// order, deduplicated.
func manualKeys(cfg *config.Config) []string {
	seen := make(map[string]struct{})

	var keys []string

	for i := range cfg.SpecialItems {
		item := &cfg.SpecialItems[i]
		if item.Kind != config.KindSum || item.Manual == "" {
			continue
		}

		if _, ok := seen[item.Manual]; ok {
			continue
		}

		seen[item.Manual] = struct{}{}
		keys = append(keys, item.Manual)
	}

	return keys
}

// promptManual asks for each manual key not already supplied by flags.
// On a real terminal it uses line editing; piped input falls back to
// plain line reads so scripted runs keep working.
func promptManual(in io.Reader, o *IO, keys []string, manual map[string]int) error {
	remaining := make([]string, 0, len(keys))

	for _, key := range keys {
		if _, ok := manual[key]; !ok {
			remaining = append(remaining, key)
		}
	}

	if len(remaining) == 0 {
		return nil
	}

	readLine := plainReader(in, o)

	if f, ok := in.(*os.File); ok && f == os.Stdin && liner.TerminalSupported() {
		state := liner.NewLiner()
		defer func() { _ = state.Close() }()

		readLine = func(prompt string) (string, error) {
			return state.Prompt(prompt)
		}
	}

	for _, key := range remaining {
		line, err := readLine(fmt.Sprintf("%s [0]: ", key))
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("reading manual count for %s: %w", key, err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		n, convErr := strconv.Atoi(line)
		if convErr != nil || n < 0 {
			return fmt.Errorf("%w: %s=%s", ErrBadManual, key, line)
		}

		manual[key] = n
	}

	return nil
}

func plainReader(in io.Reader, o *IO) func(string) (string, error) {
	if in == nil {
		in = strings.NewReader("")
	}

	scanner := bufio.NewScanner(in)

	return func(prompt string) (string, error) {
		o.Printf("%s", prompt)

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", err
			}

			return "", io.EOF
		}

		return scanner.Text(), nil
	}
}

// scanProgress returns the engine progress sink: scan lines on stderr in
// verbose mode, silence otherwise.
func scanProgress(o *IO, verbose bool) engine.Progress {
	if !verbose {
		return nil
	}

	return progressFunc(func(format string, args ...any) {
		o.ErrPrintln(fmt.Sprintf(format, args...))
	})
}

type progressFunc func(format string, args ...any)

func (f progressFunc) Logf(format string, args ...any) { f(format, args...) }
