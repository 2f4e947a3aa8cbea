package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"chartscan/internal/config"
)

const (
	defaultConfigName = "chartscan.json"
	helpFlag          = "--help"

	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
)

var (
	ErrFlagRequiresArg = errors.New("flag requires an argument")
	ErrUnknownFlag     = errors.New("unknown flag")
)

// Run is the main entry point. Returns exit code. A value on sig cancels
// the command context, which stops watch mode and aborts in-flight scans.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sig <-chan os.Signal) int {
	if len(args) < 2 {
		printUsage(out, nil)

		return 0
	}

	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	workDir := flags.workDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			fprintln(errOut, "error: cannot get working directory:", err)

			return 1
		}
	}

	if len(flags.remaining) == 0 || flags.remaining[0] == "-h" || flags.remaining[0] == helpFlag {
		printUsage(out, nil)

		return 0
	}

	cfg, cfgErr := loadConfig(workDir, flags.configPath, env)
	if cfgErr != nil {
		fprintln(errOut, "error:", cfgErr)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sig != nil {
		go func() {
			select {
			case <-sig:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	ioCtx := NewIO(out, errOut)

	commands := []*Command{
		ScanCmd(cfg, in),
		WatchCmd(cfg),
		CacheCmd(cfg),
		PrintConfigCmd(cfg),
	}

	name := flags.remaining[0]

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, ioCtx, flags.remaining[1:])
		}
	}

	fprintln(errOut, "error: unknown command:", name)
	printUsage(errOut, commands)

	return 1
}

// loadConfig resolves the config file path and loads it. The cache path
// defaults relative to the config's directory, so repeated runs from any
// cwd share one cache.
func loadConfig(workDir, override string, env map[string]string) (*config.Config, error) {
	path := override
	if path == "" {
		path = env["CHARTSCAN_CONFIG"]
	}

	if path == "" {
		path = defaultConfigName
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(workDir, path)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cfg.Scan.CachePath == "" {
		cfg.Scan.CachePath = filepath.Join(filepath.Dir(path), ".chartscan", "cache.db")
	} else if !filepath.IsAbs(cfg.Scan.CachePath) {
		cfg.Scan.CachePath = filepath.Join(filepath.Dir(path), cfg.Scan.CachePath)
	}

	return cfg, nil
}

type globalFlags struct {
	workDir    string
	configPath string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--cwd flag (work directory)
	if (arg == "-C" || arg == "--cwd") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--cwd="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -c/--config flag
	if arg == "-c" || arg == "--config" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", ErrFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", ErrUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, `chartscan - daily patient counts from device folders

Usage: chartscan [options] <command> [args]

Options:
  -C, --cwd <dir>    Run as if started in <dir>
  -c, --config       Use specified config file [default: chartscan.json]

Commands:`)

	if commands == nil {
		commands = []*Command{
			ScanCmd(nil, nil),
			WatchCmd(nil),
			CacheCmd(nil),
			PrintConfigCmd(nil),
		}
	}

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
