package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"chartscan/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(cfg *config.Config) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration after defaults and validation.",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			return execPrintConfig(o, cfg)
		},
	}
}

func execPrintConfig(o *IO, cfg *config.Config) error {
	o.Println("chart_number_range =", cfg.Validation.ChartNumberMin, "..", cfg.Validation.ChartNumberMax)
	o.Println("workers =", cfg.Scan.Workers)
	o.Println("scan_timeout =", cfg.Scan.Timeout())
	o.Println("cache_path =", cfg.Scan.CachePath)

	o.Println()
	o.Println("# sources")

	for i := range cfg.Sources {
		src := &cfg.Sources[i]

		o.Printf("%s: path=%s mode=%s pattern=%s", src.ID, src.Path, src.ScanMode, src.Pattern)

		if src.FolderTemplate != "" {
			o.Printf(" template=%s fallback=%s", src.FolderTemplate, src.Fallback)
		}

		if src.UseCreationTime {
			o.Printf(" creation-time-filter")
		}

		o.Println()
	}

	if len(cfg.SpecialItems) == 0 {
		return nil
	}

	o.Println()
	o.Println("# special items")

	for i := range cfg.SpecialItems {
		item := &cfg.SpecialItems[i]

		switch item.Kind {
		case config.KindIntersection:
			o.Printf("%s: intersection of %s\n", item.ID, strings.Join(item.Sources, ", "))
		case config.KindUnion:
			ids := make([]string, 0, len(item.Folders))
			for k := range item.Folders {
				ids = append(ids, item.Folders[k].ID)
			}

			o.Printf("%s: union of %s\n", item.ID, strings.Join(ids, ", "))
		case config.KindSum:
			if item.Source == "" {
				o.Printf("%s: manual %s\n", item.ID, item.Manual)
			} else {
				o.Printf("%s: %s + manual %s\n", item.ID, item.Source, item.Manual)
			}
		}
	}

	return nil
}
