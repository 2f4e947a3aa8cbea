// Package report renders an aggregation result for humans: a plain-text
// summary for the terminal and an Excel workbook for the daily ledger.
// Rendering order always follows the configuration, never map order.
package report

import (
	"fmt"
	"io"

	"chartscan/internal/config"
	"chartscan/internal/engine"
)

// WriteText renders res as an indented text report. Verbose adds the
// per-item diagnostics under each count line.
func WriteText(w io.Writer, cfg *config.Config, res *engine.Result, verbose bool) error {
	_, err := fmt.Fprintf(w, "Daily count for %s\n\n", res.Date.Format("2006-01-02"))
	if err != nil {
		return err
	}

	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		sr := res.Sources[src.ID]

		writeErr := writeItem(w, src.DisplayName(), sr.Count, sr.Diagnostics, verbose)
		if writeErr != nil {
			return writeErr
		}
	}

	for i := range cfg.SpecialItems {
		item := &cfg.SpecialItems[i]
		sp := res.Specials[item.ID]

		writeErr := writeItem(w, item.DisplayName(), sp.Count, sp.Diagnostics, verbose)
		if writeErr != nil {
			return writeErr
		}
	}

	if len(res.Notes) > 0 {
		_, err = fmt.Fprintf(w, "\nNotes:\n")
		if err != nil {
			return err
		}

		for _, note := range res.Notes {
			_, err = fmt.Fprintf(w, "  %s\n", note)
			if err != nil {
				return err
			}
		}
	}

	if len(res.Warnings) > 0 {
		_, err = fmt.Fprintf(w, "\nWarnings:\n")
		if err != nil {
			return err
		}

		for _, warning := range res.Warnings {
			_, err = fmt.Fprintf(w, "  %s\n", warning)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func writeItem(w io.Writer, name string, count int, diagnostics []string, verbose bool) error {
	_, err := fmt.Fprintf(w, "  %-24s %d\n", name, count)
	if err != nil {
		return err
	}

	if !verbose {
		return nil
	}

	for _, d := range diagnostics {
		_, err = fmt.Fprintf(w, "      %s\n", d)
		if err != nil {
			return err
		}
	}

	return nil
}
