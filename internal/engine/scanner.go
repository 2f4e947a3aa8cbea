package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"chartscan/internal/cache"
	"chartscan/internal/config"
	"chartscan/internal/engine/fsview"
)

// scanSpec is everything the scanner needs for one directory scan. Both
// regular sources and union sub-folders reduce to this.
type scanSpec struct {
	// cacheID namespaces cache entries. Sub-folders use "itemID/subID"
	// so overlapping roots never collide with a source's namespace.
	cacheID string

	label      string
	dir        string
	mode       string
	re         *regexp.Regexp
	dateFilter bool // filter entries to those created on the target date
	date       time.Time
}

// scanOutcome is the raw result of one directory scan.
type scanOutcome struct {
	charts      ChartSet
	diagnostics []string
	warnings    []string
}

// scanDir enumerates one directory and extracts a deduplicated chart
// number set. An unreachable directory is not fatal: it yields an empty
// set plus a warning so the rest of the run proceeds.
func (e *Engine) scanDir(ctx context.Context, spec scanSpec) scanOutcome {
	out := scanOutcome{charts: ChartSet{}}

	entries, err := readDirCtx(ctx, e.fsv, spec.dir)
	if err != nil {
		out.warnings = append(out.warnings,
			fmt.Sprintf("%s: path unreachable: %s (%v)", spec.label, spec.dir, err))

		return out
	}

	var stats scanStats

	for _, entry := range entries {
		if ctx.Err() != nil {
			out.warnings = append(out.warnings,
				fmt.Sprintf("%s: scan aborted: %v", spec.label, ctx.Err()))

			return out
		}

		e.scanEntry(spec, entry, &out, &stats)
	}

	out.diagnostics = append(out.diagnostics, stats.lines(len(entries))...)

	return out
}

// scanStats counts per-entry outcomes for the diagnostics summary.
type scanStats struct {
	mismatches int
	invalid    int
	offDate    int
	cacheHits  int
}

func (s *scanStats) lines(total int) []string {
	lines := []string{fmt.Sprintf("entries scanned: %d", total)}

	if s.offDate > 0 {
		lines = append(lines, fmt.Sprintf("entries outside target date: %d", s.offDate))
	}

	if s.mismatches > 0 {
		lines = append(lines, fmt.Sprintf("pattern mismatches: %d", s.mismatches))
	}

	if s.invalid > 0 {
		lines = append(lines, fmt.Sprintf("invalid chart numbers: %d", s.invalid))
	}

	if s.cacheHits > 0 {
		lines = append(lines, fmt.Sprintf("cache hits: %d", s.cacheHits))
	}

	return lines
}

func (e *Engine) scanEntry(spec scanSpec, entry os.DirEntry, out *scanOutcome, stats *scanStats) {
	if !nameSelected(spec.mode, entry.IsDir()) {
		return
	}

	info, infoErr := entry.Info()
	if infoErr != nil {
		// Entry vanished between ReadDir and stat; a re-scan will see
		// the directory's new state.
		stats.offDate++

		return
	}

	if spec.dateFilter && !sameDay(creationTime(info), spec.date) {
		stats.offDate++

		return
	}

	path := filepath.Join(spec.dir, entry.Name())
	sig := signature(info)

	if cached, ok := e.cache.Get(spec.cacheID, path); ok && cached.Signature == sig {
		stats.cacheHits++

		if cached.HasChart {
			out.charts.Add(cached.Chart)
		} else {
			stats.mismatches++
		}

		return
	}

	chart, ok := e.extract(spec.re, entry.Name(), stats)
	if ok {
		out.charts.Add(chart)
	}

	e.cache.Put(spec.cacheID, path, cache.Entry{
		Signature: sig,
		Chart:     chart,
		HasChart:  ok,
	})
}

// extract applies the pattern to one candidate name and validates the
// captured group. Misses and invalid numbers are diagnostics, never
// errors.
func (e *Engine) extract(re *regexp.Regexp, name string, stats *scanStats) (int, bool) {
	m := re.FindStringSubmatch(name)
	if m == nil {
		stats.mismatches++

		return 0, false
	}

	capture := m[1]

	// Chart numbers never carry leading zeros; a zero-padded capture is
	// some other numeric field (dates, serials).
	if len(capture) > 1 && capture[0] == '0' {
		stats.invalid++

		return 0, false
	}

	n, err := strconv.Atoi(capture)
	if err != nil || n < e.chartMin || n > e.chartMax {
		stats.invalid++

		return 0, false
	}

	return n, true
}

// nameSelected reports whether an entry of the given kind participates
// under the scan mode. For "both", file and folder names are each tested
// independently.
func nameSelected(mode string, isDir bool) bool {
	switch mode {
	case config.ModeFiles:
		return !isDir
	case config.ModeFolders:
		return isDir
	case config.ModeBoth:
		return true
	default:
		return false
	}
}

// signature captures the file state an extraction was computed from.
func signature(info os.FileInfo) string {
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().UnixNano())
}

func sameDay(t, day time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := day.Date()

	return y1 == y2 && m1 == m2 && d1 == d2
}

// readDirCtx runs ReadDir in a goroutine so a stalled network mount
// cannot block past the scan deadline. The listing goroutine is left to
// finish on its own if the deadline fires first; its result is dropped.
func readDirCtx(ctx context.Context, fsv fsview.View, dir string) ([]os.DirEntry, error) {
	type listing struct {
		entries []os.DirEntry
		err     error
	}

	ch := make(chan listing, 1)

	go func() {
		entries, err := fsv.ReadDir(dir)
		ch <- listing{entries: entries, err: err}
	}()

	select {
	case l := <-ch:
		return l.entries, l.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
