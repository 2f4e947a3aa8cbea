package engine

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"chartscan/internal/cache"
	"chartscan/internal/config"
	"chartscan/internal/engine/fsview"
)

// Progress receives human-readable lines as scanning proceeds. The
// engine never writes anywhere else; the caller decides what a line
// looks like on screen.
type Progress interface {
	Logf(format string, args ...any)
}

type noProgress struct{}

func (noProgress) Logf(string, ...any) {}

// Options configures optional engine collaborators. Zero values select
// working defaults: real filesystem, no cache, silent progress.
type Options struct {
	Cache    cache.Store
	FS       fsview.View
	Progress Progress

	// Workers and Timeout override the config's scan settings when
	// non-zero. Used by tests.
	Workers int
	Timeout time.Duration
}

// Engine runs aggregation scans for a fixed configuration.
type Engine struct {
	cfg      *config.Config
	cache    cache.Store
	fsv      fsview.View
	progress Progress
	workers  int
	timeout  time.Duration

	chartMin int
	chartMax int
}

// New creates an engine. The config must come from [config.Load] (or
// [config.Parse]), which guarantees compiled patterns and valid
// references.
func New(cfg *config.Config, opts Options) *Engine {
	e := &Engine{
		cfg:      cfg,
		cache:    opts.Cache,
		fsv:      opts.FS,
		progress: opts.Progress,
		workers:  cfg.Scan.Workers,
		timeout:  cfg.Scan.Timeout(),
		chartMin: cfg.Validation.ChartNumberMin,
		chartMax: cfg.Validation.ChartNumberMax,
	}

	if e.cache == nil {
		e.cache = cache.NewNoop()
	}

	if e.fsv == nil {
		e.fsv = fsview.NewReal()
	}

	if e.progress == nil {
		e.progress = noProgress{}
	}

	if opts.Workers > 0 {
		e.workers = opts.Workers
	}

	if opts.Timeout > 0 {
		e.timeout = opts.Timeout
	}

	return e
}

// job is one independent unit of scan work: a source, or one sub-folder
// of a union special item.
type job struct {
	// key is the source id, or subKey(item, folder) for union folders.
	// It doubles as the cache namespace.
	key      string
	label    string
	isSource bool

	dir      string // root path
	template string
	fallback string
	mode     string
	useCtime bool

	re *regexp.Regexp
}

// jobOutcome pairs a job with what its scan produced.
type jobOutcome struct {
	outcome scanOutcome
	note    string
}

// Run scans every configured source and union sub-folder for the target
// date and assembles the aggregated result. It always returns a complete
// Result: per-source failures surface as warnings inside it, and a
// cancelled context yields whatever completed plus abort warnings.
func (e *Engine) Run(ctx context.Context, date time.Time, manual map[string]int) *Result {
	jobs := e.buildJobs()
	outcomes := e.runJobs(ctx, date, jobs)

	res := &Result{
		Date:     date,
		Sources:  make(map[string]SourceResult, len(e.cfg.Sources)),
		Specials: make(map[string]SpecialResult, len(e.cfg.SpecialItems)),
	}

	subSets := make(map[string]ChartSet)

	// Assemble in config order so the result is stable regardless of
	// scan completion order.
	for i, j := range jobs {
		o := outcomes[i]

		if j.isSource {
			res.Sources[j.key] = SourceResult{
				Count:       o.outcome.charts.Len(),
				Charts:      o.outcome.charts,
				Diagnostics: o.outcome.diagnostics,
			}
		} else {
			subSets[j.key] = o.outcome.charts
		}

		res.Warnings = append(res.Warnings, o.outcome.warnings...)

		if o.note != "" {
			res.Notes = append(res.Notes, o.note)
		}
	}

	e.computeSpecials(res, subSets, manual)

	flushErr := e.cache.Flush()
	if flushErr != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("cache flush failed: %v", flushErr))
	}

	return res
}

func (e *Engine) buildJobs() []job {
	var jobs []job

	for i := range e.cfg.Sources {
		src := &e.cfg.Sources[i]

		jobs = append(jobs, job{
			key:      src.ID,
			label:    src.DisplayName(),
			isSource: true,
			dir:      src.Path,
			template: src.FolderTemplate,
			fallback: src.Fallback,
			mode:     src.ScanMode,
			useCtime: src.UseCreationTime,
			re:       src.Regexp(),
		})
	}

	for i := range e.cfg.SpecialItems {
		item := &e.cfg.SpecialItems[i]
		if item.Kind != config.KindUnion {
			continue
		}

		for k := range item.Folders {
			sub := &item.Folders[k]

			jobs = append(jobs, job{
				key:      subKey(item.ID, sub.ID),
				label:    fmt.Sprintf("%s/%s", item.DisplayName(), sub.ID),
				dir:      sub.Path,
				template: sub.FolderTemplate,
				// Sub-folders have no staging convention: a missing
				// dated folder means nothing to count.
				fallback: config.FallbackOrganized,
				mode:     config.ModeFiles,
				useCtime: sub.UseCreationTime,
				re:       sub.Regexp(),
			})
		}
	}

	return jobs
}

// runJobs executes jobs on a bounded worker pool. Results land in a
// slice indexed like jobs, so no result locking is needed and output
// order is independent of completion order.
func (e *Engine) runJobs(ctx context.Context, date time.Time, jobs []job) []jobOutcome {
	outcomes := make([]jobOutcome, len(jobs))
	indices := make(chan int)

	var wg sync.WaitGroup

	workers := min(e.workers, len(jobs))

	for w := 0; w < workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range indices {
				outcomes[i] = e.runJob(ctx, date, jobs[i])
			}
		}()
	}

	for i := range jobs {
		indices <- i
	}

	close(indices)
	wg.Wait()

	return outcomes
}

// runJob resolves and scans one job under the per-scan timeout.
func (e *Engine) runJob(ctx context.Context, date time.Time, j job) jobOutcome {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	e.progress.Logf("scanning %s", j.label)

	resolved := resolveDir(ctx, e.fsv, j.dir, j.template, j.fallback, date)

	var o jobOutcome

	// A timeout during resolution is an unreachable share, not a
	// missing dated folder.
	if ctx.Err() != nil {
		o.outcome.charts = ChartSet{}
		o.outcome.warnings = append(o.outcome.warnings,
			fmt.Sprintf("%s: path unreachable: %s (%v)", j.label, j.dir, ctx.Err()))

		return o
	}

	switch resolved.Kind {
	case ResolveNoFolder:
		// Zero activity that day, or the folder simply is not there
		// yet. Informational, not a warning.
		o.outcome.charts = ChartSet{}
		o.note = fmt.Sprintf("%s: no dated folder for %s (possible non-operating day)",
			j.label, date.Format("2006-01-02"))
	case ResolveRootFallback:
		o.outcome = e.scanDir(ctx, e.jobSpec(j, resolved.Dir, date))
		o.outcome.diagnostics = append(o.outcome.diagnostics,
			"dated folder missing, scanned root (files not yet filed)")
	default:
		o.outcome = e.scanDir(ctx, e.jobSpec(j, resolved.Dir, date))
	}

	e.progress.Logf("%s: %d patients", j.label, o.outcome.charts.Len())

	return o
}

func (e *Engine) jobSpec(j job, dir string, date time.Time) scanSpec {
	return scanSpec{
		cacheID:    j.key,
		label:      j.label,
		dir:        dir,
		mode:       j.mode,
		re:         j.re,
		dateFilter: j.useCtime,
		date:       date,
	}
}
