package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chartscan/internal/config"
	"chartscan/internal/engine/fsview"
)

// ResolveKind classifies how a source's scan directory was chosen.
type ResolveKind int

const (
	// ResolveFlat means the source has no folder template; its root is
	// scanned directly.
	ResolveFlat ResolveKind = iota

	// ResolveDated means the dated folder exists and is scanned.
	ResolveDated

	// ResolveRootFallback means the dated folder is missing for a
	// stage-then-file source; the root holds the day's unsorted files.
	ResolveRootFallback

	// ResolveNoFolder means the dated folder is missing for an
	// always-organized source; nothing is scanned and the count is zero.
	ResolveNoFolder
)

// Resolved is the outcome of path resolution for one source.
type Resolved struct {
	Kind ResolveKind

	// Dir is the directory to scan. Empty for ResolveNoFolder.
	Dir string
}

// dateTokens are substituted into folder templates, longest token first
// so that a combined token is never half-eaten by a shorter one (YYYY.MM
// before YYYY, MM.DD before MM).
var dateTokens = []struct {
	token  string
	format func(t time.Time) string
}{
	{"YYYY.MM", func(t time.Time) string { return fmt.Sprintf("%04d.%02d", t.Year(), t.Month()) }},
	{"MM.DD", func(t time.Time) string { return fmt.Sprintf("%02d.%02d", t.Month(), t.Day()) }},
	{"YYYY", func(t time.Time) string { return fmt.Sprintf("%04d", t.Year()) }},
	{"MM", func(t time.Time) string { return fmt.Sprintf("%02d", t.Month()) }},
	{"DD", func(t time.Time) string { return fmt.Sprintf("%02d", t.Day()) }},
}

// ExpandTemplate substitutes date tokens in a folder template. Templates
// use forward slashes between path segments regardless of platform.
func ExpandTemplate(template string, date time.Time) string {
	out := template

	for _, tok := range dateTokens {
		out = strings.ReplaceAll(out, tok.token, tok.format(date))
	}

	return filepath.FromSlash(out)
}

// resolveDir computes the directory to scan for a source on the target
// date, per the source's fallback class.
func resolveDir(ctx context.Context, fsv fsview.View, root, template, fallback string, date time.Time) Resolved {
	if template == "" {
		return Resolved{Kind: ResolveFlat, Dir: root}
	}

	dated := filepath.Join(root, ExpandTemplate(template, date))

	_, err := statCtx(ctx, fsv, dated)
	if err == nil {
		return Resolved{Kind: ResolveDated, Dir: dated}
	}

	if fallback == config.FallbackStaged {
		return Resolved{Kind: ResolveRootFallback, Dir: root}
	}

	return Resolved{Kind: ResolveNoFolder}
}

// statCtx runs Stat in a goroutine for the same reason as readDirCtx: a
// dead network share can hang a bare stat call indefinitely.
func statCtx(ctx context.Context, fsv fsview.View, path string) (os.FileInfo, error) {
	type statResult struct {
		info os.FileInfo
		err  error
	}

	ch := make(chan statResult, 1)

	go func() {
		info, err := fsv.Stat(path)
		ch <- statResult{info: info, err: err}
	}()

	select {
	case r := <-ch:
		return r.info, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
