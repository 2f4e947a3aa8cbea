// Package watch triggers rescans when device folders change. Device
// exports arrive in bursts (one patient visit drops several files in a
// row), so events are coalesced behind a quiet period before firing.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"chartscan/internal/config"
)

// DefaultQuiet is the settle time after the last filesystem event before
// a rescan fires.
const DefaultQuiet = 2 * time.Second

// Roots returns the deduplicated set of directories to watch for the
// given configuration: every source root and every union sub-folder
// root, in config order.
func Roots(cfg *config.Config) []string {
	seen := make(map[string]struct{})

	var roots []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}

		seen[path] = struct{}{}
		roots = append(roots, path)
	}

	for i := range cfg.Sources {
		add(cfg.Sources[i].Path)
	}

	for i := range cfg.SpecialItems {
		for k := range cfg.SpecialItems[i].Folders {
			add(cfg.SpecialItems[i].Folders[k].Path)
		}
	}

	return roots
}

// Run watches roots until ctx is cancelled, invoking onChange after each
// burst of filesystem activity settles for the quiet period. Roots that
// cannot be watched (offline shares) are skipped and reported through
// onSkip; at least one root must attach.
func Run(ctx context.Context, roots []string, quiet time.Duration, onChange func(), onSkip func(root string, err error)) error {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	defer func() { _ = watcher.Close() }()

	attached := 0

	for _, root := range roots {
		addErr := watcher.Add(root)
		if addErr != nil {
			if onSkip != nil {
				onSkip(root, addErr)
			}

			continue
		}

		attached++
	}

	if attached == 0 {
		return fmt.Errorf("no watchable roots among %d configured", len(roots))
	}

	// The timer starts disarmed; it is armed by the first event and
	// re-armed by every later one, so the callback fires once per burst.
	timer := time.NewTimer(quiet)
	if !timer.Stop() {
		<-timer.C
	}

	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if !timer.Stop() {
				// Drain a tick that fired but was not yet consumed, so
				// Reset cannot produce a spurious immediate callback.
				select {
				case <-timer.C:
				default:
				}
			}

			timer.Reset(quiet)
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			if onSkip != nil {
				onSkip("", watchErr)
			}
		case <-timer.C:
			onChange()
		}
	}
}
