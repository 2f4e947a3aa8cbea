package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"chartscan/internal/config"
)

func TestRootsDeduplicated(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse([]byte(`{
		"sources": [
			{"id": "HFA", "path": "/mnt/hfa", "pattern": "^(\\d+)", "scan_mode": "files"},
			{"id": "OCT", "path": "/mnt/oct", "pattern": "^(\\d+)", "scan_mode": "files"}
		],
		"special_items": [
			{"id": "FUNDUS", "kind": "union", "folders": [
				{"id": "main", "path": "/mnt/fundus", "pattern": "^(\\d+)"},
				{"id": "mirror", "path": "/mnt/hfa", "pattern": "^(\\d+)"}
			]}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}

	got := Roots(cfg)

	want := []string{"/mnt/hfa", "/mnt/oct", "/mnt/fundus"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("roots mismatch (-want +got):\n%s", diff)
	}
}

func TestRunCoalescesBursts(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var fired atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, []string{root}, 100*time.Millisecond, func() {
			fired.Add(1)
		}, nil)
	}()

	// Give the watcher a moment to attach before generating events.
	time.Sleep(200 * time.Millisecond)

	// A burst of files, as one patient visit produces.
	for _, name := range []string{"100_od.pdf", "100_os.pdf", "100_report.pdf"} {
		err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o600)
		if err != nil {
			t.Fatal(err)
		}

		time.Sleep(20 * time.Millisecond)
	}

	deadline := time.After(3 * time.Second)

	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("no rescan fired after events")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Let the quiet period fully drain, then confirm the burst fired once.
	time.Sleep(300 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("expected 1 coalesced rescan, got %d", got)
	}

	cancel()

	if err := <-done; err != nil {
		t.Errorf("run returned error on cancel: %v", err)
	}
}

func TestRunSkipsUnwatchableRoots(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	var skipped []string

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Run(ctx, []string{"/nonexistent/share", root}, time.Second, func() {}, func(r string, _ error) {
		skipped = append(skipped, r)
	})
	if err != nil {
		t.Fatalf("one good root should be enough: %v", err)
	}

	if diff := cmp.Diff([]string{"/nonexistent/share"}, skipped); diff != "" {
		t.Errorf("skips mismatch (-want +got):\n%s", diff)
	}
}

func TestRunFailsWithoutWatchableRoots(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), []string{"/nonexistent/a", "/nonexistent/b"}, time.Second, func() {}, nil)
	if err == nil {
		t.Fatal("expected error when nothing can be watched")
	}
}
