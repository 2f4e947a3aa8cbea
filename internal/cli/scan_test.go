package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestScanReportsCounts(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("hfa")
	r.Touch(dir, "10643_JOO.pdf", "10643_JOO_os.pdf", "20356_KIM.pdf")
	oneSource(r, dir)

	stdout := r.MustRun("scan")
	AssertContains(t, stdout, "Visual Field")
	AssertContains(t, stdout, "2")

	// Diagnostics stay out of the default report.
	AssertNotContains(t, stdout, "entries scanned")
}

func TestScanVerboseShowsDiagnostics(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("hfa")
	r.Touch(dir, "10643_JOO.pdf", "unreadable name.txt")
	oneSource(r, dir)

	stdout, stderr, code := r.Run("scan", "--verbose")
	if code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr)
	}

	AssertContains(t, stdout, "entries scanned: 2")
	AssertContains(t, stdout, "pattern mismatches: 1")

	// Progress lines land on stderr, not in the report.
	AssertContains(t, stderr, "scanning Visual Field")
}

func TestScanBadDateFails(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	oneSource(r, r.SourceDir("hfa"))

	stderr := r.MustFail("scan", "--date", "27-08-2026")
	AssertContains(t, stderr, "invalid date")
}

func TestScanManualValues(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("oct")
	r.Touch(dir, "100_a.pdf")

	r.WriteConfig(fmt.Sprintf(`{
		"sources": [
			{"id": "OCT", "path": %q, "pattern": "^(\\d+)", "scan_mode": "files"}
		],
		"special_items": [
			{"id": "OCT_TOTAL", "kind": "sum", "source": "OCT", "manual": "OCTS"},
			{"id": "LASIK", "kind": "sum", "manual": "LASIK"}
		],
	}`, dir))

	stdout := r.MustRun("scan", "--manual", "OCTS=5", "--manual", "LASIK=7")
	AssertContains(t, stdout, "OCT_TOTAL")
	AssertContains(t, stdout, "6") // 1 scanned + 5 manual
	AssertContains(t, stdout, "7")

	stderr := r.MustFail("scan", "--manual", "OCTS=lots")
	AssertContains(t, stderr, "invalid manual value")
}

func TestScanInteractivePromptsForMissingKeys(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("oct")

	r.WriteConfig(fmt.Sprintf(`{
		"sources": [
			{"id": "OCT", "path": %q, "pattern": "^(\\d+)", "scan_mode": "files"}
		],
		"special_items": [
			{"id": "OCT_TOTAL", "kind": "sum", "source": "OCT", "manual": "OCTS"},
			{"id": "LASIK", "kind": "sum", "manual": "LASIK"}
		],
	}`, dir))

	// OCTS supplied by flag, so only LASIK is prompted; the piped "4"
	// answers it.
	stdout, _, code := r.RunWithInput("4\n", "scan", "--interactive", "--manual", "OCTS=2")
	if code != 0 {
		t.Fatalf("exit %d\nstdout: %s", code, stdout)
	}

	AssertContains(t, stdout, "LASIK [0]: ")
	AssertContains(t, stdout, "4")
	AssertNotContains(t, stdout, "OCTS [0]: ")

	// An empty answer keeps the default of zero; EOF ends prompting.
	stdout, _, code = r.RunWithInput("", "scan", "--interactive")
	if code != 0 {
		t.Fatalf("exit %d\nstdout: %s", code, stdout)
	}

	AssertContains(t, stdout, "OCT_TOTAL")
}

func TestScanUnreachableSourceWarnsAndExitsNonZero(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	oneSource(r, filepath.Join(r.Dir, "never-created"))

	stdout, stderr, code := r.Run("scan")
	if code != 1 {
		t.Fatalf("expected exit 1 on warnings, got %d", code)
	}

	// The report still renders; the problem is flagged on stderr.
	AssertContains(t, stdout, "Visual Field")
	AssertContains(t, stderr, "path unreachable")
}

func TestScanWritesExcelReport(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("hfa")
	r.Touch(dir, "100_a.pdf")
	oneSource(r, dir)

	excelPath := filepath.Join(r.Dir, "daily.xlsx")

	stdout := r.MustRun("scan", "--excel", excelPath)
	AssertContains(t, stdout, "excel report written:")

	info, err := os.Stat(excelPath)
	if err != nil {
		t.Fatalf("workbook missing: %v", err)
	}

	if info.Size() == 0 {
		t.Error("workbook is empty")
	}
}

func TestScanNoCacheSkipsDatabase(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("hfa")
	r.Touch(dir, "100_a.pdf")
	oneSource(r, dir)

	r.MustRun("scan", "--no-cache")

	_, err := os.Stat(filepath.Join(r.Dir, ".chartscan", "cache.db"))
	if !os.IsNotExist(err) {
		t.Errorf("no database expected with --no-cache, stat err: %v", err)
	}
}

func TestCacheInfoAndClear(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)

	dir := r.SourceDir("hfa")
	r.Touch(dir, "100_a.pdf", "200_b.pdf")
	oneSource(r, dir)

	// Populate the cache, then inspect it.
	r.MustRun("scan")

	stdout := r.MustRun("cache", "info")
	AssertContains(t, stdout, "HFA")
	AssertContains(t, stdout, "2 entries")

	stdout = r.MustRun("cache", "clear", "HFA")
	AssertContains(t, stdout, "cache cleared for HFA")

	stdout = r.MustRun("cache", "info")
	AssertContains(t, stdout, "(empty)")
}

func TestCacheRequiresSubcommand(t *testing.T) {
	t.Parallel()

	r := NewCLI(t)
	oneSource(r, r.SourceDir("hfa"))

	stderr := r.MustFail("cache")
	AssertContains(t, stderr, "usage: cache")

	stderr = r.MustFail("cache", "defrag")
	AssertContains(t, stderr, "unknown subcommand")
}
