package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validConfig() string {
	return `{
		// device folders
		"sources": [
			{
				"id": "HFA",
				"name": "Visual Field",
				"path": "/mnt/hfa",
				"pattern": "^(\\d+)_",
				"scan_mode": "files",
				"folder_template": "YYYY/MM/HFA MM.DD",
				"fallback": "staged",
			},
			{
				"id": "OCT",
				"path": "/mnt/oct",
				"pattern": "_(\\d+)_",
				"scan_mode": "both",
				"use_creation_time": true,
			},
		],
		"special_items": [
			{"id": "GLAUCOMA", "kind": "intersection", "sources": ["HFA", "OCT"]},
			{
				"id": "FUNDUS",
				"kind": "union",
				"folders": [
					{"id": "main", "path": "/mnt/fundus", "pattern": "^(\\d+)"},
					{"id": "secondary", "path": "/mnt/optos", "pattern": "^(\\d+)"},
				],
			},
			{"id": "OCT_TOTAL", "kind": "sum", "source": "OCT", "manual": "OCTS"},
			{"id": "LASIK", "kind": "sum", "manual": "LASIK"},
		],
	}`
}

func TestParseValidConfig(t *testing.T) {
	t.Parallel()

	cfg, err := Parse([]byte(validConfig()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}

	hfa := cfg.SourceByID("HFA")
	if hfa == nil {
		t.Fatal("HFA source missing")
	}

	if hfa.Regexp() == nil {
		t.Error("pattern not compiled at load time")
	}

	if hfa.Fallback != FallbackStaged {
		t.Errorf("expected staged fallback, got %s", hfa.Fallback)
	}

	oct := cfg.SourceByID("OCT")
	if oct.Fallback != FallbackOrganized {
		t.Errorf("fallback should default to organized, got %s", oct.Fallback)
	}

	// Defaults
	if cfg.Validation.ChartNumberMin != 1 || cfg.Validation.ChartNumberMax != 210000 {
		t.Errorf("unexpected chart range defaults: %+v", cfg.Validation)
	}

	if cfg.Scan.Workers != 6 {
		t.Errorf("expected 6 default workers, got %d", cfg.Scan.Workers)
	}

	if len(cfg.SpecialItems) != 4 {
		t.Fatalf("expected 4 special items, got %d", len(cfg.SpecialItems))
	}

	for _, sub := range cfg.SpecialItems[1].Folders {
		if sub.Regexp() == nil {
			t.Errorf("sub-folder %s pattern not compiled", sub.ID)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		json    string
		wantErr error
	}{
		{
			name:    "no sources",
			json:    `{"sources": []}`,
			wantErr: ErrNoSources,
		},
		{
			name: "empty source id",
			json: `{"sources": [
				{"id": "", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}]}`,
			wantErr: ErrSourceIDEmpty,
		},
		{
			name: "duplicate source id",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"},
				{"id": "A", "path": "/q", "pattern": "(\\d+)", "scan_mode": "files"}]}`,
			wantErr: ErrSourceIDDuplicate,
		},
		{
			name: "empty path",
			json: `{"sources": [
				{"id": "A", "path": "", "pattern": "(\\d+)", "scan_mode": "files"}]}`,
			wantErr: ErrSourcePathEmpty,
		},
		{
			name: "pattern without capture group",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "\\d+", "scan_mode": "files"}]}`,
			wantErr: ErrPatternGroups,
		},
		{
			name: "pattern with two capture groups",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)_(\\d+)", "scan_mode": "files"}]}`,
			wantErr: ErrPatternGroups,
		},
		{
			name: "pattern does not compile",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "([", "scan_mode": "files"}]}`,
			wantErr: ErrPatternInvalid,
		},
		{
			name: "bad scan mode",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "everything"}]}`,
			wantErr: ErrScanModeInvalid,
		},
		{
			name: "bad fallback class",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files", "fallback": "maybe"}]}`,
			wantErr: ErrFallbackInvalid,
		},
		{
			name: "intersection with unknown source",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}],
				"special_items": [{"id": "X", "kind": "intersection", "sources": ["A", "NOPE"]}]}`,
			wantErr: ErrItemUnknownSource,
		},
		{
			name: "intersection with one source",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}],
				"special_items": [{"id": "X", "kind": "intersection", "sources": ["A"]}]}`,
			wantErr: ErrItemNeedsSources,
		},
		{
			name: "union without folders",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}],
				"special_items": [{"id": "X", "kind": "union"}]}`,
			wantErr: ErrItemNeedsFolders,
		},
		{
			name: "sum without manual key",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}],
				"special_items": [{"id": "X", "kind": "sum", "source": "A"}]}`,
			wantErr: ErrItemNeedsManual,
		},
		{
			name: "sum with unknown source",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}],
				"special_items": [{"id": "X", "kind": "sum", "source": "B", "manual": "X"}]}`,
			wantErr: ErrItemUnknownSource,
		},
		{
			name: "unknown kind",
			json: `{"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}],
				"special_items": [{"id": "X", "kind": "difference"}]}`,
			wantErr: ErrItemKindInvalid,
		},
		{
			name: "inverted chart range",
			json: `{"validation": {"chart_number_min": 100, "chart_number_max": 5},
				"sources": [
				{"id": "A", "path": "/p", "pattern": "(\\d+)", "scan_mode": "files"}]}`,
			wantErr: ErrChartRangeInvalid,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Parse([]byte(tt.json))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if !errors.Is(err, ErrConfigFileNotFound) {
		t.Errorf("expected ErrConfigFileNotFound, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.json")

	err := os.WriteFile(path, []byte(validConfig()), 0o600)
	if err != nil {
		t.Fatal(err)
	}

	cfg, loadErr := Load(path)
	if loadErr != nil {
		t.Fatalf("Load failed: %v", loadErr)
	}

	if cfg.SourceByID("OCT") == nil {
		t.Error("OCT source missing after Load")
	}
}
