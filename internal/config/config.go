// Package config loads and validates the chartscan configuration file.
//
// The file is HuJSON (JSON with comments and trailing commas). All
// validation happens at load time: a config that loads successfully is
// safe to scan with, and every regex pattern is already compiled.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/tailscale/hujson"
)

// Scan mode constants. The mode selects which directory entry names the
// extraction pattern is applied to.
const (
	ModeFiles   = "files"
	ModeFolders = "folders"
	ModeBoth    = "both"
)

// Fallback class constants for sources with a folder template.
//
// An "organized" device writes into the dated folder immediately; a
// missing dated folder means the device saw no patients that day. A
// "staged" device writes into its root during the day and is tidied into
// a dated folder by an end-of-day housekeeping step, so a missing dated
// folder means the day's files are still sitting in the root.
const (
	FallbackOrganized = "organized"
	FallbackStaged    = "staged"
)

// Special item kind constants.
const (
	KindIntersection = "intersection"
	KindUnion        = "union"
	KindSum          = "sum"
)

// Defaults applied when the config file leaves fields unset.
const (
	DefaultChartMin       = 1
	DefaultChartMax       = 210000
	DefaultWorkers        = 6
	DefaultScanTimeoutSec = 30
)

// Source describes one device folder to scan.
type Source struct {
	ID              string `json:"id"`
	Name            string `json:"name,omitempty"`
	Path            string `json:"path"`
	Pattern         string `json:"pattern"`
	ScanMode        string `json:"scan_mode"`
	FolderTemplate  string `json:"folder_template,omitempty"`
	Fallback        string `json:"fallback,omitempty"`
	UseCreationTime bool   `json:"use_creation_time,omitempty"`

	re *regexp.Regexp
}

// Regexp returns the compiled extraction pattern. Only valid after Load.
func (s *Source) Regexp() *regexp.Regexp { return s.re }

// DisplayName returns the configured name, falling back to the id.
func (s *Source) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}

	return s.ID
}

// SubFolder is one independently scanned folder of a union special item.
// It carries its own path and pattern; scan mode is always file names.
type SubFolder struct {
	ID              string `json:"id"`
	Path            string `json:"path"`
	Pattern         string `json:"pattern"`
	FolderTemplate  string `json:"folder_template,omitempty"`
	UseCreationTime bool   `json:"use_creation_time,omitempty"`

	re *regexp.Regexp
}

// Regexp returns the compiled extraction pattern. Only valid after Load.
func (f *SubFolder) Regexp() *regexp.Regexp { return f.re }

// SpecialItem is a declarative combination rule over already-scanned sets.
// Exactly one field group is used depending on Kind:
//
//   - intersection: Sources (two or more source ids)
//   - union: Folders (independently scanned sub-folders)
//   - sum: Source (optional; empty means the automatic operand is zero)
//     plus Manual, the key of a caller-supplied integer
type SpecialItem struct {
	ID      string      `json:"id"`
	Name    string      `json:"name,omitempty"`
	Kind    string      `json:"kind"`
	Sources []string    `json:"sources,omitempty"`
	Folders []SubFolder `json:"folders,omitempty"`
	Source  string      `json:"source,omitempty"`
	Manual  string      `json:"manual,omitempty"`
}

// DisplayName returns the configured name, falling back to the id.
func (it *SpecialItem) DisplayName() string {
	if it.Name != "" {
		return it.Name
	}

	return it.ID
}

// Validation bounds for extracted chart numbers.
type Validation struct {
	ChartNumberMin int `json:"chart_number_min,omitempty"`
	ChartNumberMax int `json:"chart_number_max,omitempty"`
}

// ScanSettings controls scan concurrency and caching.
type ScanSettings struct {
	Workers        int    `json:"workers,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	CachePath      string `json:"cache_path,omitempty"`
}

// Timeout returns the per-scan timeout as a duration.
func (s ScanSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Config is the full configuration for one chartscan run.
type Config struct {
	Validation   Validation    `json:"validation"`
	Scan         ScanSettings  `json:"scan"`
	Sources      []Source      `json:"sources"`
	SpecialItems []SpecialItem `json:"special_items"`
}

// SourceByID returns the source with the given id, or nil.
func (c *Config) SourceByID(id string) *Source {
	for i := range c.Sources {
		if c.Sources[i].ID == id {
			return &c.Sources[i]
		}
	}

	return nil
}

// Load reads, parses, validates, and compiles the config file at path.
// Any problem is fatal: the engine never starts with a config that only
// fails at first use.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}

		return nil, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, parseErr := Parse(data)
	if parseErr != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, nil
}

// Parse parses and validates raw config bytes.
func Parse(data []byte) (*Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	cfg.applyDefaults()

	validateErr := cfg.validateAndCompile()
	if validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Validation.ChartNumberMin == 0 {
		c.Validation.ChartNumberMin = DefaultChartMin
	}

	if c.Validation.ChartNumberMax == 0 {
		c.Validation.ChartNumberMax = DefaultChartMax
	}

	if c.Scan.Workers <= 0 {
		c.Scan.Workers = DefaultWorkers
	}

	if c.Scan.TimeoutSeconds <= 0 {
		c.Scan.TimeoutSeconds = DefaultScanTimeoutSec
	}

	for i := range c.Sources {
		if c.Sources[i].Fallback == "" {
			c.Sources[i].Fallback = FallbackOrganized
		}
	}
}

func (c *Config) validateAndCompile() error {
	if c.Validation.ChartNumberMin < 1 || c.Validation.ChartNumberMax < c.Validation.ChartNumberMin {
		return ErrChartRangeInvalid
	}

	if len(c.Sources) == 0 {
		return ErrNoSources
	}

	seen := make(map[string]bool, len(c.Sources))

	for i := range c.Sources {
		src := &c.Sources[i]

		err := validateSource(src, seen)
		if err != nil {
			return err
		}
	}

	for i := range c.SpecialItems {
		err := c.validateSpecialItem(&c.SpecialItems[i])
		if err != nil {
			return err
		}
	}

	return nil
}

func validateSource(src *Source, seen map[string]bool) error {
	if src.ID == "" {
		return ErrSourceIDEmpty
	}

	if seen[src.ID] {
		return fmt.Errorf("%w: %s", ErrSourceIDDuplicate, src.ID)
	}

	seen[src.ID] = true

	if src.Path == "" {
		return fmt.Errorf("%w: %s", ErrSourcePathEmpty, src.ID)
	}

	switch src.ScanMode {
	case ModeFiles, ModeFolders, ModeBoth:
	default:
		return fmt.Errorf("%w: %s has %q", ErrScanModeInvalid, src.ID, src.ScanMode)
	}

	switch src.Fallback {
	case FallbackOrganized, FallbackStaged:
	default:
		return fmt.Errorf("%w: %s has %q", ErrFallbackInvalid, src.ID, src.Fallback)
	}

	re, err := compilePattern(src.Pattern)
	if err != nil {
		return fmt.Errorf("source %s: %w", src.ID, err)
	}

	src.re = re

	return nil
}

func (c *Config) validateSpecialItem(item *SpecialItem) error {
	if item.ID == "" {
		return ErrItemIDEmpty
	}

	switch item.Kind {
	case KindIntersection:
		return c.validateIntersection(item)
	case KindUnion:
		return validateUnion(item)
	case KindSum:
		return c.validateSum(item)
	default:
		return fmt.Errorf("%w: %s has %q", ErrItemKindInvalid, item.ID, item.Kind)
	}
}

func (c *Config) validateIntersection(item *SpecialItem) error {
	if len(item.Sources) < 2 {
		return fmt.Errorf("%w: %s", ErrItemNeedsSources, item.ID)
	}

	for _, id := range item.Sources {
		if c.SourceByID(id) == nil {
			return fmt.Errorf("%w: %s references %q", ErrItemUnknownSource, item.ID, id)
		}
	}

	return nil
}

func validateUnion(item *SpecialItem) error {
	if len(item.Folders) == 0 {
		return fmt.Errorf("%w: %s", ErrItemNeedsFolders, item.ID)
	}

	for i := range item.Folders {
		sub := &item.Folders[i]

		if sub.ID == "" {
			return fmt.Errorf("%w: folder of %s", ErrSourceIDEmpty, item.ID)
		}

		if sub.Path == "" {
			return fmt.Errorf("%w: %s/%s", ErrSourcePathEmpty, item.ID, sub.ID)
		}

		re, err := compilePattern(sub.Pattern)
		if err != nil {
			return fmt.Errorf("item %s folder %s: %w", item.ID, sub.ID, err)
		}

		sub.re = re
	}

	return nil
}

func (c *Config) validateSum(item *SpecialItem) error {
	if item.Manual == "" {
		return fmt.Errorf("%w: %s", ErrItemNeedsManual, item.ID)
	}

	// An empty source id is allowed: the automatic operand is zero and
	// the item is effectively a manual-only count (lasik, FAG, glasses
	// in the original setup).
	if item.Source != "" && c.SourceByID(item.Source) == nil {
		return fmt.Errorf("%w: %s references %q", ErrItemUnknownSource, item.ID, item.Source)
	}

	return nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, ErrPatternEmpty
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPatternInvalid, err)
	}

	if re.NumSubexp() != 1 {
		return nil, fmt.Errorf("%w: %q has %d", ErrPatternGroups, pattern, re.NumSubexp())
	}

	return re, nil
}
