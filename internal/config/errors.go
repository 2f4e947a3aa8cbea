package config

import "errors"

// Error variables for configuration loading and validation.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrNoSources          = errors.New("no sources configured")
	ErrSourceIDEmpty      = errors.New("source id cannot be empty")
	ErrSourceIDDuplicate  = errors.New("duplicate source id")
	ErrSourcePathEmpty    = errors.New("source path cannot be empty")
	ErrPatternEmpty       = errors.New("pattern cannot be empty")
	ErrPatternInvalid     = errors.New("pattern does not compile")
	ErrPatternGroups      = errors.New("pattern must contain exactly one capturing group")
	ErrScanModeInvalid    = errors.New("scan_mode must be files, folders, or both")
	ErrFallbackInvalid    = errors.New("fallback must be organized or staged")
	ErrItemIDEmpty        = errors.New("special item id cannot be empty")
	ErrItemKindInvalid    = errors.New("kind must be intersection, union, or sum")
	ErrItemUnknownSource  = errors.New("special item references unknown source id")
	ErrItemNeedsSources   = errors.New("intersection item needs at least two source ids")
	ErrItemNeedsFolders   = errors.New("union item needs at least one folder")
	ErrItemNeedsManual    = errors.New("sum item needs a manual value key")
	ErrChartRangeInvalid  = errors.New("chart number range is invalid")
)
