//go:build !linux

package engine

import (
	"os"
	"time"
)

// creationTime falls back to mtime where the stat result carries no
// usable creation timestamp.
func creationTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
