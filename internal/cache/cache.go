// Package cache decides which rendered segments can be reused across runs.
// Staleness is modification-time based: a segment output is fresh only if
// it is newer than every dependency and the global watermark.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/keagan/slidecast/pkg/util"
)

// NeedsRender reports whether output must be (re)rendered. Missing outputs,
// a watermark newer than the output, and dependencies that are newer or
// unstatable all force a render. Unreadable dependencies count as stale,
// never as fresh.
func NeedsRender(output string, deps []string, watermark time.Time) bool {
	stat, err := os.Stat(output)
	if err != nil {
		return true
	}
	outputTime := stat.ModTime()
	if watermark.After(outputTime) {
		return true
	}
	for _, dep := range deps {
		depStat, err := os.Stat(dep)
		if err != nil {
			return true
		}
		if depStat.ModTime().After(outputTime) {
			return true
		}
	}
	return false
}

// Watermark returns the newest modification time among paths. A missing
// path contributes the current time so edits in flight are never treated
// as fresh.
func Watermark(paths ...string) time.Time {
	var newest time.Time
	for _, path := range paths {
		if path == "" {
			continue
		}
		stat, err := os.Stat(path)
		mtime := time.Now()
		if err == nil {
			mtime = stat.ModTime()
		}
		if mtime.After(newest) {
			newest = mtime
		}
	}
	return newest
}

const (
	segmentPrefix = "segment_"
	segmentExt    = ".mp4"
	maxSlugLen    = 48
)

// SegmentFileName derives the deterministic cache file name for a segment
// from its index, primary source, and overlay names. Identical inputs
// always map to the identical name, which is what allows selective reuse
// across process restarts.
func SegmentFileName(index int, source string, overlays []string) string {
	parts := []string{util.Stem(source)}
	for _, o := range overlays {
		parts = append(parts, util.Stem(o))
	}
	slug := slugify(strings.Join(parts, "_"))
	if len(slug) > maxSlugLen {
		slug = strings.Trim(slug[:maxSlugLen], "-")
	}
	return fmt.Sprintf("%s%04d_%s%s", segmentPrefix, index, slug, segmentExt)
}

func slugify(value string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.ToLower(value) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// PruneOrphans deletes cached segment files in dir whose names are not in
// the expected set, handling removed or renamed source assets. It returns
// the removed file names.
func PruneOrphans(dir string, expected map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list cache directory %s: %w", dir, err)
	}

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, segmentPrefix) || !strings.HasSuffix(name, segmentExt) {
			continue
		}
		if expected[name] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	return removed, nil
}
