package builder

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/keagan/slidecast/pkg/util"
)

// EnsureMP4Suffix appends .mp4 to an output path that lacks a container
// extension.
func EnsureMP4Suffix(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp4") {
		return path
	}
	return path + ".mp4"
}

// NextVersionedPath returns the versioned output path for a base name:
// the highest existing `<stem>-<n><ext>` sibling is found and max-plus-one
// is used, starting at 1 on a fresh directory. Every build writes a new
// file; prior exports are never overwritten.
func NextVersionedPath(path string) string {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	stem := util.Stem(path)

	pattern := regexp.MustCompile(
		fmt.Sprintf(`^%s-(\d+)%s$`, regexp.QuoteMeta(stem), regexp.QuoteMeta(ext)))

	maxVersion := 0
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, entry := range entries {
			match := pattern.FindStringSubmatch(entry.Name())
			if match == nil {
				continue
			}
			if n, err := strconv.Atoi(match[1]); err == nil && n > maxVersion {
				maxVersion = n
			}
		}
	}

	return filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, maxVersion+1, ext))
}
