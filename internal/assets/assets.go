// Package assets scans a source directory and clusters its files into
// prefix groups: the visual, overlay-text, and audio assets that make up
// one timeline segment.
package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keagan/slidecast/pkg/util"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".bmp": true, ".heic": true, ".heif": true,
}

var videoExtensions = map[string]bool{
	".mp4": true, ".mov": true, ".m4v": true, ".avi": true, ".mkv": true,
	".hevc": true, ".mpg": true, ".mpeg": true, ".wmv": true,
}

var textExtensions = map[string]bool{
	".txt": true, ".pug": true,
}

var audioExtensions = map[string]bool{
	".mp3": true, ".m4a": true, ".aac": true, ".wav": true,
	".flac": true, ".ogg": true,
}

// IsImage reports whether path has a supported still-image extension.
func IsImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsVideo reports whether path has a supported video extension.
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsText reports whether path has a supported overlay-text extension.
func IsText(path string) bool {
	return textExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsAudio reports whether path has a supported audio extension.
func IsAudio(path string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(path))]
}

// IsVisual reports whether path is an image or a video.
func IsVisual(path string) bool {
	return IsImage(path) || IsVideo(path)
}

// Group is the set of files sharing one prefix token.
type Group struct {
	Prefix   string
	Visuals  []string
	Overlays []string
	Audio    []string
}

// Scan lists the regular files of dir sorted by name.
func Scan(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list source directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// GroupFiles clusters files by prefix, preserving first-seen prefix order.
// Files with unsupported extensions are skipped.
func GroupFiles(files []string, logger zerolog.Logger) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, file := range files {
		var kind string
		switch {
		case IsVisual(file):
			kind = "visual"
		case IsText(file):
			kind = "overlay"
		case IsAudio(file):
			kind = "audio"
		default:
			logger.Debug().Str("file", filepath.Base(file)).Msg("skipping unsupported file")
			continue
		}

		prefix := util.Prefix(file)
		i, ok := index[prefix]
		if !ok {
			i = len(groups)
			index[prefix] = i
			groups = append(groups, Group{Prefix: prefix})
		}

		switch kind {
		case "visual":
			groups[i].Visuals = append(groups[i].Visuals, file)
		case "overlay":
			groups[i].Overlays = append(groups[i].Overlays, file)
		case "audio":
			groups[i].Audio = append(groups[i].Audio, file)
		}
	}

	return groups
}
