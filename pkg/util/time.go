package util

import (
	"strconv"
	"strings"
)

// FormatSeconds renders a duration in seconds the way ffmpeg arguments
// expect it, without trailing zero noise.
func FormatSeconds(seconds float64) string {
	s := strconv.FormatFloat(seconds, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ParseFrameRate parses frame rate from ffprobe format (e.g., "30/1")
func ParseFrameRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
