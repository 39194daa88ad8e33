// Package overlay parses the plain-text caption assets that accompany
// visual files. The format: `@key: value` metadata lines before any
// content, a leading `#` title, later `#` lines pinned to the top, bullet
// markers, and two-space indentation levels. Hebrew text flips a line's
// alignment to the right.
package overlay

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/keagan/slidecast/pkg/util"
)

var bulletPrefixes = []string{"•", "-", "*"}

const (
	rtlHebrewStart = 0x0590
	rtlHebrewEnd   = 0x05FF
)

// Line kinds.
const (
	LineBlank  = "blank"
	LineBullet = "bullet"
	LineText   = "text"
	LineTop    = "top"
)

// Line alignments.
const (
	AlignLeft   = "left"
	AlignRight  = "right"
	AlignCenter = "center"
	AlignTop    = "top"
)

// Line is one parsed overlay line.
type Line struct {
	Kind    string
	Level   int
	Text    string
	Display string
	Align   string
}

// Layout is the structured content of one or more overlay text assets.
type Layout struct {
	Title    string
	Lines    []Line
	Metadata map[string]string
}

// IsRTL reports whether text contains characters from the Hebrew block.
func IsRTL(text string) bool {
	for _, r := range text {
		if r >= rtlHebrewStart && r <= rtlHebrewEnd {
			return true
		}
	}
	return false
}

func lineAlignment(text string) string {
	if IsRTL(text) {
		return AlignRight
	}
	return AlignLeft
}

func normalizeIndent(raw string) string {
	return strings.ReplaceAll(raw, "\t", "  ")
}

func indentLevel(raw string) int {
	normalized := normalizeIndent(raw)
	leading := len(normalized) - len(strings.TrimLeft(normalized, " "))
	return leading / 2
}

func extractBullet(text string) (bool, string) {
	stripped := strings.TrimSpace(text)
	if stripped == "" {
		return false, ""
	}
	for _, marker := range bulletPrefixes {
		if strings.HasPrefix(stripped, marker) {
			return true, strings.TrimSpace(strings.TrimPrefix(stripped, marker))
		}
	}
	return false, stripped
}

// Load parses the overlay asset at path. Undecodable bytes are replaced
// rather than failing the segment; only a missing file is an error.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overlay %s: %w", path, err)
	}
	layout := Parse(strings.ToValidUTF8(string(data), "�"))

	// An effectively empty file still yields a slide: fall back to the
	// file stem as both title and single line.
	if layout.Title == "" && !layout.hasContent() {
		stem := util.Stem(path)
		layout.Title = stem
		layout.Lines = []Line{{
			Kind:    LineText,
			Text:    stem,
			Display: stem,
			Align:   lineAlignment(stem),
		}}
	}
	return layout, nil
}

// Parse parses overlay text content.
func Parse(content string) *Layout {
	layout := &Layout{Metadata: map[string]string{}}
	contentStarted := false

	// A trailing newline terminates the last line; it is not a blank line.
	content = strings.TrimSuffix(content, "\n")

	for _, raw := range strings.Split(content, "\n") {
		stripped := strings.TrimSpace(raw)
		if stripped == "" {
			if contentStarted {
				layout.Lines = append(layout.Lines, Line{Kind: LineBlank, Align: AlignRight})
			}
			continue
		}

		if !contentStarted && strings.HasPrefix(stripped, "@") && strings.Contains(stripped, ":") {
			key, value, _ := strings.Cut(stripped, ":")
			key = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(key, "@")))
			if key != "" {
				if _, exists := layout.Metadata[key]; !exists {
					layout.Metadata[key] = strings.TrimSpace(value)
				}
			}
			continue
		}

		contentStarted = true
		if strings.HasPrefix(stripped, "#") {
			token := strings.TrimSpace(strings.TrimLeft(stripped, "#"))
			if layout.Title == "" && token != "" {
				layout.Title = token
				continue
			}
			if token != "" {
				layout.Lines = append(layout.Lines, Line{
					Kind: LineTop, Text: token, Display: token, Align: AlignTop,
				})
			}
			continue
		}

		level := indentLevel(raw)
		isBullet, bulletText := extractBullet(stripped)
		if isBullet {
			text := bulletText
			if text == "" {
				text = "-"
			}
			align := lineAlignment(text)
			var display string
			if align == AlignRight {
				display = text + " •"
			} else {
				display = "• " + text
			}
			layout.Lines = append(layout.Lines, Line{
				Kind: LineBullet, Level: level, Text: text, Display: display, Align: align,
			})
		} else {
			layout.Lines = append(layout.Lines, Line{
				Kind: LineText, Level: level, Text: stripped, Display: stripped, Align: lineAlignment(stripped),
			})
		}
	}

	return layout
}

// Combine merges several overlay assets into one layout: the first
// non-empty title wins, metadata merges first-wins per key, body lines
// concatenate in file order with blanks dropped.
func Combine(paths []string) (*Layout, error) {
	combined := &Layout{Metadata: map[string]string{}}
	for _, path := range paths {
		layout, err := Load(path)
		if err != nil {
			return nil, err
		}
		if combined.Title == "" && layout.Title != "" {
			combined.Title = layout.Title
		}
		for key, value := range layout.Metadata {
			if _, exists := combined.Metadata[key]; !exists && value != "" {
				combined.Metadata[key] = value
			}
		}
		for _, line := range layout.Lines {
			if line.Kind == LineBlank || strings.TrimSpace(line.Display) == "" {
				continue
			}
			combined.Lines = append(combined.Lines, line)
		}
	}
	return combined, nil
}

func (l *Layout) hasContent() bool {
	for _, line := range l.Lines {
		if line.Kind != LineBlank && strings.TrimSpace(line.Text) != "" {
			return true
		}
	}
	return false
}

// Empty reports whether the layout carries neither title nor line content.
func (l *Layout) Empty() bool {
	return l.Title == "" && !l.hasContent()
}

// OverlayText flattens the layout into the drawtext form: title, blank
// line, then the display lines.
func (l *Layout) OverlayText() string {
	var parts []string
	if l.Title != "" {
		parts = append(parts, l.Title)
	}
	var body []string
	for _, line := range l.Lines {
		body = append(body, line.Display)
	}
	if joined := strings.TrimSpace(strings.Join(body, "\n")); joined != "" {
		parts = append(parts, joined)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

// Preview returns a short human-readable summary of the layout.
func (l *Layout) Preview() string {
	if l.Title != "" {
		return strings.TrimSpace(l.Title)
	}
	for _, line := range l.Lines {
		if candidate := strings.TrimSpace(line.Text); candidate != "" {
			return candidate
		}
	}
	return ""
}

// DurationOverride returns the per-segment duration from a `@duration:`
// metadata key, if present and positive.
func (l *Layout) DurationOverride() (float64, bool) {
	raw, ok := l.Metadata["duration"]
	if !ok {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}
