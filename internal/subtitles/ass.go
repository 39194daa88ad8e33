// Package subtitles generates ASS caption files for segment overlays.
// Rasterization is ffmpeg's job; this package only emits the script.
package subtitles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keagan/slidecast/internal/overlay"
	"github.com/keagan/slidecast/pkg/util"
)

// Layout metrics shared with the text-slide filter graphs.
const (
	RightMargin     = 120
	LeftMargin      = 120
	TopMargin       = 80
	TopLineSpacing  = 20
	BodyLineSpacing = 22
	IndentWidth     = 60
)

// Style carries the font settings for caption rendering.
type Style struct {
	FontName  string
	TitleSize int
	BodySize  int
}

// ResolveFontName maps a font file path to a family name usable in an ASS
// style line. Without a font file the DejaVu default applies.
func ResolveFontName(fontPath string) string {
	if fontPath != "" && util.FileExists(fontPath) {
		if stem := util.Stem(fontPath); stem != "" {
			return stem
		}
	}
	return "DejaVu Sans"
}

func escapeText(text string) string {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "{", `\{`)
	escaped = strings.ReplaceAll(escaped, "}", `\}`)
	return strings.ReplaceAll(escaped, "\n", `\N`)
}

func formatTime(duration float64) string {
	if duration <= 0 {
		// Run effectively until the segment finishes; one hour is a safe
		// upper bound.
		return "0:59:59.00"
	}
	totalCentis := int(duration*100 + 0.5)
	seconds, centis := totalCentis/100, totalCentis%100
	minutes, seconds := seconds/60, seconds%60
	hours, minutes := minutes/60, minutes%60
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, seconds, centis)
}

func nextOutputPath(dir string) (string, error) {
	for counter := 0; ; counter++ {
		candidate := filepath.Join(dir, fmt.Sprintf("overlay_%04d.ass", counter))
		if !util.FileExists(candidate) {
			return candidate, nil
		}
	}
}

func (s Style) lineHeight() int {
	return s.BodySize + BodyLineSpacing
}

// WriteASS writes an ASS subtitle for layout into dir and returns its path.
// duration bounds the dialogue end time; zero means "until segment end".
func WriteASS(layout *overlay.Layout, width, height int, style Style, dir string, duration float64) (string, error) {
	if layout == nil || layout.Empty() {
		return "", fmt.Errorf("cannot create subtitle from empty layout")
	}

	if err := util.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	outputPath, err := nextOutputPath(dir)
	if err != nil {
		return "", err
	}

	endTime := formatTime(duration)
	lineHeight := style.lineHeight()

	var dialogues []string
	addDialogue := func(alignment, x, y int, text, direction string, fontSize int) {
		if text == "" {
			return
		}
		overrides := fmt.Sprintf(`\an%d\pos(%d,%d)`, alignment, x, y)
		if direction == "rtl" {
			overrides += `\rtl`
		} else if direction == "ltr" {
			overrides += `\ltr`
		}
		if fontSize > 0 {
			overrides += fmt.Sprintf(`\fs%d`, fontSize)
		}
		dialogues = append(dialogues, fmt.Sprintf(
			"Dialogue: 0,0:00:00.00,%s,Overlay,,0,0,0,,{%s}%s",
			endTime, overrides, escapeText(text)))
	}

	direction := func(text string) string {
		if overlay.IsRTL(text) {
			return "rtl"
		}
		return "ltr"
	}

	var topLines, bodyLines []overlay.Line
	for _, line := range layout.Lines {
		if line.Align == overlay.AlignTop && strings.TrimSpace(line.Display) != "" {
			topLines = append(topLines, line)
		} else if line.Align != overlay.AlignTop {
			bodyLines = append(bodyLines, line)
		}
	}

	topBaseY := TopMargin
	if layout.Title != "" {
		addDialogue(8, width/2, TopMargin, strings.TrimSpace(layout.Title), direction(layout.Title), style.TitleSize)
		topBaseY = TopMargin + style.TitleSize + TopLineSpacing
	}

	for i, line := range topLines {
		addDialogue(9, width-RightMargin, topBaseY+i*lineHeight,
			strings.TrimSpace(line.Display), direction(line.Text), style.BodySize)
	}

	currentY := topBaseY + len(topLines)*lineHeight
	if layout.Title != "" || len(topLines) > 0 {
		currentY += 40
	}

	for _, line := range bodyLines {
		if line.Kind == overlay.LineBlank || strings.TrimSpace(line.Display) == "" {
			currentY += lineHeight
			continue
		}
		var alignment, x int
		switch line.Align {
		case overlay.AlignCenter:
			alignment, x = 8, width/2
		case overlay.AlignLeft:
			alignment, x = 7, LeftMargin+line.Level*IndentWidth
		default:
			alignment, x = 9, width-RightMargin-line.Level*IndentWidth
		}
		addDialogue(alignment, x, currentY, strings.TrimSpace(line.Display), direction(line.Text), style.BodySize)
		currentY += lineHeight
	}

	if len(dialogues) == 0 {
		return "", fmt.Errorf("cannot create subtitle from empty layout")
	}

	header := []string{
		"[Script Info]",
		"ScriptType: v4.00+",
		fmt.Sprintf("PlayResX: %d", width),
		fmt.Sprintf("PlayResY: %d", height),
		"ScaledBorderAndShadow: yes",
		"",
		"[V4+ Styles]",
		"Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, " +
			"OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, " +
			"ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, " +
			"MarginL, MarginR, MarginV, Encoding",
		fmt.Sprintf("Style: Overlay,%s,%d,&H00FFFFFF,&H00FFFFFF,&H00000000,&H64000000,"+
			"0,0,0,0,100,100,0,0,1,3,0,8,40,120,80,0", style.FontName, style.BodySize),
		"",
		"[Events]",
		"Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text",
	}

	contents := strings.Join(append(header, dialogues...), "\n")
	if err := os.WriteFile(outputPath, []byte(contents), 0644); err != nil {
		return "", fmt.Errorf("failed to write subtitle: %w", err)
	}
	return outputPath, nil
}
