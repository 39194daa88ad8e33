package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/keagan/slidecast/internal/overlay"
)

var testStyle = Style{FontName: "DejaVu Sans", TitleSize: 72, BodySize: 56}

func TestWriteASS(t *testing.T) {
	dir := t.TempDir()
	layout := overlay.Parse("# Summer Trip\n- beach day\n")

	path, err := WriteASS(layout, 1920, 1080, testStyle, dir, 6.0)
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	script := string(data)

	for _, want := range []string{
		"ScriptType: v4.00+",
		"PlayResX: 1920",
		"PlayResY: 1080",
		"Style: Overlay,DejaVu Sans,56,",
		`{\an8\pos(960,80)\ltr\fs72}Summer Trip`,
		"• beach day",
		"0:00:06.00",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}

func TestWriteASSZeroDurationRunsLong(t *testing.T) {
	layout := overlay.Parse("# Clip Note\n")
	path, err := WriteASS(layout, 1920, 1080, testStyle, t.TempDir(), 0)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "0:59:59.00") {
		t.Error("zero duration should use the long-running end time")
	}
}

func TestWriteASSHebrewDirection(t *testing.T) {
	layout := overlay.Parse("# שלום\n")
	path, err := WriteASS(layout, 1920, 1080, testStyle, t.TempDir(), 2.0)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `\rtl`) {
		t.Error("hebrew title should carry the rtl override")
	}
}

func TestWriteASSTopLinesRightAligned(t *testing.T) {
	layout := overlay.Parse("# Title\n## Aside\n")
	path, err := WriteASS(layout, 1920, 1080, testStyle, t.TempDir(), 2.0)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `\an9\pos(1800,`) {
		t.Errorf("top line should anchor at the right margin: %s", data)
	}
}

func TestWriteASSEscapesBraces(t *testing.T) {
	layout := overlay.Parse("# a {b} c\n")
	path, err := WriteASS(layout, 1920, 1080, testStyle, t.TempDir(), 2.0)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `a \{b\} c`) {
		t.Error("braces in text should be escaped")
	}
}

func TestWriteASSEmptyLayout(t *testing.T) {
	if _, err := WriteASS(&overlay.Layout{}, 1920, 1080, testStyle, t.TempDir(), 2.0); err == nil {
		t.Error("expected error for empty layout")
	}
	if _, err := WriteASS(nil, 1920, 1080, testStyle, t.TempDir(), 2.0); err == nil {
		t.Error("expected error for nil layout")
	}
}

func TestWriteASSSequentialNames(t *testing.T) {
	dir := t.TempDir()
	layout := overlay.Parse("# T\n")

	first, err := WriteASS(layout, 1920, 1080, testStyle, dir, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	second, err := WriteASS(layout, 1920, 1080, testStyle, dir, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "overlay_0000.ass" || filepath.Base(second) != "overlay_0001.ass" {
		t.Errorf("names = %s, %s", filepath.Base(first), filepath.Base(second))
	}
}

func TestResolveFontName(t *testing.T) {
	if got := ResolveFontName(""); got != "DejaVu Sans" {
		t.Errorf("empty path font %q", got)
	}
	if got := ResolveFontName("/nonexistent/MyFont.ttf"); got != "DejaVu Sans" {
		t.Errorf("missing file font %q", got)
	}

	dir := t.TempDir()
	font := filepath.Join(dir, "Rubik-Bold.ttf")
	os.WriteFile(font, []byte("x"), 0o644)
	if got := ResolveFontName(font); got != "Rubik-Bold" {
		t.Errorf("font name %q, want file stem", got)
	}
}

func TestFormatTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{3.5, "0:00:03.50"},
		{65, "0:01:05.00"},
		{3661.25, "1:01:01.25"},
	}
	for _, tt := range tests {
		if got := formatTime(tt.seconds); got != tt.want {
			t.Errorf("formatTime(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}
