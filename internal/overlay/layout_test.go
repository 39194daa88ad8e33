package overlay

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseTitleAndBullets(t *testing.T) {
	layout := Parse("# Summer Trip\n- beach day\n- boat ride\n")

	if layout.Title != "Summer Trip" {
		t.Errorf("title %q", layout.Title)
	}
	if len(layout.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(layout.Lines))
	}
	for i, line := range layout.Lines {
		if line.Kind != LineBullet {
			t.Errorf("line %d kind %s, want bullet", i, line.Kind)
		}
	}
	if layout.Lines[0].Display != "• beach day" {
		t.Errorf("display %q, want bullet marker prepended", layout.Lines[0].Display)
	}
	if layout.Lines[0].Align != AlignLeft {
		t.Errorf("latin bullet align %s, want left", layout.Lines[0].Align)
	}
}

func TestParseMetadataBeforeContentOnly(t *testing.T) {
	layout := Parse("@duration: 4\n@author: someone\n# Title\n@duration: 9\nbody\n")

	if layout.Metadata["duration"] != "4" {
		t.Errorf("duration metadata %q, want first-wins 4", layout.Metadata["duration"])
	}
	if layout.Metadata["author"] != "someone" {
		t.Errorf("author metadata %q", layout.Metadata["author"])
	}
	// The @ line after content starts is body text, not metadata.
	found := false
	for _, line := range layout.Lines {
		if line.Text == "@duration: 9" {
			found = true
		}
	}
	if !found {
		t.Error("post-content @ line should be kept as text")
	}
}

func TestParseLaterHashesPinToTop(t *testing.T) {
	layout := Parse("# Main Title\n## Side Note\nbody\n")

	if layout.Title != "Main Title" {
		t.Errorf("title %q", layout.Title)
	}
	if len(layout.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(layout.Lines))
	}
	if layout.Lines[0].Kind != LineTop || layout.Lines[0].Align != AlignTop {
		t.Errorf("second hash line should pin to top, got %+v", layout.Lines[0])
	}
}

func TestParseIndentLevels(t *testing.T) {
	layout := Parse("# T\n- outer\n  - nested\n    - deeper\n")

	levels := []int{0, 1, 2}
	for i, want := range levels {
		if layout.Lines[i].Level != want {
			t.Errorf("line %d level %d, want %d", i, layout.Lines[i].Level, want)
		}
	}
}

func TestParseTabsCountAsIndent(t *testing.T) {
	layout := Parse("# T\n\t- nested\n")
	if layout.Lines[0].Level != 1 {
		t.Errorf("tab indent level %d, want 1", layout.Lines[0].Level)
	}
}

func TestParseHebrewAlignsRight(t *testing.T) {
	layout := Parse("- שלום\n")
	line := layout.Lines[0]
	if line.Align != AlignRight {
		t.Errorf("hebrew align %s, want right", line.Align)
	}
	if line.Display != "שלום •" {
		t.Errorf("rtl bullet display %q, want trailing marker", line.Display)
	}
}

func TestParseBlankLinesInsideContent(t *testing.T) {
	layout := Parse("\n\n# Title\nfirst\n\nsecond\n")
	blanks := 0
	for _, line := range layout.Lines {
		if line.Kind == LineBlank {
			blanks++
		}
	}
	if blanks != 1 {
		t.Errorf("expected 1 blank inside content, got %d", blanks)
	}
}

func TestLoadEmptyFileFallsBackToStem(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "005_memories.txt")
	if err := os.WriteFile(path, []byte("  \n\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	layout, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if layout.Title != "005_memories" {
		t.Errorf("fallback title %q, want file stem", layout.Title)
	}
	if len(layout.Lines) != 1 || layout.Lines[0].Text != "005_memories" {
		t.Errorf("fallback lines %+v", layout.Lines)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "gone.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestCombine(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "001_a.txt")
	second := filepath.Join(dir, "001_b.txt")
	os.WriteFile(first, []byte("@duration: 3\n# First Title\nline a\n\n"), 0o644)
	os.WriteFile(second, []byte("@duration: 8\n# Second Title\nline b\n"), 0o644)

	combined, err := Combine([]string{first, second})
	if err != nil {
		t.Fatal(err)
	}
	if combined.Title != "First Title" {
		t.Errorf("title %q, want first file's title", combined.Title)
	}
	if combined.Metadata["duration"] != "3" {
		t.Errorf("metadata %q, want first-wins 3", combined.Metadata["duration"])
	}
	if len(combined.Lines) != 2 {
		t.Errorf("expected blanks dropped and 2 lines, got %d", len(combined.Lines))
	}
}

func TestOverlayText(t *testing.T) {
	layout := Parse("# Title\n- body line\n")
	if got := layout.OverlayText(); got != "Title\n\n• body line" {
		t.Errorf("overlay text %q", got)
	}
}

func TestEmpty(t *testing.T) {
	if !Parse("").Empty() {
		t.Error("empty content should produce empty layout")
	}
	if Parse("# T\n").Empty() {
		t.Error("titled layout is not empty")
	}
}

func TestDurationOverride(t *testing.T) {
	if _, ok := Parse("# T\n").DurationOverride(); ok {
		t.Error("no metadata should mean no override")
	}
	if _, ok := Parse("@duration: nope\n# T\n").DurationOverride(); ok {
		t.Error("unparsable override should be ignored")
	}
	if _, ok := Parse("@duration: -2\n# T\n").DurationOverride(); ok {
		t.Error("non-positive override should be ignored")
	}
	value, ok := Parse("@duration: 4.5\n# T\n").DurationOverride()
	if !ok || value != 4.5 {
		t.Errorf("override = %v, %v; want 4.5, true", value, ok)
	}
}

func TestPreview(t *testing.T) {
	if got := Parse("# Title\nbody\n").Preview(); got != "Title" {
		t.Errorf("preview %q", got)
	}
	if got := Parse("just a line\n").Preview(); got != "just a line" {
		t.Errorf("preview %q", got)
	}
}

func TestIsRTL(t *testing.T) {
	if IsRTL("hello") {
		t.Error("latin text flagged rtl")
	}
	if !IsRTL("שלום world") {
		t.Error("hebrew text not flagged rtl")
	}
}
