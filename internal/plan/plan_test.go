package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/keagan/slidecast/internal/assets"
)

var testDurations = Durations{Image: 2.0, Overlay: 6.0, Text: 6.0}

func writeAsset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBuildImageWithCaption(t *testing.T) {
	dir := t.TempDir()
	photo := writeAsset(t, dir, "001_photo.jpg", "jpg")
	caption := writeAsset(t, dir, "001_caption.txt", "# Title\n- body line\n")
	clip := writeAsset(t, dir, "002_clip.mp4", "mp4")

	groups := []assets.Group{
		{Prefix: "001", Visuals: []string{photo}, Overlays: []string{caption}},
		{Prefix: "002", Visuals: []string{clip}},
	}

	segments, err := Build(groups, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}

	img := segments[0]
	if img.Kind != KindImage || img.Index != 1 {
		t.Errorf("first segment = %s #%d, want image #1", img.Kind, img.Index)
	}
	if img.Duration != 6.0 {
		t.Errorf("captioned image duration %v, want overlay default 6", img.Duration)
	}
	if img.OverlayText != "Title\n\n• body line" {
		t.Errorf("overlay text %q", img.OverlayText)
	}

	vid := segments[1]
	if vid.Kind != KindVideo || vid.Primary != clip {
		t.Errorf("second segment = %s %s, want video %s", vid.Kind, vid.Primary, clip)
	}
	if vid.Duration != 0 {
		t.Errorf("video duration %v, want 0 (intrinsic)", vid.Duration)
	}
}

func TestBuildBareImageUsesImageDuration(t *testing.T) {
	dir := t.TempDir()
	photo := writeAsset(t, dir, "001_photo.jpg", "jpg")

	segments, err := Build([]assets.Group{{Prefix: "001", Visuals: []string{photo}}}, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if segments[0].Duration != 2.0 {
		t.Errorf("bare image duration %v, want 2", segments[0].Duration)
	}
}

func TestBuildDurationOverride(t *testing.T) {
	dir := t.TempDir()
	photo := writeAsset(t, dir, "001_photo.jpg", "jpg")
	caption := writeAsset(t, dir, "001_caption.txt", "@duration: 3.5\n# Title\n")

	segments, err := Build([]assets.Group{{Prefix: "001", Visuals: []string{photo}, Overlays: []string{caption}}}, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if segments[0].Duration != 3.5 {
		t.Errorf("duration %v, want metadata override 3.5", segments[0].Duration)
	}
}

func TestBuildMixedGroupPrefersImages(t *testing.T) {
	dir := t.TempDir()
	photo := writeAsset(t, dir, "001_photo.jpg", "jpg")
	clip := writeAsset(t, dir, "001_clip.mp4", "mp4")

	segments, err := Build([]assets.Group{{Prefix: "001", Visuals: []string{photo, clip}}}, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 || segments[0].Kind != KindImage {
		t.Fatalf("expected one image segment, got %+v", segments)
	}
	if len(segments[0].VisualSources) != 1 || segments[0].VisualSources[0] != photo {
		t.Errorf("visual sources %v, want only the image", segments[0].VisualSources)
	}
}

func TestBuildMultiImageCollageSources(t *testing.T) {
	dir := t.TempDir()
	a := writeAsset(t, dir, "001_a.jpg", "jpg")
	b := writeAsset(t, dir, "001_b.jpg", "jpg")

	segments, err := Build([]assets.Group{{Prefix: "001", Visuals: []string{a, b}}}, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(segments[0].VisualSources) != 2 {
		t.Errorf("expected both images kept for collage, got %v", segments[0].VisualSources)
	}
	if segments[0].Primary != a {
		t.Errorf("primary %s, want first image", segments[0].Primary)
	}
}

func TestBuildTextOnlyGroupKeepsBlankLines(t *testing.T) {
	dir := t.TempDir()
	slide := writeAsset(t, dir, "010_intro.txt", "# Chapter One\n\nfirst line\n\nsecond line\n")

	segments, err := Build([]assets.Group{{Prefix: "010", Overlays: []string{slide}}}, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 1 || segments[0].Kind != KindText {
		t.Fatalf("expected one text segment, got %+v", segments)
	}
	if segments[0].Duration != 6.0 {
		t.Errorf("text duration %v, want 6", segments[0].Duration)
	}

	blanks := 0
	for _, line := range segments[0].Layout.Lines {
		if line.Kind == "blank" {
			blanks++
		}
	}
	if blanks == 0 {
		t.Error("text slide should preserve blank lines for spacing")
	}
}

func TestBuildSkipsEmptyAndAudioOnlyGroups(t *testing.T) {
	dir := t.TempDir()
	track := writeAsset(t, dir, "001_theme.mp3", "mp3")

	segments, err := Build([]assets.Group{
		{Prefix: "001", Audio: []string{track}},
		{Prefix: "002"},
	}, testDurations, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(segments) != 0 {
		t.Errorf("expected no segments, got %d", len(segments))
	}
}

func TestSegmentDependencies(t *testing.T) {
	seg := Segment{
		VisualSources:  []string{"a.jpg", "b.jpg"},
		OverlaySources: []string{"a.txt"},
	}
	deps := seg.Dependencies()
	if len(deps) != 3 {
		t.Fatalf("expected 3 deps, got %v", deps)
	}
}
