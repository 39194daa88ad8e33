package builder

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/keagan/slidecast/internal/assets"
	"github.com/keagan/slidecast/internal/cache"
	"github.com/keagan/slidecast/internal/config"
	"github.com/keagan/slidecast/internal/plan"
)

func testBuilder(t *testing.T, cfg *config.Config, opts Options) *Builder {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	b, err := New(cfg, nil, zerolog.Nop(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestNewAdoptsDiscoveredConfigPath(t *testing.T) {
	cfg := config.Default()
	cfg.Path = "config.json"
	b := testBuilder(t, cfg, Options{})

	if b.opts.ConfigPath != "config.json" {
		t.Errorf("ConfigPath = %q, want the loaded document", b.opts.ConfigPath)
	}

	// An explicit path wins over the loaded one.
	b = testBuilder(t, cfg, Options{ConfigPath: "other.yaml"})
	if b.opts.ConfigPath != "other.yaml" {
		t.Errorf("ConfigPath = %q, want other.yaml", b.opts.ConfigPath)
	}
}

func TestConfigEditInvalidatesCachedSegment(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)

	writeAt := func(name string, mtime time.Time) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
		return path
	}

	dep := writeAt("001_photo.jpg", base)
	output := writeAt("segment_0001_001-photo.mp4", base.Add(time.Minute))
	cfgPath := writeAt("config.json", base.Add(-time.Minute))

	cfg := config.Default()
	cfg.Path = cfgPath
	b := testBuilder(t, cfg, Options{})

	watermark := cache.Watermark(b.opts.ConfigPath, "")
	if cache.NeedsRender(output, []string{dep}, watermark) {
		t.Fatal("segment should be fresh while the config is older than it")
	}

	touched := base.Add(2 * time.Minute)
	if err := os.Chtimes(cfgPath, touched, touched); err != nil {
		t.Fatal(err)
	}

	watermark = cache.Watermark(b.opts.ConfigPath, "")
	if !cache.NeedsRender(output, []string{dep}, watermark) {
		t.Error("editing the config document must invalidate cached segments")
	}
}

func TestWatchPathsIncludeAudioTracks(t *testing.T) {
	dir := t.TempDir()
	track := filepath.Join(dir, "theme.mp3")
	if err := os.WriteFile(track, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.AudioFiles = []string{track, filepath.Join(dir, "missing.mp3")}
	b := testBuilder(t, cfg, Options{ConfigPath: "config.json"})

	paths := b.WatchPaths()
	seen := make(map[string]int)
	for _, path := range paths {
		seen[path]++
	}

	for _, want := range []string{cfg.SourceDir, "config.json", track, dir} {
		if seen[want] == 0 {
			t.Errorf("watch set missing %q: %v", want, paths)
		}
	}
	if seen[dir] != 1 {
		t.Errorf("shared parent should appear once, got %d", seen[dir])
	}
	if seen[filepath.Join(dir, "missing.mp3")] != 0 {
		t.Errorf("missing track should be covered by its parent only: %v", paths)
	}
}

func TestNewRejectsBadResolution(t *testing.T) {
	cfg := config.Default()
	cfg.Resolution = "not-a-size"
	if _, err := New(cfg, nil, zerolog.Nop(), Options{}); err == nil {
		t.Error("expected resolution error")
	}
}

func makeGroups(prefixes ...string) []assets.Group {
	groups := make([]assets.Group, len(prefixes))
	for i, prefix := range prefixes {
		groups[i] = assets.Group{Prefix: prefix}
	}
	return groups
}

func TestSelectChunk(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 2
	cfg.ChunkIndex = 2
	b := testBuilder(t, cfg, Options{})

	chunk, err := b.selectChunk(makeGroups("a", "b", "c", "d", "e"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk) != 2 || chunk[0].Prefix != "c" || chunk[1].Prefix != "d" {
		t.Errorf("chunk = %+v", chunk)
	}
}

func TestSelectChunkTailShorterThanSize(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 2
	cfg.ChunkIndex = 3
	b := testBuilder(t, cfg, Options{})

	chunk, err := b.selectChunk(makeGroups("a", "b", "c", "d", "e"))
	if err != nil {
		t.Fatal(err)
	}
	if len(chunk) != 1 || chunk[0].Prefix != "e" {
		t.Errorf("chunk = %+v", chunk)
	}
}

func TestSelectChunkOutOfRange(t *testing.T) {
	cfg := config.Default()
	cfg.ChunkSize = 2
	cfg.ChunkIndex = 4
	b := testBuilder(t, cfg, Options{})

	if _, err := b.selectChunk(makeGroups("a", "b", "c")); err == nil {
		t.Error("expected out-of-range error")
	}
}

func TestSelectChunkDisabled(t *testing.T) {
	b := testBuilder(t, nil, Options{})
	groups := makeGroups("a", "b")
	chunk, err := b.selectChunk(groups)
	if err != nil || len(chunk) != 2 {
		t.Errorf("chunking disabled should pass groups through, got %v, %v", chunk, err)
	}
}

func makeSegments(n int) []plan.Segment {
	segments := make([]plan.Segment, n)
	for i := range segments {
		segments[i] = plan.Segment{Index: i + 1}
	}
	return segments
}

func TestSelectRange(t *testing.T) {
	b := testBuilder(t, nil, Options{StartAt: 2, Limit: 2})
	got := b.selectRange(makeSegments(5))
	if len(got) != 2 || got[0].Index != 2 || got[1].Index != 3 {
		t.Errorf("range = %+v", got)
	}
}

func TestSelectRangeKeepsIndexes(t *testing.T) {
	b := testBuilder(t, nil, Options{StartAt: 4})
	got := b.selectRange(makeSegments(5))
	if len(got) != 2 || got[0].Index != 4 {
		t.Errorf("indexes must stay stable for cache names, got %+v", got)
	}
}

func TestSelectRangeBeyondEnd(t *testing.T) {
	b := testBuilder(t, nil, Options{StartAt: 10})
	if got := b.selectRange(makeSegments(3)); got != nil {
		t.Errorf("expected empty range, got %+v", got)
	}
}

func TestFullPlan(t *testing.T) {
	if !testBuilder(t, nil, Options{}).fullPlan() {
		t.Error("default build is a full plan")
	}
	if testBuilder(t, nil, Options{Limit: 2}).fullPlan() {
		t.Error("limited build is partial")
	}
	cfg := config.Default()
	cfg.ChunkSize = 5
	if testBuilder(t, cfg, Options{}).fullPlan() {
		t.Error("chunked build is partial")
	}
}

func TestCollectMarkers(t *testing.T) {
	groups := []assets.Group{
		{Prefix: "001", Audio: []string{"001_theme.mp3"}},
		{Prefix: "002"},
		{Prefix: "003", Audio: []string{"003_outro.mp3"}},
	}
	segments := []plan.Segment{
		{Index: 1, Prefix: "001"},
		{Index: 2, Prefix: "002"},
		{Index: 3, Prefix: "003"},
	}

	markers := collectMarkers(segments, groups)
	if len(markers) != 2 {
		t.Fatalf("markers = %+v", markers)
	}
	if markers[0].SegmentIndex != 0 || markers[0].Path != "001_theme.mp3" {
		t.Errorf("first marker = %+v", markers[0])
	}
	if markers[1].SegmentIndex != 2 {
		t.Errorf("second marker anchored at %d, want 2", markers[1].SegmentIndex)
	}
}

func TestCollectMarkersNoAudio(t *testing.T) {
	segments := []plan.Segment{{Index: 1, Prefix: "001"}}
	if markers := collectMarkers(segments, makeGroups("001")); markers != nil {
		t.Errorf("expected no markers, got %+v", markers)
	}
}

func TestChunkOutputPath(t *testing.T) {
	if got := chunkOutputPath("show.mp4", 2); got != "show-2.mp4" {
		t.Errorf("got %q", got)
	}
	if got := chunkOutputPath("show", 1); got != "show-1.mp4" {
		t.Errorf("got %q", got)
	}
}

func TestBuildBatchRequiresChunkSize(t *testing.T) {
	b := testBuilder(t, nil, Options{})
	if _, err := b.BuildBatch(context.Background()); err == nil {
		t.Error("expected error without chunk size")
	}
}

func TestPrimarySource(t *testing.T) {
	if got := primarySource(plan.Segment{Primary: "a.jpg"}); got != "a.jpg" {
		t.Errorf("got %q", got)
	}
	if got := primarySource(plan.Segment{OverlaySources: []string{"a.txt"}}); got != "a.txt" {
		t.Errorf("text segment should fall back to its overlay, got %q", got)
	}
	if got := primarySource(plan.Segment{Prefix: "010"}); got != "010" {
		t.Errorf("got %q", got)
	}
}

func snapshotFixture(pairs ...any) map[string]time.Time {
	base := time.Unix(1700000000, 0)
	result := make(map[string]time.Time, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		result[pairs[i].(string)] = base.Add(time.Duration(pairs[i+1].(int)) * time.Second)
	}
	return result
}

func TestDiffSnapshots(t *testing.T) {
	previous := snapshotFixture("a", 1, "b", 2)
	current := snapshotFixture("a", 1, "b", 3, "c", 1)

	changed := diffSnapshots(previous, current)
	if len(changed) != 2 || changed[0] != "b" || changed[1] != "c" {
		t.Errorf("changed = %v, want [b c]", changed)
	}

	// Deletions count as changes too.
	if changed := diffSnapshots(current, previous); len(changed) != 2 {
		t.Errorf("deletion diff = %v", changed)
	}
}
