// Package builder orchestrates a full slideshow build: scanning assets,
// planning segments, rendering only what changed, and assembling the final
// video with its audio bed. A Builder is immutable after construction; all
// run state lives on the stack of Build.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/keagan/slidecast/internal/assets"
	"github.com/keagan/slidecast/internal/audio"
	"github.com/keagan/slidecast/internal/cache"
	"github.com/keagan/slidecast/internal/collage"
	"github.com/keagan/slidecast/internal/config"
	"github.com/keagan/slidecast/internal/ffmpeg"
	"github.com/keagan/slidecast/internal/motion"
	"github.com/keagan/slidecast/internal/plan"
	"github.com/keagan/slidecast/internal/subtitles"
	"github.com/keagan/slidecast/pkg/util"
)

// Options carries the per-invocation switches that are not part of the
// document configuration.
type Options struct {
	// ConfigPath feeds the cache watermark: a config edit invalidates
	// every cached segment.
	ConfigPath string

	// Force re-renders every segment regardless of cache state.
	Force bool

	// DryRun plans and reports without writing anything.
	DryRun bool

	// StartAt skips segments before this 1-based index.
	StartAt int

	// Limit caps how many segments are built; zero means all.
	Limit int
}

// Result summarizes one build.
type Result struct {
	Output   string
	Segments int
	Rendered int
	Reused   int
	Pruned   int
	Duration float64
}

// Builder renders slideshows from a source directory.
type Builder struct {
	cfg    *config.Config
	exec   *ffmpeg.Executor
	logger zerolog.Logger
	opts   Options

	width  int
	height int
}

// New validates the configuration and constructs a builder.
func New(cfg *config.Config, exec *ffmpeg.Executor, logger zerolog.Logger, opts Options) (*Builder, error) {
	width, height, err := config.ParseResolution(cfg.Resolution)
	if err != nil {
		return nil, err
	}
	if opts.ConfigPath == "" {
		// An auto-discovered config.json must still feed the watermark.
		opts.ConfigPath = cfg.Path
	}
	return &Builder{
		cfg:    cfg,
		exec:   exec,
		logger: logger.With().Str("component", "builder").Logger(),
		opts:   opts,
		width:  width,
		height: height,
	}, nil
}

// Build runs one full build and returns its summary.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	files, err := assets.Scan(b.cfg.SourceDir)
	if err != nil {
		return nil, err
	}

	groups := assets.GroupFiles(files, b.logger)
	groups, err = b.selectChunk(groups)
	if err != nil {
		return nil, err
	}

	segments, err := plan.Build(groups, plan.Durations{
		Image:   b.cfg.DurationImage,
		Overlay: b.cfg.DurationOverlay,
		Text:    b.cfg.DurationText,
	}, b.logger)
	if err != nil {
		return nil, err
	}
	segments = b.selectRange(segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to build in %s", b.cfg.SourceDir)
	}

	if !b.opts.DryRun {
		if err := util.EnsureDir(b.cfg.WorkDir); err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
	}

	watermark := cache.Watermark(b.opts.ConfigPath, executablePath())

	result := &Result{Segments: len(segments)}
	expected := make(map[string]bool, len(segments))
	segmentPaths := make([]string, len(segments))
	durations := make([]float64, len(segments))

	for i, seg := range segments {
		name := cache.SegmentFileName(seg.Index, primarySource(seg), seg.OverlaySources)
		expected[name] = true
		segPath := filepath.Join(b.cfg.WorkDir, name)
		segmentPaths[i] = segPath

		stale := b.opts.Force || cache.NeedsRender(segPath, seg.Dependencies(), watermark)
		if !stale {
			b.logger.Debug().Str("segment", name).Msg("reusing cached segment")
			result.Reused++
		} else if b.opts.DryRun {
			b.logger.Info().Str("segment", name).Str("kind", string(seg.Kind)).Msg("would render")
			result.Rendered++
			continue
		} else {
			if err := b.renderSegment(ctx, seg, segPath); err != nil {
				return nil, fmt.Errorf("segment %d (%s): %w", seg.Index, seg.Prefix, err)
			}
			result.Rendered++
		}

		durations[i] = b.segmentDuration(ctx, seg, segPath)
	}

	if b.opts.DryRun {
		b.logger.Info().
			Int("render", result.Rendered).
			Int("reuse", result.Reused).
			Msg("dry run complete")
		return result, nil
	}

	// Pruning only makes sense against the full plan; a partial build must
	// not delete segments belonging to other chunks.
	if b.fullPlan() {
		pruned, err := cache.PruneOrphans(b.cfg.WorkDir, expected)
		if err != nil {
			return nil, err
		}
		for _, name := range pruned {
			b.logger.Info().Str("segment", name).Msg("pruned orphaned segment")
		}
		result.Pruned = len(pruned)
	}

	combined := filepath.Join(b.cfg.WorkDir, "combined.mp4")
	manifest := filepath.Join(b.cfg.WorkDir, "concat.txt")
	util.CleanupFiles(combined)
	if err := b.exec.Concat(ctx, ffmpeg.ConcatOptions{
		Inputs:       segmentPaths,
		ManifestPath: manifest,
		Output:       combined,
	}); err != nil {
		return nil, err
	}

	videoDuration := sumDurations(durations)
	if b.exec.HasProbe() {
		if probed := b.exec.ProbeDuration(ctx, combined); probed > 0 {
			videoDuration = probed
		}
	}
	result.Duration = videoDuration

	output := NextVersionedPath(EnsureMP4Suffix(b.cfg.Output))
	if err := b.assembleAudio(ctx, segments, groups, durations, videoDuration, combined, output); err != nil {
		util.CleanupFiles(output)
		return nil, err
	}
	result.Output = output

	if !b.cfg.KeepTemp {
		util.CleanupFiles(manifest, combined)
	}

	b.logger.Info().
		Str("output", output).
		Int("rendered", result.Rendered).
		Int("reused", result.Reused).
		Float64("duration", videoDuration).
		Msg("build complete")
	return result, nil
}

// BuildBatch renders every chunk of the source listing in sequence, one
// output per chunk named `<stem>-<idx><ext>`.
func (b *Builder) BuildBatch(ctx context.Context) ([]*Result, error) {
	if b.cfg.ChunkSize <= 0 {
		return nil, fmt.Errorf("batch mode requires a chunk size")
	}

	files, err := assets.Scan(b.cfg.SourceDir)
	if err != nil {
		return nil, err
	}
	groups := assets.GroupFiles(files, b.logger)
	if len(groups) == 0 {
		return nil, fmt.Errorf("no asset groups in %s", b.cfg.SourceDir)
	}
	chunks := (len(groups) + b.cfg.ChunkSize - 1) / b.cfg.ChunkSize

	var results []*Result
	for i := 1; i <= chunks; i++ {
		cfg := *b.cfg
		cfg.ChunkIndex = i
		cfg.Output = chunkOutputPath(b.cfg.Output, i)

		sub := &Builder{cfg: &cfg, exec: b.exec, logger: b.logger, opts: b.opts, width: b.width, height: b.height}
		b.logger.Info().Int("chunk", i).Int("chunks", chunks).Str("output", cfg.Output).Msg("building chunk")
		result, err := sub.Build(ctx)
		if err != nil {
			return results, fmt.Errorf("chunk %d: %w", i, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func chunkOutputPath(output string, index int) string {
	output = EnsureMP4Suffix(output)
	ext := filepath.Ext(output)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(output, ext), index, ext)
}

// WatchPaths returns the locations a watch session should observe: the
// source directory, the config document, and any configured audio tracks
// with their parent directories.
func (b *Builder) WatchPaths() []string {
	seen := make(map[string]bool)
	var paths []string
	add := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		paths = append(paths, path)
	}

	add(b.cfg.SourceDir)
	add(b.opts.ConfigPath)
	for _, track := range b.cfg.AudioFiles {
		if util.FileExists(track) {
			add(track)
		}
		// The parent catches replace-by-rename of the track itself.
		add(filepath.Dir(track))
	}
	return paths
}

// selectChunk narrows the group list to the configured chunk window.
func (b *Builder) selectChunk(groups []assets.Group) ([]assets.Group, error) {
	if b.cfg.ChunkSize <= 0 {
		return groups, nil
	}
	start := (b.cfg.ChunkIndex - 1) * b.cfg.ChunkSize
	if start < 0 || start >= len(groups) {
		return nil, fmt.Errorf("chunk %d is out of range for %d groups", b.cfg.ChunkIndex, len(groups))
	}
	end := start + b.cfg.ChunkSize
	if end > len(groups) {
		end = len(groups)
	}
	return groups[start:end], nil
}

// selectRange applies the start/limit window. Segment indexes keep their
// full-plan values so cache names stay stable.
func (b *Builder) selectRange(segments []plan.Segment) []plan.Segment {
	if b.opts.StartAt > 1 {
		skip := b.opts.StartAt - 1
		if skip >= len(segments) {
			return nil
		}
		segments = segments[skip:]
	}
	if b.opts.Limit > 0 && b.opts.Limit < len(segments) {
		segments = segments[:b.opts.Limit]
	}
	return segments
}

func (b *Builder) fullPlan() bool {
	return b.cfg.ChunkSize <= 0 && b.opts.StartAt <= 1 && b.opts.Limit <= 0
}

// renderSegment renders one segment to outPath, removing the partial file
// on failure so a broken render is never mistaken for a cached one.
func (b *Builder) renderSegment(ctx context.Context, seg plan.Segment, outPath string) error {
	var err error
	switch seg.Kind {
	case plan.KindImage:
		err = b.renderImageSegment(ctx, seg, outPath)
	case plan.KindVideo:
		err = b.renderVideoSegment(ctx, seg, outPath)
	case plan.KindText:
		err = b.renderTextSegment(ctx, seg, outPath)
	default:
		err = fmt.Errorf("unknown segment kind %q", seg.Kind)
	}
	if err != nil {
		util.CleanupFiles(outPath)
	}
	return err
}

func (b *Builder) renderImageSegment(ctx context.Context, seg plan.Segment, outPath string) error {
	input := seg.Primary
	var temps []string
	defer func() {
		if !b.cfg.KeepTemp {
			util.CleanupFiles(temps...)
		}
	}()

	if len(seg.VisualSources) > 1 {
		collagePath := filepath.Join(b.cfg.WorkDir, fmt.Sprintf("collage_%04d.png", seg.Index))
		if err := b.buildCollage(ctx, seg.VisualSources, collagePath); err != nil {
			return err
		}
		temps = append(temps, collagePath)
		input = collagePath
	}

	var motionPlan *motion.Plan
	if b.cfg.Transitions.Enabled {
		motionPlan = motion.Select(seg.Index, seg.Duration, b.cfg.FPS, b.cfg.Transitions.Motions)
	}

	subtitlePath, err := b.writeCaption(seg, seg.Duration)
	if err != nil {
		return err
	}
	if subtitlePath != "" {
		temps = append(temps, subtitlePath)
	}

	graph, out := buildMediaGraph(b.mediaOptions(seg, motionPlan, subtitlePath))
	return b.exec.RenderStill(ctx, ffmpeg.StillOptions{
		Input:        input,
		Output:       outPath,
		Duration:     seg.Duration,
		FPS:          b.cfg.FPS,
		FilterGraph:  graph,
		FilterOutput: out,
	})
}

func (b *Builder) renderVideoSegment(ctx context.Context, seg plan.Segment, outPath string) error {
	hasAudio := false
	if b.exec.HasProbe() {
		if info, err := b.exec.Probe(ctx, seg.Primary); err == nil {
			hasAudio = info.HasAudio
		}
	}

	// Duration zero keeps the caption visible for the whole clip.
	subtitlePath, err := b.writeCaption(seg, 0)
	if err != nil {
		return err
	}
	if subtitlePath != "" && !b.cfg.KeepTemp {
		defer util.CleanupFiles(subtitlePath)
	}

	graph, out := buildMediaGraph(b.mediaOptions(seg, nil, subtitlePath))
	return b.exec.RenderVideo(ctx, ffmpeg.VideoOptions{
		Input:        seg.Primary,
		Output:       outPath,
		FPS:          b.cfg.FPS,
		FilterGraph:  graph,
		FilterOutput: out,
	}, hasAudio)
}

func (b *Builder) renderTextSegment(ctx context.Context, seg plan.Segment, outPath string) error {
	subtitlePath, err := b.writeCaption(seg, seg.Duration)
	if err != nil {
		return err
	}
	if subtitlePath == "" {
		return fmt.Errorf("text segment %s has no renderable content", seg.Prefix)
	}
	if !b.cfg.KeepTemp {
		defer util.CleanupFiles(subtitlePath)
	}

	graph, out := buildTextSlideGraph(subtitlePath, b.fontsDir())
	return b.exec.RenderTextSlide(ctx, ffmpeg.TextSlideOptions{
		Output:       outPath,
		Duration:     seg.Duration,
		Width:        b.width,
		Height:       b.height,
		FPS:          b.cfg.FPS,
		FilterGraph:  graph,
		FilterOutput: out,
	})
}

// buildCollage probes each source's shape and composites the grid frame.
func (b *Builder) buildCollage(ctx context.Context, sources []string, outPath string) error {
	orientations := make([]collage.Orientation, len(sources))
	for i, source := range sources {
		orientations[i] = collage.Unknown
		if b.exec.HasProbe() {
			w, h := b.exec.ProbeDimensions(ctx, source)
			orientations[i] = collage.Classify(w, h)
		}
	}
	layout := collage.Compute(orientations, b.width, b.height, 0)
	return b.exec.BuildCollage(ctx, sources, layout, b.width, b.height, outPath)
}

// writeCaption emits the segment's ASS file, or "" when there is nothing
// to draw.
func (b *Builder) writeCaption(seg plan.Segment, duration float64) (string, error) {
	if seg.Layout == nil || seg.Layout.Empty() {
		return "", nil
	}
	style := subtitles.Style{
		FontName:  subtitles.ResolveFontName(b.cfg.LabelFont),
		TitleSize: b.cfg.TitleFontSize,
		BodySize:  b.cfg.BodyFontSize,
	}
	dir := filepath.Join(b.cfg.WorkDir, "subtitles", fmt.Sprintf("%04d", seg.Index))
	return subtitles.WriteASS(seg.Layout, b.width, b.height, style, dir, duration)
}

func (b *Builder) mediaOptions(seg plan.Segment, motionPlan *motion.Plan, subtitlePath string) mediaGraphOptions {
	opts := mediaGraphOptions{
		Width:        b.width,
		Height:       b.height,
		Motion:       motionPlan,
		SubtitlePath: subtitlePath,
		FontsDir:     b.fontsDir(),
	}
	if b.cfg.LabelYear {
		opts.YearText = InferYearText(seg.Primary)
		if b.cfg.LabelFont != "" {
			if util.FileExists(b.cfg.LabelFont) {
				opts.LabelFontFile = b.cfg.LabelFont
			} else {
				b.logger.Warn().Str("font", b.cfg.LabelFont).Msg("label font not found; using encoder default")
			}
		}
	}
	if b.cfg.DebugFilename {
		opts.DebugText = debugLabel(seg.Primary)
	}
	return opts
}

func (b *Builder) fontsDir() string {
	if b.cfg.LabelFont == "" || !util.FileExists(b.cfg.LabelFont) {
		return ""
	}
	return filepath.Dir(b.cfg.LabelFont)
}

// segmentDuration resolves a segment's effective length on the final
// timeline. Video segments carry no planned duration, so the rendered file
// is probed.
func (b *Builder) segmentDuration(ctx context.Context, seg plan.Segment, segPath string) float64 {
	if seg.Duration > 0 {
		return seg.Duration
	}
	if b.exec.HasProbe() {
		if probed := b.exec.ProbeDuration(ctx, segPath); probed > 0 {
			return probed
		}
	}
	b.logger.Warn().Str("segment", filepath.Base(segPath)).Msg("could not resolve segment duration; audio sync may drift")
	return 0
}

// assembleAudio produces the final output: a marker-anchored timeline mix
// when the source directory carries audio assets, the flat concatenated bed
// when only configured audio files exist, or a plain rename when there is
// no audio at all.
func (b *Builder) assembleAudio(ctx context.Context, segments []plan.Segment, groups []assets.Group, durations []float64, videoDuration float64, combined, output string) error {
	markers := collectMarkers(segments, groups)

	switch {
	case len(markers) > 0:
		entries := audio.BuildTimeline(markers, durations, audio.DefaultCrossfade)
		if len(entries) == 0 {
			b.logger.Warn().Msg("audio markers resolved to empty timeline; output has segment audio only")
			return os.Rename(combined, output)
		}
		mixPath := filepath.Join(b.cfg.WorkDir, "audio_mix.mp3")
		if !b.cfg.KeepTemp {
			defer util.CleanupFiles(mixPath)
		}
		if err := b.exec.MixTimeline(ctx, entries, videoDuration, mixPath); err != nil {
			return err
		}
		return b.exec.Mux(ctx, combined, mixPath, output)

	case len(b.cfg.AudioFiles) > 0:
		return b.assembleFlatAudio(ctx, videoDuration, combined, output)

	default:
		return os.Rename(combined, output)
	}
}

// assembleFlatAudio normalizes the configured background tracks, trims the
// excess so the bed matches the video, and muxes the result.
func (b *Builder) assembleFlatAudio(ctx context.Context, videoDuration float64, combined, output string) error {
	var temps []string
	defer func() {
		if !b.cfg.KeepTemp {
			util.CleanupFiles(temps...)
		}
	}()

	var tracks []string
	var trackDurations []float64
	for i, source := range b.cfg.AudioFiles {
		if !util.FileExists(source) {
			b.logger.Warn().Str("file", source).Msg("audio file not found; skipping track")
			continue
		}
		track := filepath.Join(b.cfg.WorkDir, fmt.Sprintf("audio_%02d.m4a", i))
		if err := b.exec.TranscodeAudio(ctx, source, track); err != nil {
			return err
		}
		temps = append(temps, track)
		tracks = append(tracks, track)
		duration := 0.0
		if b.exec.HasProbe() {
			duration = b.exec.ProbeDuration(ctx, track)
		}
		trackDurations = append(trackDurations, duration)
	}
	if len(tracks) == 0 {
		b.logger.Warn().Msg("no usable audio files; output has segment audio only")
		return os.Rename(combined, output)
	}

	if b.exec.HasProbe() && videoDuration > 0 {
		targets := audio.PlanTrim(trackDurations, videoDuration, audio.MinTrackLength)
		for i, target := range targets {
			if target >= trackDurations[i]-0.01 {
				continue
			}
			trimmed := filepath.Join(b.cfg.WorkDir, fmt.Sprintf("audio_%02d_trim.m4a", i))
			if err := b.exec.TrimAudio(ctx, tracks[i], trimmed, target); err != nil {
				return err
			}
			temps = append(temps, trimmed)
			tracks[i] = trimmed
		}
	}

	bed := filepath.Join(b.cfg.WorkDir, "audio_bed.m4a")
	temps = append(temps, bed)
	if err := b.exec.ConcatAudio(ctx, tracks, bed); err != nil {
		return err
	}
	return b.exec.Mux(ctx, combined, bed, output)
}

// collectMarkers anchors each group's audio assets to the 0-based position
// of that group's segment in the rendered order.
func collectMarkers(segments []plan.Segment, groups []assets.Group) []audio.Marker {
	groupAudio := make(map[string][]string, len(groups))
	for _, group := range groups {
		if len(group.Audio) > 0 {
			groupAudio[group.Prefix] = group.Audio
		}
	}

	var markers []audio.Marker
	for i, seg := range segments {
		for _, path := range groupAudio[seg.Prefix] {
			markers = append(markers, audio.Marker{Path: path, SegmentIndex: i})
		}
	}
	return markers
}

func primarySource(seg plan.Segment) string {
	if seg.Primary != "" {
		return seg.Primary
	}
	if len(seg.OverlaySources) > 0 {
		return seg.OverlaySources[0]
	}
	return seg.Prefix
}

func sumDurations(durations []float64) float64 {
	total := 0.0
	for _, d := range durations {
		total += d
	}
	return total
}

func executablePath() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return path
}
