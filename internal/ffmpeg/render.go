package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/keagan/slidecast/internal/collage"
	"github.com/keagan/slidecast/pkg/util"
)

// RenderStill loops a single image for the requested duration, runs it
// through the supplied filter graph, and pairs it with a silent stereo
// track so every segment concatenates with uniform streams.
func (e *Executor) RenderStill(ctx context.Context, opts StillOptions) error {
	if opts.FilterGraph == "" || opts.FilterOutput == "" {
		return fmt.Errorf("filter graph is required")
	}

	args := []string{
		"-loop", "1",
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-t", util.FormatSeconds(opts.Duration),
		"-i", opts.Input,
		"-f", "lavfi",
		"-t", util.FormatSeconds(opts.Duration),
		"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", DefaultSampleRate),
		"-filter_complex", opts.FilterGraph,
		"-map", fmt.Sprintf("[%s]", opts.FilterOutput),
		"-map", "1:a:0",
		"-c:v", DefaultVideoCodec,
		"-pix_fmt", DefaultPixelFormat,
		"-r", fmt.Sprintf("%d", opts.FPS),
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		opts.Output,
	}

	e.logger.Info().Str("input", filepath.Base(opts.Input)).Str("output", filepath.Base(opts.Output)).Msg("rendering still segment")
	return e.Run(ctx, RunOptions{Args: args})
}

// RenderVideo re-encodes a clip through the filter graph, normalizing frame
// rate and codecs. The clip keeps its own audio when present; a silent
// track is synthesized otherwise so stream layouts stay uniform.
func (e *Executor) RenderVideo(ctx context.Context, opts VideoOptions, hasAudio bool) error {
	if opts.FilterGraph == "" || opts.FilterOutput == "" {
		return fmt.Errorf("filter graph is required")
	}

	args := []string{"-i", opts.Input}
	audioMap := "0:a:0"
	if !hasAudio {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", DefaultSampleRate),
		)
		audioMap = "1:a:0"
	}
	args = append(args,
		"-filter_complex", opts.FilterGraph,
		"-map", fmt.Sprintf("[%s]", opts.FilterOutput),
		"-map", audioMap,
		"-c:v", DefaultVideoCodec,
		"-pix_fmt", DefaultPixelFormat,
		"-r", fmt.Sprintf("%d", opts.FPS),
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		"-ar", fmt.Sprintf("%d", DefaultSampleRate),
		"-shortest",
		"-movflags", "+faststart",
		opts.Output,
	)

	e.logger.Info().Str("input", filepath.Base(opts.Input)).Str("output", filepath.Base(opts.Output)).Msg("rendering video segment")
	return e.Run(ctx, RunOptions{Args: args})
}

// RenderTextSlide renders a full-screen slide over a dark canvas generated
// by lavfi, with a matching silent audio track.
func (e *Executor) RenderTextSlide(ctx context.Context, opts TextSlideOptions) error {
	if opts.FilterGraph == "" || opts.FilterOutput == "" {
		return fmt.Errorf("filter graph is required")
	}

	args := []string{
		"-f", "lavfi",
		"-t", util.FormatSeconds(opts.Duration),
		"-i", fmt.Sprintf("color=0x101010:size=%dx%d:rate=%d", opts.Width, opts.Height, opts.FPS),
		"-f", "lavfi",
		"-t", util.FormatSeconds(opts.Duration),
		"-i", fmt.Sprintf("anullsrc=channel_layout=stereo:sample_rate=%d", DefaultSampleRate),
		"-filter_complex", opts.FilterGraph,
		"-map", fmt.Sprintf("[%s]", opts.FilterOutput),
		"-map", "1:a:0",
		"-c:v", DefaultVideoCodec,
		"-pix_fmt", DefaultPixelFormat,
		"-r", fmt.Sprintf("%d", opts.FPS),
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		"-shortest",
		"-movflags", "+faststart",
		opts.Output,
	}

	e.logger.Info().Str("output", filepath.Base(opts.Output)).Msg("rendering text slide")
	return e.Run(ctx, RunOptions{Args: args})
}

// BuildCollage composites multiple images onto a single frame following a
// computed grid layout and writes it as a PNG. Each image is scaled and
// letterboxed into its cell before placement.
func (e *Executor) BuildCollage(ctx context.Context, inputs []string, layout collage.Layout, width, height int, output string) error {
	if len(inputs) != len(layout.Positions) {
		return fmt.Errorf("layout has %d cells for %d inputs", len(layout.Positions), len(inputs))
	}

	var args []string
	for _, input := range inputs {
		args = append(args, "-i", input)
	}

	graph := NewGraph("cell")
	labels := make([]string, len(inputs))
	for i := range inputs {
		labels[i] = graph.Chain(fmt.Sprintf("%d:v", i),
			ScaleFit(layout.CellWidth, layout.CellHeight),
			Letterbox(layout.CellWidth, layout.CellHeight),
			Format("rgba"),
		)
	}

	coords := make([]string, len(layout.Positions))
	for i, pos := range layout.Positions {
		coords[i] = fmt.Sprintf("%d_%d", pos.X, pos.Y)
	}
	stack := fmt.Sprintf("xstack=inputs=%d:layout=%s:fill=black", len(inputs), strings.Join(coords, "|"))
	out := graph.Merge(labels, stack)
	final := graph.Chain(out, Letterbox(width, height))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", fmt.Sprintf("[%s]", final),
		"-frames:v", "1",
		output,
	)

	e.logger.Info().Int("images", len(inputs)).Str("output", filepath.Base(output)).Msg("building collage frame")
	return e.Run(ctx, RunOptions{Args: args})
}

// Concat merges rendered segments with stream copy via the concat demuxer.
// The manifest file is written first and left behind for inspection.
func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("no inputs to concatenate")
	}

	var manifest strings.Builder
	for _, input := range opts.Inputs {
		abs, err := filepath.Abs(input)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", input, err)
		}
		fmt.Fprintf(&manifest, "file '%s'\n", abs)
	}
	if err := os.WriteFile(opts.ManifestPath, []byte(manifest.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", opts.ManifestPath,
		"-c", "copy",
		opts.Output,
	}

	e.logger.Info().Int("segments", len(opts.Inputs)).Str("output", filepath.Base(opts.Output)).Msg("concatenating segments")
	return e.Run(ctx, RunOptions{Args: args})
}
