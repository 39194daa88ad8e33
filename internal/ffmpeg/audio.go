package ffmpeg

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/keagan/slidecast/internal/audio"
	"github.com/keagan/slidecast/pkg/util"
)

// TranscodeAudio normalizes an audio track to stereo AAC so downstream
// concatenation never mixes codecs or channel layouts.
func (e *Executor) TranscodeAudio(ctx context.Context, input, output string) error {
	args := []string{
		"-i", input,
		"-vn",
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		"-ac", "2",
		"-ar", fmt.Sprintf("%d", DefaultSampleRate),
		output,
	}

	e.logger.Debug().Str("input", filepath.Base(input)).Msg("transcoding audio track")
	return e.Run(ctx, RunOptions{Args: args})
}

// TrimAudio shortens a track to the target duration with a gentle fade-out
// over the final stretch, at most one second.
func (e *Executor) TrimAudio(ctx context.Context, input, output string, target float64) error {
	fade := target / 2
	if fade > 1 {
		fade = 1
	}
	filter := fmt.Sprintf("atrim=duration=%s,afade=t=out:st=%s:d=%s",
		util.FormatSeconds(target),
		util.FormatSeconds(target-fade),
		util.FormatSeconds(fade))

	args := []string{
		"-i", input,
		"-af", filter,
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		output,
	}

	e.logger.Debug().Str("input", filepath.Base(input)).Float64("target", target).Msg("trimming audio track")
	return e.Run(ctx, RunOptions{Args: args})
}

// ConcatAudio joins normalized tracks end to end with the concat filter.
func (e *Executor) ConcatAudio(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no audio inputs")
	}

	var args []string
	for _, input := range inputs {
		args = append(args, "-i", input)
	}

	graph := NewGraph("a")
	labels := make([]string, len(inputs))
	for i := range inputs {
		labels[i] = fmt.Sprintf("%d:a:0", i)
	}
	out := graph.Merge(labels, fmt.Sprintf("concat=n=%d:v=0:a=1", len(inputs)))

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", fmt.Sprintf("[%s]", out),
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		output,
	)

	e.logger.Info().Int("tracks", len(inputs)).Msg("concatenating audio tracks")
	return e.Run(ctx, RunOptions{Args: args})
}

// MixTimeline realizes a resolved audio timeline into one mixed track: each
// entry is trimmed to its interval, faded per the crossfade plan, delayed to
// its start position, and the lot mixed down. When finalDuration is positive
// the mix is trimmed to it with a closing fade.
func (e *Executor) MixTimeline(ctx context.Context, entries []audio.Entry, finalDuration float64, output string) error {
	if len(entries) == 0 {
		return fmt.Errorf("no timeline entries")
	}

	var args []string
	for _, entry := range entries {
		args = append(args, "-i", entry.Path)
	}

	graph := NewGraph("t")
	labels := make([]string, len(entries))
	for i, entry := range entries {
		filters := []string{
			fmt.Sprintf("atrim=duration=%s", util.FormatSeconds(entry.Duration())),
			"asetpts=PTS-STARTPTS",
		}
		if entry.FadeIn > 0 {
			filters = append(filters, fmt.Sprintf("afade=t=in:st=0:d=%s", util.FormatSeconds(entry.FadeIn)))
		}
		if entry.FadeOut > 0 {
			filters = append(filters, fmt.Sprintf("afade=t=out:st=%s:d=%s",
				util.FormatSeconds(entry.Duration()-entry.FadeOut),
				util.FormatSeconds(entry.FadeOut)))
		}
		if entry.Start > 0 {
			delayMS := int(entry.Start * 1000)
			filters = append(filters, fmt.Sprintf("adelay=%d|%d", delayMS, delayMS))
		}
		labels[i] = graph.Chain(fmt.Sprintf("%d:a:0", i), filters...)
	}

	mixed := graph.Merge(labels, fmt.Sprintf("amix=inputs=%d:duration=longest:normalize=0", len(entries)))

	finishing := []string{"aformat=sample_fmts=s16:sample_rates=44100:channel_layouts=stereo"}
	if finalDuration > 0 {
		fade := finalDuration / 10
		if fade > 1 {
			fade = 1
		}
		finishing = append(finishing,
			fmt.Sprintf("atrim=duration=%s", util.FormatSeconds(finalDuration)),
			fmt.Sprintf("afade=t=out:st=%s:d=%s",
				util.FormatSeconds(finalDuration-fade),
				util.FormatSeconds(fade)))
	}
	out := graph.Chain(mixed, finishing...)

	args = append(args,
		"-filter_complex", graph.String(),
		"-map", fmt.Sprintf("[%s]", out),
		"-c:a", "libmp3lame",
		"-ar", "44100",
		"-b:a", DefaultAudioBitrate,
		output,
	)

	e.logger.Info().Int("tracks", len(entries)).Str("output", filepath.Base(output)).Msg("mixing audio timeline")
	return e.Run(ctx, RunOptions{Args: args})
}

// Mux replaces a video's audio with the supplied track, copying the video
// stream untouched.
func (e *Executor) Mux(ctx context.Context, videoPath, audioPath, output string) error {
	args := []string{
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", DefaultAudioCodec,
		"-b:a", DefaultAudioBitrate,
		"-shortest",
		output,
	}

	e.logger.Info().Str("output", filepath.Base(output)).Msg("muxing final audio")
	return e.Run(ctx, RunOptions{Args: args})
}
