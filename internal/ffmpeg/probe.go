package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/keagan/slidecast/pkg/util"
)

// Probe extracts duration and stream metadata from a media file.
func (e *Executor) Probe(ctx context.Context, filePath string) (*MediaInfo, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}
	if e.ffprobePath == "" {
		return nil, fmt.Errorf("ffprobe is unavailable")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed for %s: %w", filePath, err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	info := &MediaInfo{FilePath: filePath}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil && dur > 0 {
		info.Duration = dur
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			info.Width = stream.Width
			info.Height = stream.Height
			if stream.RFrameRate != "" {
				info.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
		case "audio":
			info.HasAudio = true
		}
	}

	return info, nil
}

// ProbeDuration returns a media file's duration in seconds, or zero when
// the probe cannot resolve it.
func (e *Executor) ProbeDuration(ctx context.Context, filePath string) float64 {
	info, err := e.Probe(ctx, filePath)
	if err != nil {
		e.logger.Debug().Err(err).Str("file", filePath).Msg("duration probe failed")
		return 0
	}
	return info.Duration
}

// ProbeDimensions returns a media file's pixel dimensions, or zeros when
// unresolvable.
func (e *Executor) ProbeDimensions(ctx context.Context, filePath string) (int, int) {
	info, err := e.Probe(ctx, filePath)
	if err != nil {
		e.logger.Debug().Err(err).Str("file", filePath).Msg("dimension probe failed")
		return 0, 0
	}
	return info.Width, info.Height
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}
