// Package ffmpeg wraps the external encoder and probe collaborators. The
// rest of the system hands it declarative options and filter graphs; only
// this package shells out.
package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg and ffprobe invocations.
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
}

// New creates an executor. Empty paths fall back to PATH lookup; a missing
// ffmpeg binary is fatal, a missing ffprobe only degrades probing.
func New(logger zerolog.Logger, ffmpegPath, ffprobePath string) (*Executor, error) {
	if ffmpegPath == "" {
		found, err := exec.LookPath("ffmpeg")
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
		}
		ffmpegPath = found
	}

	if ffprobePath == "" {
		if found, err := exec.LookPath("ffprobe"); err == nil {
			ffprobePath = found
		} else {
			logger.Warn().Msg("ffprobe not found; media durations will be unavailable")
		}
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}, nil
}

// HasProbe reports whether a probe binary was resolved.
func (e *Executor) HasProbe() bool {
	return e.ffprobePath != ""
}

// Run executes ffmpeg with the given arguments, blocking until the process
// exits. Non-zero exits surface as errors carrying the stderr tail.
func (e *Executor) Run(ctx context.Context, opts RunOptions) error {
	if len(opts.Args) == 0 {
		return fmt.Errorf("no arguments provided")
	}

	args := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if opts.LogHandler != nil {
		scanner := bufio.NewScanner(bytes.NewReader(stderr.Bytes()))
		for scanner.Scan() {
			opts.LogHandler(scanner.Text())
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, stderrTail(stderr.String()))
	}

	e.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// stderrTail keeps error messages readable by returning only the last few
// stderr lines.
func stderrTail(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, " | ")
}
