package builder

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/keagan/slidecast/internal/ffmpeg"
	"github.com/keagan/slidecast/internal/motion"
)

// mediaGraphOptions describes the processing stages for one visual segment.
type mediaGraphOptions struct {
	Width  int
	Height int

	// Motion, when set, replaces the static letterbox with a pan/zoom pass.
	Motion *motion.Plan

	// SubtitlePath burns an ASS caption file when non-empty.
	SubtitlePath string
	FontsDir     string

	// YearText draws a year label in the lower-left corner.
	YearText      string
	LabelFontFile string

	// DebugText draws the source file name along the bottom edge.
	DebugText string
}

// buildMediaGraph composes the filter graph for an image or video segment:
// fit-and-letterbox (or pan/zoom for stills), caption burn-in, and the
// optional corner labels. It returns the serialized graph and the final
// output label.
func buildMediaGraph(opts mediaGraphOptions) (string, string) {
	graph := ffmpeg.NewGraph("v")

	var out string
	if opts.Motion != nil {
		// Upscale before zoompan so sub-pixel pans stay smooth.
		out = graph.Chain("0:v",
			ffmpeg.ScaleFit(opts.Width*2, opts.Height*2),
			ffmpeg.Letterbox(opts.Width*2, opts.Height*2),
			motion.Filter(opts.Motion, opts.Width, opts.Height),
			ffmpeg.Format(ffmpeg.DefaultPixelFormat),
		)
	} else {
		out = graph.Chain("0:v",
			ffmpeg.ScaleFit(opts.Width, opts.Height),
			ffmpeg.Letterbox(opts.Width, opts.Height),
			ffmpeg.Format(ffmpeg.DefaultPixelFormat),
		)
	}

	if opts.SubtitlePath != "" {
		out = graph.Chain(out, ffmpeg.Subtitles(opts.SubtitlePath, opts.FontsDir))
	}

	if opts.YearText != "" {
		out = graph.Chain(out, ffmpeg.DrawText(ffmpeg.DrawTextOptions{
			Text:        opts.YearText,
			FontFile:    opts.LabelFontFile,
			FontSize:    opts.Height / 18,
			BorderWidth: 3,
			X:           "w-tw-80",
			Y:           "h-th-80",
		}))
	}

	if opts.DebugText != "" {
		out = graph.Chain(out, ffmpeg.DrawText(ffmpeg.DrawTextOptions{
			Text:      opts.DebugText,
			FontSize:  28,
			FontColor: "yellow",
			Box:       true,
			X:         "20",
			Y:         "20",
		}))
	}

	return graph.String(), out
}

// buildTextSlideGraph composes the graph for a full-screen text slide: the
// caption file burned onto the generated canvas.
func buildTextSlideGraph(subtitlePath, fontsDir string) (string, string) {
	graph := ffmpeg.NewGraph("v")
	out := graph.Chain("0:v",
		ffmpeg.Format(ffmpeg.DefaultPixelFormat),
		ffmpeg.Subtitles(subtitlePath, fontsDir),
	)
	return graph.String(), out
}

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// InferYearText extracts a plausible year from a source file name, for the
// corner label. Empty when the name carries none.
func InferYearText(path string) string {
	return yearPattern.FindString(filepath.Base(path))
}

// debugLabel is the text drawn by the filename overlay.
func debugLabel(path string) string {
	return fmt.Sprintf("[%s]", filepath.Base(path))
}
