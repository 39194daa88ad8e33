package ffmpeg

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Graph is a typed intermediate representation of an ffmpeg filter graph:
// an ordered list of labeled processing steps. Components build graphs
// declaratively and the executor serializes them, which keeps the graph
// construction testable without invoking an encoder.
type Graph struct {
	steps   []string
	counter int
	prefix  string
}

// NewGraph creates a graph whose intermediate labels use the given prefix.
func NewGraph(prefix string) *Graph {
	if prefix == "" {
		prefix = "v"
	}
	return &Graph{prefix: prefix}
}

func (g *Graph) nextLabel() string {
	label := fmt.Sprintf("%s%d", g.prefix, g.counter)
	g.counter++
	return label
}

// Chain applies filters in sequence to the input label (a stream spec such
// as "0:v" or a previous step's label) and returns the output label.
func (g *Graph) Chain(input string, filters ...string) string {
	output := g.nextLabel()
	g.steps = append(g.steps, fmt.Sprintf("[%s]%s[%s]", input, strings.Join(filters, ","), output))
	return output
}

// Merge feeds several labeled inputs into a single multi-input filter and
// returns the output label.
func (g *Graph) Merge(inputs []string, filter string) string {
	output := g.nextLabel()
	var b strings.Builder
	for _, input := range inputs {
		fmt.Fprintf(&b, "[%s]", input)
	}
	b.WriteString(filter)
	fmt.Fprintf(&b, "[%s]", output)
	g.steps = append(g.steps, b.String())
	return output
}

// String serializes the graph into filter_complex syntax.
func (g *Graph) String() string {
	return strings.Join(g.steps, ";")
}

// Empty reports whether no steps were added.
func (g *Graph) Empty() bool {
	return len(g.steps) == 0
}

// ScaleFit scales preserving aspect ratio so the frame fits within w x h.
func ScaleFit(w, h int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h)
}

// Letterbox pads the frame to exactly w x h, centering the content.
func Letterbox(w, h int) string {
	return fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2", w, h)
}

// Format forces a pixel format.
func Format(pixFmt string) string {
	return "format=" + pixFmt
}

// DrawTextOptions is the typed form of a drawtext stage.
type DrawTextOptions struct {
	Text        string
	FontFile    string
	FontSize    int
	FontColor   string
	LineSpacing int
	BorderWidth int
	BorderColor string
	Box         bool
	BoxColor    string
	X           string
	Y           string
}

// DrawText compiles a drawtext stage. Text and font path are escaped for
// filter syntax.
func DrawText(opts DrawTextOptions) string {
	var b strings.Builder
	b.WriteString("drawtext=")
	if opts.FontFile != "" {
		fmt.Fprintf(&b, "fontfile='%s':", EscapeDrawText(opts.FontFile))
	}
	fmt.Fprintf(&b, "text='%s':fontsize=%d", EscapeDrawText(opts.Text), opts.FontSize)
	if opts.LineSpacing > 0 {
		fmt.Fprintf(&b, ":line_spacing=%d", opts.LineSpacing)
	}
	color := opts.FontColor
	if color == "" {
		color = "white"
	}
	fmt.Fprintf(&b, ":fontcolor=%s", color)
	if opts.BorderWidth > 0 {
		borderColor := opts.BorderColor
		if borderColor == "" {
			borderColor = "black"
		}
		fmt.Fprintf(&b, ":borderw=%d:bordercolor=%s", opts.BorderWidth, borderColor)
	}
	if opts.Box {
		boxColor := opts.BoxColor
		if boxColor == "" {
			boxColor = "0x00000088"
		}
		fmt.Fprintf(&b, ":box=1:boxcolor=%s", boxColor)
	}
	fmt.Fprintf(&b, ":text_shaping=1:x=%s:y=%s", opts.X, opts.Y)
	return b.String()
}

// Subtitles compiles a subtitles stage referencing an ASS file, with an
// optional fonts directory.
func Subtitles(path, fontsDir string) string {
	filter := fmt.Sprintf("subtitles='%s'", EscapeFilterPath(path))
	if fontsDir != "" {
		filter += fmt.Sprintf(":fontsdir='%s'", EscapeFilterPath(fontsDir))
	}
	return filter
}

// EscapeDrawText escapes text for use inside a drawtext value.
func EscapeDrawText(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `'`, `\'`)
}

// EscapeFilterPath escapes a file path for use inside a filter argument.
func EscapeFilterPath(path string) string {
	value := filepath.ToSlash(path)
	value = strings.ReplaceAll(value, `\`, `\\`)
	value = strings.ReplaceAll(value, `:`, `\:`)
	return strings.ReplaceAll(value, `'`, `\'`)
}
