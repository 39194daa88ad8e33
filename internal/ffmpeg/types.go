package ffmpeg

// MediaInfo contains probed metadata about a media file. Zero values mean
// the probe could not resolve that field.
type MediaInfo struct {
	FilePath string
	Duration float64 // seconds
	Width    int
	Height   int
	FPS      float64
	HasAudio bool
}

// RunOptions configures one encoder invocation.
type RunOptions struct {
	Args       []string
	LogHandler func(line string)
}

// Default encoding settings
const (
	DefaultVideoCodec   = "libx264"
	DefaultAudioCodec   = "aac"
	DefaultAudioBitrate = "192k"
	DefaultPixelFormat  = "yuv420p"
	DefaultSampleRate   = 48000
)

// StillOptions renders a looped still image into a video segment.
type StillOptions struct {
	Input        string
	Output       string
	Duration     float64
	FPS          int
	FilterGraph  string
	FilterOutput string
}

// VideoOptions re-encodes a video clip through a filter graph.
type VideoOptions struct {
	Input        string
	Output       string
	FPS          int
	FilterGraph  string
	FilterOutput string
}

// TextSlideOptions renders a full-screen text slide over a dark canvas.
type TextSlideOptions struct {
	Output       string
	Duration     float64
	Width        int
	Height       int
	FPS          int
	FilterGraph  string
	FilterOutput string
}

// ConcatOptions merges rendered segments in manifest order with stream
// copy. The manifest is written to ManifestPath and left in place for
// inspection.
type ConcatOptions struct {
	Inputs       []string
	ManifestPath string
	Output       string
}
