// Package audio derives the multi-track audio timeline: marker-anchored
// intervals on the final-video clock, crossfade trimming between adjacent
// tracks, and the flat trim plan used when no markers are present. All
// arithmetic is pure; the ffmpeg layer realizes the plans.
package audio

// DefaultCrossfade is the overlap window between adjacent tracks.
const DefaultCrossfade = 1.0

// MinTrackLength is the floor below which no track is ever trimmed.
const MinTrackLength = 0.5

// Marker anchors an audio file to a 0-based segment index: the track plays
// from the moment that segment begins.
type Marker struct {
	Path         string
	SegmentIndex int
}

// Entry is a resolved interval on the final-video clock.
type Entry struct {
	Path    string
	Start   float64
	End     float64
	FadeIn  float64
	FadeOut float64
}

// Duration returns the entry's effective length.
func (e Entry) Duration() float64 {
	return e.End - e.Start
}

// BuildTimeline resolves markers against cumulative segment start times and
// applies crossfade adjustment. Each track spans from its anchor segment to
// the next marker's anchor (or the end of the timeline); non-positive
// intervals are dropped. For each adjacent pair, the earlier track gains a
// fade-out and the later track's start is pulled back by the same window.
func BuildTimeline(markers []Marker, segmentDurations []float64, crossfade float64) []Entry {
	if len(markers) == 0 {
		return nil
	}

	cumulative := make([]float64, len(segmentDurations)+1)
	for i, d := range segmentDurations {
		cumulative[i+1] = cumulative[i] + d
	}
	total := len(segmentDurations)

	var entries []Entry
	for i, marker := range markers {
		if marker.SegmentIndex > total || marker.SegmentIndex < 0 {
			continue
		}
		start := cumulative[marker.SegmentIndex]
		end := cumulative[total]
		if i+1 < len(markers) {
			next := markers[i+1].SegmentIndex
			if next > total {
				next = total
			}
			end = cumulative[next]
		}
		if end <= start {
			continue
		}
		entries = append(entries, Entry{Path: marker.Path, Start: start, End: end})
	}

	for i := 0; i+1 < len(entries); i++ {
		current, next := entries[i], entries[i+1]
		if current.Duration() <= 0 || next.Duration() <= 0 {
			continue
		}
		fade := min3(crossfade, current.Duration(), next.Duration())
		if fade > next.Start {
			fade = next.Start
		}
		if fade <= 0 {
			continue
		}
		current.FadeOut = fade
		newStart := next.Start - fade
		if newStart < 0 {
			newStart = 0
		}
		next.FadeIn = next.Start - newStart
		next.Start = newStart
		entries[i], entries[i+1] = current, next
	}

	return entries
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// PlanTrim computes target durations for the flat (marker-less) audio path
// when the raw tracks outrun the rendered video. Excess is absorbed from
// the last-but-one track backward, never trimming a track below minLen; the
// final track is only touched as a last resort. The returned slice always
// has the input length; untouched tracks keep their original duration.
func PlanTrim(durations []float64, videoDuration float64, minLen float64) []float64 {
	targets := make([]float64, len(durations))
	copy(targets, durations)

	if videoDuration <= 0 || len(durations) <= 1 {
		return targets
	}

	total := 0.0
	for _, d := range durations {
		total += d
	}
	excess := total - videoDuration
	if excess <= 0 {
		return targets
	}

	for i := len(targets) - 2; i >= 0 && excess > 0; i-- {
		if targets[i] <= minLen {
			continue
		}
		maxTrim := targets[i] - minLen
		trim := excess
		if trim > maxTrim {
			trim = maxTrim
		}
		targets[i] -= trim
		excess -= trim
	}

	if excess > 0 {
		last := len(targets) - 1
		if targets[last] > minLen {
			maxTrim := targets[last] - minLen
			trim := excess
			if trim > maxTrim {
				trim = maxTrim
			}
			targets[last] -= trim
		}
	}

	return targets
}
