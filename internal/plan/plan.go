// Package plan converts asset groups into the ordered segment records that
// drive rendering, caching, and the audio timeline.
package plan

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/keagan/slidecast/internal/assets"
	"github.com/keagan/slidecast/internal/overlay"
)

// Kind selects a segment's render path.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindText  Kind = "text"
)

// Segment is one unit of final-video timeline content.
type Segment struct {
	Index  int
	Kind   Kind
	Prefix string

	// Primary is the dominant visual source; empty for text segments.
	Primary string
	// VisualSources holds every visual asset of the group. More than one
	// (image kind only) triggers collage composition.
	VisualSources  []string
	OverlaySources []string

	Layout      *overlay.Layout
	OverlayText string

	// Duration in seconds. Zero for video segments: their length is
	// intrinsic to the source and probed, never stored.
	Duration float64
}

// Dependencies returns every input file the segment's render depends on.
func (s Segment) Dependencies() []string {
	deps := make([]string, 0, len(s.VisualSources)+len(s.OverlaySources))
	deps = append(deps, s.VisualSources...)
	return append(deps, s.OverlaySources...)
}

// Durations holds the configured default durations per segment flavor.
type Durations struct {
	Image   float64
	Overlay float64
	Text    float64
}

// Build emits ordered segments from asset groups. Groups without visuals or
// overlays produce nothing; extra videos in a group are dropped with a
// warning rather than silently.
func Build(groups []assets.Group, d Durations, logger zerolog.Logger) ([]Segment, error) {
	var segments []Segment

	for _, group := range groups {
		var images, videos []string
		for _, visual := range group.Visuals {
			if assets.IsImage(visual) {
				images = append(images, visual)
			} else {
				videos = append(videos, visual)
			}
		}

		var layout *overlay.Layout
		overlayText := ""
		if len(group.Overlays) > 0 {
			combined, err := overlay.Combine(group.Overlays)
			if err != nil {
				return nil, err
			}
			if !combined.Empty() {
				layout = combined
				overlayText = combined.OverlayText()
			}
		}

		index := len(segments) + 1
		switch {
		case len(images) > 0:
			if len(videos) > 0 {
				logger.Warn().
					Str("prefix", group.Prefix).
					Int("ignored", len(videos)).
					Msg("group mixes images and videos; using images only")
			}
			duration := d.Image
			if overlayText != "" {
				duration = d.Overlay
			}
			if layout != nil {
				if override, ok := layout.DurationOverride(); ok {
					duration = override
				}
			}
			segments = append(segments, Segment{
				Index:          index,
				Kind:           KindImage,
				Prefix:         group.Prefix,
				Primary:        images[0],
				VisualSources:  images,
				OverlaySources: group.Overlays,
				Layout:         layout,
				OverlayText:    overlayText,
				Duration:       duration,
			})

		case len(videos) > 0:
			if len(videos) > 1 {
				logger.Warn().
					Str("prefix", group.Prefix).
					Str("used", filepath.Base(videos[0])).
					Int("ignored", len(videos)-1).
					Msg("multiple videos share a prefix; only the first is rendered")
			}
			segments = append(segments, Segment{
				Index:          index,
				Kind:           KindVideo,
				Prefix:         group.Prefix,
				Primary:        videos[0],
				VisualSources:  videos[:1],
				OverlaySources: group.Overlays,
				Layout:         layout,
				OverlayText:    overlayText,
			})

		case layout != nil:
			// A lone overlay file keeps its blank lines for slide spacing;
			// Combine drops them.
			if len(group.Overlays) == 1 {
				loaded, err := overlay.Load(group.Overlays[0])
				if err != nil {
					return nil, err
				}
				layout = loaded
			}
			duration := d.Text
			if override, ok := layout.DurationOverride(); ok {
				duration = override
			}
			segments = append(segments, Segment{
				Index:          index,
				Kind:           KindText,
				Prefix:         group.Prefix,
				OverlaySources: group.Overlays,
				Layout:         layout,
				Duration:       duration,
			})

		default:
			// Audio-only or empty group: no segment.
		}
	}

	return segments, nil
}
