// Package motion assigns deterministic gentle pan/zoom effects to still
// segments. Selection is a pure function of the segment index and the
// configured palette, so repeated builds produce identical motion.
package motion

import (
	"fmt"
	"math"
)

// Effects in palette order.
const (
	ZoomIn          = "zoom_in"
	ZoomOut         = "zoom_out"
	PanRight        = "pan_right"
	PanLeft         = "pan_left"
	PanUp           = "pan_up"
	PanDown         = "pan_down"
	PanDiagUpRight  = "pan_diag_up_right"
	PanDiagDownLeft = "pan_diag_down_left"
	PanDiagUpLeft   = "pan_diag_up_left"
	PanDiagDownRght = "pan_diag_down_right"
)

// EffectSequence is the full palette in its default rotation order.
var EffectSequence = []string{
	ZoomIn,
	ZoomOut,
	PanRight,
	PanLeft,
	PanUp,
	PanDown,
	PanDiagUpRight,
	PanDiagDownLeft,
	PanDiagUpLeft,
	PanDiagDownRght,
}

var knownEffects = func() map[string]bool {
	m := make(map[string]bool, len(EffectSequence))
	for _, e := range EffectSequence {
		m[e] = true
	}
	return m
}()

// Plan is the derived motion for one segment. Offsets are fractions of the
// available crop margin in the range [-1, 1].
type Plan struct {
	Effect       string
	ZoomStart    float64
	ZoomEnd      float64
	OffsetXStart float64
	OffsetXEnd   float64
	OffsetYStart float64
	OffsetYEnd   float64
	Duration     float64
	FPS          int
}

// Magnitudes are small constants chosen to stay subtle.
const (
	baseZoom      = 1.045
	panZoom       = 1.055
	gentleShift   = 0.35
	diagonalShift = 0.25
)

// Select picks the effect for a 1-based segment index from the palette,
// round-robin. Degenerate inputs or an empty effective palette yield nil
// (static image).
func Select(index int, duration float64, fps int, palette []string) *Plan {
	if duration <= 0 || fps <= 0 {
		return nil
	}
	effects := palette
	if len(effects) == 0 {
		effects = EffectSequence
	}
	var sanitized []string
	for _, effect := range effects {
		if knownEffects[effect] {
			sanitized = append(sanitized, effect)
		}
	}
	if len(sanitized) == 0 {
		return nil
	}
	effect := sanitized[((index-1)%len(sanitized)+len(sanitized))%len(sanitized)]
	return planFor(effect, duration, fps)
}

func planFor(effect string, duration float64, fps int) *Plan {
	plan := &Plan{Effect: effect, Duration: duration, FPS: fps}
	switch effect {
	case ZoomIn:
		plan.ZoomStart, plan.ZoomEnd = 1.0, baseZoom
	case ZoomOut:
		plan.ZoomStart, plan.ZoomEnd = baseZoom, 1.0
	case PanRight:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetXStart, plan.OffsetXEnd = -gentleShift, gentleShift
	case PanLeft:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetXStart, plan.OffsetXEnd = gentleShift, -gentleShift
	case PanUp:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetYStart, plan.OffsetYEnd = gentleShift, -gentleShift
	case PanDown:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetYStart, plan.OffsetYEnd = -gentleShift, gentleShift
	case PanDiagUpRight:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetXStart, plan.OffsetXEnd = -diagonalShift, diagonalShift
		plan.OffsetYStart, plan.OffsetYEnd = diagonalShift, -diagonalShift
	case PanDiagDownLeft:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetXStart, plan.OffsetXEnd = diagonalShift, -diagonalShift
		plan.OffsetYStart, plan.OffsetYEnd = -diagonalShift, diagonalShift
	case PanDiagUpLeft:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetXStart, plan.OffsetXEnd = diagonalShift, -diagonalShift
		plan.OffsetYStart, plan.OffsetYEnd = diagonalShift, -diagonalShift
	case PanDiagDownRght:
		plan.ZoomStart, plan.ZoomEnd = panZoom, panZoom
		plan.OffsetXStart, plan.OffsetXEnd = -diagonalShift, diagonalShift
		plan.OffsetYStart, plan.OffsetYEnd = -diagonalShift, diagonalShift
	default:
		plan.ZoomStart, plan.ZoomEnd = 1.0, baseZoom
	}
	return plan
}

// Filter compiles a plan into a zoompan filter expression. The progress
// curve is a raised-cosine ease over the segment's frame count, which keeps
// velocity continuous at segment boundaries.
func Filter(plan *Plan, width, height int) string {
	if plan == nil {
		return ""
	}
	totalFrames := int(math.Round(plan.Duration * float64(plan.FPS)))
	if totalFrames < 1 {
		totalFrames = 1
	}
	progressFrames := totalFrames - 1
	if progressFrames < 1 {
		progressFrames = 1
	}
	progress := fmt.Sprintf("if(gte(on,%d),1,(1-cos(PI*on/%d))/(2))", progressFrames, progressFrames)

	zoomDelta := plan.ZoomEnd - plan.ZoomStart
	zoomExpr := fmt.Sprintf("%.6f", plan.ZoomStart)
	if math.Abs(zoomDelta) >= 1e-4 {
		zoomExpr = fmt.Sprintf("%.6f + (%.6f)*%s", plan.ZoomStart, zoomDelta, progress)
	}

	offset := func(start, end float64) string {
		delta := end - start
		if math.Abs(delta) < 1e-4 {
			if math.Abs(start) < 1e-4 {
				return "0"
			}
			return fmt.Sprintf("%.6f", start)
		}
		return fmt.Sprintf("%.6f + (%.6f)*%s", start, delta, progress)
	}

	xExpr := fmt.Sprintf("(iw*zoom-%d)/2 + (%s)*(iw*zoom-%d)", width, offset(plan.OffsetXStart, plan.OffsetXEnd), width)
	yExpr := fmt.Sprintf("(ih*zoom-%d)/2 + (%s)*(ih*zoom-%d)", height, offset(plan.OffsetYStart, plan.OffsetYEnd), height)

	return fmt.Sprintf("zoompan=z='%s':x='%s':y='%s':d=1:s=%dx%d:fps=%d",
		zoomExpr, xExpr, yExpr, width, height, plan.FPS)
}
