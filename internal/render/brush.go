/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"image"
	"math"

	"github.com/gogpu/gg"

	"wrapstudio/internal/domain"
)

// featherPasses is the number of widening glow passes used to approximate a
// soft brush edge. The approximation draws the stroke several times at
// increasing width and decreasing alpha, widest first; it is not a true
// Gaussian falloff but preserves the monotonic hardness-to-softness mapping.
const featherPasses = 4

// FeatherRadius converts a hardness value to the feather width in surface
// units for a stroke of the given size.
func FeatherRadius(hardness, size float64) float64 {
	if hardness >= 100 {
		return 0
	}
	return (100 - hardness) / 100 * size * 0.5
}

// renderBrushLayer rasterizes a brush layer's committed strokes, plus an
// optional pending stroke, into a fresh surface-sized accumulator. Eraser
// strokes cut paint out of the accumulator only; layers below are untouched
// because the accumulator is composited onto them as a whole afterwards.
func renderBrushLayer(size int, l domain.Layer, pending *domain.BrushStroke) (*image.RGBA, error) {
	acc := image.NewRGBA(image.Rect(0, 0, size, size))
	strokes := domain.DropShortStrokes(l.Strokes)
	if pending != nil && len(pending.Points) >= domain.MinStrokePoints {
		strokes = append(strokes, *pending)
	}
	for _, s := range strokes {
		img, err := rasterizeStroke(size, l, s)
		if err != nil {
			return nil, err
		}
		if s.IsErase() {
			eraseWith(acc, img)
		} else {
			composite(acc, img, s.Blend, s.Opacity)
		}
	}
	return acc, nil
}

// rasterizeStroke draws one stroke onto its own transparent surface under the
// owning layer's transform. Eraser strokes are drawn as opaque coverage; the
// caller turns that coverage into removal.
func rasterizeStroke(size int, l domain.Layer, s domain.BrushStroke) (*image.RGBA, error) {
	dc := gg.NewContext(size, size)
	applyLayerTransform(dc, l)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	var r, g, b, a float64
	if s.IsErase() {
		r, g, b, a = 1, 1, 1, 1
	} else {
		col, err := s.Color.NRGBA()
		if err != nil {
			return nil, err
		}
		r = float64(col.R) / 255
		g = float64(col.G) / 255
		b = float64(col.B) / 255
		a = float64(col.A) / 255
	}

	if feather := FeatherRadius(s.Hardness, s.Size); feather > 0 {
		// Widest, faintest ring first so the core overdraws the glow.
		for i := featherPasses; i >= 1; i-- {
			frac := float64(i) / featherPasses
			dc.SetRGBA(r, g, b, a*0.35*(1.05-frac))
			dc.SetLineWidth(s.Size + 2*feather*frac)
			tracePolyline(dc, s.Points)
			if err := dc.Stroke(); err != nil {
				return nil, err
			}
		}
	}
	dc.SetRGBA(r, g, b, a)
	dc.SetLineWidth(s.Size)
	tracePolyline(dc, s.Points)
	if err := dc.Stroke(); err != nil {
		return nil, err
	}
	return toRGBA(dc.Image()), nil
}

func tracePolyline(dc *gg.Context, pts []float64) {
	dc.ClearPath()
	dc.MoveTo(pts[0], pts[1])
	for i := 2; i+1 < len(pts); i += 2 {
		dc.LineTo(pts[i], pts[i+1])
	}
}

// hitMargin pads stroke bounds so the hit-test region is never smaller than
// the visible ink, feather included.
const hitMargin = 10

// BrushBounds returns the union of per-stroke bounding boxes, each expanded
// by half its stroke width, padded by the hit margin. A layer with no
// renderable strokes yields a degenerate 1x1 box at the origin as a stable
// selection anchor.
func BrushBounds(l domain.Layer) domain.Rect {
	have := false
	var acc domain.Rect
	for _, s := range l.Strokes {
		if len(s.Points) < domain.MinStrokePoints {
			continue
		}
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for i := 0; i+1 < len(s.Points); i += 2 {
			minX = min(minX, s.Points[i])
			maxX = max(maxX, s.Points[i])
			minY = min(minY, s.Points[i+1])
			maxY = max(maxY, s.Points[i+1])
		}
		r := domain.Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}.Pad(s.Size / 2)
		if !have {
			acc = r
			have = true
		} else {
			acc = acc.Union(r)
		}
	}
	if !have {
		return domain.Rect{X: 0, Y: 0, W: 1, H: 1}
	}
	return acc.Pad(hitMargin)
}

func applyLayerTransform(dc *gg.Context, l domain.Layer) {
	dc.Translate(l.X, l.Y)
	if l.Rotation != 0 {
		dc.Rotate(l.Rotation * math.Pi / 180)
	}
	sx, sy := l.ScaleX, l.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	if sx != 1 || sy != 1 {
		dc.Scale(sx, sy)
	}
}
