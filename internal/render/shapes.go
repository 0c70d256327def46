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

// renderShapeLayer rasterizes a rect, circle, line or star layer. The shape
// geometry is drawn in layer-local coordinates; position, rotation and scale
// come from the layer transform.
func renderShapeLayer(size int, l domain.Layer) (*image.RGBA, error) {
	dc := gg.NewContext(size, size)
	applyLayerTransform(dc, l)
	sh := l.Shape

	switch l.Kind {
	case domain.KindRect:
		dc.DrawRectangle(0, 0, sh.Width, sh.Height)
	case domain.KindCircle:
		dc.DrawCircle(0, 0, sh.Radius)
	case domain.KindLine:
		dc.SetLineCap(gg.LineCapRound)
		dc.SetLineJoin(gg.LineJoinRound)
		tracePolyline(dc, sh.Points)
	case domain.KindStar:
		traceStar(dc, sh.NumPoints, sh.InnerRadius, sh.OuterRadius)
	}

	if l.Kind == domain.KindLine {
		// Lines have no fill; the stroke color doubles as the main color.
		col := sh.Stroke
		if col.IsZero() {
			col = sh.Fill
		}
		if err := setColor(dc, col); err != nil {
			return nil, err
		}
		dc.SetLineWidth(sh.StrokeWidth)
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
		return toRGBA(dc.Image()), nil
	}

	if !sh.Fill.IsZero() && !sh.Fill.IsErase() {
		if err := setColor(dc, sh.Fill); err != nil {
			return nil, err
		}
		if err := dc.FillPreserve(); err != nil {
			return nil, err
		}
	}
	if !sh.Stroke.IsZero() && !sh.Stroke.IsErase() && sh.StrokeWidth > 0 {
		if err := setColor(dc, sh.Stroke); err != nil {
			return nil, err
		}
		dc.SetLineWidth(sh.StrokeWidth)
		if err := dc.Stroke(); err != nil {
			return nil, err
		}
	}
	return toRGBA(dc.Image()), nil
}

// traceStar builds a closed star path with alternating outer and inner
// vertices, first point straight up.
func traceStar(dc *gg.Context, points int, inner, outer float64) {
	dc.ClearPath()
	step := math.Pi / float64(points)
	for i := 0; i < 2*points; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		angle := -math.Pi/2 + float64(i)*step
		x := r * math.Cos(angle)
		y := r * math.Sin(angle)
		if i == 0 {
			dc.MoveTo(x, y)
		} else {
			dc.LineTo(x, y)
		}
	}
	dc.ClosePath()
}

func setColor(dc *gg.Context, c domain.Color) error {
	col, err := c.NRGBA()
	if err != nil {
		return err
	}
	dc.SetRGBA(float64(col.R)/255, float64(col.G)/255, float64(col.B)/255, float64(col.A)/255)
	return nil
}
