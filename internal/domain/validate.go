/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"math"
)

// ValidationError rejects a malformed layer or stroke spec before any state
// is mutated. It names the offending field so callers can surface it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MinStrokePoints is the minimum flat coordinate count for a renderable
// stroke (two points).
const MinStrokePoints = 4

// Validate checks the stroke invariants: at least two points, an even flat
// coordinate list, finite geometry and in-range rendering parameters.
func (s BrushStroke) Validate() error {
	if len(s.Points) < MinStrokePoints {
		return invalid("stroke.points", "need at least %d coordinates, got %d", MinStrokePoints, len(s.Points))
	}
	if len(s.Points)%2 != 0 {
		return invalid("stroke.points", "odd coordinate count %d", len(s.Points))
	}
	for i, v := range s.Points {
		if !isFinite(v) {
			return invalid("stroke.points", "coordinate %d is not finite", i)
		}
	}
	if !isFinite(s.Size) || s.Size <= 0 {
		return invalid("stroke.size", "must be a positive finite number")
	}
	if !isFinite(s.Hardness) || s.Hardness < 0 || s.Hardness > 100 {
		return invalid("stroke.hardness", "must be within [0,100]")
	}
	if !isFinite(s.Opacity) || s.Opacity < 0 || s.Opacity > 1 {
		return invalid("stroke.opacity", "must be within [0,1]")
	}
	if !s.Blend.Valid() {
		return invalid("stroke.blend", "unknown blend mode %q", string(s.Blend))
	}
	if !s.IsErase() {
		if err := s.Color.Validate(); err != nil {
			return invalid("stroke.color", "%v", err)
		}
	}
	return nil
}

// Validate checks the common fields and the variant payload of a layer spec.
func (l Layer) Validate() error {
	if !l.Kind.Valid() {
		return invalid("layer.type", "unknown kind %q", string(l.Kind))
	}
	if !isFinite(l.Opacity) || l.Opacity < 0 || l.Opacity > 1 {
		return invalid("layer.opacity", "must be within [0,1]")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"layer.x", l.X}, {"layer.y", l.Y}, {"layer.rotation", l.Rotation},
		{"layer.scaleX", l.ScaleX}, {"layer.scaleY", l.ScaleY},
	} {
		if !isFinite(f.v) {
			return invalid(f.name, "must be finite")
		}
	}
	switch l.Kind {
	case KindBrush:
		for i, s := range l.Strokes {
			if err := s.Validate(); err != nil {
				return invalid(fmt.Sprintf("layer.strokes[%d]", i), "%v", err)
			}
		}
	case KindText:
		if l.Text == nil {
			return invalid("layer.text", "missing payload")
		}
		if l.Text.Content == "" {
			return invalid("layer.text.content", "must not be empty")
		}
		if !isFinite(l.Text.Size) || l.Text.Size <= 0 {
			return invalid("layer.text.size", "must be a positive finite number")
		}
		if err := l.Text.Fill.Validate(); err != nil {
			return invalid("layer.text.fill", "%v", err)
		}
	case KindRect:
		if l.Shape == nil {
			return invalid("layer.shape", "missing payload")
		}
		if !isFinite(l.Shape.Width) || l.Shape.Width <= 0 || !isFinite(l.Shape.Height) || l.Shape.Height <= 0 {
			return invalid("layer.shape", "rect needs positive width and height")
		}
	case KindCircle:
		if l.Shape == nil {
			return invalid("layer.shape", "missing payload")
		}
		if !isFinite(l.Shape.Radius) || l.Shape.Radius <= 0 {
			return invalid("layer.shape.radius", "must be a positive finite number")
		}
	case KindLine:
		if l.Shape == nil {
			return invalid("layer.shape", "missing payload")
		}
		if len(l.Shape.Points) < 4 || len(l.Shape.Points)%2 != 0 {
			return invalid("layer.shape.points", "need an even count of at least 4 coordinates")
		}
		if !isFinite(l.Shape.StrokeWidth) || l.Shape.StrokeWidth <= 0 {
			return invalid("layer.shape.strokeWidth", "must be a positive finite number")
		}
	case KindStar:
		if l.Shape == nil {
			return invalid("layer.shape", "missing payload")
		}
		if l.Shape.NumPoints < 3 {
			return invalid("layer.shape.numPoints", "star needs at least 3 points")
		}
		if !isFinite(l.Shape.InnerRadius) || l.Shape.InnerRadius <= 0 ||
			!isFinite(l.Shape.OuterRadius) || l.Shape.OuterRadius <= l.Shape.InnerRadius {
			return invalid("layer.shape", "star needs 0 < innerRadius < outerRadius")
		}
	case KindTexture, KindImage:
		if l.Source == nil || (len(l.Source.Data) == 0 && l.Source.Bitmap == nil) {
			return invalid("layer.source", "missing bitmap source")
		}
	}
	if l.Shape != nil {
		for _, c := range []struct {
			name string
			col  Color
		}{{"layer.shape.fill", l.Shape.Fill}, {"layer.shape.stroke", l.Shape.Stroke}} {
			if !c.col.IsZero() {
				if err := c.col.Validate(); err != nil {
					return invalid(c.name, "%v", err)
				}
			}
		}
	}
	return nil
}

// DropShortStrokes returns the strokes with every non-renderable entry
// (fewer than two points) removed. Serialization and rendering both pass
// stroke lists through this filter so short strokes never persist.
func DropShortStrokes(strokes []BrushStroke) []BrushStroke {
	out := strokes[:0:0]
	for _, s := range strokes {
		if len(s.Points) >= MinStrokePoints {
			out = append(out, s)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
