/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain defines the core data model for a wrap design: the project,
// the polymorphic layer variants and the brush stroke record. Rendering and
// serialization dispatch on the layer kind tag; there is no type hierarchy.
package domain

import (
	"image"

	"github.com/google/uuid"
)

// LayerKind discriminates the layer variants.
type LayerKind string

const (
	KindTexture LayerKind = "texture"
	KindBrush   LayerKind = "brush"
	KindText    LayerKind = "text"
	KindRect    LayerKind = "rect"
	KindCircle  LayerKind = "circle"
	KindLine    LayerKind = "line"
	KindStar    LayerKind = "star"
	KindImage   LayerKind = "image"
)

// Kinds lists every valid layer kind.
var Kinds = []LayerKind{KindTexture, KindBrush, KindText, KindRect, KindCircle, KindLine, KindStar, KindImage}

// Valid reports whether k is a known layer kind.
func (k LayerKind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// BlendMode names the per-stroke compositing operation.
type BlendMode string

const (
	BlendNormal   BlendMode = "normal"
	BlendMultiply BlendMode = "multiply"
	BlendScreen   BlendMode = "screen"
	BlendOverlay  BlendMode = "overlay"
)

// Valid reports whether m is a supported blend mode. The empty string is
// treated as normal so older documents stay loadable.
func (m BlendMode) Valid() bool {
	switch m {
	case BlendNormal, BlendMultiply, BlendScreen, BlendOverlay, "":
		return true
	}
	return false
}

// BrushStroke is one committed freehand stroke. Strokes are immutable once
// appended to a brush layer; editing means appending or deleting the layer.
type BrushStroke struct {
	// Points is a flat x0,y0,x1,y1,... sequence in surface coordinates.
	Points []float64 `json:"points"`
	// Color is a CSS-style hex color. ColorErase marks an eraser stroke.
	Color Color `json:"color"`
	// Size is the stroke width in surface units.
	Size float64 `json:"size"`
	// Hardness in [0,100]; 100 is a hard edge, lower values feather.
	Hardness float64 `json:"hardness"`
	// Opacity in [0,1].
	Opacity float64 `json:"opacity"`
	// Blend selects the compositing operation within the owning layer.
	Blend BlendMode `json:"blend,omitempty"`
}

// IsErase reports whether the stroke removes paint instead of adding it.
func (s BrushStroke) IsErase() bool { return s.Color.IsErase() }

// TextPayload holds the text layer fields.
type TextPayload struct {
	Content string  `json:"content"`
	Family  string  `json:"family,omitempty"`
	Size    float64 `json:"size"`
	Fill    Color   `json:"fill"`
	Align   string  `json:"align,omitempty"` // left, center, right
	Bold    bool    `json:"bold,omitempty"`
	Italic  bool    `json:"italic,omitempty"`
}

// ShapePayload holds the geometric parameters shared by the rect, circle,
// line and star variants. Only the fields relevant to the kind are used.
type ShapePayload struct {
	Width       float64   `json:"width,omitempty"`       // rect
	Height      float64   `json:"height,omitempty"`      // rect
	Radius      float64   `json:"radius,omitempty"`      // circle
	Points      []float64 `json:"points,omitempty"`      // line, flat x,y pairs
	NumPoints   int       `json:"numPoints,omitempty"`   // star
	InnerRadius float64   `json:"innerRadius,omitempty"` // star
	OuterRadius float64   `json:"outerRadius,omitempty"` // star
	Fill        Color     `json:"fill,omitempty"`
	Stroke      Color     `json:"stroke,omitempty"`
	StrokeWidth float64   `json:"strokeWidth,omitempty"`
}

// BitmapSource is an owned raster source: the original encoded bytes plus the
// decoded bitmap. Sources are immutable after creation and may be shared
// between a layer and the image cache.
type BitmapSource struct {
	// Hash is the content hash of Data, used as the cache key.
	Hash string `json:"hash,omitempty"`
	// Data is the original encoded payload (PNG or JPEG bytes).
	Data []byte `json:"-"`
	// Bitmap is the decoded image; nil while an async decode is pending.
	Bitmap image.Image `json:"-"`
}

// Layer is the tagged union over the eight variants. Exactly one of the
// payload pointers matching Kind is set; the rest are nil.
type Layer struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Kind     LayerKind `json:"type"`
	Visible  bool      `json:"visible"`
	Locked   bool      `json:"locked,omitempty"`
	Opacity  float64   `json:"opacity"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Rotation float64   `json:"rotation,omitempty"` // degrees
	ScaleX   float64   `json:"scaleX"`
	ScaleY   float64   `json:"scaleY"`

	Strokes []BrushStroke `json:"strokes,omitempty"` // brush
	Text    *TextPayload  `json:"text,omitempty"`    // text
	Shape   *ShapePayload `json:"shape,omitempty"`   // rect, circle, line, star
	Source  *BitmapSource `json:"source,omitempty"`  // texture, image
}

// Project is a complete wrap design: the target vehicle model, the base fill
// and the ordered layer stack (index 0 is the bottom).
type Project struct {
	Model     string  `json:"model"`
	BaseColor Color   `json:"baseColor"`
	Layers    []Layer `json:"layers"`
}

// NewLayerID returns a fresh collision-free id for a layer of the given kind.
// The kind prefix keeps ids readable in documents and logs.
func NewLayerID(kind LayerKind) string {
	return string(kind) + "-" + uuid.NewString()
}

// Clone returns a deep copy of the layer. Bitmap sources are shared, not
// copied: they are immutable once created.
func (l Layer) Clone() Layer {
	c := l
	if l.Strokes != nil {
		c.Strokes = make([]BrushStroke, len(l.Strokes))
		for i, s := range l.Strokes {
			cs := s
			cs.Points = append([]float64(nil), s.Points...)
			c.Strokes[i] = cs
		}
	}
	if l.Text != nil {
		t := *l.Text
		c.Text = &t
	}
	if l.Shape != nil {
		sh := *l.Shape
		sh.Points = append([]float64(nil), l.Shape.Points...)
		c.Shape = &sh
	}
	return c
}

// CloneLayers deep-copies an ordered layer list.
func CloneLayers(layers []Layer) []Layer {
	if layers == nil {
		return nil
	}
	out := make([]Layer, len(layers))
	for i, l := range layers {
		out[i] = l.Clone()
	}
	return out
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	c := p
	c.Layers = CloneLayers(p.Layers)
	return c
}

// LayerIndex returns the z position of the layer with the given id, or -1.
func (p Project) LayerIndex(id string) int {
	for i := range p.Layers {
		if p.Layers[i].ID == id {
			return i
		}
	}
	return -1
}

// Rect is an axis-aligned box in surface coordinates.
type Rect struct {
	X, Y float64
	W, H float64
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Pad grows the rect by m on every side.
func (r Rect) Pad(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}
