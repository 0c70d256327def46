/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render turns a layer stack into pixels. The compositor walks the
// stack bottom to top onto a fixed-size surface and constrains the base fill
// and the design content to the template mask silhouette; strokes, shapes,
// text and bitmaps are rasterized per layer and blended in software so the
// same inputs always produce the same exported bytes.
package render

import (
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/gogpu/gg"

	"wrapstudio/internal/domain"
	"wrapstudio/internal/log"
)

// Size is the edge length of the logical design surface in pixels. All
// compositing and export happens at this resolution regardless of zoom.
const Size = 1024

// BitmapResolver returns the decoded bitmap for a source hash, or nil while
// the decode is still pending. Pending sources render as nothing.
type BitmapResolver func(hash string) image.Image

// Params describes one compositing request.
type Params struct {
	// Project is the design to render. Layers are taken in array order.
	Project domain.Project
	// Mask is the template silhouette; nil renders unmasked (previews of
	// models without a registered mask).
	Mask *image.Alpha
	// Bitmaps resolves texture/image layer sources. nil treats every
	// source as still decoding.
	Bitmaps BitmapResolver
	// Fonts supplies text faces. Required when the stack has text layers.
	Fonts *FontLibrary
	// PendingStroke is an uncommitted stroke previewed on top of the layer
	// it belongs to. Export passes nil.
	PendingStroke *domain.BrushStroke
	// PendingLayerID names the brush layer the pending stroke rides on.
	PendingLayerID string
}

// Compositor renders layer stacks. It is stateless apart from its logger and
// font library and may be shared across sessions.
type Compositor struct {
	fonts  *FontLibrary
	logger *slog.Logger
}

// New creates a compositor with its own font library.
func New() (*Compositor, error) {
	fonts, err := NewFontLibrary()
	if err != nil {
		return nil, fmt.Errorf("compositor fonts: %w", err)
	}
	return &Compositor{fonts: fonts, logger: log.WithComponent("render")}, nil
}

// Fonts exposes the compositor's font library for registration of document
// fonts.
func (c *Compositor) Fonts() *FontLibrary { return c.fonts }

// Compose renders the project to a Size x Size surface. The base color fill
// and the accumulated design content are masked independently with a
// destination-in rule, so nothing ever bleeds outside the silhouette.
func (c *Compositor) Compose(p Params) (*image.RGBA, error) {
	if p.Fonts == nil {
		p.Fonts = c.fonts
	}
	surface := image.NewRGBA(image.Rect(0, 0, Size, Size))

	if !p.Project.BaseColor.IsZero() && !p.Project.BaseColor.IsErase() {
		base, err := fillSurface(p.Project.BaseColor)
		if err != nil {
			return nil, fmt.Errorf("base fill: %w", err)
		}
		if p.Mask != nil {
			applyMask(base, p.Mask)
		}
		draw.Draw(surface, surface.Bounds(), base, image.Point{}, draw.Over)
	}

	design := image.NewRGBA(image.Rect(0, 0, Size, Size))
	for i, l := range p.Project.Layers {
		if !l.Visible || l.Opacity <= 0 {
			continue
		}
		var pending *domain.BrushStroke
		if p.PendingStroke != nil && l.ID == p.PendingLayerID {
			pending = p.PendingStroke
		}
		img, err := c.renderLayer(l, p, pending)
		if err != nil {
			return nil, fmt.Errorf("layer %d (%s): %w", i, l.Kind, err)
		}
		if img == nil {
			continue
		}
		composite(design, img, domain.BlendNormal, l.Opacity)
	}
	if p.Mask != nil {
		applyMask(design, p.Mask)
	}
	draw.Draw(surface, surface.Bounds(), design, image.Point{}, draw.Over)
	return surface, nil
}

func (c *Compositor) renderLayer(l domain.Layer, p Params, pending *domain.BrushStroke) (*image.RGBA, error) {
	switch l.Kind {
	case domain.KindBrush:
		return renderBrushLayer(Size, l, pending)
	case domain.KindRect, domain.KindCircle, domain.KindLine, domain.KindStar:
		if l.Shape == nil {
			return nil, nil
		}
		return renderShapeLayer(Size, l)
	case domain.KindText:
		if l.Text == nil || l.Text.Content == "" {
			return nil, nil
		}
		return renderTextLayer(Size, l, p.Fonts)
	case domain.KindTexture, domain.KindImage:
		return c.renderBitmapLayer(l, p)
	}
	return nil, nil
}

func (c *Compositor) renderBitmapLayer(l domain.Layer, p Params) (*image.RGBA, error) {
	if l.Source == nil {
		return nil, nil
	}
	bitmap := l.Source.Bitmap
	if bitmap == nil && p.Bitmaps != nil {
		bitmap = p.Bitmaps(l.Source.Hash)
	}
	if bitmap == nil {
		// Decode still in flight; the layer appears once it lands.
		c.logger.Debug("bitmap not ready, skipping layer", "layer", l.ID)
		return nil, nil
	}
	dc := gg.NewContext(Size, Size)
	applyLayerTransform(dc, l)
	dc.DrawImageEx(gg.ImageBufFromImage(bitmap), gg.DrawImageOptions{
		Interpolation: gg.InterpBilinear,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})
	return toRGBA(dc.Image()), nil
}

func fillSurface(col domain.Color) (*image.RGBA, error) {
	nc, err := col.NRGBA()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(nc), image.Point{}, draw.Src)
	return img, nil
}
