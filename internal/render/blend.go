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

	"wrapstudio/internal/domain"
)

// Compositing primitives over premultiplied RGBA surfaces. The separable
// blend modes follow the W3C compositing formulas: the blend function B is
// computed on straight colors, then the result is alpha-composited
// source-over the destination.

// composite draws src over dst applying the blend mode and an extra opacity
// factor. Both images must share bounds.
func composite(dst, src *image.RGBA, mode domain.BlendMode, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		si := src.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, di, si = x+1, di+4, si+4 {
			sa := float64(src.Pix[si+3]) / 255 * opacity
			if sa == 0 {
				continue
			}
			da := float64(dst.Pix[di+3]) / 255
			// Premultiplied channel values scaled to [0,1].
			spr := float64(src.Pix[si]) / 255 * opacity
			spg := float64(src.Pix[si+1]) / 255 * opacity
			spb := float64(src.Pix[si+2]) / 255 * opacity
			dpr := float64(dst.Pix[di]) / 255
			dpg := float64(dst.Pix[di+1]) / 255
			dpb := float64(dst.Pix[di+2]) / 255

			var or, og, ob float64
			if mode == domain.BlendNormal || mode == "" || da == 0 {
				or = spr + (1-sa)*dpr
				og = spg + (1-sa)*dpg
				ob = spb + (1-sa)*dpb
			} else {
				// Straight colors for the blend function.
				scr, scg, scb := spr/sa, spg/sa, spb/sa
				dcr, dcg, dcb := dpr/da, dpg/da, dpb/da
				br := blendChannel(mode, dcr, scr)
				bg := blendChannel(mode, dcg, scg)
				bb := blendChannel(mode, dcb, scb)
				or = sa*(1-da)*scr + sa*da*br + (1-sa)*dpr
				og = sa*(1-da)*scg + sa*da*bg + (1-sa)*dpg
				ob = sa*(1-da)*scb + sa*da*bb + (1-sa)*dpb
			}
			oa := sa + da*(1-sa)

			dst.Pix[di] = clamp255(or * 255)
			dst.Pix[di+1] = clamp255(og * 255)
			dst.Pix[di+2] = clamp255(ob * 255)
			dst.Pix[di+3] = clamp255(oa * 255)
		}
	}
}

func blendChannel(mode domain.BlendMode, d, s float64) float64 {
	switch mode {
	case domain.BlendMultiply:
		return d * s
	case domain.BlendScreen:
		return 1 - (1-d)*(1-s)
	case domain.BlendOverlay:
		if d <= 0.5 {
			return 2 * d * s
		}
		return 1 - 2*(1-d)*(1-s)
	}
	return s
}

// eraseWith removes paint from dst where src has coverage (destination-out by
// the source alpha). Used for eraser strokes within a brush layer.
func eraseWith(dst, src *image.RGBA) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		si := src.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, di, si = x+1, di+4, si+4 {
			sa := src.Pix[si+3]
			if sa == 0 {
				continue
			}
			keep := uint32(255 - sa)
			dst.Pix[di] = uint8(uint32(dst.Pix[di]) * keep / 255)
			dst.Pix[di+1] = uint8(uint32(dst.Pix[di+1]) * keep / 255)
			dst.Pix[di+2] = uint8(uint32(dst.Pix[di+2]) * keep / 255)
			dst.Pix[di+3] = uint8(uint32(dst.Pix[di+3]) * keep / 255)
		}
	}
}

// applyMask intersects dst with the mask alpha (destination-in). Pixels where
// the mask is transparent are discarded entirely, not dimmed.
func applyMask(dst *image.RGBA, mask *image.Alpha) {
	b := dst.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		di := dst.PixOffset(b.Min.X, y)
		mi := mask.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, di, mi = x+1, di+4, mi+1 {
			ma := uint32(mask.Pix[mi])
			if ma == 255 {
				continue
			}
			dst.Pix[di] = uint8(uint32(dst.Pix[di]) * ma / 255)
			dst.Pix[di+1] = uint8(uint32(dst.Pix[di+1]) * ma / 255)
			dst.Pix[di+2] = uint8(uint32(dst.Pix[di+2]) * ma / 255)
			dst.Pix[di+3] = uint8(uint32(dst.Pix[di+3]) * ma / 255)
		}
	}
}

func clamp255(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// toRGBA returns img as *image.RGBA, copying only when the representation
// differs.
func toRGBA(img image.Image) *image.RGBA {
	if r, ok := img.(*image.RGBA); ok {
		return r
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}
