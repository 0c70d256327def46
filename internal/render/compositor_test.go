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
	"testing"

	"wrapstudio/internal/domain"
)

// halfMask is opaque for x < Size/2, transparent elsewhere.
func halfMask() *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, Size, Size))
	for y := 0; y < Size; y++ {
		for x := 0; x < Size/2; x++ {
			m.Pix[m.PixOffset(x, y)] = 0xFF
		}
	}
	return m
}

func fullMask() *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, Size, Size))
	for i := range m.Pix {
		m.Pix[i] = 0xFF
	}
	return m
}

func rectLayer(x, y, w, h float64, fill domain.Color) domain.Layer {
	return domain.Layer{
		ID: domain.NewLayerID(domain.KindRect), Kind: domain.KindRect,
		Visible: true, Opacity: 1, X: x, Y: y, ScaleX: 1, ScaleY: 1,
		Shape: &domain.ShapePayload{Width: w, Height: h, Fill: fill},
	}
}

func mustCompositor(t *testing.T) *Compositor {
	t.Helper()
	c, err := New()
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRectPixelInsideMask(t *testing.T) {
	c := mustCompositor(t)
	out, err := c.Compose(Params{
		Project: domain.Project{Layers: []domain.Layer{rectLayer(100, 100, 200, 100, "#B73038")}},
		Mask:    fullMask(),
	})
	if err != nil {
		t.Fatal(err)
	}
	r, g, b, a := out.RGBAAt(150, 150).R, out.RGBAAt(150, 150).G, out.RGBAAt(150, 150).B, out.RGBAAt(150, 150).A
	if a != 0xFF || r != 0xB7 || g != 0x30 || b != 0x38 {
		t.Fatalf("pixel at (150,150) = #%02X%02X%02X a=%02X, want #B73038 opaque", r, g, b, a)
	}
}

func TestMaskDiscardsOutsideSilhouette(t *testing.T) {
	c := mustCompositor(t)
	// A rect straddling the mask boundary plus an opaque base fill.
	out, err := c.Compose(Params{
		Project: domain.Project{
			BaseColor: "#FFFFFF",
			Layers:    []domain.Layer{rectLayer(0, 0, Size, Size, "#00FF00")},
		},
		Mask: halfMask(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(Size/2+10, 100).A; got != 0 {
		t.Fatalf("alpha outside mask = %d, want fully transparent", got)
	}
	if got := out.RGBAAt(10, 100); got.A != 0xFF || got.G != 0xFF {
		t.Fatalf("pixel inside mask = %+v, want opaque green", got)
	}
}

func TestInvisibleAndZeroOpacityLayersSkipped(t *testing.T) {
	c := mustCompositor(t)
	hidden := rectLayer(0, 0, Size, Size, "#FF0000")
	hidden.Visible = false
	ghost := rectLayer(0, 0, Size, Size, "#0000FF")
	ghost.Opacity = 0
	out, err := c.Compose(Params{
		Project: domain.Project{Layers: []domain.Layer{hidden, ghost}},
		Mask:    fullMask(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(500, 500).A; got != 0 {
		t.Fatalf("hidden layers contributed pixels, alpha=%d", got)
	}
}

func TestLayerOrderDeterminesPaintPriority(t *testing.T) {
	c := mustCompositor(t)
	out, err := c.Compose(Params{
		Project: domain.Project{Layers: []domain.Layer{
			rectLayer(0, 0, 400, 400, "#FF0000"),
			rectLayer(0, 0, 400, 400, "#0000FF"),
		}},
		Mask: fullMask(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(200, 200); got.B != 0xFF || got.R != 0 {
		t.Fatalf("top layer did not win: %+v", got)
	}
}

func TestEraseStrokeRemovesOwnLayerOnly(t *testing.T) {
	c := mustCompositor(t)
	brush := domain.Layer{
		ID: "brush-1", Kind: domain.KindBrush, Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1,
		Strokes: []domain.BrushStroke{
			{Points: []float64{0, 10, 100, 10}, Color: "#000000", Size: 20, Hardness: 100, Opacity: 1},
			{Points: []float64{10, 10, 50, 10}, Color: domain.ColorErase, Size: 20, Hardness: 100, Opacity: 1},
		},
	}
	out, err := c.Compose(Params{
		Project: domain.Project{Layers: []domain.Layer{
			rectLayer(0, 0, Size, Size, "#FFFF00"),
			brush,
		}},
		Mask: fullMask(),
	})
	if err != nil {
		t.Fatal(err)
	}
	// Along the erased segment the yellow background shows through.
	if got := out.RGBAAt(30, 10); got.R != 0xFF || got.G != 0xFF || got.A != 0xFF {
		t.Fatalf("erase punched through to lower layers: %+v", got)
	}
	// Outside the erased range the black ink remains.
	if got := out.RGBAAt(90, 10); got.R != 0 || got.A != 0xFF {
		t.Fatalf("ink outside erase segment lost: %+v", got)
	}
}

func TestPendingStrokeOnlyOnItsLayer(t *testing.T) {
	c := mustCompositor(t)
	brush := domain.Layer{ID: "brush-1", Kind: domain.KindBrush, Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1}
	pending := &domain.BrushStroke{Points: []float64{0, 50, 200, 50}, Color: "#FF00FF", Size: 10, Hardness: 100, Opacity: 1}

	withPreview, err := c.Compose(Params{
		Project:        domain.Project{Layers: []domain.Layer{brush}},
		Mask:           fullMask(),
		PendingStroke:  pending,
		PendingLayerID: "brush-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if withPreview.RGBAAt(100, 50).A == 0 {
		t.Fatal("pending stroke not previewed")
	}

	// Export-style render without the preview stays clean.
	clean, err := c.Compose(Params{
		Project: domain.Project{Layers: []domain.Layer{brush}},
		Mask:    fullMask(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if clean.RGBAAt(100, 50).A != 0 {
		t.Fatal("stroke leaked into a render without a pending stroke")
	}
}

func TestComposeSizeIsFixed(t *testing.T) {
	c := mustCompositor(t)
	out, err := c.Compose(Params{Project: domain.Project{}})
	if err != nil {
		t.Fatal(err)
	}
	if b := out.Bounds(); b.Dx() != Size || b.Dy() != Size {
		t.Fatalf("surface size %v, want %dx%d", b, Size, Size)
	}
}

func TestBlendMath(t *testing.T) {
	mk := func(r, g, b, a uint8) *image.RGBA {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Pix[0], img.Pix[1], img.Pix[2], img.Pix[3] = r, g, b, a
		return img
	}
	cases := []struct {
		name string
		mode domain.BlendMode
		dst  *image.RGBA
		src  *image.RGBA
		want [4]uint8
	}{
		{"normal replaces", domain.BlendNormal, mk(255, 0, 0, 255), mk(0, 0, 255, 255), [4]uint8{0, 0, 255, 255}},
		{"multiply darkens", domain.BlendMultiply, mk(128, 128, 128, 255), mk(128, 128, 128, 255), [4]uint8{64, 64, 64, 255}},
		{"screen lightens", domain.BlendScreen, mk(128, 128, 128, 255), mk(128, 128, 128, 255), [4]uint8{191, 191, 191, 255}},
		{"overlay on white stays white", domain.BlendOverlay, mk(255, 255, 255, 255), mk(128, 128, 128, 255), [4]uint8{255, 255, 255, 255}},
	}
	for _, c := range cases {
		composite(c.dst, c.src, c.mode, 1)
		for i, want := range c.want {
			got := c.dst.Pix[i]
			if diff := int(got) - int(want); diff < -1 || diff > 1 {
				t.Errorf("%s: channel %d = %d, want %d", c.name, i, got, want)
			}
		}
	}
}
