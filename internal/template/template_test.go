/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package template

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"wrapstudio/internal/render"
)

func writeMaskPNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	// Left half opaque, right half transparent.
	for y := 0; y < size; y++ {
		for x := 0; x < size/2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestDirResolverLoadsAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeMaskPNG(t, filepath.Join(dir, "van.png"), render.Size)
	r := NewDirResolver(dir)

	m, err := r.Mask("van")
	if err != nil {
		t.Fatal(err)
	}
	if b := m.Bounds(); b.Dx() != render.Size || b.Dy() != render.Size {
		t.Fatalf("mask size %v", b)
	}
	if m.Pix[m.PixOffset(10, 10)] != 0xFF {
		t.Fatal("opaque half not opaque")
	}
	if m.Pix[m.PixOffset(render.Size-10, 10)] != 0 {
		t.Fatal("transparent half not transparent")
	}

	again, err := r.Mask("van")
	if err != nil {
		t.Fatal(err)
	}
	if again != m {
		t.Fatal("second lookup did not hit the cache")
	}
}

func TestDirResolverUnknownModel(t *testing.T) {
	r := NewDirResolver(t.TempDir())
	if _, err := r.Mask("no-such-model"); err == nil {
		t.Fatal("missing mask accepted")
	}
}

func TestAlphaFromImageRescales(t *testing.T) {
	small := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			small.SetNRGBA(x, y, color.NRGBA{A: 0xFF})
		}
	}
	m := AlphaFromImage(small, render.Size)
	if b := m.Bounds(); b.Dx() != render.Size {
		t.Fatalf("rescaled mask size %v", b)
	}
	if m.Pix[m.PixOffset(render.Size/2, render.Size/2)] != 0xFF {
		t.Fatal("rescaled mask lost opacity")
	}
}

func TestOpaque(t *testing.T) {
	m := Opaque(8)
	for _, p := range m.Pix {
		if p != 0xFF {
			t.Fatal("opaque mask has a hole")
		}
	}
}
