/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package template resolves the paintable silhouette mask for a vehicle
// model. Masks are alpha bitmaps at the design surface resolution; sources at
// other sizes are rescaled on load.
package template

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"sync"

	xdraw "golang.org/x/image/draw"

	"wrapstudio/internal/log"
	"wrapstudio/internal/render"
)

// Resolver supplies the active mask per model identifier. The design core
// consumes masks; asset lookup and lifecycle live behind this interface.
type Resolver interface {
	Mask(model string) (*image.Alpha, error)
}

// DirResolver loads masks from <dir>/<model>.png and caches them decoded.
type DirResolver struct {
	dir string

	mu    sync.Mutex
	cache map[string]*image.Alpha
}

// NewDirResolver creates a resolver over a mask asset directory.
func NewDirResolver(dir string) *DirResolver {
	return &DirResolver{dir: dir, cache: make(map[string]*image.Alpha)}
}

// Mask returns the model's silhouette at the design surface size.
func (r *DirResolver) Mask(model string) (*image.Alpha, error) {
	r.mu.Lock()
	if m, ok := r.cache[model]; ok {
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	path := filepath.Join(r.dir, model+".png")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mask for model %q: %w", model, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode mask %s: %w", path, err)
	}
	m := AlphaFromImage(img, render.Size)
	log.WithComponent("template").Debug("mask loaded", "model", model, "path", path)

	r.mu.Lock()
	r.cache[model] = m
	r.mu.Unlock()
	return m, nil
}

// AlphaFromImage extracts the alpha channel of an image, rescaling to a
// size x size square when the source dimensions differ.
func AlphaFromImage(img image.Image, size int) *image.Alpha {
	b := img.Bounds()
	if b.Dx() != size || b.Dy() != size {
		scaled := image.NewNRGBA(image.Rect(0, 0, size, size))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, b, xdraw.Src, nil)
		img = scaled
		b = scaled.Bounds()
	}
	out := image.NewAlpha(image.Rect(0, 0, size, size))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			out.Pix[out.PixOffset(x-b.Min.X, y-b.Min.Y)] = uint8(a >> 8)
		}
	}
	return out
}

// Opaque returns a fully opaque mask, used when a model has no registered
// silhouette and for tests.
func Opaque(size int) *image.Alpha {
	m := image.NewAlpha(image.Rect(0, 0, size, size))
	for i := range m.Pix {
		m.Pix[i] = 0xFF
	}
	return m
}
