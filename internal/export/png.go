/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export emits final rasters from a composed design. Exports render
// at the fixed surface resolution with every transient artifact suppressed,
// so the output dimensions are bit-exact regardless of viewport or zoom.
package export

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"wrapstudio/internal/render"
)

// Composer is the compositing entry point the export pipeline drives. The
// pending-stroke fields of Params are left empty here by construction.
type Composer interface {
	Compose(render.Params) (*image.RGBA, error)
}

// RenderPNG composes the design for export and returns the raster. The
// returned image is always render.Size x render.Size; a mismatch is a bug in
// the compositor and is reported rather than resized away.
func RenderPNG(c Composer, p render.Params) (*image.RGBA, error) {
	p.PendingStroke = nil
	p.PendingLayerID = ""
	img, err := c.Compose(p)
	if err != nil {
		return nil, fmt.Errorf("compose for export: %w", err)
	}
	if b := img.Bounds(); b.Dx() != render.Size || b.Dy() != render.Size {
		return nil, fmt.Errorf("compositor produced %dx%d, want %dx%d", b.Dx(), b.Dy(), render.Size, render.Size)
	}
	return img, nil
}

// WritePNG encodes the export raster losslessly to w.
func WritePNG(w io.Writer, img *image.RGBA) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode export png: %w", err)
	}
	return nil
}

// ExportPNGFile renders the design and writes it as a PNG file, creating
// parent directories as needed.
func ExportPNGFile(c Composer, p render.Params, outPath string) error {
	img, err := RenderPNG(c, p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()
	if err := WritePNG(f, img); err != nil {
		return err
	}
	return f.Sync()
}
