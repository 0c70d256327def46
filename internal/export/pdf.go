/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"wrapstudio/internal/render"
	"wrapstudio/internal/version"
)

// PDFOptions controls the proof sheet layout.
type PDFOptions struct {
	// Title is printed above the composite; defaults to the model name.
	Title string
	// Margin around the composite in points.
	Margin float64
}

// ExportProofPDF renders the design and lays it out as a one-page print
// proof: the exported composite at full page width with a caption line. The
// raster embedded in the PDF is the same bytes a PNG export would produce.
func ExportProofPDF(c Composer, p render.Params, outPath string, opt PDFOptions) error {
	img, err := RenderPNG(c, p)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := WritePNG(&buf, img); err != nil {
		return err
	}

	margin := opt.Margin
	if margin <= 0 {
		margin = 36
	}
	title := opt.Title
	if title == "" {
		title = p.Project.Model
	}

	side := float64(render.Size) / 2 // 1024px at 2px/pt keeps the page letter-ish
	pageW := side + 2*margin
	pageH := side + 2*margin + 24

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: pageW, Ht: pageH},
		OrientationStr: "",
	})
	pdf.SetTitle(title, false)
	pdf.SetAuthor("wrapstudio "+version.String(), false)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(margin, margin-12, title)

	name := "composite"
	pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "PNG"}, &buf)
	pdf.ImageOptions(name, margin, margin, side, side, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write proof pdf: %w", err)
	}
	return nil
}
