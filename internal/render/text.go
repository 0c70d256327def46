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
	"strings"

	"github.com/gogpu/gg"

	"wrapstudio/internal/domain"
)

// renderTextLayer rasterizes a text layer. Multi-line content is split on
// newlines and laid out top-down from the layer origin; the alignment flag
// anchors each line horizontally relative to x=0 in layer space.
func renderTextLayer(size int, l domain.Layer, fonts *FontLibrary) (*image.RGBA, error) {
	dc := gg.NewContext(size, size)
	applyLayerTransform(dc, l)
	t := l.Text

	face := fonts.Face(t.Family, t.Size, t.Bold, t.Italic)
	if face == nil {
		// No usable font at all; render nothing rather than fail the frame.
		return toRGBA(dc.Image()), nil
	}
	dc.SetFont(face)
	if err := setColor(dc, t.Fill); err != nil {
		return nil, err
	}

	ax := 0.0
	switch strings.ToLower(t.Align) {
	case "center":
		ax = 0.5
	case "right":
		ax = 1
	}

	lineHeight := t.Size * 1.2
	for i, line := range strings.Split(t.Content, "\n") {
		if line == "" {
			continue
		}
		// Offset by the font size so the first line hangs below the
		// layer origin like a text box top edge.
		dc.DrawStringAnchored(line, 0, float64(i)*lineHeight+t.Size, ax, 0)
	}
	return toRGBA(dc.Image()), nil
}
