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
	"image/color"
	"strconv"
	"strings"
)

// Color is a CSS-style color string as stored in documents: "#RGB",
// "#RRGGBB", "#RRGGBBAA" or the sentinel "transparent". The string form
// round-trips through serialization without loss.
type Color string

// ColorErase is the sentinel marking eraser strokes.
const ColorErase Color = "transparent"

// IsErase reports whether the color is the eraser sentinel. An empty color on
// a stroke is treated the same way, matching how erased strokes were written
// by early documents.
func (c Color) IsErase() bool {
	s := strings.ToLower(strings.TrimSpace(string(c)))
	return s == string(ColorErase) || s == ""
}

// IsZero reports whether the color is unset.
func (c Color) IsZero() bool { return strings.TrimSpace(string(c)) == "" }

// NRGBA parses the color into straight-alpha RGBA. The eraser sentinel and
// the empty string parse to fully transparent black.
func (c Color) NRGBA() (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(string(c)))
	if s == "" || s == string(ColorErase) {
		return color.NRGBA{}, nil
	}
	s = strings.TrimPrefix(s, "#")
	var r, g, b, a uint64
	a = 0xff
	var err error
	switch len(s) {
	case 3:
		r, g, b, err = parseHexTriplet(s, 1)
		r, g, b = r*17, g*17, b*17
	case 6:
		r, g, b, err = parseHexTriplet(s, 2)
	case 8:
		r, g, b, err = parseHexTriplet(s[:6], 2)
		if err == nil {
			a, err = strconv.ParseUint(s[6:8], 16, 8)
		}
	default:
		err = fmt.Errorf("unsupported color literal %q", string(c))
	}
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color: %w", err)
	}
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: uint8(a)}, nil
}

// Validate reports an error for colors that neither parse nor erase.
func (c Color) Validate() error {
	_, err := c.NRGBA()
	return err
}

func parseHexTriplet(s string, width int) (r, g, b uint64, err error) {
	if r, err = strconv.ParseUint(s[0:width], 16, 8); err != nil {
		return
	}
	if g, err = strconv.ParseUint(s[width:2*width], 16, 8); err != nil {
		return
	}
	b, err = strconv.ParseUint(s[2*width:3*width], 16, 8)
	return
}
