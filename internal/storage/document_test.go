/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"wrapstudio/internal/domain"
)

func smallPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	img.SetNRGBA(2, 2, color.NRGBA{R: 0xB7, G: 0x30, B: 0x38, A: 0xFF})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fullProject returns a project with one of each layer variant.
func fullProject(t *testing.T) domain.Project {
	t.Helper()
	payload := smallPNG(t)
	mk := func(kind domain.LayerKind) domain.Layer {
		return domain.Layer{
			ID: domain.NewLayerID(kind), Name: string(kind), Kind: kind,
			Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1,
		}
	}
	texture := mk(domain.KindTexture)
	texture.Source = &domain.BitmapSource{Data: payload}
	img := mk(domain.KindImage)
	img.Source = &domain.BitmapSource{Data: payload}
	img.Rotation = 45
	brush := mk(domain.KindBrush)
	brush.Strokes = []domain.BrushStroke{
		{Points: []float64{10, 10, 50, 10}, Color: "#112233", Size: 8, Hardness: 70, Opacity: 0.9, Blend: domain.BlendMultiply},
		{Points: []float64{5, 5, 6, 6, 7, 9}, Color: domain.ColorErase, Size: 4, Hardness: 100, Opacity: 1},
	}
	text := mk(domain.KindText)
	text.Text = &domain.TextPayload{Content: "SALE", Size: 48, Fill: "#FFFFFF", Align: "center", Bold: true}
	rect := mk(domain.KindRect)
	rect.Shape = &domain.ShapePayload{Width: 200, Height: 100, Fill: "#B73038"}
	circle := mk(domain.KindCircle)
	circle.Shape = &domain.ShapePayload{Radius: 40, Fill: "#00FF00", Stroke: "#000000", StrokeWidth: 2}
	line := mk(domain.KindLine)
	line.Shape = &domain.ShapePayload{Points: []float64{0, 0, 100, 50, 200, 0}, Stroke: "#0000FF", StrokeWidth: 3}
	star := mk(domain.KindStar)
	star.Shape = &domain.ShapePayload{NumPoints: 5, InnerRadius: 20, OuterRadius: 50, Fill: "#FFD700"}

	return domain.Project{
		Model:     "van",
		BaseColor: "#222222",
		Layers:    []domain.Layer{texture, brush, text, rect, circle, line, star, img},
	}
}

func TestRoundTripAllVariants(t *testing.T) {
	p := fullProject(t)
	data, res, err := Serialize(p, SerializeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.OverBudget) != 0 {
		t.Fatalf("unexpected over-budget layers: %v", res.OverBudget)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Model != p.Model || got.BaseColor != p.BaseColor {
		t.Fatalf("metadata changed: %q %q", got.Model, got.BaseColor)
	}
	if len(got.Layers) != len(p.Layers) {
		t.Fatalf("layer count %d, want %d", len(got.Layers), len(p.Layers))
	}
	for i, l := range got.Layers {
		want := p.Layers[i]
		if l.ID != want.ID || l.Kind != want.Kind || l.Name != want.Name {
			t.Errorf("layer %d identity drifted: %+v", i, l)
		}
		if l.Opacity != want.Opacity || l.X != want.X || l.Rotation != want.Rotation ||
			l.ScaleX != want.ScaleX || l.ScaleY != want.ScaleY {
			t.Errorf("layer %d transform drifted", i)
		}
	}
	// Stroke fields survive exactly.
	brush := got.Layers[1]
	if len(brush.Strokes) != 2 {
		t.Fatalf("stroke count %d", len(brush.Strokes))
	}
	if brush.Strokes[0].Blend != domain.BlendMultiply || brush.Strokes[0].Hardness != 70 {
		t.Fatalf("stroke fields drifted: %+v", brush.Strokes[0])
	}
	if !brush.Strokes[1].IsErase() {
		t.Fatal("erase sentinel lost")
	}
	// Bitmap sources come back with bytes and a matching hash.
	for _, i := range []int{0, 7} {
		src := got.Layers[i].Source
		if src == nil || len(src.Data) == 0 || src.Hash == "" {
			t.Fatalf("layer %d lost its bitmap payload", i)
		}
	}
}

func TestShortStrokesDroppedOnSerialize(t *testing.T) {
	p := domain.Project{Model: "van", Layers: []domain.Layer{{
		ID: "brush-1", Kind: domain.KindBrush, Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1,
		Strokes: []domain.BrushStroke{
			{Points: []float64{1, 1}, Color: "#000000", Size: 2, Hardness: 100, Opacity: 1},
			{Points: []float64{1, 1, 2, 2}, Color: "#000000", Size: 2, Hardness: 100, Opacity: 1},
		},
	}}}
	data, _, err := Serialize(p, SerializeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := Deserialize(data)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(got.Layers[0].Strokes); n != 1 {
		t.Fatalf("short stroke persisted, count=%d", n)
	}
}

func TestDeserializeRejectsFutureVersion(t *testing.T) {
	doc := `{"formatVersion": 99, "model": "van", "layers": []}`
	_, err := Deserialize([]byte(doc))
	var se *SerializationError
	if !errors.As(err, &se) {
		t.Fatalf("want SerializationError, got %v", err)
	}
	if !strings.Contains(se.Error(), "version") {
		t.Fatalf("error does not name the version: %v", se)
	}
}

func TestDeserializeRejectsMissingFields(t *testing.T) {
	cases := []string{
		`{"model": "van", "layers": []}`,
		`{"formatVersion": 1, "layers": []}`,
		`{"formatVersion": 1, "model": "van", "layers": [{"type": "rect"}]}`,
		`not json at all`,
	}
	for i, doc := range cases {
		_, err := Deserialize([]byte(doc))
		var se *SerializationError
		if !errors.As(err, &se) {
			t.Errorf("case %d: want SerializationError, got %v", i, err)
		}
	}
}

func TestDeserializeRejectsBadGeometry(t *testing.T) {
	doc := `{"formatVersion": 1, "model": "van", "layers": [
		{"id": "star-1", "type": "star", "visible": true, "opacity": 1, "scaleX": 1, "scaleY": 1,
		 "shape": {"numPoints": 5, "innerRadius": 50, "outerRadius": 20}}
	]}`
	if _, err := Deserialize([]byte(doc)); err == nil {
		t.Fatal("inverted star radii accepted")
	}
}
