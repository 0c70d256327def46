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
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"testing"
)

// noisePNG produces an incompressible payload of a few tens of kilobytes.
func noisePNG(t *testing.T, side int) []byte {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)), G: uint8(rng.Intn(256)), B: uint8(rng.Intn(256)), A: 0xFF,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReencodeNoopUnderCeiling(t *testing.T) {
	in := smallPNG(t)
	res, err := BoundReencode(in, SizeCeiling)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(res.Data, in) {
		t.Fatal("payload under the ceiling was rewritten")
	}
	if res.OverBudget || res.Quality != 0 {
		t.Fatalf("unexpected flags: %+v", res)
	}
	if res.Mime != "image/png" {
		t.Fatalf("mime = %s", res.Mime)
	}
}

func TestReencodeLossyFitsCeiling(t *testing.T) {
	in := noisePNG(t, 128)
	ceiling := len(in) / 4
	res, err := BoundReencode(in, ceiling)
	if err != nil {
		t.Fatal(err)
	}
	if res.OverBudget {
		if len(res.Data) == 0 {
			t.Fatal("over-budget result has no data")
		}
		if res.Quality != minJPEGQuality {
			t.Fatalf("over-budget quality %d, want floor", res.Quality)
		}
		return
	}
	if len(res.Data) > ceiling {
		t.Fatalf("result %d bytes exceeds ceiling %d", len(res.Data), ceiling)
	}
	if res.Mime != "image/jpeg" {
		t.Fatalf("mime = %s, want lossy codec", res.Mime)
	}
	if res.Quality < minJPEGQuality || res.Quality > maxJPEGQuality {
		t.Fatalf("quality %d outside admissible range", res.Quality)
	}
	// The result must still decode.
	if _, _, err := image.Decode(bytes.NewReader(res.Data)); err != nil {
		t.Fatalf("lossy result does not decode: %v", err)
	}
}

func TestReencodeSignalsOverBudget(t *testing.T) {
	in := noisePNG(t, 128)
	res, err := BoundReencode(in, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !res.OverBudget {
		t.Fatal("impossible ceiling not flagged")
	}
	if res.Quality != minJPEGQuality {
		t.Fatalf("over-budget output quality %d, want minimum", res.Quality)
	}
	if len(res.Data) == 0 {
		t.Fatal("over-budget result discarded; the document must still be savable")
	}
}

func TestReencodeRejectsCorruptPayload(t *testing.T) {
	junk := bytes.Repeat([]byte{0xAB}, SizeCeiling+1)
	if _, err := BoundReencode(junk, SizeCeiling); err == nil {
		t.Fatal("undecodable oversized payload accepted")
	}
}
