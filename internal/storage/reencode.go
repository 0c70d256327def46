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
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// SizeCeiling is the default per-payload embedding budget, about 0.95 MB.
const SizeCeiling = 972800

// Lossy quality search range, as image/jpeg percentages. These correspond to
// the admissible quality window [0.1, 0.95].
const (
	minJPEGQuality = 10
	maxJPEGQuality = 95
)

// ReencodeResult is the outcome of a bounded re-encode.
type ReencodeResult struct {
	Data []byte
	Mime string
	// Quality is the chosen JPEG quality percentage, 0 for lossless output.
	Quality int
	// OverBudget signals that even minimum quality exceeds the ceiling.
	// The data is still usable; callers surface a soft warning.
	OverBudget bool
}

// BoundReencode fits an encoded bitmap under the ceiling. Input already under
// the ceiling passes through untouched. Otherwise a lossless PNG re-encode is
// tried first; if that is still too large, the highest JPEG quality whose
// output fits is found by binary search. When even minimum quality does not
// fit, the minimum-quality result is returned with OverBudget set.
func BoundReencode(data []byte, ceiling int) (ReencodeResult, error) {
	if len(data) <= ceiling {
		return ReencodeResult{Data: data, Mime: sniffMime(data)}, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return ReencodeResult{}, fmt.Errorf("decode oversized payload: %w", err)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return ReencodeResult{}, fmt.Errorf("lossless re-encode: %w", err)
	}
	if buf.Len() <= ceiling {
		return ReencodeResult{Data: buf.Bytes(), Mime: "image/png"}, nil
	}

	encodeJPEG := func(quality int) ([]byte, error) {
		var b bytes.Buffer
		if err := jpeg.Encode(&b, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("lossy re-encode at q%d: %w", quality, err)
		}
		return b.Bytes(), nil
	}

	// Binary search for the highest quality that still fits.
	lo, hi := minJPEGQuality, maxJPEGQuality
	var best []byte
	bestQ := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		out, err := encodeJPEG(mid)
		if err != nil {
			return ReencodeResult{}, err
		}
		if len(out) <= ceiling {
			best, bestQ = out, mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if best != nil {
		return ReencodeResult{Data: best, Mime: "image/jpeg", Quality: bestQ}, nil
	}

	// Even the floor does not fit; emit it anyway with a soft warning.
	out, err := encodeJPEG(minJPEGQuality)
	if err != nil {
		return ReencodeResult{}, err
	}
	return ReencodeResult{Data: out, Mime: "image/jpeg", Quality: minJPEGQuality, OverBudget: true}, nil
}
