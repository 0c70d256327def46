/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imagecache

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xB7, G: 0x30, B: 0x38, A: 0xFF})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestAcquireDecodeAndWait(t *testing.T) {
	c := New()
	data := pngBytes(t, 4, 3)
	hash := c.Acquire(data)
	if hash != HashBytes(data) {
		t.Fatalf("hash mismatch: %s", hash)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	img, err := c.Wait(ctx, hash)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("decoded size %v", b)
	}
	got, ready, err := c.Bitmap(hash)
	if !ready || err != nil || got == nil {
		t.Fatalf("bitmap not ready after wait: ready=%v err=%v", ready, err)
	}
}

func TestRefcountEviction(t *testing.T) {
	c := New()
	data := pngBytes(t, 2, 2)
	hash := c.Acquire(data)
	if !c.Retain(hash) {
		t.Fatal("retain on live entry failed")
	}
	c.Release(hash)
	if c.Len() != 1 {
		t.Fatal("entry evicted while references remain")
	}
	c.Release(hash)
	if c.Len() != 0 {
		t.Fatal("entry survived its last release")
	}
	if c.Retain(hash) {
		t.Fatal("retain on evicted entry succeeded")
	}
}

func TestDecodeFailureSurfacesError(t *testing.T) {
	c := New()
	hash := c.Acquire([]byte("not an image"))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := c.Wait(ctx, hash)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("want DecodeError, got %v", err)
	}
	if de.Hash != hash {
		t.Fatalf("error names hash %s, want %s", de.Hash, hash)
	}
}

func TestStaleDecodeDiscarded(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})
	c.decode = func(data []byte) (image.Image, error) {
		close(started)
		<-release
		return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
	}
	hash := c.Acquire([]byte("payload"))
	<-started
	// Drop the only reference while the decode is still blocked.
	c.Release(hash)
	close(release)

	// The late result must not reappear in the cache.
	deadline := time.After(2 * time.Second)
	for {
		if c.Len() == 0 {
			if _, ready, _ := c.Bitmap(hash); !ready {
				break
			}
		}
		select {
		case <-deadline:
			t.Fatal("stale decode result was retained")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSameBytesShareEntry(t *testing.T) {
	c := New()
	data := pngBytes(t, 2, 2)
	h1 := c.Acquire(data)
	h2 := c.Acquire(append([]byte(nil), data...))
	if h1 != h2 {
		t.Fatalf("identical payloads got distinct hashes %s vs %s", h1, h2)
	}
	if c.Len() != 1 {
		t.Fatalf("expected one shared entry, got %d", c.Len())
	}
	got, ok := c.Data(h1)
	if !ok || !bytes.Equal(got, data) {
		t.Fatal("original payload not retained")
	}
}
