/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imagecache holds decoded bitmaps keyed by content hash. Entries are
// reference counted: texture and image layers acquire on creation and release
// on removal, and a bitmap is evicted when the last holder lets go. Decoding
// runs off the caller's goroutine; results that arrive after their entry was
// evicted are discarded rather than resurrected.
package imagecache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"sync"

	"wrapstudio/internal/log"
)

// DecodeError reports a payload that could not be decoded. The owning layer
// stays in the project; it just renders as nothing until replaced.
type DecodeError struct {
	Hash string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode bitmap %s: %v", e.Hash, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

type entry struct {
	hash   string
	data   []byte
	refs   int
	gen    uint64
	bitmap image.Image
	err    error
	done   chan struct{}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	gen     uint64
	decode  func([]byte) (image.Image, error)
	logger  *slog.Logger
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		decode:  decodeImage,
		logger:  log.WithComponent("imagecache"),
	}
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// HashBytes computes the content hash used as the cache key.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Acquire registers interest in the payload and returns its hash. The first
// acquisition starts an asynchronous decode; subsequent ones for the same
// bytes only bump the reference count.
func (c *Cache) Acquire(data []byte) string {
	hash := HashBytes(data)
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[hash]; ok {
		e.refs++
		return hash
	}
	c.gen++
	e := &entry{hash: hash, data: data, refs: 1, gen: c.gen, done: make(chan struct{})}
	c.entries[hash] = e
	go c.decodeEntry(e)
	return hash
}

// Retain bumps the reference count of an existing entry. It reports false if
// the hash is unknown, which means the caller raced an eviction and must
// re-acquire with the payload bytes.
func (c *Cache) Retain(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hash]
	if !ok {
		return false
	}
	e.refs++
	return true
}

// Release drops one reference. The entry is evicted when the count hits zero;
// a decode still in flight for it will be thrown away on completion.
func (c *Cache) Release(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hash]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(c.entries, hash)
		c.logger.Debug("bitmap evicted", "hash", shortHash(hash))
	}
}

// Bitmap returns the decoded image if the decode has finished. ready is false
// while the decode is still running; err carries a DecodeError on failure.
func (c *Cache) Bitmap(hash string) (img image.Image, ready bool, err error) {
	c.mu.Lock()
	e, ok := c.entries[hash]
	c.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	select {
	case <-e.done:
		return e.bitmap, true, e.err
	default:
		return nil, false, nil
	}
}

// Wait blocks until the payload is decoded or the context ends.
func (c *Cache) Wait(ctx context.Context, hash string) (image.Image, error) {
	c.mu.Lock()
	e, ok := c.entries[hash]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("bitmap %s not in cache", shortHash(hash))
	}
	select {
	case <-e.done:
		return e.bitmap, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Data returns the original encoded payload for a cached hash.
func (c *Cache) Data(hash string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) decodeEntry(e *entry) {
	img, err := c.decode(e.data)

	c.mu.Lock()
	cur, live := c.entries[e.hash]
	stale := !live || cur.gen != e.gen
	c.mu.Unlock()
	if stale {
		// The entry was released (or replaced) while we were decoding.
		c.logger.Debug("stale decode discarded", "hash", shortHash(e.hash))
		close(e.done)
		return
	}
	if err != nil {
		e.err = &DecodeError{Hash: e.hash, Err: err}
		c.logger.Warn("bitmap decode failed", "hash", shortHash(e.hash), "error", err)
	} else {
		e.bitmap = img
		b := img.Bounds()
		c.logger.Debug("bitmap decoded", "hash", shortHash(e.hash), "width", b.Dx(), "height", b.Dy())
	}
	close(e.done)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
