/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package history maintains the linear undo/redo stack of layer snapshots.
// The stack is a single sequence with a cursor; committing after undos
// truncates the redo tail. Entries are immutable once pushed.
package history

import (
	"sync"
	"time"

	"wrapstudio/internal/domain"
)

// Entry is one undoable snapshot of the ordered layer list.
type Entry struct {
	Seq    int
	TS     time.Time
	Layers []domain.Layer
}

// Config controls depth and memory safeguards. The base design is unbounded;
// both caps evict the oldest entries when exceeded, which sacrifices the
// deepest undo steps but never the redo tail.
type Config struct {
	// MaxDepth limits the number of entries kept (0 means unlimited).
	MaxDepth int
	// MaxBytes is a soft cap on the estimated snapshot memory (0 unlimited).
	MaxBytes int
	// MinInterval coalesces commits arriving within the interval, replacing
	// the previous entry instead of pushing a new one (0 disables).
	MinInterval time.Duration
}

// Stack is the undo/redo state machine. It is safe for concurrent use,
// although the editor session drives it from a single goroutine.
type Stack struct {
	cfg Config

	mu         sync.Mutex
	entries    []Entry
	cursor     int
	seq        int
	totalBytes int
}

// NewStack creates a stack seeded with the initial project state as entry 0.
func NewStack(initial []domain.Layer, cfg Config) *Stack {
	s := &Stack{cfg: cfg}
	s.entries = []Entry{s.newEntry(initial, time.Now())}
	s.totalBytes = estimateSize(s.entries[0].Layers)
	return s
}

func (s *Stack) newEntry(layers []domain.Layer, ts time.Time) Entry {
	e := Entry{Seq: s.seq, TS: ts, Layers: domain.CloneLayers(layers)}
	s.seq++
	return e
}

// Commit records a new snapshot: entries beyond the cursor are discarded,
// the snapshot is appended and the cursor advances to it.
func (s *Stack) Commit(layers []domain.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	// Branch truncation: any redo tail dies on a new commit.
	for _, e := range s.entries[s.cursor+1:] {
		s.totalBytes -= estimateSize(e.Layers)
	}
	s.entries = s.entries[:s.cursor+1]

	if s.cfg.MinInterval > 0 && s.cursor > 0 {
		last := s.entries[s.cursor]
		if now.Sub(last.TS) < s.cfg.MinInterval {
			// Coalesce rapid commits into the newest entry.
			s.totalBytes -= estimateSize(last.Layers)
			s.entries[s.cursor] = s.newEntry(layers, now)
			s.totalBytes += estimateSize(s.entries[s.cursor].Layers)
			s.enforceCapsLocked()
			return
		}
	}

	e := s.newEntry(layers, now)
	s.entries = append(s.entries, e)
	s.cursor = len(s.entries) - 1
	s.totalBytes += estimateSize(e.Layers)
	s.enforceCapsLocked()
}

// Undo steps the cursor back and returns that entry's layers. It is a no-op
// at the oldest retained entry.
func (s *Stack) Undo() ([]domain.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == 0 {
		return nil, false
	}
	s.cursor--
	return domain.CloneLayers(s.entries[s.cursor].Layers), true
}

// Redo steps the cursor forward and returns that entry's layers. It is a
// no-op at the newest entry.
func (s *Stack) Redo() ([]domain.Layer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor >= len(s.entries)-1 {
		return nil, false
	}
	s.cursor++
	return domain.CloneLayers(s.entries[s.cursor].Layers), true
}

// Reset reinitializes the stack to a single entry holding the given state.
func (s *Stack) Reset(layers []domain.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = []Entry{s.newEntry(layers, time.Now())}
	s.cursor = 0
	s.totalBytes = estimateSize(s.entries[0].Layers)
}

// CanUndo reports whether an undo step is available.
func (s *Stack) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor > 0
}

// CanRedo reports whether a redo step is available.
func (s *Stack) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor < len(s.entries)-1
}

// Stats returns the entry count, cursor position and estimated bytes.
func (s *Stack) Stats() (entries, cursor, totalBytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), s.cursor, s.totalBytes
}

func (s *Stack) enforceCapsLocked() {
	drop := 0
	n := len(s.entries)
	if s.cfg.MaxDepth > 0 && n > s.cfg.MaxDepth {
		drop = n - s.cfg.MaxDepth
	}
	if s.cfg.MaxBytes > 0 {
		bytes := s.totalBytes
		for drop < n-1 && bytes > s.cfg.MaxBytes {
			bytes -= estimateSize(s.entries[drop].Layers)
			drop++
		}
	}
	// Never evict past the cursor; the current state must stay restorable.
	if drop > s.cursor {
		drop = s.cursor
	}
	if drop == 0 {
		return
	}
	for _, e := range s.entries[:drop] {
		s.totalBytes -= estimateSize(e.Layers)
	}
	s.entries = append([]Entry(nil), s.entries[drop:]...)
	s.cursor -= drop
}

// estimateSize approximates the retained memory of a snapshot; bitmap
// sources are shared between entries so only the reference is counted.
func estimateSize(layers []domain.Layer) int {
	size := 0
	for _, l := range layers {
		size += 160 // struct overhead and strings, rough
		for _, st := range l.Strokes {
			size += 64 + 8*len(st.Points)
		}
		if l.Shape != nil {
			size += 96 + 8*len(l.Shape.Points)
		}
		if l.Text != nil {
			size += 64 + len(l.Text.Content)
		}
		if l.Source != nil {
			size += 48
		}
	}
	return size
}
