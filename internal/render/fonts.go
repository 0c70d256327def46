/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// FontLibrary maps font family names and style flags to parsed font sources.
// The Go fonts are always registered; additional families can be added from
// TTF/OTF bytes. Unknown families fall back to the default so a document
// created on another machine still renders.
type FontLibrary struct {
	mu      sync.RWMutex
	sources map[string]*text.FontSource
}

const defaultFamily = "Go"

func styleKey(family string, bold, italic bool) string {
	key := strings.ToLower(strings.TrimSpace(family))
	if bold {
		key += "|b"
	}
	if italic {
		key += "|i"
	}
	return key
}

// NewFontLibrary builds a library with the bundled Go font variants.
func NewFontLibrary() (*FontLibrary, error) {
	lib := &FontLibrary{sources: make(map[string]*text.FontSource)}
	for _, v := range []struct {
		data         []byte
		bold, italic bool
	}{
		{goregular.TTF, false, false},
		{gobold.TTF, true, false},
		{goitalic.TTF, false, true},
		{gobolditalic.TTF, true, true},
	} {
		if err := lib.Register(defaultFamily, v.data, v.bold, v.italic); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Register parses font bytes and stores them under the family and style.
func (l *FontLibrary) Register(family string, data []byte, bold, italic bool) error {
	src, err := text.NewFontSource(data)
	if err != nil {
		return fmt.Errorf("register font %s: %w", family, err)
	}
	l.mu.Lock()
	l.sources[styleKey(family, bold, italic)] = src
	l.mu.Unlock()
	return nil
}

// RegisterDir loads every TTF/OTF in dir as a regular-cut family named after
// the file. Unparseable files are skipped; the first error is returned after
// the scan so one bad font does not block the rest.
func (l *FontLibrary) RegisterDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var firstErr error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".ttf" && ext != ".otf" {
			continue
		}
		data, rerr := os.ReadFile(filepath.Join(dir, e.Name()))
		if rerr != nil {
			if firstErr == nil {
				firstErr = rerr
			}
			continue
		}
		family := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if rerr := l.Register(family, data, false, false); rerr != nil && firstErr == nil {
			firstErr = rerr
		}
	}
	return firstErr
}

// Face resolves a face for the family, style and size. Resolution degrades
// gracefully: exact style, then the family's regular cut, then the default
// family with the requested style, then the default regular.
func (l *FontLibrary) Face(family string, size float64, bold, italic bool) text.Face {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, key := range []string{
		styleKey(family, bold, italic),
		styleKey(family, false, false),
		styleKey(defaultFamily, bold, italic),
		styleKey(defaultFamily, false, false),
	} {
		if src, ok := l.sources[key]; ok {
			return src.Face(size)
		}
	}
	return nil
}
