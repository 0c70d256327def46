/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage persists wrap designs. A design document is a single JSON
// file carrying a format version, the project metadata, the ordered layer
// array and inline base64 bitmap payloads. Oversized payloads pass through a
// bounded re-encoder before embedding. Writes are transactional with
// timestamped backups of the previous document.
package storage

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"wrapstudio/internal/domain"
	"wrapstudio/internal/imagecache"
	"wrapstudio/internal/log"
)

// FormatVersion tags the document schema. Loading a document with a higher
// version than this fails rather than guessing.
const FormatVersion = 1

// SerializationError aborts a load: version mismatch, malformed JSON or a
// missing required field. The in-memory project is never touched on failure.
type SerializationError struct {
	Reason string
	Err    error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("document: %s: %v", e.Reason, e.Err)
	}
	return "document: " + e.Reason
}

func (e *SerializationError) Unwrap() error { return e.Err }

// document is the on-disk shape of a project.
type document struct {
	FormatVersion int             `json:"formatVersion"`
	Model         string          `json:"model"`
	BaseColor     domain.Color    `json:"baseColor,omitempty"`
	Layers        []documentLayer `json:"layers"`
}

// documentLayer embeds the domain layer fields plus the inline payload for
// bitmap-backed variants.
type documentLayer struct {
	domain.Layer
	Source *documentSource `json:"source,omitempty"`
}

type documentSource struct {
	Hash string `json:"hash"`
	Mime string `json:"mime"`
	Data string `json:"data"`
}

// SerializeOptions tunes payload embedding.
type SerializeOptions struct {
	// Ceiling bounds each embedded payload in bytes; 0 uses SizeCeiling.
	Ceiling int
}

// SerializeResult reports soft warnings raised while embedding payloads.
type SerializeResult struct {
	// OverBudget lists layer ids whose payload exceeds the ceiling even at
	// minimum quality. The document was still written.
	OverBudget []string
}

// Serialize renders the project as a self-contained JSON document. Strokes
// below the renderable minimum are filtered out; bitmap payloads larger than
// the ceiling are re-encoded within the lossy budget.
func Serialize(p domain.Project, opts SerializeOptions) ([]byte, SerializeResult, error) {
	ceiling := opts.Ceiling
	if ceiling <= 0 {
		ceiling = SizeCeiling
	}
	var res SerializeResult
	doc := document{FormatVersion: FormatVersion, Model: p.Model, BaseColor: p.BaseColor}
	for _, l := range p.Layers {
		dl := documentLayer{Layer: l.Clone()}
		dl.Layer.Source = nil
		dl.Strokes = domain.DropShortStrokes(dl.Strokes)
		if l.Source != nil {
			if len(l.Source.Data) == 0 {
				return nil, res, &SerializationError{Reason: fmt.Sprintf("layer %s has a bitmap source without encoded bytes", l.ID)}
			}
			enc, err := BoundReencode(l.Source.Data, ceiling)
			if err != nil {
				return nil, res, fmt.Errorf("re-encode layer %s: %w", l.ID, err)
			}
			if enc.OverBudget {
				res.OverBudget = append(res.OverBudget, l.ID)
				log.WithComponent("storage").Warn("embedded bitmap exceeds size ceiling",
					"layer", l.ID, "bytes", len(enc.Data), "ceiling", ceiling)
			}
			dl.Source = &documentSource{
				Hash: imagecache.HashBytes(enc.Data),
				Mime: enc.Mime,
				Data: base64.StdEncoding.EncodeToString(enc.Data),
			}
		}
		doc.Layers = append(doc.Layers, dl)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, res, fmt.Errorf("marshal document: %w", err)
	}
	return append(data, '\n'), res, nil
}

// Deserialize reconstructs a project from document bytes. The document is
// schema-checked first, then every layer is validated; any failure aborts the
// load without partial state.
func Deserialize(data []byte) (domain.Project, error) {
	var zero domain.Project
	if err := validateSchema(data); err != nil {
		return zero, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return zero, &SerializationError{Reason: "malformed JSON", Err: err}
	}
	if doc.FormatVersion > FormatVersion || doc.FormatVersion < 1 {
		return zero, &SerializationError{Reason: fmt.Sprintf("unsupported format version %d", doc.FormatVersion)}
	}

	p := domain.Project{Model: doc.Model, BaseColor: doc.BaseColor}
	for i, dl := range doc.Layers {
		l := dl.Layer
		l.Strokes = domain.DropShortStrokes(l.Strokes)
		if dl.Source != nil {
			raw, err := base64.StdEncoding.DecodeString(dl.Source.Data)
			if err != nil {
				return zero, &SerializationError{Reason: fmt.Sprintf("layer %d payload is not valid base64", i), Err: err}
			}
			l.Source = &domain.BitmapSource{Hash: imagecache.HashBytes(raw), Data: raw}
		}
		if err := l.Validate(); err != nil {
			return zero, &SerializationError{Reason: fmt.Sprintf("layer %d invalid", i), Err: err}
		}
		p.Layers = append(p.Layers, l)
	}
	return p, nil
}

// sniffMime detects the payload container from its leading bytes.
func sniffMime(data []byte) string {
	return http.DetectContentType(data)
}
