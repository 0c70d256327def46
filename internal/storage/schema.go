/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// documentSchema is the structural contract of a design document. It guards
// the required fields and value ranges before any unmarshalling; semantic
// per-variant checks happen afterwards in domain validation.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["formatVersion", "model", "layers"],
  "properties": {
    "formatVersion": {"type": "integer", "minimum": 1},
    "model": {"type": "string"},
    "baseColor": {"type": "string"},
    "layers": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "opacity"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "type": {"enum": ["texture", "brush", "text", "rect", "circle", "line", "star", "image"]},
          "visible": {"type": "boolean"},
          "locked": {"type": "boolean"},
          "opacity": {"type": "number", "minimum": 0, "maximum": 1},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "rotation": {"type": "number"},
          "scaleX": {"type": "number"},
          "scaleY": {"type": "number"},
          "strokes": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["points", "size"],
              "properties": {
                "points": {"type": "array", "items": {"type": "number"}, "minItems": 4},
                "color": {"type": "string"},
                "size": {"type": "number", "exclusiveMinimum": 0},
                "hardness": {"type": "number", "minimum": 0, "maximum": 100},
                "opacity": {"type": "number", "minimum": 0, "maximum": 1},
                "blend": {"enum": ["normal", "multiply", "screen", "overlay"]}
              }
            }
          },
          "source": {
            "type": "object",
            "required": ["data"],
            "properties": {
              "hash": {"type": "string"},
              "mime": {"type": "string"},
              "data": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var schemaLoader = gojsonschema.NewStringLoader(documentSchema)

// validateSchema checks document bytes against the structural schema.
func validateSchema(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return &SerializationError{Reason: "schema validation", Err: err}
	}
	if result.Valid() {
		return nil
	}
	var b strings.Builder
	for i, desc := range result.Errors() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(desc.String())
	}
	return &SerializationError{Reason: "schema violation: " + b.String()}
}
