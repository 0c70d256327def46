//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate UI helpers. They are gated behind the "fyne" build tag
// so CI (which is headless) does not need Fyne or a display. To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"wrapstudio/internal/domain"
)

func TestLayerLabel(t *testing.T) {
	l := domain.Layer{Name: "Flames", Kind: domain.KindBrush, Visible: true}
	if got := layerLabel(l); got != "  Flames (brush)" {
		t.Fatalf("label %q", got)
	}
	l.Visible = false
	l.Name = ""
	if got := layerLabel(l); got != "· brush (brush)" {
		t.Fatalf("hidden label %q", got)
	}
}

func TestExportFileName(t *testing.T) {
	if got := exportFileName("Transit Van", "png"); got != "transit-van-wrap.png" {
		t.Fatalf("name %q", got)
	}
	if got := exportFileName("", "pdf"); got != "wrap-wrap.pdf" {
		t.Fatalf("empty model %q", got)
	}
}
