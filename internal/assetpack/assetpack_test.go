/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package assetpack

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
)

func TestExportAndInstallPack(t *testing.T) {
	src := Dirs{
		MasksDir: filepath.Join(t.TempDir(), "masks"),
		FontsDir: filepath.Join(t.TempDir(), "fonts"),
	}
	if err := os.MkdirAll(src.MasksDir, 0o755); err != nil {
		t.Fatalf("mkdir masks: %v", err)
	}
	if err := os.MkdirAll(src.FontsDir, 0o755); err != nil {
		t.Fatalf("mkdir fonts: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src.MasksDir, "van.png"), []byte("png bytes"), 0o644); err != nil {
		t.Fatalf("write mask: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src.MasksDir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src.FontsDir, "display.ttf"), []byte("font bytes"), 0o644); err != nil {
		t.Fatalf("write font: %v", err)
	}

	zipPath := filepath.Join(t.TempDir(), "pack.zip")
	if err := Export(src, zipPath); err != nil {
		t.Fatalf("export pack: %v", err)
	}
	st, err := os.Stat(zipPath)
	if err != nil || st.Size() == 0 {
		t.Fatalf("zip not created or empty: %v", err)
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	for _, f := range r.File {
		if f.Name == "masks/notes.txt" {
			t.Fatalf("stray file exported")
		}
	}
	_ = r.Close()

	dst := Dirs{
		MasksDir: filepath.Join(t.TempDir(), "masks"),
		FontsDir: filepath.Join(t.TempDir(), "fonts"),
	}
	installed, err := Install(dst, zipPath)
	if err != nil {
		t.Fatalf("install pack: %v", err)
	}
	if installed != 2 {
		t.Fatalf("expected 2 installed, got %d", installed)
	}
	if _, err := os.Stat(filepath.Join(dst.MasksDir, "van.png")); err != nil {
		t.Fatalf("expected mask installed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dst.FontsDir, "display.ttf")); err != nil {
		t.Fatalf("expected font installed: %v", err)
	}
}

func TestInstallSkipsExisting(t *testing.T) {
	src := Dirs{MasksDir: t.TempDir()}
	if err := os.WriteFile(filepath.Join(src.MasksDir, "van.png"), []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "pack.zip")
	if err := Export(src, zipPath); err != nil {
		t.Fatal(err)
	}

	dst := Dirs{MasksDir: t.TempDir()}
	keep := filepath.Join(dst.MasksDir, "van.png")
	if err := os.WriteFile(keep, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	installed, err := Install(dst, zipPath)
	if err != nil {
		t.Fatal(err)
	}
	if installed != 0 {
		t.Fatalf("expected 0 installed over existing, got %d", installed)
	}
	b, _ := os.ReadFile(keep)
	if string(b) != "old" {
		t.Fatalf("existing file overwritten: %q", b)
	}
}
