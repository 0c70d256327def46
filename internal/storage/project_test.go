/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"testing"

	"wrapstudio/internal/domain"
)

func TestInitOpenSaveRoundTrip(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	p := fullProject(t)
	ph, err := InitProject(root, p)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range standardSubDirs {
		if _, err := os.Stat(filepath.Join(root, d)); err != nil {
			t.Fatalf("missing subdir %s: %v", d, err)
		}
	}

	got, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Project.Layers) != len(p.Layers) {
		t.Fatalf("layer count %d after open", len(got.Project.Layers))
	}

	got.Project.Layers = got.Project.Layers[:2]
	if _, err := Save(got); err != nil {
		t.Fatal(err)
	}
	again, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Project.Layers) != 2 {
		t.Fatalf("saved layer count %d", len(again.Project.Layers))
	}
	_ = ph
}

func TestSaveCreatesBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	ph, err := InitProject(root, domain.Project{Model: "van"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Save(ph); err != nil {
		t.Fatal(err)
	}
	ents, err := os.ReadDir(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatal(err)
	}
	if len(ents) == 0 {
		t.Fatal("no backup written on re-save")
	}
}

func TestOpenFallsBackToBackup(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj")
	ph, err := InitProject(root, domain.Project{Model: "van"})
	if err != nil {
		t.Fatal(err)
	}
	// Second save produces a backup of the first document.
	if _, err := Save(ph); err != nil {
		t.Fatal(err)
	}
	// Corrupt the current document.
	if err := os.WriteFile(ph.DocumentPath, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Open(root)
	if err != nil {
		t.Fatalf("open with backup available failed: %v", err)
	}
	if got.Project.Model != "van" {
		t.Fatalf("recovered model %q", got.Project.Model)
	}
}

func TestOpenMissingProjectFails(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "nothing-here")); err == nil {
		t.Fatal("open of a non-project directory succeeded")
	}
}

func TestSaveAsMovesHandle(t *testing.T) {
	rootA := filepath.Join(t.TempDir(), "a")
	ph, err := InitProject(rootA, domain.Project{Model: "van"})
	if err != nil {
		t.Fatal(err)
	}
	rootB := filepath.Join(t.TempDir(), "b")
	if _, err := SaveAs(ph, rootB); err != nil {
		t.Fatal(err)
	}
	if ph.Root != rootB {
		t.Fatalf("handle root %q", ph.Root)
	}
	if _, err := Open(rootB); err != nil {
		t.Fatal(err)
	}
}
