/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"wrapstudio/internal/domain"
)

const (
	DocumentFileName = "design.json"
	BackupsDirName   = "backups"
	CacheDirName     = "cache"
)

var standardSubDirs = []string{
	"assets",
	"exports",
	BackupsDirName,
	CacheDirName,
}

// ProjectHandle tracks a design loaded from or saved to a project directory.
// Root contains design.json and the standard subfolders.
type ProjectHandle struct {
	Root         string
	DocumentPath string
	Project      domain.Project
}

// InitProject creates a project directory at root, scaffolds the standard
// subfolders and writes the design document transactionally.
func InitProject(root string, proj domain.Project) (*ProjectHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create project root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	ph := &ProjectHandle{
		Root:         root,
		DocumentPath: filepath.Join(root, DocumentFileName),
		Project:      proj,
	}
	if _, err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

// Open loads an existing project from the given root directory. If the
// current document cannot be read or parsed, the latest backup is tried.
func Open(root string) (*ProjectHandle, error) {
	dpath := filepath.Join(root, DocumentFileName)
	b, err := os.ReadFile(dpath)
	if err != nil {
		proj, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open document: %w; backup attempt: %v", err, berr)
		}
		return &ProjectHandle{Root: root, DocumentPath: dpath, Project: *proj}, nil
	}
	p, err := Deserialize(b)
	if err != nil {
		proj, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("parse document: %w; backup attempt: %v", err, berr)
		}
		return &ProjectHandle{Root: root, DocumentPath: dpath, Project: *proj}, nil
	}
	return &ProjectHandle{Root: root, DocumentPath: dpath, Project: p}, nil
}

// Save writes the project to disk with transactional semantics and a
// timestamped backup of the previous document (if present). The returned
// result carries the serializer's soft warnings.
func Save(ph *ProjectHandle) (SerializeResult, error) {
	var res SerializeResult
	if ph == nil {
		return res, errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.DocumentPath == "" {
		return res, errors.New("invalid ProjectHandle: missing paths")
	}
	data, res, err := Serialize(ph.Project, SerializeOptions{})
	if err != nil {
		return res, err
	}

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return res, fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.DocumentPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405")
		bname := fmt.Sprintf("%s.%s.bak", DocumentFileName, stamp)
		if cerr := copyFile(ph.DocumentPath, filepath.Join(bdir, bname)); cerr != nil {
			return res, fmt.Errorf("backup current document: %w", cerr)
		}
	}

	// Transactional write: temp file in the same directory, rename over.
	dir := filepath.Dir(ph.DocumentPath)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", DocumentFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return res, fmt.Errorf("write temp document: %w", werr)
	}
	// On Windows, replace by removing the destination first if needed.
	if _, err := os.Stat(ph.DocumentPath); err == nil {
		_ = os.Remove(ph.DocumentPath)
	}
	if rerr := os.Rename(temp, ph.DocumentPath); rerr != nil {
		_ = os.Remove(temp)
		return res, fmt.Errorf("replace document: %w", rerr)
	}
	return res, nil
}

// SaveAs writes the document to a new root folder, scaffolding structure if
// needed, and updates the handle.
func SaveAs(ph *ProjectHandle, newRoot string) (SerializeResult, error) {
	if ph == nil {
		return SerializeResult{}, errors.New("nil ProjectHandle")
	}
	if newRoot == "" {
		return SerializeResult{}, errors.New("new root is empty")
	}
	if err := os.MkdirAll(newRoot, 0o755); err != nil {
		return SerializeResult{}, fmt.Errorf("create new root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(newRoot, d), 0o755); err != nil {
			return SerializeResult{}, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	ph.Root = newRoot
	ph.DocumentPath = filepath.Join(newRoot, DocumentFileName)
	return Save(ph)
}

// AutosaveCrashSnapshot writes the in-memory project to a timestamped
// recovery file inside the backups folder, bypassing the transactional
// save path. It is meant to run from a panic handler, so it takes the
// cheapest route that still yields a loadable document.
func AutosaveCrashSnapshot(ph *ProjectHandle) (string, error) {
	if ph == nil || ph.Root == "" {
		return "", errors.New("no project to snapshot")
	}
	data, _, err := Serialize(ph.Project, SerializeOptions{})
	if err != nil {
		return "", fmt.Errorf("serialize crash snapshot: %w", err)
	}
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("recovery-%s.json", stamp))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	if err := df.Sync(); err != nil {
		return err
	}
	return nil
}

// openFromLatestBackup tries to open the latest timestamped backup.
func openFromLatestBackup(root string) (*domain.Project, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, DocumentFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	p, err := Deserialize(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &p, nil
}
