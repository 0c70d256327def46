/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package assetpack moves design assets between installations as a single
// .zip archive. A pack holds vehicle silhouette masks (masks/<model>.png)
// and extra font families (fonts/<family>.ttf|.otf).
package assetpack

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "wrapstudio/internal/log"
)

const manifestName = "assetpack.manifest.txt"

// Dirs names the local asset locations a pack is built from or installed to.
type Dirs struct {
	MasksDir string
	FontsDir string
}

// allowed file extensions per archive section
var sectionExts = map[string][]string{
	"masks": {".png"},
	"fonts": {".ttf", ".otf"},
}

// Export zips the masks and fonts directories into destZipPath. Either
// directory may be missing or empty; the archive always carries a manifest.
func Export(dirs Dirs, destZipPath string) error {
	l := applog.WithOperation(applog.WithComponent("assetpack"), "export")
	if strings.TrimSpace(destZipPath) == "" {
		return errors.New("destZipPath is required")
	}
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)

	zf, err := os.Create(destZipPath)
	if err != nil {
		return fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)
	defer func() { _ = zw.Close() }()

	manifest := fmt.Sprintf("Wrap Studio Asset Pack\nCreated: %s\n\nmasks/  one alpha PNG per vehicle model\nfonts/  extra TTF/OTF families\n",
		time.Now().Format(time.RFC3339))
	w, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write([]byte(manifest)); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	added := 0
	for section, src := range map[string]string{"masks": dirs.MasksDir, "fonts": dirs.FontsDir} {
		if strings.TrimSpace(src) == "" {
			continue
		}
		entries, err := os.ReadDir(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("read %s dir: %w", section, err)
		}
		for _, e := range entries {
			if e.IsDir() || !allowedExt(section, e.Name()) {
				continue
			}
			fw, err := zw.Create(section + "/" + e.Name())
			if err != nil {
				return err
			}
			f, err := os.Open(filepath.Join(src, e.Name()))
			if err != nil {
				return err
			}
			_, cerr := io.Copy(fw, f)
			_ = f.Close()
			if cerr != nil {
				return cerr
			}
			added++
		}
	}
	l.Info("asset pack exported", slog.Int("files", added), slog.String("zip", destZipPath))
	return nil
}

// Install extracts packZipPath into the local asset directories. Existing
// files are not overwritten; if a file already exists, it is skipped.
// Returns the count of files installed (skipped files are not counted).
func Install(dirs Dirs, packZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("assetpack"), "install")
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}

	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	installed := 0
	for _, f := range r.File {
		if f.FileInfo().IsDir() || f.Name == manifestName {
			continue
		}
		name := filepath.ToSlash(f.Name)
		section, base, ok := strings.Cut(name, "/")
		if !ok || strings.Contains(base, "/") || !allowedExt(section, base) {
			l.Warn("skip unexpected entry", slog.String("name", f.Name))
			continue
		}
		var dst string
		switch section {
		case "masks":
			dst = dirs.MasksDir
		case "fonts":
			dst = dirs.FontsDir
		default:
			l.Warn("skip unknown section", slog.String("name", f.Name))
			continue
		}
		if strings.TrimSpace(dst) == "" {
			l.Warn("no target dir configured", slog.String("section", section))
			continue
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return installed, fmt.Errorf("ensure %s dir: %w", section, err)
		}
		targetPath := filepath.Join(dst, base)
		if _, err := os.Stat(targetPath); err == nil {
			l.Warn("skip existing file", slog.String("path", targetPath))
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return installed, err
		}
		out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			_ = rc.Close()
			return installed, err
		}
		if _, err := io.Copy(out, rc); err != nil {
			_ = out.Close()
			_ = rc.Close()
			return installed, err
		}
		_ = out.Close()
		_ = rc.Close()
		installed++
	}
	l.Info("asset pack installed", slog.Int("files", installed))
	return installed, nil
}

func allowedExt(section, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range sectionExts[section] {
		if ext == e {
			return true
		}
	}
	return false
}
