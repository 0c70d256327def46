/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wrapstudio/internal/assetpack"
	"wrapstudio/internal/config"
	"wrapstudio/internal/crash"
	"wrapstudio/internal/domain"
	"wrapstudio/internal/export"
	"wrapstudio/internal/generate"
	"wrapstudio/internal/imagecache"
	applog "wrapstudio/internal/log"
	"wrapstudio/internal/session"
	"wrapstudio/internal/storage"
	"wrapstudio/internal/template"
	"wrapstudio/internal/ui"
	"wrapstudio/internal/version"
)

func usage() {
	fmt.Println("Wrap Studio — vehicle wrap designer")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  wrapstudio version|-v|--version             Show version")
	fmt.Println("  wrapstudio init <dir> <model> [baseColor]   Create a new design project at <dir>")
	fmt.Println("  wrapstudio open <dir>                       Open project at <dir> and print summary")
	fmt.Println("  wrapstudio save <dir>                       Re-save project at <dir> (creates backup)")
	fmt.Println("  wrapstudio export <dir> <out.png>           Render the design to a 1024x1024 PNG")
	fmt.Println("  wrapstudio pdf <dir> <out.pdf>              Render a print proof PDF")
	fmt.Println("  wrapstudio generate <dir> <prompt>          Request a texture from the generation service")
	fmt.Println("  wrapstudio pack-export <out.zip>            Bundle local masks and fonts into an asset pack")
	fmt.Println("  wrapstudio pack-install <pack.zip>          Install an asset pack into the local asset dirs")
	fmt.Println("  wrapstudio ui [<dir>]                       Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var ph *storage.ProjectHandle
	defer func() { crash.Recover(ph) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("Wrap Studio — vehicle wrap designer")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 4 {
				fmt.Println("init requires <dir> and <model>")
				usage()
				os.Exit(2)
			}
			dir := args[2]
			model := args[3]
			base := domain.Color("#ffffff")
			if len(args) >= 5 {
				base = domain.Color(args[4])
			}
			abs, _ := filepath.Abs(dir)
			l.Info("init project", slog.String("root", abs), slog.String("model", model))
			p := domain.Project{Model: model, BaseColor: base}
			h, err := storage.InitProject(abs, p)
			if err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			fmt.Println("Created project at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("open project", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			fmt.Printf("Opened design for model: %s\n", h.Project.Model)
			fmt.Printf("Base color: %s\n", h.Project.BaseColor)
			fmt.Printf("Layers: %d\n", len(h.Project.Layers))
			fmt.Println("Root:", h.Root)
			return
		case "save":
			if len(args) < 3 {
				fmt.Println("save requires <dir>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			l.Info("save project", slog.String("root", abs))
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open before save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			res, err := storage.Save(h)
			if err != nil {
				l.Error("save failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if len(res.OverBudget) > 0 {
				fmt.Printf("Warning: %d image layer(s) exceed the document size budget.\n", len(res.OverBudget))
			}
			fmt.Println("Saved project and created a backup of the previous document (if any).")
			return
		case "export", "pdf":
			if len(args) < 4 {
				fmt.Printf("%s requires <dir> and <out>\n", args[1])
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			out, _ := filepath.Abs(args[3])
			h, err := storage.Open(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			cfg, _, cerr := config.Load()
			if cerr != nil {
				cfg = config.Defaults()
			}
			var masks template.Resolver
			if cfg.Assets.MasksDir != "" {
				masks = template.NewDirResolver(cfg.Assets.MasksDir)
			}
			sess, err := session.New(h.Project, session.Options{Masks: masks})
			if err != nil {
				l.Error("session failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if cfg.Assets.FontsDir != "" {
				if ferr := sess.Compositor().Fonts().RegisterDir(cfg.Assets.FontsDir); ferr != nil {
					l.Warn("extra fonts not fully loaded", slog.Any("err", ferr))
				}
			}
			if err := waitForBitmaps(sess, 30*time.Second); err != nil {
				l.Warn("bitmap decode incomplete", slog.Any("err", err))
			}
			params, err := sess.RenderParams(false)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if args[1] == "export" {
				err = export.ExportPNGFile(sess.Compositor(), params, out)
			} else {
				err = export.ExportProofPDF(sess.Compositor(), params, out, export.PDFOptions{Title: "Wrap proof - " + h.Project.Model})
			}
			if err != nil {
				l.Error("export failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			refreshThumbnail(h, sess, l)
			fmt.Println("Wrote", out)
			return
		case "generate":
			if len(args) < 4 {
				fmt.Println("generate requires <dir> and <prompt>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			prompt := args[3]
			h, err := storage.Open(abs)
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			ph = h
			cfg, token, cerr := config.Load()
			if cerr != nil {
				fmt.Println("Error:", cerr)
				os.Exit(1)
			}
			client := generate.NewClient(cfg.Generate.BaseURL, token, generate.Options{
				Timeout:     time.Duration(cfg.Generate.TimeoutMs) * time.Millisecond,
				TLSInsecure: cfg.Generate.TLSInsecure,
			})
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			job, err := client.Submit(ctx, generate.Request{Prompt: prompt, Model: h.Project.Model})
			if err != nil {
				l.Error("generate submit failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Job submitted:", job.ID)
			data, err := client.WaitForResult(ctx, job.ID)
			if err != nil {
				l.Error("generate wait failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			sess, err := session.New(h.Project, session.Options{})
			if err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			if _, err := sess.AddBitmapLayer(domain.KindTexture, "Generated: "+prompt, data); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			h.Project = sess.Project()
			if _, err := storage.Save(h); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Added generated texture layer and saved.")
			return
		case "pack-export", "pack-install":
			if len(args) < 3 {
				fmt.Printf("%s requires <zip>\n", args[1])
				usage()
				os.Exit(2)
			}
			zipPath, _ := filepath.Abs(args[2])
			cfg, _, cerr := config.Load()
			if cerr != nil {
				cfg = config.Defaults()
			}
			dirs := assetpack.Dirs{MasksDir: cfg.Assets.MasksDir, FontsDir: cfg.Assets.FontsDir}
			if args[1] == "pack-export" {
				if err := assetpack.Export(dirs, zipPath); err != nil {
					l.Error("pack export failed", slog.Any("err", err))
					fmt.Println("Error:", err)
					os.Exit(1)
				}
				fmt.Println("Wrote", zipPath)
				return
			}
			n, err := assetpack.Install(dirs, zipPath)
			if err != nil {
				l.Error("pack install failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Printf("Installed %d asset file(s).\n", n)
			return
		case "ui":
			var dir string
			if len(args) >= 3 {
				dir = args[2]
			}
			if err := ui.Run(dir); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}

const thumbEdge = 256

// refreshThumbnail updates the project's cached preview for the current
// document content. Failures only cost a log line; the cache is derived
// state.
func refreshThumbnail(h *storage.ProjectHandle, sess *session.Session, l *slog.Logger) {
	data, _, err := storage.Serialize(h.Project, storage.SerializeOptions{})
	if err != nil {
		l.Warn("thumbnail skipped", slog.Any("err", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	tc, err := storage.OpenThumbCache(ctx, h.Root)
	if err != nil {
		l.Warn("thumbnail cache unavailable", slog.Any("err", err))
		return
	}
	defer func() { _ = tc.Close() }()
	docHash := imagecache.HashBytes(data)
	_, err = tc.GetOrCreate(ctx, docHash, thumbEdge, thumbEdge, func(ctx context.Context) ([]byte, error) {
		img, cerr := sess.CompositeForExport()
		if cerr != nil {
			return nil, cerr
		}
		return export.Thumbnail(img, thumbEdge, thumbEdge)
	})
	if err != nil {
		l.Warn("thumbnail update failed", slog.Any("err", err))
	}
}

// waitForBitmaps blocks until every bitmap layer's decode has settled, so a
// headless export does not race the async image cache.
func waitForBitmaps(sess *session.Session, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	p := sess.Project()
	for _, l := range p.Layers {
		if l.Source == nil || l.Source.Hash == "" {
			continue
		}
		if err := sess.WaitBitmap(ctx, l.Source.Hash); err != nil {
			return fmt.Errorf("decode %s: %w", l.Name, err)
		}
	}
	return nil
}
