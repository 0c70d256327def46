//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"wrapstudio/internal/config"
	"wrapstudio/internal/crash"
	"wrapstudio/internal/domain"
	"wrapstudio/internal/export"
	applog "wrapstudio/internal/log"
	"wrapstudio/internal/history"
	"wrapstudio/internal/session"
	"wrapstudio/internal/storage"
	"wrapstudio/internal/telemetry"
	"wrapstudio/internal/template"
)

// Run starts the Fyne-based desktop shell around a design session.
func Run(projectDir string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	var ph *storage.ProjectHandle
	var sess *session.Session
	defer func() { crash.Recover(ph) }()

	var masks template.Resolver
	if cfg.Assets.MasksDir != "" {
		masks = template.NewDirResolver(cfg.Assets.MasksDir)
	}
	sessionOpts := session.Options{
		Masks: masks,
		History: history.Config{
			MaxDepth:    50,
			MaxBytes:    32 * 1024 * 1024,
			MinInterval: 300 * time.Millisecond,
		},
	}

	fyneApp := app.NewWithID("wrapstudio")
	w := fyneApp.NewWindow("Wrap Studio")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 860)
	if winW < 900 {
		winW = 900
	}
	if winH < 640 {
		winH = 640
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")

	// Composite preview (center). The image is re-rendered after every
	// session mutation.
	preview := canvas.NewImageFromImage(nil)
	preview.FillMode = canvas.ImageFillContain
	preview.SetMinSize(fyne.NewSize(512, 512))

	refreshPreview := func() {
		if sess == nil {
			preview.Image = nil
			preview.Refresh()
			return
		}
		img, err := sess.Composite()
		if err != nil {
			l.Error("composite failed", slog.Any("err", err))
			status.SetText("Render error: " + err.Error())
			return
		}
		preview.Image = img
		preview.Refresh()
	}

	// Layer stack (left). The list shows top-most layer first.
	layerIDs := []string{}
	layerDisplay := []string{}
	layerList := widget.NewList(
		func() int { return len(layerDisplay) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(layerDisplay) {
				o.(*widget.Label).SetText(layerDisplay[i])
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)

	// Properties (right) for the selected layer.
	nameEntry := widget.NewEntry()
	visibleCheck := widget.NewCheck("Visible", nil)
	opacitySlider := widget.NewSlider(0, 1)
	opacitySlider.Step = 0.01
	propsUpdating := false

	var refreshLayers func()
	refreshLayers = func() {
		layerIDs = layerIDs[:0]
		layerDisplay = layerDisplay[:0]
		if sess != nil {
			p := sess.Project()
			// z order: last entry paints on top, show it first
			for i := len(p.Layers) - 1; i >= 0; i-- {
				layerIDs = append(layerIDs, p.Layers[i].ID)
				layerDisplay = append(layerDisplay, layerLabel(p.Layers[i]))
			}
		}
		layerList.Refresh()
	}

	refreshProps := func() {
		propsUpdating = true
		defer func() { propsUpdating = false }()
		if sess == nil || sess.Selection() == "" {
			nameEntry.SetText("")
			visibleCheck.SetChecked(false)
			opacitySlider.SetValue(1)
			return
		}
		p := sess.Project()
		idx := p.LayerIndex(sess.Selection())
		if idx < 0 {
			return
		}
		lay := p.Layers[idx]
		nameEntry.SetText(lay.Name)
		visibleCheck.SetChecked(lay.Visible)
		opacitySlider.SetValue(lay.Opacity)
	}

	refreshAll := func() {
		refreshLayers()
		refreshProps()
		refreshPreview()
	}

	layerList.OnSelected = func(id widget.ListItemID) {
		if sess == nil || int(id) >= len(layerIDs) {
			return
		}
		if err := sess.SetSelection(layerIDs[id]); err != nil {
			l.Error("select layer failed", slog.Any("err", err))
			return
		}
		refreshProps()
	}

	applyUpdate := func(u session.LayerUpdate) {
		if propsUpdating || sess == nil || sess.Selection() == "" {
			return
		}
		if err := sess.UpdateLayer(sess.Selection(), u); err != nil {
			dialog.ShowError(err, w)
			return
		}
		refreshLayers()
		refreshPreview()
	}
	nameEntry.OnSubmitted = func(v string) { applyUpdate(session.LayerUpdate{Name: &v}) }
	visibleCheck.OnChanged = func(v bool) { applyUpdate(session.LayerUpdate{Visible: &v}) }
	opacitySlider.OnChangeEnded = func(v float64) { applyUpdate(session.LayerUpdate{Opacity: &v}) }

	loadExtraFonts := func(s *session.Session) {
		if cfg.Assets.FontsDir == "" {
			return
		}
		if err := s.Compositor().Fonts().RegisterDir(cfg.Assets.FontsDir); err != nil {
			l.Warn("extra fonts not fully loaded", slog.Any("err", err))
		}
	}

	openProject := func(root string) {
		h, err := storage.Open(root)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		s, err := session.New(h.Project, sessionOpts)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		loadExtraFonts(s)
		ph = h
		sess = s
		w.SetTitle("Wrap Studio - " + filepath.Base(root))
		status.SetText(fmt.Sprintf("Opened %s (%s)", filepath.Base(root), h.Project.Model))
		addRecentProject(prefs, root)
		telemetry.Event("project_opened", map[string]any{"model": h.Project.Model})
		refreshAll()
	}
	if projectDir != "" {
		openProject(projectDir)
	}

	// File menu
	newItem := fyne.NewMenuItem("New…", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			model := widget.NewEntry()
			model.SetPlaceHolder("van, truck, car …")
			base := widget.NewEntry()
			base.SetText("#ffffff")
			form := dialog.NewForm("New Design", "Create", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Vehicle model", model),
				widget.NewFormItem("Base color", base),
			}, func(ok bool) {
				if !ok {
					return
				}
				m := strings.TrimSpace(model.Text)
				if m == "" {
					dialog.ShowInformation("New Design", "Please enter a vehicle model.", w)
					return
				}
				proj := domain.Project{Model: m, BaseColor: domain.Color(strings.TrimSpace(base.Text))}
				h, ierr := storage.InitProject(uri.Path(), proj)
				if ierr != nil {
					dialog.ShowError(ierr, w)
					return
				}
				ph = h
				s, serr := session.New(h.Project, sessionOpts)
				if serr != nil {
					dialog.ShowError(serr, w)
					return
				}
				loadExtraFonts(s)
				sess = s
				w.SetTitle("Wrap Studio - " + filepath.Base(uri.Path()))
				status.SetText("Created " + filepath.Base(uri.Path()))
				addRecentProject(prefs, uri.Path())
				refreshAll()
			}, w)
			form.Show()
		}, w)
		fd.Show()
	})
	openItem := fyne.NewMenuItem("Open…", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil || uri == nil {
				return
			}
			openProject(uri.Path())
		}, w)
		fd.Show()
	})
	saveItem := fyne.NewMenuItem("Save", func() {
		if ph == nil || sess == nil {
			dialog.ShowInformation("Save", "No design open.", w)
			return
		}
		ph.Project = sess.Project()
		res, err := storage.Save(ph)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		sess.MarkSaved()
		if len(res.OverBudget) > 0 {
			status.SetText(fmt.Sprintf("Saved with %d oversized image(s); consider smaller sources.", len(res.OverBudget)))
		} else {
			status.SetText("Saved.")
		}
		telemetry.Event("project_saved", nil)
	})
	exportPNGItem := fyne.NewMenuItem("Export PNG…", func() {
		if sess == nil {
			dialog.ShowInformation("Export", "No design open.", w)
			return
		}
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			params, perr := sess.RenderParams(false)
			if perr != nil {
				dialog.ShowError(perr, w)
				return
			}
			if eerr := export.ExportPNGFile(sess.Compositor(), params, path); eerr != nil {
				dialog.ShowError(eerr, w)
				return
			}
			status.SetText("Exported " + filepath.Base(path))
			telemetry.Event("export_png", nil)
		}, w)
		fd.SetFileName(exportFileName(sess.Model(), "png"))
		fd.Show()
	})
	exportPDFItem := fyne.NewMenuItem("Export Proof PDF…", func() {
		if sess == nil {
			dialog.ShowInformation("Export", "No design open.", w)
			return
		}
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			params, perr := sess.RenderParams(false)
			if perr != nil {
				dialog.ShowError(perr, w)
				return
			}
			opt := export.PDFOptions{Title: "Wrap proof - " + sess.Model()}
			if eerr := export.ExportProofPDF(sess.Compositor(), params, path, opt); eerr != nil {
				dialog.ShowError(eerr, w)
				return
			}
			status.SetText("Exported " + filepath.Base(path))
			telemetry.Event("export_pdf", nil)
		}, w)
		fd.SetFileName(exportFileName(sess.Model(), "pdf"))
		fd.Show()
	})
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierControl}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}
	fileMenu := fyne.NewMenu("File", newItem, openItem, saveItem, fyne.NewMenuItemSeparator(), exportPNGItem, exportPDFItem)

	// Edit menu
	undoItem := fyne.NewMenuItem("Undo", func() {
		if sess == nil || !sess.Undo() {
			return
		}
		status.SetText("Undo")
		refreshAll()
	})
	redoItem := fyne.NewMenuItem("Redo", func() {
		if sess == nil || !sess.Redo() {
			return
		}
		status.SetText("Redo")
		refreshAll()
	})
	undoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierControl}
	redoItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: fyne.KeyModifierControl}
	editMenu := fyne.NewMenu("Edit", undoItem, redoItem)

	// Layer menu: a minimal add/remove set; geometry is edited on canvas.
	addLayer := func(spec domain.Layer) {
		if sess == nil {
			dialog.ShowInformation("Add Layer", "No design open.", w)
			return
		}
		id, err := sess.AddLayer(spec)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		_ = sess.SetSelection(id)
		refreshAll()
	}
	addRectItem := fyne.NewMenuItem("Add Rectangle", func() {
		addLayer(domain.Layer{
			Kind: domain.KindRect, Name: "Rectangle", Visible: true, Opacity: 1,
			X: 362, Y: 412,
			Shape: &domain.ShapePayload{Width: 300, Height: 200, Fill: "#b73038"},
		})
	})
	addCircleItem := fyne.NewMenuItem("Add Circle", func() {
		addLayer(domain.Layer{
			Kind: domain.KindCircle, Name: "Circle", Visible: true, Opacity: 1,
			X: 512, Y: 512,
			Shape: &domain.ShapePayload{Radius: 120, Fill: "#2a6fb0"},
		})
	})
	addTextItem := fyne.NewMenuItem("Add Text", func() {
		addLayer(domain.Layer{
			Kind: domain.KindText, Name: "Text", Visible: true, Opacity: 1,
			X: 512, Y: 200,
			Text: &domain.TextPayload{Content: "Your text", Size: 64, Fill: "#111111", Align: "center"},
		})
	})
	addImageItem := fyne.NewMenuItem("Add Image…", func() {
		if sess == nil {
			dialog.ShowInformation("Add Image", "No design open.", w)
			return
		}
		fd := dialog.NewFileOpen(func(uc fyne.URIReadCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			path := uc.URI().Path()
			_ = uc.Close()
			data, rerr := os.ReadFile(path)
			if rerr != nil {
				dialog.ShowError(rerr, w)
				return
			}
			id, aerr := sess.AddBitmapLayer(domain.KindImage, filepath.Base(path), data)
			if aerr != nil {
				dialog.ShowError(aerr, w)
				return
			}
			_ = sess.SetSelection(id)
			refreshAll()
		}, w)
		fd.Show()
	})
	removeLayerItem := fyne.NewMenuItem("Remove Selected", func() {
		if sess == nil || sess.Selection() == "" {
			return
		}
		if err := sess.RemoveLayer(sess.Selection()); err != nil {
			dialog.ShowError(err, w)
			return
		}
		refreshAll()
	})
	layerMenu := fyne.NewMenu("Layer", addRectItem, addCircleItem, addTextItem, addImageItem, fyne.NewMenuItemSeparator(), removeLayerItem)

	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, layerMenu))

	left := container.NewBorder(
		container.NewVBox(widget.NewLabel("Layers"), widget.NewSeparator()), nil, nil, nil,
		layerList,
	)
	right := container.NewVBox(
		widget.NewLabel("Properties"),
		widget.NewSeparator(),
		widget.NewForm(
			widget.NewFormItem("Name", nameEntry),
			widget.NewFormItem("", visibleCheck),
			widget.NewFormItem("Opacity", opacitySlider),
		),
	)
	center := container.NewBorder(nil, status, nil, nil, preview)
	split := container.NewHSplit(left, container.NewHSplit(center, right))
	split.Offset = 0.2
	w.SetContent(split)

	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	w.ShowAndRun()
	return nil
}

// layerLabel formats a layer stack row.
func layerLabel(l domain.Layer) string {
	vis := " "
	if !l.Visible {
		vis = "·"
	}
	name := l.Name
	if strings.TrimSpace(name) == "" {
		name = string(l.Kind)
	}
	return fmt.Sprintf("%s %s (%s)", vis, name, l.Kind)
}

// exportFileName suggests a default file name for exports.
func exportFileName(model, ext string) string {
	m := strings.TrimSpace(strings.ToLower(model))
	if m == "" {
		m = "wrap"
	}
	return fmt.Sprintf("%s-wrap.%s", strings.ReplaceAll(m, " ", "-"), ext)
}

// Recent project persistence helpers
const recentPrefsKey = "recent.projects"
const recentMax = 10

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	if items == nil {
		items = []string{}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}
