/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session owns the mutable editor state of one open design: the
// project, its undo history, the bitmap cache and the selection. All state is
// scoped to the Session value; there are no package-level mutables, so tests
// and multiple documents run independently. Every committed mutation passes
// through the history stack; selection and stroke previews do not.
package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"wrapstudio/internal/domain"
	"wrapstudio/internal/history"
	"wrapstudio/internal/imagecache"
	"wrapstudio/internal/log"
	"wrapstudio/internal/render"
	"wrapstudio/internal/template"
)

// Options configures a session.
type Options struct {
	// Masks resolves template silhouettes; nil composites unmasked.
	Masks template.Resolver
	// History tunes the undo stack caps.
	History history.Config
}

// Session is the single logical owner of a design under edit. Methods are
// not safe for concurrent use; the editor drives a session from one
// goroutine, matching the event-driven UI model.
type Session struct {
	project domain.Project
	hist    *history.Stack
	cache   *imagecache.Cache
	comp    *render.Compositor

	masks     template.Resolver
	selection string
	dirty     bool

	pendingStroke  *domain.BrushStroke
	pendingLayerID string

	logger *slog.Logger
}

// New opens a session over a project. Bitmap sources already attached to
// layers are registered with the cache so their decodes start immediately.
func New(project domain.Project, opts Options) (*Session, error) {
	comp, err := render.New()
	if err != nil {
		return nil, err
	}
	s := &Session{
		project: project.Clone(),
		cache:   imagecache.New(),
		comp:    comp,
		masks:   opts.Masks,
		logger:  log.WithComponent("session"),
	}
	for i := range s.project.Layers {
		s.acquireSource(&s.project.Layers[i])
	}
	s.hist = history.NewStack(s.project.Layers, opts.History)
	return s, nil
}

// Project returns a deep copy of the current project state.
func (s *Session) Project() domain.Project { return s.project.Clone() }

// Model returns the target vehicle model identifier.
func (s *Session) Model() string { return s.project.Model }

// Dirty reports whether the design changed since the last MarkSaved.
func (s *Session) Dirty() bool { return s.dirty }

// MarkSaved clears the dirty flag after a successful persist.
func (s *Session) MarkSaved() { s.dirty = false }

// Selection returns the selected layer id, or "" for none.
func (s *Session) Selection() string { return s.selection }

// SetSelection changes the selected layer without a history entry; undo
// never replays selection changes.
func (s *Session) SetSelection(id string) error {
	if id != "" && s.project.LayerIndex(id) < 0 {
		return fmt.Errorf("select layer %s: not found", id)
	}
	s.selection = id
	return nil
}

// AddLayer validates and appends a layer, assigning a fresh id when the spec
// has none, and commits one history entry. The new layer goes on top.
func (s *Session) AddLayer(spec domain.Layer) (string, error) {
	l := spec.Clone()
	if l.ID == "" {
		l.ID = domain.NewLayerID(l.Kind)
	}
	if l.Name == "" {
		l.Name = string(l.Kind)
	}
	if l.ScaleX == 0 {
		l.ScaleX = 1
	}
	if l.ScaleY == 0 {
		l.ScaleY = 1
	}
	if err := l.Validate(); err != nil {
		return "", err
	}
	s.acquireSource(&l)
	s.project.Layers = append(s.project.Layers, l)
	s.commit()
	s.logger.Debug("layer added", "id", l.ID, "kind", l.Kind)
	return l.ID, nil
}

// AddBitmapLayer is the content-insertion ingress used by file import and
// generated textures: encoded bytes plus a suggested name. The payload must
// at least carry a decodable image header; a corrupt payload creates no
// layer.
func (s *Session) AddBitmapLayer(kind domain.LayerKind, name string, data []byte) (string, error) {
	if kind != domain.KindTexture && kind != domain.KindImage {
		return "", fmt.Errorf("bitmap layer kind %q not allowed", kind)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", &imagecache.DecodeError{Hash: imagecache.HashBytes(data), Err: err}
	}
	return s.AddLayer(domain.Layer{
		Kind: kind, Name: name, Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1,
		Source: &domain.BitmapSource{Data: data},
	})
}

// LayerUpdate is a partial update; nil fields keep their current value.
type LayerUpdate struct {
	Name     *string
	Visible  *bool
	Locked   *bool
	Opacity  *float64
	X        *float64
	Y        *float64
	Rotation *float64
	ScaleX   *float64
	ScaleY   *float64
	Text     *domain.TextPayload
	Shape    *domain.ShapePayload
}

// UpdateLayer applies the partial update, validates the result and commits
// one history entry. An invalid update leaves the layer untouched.
func (s *Session) UpdateLayer(id string, u LayerUpdate) error {
	idx := s.project.LayerIndex(id)
	if idx < 0 {
		return fmt.Errorf("update layer %s: not found", id)
	}
	l := s.project.Layers[idx].Clone()
	if u.Name != nil {
		l.Name = *u.Name
	}
	if u.Visible != nil {
		l.Visible = *u.Visible
	}
	if u.Locked != nil {
		l.Locked = *u.Locked
	}
	if u.Opacity != nil {
		l.Opacity = *u.Opacity
	}
	if u.X != nil {
		l.X = *u.X
	}
	if u.Y != nil {
		l.Y = *u.Y
	}
	if u.Rotation != nil {
		l.Rotation = *u.Rotation
	}
	if u.ScaleX != nil {
		l.ScaleX = *u.ScaleX
	}
	if u.ScaleY != nil {
		l.ScaleY = *u.ScaleY
	}
	if u.Text != nil {
		t := *u.Text
		l.Text = &t
	}
	if u.Shape != nil {
		sh := *u.Shape
		sh.Points = append([]float64(nil), u.Shape.Points...)
		l.Shape = &sh
	}
	if err := l.Validate(); err != nil {
		return err
	}
	s.project.Layers[idx] = l
	s.commit()
	return nil
}

// RemoveLayer deletes a layer and releases its bitmap source. Locked layers
// must be unlocked first.
func (s *Session) RemoveLayer(id string) error {
	idx := s.project.LayerIndex(id)
	if idx < 0 {
		return fmt.Errorf("remove layer %s: not found", id)
	}
	l := s.project.Layers[idx]
	if l.Locked {
		return fmt.Errorf("remove layer %s: locked", id)
	}
	s.releaseSource(l)
	s.project.Layers = append(s.project.Layers[:idx], s.project.Layers[idx+1:]...)
	if s.selection == id {
		s.selection = ""
	}
	s.commit()
	s.logger.Debug("layer removed", "id", id)
	return nil
}

// Reorder moves a layer to a new z position. Array order is the only paint
// priority; index 0 is the bottom.
func (s *Session) Reorder(id string, newIndex int) error {
	idx := s.project.LayerIndex(id)
	if idx < 0 {
		return fmt.Errorf("reorder layer %s: not found", id)
	}
	if newIndex < 0 || newIndex >= len(s.project.Layers) {
		return fmt.Errorf("reorder layer %s: index %d out of range", id, newIndex)
	}
	if newIndex == idx {
		return nil
	}
	l := s.project.Layers[idx]
	rest := append(s.project.Layers[:idx:idx], s.project.Layers[idx+1:]...)
	s.project.Layers = append(rest[:newIndex:newIndex], append([]domain.Layer{l}, rest[newIndex:]...)...)
	s.commit()
	return nil
}

// AppendStroke commits a finished stroke onto a brush layer. Strokes are
// immutable once appended; editing means deleting the layer.
func (s *Session) AppendStroke(layerID string, stroke domain.BrushStroke) error {
	idx := s.project.LayerIndex(layerID)
	if idx < 0 {
		return fmt.Errorf("append stroke: layer %s not found", layerID)
	}
	l := &s.project.Layers[idx]
	if l.Kind != domain.KindBrush {
		return fmt.Errorf("append stroke: layer %s is %s, not brush", layerID, l.Kind)
	}
	if l.Locked {
		return fmt.Errorf("append stroke: layer %s locked", layerID)
	}
	if err := stroke.Validate(); err != nil {
		return err
	}
	l.Strokes = append(l.Strokes, stroke)
	if s.pendingLayerID == layerID {
		s.pendingStroke = nil
		s.pendingLayerID = ""
	}
	s.commit()
	return nil
}

// SetPendingStroke previews an in-progress stroke without touching history.
func (s *Session) SetPendingStroke(layerID string, stroke *domain.BrushStroke) {
	s.pendingStroke = stroke
	s.pendingLayerID = layerID
}

// ClearPendingStroke drops the stroke preview.
func (s *Session) ClearPendingStroke() {
	s.pendingStroke = nil
	s.pendingLayerID = ""
}

// Undo steps back one committed mutation. It reports false at the oldest
// retained state.
func (s *Session) Undo() bool {
	layers, ok := s.hist.Undo()
	if !ok {
		return false
	}
	s.restore(layers)
	return true
}

// Redo steps forward after an undo. It reports false at the newest state.
func (s *Session) Redo() bool {
	layers, ok := s.hist.Redo()
	if !ok {
		return false
	}
	s.restore(layers)
	return true
}

// CanUndo reports whether an undo step is available.
func (s *Session) CanUndo() bool { return s.hist.CanUndo() }

// CanRedo reports whether a redo step is available.
func (s *Session) CanRedo() bool { return s.hist.CanRedo() }

// Reset replaces the whole project and reinitializes history to a single
// entry, dropping undo and redo.
func (s *Session) Reset(project domain.Project) {
	old := s.project.Layers
	s.project = project.Clone()
	for i := range s.project.Layers {
		s.acquireSource(&s.project.Layers[i])
	}
	for _, l := range old {
		s.releaseSource(l)
	}
	s.hist.Reset(s.project.Layers)
	s.selection = ""
	s.pendingStroke = nil
	s.pendingLayerID = ""
	s.dirty = false
}

// Composite renders the current state including the stroke preview. This is
// the pull accessor external previewers call whenever they want a fresh
// frame.
func (s *Session) Composite() (*image.RGBA, error) {
	return s.compose(true)
}

// CompositeForExport renders without any transient artifacts.
func (s *Session) CompositeForExport() (*image.RGBA, error) {
	return s.compose(false)
}

// Compositor exposes the session's compositor for the export pipeline.
func (s *Session) Compositor() *render.Compositor { return s.comp }

// RenderParams builds the compositing parameters for the current state.
// includePending controls whether the stroke preview rides along.
func (s *Session) RenderParams(includePending bool) (render.Params, error) {
	p := render.Params{
		Project: s.project,
		Bitmaps: s.resolveBitmap,
	}
	if s.masks != nil && s.project.Model != "" {
		mask, err := s.masks.Mask(s.project.Model)
		if err != nil {
			return p, fmt.Errorf("resolve mask: %w", err)
		}
		p.Mask = mask
	}
	if includePending && s.pendingStroke != nil {
		p.PendingStroke = s.pendingStroke
		p.PendingLayerID = s.pendingLayerID
	}
	return p, nil
}

func (s *Session) compose(includePending bool) (*image.RGBA, error) {
	p, err := s.RenderParams(includePending)
	if err != nil {
		return nil, err
	}
	return s.comp.Compose(p)
}

func (s *Session) resolveBitmap(hash string) image.Image {
	img, ready, err := s.cache.Bitmap(hash)
	if err != nil || !ready {
		return nil
	}
	return img
}

// WaitBitmap blocks until the async decode for hash settles or ctx expires.
// Headless callers (export, batch render) use it to avoid racing the cache.
func (s *Session) WaitBitmap(ctx context.Context, hash string) error {
	_, err := s.cache.Wait(ctx, hash)
	return err
}

func (s *Session) commit() {
	s.hist.Commit(s.project.Layers)
	s.dirty = true
}

// restore swaps in a history snapshot and reconciles bitmap references:
// sources appearing in the snapshot are re-acquired, sources that vanish are
// released. Payload bytes live on the layer, so a source evicted between
// remove and undo decodes again transparently.
func (s *Session) restore(layers []domain.Layer) {
	old := s.project.Layers
	for i := range layers {
		s.acquireSource(&layers[i])
	}
	for _, l := range old {
		s.releaseSource(l)
	}
	s.project.Layers = layers
	if s.selection != "" && s.project.LayerIndex(s.selection) < 0 {
		s.selection = ""
	}
	s.dirty = true
}

func (s *Session) acquireSource(l *domain.Layer) {
	if l.Source == nil || len(l.Source.Data) == 0 {
		return
	}
	if l.Source.Hash != "" && s.cache.Retain(l.Source.Hash) {
		return
	}
	l.Source.Hash = s.cache.Acquire(l.Source.Data)
}

func (s *Session) releaseSource(l domain.Layer) {
	if l.Source != nil && l.Source.Hash != "" {
		s.cache.Release(l.Source.Hash)
	}
}
