package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cable-planner/internal/common/logger"
	"cable-planner/internal/planner/export"
	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/imageio"
	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/project"
	"cable-planner/internal/planner/render"
	"cable-planner/internal/planner/storage"

	"go.uber.org/zap"
)

// ============================================================
// Workspace
// ============================================================

// ErrNoStorage is returned by slot and export operations when the
// workspace runs without the corresponding backend.
var ErrNoStorage = errors.New("storage not configured")

type Options struct {
	Slot          *storage.Slot
	Exports       *storage.ExportDir
	Autosave      bool
	MaxImageBytes int64
	Logger        *zap.Logger
}

// Workspace is the single open project. All access is serialised; every
// successful mutation is written to the slot when autosave is on.
type Workspace struct {
	mu       sync.Mutex
	project  *project.Project
	slot     *storage.Slot
	exports  *storage.ExportDir
	autosave bool
	maxImage int64
	log      *zap.Logger
	now      func() time.Time
}

func NewWorkspace(opts Options) *Workspace {
	log := opts.Logger
	if log == nil {
		log = logger.L()
	}
	return &Workspace{
		project:  project.New(),
		slot:     opts.Slot,
		exports:  opts.Exports,
		autosave: opts.Autosave,
		maxImage: opts.MaxImageBytes,
		log:      log.With(zap.String("component", "workspace")),
		now:      time.Now,
	}
}

// mutate runs fn under the lock and autosaves when fn reports a change.
func (w *Workspace) mutate(ctx context.Context, fn func(p *project.Project) (bool, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed, err := fn(w.project)
	if err != nil {
		return err
	}
	if changed {
		w.persist(ctx)
	}
	return nil
}

func (w *Workspace) persist(ctx context.Context) {
	if !w.autosave || w.slot == nil {
		return
	}
	if err := w.slot.Save(ctx, w.project.Export()); err != nil {
		w.log.Warn("autosave failed", zap.Error(err))
	}
}

func (w *Workspace) read(fn func(p *project.Project)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.project)
}

// ============================================================
// Project
// ============================================================

func (w *Workspace) Snapshot() models.ProjectData {
	var data models.ProjectData
	w.read(func(p *project.Project) { data = p.Export() })
	return data
}

func (w *Workspace) Summary() project.Summary {
	var s project.Summary
	w.read(func(p *project.Project) { s = p.Summary() })
	return s
}

func (w *Workspace) Import(ctx context.Context, data models.ProjectData) error {
	return w.mutate(ctx, func(p *project.Project) (bool, error) {
		if err := p.Import(data); err != nil {
			return false, err
		}
		w.log.Info("project imported",
			zap.Int("devices", len(data.Devices)),
			zap.Int("cables", len(data.Cables)))
		return true, nil
	})
}

// ImportFile parses a project file and imports it.
func (w *Workspace) ImportFile(ctx context.Context, r io.Reader) error {
	data, err := imageio.ReadProjectFile(ctx, r)
	if err != nil {
		return err
	}
	return w.Import(ctx, data)
}

func (w *Workspace) Reset(ctx context.Context) {
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		p.Reset()
		return true, nil
	})
}

// ============================================================
// Image & scale
// ============================================================

func (w *Workspace) UploadImage(ctx context.Context, r io.Reader) (models.Image, error) {
	img, err := imageio.ReadImage(ctx, r, w.maxImage)
	if err != nil {
		return models.Image{}, err
	}
	err = w.mutate(ctx, func(p *project.Project) (bool, error) {
		p.SetImage(img.DataURL, img.Width, img.Height)
		return true, nil
	})
	return img, err
}

func (w *Workspace) ClearImage(ctx context.Context) {
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		p.ClearImage()
		return true, nil
	})
}

func (w *Workspace) SetScale(ctx context.Context, x1, y1, x2, y2, realLength float64) (models.Scale, error) {
	var sc models.Scale
	err := w.mutate(ctx, func(p *project.Project) (bool, error) {
		if err := p.SetScale(x1, y1, x2, y2, realLength); err != nil {
			return false, err
		}
		sc, _ = p.Scale()
		return true, nil
	})
	return sc, err
}

func (w *Workspace) ClearScale(ctx context.Context) {
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		p.ClearScale()
		return true, nil
	})
}

func (w *Workspace) UpdateSettings(ctx context.Context, patch models.SettingsPatch) (models.Settings, error) {
	var s models.Settings
	err := w.mutate(ctx, func(p *project.Project) (bool, error) {
		if err := p.UpdateSettings(patch); err != nil {
			return false, err
		}
		s = p.Settings()
		return true, nil
	})
	return s, err
}

// ============================================================
// Devices
// ============================================================

func (w *Workspace) Devices() []models.Device {
	var out []models.Device
	w.read(func(p *project.Project) { out = p.Devices().All() })
	return out
}

func (w *Workspace) Device(id string) (models.Device, bool) {
	var (
		d  models.Device
		ok bool
	)
	w.read(func(p *project.Project) { d, ok = p.Devices().DeviceByID(id) })
	return d, ok
}

// FindDevice returns the first device within threshold of (x, y).
func (w *Workspace) FindDevice(x, y, threshold float64) (models.Device, bool) {
	var (
		d  models.Device
		ok bool
	)
	w.read(func(p *project.Project) { d, ok = p.Devices().FindNear(x, y, threshold) })
	return d, ok
}

func (w *Workspace) AddDevice(ctx context.Context, t models.DeviceType, x, y float64, name string) (models.Device, error) {
	var d models.Device
	err := w.mutate(ctx, func(p *project.Project) (bool, error) {
		var err error
		d, err = p.AddDevice(t, x, y, name)
		return err == nil, err
	})
	return d, err
}

func (w *Workspace) MoveDevice(ctx context.Context, id string, x, y float64) (models.Device, bool) {
	var (
		d  models.Device
		ok bool
	)
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		if ok = p.MoveDevice(id, x, y); ok {
			d, _ = p.Devices().DeviceByID(id)
		}
		return ok, nil
	})
	return d, ok
}

func (w *Workspace) RenameDevice(ctx context.Context, id, name string) (models.Device, bool) {
	var (
		d  models.Device
		ok bool
	)
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		if ok = p.RenameDevice(id, name); ok {
			d, _ = p.Devices().DeviceByID(id)
		}
		return ok, nil
	})
	return d, ok
}

// RemoveDevice deletes a device with its cables and returns how many
// cables were removed.
func (w *Workspace) RemoveDevice(ctx context.Context, id string) (bool, int) {
	var (
		ok      bool
		removed int
	)
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		ok, removed = p.RemoveDevice(id)
		return ok, nil
	})
	return ok, removed
}

// ============================================================
// Cables
// ============================================================

func (w *Workspace) Cables() []models.Cable {
	var out []models.Cable
	w.read(func(p *project.Project) { out = p.Cables().All() })
	return out
}

func (w *Workspace) Cable(id string) (models.Cable, bool) {
	var (
		c  models.Cable
		ok bool
	)
	w.read(func(p *project.Project) { c, ok = p.Cables().CableByID(id) })
	return c, ok
}

func (w *Workspace) AddDetailedCable(ctx context.Context, fromID, toID string, waypoints []models.Point, name, color string) (models.Cable, error) {
	var c models.Cable
	err := w.mutate(ctx, func(p *project.Project) (bool, error) {
		var err error
		c, err = p.AddDetailedCable(fromID, toID, waypoints, name, color)
		return err == nil, err
	})
	return c, err
}

func (w *Workspace) AddSimpleCable(ctx context.Context, fromID, toID string, manualLength float64, name, color string) (models.Cable, error) {
	var c models.Cable
	err := w.mutate(ctx, func(p *project.Project) (bool, error) {
		var err error
		c, err = p.AddSimpleCable(fromID, toID, manualLength, name, color)
		return err == nil, err
	})
	return c, err
}

// OrthogonalRoute snaps each waypoint to the dominant axis of the step
// from the previous point, starting at start.
func OrthogonalRoute(start models.Point, waypoints []models.Point) []models.Point {
	out := make([]models.Point, len(waypoints))
	prev := start
	for i, wp := range waypoints {
		out[i] = geometry.ConstrainOrthogonal(prev, wp)
		prev = out[i]
	}
	return out
}

// CableUpdate carries the editable cable fields; nil means unchanged.
type CableUpdate struct {
	Name   *string
	Offset *float64
	Color  *string
}

// UpdateCable applies u in order name, offset, color. It reports whether
// the cable exists and whether the rename was accepted.
func (w *Workspace) UpdateCable(ctx context.Context, id string, u CableUpdate) (models.Cable, bool, error) {
	var (
		c     models.Cable
		found bool
	)
	err := w.mutate(ctx, func(p *project.Project) (bool, error) {
		cables := p.Cables()
		if _, found = cables.CableByID(id); !found {
			return false, nil
		}
		if u.Name != nil && !cables.Rename(id, *u.Name) {
			return false, fmt.Errorf("%w: cable name %q already used", models.ErrDuplicateName, *u.Name)
		}
		if u.Offset != nil {
			cables.SetOffset(id, *u.Offset)
		}
		if u.Color != nil {
			cables.SetColor(id, *u.Color)
		}
		c, _ = cables.CableByID(id)
		return true, nil
	})
	return c, found, err
}

func (w *Workspace) RemoveCable(ctx context.Context, id string) bool {
	var ok bool
	_ = w.mutate(ctx, func(p *project.Project) (bool, error) {
		ok = p.Cables().Remove(id)
		return ok, nil
	})
	return ok
}

// ============================================================
// Exports
// ============================================================

func report(p *project.Project) export.Report {
	return export.Report{
		Cables:  p.Cables().All(),
		Devices: p.Devices().All(),
		Summary: p.Cables().SortedSummary(),
		Stats:   p.Cables().Stats(),
	}
}

func (w *Workspace) CSV() (string, error) {
	var r export.Report
	w.read(func(p *project.Project) { r = report(p) })
	return export.CSV(r)
}

func (w *Workspace) SVG() (string, error) {
	var l render.Layout
	w.read(func(p *project.Project) { l = render.FromProject(p) })
	return render.NewSVGRenderer().Render(l)
}

func (w *Workspace) Screenshot() ([]byte, error) {
	var l render.Layout
	w.read(func(p *project.Project) { l = render.FromProject(p) })
	return render.NewPNGRenderer().Bytes(l)
}

// ExportPaths lists the files written by ExportToDisk.
type ExportPaths struct {
	Project    string `json:"project"`
	CSV        string `json:"csv"`
	Screenshot string `json:"screenshot"`
}

// ExportToDisk writes the project file, the CSV and the screenshot into
// the export directory under one timestamp.
func (w *Workspace) ExportToDisk(ctx context.Context) (ExportPaths, error) {
	if w.exports == nil {
		return ExportPaths{}, ErrNoStorage
	}
	if err := ctx.Err(); err != nil {
		return ExportPaths{}, err
	}

	var (
		data   models.ProjectData
		r      export.Report
		layout render.Layout
	)
	w.read(func(p *project.Project) {
		data = p.Export()
		r = report(p)
		layout = render.FromProject(p)
	})

	var png bytes.Buffer
	if err := render.NewPNGRenderer().Render(&png, layout); err != nil {
		return ExportPaths{}, err
	}

	at := w.now()
	var (
		paths ExportPaths
		err   error
	)
	if paths.Project, err = w.exports.WriteProject(data, at); err != nil {
		return ExportPaths{}, err
	}
	if paths.CSV, err = w.exports.WriteCSV(r, at); err != nil {
		return ExportPaths{}, err
	}
	if paths.Screenshot, err = w.exports.WriteScreenshot(png.Bytes(), at); err != nil {
		return ExportPaths{}, err
	}

	w.log.Info("project exported", zap.String("dir", w.exports.Root()))
	return paths, nil
}

// ============================================================
// Slot
// ============================================================

func (w *Workspace) SaveSlot(ctx context.Context) error {
	if w.slot == nil {
		return ErrNoStorage
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.slot.Save(ctx, w.project.Export())
}

// LoadSlot replaces the project with the saved one. It reports false when
// the slot is empty or unreadable, leaving the project untouched.
func (w *Workspace) LoadSlot(ctx context.Context) (bool, error) {
	if w.slot == nil {
		return false, ErrNoStorage
	}
	data, ok, err := w.slot.Load(ctx)
	if err != nil || !ok {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.project.Import(data); err != nil {
		w.log.Warn("saved project rejected", zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (w *Workspace) ClearSlot(ctx context.Context) error {
	if w.slot == nil {
		return ErrNoStorage
	}
	return w.slot.Clear(ctx)
}
