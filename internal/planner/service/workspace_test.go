package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cable-planner/internal/planner/export"
	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/storage"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlot(t *testing.T) *storage.Slot {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	slot := storage.NewSlot(db, nil)
	require.NoError(t, slot.Init(context.Background()))
	return slot
}

func TestWorkspaceAutosave(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	ws := NewWorkspace(Options{Slot: slot, Autosave: true})

	d, err := ws.AddDevice(ctx, models.DeviceRouter, 10, 20, "")
	require.NoError(t, err)
	assert.Equal(t, "Router-1", d.Name)

	saved, ok, err := slot.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, saved.Devices, 1)
	assert.Equal(t, d.ID, saved.Devices[0].ID)

	// A fresh workspace picks the saved project up.
	other := NewWorkspace(Options{Slot: slot})
	loaded, err := other.LoadSlot(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Len(t, other.Devices(), 1)
}

func TestWorkspaceNoAutosave(t *testing.T) {
	ctx := context.Background()
	slot := newSlot(t)
	ws := NewWorkspace(Options{Slot: slot})

	_, err := ws.AddDevice(ctx, models.DevicePC, 0, 0, "")
	require.NoError(t, err)

	_, ok, err := slot.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ws.SaveSlot(ctx))
	_, ok, err = slot.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ws.ClearSlot(ctx))
	ok, err = ws.LoadSlot(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWorkspaceWithoutStorage(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(Options{Autosave: true})

	_, err := ws.AddDevice(ctx, models.DevicePC, 0, 0, "")
	require.NoError(t, err)

	assert.ErrorIs(t, ws.SaveSlot(ctx), ErrNoStorage)
	_, err = ws.ExportToDisk(ctx)
	assert.ErrorIs(t, err, ErrNoStorage)
}

func TestWorkspaceCableFlow(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(Options{})

	a, err := ws.AddDevice(ctx, models.DeviceRouter, 0, 0, "")
	require.NoError(t, err)
	b, err := ws.AddDevice(ctx, models.DevicePoESW, 300, 0, "")
	require.NoError(t, err)

	_, err = ws.AddDetailedCable(ctx, a.ID, b.ID, nil, "", "")
	assert.ErrorIs(t, err, models.ErrScaleNotSet)

	sc, err := ws.SetScale(ctx, 0, 0, 100, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, 100.0, sc.PixelPerMeter)

	c, err := ws.AddDetailedCable(ctx, a.ID, b.ID, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, 3.0, c.LengthM)

	s, err := ws.AddSimpleCable(ctx, a.ID, b.ID, 12, "uplink", "")
	require.NoError(t, err)

	name := "uplink"
	_, found, err := ws.UpdateCable(ctx, c.ID, CableUpdate{Name: &name})
	assert.True(t, found)
	assert.ErrorIs(t, err, models.ErrDuplicateName)

	offset := 2.0
	updated, found, err := ws.UpdateCable(ctx, c.ID, CableUpdate{Offset: &offset})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2.0, updated.Offset)
	assert.InDelta(t, 5.5, updated.LengthWithMargin, 1e-9)

	_, found, err = ws.UpdateCable(ctx, "missing", CableUpdate{Offset: &offset})
	require.NoError(t, err)
	assert.False(t, found)

	moved, ok := ws.MoveDevice(ctx, b.ID, 400, 0)
	require.True(t, ok)
	assert.Equal(t, 400.0, moved.X)
	got, _ := ws.Cable(c.ID)
	assert.Equal(t, 4.0, got.LengthM)

	ok, removed := ws.RemoveDevice(ctx, a.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, removed)
	assert.Empty(t, ws.Cables())
	assert.False(t, ws.RemoveCable(ctx, s.ID))
}

func TestWorkspaceUploadImage(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(Options{MaxImageBytes: 1 << 20})

	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	img.Set(1, 1, color.White)
	require.NoError(t, png.Encode(&buf, img))

	got, err := ws.UploadImage(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 64, got.Width)
	assert.Equal(t, 32, got.Height)
	assert.True(t, strings.HasPrefix(got.DataURL, "data:image/png;base64,"))

	snap := ws.Snapshot()
	require.NotNil(t, snap.Image)
	assert.Equal(t, 64, snap.Image.Width)

	small := NewWorkspace(Options{MaxImageBytes: 4})
	_, err = small.UploadImage(ctx, strings.NewReader("0123456789"))
	assert.ErrorIs(t, err, models.ErrImageTooLarge)
	assert.Nil(t, small.Snapshot().Image)
}

func TestWorkspaceImportFile(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(Options{})

	err := ws.ImportFile(ctx, strings.NewReader("{not json"))
	assert.ErrorIs(t, err, models.ErrFileParse)

	err = ws.ImportFile(ctx, strings.NewReader(`{"version":"2.0","devices":[],"cables":[]}`))
	assert.ErrorIs(t, err, models.ErrVersionMismatch)

	err = ws.ImportFile(ctx, strings.NewReader(`{"version":"1.0","devices":[{"id":"d1","type":"pc","name":"PC-4","x":1,"y":2,"color":"#FFD93D"}],"cables":[]}`))
	require.NoError(t, err)
	assert.Len(t, ws.Devices(), 1)

	d, err := ws.AddDevice(ctx, models.DevicePC, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, "PC-5", d.Name)
}

func TestWorkspaceExportToDisk(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	ws := NewWorkspace(Options{Exports: storage.NewExportDir(root)})
	ws.now = func() time.Time { return time.Date(2024, time.March, 4, 5, 6, 7, 0, time.UTC) }

	a, err := ws.AddDevice(ctx, models.DeviceRouter, 10, 10, "")
	require.NoError(t, err)
	b, err := ws.AddDevice(ctx, models.DevicePC, 200, 10, "")
	require.NoError(t, err)
	_, err = ws.AddSimpleCable(ctx, a.ID, b.ID, 7, "", "")
	require.NoError(t, err)

	paths, err := ws.ExportToDisk(ctx)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "project_20240304_050607.json"), paths.Project)
	assert.Equal(t, filepath.Join(root, "project_20240304_050607.csv"), paths.CSV)
	assert.Equal(t, filepath.Join(root, "cable_layout_20240304_050607.png"), paths.Screenshot)

	raw, err := os.ReadFile(paths.CSV)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), export.BOM))
	assert.Contains(t, string(raw), "Router-1")

	raw, err = os.ReadFile(paths.Screenshot)
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestWorkspaceReset(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(Options{})

	_, err := ws.AddDevice(ctx, models.DeviceAP, 0, 0, "")
	require.NoError(t, err)
	margin := 25.0
	_, err = ws.UpdateSettings(ctx, models.SettingsPatch{MarginRate: &margin})
	require.NoError(t, err)

	ws.Reset(ctx)
	snap := ws.Snapshot()
	assert.Empty(t, snap.Devices)
	assert.Equal(t, models.DefaultSettings(), snap.Settings)
}

func TestOrthogonalRoute(t *testing.T) {
	got := OrthogonalRoute(models.Point{X: 0, Y: 0}, []models.Point{{X: 50, Y: 5}, {X: 55, Y: 80}})
	assert.Equal(t, []models.Point{{X: 50, Y: 0}, {X: 50, Y: 80}}, got)
}

func TestWorkspaceFindDevice(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspace(Options{})

	d, err := ws.AddDevice(ctx, models.DeviceOutlet, 100, 100, "")
	require.NoError(t, err)

	got, ok := ws.FindDevice(110, 100, models.SnapDistance)
	require.True(t, ok)
	assert.Equal(t, d.ID, got.ID)

	_, ok = ws.FindDevice(200, 200, models.SnapDistance)
	assert.False(t, ok)
}
