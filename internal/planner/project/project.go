package project

import (
	"encoding/json"
	"fmt"
	"math"

	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/registry"
)

// ============================================================
// Project
// ============================================================

// Project owns the device and cable registries, the background image,
// the calibration scale and the settings block.
type Project struct {
	devices  *registry.Devices
	cables   *registry.Cables
	image    *models.Image
	scale    *models.Scale
	settings models.Settings
}

func New() *Project {
	p := &Project{
		devices: registry.NewDevices(),
		cables:  registry.NewCables(),
	}
	p.resetSettings()
	return p
}

func (p *Project) resetSettings() {
	p.settings = models.DefaultSettings()
	p.cables.ApplySettings(registry.SettingsUpdate{
		MarginRate:   &p.settings.MarginRate,
		RoundingMode: &p.settings.RoundingMode,
	})
}

func (p *Project) Devices() *registry.Devices { return p.devices }
func (p *Project) Cables() *registry.Cables   { return p.cables }
func (p *Project) Settings() models.Settings  { return p.settings }

// ============================================================
// Background image
// ============================================================

func (p *Project) SetImage(dataURL string, width, height int) {
	p.image = &models.Image{DataURL: dataURL, Width: width, Height: height}
}

func (p *Project) ClearImage() {
	p.image = nil
}

func (p *Project) Image() (models.Image, bool) {
	if p.image == nil {
		return models.Image{}, false
	}
	return *p.image, true
}

// ============================================================
// Calibration
// ============================================================

// SetScale calibrates pixels-per-meter from a reference segment and
// recomputes every detailed cable.
func (p *Project) SetScale(x1, y1, x2, y2, realLength float64) error {
	if !(realLength > 0) || math.IsInf(realLength, 1) {
		return fmt.Errorf("%w: got %v", models.ErrInvalidScale, realLength)
	}
	distancePx := geometry.Distance(models.Point{X: x1, Y: y1}, models.Point{X: x2, Y: y2})
	if distancePx == 0 {
		return fmt.Errorf("%w: reference segment has zero length", models.ErrInvalidScale)
	}
	ppm := distancePx / realLength
	if !(ppm > 0) || math.IsInf(ppm, 1) {
		return fmt.Errorf("%w: %v px over %v m is not a usable scale", models.ErrInvalidScale, distancePx, realLength)
	}

	p.scale = &models.Scale{
		X1:            x1,
		Y1:            y1,
		X2:            x2,
		Y2:            y2,
		RealLength:    realLength,
		PixelPerMeter: ppm,
	}
	p.cables.RecalcDetailedFromGeometry(p.devices, p.scale.PixelPerMeter)
	return nil
}

func (p *Project) ClearScale() {
	p.scale = nil
}

func (p *Project) HasScale() bool {
	return p.scale != nil
}

func (p *Project) Scale() (models.Scale, bool) {
	if p.scale == nil {
		return models.Scale{}, false
	}
	return *p.scale, true
}

func (p *Project) pixelPerMeter() float64 {
	if p.scale == nil {
		return 0
	}
	return p.scale.PixelPerMeter
}

// ============================================================
// Settings
// ============================================================

// UpdateSettings merges patch into the settings and forwards margin and
// rounding to the cable registry.
func (p *Project) UpdateSettings(patch models.SettingsPatch) error {
	if patch.MarginRate != nil && !models.ValidMarginRate(*patch.MarginRate) {
		return fmt.Errorf("%w: got %v", models.ErrInvalidSettings, *patch.MarginRate)
	}

	if patch.MarginRate != nil {
		p.settings.MarginRate = *patch.MarginRate
	}
	if patch.RoundingMode != nil {
		p.settings.RoundingMode = *patch.RoundingMode
	}
	if patch.ShowLabels != nil {
		p.settings.ShowLabels = *patch.ShowLabels
	}
	if patch.ShowGrid != nil {
		p.settings.ShowGrid = *patch.ShowGrid
	}

	p.cables.ApplySettings(registry.SettingsUpdate{
		MarginRate:   &p.settings.MarginRate,
		RoundingMode: &p.settings.RoundingMode,
	})
	return nil
}

// ============================================================
// Devices & cables
// ============================================================

func (p *Project) AddDevice(t models.DeviceType, x, y float64, name string) (models.Device, error) {
	if !t.Valid() {
		return models.Device{}, fmt.Errorf("%w: unknown device type %q", models.ErrInvalidProjectData, t)
	}
	return p.devices.Add(t, x, y, name), nil
}

// MoveDevice repositions a device and recomputes the detailed cables.
func (p *Project) MoveDevice(id string, x, y float64) bool {
	if !p.devices.Move(id, x, y) {
		return false
	}
	p.cables.RecalcDetailedFromGeometry(p.devices, p.pixelPerMeter())
	return true
}

func (p *Project) RenameDevice(id, name string) bool {
	return p.devices.Rename(id, name)
}

// RemoveDevice deletes a device and every cable attached to it.
// It reports whether the device existed and how many cables went with it.
func (p *Project) RemoveDevice(id string) (bool, int) {
	if !p.devices.Remove(id) {
		return false, 0
	}
	return true, p.cables.RemoveForDevice(id)
}

func (p *Project) AddDetailedCable(fromID, toID string, waypoints []models.Point, name, color string) (models.Cable, error) {
	if !p.HasScale() {
		return models.Cable{}, models.ErrScaleNotSet
	}
	return p.cables.AddDetailed(fromID, toID, waypoints, name, p.devices, p.scale.PixelPerMeter, color)
}

func (p *Project) AddSimpleCable(fromID, toID string, manualLength float64, name, color string) (models.Cable, error) {
	return p.cables.AddSimple(fromID, toID, manualLength, name, p.devices, color)
}

// Summary is the read model behind the summary tab and the CSV footer.
type Summary struct {
	ByLength    map[string]int        `json:"summary"`
	Rows        []registry.SummaryRow `json:"rows"`
	TotalLength float64               `json:"totalLength"`
	Stats       registry.Stats        `json:"stats"`
}

func (p *Project) Summary() Summary {
	return Summary{
		ByLength:    p.cables.Summary(),
		Rows:        p.cables.SortedSummary(),
		TotalLength: p.cables.TotalLength(),
		Stats:       p.cables.Stats(),
	}
}

// ============================================================
// Export / import
// ============================================================

func (p *Project) Export() models.ProjectData {
	data := models.ProjectData{
		Version:  models.ProjectVersion,
		Devices:  p.devices.Export(),
		Cables:   p.cables.Export(),
		Settings: p.settings,
	}
	if p.image != nil {
		img := *p.image
		data.Image = &img
	}
	if p.scale != nil {
		sc := *p.scale
		data.Scale = &sc
	}
	return data
}

// Import replaces the whole project with data. On any error the project
// is left untouched.
func (p *Project) Import(data models.ProjectData) error {
	if data.Version != models.ProjectVersion {
		return fmt.Errorf("%w: expected %s, got %q", models.ErrVersionMismatch, models.ProjectVersion, data.Version)
	}
	if err := data.Validate(); err != nil {
		return err
	}

	p.image = nil
	if data.Image != nil {
		img := *data.Image
		p.image = &img
	}
	p.scale = nil
	if data.Scale != nil {
		sc := *data.Scale
		p.scale = &sc
	}

	p.settings = data.Settings
	p.devices.Import(data.Devices)
	p.cables.Import(data.Cables)
	p.cables.ApplySettings(registry.SettingsUpdate{
		MarginRate:   &p.settings.MarginRate,
		RoundingMode: &p.settings.RoundingMode,
	})
	return nil
}

// MarshalJSON encodes the exported project.
func (p *Project) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Export())
}

// ImportJSON decodes a project file and imports it.
func (p *Project) ImportJSON(raw []byte) error {
	var data models.ProjectData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("%w: %w", models.ErrFileParse, err)
	}
	return p.Import(data)
}

// Reset clears image, scale, registries and settings.
func (p *Project) Reset() {
	p.image = nil
	p.scale = nil
	p.devices.Clear()
	p.cables.Clear()
	p.resetSettings()
}

func (p *Project) IsEmpty() bool {
	return p.image == nil &&
		p.scale == nil &&
		p.devices.Len() == 0 &&
		p.cables.Len() == 0
}
