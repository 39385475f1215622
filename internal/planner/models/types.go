package models

import "fmt"

// ============================================================
// Geometry primitives
// ============================================================

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ============================================================
// Devices
// ============================================================

type DeviceType string

const (
	DeviceRouter   DeviceType = "router"
	DevicePoESW    DeviceType = "poe_sw"
	DeviceAP       DeviceType = "ap"
	DevicePC       DeviceType = "pc"
	DeviceOutlet   DeviceType = "outlet"
	DeviceLANPatch DeviceType = "lan_patch"
	DeviceCustom   DeviceType = "custom"
)

// DeviceTypes lists every known type in palette order.
var DeviceTypes = []DeviceType{
	DeviceRouter,
	DevicePoESW,
	DeviceAP,
	DevicePC,
	DeviceOutlet,
	DeviceLANPatch,
	DeviceCustom,
}

var deviceTypeInfo = map[DeviceType]struct {
	prefix  string
	display string
	color   string
}{
	DeviceRouter:   {"Router", "Router", "#FF6B6B"},
	DevicePoESW:    {"SW", "PoE SW", "#4ECDC4"},
	DeviceAP:       {"AP", "AP", "#95E1D3"},
	DevicePC:       {"PC", "PC", "#FFD93D"},
	DeviceOutlet:   {"Outlet", "Power Outlet", "#FFA07A"},
	DeviceLANPatch: {"Patch", "LAN Patch", "#9370DB"},
	DeviceCustom:   {"Device", "Custom", "#A0A0A0"},
}

func (t DeviceType) Valid() bool {
	_, ok := deviceTypeInfo[t]
	return ok
}

// NamePrefix is the stem of auto-generated names, e.g. "SW" in "SW-3".
func (t DeviceType) NamePrefix() string {
	if info, ok := deviceTypeInfo[t]; ok {
		return info.prefix
	}
	return "Device"
}

func (t DeviceType) DisplayName() string {
	if info, ok := deviceTypeInfo[t]; ok {
		return info.display
	}
	return string(t)
}

func (t DeviceType) DefaultColor() string {
	if info, ok := deviceTypeInfo[t]; ok {
		return info.color
	}
	return deviceTypeInfo[DeviceCustom].color
}

type Device struct {
	ID    string     `json:"id"`
	Type  DeviceType `json:"type"`
	Name  string     `json:"name"`
	X     float64    `json:"x"`
	Y     float64    `json:"y"`
	Color string     `json:"color"`
}

func (d Device) Position() Point {
	return Point{X: d.X, Y: d.Y}
}

// ============================================================
// Calibration & background
// ============================================================

// Background images larger than this are refused; decoding one would
// need width*height*4 bytes.
const (
	MaxImageSide   = 16384
	MaxImagePixels = 40_000_000
)

type Image struct {
	DataURL string `json:"dataUrl"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// CheckImageSize reports ErrImageTooLarge for dimensions past the limits.
func CheckImageSize(width, height int) error {
	if width > MaxImageSide || height > MaxImageSide || width*height > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, width, height, MaxImagePixels)
	}
	return nil
}

type Scale struct {
	X1            float64 `json:"x1"`
	Y1            float64 `json:"y1"`
	X2            float64 `json:"x2"`
	Y2            float64 `json:"y2"`
	RealLength    float64 `json:"realLength"`
	PixelPerMeter float64 `json:"pixelPerMeter"`
}

// ============================================================
// Settings
// ============================================================

const (
	DefaultMarginRate   = 10.0
	DefaultRoundingMode = true
	DefaultShowLabels   = true
	DefaultShowGrid     = false

	GridSize     = 20
	SnapDistance = 15.0
)

type Settings struct {
	MarginRate   float64 `json:"marginRate"`
	RoundingMode bool    `json:"roundingMode"`
	ShowLabels   bool    `json:"showLabels"`
	ShowGrid     bool    `json:"showGrid"`
}

func DefaultSettings() Settings {
	return Settings{
		MarginRate:   DefaultMarginRate,
		RoundingMode: DefaultRoundingMode,
		ShowLabels:   DefaultShowLabels,
		ShowGrid:     DefaultShowGrid,
	}
}

// SettingsPatch carries a partial settings update; nil fields are left as is.
type SettingsPatch struct {
	MarginRate   *float64 `json:"marginRate,omitempty"`
	RoundingMode *bool    `json:"roundingMode,omitempty"`
	ShowLabels   *bool    `json:"showLabels,omitempty"`
	ShowGrid     *bool    `json:"showGrid,omitempty"`
}

// CableSettings is the subset of settings that drives derived cable lengths.
type CableSettings struct {
	MarginRate   float64
	RoundingMode bool
}

func (s Settings) CableSettings() CableSettings {
	return CableSettings{MarginRate: s.MarginRate, RoundingMode: s.RoundingMode}
}

// ============================================================
// Project file
// ============================================================

const ProjectVersion = "1.0"

type ProjectData struct {
	Version  string   `json:"version"`
	Image    *Image   `json:"image"`
	Scale    *Scale   `json:"scale"`
	Devices  []Device `json:"devices"`
	Cables   []Cable  `json:"cables"`
	Settings Settings `json:"settings"`
}
