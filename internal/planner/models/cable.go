package models

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// Cables
// ============================================================

type CableMode string

const (
	CableDetailed CableMode = "detailed"
	CableSimple   CableMode = "simple"
)

type LineStyle string

const (
	LineSolid  LineStyle = "solid"
	LineDashed LineStyle = "dashed"
)

const (
	// CableDefaultColor doubles as the LAN color: summaries only count cables drawn in it.
	CableDefaultColor = "#00AA00"
	LANColor          = CableDefaultColor
)

// CableColors is the palette offered for cables.
var CableColors = []string{"#00AA00", "#333333", "#FF6B6B", "#4ECDC4", "#95E1D3", "#FFA07A", "#9370DB"}

// Route is the mode-specific part of a cable: either *DetailedRoute or *SimpleRoute.
type Route interface {
	Mode() CableMode
	LineStyle() LineStyle
	clone() Route
}

// DetailedRoute is a polyline through waypoints; its length comes from geometry.
type DetailedRoute struct {
	Waypoints []Point
	LengthPx  float64
}

func (r *DetailedRoute) Mode() CableMode      { return CableDetailed }
func (r *DetailedRoute) LineStyle() LineStyle { return LineSolid }

func (r *DetailedRoute) clone() Route {
	wp := make([]Point, len(r.Waypoints))
	copy(wp, r.Waypoints)
	return &DetailedRoute{Waypoints: wp, LengthPx: r.LengthPx}
}

// SimpleRoute carries a manually entered length in meters.
type SimpleRoute struct {
	ManualLength float64
}

func (r *SimpleRoute) Mode() CableMode      { return CableSimple }
func (r *SimpleRoute) LineStyle() LineStyle { return LineDashed }
func (r *SimpleRoute) clone() Route         { return &SimpleRoute{ManualLength: r.ManualLength} }

type Cable struct {
	ID           string
	Name         string
	FromDeviceID string
	ToDeviceID   string
	Color        string
	Route        Route

	// Derived, see registry.Recalculate.
	LengthM          float64
	Offset           float64
	LengthWithMargin float64
	RoundedLength    *float64
}

func (c Cable) Mode() CableMode {
	if c.Route == nil {
		return ""
	}
	return c.Route.Mode()
}

func (c Cable) LineStyle() LineStyle {
	if c.Route == nil {
		return LineSolid
	}
	return c.Route.LineStyle()
}

// FinalLength is the length used for purchasing: rounded when rounding is on.
func (c Cable) FinalLength() float64 {
	if c.RoundedLength != nil {
		return *c.RoundedLength
	}
	return c.LengthWithMargin
}

// Clone returns a deep copy so callers cannot mutate registry state.
func (c Cable) Clone() Cable {
	out := c
	if c.Route != nil {
		out.Route = c.Route.clone()
	}
	if c.RoundedLength != nil {
		v := *c.RoundedLength
		out.RoundedLength = &v
	}
	return out
}

// ============================================================
// JSON wire format
// ============================================================

type cableWire struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	FromDeviceID     string    `json:"fromDeviceId"`
	ToDeviceID       string    `json:"toDeviceId"`
	Mode             CableMode `json:"mode"`
	Color            string    `json:"color"`
	LineStyle        LineStyle `json:"lineStyle"`
	LengthM          float64   `json:"lengthM"`
	Offset           float64   `json:"offset"`
	LengthWithMargin float64   `json:"lengthWithMargin"`
	RoundedLength    *float64  `json:"roundedLength,omitempty"`
}

type detailedWire struct {
	cableWire
	Waypoints []Point `json:"waypoints"`
	LengthPx  float64 `json:"lengthPx"`
}

type simpleWire struct {
	cableWire
	ManualLength float64 `json:"manualLength"`
}

type cableDecodeWire struct {
	cableWire
	Waypoints    []Point  `json:"waypoints"`
	LengthPx     float64  `json:"lengthPx"`
	ManualLength *float64 `json:"manualLength"`
}

func (c Cable) MarshalJSON() ([]byte, error) {
	base := cableWire{
		ID:               c.ID,
		Name:             c.Name,
		FromDeviceID:     c.FromDeviceID,
		ToDeviceID:       c.ToDeviceID,
		Mode:             c.Mode(),
		Color:            c.Color,
		LineStyle:        c.LineStyle(),
		LengthM:          c.LengthM,
		Offset:           c.Offset,
		LengthWithMargin: c.LengthWithMargin,
		RoundedLength:    c.RoundedLength,
	}

	switch r := c.Route.(type) {
	case *DetailedRoute:
		wp := r.Waypoints
		if wp == nil {
			wp = []Point{}
		}
		return json.Marshal(detailedWire{cableWire: base, Waypoints: wp, LengthPx: r.LengthPx})
	case *SimpleRoute:
		return json.Marshal(simpleWire{cableWire: base, ManualLength: r.ManualLength})
	default:
		return nil, fmt.Errorf("cable %s: no route", c.ID)
	}
}

func (c *Cable) UnmarshalJSON(data []byte) error {
	var w cableDecodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	var route Route
	switch w.Mode {
	case CableDetailed:
		wp := w.Waypoints
		if wp == nil {
			wp = []Point{}
		}
		route = &DetailedRoute{Waypoints: wp, LengthPx: w.LengthPx}
	case CableSimple:
		manual := w.LengthM
		if w.ManualLength != nil {
			manual = *w.ManualLength
		}
		route = &SimpleRoute{ManualLength: manual}
	default:
		return fmt.Errorf("%w: cable %q has unknown mode %q", ErrInvalidProjectData, w.ID, w.Mode)
	}

	*c = Cable{
		ID:               w.ID,
		Name:             w.Name,
		FromDeviceID:     w.FromDeviceID,
		ToDeviceID:       w.ToDeviceID,
		Color:            w.Color,
		Route:            route,
		LengthM:          w.LengthM,
		Offset:           w.Offset,
		LengthWithMargin: w.LengthWithMargin,
		RoundedLength:    w.RoundedLength,
	}
	return nil
}
