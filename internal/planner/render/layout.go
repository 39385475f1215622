package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/project"
	"cable-planner/internal/planner/registry"
)

const (
	DeviceIconSize = 30
	LineWidth      = 2
	dashOn         = 8.0
	dashOff        = 6.0
	padding        = 40.0
)

// Layout is the state a renderer draws; it is read-only for the renderer.
type Layout struct {
	Image    *models.Image
	Devices  []models.Device
	Cables   []models.Cable
	Settings models.Settings
}

func FromProject(p *project.Project) Layout {
	l := Layout{
		Devices:  p.Devices().All(),
		Cables:   p.Cables().All(),
		Settings: p.Settings(),
	}
	if img, ok := p.Image(); ok {
		l.Image = &img
	}
	return l
}

func (l Layout) deviceIndex() map[string]models.Device {
	idx := make(map[string]models.Device, len(l.Devices))
	for _, d := range l.Devices {
		idx[d.ID] = d
	}
	return idx
}

// cablePath returns the drawn points of a cable: through its waypoints when
// detailed, straight when simple. ok is false when an endpoint is missing.
func cablePath(c models.Cable, devices map[string]models.Device) ([]models.Point, bool) {
	from, ok1 := devices[c.FromDeviceID]
	to, ok2 := devices[c.ToDeviceID]
	if !ok1 || !ok2 {
		return nil, false
	}

	points := []models.Point{from.Position()}
	if r, ok := c.Route.(*models.DetailedRoute); ok {
		points = append(points, r.Waypoints...)
	}
	return append(points, to.Position()), true
}

// size is the image size when there is one, otherwise the content extent.
func (l Layout) size() (float64, float64) {
	if l.Image != nil && l.Image.Width > 0 && l.Image.Height > 0 {
		return float64(l.Image.Width), float64(l.Image.Height)
	}

	maxX, maxY := 0.0, 0.0
	grow := func(p models.Point) {
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	for _, d := range l.Devices {
		grow(d.Position())
	}
	for _, c := range l.Cables {
		if r, ok := c.Route.(*models.DetailedRoute); ok {
			for _, p := range r.Waypoints {
				grow(p)
			}
		}
	}

	if maxX == 0 && maxY == 0 {
		return 1000, 1000
	}
	return math.Ceil(maxX + padding), math.Ceil(maxY + padding)
}

// midpoint is the point halfway along a polyline.
func midpoint(points []models.Point) models.Point {
	if len(points) == 0 {
		return models.Point{}
	}
	var total float64
	for i := 0; i+1 < len(points); i++ {
		total += segLen(points[i], points[i+1])
	}
	half := total / 2
	for i := 0; i+1 < len(points); i++ {
		l := segLen(points[i], points[i+1])
		if l > 0 && half <= l {
			t := half / l
			return models.Point{
				X: points[i].X + (points[i+1].X-points[i].X)*t,
				Y: points[i].Y + (points[i+1].Y-points[i].Y)*t,
			}
		}
		half -= l
	}
	return points[0]
}

func segLen(a, b models.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// lengthLabel is the length shown next to a cable.
func lengthLabel(c models.Cable) string {
	if c.RoundedLength != nil {
		return strconv.FormatFloat(*c.RoundedLength, 'f', -1, 64) + "m"
	}
	return registry.OneDecimal(c.LengthWithMargin) + "m"
}

// parseHexColor reads #RGB or #RRGGBB.
func parseHexColor(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("bad color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("bad color %q: %w", s, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
