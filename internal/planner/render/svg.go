package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"cable-planner/internal/planner/models"
)

// ============================================================
// SVG Renderer
// ============================================================

type SVGRenderer struct{}

func NewSVGRenderer() *SVGRenderer {
	return &SVGRenderer{}
}

// Render draws background, grid, cables, devices and labels, in that order.
func (r *SVGRenderer) Render(l Layout) (string, error) {
	width, height := l.size()
	devices := l.deviceIndex()

	var elements []string
	elements = append(elements, r.renderBackground(l)...)
	if l.Settings.ShowGrid {
		elements = append(elements, r.renderGrid(width, height)...)
	}
	elements = append(elements, r.renderCables(l.Cables, devices)...)
	elements = append(elements, r.renderDevices(l.Devices)...)
	if l.Settings.ShowLabels {
		elements = append(elements, r.renderLabels(l, devices)...)
	}

	var builder strings.Builder
	builder.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	builder.WriteString(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s">`,
		formatFloat(width), formatFloat(height), formatFloat(width), formatFloat(height)))
	builder.WriteString("\n")

	for _, elem := range elements {
		builder.WriteString("  ")
		builder.WriteString(elem)
		builder.WriteString("\n")
	}

	builder.WriteString(`</svg>`)
	return builder.String(), nil
}

// ============================================================
// Element renderers
// ============================================================

func (r *SVGRenderer) renderBackground(l Layout) []string {
	if l.Image == nil || l.Image.DataURL == "" {
		return nil
	}
	return []string{fmt.Sprintf(`<image href="%s" x="0" y="0" width="%d" height="%d" />`,
		html.EscapeString(l.Image.DataURL), l.Image.Width, l.Image.Height)}
}

func (r *SVGRenderer) renderGrid(width, height float64) []string {
	var out []string
	for x := float64(models.GridSize); x < width; x += models.GridSize {
		out = append(out, fmt.Sprintf(`<line x1="%s" y1="0" x2="%s" y2="%s" stroke="#e0e0e0" stroke-width="1" />`,
			formatFloat(x), formatFloat(x), formatFloat(height)))
	}
	for y := float64(models.GridSize); y < height; y += models.GridSize {
		out = append(out, fmt.Sprintf(`<line x1="0" y1="%s" x2="%s" y2="%s" stroke="#e0e0e0" stroke-width="1" />`,
			formatFloat(y), formatFloat(width), formatFloat(y)))
	}
	return out
}

func (r *SVGRenderer) renderCables(cables []models.Cable, devices map[string]models.Device) []string {
	var out []string

	for _, c := range cables {
		points, ok := cablePath(c, devices)
		if !ok {
			continue
		}

		pts := make([]string, len(points))
		for i, p := range points {
			pts[i] = formatPoint(p)
		}

		dash := ""
		if c.LineStyle() == models.LineDashed {
			dash = fmt.Sprintf(` stroke-dasharray="%s %s"`, formatFloat(dashOn), formatFloat(dashOff))
		}

		out = append(out, fmt.Sprintf(`<polyline id="%s" points="%s" fill="none" stroke="%s" stroke-width="%d"%s />`,
			html.EscapeString(c.ID), strings.Join(pts, " "), html.EscapeString(c.Color), LineWidth, dash))
	}

	return out
}

func (r *SVGRenderer) renderDevices(devices []models.Device) []string {
	var out []string
	half := float64(DeviceIconSize) / 2

	for _, d := range devices {
		out = append(out, fmt.Sprintf(`<rect id="%s" x="%s" y="%s" width="%d" height="%d" rx="4" fill="%s" stroke="#333" />`,
			html.EscapeString(d.ID), formatFloat(d.X-half), formatFloat(d.Y-half), DeviceIconSize, DeviceIconSize, html.EscapeString(d.Color)))
	}

	return out
}

func (r *SVGRenderer) renderLabels(l Layout, devices map[string]models.Device) []string {
	var out []string
	half := float64(DeviceIconSize) / 2

	for _, d := range l.Devices {
		out = append(out, fmt.Sprintf(`<text x="%s" y="%s" font-size="12" text-anchor="middle">%s</text>`,
			formatFloat(d.X), formatFloat(d.Y+half+14), html.EscapeString(d.Name)))
	}

	for _, c := range l.Cables {
		points, ok := cablePath(c, devices)
		if !ok {
			continue
		}
		mid := midpoint(points)
		out = append(out, fmt.Sprintf(`<text x="%s" y="%s" font-size="11" text-anchor="middle" fill="%s">%s %s</text>`,
			formatFloat(mid.X), formatFloat(mid.Y-6), html.EscapeString(c.Color), html.EscapeString(c.Name), lengthLabel(c)))
	}

	return out
}

// ============================================================
// Formatting helpers
// ============================================================

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p models.Point) string {
	return formatFloat(p.X) + "," + formatFloat(p.Y)
}
