package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"cable-planner/internal/planner/imageio"
	"cable-planner/internal/planner/models"
)

// ============================================================
// PNG Screenshot
// ============================================================

var (
	gridColor   = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
	borderColor = color.RGBA{0x33, 0x33, 0x33, 0xff}
)

type PNGRenderer struct{}

func NewPNGRenderer() *PNGRenderer {
	return &PNGRenderer{}
}

// MaxCanvasPixels bounds the screenshot raster. Layouts that would need
// more are drawn scaled down to fit.
const (
	MaxCanvasPixels = 4096 * 4096
	MaxCanvasSide   = 16384
)

// canvasSize is the raster size for l and the factor that maps layout
// coordinates onto it.
func (l Layout) canvasSize() (int, int, float64) {
	width, height := l.size()
	width = math.Min(width, 1<<24)
	height = math.Min(height, 1<<24)

	scale := 1.0
	if width*height > MaxCanvasPixels {
		scale = math.Sqrt(MaxCanvasPixels / (width * height))
	}
	scale = math.Min(scale, math.Min(MaxCanvasSide/width, MaxCanvasSide/height))

	w := max(1, int(width*scale))
	h := max(1, int(height*scale))
	return w, h, scale
}

// Render writes a lossless snapshot of the layout. Raster backgrounds are
// drawn; SVG backgrounds are skipped. Text labels are not rasterised.
func (r *PNGRenderer) Render(w io.Writer, l Layout) error {
	width, height, scale := l.canvasSize()
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

	at := func(p models.Point) models.Point {
		return models.Point{X: p.X * scale, Y: p.Y * scale}
	}

	r.drawBackground(canvas, l)
	if l.Settings.ShowGrid {
		r.drawGrid(canvas, models.GridSize*scale)
	}

	devices := l.deviceIndex()
	for _, c := range l.Cables {
		points, ok := cablePath(c, devices)
		if !ok {
			continue
		}
		col := colorOr(c.Color, color.RGBA{0x00, 0xaa, 0x00, 0xff})
		dashed := c.LineStyle() == models.LineDashed
		for i := 0; i+1 < len(points); i++ {
			strokeSegment(canvas, at(points[i]), at(points[i+1]), LineWidth, col, dashed)
		}
	}

	half := int(math.Max(2, math.Round(DeviceIconSize*scale/2)))
	for _, d := range l.Devices {
		p := at(d.Position())
		if !(math.Abs(p.X) < float64(width+half) && math.Abs(p.Y) < float64(height+half)) {
			continue
		}
		x, y := int(math.Round(p.X)), int(math.Round(p.Y))
		box := image.Rect(x-half, y-half, x+half, y+half)
		draw.Draw(canvas, box.Inset(-1), &image.Uniform{C: borderColor}, image.Point{}, draw.Src)
		draw.Draw(canvas, box, &image.Uniform{C: colorOr(d.Color, borderColor)}, image.Point{}, draw.Src)
	}

	if err := png.Encode(w, canvas); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// Bytes is Render into a byte slice.
func (r *PNGRenderer) Bytes(l Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *PNGRenderer) drawBackground(canvas *image.RGBA, l Layout) {
	if l.Image == nil || l.Image.DataURL == "" {
		return
	}
	_, data, err := imageio.DecodeDataURL(l.Image.DataURL)
	if err != nil {
		return
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || models.CheckImageSize(cfg.Width, cfg.Height) != nil {
		return
	}
	bg, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}

	b := canvas.Bounds()
	src := bg.Bounds()
	if src.Dx() <= b.Dx() && src.Dy() <= b.Dy() {
		draw.Draw(canvas, b, bg, src.Min, draw.Over)
		return
	}

	// Nearest-neighbour downscale onto the canvas.
	scaled := image.NewRGBA(b)
	for y := 0; y < b.Dy(); y++ {
		sy := src.Min.Y + y*src.Dy()/b.Dy()
		for x := 0; x < b.Dx(); x++ {
			scaled.Set(x, y, bg.At(src.Min.X+x*src.Dx()/b.Dx(), sy))
		}
	}
	draw.Draw(canvas, b, scaled, image.Point{}, draw.Over)
}

func (r *PNGRenderer) drawGrid(canvas *image.RGBA, step float64) {
	if step < 4 {
		return
	}
	b := canvas.Bounds()
	for gx := step; gx < float64(b.Dx()); gx += step {
		x := int(gx)
		for y := 0; y < b.Dy(); y++ {
			canvas.SetRGBA(x, y, gridColor)
		}
	}
	for gy := step; gy < float64(b.Dy()); gy += step {
		y := int(gy)
		for x := 0; x < b.Dx(); x++ {
			canvas.SetRGBA(x, y, gridColor)
		}
	}
}

// strokeSegment stamps a square pen along a→b in half-pixel steps. Only
// the part of the segment that crosses the canvas is walked.
func strokeSegment(canvas *image.RGBA, a, b models.Point, width int, col color.RGBA, dashed bool) {
	length := segLen(a, b)
	if !(length > 0) || math.IsInf(length, 0) {
		return
	}
	bounds := canvas.Bounds()
	t0, t1, ok := clipSegment(a, b,
		float64(bounds.Min.X-width), float64(bounds.Min.Y-width),
		float64(bounds.Max.X+width), float64(bounds.Max.Y+width))
	if !ok {
		return
	}

	steps := max(1, int(math.Ceil((t1-t0)*length*2)))
	half := width / 2
	period := dashOn + dashOff

	for i := 0; i <= steps; i++ {
		t := t0 + (t1-t0)*float64(i)/float64(steps)
		if dashed && math.Mod(t*length, period) >= dashOn {
			continue
		}
		cx := int(math.Round(a.X + (b.X-a.X)*t))
		cy := int(math.Round(a.Y + (b.Y-a.Y)*t))
		for dx := -half; dx < width-half; dx++ {
			for dy := -half; dy < width-half; dy++ {
				if image.Pt(cx+dx, cy+dy).In(bounds) {
					canvas.SetRGBA(cx+dx, cy+dy, col)
				}
			}
		}
	}
}

// clipSegment returns the parameter range of a→b inside the rectangle
// (Liang-Barsky). ok is false when the segment misses it.
func clipSegment(a, b models.Point, minX, minY, maxX, maxY float64) (t0, t1 float64, ok bool) {
	t0, t1 = 0, 1
	dx, dy := b.X-a.X, b.Y-a.Y
	edges := [4][2]float64{
		{-dx, a.X - minX},
		{dx, maxX - a.X},
		{-dy, a.Y - minY},
		{dy, maxY - a.Y},
	}
	for _, e := range edges {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return t0, t1, true
}

func colorOr(hex string, fallback color.RGBA) color.RGBA {
	r, g, b, err := parseHexColor(hex)
	if err != nil {
		return fallback
	}
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}
