package geometry

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cable-planner/internal/planner/models"

	"github.com/google/uuid"
)

// ============================================================
// Distances & lengths
// ============================================================

// Distance returns the Euclidean distance between two points.
func Distance(p1, p2 models.Point) float64 {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// PolylineLength sums segment lengths along points in order.
func PolylineLength(points []models.Point) float64 {
	var total float64
	for i := 0; i+1 < len(points); i++ {
		total += Distance(points[i], points[i+1])
	}
	return total
}

// RoundLength snaps a length in meters up to a purchasable size:
// 1, 2 or 3 m, and multiples of 5 m above that.
func RoundLength(length float64) float64 {
	switch {
	case length <= 1:
		return 1
	case length <= 2:
		return 2
	case length <= 3:
		return 3
	}
	return math.Ceil(length/5) * 5
}

// ConstrainOrthogonal locks to along the dominant axis from from.
// Ties lock vertically.
func ConstrainOrthogonal(from, to models.Point) models.Point {
	dx := math.Abs(to.X - from.X)
	dy := math.Abs(to.Y - from.Y)

	if dx > dy {
		return models.Point{X: to.X, Y: from.Y}
	}
	return models.Point{X: from.X, Y: to.Y}
}

// ============================================================
// Identifiers & timestamps
// ============================================================

func NewID() string {
	return uuid.NewString()
}

// FormatTimestamp renders t as YYYYMMDD_HHMMSS in t's location.
func FormatTimestamp(t time.Time) string {
	return t.Format("20060102_150405")
}

// ============================================================
// Polyline parsing
// ============================================================

var polylineCmd = regexp.MustCompile(`([MmLlHhVv])([^MmLlHhVv]*)`)

// ParsePolyline reads waypoints either as "x,y x,y ..." pairs or as an
// SVG-style path using M/L/H/V commands (absolute or relative).
func ParsePolyline(s string) ([]models.Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []models.Point{}, nil
	}

	if !strings.ContainsAny(s, "MmLlHhVv") {
		coords, err := parseCoords(s)
		if err != nil {
			return nil, err
		}
		if len(coords)%2 != 0 {
			return nil, fmt.Errorf("odd number of coordinates in %q", s)
		}
		points := make([]models.Point, 0, len(coords)/2)
		for i := 0; i < len(coords); i += 2 {
			points = append(points, models.Point{X: coords[i], Y: coords[i+1]})
		}
		return points, nil
	}

	var points []models.Point
	var cur models.Point

	for _, match := range polylineCmd.FindAllStringSubmatch(s, -1) {
		cmd := match[1]
		coords, err := parseCoords(match[2])
		if err != nil {
			return nil, err
		}

		switch cmd {
		case "M", "L", "m", "l":
			if len(coords) < 2 || len(coords)%2 != 0 {
				return nil, fmt.Errorf("command %s needs x,y pairs", cmd)
			}
			for i := 0; i < len(coords); i += 2 {
				if cmd == "M" || cmd == "L" {
					cur = models.Point{X: coords[i], Y: coords[i+1]}
				} else {
					cur = models.Point{X: cur.X + coords[i], Y: cur.Y + coords[i+1]}
				}
				points = append(points, cur)
			}
		case "H", "h":
			if len(coords) < 1 {
				return nil, fmt.Errorf("command %s needs a coordinate", cmd)
			}
			for _, v := range coords {
				if cmd == "H" {
					cur.X = v
				} else {
					cur.X += v
				}
				points = append(points, cur)
			}
		case "V", "v":
			if len(coords) < 1 {
				return nil, fmt.Errorf("command %s needs a coordinate", cmd)
			}
			for _, v := range coords {
				if cmd == "V" {
					cur.Y = v
				} else {
					cur.Y += v
				}
				points = append(points, cur)
			}
		}
	}

	return points, nil
}

func parseCoords(s string) ([]float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", " ")
	parts := strings.Fields(s)

	coords := make([]float64, 0, len(parts))
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", part, err)
		}
		coords = append(coords, val)
	}
	return coords, nil
}
