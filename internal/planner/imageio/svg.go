package imageio

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ============================================================
// SVG floor plans
// ============================================================

type svgRoot struct {
	XMLName xml.Name `xml:"svg"`
	Width   string   `xml:"width,attr"`
	Height  string   `xml:"height,attr"`
	ViewBox string   `xml:"viewBox,attr"`
}

func looksLikeSVG(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// svgSize returns the natural size of an SVG document: width/height
// attributes when they are absolute, otherwise the viewBox extent.
func svgSize(data []byte) (int, int, error) {
	var root svgRoot
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		return 0, 0, fmt.Errorf("parse svg: %w", err)
	}

	w, okW := parseLength(root.Width)
	h, okH := parseLength(root.Height)
	if okW && okH {
		return w, h, nil
	}

	vb := strings.Fields(strings.ReplaceAll(root.ViewBox, ",", " "))
	if len(vb) == 4 {
		vw, errW := strconv.ParseFloat(vb[2], 64)
		vh, errH := strconv.ParseFloat(vb[3], 64)
		if errW == nil && errH == nil && vw > 0 && vh > 0 {
			return pixels(vw), pixels(vh), nil
		}
	}
	return 0, 0, fmt.Errorf("svg has no usable size")
}

// parseLength accepts unitless and px lengths only.
func parseLength(s string) (int, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return pixels(v), true
}

// pixels rounds v, saturating instead of overflowing int.
func pixels(v float64) int {
	if v >= math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(v))
}
