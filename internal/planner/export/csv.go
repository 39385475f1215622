package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/registry"
)

// ============================================================
// File names
// ============================================================

const (
	ProjectFilePrefix    = "project"
	ScreenshotFilePrefix = "cable_layout"
)

func ProjectFilename(t time.Time) string {
	return fmt.Sprintf("%s_%s.json", ProjectFilePrefix, geometry.FormatTimestamp(t))
}

func CSVFilename(t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", ProjectFilePrefix, geometry.FormatTimestamp(t))
}

func ScreenshotFilename(t time.Time) string {
	return fmt.Sprintf("%s_%s.png", ScreenshotFilePrefix, geometry.FormatTimestamp(t))
}

// ============================================================
// CSV
// ============================================================

// BOM makes spreadsheet tools read the file as UTF-8.
const BOM = "\uFEFF"

func oneDecimal(v float64) string {
	return registry.OneDecimal(v)
}

func modeLabel(m models.CableMode) string {
	if m == models.CableDetailed {
		return "Detailed"
	}
	return "Simple"
}

// CablesTable renders the cable list section.
func CablesTable(cables []models.Cable, devices []models.Device) [][]string {
	names := make(map[string]string, len(devices))
	for _, d := range devices {
		names[d.ID] = d.Name
	}
	resolve := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}

	rows := [][]string{
		{"Cable List"},
		{"Cable Name", "Mode", "From", "To", "Actual Length(m)", "With Margin(m)", "Rounded(m)"},
	}
	for _, c := range cables {
		rounded := oneDecimal(c.LengthWithMargin)
		if c.RoundedLength != nil {
			rounded = registry.FormatLength(*c.RoundedLength)
		}
		rows = append(rows, []string{
			c.Name,
			modeLabel(c.Mode()),
			resolve(c.FromDeviceID),
			resolve(c.ToDeviceID),
			oneDecimal(c.LengthM),
			oneDecimal(c.LengthWithMargin),
			rounded,
		})
	}
	return rows
}

// SummaryTable renders the per-length summary section and the totals row.
func SummaryTable(summary []registry.SummaryRow, stats registry.Stats) [][]string {
	rows := [][]string{
		{""},
		{"Summary"},
		{"Cable Length", "Quantity", "Detailed", "Simple"},
	}
	for _, row := range summary {
		rows = append(rows, []string{row.Key + "m", strconv.Itoa(row.Quantity)})
	}
	rows = append(rows,
		[]string{""},
		[]string{"Total", strconv.Itoa(stats.Detailed + stats.Simple), strconv.Itoa(stats.Detailed), strconv.Itoa(stats.Simple)},
	)
	return rows
}

// Report is everything the CSV needs from a project.
type Report struct {
	Cables  []models.Cable
	Devices []models.Device
	Summary []registry.SummaryRow
	Stats   registry.Stats
}

// WriteCSV writes the BOM, the cable list and the summary to w.
func WriteCSV(w io.Writer, r Report) error {
	if _, err := io.WriteString(w, BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	rows := append(CablesTable(r.Cables, r.Devices), SummaryTable(r.Summary, r.Stats)...)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV is WriteCSV into a string.
func CSV(r Report) (string, error) {
	var b strings.Builder
	if err := WriteCSV(&b, r); err != nil {
		return "", err
	}
	return b.String(), nil
}
