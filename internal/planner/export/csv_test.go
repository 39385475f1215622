package export

import (
	"strings"
	"testing"
	"time"

	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/project"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenames(t *testing.T) {
	ts := time.Date(2025, time.December, 31, 23, 59, 1, 0, time.UTC)

	assert.Equal(t, "project_20251231_235901.json", ProjectFilename(ts))
	assert.Equal(t, "project_20251231_235901.csv", CSVFilename(ts))
	assert.Equal(t, "cable_layout_20251231_235901.png", ScreenshotFilename(ts))
}

func TestCSV(t *testing.T) {
	p := project.New()
	require.NoError(t, p.SetScale(0, 0, 100, 0, 10))
	a, _ := p.AddDevice(models.DeviceRouter, 0, 0, "")
	b, _ := p.AddDevice(models.DevicePoESW, 300, 0, "")
	_, err := p.AddDetailedCable(a.ID, b.ID, nil, "", "")
	require.NoError(t, err)
	_, err = p.AddSimpleCable(a.ID, b.ID, 1.5, "", "")
	require.NoError(t, err)
	_, err = p.AddSimpleCable(b.ID, "gone", 1, "", "")
	require.Error(t, err)

	s := p.Summary()
	out, err := CSV(Report{
		Cables:  p.Cables().All(),
		Devices: p.Devices().All(),
		Summary: s.Rows,
		Stats:   s.Stats,
	})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, BOM))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, BOM), "\n"), "\n")

	assert.Equal(t, []string{
		"Cable List",
		"Cable Name,Mode,From,To,Actual Length(m),With Margin(m),Rounded(m)",
		"cable-1,Detailed,Router-1,SW-1,30.0,33.0,35",
		"cable-2,Simple,Router-1,SW-1,1.5,1.7,2",
		"",
		"Summary",
		"Cable Length,Quantity,Detailed,Simple",
		"2m,1",
		"35m,1",
		"",
		"Total,2,1,1",
	}, lines)
}

func TestCSVListAndSummaryAgreeOnHalfTenths(t *testing.T) {
	p := project.New()
	zero, off := 0.0, false
	require.NoError(t, p.UpdateSettings(models.SettingsPatch{MarginRate: &zero, RoundingMode: &off}))
	a, _ := p.AddDevice(models.DeviceRouter, 0, 0, "")
	b, _ := p.AddDevice(models.DevicePoESW, 300, 0, "")
	_, err := p.AddSimpleCable(a.ID, b.ID, 1.45, "", "")
	require.NoError(t, err)

	s := p.Summary()
	out, err := CSV(Report{
		Cables:  p.Cables().All(),
		Devices: p.Devices().All(),
		Summary: s.Rows,
		Stats:   s.Stats,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "cable-1,Simple,Router-1,SW-1,1.4,1.4,1.4\n")
	assert.Contains(t, out, "\n1.4m,1\n")
	assert.NotContains(t, out, "1.5")
}

func TestCSVUnroundedAndUnknownDevice(t *testing.T) {
	cables := []models.Cable{{
		ID:               "c",
		Name:             "orphan",
		FromDeviceID:     "d1",
		ToDeviceID:       "missing",
		Route:            &models.SimpleRoute{ManualLength: 4},
		LengthM:          4,
		LengthWithMargin: 4.4,
	}}
	devices := []models.Device{{ID: "d1", Name: "PC, desk"}}

	rows := CablesTable(cables, devices)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"orphan", "Simple", "PC, desk", "missing", "4.0", "4.4", "4.4"}, rows[2])

	out, err := CSV(Report{Cables: cables, Devices: devices})
	require.NoError(t, err)
	assert.Contains(t, out, `orphan,Simple,"PC, desk",missing,4.0,4.4,4.4`)
}
