package geometry

import (
	"testing"
	"time"

	"cable-planner/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	a := models.Point{X: 0, Y: 0}
	b := models.Point{X: 3, Y: 4}

	assert.Equal(t, 5.0, Distance(a, b))
	assert.Equal(t, Distance(a, b), Distance(b, a))
	assert.Zero(t, Distance(b, b))
	assert.NotZero(t, Distance(a, models.Point{X: 0, Y: 0.001}))
}

func TestPolylineLength(t *testing.T) {
	points := []models.Point{{X: 0, Y: 0}, {X: 150, Y: 0}, {X: 150, Y: 200}, {X: 300, Y: 0}}
	assert.Equal(t, 600.0, PolylineLength(points))
	assert.Zero(t, PolylineLength(points[:1]))
	assert.Zero(t, PolylineLength(nil))
}

func TestRoundLength(t *testing.T) {
	cases := map[float64]float64{
		0:    1,
		0.5:  1,
		1.0:  1,
		1.1:  2,
		2.0:  2,
		2.5:  3,
		3.0:  3,
		3.1:  5,
		5.0:  5,
		5.1:  10,
		33:   35,
		47.2: 50,
	}
	for in, want := range cases {
		assert.Equal(t, want, RoundLength(in), "RoundLength(%v)", in)
	}

	for v := 0.05; v < 120; v += 0.37 {
		assert.GreaterOrEqual(t, RoundLength(v), v)
	}
}

func TestConstrainOrthogonal(t *testing.T) {
	from := models.Point{X: 10, Y: 10}

	assert.Equal(t, models.Point{X: 50, Y: 10}, ConstrainOrthogonal(from, models.Point{X: 50, Y: 20}))
	assert.Equal(t, models.Point{X: 10, Y: 60}, ConstrainOrthogonal(from, models.Point{X: 15, Y: 60}))
	// tie locks vertically
	assert.Equal(t, models.Point{X: 10, Y: 30}, ConstrainOrthogonal(from, models.Point{X: 30, Y: 30}))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 7, 8, 9, 0, time.UTC)
	assert.Equal(t, "20240305_070809", FormatTimestamp(ts))
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestParsePolyline(t *testing.T) {
	pts, err := ParsePolyline("150,0 150,200")
	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 150, Y: 0}, {X: 150, Y: 200}}, pts)

	pts, err = ParsePolyline("M 10 10 h 20 V 50 l -5 5")
	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 10, Y: 10}, {X: 30, Y: 10}, {X: 30, Y: 50}, {X: 25, Y: 55}}, pts)

	pts, err = ParsePolyline("  ")
	require.NoError(t, err)
	assert.Empty(t, pts)

	_, err = ParsePolyline("1,2 3")
	assert.Error(t, err)

	_, err = ParsePolyline("1,x")
	assert.Error(t, err)
}
