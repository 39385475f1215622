package registry

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/models"
)

// ============================================================
// Derived lengths
// ============================================================

// Derived holds the length fields computed from a cable's inputs.
type Derived struct {
	LengthWithMargin float64
	RoundedLength    *float64
}

// Recalculate applies offset, margin and rounding to a base length.
func Recalculate(lengthM, offset float64, s models.CableSettings) Derived {
	withMargin := (lengthM + offset) * (1 + s.MarginRate/100)

	d := Derived{LengthWithMargin: withMargin}
	if s.RoundingMode {
		rounded := geometry.RoundLength(withMargin)
		d.RoundedLength = &rounded
	}
	return d
}

// ============================================================
// Cable Registry
// ============================================================

// Cables keeps cable runs in insertion order along with the settings that
// drive their derived lengths.
type Cables struct {
	cables   []*models.Cable
	settings models.CableSettings
	counter  int
}

func NewCables() *Cables {
	return &Cables{
		settings: models.CableSettings{
			MarginRate:   models.DefaultMarginRate,
			RoundingMode: models.DefaultRoundingMode,
		},
		counter: 1,
	}
}

func (r *Cables) Settings() models.CableSettings {
	return r.settings
}

func (r *Cables) recalc(c *models.Cable) {
	d := Recalculate(c.LengthM, c.Offset, r.settings)
	c.LengthWithMargin = d.LengthWithMargin
	c.RoundedLength = d.RoundedLength
}

// nextName hands out "cable-<N>", skipping names already taken.
func (r *Cables) nextName() string {
	for {
		name := fmt.Sprintf("cable-%d", r.counter)
		r.counter++
		if !r.nameTaken(name, "") {
			return name
		}
	}
}

func (r *Cables) nameTaken(name, exceptID string) bool {
	for _, c := range r.cables {
		if c.ID != exceptID && c.Name == name {
			return true
		}
	}
	return false
}

func resolveEnds(lookup DeviceLookup, fromID, toID string) (models.Device, models.Device, error) {
	from, ok := lookup.DeviceByID(fromID)
	if !ok {
		return models.Device{}, models.Device{}, fmt.Errorf("%w: %q", models.ErrInvalidReference, fromID)
	}
	to, ok := lookup.DeviceByID(toID)
	if !ok {
		return models.Device{}, models.Device{}, fmt.Errorf("%w: %q", models.ErrInvalidReference, toID)
	}
	return from, to, nil
}

func routePoints(from, to models.Device, waypoints []models.Point) []models.Point {
	points := make([]models.Point, 0, len(waypoints)+2)
	points = append(points, from.Position())
	points = append(points, waypoints...)
	return append(points, to.Position())
}

// AddDetailed adds a cable routed through waypoints. Its length is the
// polyline length from device to device divided by pixelPerMeter.
func (r *Cables) AddDetailed(fromID, toID string, waypoints []models.Point, name string, lookup DeviceLookup, pixelPerMeter float64, color string) (models.Cable, error) {
	from, to, err := resolveEnds(lookup, fromID, toID)
	if err != nil {
		return models.Cable{}, err
	}
	if !(pixelPerMeter > 0) {
		return models.Cable{}, models.ErrScaleNotSet
	}

	wp := make([]models.Point, len(waypoints))
	copy(wp, waypoints)
	lengthPx := geometry.PolylineLength(routePoints(from, to, wp))

	if name == "" {
		name = r.nextName()
	}
	if color == "" {
		color = models.CableDefaultColor
	}

	cable := &models.Cable{
		ID:           geometry.NewID(),
		Name:         name,
		FromDeviceID: fromID,
		ToDeviceID:   toID,
		Color:        color,
		Route:        &models.DetailedRoute{Waypoints: wp, LengthPx: lengthPx},
		LengthM:      lengthPx / pixelPerMeter,
	}
	r.cables = append(r.cables, cable)
	r.recalc(cable)

	return cable.Clone(), nil
}

// AddSimple adds a cable whose length is entered by hand, in meters.
func (r *Cables) AddSimple(fromID, toID string, manualLength float64, name string, lookup DeviceLookup, color string) (models.Cable, error) {
	if _, _, err := resolveEnds(lookup, fromID, toID); err != nil {
		return models.Cable{}, err
	}
	if !(manualLength > 0) {
		return models.Cable{}, models.ErrInvalidLength
	}

	if name == "" {
		name = r.nextName()
	}
	if color == "" {
		color = models.CableDefaultColor
	}

	cable := &models.Cable{
		ID:           geometry.NewID(),
		Name:         name,
		FromDeviceID: fromID,
		ToDeviceID:   toID,
		Color:        color,
		Route:        &models.SimpleRoute{ManualLength: manualLength},
		LengthM:      manualLength,
	}
	r.cables = append(r.cables, cable)
	r.recalc(cable)

	return cable.Clone(), nil
}

func (r *Cables) find(id string) (int, *models.Cable) {
	for i, c := range r.cables {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

func (r *Cables) CableByID(id string) (models.Cable, bool) {
	if _, c := r.find(id); c != nil {
		return c.Clone(), true
	}
	return models.Cable{}, false
}

// All returns copies of every cable in insertion order.
func (r *Cables) All() []models.Cable {
	out := make([]models.Cable, 0, len(r.cables))
	for _, c := range r.cables {
		out = append(out, c.Clone())
	}
	return out
}

func (r *Cables) Len() int {
	return len(r.cables)
}

func (r *Cables) Remove(id string) bool {
	i, _ := r.find(id)
	if i < 0 {
		return false
	}
	r.cables = append(r.cables[:i], r.cables[i+1:]...)
	return true
}

// RemoveForDevice drops every cable attached to deviceID and reports how many.
func (r *Cables) RemoveForDevice(deviceID string) int {
	kept := r.cables[:0]
	for _, c := range r.cables {
		if c.FromDeviceID != deviceID && c.ToDeviceID != deviceID {
			kept = append(kept, c)
		}
	}
	removed := len(r.cables) - len(kept)
	for i := len(kept); i < len(r.cables); i++ {
		r.cables[i] = nil
	}
	r.cables = kept
	return removed
}

// Rename fails when another cable already uses newName.
func (r *Cables) Rename(id, newName string) bool {
	_, c := r.find(id)
	if c == nil || r.nameTaken(newName, id) {
		return false
	}
	c.Name = newName
	return true
}

func (r *Cables) SetOffset(id string, meters float64) bool {
	_, c := r.find(id)
	if c == nil {
		return false
	}
	c.Offset = meters
	r.recalc(c)
	return true
}

func (r *Cables) SetColor(id, color string) bool {
	_, c := r.find(id)
	if c == nil {
		return false
	}
	c.Color = color
	return true
}

// SettingsUpdate is a partial update of the length-driving settings.
type SettingsUpdate struct {
	MarginRate   *float64
	RoundingMode *bool
}

// ApplySettings merges update and recomputes every cable.
func (r *Cables) ApplySettings(update SettingsUpdate) {
	if update.MarginRate != nil {
		r.settings.MarginRate = *update.MarginRate
	}
	if update.RoundingMode != nil {
		r.settings.RoundingMode = *update.RoundingMode
	}
	for _, c := range r.cables {
		r.recalc(c)
	}
}

// RecalcDetailedFromGeometry re-derives detailed cable lengths from current
// device positions. Cables with a dangling endpoint keep their last length.
func (r *Cables) RecalcDetailedFromGeometry(lookup DeviceLookup, pixelPerMeter float64) {
	if !(pixelPerMeter > 0) {
		return
	}
	for _, c := range r.cables {
		route, ok := c.Route.(*models.DetailedRoute)
		if !ok {
			continue
		}
		from, to, err := resolveEnds(lookup, c.FromDeviceID, c.ToDeviceID)
		if err != nil {
			continue
		}
		route.LengthPx = geometry.PolylineLength(routePoints(from, to, route.Waypoints))
		c.LengthM = route.LengthPx / pixelPerMeter
		r.recalc(c)
	}
}

// ============================================================
// Statistics
// ============================================================

// summaryLength is the length a LAN cable is counted under.
func (r *Cables) summaryLength(c *models.Cable) float64 {
	if r.settings.RoundingMode && c.RoundedLength != nil {
		return *c.RoundedLength
	}
	v, _ := strconv.ParseFloat(OneDecimal(c.LengthWithMargin), 64)
	return v
}

// OneDecimal is the one-decimal form used wherever an unrounded length is
// shown, so the cable list and the summary always agree.
func OneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// FormatLength renders a length the way summary keys are written: shortest
// decimal form, so 35 stays "35" and 33.1 stays "33.1".
func FormatLength(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Summary counts LAN-colored cables per final length.
func (r *Cables) Summary() map[string]int {
	summary := make(map[string]int)
	for _, c := range r.cables {
		if c.Color != models.LANColor {
			continue
		}
		summary[FormatLength(r.summaryLength(c))]++
	}
	return summary
}

type SummaryRow struct {
	Length   float64 `json:"length"`
	Key      string  `json:"key"`
	Quantity int     `json:"quantity"`
}

// SortedSummary is Summary ordered by ascending numeric length.
func (r *Cables) SortedSummary() []SummaryRow {
	summary := r.Summary()
	rows := make([]SummaryRow, 0, len(summary))
	for key, count := range summary {
		length, err := strconv.ParseFloat(key, 64)
		if err != nil {
			continue
		}
		rows = append(rows, SummaryRow{Length: length, Key: key, Quantity: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Length < rows[j].Length })
	return rows
}

// TotalLength sums final lengths of LAN-colored cables.
func (r *Cables) TotalLength() float64 {
	var total float64
	for _, c := range r.cables {
		if c.Color != models.LANColor {
			continue
		}
		if r.settings.RoundingMode && c.RoundedLength != nil {
			total += *c.RoundedLength
		} else {
			total += c.LengthWithMargin
		}
	}
	return total
}

type Stats struct {
	Total    int `json:"total"`
	Detailed int `json:"detailed"`
	Simple   int `json:"simple"`
}

func (r *Cables) Stats() Stats {
	var s Stats
	for _, c := range r.cables {
		s.Total++
		switch c.Route.(type) {
		case *models.DetailedRoute:
			s.Detailed++
		case *models.SimpleRoute:
			s.Simple++
		}
	}
	return s
}

// ============================================================
// Bulk import / export
// ============================================================

var cableName = regexp.MustCompile(`^cable-(\d+)$`)

func (r *Cables) Export() []models.Cable {
	return r.All()
}

// Import replaces the registry. The name counter restarts after the highest
// "cable-<N>" found. Derived fields are recomputed with current settings.
func (r *Cables) Import(cables []models.Cable) {
	r.cables = make([]*models.Cable, 0, len(cables))
	maxN := 0
	for _, c := range cables {
		cp := c.Clone()
		r.cables = append(r.cables, &cp)

		if m := cableName.FindStringSubmatch(c.Name); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > maxN {
				maxN = n
			}
		}
	}
	r.counter = maxN + 1

	for _, c := range r.cables {
		r.recalc(c)
	}
}

func (r *Cables) Clear() {
	r.cables = nil
	r.counter = 1
}
