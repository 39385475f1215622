package registry

import (
	"fmt"
	"regexp"
	"strconv"

	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/models"
)

// ============================================================
// Device Registry
// ============================================================

// DeviceLookup resolves device ids for cable operations.
type DeviceLookup interface {
	DeviceByID(id string) (models.Device, bool)
}

// Devices keeps placed devices in insertion order.
//
// Per-type counters only advance on auto-generated names, so an explicit
// "Router-1" followed by an auto-named router yields two "Router-1"s.
type Devices struct {
	devices  []models.Device
	counters map[models.DeviceType]int
}

func NewDevices() *Devices {
	return &Devices{counters: make(map[models.DeviceType]int)}
}

// Add places a device. An empty name is replaced by "<Prefix>-<N>".
func (r *Devices) Add(t models.DeviceType, x, y float64, name string) models.Device {
	auto := name == ""
	if auto {
		name = fmt.Sprintf("%s-%d", t.NamePrefix(), r.counters[t]+1)
	}

	device := models.Device{
		ID:    geometry.NewID(),
		Type:  t,
		Name:  name,
		X:     x,
		Y:     y,
		Color: t.DefaultColor(),
	}
	r.devices = append(r.devices, device)

	if auto {
		r.counters[t]++
	}
	return device
}

func (r *Devices) index(id string) int {
	for i := range r.devices {
		if r.devices[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *Devices) DeviceByID(id string) (models.Device, bool) {
	if i := r.index(id); i >= 0 {
		return r.devices[i], true
	}
	return models.Device{}, false
}

// All returns a copy of the devices in insertion order.
func (r *Devices) All() []models.Device {
	out := make([]models.Device, len(r.devices))
	copy(out, r.devices)
	return out
}

func (r *Devices) Len() int {
	return len(r.devices)
}

func (r *Devices) Remove(id string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.devices = append(r.devices[:i], r.devices[i+1:]...)
	return true
}

func (r *Devices) Move(id string, x, y float64) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.devices[i].X = x
	r.devices[i].Y = y
	return true
}

// Rename does not check uniqueness.
func (r *Devices) Rename(id, name string) bool {
	i := r.index(id)
	if i < 0 {
		return false
	}
	r.devices[i].Name = name
	return true
}

// FindNear returns the first device, in insertion order, within threshold
// of (x, y). It is not necessarily the nearest one.
func (r *Devices) FindNear(x, y, threshold float64) (models.Device, bool) {
	p := models.Point{X: x, Y: y}
	for _, d := range r.devices {
		if geometry.Distance(p, d.Position()) <= threshold {
			return d, true
		}
	}
	return models.Device{}, false
}

// ============================================================
// Bulk import / export
// ============================================================

var nameSuffix = regexp.MustCompile(`-(\d+)$`)

func (r *Devices) Export() []models.Device {
	return r.All()
}

// Import replaces the registry and reseeds each type's counter from the
// highest "-<N>" suffix among its names.
func (r *Devices) Import(devices []models.Device) {
	r.devices = make([]models.Device, len(devices))
	copy(r.devices, devices)

	r.counters = make(map[models.DeviceType]int)
	for _, d := range r.devices {
		m := nameSuffix.FindStringSubmatch(d.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > r.counters[d.Type] {
			r.counters[d.Type] = n
		}
	}
}

func (r *Devices) Clear() {
	r.devices = nil
	r.counters = make(map[models.DeviceType]int)
}
