package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// ============================================================
// Errors
// ============================================================

var (
	ErrInvalidReference   = errors.New("invalid device id")
	ErrInvalidScale       = errors.New("scale length must be greater than 0")
	ErrScaleNotSet        = errors.New("please set the scale first")
	ErrInvalidLength      = errors.New("length must be greater than 0")
	ErrInvalidSettings    = errors.New("margin rate must be between 0 and 100")
	ErrVersionMismatch    = errors.New("project version mismatch")
	ErrInvalidProjectData = errors.New("invalid project data")
	ErrImageTooLarge      = errors.New("image size is too large")
	ErrImageDecode        = errors.New("failed to load image")
	ErrFileParse          = errors.New("failed to parse file")
	ErrDuplicateName      = errors.New("name already in use")
)

// ============================================================
// Project decoding
// ============================================================

func (p *ProjectData) UnmarshalJSON(data []byte) error {
	type alias ProjectData
	var raw struct {
		alias
		Settings *Settings `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = ProjectData(raw.alias)
	if raw.Settings != nil {
		p.Settings = *raw.Settings
	} else {
		p.Settings = DefaultSettings()
	}
	return nil
}

// Validate checks the parts of a decoded project that the model relies on.
// It does not check the version; that is the project model's call.
func (p *ProjectData) Validate() error {
	seen := make(map[string]bool, len(p.Devices))
	for _, d := range p.Devices {
		if d.ID == "" {
			return fmt.Errorf("%w: device without id", ErrInvalidProjectData)
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: duplicate device id %q", ErrInvalidProjectData, d.ID)
		}
		seen[d.ID] = true
		if !d.Type.Valid() {
			return fmt.Errorf("%w: device %q has unknown type %q", ErrInvalidProjectData, d.ID, d.Type)
		}
	}

	cableIDs := make(map[string]bool, len(p.Cables))
	for _, c := range p.Cables {
		if c.ID == "" {
			return fmt.Errorf("%w: cable without id", ErrInvalidProjectData)
		}
		if cableIDs[c.ID] {
			return fmt.Errorf("%w: duplicate cable id %q", ErrInvalidProjectData, c.ID)
		}
		cableIDs[c.ID] = true
		if c.Route == nil {
			return fmt.Errorf("%w: cable %q has no route", ErrInvalidProjectData, c.ID)
		}
	}

	if p.Scale != nil && !(p.Scale.PixelPerMeter > 0 && !math.IsInf(p.Scale.PixelPerMeter, 1)) {
		return fmt.Errorf("%w: scale pixelPerMeter must be positive", ErrInvalidProjectData)
	}
	if p.Image != nil {
		if err := CheckImageSize(p.Image.Width, p.Image.Height); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidProjectData, err)
		}
	}
	if !ValidMarginRate(p.Settings.MarginRate) {
		return fmt.Errorf("%w: %w", ErrInvalidProjectData, ErrInvalidSettings)
	}
	return nil
}

// ValidMarginRate reports whether m lies in [0, 100]. NaN does not.
func ValidMarginRate(m float64) bool {
	return m >= 0 && m <= 100
}
