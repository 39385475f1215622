package imageio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strings"

	"cable-planner/internal/planner/models"
)

// MaxImageBytes is the default upload limit for background images.
const MaxImageBytes = 10 * 1024 * 1024

// ============================================================
// Background images
// ============================================================

// ReadImage reads a background image and returns it as a data URL together
// with its natural size. PNG, JPEG, GIF and SVG are understood.
func ReadImage(ctx context.Context, r io.Reader, maxBytes int64) (models.Image, error) {
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return models.Image{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return models.Image{}, fmt.Errorf("%w (max %d bytes)", models.ErrImageTooLarge, maxBytes)
	}
	if err := ctx.Err(); err != nil {
		return models.Image{}, err
	}

	return DecodeImage(data)
}

// DecodeImage sniffs data and decodes its dimensions. Images past
// models.MaxImagePixels are refused with ErrImageTooLarge.
func DecodeImage(data []byte) (models.Image, error) {
	if len(data) == 0 {
		return models.Image{}, fmt.Errorf("%w: empty file", models.ErrImageDecode)
	}

	if looksLikeSVG(data) {
		w, h, err := svgSize(data)
		if err != nil {
			return models.Image{}, fmt.Errorf("%w: %w", models.ErrImageDecode, err)
		}
		if err := models.CheckImageSize(w, h); err != nil {
			return models.Image{}, err
		}
		return models.Image{DataURL: EncodeDataURL("image/svg+xml", data), Width: w, Height: h}, nil
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return models.Image{}, fmt.Errorf("%w: %w", models.ErrImageDecode, err)
	}
	// The header alone decides; the pixels are never decoded here.
	if err := models.CheckImageSize(cfg.Width, cfg.Height); err != nil {
		return models.Image{}, err
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/" + format
	}
	return models.Image{DataURL: EncodeDataURL(mime, data), Width: cfg.Width, Height: cfg.Height}, nil
}

// ============================================================
// Data URLs
// ============================================================

func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its media type and payload.
func DecodeDataURL(s string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data url")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data url without payload")
	}

	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return mime, []byte(payload), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data url: %w", err)
	}
	return mime, data, nil
}

// ============================================================
// Project files
// ============================================================

// ReadProjectFile reads and decodes a project JSON file. It does not check
// the version; importing does.
func ReadProjectFile(ctx context.Context, r io.Reader) (models.ProjectData, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return models.ProjectData{}, fmt.Errorf("read project file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return models.ProjectData{}, err
	}

	var data models.ProjectData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.ProjectData{}, fmt.Errorf("%w: %w", models.ErrFileParse, err)
	}
	return data, nil
}
