package imageio

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"cable-planner/internal/planner/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestReadImagePNG(t *testing.T) {
	data := pngBytes(t, 64, 32)

	img, err := ReadImage(context.Background(), bytes.NewReader(data), 0)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Width)
	assert.Equal(t, 32, img.Height)
	assert.True(t, strings.HasPrefix(img.DataURL, "data:image/png;base64,"))

	mime, payload, err := DecodeDataURL(img.DataURL)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, data, payload)
}

func TestReadImageTooLarge(t *testing.T) {
	data := pngBytes(t, 8, 8)

	_, err := ReadImage(context.Background(), bytes.NewReader(data), int64(len(data)-1))
	assert.ErrorIs(t, err, models.ErrImageTooLarge)
}

func TestReadImageGarbage(t *testing.T) {
	_, err := ReadImage(context.Background(), strings.NewReader("definitely not an image"), 0)
	assert.ErrorIs(t, err, models.ErrImageDecode)

	_, err = ReadImage(context.Background(), strings.NewReader(""), 0)
	assert.ErrorIs(t, err, models.ErrImageDecode)
}

func TestReadImageCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadImage(ctx, bytes.NewReader(pngBytes(t, 2, 2)), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

// withDimensions rewrites the IHDR width and height of a PNG stream and
// fixes up the chunk CRC, leaving a header that claims any size.
func withDimensions(t *testing.T, data []byte, w, h uint32) []byte {
	t.Helper()
	out := append([]byte(nil), data...)
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestDecodeImageRejectsHugeDimensions(t *testing.T) {
	data := withDimensions(t, pngBytes(t, 1, 1), 60000, 60000)

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 60000, cfg.Width)

	_, err = ReadImage(context.Background(), bytes.NewReader(data), 0)
	assert.ErrorIs(t, err, models.ErrImageTooLarge)

	_, err = DecodeImage(withDimensions(t, pngBytes(t, 1, 1), 20000, 10))
	assert.ErrorIs(t, err, models.ErrImageTooLarge)

	_, err = DecodeImage(withDimensions(t, pngBytes(t, 1, 1), 8000, 8000))
	assert.ErrorIs(t, err, models.ErrImageTooLarge)

	img, err := DecodeImage(withDimensions(t, pngBytes(t, 1, 1), 4000, 3000))
	require.NoError(t, err)
	assert.Equal(t, 4000, img.Width)

	_, err = DecodeImage([]byte(`<svg xmlns="http://www.w3.org/2000/svg" width="100000" height="100000"></svg>`))
	assert.ErrorIs(t, err, models.ErrImageTooLarge)

	_, err = DecodeImage([]byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 1e30 1e30"></svg>`))
	assert.ErrorIs(t, err, models.ErrImageTooLarge)
}

func TestReadImageSVG(t *testing.T) {
	doc := `<?xml version="1.0"?><svg xmlns="http://www.w3.org/2000/svg" width="1200px" height="800"><rect id="Wall_1"/></svg>`
	img, err := ReadImage(context.Background(), strings.NewReader(doc), 0)
	require.NoError(t, err)
	assert.Equal(t, 1200, img.Width)
	assert.Equal(t, 800, img.Height)
	assert.True(t, strings.HasPrefix(img.DataURL, "data:image/svg+xml;base64,"))

	doc = `<svg xmlns="http://www.w3.org/2000/svg" width="100%" viewBox="0 0 640.4 480"></svg>`
	img, err = ReadImage(context.Background(), strings.NewReader(doc), 0)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Width)
	assert.Equal(t, 480, img.Height)

	_, err = ReadImage(context.Background(), strings.NewReader(`<svg xmlns="http://www.w3.org/2000/svg"></svg>`), 0)
	assert.ErrorIs(t, err, models.ErrImageDecode)
}

func TestDecodeDataURL(t *testing.T) {
	mime, data, err := DecodeDataURL("data:text/plain,hello")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", mime)
	assert.Equal(t, []byte("hello"), data)

	_, _, err = DecodeDataURL("http://example.com/a.png")
	assert.Error(t, err)

	_, _, err = DecodeDataURL("data:image/png;base64,!!!")
	assert.Error(t, err)
}

func TestReadProjectFile(t *testing.T) {
	data, err := ReadProjectFile(context.Background(), strings.NewReader(`{"version":"1.0","devices":[],"cables":[]}`))
	require.NoError(t, err)
	assert.Equal(t, "1.0", data.Version)
	assert.Equal(t, models.DefaultSettings(), data.Settings)

	_, err = ReadProjectFile(context.Background(), strings.NewReader(`{"version":`))
	assert.ErrorIs(t, err, models.ErrFileParse)
}
