package verification

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/docverify/internal/client/models"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), nil))
	return buf.Bytes()
}

func decodeDataURL(t *testing.T, url string) (string, []byte) {
	t.Helper()
	require.True(t, strings.HasPrefix(url, "data:"))
	head, payload, ok := strings.Cut(url, ";base64,")
	require.True(t, ok)
	raw, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	return strings.TrimPrefix(head, "data:"), raw
}

func TestFitBounds(t *testing.T) {
	tests := []struct {
		w, h         int
		wantW, wantH int
	}{
		{1600, 900, 800, 450},
		{800, 400, 800, 400},
		{640, 480, 640, 480},
		{300, 1200, 150, 600},
		{1000, 1000, 600, 600},
		{600, 600, 600, 600},
		{4000, 1, 800, 1},
	}
	for _, tt := range tests {
		w, h := FitBounds(tt.w, tt.h)
		assert.Equal(t, tt.wantW, w, "%dx%d", tt.w, tt.h)
		assert.Equal(t, tt.wantH, h, "%dx%d", tt.w, tt.h)
	}
}

func TestEncode_DownscalesPNG(t *testing.T) {
	url, err := Encode(models.Document{Name: "scan.png", ContentType: "image/png", Data: pngBytes(t, 1600, 900)})
	require.NoError(t, err)

	ct, raw := decodeDataURL(t, url)
	assert.Equal(t, "image/png", ct)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 800, cfg.Width)
	assert.Equal(t, 450, cfg.Height)
}

func TestEncode_PortraitJPEG(t *testing.T) {
	url, err := Encode(models.Document{Name: "id.jpg", ContentType: "image/jpg", Data: jpegBytes(t, 300, 1200)})
	require.NoError(t, err)

	ct, raw := decodeDataURL(t, url)
	assert.Equal(t, "image/jpeg", ct)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 150, cfg.Width)
	assert.Equal(t, 600, cfg.Height)
}

func TestEncode_SmallImageKeepsSize(t *testing.T) {
	url, err := Encode(models.Document{Name: "x", Data: pngBytes(t, 40, 30)})
	require.NoError(t, err, "type sniffed from bytes")

	ct, raw := decodeDataURL(t, url)
	assert.Equal(t, "image/png", ct)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)
	assert.Equal(t, 30, cfg.Height)
}

func TestEncode_PDFPassThrough(t *testing.T) {
	data := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n")
	url, err := Encode(models.Document{Name: "cert.pdf", ContentType: "application/pdf", Data: data})
	require.NoError(t, err)

	ct, raw := decodeDataURL(t, url)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, data, raw)
}

func TestEncode_Rejects(t *testing.T) {
	_, err := Encode(models.Document{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Encode(models.Document{Name: "broken.png", ContentType: "image/png", Data: []byte("not a png")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedType)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported(models.Document{ContentType: "IMAGE/JPEG"}))
	assert.True(t, Supported(models.Document{ContentType: "application/pdf; charset=binary"}))
	assert.False(t, Supported(models.Document{ContentType: "text/plain"}))
	assert.False(t, Supported(models.Document{Data: []byte("plain text")}))
}
