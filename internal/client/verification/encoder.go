package verification

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"strings"

	"golang.org/x/image/draw"

	"github.com/dmitrijs2005/docverify/internal/client/models"
)

// Upper bounds applied before upload: landscape images are limited by
// width, everything else by height.
const (
	MaxWidth    = 800
	MaxHeight   = 600
	JPEGQuality = 70
)

var allowedTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/pdf": true,
}

// ContentType returns the declared type of doc, sniffing the bytes when
// none was given.
func ContentType(doc models.Document) string {
	ct := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if ct == "" {
		ct = http.DetectContentType(doc.Data)
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// Supported reports whether doc may be submitted.
func Supported(doc models.Document) bool {
	return allowedTypes[ContentType(doc)]
}

// Encode turns doc into the data URL sent to the backend. Images are
// downscaled to fit the bounds and re-encoded; PDFs are sent unchanged.
func Encode(doc models.Document) (string, error) {
	ct := ContentType(doc)
	if !allowedTypes[ct] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ct)
	}
	if ct == "application/pdf" {
		return dataURL(ct, doc.Data), nil
	}

	src, _, err := image.Decode(bytes.NewReader(doc.Data))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", doc.Name, err)
	}
	img := downscale(src)

	var buf bytes.Buffer
	if ct == "image/png" {
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		err = enc.Encode(&buf, img)
	} else {
		ct = "image/jpeg"
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", doc.Name, err)
	}
	return dataURL(ct, buf.Bytes()), nil
}

// FitBounds returns the target size of a w×h image, keeping aspect ratio.
func FitBounds(w, h int) (int, int) {
	if w > h {
		if w > MaxWidth {
			h = h * MaxWidth / w
			w = MaxWidth
		}
	} else if h > MaxHeight {
		w = w * MaxHeight / h
		h = MaxHeight
	}
	return max(w, 1), max(h, 1)
}

func downscale(src image.Image) image.Image {
	b := src.Bounds()
	w, h := FitBounds(b.Dx(), b.Dy())
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}

func dataURL(ct string, data []byte) string {
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(data)
}
