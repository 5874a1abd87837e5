// Package media converts uploaded images and stores them in object storage.
package media

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/celiscope/celiscope/internal/shared"
)

// Image formats recognized by DetectFormat.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatGIF  = "gif"
	FormatWebP = "webp"
	FormatHEIC = "heic"
	FormatTIFF = "tiff"
)

const (
	// MaxUploadSize is the largest accepted upload.
	MaxUploadSize = 15 << 20
	// MaxPixels caps the decoded canvas; headers claiming more are rejected
	// before any pixel buffer is allocated.
	MaxPixels = 40_000_000

	jpegPassthroughLimit = 10 << 20
	jpegQuality          = 90
)

// DetectFormat identifies an image by its magic bytes. It returns "" for
// unknown data.
func DetectFormat(b []byte) string {
	if len(b) < 4 {
		return ""
	}
	switch {
	case bytes.HasPrefix(b, []byte{0xFF, 0xD8, 0xFF}):
		return FormatJPEG
	case bytes.HasPrefix(b, []byte{0x89, 'P', 'N', 'G'}):
		return FormatPNG
	case bytes.HasPrefix(b, []byte("GIF8")):
		return FormatGIF
	case len(b) >= 12 && bytes.HasPrefix(b, []byte("RIFF")) && string(b[8:12]) == "WEBP":
		return FormatWebP
	case bytes.HasPrefix(b, []byte{'I', 'I', 0x2A, 0x00}), bytes.HasPrefix(b, []byte{'M', 'M', 0x00, 0x2A}):
		return FormatTIFF
	}
	if len(b) >= 12 && string(b[4:8]) == "ftyp" {
		brand := string(b[8:12])
		if strings.Contains(brand, "hei") || brand == "mif1" {
			return FormatHEIC
		}
	}
	return ""
}

var supportedMIME = []string{"jpeg", "jpg", "png", "webp", "gif", "tiff", "bmp"}

// ToJPEG decodes an image, applies its EXIF orientation and re-encodes it
// as JPEG. Undecodable JPEGs below 10MB are returned unchanged.
func ToJPEG(b []byte, mimetype string) ([]byte, error) {
	format := DetectFormat(b)
	mimetype = strings.ToLower(mimetype)
	if format != "" && mimetype != "" && !strings.Contains(mimetype, format) {
		slog.Warn("Image MIME type does not match content", "mimetype", mimetype, "format", format)
	}

	if format == FormatHEIC || strings.Contains(mimetype, "heic") || strings.Contains(mimetype, "heif") {
		return nil, shared.BadRequest("Неподдерживаемый формат изображения: HEIC. Поддерживаются: JPEG, PNG, WebP, GIF, TIFF, BMP")
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(b)); err == nil &&
		int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, shared.BadRequest(fmt.Sprintf(
			"Не удалось обработать изображение: слишком большое разрешение %dx%d. Проверьте формат и размер файла.",
			cfg.Width, cfg.Height))
	}

	img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
	if err == nil {
		var out bytes.Buffer
		if err = imaging.Encode(&out, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err == nil {
			return out.Bytes(), nil
		}
	}
	slog.Warn("Image processing failed", "error", err, "mimetype", mimetype, "format", format, "size", len(b))

	isJPEG := format == FormatJPEG || strings.Contains(mimetype, "jpeg") || strings.Contains(mimetype, "jpg")
	if isJPEG && len(b) < jpegPassthroughLimit {
		return b, nil
	}

	if mimetype != "" && !isSupportedMIME(mimetype) {
		return nil, shared.BadRequest(fmt.Sprintf(
			"Неподдерживаемый формат изображения: %s. Поддерживаются: JPEG, PNG, WebP, GIF, TIFF, BMP", mimetype))
	}
	return nil, shared.BadRequest(fmt.Sprintf(
		"Не удалось обработать изображение: %v. Проверьте формат и размер файла.", err))
}

func isSupportedMIME(mimetype string) bool {
	for _, f := range supportedMIME {
		if strings.Contains(mimetype, f) {
			return true
		}
	}
	return false
}
