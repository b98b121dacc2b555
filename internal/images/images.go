// Package images handles the image-side concerns of the captioning
// pipeline: filename sanitization, upload validation, thumbnail data
// URLs, and flattening multi-picture JPEG containers before an image
// is handed to the vision API.
package images

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"path/filepath"
	"strings"
)

// MaxFileSize is the upload ceiling per image
const MaxFileSize = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// SanitizeFilename strips path components and replaces anything
// outside a conservative character set, guarding against traversal in
// stored filenames.
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)

	var b strings.Builder
	for _, r := range filename {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-' || r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	sanitized := b.String()

	if !strings.Contains(sanitized, ".") {
		sanitized += ".jpg"
	}
	if len(sanitized) > 255 {
		ext := filepath.Ext(sanitized)
		sanitized = sanitized[:250] + ext
	}
	return sanitized
}

// Validate checks an uploaded image: extension, size, and that the
// payload decodes as JPEG or PNG.
func Validate(filename string, data []byte) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("invalid file type: %s. Must be JPG, JPEG, or PNG", ext)
	}
	if len(data) > MaxFileSize {
		return fmt.Errorf("file too large: %.1fMB (max %dMB)", float64(len(data))/(1024*1024), MaxFileSize/(1024*1024))
	}
	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid or corrupted image: %w", err)
	}
	if format != "jpeg" && format != "png" {
		return fmt.Errorf("invalid image format: %s", format)
	}
	return nil
}

// MIMEType reports the payload's content type from its magic bytes,
// defaulting to JPEG.
func MIMEType(data []byte) string {
	if len(data) >= 8 && bytes.Equal(data[:8], []byte("\x89PNG\r\n\x1a\n")) {
		return "image/png"
	}
	return "image/jpeg"
}

// IsMPO reports whether a JPEG payload is a Multi Picture Object
// container (stereo pairs from some cameras). The MPF extension lives
// in an APP2 segment tagged "MPF\0".
func IsMPO(data []byte) bool {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return false
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return false
		}
		marker := data[i+1]
		// Start of scan: no more metadata segments
		if marker == 0xDA {
			return false
		}
		length := int(data[i+2])<<8 | int(data[i+3])
		if length < 2 || i+2+length > len(data) {
			return false
		}
		if marker == 0xE2 && length >= 6 && bytes.Equal(data[i+4:i+8], []byte("MPF\x00")) {
			return true
		}
		i += 2 + length
	}
	return false
}

// FlattenForAPI re-encodes an MPO container as a single-frame JPEG,
// which the vision API requires. Non-MPO payloads pass through
// untouched. The decode keeps only the container's first frame and the
// re-encode produces plain RGB JPEG.
func FlattenForAPI(filename string, data []byte) []byte {
	if !IsMPO(data) {
		return data
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Warn("Unable to decode MPO container, sending as-is", "filename", filename, "err", err)
		return data
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		slog.Warn("Unable to re-encode MPO frame, sending as-is", "filename", filename, "err", err)
		return data
	}

	slog.Info("Flattened MPO container to single JPEG frame", "filename", filename, "bytes", buf.Len())
	return buf.Bytes()
}

// Thumbnail produces a small JPEG rendition of the image as a base64
// data URL for the upload listing. Failures return an empty string;
// a missing thumbnail never fails an upload.
func Thumbnail(filename string, data []byte, maxDim int) string {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Error("Failed to create thumbnail", "filename", filename, "err", err)
		return ""
	}

	thumb := downscale(img, maxDim)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85}); err != nil {
		slog.Error("Failed to encode thumbnail", "filename", filename, "err", err)
		return ""
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// downscale resizes with nearest-neighbor sampling, keeping aspect
// ratio. Thumbnails are preview-only so sampling quality is not a
// concern.
func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxDim
		newHeight = height * maxDim / width
	} else {
		newHeight = maxDim
		newWidth = width * maxDim / height
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	for y := 0; y < newHeight; y++ {
		srcY := bounds.Min.Y + y*height/newHeight
		for x := 0; x < newWidth; x++ {
			srcX := bounds.Min.X + x*width/newWidth
			dst.Set(x, y, img.At(srcX, srcY))
		}
	}
	return dst
}
