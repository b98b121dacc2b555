package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildMPO wraps a JPEG payload with an APP2 MPF segment right after
// SOI, which is how multi-picture containers announce themselves
func buildMPO(t *testing.T) []byte {
	t.Helper()
	base := encodeJPEG(t, 4, 4)
	segment := []byte{0xFF, 0xE2, 0x00, 0x08, 'M', 'P', 'F', 0x00, 0x01, 0x02}
	mpo := append([]byte{}, base[:2]...)
	mpo = append(mpo, segment...)
	mpo = append(mpo, base[2:]...)
	return mpo
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain name untouched",
			input:    "studio_01.jpg",
			expected: "studio_01.jpg",
		},
		{
			name:     "path components stripped",
			input:    "../../etc/passwd.png",
			expected: "passwd.png",
		},
		{
			name:     "special characters replaced",
			input:    "my photo (1)!.jpg",
			expected: "my photo _1__.jpg",
		},
		{
			name:     "missing extension gains jpg",
			input:    "noext",
			expected: "noext.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	jpegData := encodeJPEG(t, 4, 4)
	pngData := encodePNG(t)

	tests := []struct {
		name     string
		filename string
		data     []byte
		wantErr  string
	}{
		{name: "valid jpeg", filename: "ok.jpg", data: jpegData},
		{name: "valid png", filename: "ok.png", data: pngData},
		{name: "bad extension", filename: "ok.gif", data: jpegData, wantErr: "invalid file type"},
		{name: "corrupted payload", filename: "bad.jpg", data: []byte("not an image"), wantErr: "invalid or corrupted image"},
		{name: "too large", filename: "big.jpg", data: make([]byte, MaxFileSize+1), wantErr: "file too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.filename, tt.data)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestMIMEType(t *testing.T) {
	if got := MIMEType(encodePNG(t)); got != "image/png" {
		t.Errorf("Expected image/png, got %s", got)
	}
	if got := MIMEType(encodeJPEG(t, 4, 4)); got != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", got)
	}
}

func TestIsMPO(t *testing.T) {
	if IsMPO(encodeJPEG(t, 4, 4)) {
		t.Error("Expected plain JPEG not to be detected as MPO")
	}
	if !IsMPO(buildMPO(t)) {
		t.Error("Expected MPF-tagged JPEG to be detected as MPO")
	}
	if IsMPO([]byte{0x00, 0x01}) {
		t.Error("Expected non-JPEG data not to be detected as MPO")
	}
}

func TestFlattenForAPI(t *testing.T) {
	plain := encodeJPEG(t, 4, 4)
	if got := FlattenForAPI("plain.jpg", plain); !bytes.Equal(got, plain) {
		t.Error("Expected non-MPO payload to pass through unchanged")
	}

	flattened := FlattenForAPI("stereo.jpg", buildMPO(t))
	if IsMPO(flattened) {
		t.Error("Expected flattened output to drop the MPF segment")
	}
	if _, err := jpeg.Decode(bytes.NewReader(flattened)); err != nil {
		t.Errorf("Expected flattened output to decode as JPEG, got %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	data := encodeJPEG(t, 600, 300)
	url := Thumbnail("wide.jpg", data, 150)

	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("Expected data URL, got %q", url)
	}

	if Thumbnail("bad.jpg", []byte("garbage"), 150) != "" {
		t.Error("Expected empty string for undecodable image")
	}
}
