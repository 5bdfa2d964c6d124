package imaging

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNormalizePNGToJPEG(t *testing.T) {
	encoded, err := Normalize(pngBytes(t, 400, 300))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if encoded.ContentType != "image/jpeg" {
		t.Errorf("ContentType = %q", encoded.ContentType)
	}
	if encoded.Width != 400 || encoded.Height != 300 {
		t.Errorf("dimensions = %dx%d, want 400x300", encoded.Width, encoded.Height)
	}
	if _, _, err := image.Decode(bytes.NewReader(encoded.Data)); err != nil {
		t.Errorf("normalized data does not decode: %v", err)
	}
	if encoded.EXIF != nil {
		t.Errorf("PNG should carry no EXIF, got %+v", encoded.EXIF)
	}
}

func TestNormalizeDownscalesOversized(t *testing.T) {
	encoded, err := Normalize(pngBytes(t, 4096, 1024))
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if encoded.Width != maxDimension {
		t.Errorf("Width = %d, want %d", encoded.Width, maxDimension)
	}
	if encoded.Height != 512 {
		t.Errorf("Height = %d, want 512 (aspect preserved)", encoded.Height)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	if _, err := Normalize([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestProbe(t *testing.T) {
	w, h, err := Probe(pngBytes(t, 320, 240))
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if w != 320 || h != 240 {
		t.Errorf("Probe = %dx%d, want 320x240", w, h)
	}
}

func TestFetchSizeLimit(t *testing.T) {
	big := bytes.Repeat([]byte{0xAB}, 2048)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(big)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, 1024)
	if _, err := f.Fetch(context.Background(), server.URL+"/big.jpg"); err == nil {
		t.Fatal("expected size-limit error")
	}

	f = NewFetcher(5*time.Second, 4096)
	data, err := f.Fetch(context.Background(), server.URL+"/big.jpg")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(data) != len(big) {
		t.Errorf("fetched %d bytes, want %d", len(data), len(big))
	}
}

func TestFetchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(5*time.Second, 1024)
	if _, err := f.Fetch(context.Background(), server.URL+"/missing.jpg"); err == nil {
		t.Fatal("expected error on 404")
	}
}
