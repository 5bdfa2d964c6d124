// Package imaging downloads image candidates, probes their dimensions,
// recovers EXIF metadata and normalizes everything to JPEG for storage.
package imaging

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/zombar/newsharvest/models"
)

func init() {
	// Register the extended decoders so image.Decode handles the formats
	// news sites actually serve.
	image.RegisterFormat("webp", "RIFF????WEBP", webp.Decode, webp.DecodeConfig)
	image.RegisterFormat("bmp", "BM", bmp.Decode, bmp.DecodeConfig)
	image.RegisterFormat("tiff", "II\x2A\x00", tiff.Decode, tiff.DecodeConfig)
	image.RegisterFormat("tiff", "MM\x00\x2A", tiff.Decode, tiff.DecodeConfig)
}

const (
	jpegQuality = 85
	// maxDimension caps either edge of a stored image; larger images are
	// downscaled preserving aspect ratio.
	maxDimension = 2048
)

// Fetcher downloads image bytes with size and timeout limits.
type Fetcher struct {
	httpClient *http.Client
	timeout    time.Duration
	maxBytes   int64
	userAgent  string
}

// NewFetcher builds an image fetcher. maxBytes bounds the downloaded body;
// timeout bounds each download end to end.
func NewFetcher(timeout time.Duration, maxBytes int64) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:   timeout,
		maxBytes:  maxBytes,
		userAgent: "Mozilla/5.0 (compatible; newsharvest/1.0)",
	}
}

// Fetch downloads an image with size and timeout limits.
func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("image too large: %d bytes (max: %d)", resp.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("image too large: exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

// Probe decodes only the image header and returns its dimensions without
// decoding pixel data.
func Probe(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Normalize decodes an image in any supported format, recovers EXIF
// metadata from the original bytes, downscales oversized images and
// re-encodes as JPEG.
func Normalize(data []byte) (*models.EncodedImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// EXIF lives in the original encoding; extract before re-encoding
	// discards it.
	exifData := extractEXIF(data)

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	scaled := false
	if width > maxDimension || height > maxDimension {
		img = downscale(img, maxDimension)
		bounds = img.Bounds()
		width, height = bounds.Dx(), bounds.Dy()
		scaled = true
	}

	var jpegData []byte
	if format == "jpeg" && !scaled {
		// Already a JPEG within bounds; keep the original bytes.
		jpegData = data
	} else {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
		jpegData = buf.Bytes()
	}

	return &models.EncodedImage{
		Data:        jpegData,
		ContentType: "image/jpeg",
		Width:       width,
		Height:      height,
		EXIF:        exifData,
	}, nil
}

func downscale(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func extractEXIF(data []byte) *models.EXIFData {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	out := &models.EXIFData{}
	populated := false

	if dt, err := x.DateTime(); err == nil {
		out.DateTime = dt.Format(time.RFC3339)
		populated = true
	}
	for _, field := range []struct {
		name exif.FieldName
		dst  *string
	}{
		{exif.Make, &out.Make},
		{exif.Model, &out.Model},
		{exif.Artist, &out.Artist},
		{exif.Copyright, &out.Copyright},
		{exif.ImageDescription, &out.ImageDescription},
	} {
		if tag, err := x.Get(field.name); err == nil {
			if v, err := tag.StringVal(); err == nil && v != "" {
				*field.dst = v
				populated = true
			}
		}
	}
	if lat, long, err := x.LatLong(); err == nil {
		out.Latitude = lat
		out.Longitude = long
		populated = true
	}

	if !populated {
		return nil
	}
	return out
}
