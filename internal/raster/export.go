// Package raster converts drawing documents into PNG images.
package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"markcal/internal/render"
)

// ErrExportFailed wraps every failure of the export pipeline.
var ErrExportFailed = errors.New("export failed")

// Rasterizer draws a document onto a pixel surface.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc render.Document) (image.Image, error)
}

// Backend names accepted by New.
const (
	BackendNative   = "native"
	BackendChromium = "chromium"
)

// Options configures New.
type Options struct {
	Backend  string
	FontPath string
	BoldFont string
	Timeout  time.Duration
}

// New returns the rasterizer for opts.Backend; unknown backends are an error.
func New(opts Options) (Rasterizer, error) {
	switch opts.Backend {
	case "", BackendNative:
		return &Native{FontPath: opts.FontPath, BoldFontPath: opts.BoldFont}, nil
	case BackendChromium:
		return &Chromium{Timeout: opts.Timeout}, nil
	default:
		return nil, fmt.Errorf("raster: unknown backend %q", opts.Backend)
	}
}

// Filename is the download name of a month export, e.g. calendar-2025-01.png.
func Filename(year int, month time.Month) string {
	return fmt.Sprintf("calendar-%d-%02d.png", year, int(month))
}

// Exporter runs document -> surface -> PNG.
type Exporter struct {
	Rasterizer Rasterizer
}

// Export rasterizes doc and PNG-encodes it in memory. Any failure is wrapped
// in ErrExportFailed and no bytes are returned.
func (e *Exporter) Export(ctx context.Context, doc render.Document) ([]byte, error) {
	if e.Rasterizer == nil {
		return nil, fmt.Errorf("%w: no rasterizer configured", ErrExportFailed)
	}

	img, err := e.Rasterizer.Rasterize(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: rasterize: %v", ErrExportFailed, err)
	}

	b := img.Bounds()
	if b.Dx() != doc.Width || b.Dy() != doc.Height {
		return nil, fmt.Errorf("%w: surface is %dx%d, want %dx%d", ErrExportFailed, b.Dx(), b.Dy(), doc.Width, doc.Height)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrExportFailed, err)
	}
	return buf.Bytes(), nil
}

// ExportFile writes the export for year/month into dir atomically and
// returns the final path. A failed export leaves no file behind.
func (e *Exporter) ExportFile(ctx context.Context, doc render.Document, dir string, year int, month time.Month) (string, error) {
	data, err := e.Export(ctx, doc)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	path := filepath.Join(dir, Filename(year, month))

	// Atomic write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(dir, ".markcal-export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrExportFailed, err)
	}
	return path, nil
}
