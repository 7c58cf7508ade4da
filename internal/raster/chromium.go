package raster

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/chromedp/chromedp"

	"markcal/internal/render"
)

// DefaultChromiumTimeout bounds a whole browser rasterization.
const DefaultChromiumTimeout = 30 * time.Second

// Chromium rasterizes the SVG serialization of a document in headless
// Chromium via chromedp. Browsers have full font fallback, so CJK labels
// render without configuring a font file.
type Chromium struct {
	// Timeout bounds the entire capture operation. Zero means
	// DefaultChromiumTimeout.
	Timeout time.Duration

	// ExecPath optionally overrides the browser binary.
	ExecPath string
}

// DataURL encodes an SVG document as a base64 data URL.
func DataURL(svg []byte) string {
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(svg)
}

// Rasterize implements Rasterizer.
//
// The SVG is loaded as a data URL into a viewport of exactly the document
// size and captured as a PNG screenshot, which is then decoded.
func (c *Chromium) Rasterize(parentCtx context.Context, doc render.Document) (image.Image, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultChromiumTimeout
	}

	allocCtx := parentCtx
	if c.ExecPath != "" {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.ExecPath(c.ExecPath))
		var cancelAlloc context.CancelFunc
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(parentCtx, opts...)
		defer cancelAlloc()
	}

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, timeout)
	defer timeoutCancel()

	var shot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(doc.Width), int64(doc.Height)),
		chromedp.Navigate(DataURL(doc.SVG())),
		chromedp.WaitReady("svg", chromedp.ByQuery),
		// quality 100 makes chromedp capture PNG rather than JPEG.
		chromedp.FullScreenshot(&shot, 100),
	}

	if err := chromedp.Run(ctx, tasks); err != nil {
		return nil, fmt.Errorf("raster: chromedp run failed: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, fmt.Errorf("raster: decode screenshot: %w", err)
	}
	return img, nil
}
