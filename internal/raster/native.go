package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"

	"markcal/internal/render"
)

// Native draws documents in-process with gg. Without a font file it uses the
// built-in 7x13 bitmap face, which only covers ASCII.
type Native struct {
	// FontPath optionally points at a TrueType font (e.g. Noto Sans CJK).
	FontPath string
	// BoldFontPath is used for bold text when set; FontPath otherwise.
	BoldFontPath string

	mu    sync.Mutex
	faces map[faceKey]font.Face
}

// ASCIIOnly reports whether r is a Native rasterizer without a font file,
// which cannot draw non-ASCII text.
func ASCIIOnly(r Rasterizer) bool {
	n, ok := r.(*Native)
	return ok && n.FontPath == ""
}

type faceKey struct {
	path string
	size int
}

// Rasterize implements Rasterizer.
func (n *Native) Rasterize(ctx context.Context, doc render.Document) (image.Image, error) {
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("raster: invalid canvas %dx%d", doc.Width, doc.Height)
	}

	dc := gg.NewContext(doc.Width, doc.Height)
	for _, s := range doc.Shapes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch v := s.(type) {
		case render.Rect:
			dc.DrawRectangle(float64(v.X), float64(v.Y), float64(v.W), float64(v.H))
			paintPath(dc, v.Style)
		case render.Circle:
			dc.DrawCircle(float64(v.CX), float64(v.CY), float64(v.R))
			paintPath(dc, v.Style)
		case render.Path:
			for _, sp := range v.Subpaths {
				dc.NewSubPath()
				for i, pt := range sp.Points {
					if i == 0 {
						dc.MoveTo(float64(pt.X), float64(pt.Y))
					} else {
						dc.LineTo(float64(pt.X), float64(pt.Y))
					}
				}
				if sp.Closed {
					dc.ClosePath()
				}
			}
			paintPath(dc, v.Style)
		case render.Text:
			if err := n.drawText(dc, v); err != nil {
				return nil, err
			}
		}
	}
	return dc.Image(), nil
}

// paintPath fills then strokes the current path and clears it.
func paintPath(dc *gg.Context, s render.Style) {
	if s.Fill != "" {
		dc.SetHexColor(s.Fill)
		if s.Stroke != "" {
			dc.FillPreserve()
		} else {
			dc.Fill()
		}
	}
	if s.Stroke != "" {
		dc.SetHexColor(s.Stroke)
		w := s.StrokeWidth
		if w <= 0 {
			w = 1
		}
		dc.SetLineWidth(float64(w))
		dc.Stroke()
	}
	dc.ClearPath()
}

func (n *Native) drawText(dc *gg.Context, t render.Text) error {
	face, err := n.face(t.Size, t.Bold)
	if err != nil {
		return err
	}
	dc.SetFontFace(face)

	fill := t.Fill
	if fill == "" {
		fill = "#000000"
	}
	dc.SetHexColor(fill)

	ax := 0.0
	if t.Anchor == render.AnchorMiddle {
		ax = 0.5
	}
	// ay = 0 keeps y on the baseline, matching SVG text placement.
	dc.DrawStringAnchored(t.Content, float64(t.X), float64(t.Y), ax, 0)
	return nil
}

func (n *Native) face(size int, bold bool) (font.Face, error) {
	path := n.FontPath
	if bold && n.BoldFontPath != "" {
		path = n.BoldFontPath
	}
	if path == "" {
		return basicfont.Face7x13, nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	key := faceKey{path: path, size: size}
	if f, ok := n.faces[key]; ok {
		return f, nil
	}
	f, err := gg.LoadFontFace(path, float64(size))
	if err != nil {
		return nil, fmt.Errorf("raster: load font %s: %w", path, err)
	}
	if n.faces == nil {
		n.faces = make(map[faceKey]font.Face)
	}
	n.faces[key] = f
	return f, nil
}
