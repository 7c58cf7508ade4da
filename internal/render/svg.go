package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	svg "github.com/ajstarks/svgo"
)

// WriteSVG serializes the document as a standalone SVG image. Text content
// is XML-escaped by svgo.
func (d Document) WriteSVG(w io.Writer) {
	canvas := svg.New(w)
	canvas.Start(d.Width, d.Height)
	for _, s := range d.Shapes {
		switch v := s.(type) {
		case Rect:
			canvas.Rect(v.X, v.Y, v.W, v.H, styleAttrs(v.Style)...)
		case Circle:
			canvas.Circle(v.CX, v.CY, v.R, styleAttrs(v.Style)...)
		case Path:
			canvas.Path(PathData(v), styleAttrs(v.Style)...)
		case Text:
			canvas.Text(v.X, v.Y, v.Content, textAttrs(v)...)
		}
	}
	canvas.End()
}

// SVG returns the serialized document.
func (d Document) SVG() []byte {
	var buf bytes.Buffer
	d.WriteSVG(&buf)
	return buf.Bytes()
}

// PathData renders subpaths in SVG path syntax, e.g. "M37,127 L53,143".
func PathData(p Path) string {
	var b strings.Builder
	for _, sp := range p.Subpaths {
		for i, pt := range sp.Points {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&b, "%s%d,%d", cmd, pt.X, pt.Y)
		}
		if sp.Closed {
			b.WriteString(" Z")
		}
	}
	return b.String()
}

func paint(c string) string {
	if c == "" {
		return "none"
	}
	return c
}

// styleAttrs uses attribute form (key="value") so svgo does not fold them
// into a style property.
func styleAttrs(s Style) []string {
	attrs := []string{fmt.Sprintf(`fill="%s"`, paint(s.Fill))}
	if s.Stroke != "" {
		attrs = append(attrs, fmt.Sprintf(`stroke="%s"`, s.Stroke))
		if s.StrokeWidth > 0 {
			attrs = append(attrs, fmt.Sprintf(`stroke-width="%d"`, s.StrokeWidth))
		}
	}
	return attrs
}

func textAttrs(t Text) []string {
	attrs := []string{fmt.Sprintf(`font-size="%d"`, t.Size)}
	if t.Anchor == AnchorMiddle {
		attrs = append(attrs, `text-anchor="middle"`)
	}
	if t.Bold {
		attrs = append(attrs, `font-weight="bold"`)
	}
	if t.Fill != "" {
		attrs = append(attrs, fmt.Sprintf(`fill="%s"`, t.Fill))
	}
	return attrs
}
