// Package render turns a month grid and its annotations into a declarative
// drawing document that rasterizers and the SVG writer consume.
package render

// Canvas size of every exported document.
const (
	CanvasWidth  = 1000
	CanvasHeight = 800
)

// Document is an ordered list of shapes on a fixed canvas. Later shapes paint
// over earlier ones.
type Document struct {
	Width  int
	Height int
	Shapes []Shape
}

// Shape is one of Rect, Circle, Path or Text.
type Shape interface {
	shape()
}

// Style describes fill and stroke. An empty colour means "none".
type Style struct {
	Fill        string
	Stroke      string
	StrokeWidth int
}

type Rect struct {
	X, Y, W, H int
	Style
}

type Circle struct {
	CX, CY, R int
	Style
}

type Point struct {
	X, Y int
}

// Subpath is a polyline starting with a move-to; Closed adds a close-path.
type Subpath struct {
	Points []Point
	Closed bool
}

type Path struct {
	Subpaths []Subpath
	Style
}

// Anchor is the horizontal alignment of text relative to its X.
type Anchor int

const (
	AnchorStart Anchor = iota
	AnchorMiddle
)

// Text is drawn with its baseline at Y.
type Text struct {
	X, Y    int
	Content string
	Size    int
	Bold    bool
	Anchor  Anchor
	Fill    string
}

func (Rect) shape()   {}
func (Circle) shape() {}
func (Path) shape()   {}
func (Text) shape()   {}

func (d *Document) add(s ...Shape) {
	d.Shapes = append(d.Shapes, s...)
}
