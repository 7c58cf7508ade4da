package render

import (
	"fmt"
	"time"

	"markcal/internal/datekey"
	"markcal/internal/model"
)

// Palette.
const (
	colorWhite        = "#ffffff"
	colorBlack        = "#000000"
	colorMuted        = "#9ca3af"
	colorBorder       = "#e5e7eb"
	colorRedFill      = "#fef2f2"
	colorBlueFill     = "#eff6ff"
	colorRedText      = "#dc2626"
	colorBlueText     = "#2563eb"
	colorCircleStroke = "#22c55e"
	colorCrossStroke  = "#ef4444"
	colorTriStroke    = "#f59e0b"
)

// Layout, in canvas pixels.
const (
	titleX, titleY = 400, 40
	headerX0       = 50
	headerY        = 80
	columnPitch    = 100
	cellX0         = 10
	cellY0         = 120
	rowPitch       = 70
	cellWidth      = 90
	cellHeight     = 60
	cellTopOffset  = 25
	legendX        = 750
	legendY0       = 120
	legendHeadGap  = 30
	legendLine     = 25
	legendSpacing  = 20
	markStroke     = 2
)

// Annotations lists the days currently carrying an annotatable mark.
type Annotations interface {
	ListByKind(kind model.Mark) []model.Annotation
}

// Input is everything Build reads. Grid cells already carry marks and
// holiday labels.
type Input struct {
	Ref         time.Time
	Grid        model.MonthGrid
	Annotations Annotations
	Labels      Labels
}

// Build lays out the month as a 1000x800 drawing document. It is pure.
func Build(in Input) Document {
	labels := in.Labels
	if labels.MonthTitle == nil {
		labels = JapaneseLabels()
	}

	doc := Document{Width: CanvasWidth, Height: CanvasHeight}
	doc.add(Rect{W: CanvasWidth, H: CanvasHeight, Style: Style{Fill: colorWhite}})
	doc.add(Text{
		X: titleX, Y: titleY,
		Content: labels.MonthTitle(in.Ref.Year(), in.Ref.Month()),
		Size:    24, Bold: true, Anchor: AnchorMiddle, Fill: colorBlack,
	})

	for i, wd := range labels.Weekdays {
		doc.add(Text{
			X: headerX0 + i*columnPitch, Y: headerY,
			Content: wd, Size: 16, Bold: true, Anchor: AnchorMiddle, Fill: colorBlack,
		})
	}

	for i, cell := range in.Grid {
		if i >= model.GridCells {
			break
		}
		x := cellX0 + (i%7)*columnPitch
		y := cellY0 + (i/7)*rowPitch
		doc.add(cellShapes(cell, x, y)...)
	}

	if in.Annotations != nil {
		cursor := legendY0
		cursor = legend(&doc, cursor, labels.CrossHeading, labels.Unfilled, in.Annotations.ListByKind(model.MarkCross))
		legend(&doc, cursor, labels.TriangleHeading, labels.Unfilled, in.Annotations.ListByKind(model.MarkTriangle))
	}

	return doc
}

func cellFill(c model.DayCell) string {
	switch {
	case c.Holiday != "" || c.Weekend == model.WeekendSunday:
		return colorRedFill
	case c.Weekend == model.WeekendSaturday:
		return colorBlueFill
	default:
		return colorWhite
	}
}

// dateColor mutes days outside the month; a holiday stays red even there.
func dateColor(c model.DayCell) string {
	color := colorBlack
	if !c.CurrentMonth {
		color = colorMuted
	}
	if c.Holiday != "" || (c.Weekend == model.WeekendSunday && c.CurrentMonth) {
		color = colorRedText
	}
	if c.Weekend == model.WeekendSaturday && c.CurrentMonth && c.Holiday == "" {
		color = colorBlueText
	}
	return color
}

func cellShapes(c model.DayCell, x, y int) []Shape {
	shapes := []Shape{
		Rect{
			X: x, Y: y - cellTopOffset, W: cellWidth, H: cellHeight,
			Style: Style{Fill: cellFill(c), Stroke: colorBorder, StrokeWidth: 1},
		},
		Text{
			X: x + cellWidth/2, Y: y,
			Content: fmt.Sprint(c.Date.Day()),
			Size:    14, Anchor: AnchorMiddle, Fill: dateColor(c),
		},
	}
	if g := glyph(c.Mark, x, y); g != nil {
		shapes = append(shapes, g)
	}
	return shapes
}

// glyph returns the mark shape centred under the date number.
func glyph(m model.Mark, x, y int) Shape {
	cx := x + cellWidth/2
	switch m {
	case model.MarkCircle:
		return Circle{CX: cx, CY: y + 15, R: 8, Style: Style{Stroke: colorCircleStroke, StrokeWidth: markStroke}}
	case model.MarkCross:
		return Path{
			Subpaths: []Subpath{
				{Points: []Point{{cx - 8, y + 7}, {cx + 8, y + 23}}},
				{Points: []Point{{cx + 8, y + 7}, {cx - 8, y + 23}}},
			},
			Style: Style{Stroke: colorCrossStroke, StrokeWidth: markStroke},
		}
	case model.MarkTriangle:
		return Path{
			Subpaths: []Subpath{
				{Points: []Point{{cx, y + 7}, {cx - 8, y + 23}, {cx + 8, y + 23}}, Closed: true},
			},
			Style: Style{Stroke: colorTriStroke, StrokeWidth: markStroke},
		}
	default:
		return nil
	}
}

// legend appends one reason section at cursor and returns the cursor for the
// next section. Empty sections are omitted and leave the cursor unchanged.
func legend(doc *Document, cursor int, heading, unfilled string, rows []model.Annotation) int {
	if len(rows) == 0 {
		return cursor
	}

	doc.add(Text{X: legendX, Y: cursor, Content: heading, Size: 18, Bold: true, Fill: colorBlack})
	cursor += legendHeadGap

	for i, a := range rows {
		reason := a.Reason
		if reason == "" {
			reason = unfilled
		}
		day := string(a.Key)
		if _, m, d, err := datekey.Decode(a.Key); err == nil {
			day = fmt.Sprintf("%d/%d", int(m), d)
		}
		doc.add(Text{
			X: legendX, Y: cursor + i*legendLine,
			Content: day + ": " + reason,
			Size:    14, Fill: colorBlack,
		})
	}
	return cursor + len(rows)*legendLine + legendSpacing
}
