package render

import (
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markcal/internal/grid"
	"markcal/internal/marks"
	"markcal/internal/model"
)

var jan2025 = time.Date(2025, time.January, 15, 0, 0, 0, 0, time.Local)

func texts(doc Document) []Text {
	var out []Text
	for _, s := range doc.Shapes {
		if t, ok := s.(Text); ok {
			out = append(out, t)
		}
	}
	return out
}

func findText(doc Document, content string) (Text, bool) {
	for _, t := range texts(doc) {
		if t.Content == content {
			return t, true
		}
	}
	return Text{}, false
}

func buildJanuary(t *testing.T, store *marks.Store, holidays model.HolidayTable) Document {
	t.Helper()
	g := grid.Build(jan2025, jan2025, store, holidays)
	return Build(Input{Ref: jan2025, Grid: g, Annotations: store, Labels: JapaneseLabels()})
}

func TestBuild_Frame(t *testing.T) {
	doc := buildJanuary(t, marks.NewStore(), nil)

	assert.Equal(t, CanvasWidth, doc.Width)
	assert.Equal(t, CanvasHeight, doc.Height)
	require.NotEmpty(t, doc.Shapes)
	assert.Equal(t, Rect{W: 1000, H: 800, Style: Style{Fill: "#ffffff"}}, doc.Shapes[0])

	title, ok := findText(doc, "2025年1月")
	require.True(t, ok)
	assert.Equal(t, 400, title.X)
	assert.Equal(t, 40, title.Y)
	assert.True(t, title.Bold)

	sat, ok := findText(doc, "土")
	require.True(t, ok)
	assert.Equal(t, 650, sat.X)
	assert.Equal(t, 80, sat.Y)
}

func TestBuild_CellColours(t *testing.T) {
	holidays := model.HolidayTable{"2025-01-01": "元日"}
	doc := buildJanuary(t, marks.NewStore(), holidays)

	var rects []Rect
	for _, s := range doc.Shapes[1:] {
		if r, ok := s.(Rect); ok {
			rects = append(rects, r)
		}
	}
	require.Len(t, rects, 42)

	// Index 0: Dec 29, a Sunday outside the month.
	assert.Equal(t, Rect{X: 10, Y: 95, W: 90, H: 60, Style: Style{Fill: "#fef2f2", Stroke: "#e5e7eb", StrokeWidth: 1}}, rects[0])
	// Index 3: Jan 1 holiday on a Wednesday.
	assert.Equal(t, "#fef2f2", rects[3].Fill)
	assert.Equal(t, 310, rects[3].X)
	// Index 4: plain Thursday.
	assert.Equal(t, "#ffffff", rects[4].Fill)
	// Index 6: Saturday.
	assert.Equal(t, "#eff6ff", rects[6].Fill)
	// Index 41: last row.
	assert.Equal(t, 120+5*70-25, rects[41].Y)

	var numbers []Text
	for _, tx := range texts(doc) {
		if tx.Size == 14 && tx.Anchor == AnchorMiddle {
			numbers = append(numbers, tx)
		}
	}
	require.Len(t, numbers, 42)
	assert.Equal(t, "29", numbers[0].Content)
	assert.Equal(t, "#9ca3af", numbers[0].Fill, "sunday outside the month is muted")
	assert.Equal(t, "#dc2626", numbers[3].Fill, "holiday")
	assert.Equal(t, "#000000", numbers[4].Fill)
	assert.Equal(t, "#2563eb", numbers[6].Fill, "saturday in month")
	assert.Equal(t, "#dc2626", numbers[7].Fill, "sunday in month")
	assert.Equal(t, "#9ca3af", numbers[41].Fill, "saturday outside the month is muted")
}

func TestBuild_MarkGlyphs(t *testing.T) {
	store := marks.NewStore()
	store.Toggle("2025-01-01") // circle at index 3
	store.Toggle("2025-01-02")
	store.Toggle("2025-01-02") // cross at index 4
	for i := 0; i < 3; i++ {
		store.Toggle("2025-01-03") // triangle at index 5
	}

	doc := buildJanuary(t, store, nil)

	var circles []Circle
	var paths []Path
	for _, s := range doc.Shapes {
		switch v := s.(type) {
		case Circle:
			circles = append(circles, v)
		case Path:
			paths = append(paths, v)
		}
	}

	require.Len(t, circles, 1)
	assert.Equal(t, Circle{CX: 355, CY: 135, R: 8, Style: Style{Stroke: "#22c55e", StrokeWidth: 2}}, circles[0])

	require.Len(t, paths, 2)
	assert.Equal(t, "M447,127 L463,143 M463,127 L447,143", PathData(paths[0]))
	assert.Equal(t, "#ef4444", paths[0].Stroke)
	assert.Empty(t, paths[0].Fill)
	assert.Equal(t, "M555,127 L547,143 L563,143 Z", PathData(paths[1]))
	assert.Equal(t, "#f59e0b", paths[1].Stroke)
	assert.Empty(t, paths[1].Fill)
}

func TestBuild_LegendLayout(t *testing.T) {
	store := marks.NewStore()
	cross := func(k model.DateKey) { store.Toggle(k); store.Toggle(k) }
	cross("2025-01-20")
	cross("2025-01-06")
	require.NoError(t, store.SetReason("2025-01-06", model.MarkCross, "閉店"))
	for i := 0; i < 3; i++ {
		store.Toggle("2025-01-09")
	}

	doc := buildJanuary(t, store, nil)

	var legend []Text
	for _, tx := range texts(doc) {
		if tx.X == 750 {
			legend = append(legend, tx)
		}
	}
	require.Len(t, legend, 5)

	assert.Equal(t, Text{X: 750, Y: 120, Content: "✕の理由", Size: 18, Bold: true, Fill: "#000000"}, legend[0])
	assert.Equal(t, "1/6: 閉店", legend[1].Content)
	assert.Equal(t, 150, legend[1].Y)
	assert.Equal(t, "1/20: 理由未記入", legend[2].Content)
	assert.Equal(t, 175, legend[2].Y)

	// Triangle section starts after 2 cross rows: 150 + 2*25 + 20.
	assert.Equal(t, "△の理由", legend[3].Content)
	assert.Equal(t, 220, legend[3].Y)
	assert.Equal(t, "1/9: 理由未記入", legend[4].Content)
	assert.Equal(t, 250, legend[4].Y)
}

func TestBuild_EmptyCrossSectionIsOmitted(t *testing.T) {
	store := marks.NewStore()
	for i := 0; i < 3; i++ {
		store.Toggle("2025-01-09")
	}
	doc := buildJanuary(t, store, nil)

	_, hasCross := findText(doc, "✕の理由")
	assert.False(t, hasCross)

	tri, ok := findText(doc, "△の理由")
	require.True(t, ok)
	assert.Equal(t, 120, tri.Y)
}

func TestBuild_NoAnnotations(t *testing.T) {
	doc := buildJanuary(t, marks.NewStore(), nil)
	for _, tx := range texts(doc) {
		assert.NotEqual(t, 750, tx.X)
	}
}

func TestBuild_EnglishLabels(t *testing.T) {
	g := grid.Build(jan2025, jan2025, nil, nil)
	doc := Build(Input{Ref: jan2025, Grid: g, Labels: LabelsFor("en-US")})

	_, ok := findText(doc, "January 2025")
	assert.True(t, ok)
	_, ok = findText(doc, "Sun")
	assert.True(t, ok)
}

func TestWriteSVG_WellFormedAndEscaped(t *testing.T) {
	store := marks.NewStore()
	store.Toggle("2025-01-06")
	store.Toggle("2025-01-06")
	require.NoError(t, store.SetReason("2025-01-06", model.MarkCross, `<script>&"`))
	store.Toggle("2025-01-07")

	doc := buildJanuary(t, store, model.HolidayTable{"2025-01-01": "元日"})
	out := string(doc.SVG())

	assert.Contains(t, out, `width="1000"`)
	assert.Contains(t, out, `height="800"`)
	assert.Contains(t, out, "1/6: &lt;script&gt;&amp;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `d="M147,197 L163,213 M163,197 L147,213"`)
	assert.Contains(t, out, `fill="none"`)

	dec := xml.NewDecoder(strings.NewReader(out))
	var elements int
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if _, ok := tok.(xml.StartElement); ok {
			elements++
		}
	}
	assert.Greater(t, elements, 100)
}

func TestLabels_ASCII(t *testing.T) {
	assert.True(t, EnglishLabels().ASCII())
	assert.False(t, JapaneseLabels().ASCII())

	l := EnglishLabels()
	l.Unfilled = "未記入"
	assert.False(t, l.ASCII())
}
