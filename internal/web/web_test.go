package web

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markcal/internal/app"
	"markcal/internal/config"
	"markcal/internal/holiday"
	"markcal/internal/model"
	"markcal/internal/raster"
	"markcal/internal/render"
)

type brokenRasterizer struct{}

func (brokenRasterizer) Rasterize(context.Context, render.Document) (image.Image, error) {
	return nil, errors.New("no surface")
}

func newTestServer(t *testing.T, cfg *config.Config, exp *raster.Exporter) (*httptest.Server, *app.Controller) {
	t.Helper()
	ctrl := app.New(app.Options{
		Provider: holiday.Static{},
		Exporter: exp,
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC) },
	})
	ctrl.Wait()
	t.Cleanup(ctrl.Close)

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	srv := httptest.NewServer(NewServer(cfg, ctrl).Handler())
	t.Cleanup(srv.Close)
	return srv, ctrl
}

func do(t *testing.T, method, url string, body string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)
	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMonth(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp := do(t, http.MethodGet, srv.URL+"/api/month", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[monthResponse](t, resp)

	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, 1, m.Month)
	assert.Equal(t, "2025年1月", m.Title)
	require.Len(t, m.Cells, 42)
	assert.Equal(t, "2025-01-01", string(m.Cells[3].Date))
	assert.Equal(t, "元日", m.Cells[3].Holiday)
	assert.Equal(t, "sunday", m.Cells[0].Weekend)
	assert.False(t, m.Cells[0].CurrentMonth)
	assert.True(t, m.Cells[17].Today)
	assert.Empty(t, m.Cross)
}

func TestNavigateAndSetMonth(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	m := decode[monthResponse](t, do(t, http.MethodPost, srv.URL+"/api/month/next", ""))
	assert.Equal(t, 2, m.Month)

	m = decode[monthResponse](t, do(t, http.MethodPost, srv.URL+"/api/month/prev", ""))
	assert.Equal(t, 1, m.Month)

	m = decode[monthResponse](t, do(t, http.MethodPost, srv.URL+"/api/month?year=2025&month=5", ""))
	assert.Equal(t, 5, m.Month)
	assert.Equal(t, "憲法記念日", m.Cells[6].Holiday)

	resp := do(t, http.MethodPost, srv.URL+"/api/month?year=2025&month=13", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/month", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleAndReasons(t *testing.T) {
	srv, ctrl := newTestServer(t, nil, nil)

	tg := decode[toggleResponse](t, do(t, http.MethodPost, srv.URL+"/api/marks/toggle?date=2025-01-06", ""))
	assert.Equal(t, "circle", tg.Mark.String())
	tg = decode[toggleResponse](t, do(t, http.MethodPost, srv.URL+"/api/marks/toggle?date=2025-01-06", ""))
	assert.Equal(t, "cross", tg.Mark.String())

	resp := do(t, http.MethodPut, srv.URL+"/api/reasons?date=2025-01-06&kind=cross", `{"text":"棚卸し"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "棚卸し", ctrl.Reason("2025-01-06", model.MarkCross))

	r := decode[reasonBody](t, do(t, http.MethodGet, srv.URL+"/api/reasons?date=2025-01-06&kind=cross", ""))
	assert.Equal(t, "棚卸し", r.Text)

	m := decode[monthResponse](t, do(t, http.MethodGet, srv.URL+"/api/month", ""))
	require.Len(t, m.Cross, 1)
	assert.Equal(t, "棚卸し", m.Cross[0].Reason)
}

func TestBadRequests(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/marks/toggle?date=2025-02-30", ""},
		{http.MethodPost, "/api/marks/toggle", ""},
		{http.MethodPut, "/api/reasons?date=2025-01-06&kind=circle", `{"text":"x"}`},
		{http.MethodPut, "/api/reasons?date=2025-01-06&kind=cross", `not json`},
		{http.MethodGet, "/api/reasons?date=bad&kind=cross", ""},
	}
	for _, tc := range cases {
		resp := do(t, tc.method, srv.URL+tc.path, tc.body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, tc.path)
	}

	resp := do(t, http.MethodDelete, srv.URL+"/api/month", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCalendarSVG(t *testing.T) {
	srv, ctrl := newTestServer(t, nil, nil)
	ctrl.ToggleMark("2025-01-01")

	resp := do(t, http.MethodGet, srv.URL+"/calendar.svg", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
}

func TestExportPNG(t *testing.T) {
	srv, _ := newTestServer(t, nil, nil)

	resp := do(t, http.MethodGet, srv.URL+"/export.png", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="calendar-2025-01.png"`, resp.Header.Get("Content-Disposition"))
}

func TestExportPNG_Failure(t *testing.T) {
	srv, ctrl := newTestServer(t, nil, &raster.Exporter{Rasterizer: brokenRasterizer{}})
	ctrl.ToggleMark("2025-01-03")

	resp := do(t, http.MethodGet, srv.URL+"/export.png", "")
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "export failed", body["error"])

	assert.Equal(t, "circle", ctrl.Mark("2025-01-03").String())
}

func TestExportICS(t *testing.T) {
	srv, ctrl := newTestServer(t, nil, nil)
	ctrl.ToggleMark("2025-01-03")

	resp := do(t, http.MethodGet, srv.URL+"/export.ics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "calendar-2025-01.ics")
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "u", Password: "p"}
	srv, _ := newTestServer(t, cfg, nil)

	resp := do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/month", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/month", nil)
	require.NoError(t, err)
	req.SetBasicAuth("u", "p")
	ok, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer ok.Body.Close()
	assert.Equal(t, http.StatusOK, ok.StatusCode)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, secureCompare("abc", "abc"))
	assert.False(t, secureCompare("abc", "abd"))
	assert.False(t, secureCompare("abc", "ab"))
}
