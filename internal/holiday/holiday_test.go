package holiday

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markcal/internal/fetch"
	"markcal/internal/model"
)

func TestFallback(t *testing.T) {
	table := Fallback(2025)
	assert.Len(t, table, 16)
	assert.Equal(t, "元日", table["2025-01-01"])

	// Callers may mutate their copy.
	table["2025-01-01"] = "changed"
	assert.Equal(t, "元日", Fallback(2025)["2025-01-01"])

	assert.Empty(t, Fallback(2024))
	assert.Empty(t, Fallback(2099))
}

func TestJSONProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/v1/2026/") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"2026-01-01":"元日","2026-01-12":"成人の日","bogus":"x","2025-12-31":"stray"}`))
	}))
	defer srv.Close()

	p := &JSONProvider{URL: srv.URL + "/api/v1/{year}/date.json", Fetcher: fetch.New(t.TempDir())}

	table, err := p.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, model.HolidayTable{"2026-01-01": "元日", "2026-01-12": "成人の日"}, table)

	_, err = p.Holidays(context.Background(), 2027)
	assert.ErrorIs(t, err, fetch.ErrStatus)
}

func TestJSONProvider_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	p := &JSONProvider{URL: srv.URL, Fetcher: fetch.New("")}
	_, err := p.Holidays(context.Background(), 2025)
	assert.Error(t, err)
}

func TestICSProvider(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//t//t//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:a@t\r\nDTSTAMP:20240101T000000Z\r\nDTSTART;VALUE=DATE:20250721\r\nSUMMARY:海の日\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = w.Write([]byte(feed))
	}))
	defer srv.Close()

	p := &ICSProvider{URL: srv.URL + "/holidays.ics", Fetcher: fetch.New("")}
	table, err := p.Holidays(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, model.HolidayTable{"2025-07-21": "海の日"}, table)
}

func TestFailSoft(t *testing.T) {
	failing := ProviderFunc(func(context.Context, int) (model.HolidayTable, error) {
		return nil, errors.New("network unreachable")
	})
	p := FailSoft{Provider: failing}

	table, err := p.Holidays(context.Background(), 2025)
	require.NoError(t, err)
	assert.Equal(t, "元日", table["2025-01-01"])

	table, err = p.Holidays(context.Background(), 2099)
	require.NoError(t, err)
	assert.NotNil(t, table)
	assert.Empty(t, table)
}

func TestFailSoft_PassesThrough(t *testing.T) {
	ok := ProviderFunc(func(context.Context, int) (model.HolidayTable, error) {
		return model.HolidayTable{"2030-01-01": "New Year"}, nil
	})
	table, err := FailSoft{Provider: ok}.Holidays(context.Background(), 2030)
	require.NoError(t, err)
	assert.Equal(t, "New Year", table["2030-01-01"])
}

func TestStatic(t *testing.T) {
	table, err := Static{}.Holidays(context.Background(), 2025)
	require.NoError(t, err)
	assert.Len(t, table, 16)
}
