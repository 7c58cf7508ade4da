// Package holiday supplies per-year holiday tables from pluggable sources.
package holiday

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"markcal/internal/datekey"
	"markcal/internal/fetch"
	"markcal/internal/ics"
	appLog "markcal/internal/log"
	"markcal/internal/model"
)

// DefaultJSONURL is the public Japanese holiday API. {year} is replaced by the
// requested year.
const DefaultJSONURL = "https://holidays-jp.github.io/api/v1/{year}/date.json"

// Provider returns the holiday table of one calendar year.
type Provider interface {
	Holidays(ctx context.Context, year int) (model.HolidayTable, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, year int) (model.HolidayTable, error)

func (f ProviderFunc) Holidays(ctx context.Context, year int) (model.HolidayTable, error) {
	return f(ctx, year)
}

func expandURL(tmpl string, year int) string {
	return strings.ReplaceAll(tmpl, "{year}", strconv.Itoa(year))
}

// JSONProvider reads a JSON object mapping "YYYY-MM-DD" to a label, the
// format served by holidays-jp.github.io.
type JSONProvider struct {
	URL     string // may contain {year}
	Fetcher *fetch.Fetcher
}

func (p *JSONProvider) Holidays(ctx context.Context, year int) (model.HolidayTable, error) {
	res, err := p.Fetcher.FetchOne(ctx, fetch.Source{ID: fmt.Sprintf("holidays-%d", year), URL: expandURL(p.URL, year)})
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(res.Body, &raw); err != nil {
		return nil, fmt.Errorf("holiday: decode %d: %w", year, err)
	}

	out := make(model.HolidayTable, len(raw))
	for k, label := range raw {
		key, err := datekey.Parse(k)
		if err != nil {
			appLog.Warn("holiday: skipping malformed date", "key", k, "year", year)
			continue
		}
		if y, _, _, _ := datekey.Decode(key); y != year {
			continue
		}
		out[key] = label
	}
	return out, nil
}

// ICSProvider reads an iCalendar holiday feed and expands it for the year.
type ICSProvider struct {
	URL     string // may contain {year}
	Fetcher *fetch.Fetcher
}

func (p *ICSProvider) Holidays(ctx context.Context, year int) (model.HolidayTable, error) {
	src := fetch.Source{ID: fmt.Sprintf("holidays-ics-%d", year), URL: expandURL(p.URL, year)}
	res, err := p.Fetcher.FetchOne(ctx, src)
	if err != nil {
		return nil, err
	}

	events, err := ics.Parse(src.ID, res.Body)
	if err != nil {
		return nil, fmt.Errorf("holiday: parse ics: %w", err)
	}
	return ics.HolidaysForYear(events, year), nil
}

// Static serves only the built-in fallback table.
type Static struct{}

func (Static) Holidays(_ context.Context, year int) (model.HolidayTable, error) {
	return Fallback(year), nil
}

// FailSoft never fails: errors from the wrapped provider are logged and the
// static fallback for the year is returned instead.
type FailSoft struct {
	Provider Provider
}

func (f FailSoft) Holidays(ctx context.Context, year int) (model.HolidayTable, error) {
	table, err := f.Provider.Holidays(ctx, year)
	if err != nil {
		appLog.Warn("holiday lookup failed; using fallback table", "year", year, "err", err.Error())
		return Fallback(year), nil
	}
	return table, nil
}
