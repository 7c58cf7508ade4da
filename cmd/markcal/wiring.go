package main

import (
	"fmt"

	"markcal/internal/app"
	"markcal/internal/config"
	"markcal/internal/fetch"
	"markcal/internal/holiday"
	appLog "markcal/internal/log"
	"markcal/internal/raster"
	"markcal/internal/render"
)

func newProvider(c *config.Config) holiday.Provider {
	switch c.Holidays.Source {
	case config.HolidaySourceStatic:
		return holiday.Static{}
	case config.HolidaySourceICS:
		f := fetch.New(c.Holidays.CacheDir, fetch.WithTimeout(c.HolidayTimeout()))
		return &holiday.ICSProvider{URL: c.Holidays.URL, Fetcher: f}
	default:
		f := fetch.New(c.Holidays.CacheDir, fetch.WithTimeout(c.HolidayTimeout()))
		return &holiday.JSONProvider{URL: c.Holidays.URL, Fetcher: f}
	}
}

func newController(c *config.Config) (*app.Controller, error) {
	r, err := raster.New(raster.Options{
		Backend:  c.Raster.Backend,
		FontPath: c.Render.FontPath,
		BoldFont: c.Render.BoldFontPath,
		Timeout:  c.RasterTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create rasterizer: %w", err)
	}

	labels := render.LabelsFor(c.Locale)
	return app.New(app.Options{
		Provider:     newProvider(c),
		Exporter:     &raster.Exporter{Rasterizer: r},
		Labels:       labels,
		ExportLabels: exportLabels(r, labels),
		Location:     c.Location(),
		FetchTimeout: c.HolidayTimeout(),
	}), nil
}

// exportLabels falls back to English in PNG exports when the rasterizer has
// no font for the configured labels.
func exportLabels(r raster.Rasterizer, labels render.Labels) render.Labels {
	if labels.ASCII() || !raster.ASCIIOnly(r) {
		return labels
	}
	appLog.Warn("no render.font_path for the native backend; PNG exports use English labels")
	return render.EnglishLabels()
}
