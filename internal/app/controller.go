// Package app owns the calendar session state: the displayed month, the
// marks, the holiday table of the displayed year and the export pipeline.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"markcal/internal/datekey"
	"markcal/internal/grid"
	"markcal/internal/holiday"
	"markcal/internal/ics"
	appLog "markcal/internal/log"
	"markcal/internal/marks"
	"markcal/internal/model"
	"markcal/internal/raster"
	"markcal/internal/render"
)

// DefaultFetchTimeout bounds one background holiday lookup.
const DefaultFetchTimeout = 15 * time.Second

// Displayable year range.
const (
	MinYear = 1
	MaxYear = 9999
)

// Options configures New. Zero values select sensible defaults.
type Options struct {
	Provider     holiday.Provider
	Exporter     *raster.Exporter
	Labels       render.Labels
	// ExportLabels replaces Labels in PNG exports when set.
	ExportLabels render.Labels
	Location     *time.Location
	Now          func() time.Time
	FetchTimeout time.Duration
}

// Controller is safe for concurrent use by HTTP handlers and the scheduler.
type Controller struct {
	provider     holiday.Provider
	exporter     *raster.Exporter
	labels       render.Labels
	exportLabels render.Labels
	loc          *time.Location
	now          func() time.Time
	fetchTimeout time.Duration

	store *marks.Store

	mu          sync.RWMutex
	ref         time.Time
	holidays    model.HolidayTable
	holidayYear int

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a controller displaying the current month and starts loading
// its holidays in the background.
func New(opts Options) *Controller {
	c := &Controller{
		provider:     opts.Provider,
		exporter:     opts.Exporter,
		labels:       opts.Labels,
		exportLabels: opts.ExportLabels,
		loc:          opts.Location,
		now:          opts.Now,
		fetchTimeout: opts.FetchTimeout,
	}
	if c.provider == nil {
		c.provider = holiday.Static{}
	}
	c.provider = holiday.FailSoft{Provider: c.provider}
	if c.exporter == nil {
		c.exporter = &raster.Exporter{Rasterizer: &raster.Native{}}
	}
	if c.labels.MonthTitle == nil {
		c.labels = render.JapaneseLabels()
	}
	if c.exportLabels.MonthTitle == nil {
		c.exportLabels = c.labels
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	c.store = marks.NewStoreIn(c.loc)
	if c.now == nil {
		c.now = time.Now
	}
	if c.fetchTimeout <= 0 {
		c.fetchTimeout = DefaultFetchTimeout
	}
	c.baseCtx, c.cancel = context.WithCancel(context.Background())

	c.ref = grid.FirstOfMonth(c.now().In(c.loc))
	c.holidays = model.HolidayTable{}
	c.startHolidayLoad(c.ref.Year())
	return c
}

// Close cancels in-flight holiday lookups and waits for them to exit.
func (c *Controller) Close() {
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until every background holiday lookup has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Labels returns the label set used for titles and legends.
func (c *Controller) Labels() render.Labels {
	return c.labels
}

// Location is the timezone calendar dates are interpreted in.
func (c *Controller) Location() *time.Location {
	return c.loc
}

// Reference returns the first day of the displayed month.
func (c *Controller) Reference() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ref
}

// Holidays returns a copy of the loaded table and the year it belongs to.
func (c *Controller) Holidays() (model.HolidayTable, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(model.HolidayTable, len(c.holidays))
	for k, v := range c.holidays {
		out[k] = v
	}
	return out, c.holidayYear
}

// ToggleMark advances the mark of k by one step and returns the new mark.
func (c *Controller) ToggleMark(k model.DateKey) model.Mark {
	m := c.store.Toggle(k)
	appLog.Debug("mark toggled", "date", string(k), "mark", m.String())
	return m
}

// Mark returns the current mark of k.
func (c *Controller) Mark(k model.DateKey) model.Mark {
	return c.store.Mark(k)
}

// SetReason stores the reason text for k under kind.
func (c *Controller) SetReason(k model.DateKey, kind model.Mark, text string) error {
	return c.store.SetReason(k, kind, text)
}

// Reason returns the stored reason for k under kind.
func (c *Controller) Reason(k model.DateKey, kind model.Mark) string {
	return c.store.Reason(k, kind)
}

// ListByKind lists annotated days currently marked with kind.
func (c *Controller) ListByKind(kind model.Mark) []model.Annotation {
	return c.store.ListByKind(kind)
}

// NavigateMonth moves the displayed month by delta. Marks are untouched. A
// move that would leave MinYear..MaxYear keeps the current month.
func (c *Controller) NavigateMonth(delta int) time.Time {
	c.mu.Lock()
	next := grid.AddMonths(c.ref, delta)
	if y := next.Year(); y < MinYear || y > MaxYear {
		ref := c.ref
		c.mu.Unlock()
		appLog.Debug("navigation out of range", "year", y)
		return ref
	}
	c.ref = next
	ref := c.ref
	c.mu.Unlock()

	c.yearMaybeChanged(ref.Year())
	return ref
}

// SetMonth jumps directly to year/month.
func (c *Controller) SetMonth(year int, month time.Month) (time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, fmt.Errorf("app: invalid month %d", month)
	}
	if year < MinYear || year > MaxYear {
		return time.Time{}, fmt.Errorf("app: invalid year %d", year)
	}

	c.mu.Lock()
	c.ref = time.Date(year, month, 1, 0, 0, 0, 0, c.loc)
	ref := c.ref
	c.mu.Unlock()

	c.yearMaybeChanged(year)
	return ref, nil
}

func (c *Controller) yearMaybeChanged(year int) {
	c.mu.RLock()
	loaded := c.holidayYear
	c.mu.RUnlock()
	if loaded != year {
		c.startHolidayLoad(year)
	}
}

// startHolidayLoad fetches the table for year in the background. The result
// is applied only if year is still the displayed year when it arrives.
func (c *Controller) startHolidayLoad(year int) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(c.baseCtx, c.fetchTimeout)
		defer cancel()

		table, err := c.provider.Holidays(ctx, year)
		if err != nil {
			appLog.Warn("holiday load failed", "year", year, "err", err.Error())
			table = holiday.Fallback(year)
		}
		c.applyHolidays(year, table)
	}()
}

func (c *Controller) applyHolidays(year int, table model.HolidayTable) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ref.Year() != year {
		appLog.Debug("dropping stale holiday table", "year", year, "displayed", c.ref.Year())
		return false
	}
	if table == nil {
		table = model.HolidayTable{}
	}
	c.holidays = table
	c.holidayYear = year
	appLog.Info("holidays loaded", "year", year, "count", len(table))
	return true
}

// RefreshHolidays synchronously reloads the table for the displayed year.
func (c *Controller) RefreshHolidays(ctx context.Context) error {
	year := c.Reference().Year()

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	table, err := c.provider.Holidays(ctx, year)
	if err != nil {
		return fmt.Errorf("app: refresh holidays %d: %w", year, err)
	}
	if !c.applyHolidays(year, table) {
		return fmt.Errorf("app: displayed year changed during refresh of %d", year)
	}
	return nil
}

// snapshot reads the displayed month and its holiday table together.
func (c *Controller) snapshot() (time.Time, model.HolidayTable) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ref, c.holidays
}

// Grid builds the 42-cell grid of the displayed month.
func (c *Controller) Grid() model.MonthGrid {
	_, g := c.Month()
	return g
}

// Month returns the displayed month together with its grid.
func (c *Controller) Month() (time.Time, model.MonthGrid) {
	ref, holidays := c.snapshot()
	return ref, grid.Build(ref, c.now().In(c.loc), c.store, holidays)
}

// Document renders the displayed month.
func (c *Controller) Document() render.Document {
	ref, holidays := c.snapshot()
	return c.document(ref, holidays, c.labels)
}

func (c *Controller) document(ref time.Time, holidays model.HolidayTable, labels render.Labels) render.Document {
	g := grid.Build(ref, c.now().In(c.loc), c.store, holidays)
	return render.Build(render.Input{Ref: ref, Grid: g, Annotations: c.store, Labels: labels})
}

// Export rasterizes the displayed month to PNG. On failure the error wraps
// raster.ErrExportFailed and the session state is unchanged.
func (c *Controller) Export(ctx context.Context) (string, []byte, error) {
	ref, holidays := c.snapshot()
	doc := c.document(ref, holidays, c.exportLabels)

	data, err := c.exporter.Export(ctx, doc)
	if err != nil {
		appLog.Error("export failed", err, "year", ref.Year(), "month", int(ref.Month()))
		return "", nil, err
	}
	name := raster.Filename(ref.Year(), ref.Month())
	appLog.Info("exported month", "file", name, "bytes", len(data))
	return name, data, nil
}

// ExportFile writes the PNG of the displayed month into dir.
func (c *Controller) ExportFile(ctx context.Context, dir string) (string, error) {
	ref, holidays := c.snapshot()
	path, err := c.exporter.ExportFile(ctx, c.document(ref, holidays, c.exportLabels), dir, ref.Year(), ref.Month())
	if err != nil {
		appLog.Error("export to file failed", err, "dir", dir)
		return "", err
	}
	appLog.Info("exported month", "path", path)
	return path, nil
}

// ICS serializes the marked days of the displayed month as iCalendar.
func (c *Controller) ICS() string {
	ref := c.Reference()

	var days []ics.MarkedDay
	for k, m := range c.store.Marks() {
		y, mo, _, err := datekey.Decode(k)
		if err != nil || y != ref.Year() || mo != ref.Month() {
			continue
		}
		day := ics.MarkedDay{Key: k, Mark: m}
		if m.Annotatable() {
			day.Reason = c.store.Reason(k, m)
		}
		days = append(days, day)
	}
	return ics.Export(days, c.now().UTC())
}
