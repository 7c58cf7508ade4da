package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markcal/internal/config"
)

type fakeCalendar struct {
	refreshes atomic.Int32
	exports   atomic.Int32
	dir       atomic.Value
}

func (f *fakeCalendar) RefreshHolidays(context.Context) error {
	f.refreshes.Add(1)
	return nil
}

func (f *fakeCalendar) ExportFile(_ context.Context, dir string) (string, error) {
	f.exports.Add(1)
	f.dir.Store(dir)
	return dir + "/calendar.png", nil
}

func TestAdd_RejectsBadSpec(t *testing.T) {
	s := New(time.UTC)
	err := s.Add("bad", "not a cron", func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestAdd_EmptySpecDisables(t *testing.T) {
	s := New(time.UTC)
	require.NoError(t, s.Add("off", "", func(context.Context) error { return nil }))
	_, ok := s.Next("off")
	assert.False(t, ok)
}

func TestAdd_Duplicate(t *testing.T) {
	s := New(time.UTC)
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Add("a", "@daily", noop))
	assert.Error(t, s.Add("a", "@daily", noop))
}

func TestRunsJobs(t *testing.T) {
	s := New(time.UTC)
	ran := make(chan struct{}, 4)
	require.NoError(t, s.Add("tick", "@every 1s", func(context.Context) error {
		ran <- struct{}{}
		return errors.New("logged, not fatal")
	}))
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not run")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))
}

func TestRegister(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Holidays.Refresh = "@every 1s"
	cfg.Export.Cron = "@every 1s"
	cfg.Export.Dir = t.TempDir()

	cal := &fakeCalendar{}
	s := New(time.UTC)
	require.NoError(t, Register(s, cfg, cal))

	require.NoError(t, s.Start())
	next, ok := s.Next(JobHolidayRefresh)
	require.True(t, ok)
	assert.False(t, next.IsZero())

	assert.Eventually(t, func() bool {
		return cal.refreshes.Load() > 0 && cal.exports.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, cfg.Export.Dir, cal.dir.Load())
}

func TestRegister_NoExportCron(t *testing.T) {
	cfg := config.DefaultConfig()
	s := New(time.UTC)
	require.NoError(t, Register(s, cfg, &fakeCalendar{}))

	_, ok := s.Next(JobExportSnapshot)
	assert.False(t, ok)
	_, ok = s.Next(JobHolidayRefresh)
	assert.True(t, ok)
}
