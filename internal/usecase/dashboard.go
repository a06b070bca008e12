package usecase

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"TrendPulse/internal/domain/models"
	domrepo "TrendPulse/internal/domain/repository"
	domsvc "TrendPulse/internal/domain/service"
	applogger "TrendPulse/pkg/logger"
	"TrendPulse/pkg/util"
)

// Fetcher is the part of TrendFetcher the dashboard depends on.
type Fetcher interface {
	Fetch(ctx context.Context, keyword string, window models.DateWindow) (*FetchResult, error)
}

// DashboardConfig fixes the keyword and window layout of the dashboard.
type DashboardConfig struct {
	Keyword       string
	WindowDays    int
	ShareBoundary bool           // previous window ends on the day the current one starts
	Location      *time.Location // calendar used for "today"; UTC when nil
	BuildTimeout  time.Duration  // bound on a shared build; zero leaves it unbounded
}

// Page is a rendered dashboard: the report plus its chart.
type Page struct {
	Report      models.TrendReport
	Image       []byte
	ImageBase64 string
	ContentType string
}

// Dashboard runs one fetch, compare and render cycle per request.
type Dashboard struct {
	cfg       DashboardConfig
	fetcher   Fetcher
	calc      *GrowthCalculator
	renderer  domsvc.ChartRenderer
	publisher domrepo.ReportPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	now       func() time.Time

	inflight singleflight.Group
}

type DashboardOption func(*Dashboard)

func WithPublisher(p domrepo.ReportPublisher) DashboardOption {
	return func(d *Dashboard) { d.publisher = p }
}

func WithDashboardMetrics(m domrepo.Metrics) DashboardOption {
	return func(d *Dashboard) { d.metrics = m }
}

func WithDashboardLogger(l *applogger.Logger) DashboardOption {
	return func(d *Dashboard) { d.l = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) DashboardOption {
	return func(d *Dashboard) { d.now = now }
}

func NewDashboard(cfg DashboardConfig, fetcher Fetcher, calc *GrowthCalculator, renderer domsvc.ChartRenderer, opts ...DashboardOption) (*Dashboard, error) {
	if cfg.Keyword == "" {
		return nil, fmt.Errorf("dashboard keyword is required")
	}
	if cfg.WindowDays < 1 {
		return nil, fmt.Errorf("dashboard window days must be >= 1, got %d", cfg.WindowDays)
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if calc == nil {
		calc = NewGrowthCalculator()
	}
	d := &Dashboard{
		cfg:      cfg,
		fetcher:  fetcher,
		calc:     calc,
		renderer: renderer,
		metrics:  nopMetrics{},
		l:        applogger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Dashboard) Keyword() string { return d.cfg.Keyword }

// Report fetches both windows and compares them. Identical concurrent calls for the same
// day share one execution; nothing is kept once it returns.
//
// The shared execution is detached from every caller's cancellation and bounded by
// BuildTimeout instead. Each caller still stops waiting when its own ctx is done.
func (d *Dashboard) Report(ctx context.Context) (*models.TrendReport, error) {
	today := util.StartOfDay(d.now().In(d.cfg.Location))
	key := d.cfg.Keyword + "|" + util.FormatDate(today)

	ch := d.inflight.DoChan(key, func() (interface{}, error) {
		bctx, cancel := d.buildContext(ctx)
		defer cancel()
		return d.report(bctx, today)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			d.l.Debug("dashboard build shared with in-flight request", applogger.String("key", key))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		r := *res.Val.(*models.TrendReport)
		return &r, nil
	}
}

func (d *Dashboard) buildContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if d.cfg.BuildTimeout > 0 {
		return context.WithTimeout(detached, d.cfg.BuildTimeout)
	}
	return context.WithCancel(detached)
}

// Page builds the report and renders the current series as an image.
func (d *Dashboard) Page(ctx context.Context) (*Page, error) {
	if d.renderer == nil {
		return nil, fmt.Errorf("dashboard has no chart renderer")
	}
	report, err := d.Report(ctx)
	if err != nil {
		return nil, err
	}
	img, err := d.renderer.Render(ctx, *report.Series, report.Display)
	if err != nil {
		d.metrics.RecordError("render")
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return &Page{
		Report:      *report,
		Image:       img,
		ImageBase64: base64.StdEncoding.EncodeToString(img),
		ContentType: d.renderer.ContentType(),
	}, nil
}

func (d *Dashboard) report(ctx context.Context, today time.Time) (*models.TrendReport, error) {
	keyword := d.cfg.Keyword
	current, previous, err := AdjacentWindows(today, d.cfg.WindowDays, d.cfg.ShareBoundary)
	if err != nil {
		return nil, err
	}

	cur, curErr := d.fetcher.Fetch(ctx, keyword, current)
	if curErr != nil && isAbort(ctx, curErr) {
		return nil, curErr
	}
	prev, prevErr := d.fetcher.Fetch(ctx, keyword, previous)
	if prevErr != nil && isAbort(ctx, prevErr) {
		return nil, prevErr
	}
	if curErr != nil || prevErr != nil {
		d.metrics.RecordError("insufficient_data")
		e := &InsufficientDataError{CurrentErr: curErr, PreviousErr: prevErr}
		d.l.Warn("could not retrieve sufficient data for both periods",
			applogger.String("keyword", keyword),
			applogger.String("reason", e.Reason()),
			applogger.Error(e),
		)
		return nil, e
	}

	growth, err := d.calc.Compute(cur.Series, prev.Series, keyword)
	if err != nil {
		d.metrics.RecordError("insufficient_data")
		return nil, &InsufficientDataError{CurrentErr: err}
	}
	d.metrics.RecordGrowth(keyword, growth)

	series := cur.Series
	report := models.TrendReport{
		Keyword:  keyword,
		Current:  current,
		Previous: previous,
		Growth:   growth,
		Display: models.DisplayPayload{
			Keyword: keyword,
			Volume:  FormatVolume(growth.CurrentMean),
			Growth:  FormatGrowth(growth),
		},
		Series: &series,
		Stats: models.FetchStats{
			CurrentAttempts:  cur.Attempts,
			PreviousAttempts: prev.Attempts,
			Waited:           cur.Waited + prev.Waited,
		},
		GeneratedAt: d.now().UTC(),
	}

	d.l.Info("trend report built",
		applogger.String("keyword", keyword),
		applogger.String("volume", report.Display.Volume),
		applogger.String("growth", report.Display.Growth),
		applogger.Int("attempts", cur.Attempts+prev.Attempts),
	)

	if d.publisher != nil {
		if err := d.publisher.Publish(ctx, report); err != nil {
			d.metrics.RecordError("publish")
			d.l.Warn("report publish failed", applogger.Error(err))
		}
	}
	return &report, nil
}

// isAbort is true when the request itself went away, so the second fetch is pointless.
func isAbort(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// AdjacentWindows returns the current window [today-days, today] and the one before it.
// With shareBoundary the previous window is [today-2*days, today-days], so both include
// today-days. Otherwise it is shifted back one day and the two windows are disjoint.
func AdjacentWindows(today time.Time, days int, shareBoundary bool) (current, previous models.DateWindow, err error) {
	if days < 1 {
		return current, previous, fmt.Errorf("%w: window days must be >= 1, got %d", models.ErrInvalidWindow, days)
	}
	current, err = models.NewDateWindow(util.AddDays(today, -days), today)
	if err != nil {
		return current, previous, err
	}
	shift := 0
	if !shareBoundary {
		shift = -1
	}
	previous, err = models.NewDateWindow(util.AddDays(today, -2*days+shift), util.AddDays(today, -days+shift))
	return current, previous, err
}

// FormatVolume truncates the mean to an integer.
func FormatVolume(mean float64) string {
	return strconv.FormatFloat(math.Trunc(mean), 'f', 0, 64)
}

// FormatGrowth renders a truncated signed percentage such as "+100%" or "-25%".
func FormatGrowth(g models.GrowthResult) string {
	if g.IsInfinite() {
		return "+∞%"
	}
	t := math.Trunc(g.GrowthPercent)
	if t == 0 {
		t = 0 // drop negative zero
	}
	s := strconv.FormatFloat(t, 'f', 0, 64)
	if t >= 0 {
		s = "+" + s
	}
	return s + "%"
}
