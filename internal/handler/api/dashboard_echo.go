package api

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "TrendPulse/internal/domain/models"
	svcmetrics "TrendPulse/internal/service/metrics"
	"TrendPulse/internal/usecase"
	xhttp "TrendPulse/pkg/http"
	"TrendPulse/pkg/http/middleware"
	xlogger "TrendPulse/pkg/logger"
)

// InsufficientDataText is the body of "/" when either window could not be fetched.
const InsufficientDataText = "Could not retrieve sufficient data for both periods."

//go:embed templates/*.html
var Templates embed.FS

// TemplatePattern matches the page templates inside Templates.
const TemplatePattern = "templates/*.html"

// DashboardService is what the handler needs from usecase.Dashboard.
type DashboardService interface {
	Keyword() string
	Report(ctx context.Context) (*models.TrendReport, error)
	Page(ctx context.Context) (*usecase.Page, error)
}

type indexView struct {
	Keyword     string
	Volume      string
	Growth      string
	PlotURL     template.URL
	Current     string
	Previous    string
	GeneratedAt string
}

// DashboardEchoHandler serves the chart page and its JSON counterpart.
type DashboardEchoHandler struct {
	logger   *xlogger.Logger
	dash     DashboardService
	limiter  middleware.Limiter
	deadline time.Duration
}

// NewDashboardEchoHandler builds the handler. A nil limiter disables rate limiting and a
// zero deadline leaves request contexts untouched.
func NewDashboardEchoHandler(logger *xlogger.Logger, dash DashboardService, limiter middleware.Limiter, deadline time.Duration) *DashboardEchoHandler {
	return &DashboardEchoHandler{logger: logger, dash: dash, limiter: limiter, deadline: deadline}
}

func (h *DashboardEchoHandler) RegisterRoutes(e *echo.Echo) {
	var mw []echo.MiddlewareFunc
	if h.limiter != nil {
		mw = append(mw, middleware.RateLimit(h.limiter))
	}
	e.GET("/", h.Index, mw...)
	e.GET("/api/trend", h.Trend, mw...)
	e.GET("/healthz", h.Health)
}

// Index renders the chart page, or the plain-text notice when data is missing.
func (h *DashboardEchoHandler) Index(c echo.Context) error {
	start := time.Now()
	defer observe("index", start)

	ctx, cancel := h.requestContext(c)
	defer cancel()

	page, err := h.dash.Page(ctx)
	if err != nil {
		reason := errorReason(err)
		svcmetrics.DashboardErrors.WithLabelValues("index", reason).Inc()
		switch reason {
		case "insufficient_data":
			return c.String(http.StatusOK, InsufficientDataText)
		case "timeout":
			return c.String(http.StatusGatewayTimeout, "Timed out waiting for the trends source.")
		case "cancelled":
			return nil
		}
		h.logger.Error("dashboard page error", xlogger.Error(err))
		return c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}

	r := page.Report
	view := indexView{
		Keyword:     r.Keyword,
		Volume:      r.Display.Volume,
		Growth:      r.Display.Growth,
		PlotURL:     template.URL("data:" + page.ContentType + ";base64," + page.ImageBase64),
		Current:     r.Current.String(),
		Previous:    r.Previous.String(),
		GeneratedAt: r.GeneratedAt.Format(time.RFC1123),
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.Render(http.StatusOK, "index.html", view)
}

// Trend returns the report as JSON. Pass series=false to drop the point data.
func (h *DashboardEchoHandler) Trend(c echo.Context) error {
	start := time.Now()
	defer observe("trend", start)

	req := &models.TrendRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	report, err := h.dash.Report(ctx)
	if err != nil {
		reason := errorReason(err)
		svcmetrics.DashboardErrors.WithLabelValues("trend", reason).Inc()
		var ide *usecase.InsufficientDataError
		switch {
		case errors.As(err, &ide):
			return xhttp.AppErrorResponse(c, xhttp.ServiceUnavailableError(ide.Reason()).
				WithParam("keyword", h.dash.Keyword()).WithError(err))
		case reason == "timeout":
			return xhttp.AppErrorResponse(c, xhttp.GatewayTimeoutError("timed out waiting for the trends source"))
		}
		h.logger.Error("trend usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("failed to build trend report").WithError(err))
	}

	if !xhttp.ParseBoolDefault(req.Series, true) {
		r := report.WithoutSeries()
		report = &r
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *DashboardEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{
		"status":  "ok",
		"keyword": h.dash.Keyword(),
	})
}

func (h *DashboardEchoHandler) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if h.deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.deadline)
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, usecase.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}

func observe(endpoint string, start time.Time) {
	svcmetrics.DashboardLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
