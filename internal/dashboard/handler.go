package dashboard

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/backoffice-console/backoffice/internal/dashboard/svg"
	"github.com/backoffice-console/backoffice/internal/shared"
	"github.com/backoffice-console/backoffice/internal/view"
)

const requestTimeout = 5 * time.Second

// Reader is the data contract used by the handler.
type Reader interface {
	Metrics(ctx context.Context) (Metrics, error)
	OrdersByPeriod(ctx context.Context, period Period) ([]PeriodCount, error)
}

// Handler serves the dashboard page and its chart fragment.
type Handler struct {
	logger    *slog.Logger
	reader    Reader
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewHandler constructs the dashboard handler.
func NewHandler(logger *slog.Logger, reader Reader, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, reader: reader, templates: templates, csrf: csrf}
}

// MountRoutes registers the dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleDashboard)
	r.Get("/dashboard/chart", h.handleChart)
}

// PageData is rendered by pages/dashboard.html.
type PageData struct {
	Periods []Period
	Chart   ChartData
	Metrics *Metrics
	// MetricsError and Chart.Error are shown in place of the failed section.
	MetricsError string
}

// ChartData is rendered by the chart partial, alone or inside the page.
type ChartData struct {
	Period Period
	Series []PeriodCount
	SVG    template.HTML
	Error  string
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "pages/dashboard.html", PageData{
			Periods:      Periods,
			Chart:        ChartData{Period: DefaultPeriod, Error: "Unknown period."},
			MetricsError: "Metrics unavailable for an unknown period.",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data := PageData{Periods: Periods, Chart: ChartData{Period: period}}
	var metrics Metrics
	var series []PeriodCount
	var metricsErr, seriesErr error

	// Sections fail independently so one outage does not blank the page.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		metrics, metricsErr = h.reader.Metrics(gctx)
		return nil
	})
	g.Go(func() error {
		series, seriesErr = h.reader.OrdersByPeriod(gctx, period)
		return nil
	})
	_ = g.Wait()

	if metricsErr != nil {
		h.logger.ErrorContext(ctx, "dashboard metrics failed", slog.Any("error", metricsErr))
		data.MetricsError = "Metrics are unavailable right now."
	} else {
		data.Metrics = &metrics
	}
	data.Chart = h.chart(ctx, period, series, seriesErr)
	h.render(w, r, http.StatusOK, "pages/dashboard.html", data)
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, "unknown period", http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	series, err := h.reader.OrdersByPeriod(ctx, period)
	chart := h.chart(ctx, period, series, err)
	status := http.StatusOK
	if chart.Error != "" {
		status = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.RenderPartial(w, "partials/chart.html", chart); err != nil {
		h.logger.Error("render chart", slog.Any("error", err))
	}
}

func (h *Handler) chart(ctx context.Context, period Period, series []PeriodCount, err error) ChartData {
	out := ChartData{Period: period, Series: series}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.ErrorContext(ctx, "dashboard series failed", slog.String("period", string(period)), slog.Any("error", err))
		}
		out.Error = "Order history is unavailable right now."
		return out
	}
	values := make([]float64, len(series))
	labels := make([]string, len(series))
	for i, bucket := range series {
		values[i] = float64(bucket.Count)
		labels[i] = bucket.Period
	}
	chart, err := svg.Bars(svg.DefaultWidth, svg.DefaultHeight, values, labels, svg.BarOpts{
		Title:       "Orders " + string(period),
		Description: "Number of orders per " + periodUnit(period),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "render dashboard chart", slog.Any("error", err))
		out.Error = "Chart could not be drawn."
		return out
	}
	out.SVG = chart
	return out
}

func periodUnit(p Period) string {
	switch p {
	case PeriodDaily:
		return "day"
	case PeriodWeekly:
		return "week"
	default:
		return "month"
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data PageData) {
	sess := shared.SessionFromContext(r.Context())
	var csrfToken string
	var flash *shared.FlashMessage
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Dashboard",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if err := h.templates.RenderStatus(w, status, name, viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
	}
}
