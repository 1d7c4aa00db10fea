package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"PredWatch/internal/domain/models"
	"PredWatch/internal/usecase"
	xhttp "PredWatch/pkg/http"
	xlogger "PredWatch/pkg/logger"
)

// MonitorEchoHandler serves the monitoring surface: performance
// summaries, on-demand validation, drift reports, and diagnostics.
type MonitorEchoHandler struct {
	logger    *xlogger.Logger
	validator *usecase.Validator
	drift     *usecase.DriftDetector
	diagnoser *usecase.Diagnoser
	snapshots *usecase.SnapshotService
}

func NewMonitorEchoHandler(
	logger *xlogger.Logger,
	validator *usecase.Validator,
	drift *usecase.DriftDetector,
	diagnoser *usecase.Diagnoser,
	snapshots *usecase.SnapshotService,
) *MonitorEchoHandler {
	return &MonitorEchoHandler{
		logger:    logger,
		validator: validator,
		drift:     drift,
		diagnoser: diagnoser,
		snapshots: snapshots,
	}
}

func (h *MonitorEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/performance", h.Performance)
	g.POST("/validate", h.Validate)
	g.GET("/drift", h.Drift)
	g.GET("/snapshots", h.Snapshots)
	g.GET("/diagnostics", h.Diagnostics)
}

// Performance returns the trailing window summary for one ticker, or all
// tickers when none is given.
func (h *MonitorEchoHandler) Performance(c echo.Context) error {
	req := &models.PerformanceRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	sum, err := h.validator.Summary(c.Request().Context(), req.Ticker, req.WindowDays, time.Now())
	if err != nil {
		h.logger.Error("performance summary error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

// Validate runs a validation pass immediately instead of waiting for the
// next scheduled cycle.
func (h *MonitorEchoHandler) Validate(c echo.Context) error {
	req := &models.ValidateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	resolved, expired, err := h.validator.ValidatePending(c.Request().Context(), time.Now(), req.DaysBack)
	if err != nil {
		h.logger.Error("validation error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]int{
		"resolved": resolved,
		"expired":  expired,
	})
}

// Drift returns the most recent drift reports, recomputing when nothing
// is cached yet.
func (h *MonitorEchoHandler) Drift(c echo.Context) error {
	req := &models.DriftRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	ctx := c.Request().Context()

	if reports, ok := h.drift.Latest(ctx, req.Ticker); ok {
		return xhttp.SuccessResponse(c, &models.DriftResponse{Reports: reports, Stale: anyStale(reports)})
	}

	reports, err := h.drift.Evaluate(ctx, req.Ticker, time.Now())
	if err != nil && !errors.Is(err, models.ErrDriftStale) {
		h.logger.Error("drift evaluation error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, &models.DriftResponse{
		Reports: reports,
		Stale:   errors.Is(err, models.ErrDriftStale),
	})
}

// Snapshots lists recent model versions, newest first.
func (h *MonitorEchoHandler) Snapshots(c echo.Context) error {
	limit := xhttp.ParseIntDefault(c.QueryParam("limit"), 20)
	snaps, err := h.snapshots.List(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("snapshot list error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, snaps, int64(len(snaps)))
}

// Diagnostics reports backend health and record counts.
func (h *MonitorEchoHandler) Diagnostics(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.diagnoser.Collect(c.Request().Context()))
}

func anyStale(reports []models.DriftReport) bool {
	for _, r := range reports {
		if r.Stale {
			return true
		}
	}
	return false
}
