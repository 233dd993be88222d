package api

import (
	"errors"

	"github.com/labstack/echo/v4"

	models "github.com/bournewang/ai-hedge-fund/internal/domain/models"
	"github.com/bournewang/ai-hedge-fund/internal/service/ratelimit"
	"github.com/bournewang/ai-hedge-fund/internal/usecase"
	xhttp "github.com/bournewang/ai-hedge-fund/pkg/http"
	xlogger "github.com/bournewang/ai-hedge-fund/pkg/logger"
)

// AnalysisHandler exposes the interactive run lifecycle: start, cancel and
// the polling accessors.
type AnalysisHandler struct {
	logger  *xlogger.Logger
	ctrl    *usecase.RunController
	limiter *ratelimit.Limiter
	rateCap float64
	rateRPS float64
}

// AnalysisOption configures AnalysisHandler.
type AnalysisOption func(*AnalysisHandler)

// WithRateLimit throttles run starts per client IP.
func WithRateLimit(l *ratelimit.Limiter, capacity, refillPerSec float64) AnalysisOption {
	return func(h *AnalysisHandler) {
		h.limiter = l
		h.rateCap = capacity
		h.rateRPS = refillPerSec
	}
}

func NewAnalysisHandler(logger *xlogger.Logger, ctrl *usecase.RunController, opts ...AnalysisOption) *AnalysisHandler {
	h := &AnalysisHandler{logger: logger, ctrl: ctrl}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *AnalysisHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/analysis")
	g.POST("/runs", h.StartRun)
	g.DELETE("/runs/current", h.CancelRun)
	g.GET("/status", h.RunStatus)
	g.GET("/progress", h.RunProgress)
	g.GET("/progress/cell", h.ProgressCell)
}

// StartRun kicks off a backend analysis stream. The response is accepted, not
// completed: callers follow progress over the websocket or by polling.
func (h *AnalysisHandler) StartRun(c echo.Context) error {
	req := &models.AnalysisRunRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if h.limiter != nil && !h.limiter.Allow(c.RealIP(), h.rateCap, h.rateRPS) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many run starts, slow down"))
	}

	if err := h.ctrl.Start(req); err != nil {
		switch {
		case errors.Is(err, usecase.ErrRunInProgress):
			return xhttp.AppErrorResponse(c, xhttp.ConflictError("an analysis run is already in progress"))
		case errors.Is(err, usecase.ErrNoTickers), errors.Is(err, usecase.ErrNoAgents):
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		default:
			h.logger.Error("run start failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}

	return xhttp.AcceptedResponse(c, h.ctrl.Status())
}

// CancelRun aborts the active run. Cancelling an idle controller is a no-op,
// so the route is idempotent.
func (h *AnalysisHandler) CancelRun(c echo.Context) error {
	if h.ctrl.Cancel() {
		h.logger.Info("run canceled by client", xlogger.String("ip", c.RealIP()))
	}
	return xhttp.NoContentResponse(c)
}

func (h *AnalysisHandler) RunStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.ctrl.Status())
}

func (h *AnalysisHandler) RunProgress(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.ctrl.Progress())
}

// ProgressCell returns one agent/ticker cell of the progress board.
func (h *AnalysisHandler) ProgressCell(c echo.Context) error {
	req := &models.CellRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	cell, ok := h.ctrl.Cell(req.Agent, req.Ticker)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no cell for agent %q ticker %q", req.Agent, req.Ticker))
	}
	return xhttp.SuccessResponse(c, cell)
}
