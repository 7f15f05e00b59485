package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"autocheckout/internal/checkout"
	"autocheckout/internal/models"
	"autocheckout/internal/repository"
)

// Engine is what the admin API needs from the checkout executor.
type Engine interface {
	Execute(ctx context.Context, kind checkout.InvocationKind) checkout.Result
	Status(ctx context.Context) (checkout.StatusReport, error)
}

// ExecutionLister reads the execution ledger.
type ExecutionLister interface {
	FindRecent(ctx context.Context, limit int) ([]models.ExecutionLog, error)
}

// HistoryLister reads the checkout audit trail.
type HistoryLister interface {
	FindAll(ctx context.Context, f repository.HistoryFilter, limit, page int) ([]models.CheckoutLog, int64, error)
}

// CheckoutHandler serves /api/checkout/*.
type CheckoutHandler struct {
	engine     Engine
	settings   checkout.SettingsStore
	executions ExecutionLister
	history    HistoryLister
	location   *time.Location
	logger     *zap.Logger
}

func NewCheckoutHandler(engine Engine, settings checkout.SettingsStore, executions ExecutionLister, history HistoryLister, loc *time.Location, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		engine:     engine,
		settings:   settings,
		executions: executions,
		history:    history,
		location:   loc,
		logger:     logger,
	}
}

// Run triggers a scheduled invocation; the window and once-per-day gates apply.
func (h *CheckoutHandler) Run(c echo.Context) error {
	return h.execute(c, checkout.KindScheduled)
}

// Test runs a manual invocation that ignores the window and daily gate.
func (h *CheckoutHandler) Test(c echo.Context) error {
	return h.execute(c, checkout.KindManual)
}

// Force closes every open booking, processed or not.
func (h *CheckoutHandler) Force(c echo.Context) error {
	return h.execute(c, checkout.KindForced)
}

func (h *CheckoutHandler) execute(c echo.Context, kind checkout.InvocationKind) error {
	c.Set("api_actions", string(kind))

	// A run always completes, even if the caller hangs up.
	res := h.engine.Execute(context.WithoutCancel(c.Request().Context()), kind)
	code := http.StatusOK
	if res.Outcome == checkout.OutcomeError {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, models.APIResponse{
		Status: res.Outcome != checkout.OutcomeError,
		Msg:    res.Message,
		Obj:    res,
	})
}

func (h *CheckoutHandler) Status(c echo.Context) error {
	rep, err := h.engine.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("Status report failed", zap.Error(err))
		return errorResponse(c, http.StatusServiceUnavailable, "Failed to read checkout status")
	}
	return successResponse(c, "Successful", rep)
}

func (h *CheckoutHandler) GetSettings(c echo.Context) error {
	raw, err := h.settings.GetAll(c.Request().Context())
	if err != nil {
		h.logger.Error("Load settings failed", zap.Error(err))
		return errorResponse(c, http.StatusServiceUnavailable, "Failed to load settings")
	}
	s := checkout.ParseSettings(raw, h.location, h.logger)
	return successResponse(c, "Successful", map[string]interface{}{
		"enabled":     s.Enabled,
		"target_time": s.TargetTime.String(),
		"last_run":    s.LastRunRaw,
		"timezone":    h.location.String(),
	})
}

func (h *CheckoutHandler) UpdateSettings(c echo.Context) error {
	var req models.SettingsUpdateRequest
	if err := c.Bind(&req); err != nil {
		return errorResponse(c, http.StatusBadRequest, "Invalid request body")
	}
	if req.Enabled == nil && req.TargetTime == "" {
		return errorResponse(c, http.StatusBadRequest, "Nothing to update")
	}

	err := checkout.SaveSettings(c.Request().Context(), h.settings, checkout.SettingsUpdate{
		Enabled:    req.Enabled,
		TargetTime: req.TargetTime,
	})
	if errors.Is(err, checkout.ErrInvalidTargetTime) {
		return errorResponse(c, http.StatusBadRequest, "target_time must be HH:MM")
	}
	if err != nil {
		h.logger.Error("Save settings failed", zap.Error(err))
		return errorResponse(c, http.StatusServiceUnavailable, "Failed to save settings")
	}
	return h.GetSettings(c)
}

func (h *CheckoutHandler) Executions(c echo.Context) error {
	limit := queryInt(c, "limit", 30, 365)
	items, err := h.executions.FindRecent(c.Request().Context(), limit)
	if err != nil {
		h.logger.Error("List executions failed", zap.Error(err))
		return errorResponse(c, http.StatusServiceUnavailable, "Failed to list executions")
	}
	return successResponse(c, "Successful", items)
}

func (h *CheckoutHandler) History(c echo.Context) error {
	limit := queryInt(c, "limit", 50, 500)
	page := queryInt(c, "page", 1, 0)
	filter := repository.HistoryFilter{
		Date:   c.QueryParam("date"),
		Status: c.QueryParam("status"),
		RunID:  c.QueryParam("run_id"),
	}

	items, total, err := h.history.FindAll(c.Request().Context(), filter, limit, page)
	if err != nil {
		h.logger.Error("List checkout history failed", zap.Error(err))
		return errorResponse(c, http.StatusServiceUnavailable, "Failed to list checkout history")
	}
	return successResponse(c, "Successful", paginatedResponse(items, total, page, limit))
}
