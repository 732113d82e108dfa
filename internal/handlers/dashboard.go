package handlers

import (
	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Collector summarises the calling collector's day
func (h *DashboardHandler) Collector(c echo.Context) error {
	summary, err := h.dashboard.CollectorSummary(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return respondOK(c, "", summary)
}
