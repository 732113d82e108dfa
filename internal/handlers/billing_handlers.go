package handlers

import (
	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

type BillingHandler struct {
	billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

type periodRequest struct {
	Period string `json:"period"`
}

func (r periodRequest) orCurrent(billing *services.BillingService) string {
	if r.Period == "" {
		return billing.CurrentPeriod()
	}
	return r.Period
}

// CreateCycles runs phase one of billing for a period
func (h *BillingHandler) CreateCycles(c echo.Context) error {
	var req periodRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	period := req.orCurrent(h.billing)

	count, err := h.billing.CreateBillingCycles(c.Request().Context(), period)
	if err != nil {
		return err
	}
	return respondOK(c, "Billing cycles created", echo.Map{"period": period, "created": count})
}

// ProcessCycles runs phase two of billing for a period
func (h *BillingHandler) ProcessCycles(c echo.Context) error {
	var req periodRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	period := req.orCurrent(h.billing)

	count, err := h.billing.ProcessBillingCycles(c.Request().Context(), period)
	if err != nil {
		return err
	}
	return respondOK(c, "Billing cycles processed", echo.Map{"period": period, "invoicesCreated": count})
}

// Run executes both phases. It is the target of the external cron trigger.
func (h *BillingHandler) Run(c echo.Context) error {
	var req periodRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	result, err := h.billing.RunBilling(c.Request().Context(), req.Period)
	if err != nil {
		return err
	}
	return respondOK(c, "Billing run completed", result)
}
