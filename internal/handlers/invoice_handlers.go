package handlers

import (
	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
}

func NewInvoiceHandler(invoices *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// StoreCustom raises an ad-hoc invoice outside the billing cycle
func (h *InvoiceHandler) StoreCustom(c echo.Context) error {
	var req services.CustomInvoiceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.CreatorID = currentUserID(c)

	invoice, err := h.invoices.CreateCustomInvoice(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respondCreated(c, "Invoice created", invoice)
}

// Cancel voids an unpaid invoice
func (h *InvoiceHandler) Cancel(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	invoice, err := h.invoices.CancelInvoice(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondOK(c, "Invoice cancelled", invoice)
}
