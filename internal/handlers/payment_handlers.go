package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

// ReceiptNotifier queues a customer receipt for recorded payments
type ReceiptNotifier interface {
	Enqueue(ctx context.Context, payments []models.Payment) error
}

type PaymentHandler struct {
	payments *services.PaymentService
	receipts ReceiptNotifier
}

// NewPaymentHandler creates a PaymentHandler. receipts may be nil.
func NewPaymentHandler(payments *services.PaymentService, receipts ReceiptNotifier) *PaymentHandler {
	return &PaymentHandler{payments: payments, receipts: receipts}
}

// Collect records cash handed to the calling collector
func (h *PaymentHandler) Collect(c echo.Context) error {
	var req services.CollectPaymentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	req.CollectorID = currentUserID(c)

	result, err := h.payments.CollectPayment(c.Request().Context(), req)
	if err != nil {
		return err
	}

	// the payment stands even when the receipt cannot be queued
	if h.receipts != nil {
		if err := h.receipts.Enqueue(c.Request().Context(), result.Payments); err != nil {
			c.Logger().Warnf("failed to queue payment receipt: %v", err)
		}
	}
	return respondCreated(c, "Payment collected", result)
}

// CustomerPayments lists the receipts of a customer
func (h *PaymentHandler) CustomerPayments(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	payments, err := h.payments.CustomerPayments(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondOK(c, "", payments)
}
