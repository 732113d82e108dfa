package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

type SessionHandler struct {
	sessions *services.CashSessionService
}

func NewSessionHandler(sessions *services.CashSessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Open starts a cash session for the calling collector, or returns the one
// already open
func (h *SessionHandler) Open(c echo.Context) error {
	session, reused, err := h.sessions.OpenSession(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	if reused {
		return respondOK(c, "Session already open", session)
	}
	return respondCreated(c, "Session opened", session)
}

// Active returns the calling collector's open session, if any
func (h *SessionHandler) Active(c echo.Context) error {
	session, err := h.sessions.ActiveSession(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	if session == nil {
		return respondOK(c, "No open session", nil)
	}
	return respondOK(c, "", session)
}

// Close ends the collector's own open session
func (h *SessionHandler) Close(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	session, err := h.sessions.CloseSession(c.Request().Context(), id, currentUserID(c))
	if err != nil {
		return err
	}
	return respondOK(c, "Session closed", session)
}

type approveRequest struct {
	Amount *decimal.Decimal `json:"amount"`
}

// Approve reconciles a closed session against the cash actually received
func (h *SessionHandler) Approve(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req approveRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Amount == nil {
		return fmt.Errorf("%w: amount is required", services.ErrInvalidInput)
	}

	session, err := h.sessions.ApproveSession(c.Request().Context(), id, currentUserID(c), *req.Amount)
	if err != nil {
		return err
	}
	return respondOK(c, "Session approved", session)
}

// Payments lists the payments recorded in a session
func (h *SessionHandler) Payments(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	payments, err := h.sessions.SessionPayments(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondOK(c, "", payments)
}

// List shows sessions, optionally filtered by ?status=
func (h *SessionHandler) List(c echo.Context) error {
	status := models.CashSessionStatus(strings.ToUpper(c.QueryParam("status")))
	switch status {
	case "", models.CashSessionStatusOpen, models.CashSessionStatusClosed, models.CashSessionStatusApproved:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown session status")
	}

	sessions, err := h.sessions.ListSessions(c.Request().Context(), status)
	if err != nil {
		return err
	}
	return respondOK(c, "", sessions)
}
