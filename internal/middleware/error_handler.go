package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

var statusBySentinel = []struct {
	err  error
	code int
}{
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrInvalidPeriod, http.StatusBadRequest},

	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrSessionUnavailable, http.StatusForbidden},

	{services.ErrCustomerNotFound, http.StatusNotFound},
	{services.ErrPlanNotFound, http.StatusNotFound},
	{services.ErrRegionNotFound, http.StatusNotFound},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrInvoiceNotFound, http.StatusNotFound},
	{services.ErrSessionNotFound, http.StatusNotFound},

	{services.ErrSessionNotOpen, http.StatusConflict},
	{services.ErrSessionNotClosed, http.StatusConflict},
	{services.ErrNoDueInvoices, http.StatusConflict},
	{services.ErrAmountMismatch, http.StatusConflict},
	{services.ErrInvoiceNotCancellable, http.StatusConflict},
	{services.ErrPeriodAlreadyBilled, http.StatusConflict},
	{services.ErrHasDependents, http.StatusConflict},
	{services.ErrBillingRunInProgress, http.StatusConflict},

	{services.ErrOverpayment, http.StatusUnprocessableEntity},
}

// StatusCode maps an error returned by a handler to its HTTP status
func StatusCode(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			return s.code
		}
	}

	var cv *services.ConstraintViolation
	var fk *services.ForeignKeyViolation
	if errors.As(err, &cv) || errors.As(err, &fk) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// CustomErrorHandler renders every error as the JSON response envelope
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := StatusCode(err)
	message := err.Error()

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		c.Logger().Error(err)
		if he == nil {
			message = "Something went wrong. Please try again later."
		}
	}

	body := echo.Map{"success": false, "message": message}
	var overpayment *services.OverpaymentError
	if errors.As(err, &overpayment) {
		body["data"] = echo.Map{"remaining": overpayment.Remaining}
	}

	var renderErr error
	if c.Request().Method == http.MethodHead {
		renderErr = c.NoContent(code)
	} else {
		renderErr = c.JSON(code, body)
	}
	if renderErr != nil {
		c.Logger().Error(renderErr)
	}
}
