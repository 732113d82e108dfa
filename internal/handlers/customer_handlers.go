package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/models"
	"isp_billing_echo/internal/services"
)

type CustomerHandler struct {
	customers *services.CustomerService
	billing   *services.BillingService
	invoices  *services.InvoiceService
}

func NewCustomerHandler(customers *services.CustomerService, billing *services.BillingService, invoices *services.InvoiceService) *CustomerHandler {
	return &CustomerHandler{customers: customers, billing: billing, invoices: invoices}
}

// List returns customers filtered by ?status=, ?region_id= and ?q=
func (h *CustomerHandler) List(c echo.Context) error {
	regionID, err := queryUint(c, "region_id")
	if err != nil {
		return err
	}
	filter := services.CustomerFilter{
		Status:   models.CustomerStatus(strings.ToUpper(c.QueryParam("status"))),
		RegionID: regionID,
		Search:   c.QueryParam("q"),
	}

	customers, err := h.customers.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return respondOK(c, "", customers)
}

// Mine returns the active customers in the calling collector's regions
func (h *CustomerHandler) Mine(c echo.Context) error {
	customers, err := h.customers.ListForCollector(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return respondOK(c, "", customers)
}

// Get returns one customer
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	customer, err := h.customers.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondOK(c, "", customer)
}

// Store creates a customer. Active customers get their first invoice right away.
func (h *CustomerHandler) Store(c echo.Context) error {
	var in services.CustomerInput
	if err := bind(c, &in); err != nil {
		return err
	}

	customer, invoice, err := h.customers.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respondCreated(c, "Customer created", echo.Map{"customer": customer, "invoice": invoice})
}

// Update changes a customer's details
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.CustomerInput
	if err := bind(c, &in); err != nil {
		return err
	}

	customer, err := h.customers.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respondOK(c, "Customer updated", customer)
}

// Delete removes a customer that has no invoices
func (h *CustomerHandler) Delete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.customers.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respondOK(c, "Customer deleted", nil)
}

// Bill issues the current period's invoice for a customer
func (h *CustomerHandler) Bill(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	invoice, err := h.billing.BillNewCustomer(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondCreated(c, "Customer billed", invoice)
}

// Invoices lists a customer's invoices. ?due=1 limits them to outstanding ones.
func (h *CustomerHandler) Invoices(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var invoices []models.Invoice
	if c.QueryParam("due") == "1" || c.QueryParam("due") == "true" {
		invoices, err = h.invoices.DueInvoices(c.Request().Context(), id)
	} else {
		invoices, err = h.invoices.CustomerInvoices(c.Request().Context(), id)
	}
	if err != nil {
		return err
	}
	return respondOK(c, "", invoices)
}
