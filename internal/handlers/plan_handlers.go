package handlers

import (
	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

type PlanHandler struct {
	plans *services.PlanService
}

func NewPlanHandler(plans *services.PlanService) *PlanHandler {
	return &PlanHandler{plans: plans}
}

// ListPlans returns plans; ?active=1 hides retired ones
func (h *PlanHandler) ListPlans(c echo.Context) error {
	activeOnly := c.QueryParam("active") == "1" || c.QueryParam("active") == "true"
	plans, err := h.plans.List(c.Request().Context(), activeOnly)
	if err != nil {
		return err
	}
	return respondOK(c, "", plans)
}

func (h *PlanHandler) GetPlan(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	plan, err := h.plans.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respondOK(c, "", plan)
}

// StorePlan handles the creation of a new plan
func (h *PlanHandler) StorePlan(c echo.Context) error {
	var in services.PlanInput
	if err := bind(c, &in); err != nil {
		return err
	}
	plan, err := h.plans.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respondCreated(c, "Plan created", plan)
}

func (h *PlanHandler) UpdatePlan(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.PlanInput
	if err := bind(c, &in); err != nil {
		return err
	}
	plan, err := h.plans.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respondOK(c, "Plan updated", plan)
}

// DeletePlan removes a plan no customer subscribes to
func (h *PlanHandler) DeletePlan(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.plans.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respondOK(c, "Plan deleted", nil)
}
