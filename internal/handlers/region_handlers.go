package handlers

import (
	"github.com/labstack/echo/v4"

	"isp_billing_echo/internal/services"
)

type RegionHandler struct {
	regions *services.RegionService
}

func NewRegionHandler(regions *services.RegionService) *RegionHandler {
	return &RegionHandler{regions: regions}
}

func (h *RegionHandler) ListRegions(c echo.Context) error {
	regions, err := h.regions.List(c.Request().Context())
	if err != nil {
		return err
	}
	return respondOK(c, "", regions)
}

func (h *RegionHandler) StoreRegion(c echo.Context) error {
	var in services.RegionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	region, err := h.regions.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return respondCreated(c, "Region created", region)
}

func (h *RegionHandler) UpdateRegion(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var in services.RegionInput
	if err := bind(c, &in); err != nil {
		return err
	}
	region, err := h.regions.Update(c.Request().Context(), id, in)
	if err != nil {
		return err
	}
	return respondOK(c, "Region updated", region)
}

// DeleteRegion removes an empty region and ends its collector assignments
func (h *RegionHandler) DeleteRegion(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.regions.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return respondOK(c, "Region deleted", nil)
}
