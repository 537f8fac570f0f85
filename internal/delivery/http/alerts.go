package http

import (
	"net/http"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/pkg/middleware"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupAlerts(base *echo.Group) {
	v1 := base.Group("/v1/alerts")
	v1.POST("/check", h.checkAlerts)

	owned := v1.Group("", middleware.RequireOwner())
	{
		owned.GET("", h.listAlerts)
		owned.POST("", h.createAlert)
		owned.POST("/smart", h.createSmartAlert)
		owned.POST("/auto", h.generateAutomaticAlerts)
		owned.GET("/:id", h.getAlert)
		owned.PATCH("/:id", h.updateAlert)
		owned.DELETE("/:id", h.deleteAlert)
	}
}

func (h *HttpAPIHandler) listAlerts(c echo.Context) error {
	var filter dto.AlertFilter
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &filter); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid query parameters"))
	}

	alerts, err := h.service.AlertService.List(c.Request().Context(), ownerOf(c), filter)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", alerts))
}

func (h *HttpAPIHandler) getAlert(c echo.Context) error {
	alert, err := h.service.AlertService.Get(c.Request().Context(), ownerOf(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", alert))
}

func (h *HttpAPIHandler) createAlert(c echo.Context) error {
	req := new(dto.CreateAlertRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	alert, err := h.service.AlertService.Create(c.Request().Context(), ownerOf(c), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "alert created", alert))
}

func (h *HttpAPIHandler) createSmartAlert(c echo.Context) error {
	req := new(dto.CreateSmartAlertRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	alert, err := h.service.AlertService.CreateSmart(c.Request().Context(), ownerOf(c), req.AssetID)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, dto.NewBaseResponse(http.StatusCreated, "smart alert created", alert))
}

func (h *HttpAPIHandler) generateAutomaticAlerts(c echo.Context) error {
	created, errs := h.service.AlertService.GenerateAutomaticAlerts(c.Request().Context(), ownerOf(c))

	skipped := make(map[string]string, len(errs))
	for assetID, err := range errs {
		skipped[assetID] = err.Error()
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("automatic alerts generated", map[string]interface{}{
		"created": created,
		"skipped": skipped,
	}))
}

func (h *HttpAPIHandler) updateAlert(c echo.Context) error {
	req := new(dto.UpdateAlertRequest)
	if err := c.Bind(req); err != nil {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("invalid request body"))
	}

	alert, ok, err := h.service.AlertService.Update(c.Request().Context(), ownerOf(c), c.Param("id"), *req)
	if err != nil {
		return h.respondError(c, err)
	}
	if !ok {
		return h.respondError(c, dto.ErrAlertNotFound)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("alert updated", alert))
}

func (h *HttpAPIHandler) deleteAlert(c echo.Context) error {
	ok, err := h.service.AlertService.Delete(c.Request().Context(), ownerOf(c), c.Param("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	if !ok {
		return h.respondError(c, dto.ErrAlertNotFound)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("alert deleted", nil))
}

// checkAlerts runs one trigger pass over every pending alert.
func (h *HttpAPIHandler) checkAlerts(c echo.Context) error {
	triggered, err := h.service.AlertService.CheckAll(c.Request().Context())
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("trigger check finished", triggered))
}
