package http

import (
	"net/http"
	"strings"

	"signal-alert-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupSignals(base *echo.Group) {
	v1 := base.Group("/v1/signals")
	{
		v1.GET("", h.getSignals)
		v1.GET("/best", h.getBestSignals)
		v1.GET("/:asset", h.getAssetSignals)
		v1.GET("/:asset/best", h.getBestSignal)
	}
}

// queryList accepts both repeated and comma-separated query values.
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (h *HttpAPIHandler) getAssetSignals(c echo.Context) error {
	signals, err := h.service.SignalService.GenerateSignals(c.Request().Context(), c.Param("asset"), c.QueryParam("timeframe"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", signals))
}

func (h *HttpAPIHandler) getBestSignal(c echo.Context) error {
	signal, err := h.service.SignalService.GetBestSignal(c.Request().Context(), c.Param("asset"), c.QueryParam("timeframe"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", signal))
}

func (h *HttpAPIHandler) getSignals(c echo.Context) error {
	assets := queryList(c, "assets")
	if len(assets) == 0 {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("assets query parameter is required"))
	}

	results, _ := h.service.SignalService.GetSignals(c.Request().Context(), assets, queryList(c, "timeframes"))
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", results))
}

func (h *HttpAPIHandler) getBestSignals(c echo.Context) error {
	assets := queryList(c, "assets")
	if len(assets) == 0 {
		return c.JSON(http.StatusBadRequest, dto.NewBadRequestResponse("assets query parameter is required"))
	}

	best := h.service.SignalService.GetBestSignals(c.Request().Context(), assets, c.QueryParam("timeframe"))
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", best))
}
