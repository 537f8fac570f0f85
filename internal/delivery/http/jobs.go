package http

import (
	"net/http"

	"signal-alert-engine/internal/dto"

	"github.com/labstack/echo/v4"
)

func (h *HttpAPIHandler) SetupJobs(base *echo.Group) {
	v1 := base.Group("/v1/jobs")
	{
		v1.GET("", h.listJobs)
		v1.POST("/:name/run", h.runJob)
	}
}

func (h *HttpAPIHandler) listJobs(c echo.Context) error {
	jobs := h.service.SchedulerService.GetJobSchedule(c.Request().Context())
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", jobs))
}

func (h *HttpAPIHandler) runJob(c echo.Context) error {
	run, err := h.service.SchedulerService.RunJobTask(c.Request().Context(), c.Param("name"))
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, dto.NewSuccessResponse("job finished", run))
}
