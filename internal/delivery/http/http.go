package http

import (
	"context"
	"errors"
	"net/http"

	"signal-alert-engine/internal/dto"
	"signal-alert-engine/internal/service"
	"signal-alert-engine/pkg/logger"
	"signal-alert-engine/pkg/metrics"
	"signal-alert-engine/pkg/middleware"

	"github.com/labstack/echo/v4"
)

type HttpAPIHandler struct {
	echo    *echo.Echo
	log     *logger.Logger
	service *service.Service
	metrics *metrics.Recorder
}

func NewHttpAPIHandler(ctx context.Context, echo *echo.Echo, log *logger.Logger, service *service.Service, rec *metrics.Recorder) *HttpAPIHandler {
	return &HttpAPIHandler{
		echo:    echo,
		log:     log,
		service: service,
		metrics: rec,
	}
}

func (h *HttpAPIHandler) SetupRoutes() {
	h.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, dto.NewSuccessResponse("ok", nil))
	})
	h.echo.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))

	base := h.echo.Group("/api")
	h.SetupAlerts(base)
	h.SetupSignals(base)
	h.SetupJobs(base)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		validationErr  *dto.ValidationError
		persistenceErr *dto.PersistenceError
	)
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, dto.ErrAlertNotFound), errors.Is(err, dto.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, dto.ErrNoSignal):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dto.ErrPriceUnavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &persistenceErr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *HttpAPIHandler) respondError(c echo.Context, err error) error {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		h.log.ErrorContext(c.Request().Context(), "Request failed",
			logger.StringField("path", c.Path()),
			logger.IntField("status", code),
			logger.ErrorField(err),
		)
	}
	return c.JSON(code, dto.NewErrorResponse(code, err))
}

func ownerOf(c echo.Context) string {
	return middleware.Owner(c)
}
