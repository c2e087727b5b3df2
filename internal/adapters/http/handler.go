package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MerlinMagicschool/innerself-ai-server/internal/app"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/domain"
)

// maxBodyBytes bounds request bodies; valid requests are far smaller.
const maxBodyBytes = 64 << 10

type Handler struct {
	svc    *app.ReadingService
	logger *zap.Logger
}

func NewHandler(svc *app.ReadingService, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.POST("/v1/readings/basic", h.ReadBasic)
	e.POST("/v1/readings/detailed", h.ReadDetailed)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (h *Handler) ReadBasic(c echo.Context) error {
	return h.read(c, domain.VariantBasic)
}

func (h *Handler) ReadDetailed(c echo.Context) error {
	return h.read(c, domain.VariantDetailed)
}

func (h *Handler) read(c echo.Context, v domain.Variant) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "could not read request body"})
	}
	if len(body) > maxBodyBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
	}
	if err := validateBody(v, body); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	var dto ReadingRequest
	if err := json.Unmarshal(body, &dto); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: errBodyNotJSON.Error()})
	}
	req := domain.NewRequest(dto.Question, dto.Context, dto.MainCards, dto.BranchCards)

	res, err := h.svc.Read(c.Request().Context(), v, req)
	if err != nil {
		return h.mapError(c, err)
	}

	requestID, _ := c.Get("request_id").(string)
	fields := []zap.Field{
		zap.String("request_id", requestID),
		zap.String("variant", string(v)),
		zap.String("source", string(res.Source)),
		zap.String("model", res.Model),
		zap.Int64("generation_ms", res.LatencyMS),
	}
	if res.Failure != nil {
		fields = append(fields, zap.String("failure", res.Failure.Tag()))
	}
	h.logger.Info("reading served", fields...)

	return c.JSON(http.StatusOK, res.Envelope)
}

func (h *Handler) mapError(c echo.Context, err error) error {
	requestID, _ := c.Get("request_id").(string)

	var perr *domain.PipelineError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &perr):
		h.logger.Error("reading pipeline failure",
			zap.String("request_id", requestID),
			zap.String("code", perr.Tag()),
			zap.Error(err),
		)
		detail := ""
		if perr.Err != nil {
			detail = domain.Preview(perr.Err.Error())
		}
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   perr.Tag(),
			Detail:  detail,
			Path:    perr.Path,
			Preview: perr.Preview,
		})
	default:
		h.logger.Error("internal error", zap.String("request_id", requestID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
