package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"

	"PerpDesk/internal/domain/models"
	"PerpDesk/internal/services/llm"
	"PerpDesk/internal/usecase"
	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"
)

const maxValidateBody = 1 << 20

// validateResponse is the body of POST /api/validate.
type validateResponse struct {
	Valid       bool              `json:"valid"`
	Output      *models.LLMOutput `json:"output,omitempty"`
	Corrections []string          `json:"corrections"`
	Issues      []string          `json:"issues"`
}

// Analyze runs one analysis. ?dry_run=true stops after building the market
// state.
func (h *Handler) Analyze(c echo.Context) error {
	if h.limiter != nil && !h.limiter.Allow("analyze:"+c.RealIP()) {
		h.l.Warn("analyze rate limited", applogger.String("remote", c.RealIP()))
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many analysis requests"))
	}

	// echo only binds query parameters for GET and DELETE
	req := &models.AnalyzeRequest{}
	if err := echo.QueryParamsBinder(c).Bool("dry_run", &req.DryRun).BindError(); err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_BOOL",
			Field:   "dry_run",
			Message: "dry_run must be a boolean",
		}})
	}

	res, err := h.analysis.Run(c.Request().Context(), usecase.AnalyzeOptions{DryRun: req.DryRun})
	if errors.Is(err, usecase.ErrValidationFailed) {
		return xhttp.DataResponse(c, http.StatusUnprocessableEntity, res)
	}
	if err != nil {
		return h.fail(c, "analyze", err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Validate checks and corrects a plan posted as the raw request body.
func (h *Handler) Validate(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxValidateBody))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("cannot read body").WithError(err))
	}
	out, corrections, issues := h.analysis.Validate(string(body))
	res := validateResponse{
		Valid:       out != nil,
		Output:      out,
		Corrections: nonNil(corrections),
		Issues:      nonNil(issues),
	}
	if out == nil {
		return xhttp.DataResponse(c, http.StatusUnprocessableEntity, res)
	}
	return xhttp.SuccessResponse(c, res)
}

// fail maps use case errors to API errors.
func (h *Handler) fail(c echo.Context, op string, err error) error {
	switch {
	case errors.Is(err, usecase.ErrNoSnapshots):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError(err.Error()))
	case errors.Is(err, usecase.ErrAnalysisInProgress):
		return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
	case errors.Is(err, llm.ErrMissingAPIKey):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("no LLM provider configured"))
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("LLM provider is failing, retry later"))
	}
	h.l.Error(op+" failed", applogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
