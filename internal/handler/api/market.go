package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"PerpDesk/internal/domain/models"
	xhttp "PerpDesk/pkg/http"
	applogger "PerpDesk/pkg/logger"
	"PerpDesk/pkg/util"
)

func (h *Handler) Status(c echo.Context) error {
	rep, err := h.status.Report(c.Request().Context())
	if err != nil {
		h.l.Error("status report failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return xhttp.SuccessResponse(c, rep)
}

func (h *Handler) State(c echo.Context) error {
	state, err := h.analysis.State(c.Request().Context())
	if err != nil {
		return h.fail(c, "state", err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, state)
}

// Signals lists signals since ?since= (RFC3339 or unix), defaulting to the
// start of the current UTC day.
func (h *Handler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	since := util.StartOfUTCDay(h.now())
	if req.Since != "" {
		t, ok := util.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("since: cannot parse %q", req.Since))
		}
		since = t
	}

	sigs, err := h.signals.Since(c.Request().Context(), since)
	if err != nil {
		h.l.Error("signal log read failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	total := len(sigs)
	if total > req.Limit {
		sigs = sigs[total-req.Limit:]
	}
	if sigs == nil {
		sigs = []models.Signal{}
	}
	return xhttp.ListResponse(c, sigs, int64(total))
}

func (h *Handler) LatestAnalysis(c echo.Context) error {
	rec, err := h.analysis.Latest(c.Request().Context())
	if err != nil {
		h.l.Error("analysis log read failed", applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if rec == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no analysis recorded yet"))
	}
	age := h.now().Sub(rec.Timestamp)
	c.Response().Header().Set(xhttp.HeaderAnalysisAge, age.Round(time.Second).String())
	return xhttp.SuccessResponse(c, rec)
}
