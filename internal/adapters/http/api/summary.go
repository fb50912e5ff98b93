package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/types"
)

// SummaryDependencies computes windowed statistics.
type SummaryDependencies interface {
	Summary(ctx context.Context, period model.Period) (model.SummaryResult, error)
}

// SummaryHandler handles summary requests.
type SummaryHandler struct {
	deps SummaryDependencies
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(deps SummaryDependencies) *SummaryHandler {
	return &SummaryHandler{deps: deps}
}

// HandleSummary handles GET /summary?period=daily|weekly requests. An absent
// period means daily; any other value is rejected.
func (h *SummaryHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.summary"
	raw := r.URL.Query().Get("period")
	if raw == "" {
		raw = string(model.PeriodDaily)
	}
	period, err := model.ParsePeriod(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Summary(r.Context(), period)
	switch {
	case errors.Is(err, model.ErrUnknownPeriod):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, types.NewSummaryResponse(res))
}
