package api

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/types"
)

// defaultConfidence applies when a client omits confidence; such clients
// have already applied their own floor before sending.
const defaultConfidence = 1.0

// TrackDependencies persists classifications subject to eligibility and
// consent.
type TrackDependencies interface {
	Track(ctx context.Context, c model.Classification) (bool, error)
}

// TrackHandler handles track requests.
type TrackHandler struct {
	deps TrackDependencies
}

// NewTrackHandler creates a new track handler.
func NewTrackHandler(deps TrackDependencies) *TrackHandler {
	return &TrackHandler{deps: deps}
}

// HandleTrack handles POST /track requests. The stored flag is decided
// server side; a disabled consent or an ineligible label is not an error.
func (h *TrackHandler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	const op = "api.track"
	var req types.TrackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	c, err := classification(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	stored, err := h.deps.Track(r.Context(), c)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, types.TrackResponse{Stored: stored})
}

var errConfidenceRange = errors.New("confidence must be a number within [0,1]")

func classification(req types.TrackRequest) (model.Classification, error) {
	label, err := model.ParseLabel(req.Label)
	if err != nil {
		return model.Classification{}, err
	}
	conf := defaultConfidence
	if req.Confidence != nil {
		conf = *req.Confidence
	}
	if math.IsNaN(conf) || math.IsInf(conf, 0) || conf < 0 || conf > 1 {
		return model.Classification{}, fmt.Errorf("%w, got %v", errConfidenceRange, conf)
	}
	return model.Classification{Label: label, Confidence: conf}, nil
}
