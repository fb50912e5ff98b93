package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/posture/internal/domain/types"
)

// ConsentDependencies reads and updates the opt-in flag.
type ConsentDependencies interface {
	Consent(ctx context.Context) bool
	SetConsent(ctx context.Context, enabled bool) (bool, error)
}

// ConsentHandler handles consent requests.
type ConsentHandler struct {
	deps ConsentDependencies
}

// NewConsentHandler creates a new consent handler.
func NewConsentHandler(deps ConsentDependencies) *ConsentHandler {
	return &ConsentHandler{deps: deps}
}

// HandleGetConsent handles GET /consent requests.
func (h *ConsentHandler) HandleGetConsent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ConsentResponse{Consent: h.deps.Consent(r.Context())})
}

var errMissingConsent = errors.New("missing consent")

// HandleSetConsent handles POST /consent requests and echoes the state in
// effect after persistence.
func (h *ConsentHandler) HandleSetConsent(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_consent"
	var req types.ConsentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.Consent == nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errMissingConsent))
		return
	}
	applied, err := h.deps.SetConsent(r.Context(), *req.Consent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrInternal, err))
		return
	}
	writeJSON(w, http.StatusOK, types.ConsentResponse{Consent: applied})
}
