// Package types contains the JSON shapes exchanged over the HTTP API.
package types

import (
	"time"

	"github.com/okian/posture/internal/domain/model"
)

// TrackRequest is the body of POST /track. A missing confidence is
// reported as nil so the handler can apply its default.
type TrackRequest struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// TrackResponse reports whether the event was persisted.
type TrackResponse struct {
	Stored bool `json:"stored"`
}

// SummaryResponse is the body of GET /summary.
type SummaryResponse struct {
	UprightRatio float64 `json:"uprightRatio"`
	TotalEvents  int     `json:"totalEvents"`
}

// NewSummaryResponse converts a domain result to its wire shape.
func NewSummaryResponse(r model.SummaryResult) SummaryResponse {
	return SummaryResponse{UprightRatio: r.UprightRatio, TotalEvents: r.TotalEvents}
}

// ConsentRequest is the body of POST /consent. Consent is a pointer so a
// body without the field is rejected instead of read as false.
type ConsentRequest struct {
	Consent *bool `json:"consent"`
}

// ConsentResponse echoes the consent state in effect.
type ConsentResponse struct {
	Consent bool `json:"consent"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is returned with every 4xx/5xx status.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats is the operational snapshot served by GET /stats.
type Stats struct {
	Started                  bool      `json:"started"`
	Store                    string    `json:"store"`
	Consent                  bool      `json:"consent"`
	StoredEvents             int       `json:"storedEvents"`
	EligibilityMinConfidence float64   `json:"eligibilityMinConfidence"`
	StartedAt                time.Time `json:"startedAt"`
	UptimeSeconds            float64   `json:"uptimeSeconds"`
}
