package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownPeriod is returned for summary periods other than daily/weekly.
var ErrUnknownPeriod = errors.New("unknown summary period")

// Period selects the trailing window a summary covers.
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// ParsePeriod validates a period string. It never defaults silently.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.TrimSpace(s)); p {
	case PeriodDaily, PeriodWeekly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Span returns the trailing duration covered by the period.
func (p Period) Span() time.Duration {
	if p == PeriodWeekly {
		return week
	}
	return day
}

// Window is an inclusive time range [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// Resolve anchors the period at now.
func (p Period) Resolve(now time.Time) Window {
	return Window{From: now.Add(-p.Span()), To: now}
}

// Contains reports whether t lies within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// SummaryResult is derived from the event log on every query and never stored.
type SummaryResult struct {
	UprightRatio float64 `json:"uprightRatio"`
	TotalEvents  int     `json:"totalEvents"`
}
