package domain

import "github.com/chimera-systems/chimera/internal/errors"

// SLO tracks a fixed-window error-budget accounting for one named
// service-level objective. Per spec §4.7, windows are resetting, not
// sliding: an implementer may substitute a sliding window as an
// extension without changing this shape's semantics.
type SLO struct {
	Name            string
	Target          float64 // in [0, 1]
	WindowSeconds   int64
	TotalRequests   int64
	FailedRequests  int64
}

// NewSLO constructs an SLO with a zeroed window.
func NewSLO(name string, target float64, windowSeconds int64) (SLO, error) {
	if name == "" {
		return SLO{}, errors.Validation("slo.new", "name must not be empty")
	}
	if target < 0 || target > 1 {
		return SLO{}, errors.Validation("slo.new", "target must be in [0,1]")
	}
	if windowSeconds <= 0 {
		return SLO{}, errors.Validation("slo.new", "window must be positive")
	}
	return SLO{Name: name, Target: target, WindowSeconds: windowSeconds}, nil
}

// Availability returns 1 - failed/total, or 1.0 when total is zero.
func (s SLO) Availability() float64 {
	if s.TotalRequests == 0 {
		return 1.0
	}
	return 1.0 - float64(s.FailedRequests)/float64(s.TotalRequests)
}

// ErrorBudget returns the tolerated unavailability implied by Target.
func (s SLO) ErrorBudget() float64 {
	return 1.0 - s.Target
}

// BudgetConsumed returns the fraction of the error budget consumed so
// far this window. With a zero budget (a target of 1.0) it returns 1
// once any request has failed, and 0 otherwise; with no requests it
// returns 0.
func (s SLO) BudgetConsumed() float64 {
	budget := s.ErrorBudget()
	if s.TotalRequests == 0 || budget == 0 {
		if budget == 0 && s.FailedRequests > 0 {
			return 1
		}
		return 0
	}
	failureRate := float64(s.FailedRequests) / float64(s.TotalRequests)
	return failureRate / budget
}

// Violated reports whether the error budget has been exceeded.
func (s SLO) Violated() bool {
	return s.BudgetConsumed() > 1.0
}

// Record accounts for one observation. windowStartAge is the number of
// seconds elapsed since the current window began; when it exceeds
// WindowSeconds, counters reset before the new observation is recorded.
func (s SLO) Record(ok bool, windowStartAge int64) SLO {
	next := s
	if windowStartAge > s.WindowSeconds {
		next.TotalRequests = 0
		next.FailedRequests = 0
	}
	next.TotalRequests++
	if !ok {
		next.FailedRequests++
	}
	return next
}
