package cli

import (
	"sync"

	chimeraerrors "github.com/chimera-systems/chimera/internal/errors"
)

// exitCodeState lets a command set an exit code narrower than "success
// or hard error" (e.g. ExitPartialFailure) without making Cobra print
// an error for a run that otherwise completed normally.
type exitCodeState struct {
	mu   sync.Mutex
	code int
}

func (s *exitCodeState) set(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = code
}

func (s *exitCodeState) get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

var exitCodeHolder = &exitCodeState{}

// exitCodeFor maps a returned error to the exit code scheme in spec
// §6.2: 2 for invalid arguments/validation, 3 for authorization denial,
// 1 for anything else (port failures, cancellation, internal errors).
func exitCodeFor(err error) int {
	switch chimeraerrors.GetKind(err) {
	case chimeraerrors.KindValidation:
		return ExitInvalidArgs
	case chimeraerrors.KindAuthDenied:
		return ExitAuthDenied
	default:
		return ExitPartialFailure
	}
}
