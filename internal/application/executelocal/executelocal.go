// Package executelocal implements the CLI's `run` use case: build a
// configuration locally and execute a command inside a named session on
// this host, with no remote fan-out (spec §6.2's single-node `run`
// command, as distinct from the fleet-wide Deploy Fleet use case).
package executelocal

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/chimera-systems/chimera/internal/domain"
	"github.com/chimera-systems/chimera/internal/ports"
)

// Input is the Execute Local use case's request.
type Input struct {
	ConfigPath  domain.ConfigPath
	SessionName domain.SessionId
	Command     string
}

// Output is the Execute Local use case's result.
type Output struct {
	Fingerprint domain.Fingerprint
	SessionUsed domain.SessionId
	Succeeded   bool
}

// UseCase builds and runs a command locally through the injected ports.
type UseCase struct {
	build   ports.BuildPort
	session ports.SessionPort
	now     func() time.Time
	logger  *log.Logger
}

// New constructs a UseCase. now defaults to time.Now, logger to a
// default charmbracelet/log logger, when nil.
func New(build ports.BuildPort, session ports.SessionPort, now func() time.Time, logger *log.Logger) *UseCase {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = log.Default()
	}
	return &UseCase{build: build, session: session, now: now, logger: logger}
}

// Execute builds configPath, ensures sessionName exists, and runs
// command inside it.
func (uc *UseCase) Execute(ctx context.Context, input Input) (Output, error) {
	fingerprint, err := uc.build.Build(ctx, input.ConfigPath)
	if err != nil {
		return Output{}, err
	}

	if _, err := uc.session.Create(ctx, input.SessionName); err != nil {
		return Output{Fingerprint: fingerprint}, err
	}

	ok, err := uc.session.Run(ctx, input.SessionName, input.Command)
	if err != nil {
		uc.logger.Error("local run failed", "session", input.SessionName, "err", err)
		return Output{Fingerprint: fingerprint, SessionUsed: input.SessionName}, err
	}
	return Output{Fingerprint: fingerprint, SessionUsed: input.SessionName, Succeeded: ok}, nil
}
