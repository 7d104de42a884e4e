//go:build !linux && !windows

package action

import (
	"context"
	"os/exec"

	"github.com/rs/zerolog"
)

// ShutdownExecutor powers the host off.
type ShutdownExecutor struct {
	logger zerolog.Logger
}

func NewShutdownExecutor(logger zerolog.Logger) *ShutdownExecutor {
	return &ShutdownExecutor{logger: logger}
}

func (e *ShutdownExecutor) Name() string { return "shutdown" }

func (e *ShutdownExecutor) Available() bool {
	_, err := exec.LookPath("shutdown")
	return err == nil
}

func (e *ShutdownExecutor) Execute(ctx context.Context) error {
	return run(ctx, e.logger, "shutdown", "-h", "now")
}
