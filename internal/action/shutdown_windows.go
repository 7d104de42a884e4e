//go:build windows

package action

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"
)

// ShutdownExecutor powers the host off.
type ShutdownExecutor struct {
	logger zerolog.Logger
}

func NewShutdownExecutor(logger zerolog.Logger) *ShutdownExecutor {
	return &ShutdownExecutor{logger: logger}
}

func (e *ShutdownExecutor) Name() string { return "shutdown" }

// Available is always true: ExitWindowsEx is present on every supported
// Windows version even when shutdown.exe is not on PATH.
func (e *ShutdownExecutor) Available() bool {
	return true
}

// Execute runs shutdown.exe and falls back to ExitWindowsEx.
func (e *ShutdownExecutor) Execute(ctx context.Context) error {
	var err error
	if _, lookErr := exec.LookPath("shutdown"); lookErr == nil {
		if err = run(ctx, e.logger, "shutdown", "/s", "/t", "0"); err == nil {
			return nil
		}
		e.logger.Warn().Err(err).Msg("shutdown.exe failed, calling ExitWindowsEx")
	}

	if xerr := windows.ExitWindowsEx(windows.EWX_POWEROFF|windows.EWX_FORCEIFHUNG, windows.SHTDN_REASON_FLAG_PLANNED); xerr != nil {
		if err != nil {
			return fmt.Errorf("ExitWindowsEx: %w (after %v)", xerr, err)
		}
		return fmt.Errorf("ExitWindowsEx: %w", xerr)
	}
	return nil
}
