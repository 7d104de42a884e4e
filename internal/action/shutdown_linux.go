//go:build linux

package action

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// ShutdownExecutor powers the host off.
type ShutdownExecutor struct {
	logger zerolog.Logger
}

func NewShutdownExecutor(logger zerolog.Logger) *ShutdownExecutor {
	return &ShutdownExecutor{logger: logger}
}

func (e *ShutdownExecutor) Name() string { return "shutdown" }

// Available is true when shutdown(8) exists or the process may power off
// the machine directly.
func (e *ShutdownExecutor) Available() bool {
	if _, err := exec.LookPath("shutdown"); err == nil {
		return true
	}
	return os.Geteuid() == 0
}

// Execute asks the init system to power off. When that fails and the process
// runs as root it flushes filesystems and issues the power-off syscall.
func (e *ShutdownExecutor) Execute(ctx context.Context) error {
	err := run(ctx, e.logger, "shutdown", "-h", "now")
	if err == nil {
		return nil
	}
	if os.Geteuid() != 0 {
		return err
	}

	e.logger.Warn().Err(err).Msg("shutdown command failed, powering off directly")
	unix.Sync()
	if rerr := unix.Reboot(unix.LINUX_REBOOT_CMD_POWER_OFF); rerr != nil {
		return fmt.Errorf("power off: %w (after %v)", rerr, err)
	}
	return nil
}
