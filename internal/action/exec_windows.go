//go:build windows

package action

import (
	"os/exec"
	"syscall"
)

func shellCommand(command string) (string, []string) {
	return "cmd", []string{"/C", command}
}

func hideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
