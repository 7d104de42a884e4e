//go:build !windows

package action

import "os/exec"

func shellCommand(command string) (string, []string) {
	return "sh", []string{"-c", command}
}

func hideWindow(*exec.Cmd) {}
