//go:build !windows

package gitdriver

import (
	"os/exec"
	"syscall"
)

func setSysProcAttribute(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(c *exec.Cmd) {
	if c.Process == nil || c.Process.Pid <= 0 {
		return
	}
	_ = syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
}
