//go:build windows

package gitdriver

import "os/exec"

func setSysProcAttribute(c *exec.Cmd) {}

func killProcessGroup(c *exec.Cmd) {
	if c.Process == nil {
		return
	}
	_ = c.Process.Kill()
}
