// Package spawn launches applications detached from the manager process.
package spawn

import (
	"fmt"
	"os/exec"
	"syscall"
)

// Run starts cmd in its own session so it survives the manager and never
// shares its controlling terminal. The command is not waited on beyond
// reaping.
func Run(cmd []string) error {
	if len(cmd) == 0 {
		return fmt.Errorf("empty command")
	}

	c := exec.Command(cmd[0], cmd[1:]...)
	c.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := c.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", cmd[0], err)
	}

	// Reap in the background so the child never zombies.
	go func() {
		_ = c.Wait()
	}()
	return nil
}
