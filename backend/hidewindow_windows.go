//go:build windows

package backend

import (
	"os/exec"
	"syscall"
)

// setHideWindow keeps ffmpeg from flashing a console window.
func setHideWindow(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}
