//go:build !windows

package backend

import "os/exec"

func setHideWindow(cmd *exec.Cmd) {}
