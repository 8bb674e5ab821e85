//go:build !windows

package mirror

import "os/exec"

func hideConsole(*exec.Cmd) {}
