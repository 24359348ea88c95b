//go:build linux

package sysinfo

import (
	"fmt"
	"os/exec"
)

// GetScreenDimensions returns the desktop dimensions on Linux.
// xdpyinfo is tried first; xrandr covers sessions where it is not installed.
func GetScreenDimensions() (int, int, error) {
	out, err := exec.Command("xdpyinfo").Output()
	if err == nil {
		if w, h, perr := parseXdpyinfo(string(out)); perr == nil {
			return w, h, nil
		}
	}

	out, xerr := exec.Command("xrandr", "--current").Output()
	if xerr != nil {
		return 0, 0, fmt.Errorf("failed to get screen resolution: xdpyinfo: %v, xrandr: %w", err, xerr)
	}
	return parseXrandr(string(out))
}
