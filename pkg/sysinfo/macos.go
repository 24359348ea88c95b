//go:build darwin

package sysinfo

import (
	"fmt"
	"os/exec"
)

// GetScreenDimensions returns the primary desktop dimensions on macOS.
func GetScreenDimensions() (int, int, error) {
	out, err := exec.Command("system_profiler", "SPDisplaysDataType", "-json").Output()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to run system_profiler: %w", err)
	}
	return parseSystemProfilerJSON(out)
}
