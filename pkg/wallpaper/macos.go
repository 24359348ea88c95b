//go:build darwin

package wallpaper

import (
	"strconv"

	"github.com/dixieflatline76/wallfit/pkg/sysinfo"
)

// macOSOS implements the OS interface for macOS.
type macOSOS struct {
	run func(name string, args ...string) error
}

// getOS returns a new instance of the macOSOS struct.
func getOS() OS {
	return &macOSOS{run: runCommand}
}

// macOS has no public API for the lock screen picture.
func (m *macOSOS) capabilities() Capabilities {
	return Capabilities{}
}

// setWallpaper sets the desktop wallpaper on every desktop through System Events.
func (m *macOSOS) setWallpaper(imagePath string, flags Flags) error {
	// Service checks flags once at admission; this guards direct callers.
	if err := m.capabilities().Supports(flags); err != nil {
		return err
	}
	script := `tell application "System Events" to tell every desktop to set picture to ` + strconv.Quote(imagePath)
	return m.run("osascript", "-e", script)
}

// getDesktopDimension returns the desktop dimensions on macOS.
func (m *macOSOS) getDesktopDimension() (int, int, error) {
	return sysinfo.GetScreenDimensions()
}
