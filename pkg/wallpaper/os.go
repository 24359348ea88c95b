package wallpaper

import (
	"fmt"
	"os/exec"
	"strings"
)

// OS interface defines the platform operations the service depends on.
type OS interface {
	getDesktopDimension() (int, int, error)
	setWallpaper(path string, flags Flags) error
	capabilities() Capabilities
}

// Capabilities describes what the platform wallpaper API can do. It is
// resolved once when a Service is built.
type Capabilities struct {
	Lock bool `json:"lock"` // lock screen wallpaper can be set
}

// Supports returns an error if flags request something the platform cannot do.
func (c Capabilities) Supports(flags Flags) error {
	if flags.Has(FlagLock) && !c.Lock {
		return fmt.Errorf("lock screen wallpaper is not supported on this platform")
	}
	return nil
}

// runCommand runs an external tool, folding its output into the error.
func runCommand(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
