//go:build !linux && !darwin && !windows

package wallpaper

import (
	"fmt"
	"runtime"

	"github.com/dixieflatline76/wallfit/pkg/sysinfo"
)

type unsupportedOS struct{}

func getOS() OS {
	return unsupportedOS{}
}

func (unsupportedOS) capabilities() Capabilities {
	return Capabilities{}
}

func (unsupportedOS) getDesktopDimension() (int, int, error) {
	return sysinfo.GetScreenDimensions()
}

func (unsupportedOS) setWallpaper(string, Flags) error {
	return fmt.Errorf("setting wallpaper is not supported on %s", runtime.GOOS)
}
