//go:build windows

package wallpaper

import (
	"unsafe"

	"github.com/dixieflatline76/wallfit/pkg/sysinfo"
	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	systemParametersInfo = user32.NewProc("SystemParametersInfoW")
)

// Windows API constants (defined manually)
const (
	SPISetDeskWallpaper = 0x0014
	SPIFUpdateIniFile   = 0x01
	SPIFSendChange      = 0x02
)

// windowsOS implements the OS interface for Windows.
type windowsOS struct{}

// getOS returns a new instance of the windowsOS struct.
func getOS() OS {
	return &windowsOS{}
}

// The lock screen image is only reachable through WinRT, which we do not bind.
func (w *windowsOS) capabilities() Capabilities {
	return Capabilities{}
}

// setWallpaper sets the wallpaper to the given image file path.
func (w *windowsOS) setWallpaper(imagePath string, flags Flags) error {
	// Service checks flags once at admission; this guards direct callers.
	if err := w.capabilities().Supports(flags); err != nil {
		return err
	}

	imagePathUTF16, err := windows.UTF16PtrFromString(imagePath)
	if err != nil {
		return err
	}

	ret, _, err := systemParametersInfo.Call(
		uintptr(SPISetDeskWallpaper),
		uintptr(0),
		uintptr(unsafe.Pointer(imagePathUTF16)),
		uintptr(SPIFUpdateIniFile|SPIFSendChange),
	)
	if ret == 0 {
		return err
	}
	return nil
}

// getDesktopDimension returns the desktop dimension (width and height) in pixels.
func (w *windowsOS) getDesktopDimension() (int, int, error) {
	return sysinfo.GetScreenDimensions()
}
