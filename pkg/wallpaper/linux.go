//go:build linux

package wallpaper

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dixieflatline76/wallfit/pkg/sysinfo"
)

// Desktop families we know how to drive.
const (
	desktopGNOME   = "gnome"
	desktopKDE     = "kde"
	desktopXFCE    = "xfce"
	desktopSway    = "sway"
	desktopUnknown = ""
)

// linuxOS implements the OS interface for Linux.
type linuxOS struct {
	desktop string
	wayland bool
	run     func(name string, args ...string) error
	start   func(name string, args ...string) error
}

// getOS returns the Linux implementation for the current session.
func getOS() OS {
	return newLinuxOS(os.Getenv("XDG_CURRENT_DESKTOP"), os.Getenv("DESKTOP_SESSION"), os.Getenv("WAYLAND_DISPLAY") != "")
}

func newLinuxOS(currentDesktop, session string, wayland bool) *linuxOS {
	env := currentDesktop
	if env == "" {
		env = session
	}
	return &linuxOS{
		desktop: detectDesktop(strings.ToLower(env), wayland),
		wayland: wayland,
		run:     runCommand,
		start:   startDetached,
	}
}

func detectDesktop(env string, wayland bool) string {
	switch {
	case strings.Contains(env, "gnome") || strings.Contains(env, "mutter") ||
		strings.Contains(env, "unity") || strings.Contains(env, "cinnamon"):
		return desktopGNOME
	case strings.Contains(env, "kde") || strings.Contains(env, "plasma"):
		return desktopKDE
	case strings.Contains(env, "xfce") && !wayland:
		return desktopXFCE
	case strings.Contains(env, "sway"):
		return desktopSway
	default:
		return desktopUnknown
	}
}

func (l *linuxOS) capabilities() Capabilities {
	return Capabilities{Lock: l.desktop == desktopGNOME || l.desktop == desktopKDE}
}

// getDesktopDimension returns the desktop dimensions on Linux.
func (l *linuxOS) getDesktopDimension() (int, int, error) {
	return sysinfo.GetScreenDimensions()
}

// setWallpaper sets the wallpaper for every slot in flags.
func (l *linuxOS) setWallpaper(imagePath string, flags Flags) error {
	if l.desktop == desktopUnknown {
		return fmt.Errorf("unsupported desktop environment (wayland=%v)", l.wayland)
	}
	// Service checks flags once at admission; this guards direct callers.
	if err := l.capabilities().Supports(flags); err != nil {
		return err
	}

	if flags.Has(FlagSystem) {
		if err := l.setSystem(imagePath); err != nil {
			return err
		}
	}
	if flags.Has(FlagLock) {
		if err := l.setLock(imagePath); err != nil {
			return err
		}
	}
	return nil
}

func (l *linuxOS) setSystem(imagePath string) error {
	uri := "file://" + imagePath
	switch l.desktop {
	case desktopGNOME:
		if err := l.run("gsettings", "set", "org.gnome.desktop.background", "picture-uri", uri); err != nil {
			return err
		}
		// GNOME 42+ keeps a separate key for the dark style; older versions lack it.
		_ = l.run("gsettings", "set", "org.gnome.desktop.background", "picture-uri-dark", uri)
		return nil
	case desktopKDE:
		return l.run("qdbus", "org.kde.plasmashell", "/PlasmaShell", "org.kde.PlasmaShell.evaluateScript", kdeScript(uri))
	case desktopXFCE:
		return l.setWallpaperXFCE(imagePath)
	case desktopSway:
		// swaybg keeps running to paint the background.
		return l.start("swaybg", "-m", "fill", "-i", imagePath)
	}
	return fmt.Errorf("unsupported desktop environment: %s", l.desktop)
}

func (l *linuxOS) setLock(imagePath string) error {
	uri := "file://" + imagePath
	switch l.desktop {
	case desktopGNOME:
		return l.run("gsettings", "set", "org.gnome.desktop.screensaver", "picture-uri", uri)
	case desktopKDE:
		return l.run("kwriteconfig5", "--file", "kscreenlockerrc",
			"--group", "Greeter", "--group", "Wallpaper", "--group", "org.kde.image", "--group", "General",
			"--key", "Image", uri)
	}
	return fmt.Errorf("lock screen wallpaper is not supported on %s", l.desktop)
}

func kdeScript(uri string) string {
	return fmt.Sprintf(`var allDesktops = desktops();
for (i = 0; i < allDesktops.length; i++) {
    d = allDesktops[i];
    d.wallpaperPlugin = "org.kde.image";
    d.currentConfigGroup = Array("Wallpaper", "org.kde.image", "General");
    d.writeConfig("Image", %q);
}`, uri)
}

// setWallpaperXFCE sets the wallpaper for XFCE.
func (l *linuxOS) setWallpaperXFCE(imagePath string) error {
	if _, err := getXFCEDesktopConfigFile(); err != nil {
		return err
	}
	return l.run("xfconf-query",
		"--channel", "xfce4-desktop",
		"--property", "/backdrop/screen0/monitor0/workspace0/last-image",
		"--set", imagePath)
}

// getXFCEDesktopConfigFile retrieves the path to the XFCE desktop configuration file.
func getXFCEDesktopConfigFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	defaultConfigFile := filepath.Join(home, ".config", "xfce4", "xfconf", "xfce-perchannel-xml", "xfce4-desktop.xml")
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile, nil
	}
	return "", fmt.Errorf("could not find XFCE desktop configuration file")
}

func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return cmd.Process.Release()
}
