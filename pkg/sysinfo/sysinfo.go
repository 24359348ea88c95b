// Package sysinfo queries the host for the pixel size of the primary display.
package sysinfo

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// resolutionRegex matches strings like "3456 x 2234", "2880 x 1864 Retina" or "1920x1080"
	resolutionRegex = regexp.MustCompile(`(\d+)\s*x\s*(\d+)`)
	// xrandrCurrentRegex matches "current 1920 x 1080" on the xrandr "Screen 0:" line
	xrandrCurrentRegex = regexp.MustCompile(`current\s+(\d+)\s*x\s*(\d+)`)
)

// parseXdpyinfo extracts the screen size from xdpyinfo output.
// We look for "dimensions:    1920x1080 pixels (508x285 millimeters)".
func parseXdpyinfo(out string) (int, int, error) {
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "dimensions:") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 2 {
			return parseResolutionString(parts[1])
		}
	}
	return 0, 0, fmt.Errorf("failed to parse screen resolution")
}

// parseXrandr extracts the current screen size from `xrandr --current` output.
func parseXrandr(out string) (int, int, error) {
	matches := xrandrCurrentRegex.FindStringSubmatch(out)
	if len(matches) < 3 {
		return 0, 0, fmt.Errorf("failed to parse xrandr output")
	}
	return atoiPair(matches[1], matches[2])
}

// systemProfilerOutput represents the nested structure of system_profiler -json
type systemProfilerOutput struct {
	Displays []gpuInfo `json:"SPDisplaysDataType"`
}

type gpuInfo struct {
	NDRVs []displayInfo `json:"spdisplays_ndrvs"`
}

type displayInfo struct {
	PixelResolution string `json:"spdisplays_pixelresolution"` // Physical pixels (e.g. "2880x1864Retina")
	Resolution      string `json:"_spdisplays_pixels"`         // Actual resolution (e.g. "3420 x 2214")
	Main            string `json:"spdisplays_main"`            // "spdisplays_yes"
}

func parseSystemProfilerJSON(data []byte) (int, int, error) {
	var profiler systemProfilerOutput
	if err := json.Unmarshal(data, &profiler); err != nil {
		return 0, 0, fmt.Errorf("decoding system_profiler JSON: %w", err)
	}

	for _, gpu := range profiler.Displays {
		for _, display := range gpu.NDRVs {
			if display.Main == "spdisplays_yes" {
				return parseResolutionString(display.Resolution)
			}
		}
	}

	// Fallback: If no main display found, try the first display of the first GPU
	if len(profiler.Displays) > 0 && len(profiler.Displays[0].NDRVs) > 0 {
		return parseResolutionString(profiler.Displays[0].NDRVs[0].Resolution)
	}

	return 0, 0, fmt.Errorf("no displays found in system_profiler output")
}

func parseResolutionString(s string) (int, int, error) {
	matches := resolutionRegex.FindStringSubmatch(s)
	if len(matches) < 3 {
		return 0, 0, fmt.Errorf("failed to parse resolution from string: %s", s)
	}
	return atoiPair(matches[1], matches[2])
}

func atoiPair(ws, hs string) (int, int, error) {
	width, errW := strconv.Atoi(ws)
	height, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("failed to convert dimensions: %v, %v", errW, errH)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid screen resolution %dx%d", width, height)
	}
	return width, height, nil
}
