package wallpaper

import "time"

// SuccessMessage is returned by SetWallpaper when the wallpaper was applied.
const SuccessMessage = "Wallpaper set successfully"

// ErrorCode is the single error code reported to bridge callers.
const ErrorCode = "ERROR"

// Internal constants
const (
	outputPrefix     = "wallpaper-"
	outputExt        = ".jpg"
	outputPruneGrace = time.Minute // outputs newer than the applied one minus this are left alone
)
