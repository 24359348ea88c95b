package config

import "strings"

// AppVersion is the version of the module, stamped at build time.
var AppVersion = "dev"

// AppName is the name of the application.
const AppName = "wallfit"

// LogTag prefixes every log line written by the module.
const LogTag = "WallpaperModule"

// LogWinSubDir is the sub directory for the log files on windows.
var LogWinSubDir = AppName

// LogSubDir is the sub directory for the log files.
var LogSubDir = "." + strings.ToLower(AppName)

// LogExt is the extension for the log files.
var LogExt = ".log"

// ConfigFileName is the name of the JSON configuration file inside the config directory.
const ConfigFileName = "config.json"

// Defaults
const (
	DefaultListenAddr    = "127.0.0.1:49453"
	DefaultMaxImageBytes = 64 << 20 // 64 MB
	DefaultResampler     = "lanczos"
	DefaultJPEGQuality   = 95
	DefaultRateLimit     = 2.0 // requests per second
	DefaultRateBurst     = 4
)

// DefaultUserAgent is sent with every remote image fetch.
var DefaultUserAgent = AppName + "/" + AppVersion
