package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Package config provides configuration management for wallfit.

// Config struct to hold all configuration data
type Config struct {
	ListenAddr    string        `json:"listen_addr"`
	UserAgent     string        `json:"user_agent"`
	HTTPTimeout   time.Duration `json:"http_timeout"` // zero means no client-side timeout
	MaxImageBytes int64         `json:"max_image_bytes"`
	Resampler     string        `json:"resampler"`
	JPEGQuality   int           `json:"jpeg_quality"`
	RateLimit     float64       `json:"rate_limit"`
	RateBurst     int           `json:"rate_burst"`
	CacheDir      string        `json:"cache_dir"`
}

// Default returns a Config populated with default values.
func Default() *Config {
	c := &Config{}
	c.setDefaultValues()
	return c
}

// GetPath returns the path to the user's config directory
func GetPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(homeDir, LogSubDir), nil
}

// GetFilename returns the path to the user's config file
func GetFilename() (string, error) {
	dir, err := GetPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Load reads the configuration at filename. A missing file is not an error;
// defaults are returned instead. Fields absent from the file keep their defaults.
func Load(filename string) (*Config, error) {
	c := Default()
	if filename == "" {
		return c, nil
	}
	if err := c.loadFromFile(filename); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return c, nil
		}
		return nil, fmt.Errorf("loading config %s: %w", filename, err)
	}
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return c, nil
}

// loadFromFile loads configuration from the specified file
func (c *Config) loadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, c)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch {
	case c.HTTPTimeout < 0:
		return fmt.Errorf("http_timeout must not be negative")
	case c.MaxImageBytes < 0:
		return fmt.Errorf("max_image_bytes must not be negative")
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("jpeg_quality must be within 1..100, got %d", c.JPEGQuality)
	case c.RateLimit < 0:
		return fmt.Errorf("rate_limit must not be negative")
	}
	return nil
}

// setDefaultValues sets default values for the configuration
func (c *Config) setDefaultValues() {
	c.ListenAddr = DefaultListenAddr
	c.UserAgent = DefaultUserAgent
	c.HTTPTimeout = 0
	c.MaxImageBytes = DefaultMaxImageBytes
	c.Resampler = DefaultResampler
	c.JPEGQuality = DefaultJPEGQuality
	c.RateLimit = DefaultRateLimit
	c.RateBurst = DefaultRateBurst
	c.CacheDir = ""
}

// fillDefaults restores defaults for fields a config file zeroed out.
func (c *Config) fillDefaults() {
	d := Default()
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	if c.MaxImageBytes == 0 {
		c.MaxImageBytes = d.MaxImageBytes
	}
	if c.Resampler == "" {
		c.Resampler = d.Resampler
	}
	if c.JPEGQuality == 0 {
		c.JPEGQuality = d.JPEGQuality
	}
	if c.RateBurst == 0 {
		c.RateBurst = d.RateBurst
	}
}

// ResolveCacheDir returns the directory composed wallpapers are written to.
func (c *Config) ResolveCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("getting user cache directory: %w", err)
	}
	return filepath.Join(cacheDir, AppName), nil
}
