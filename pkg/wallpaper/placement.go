package wallpaper

import "strings"

// Flags selects the wallpaper slot(s) a request targets.
type Flags uint8

// Placement flags
const (
	FlagSystem Flags = 1 << iota // home / desktop wallpaper
	FlagLock                     // lock screen wallpaper
)

// Has reports whether all bits of flag are set in f.
func (f Flags) Has(flag Flags) bool {
	return f&flag == flag
}

func (f Flags) String() string {
	var parts []string
	if f.Has(FlagSystem) {
		parts = append(parts, "system")
	}
	if f.Has(FlagLock) {
		parts = append(parts, "lock")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Options are the caller-supplied placement options. Nil fields take their defaults.
type Options struct {
	IsSystem           *bool `json:"isSystem,omitempty"`           // default true
	IsLock             *bool `json:"isLock,omitempty"`             // default false
	CenterHorizontally *bool `json:"centerHorizontally,omitempty"` // default true
	SmartCrop          bool  `json:"smartCrop,omitempty"`
}

// Flags derives the placement flags. A request never resolves to zero flags;
// when both slots are disabled the system wallpaper is targeted.
func (o Options) Flags() Flags {
	var flags Flags
	if boolOr(o.IsSystem, true) {
		flags |= FlagSystem
	}
	if boolOr(o.IsLock, false) {
		flags |= FlagLock
	}
	if flags == 0 {
		flags = FlagSystem
	}
	return flags
}

func (o Options) centered() bool {
	return boolOr(o.CenterHorizontally, true)
}

func boolOr(p *bool, fallback bool) bool {
	if p == nil {
		return fallback
	}
	return *p
}

// Bool returns a pointer to v, for filling Options literals.
func Bool(v bool) *bool {
	return &v
}
