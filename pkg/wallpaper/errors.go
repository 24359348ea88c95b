package wallpaper

import (
	"errors"
	"fmt"
)

// Kind classifies a SetWallpaper failure.
type Kind int

// Error kinds
const (
	KindLoad     Kind = iota // fetching or decoding the image failed
	KindPlatform             // the display query or the wallpaper API failed
	KindInvalid              // the request was rejected before any work was done
)

func (k Kind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindPlatform:
		return "platform"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is returned by Service.SetWallpaper.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindPlatform:
		return "Failed to set wallpaper: " + e.Err.Error()
	default:
		return "Failed to load image: " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the wire error code for err. There is a single code.
func Code(err error) string {
	return ErrorCode
}

// Message returns the human readable message reported to bridge callers.
func Message(err error) string {
	var we *Error
	if errors.As(err, &we) {
		return we.Error()
	}
	return "Failed to set wallpaper: " + err.Error()
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var we *Error
	return errors.As(err, &we) && we.Kind == kind
}
