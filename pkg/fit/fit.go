// Package fit computes cover-fit geometry: the uniform scale that makes an
// image completely cover a viewport, and the viewport-sized crop that centers
// the viewport inside the scaled image.
package fit

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// ErrInvalidDimensions is returned when a width or height is not strictly positive.
var ErrInvalidDimensions = errors.New("dimensions must be strictly positive")

// Dimensions describes an image or a viewport in pixels.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both sides are strictly positive.
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Ratio returns width divided by height.
func (d Dimensions) Ratio() float64 {
	return float64(d.Width) / float64(d.Height)
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// DimensionsOf returns the pixel dimensions of img.
func DimensionsOf(img image.Image) Dimensions {
	b := img.Bounds()
	return Dimensions{Width: b.Dx(), Height: b.Dy()}
}

// Rect is a crop rectangle in scaled-image pixel space.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rectangle converts r to an image.Rectangle.
func (r Rect) Rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Result is the outcome of Compute.
type Result struct {
	Scale  float64    `json:"scaleFactor"`
	Scaled Dimensions `json:"scaled"`
	Crop   Rect       `json:"cropRect"`
}

// Compute returns the cover-fit of img into viewport.
//
// The limiting side is height when the image is relatively wider than the
// viewport and width otherwise, so the scaled image is never smaller than the
// viewport along either axis (up to rounding). The crop always has exactly the
// viewport's size.
func Compute(img, viewport Dimensions) (Result, error) {
	if !img.Valid() {
		return Result{}, fmt.Errorf("image %s: %w", img, ErrInvalidDimensions)
	}
	if !viewport.Valid() {
		return Result{}, fmt.Errorf("viewport %s: %w", viewport, ErrInvalidDimensions)
	}

	var scale float64
	if img.Ratio() > viewport.Ratio() {
		scale = float64(viewport.Height) / float64(img.Height)
	} else {
		scale = float64(viewport.Width) / float64(img.Width)
	}

	scaled := Dimensions{
		Width:  scaleSide(img.Width, scale),
		Height: scaleSide(img.Height, scale),
	}

	return Result{
		Scale:  scale,
		Scaled: scaled,
		Crop: Rect{
			X:      max(0, (scaled.Width-viewport.Width)/2),
			Y:      max(0, (scaled.Height-viewport.Height)/2),
			Width:  viewport.Width,
			Height: viewport.Height,
		},
	}, nil
}

func scaleSide(side int, scale float64) int {
	return max(1, int(math.Round(float64(side)*scale)))
}

// Clamped returns the crop limited to the scaled image bounds. Rounding can
// leave the scaled image one pixel short of the viewport, in which case the
// raw crop would overhang by that pixel.
func (r Result) Clamped() Rect {
	c := r.Crop
	c.X = min(c.X, max(0, r.Scaled.Width-1))
	c.Y = min(c.Y, max(0, r.Scaled.Height-1))
	c.Width = min(c.Width, r.Scaled.Width-c.X)
	c.Height = min(c.Height, r.Scaled.Height-c.Y)
	return c
}

// AnchorLeft returns a copy of r with the crop moved to the left edge.
func (r Result) AnchorLeft() Result {
	r.Crop.X = 0
	return r
}
