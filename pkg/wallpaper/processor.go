package wallpaper

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/wallfit/pkg/fit"
	"github.com/muesli/smartcrop"
)

var resamplers = map[string]imaging.ResampleFilter{
	"lanczos":    imaging.Lanczos,
	"catmullrom": imaging.CatmullRom,
	"linear":     imaging.Linear,
	"box":        imaging.Box,
	"nearest":    imaging.NearestNeighbor,
}

// ResamplerByName returns the resampling filter for a config name.
func ResamplerByName(name string) (imaging.ResampleFilter, error) {
	f, ok := resamplers[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resampler %q", name)
	}
	return f, nil
}

// imageProcessor scales, crops and encodes images for the platform sink.
type imageProcessor struct {
	resampler   imaging.ResampleFilter
	jpegQuality int
	analyzer    smartcrop.Analyzer
}

func newImageProcessor(resampler string, jpegQuality int) (*imageProcessor, error) {
	f, err := ResamplerByName(resampler)
	if err != nil {
		return nil, err
	}
	return &imageProcessor{
		resampler:   f,
		jpegQuality: jpegQuality,
		analyzer:    smartcrop.NewAnalyzer(&resizer{resampler: f}),
	}, nil
}

// Scale resizes img to the scaled dimensions of a fit result.
func (p *imageProcessor) Scale(ctx context.Context, img image.Image, size fit.Dimensions) (image.Image, error) {
	if fit.DimensionsOf(img) == size {
		return img, nil
	}
	r := &resizer{resampler: p.resampler}
	scaled := r.resizeWithContext(ctx, img, uint(size.Width), uint(size.Height))
	if scaled == nil {
		return nil, ctx.Err() // Context was canceled during resize.
	}
	return scaled, nil
}

// Crop cuts rect out of img. The result's bounds start at the origin.
func (p *imageProcessor) Crop(img image.Image, rect fit.Rect) image.Image {
	return imaging.Crop(img, rect.Rectangle())
}

// SmartCrop picks a viewport-sized crop inside img by content analysis.
func (p *imageProcessor) SmartCrop(ctx context.Context, img image.Image, viewport fit.Dimensions) (fit.Rect, error) {
	size := fit.DimensionsOf(img)
	if size.Width < viewport.Width || size.Height < viewport.Height {
		return fit.Rect{}, fmt.Errorf("image %s smaller than viewport %s", size, viewport)
	}

	// Use a goroutine and channel to make FindBestCrop context-aware.
	type cropResult struct {
		crop image.Rectangle
		err  error
	}
	resultChan := make(chan cropResult, 1)

	go func() {
		topCrop, err := p.analyzer.FindBestCrop(img, viewport.Width, viewport.Height)
		resultChan <- cropResult{crop: topCrop, err: err}
	}()

	select {
	case <-ctx.Done():
		return fit.Rect{}, ctx.Err()
	case result := <-resultChan:
		if result.err != nil {
			return fit.Rect{}, fmt.Errorf("finding best crop: %w", result.err)
		}
		// The analyzer may return any crop with the viewport's aspect; keep its
		// origin and pin the size to the viewport.
		b := img.Bounds()
		x := clamp(result.crop.Min.X-b.Min.X, 0, size.Width-viewport.Width)
		y := clamp(result.crop.Min.Y-b.Min.Y, 0, size.Height-viewport.Height)
		return fit.Rect{X: x, Y: y, Width: viewport.Width, Height: viewport.Height}, nil
	}
}

// Save encodes img as JPEG at path.
func (p *imageProcessor) Save(ctx context.Context, img image.Image, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := imaging.Save(img, path, imaging.JPEGQuality(p.jpegQuality)); err != nil {
		return fmt.Errorf("encoding image: %w", err)
	}
	return nil
}

// resizer implements the smartcrop.Resizer interface and adds context awareness.
type resizer struct {
	resampler imaging.ResampleFilter
}

// Resize *doesn't* take a context here. The smartcrop.Resizer interface doesn't
// support contexts. We handle cancellation in resizeWithContext.
func (r *resizer) Resize(img image.Image, width, height uint) image.Image {
	return imaging.Resize(img, int(width), int(height), r.resampler)
}

// resizeWithContext performs the resize operation with context awareness.
// It returns nil if ctx is done first.
func (r *resizer) resizeWithContext(ctx context.Context, img image.Image, width, height uint) image.Image {
	resultChan := make(chan image.Image, 1)

	go func() {
		resultChan <- imaging.Resize(img, int(width), int(height), r.resampler)
	}()

	select {
	case <-ctx.Done():
		return nil
	case result := <-resultChan:
		return result
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
