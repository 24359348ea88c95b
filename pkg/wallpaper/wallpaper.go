// Package wallpaper fetches an image, cover-fits it to the primary display and
// applies it as the system and/or lock screen wallpaper.
package wallpaper

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/dixieflatline76/wallfit/config"
	"github.com/dixieflatline76/wallfit/pkg/fit"
	"github.com/dixieflatline76/wallfit/util/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Service applies wallpapers. It holds no per-call state, so concurrent calls
// are independent.
type Service struct {
	os        OS
	source    *Source
	processor *imageProcessor
	caps      Capabilities
	outputDir string
}

// NewService creates a Service for the current platform.
func NewService(cfg *config.Config) (*Service, error) {
	return newService(getOS(), cfg)
}

func newService(sys OS, cfg *config.Config) (*Service, error) {
	processor, err := newImageProcessor(cfg.Resampler, cfg.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("creating image processor: %w", err)
	}
	outputDir, err := cfg.ResolveCacheDir()
	if err != nil {
		return nil, err
	}

	caps := sys.capabilities()
	log.Debugf("Platform capabilities: lock=%v", caps.Lock)

	return &Service{
		os:        sys,
		source:    NewSource(NewHTTPClient(cfg.UserAgent, cfg.HTTPTimeout), cfg.MaxImageBytes),
		processor: processor,
		caps:      caps,
		outputDir: outputDir,
	}, nil
}

// Capabilities returns the platform capabilities resolved at construction.
func (s *Service) Capabilities() Capabilities {
	return s.caps
}

// SetWallpaper loads the image at uri, cover-fits it to the primary display
// and applies it to the slots selected by opts. It returns SuccessMessage or
// an *Error; nothing is applied when an error is returned.
func (s *Service) SetWallpaper(ctx context.Context, uri string, opts Options) (string, error) {
	if strings.TrimSpace(uri) == "" {
		return "", newError(KindInvalid, "validate", errors.New("uri is empty"))
	}
	flags := opts.Flags()
	if err := s.caps.Supports(flags); err != nil {
		return "", newError(KindPlatform, "flags", err)
	}

	img, viewport, err := s.loadWithViewport(ctx, uri)
	if err != nil {
		return "", err
	}

	imgDims := fit.DimensionsOf(img)
	res, err := fit.Compute(imgDims, viewport)
	if err != nil {
		if !viewport.Valid() {
			return "", newError(KindPlatform, "viewport", err)
		}
		return "", newError(KindLoad, "decode", err)
	}
	if !opts.centered() {
		res = res.AnchorLeft()
	}
	log.Debugf("Screen dimensions: %s, image: %s, scale %.4f -> %s, crop %+v",
		viewport, imgDims, res.Scale, res.Scaled, res.Crop)

	path, err := s.compose(ctx, img, res, viewport, opts.SmartCrop)
	if err != nil {
		return "", newError(KindPlatform, "compose", err)
	}

	log.Debugf("Setting wallpaper with flags: %s", flags)
	if err := s.os.setWallpaper(path, flags); err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Printf("Failed to remove %s: %v", path, rmErr)
		}
		return "", newError(KindPlatform, "apply", err)
	}

	s.pruneOutputs(path)
	log.Printf("Wallpaper set (%s) from %s", flags, uri)
	return SuccessMessage, nil
}

// loadWithViewport fetches the image and queries the display concurrently.
// The first failure cancels the other.
func (s *Service) loadWithViewport(ctx context.Context, uri string) (image.Image, fit.Dimensions, error) {
	var (
		img      image.Image
		viewport fit.Dimensions
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		loaded, err := s.source.Load(gctx, uri)
		if err != nil {
			return newError(KindLoad, "load", err)
		}
		img = loaded
		return nil
	})
	g.Go(func() error {
		w, h, err := s.os.getDesktopDimension()
		if err != nil {
			return newError(KindPlatform, "viewport", fmt.Errorf("getting desktop dimensions: %w", err))
		}
		viewport = fit.Dimensions{Width: w, Height: h}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fit.Dimensions{}, err
	}
	return img, viewport, nil
}

// compose scales and crops img and writes the result to a fresh file.
func (s *Service) compose(ctx context.Context, img image.Image, res fit.Result, viewport fit.Dimensions, smart bool) (string, error) {
	scaled, err := s.processor.Scale(ctx, img, res.Scaled)
	if err != nil {
		return "", fmt.Errorf("scaling image: %w", err)
	}

	crop := res.Clamped()
	if smart {
		if r, err := s.processor.SmartCrop(ctx, scaled, viewport); err != nil {
			log.Printf("Smart crop failed, keeping computed crop: %v", err)
		} else {
			crop = r
		}
	}
	out := s.processor.Crop(scaled, crop)

	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(s.outputDir, outputPrefix+uuid.NewString()+outputExt)
	if err := s.processor.Save(ctx, out, path); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// pruneOutputs removes earlier composed wallpapers. Files written close to
// keep may belong to calls still in flight and are left for a later pass.
func (s *Service) pruneOutputs(keep string) {
	keepInfo, err := os.Stat(keep)
	if err != nil {
		return
	}
	cutoff := keepInfo.ModTime().Add(-outputPruneGrace)

	matches, err := filepath.Glob(filepath.Join(s.outputDir, outputPrefix+"*"+outputExt))
	if err != nil {
		return
	}
	for _, m := range matches {
		if m == keep {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(m); err != nil {
			log.Printf("Failed to prune %s: %v", m, err)
		}
	}
}
