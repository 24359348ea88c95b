package wallpaper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dixieflatline76/wallfit/util/log"

	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const fileScheme = "file://"

// Source loads and decodes images from local paths or remote URLs.
type Source struct {
	client   *http.Client
	maxBytes int64 // zero means unlimited
}

// NewSource creates a Source that fetches remote images with client.
func NewSource(client *http.Client, maxBytes int64) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{client: client, maxBytes: maxBytes}
}

// isRemote reports whether uri is fetched over the network.
// Anything starting with "http" is remote; everything else is a local path.
func isRemote(uri string) bool {
	return strings.HasPrefix(uri, "http")
}

// Load fetches and decodes the image at uri.
func (s *Source) Load(ctx context.Context, uri string) (image.Image, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	var (
		img image.Image
		err error
	)
	if isRemote(uri) {
		img, err = s.loadRemote(ctx, uri)
	} else {
		img, err = s.loadLocal(ctx, strings.TrimPrefix(uri, fileScheme))
	}
	if err != nil {
		return nil, err
	}

	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *Source) loadRemote(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	body := io.Reader(resp.Body)
	if s.maxBytes > 0 {
		body = io.LimitReader(resp.Body, s.maxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("image at %s exceeds %d bytes", url, s.maxBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	log.Debugf("Fetched %s (%d bytes, %s, %dx%d)", url, len(data), resp.Header.Get("Content-Type"), img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}

func (s *Source) loadLocal(_ context.Context, path string) (image.Image, error) {
	if path == "" {
		return nil, errors.New("empty file path")
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	return img, nil
}

// checkContext returns the context's error if it is already done.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
