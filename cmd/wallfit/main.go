// Command wallfit sets the desktop and lock screen wallpaper from a local file
// or URL, cover-fitting the image to the primary display.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dixieflatline76/wallfit/config"
	"github.com/dixieflatline76/wallfit/pkg/api"
	"github.com/dixieflatline76/wallfit/pkg/fit"
	"github.com/dixieflatline76/wallfit/pkg/wallpaper"
	"github.com/dixieflatline76/wallfit/util/log"
)

const usage = `usage: wallfit [-config path] <command> [args]

commands:
  set [-system=true] [-lock] [-left] [-smart] <uri>   set the wallpaper from a file path or http(s) URL
  fit <imgW>x<imgH> <viewW>x<viewH>                  print the cover-fit for an image and viewport
  serve [-addr host:port]                            run the local bridge
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("wallfit", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "", "path to config.json (default ~/.wallfit/config.json)")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if global.NArg() == 0 {
		return errors.New(usage)
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	if cmd == "fit" {
		return runFit(rest, stdout)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	switch cmd {
	case "set":
		return runSet(cfg, rest, stdout)
	case "serve":
		return runServe(cfg, rest)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		p, err := config.GetFilename()
		if err != nil {
			log.Printf("No config location, using defaults: %v", err)
			return config.Default(), nil
		}
		path = p
	}
	return config.Load(path)
}

func runSet(cfg *config.Config, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	system := fs.Bool("system", true, "set the system (home/desktop) wallpaper")
	lock := fs.Bool("lock", false, "set the lock screen wallpaper")
	left := fs.Bool("left", false, "anchor the crop to the left edge instead of centering")
	smart := fs.Bool("smart", false, "choose the crop by content analysis")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("set needs exactly one uri")
	}

	svc, err := wallpaper.NewService(cfg)
	if err != nil {
		return err
	}

	opts := wallpaper.Options{
		IsSystem:           wallpaper.Bool(*system),
		IsLock:             wallpaper.Bool(*lock),
		CenterHorizontally: wallpaper.Bool(!*left),
		SmartCrop:          *smart,
	}
	msg, err := svc.SetWallpaper(context.Background(), fs.Arg(0), opts)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, msg)
	return nil
}

func runFit(args []string, stdout io.Writer) error {
	if len(args) != 2 {
		return errors.New("fit needs <imgW>x<imgH> <viewW>x<viewH>")
	}
	img, err := parseDimensions(args[0])
	if err != nil {
		return err
	}
	viewport, err := parseDimensions(args[1])
	if err != nil {
		return err
	}

	res, err := fit.Compute(img, viewport)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "scale:  %.6f\n", res.Scale)
	fmt.Fprintf(stdout, "scaled: %s\n", res.Scaled)
	fmt.Fprintf(stdout, "crop:   x=%d y=%d w=%d h=%d\n", res.Crop.X, res.Crop.Y, res.Crop.Width, res.Crop.Height)
	if c := res.Clamped(); c != res.Crop {
		fmt.Fprintf(stdout, "clamped: x=%d y=%d w=%d h=%d\n", c.X, c.Y, c.Width, c.Height)
	}
	return nil
}

func parseDimensions(s string) (fit.Dimensions, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return fit.Dimensions{}, fmt.Errorf("invalid dimensions %q, want WxH", s)
	}
	w, errW := strconv.Atoi(strings.TrimSpace(ws))
	h, errH := strconv.Atoi(strings.TrimSpace(hs))
	if errW != nil || errH != nil {
		return fit.Dimensions{}, fmt.Errorf("invalid dimensions %q, want WxH", s)
	}
	return fit.Dimensions{Width: w, Height: h}, nil
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	addr := fs.String("addr", cfg.ListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg.ListenAddr = *addr

	svc, err := wallpaper.NewService(cfg)
	if err != nil {
		return err
	}

	server := api.NewServerFromConfig(cfg)
	server.SetWallpaperHandler(svc.SetWallpaper)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Println("Shutting down bridge")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	}
}
