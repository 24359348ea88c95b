package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dixieflatline76/wallfit/config"
	"github.com/dixieflatline76/wallfit/pkg/wallpaper"
	"github.com/dixieflatline76/wallfit/util"
	"github.com/dixieflatline76/wallfit/util/log"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// SetWallpaperFunc applies a wallpaper. wallpaper.Service.SetWallpaper satisfies it.
type SetWallpaperFunc func(ctx context.Context, uri string, opts wallpaper.Options) (string, error)

// writeWait bounds a single WebSocket write.
const writeWait = 10 * time.Second

var (
	errRateLimited = errors.New("too many requests")
	errStopping    = errors.New("server is shutting down")
	errNoHandler   = errors.New("feature not available")
)

// Server represents the local REST/WebSocket bridge.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader
	addr       string

	// WebSocket management
	clients   map[*client]bool
	clientsMu sync.Mutex

	limiter  *rate.Limiter
	inflight *util.SafeCounter

	// admitMu orders admission against Stop: a call either sees stopping or
	// is counted in calls before Stop waits.
	admitMu  sync.Mutex
	stopping *util.SafeFlag
	calls    sync.WaitGroup

	// Callbacks
	onSetWallpaper SetWallpaperFunc
}

// NewServer creates a new API server listening on addr. A zero limit disables
// rate limiting.
func NewServer(addr string, limit float64, burst int) *Server {
	l := rate.Inf
	if limit > 0 {
		l = rate.Limit(limit)
	}
	s := &Server{
		mux:  http.NewServeMux(),
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		clients:  make(map[*client]bool),
		limiter:  rate.NewLimiter(l, max(burst, 1)),
		inflight: util.NewSafeCounter(),
		stopping: util.NewSafeFlag(),
	}
	s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return s
}

// NewServerFromConfig creates a server from the loaded configuration.
func NewServerFromConfig(cfg *config.Config) *Server {
	return NewServer(cfg.ListenAddr, cfg.RateLimit, cfg.RateBurst)
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/health", s.enableCORS(s.handleHealth))
	s.mux.HandleFunc("/wallpaper", s.enableCORS(s.handleSetWallpaper))
	s.mux.HandleFunc("/ws", s.handleWebSocket)
}

// enableCORS adds CORS headers to the handler.
func (s *Server) enableCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// SetWallpaperHandler sets the callback that applies wallpapers.
func (s *Server) SetWallpaperHandler(handler SetWallpaperFunc) {
	s.onSetWallpaper = handler
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start starts the server. It blocks until the server stops and returns
// http.ErrServerClosed after Stop.
func (s *Server) Start() error {
	if s.stopping.Value() {
		return http.ErrServerClosed
	}
	log.Printf("Bridge listening on %s", s.addr)
	return s.httpServer.ListenAndServe()
}

// Stop stops accepting calls, closes WebSocket clients and waits for
// in-flight calls to finish or ctx to end.
func (s *Server) Stop(ctx context.Context) error {
	s.admitMu.Lock()
	s.stopping.Set(true)
	s.admitMu.Unlock()

	err := s.httpServer.Shutdown(ctx)

	s.clientsMu.Lock()
	for c := range s.clients {
		c.conn.Close()
		delete(s.clients, c)
	}
	s.clientsMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.calls.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// InFlight returns the number of calls currently running.
func (s *Server) InFlight() int {
	return s.inflight.Value()
}

// call runs one setWallpaper request. Once admitted it runs to completion;
// the caller's cancellation is not propagated.
func (s *Server) call(ctx context.Context, uri string, opts wallpaper.Options) (string, error) {
	if s.onSetWallpaper == nil {
		return "", errNoHandler
	}
	if !s.limiter.Allow() {
		return "", errRateLimited
	}

	s.admitMu.Lock()
	if s.stopping.Value() {
		s.admitMu.Unlock()
		return "", errStopping
	}
	s.calls.Add(1)
	s.admitMu.Unlock()
	defer s.calls.Done()
	defer s.inflight.Track()()

	result, err := s.onSetWallpaper(context.WithoutCancel(ctx), uri, opts)
	if err != nil {
		log.Printf("Error setting wallpaper: %v", err)
		return "", err
	}
	s.broadcast(event{Type: eventWallpaperChanged, URI: uri, Flags: opts.Flags().String()})
	return result, nil
}

// broadcast sends an event to all connected clients. Writes happen outside
// clientsMu so a slow peer does not block registration or other broadcasts.
func (s *Server) broadcast(ev event) {
	s.clientsMu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.clientsMu.Unlock()

	for _, c := range targets {
		if err := c.writeJSON(ev); err != nil {
			log.Printf("Failed to broadcast to client: %v", err)
			c.conn.Close()
			s.clientsMu.Lock()
			delete(s.clients, c)
			s.clientsMu.Unlock()
		}
	}
}

// client is one WebSocket connection. gorilla allows a single concurrent
// writer, so writes go through writeMu.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}
