package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dixieflatline76/wallfit/config"
	"github.com/dixieflatline76/wallfit/pkg/wallpaper"
	"github.com/dixieflatline76/wallfit/util/log"
	"github.com/google/uuid"
)

// Bridge methods and events
const (
	methodSetWallpaper    = "setWallpaper"
	methodPing            = "ping"
	eventWallpaperChanged = "wallpaper_changed"
)

// setWallpaperParams is the body of POST /wallpaper and the params of a
// setWallpaper WebSocket request.
type setWallpaperParams struct {
	URI     string            `json:"uri"`
	Options wallpaper.Options `json:"options"`
}

type request struct {
	ID     string             `json:"id"`
	Method string             `json:"method"`
	Params setWallpaperParams `json:"params"`
}

type response struct {
	ID     string     `json:"id"`
	Result string     `json:"result,omitempty"`
	Error  *callError `json:"error,omitempty"`
}

// callError is the rejection payload: {code: "ERROR", message}.
type callError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type event struct {
	Type  string `json:"type"`
	URI   string `json:"uri"`
	Flags string `json:"flags"`
}

func newCallError(err error) *callError {
	return &callError{Code: wallpaper.Code(err), Message: wallpaper.Message(err)}
}

// statusFor maps a call error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errStopping), errors.Is(err, errNoHandler):
		return http.StatusServiceUnavailable
	case wallpaper.IsKind(err, wallpaper.KindLoad), wallpaper.IsKind(err, wallpaper.KindInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "running",
		"version":  config.AppVersion,
		"inflight": s.InFlight(),
	})
}

// handleSetWallpaper applies a wallpaper for a plain HTTP caller.
func (s *Server) handleSetWallpaper(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var params setWallpaperParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, &callError{Code: wallpaper.ErrorCode, Message: "Invalid request body"})
		return
	}

	result, err := s.call(r.Context(), params.URI, params.Options)
	if err != nil {
		writeJSON(w, statusFor(err), newCallError(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

// handleWebSocket upgrades the connection and serves requests on it. Each
// request is answered exactly once, in completion order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	c := &client{conn: conn}
	defer conn.Close()

	s.clientsMu.Lock()
	s.clients[c] = true
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c)
		s.clientsMu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			s.reply(c, response{Error: &callError{Code: wallpaper.ErrorCode, Message: "Invalid request body"}})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}

		switch req.Method {
		case methodPing:
			s.reply(c, response{ID: req.ID, Result: "pong"})
		case methodSetWallpaper:
			go func(req request) {
				result, err := s.call(r.Context(), req.Params.URI, req.Params.Options)
				if err != nil {
					s.reply(c, response{ID: req.ID, Error: newCallError(err)})
					return
				}
				s.reply(c, response{ID: req.ID, Result: result})
			}(req)
		default:
			s.reply(c, response{ID: req.ID, Error: &callError{Code: wallpaper.ErrorCode, Message: "Unknown method: " + req.Method}})
		}
	}
}

func (s *Server) reply(c *client, resp response) {
	if err := c.writeJSON(resp); err != nil {
		log.Printf("Failed to reply to client: %v", err)
	}
}
