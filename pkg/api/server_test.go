package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dixieflatline76/wallfit/pkg/wallpaper"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService records calls and answers with fixed results.
type fakeService struct {
	mu    sync.Mutex
	calls []setWallpaperParams
	err   error
	block chan struct{}
}

func (f *fakeService) SetWallpaper(ctx context.Context, uri string, opts wallpaper.Options) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls = append(f.calls, setWallpaperParams{URI: uri, Options: opts})
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return wallpaper.SuccessMessage, nil
}

func newTestServer(t *testing.T, svc *fakeService) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServer("127.0.0.1:0", 0, 1)
	if svc != nil {
		s.SetWallpaperHandler(svc.SetWallpaper)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func postWallpaper(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/wallpaper", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestHealthCheck(t *testing.T) {
	_, ts := newTestServer(t, &fakeService{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "running", body["status"])
	assert.EqualValues(t, 0, body["inflight"])
}

func TestSetWallpaper_HTTP(t *testing.T) {
	svc := &fakeService{}
	_, ts := newTestServer(t, svc)

	resp, body := postWallpaper(t, ts, `{"uri":"https://example.com/a.jpg","options":{"isLock":true}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wallpaper.SuccessMessage, body["result"])

	require.Len(t, svc.calls, 1)
	assert.Equal(t, "https://example.com/a.jpg", svc.calls[0].URI)
	assert.Equal(t, wallpaper.FlagSystem|wallpaper.FlagLock, svc.calls[0].Options.Flags())
}

func TestSetWallpaper_HTTPErrors(t *testing.T) {
	t.Run("BadBody", func(t *testing.T) {
		_, ts := newTestServer(t, &fakeService{})
		resp, body := postWallpaper(t, ts, `{`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "ERROR", body["code"])
	})

	t.Run("LoadError", func(t *testing.T) {
		svc := &fakeService{err: &wallpaper.Error{Kind: wallpaper.KindLoad, Op: "load", Err: errors.New("status 404")}}
		_, ts := newTestServer(t, svc)
		resp, body := postWallpaper(t, ts, `{"uri":"http://x/a.jpg"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
		assert.Equal(t, "ERROR", body["code"])
		assert.Equal(t, "Failed to load image: status 404", body["message"])
	})

	t.Run("PlatformError", func(t *testing.T) {
		svc := &fakeService{err: &wallpaper.Error{Kind: wallpaper.KindPlatform, Op: "apply", Err: errors.New("denied")}}
		_, ts := newTestServer(t, svc)
		resp, body := postWallpaper(t, ts, `{"uri":"/a.jpg"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Failed to set wallpaper: denied", body["message"])
	})

	t.Run("NoHandler", func(t *testing.T) {
		_, ts := newTestServer(t, nil)
		resp, body := postWallpaper(t, ts, `{"uri":"/a.jpg"}`)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "ERROR", body["code"])
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		_, ts := newTestServer(t, &fakeService{})
		resp, err := http.Get(ts.URL + "/wallpaper")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestSetWallpaper_RateLimited(t *testing.T) {
	s := NewServer("127.0.0.1:0", 0.001, 1)
	s.SetWallpaperHandler((&fakeService{}).SetWallpaper)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, _ := postWallpaper(t, ts, `{"uri":"/a.jpg"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postWallpaper(t, ts, `{"uri":"/a.jpg"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "ERROR", body["code"])
}

func TestWebSocket_SetWallpaper(t *testing.T) {
	svc := &fakeService{}
	_, ts := newTestServer(t, svc)
	ws := dialWS(t, ts)

	require.NoError(t, ws.WriteJSON(request{
		ID:     "42",
		Method: methodSetWallpaper,
		Params: setWallpaperParams{URI: "/tmp/a.jpg"},
	}))

	// A successful call is answered and also broadcast; order is not fixed.
	var gotResponse, gotEvent bool
	for i := 0; i < 2; i++ {
		var msg map[string]interface{}
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		require.NoError(t, ws.ReadJSON(&msg))
		switch {
		case msg["id"] == "42":
			assert.Equal(t, wallpaper.SuccessMessage, msg["result"])
			assert.Nil(t, msg["error"])
			gotResponse = true
		case msg["type"] == eventWallpaperChanged:
			assert.Equal(t, "/tmp/a.jpg", msg["uri"])
			assert.Equal(t, "system", msg["flags"])
			gotEvent = true
		}
	}
	assert.True(t, gotResponse)
	assert.True(t, gotEvent)
}

func TestWebSocket_Rejection(t *testing.T) {
	svc := &fakeService{err: &wallpaper.Error{Kind: wallpaper.KindLoad, Op: "load", Err: errors.New("missing")}}
	_, ts := newTestServer(t, svc)
	ws := dialWS(t, ts)

	require.NoError(t, ws.WriteJSON(request{Method: methodSetWallpaper, Params: setWallpaperParams{URI: "/nope"}}))

	var resp response
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, ws.ReadJSON(&resp))
	assert.NotEmpty(t, resp.ID, "missing ids are assigned")
	assert.Empty(t, resp.Result)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERROR", resp.Error.Code)
	assert.Equal(t, "Failed to load image: missing", resp.Error.Message)
}

func TestWebSocket_PingAndUnknown(t *testing.T) {
	_, ts := newTestServer(t, &fakeService{})
	ws := dialWS(t, ts)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"id":"p","method":"ping"}`)))
	var resp response
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Equal(t, "p", resp.ID)
	assert.Equal(t, "pong", resp.Result)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"id":"u","method":"reboot"}`)))
	resp = response{}
	require.NoError(t, ws.ReadJSON(&resp))
	assert.Equal(t, "u", resp.ID)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "Unknown method")

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	resp = response{}
	require.NoError(t, ws.ReadJSON(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ERROR", resp.Error.Code)
}

func TestStop_WaitsForInFlight(t *testing.T) {
	svc := &fakeService{block: make(chan struct{})}
	s, ts := newTestServer(t, svc)

	done := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(ts.URL+"/wallpaper", "application/json", strings.NewReader(`{"uri":"/a.jpg"}`))
		if err == nil {
			resp.Body.Close()
		}
		done <- resp
	}()

	require.Eventually(t, func() bool { return s.InFlight() == 1 }, 5*time.Second, 10*time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- s.Stop(context.Background()) }()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a call was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(svc.block)
	require.NoError(t, <-stopped)
	resp := <-done
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// New calls are refused once stopping.
	_, err := s.call(context.Background(), "/a.jpg", wallpaper.Options{})
	assert.ErrorIs(t, err, errStopping)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func (s *Server) clientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func TestStop_RightAfterStart(t *testing.T) {
	addr := freeAddr(t)
	s := NewServer(addr, 0, 1)

	started := make(chan error, 1)
	go func() { started <- s.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	select {
	case err := <-started:
		assert.ErrorIs(t, err, http.ErrServerClosed)
	case <-time.After(5 * time.Second):
		t.Fatal("Start kept serving after Stop returned")
	}

	_, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)

	// A late Start after Stop refuses to serve.
	assert.ErrorIs(t, s.Start(), http.ErrServerClosed)
}

func TestStop_NoCallRunsAfterStopReturns(t *testing.T) {
	var started atomic.Int64
	s := NewServer("127.0.0.1:0", 0, 1)
	s.SetWallpaperHandler(func(ctx context.Context, uri string, opts wallpaper.Options) (string, error) {
		started.Add(1)
		time.Sleep(time.Millisecond)
		return wallpaper.SuccessMessage, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, err := s.call(context.Background(), "/a.jpg", wallpaper.Options{}); errors.Is(err, errStopping) {
					return
				}
			}
		}()
	}

	require.Eventually(t, func() bool { return started.Load() > 0 }, 5*time.Second, time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	atStop := started.Load()
	assert.Zero(t, s.InFlight())

	wg.Wait()
	assert.Equal(t, atStop, started.Load(), "a call was admitted after Stop returned")
}

func TestBroadcast_SlowClientDoesNotBlockRegistration(t *testing.T) {
	s, ts := newTestServer(t, &fakeService{})

	dialWS(t, ts)
	require.Eventually(t, func() bool { return s.clientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	s.clientsMu.Lock()
	var stalled *client
	for c := range s.clients {
		stalled = c
	}
	s.clientsMu.Unlock()

	// Hold the writer so the broadcast stalls on this client.
	stalled.writeMu.Lock()
	done := make(chan struct{})
	go func() {
		s.broadcast(event{Type: eventWallpaperChanged, URI: "/a.jpg"})
		close(done)
	}()

	dialWS(t, ts)
	assert.Eventually(t, func() bool { return s.clientCount() == 2 }, 5*time.Second, 10*time.Millisecond)

	stalled.writeMu.Unlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast did not finish")
	}
}
