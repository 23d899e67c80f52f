package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/lixenwraith/pawfield/clock"
	"github.com/lixenwraith/pawfield/config"
	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/status"
)

func testServer(t *testing.T, mutate func(*config.ServerConfig), opts ...Option) (*Server, *httptest.Server, *status.Registry) {
	t.Helper()
	cfg := config.Default().Server
	cfg.FrameInterval = 10 * time.Millisecond
	cfg.PingInterval = 0
	if mutate != nil {
		mutate(&cfg)
	}

	p := field.DefaultParams()
	p.ResizeDebounce = 10 * time.Millisecond
	p.Seed = 3

	reg := status.NewRegistry()
	s := New(cfg, p, append([]Option{WithRegistry(reg)}, opts...)...)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return s, srv, reg
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		resp.Body.Close()
	}
	require.NoError(t, err)
	return conn
}

func closeConn(conn *websocket.Conn) {
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}

func readFrame(t *testing.T, conn *websocket.Conn) frameMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg frameMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "frame", msg.Type)
	return msg
}

// waitForDensity reads frames until one carries density n
func waitForDensity(t *testing.T, conn *websocket.Conn, n int) frameMessage {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		msg := readFrame(t, conn)
		if msg.Density == n {
			return msg
		}
	}
	t.Fatalf("no frame with density %d", n)
	return frameMessage{}
}

func TestInitialFrameUsesUnscaledDensity(t *testing.T) {
	_, srv, _ := testServer(t, nil)
	conn := dial(t, srv)
	defer closeConn(conn)

	msg := readFrame(t, conn)
	assert.Equal(t, 20, msg.Density)
	require.Len(t, msg.Glyphs, 20)
	for i, g := range msg.Glyphs {
		assert.Equal(t, i, g.Slot)
		assert.True(t, g.X >= 5 && g.X <= 90 && g.Y >= 5 && g.Y <= 90)
	}
}

func TestViewportMessageResizesPool(t *testing.T) {
	_, srv, _ := testServer(t, nil)
	conn := dial(t, srv)
	defer closeConn(conn)

	readFrame(t, conn)
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "viewport", Width: 320}))
	msg := waitForDensity(t, conn, 8)
	assert.Len(t, msg.Glyphs, 8)

	require.NoError(t, conn.WriteJSON(clientMessage{Type: "viewport", Width: 800}))
	msg = waitForDensity(t, conn, 12)
	assert.Len(t, msg.Glyphs, 12)
}

func TestMalformedMessagesAreDiscarded(t *testing.T) {
	_, srv, _ := testServer(t, nil)
	conn := dial(t, srv)
	defer closeConn(conn)

	readFrame(t, conn)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "viewport", Width: -5}))
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "shout"}))

	// Session survives and still honours a valid message
	require.NoError(t, conn.WriteJSON(clientMessage{Type: "viewport", Width: 375}))
	waitForDensity(t, conn, 8)
}

func TestFrameJSONShape(t *testing.T) {
	_, srv, _ := testServer(t, nil)
	conn := dial(t, srv)
	defer closeConn(conn)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Equal(t, "frame", raw["type"])
	icons := raw["icons"].([]any)
	first := icons[0].(map[string]any)
	for _, key := range []string{"slot", "kind", "x", "y", "size", "duration", "delay", "orientation", "generation"} {
		assert.Contains(t, first, key)
	}
	assert.Contains(t, []any{"paw", "bone"}, first["kind"])
}

func TestMaxClients(t *testing.T) {
	s, srv, _ := testServer(t, func(c *config.ServerConfig) { c.MaxClients = 1 })
	conn := dial(t, srv)
	defer closeConn(conn)
	readFrame(t, conn)
	require.Equal(t, 1, s.Clients())

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	_, srv, _ := testServer(t, nil)
	conn := dial(t, srv)
	defer closeConn(conn)
	readFrame(t, conn)

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var stats map[string]float64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 1.0, stats[status.KeyClients])
	assert.Equal(t, 20.0, stats[status.KeyDensity])
}

func TestIndexServed(t *testing.T) {
	_, srv, _ := testServer(t, nil)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "@keyframes pawPop")
	assert.Contains(t, string(body), "/ws")
}

func TestDisconnectUnmountsField(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s, srv, reg := testServer(t, nil)
	conn := dial(t, srv)
	readFrame(t, conn)
	require.Equal(t, int64(1), reg.Ints.Get(status.KeyMountedFields).Load())

	closeConn(conn)
	require.Eventually(t, func() bool {
		return s.Clients() == 0 && reg.Ints.Get(status.KeyMountedFields).Load() == 0
	}, 2*time.Second, 10*time.Millisecond)

	srv.Close()
}

func TestFramesFollowFieldClock(t *testing.T) {
	clk := clock.NewMock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	var regens atomic.Int64
	observe := func(ev field.Event) {
		if ev.Type == field.EventRegenerate {
			regens.Add(1)
		}
	}
	_, srv, _ := testServer(t, nil, WithClock(clk), WithObserver(observe))
	conn := dial(t, srv)
	defer closeConn(conn)

	first := readFrame(t, conn)
	for _, g := range first.Glyphs {
		assert.Zero(t, g.Generation)
	}
	require.Eventually(t, func() bool { return clk.Pending() == 20 }, 2*time.Second, 5*time.Millisecond)

	// Nothing regenerates until the field clock moves
	clk.Advance(10 * time.Second)
	require.Positive(t, regens.Load())

	// A frame may have been pushed mid-advance; the latest one carries every regeneration
	want := uint64(regens.Load())
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		msg := readFrame(t, conn)
		require.Greater(t, msg.Version, first.Version)
		var total uint64
		for _, g := range msg.Glyphs {
			total += g.Generation
		}
		if total == want {
			return
		}
	}
	t.Fatalf("no frame carried all %d regenerations", want)
}
