package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lixenwraith/pawfield/field"
	"github.com/lixenwraith/pawfield/viewport"
)

// Upper bound on an accepted viewport width, anything larger is treated as malformed
const maxViewportWidth = 1 << 16

// clientMessage is the only inbound message shape
type clientMessage struct {
	Type  string `json:"type"`
	Width int    `json:"width"`
}

// frameMessage is pushed whenever the field version moves
type frameMessage struct {
	Type string `json:"type"`
	field.Frame
}

type session struct {
	id     string
	srv    *Server
	conn   *websocket.Conn
	remote string
	signal *viewport.Signal
	field  *field.Field
	log    *zap.Logger
}

func newSession(s *Server, conn *websocket.Conn, remote string) (*session, error) {
	id := uuid.NewString()
	sig := viewport.NewSignal()
	log := s.log.With(zap.String("session", id), zap.String("remote", remote))

	opts := []field.Option{field.WithLogger(log), field.WithRegistry(s.reg)}
	if s.observer != nil {
		opts = append(opts, field.WithObserver(s.observer))
	}
	f, err := field.New(s.params, s.clock, sig, opts...)
	if err != nil {
		return nil, err
	}
	return &session{id: id, srv: s, conn: conn, remote: remote, signal: sig, field: f, log: log}, nil
}

// run mounts the field and pumps both directions until either side fails
func (ss *session) run(ctx context.Context) {
	defer ss.conn.Close()

	if err := ss.field.Mount(); err != nil {
		ss.log.Error("field mount failed", zap.Error(err))
		return
	}
	defer ss.field.Unmount()
	ss.log.Info("client connected")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(ss.readLoop)
	g.Go(func() error {
		err := ss.writeLoop(gctx)
		// Unblocks the reader
		ss.conn.Close()
		return err
	})

	err := g.Wait()
	if err != nil && !isClosure(err) {
		ss.log.Warn("client session ended", zap.Error(err))
		return
	}
	ss.log.Info("client disconnected")
}

func (ss *session) readLoop() error {
	if ping := ss.srv.cfg.PingInterval; ping > 0 {
		deadline := func() time.Time { return time.Now().Add(2 * ping) }
		_ = ss.conn.SetReadDeadline(deadline())
		ss.conn.SetPongHandler(func(string) error {
			return ss.conn.SetReadDeadline(deadline())
		})
	}

	for {
		_, payload, err := ss.conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			ss.log.Debug("discarding malformed message", zap.Error(err))
			continue
		}

		switch msg.Type {
		case "viewport":
			if msg.Width <= 0 || msg.Width > maxViewportWidth {
				ss.log.Debug("discarding viewport width", zap.Int("width", msg.Width))
				continue
			}
			ss.signal.Set(msg.Width)
		default:
			ss.log.Debug("discarding unknown message", zap.String("type", msg.Type))
		}
	}
}

func (ss *session) writeLoop(ctx context.Context) error {
	frames := time.NewTicker(ss.srv.cfg.FrameInterval)
	defer frames.Stop()

	var ping <-chan time.Time
	if ss.srv.cfg.PingInterval > 0 {
		t := time.NewTicker(ss.srv.cfg.PingInterval)
		defer t.Stop()
		ping = t.C
	}

	var sent uint64
	push := func() error {
		fr := ss.field.Snapshot()
		if fr.Version == sent {
			return nil
		}
		if err := ss.write(frameMessage{Type: "frame", Frame: fr}); err != nil {
			return err
		}
		sent = fr.Version
		ss.srv.statFrames.Add(1)
		return nil
	}

	if err := push(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = ss.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return nil

		case <-frames.C:
			if err := push(); err != nil {
				return err
			}

		case <-ping:
			if err := ss.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ss.srv.cfg.WriteTimeout)); err != nil {
				return err
			}
		}
	}
}

func (ss *session) write(v any) error {
	if t := ss.srv.cfg.WriteTimeout; t > 0 {
		_ = ss.conn.SetWriteDeadline(time.Now().Add(t))
	}
	return ss.conn.WriteJSON(v)
}

// isClosure reports errors that mean the peer simply went away
func isClosure(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return true
	}
	return errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) || errors.Is(err, context.Canceled)
}
