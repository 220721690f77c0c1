package live

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fervo-ui/fervo/pkg/runtime"
	"github.com/fervo-ui/fervo/pkg/vdom"
)

// Session binds one WebSocket connection to its own render loop. The
// session is the loop's backend: the mounted tree and every patch batch
// go out as frames, and incoming event frames feed the loop's sink.
type Session struct {
	id     uint64
	conn   *websocket.Conn
	loop   *runtime.Loop
	logger *slog.Logger
	config SessionConfig

	writeMu sync.Mutex
	cancel  context.CancelFunc
	closed  atomic.Bool
	done    chan struct{}
}

// SessionConfig holds per-connection timeouts.
type SessionConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
}

// DefaultSessionConfig returns the timeouts used when none are set.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 25 * time.Second,
	}
}

var _ runtime.Backend = (*Session)(nil)

// Mount sends the full mounted tree as a single frame.
func (s *Session) Mount(root *vdom.VNode) error {
	return s.writeFrame(frame{Type: frameMount, Tree: encodeNode(root)})
}

// Apply streams one cycle's patch batch.
func (s *Session) Apply(patches []vdom.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	return s.writeFrame(frame{Type: framePatches, Patches: encodePatches(patches)})
}

func (s *Session) writeFrame(f frame) error {
	if s.closed.Load() {
		return errors.New("live: session closed")
	}
	data, err := encodeFrame(f)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// run drives the session until the connection drops or ctx ends.
func (s *Session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer s.Close()

	if err := s.loop.Mount(); err != nil {
		s.logger.Error("mount failed", "error", err)
		return
	}

	go s.readLoop()
	go s.heartbeat(ctx)

	if err := s.loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("loop stopped", "error", err)
	}
}

// readLoop reads frames until the connection closes. Events are handed
// to the loop's sink; their state writes show up on the next cycle.
func (s *Session) readLoop() {
	defer s.Close()

	for {
		s.conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}

		f, err := decodeFrame(msg)
		if err != nil {
			s.logger.Error("frame decode error", "error", err)
			continue
		}

		switch f.Type {
		case frameEvent:
			if f.Event == nil {
				continue
			}
			s.loop.Emit(vdom.RefID(f.Event.Ref), vdom.Event{
				Name:  f.Event.Name,
				Value: f.Event.Value,
			})

		case framePing:
			if err := s.writeFrame(frame{Type: framePong}); err != nil {
				return
			}

		case framePong:
			s.logger.Debug("received pong")

		default:
			s.logger.Warn("unknown frame type", "type", f.Type)
		}
	}
}

// heartbeat sends periodic pings so idle connections stay open through
// proxies.
func (s *Session) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(s.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.writeFrame(frame{Type: framePing}); err != nil {
				s.Close()
				return
			}
		}
	}
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	close(s.done)
	if s.cancel != nil {
		s.cancel()
	}
	if s.loop != nil {
		s.loop.Close()
	}
	s.conn.Close()
	s.logger.Info("session closed", "session", s.id)
}
