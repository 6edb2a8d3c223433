// Package telemetry streams simulation snapshots to external viewers over
// WebSocket and serves the collision counters as JSON.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/citydefense/server/internal/render"
	"github.com/citydefense/server/internal/world"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	maxReadSize = 512
)

// Frame is one snapshot as sent to viewers, msgpack encoded.
type Frame struct {
	Frame     uint64             `msgpack:"f" json:"frame"`
	Score     int                `msgpack:"sc" json:"score"`
	ScoreText string             `msgpack:"st" json:"score_text"`
	Remaining int                `msgpack:"rm" json:"remaining"`
	Over      bool               `msgpack:"go" json:"game_over"`
	Stats     world.Stats        `msgpack:"stats" json:"stats"`
	Events    uint64             `msgpack:"ev" json:"events_delivered"`
	Nodes     []render.NodeState `msgpack:"n,omitempty" json:"-"`
}

// Source produces snapshots. Implementations must be safe to call from
// goroutines other than the game loop.
type Source interface {
	Snapshot() Frame
}

// Options configure a Server.
type Options struct {
	TokenHash string        // bcrypt hash of the viewer token; empty disables the check
	SendRate  time.Duration // interval between frames per viewer
}

// Server fans snapshots out to connected viewers.
type Server struct {
	src      Source
	opts     Options
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	viewers map[uuid.UUID]*websocket.Conn
	httpSrv *http.Server
}

func NewServer(src Source, opts Options, log *zap.Logger) *Server {
	if opts.SendRate <= 0 {
		opts.SendRate = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		src:  src,
		opts: opts,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		viewers: make(map[uuid.UUID]*websocket.Conn),
	}
}

// Handler returns the HTTP routes: /ws for the frame stream and /stats for
// the latest counters.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/stats", s.serveStats)
	return mux
}

// ListenAndServe blocks until the listener fails or Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.httpSrv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	srv := s.httpSrv
	s.mu.Unlock()
	s.log.Info("telemetry listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server and closes every viewer.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpSrv
	for id, c := range s.viewers {
		c.Close()
		delete(s.viewers, id)
	}
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Viewers returns the number of connected viewers.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.viewers)
}

func (s *Server) authorized(r *http.Request) bool {
	if s.opts.TokenHash == "" {
		return true
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s.opts.TokenHash), []byte(token)) == nil
}

func (s *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.src.Snapshot()); err != nil {
		s.log.Debug("stats write failed", zap.Error(err))
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	id := uuid.New()
	s.mu.Lock()
	s.viewers[id] = conn
	s.mu.Unlock()
	s.log.Info("viewer connected", zap.Stringer("session", id), zap.String("ip", r.RemoteAddr))

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(conn, done)

	s.mu.Lock()
	delete(s.viewers, id)
	s.mu.Unlock()
	conn.Close()
	s.log.Info("viewer disconnected", zap.Stringer("session", id))
}

// readPump discards viewer input and keeps the read deadline alive through
// pongs. It closes done when the connection breaks.
func (s *Server) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	conn.SetReadLimit(maxReadSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("viewer read error", zap.Error(err))
			}
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, done <-chan struct{}) {
	send := time.NewTicker(s.opts.SendRate)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		send.Stop()
		ping.Stop()
	}()

	var last uint64
	first := true
	for {
		select {
		case <-done:
			return
		case <-send.C:
			f := s.src.Snapshot()
			if !first && f.Frame == last {
				continue
			}
			first = false
			last = f.Frame
			data, err := msgpack.Marshal(&f)
			if err != nil {
				s.log.Error("encode frame", zap.Error(err))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
