package live

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fervo-ui/fervo/pkg/backend/memdom"
	"github.com/fervo-ui/fervo/pkg/render"
	"github.com/fervo-ui/fervo/pkg/runtime"
)

// ServerConfig configures the live server.
type ServerConfig struct {
	// Title is the page title for the HTML shell.
	Title string

	// Logger is the structured logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, when set, instruments every session's loop and exposes
	// the /metrics endpoint.
	Metrics *runtime.Metrics

	// Session overrides the per-connection timeouts.
	Session SessionConfig

	// CheckOrigin overrides the WebSocket origin check. The default
	// accepts same-origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// Server serves a component over HTTP: a server-rendered shell on GET /
// and a per-connection render loop on GET /ws.
type Server struct {
	root     runtime.ComponentFunc
	config   ServerConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
	renderer *render.Renderer
	sessions atomic.Uint64
}

// NewServer creates a live server for the given root component.
func NewServer(root runtime.ComponentFunc, config ServerConfig) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Session == (SessionConfig{}) {
		config.Session = DefaultSessionConfig()
	}
	if config.Title == "" {
		config.Title = "fervo"
	}
	return &Server{
		root:   root,
		config: config,
		logger: config.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
		renderer: render.NewRenderer(render.RendererConfig{EmitRefs: true}),
	}
}

// Handler returns the chi router for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Get("/", s.handleIndex)
	r.Get("/ws", s.handleWS)
	r.Get("/static/fervo-client.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Write([]byte(clientScript))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	if s.config.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// ListenAndServe runs the server on addr until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", "addr", addr)
	return srv.ListenAndServe()
}

// handleIndex renders a throwaway mount of the component into an HTML
// shell. The page is a static first paint; the client connects to /ws
// for the live tree.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	mirror := memdom.New()
	var opts []runtime.Option
	opts = append(opts, runtime.WithLogger(s.logger))
	loop := runtime.NewLoop(s.root, mirror, opts...)
	// The first-paint loop is thrown away; Close stops any tasks the
	// component spawned during its single render.
	defer loop.Close()
	if err := loop.Mount(); err != nil {
		s.logger.Error("index render failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	html, err := s.renderer.RenderToString(loop.Root().Tree())
	if err != nil {
		s.logger.Error("index serialize failed", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, indexShell, render.EscapeText(s.config.Title), html)
}

// handleWS upgrades the connection and starts a dedicated session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	id := s.sessions.Add(1)
	logger := s.logger.With("session", id)

	var opts []runtime.Option
	opts = append(opts, runtime.WithLogger(logger))
	if s.config.Metrics != nil {
		opts = append(opts, runtime.WithMetrics(s.config.Metrics))
	}

	sess := &Session{
		id:     id,
		conn:   conn,
		logger: logger,
		config: s.config.Session,
		done:   make(chan struct{}),
	}
	sess.loop = runtime.NewLoop(s.root, sess, opts...)

	logger.Info("session opened", "remote", r.RemoteAddr)
	// The request context dies when this handler returns; the session
	// owns the hijacked connection from here.
	go sess.run(context.Background())
}

const indexShell = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
<div id="app">%s</div>
<script src="/static/fervo-client.js" defer></script>
</body>
</html>
`
