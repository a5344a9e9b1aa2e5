// Package server runs the local preview server: it renders the current
// record's certificate, serves record previews and exports, and pushes
// export progress and reload notices to the browser over a WebSocket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/certsmith/internal/assets"
	"github.com/conneroisu/certsmith/internal/config"
	"github.com/conneroisu/certsmith/internal/errors"
	"github.com/conneroisu/certsmith/internal/export"
	"github.com/conneroisu/certsmith/internal/logging"
	"github.com/conneroisu/certsmith/internal/rasterizer"
	"github.com/conneroisu/certsmith/internal/validation"
	"github.com/conneroisu/certsmith/internal/watcher"
)

// Client represents a WebSocket client
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	server *PreviewServer
}

// Options are the collaborators a PreviewServer drives.
type Options struct {
	TemplatePath string
	// DataPath may be empty, in which case the sample records are served
	DataPath   string
	Loader     *assets.Loader
	Rasterizer rasterizer.Rasterizer
	Pipeline   *export.Pipeline
	Logger     logging.Logger
}

// PreviewServer serves certificate previews with live reload
type PreviewServer struct {
	config     *config.Config
	opts       Options
	logger     logging.Logger
	httpServer *http.Server

	sessionMu sync.RWMutex
	session   *Session

	clients      map[*websocket.Conn]*Client
	clientsMutex sync.RWMutex
	broadcast    chan []byte
	register     chan *Client
	unregister   chan *websocket.Conn

	watcher      *watcher.FileWatcher
	unsubscribe  func()
	shutdownOnce sync.Once
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string           `json:"type"`
	Progress  *export.Progress `json:"progress,omitempty"`
	State     *export.State    `json:"state,omitempty"`
	Content   string           `json:"content,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Message types pushed over the WebSocket.
const (
	MessageProgress    = "progress"
	MessageReload      = "reload"
	MessageReloadError = "reload_error"
)

// New creates a preview server and loads the initial session.
func New(cfg *config.Config, opts Options) (*PreviewServer, error) {
	if opts.Loader == nil || opts.Rasterizer == nil || opts.Pipeline == nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"preview server requires a loader, a rasterizer and a pipeline")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	session, err := LoadSession(opts.TemplatePath, opts.DataPath)
	if err != nil {
		return nil, err
	}

	s := &PreviewServer{
		config:     cfg,
		opts:       opts,
		logger:     logger.WithComponent("server"),
		session:    session,
		clients:    make(map[*websocket.Conn]*Client),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
	}

	s.unsubscribe = opts.Pipeline.Subscribe(func(p export.Progress) {
		state := opts.Pipeline.State()
		s.broadcastMessage(UpdateMessage{
			Type:      MessageProgress,
			Progress:  &p,
			State:     &state,
			Timestamp: time.Now(),
		})
	})

	return s, nil
}

// Session returns the session currently served.
func (s *PreviewServer) Session() *Session {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	return s.session
}

// Handler returns the HTTP handler with every route installed.
func (s *PreviewServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /render/{index}", s.handleRender)
	mux.HandleFunc("GET /api/records", s.handleRecords)
	mux.HandleFunc("GET /api/template", s.handleTemplate)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/export/{index}", s.handleExportOne)
	mux.HandleFunc("POST /api/export", s.handleExportAll)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	return s.addMiddleware(mux)
}

// Start listens on the configured address and serves until ctx is done.
func (s *PreviewServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down.
func (s *PreviewServer) Serve(ctx context.Context, ln net.Listener) error {
	go s.runWebSocketHub(ctx)

	if s.config.Watch.Enabled {
		if err := s.setupFileWatcher(ctx); err != nil {
			s.logger.Warn(ctx, err, "File watching disabled")
		}
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = server

	url := fmt.Sprintf("http://%s", ln.Addr())
	s.logger.Info(ctx, "Preview server listening", "url", url,
		"template", s.opts.TemplatePath, "records", s.Session().Len())
	if s.config.Server.Open {
		go s.openBrowser(ctx, url)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

func (s *PreviewServer) setupFileWatcher(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(s.config.Watch.Debounce, s.logger)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	fw.AddFilter(watcher.NoTempFilter)
	fw.AddFilter(watcher.CertificateInputFilter)
	if err := fw.WatchFiles(s.Session().WatchPaths()...); err != nil {
		_ = fw.Stop()
		return err
	}
	fw.AddHandler(s.handleFileChange)
	if err := fw.Start(ctx); err != nil {
		_ = fw.Stop()
		return err
	}
	s.watcher = fw
	return nil
}

func (s *PreviewServer) handleFileChange(ctx context.Context, events []watcher.ChangeEvent) error {
	for _, event := range events {
		s.logger.Info(ctx, "File changed", "path", event.Path, "type", event.Type.String())
	}
	return s.Reload(ctx)
}

// Reload re-reads the template and records. On failure the previous session
// stays in place and a reload_error message is broadcast.
func (s *PreviewServer) Reload(ctx context.Context) error {
	previous := s.Session()

	next, err := LoadSession(s.opts.TemplatePath, s.opts.DataPath)
	if err != nil {
		s.logger.Warn(ctx, err, "Reload failed, keeping previous session")
		s.broadcastMessage(UpdateMessage{Type: MessageReloadError, Content: err.Error(), Timestamp: time.Now()})
		return err
	}

	s.opts.Loader.Forget(previous.Template.BackgroundRef)
	s.opts.Loader.Forget(next.Template.BackgroundRef)

	s.sessionMu.Lock()
	s.session = next
	s.sessionMu.Unlock()

	s.logger.Info(ctx, "Session reloaded", "fields", len(next.Template.Fields), "records", next.Len())
	s.broadcastMessage(UpdateMessage{Type: MessageReload, Timestamp: time.Now()})
	return nil
}

func (s *PreviewServer) openBrowser(ctx context.Context, url string) {
	if err := validation.ValidateURL(url); err != nil {
		s.logger.Warn(ctx, err, "Refusing to open browser")
		return
	}
	time.Sleep(100 * time.Millisecond) // Give server time to start

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform")
	}

	if err != nil {
		s.logger.Warn(ctx, err, "Failed to open browser")
	}
}

func (s *PreviewServer) addMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		start := time.Now()
		handler.ServeHTTP(w, r)
		s.logger.Debug(r.Context(), "Request served",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
	})
}

func (s *PreviewServer) broadcastMessage(msg UpdateMessage) {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error(context.Background(), err, "Failed to marshal message")
		jsonData = []byte(`{"type":"reload"}`)
	}

	select {
	case s.broadcast <- jsonData:
	default:
		s.logger.Warn(context.Background(), nil, "Broadcast queue full, dropping message", "type", msg.Type)
	}
}

// Shutdown gracefully shuts down the server and cleans up resources
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		if s.watcher != nil {
			_ = s.watcher.Stop()
		}

		s.clientsMutex.Lock()
		for conn, client := range s.clients {
			close(client.send)
			conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		s.clients = make(map[*websocket.Conn]*Client)
		s.clientsMutex.Unlock()

		if s.httpServer != nil {
			shutdownErr = s.httpServer.Shutdown(ctx)
		}
	})

	return shutdownErr
}
