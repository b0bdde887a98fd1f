package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/jpalmerr/itemsync"
	"github.com/jpalmerr/itemsync/events"
	"github.com/jpalmerr/itemsync/internal/cache"
	"github.com/jpalmerr/itemsync/store"
)

const (
	// streamWriteTimeout is the maximum time allowed for a single SSE or
	// WebSocket write. Must be <= shutdown timeout to ensure clean shutdown.
	streamWriteTimeout = 5 * time.Second

	// shutdownTimeout bounds graceful shutdown of in-flight requests.
	shutdownTimeout = 5 * time.Second

	// maxBodyBytes caps request bodies on the write endpoints.
	maxBodyBytes = 1 << 20

	// defaultTitle is used when no custom title is configured.
	defaultTitle = "itemsync"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// sender identifies events published by this server.
	sender = "http"
)

// Backend is the controller surface the server drives.
// [itemsync.Controller] satisfies it.
type Backend interface {
	Records() []store.Record
	Read(ctx context.Context, id string) (*store.Record, error)
	Publish(ev events.Event) bool
	ForceDataRefresh(ctx context.Context) itemsync.LoadResult
	NeedsRefresh() bool
	Stats() itemsync.Stats
	Subscribe() <-chan cache.Change
	Unsubscribe(ch <-chan cache.Change)
}

// Message is one frame of the SSE and WebSocket change streams. The first
// frame of a stream is a snapshot; every later frame carries a change.
type Message struct {
	Type    string         `json:"type"`
	Records []store.Record `json:"records,omitempty"`
	Change  *cache.Change  `json:"change,omitempty"`
}

const (
	messageSnapshot = "snapshot"
	messageChange   = "change"
)

// loadResponse is the JSON body of POST /api/refresh.
type loadResponse struct {
	itemsync.LoadResult
	Error string `json:"error,omitempty"`
}

// Server handles HTTP requests for the itemsync dashboard and API.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	backend    Backend
	port       int
	httpServer *http.Server
	assets     fs.FS
	title      string
	logger     *slog.Logger

	addrMu sync.RWMutex
	addr   net.Addr
}

// NewServer creates a new HTTP [Server].
//
// Parameters:
//   - backend: controller the API reads from and publishes to
//   - port: TCP port to listen on (0 picks a free port)
//   - assets: Embedded filesystem containing dashboard assets (may be nil)
//   - title: Dashboard title (defaults to "itemsync" if empty)
//   - logger: Logger for server events
//
// The server is not started until [Server.Start] is called.
func NewServer(backend Backend, port int, assets fs.FS, title string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		backend: backend,
		port:    port,
		assets:  assets,
		title:   title,
		logger:  logger,
	}
}

// Handler returns the routed request handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("POST /api/records", s.handleCreateRecord)
	mux.HandleFunc("GET /api/records/{id}", s.handleReadRecord)
	mux.HandleFunc("PUT /api/records/{id}", s.handleUpdateRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("POST /api/source", s.handleSetSource)
	mux.HandleFunc("POST /api/wipe", s.handleWipe)
	mux.HandleFunc("GET /api/refresh", s.handleNeedsRefresh)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/sse", s.handleSSE)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)

	if s.assets != nil {
		mux.HandleFunc("GET /", s.handleDashboard)
	}
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server will continue running until the context is
// cancelled, at which point it initiates a graceful shutdown with a 5-second
// timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.addrMu.Lock()
	s.addr = ln.Addr()
	s.addrMu.Unlock()

	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// request contexts derive from ctx so that streaming handlers end on shutdown
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	s.logger.Info("http server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before [Server.Start].
func (s *Server) Addr() net.Addr {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// handleDashboard serves the main dashboard page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	// title is user supplied, escape it before substitution
	title := s.title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

func (s *Server) handleListRecords(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Records())
}

func (s *Server) handleReadRecord(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := s.backend.Read(r.Context(), id)
	if err != nil {
		s.logger.Warn("read failed", "id", id, "error", err.Error())
		http.Error(w, "Store unavailable", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var rec store.Record
	if !s.decode(w, r, &rec) {
		return
	}
	if rec.ID == "" {
		rec.ID = store.NewID()
	}
	s.publish(w, events.Create{Sender: sender, Record: rec}, rec)
}

func (s *Server) handleUpdateRecord(w http.ResponseWriter, r *http.Request) {
	var rec store.Record
	if !s.decode(w, r, &rec) {
		return
	}
	rec.ID = r.PathValue("id")
	s.publish(w, events.Update{Sender: sender, Record: rec}, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	rec := store.Record{ID: r.PathValue("id")}
	s.publish(w, events.Delete{Sender: sender, Record: rec}, rec)
}

func (s *Server) handleSetSource(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Source *int `json:"source"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Source == nil {
		http.Error(w, "source is required", http.StatusBadRequest)
		return
	}
	s.publish(w, events.SetDataSource{Sender: sender, Source: *body.Source}, body)
}

func (s *Server) handleWipe(w http.ResponseWriter, _ *http.Request) {
	ev := events.WipeDataList{Sender: sender, Confirm: true}
	s.publish(w, ev, ev)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res := s.backend.ForceDataRefresh(r.Context())

	body := loadResponse{LoadResult: res}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	s.writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleNeedsRefresh(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]bool{"needs_refresh": s.backend.NeedsRefresh()})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Stats())
}

// publish hands ev to the backend and answers 202 with echo, or 503 when
// the event was dropped.
func (s *Server) publish(w http.ResponseWriter, ev events.Event, echo any) {
	if !s.backend.Publish(ev) {
		http.Error(w, "Event queue unavailable", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusAccepted, echo)
}

// decode reads a JSON request body into v. On failure it answers 400 and
// returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

// handleSSE streams cache changes via Server-Sent Events.
//
// The handler uses write deadlines so that a blocked write to a slow or
// disconnected client cannot keep it from seeing shutdown.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	rc := http.NewResponseController(w)

	// some ResponseWriter implementations do not support deadlines
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
				s.logger.Warn("sse write deadlines not supported", "error", err)
				deadlinesSupported = false
			}
		}

		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// subscribe before the snapshot so no change falls in between
	ch := s.backend.Subscribe()
	defer s.backend.Unsubscribe(ch)

	snapshot, err := json.Marshal(Message{Type: messageSnapshot, Records: s.backend.Records()})
	if err != nil {
		return
	}
	if err := writeAndFlush(snapshot); err != nil {
		return
	}

	for {
		select {
		case change, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(Message{Type: messageChange, Change: &change})
			if err != nil {
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}

		case <-r.Context().Done():
			// fires on client disconnect and on server shutdown (BaseContext)
			return
		}
	}
}

// handleWebSocket streams the same messages as handleSSE over a WebSocket.
// Client frames are ignored.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	// closed ends when the client closes the connection. It is not derived
	// from the request context so that shutdown can send its own close frame.
	closed := conn.CloseRead(context.Background())
	ctx := r.Context()

	ch := s.backend.Subscribe()
	defer s.backend.Unsubscribe(ch)

	send := func(msg Message) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
		defer cancel()
		return conn.Write(wctx, websocket.MessageText, data)
	}

	if err := send(Message{Type: messageSnapshot, Records: s.backend.Records()}); err != nil {
		return
	}

	for {
		select {
		case change, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "subscription closed")
				return
			}
			if err := send(Message{Type: messageChange, Change: &change}); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-closed.Done():
			return

		case <-ctx.Done():
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
	}
}
