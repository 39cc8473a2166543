// Package webui serves the browser dashboard: an embedded page, a small
// JSON API and a websocket that pushes every rebuilt snapshot.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/stellarlinkco/wamonitor/internal/dashboard"
	"github.com/stellarlinkco/wamonitor/internal/export"
	"github.com/stellarlinkco/wamonitor/internal/refresh"
)

//go:embed static
var staticFiles embed.FS

const writeTimeout = 5 * time.Second

// Dashboard builds snapshots on demand.
type Dashboard interface {
	Snapshot(ctx context.Context) dashboard.Snapshot
	Refresh(ctx context.Context) dashboard.Snapshot
}

// SettingsStore holds the auto-refresh settings.
type SettingsStore interface {
	Settings() refresh.Settings
	Apply(refresh.Settings) refresh.Settings
}

type wsMessage struct {
	Type     string              `json:"type"`
	Snapshot *dashboard.Snapshot `json:"snapshot,omitempty"`
	Settings *refresh.Settings   `json:"settings,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

type Server struct {
	addr     string
	dash     Dashboard
	settings SettingsStore
	validate *validator.Validate
	router   *mux.Router

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	clients  sync.Map
}

func New(addr string, dash Dashboard, settings SettingsStore) (*Server, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("embed static fs: %w", err)
	}

	s := &Server{
		addr:     addr,
		dash:     dash,
		settings: settings,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/snapshot", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut)
	api.HandleFunc("/export", s.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS)
	r.PathPrefix("/").Handler(http.FileServer(http.FS(staticFS))).Methods(http.MethodGet)
	s.router = r

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:     s.router,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.mu.Unlock()

	go func() {
		log.Printf("[webui] listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[webui] server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("[webui] shutdown error: %v", err)
		}
	}
	s.clients.Range(func(key, value any) bool {
		value.(*wsClient).conn.CloseNow()
		s.clients.Delete(key)
		return true
	})
	log.Printf("[webui] stopped")
	return nil
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	n := 0
	s.clients.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Broadcast pushes snap to every connected client.
func (s *Server) Broadcast(snap dashboard.Snapshot) {
	s.broadcast(wsMessage{Type: "snapshot", Snapshot: &snap})
}

func (s *Server) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[webui] marshal %s: %v", msg.Type, err)
		return
	}
	s.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		if err := s.write(c, data); err != nil {
			log.Printf("[webui] dropping client %s: %v", c.id, err)
			s.clients.Delete(key)
			c.conn.CloseNow()
		}
		return true
	})
}

func (s *Server) write(c *wsClient, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[webui] websocket accept error: %v", err)
		return
	}

	client := &wsClient{conn: conn, id: uuid.NewString()}
	s.clients.Store(client.id, client)
	log.Printf("[webui] client connected: %s", client.id)

	defer func() {
		s.clients.Delete(client.id)
		conn.CloseNow()
		log.Printf("[webui] client disconnected: %s", client.id)
	}()

	snap := s.dash.Snapshot(r.Context())
	if data, err := json.Marshal(wsMessage{Type: "snapshot", Snapshot: &snap}); err == nil {
		if err := s.write(client, data); err != nil {
			return
		}
	}

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "refresh" {
			s.Broadcast(s.dash.Refresh(r.Context()))
		}
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dash.Snapshot(r.Context()))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap := s.dash.Refresh(r.Context())
	s.Broadcast(snap)
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Settings())
}

// handlePutSettings accepts a partial body; omitted fields keep their
// current value.
func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	in := s.settings.Settings()
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode settings: %w", err))
		return
	}
	if err := s.validate.Struct(in); err != nil {
		if verr := in.Validate(); verr != nil {
			err = verr
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	out := s.settings.Apply(in)
	s.broadcast(wsMessage{Type: "settings", Settings: &out})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.dash.Snapshot(r.Context())
	name := fmt.Sprintf("wamonitor-%s.xlsx", snap.GeneratedAt.Format("20060102-150405"))

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := export.Write(w, snap); err != nil {
		log.Printf("[webui] export error: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[webui] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
