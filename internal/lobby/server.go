package lobby

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/retroarch-netplay/netplay-infra/internal/netlog"
)

// Server is the lobby's HTTP registry: POST /add, GET /list, GET /tunnel,
// plus an ambient GET /healthz for process supervisors.
type Server struct {
	router     *mux.Router
	server     *http.Server
	registry   *Registry
	mitmPath   string
	bind       string
	port       int
}

// NewServer builds a lobby Server bound to bind:port, backed by a fresh
// Registry with the given room TTL and capacity, resolving MITM entries
// from mitmConfigPath on every request.
func NewServer(bind string, port int, roomTTL time.Duration, maxRooms int, mitmConfigPath string) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		registry: NewRegistry(roomTTL, maxRooms),
		mitmPath: mitmConfigPath,
		bind:     bind,
		port:     port,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(corsMiddleware)
	s.router.Use(loggingMiddleware)

	s.router.HandleFunc("/add", s.handleAdd).Methods(http.MethodPost)
	s.router.HandleFunc("/list", s.handleList).Methods(http.MethodGet)
	s.router.HandleFunc("/tunnel", s.handleTunnel).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	mitm := LoadMITMConfig(s.mitmPath)
	clientIP := extractClientIP(r)
	fields := ExtractFields(r.Form, clientIP, mitm)

	roomID, err := s.registry.Upsert(fields)
	if err != nil {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "Server Full\n")
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, fields.PlainResponse(roomID))
}

type listRecord struct {
	Fields Fields `json:"fields"`
}

type listEnvelope struct {
	Records []listRecord `json:"records"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	rooms := s.registry.List()
	records := make([]listRecord, 0, len(rooms))
	for _, f := range rooms {
		records = append(records, listRecord{Fields: f})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(listEnvelope{Records: records})
}

func (s *Server) handleTunnel(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	mitm := LoadMITMConfig(s.mitmPath)
	entry := mitm[name]

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "tunnel_addr=%s\ntunnel_port=%d\n", entry.Addr, entry.Port)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok\n")
}

// Start runs the HTTP server. Blocks until Shutdown is called or the
// listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.bind, s.port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	netlog.Printf("lobby: listening on %s", addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	netlog.Printf("lobby: shutting down")
	return s.server.Shutdown(ctx)
}

// RoomCount exposes the registry's current size, for tests.
func (s *Server) RoomCount() int {
	return s.registry.Count()
}
