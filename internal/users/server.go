package users

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/fluenthttp/fluenthttp/internal/logging"

	_ "modernc.org/sqlite" // SQLite driver
)

// Config configures a users Server.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":8080".
	ListenAddr string

	// DatabasePath is the SQLite database location. Usually sourced from the
	// USERSD_DB environment variable at startup.
	DatabasePath string

	Logger logging.Logger
}

// Server is the HTTP + WebSocket surface of the users service.
type Server struct {
	cfg      Config
	store    *Store
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
	db       *sql.DB
	feed     *changeFeed
}

// NewServer opens the database, runs migrations and wires the routes.
func NewServer(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	if cfg.DatabasePath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("opening users database: %w", err)
	}

	store, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating users store: %w", err)
	}

	r := chi.NewRouter()
	s := &Server{
		cfg:    cfg,
		store:  store,
		router: r,
		logger: logger,
		db:     db,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		feed: newChangeFeed(),
	}

	s.routes()
	return s, nil
}

// Store returns the underlying store for advanced use (tests, etc.).
func (s *Server) Store() *Store {
	return s.store
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.corsMiddleware)

	r.Options("/users", s.optionsHandler("GET, POST"))
	r.Options("/users/{id}", s.optionsHandler("GET, PUT, DELETE"))

	r.Get("/users", s.handleListUsers)
	r.Get("/users/{id}", s.handleGetUser)
	r.Post("/users", s.handleCreateUser)
	r.Put("/users/{id}", s.handleReplaceUser)
	r.Delete("/users/{id}", s.handleDeleteUser)

	// WebSocket change feed
	r.Get("/ws/users", s.handleWatchUsers)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fields := []logging.Field{
		{Key: "method", Value: r.Method},
		{Key: "path", Value: r.URL.Path},
	}

	if q := r.URL.Query(); len(q) > 0 {
		fields = append(fields, logging.Field{Key: "query", Value: q})
	}

	if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch) {
		if bodyBytes, err := io.ReadAll(r.Body); err == nil {
			fields = append(fields, logging.Field{Key: "body", Value: string(bodyBytes)})
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	s.logger.Info("http_request", fields...)

	s.router.ServeHTTP(w, r)
}

// Close shuts down the change feed and the database.
func (s *Server) Close() {
	if s.feed != nil {
		s.feed.close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming
	}
}

// --- JSON helpers ---

// writeJSON always encodes v, so a nil record becomes a JSON null body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- HTTP handlers ---

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	us, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Warn("listing users", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, us)
}

// Absent records answer 200 with a null body rather than 404. The original
// service behaved this way and clients depend on it.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := s.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		s.logger.Warn("getting user", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u, err := s.store.Create(r.Context(), in)
	if err != nil {
		s.logger.Warn("creating user", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("created user", logging.Field{Key: "id", Value: u.ID})
	s.feed.publish(ChangeEvent{Type: "created", User: u})
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleReplaceUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var in UserInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	u, err := s.store.Replace(r.Context(), id, in)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		s.logger.Warn("replacing user", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("replaced user", logging.Field{Key: "id", Value: id})
	s.feed.publish(ChangeEvent{Type: "replaced", User: u})
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := s.store.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		s.logger.Warn("deleting user", logging.Field{Key: "id", Value: id}, logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("deleted user", logging.Field{Key: "id", Value: id})
	s.feed.publish(ChangeEvent{Type: "deleted", User: u})
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleWatchUsers(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	sub := s.feed.subscribe()
	defer s.feed.unsubscribe(sub)

	s.logger.Info("watcher connected", logging.Field{Key: "remote", Value: r.RemoteAddr})

	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				// Assume client disconnected.
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
