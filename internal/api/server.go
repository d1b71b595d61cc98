package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/logbuf"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/internal/store"
	"github.com/dhruvladani04/Agile-Sprint-Guardian/pkg/protocol"
)

const announceTimeout = 15 * time.Second

// Generator runs the ticket pipeline.
type Generator interface {
	Run(ctx context.Context, brainDump, projectContext string) (*protocol.Trace, error)
}

// Announcer publishes newly generated tickets.
type Announcer interface {
	Announce(ctx context.Context, t *protocol.Ticket) error
}

// LogQuerier serves recent daemon logs.
type LogQuerier interface {
	Query(f logbuf.Filter) []protocol.LogEntry
}

// Config holds API server configuration.
type Config struct {
	Host      string
	Port      int
	Key       string // API key for Bearer auth
	StaticDir string // served at / when set
	Logs      LogQuerier
}

// Server is the ticket REST API server.
type Server struct {
	store     store.Store
	gen       Generator
	announcer Announcer
	cfg       Config
	logger    *slog.Logger
	srv       *http.Server
}

// NewServer creates a new API server. announcer may be nil.
func NewServer(st store.Store, gen Generator, cfg Config, logger *slog.Logger, announcer Announcer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:     st,
		gen:       gen,
		announcer: announcer,
		cfg:       cfg,
		logger:    logger,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/generate", s.requireAuth(s.handleGenerate))
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("DELETE /api/tickets/{summary}", s.requireAuth(s.handleDeleteTicket))
	mux.HandleFunc("GET /api/traces/{summary}", s.requireAuth(s.handleGetTrace))
	mux.HandleFunc("GET /api/context", s.requireAuth(s.handleGetContext))
	mux.HandleFunc("POST /api/context", s.requireAuth(s.handleSaveContext))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req protocol.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.BrainDump) == "" {
		writeError(w, http.StatusBadRequest, "brain_dump is required")
		return
	}

	doc, err := s.store.GetContext()
	if err != nil {
		s.logger.Warn("context unavailable, generating without it", "error", err)
	}

	started := time.Now()
	tr, err := s.gen.Run(r.Context(), req.BrainDump, doc.Content)
	if err != nil {
		s.logger.Error("ticket generation failed", "error", err, "duration", time.Since(started))
		writeError(w, http.StatusInternalServerError, "ticket generation failed: "+err.Error())
		return
	}
	if err := s.store.SaveGenerated(tr.FinalTicket, tr); err != nil {
		s.logger.Error("failed to save ticket", "summary", tr.FinalTicket.Summary, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("ticket saved",
		"summary", tr.FinalTicket.Summary,
		"id", tr.FinalTicket.ID,
		"duration", time.Since(started),
	)

	if s.announcer != nil {
		t := *tr.FinalTicket
		go s.announce(context.WithoutCancel(r.Context()), &t)
	}

	writeJSON(w, http.StatusOK, protocol.GenerateResult{Ticket: *tr.FinalTicket, Trace: tr})
}

func (s *Server) announce(ctx context.Context, t *protocol.Ticket) {
	ctx, cancel := context.WithTimeout(ctx, announceTimeout)
	defer cancel()
	if err := s.announcer.Announce(ctx, t); err != nil {
		s.logger.Warn("ticket announcement failed", "summary", t.Summary, "error", err)
	}
}

func (s *Server) handleListTickets(w http.ResponseWriter, _ *http.Request) {
	tickets, err := s.store.ListTickets()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tickets == nil {
		tickets = []*protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	summary := r.PathValue("summary")
	if err := s.store.DeleteTicket(summary); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("ticket deleted", "summary", summary)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Ticket deleted successfully"})
}

func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	tr, err := s.store.GetTrace(r.PathValue("summary"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trace not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleGetContext(w http.ResponseWriter, _ *http.Request) {
	doc, err := s.store.GetContext()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSaveContext(w http.ResponseWriter, r *http.Request) {
	var doc protocol.ContextDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := s.store.SaveContext(doc); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("context saved", "content_len", len(doc.Content))
	writeJSON(w, http.StatusOK, doc)
}

// handleGetLogs returns recent log records, oldest first. Query params:
// level (min level, default info), since (RFC 3339 or unix millis),
// limit (default 200) and q (substring).
func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Logs == nil {
		writeJSON(w, http.StatusOK, []protocol.LogEntry{})
		return
	}
	q := r.URL.Query()

	f := logbuf.Filter{Limit: 200, Contains: q.Get("q")}
	if l := q.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if lvl := q.Get("level"); lvl != "" {
		f.MinLevel = logbuf.ParseLevel(lvl)
	}
	if since := q.Get("since"); since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			f.Since = t
		} else if ms, err := strconv.ParseInt(since, 10, 64); err == nil {
			f.Since = time.UnixMilli(ms)
		} else {
			writeError(w, http.StatusBadRequest, "invalid since")
			return
		}
	}

	writeJSON(w, http.StatusOK, s.cfg.Logs.Query(f))
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
