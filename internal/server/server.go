// Package server exposes a store over the review HTTP endpoints so the TUI can
// be exercised without the production admin backend.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chat-review/internal/review"
	"chat-review/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxManualBody = 1 << 20

// Pager is the read side of the store used by the review-data endpoint.
type Pager interface {
	Query(ctx context.Context, q review.Query) (review.Page, error)
}

// Responder answers a manual workspace message.
type Responder interface {
	Respond(ctx context.Context, message string) (string, error)
}

type ResponderFunc func(ctx context.Context, message string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, message string) (string, error) {
	return f(ctx, message)
}

type Options struct {
	// ContextPath prefixes every route, mirroring a servlet context.
	ContextPath string
	// Token, when set, is required as a bearer credential on review routes.
	Token     string
	Responder Responder
	Logger    *slog.Logger
}

type Server struct {
	pager     Pager
	responder Responder
	token     string
	logger    *slog.Logger
}

// New builds the routed handler.
func New(pager Pager, opts Options) http.Handler {
	s := &Server{
		pager:     pager,
		responder: opts.Responder,
		token:     strings.TrimSpace(opts.Token),
		logger:    opts.Logger,
	}
	if s.responder == nil {
		s.responder = EchoResponder{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	routes := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/admin/widgets/view/review-data", s.handleReviewData)
			r.Post("/admin/widgets/review/manual-message", s.handleManualMessage)
		})
	}
	if cp := strings.Trim(strings.TrimSpace(opts.ContextPath), "/"); cp != "" {
		r.Route("/"+cp, routes)
	} else {
		routes(r)
	}
	return r
}

type reviewDataResponse struct {
	Status      string             `json:"status"`
	Rows        []review.Row       `json:"rows"`
	Page        int                `json:"page"`
	TotalPages  int                `json:"totalPages"`
	TotalRows   int                `json:"totalRows"`
	SearchTerms review.SearchTerms `json:"searchTerms"`
}

func (s *Server) handleReviewData(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	selectionID := strings.TrimSpace(params.Get("selectionId"))
	if selectionID == "" {
		writeError(w, http.StatusBadRequest, "selectionId is required.")
		return
	}

	q := store.Normalize(review.Query{
		SelectionID: selectionID,
		Limit:       intParam(params.Get("limit"), review.DefaultLimit),
		Page:        intParam(params.Get("page"), 1),
		SortColumn:  params.Get("sortColumn"),
		SortDir:     review.SortDir(params.Get("sortDir")),
		Search:      params.Get("search"),
	})

	page, err := s.pager.Query(r.Context(), q)
	if errors.Is(err, store.ErrSelectionNotFound) {
		writeError(w, http.StatusNotFound, "Selection not found.")
		return
	}
	if err != nil {
		s.logger.Error("review data query failed", "selection_id", selectionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Unable to load selection.")
		return
	}

	rows := page.Rows
	if rows == nil {
		rows = []review.Row{}
	}
	writeJSON(w, http.StatusOK, reviewDataResponse{
		Status:      "ok",
		Rows:        rows,
		Page:        page.Page,
		TotalPages:  page.TotalPages,
		TotalRows:   page.TotalRows,
		SearchTerms: page.SearchTerms,
	})
}

func (s *Server) handleManualMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxManualBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		writeError(w, http.StatusBadRequest, "message is required.")
		return
	}

	reply, err := s.responder.Respond(r.Context(), msg)
	if err != nil {
		s.logger.Error("manual message failed", "chars", len(msg), "error", err)
		writeError(w, http.StatusBadGateway, "Unable to process message.")
		return
	}
	s.logger.Info("manual message answered", "chars", len(msg), "reply_chars", len(reply))
	writeJSON(w, http.StatusOK, map[string]string{"textResponse": reply})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, "Unauthorized.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func intParam(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "message": message})
}
