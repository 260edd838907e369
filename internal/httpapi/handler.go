// Package httpapi exposes the directory as a JSON HTTP API.
package httpapi

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/cohort"
	"github.com/agentic-research/rollcall/internal/directory"
	"github.com/agentic-research/rollcall/internal/loader"
	"github.com/agentic-research/rollcall/internal/paginate"
)

// Service is the query surface the handler serves.
type Service interface {
	Search(ctx context.Context, c directory.Criteria, page, pageSize int) (catalog.Page, error)
	Facets(ctx context.Context) (directory.Facets, error)
	Student(ctx context.Context, roll string) (catalog.Profile, error)
	Relatives(ctx context.Context, roll string) (directory.Relatives, error)
	Refresh(ctx context.Context) (*loader.Dataset, error)
}

type Handler struct {
	svc     Service
	logger  *slog.Logger
	metrics prometheus.Gatherer
}

// New creates a Handler. A nil gatherer leaves /metrics unregistered.
func New(svc Service, logger *slog.Logger, gatherer prometheus.Gatherer) *Handler {
	return &Handler{svc: svc, logger: logger, metrics: gatherer}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", h.handleHealth)
	if h.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.metrics, promhttp.HandlerOpts{}))
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/students", h.handleSearch)
		r.Get("/students/{id}", h.handleStudent)
		r.Get("/students/{id}/relatives", h.handleRelatives)
		r.Get("/facets", h.handleFacets)
		r.Post("/refresh", h.handleRefresh)
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type searchResponse struct {
	Total      int                `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
	Students   []directory.Entity `json:"students"`
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c, err := parseCriteria(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}
	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "page: "+err.Error(), "")
		return
	}
	size := -1
	switch v := q.Get("page_size"); v {
	case "":
	case "all":
		size = paginate.All
	default:
		size, err = strconv.Atoi(v)
		if err != nil || size < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("page_size: invalid value %q", v), "")
			return
		}
	}

	res, err := h.svc.Search(r.Context(), c, page, size)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Total:      res.Total,
		Page:       res.Number,
		PageSize:   res.Size,
		TotalPages: res.TotalPages,
		Students:   nonNil(res.Students),
	})
}

func (h *Handler) handleStudent(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Student(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) handleRelatives(w http.ResponseWriter, r *http.Request) {
	rel, err := h.svc.Relatives(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (h *Handler) handleFacets(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.Facets(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entities":  len(d.Entities),
		"loaded_at": d.LoadedAt.UTC().Format(time.RFC3339),
	})
}

// parseCriteria reads the filter parameters. Set parameters may be
// repeated or comma separated.
func parseCriteria(q map[string][]string) (directory.Criteria, error) {
	c := directory.Criteria{
		Query:       strings.TrimSpace(first(q["q"])),
		Departments: values(q["dept"]),
		Programs:    values(q["program"]),
		Halls:       values(q["hall"]),
		Genders:     values(q["gender"]),
		BloodGroups: values(q["blood_group"]),
		States:      values(q["state"]),
	}
	for _, v := range values(q["batch"]) {
		y, err := cohort.ParseYear(v)
		if err != nil {
			return directory.Criteria{}, fmt.Errorf("batch: %w", err)
		}
		c.BatchYears = append(c.BatchYears, y)
	}
	return c, nil
}

func values(raw []string) []string {
	var out []string
	for _, r := range raw {
		for _, v := range strings.Split(r, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func first(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", v)
	}
	return n, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type errorResponse struct {
	Error    string `json:"error"`
	Resource string `json:"resource,omitempty"`
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var le *loader.LoadError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error(), "")
	case errors.As(err, &le):
		h.logger.WarnContext(r.Context(), "directory unavailable", "resource", le.Resource, "error", err)
		writeError(w, http.StatusServiceUnavailable, "directory data unavailable", string(le.Resource))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "directory data not ready", "")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func writeError(w http.ResponseWriter, status int, msg, resource string) {
	writeJSON(w, status, errorResponse{Error: msg, Resource: resource})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // client went away
}
