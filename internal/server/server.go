// Package server exposes the search engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/copyfinder/internal/aggregate"
	"github.com/hyperifyio/copyfinder/internal/pipeline"
	"github.com/hyperifyio/copyfinder/internal/rank"
)

// Searcher runs one search request.
type Searcher interface {
	Run(ctx context.Context, req pipeline.Request) pipeline.Response
	Similarity() func(a, b string) int
}

// Options configure the HTTP surface.
type Options struct {
	AllowedOrigins []string
	// RequestTimeout bounds a whole request. Zero means 30s.
	RequestTimeout time.Duration
	// MaxBodyBytes caps the request body. Zero means 64 KiB.
	MaxBodyBytes int64
	// RankLimit and PerAuthor are passed to rank.Rank.
	RankLimit int
	PerAuthor int
}

// Server is the HTTP front of the engine.
type Server struct {
	engine   Searcher
	opt      Options
	validate *validator.Validate
}

// New builds a Server.
func New(engine Searcher, opt Options) *Server {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 30 * time.Second
	}
	if opt.MaxBodyBytes <= 0 {
		opt.MaxBodyBytes = 64 << 10
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names in field errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Server{engine: engine, opt: opt, validate: v}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	origins := s.opt.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(middleware.Timeout(s.opt.RequestTimeout)).Post("/api/search", s.handleSearch)
	return r
}

type searchRequest struct {
	Query           string `json:"query" validate:"max=2000"`
	QueryInputType  string `json:"queryInputType" validate:"omitempty,oneof=text url"`
	ExcludeTweetID  string `json:"excludeTweetId" validate:"omitempty,numeric,max=25"`
	ExcludeUsername string `json:"excludeUsername" validate:"omitempty,max=51"`
	ExcludeContent  string `json:"excludeContent" validate:"omitempty,max=4000"`
}

// SearchResponse is the ranked body returned by /api/search.
type SearchResponse struct {
	Results        []rank.Scored             `json:"results"`
	SelfDuplicates []aggregate.SelfDuplicate `json:"selfDuplicates"`
	Instance       string                    `json:"instance,omitempty"`
	Meta           pipeline.Meta             `json:"meta"`
	Error          string                    `json:"error,omitempty"`
	RequestID      string                    `json:"requestId,omitempty"`
}

type errorResponse struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetReqID(r.Context())
	var in searchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opt.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", RequestID: reqID})
		return
	}
	if err := s.validate.Struct(in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request", Fields: fieldErrors(err), RequestID: reqID})
		return
	}

	status, out := s.Search(r.Context(), pipeline.Request{
		Query:           in.Query,
		QueryInputType:  in.QueryInputType,
		ExcludeTweetID:  in.ExcludeTweetID,
		ExcludeUsername: in.ExcludeUsername,
		ExcludeContent:  in.ExcludeContent,
	})
	out.RequestID = reqID
	writeJSON(w, status, out)
}

// Search runs req and ranks the external results. The returned status is
// never zero.
func (s *Server) Search(ctx context.Context, req pipeline.Request) (int, SearchResponse) {
	resp := s.engine.Run(ctx, req)
	out := SearchResponse{
		Results:        rank.Rank(req.Query, resp.Body.Results, s.engine.Similarity(), rank.Options{Limit: s.opt.RankLimit, PerAuthor: s.opt.PerAuthor}),
		SelfDuplicates: resp.Body.SelfDuplicates,
		Instance:       resp.Body.Instance,
		Meta:           resp.Body.Meta,
		Error:          resp.Body.Error,
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	return status, out
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}

// requestID propagates X-Request-ID or mints a UUID, and stores it where
// middleware.GetReqID finds it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
