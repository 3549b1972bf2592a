// Package server exposes artifact storage and oblivious matching over HTTP.
//
// Clients upload their encrypted artifacts and manifest, then request a
// match by manifest handle. With a queue configured the match is submitted
// as a job and picked up by workers; otherwise it runs in the request.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/internal/bundle"
	"github.com/luxfi/ohlg/internal/queue"
	"github.com/luxfi/ohlg/internal/storage"
)

// Config holds server configuration
type Config struct {
	Address string
	// Workers is the number of gate evaluators used for inline matches.
	Workers int
	// MaxArtifactMB caps uploaded artifacts.
	MaxArtifactMB int64
}

// Server serves artifacts and match requests.
type Server struct {
	cfg     Config
	store   storage.Storage
	queue   queue.Queue
	gadgets *ohlg.GadgetCache
	log     *zap.Logger
	// inline bounds concurrent in-request matches.
	inline chan struct{}
}

// New creates a server. q may be nil, in which case matches run inline.
func New(cfg Config, store storage.Storage, q queue.Queue, log *zap.Logger) *Server {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxArtifactMB < 1 {
		cfg.MaxArtifactMB = 512
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:     cfg,
		store:   store,
		queue:   q,
		gadgets: ohlg.NewGadgetCache(),
		log:     log,
		inline:  make(chan struct{}, 1),
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /artifacts", s.handleStore)
	mux.HandleFunc("GET /artifacts/{handle}", s.handleLoad)

	mux.HandleFunc("POST /match", s.handleMatch)
	mux.HandleFunc("GET /jobs/{id}", s.handleJob)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// httpStatus maps errors to response codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, queue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidHandle),
		errors.Is(err, bundle.ErrIncomplete),
		errors.Is(err, bundle.ErrMalformedManifest),
		errors.Is(err, ohlg.ErrParameterMismatch),
		errors.Is(err, ohlg.ErrUnknownParameters),
		errors.Is(err, ohlg.ErrInvalidQuery),
		errors.Is(err, ohlg.ErrCascadeDesync):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrStorageFull):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := httpStatus(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"queued":  s.queue != nil,
		"workers": s.cfg.Workers,
		"params":  ohlg.ParameterSetNames(),
	})
}

// HandleResponse carries a stored artifact handle.
type HandleResponse struct {
	Handle storage.Handle `json:"handle"`
}

func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxArtifactMB<<20))
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	h, err := s.store.Store(r.Context(), data)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, HandleResponse{Handle: h})
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	h := storage.Handle(r.PathValue("handle"))
	if err := h.Validate(); err != nil {
		s.fail(w, err)
		return
	}
	data, err := s.store.Load(r.Context(), h)
	if err != nil {
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

// MatchRequest names the manifest of a stored match request.
type MatchRequest struct {
	Manifest storage.Handle `json:"manifest"`
}

// MatchResponse reports a submitted job or a finished match.
type MatchResponse struct {
	Job           string         `json:"job,omitempty"`
	Result        storage.Handle `json:"result,omitempty"`
	GatesConsumed int            `json:"gates_consumed,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := req.Manifest.Validate(); err != nil {
		s.fail(w, err)
		return
	}
	if _, err := bundle.LoadManifest(r.Context(), s.store, req.Manifest); err != nil {
		s.fail(w, err)
		return
	}

	if s.queue != nil {
		job := queue.NewJob(string(req.Manifest))
		if err := s.queue.Push(r.Context(), job); err != nil {
			s.fail(w, err)
			return
		}
		s.log.Info("job queued", zap.String("job", job.ID))
		writeJSON(w, http.StatusAccepted, MatchResponse{Job: job.ID})
		return
	}

	select {
	case s.inline <- struct{}{}:
		defer func() { <-s.inline }()
	case <-r.Context().Done():
		return
	}

	start := time.Now()
	rh, res, err := bundle.Match(r.Context(), s.store, req.Manifest, s.gadgets,
		ohlg.WithWorkers(s.cfg.Workers), ohlg.WithLogger(s.log))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.log.Info("match complete",
		zap.String("result", string(rh)),
		zap.Int("gates", res.GatesConsumed),
		zap.Duration("elapsed", time.Since(start)))
	writeJSON(w, http.StatusOK, MatchResponse{Result: rh, GatesConsumed: res.GatesConsumed})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		http.Error(w, "no job queue configured", http.StatusNotFound)
		return
	}
	job, err := s.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
