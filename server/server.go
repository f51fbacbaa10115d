package server

import (
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ai_demo_generator/publisher"
)

//go:embed web
var embeddedStatic embed.FS

// Server serves the demo viewer and the generated demos of a workspace.
type Server struct {
	workspace *publisher.Workspace
	logger    *zap.Logger
	staticFS  http.Handler
	demosFS   http.Handler
}

func New(workspace *publisher.Workspace, logger *zap.Logger) (*Server, error) {
	if workspace == nil {
		return nil, errors.New("workspace required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sub, err := fs.Sub(embeddedStatic, "web")
	if err != nil {
		return nil, err
	}

	return &Server{
		workspace: workspace,
		logger:    logger,
		staticFS:  http.FileServer(http.FS(sub)),
		demosFS:   http.StripPrefix("/demos/", http.FileServer(http.Dir(workspace.DemosDir()))),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /demos.json", s.handleManifest)
	mux.Handle("GET /demos/", s.demosFS)
	mux.HandleFunc("GET /api/rankings", s.handleRankings)
	mux.HandleFunc("GET /api/transcript/{demo}/{model...}", s.handleTranscript)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("GET /", s.staticFS)
	return s.logMiddleware(mux)
}

// --- Handlers ---

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	demos, err := s.workspace.ScanManifest(s.workspace.Root())
	if err != nil {
		s.logger.Error("manifest scan failed", zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, demos)
}

type rankingsResp struct {
	Demo     string             `json:"demo"`
	Model    string             `json:"model"`
	Rankings publisher.Rankings `json:"rankings"`
}

func (s *Server) handleRankings(w http.ResponseWriter, r *http.Request) {
	demo := r.URL.Query().Get("demo")
	model := r.URL.Query().Get("model")
	if demo == "" || model == "" {
		http.Error(w, "demo and model are required", http.StatusBadRequest)
		return
	}
	demos, err := s.workspace.ScanManifest(s.workspace.Root())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	entry, ok := publisher.FindDemo(demos, demo)
	if !ok {
		http.Error(w, "demo not found", http.StatusNotFound)
		return
	}
	writeJSON(w, rankingsResp{
		Demo:     demo,
		Model:    model,
		Rankings: publisher.ComputeRankings(entry.Models, model),
	})
}

type transcriptResp struct {
	Demo     string `json:"demo"`
	Model    string `json:"model"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	demo, model := r.PathValue("demo"), r.PathValue("model")
	md, err := s.workspace.LoadTranscript(demo, model)
	switch {
	case errors.Is(err, publisher.ErrInvalidName):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, publisher.ErrDemoNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	html, err := publisher.RenderMarkdown(md)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, transcriptResp{Demo: demo, Model: model, Markdown: md, HTML: html})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		observeHTTP(r.Method, route, rec.status, elapsed)
		s.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", elapsed),
		)
	})
}
