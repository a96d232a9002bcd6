package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/daideguchi/dental-ai-counseling-system/internal/config"
	"github.com/daideguchi/dental-ai-counseling-system/internal/pipeline"
	"github.com/daideguchi/dental-ai-counseling-system/internal/store"
	"github.com/daideguchi/dental-ai-counseling-system/internal/worker"
)

// Server exposes the pipeline over HTTP. Records and the session log are
// optional; with neither configured the server is analysis-only.
type Server struct {
	processor *pipeline.Processor
	records   *store.RecordStore
	sessions  *store.JSONLWriter
	cfg       *config.Config
}

// New builds the HTTP surface. records and sessions may be nil.
func New(processor *pipeline.Processor, records *store.RecordStore, sessions *store.JSONLWriter, cfg *config.Config) *Server {
	return &Server{
		processor: processor,
		records:   records,
		sessions:  sessions,
		cfg:       cfg,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/analyze", s.handleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/api/identify", s.handleIdentify).Methods(http.MethodPost)
	r.HandleFunc("/api/soap", s.handleSOAP).Methods(http.MethodPost)
	r.HandleFunc("/api/quality", s.handleQuality).Methods(http.MethodPost)
	r.HandleFunc("/api/records", s.handleListRecords).Methods(http.MethodGet)
	r.HandleFunc("/api/records/{id}", s.handleGetRecord).Methods(http.MethodGet)
	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Address,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout(),
		WriteTimeout: s.cfg.Server.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.WriteTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

type analyzeRequest struct {
	Text     string `json:"text"`
	FileName string `json:"file_name"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"model":  s.cfg.AI.Model,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readTranscript(w, r)
	if !ok {
		return
	}

	res, err := s.processor.Process(r.Context(), req.Text, req.FileName)
	if err != nil {
		writePipelineError(w, err)
		return
	}

	if s.records != nil {
		if err := s.records.Put(res); err != nil {
			slog.Error("record not saved", "session", res.SessionID, "error", err)
		}
	}
	if s.sessions != nil {
		if err := s.sessions.Append(res); err != nil {
			slog.Error("session log append failed", "session", res.SessionID, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readTranscript(w, r)
	if !ok {
		return
	}
	id, err := s.processor.Identify(r.Context(), req.Text, req.FileName)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleSOAP(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readTranscript(w, r)
	if !ok {
		return
	}
	res, err := s.processor.Process(r.Context(), req.Text, req.FileName)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.SOAP)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	req, ok := s.readTranscript(w, r)
	if !ok {
		return
	}
	res, err := s.processor.Process(r.Context(), req.Text, req.FileName)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Quality)
}

func (s *Server) handleListRecords(w http.ResponseWriter, _ *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "record store not configured")
		return
	}
	list, err := s.records.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*pipeline.Result{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if s.records == nil {
		writeError(w, http.StatusNotImplemented, "record store not configured")
		return
	}
	id := mux.Vars(r)["id"]
	res, err := s.records.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// readTranscript decodes the request and applies the input guards before the
// pipeline sees the text.
func (s *Server) readTranscript(w http.ResponseWriter, r *http.Request) (analyzeRequest, bool) {
	var req analyzeRequest
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Worker.MaxFileBytes+4096)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if req.FileName == "" {
		req.FileName = "upload.txt"
	}
	if err := worker.CheckContent(req.Text, s.cfg.Worker); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func writePipelineError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrEmptyInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encoding failed", "error", err)
	}
}
