package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"fastslice/internal/api"
	"fastslice/internal/config"
	"fastslice/internal/logging"
	"fastslice/internal/pipeline"
	"fastslice/internal/services"
)

const (
	maxRequestBody  = 1 << 20
	defaultRunLimit = 50
)

type apiServer struct {
	bind   string
	cfg    *config.Config
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.API.Bind),
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// No WriteTimeout: a batch response is written only after every range is encoded.
		IdleTimeout: 60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/slice", s.requireToken(s.handleSlice))
	mux.HandleFunc("/api/status", s.requireToken(s.handleStatus))
	mux.HandleFunc("/api/runs", s.requireToken(s.handleRuns))
	mux.HandleFunc("/api/runs/", s.requireToken(s.handleRun))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}

func (s *apiServer) handleSlice(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body api.SliceRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := decoder.Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	rngs, err := body.ToTimeRanges()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, api.FromResult(pipeline.Result{}, "", err))
		return
	}

	req := pipeline.RequestDefaults(s.cfg, pipeline.Request{
		VideoPath:    strings.TrimSpace(body.Video),
		SubtitlePath: strings.TrimSpace(body.Subs),
		Ranges:       rngs,
		OutputDir:    strings.TrimSpace(body.OutputDir),
		Source:       "api",
	})
	req.Overwrite = true
	if body.CheckDuration != nil {
		req.CheckDuration = *body.CheckDuration
	}
	if body.UseHWAccel != nil {
		req.UseHWAccel = *body.UseHWAccel
	}

	var captured bytes.Buffer
	logger := s.logger
	if handler, herr := logging.NewWriterHandler(&captured, "console", s.cfg.Logging.Level); herr == nil {
		logger = logging.TeeLogger(s.logger, handler)
	}

	result, err := s.daemon.RunBatch(r.Context(), req, logger)
	if errors.Is(err, ErrBusy) {
		s.writeJSON(w, http.StatusConflict, api.FromResult(result, req.OutputDir, err))
		return
	}
	resp := api.FromResult(result, req.OutputDir, err)
	resp.Log = splitLog(captured.String())
	if err != nil {
		s.logger.Warn("api batch failed",
			logging.String(logging.FieldRunID, result.RunID),
			logging.Error(err),
			logging.String(logging.FieldEventType, "api_batch_failed"),
			logging.String(logging.FieldErrorHint, errorHint(err)),
		)
	}
	s.writeJSON(w, api.HTTPStatus(err), resp)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.ServerStatus{
		Running:       status.Running,
		PID:           os.Getpid(),
		Busy:          status.Busy,
		Encoder:       status.Encoder,
		OutputDir:     status.OutputDir,
		HistoryDBPath: status.HistoryDBPath,
		LockFilePath:  status.LockFilePath,
		Dependencies:  api.FromDependencies(status.Dependencies),
	})
}

func (s *apiServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := defaultRunLimit
	if value := strings.TrimSpace(r.URL.Query().Get("limit")); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	runs, err := s.daemon.Runs(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := api.RunListResponse{Runs: make([]api.RunSummary, 0, len(runs))}
	for _, run := range runs {
		out.Runs = append(out.Runs, api.FromRun(run, nil))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	run, artifacts, err := s.daemon.Run(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromRun(*run, artifacts))
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func splitLog(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, services.ErrToolMissing):
		return "install ffmpeg or set [tools] in the config"
	case errors.Is(err, services.ErrToolExecution):
		return "inspect the captured ffmpeg stderr in the response log"
	case services.IsValidation(err):
		return "correct the request and retry"
	default:
		return ""
	}
}
