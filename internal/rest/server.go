// Package rest exposes the analyzer and training simulation to host
// collaborators over HTTP. The core packages never depend on it.
package rest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/reveal-labs/reveal/internal/ai"
	"github.com/reveal-labs/reveal/internal/analysis"
	"github.com/reveal-labs/reveal/internal/notify"
	"github.com/reveal-labs/reveal/internal/resources"
	"github.com/reveal-labs/reveal/internal/simulation"
	"go.uber.org/zap"
)

// maxRequestBody caps inbound JSON bodies.
const maxRequestBody = 64 << 10

// notifyTimeout bounds the detached background delivery of a parent alert.
const notifyTimeout = 30 * time.Second

// Analyzer is the classification facade the server exposes.
type Analyzer interface {
	Analyze(ctx context.Context, text string) *analysis.Result
}

// StatusChecker probes the model service.
type StatusChecker interface {
	CheckStatus(ctx context.Context) (*ai.ServiceStatus, error)
}

// Notifier receives analysis results for possible parent alerting.
type Notifier interface {
	NotifyIfUnusual(ctx context.Context, result *analysis.Result, event notify.EventContext)
}

// Server wires the HTTP surface over the core components.
type Server struct {
	analyzer Analyzer
	checker  StatusChecker
	notifier Notifier
	engine   *simulation.Engine
	tracker  *simulation.ProgressTracker
	logger   *zap.Logger
}

// NewServer creates the REST server. The notifier may be nil when parent
// alerting is not configured.
func NewServer(
	analyzer Analyzer, checker StatusChecker, notifier Notifier,
	engine *simulation.Engine, tracker *simulation.ProgressTracker, logger *zap.Logger,
) *Server {
	return &Server{
		analyzer: analyzer,
		checker:  checker,
		notifier: notifier,
		engine:   engine,
		tracker:  tracker,
		logger:   logger.Named("rest"),
	}
}

// Router builds the chi router with all routes registered.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/status", s.handleStatus)
		r.Get("/resources", s.handleResources)
		r.Get("/progress", s.handleProgress)

		r.Route("/simulation", func(r chi.Router) {
			r.Post("/start", s.handleSimulationStart)
			r.Post("/restart", s.handleSimulationRestart)
			r.Post("/next", s.handleSimulationNext)
			r.Post("/message", s.handleSimulationMessage)
		})
	})

	return r
}

type analyzeRequest struct {
	Text    string `json:"text"`
	PageURL string `json:"page_url"`
	Trigger string `json:"trigger"`
}

// handleAnalyze classifies the submitted text and kicks off parent alerting
// in the background. The response never waits on delivery.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	result := s.analyzer.Analyze(r.Context(), req.Text)

	if s.notifier != nil {
		event := notify.EventContext{
			PageURL: req.PageURL,
			Trigger: req.Trigger,
			Snippet: req.Text,
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()

			s.notifier.NotifyIfUnusual(ctx, result, event)
		}()
	}

	s.respond(w, http.StatusOK, result)
}

type statusResponse struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.checker.CheckStatus(r.Context())
	if err != nil {
		s.logger.Debug("Model status probe failed", zap.Error(err))
		s.respond(w, http.StatusOK, statusResponse{Available: false})

		return
	}

	s.respond(w, http.StatusOK, statusResponse{Available: status.Available, Version: status.Version})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, resources.ForMode(modeParam(r)))
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	mode := modeParam(r)
	if r.URL.Query().Get("mode") == "" {
		mode = s.engine.Mode()
	}

	s.respond(w, http.StatusOK, s.tracker.Snapshot(mode))
}

type simulationStartRequest struct {
	Silent bool   `json:"silent"`
	Mode   string `json:"mode"`
}

type scenarioResponse struct {
	Scenario *simulation.Scenario `json:"scenario"`
	History  []ai.ChatMessage     `json:"history"`
}

func (s *Server) handleSimulationStart(w http.ResponseWriter, r *http.Request) {
	var req simulationStartRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Mode != "" {
		s.engine.SetMode(parseMode(req.Mode))
	}

	scenario := s.engine.Start(req.Silent)
	s.respond(w, http.StatusOK, scenarioResponse{Scenario: scenario, History: s.engine.History()})
}

func (s *Server) handleSimulationRestart(w http.ResponseWriter, _ *http.Request) {
	scenario := s.engine.Restart()
	s.respond(w, http.StatusOK, scenarioResponse{Scenario: scenario, History: s.engine.History()})
}

func (s *Server) handleSimulationNext(w http.ResponseWriter, _ *http.Request) {
	scenario := s.engine.NextScenario()
	s.respond(w, http.StatusOK, scenarioResponse{Scenario: scenario, History: s.engine.History()})
}

type simulationMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSimulationMessage(w http.ResponseWriter, r *http.Request) {
	var req simulationMessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	turn := s.engine.HandleUserInput(r.Context(), req.Text)
	s.respond(w, http.StatusOK, turn)
}

// decode reads a JSON body into dst, writing a 400 on failure. An empty body
// decodes into the zero value.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}

	if len(body) == 0 {
		return true
	}

	if err := sonic.Unmarshal(body, dst); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}

	return true
}

func (s *Server) respond(w http.ResponseWriter, status int, payload any) {
	body, err := sonic.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respond(w, status, map[string]string{"error": message})
}

func modeParam(r *http.Request) ai.Mode {
	return parseMode(r.URL.Query().Get("mode"))
}

func parseMode(raw string) ai.Mode {
	if raw == string(ai.ModeTutor) {
		return ai.ModeTutor
	}

	return ai.ModeLearner
}
