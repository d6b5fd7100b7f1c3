package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/inventory"
	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
	logpkg "github.com/kailas-cloud/floatchat/internal/logger"
	"github.com/kailas-cloud/floatchat/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/floatchat/internal/usecase/health"
)

// Engine answers questions within sessions.
type Engine interface {
	Submit(ctx context.Context, sessionID, question string) (engine.Response, error)
	History(ctx context.Context, sessionID string) ([]domsession.Turn, error)
	Reset(ctx context.Context, sessionID string) error
}

// HealthChecker reports readiness of the engine's dependencies.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// SummaryProvider reports what data is loaded.
type SummaryProvider interface {
	Summary(ctx context.Context) (*inventory.Summary, error)
}

// Server implements the HTTP handlers.
type Server struct {
	engine   Engine
	health   HealthChecker
	summary  SummaryProvider
	validate *validator.Validate
}

// NewServer creates a new Server.
func NewServer(eng Engine, health HealthChecker, summary SummaryProvider) *Server {
	return &Server{
		engine:   eng,
		health:   health,
		summary:  summary,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Routes registers the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
	r.Get("/v1/summary", s.DataSummary)
	r.Post("/v1/sessions/{sessionID}/questions", s.SubmitQuestion)
	r.Get("/v1/sessions/{sessionID}/turns", s.ListTurns)
	r.Delete("/v1/sessions/{sessionID}", s.ResetSession)
}

// SubmitQuestion handles POST /v1/sessions/{sessionID}/questions.
func (s *Server) SubmitQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	var req QuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, validationMessage(err))
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.engine.Submit(ctx, sessionID, req.Question)
	setUsageHeaders(w, usage)
	if err != nil {
		s.handlePipelineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTurns handles GET /v1/sessions/{sessionID}/turns.
func (s *Server) ListTurns(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}

	turns, err := s.engine.History(r.Context(), sessionID)
	if err != nil {
		s.handlePipelineError(w, r, err)
		return
	}

	items := make([]TurnDigest, 0, len(turns))
	for i := range turns {
		items = append(items, turnToDigest(&turns[i]))
	}
	writeJSON(w, http.StatusOK, TurnListResponse{SessionID: sessionID, Turns: items})
}

// ResetSession handles DELETE /v1/sessions/{sessionID}.
func (s *Server) ResetSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := s.sessionID(w, r)
	if !ok {
		return
	}
	if err := s.engine.Reset(r.Context(), sessionID); err != nil {
		s.handlePipelineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DataSummary handles GET /v1/summary.
func (s *Server) DataSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary.Summary(r.Context())
	if err != nil {
		logpkg.FromContext(r.Context()).Error("Data summary failed", zap.Error(err))
		s.handlePipelineError(w, r, domain.NewPipelineError(err))
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(sum))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionID")
	if err := s.validate.Var(id, "required,max=128,printascii"); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "session id must be 1-128 printable ASCII characters")
		return "", false
	}
	return id, true
}

// statusByKind maps pipeline failure kinds to HTTP statuses.
var statusByKind = map[domain.ErrorKind]int{
	domain.KindIntentExtraction:     http.StatusUnprocessableEntity,
	domain.KindUnsupportedIntent:    http.StatusUnprocessableEntity,
	domain.KindExecutionFailure:     http.StatusBadGateway,
	domain.KindRetrievalUnavailable: http.StatusServiceUnavailable,
	domain.KindValidationRejected:   http.StatusInternalServerError,
	domain.KindInternal:             http.StatusInternalServerError,
	domain.KindSessionExpired:       http.StatusGone,
	domain.KindInvalidRequest:       http.StatusBadRequest,
}

// handlePipelineError writes the kind and the user-safe message. Details stay in the logs.
func (s *Server) handlePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *domain.PipelineError
	if !errors.As(err, &pe) {
		// pipeline errors are logged by the engine
		logpkg.FromContext(r.Context()).Error("Unclassified error", zap.Error(err))
		pe = domain.NewPipelineError(err)
	}
	status, ok := statusByKind[pe.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeError(w, status, string(pe.Kind), pe.Message)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "question is required"
	case "max":
		return "question must be at most " + fe.Param() + " characters"
	default:
		return "question is invalid"
	}
}

func turnToDigest(t *domsession.Turn) TurnDigest {
	return TurnDigest{
		TurnID:    t.ID,
		Question:  t.Question,
		Answer:    t.Answer,
		Query:     t.Query.Describe(),
		Verdict:   string(t.Verdict),
		RowCount:  t.Summary.RowCount,
		Degraded:  t.Degraded,
		FollowUps: t.FollowUps,
		CreatedAt: t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func summaryToResponse(sum *inventory.Summary) SummaryResponse {
	m := sum.Measurements
	resp := SummaryResponse{
		Floats:       m.Floats,
		Profiles:     m.Profiles,
		Observations: m.Observations,
		Degraded:     sum.Degraded,
		GeneratedAt:  sum.GeneratedAt.Format(time.RFC3339),
	}
	if m.Bounds != nil {
		resp.Bounds = &BoundsDTO{
			MinLat: m.Bounds.MinLat, MaxLat: m.Bounds.MaxLat,
			MinLon: m.Bounds.MinLon, MaxLon: m.Bounds.MaxLon,
		}
	}
	if m.First != nil && m.Last != nil {
		resp.DateRange = &DateRangeDTO{
			Start: m.First.UTC().Format(time.RFC3339),
			End:   m.Last.UTC().Format(time.RFC3339),
		}
	}
	if c := sum.Corpus; c != nil {
		resp.Corpus = &CorpusDTO{Index: c.Index, Present: c.Present, Documents: c.Documents}
		if len(c.ByCategory) > 0 {
			resp.Corpus.Categories = make(map[string]int, len(c.ByCategory))
			for k, v := range c.ByCategory {
				resp.Corpus.Categories[string(k)] = v
			}
		}
	}
	return resp
}

func setUsageHeaders(w http.ResponseWriter, usage *domain.Usage) {
	embedding, prompt, completion, calls := usage.Snapshot()
	if embedding > 0 {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(embedding))
	}
	if calls > 0 {
		w.Header().Set("X-LLM-Calls", strconv.Itoa(calls))
		w.Header().Set("X-LLM-Prompt-Tokens", strconv.Itoa(prompt))
		w.Header().Set("X-LLM-Completion-Tokens", strconv.Itoa(completion))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
