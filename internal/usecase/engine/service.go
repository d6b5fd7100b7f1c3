// Package engine runs the question pipeline: assemble, extract, compile, validate, execute,
// synthesize, remember.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/query"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
	"github.com/kailas-cloud/floatchat/internal/domain/verdict"
	"github.com/kailas-cloud/floatchat/internal/metrics"
	"github.com/kailas-cloud/floatchat/internal/repository/querylog"
	"github.com/kailas-cloud/floatchat/internal/usecase/compile"
	"github.com/kailas-cloud/floatchat/internal/usecase/synthesize"
)

// MaxQuestionLength bounds the question text in runes.
const MaxQuestionLength = 2000

// Outcomes reported in metrics besides error kinds.
const (
	OutcomeAnswered      = "answered"
	OutcomeDegraded      = "degraded"
	OutcomeClarification = "clarification"
	OutcomeAbandoned     = "abandoned"
)

// Response is the caller-facing result of a question.
type Response struct {
	TurnID        string                `json:"turn_id,omitempty"`
	Answer        string                `json:"answer"`
	Summary       *result.Summary       `json:"result_summary,omitempty"`
	Query         string                `json:"query,omitempty"`
	Intent        *intent.Intent        `json:"intent,omitempty"`
	FollowUps     []string              `json:"follow_ups"`
	Degraded      bool                  `json:"degraded"`
	Degradations  []string              `json:"degradations,omitempty"`
	Clarification *intent.Clarification `json:"clarification,omitempty"`
}

// Deps are the pipeline stages.
type Deps struct {
	Memory      Memory
	Assembler   Assembler
	Extractor   Extractor
	Validator   Validator
	Executor    Executor
	Synthesizer Synthesizer
	// QueryLog is optional.
	QueryLog QueryLog
}

// Service is the query engine.
type Service struct {
	deps    Deps
	compile compile.Options
	clock   func() time.Time
	logger  *zap.Logger
}

// New creates the engine. clock may be nil (time.Now).
func New(deps Deps, opts compile.Options, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{deps: deps, compile: opts, clock: clock, logger: logger}
}

// turn carries the state of one question through the stages.
type turn struct {
	id        string
	sessionID string
	question  string
	started   time.Time
	intent    *intent.Intent
	query     *query.CompiledQuery
	verdict   verdict.Kind
	rowCount  int
	logger    *zap.Logger
}

// errAbandoned marks a question whose caller went away.
var errAbandoned = errors.New("question abandoned by caller")

// Submit answers one question in a session. Errors are *domain.PipelineError.
// Stages run to completion even when ctx is cancelled; a cancelled question is dropped
// before it reaches memory.
func (s *Service) Submit(ctx context.Context, sessionID, question string) (Response, error) {
	question = strings.TrimSpace(question)
	switch {
	case question == "":
		return Response{}, domain.NewPipelineError(fmt.Errorf("%w: empty question", domain.ErrInvalidRequest))
	case len([]rune(question)) > MaxQuestionLength:
		return Response{}, domain.NewPipelineError(
			fmt.Errorf("%w: question longer than %d characters", domain.ErrInvalidRequest, MaxQuestionLength))
	}

	h, err := s.deps.Memory.Acquire(ctx, sessionID)
	if err != nil {
		return Response{}, s.fail(ctx, &turn{sessionID: sessionID, question: question, started: s.clock(), logger: s.logger}, err)
	}
	defer h.Release()

	t := &turn{
		id:        uuid.NewString(),
		sessionID: sessionID,
		question:  question,
		started:   s.clock(),
	}
	t.logger = s.logger.With(zap.String("session_id", sessionID), zap.String("turn_id", t.id))

	// внешние вызовы не прерываются отменой клиента
	run := context.WithoutCancel(ctx)

	var payloadText string
	var degradations []string
	observe("assemble", func() {
		p := s.deps.Assembler.Assemble(run, question, h.Session())
		payloadText = p.Text
		degradations = append(degradations, p.Degradations...)
	})
	if ctx.Err() != nil {
		return Response{}, s.abandon(ctx, t)
	}

	var in intent.Intent
	observe("extract", func() { in, err = s.deps.Extractor.Extract(run, question, payloadText) })
	if err != nil {
		return Response{}, s.fail(run, t, err)
	}
	t.intent = &in
	if in.NeedsClarification() {
		return s.clarify(run, t, *in.Clarification), nil
	}
	if ctx.Err() != nil {
		return Response{}, s.abandon(ctx, t)
	}

	var q query.CompiledQuery
	observe("compile", func() { q, err = compile.Compile(in, s.compile) })
	if err != nil {
		return Response{}, s.fail(run, t, err)
	}

	var v verdict.Verdict
	observe("validate", func() { v = s.deps.Validator.Validate(q) })
	t.verdict = v.Kind
	if !v.Executable() {
		t.query = &q
		return Response{}, s.fail(run, t, fmt.Errorf("%w: %s", domain.ErrValidationRejected, v.Reason))
	}
	q = v.Query
	t.query = &q
	if ctx.Err() != nil {
		return Response{}, s.abandon(ctx, t)
	}

	var sum result.Summary
	observe("execute", func() { sum, err = s.deps.Executor.Run(run, q) })
	if err != nil {
		return Response{}, s.fail(run, t, err)
	}
	t.rowCount = sum.RowCount
	if ctx.Err() != nil {
		return Response{}, s.abandon(ctx, t)
	}

	var ans synthesize.Answer
	observe("synthesize", func() { ans = s.deps.Synthesizer.Synthesize(run, question, in, sum) })
	degradations = append(degradations, ans.Degradations...)
	if ctx.Err() != nil {
		return Response{}, s.abandon(ctx, t)
	}

	h.Commit(domsession.Turn{
		ID:          t.id,
		Question:    question,
		Intent:      in,
		Query:       q,
		Verdict:     v.Kind,
		Summary:     sum,
		Answer:      ans.Text,
		FollowUps:   ans.FollowUps,
		Degraded:    len(degradations) > 0,
		Degradation: degradations,
		Context:     payloadText,
		CreatedAt:   s.clock(),
	})

	outcome := OutcomeAnswered
	if len(degradations) > 0 {
		outcome = OutcomeDegraded
		for _, d := range degradations {
			metrics.DegradationsTotal.WithLabelValues(d).Inc()
		}
	}
	metrics.TurnsTotal.WithLabelValues(outcome).Inc()

	t.logger.Info("Question answered",
		zap.String("intent", in.Describe()),
		zap.String("fingerprint", q.Fingerprint()),
		zap.String("verdict", string(v.Kind)),
		zap.Int("rows", sum.RowCount),
		zap.Strings("degradations", degradations),
		zap.Duration("duration", s.clock().Sub(t.started)),
	)
	s.record(run, t, querylog.Entry{Success: true, Degraded: len(degradations) > 0})

	return Response{
		TurnID:       t.id,
		Answer:       ans.Text,
		Summary:      &sum,
		Query:        q.Describe(),
		Intent:       &in,
		FollowUps:    ans.FollowUps,
		Degraded:     len(degradations) > 0,
		Degradations: degradations,
	}, nil
}

// History returns the turns of a session, oldest first.
func (s *Service) History(_ context.Context, sessionID string) ([]domsession.Turn, error) {
	if sessionID == "" {
		return nil, domain.NewPipelineError(fmt.Errorf("%w: empty session id", domain.ErrInvalidRequest))
	}
	turns, err := s.deps.Memory.History(sessionID)
	if err != nil {
		return nil, domain.NewPipelineError(err)
	}
	return turns, nil
}

// Reset forgets a session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return domain.NewPipelineError(fmt.Errorf("%w: empty session id", domain.ErrInvalidRequest))
	}
	if err := s.deps.Memory.Reset(ctx, sessionID); err != nil {
		return domain.NewPipelineError(err)
	}
	return nil
}

// clarify answers with a clarification request. Nothing is committed.
func (s *Service) clarify(ctx context.Context, t *turn, c intent.Clarification) Response {
	metrics.TurnsTotal.WithLabelValues(OutcomeClarification).Inc()
	t.logger.Info("Clarification requested",
		zap.String("field", c.Field),
		zap.String("value", c.Value),
		zap.Strings("candidates", c.Candidates),
	)
	s.record(ctx, t, querylog.Entry{ErrorKind: string(domain.KindAmbiguousIntent)})
	return Response{
		Answer:        c.Question(),
		FollowUps:     []string{},
		Clarification: &c,
	}
}

func (s *Service) fail(ctx context.Context, t *turn, err error) error {
	pe := domain.NewPipelineError(err)
	metrics.TurnsTotal.WithLabelValues(string(pe.Kind)).Inc()

	log := t.logger
	if log == nil {
		log = s.logger
	}
	fields := []zap.Field{zap.String("kind", string(pe.Kind)), zap.Error(err)}
	var ee *domain.IntentExtractionError
	if errors.As(err, &ee) && ee.Raw != "" {
		fields = append(fields, zap.String("raw", ee.Raw))
	}
	if t.query != nil {
		fields = append(fields, zap.ByteString("query", t.query.Canonical()))
	}

	switch pe.Kind {
	case domain.KindValidationRejected, domain.KindInternal:
		log.Error("Question failed", fields...)
	case domain.KindSessionExpired, domain.KindInvalidRequest:
		log.Info("Question refused", fields...)
	default:
		log.Warn("Question failed", fields...)
	}

	if t.id != "" {
		s.record(ctx, t, querylog.Entry{ErrorKind: string(pe.Kind)})
	}
	return pe
}

func (s *Service) abandon(ctx context.Context, t *turn) error {
	metrics.TurnsTotal.WithLabelValues(OutcomeAbandoned).Inc()
	t.logger.Info("Question abandoned, result discarded", zap.Error(ctx.Err()))
	return &domain.PipelineError{
		Kind:    domain.KindInternal,
		Message: "The request was cancelled.",
		Err:     fmt.Errorf("%w: %w", errAbandoned, ctx.Err()),
	}
}

// record writes the query log entry. Failures are logged and ignored.
func (s *Service) record(ctx context.Context, t *turn, e querylog.Entry) {
	if s.deps.QueryLog == nil {
		return
	}
	e.SessionID = t.sessionID
	e.TurnID = t.id
	e.Question = t.question
	e.Verdict = string(t.verdict)
	e.RowCount = t.rowCount
	e.DurationMs = s.clock().Sub(t.started).Milliseconds()
	e.CreatedAt = s.clock().UTC()
	if t.intent != nil {
		e.Intent = t.intent.Describe()
	}
	if t.query != nil {
		e.Fingerprint = t.query.Fingerprint()
		e.Query = t.query.Describe()
	}
	if err := s.deps.QueryLog.Write(ctx, e); err != nil {
		t.logger.Warn("Query log write failed", zap.Error(err))
	}
}

func observe(stage string, fn func()) {
	start := time.Now()
	fn()
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
