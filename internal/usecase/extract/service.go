// Package extract turns a question plus context into a resolved Intent using the language
// model in structured output mode, with correction retries on structural violations.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
)

const systemPrompt = `You translate questions about ARGO float measurements into a JSON intent.
Use only names from the data schema below. Copy region names and period labels as the user
wrote them; do not invent coordinates for named regions. Leave a field null when the
question does not constrain it. Put every measured variable the user asks about in
parameters, even if it is not in the schema. aggregation is "compare" for comparisons
between floats, "trend" for change over time, "nearest" for "closest to" questions with a
reference point, otherwise "none". When the question is a follow-up, carry over the
filters of the previous turn unless the user changes them.
Current date: %s.

%s`

// Service extracts intents.
type Service struct {
	llm      domain.LanguageModel
	policies retry.Table
	retries  int
	clock    func() time.Time
	logger   *zap.Logger
}

// New creates an extractor. retries is the number of correction attempts after the first.
func New(llm domain.LanguageModel, policies retry.Table, retries int, clock func() time.Time, logger *zap.Logger) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{llm: llm, policies: policies, retries: retries, clock: clock, logger: logger}
}

// Extract returns a resolved intent. An intent with a clarification is not an error.
// Failures are *domain.IntentExtractionError carrying the last raw output.
func (s *Service) Extract(ctx context.Context, question, contextText string) (intent.Intent, error) {
	now := s.clock().UTC()
	prompt := domain.NewPrompt(fmt.Sprintf(systemPrompt, now.Format("2006-01-02"), contextText), question)
	schema := IntentSchema()

	var (
		raw        string
		violations []string
	)
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			prompt = prompt.Append(
				domain.Message{Role: domain.RoleAssistant, Content: raw},
				domain.Message{Role: domain.RoleUser, Content: correction(violations)},
			)
		}

		out, err := retry.Do(ctx, s.policies, retry.LLM, func(ctx context.Context) (domain.Completion, error) {
			return s.llm.Structured(ctx, prompt, schema)
		})
		if err != nil {
			return intent.Intent{}, &domain.IntentExtractionError{Raw: raw, Violations: violations, Err: err}
		}
		raw = out.Content

		in, v := s.parse(raw, now)
		if len(v) == 0 || in.NeedsClarification() {
			return in, nil
		}
		violations = v
		s.logger.Info("Intent violates constraints, asking for a correction",
			zap.Int("attempt", attempt+1),
			zap.Strings("violations", violations),
			zap.String("raw", compact(raw)),
		)
	}

	return intent.Intent{}, &domain.IntentExtractionError{Raw: raw, Violations: violations}
}

func (s *Service) parse(content string, now time.Time) (intent.Intent, []string) {
	rawIntent, err := decode(content)
	if err != nil {
		return intent.Intent{}, []string{err.Error()}
	}
	return resolve(rawIntent, now)
}

func correction(violations []string) string {
	var b strings.Builder
	b.WriteString("Your previous output broke these rules:\n")
	for _, v := range violations {
		b.WriteString("- ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteString("Return the corrected intent JSON only.")
	return b.String()
}
