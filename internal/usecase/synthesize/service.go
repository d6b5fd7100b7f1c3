// Package synthesize turns a result summary into the user-facing answer. The model writes
// the prose; every number it uses is checked against the summary, and a templated answer
// takes over when the check or the model fails.
package synthesize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/intent"
	"github.com/kailas-cloud/floatchat/internal/domain/result"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
)

const systemPrompt = `You answer questions about ARGO float measurements.
Use only the query result given below. Every number you mention must appear in the row count,
the statistics or the sample rows. Do not guess values that are not listed.
If the result is marked as truncated, say that only the first rows were returned.
Answer in at most five sentences. Do not suggest follow-up questions.`

// Answer is the synthesized reply of one turn.
type Answer struct {
	Text         string
	FollowUps    []string
	Degraded     bool
	Degradations []string
}

// Service synthesizes answers.
type Service struct {
	llm      domain.LanguageModel
	policies retry.Table
	logger   *zap.Logger
}

// New creates the synthesizer.
func New(llm domain.LanguageModel, policies retry.Table, logger *zap.Logger) *Service {
	return &Service{llm: llm, policies: policies, logger: logger}
}

// Synthesize never fails: a model error or an ungrounded answer falls back to the template.
func (s *Service) Synthesize(ctx context.Context, question string, in intent.Intent, sum result.Summary) Answer {
	ans := Answer{FollowUps: FollowUps(in, sum)}

	if sum.RowCount == 0 {
		ans.Text = NoData(in)
		return ans
	}

	prompt := domain.NewPrompt(systemPrompt, groundingContext(question, in, sum))
	out, err := retry.Attempt(ctx, s.policies, retry.LLM, func(ctx context.Context) (domain.Completion, error) {
		return s.llm.Complete(ctx, prompt)
	})
	if err != nil {
		s.logger.Warn("answer synthesis failed, using template", zap.Error(err))
		return s.degraded(ans, in, sum)
	}

	text := strings.TrimSpace(out.Content)
	if text == "" {
		s.logger.Warn("model returned empty answer, using template")
		return s.degraded(ans, in, sum)
	}
	if bad := Ungrounded(text, question, in, sum); len(bad) > 0 {
		s.logger.Warn("answer mentions numbers absent from the result, using template",
			zap.Strings("numbers", bad))
		return s.degraded(ans, in, sum)
	}

	ans.Text = withTruncationNote(text, sum)
	return ans
}

func (s *Service) degraded(ans Answer, in intent.Intent, sum result.Summary) Answer {
	ans.Text = Template(in, sum)
	ans.Degraded = true
	ans.Degradations = []string{domain.DegradationSynthesis}
	return ans
}

func groundingContext(question string, in intent.Intent, sum result.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", question)
	fmt.Fprintf(&b, "Interpreted as: %s\n", in.Describe())
	fmt.Fprintf(&b, "Row count: %d\n", sum.RowCount)
	if sum.Truncated {
		fmt.Fprintf(&b, "Truncated: yes, only the first %d rows were returned\n", sum.RowCap)
	} else {
		b.WriteString("Truncated: no\n")
	}

	if len(sum.Stats) > 0 {
		b.WriteString("\nStatistics over all returned rows:\n")
		for _, st := range sum.Stats {
			b.WriteString("- " + statLine(st) + "\n")
		}
	}

	if len(sum.Sample) > 0 {
		fmt.Fprintf(&b, "\nSample (%d rows):\n", len(sum.Sample))
		names := make([]string, len(sum.Columns))
		for i, c := range sum.Columns {
			names[i] = c.Name
		}
		b.WriteString(strings.Join(names, " | ") + "\n")
		for _, r := range sum.Sample {
			cells := make([]string, len(r))
			for i, v := range r {
				cells[i] = result.FormatValue(v)
			}
			b.WriteString(strings.Join(cells, " | ") + "\n")
		}
	}
	return b.String()
}

func statLine(st result.Stat) string {
	if st.First != nil && st.Last != nil {
		return fmt.Sprintf("%s: %d values from %s to %s", st.Column, st.Count,
			result.FormatValue(*st.First), result.FormatValue(*st.Last))
	}
	line := fmt.Sprintf("%s: %d values", st.Column, st.Count)
	if st.Min != nil && st.Max != nil {
		line += fmt.Sprintf(", min %s, max %s", result.FormatNumber(*st.Min), result.FormatNumber(*st.Max))
	}
	if st.Mean != nil {
		line += ", mean " + result.FormatNumber(*st.Mean)
	}
	return line
}
