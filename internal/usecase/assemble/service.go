// Package assemble builds the bounded context payload for a question: static schema,
// retrieved corpus documents and recent conversation turns.
package assemble

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
	domsession "github.com/kailas-cloud/floatchat/internal/domain/session"
	"github.com/kailas-cloud/floatchat/internal/usecase/retry"
)

// Options configures the assembler.
type Options struct {
	TopK        int
	MemoryTurns int
	Ceiling     int
}

// Payload is the assembled context. Text is what the model sees.
type Payload struct {
	Schema       string
	Documents    []retrieval.Document
	Turns        []string
	Degradations []string
	// Truncated is set when the latest turn digest or the whole text had to be cut.
	Truncated bool
	Size      int
	Text      string
}

// Service assembles payloads.
type Service struct {
	embed    Embedder
	retrieve Retriever
	counter  Counter
	policies retry.Table
	opts     Options
	schema   string
	logger   *zap.Logger
}

// New creates the assembler.
func New(embed Embedder, retrieve Retriever, counter Counter, policies retry.Table, opts Options, logger *zap.Logger) *Service {
	return &Service{
		embed:    embed,
		retrieve: retrieve,
		counter:  counter,
		policies: policies,
		opts:     opts,
		schema:   SchemaSummary(),
		logger:   logger,
	}
}

// Assemble builds the payload for question over the session snapshot. It never fails:
// retrieval problems degrade to an empty document list.
func (s *Service) Assemble(ctx context.Context, question string, sess *domsession.Session) Payload {
	p := Payload{Schema: s.schema}

	docs, err := s.search(ctx, question)
	if err != nil {
		s.logger.Warn("Retrieval unavailable, continuing without documents", zap.Error(err))
		p.Degradations = append(p.Degradations, domain.DegradationRetrievalUnavailable)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	p.Documents = docs

	if sess != nil {
		for _, t := range sess.Recent(s.opts.MemoryTurns) {
			p.Turns = append(p.Turns, TurnDigest(t))
		}
	}

	s.fit(&p)
	return p
}

func (s *Service) search(ctx context.Context, question string) ([]retrieval.Document, error) {
	emb, err := retry.Do(ctx, s.policies, retry.Embedding, func(ctx context.Context) (domain.EmbeddingResult, error) {
		return s.embed.Embed(ctx, question)
	})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	docs, err := retry.Do(ctx, s.policies, retry.Retrieval, func(ctx context.Context) ([]retrieval.Document, error) {
		return s.retrieve.Search(ctx, emb.Embedding, s.opts.TopK)
	})
	if err != nil {
		return nil, fmt.Errorf("search corpus: %w", err)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })

	// keyword hits are a bonus: place names and float ids the vector misses
	text, err := retry.Attempt(ctx, s.policies, retry.Retrieval, func(ctx context.Context) ([]retrieval.Document, error) {
		return s.retrieve.SearchText(ctx, question, s.opts.TopK)
	})
	if err != nil {
		s.logger.Warn("Keyword retrieval failed, using vector results only", zap.Error(err))
		return docs, nil
	}
	if len(text) == 0 {
		return docs, nil
	}
	return fuseRRF(docs, text, s.opts.TopK), nil
}

// fit shrinks the payload to the ceiling: older turns first, then documents from the
// lowest score, then the latest turn digest, then a hard cut of the text.
func (s *Service) fit(p *Payload) {
	ceiling := s.opts.Ceiling
	measure := func() int {
		p.Text = Render(p.Schema, p.Documents, p.Turns)
		p.Size = s.counter.Count(p.Text)
		return p.Size
	}
	if ceiling <= 0 {
		measure()
		return
	}

	for measure() > ceiling && len(p.Turns) > 1 {
		p.Turns = p.Turns[1:]
	}
	for p.Size > ceiling && len(p.Documents) > 0 {
		p.Documents = p.Documents[:len(p.Documents)-1]
		measure()
	}
	if p.Size > ceiling && len(p.Turns) == 1 {
		latest := p.Turns[0]
		p.Turns[0] = ""
		room := ceiling - s.counter.Count(Render(p.Schema, p.Documents, p.Turns))
		p.Turns[0] = s.counter.Cut(latest, room)
		p.Truncated = true
		measure()
	}
	// hard guard; decoded token prefixes may re-encode slightly longer
	for n := ceiling; p.Size > ceiling && n > 0; n-- {
		p.Text = s.counter.Cut(p.Text, n)
		p.Size = s.counter.Count(p.Text)
		p.Truncated = true
	}
}

// Render lays out the payload sections.
func Render(schema string, docs []retrieval.Document, turns []string) string {
	var b strings.Builder
	b.WriteString("# Data schema\n")
	b.WriteString(schema)

	if len(docs) > 0 {
		b.WriteString("\n# Reference\n")
		for _, d := range docs {
			fmt.Fprintf(&b, "[%s] %s\n", d.Category, d.Text)
		}
	}

	if len(turns) > 0 {
		b.WriteString("\n# Recent conversation\n")
		for i, t := range turns {
			fmt.Fprintf(&b, "## Turn %d\n%s\n", i+1, t)
		}
	}
	return b.String()
}

// TurnDigest is the memory line of a finished turn.
func TurnDigest(t domsession.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Q: %s\n", t.Question)
	fmt.Fprintf(&b, "Intent: %s\n", t.Intent.Describe())
	if where := t.Query.Describe(); where != "" {
		fmt.Fprintf(&b, "Filter: %s\n", where)
	}
	fmt.Fprintf(&b, "Result: %s\n", t.Summary.Digest())
	fmt.Fprintf(&b, "A: %s", t.Answer)
	return b.String()
}
