// Package retrieval stores the grounding corpus as Redis hashes and searches it through an
// FT vector index.
package retrieval

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/floatchat/internal/db"
	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// Hash field names of a corpus document.
const (
	fieldCategory = "category"
	fieldText     = "text"
	fieldVector   = "vector"
)

// store is the consumer interface for the corpus (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, tagField string, tags []string) (int, error)
}

// Options describe the corpus keyspace and index.
type Options struct {
	KeyPrefix   string // "floatchat:"
	Index       string // FT index name
	Dimensions  int
	HNSWM       int
	EFConstruct int
}

// Repo implements the retrieval index adapter.
type Repo struct {
	store store
	opts  Options
}

// New creates a retrieval repository.
func New(s store, opts Options) *Repo {
	return &Repo{store: s, opts: opts}
}

func (r *Repo) docPrefix() string {
	return r.opts.KeyPrefix + "corpus:"
}

func (r *Repo) docKey(id string) string {
	return r.docPrefix() + id
}

// Search returns up to k documents closest to vector, best first. An empty corpus or
// no match is a valid empty result. categories optionally restrict the candidates.
func (r *Repo) Search(
	ctx context.Context, vector []float32, k int, categories ...retrieval.Category,
) ([]retrieval.Document, error) {
	if k <= 0 {
		return nil, nil
	}

	tags := make([]string, len(categories))
	for i, c := range categories {
		tags[i] = string(c)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.opts.Index,
		Vector:       vector,
		K:            k,
		TagField:     fieldCategory,
		Tags:         tags,
		ReturnFields: []string{fieldCategory, fieldText, "__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrRetrievalUnavailable, r.opts.Index, err)
	}
	return r.documents(sr), nil
}

func (r *Repo) documents(sr *db.SearchResult) []retrieval.Document {
	if sr == nil {
		return nil
	}
	docs := make([]retrieval.Document, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		docs = append(docs, retrieval.Document{
			ID:       strings.TrimPrefix(e.Key, r.docPrefix()),
			Category: retrieval.Category(e.Fields[fieldCategory]),
			Text:     e.Fields[fieldText],
			Score:    e.Score,
		})
	}
	return docs
}

// SearchText returns up to k documents matching any keyword of text, by BM25 score.
// Text without keywords yields no documents.
func (r *Repo) SearchText(
	ctx context.Context, text string, k int, categories ...retrieval.Category,
) ([]retrieval.Document, error) {
	terms := Keywords(text)
	if k <= 0 || len(terms) == 0 {
		return nil, nil
	}

	tags := make([]string, len(categories))
	for i, c := range categories {
		tags[i] = string(c)
	}

	sr, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    r.opts.Index,
		Field:        fieldText,
		Terms:        terms,
		K:            k,
		TagField:     fieldCategory,
		Tags:         tags,
		ReturnFields: []string{fieldCategory, fieldText},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: text search %s: %w", domain.ErrRetrievalUnavailable, r.opts.Index, err)
	}
	return r.documents(sr), nil
}

// EnsureIndex creates the corpus index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := db.NewIndex(r.opts.Index).
		OnHash().
		Prefix(r.docPrefix()).
		Tag(fieldCategory).
		Text(fieldText).
		VectorHNSW(fieldVector, r.opts.Dimensions, db.DistanceCosine, r.opts.HNSWM, r.opts.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("corpus index definition: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.opts.Index, err)
	}
	return nil
}

// IndexExists reports whether the corpus index is present.
func (r *Repo) IndexExists(ctx context.Context) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.opts.Index)
	if err != nil {
		return false, fmt.Errorf("index info %s: %w", r.opts.Index, err)
	}
	return ok, nil
}

// Stats counts indexed documents, in total and per category. A missing index is
// reported as not present rather than as an error.
func (r *Repo) Stats(ctx context.Context) (*retrieval.Stats, error) {
	st := &retrieval.Stats{Index: r.opts.Index, ByCategory: map[retrieval.Category]int{}}

	ok, err := r.store.IndexExists(ctx, r.opts.Index)
	if err != nil {
		return nil, fmt.Errorf("%w: index info %s: %w", domain.ErrRetrievalUnavailable, r.opts.Index, err)
	}
	if !ok {
		return st, nil
	}
	st.Present = true

	if st.Documents, err = r.store.SearchCount(ctx, r.opts.Index, "", nil); err != nil {
		return nil, fmt.Errorf("%w: count %s: %w", domain.ErrRetrievalUnavailable, r.opts.Index, err)
	}
	for _, c := range retrieval.Categories() {
		n, err := r.store.SearchCount(ctx, r.opts.Index, fieldCategory, []string{string(c)})
		if err != nil {
			return nil, fmt.Errorf("%w: count %s: %w", domain.ErrRetrievalUnavailable, c, err)
		}
		st.ByCategory[c] = n
	}
	return st, nil
}

// DropIndex removes the corpus index; a missing index is not an error.
func (r *Repo) DropIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, r.opts.Index); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", r.opts.Index, err)
	}
	return nil
}

// Upsert writes documents with their vectors in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, docs []retrieval.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("upsert: %d documents, %d vectors", len(docs), len(vectors))
	}

	items := make([]db.HashSetItem, len(docs))
	for i, d := range docs {
		if err := domain.CheckDimensions(vectors[i], r.opts.Dimensions); err != nil {
			return fmt.Errorf("document %s: %w", d.ID, err)
		}
		items[i] = db.HashSetItem{
			Key: r.docKey(d.ID),
			Fields: map[string]string{
				fieldCategory: string(d.Category),
				fieldText:     d.Text,
				fieldVector:   vectorToBytes(vectors[i]),
			},
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d documents: %w", len(items), err)
	}
	return nil
}

// Prune deletes corpus documents whose ids are not in keep. Returns the number removed.
func (r *Repo) Prune(ctx context.Context, keep []string) (int, error) {
	keys, err := r.store.Scan(ctx, r.docPrefix()+"*")
	if err != nil {
		return 0, fmt.Errorf("scan corpus: %w", err)
	}

	wanted := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		wanted[r.docKey(id)] = struct{}{}
	}

	removed := 0
	for _, key := range keys {
		if _, ok := wanted[key]; ok {
			continue
		}
		if err := r.store.Del(ctx, key); err != nil {
			return removed, fmt.Errorf("delete %s: %w", key, err)
		}
		removed++
	}
	return removed, nil
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
