package retrieval

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/kailas-cloud/floatchat/internal/db"
	"github.com/kailas-cloud/floatchat/internal/domain"
	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

func TestSearch_MapsEntries(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "floatchat:corpus:schema-psal", Score: 0.92, Fields: map[string]string{
				"category": "schema-doc", "text": "psal: practical salinity (PSU)",
			}},
			{Key: "floatchat:corpus:glossary-bgc", Score: 0.71, Fields: map[string]string{
				"category": "glossary", "text": "BGC floats carry biogeochemical sensors",
			}},
		}}, nil
	}

	docs, err := repo.Search(context.Background(), testVector(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IndexName != "floatchat:corpus:idx" || got.K != 5 || len(got.Tags) != 0 {
		t.Errorf("unexpected query: %+v", got)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
	if docs[0].ID != "schema-psal" || docs[0].Category != retrieval.CategorySchema || docs[0].Score != 0.92 {
		t.Errorf("unexpected first doc: %+v", docs[0])
	}
}

func TestSearch_CategoryFilter(t *testing.T) {
	repo, ms := newTestRepo(t)

	var tags []string
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		tags = q.Tags
		return &db.SearchResult{}, nil
	}

	if _, err := repo.Search(context.Background(), testVector(), 3, retrieval.CategoryExemplar); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(tags, []string{"exemplar"}) {
		t.Errorf("expected exemplar tag, got %v", tags)
	}
}

func TestSearch_EmptyIsValid(t *testing.T) {
	repo, _ := newTestRepo(t)

	docs, err := repo.Search(context.Background(), testVector(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no docs, got %d", len(docs))
	}
}

func TestSearch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: errors.New("no such index")}
	}

	_, err := repo.Search(context.Background(), testVector(), 5)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Error("db error should stay reachable")
	}
}

func TestSearchText(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.TextQuery
	ms.searchTextFn = func(_ context.Context, q *db.TextQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "floatchat:corpus:glossary-arabian-sea", Score: 3.2, Fields: map[string]string{
				"category": "glossary", "text": "Arabian Sea: 0-25N, 50-78E",
			}},
		}}, nil
	}

	docs, err := repo.SearchText(context.Background(), "Show me salinity in the Arabian Sea", 5, retrieval.CategoryGlossary)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got.Terms, []string{"salinity", "arabian", "sea"}) {
		t.Errorf("unexpected terms: %v", got.Terms)
	}
	if got.Field != "text" || got.K != 5 || !slices.Equal(got.Tags, []string{"glossary"}) {
		t.Errorf("unexpected query: %+v", got)
	}
	if len(docs) != 1 || docs[0].ID != "glossary-arabian-sea" || docs[0].Score != 3.2 {
		t.Errorf("unexpected docs: %+v", docs)
	}
}

func TestSearchText_NoKeywordsSkipsStore(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchTextFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		t.Fatal("store must not be called")
		return nil, nil
	}

	docs, err := repo.SearchText(context.Background(), "show me the data", 5)
	if err != nil || docs != nil {
		t.Fatalf("expected nothing, got %v, %v", docs, err)
	}
}

func TestSearchText_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchTextFn = func(context.Context, *db.TextQuery) (*db.SearchResult, error) {
		return nil, errors.New("connection reset")
	}

	_, err := repo.SearchText(context.Background(), "salinity", 5)
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}

func TestKeywords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Show me salinity profiles near the equator in March 2023",
			[]string{"salinity", "profiles", "equator", "march", "2023"}},
		{"What is the trajectory of float 2902116?", []string{"trajectory", "float", "2902116"}},
		{"Salinity, salinity and SALINITY", []string{"salinity"}},
		{"BGC-Argo O2", []string{"bgc", "argo"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := Keywords(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("Keywords(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEnsureIndex(t *testing.T) {
	repo, ms := newTestRepo(t)

	var def *db.IndexDefinition
	ms.createIndexFn = func(_ context.Context, d *db.IndexDefinition) error {
		def = d
		return db.ErrIndexExists
	}

	if err := repo.EnsureIndex(context.Background()); err != nil {
		t.Fatalf("existing index must not be an error: %v", err)
	}
	if def.Prefixes[0] != "floatchat:corpus:" {
		t.Errorf("unexpected prefix %v", def.Prefixes)
	}
	vec := def.Fields[len(def.Fields)-1]
	if vec.Type != db.IndexFieldVector || vec.VectorDim != 4 || vec.VectorDistance != db.DistanceCosine {
		t.Errorf("unexpected vector field %+v", vec)
	}
}

func TestEnsureIndex_BadDimensions(t *testing.T) {
	repo := New(&mockStore{}, Options{KeyPrefix: "p:", Index: "idx"})
	if err := repo.EnsureIndex(context.Background()); err == nil {
		t.Fatal("expected error for zero dimensions")
	}
}

func TestDropIndex_MissingIsNotError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.dropIndexFn = func(_ context.Context, _ string) error { return db.ErrIndexNotFound }

	if err := repo.DropIndex(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpsert(t *testing.T) {
	repo, ms := newTestRepo(t)

	var items []db.HashSetItem
	ms.hsetMultiFn = func(_ context.Context, it []db.HashSetItem) error {
		items = it
		return nil
	}

	docs := []retrieval.Document{{ID: "exemplar-1", Category: retrieval.CategoryExemplar, Text: "q: ..."}}
	if err := repo.Upsert(context.Background(), docs, [][]float32{testVector()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].Key != "floatchat:corpus:exemplar-1" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if len(items[0].Fields["vector"]) != 16 {
		t.Errorf("expected 16 vector bytes, got %d", len(items[0].Fields["vector"]))
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	repo, _ := newTestRepo(t)

	docs := []retrieval.Document{{ID: "x", Category: retrieval.CategoryGlossary, Text: "t"}}
	err := repo.Upsert(context.Background(), docs, [][]float32{{1, 2}})
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		t.Fatalf("expected ErrVectorDimMismatch, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "floatchat:corpus:*" {
			t.Errorf("unexpected pattern %q", pattern)
		}
		return []string{"floatchat:corpus:a", "floatchat:corpus:old", "floatchat:corpus:b"}, nil
	}
	var deleted []string
	ms.delFn = func(_ context.Context, key string) error {
		deleted = append(deleted, key)
		return nil
	}

	n, err := repo.Prune(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || !slices.Equal(deleted, []string{"floatchat:corpus:old"}) {
		t.Errorf("removed %d, deleted %v", n, deleted)
	}
}

func TestStats(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	counts := map[string]int{"": 12, "schema-doc": 5, "exemplar": 4, "glossary": 3}
	ms.searchCountFn = func(_ context.Context, index, tagField string, tags []string) (int, error) {
		if index != "floatchat:corpus:idx" {
			t.Errorf("index = %q", index)
		}
		if len(tags) == 0 {
			return counts[""], nil
		}
		if tagField != "category" {
			t.Errorf("tag field = %q, want category", tagField)
		}
		return counts[tags[0]], nil
	}

	st, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Present || st.Documents != 12 {
		t.Errorf("stats = %+v, want present with 12 documents", st)
	}
	if st.ByCategory[retrieval.CategorySchema] != 5 || st.ByCategory[retrieval.CategoryGlossary] != 3 {
		t.Errorf("by category = %v", st.ByCategory)
	}
}

func TestStats_MissingIndex(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchCountFn = func(context.Context, string, string, []string) (int, error) {
		t.Error("count must not run without an index")
		return 0, nil
	}

	st, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Present || st.Documents != 0 {
		t.Errorf("stats = %+v, want absent", st)
	}
}

func TestStats_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.indexExistsFn = func(_ context.Context, _ string) (bool, error) { return true, nil }
	ms.searchCountFn = func(context.Context, string, string, []string) (int, error) {
		return 0, errors.New("connection refused")
	}

	_, err := repo.Stats(context.Background())
	if !errors.Is(err, domain.ErrRetrievalUnavailable) {
		t.Fatalf("expected ErrRetrievalUnavailable, got %v", err)
	}
}
