package db

import (
	"strings"
	"testing"
)

func corpusIndex() *IndexBuilder {
	return NewIndex("floatchat:corpus:idx").
		OnHash().
		Prefix("floatchat:corpus:").
		Tag("category").
		Text("text").
		VectorHNSW("vector", 1024, DistanceCosine, 16, 200)
}

func TestIndexBuilder_Corpus(t *testing.T) {
	idx, err := corpusIndex().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.StorageType != StorageHash {
		t.Errorf("storage = %q, want HASH", idx.StorageType)
	}
	if len(idx.Prefixes) != 1 || idx.Prefixes[0] != "floatchat:corpus:" {
		t.Errorf("prefixes = %v", idx.Prefixes)
	}
	if len(idx.Fields) != 3 {
		t.Fatalf("fields count = %d, want 3", len(idx.Fields))
	}
	if idx.Fields[0].Type != IndexFieldTag || idx.Fields[1].Type != IndexFieldText {
		t.Errorf("unexpected field types: %+v", idx.Fields)
	}

	v := idx.Fields[2]
	if v.VectorAlgo != VectorHNSW {
		t.Errorf("algo = %q, want HNSW", v.VectorAlgo)
	}
	if v.VectorDim != 1024 || v.VectorM != 16 || v.VectorEFConstruct != 200 {
		t.Errorf("vector params = %+v", v)
	}
	if v.VectorDistance != DistanceCosine {
		t.Errorf("distance = %q, want COSINE", v.VectorDistance)
	}
}

func TestIndexBuilder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func() (*IndexDefinition, error)
	}{
		{
			name:  "empty name",
			build: func() (*IndexDefinition, error) { return NewIndex("").Tag("a").Build() },
		},
		{
			name:  "invalid name",
			build: func() (*IndexDefinition, error) { return NewIndex("bad name!").Tag("a").Build() },
		},
		{
			name:  "no fields",
			build: func() (*IndexDefinition, error) { return NewIndex("idx").Build() },
		},
		{
			name: "zero dim",
			build: func() (*IndexDefinition, error) {
				return NewIndex("idx").VectorHNSW("v", 0, DistanceCosine, 16, 200).Build()
			},
		},
		{
			name:  "duplicate field",
			build: func() (*IndexDefinition, error) { return NewIndex("idx").Tag("a").Text("a").Build() },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.build(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIndexBuilder_EmptyName(t *testing.T) {
	if _, err := NewIndex("").Build(); err == nil {
		t.Fatal("expected error for empty index name")
	}
}

func TestIndexDefinition_String(t *testing.T) {
	idx, err := corpusIndex().Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := idx.String()

	for _, want := range []string{"FT.CREATE floatchat:corpus:idx", "ON HASH", "category TAG", "text TEXT", "vector VECTOR HNSW"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}

func TestIsValidIdentifier(t *testing.T) {
	for _, ok := range []string{"idx", "floatchat:corpus:idx", "a-b_c"} {
		if !IsValidIdentifier(ok) {
			t.Errorf("expected %q to be valid", ok)
		}
	}
	for _, bad := range []string{"", "a b", "x{y}"} {
		if IsValidIdentifier(bad) {
			t.Errorf("expected %q to be invalid", bad)
		}
	}
}
