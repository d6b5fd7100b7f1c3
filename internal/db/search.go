package db

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Vector    []float32
	K         int
	// TagField/Tags restrict the candidates to hashes whose tag field
	// matches any of the values. Empty Tags means no pre-filter.
	TagField     string
	Tags         []string
	ReturnFields []string
}

// TextQuery is the input for BM25 full-text search. Terms are OR-ed.
type TextQuery struct {
	IndexName    string
	Field        string
	Terms        []string
	K            int
	TagField     string
	Tags         []string
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
