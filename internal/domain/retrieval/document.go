// Package retrieval describes documents of the grounding corpus.
package retrieval

import "fmt"

// Category is the source kind of a corpus document.
type Category string

// Categories.
const (
	CategorySchema   Category = "schema-doc"
	CategoryExemplar Category = "exemplar"
	CategoryGlossary Category = "glossary"
)

// Categories lists every known category in display order.
func Categories() []Category {
	return []Category{CategorySchema, CategoryExemplar, CategoryGlossary}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategorySchema, CategoryExemplar, CategoryGlossary:
		return true
	default:
		return false
	}
}

// Document is a corpus entry. Score is set only on search results (cosine similarity, higher is closer).
type Document struct {
	ID       string   `json:"id" yaml:"id"`
	Category Category `json:"category" yaml:"category"`
	Text     string   `json:"text" yaml:"text"`
	Score    float64  `json:"score,omitempty" yaml:"-"`
}

// Validate checks a document before indexing.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("document id is required")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("document %s: unknown category %q", d.ID, d.Category)
	}
	if d.Text == "" {
		return fmt.Errorf("document %s: text is required", d.ID)
	}
	return nil
}

// Stats describe the corpus index. Present is false when the index has not been built;
// counts are zero then.
type Stats struct {
	Index      string
	Present    bool
	Documents  int
	ByCategory map[Category]int
}
