package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/floatchat/internal/domain/retrieval"
)

// File is the on-disk corpus layout.
type File struct {
	Documents []retrieval.Document `yaml:"documents"`
}

// Load reads and validates a YAML corpus file.
func Load(path string) ([]retrieval.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	docs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("corpus %s: %w", path, err)
	}
	return docs, nil
}

// Parse decodes a corpus. Unknown keys, invalid documents and duplicate ids are errors.
func Parse(data []byte) ([]retrieval.Document, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty corpus")
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, errors.New("no documents")
	}

	seen := make(map[string]struct{}, len(f.Documents))
	for _, d := range f.Documents {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("duplicate document id %q", d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return f.Documents, nil
}
