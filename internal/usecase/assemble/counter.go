package assemble

import (
	"fmt"
	"unicode/utf8"

	"github.com/weaviate/tiktoken-go"
)

// Ceiling units.
const (
	UnitTokens = "tokens"
	UnitChars  = "chars"
)

// NewCounter returns a counter for unit. encoding names the BPE used for tokens (cl100k_base).
func NewCounter(unit, encoding string) (Counter, error) {
	switch unit {
	case UnitChars:
		return CharCounter{}, nil
	case UnitTokens:
		enc, err := tiktoken.GetEncoding(encoding)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", encoding, err)
		}
		return &TokenCounter{enc: enc}, nil
	default:
		return nil, fmt.Errorf("unknown context unit %q", unit)
	}
}

// CharCounter counts runes.
type CharCounter struct{}

// Count returns the number of runes in s.
func (CharCounter) Count(s string) int { return utf8.RuneCountInString(s) }

// Cut keeps the first n runes.
func (CharCounter) Cut(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// TokenCounter counts BPE tokens.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// Count returns the number of tokens in s.
func (c *TokenCounter) Count(s string) int {
	return len(c.enc.Encode(s, nil, nil))
}

// Cut keeps the first n tokens.
func (c *TokenCounter) Cut(s string, n int) string {
	if n <= 0 {
		return ""
	}
	tokens := c.enc.Encode(s, nil, nil)
	if len(tokens) <= n {
		return s
	}
	return c.enc.Decode(tokens[:n])
}
