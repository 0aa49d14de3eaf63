// Package tiktoken provides a BPE tokenizer adapter using tiktoken-go with
// the encoding tables compiled into the binary.
package tiktoken

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/custodia-labs/notesync/internal/core/domain"
	"github.com/custodia-labs/notesync/internal/core/ports/driven"
)

// Ensure Tokenizer implements the interface.
var _ driven.Tokenizer = (*Tokenizer)(nil)

// DefaultEncoding is the encoding used for chunk bounds.
const DefaultEncoding = "cl100k_base"

// allSpecial lets special token text through as tokens instead of panicking.
var allSpecial = []string{"all"}

var loaderOnce sync.Once

// Tokenizer counts and slices text in BPE tokens.
type Tokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

// New returns a tokenizer for the named encoding. Empty uses cl100k_base.
// Encoding tables are loaded offline; no network access is needed.
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}

	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("%w: tokenizer encoding %q: %w", domain.ErrConfiguration, encoding, err)
	}
	return &Tokenizer{name: encoding, enc: enc}, nil
}

// Encode returns the token ids of text.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, allSpecial, nil)
}

// Decode returns the text of a token id sequence.
func (t *Tokenizer) Decode(tokens []int) string {
	return t.enc.Decode(tokens)
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}

// Name returns the encoding name.
func (t *Tokenizer) Name() string {
	return t.name
}
