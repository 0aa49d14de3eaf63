package driven

// Tokenizer counts and slices text in model tokens.
type Tokenizer interface {
	// Encode returns the token ids of text.
	Encode(text string) []int

	// Decode returns the text of a token id sequence.
	Decode(tokens []int) string

	// Count returns the number of tokens in text.
	Count(text string) int

	// Name identifies the encoding, recorded as chunking provenance.
	Name() string
}
