package retrieval

import (
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Tokenizer splits query and fragment text into scoring tokens.
// Japanese text goes through morphological analysis; everything else is
// split on non-letter/non-digit boundaries. Tokens of a single rune are
// discarded, everything is lowercased.
type Tokenizer struct {
	kagome *tokenizer.Tokenizer
}

// NewTokenizer initializes the morphological analyzer with the bundled
// IPA dictionary.
func NewTokenizer() (*Tokenizer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, err
	}
	return &Tokenizer{kagome: t}, nil
}

// Tokens returns the scoring tokens of text.
func (t *Tokenizer) Tokens(text string) []string {
	var raw []string
	if t != nil && t.kagome != nil && containsJapanese(text) {
		raw = t.kagome.Wakati(text)
	} else {
		raw = splitLatin(text)
	}

	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if len([]rune(tok)) < 2 {
			continue
		}
		if !hasLetterOrDigit(tok) {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func containsJapanese(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han) {
			return true
		}
	}
	return false
}

func splitLatin(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func hasLetterOrDigit(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
