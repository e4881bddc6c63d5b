package onnx

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxWordChars is the longest word WordPiece tries to split; longer words
// become [UNK].
const maxWordChars = 100

// tokenizer is an uncased BERT WordPiece tokenizer
type tokenizer struct {
	vocab *vocab
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v}, nil
}

// encode returns the input ids of text framed by [CLS] and [SEP].
// No truncation is applied.
func (t *tokenizer) encode(text string) []int64 {
	words := t.split(text)

	ids := make([]int64, 0, len(words)+2)
	ids = append(ids, t.vocab.cls)
	for _, w := range words {
		for _, piece := range t.wordpieces(w) {
			ids = append(ids, t.vocab.id(piece))
		}
	}
	return append(ids, t.vocab.sep)
}

// split performs basic tokenization: cleanup, CJK isolation, lowercasing,
// accent stripping and punctuation splitting.
func (t *tokenizer) split(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
		case isSpace(r):
			b.WriteByte(' ')
		case isCJK(r):
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	var words []string
	for _, field := range strings.Fields(b.String()) {
		field = stripAccents(strings.ToLower(field))
		words = append(words, splitPunct(field)...)
	}
	return words
}

// wordpieces splits word greedily into the longest vocabulary entries,
// continuation pieces prefixed with "##".
func (t *tokenizer) wordpieces(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordChars {
		return []string{tokenUnk}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = "##" + candidate
			}
			if t.vocab.has(candidate) {
				piece = candidate
				break
			}
		}
		if piece == "" {
			return []string{tokenUnk}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}

func stripAccents(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func splitPunct(word string) []string {
	var (
		out   []string
		start = -1
	)
	for i, r := range word {
		if !isPunct(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, word[start:i])
			start = -1
		}
		out = append(out, string(r))
	}
	if start >= 0 {
		out = append(out, word[start:])
	}
	return out
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// isControl reports every C category rune other than tab, newline and
// carriage return. Unassigned code points (Cn) have no table of their own
// and are recognised as belonging to no other category.
func isControl(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	if unicode.In(r, unicode.C) {
		return true
	}
	return !unicode.In(r, unicode.L, unicode.M, unicode.N, unicode.P, unicode.S, unicode.Z)
}

// isPunct treats every non-alphanumeric ASCII symbol as punctuation, as
// BERT does, in addition to the Unicode P categories.
func isPunct(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) || (r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2B73F) ||
		(r >= 0x2B740 && r <= 0x2B81F) ||
		(r >= 0x2B820 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
