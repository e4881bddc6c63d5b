package onnx

import (
	"bufio"
	"fmt"
	"os"
)

// Special tokens of BERT-style vocabularies
const (
	tokenUnk = "[UNK]"
	tokenCls = "[CLS]"
	tokenSep = "[SEP]"
)

// vocab maps WordPiece tokens to ids. The id of a token is its
// zero-based line number in vocab.txt.
type vocab struct {
	ids map[string]int64

	unk int64
	cls int64
	sep int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	ids := make(map[string]int64, 32000)
	var next int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ids[scanner.Text()] = next
		next++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if next == 0 {
		return nil, fmt.Errorf("vocab: %s is empty", path)
	}

	v := &vocab{ids: ids}
	for _, special := range []struct {
		token string
		id    *int64
	}{
		{tokenUnk, &v.unk},
		{tokenCls, &v.cls},
		{tokenSep, &v.sep},
	} {
		id, ok := ids[special.token]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", special.token)
		}
		*special.id = id
	}

	return v, nil
}

func (v *vocab) has(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) id(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unk
}
