package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wordTokenizer struct{ err error }

func (w wordTokenizer) CountTokens(text string) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	n := 0
	inWord := false
	for _, r := range text {
		space := r == ' ' || r == '\n' || r == '\t'
		if !space && !inWord {
			n++
		}
		inWord = !space
	}
	return n, nil
}

func (wordTokenizer) Name() string { return "words" }

func TestNewTokenizer(t *testing.T) {
	tk, err := newTokenizer(TokenizerOptions{}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, tk)

	_, err = newTokenizer(TokenizerOptions{Type: "sentencepiece"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported tokenizer type")
}

func TestCountExactTokens(t *testing.T) {
	doc := assembleContext(nil, "one two three")

	require.NoError(t, countExactTokens(&doc, nil))
	assert.False(t, doc.Summary.HasExactTokens)

	require.NoError(t, countExactTokens(&doc, wordTokenizer{}))
	assert.True(t, doc.Summary.HasExactTokens)
	assert.Equal(t, 3, doc.Summary.ExactTokens)
	assert.Equal(t, len("one two three")/4, doc.Summary.TokenEstimate, "estimate is unaffected")

	fresh := assembleContext(nil, "x")
	assert.Error(t, countExactTokens(&fresh, wordTokenizer{err: errors.New("boom")}))
	assert.False(t, fresh.Summary.HasExactTokens)
}
