// Package translate turns raw gesture word sequences into natural-language
// sentences using an external language model.
package translate

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Translator converts an ordered gesture word sequence into a natural
// sentence. hint optionally carries conversational context for the model.
type Translator interface {
	Translate(ctx context.Context, words []string, hint string) (string, error)
}

// Stub is a Translator for tests and for running without an API key. It
// joins the words and normalizes casing locally.
type Stub struct {
	mu    sync.Mutex
	calls int
	err   error
}

// NewStub creates a stub translator.
func NewStub() *Stub {
	return &Stub{}
}

// SetError makes every subsequent Translate call fail with err.
func (s *Stub) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times Translate has been invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Translate returns a lightly normalized join of the words.
func (s *Stub) Translate(ctx context.Context, words []string, hint string) (string, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(words) == 0 {
		return "", fmt.Errorf("nothing to translate")
	}

	sentence := strings.ToLower(strings.Join(words, " "))
	sentence = strings.ToUpper(sentence[:1]) + sentence[1:]
	if !strings.HasSuffix(sentence, ".") {
		sentence += "."
	}
	return sentence, nil
}
