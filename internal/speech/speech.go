// Package speech synthesizes audio from translated sentences using an
// external text-to-speech service.
package speech

import (
	"context"
	"fmt"
	"sync"
)

// Synthesizer turns text into audio bytes. voiceID selects the voice; an
// empty string uses the provider default.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

// Stub is a Synthesizer for tests and keyless operation. It returns a fake
// payload derived from the text so callers can assert ordering.
type Stub struct {
	mu    sync.Mutex
	calls int
	err   error
}

// NewStub creates a stub synthesizer.
func NewStub() *Stub {
	return &Stub{}
}

// SetError makes every subsequent Synthesize call fail with err.
func (s *Stub) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns how many times Synthesize has been invoked.
func (s *Stub) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Synthesize returns the text itself as a stand-in audio payload.
func (s *Stub) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("nothing to synthesize")
	}
	return []byte("audio:" + text), nil
}
