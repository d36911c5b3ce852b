// Package audio plays synthesized speech through an external audio player
// and serializes playback through a cancellable FIFO queue.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Player plays one audio payload to completion, or until the context is
// cancelled.
type Player interface {
	Play(ctx context.Context, audio []byte) error
}

// Silent discards audio. Used when no player binary is available so the
// rest of the pipeline keeps working.
type Silent struct{}

// Play returns immediately, honoring only context cancellation.
func (Silent) Play(ctx context.Context, audio []byte) error {
	return ctx.Err()
}

// playerCommands are tried in order; the first one present on PATH wins.
var playerCommands = [][]string{
	{"afplay"},
	{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
	{"mpg123", "-q"},
}

// ExecPlayer plays audio by writing it to a temporary file and running a
// command-line player as a subprocess. Cancellation kills the subprocess.
type ExecPlayer struct {
	command []string
}

// NewExecPlayer creates an ExecPlayer, locating a supported player binary.
func NewExecPlayer() (*ExecPlayer, error) {
	for _, candidate := range playerCommands {
		if _, err := exec.LookPath(candidate[0]); err == nil {
			return &ExecPlayer{command: candidate}, nil
		}
	}
	return nil, fmt.Errorf("no supported audio player found (tried afplay, ffplay, mpg123)")
}

// Play writes the audio to a temp file and blocks until the player exits or
// ctx is cancelled.
func (p *ExecPlayer) Play(ctx context.Context, audio []byte) error {
	if len(audio) == 0 {
		return fmt.Errorf("no audio to play")
	}

	f, err := os.CreateTemp("", "insync-tts-*.mp3")
	if err != nil {
		return fmt.Errorf("create temp audio file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(audio); err != nil {
		f.Close()
		return fmt.Errorf("write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close audio file: %w", err)
	}

	args := append(append([]string{}, p.command[1:]...), path)
	cmd := exec.CommandContext(ctx, p.command[0], args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctx.Err() == context.Canceled {
		// Cancelled playback is not a failure
		return nil
	}
	if err != nil {
		if stderr.Len() > 0 {
			return fmt.Errorf("audio player failed: %w, stderr: %s", err, stderr.String())
		}
		return fmt.Errorf("audio player failed: %w", err)
	}
	return nil
}
