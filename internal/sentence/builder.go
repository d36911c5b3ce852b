// Package sentence accumulates confirmed gesture labels into sentences and
// decides, on wall-clock timeouts or explicit triggers, when a sentence is
// complete.
package sentence

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Status is the lifecycle state of a sentence record. A sentence reaches a
// terminal status (translated, spoken, failed, silent) at most once.
type Status string

const (
	StatusBuilding           Status = "building"
	StatusPendingTranslation Status = "pending_translation"
	StatusTranslating        Status = "translating"
	StatusTranslated         Status = "translated"
	StatusSpoken             Status = "spoken"
	StatusFailed             Status = "failed"
	StatusSilent             Status = "silent"
)

// Sentence is a finalized word sequence handed to the dispatch queue. The
// word slice is read-only after finalization.
type Sentence struct {
	Words     []string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Text returns the raw words joined with spaces.
func (s *Sentence) Text() string {
	return strings.Join(s.Words, " ")
}

// Default builder timings.
const (
	DefaultAbsenceTimeout = 5 * time.Second
	DefaultIdleTimeout    = 5 * time.Second
	DefaultRepeatInterval = 2 * time.Second
)

// Config holds the sentence segmentation timings. Invalid values are
// rejected at construction.
type Config struct {
	// AbsenceTimeout finalizes the sentence when no hands have been seen
	// for this long.
	AbsenceTimeout time.Duration

	// IdleTimeout finalizes the sentence when hands are still present but
	// no new gesture has been confirmed for this long.
	IdleTimeout time.Duration

	// RepeatInterval is the minimum gap before a consecutive identical
	// word is appended again instead of deduplicated. Zero means
	// consecutive duplicates always collapse.
	RepeatInterval time.Duration
}

// DefaultConfig returns the standard segmentation timings.
func DefaultConfig() Config {
	return Config{
		AbsenceTimeout: DefaultAbsenceTimeout,
		IdleTimeout:    DefaultIdleTimeout,
		RepeatInterval: DefaultRepeatInterval,
	}
}

func (c Config) validate() error {
	if c.AbsenceTimeout <= 0 {
		return fmt.Errorf("absence timeout must be positive, got %v", c.AbsenceTimeout)
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %v", c.IdleTimeout)
	}
	if c.RepeatInterval < 0 {
		return fmt.Errorf("repeat interval must not be negative, got %v", c.RepeatInterval)
	}
	return nil
}

type state int

const (
	stateIdle state = iota
	stateBuilding
)

// Builder is the sentence segmentation state machine. All mutation goes
// through its mutex, so the capture loop, the watchdog and API commands can
// drive it concurrently.
//
// A signing session opens when hands first appear (or a gesture arrives)
// and closes on a timeout or an explicit force. Sessions that close with no
// accumulated words produce a SILENT sentence, which observers still see
// but which is never dispatched for translation.
type Builder struct {
	config Config
	sink   func(*Sentence)

	mu            sync.Mutex
	state         state
	words         []string
	createdAt     time.Time
	lastWord      string
	lastWordAt    time.Time
	lastGestureAt time.Time
	lastHandsAt   time.Time
}

// New creates a Builder. sink is called with each finalized sentence,
// outside the builder's lock.
func New(config Config, sink func(*Sentence)) (*Builder, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid sentence config: %w", err)
	}
	if sink == nil {
		return nil, fmt.Errorf("sentence sink must not be nil")
	}
	return &Builder{config: config, sink: sink}, nil
}

// Push appends a confirmed gesture label to the current sentence, opening a
// new one if none is in progress. Labels are opaque tokens; unknown labels
// are appended verbatim. Consecutive identical labels collapse unless the
// repeat interval has elapsed.
func (b *Builder) Push(label string, at time.Time) {
	if label == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateIdle {
		b.begin(at)
	}

	b.lastGestureAt = at

	if label == b.lastWord && (b.config.RepeatInterval == 0 || at.Sub(b.lastWordAt) < b.config.RepeatInterval) {
		return
	}

	b.words = append(b.words, label)
	b.lastWord = label
	b.lastWordAt = at
}

// ObserveHands records how many hands the detector saw this frame. Seeing
// hands while idle opens a session so a signer who never produces a
// confirmed gesture still yields a SILENT result on timeout.
func (b *Builder) ObserveHands(count int, at time.Time) {
	if count <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateIdle {
		b.begin(at)
	}
	b.lastHandsAt = at
}

// Tick re-evaluates the wall-clock timeouts. Driven by the watchdog at a
// fixed interval so finalization happens even when frames stop arriving.
func (b *Builder) Tick(now time.Time) {
	b.mu.Lock()

	if b.state != stateBuilding {
		b.mu.Unlock()
		return
	}

	absent := now.Sub(b.lastHandsAt) >= b.config.AbsenceTimeout
	idle := now.Sub(b.lastGestureAt) >= b.config.IdleTimeout
	if !absent && !idle {
		b.mu.Unlock()
		return
	}

	done := b.finalizeLocked(now)
	b.mu.Unlock()
	b.sink(done)
}

// Force finalizes the current sentence immediately. Calling it while no
// sentence is in progress is a no-op, so a double force finalizes at most
// once. Returns whether a sentence was handed off.
func (b *Builder) Force(now time.Time) bool {
	b.mu.Lock()

	if b.state != stateBuilding {
		b.mu.Unlock()
		return false
	}

	done := b.finalizeLocked(now)
	b.mu.Unlock()
	b.sink(done)
	return true
}

// Clear discards the in-progress sentence without dispatching it.
func (b *Builder) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reset()
}

// CurrentWords returns a copy of the words accumulated so far.
func (b *Builder) CurrentWords() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	words := make([]string, len(b.words))
	copy(words, b.words)
	return words
}

// CurrentText returns the in-progress sentence as a single string.
func (b *Builder) CurrentText() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.words, " ")
}

// Building reports whether a sentence is currently accumulating.
func (b *Builder) Building() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateBuilding
}

func (b *Builder) begin(at time.Time) {
	b.state = stateBuilding
	b.words = nil
	b.createdAt = at
	b.lastWord = ""
	b.lastWordAt = time.Time{}
	b.lastGestureAt = at
	b.lastHandsAt = at
}

func (b *Builder) finalizeLocked(now time.Time) *Sentence {
	done := &Sentence{
		Words:     b.words,
		Status:    StatusPendingTranslation,
		CreatedAt: b.createdAt,
		UpdatedAt: now,
	}
	if len(done.Words) == 0 {
		done.Status = StatusSilent
	}

	b.reset()
	return done
}

func (b *Builder) reset() {
	b.state = stateIdle
	b.words = nil
	b.lastWord = ""
	b.lastWordAt = time.Time{}
	b.lastGestureAt = time.Time{}
	b.lastHandsAt = time.Time{}
	b.createdAt = time.Time{}
}
