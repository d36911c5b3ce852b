// Package dispatch decouples sentence finalization from the slow network
// calls: finalized sentences enter an unbounded FIFO, a translation worker
// and a speech worker drain it, and playback runs through a cancellable
// audio queue.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ayusman/insync/internal/audio"
	"github.com/ayusman/insync/internal/sentence"
	"github.com/ayusman/insync/internal/speech"
	"github.com/ayusman/insync/internal/translate"
)

// Default worker parameters.
const (
	DefaultMaxRetries   = 2
	DefaultRetryBackoff = time.Second
)

// Record is the lifecycle state of one dispatched sentence. IDs increase
// monotonically and are used for external correlation ("play TTS for
// sentence #7").
type Record struct {
	ID             int64           `json:"id"`
	Words          []string        `json:"words"`
	RawText        string          `json:"raw_text"`
	TranslatedText string          `json:"translated_text,omitempty"`
	Status         sentence.Status `json:"status"`
	Error          string          `json:"error,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
}

// Archiver persists record snapshots. Implementations must tolerate being
// called from worker goroutines.
type Archiver interface {
	SaveTranslation(rec *Record) error
}

// Config holds worker tuning. Invalid values are rejected at construction.
type Config struct {
	// MaxRetries is how many times a failed translation is retried before
	// the sentence is marked failed.
	MaxRetries int

	// RetryBackoff is the base delay between translation attempts; the
	// delay grows linearly with the attempt number.
	RetryBackoff time.Duration

	// ShortSentenceMax is the word count below which a sentence skips
	// translation and is spoken from the raw joined words. Zero disables
	// the bypass.
	ShortSentenceMax int

	// ContextHint is passed to the translator as conversational context.
	ContextHint string

	// VoiceID selects the synthesis voice; empty uses the provider default.
	VoiceID string

	// SpeechEnabled gates the speech path entirely.
	SpeechEnabled bool
}

// DefaultConfig returns the standard worker tuning.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    DefaultMaxRetries,
		RetryBackoff:  DefaultRetryBackoff,
		SpeechEnabled: true,
	}
}

func (c Config) validate() error {
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %v", c.RetryBackoff)
	}
	if c.ShortSentenceMax < 0 {
		return fmt.Errorf("short sentence threshold must not be negative, got %d", c.ShortSentenceMax)
	}
	return nil
}

type speechJob struct {
	id   int64
	text string
}

// Queue owns the translation and speech workers plus the playback queue.
type Queue struct {
	config     Config
	translator translate.Translator
	synth      speech.Synthesizer
	playback   *audio.Queue
	archiver   Archiver

	mu       sync.Mutex
	nextID   int64
	records  map[int64]*Record
	order    []int64
	workT    []int64
	workS    []speechJob
	started  bool
	cancelFn context.CancelFunc

	wakeT  chan struct{}
	wakeS  chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a dispatch queue. archiver may be nil to skip persistence.
func New(config Config, translator translate.Translator, synth speech.Synthesizer, player audio.Player, archiver Archiver) (*Queue, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}
	if translator == nil {
		return nil, fmt.Errorf("translator must not be nil")
	}
	if synth == nil {
		return nil, fmt.Errorf("synthesizer must not be nil")
	}
	if player == nil {
		return nil, fmt.Errorf("player must not be nil")
	}

	q := &Queue{
		config:     config,
		translator: translator,
		synth:      synth,
		archiver:   archiver,
		records:    make(map[int64]*Record),
		wakeT:      make(chan struct{}, 1),
		wakeS:      make(chan struct{}, 1),
		stopCh:     make(chan struct{}),
	}
	q.playback = audio.NewQueue(player, q.onPlaybackDone)
	return q, nil
}

// Start launches the workers.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true

	ctx, cancel := context.WithCancel(context.Background())
	q.cancelFn = cancel

	q.playback.Start()

	q.wg.Add(2)
	go q.runTranslation(ctx)
	go q.runSpeech(ctx)
}

// Stop cancels in-flight work and waits for the workers to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	close(q.stopCh)
	q.cancelFn()
	q.mu.Unlock()

	q.wg.Wait()
	q.playback.Stop()
}

// Enqueue registers a finalized sentence and, unless it is silent, queues
// it for translation. Returns the assigned id immediately.
func (q *Queue) Enqueue(s *sentence.Sentence) int64 {
	q.mu.Lock()

	q.nextID++
	rec := &Record{
		ID:        q.nextID,
		Words:     s.Words,
		RawText:   strings.Join(s.Words, " "),
		Status:    sentence.StatusPendingTranslation,
		CreatedAt: s.CreatedAt,
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	if s.Status == sentence.StatusSilent {
		rec.Status = sentence.StatusSilent
		now := time.Now()
		rec.CompletedAt = &now
		q.records[rec.ID] = rec
		q.order = append(q.order, rec.ID)
		q.mu.Unlock()
		q.archive(rec)
		return rec.ID
	}

	q.records[rec.ID] = rec
	q.order = append(q.order, rec.ID)
	q.workT = append(q.workT, rec.ID)
	q.mu.Unlock()

	q.archive(rec)
	signal(q.wakeT)
	return rec.ID
}

// SpeakText synthesizes arbitrary text outside the gesture pipeline. The
// text is registered as an already-translated record so it shows up in the
// history and can be replayed.
func (q *Queue) SpeakText(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("text must not be empty")
	}

	q.mu.Lock()
	q.nextID++
	rec := &Record{
		ID:             q.nextID,
		RawText:        text,
		TranslatedText: text,
		Status:         sentence.StatusTranslated,
		CreatedAt:      time.Now(),
	}
	q.records[rec.ID] = rec
	q.order = append(q.order, rec.ID)
	q.workS = append(q.workS, speechJob{id: rec.ID, text: text})
	q.mu.Unlock()

	q.archive(rec)
	signal(q.wakeS)
	return rec.ID, nil
}

// Replay queues the stored translation for the given id for speech again.
func (q *Queue) Replay(id int64) error {
	q.mu.Lock()
	rec, ok := q.records[id]
	if !ok {
		q.mu.Unlock()
		return fmt.Errorf("no translation with id %d", id)
	}
	text := rec.TranslatedText
	status := rec.Status
	q.mu.Unlock()

	if text == "" {
		return fmt.Errorf("translation %d has no text to speak (status %s)", id, status)
	}

	q.mu.Lock()
	q.workS = append(q.workS, speechJob{id: id, text: text})
	q.mu.Unlock()
	signal(q.wakeS)
	return nil
}

// CancelAudio drains the playback queue and stops the current playback.
func (q *Queue) CancelAudio() {
	q.playback.Cancel()
}

// AudioStatus reports playback state for the status surface.
func (q *Queue) AudioStatus() (isPlaying bool, queueSize int) {
	return q.playback.Status()
}

// Recent returns up to n record snapshots, newest first.
func (q *Queue) Recent(n int) []Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > len(q.order) {
		n = len(q.order)
	}

	out := make([]Record, 0, n)
	for i := len(q.order) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *q.records[q.order[i]])
	}
	return out
}

// Get returns a snapshot of one record.
func (q *Queue) Get(id int64) (Record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (q *Queue) runTranslation(ctx context.Context) {
	defer q.wg.Done()

	for {
		id, ok := q.nextTranslation()
		if !ok {
			select {
			case <-q.stopCh:
				return
			case <-q.wakeT:
				continue
			}
		}

		q.translateOne(ctx, id)

		select {
		case <-q.stopCh:
			return
		default:
		}
	}
}

func (q *Queue) translateOne(ctx context.Context, id int64) {
	rec := q.update(id, func(r *Record) {
		r.Status = sentence.StatusTranslating
	})
	if rec == nil {
		return
	}

	// Short sentences skip the network round trip
	if q.config.ShortSentenceMax > 0 && len(rec.Words) < q.config.ShortSentenceMax {
		done := q.update(id, func(r *Record) {
			r.TranslatedText = r.RawText
			r.Status = sentence.StatusTranslated
			now := time.Now()
			r.CompletedAt = &now
		})
		q.archive(done)
		q.queueSpeech(id, done.TranslatedText)
		return
	}

	var translated string
	var err error
	for attempt := 0; attempt <= q.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * q.config.RetryBackoff):
			case <-q.stopCh:
				return
			}
		}

		translated, err = q.translator.Translate(ctx, rec.Words, q.config.ContextHint)
		if err == nil {
			break
		}
		log.Printf("dispatch: translation attempt %d for sentence %d failed: %v", attempt+1, id, err)
	}

	if err != nil {
		done := q.update(id, func(r *Record) {
			r.Status = sentence.StatusFailed
			r.Error = err.Error()
			now := time.Now()
			r.CompletedAt = &now
		})
		q.archive(done)
		return
	}

	done := q.update(id, func(r *Record) {
		r.TranslatedText = translated
		r.Status = sentence.StatusTranslated
		now := time.Now()
		r.CompletedAt = &now
	})
	q.archive(done)
	q.queueSpeech(id, translated)
}

func (q *Queue) runSpeech(ctx context.Context) {
	defer q.wg.Done()

	for {
		job, ok := q.nextSpeech()
		if !ok {
			select {
			case <-q.stopCh:
				return
			case <-q.wakeS:
				continue
			}
		}

		audio, err := q.synth.Synthesize(ctx, job.text, q.config.VoiceID)
		if err != nil {
			// Skip playback for this item, keep the queue moving
			log.Printf("dispatch: speech synthesis for sentence %d failed: %v", job.id, err)
		} else {
			q.playback.Enqueue(job.id, audio)
		}

		select {
		case <-q.stopCh:
			return
		default:
		}
	}
}

func (q *Queue) queueSpeech(id int64, text string) {
	if !q.config.SpeechEnabled || text == "" {
		return
	}
	q.mu.Lock()
	q.workS = append(q.workS, speechJob{id: id, text: text})
	q.mu.Unlock()
	signal(q.wakeS)
}

func (q *Queue) onPlaybackDone(id int64, err error) {
	if err != nil {
		return
	}
	done := q.update(id, func(r *Record) {
		if r.Status == sentence.StatusTranslated {
			r.Status = sentence.StatusSpoken
		}
	})
	q.archive(done)
}

func (q *Queue) nextTranslation() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.workT) == 0 {
		return 0, false
	}
	id := q.workT[0]
	q.workT = q.workT[1:]
	return id, true
}

func (q *Queue) nextSpeech() (speechJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.workS) == 0 {
		return speechJob{}, false
	}
	job := q.workS[0]
	q.workS = q.workS[1:]
	return job, true
}

// update applies fn to the record under lock and returns a snapshot.
func (q *Queue) update(id int64, fn func(*Record)) *Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, ok := q.records[id]
	if !ok {
		return nil
	}
	fn(rec)
	snapshot := *rec
	return &snapshot
}

func (q *Queue) archive(rec *Record) {
	if q.archiver == nil || rec == nil {
		return
	}
	if err := q.archiver.SaveTranslation(rec); err != nil {
		log.Printf("dispatch: failed to persist record %d: %v", rec.ID, err)
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
