package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/insync/internal/sentence"
	"github.com/ayusman/insync/internal/speech"
	"github.com/ayusman/insync/internal/translate"
)

// nullPlayer plays instantly.
type nullPlayer struct {
	mu     sync.Mutex
	played int
}

func (p *nullPlayer) Play(ctx context.Context, audio []byte) error {
	p.mu.Lock()
	p.played++
	p.mu.Unlock()
	return ctx.Err()
}

func (p *nullPlayer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.played
}

// memArchive records every snapshot it is handed.
type memArchive struct {
	mu    sync.Mutex
	saved []Record
}

func (a *memArchive) SaveTranslation(rec *Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saved = append(a.saved, *rec)
	return nil
}

func testConfig() Config {
	config := DefaultConfig()
	config.RetryBackoff = time.Millisecond
	return config
}

func newQueue(t *testing.T, config Config) (*Queue, *translate.Stub, *speech.Stub, *nullPlayer) {
	t.Helper()
	tr := translate.NewStub()
	sy := speech.NewStub()
	pl := &nullPlayer{}
	q, err := New(config, tr, sy, pl, nil)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return q, tr, sy, pl
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func finalized(words ...string) *sentence.Sentence {
	status := sentence.StatusPendingTranslation
	if len(words) == 0 {
		status = sentence.StatusSilent
	}
	return &sentence.Sentence{
		Words:     words,
		Status:    status,
		CreatedAt: time.Now(),
	}
}

func TestEnqueue_MonotonicIDs(t *testing.T) {
	q, _, _, _ := newQueue(t, testConfig())

	a := q.Enqueue(finalized("HELLO"))
	b := q.Enqueue(finalized("WATER"))
	c := q.Enqueue(finalized())

	if !(a < b && b < c) {
		t.Errorf("ids not monotonically increasing: %d, %d, %d", a, b, c)
	}
}

func TestPipeline_TranslateAndSpeak(t *testing.T) {
	q, tr, sy, pl := newQueue(t, testConfig())
	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized("I", "WANT", "WATER"))

	waitFor(t, func() bool {
		rec, ok := q.Get(id)
		return ok && rec.Status == sentence.StatusSpoken
	}, "sentence never reached spoken status")

	rec, _ := q.Get(id)
	if rec.RawText != "I WANT WATER" {
		t.Errorf("raw text = %q", rec.RawText)
	}
	if rec.TranslatedText != "I want water." {
		t.Errorf("translated text = %q", rec.TranslatedText)
	}
	if tr.Calls() != 1 {
		t.Errorf("translator called %d times, want 1", tr.Calls())
	}
	if sy.Calls() != 1 {
		t.Errorf("synthesizer called %d times, want 1", sy.Calls())
	}
	if pl.count() != 1 {
		t.Errorf("player invoked %d times, want 1", pl.count())
	}
}

// An always-failing translator is attempted exactly MaxRetries+1 times and
// the next sentence is still processed.
func TestTranslation_RetryBound(t *testing.T) {
	q, tr, _, _ := newQueue(t, testConfig())
	tr.SetError(errors.New("upstream down"))

	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized("HELLO"))

	waitFor(t, func() bool {
		rec, ok := q.Get(id)
		return ok && rec.Status == sentence.StatusFailed
	}, "sentence never marked failed")

	if got := tr.Calls(); got != DefaultMaxRetries+1 {
		t.Errorf("translator called %d times, want %d", got, DefaultMaxRetries+1)
	}

	rec, _ := q.Get(id)
	if rec.Error == "" {
		t.Error("failed record should carry the error text")
	}

	// Worker must survive the failure
	tr.SetError(nil)
	id2 := q.Enqueue(finalized("WATER"))
	waitFor(t, func() bool {
		rec, ok := q.Get(id2)
		return ok && rec.Status == sentence.StatusSpoken
	}, "worker did not process the sentence after a failure")
}

func TestSilentSentence_NeverTranslated(t *testing.T) {
	q, tr, sy, _ := newQueue(t, testConfig())
	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized())

	rec, ok := q.Get(id)
	if !ok {
		t.Fatal("silent record missing")
	}
	if rec.Status != sentence.StatusSilent {
		t.Errorf("status = %q, want %q", rec.Status, sentence.StatusSilent)
	}

	// Give the workers a moment to (incorrectly) pick it up
	time.Sleep(50 * time.Millisecond)
	if tr.Calls() != 0 {
		t.Errorf("translator called %d times for silent sentence", tr.Calls())
	}
	if sy.Calls() != 0 {
		t.Errorf("synthesizer called %d times for silent sentence", sy.Calls())
	}
}

func TestShortSentenceBypass(t *testing.T) {
	config := testConfig()
	config.ShortSentenceMax = 2
	q, tr, _, _ := newQueue(t, config)
	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized("HELLO"))

	waitFor(t, func() bool {
		rec, ok := q.Get(id)
		return ok && rec.Status == sentence.StatusSpoken
	}, "bypassed sentence never spoken")

	rec, _ := q.Get(id)
	if rec.TranslatedText != "HELLO" {
		t.Errorf("bypass should speak raw words, got %q", rec.TranslatedText)
	}
	if tr.Calls() != 0 {
		t.Errorf("translator called %d times despite bypass", tr.Calls())
	}
}

// A synthesis failure skips playback but leaves the translation intact and
// keeps the queue moving.
func TestSpeechFailure_SkipsPlayback(t *testing.T) {
	q, _, sy, pl := newQueue(t, testConfig())
	sy.SetError(errors.New("no quota"))

	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized("HELLO"))

	waitFor(t, func() bool {
		return sy.Calls() == 1
	}, "synthesizer never called")

	time.Sleep(50 * time.Millisecond)

	rec, _ := q.Get(id)
	if rec.Status != sentence.StatusTranslated {
		t.Errorf("status = %q, want %q after speech failure", rec.Status, sentence.StatusTranslated)
	}
	if pl.count() != 0 {
		t.Errorf("player invoked %d times after synthesis failure", pl.count())
	}

	// Next item flows normally
	sy.SetError(nil)
	id2 := q.Enqueue(finalized("WATER"))
	waitFor(t, func() bool {
		rec, ok := q.Get(id2)
		return ok && rec.Status == sentence.StatusSpoken
	}, "queue stalled after synthesis failure")
}

func TestSpeakText(t *testing.T) {
	q, tr, _, _ := newQueue(t, testConfig())
	q.Start()
	defer q.Stop()

	id, err := q.SpeakText("Good morning!")
	if err != nil {
		t.Fatalf("SpeakText() failed: %v", err)
	}

	waitFor(t, func() bool {
		rec, ok := q.Get(id)
		return ok && rec.Status == sentence.StatusSpoken
	}, "custom text never spoken")

	if tr.Calls() != 0 {
		t.Error("custom text must not go through translation")
	}

	if _, err := q.SpeakText("   "); err == nil {
		t.Error("expected error for blank text")
	}
}

func TestReplay(t *testing.T) {
	q, _, sy, _ := newQueue(t, testConfig())
	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized("HELLO"))
	waitFor(t, func() bool {
		rec, ok := q.Get(id)
		return ok && rec.Status == sentence.StatusSpoken
	}, "sentence never spoken")

	before := sy.Calls()
	if err := q.Replay(id); err != nil {
		t.Fatalf("Replay() failed: %v", err)
	}
	waitFor(t, func() bool { return sy.Calls() == before+1 }, "replay never synthesized")

	if err := q.Replay(9999); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestRecent_NewestFirst(t *testing.T) {
	q, _, _, _ := newQueue(t, testConfig())

	q.Enqueue(finalized("ONE"))
	q.Enqueue(finalized("TWO"))
	q.Enqueue(finalized("THREE"))

	recent := q.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d records", len(recent))
	}
	if recent[0].RawText != "THREE" || recent[1].RawText != "TWO" {
		t.Errorf("Recent(2) = [%q, %q], want newest first", recent[0].RawText, recent[1].RawText)
	}

	all := q.Recent(0)
	if len(all) != 3 {
		t.Errorf("Recent(0) returned %d records, want all 3", len(all))
	}
}

func TestArchiverReceivesTerminalStates(t *testing.T) {
	arch := &memArchive{}
	tr := translate.NewStub()
	sy := speech.NewStub()
	q, err := New(testConfig(), tr, sy, &nullPlayer{}, arch)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	q.Start()
	defer q.Stop()

	id := q.Enqueue(finalized("HELLO"))
	waitFor(t, func() bool {
		rec, ok := q.Get(id)
		return ok && rec.Status == sentence.StatusSpoken
	}, "sentence never spoken")

	arch.mu.Lock()
	defer arch.mu.Unlock()

	var sawSpoken bool
	for _, rec := range arch.saved {
		if rec.ID == id && rec.Status == sentence.StatusSpoken {
			sawSpoken = true
		}
	}
	if !sawSpoken {
		t.Error("archiver never saw the spoken snapshot")
	}
}

func TestRecordJSON_CompletedAtOnlyWhenDone(t *testing.T) {
	rec := Record{
		ID:        1,
		Words:     []string{"HELLO"},
		RawText:   "HELLO",
		Status:    sentence.StatusTranslating,
		CreatedAt: time.Now(),
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "completed_at") {
		t.Errorf("in-flight record must not expose completed_at: %s", data)
	}

	now := time.Now()
	rec.Status = sentence.StatusSpoken
	rec.CompletedAt = &now

	data, err = json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), "completed_at") {
		t.Errorf("finished record must expose completed_at: %s", data)
	}
}

func TestConfigValidation(t *testing.T) {
	tr := translate.NewStub()
	sy := speech.NewStub()
	pl := &nullPlayer{}

	bad := []Config{
		{MaxRetries: -1},
		{RetryBackoff: -time.Second},
		{ShortSentenceMax: -2},
	}
	for _, config := range bad {
		if _, err := New(config, tr, sy, pl, nil); err == nil {
			t.Errorf("expected validation error for %+v", config)
		}
	}

	if _, err := New(DefaultConfig(), nil, sy, pl, nil); err == nil {
		t.Error("expected error for nil translator")
	}
	if _, err := New(DefaultConfig(), tr, nil, pl, nil); err == nil {
		t.Error("expected error for nil synthesizer")
	}
	if _, err := New(DefaultConfig(), tr, sy, nil, nil); err == nil {
		t.Error("expected error for nil player")
	}
}
