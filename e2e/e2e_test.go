package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/insync/internal/app"
	"github.com/ayusman/insync/internal/capture"
	"github.com/ayusman/insync/internal/detector"
	"github.com/ayusman/insync/internal/dispatch"
	"github.com/ayusman/insync/internal/sentence"
	"github.com/ayusman/insync/internal/server"
	"github.com/ayusman/insync/internal/smoother"
	"github.com/ayusman/insync/internal/speech"
	"github.com/ayusman/insync/internal/store"
	"github.com/ayusman/insync/internal/translate"
)

type instantPlayer struct{}

func (instantPlayer) Play(ctx context.Context, audio []byte) error { return ctx.Err() }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	det := detector.NewMockDetector()
	det.SetHands([]detector.HandLandmarks{detector.ThumbsUpLandmarks()})

	dispatchConfig := dispatch.DefaultConfig()
	dispatchConfig.RetryBackoff = time.Millisecond

	application, err := app.New(app.Config{
		Camera:      capture.NewMockCamera([]*gocv.Mat{&frame}, true),
		Detector:    det,
		Translator:  translate.NewStub(),
		Synthesizer: speech.NewStub(),
		Player:      instantPlayer{},
		Store:       s,
		Smoother:    smoother.DefaultConfig(),
		Sentence:    sentence.DefaultConfig(),
		Dispatch:    dispatchConfig,
	})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}
	defer application.Shutdown()

	srv := server.New(server.Config{Store: s, Control: application})
	ts := httptest.NewServer(srv)
	defer ts.Close()

	client := ts.Client()

	post := func(t *testing.T, path string, body any) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		resp, err := client.Post(ts.URL+path, "application/json", &buf)
		if err != nil {
			t.Fatalf("POST %s error = %v", path, err)
		}
		return resp
	}

	t.Run("RemapGesture", func(t *testing.T) {
		resp := post(t, "/api/mappings", map[string]string{"gesture": "GOOD", "word": "GREAT"})
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	t.Run("StartPipeline", func(t *testing.T) {
		resp := post(t, "/api/start", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		waitFor(t, func() bool {
			st := application.Status()
			return st.SystemState == app.StateRunning && st.CurrentSentence == "GREAT"
		}, "pipeline never confirmed the remapped gesture")
	})

	t.Run("ForceAndSpeak", func(t *testing.T) {
		resp := post(t, "/api/force_sentence", nil)
		defer resp.Body.Close()

		var forceResp struct {
			Finalized bool `json:"finalized"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&forceResp); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if !forceResp.Finalized {
			t.Fatal("force_sentence did not finalize")
		}

		waitFor(t, func() bool {
			recent := application.Recent(1)
			return len(recent) == 1 && recent[0].Status == sentence.StatusSpoken
		}, "forced sentence never spoken")
	})

	t.Run("HistoryViaAPI", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/translations")
		if err != nil {
			t.Fatalf("GET /api/translations error = %v", err)
		}
		defer resp.Body.Close()

		var listResp struct {
			Translations []dispatch.Record `json:"translations"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
			t.Fatalf("decode error = %v", err)
		}
		if len(listResp.Translations) != 1 {
			t.Fatalf("expected 1 translation, got %d", len(listResp.Translations))
		}
		rec := listResp.Translations[0]
		if rec.RawText != "GREAT" {
			t.Errorf("raw text = %q, want GREAT (remapped)", rec.RawText)
		}
		if !strings.Contains(rec.TranslatedText, "Great") {
			t.Errorf("translated text = %q", rec.TranslatedText)
		}
	})

	t.Run("HistoryPersisted", func(t *testing.T) {
		rows, err := s.Translations().Recent(10)
		if err != nil {
			t.Fatalf("Recent() error = %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 persisted translation, got %d", len(rows))
		}
		if rows[0].Status != string(sentence.StatusSpoken) {
			t.Errorf("persisted status = %q, want %q", rows[0].Status, sentence.StatusSpoken)
		}
	})

	t.Run("Replay", func(t *testing.T) {
		id := application.Recent(1)[0].ID
		resp := post(t, "/api/translations/"+strconv.FormatInt(id, 10)+"/speak", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}
	})

	t.Run("StopPipeline", func(t *testing.T) {
		resp := post(t, "/api/stop", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if st := application.Status().SystemState; st != app.StateStopped {
			t.Errorf("state = %q after stop", st)
		}
	})
}

// TestE2E_AbsenceFinalization drives the smoothing, segmentation and dispatch
// stages directly: a signer holds WATER, drops their hands, and the sentence
// is finalized and spoken after the absence timeout.
func TestE2E_AbsenceFinalization(t *testing.T) {
	config := dispatch.DefaultConfig()
	config.RetryBackoff = time.Millisecond

	queue, err := dispatch.New(config, translate.NewStub(), speech.NewStub(), instantPlayer{}, nil)
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}
	queue.Start()
	defer queue.Stop()

	builder, err := sentence.New(sentence.DefaultConfig(), func(s *sentence.Sentence) {
		queue.Enqueue(s)
	})
	if err != nil {
		t.Fatalf("sentence.New() error = %v", err)
	}

	sm, err := smoother.New(smoother.DefaultConfig())
	if err != nil {
		t.Fatalf("smoother.New() error = %v", err)
	}

	now := time.Now()

	// Signer holds WATER for a full window of frames
	for i := 0; i < 9; i++ {
		at := now.Add(time.Duration(i) * 66 * time.Millisecond)
		builder.ObserveHands(1, at)
		if confirmed, ok := sm.Observe(0, "WATER", 0.9, at); ok {
			builder.Push(confirmed.Label, at)
		}
	}
	if got := builder.CurrentText(); got != "WATER" {
		t.Fatalf("current text = %q, want WATER", got)
	}

	// Hands leave the frame; watchdog ticks past the absence timeout
	for i := 1; i <= 6; i++ {
		builder.Tick(now.Add(time.Duration(i) * 1100 * time.Millisecond))
	}
	if builder.Building() {
		t.Error("builder still building after absence timeout")
	}

	waitFor(t, func() bool {
		recent := queue.Recent(1)
		return len(recent) == 1 && recent[0].Status == sentence.StatusSpoken
	}, "sentence never made it through translation and speech")

	rec := queue.Recent(1)[0]
	if rec.RawText != "WATER" {
		t.Errorf("raw text = %q, want WATER", rec.RawText)
	}
	if rec.TranslatedText == "" {
		t.Error("translated text empty")
	}
}

// TestE2E_SilentSession verifies that a session with hands but no confirmed
// gestures is recorded as silent and never reaches translation or speech.
func TestE2E_SilentSession(t *testing.T) {
	config := dispatch.DefaultConfig()
	config.RetryBackoff = time.Millisecond

	translator := translate.NewStub()
	queue, err := dispatch.New(config, translator, speech.NewStub(), instantPlayer{}, nil)
	if err != nil {
		t.Fatalf("dispatch.New() error = %v", err)
	}
	queue.Start()
	defer queue.Stop()

	builder, err := sentence.New(sentence.DefaultConfig(), func(s *sentence.Sentence) {
		queue.Enqueue(s)
	})
	if err != nil {
		t.Fatalf("sentence.New() error = %v", err)
	}

	now := time.Now()
	builder.ObserveHands(1, now)
	if !builder.Building() {
		t.Fatal("hands in frame should open a session")
	}

	builder.Tick(now.Add(6 * time.Second))

	waitFor(t, func() bool {
		recent := queue.Recent(1)
		return len(recent) == 1 && recent[0].Status == sentence.StatusSilent
	}, "silent session never recorded")

	if translator.Calls() != 0 {
		t.Errorf("translator called %d times for a silent session", translator.Calls())
	}
}
