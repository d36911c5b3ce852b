// Package app wires the InSync pipeline together: camera capture, landmark
// detection, per-frame classification, gesture smoothing, sentence building
// and the translation/speech workers, all behind one lifecycle.
package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/insync/internal/audio"
	"github.com/ayusman/insync/internal/capture"
	"github.com/ayusman/insync/internal/detector"
	"github.com/ayusman/insync/internal/dispatch"
	"github.com/ayusman/insync/internal/sentence"
	"github.com/ayusman/insync/internal/smoother"
	"github.com/ayusman/insync/internal/speech"
	"github.com/ayusman/insync/internal/store"
	"github.com/ayusman/insync/internal/translate"
)

// System states surfaced to the presentation layer.
const (
	StateRunning = "running"
	StateStopped = "stopped"
	StateError   = "error"
)

// Capture rates: the pipeline drops to IdleFPS when the scene is still.
const (
	IdleFPS   = 5
	ActiveFPS = 15
)

// WatchdogInterval is how often sentence timeouts are re-evaluated,
// independent of frame arrival.
const WatchdogInterval = 250 * time.Millisecond

// AudioStatus describes the playback queue for the status surface.
type AudioStatus struct {
	IsPlaying bool `json:"is_playing"`
	QueueSize int  `json:"queue_size"`
}

// Status is the poll/push payload exposed to clients.
type Status struct {
	SystemState        string            `json:"system_state"`
	CurrentSentence    string            `json:"current_sentence"`
	CurrentGesture     string            `json:"current_gesture"`
	HandsDetected      int               `json:"hands_detected"`
	RecentTranslations []dispatch.Record `json:"recent_translations"`
	AudioStatus        AudioStatus       `json:"audio_status"`
}

// Config assembles the pipeline's collaborators and tuning. Camera,
// Detector, Translator, Synthesizer and Player are required; Store is
// optional (no persistence without it).
type Config struct {
	Camera      capture.Camera
	Detector    detector.Detector
	Translator  translate.Translator
	Synthesizer speech.Synthesizer
	Player      audio.Player
	Store       *store.Store

	Smoother smoother.Config
	Sentence sentence.Config
	Dispatch dispatch.Config

	// MotionThreshold is the percent of changed pixels that counts as an
	// active scene. Zero uses a default of 1%.
	MotionThreshold float64
}

// App is the long-lived pipeline context. All operations are safe for
// concurrent use by the HTTP server, the tray and the watchdog.
type App struct {
	config   Config
	camera   capture.Camera
	detector detector.Detector
	motion   *capture.MotionDetector
	smoother *smoother.Smoother
	builder  *sentence.Builder
	queue    *dispatch.Queue
	store    *store.Store

	mu        sync.Mutex
	state     string
	lastError error
	hands     int
	overrides map[string]string
	frame     []byte
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New validates the config and builds the pipeline. Workers are not running
// until Start is called; translation/speech workers run for the life of the
// App so queued sentences drain even while capture is stopped.
func New(config Config) (*App, error) {
	if config.Camera == nil {
		return nil, fmt.Errorf("camera is required")
	}
	if config.Detector == nil {
		return nil, fmt.Errorf("detector is required")
	}

	sm, err := smoother.New(config.Smoother)
	if err != nil {
		return nil, err
	}

	var archiver dispatch.Archiver
	if config.Store != nil {
		archiver = &storeArchiver{repo: config.Store.Translations()}
	}

	queue, err := dispatch.New(config.Dispatch, config.Translator, config.Synthesizer, config.Player, archiver)
	if err != nil {
		return nil, err
	}

	builder, err := sentence.New(config.Sentence, func(s *sentence.Sentence) {
		queue.Enqueue(s)
	})
	if err != nil {
		return nil, err
	}

	threshold := config.MotionThreshold
	if threshold <= 0 {
		threshold = 1.0
	}

	a := &App{
		config:    config,
		camera:    config.Camera,
		detector:  config.Detector,
		motion:    capture.NewMotionDetector(threshold),
		smoother:  sm,
		builder:   builder,
		queue:     queue,
		store:     config.Store,
		state:     StateStopped,
		overrides: map[string]string{},
	}

	if err := a.ReloadMappings(); err != nil {
		return nil, fmt.Errorf("load gesture mappings: %w", err)
	}

	queue.Start()
	return a, nil
}

// Start opens the camera and launches the capture pipeline and watchdog.
// Restarting from the error state is allowed.
func (a *App) Start() error {
	a.mu.Lock()
	if a.state == StateRunning {
		a.mu.Unlock()
		return nil
	}

	// A capture failure leaves the watchdog running; wind it down before
	// relaunching so the old goroutine is not orphaned.
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
		a.mu.Unlock()
		a.wg.Wait()
		a.mu.Lock()
		if a.state == StateRunning {
			a.mu.Unlock()
			return nil
		}
	}

	if err := a.camera.Open(); err != nil {
		a.state = StateError
		a.lastError = err
		a.mu.Unlock()
		return fmt.Errorf("open camera: %w", err)
	}

	a.state = StateRunning
	a.lastError = nil
	a.stopCh = make(chan struct{})
	stopCh := a.stopCh
	a.mu.Unlock()

	a.wg.Add(2)
	go a.runPipeline(stopCh)
	go a.runWatchdog(stopCh)

	log.Println("app: detection started")
	return nil
}

// Stop halts capture. Queued sentences keep draining through the workers.
func (a *App) Stop() error {
	a.mu.Lock()
	if a.state != StateRunning && a.state != StateError {
		a.mu.Unlock()
		return nil
	}
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
	a.state = StateStopped
	a.hands = 0
	a.frame = nil
	a.mu.Unlock()

	a.wg.Wait()

	a.motion.Reset()
	a.smoother.Reset()

	err := a.camera.Close()
	log.Println("app: detection stopped")
	return err
}

// Shutdown stops capture and the worker queues. The App is unusable
// afterwards.
func (a *App) Shutdown() {
	a.Stop()
	a.queue.Stop()
	if err := a.detector.Close(); err != nil {
		log.Printf("app: detector close: %v", err)
	}
}

// ForceSentence finalizes the in-progress sentence immediately. Reports
// whether anything was handed off.
func (a *App) ForceSentence() bool {
	return a.builder.Force(time.Now())
}

// ClearAll discards the in-progress sentence and all hand-slot state.
func (a *App) ClearAll() {
	a.builder.Clear()
	a.smoother.Reset()
}

// CancelAudio stops playback and drains the audio queue.
func (a *App) CancelAudio() {
	a.queue.CancelAudio()
}

// SpeakText synthesizes arbitrary text outside the gesture pipeline.
func (a *App) SpeakText(text string) (int64, error) {
	return a.queue.SpeakText(text)
}

// Replay speaks a past translation again by id.
func (a *App) Replay(id int64) error {
	return a.queue.Replay(id)
}

// Recent returns the latest translation records, newest first.
func (a *App) Recent(n int) []dispatch.Record {
	return a.queue.Recent(n)
}

// ReloadMappings refreshes the gesture-to-word overrides from the store.
func (a *App) ReloadMappings() error {
	if a.store == nil {
		return nil
	}

	overrides, err := a.store.Mappings().AsOverrides()
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.overrides = overrides
	a.mu.Unlock()
	return nil
}

// Status reports the pipeline state for polling and push updates.
func (a *App) Status() Status {
	a.mu.Lock()
	state := a.state
	hands := a.hands
	a.mu.Unlock()

	isPlaying, queueSize := a.queue.AudioStatus()

	return Status{
		SystemState:     state,
		CurrentSentence: a.builder.CurrentText(),
		CurrentGesture:  a.smoother.Current(),
		HandsDetected:   hands,
		RecentTranslations: a.queue.Recent(10),
		AudioStatus: AudioStatus{
			IsPlaying: isPlaying,
			QueueSize: queueSize,
		},
	}
}

// LatestFrame returns the most recent JPEG-encoded camera frame, or nil
// when capture is not running.
func (a *App) LatestFrame() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.frame == nil {
		return nil
	}
	frame := make([]byte, len(a.frame))
	copy(frame, a.frame)
	return frame
}

func (a *App) setError(err error) {
	a.mu.Lock()
	a.state = StateError
	a.lastError = err
	a.mu.Unlock()
	log.Printf("app: capture failed: %v", err)
}

// storeArchiver adapts the translation repository to the dispatch queue.
type storeArchiver struct {
	repo *store.TranslationRepository
}

func (s *storeArchiver) SaveTranslation(rec *dispatch.Record) error {
	t := &store.Translation{
		ID:             rec.ID,
		RawText:        rec.RawText,
		TranslatedText: rec.TranslatedText,
		Status:         string(rec.Status),
		Error:          rec.Error,
		CreatedAt:      rec.CreatedAt,
	}
	if rec.CompletedAt != nil {
		t.CompletedAt = *rec.CompletedAt
	}
	return s.repo.Save(t)
}
