package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/insync/internal/classifier"
)

// runPipeline is the producer loop: read a frame, detect landmarks,
// classify each hand, feed the smoother and sentence builder. It never
// blocks on network I/O; translation and speech happen on the worker side
// of the dispatch queue.
func (a *App) runPipeline(stopCh chan struct{}) {
	defer a.wg.Done()

	interval := time.Second / ActiveFPS
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			// Camera failure is fatal to the producer; workers keep
			// draining their queues.
			a.setError(err)
			return
		}

		now := time.Now()

		moving, _ := a.motion.Detect(frame)
		a.processFrame(frame, now)
		frame.Close()

		// Idle scenes drop the capture rate
		want := time.Second / ActiveFPS
		if !moving {
			want = time.Second / IdleFPS
		}
		if want != interval {
			interval = want
			ticker.Reset(interval)
		}
	}
}

// processFrame runs detection and classification for one frame.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) {
	if buf, err := gocv.IMEncode(".jpg", *frame); err == nil {
		a.mu.Lock()
		a.frame = append(a.frame[:0], buf.GetBytes()...)
		a.mu.Unlock()
		buf.Close()
	}

	detection, err := a.detector.Detect(frame)
	if err != nil {
		// Transient detector trouble is noise, not a pipeline failure
		log.Printf("app: detect: %v", err)
		return
	}

	hands := detection.Hands

	a.mu.Lock()
	a.hands = len(hands)
	overrides := a.overrides
	a.mu.Unlock()

	a.builder.ObserveHands(len(hands), now)
	a.smoother.Retain(len(hands))

	for i := range hands {
		res := classifier.Classify(&hands[i], detection.Face)
		confirmed, ok := a.smoother.Observe(i, res.Label, res.Confidence, now)
		if !ok {
			continue
		}

		word := confirmed.Label
		if mapped, found := overrides[word]; found {
			word = mapped
		}
		a.builder.Push(word, confirmed.Timestamp)
	}
}

// runWatchdog re-evaluates sentence timeouts on a fixed interval so
// finalization happens even when frames stop arriving.
func (a *App) runWatchdog(stopCh chan struct{}) {
	defer a.wg.Done()

	ticker := time.NewTicker(WatchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			now := time.Now()
			a.builder.Tick(now)
			a.smoother.ClearStale(now)
		}
	}
}
