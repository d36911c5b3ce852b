package audio

import (
	"context"
	"log"
	"sync"
)

// Item is one queued playback: the sentence id it belongs to plus the
// synthesized audio bytes.
type Item struct {
	ID    int64
	Audio []byte
}

// Queue serializes audio playback: FIFO order, one item playing at a time.
// Cancel atomically drains the queue and stops the in-flight playback.
type Queue struct {
	player Player
	onDone func(id int64, err error)

	mu            sync.Mutex
	pending       []Item
	playing       bool
	cancelCurrent context.CancelFunc
	started       bool

	wake   chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewQueue creates a playback queue. onDone, if non-nil, is called after
// each item finishes (or fails) playing; it is not called for cancelled or
// drained items.
func NewQueue(player Player, onDone func(id int64, err error)) *Queue {
	return &Queue{
		player: player,
		onDone: onDone,
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Start launches the playback worker.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true

	q.wg.Add(1)
	go q.run()
}

// Stop cancels any playback and waits for the worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	close(q.stopCh)
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
	q.mu.Unlock()

	q.wg.Wait()
}

// Enqueue appends an item for playback and returns immediately.
func (q *Queue) Enqueue(id int64, audio []byte) {
	q.mu.Lock()
	q.pending = append(q.pending, Item{ID: id, Audio: audio})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Cancel drains the pending queue and stops the currently playing item.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = nil
	if q.cancelCurrent != nil {
		q.cancelCurrent()
	}
}

// Status reports whether audio is playing and how many items are waiting.
func (q *Queue) Status() (isPlaying bool, queueSize int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing, len(q.pending)
}

func (q *Queue) run() {
	defer q.wg.Done()

	for {
		item, ok := q.next()
		if !ok {
			select {
			case <-q.stopCh:
				return
			case <-q.wake:
				continue
			}
		}

		ctx, cancel := context.WithCancel(context.Background())

		q.mu.Lock()
		q.playing = true
		q.cancelCurrent = cancel
		q.mu.Unlock()

		err := q.player.Play(ctx, item.Audio)
		cancelled := ctx.Err() == context.Canceled
		cancel()

		q.mu.Lock()
		q.playing = false
		q.cancelCurrent = nil
		q.mu.Unlock()

		if err != nil {
			log.Printf("audio: playback of sentence %d failed: %v", item.ID, err)
		}
		if q.onDone != nil && !cancelled {
			q.onDone(item.ID, err)
		}

		select {
		case <-q.stopCh:
			return
		default:
		}
	}
}

func (q *Queue) next() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return Item{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	return item, true
}
