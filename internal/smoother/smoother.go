// Package smoother converts the noisy per-frame gesture label stream into a
// stable, debounced confirmed label per tracked hand.
package smoother

import (
	"fmt"
	"sync"
	"time"
)

// Default smoothing parameters.
const (
	DefaultWindowSize     = 9
	DefaultMinConsensus   = 0.6
	DefaultMinHoldFrames  = 3
	DefaultCooldown       = 500 * time.Millisecond
	DefaultAbsenceTimeout = 5 * time.Second
)

// Config holds the smoothing parameters. All fields must be positive;
// invalid values are rejected at construction, never clamped.
type Config struct {
	// WindowSize is the sliding-window capacity per hand slot.
	WindowSize int

	// MinConsensus is the frequency ratio a label must reach within the
	// window to become a confirmation candidate (0..1].
	MinConsensus float64

	// MinHoldFrames is how many consecutive most-recent observations must
	// agree with the candidate before it confirms. Prevents a single
	// majority flip from firing immediately.
	MinHoldFrames int

	// Cooldown is the minimum wall-clock gap between two confirmations on
	// the same slot.
	Cooldown time.Duration

	// AbsenceTimeout is how long a slot may go unobserved before its
	// window and confirmed label are cleared.
	AbsenceTimeout time.Duration
}

// DefaultConfig returns the standard smoothing parameters.
func DefaultConfig() Config {
	return Config{
		WindowSize:     DefaultWindowSize,
		MinConsensus:   DefaultMinConsensus,
		MinHoldFrames:  DefaultMinHoldFrames,
		Cooldown:       DefaultCooldown,
		AbsenceTimeout: DefaultAbsenceTimeout,
	}
}

func (c Config) validate() error {
	if c.WindowSize <= 0 {
		return fmt.Errorf("window size must be positive, got %d", c.WindowSize)
	}
	if c.MinConsensus <= 0 || c.MinConsensus > 1 {
		return fmt.Errorf("min consensus must be in (0,1], got %f", c.MinConsensus)
	}
	if c.MinHoldFrames <= 0 {
		return fmt.Errorf("min hold frames must be positive, got %d", c.MinHoldFrames)
	}
	if c.MinHoldFrames > c.WindowSize {
		return fmt.Errorf("min hold frames (%d) cannot exceed window size (%d)", c.MinHoldFrames, c.WindowSize)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown must not be negative, got %v", c.Cooldown)
	}
	if c.AbsenceTimeout <= 0 {
		return fmt.Errorf("absence timeout must be positive, got %v", c.AbsenceTimeout)
	}
	return nil
}

// ConfirmedGesture is emitted when a label reaches consensus on a slot.
// Immutable once emitted; ordered by Timestamp per slot.
type ConfirmedGesture struct {
	SlotID    int
	Label     string
	Timestamp time.Time
}

// observation is one frame's raw guess for one hand. An empty label means
// no confident gesture this frame.
type observation struct {
	label      string
	confidence float64
	at         time.Time
}

// slot tracks one hand index. Slots are not persistent hand identities;
// they are recycled as the detector's hand ordering changes.
type slot struct {
	window      []observation
	confirmed   string
	confirmedAt time.Time
	lastSeen    time.Time
}

// Smoother debounces per-frame gesture guesses into confirmed labels.
// Safe for concurrent use; the capture loop observes while the watchdog
// clears stale slots.
type Smoother struct {
	config Config

	mu    sync.Mutex
	slots map[int]*slot
}

// New creates a Smoother with the given config.
func New(config Config) (*Smoother, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid smoother config: %w", err)
	}
	return &Smoother{
		config: config,
		slots:  make(map[int]*slot),
	}, nil
}

// Observe records one frame's guess for one hand slot and reports whether
// the observation caused a new confirmation. Confidence outside [0,1] is
// clamped, not rejected: this is a best-effort filter that must never stall
// the capture loop.
func (s *Smoother) Observe(slotID int, label string, confidence float64, at time.Time) (ConfirmedGesture, bool) {
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[slotID]
	if !ok {
		sl = &slot{}
		s.slots[slotID] = sl
	}

	sl.window = append(sl.window, observation{label: label, confidence: confidence, at: at})
	if len(sl.window) > s.config.WindowSize {
		sl.window = sl.window[len(sl.window)-s.config.WindowSize:]
	}
	sl.lastSeen = at

	candidate := s.modalLabel(sl)
	if candidate == "" || candidate == sl.confirmed {
		return ConfirmedGesture{}, false
	}

	if !s.heldLongEnough(sl, candidate) {
		return ConfirmedGesture{}, false
	}

	if !sl.confirmedAt.IsZero() && at.Sub(sl.confirmedAt) < s.config.Cooldown {
		return ConfirmedGesture{}, false
	}

	sl.confirmed = candidate
	sl.confirmedAt = at

	return ConfirmedGesture{SlotID: slotID, Label: candidate, Timestamp: at}, true
}

// modalLabel returns the most frequent non-empty label in the slot's window
// if its frequency ratio reaches MinConsensus, else "". The ratio denominator
// is the current window fill, so a label can confirm while the window is
// still warming up. Frequency ties prefer the higher average confidence,
// then the most recent occurrence.
func (s *Smoother) modalLabel(sl *slot) string {
	if len(sl.window) == 0 {
		return ""
	}

	type stats struct {
		count   int
		sumConf float64
		lastIdx int
	}
	tally := make(map[string]*stats)
	for i, obs := range sl.window {
		if obs.label == "" {
			continue
		}
		st, ok := tally[obs.label]
		if !ok {
			st = &stats{}
			tally[obs.label] = st
		}
		st.count++
		st.sumConf += obs.confidence
		st.lastIdx = i
	}

	var best string
	var bestStats *stats
	for label, st := range tally {
		if bestStats == nil {
			best, bestStats = label, st
			continue
		}
		if st.count != bestStats.count {
			if st.count > bestStats.count {
				best, bestStats = label, st
			}
			continue
		}
		bestAvg := bestStats.sumConf / float64(bestStats.count)
		avg := st.sumConf / float64(st.count)
		if avg != bestAvg {
			if avg > bestAvg {
				best, bestStats = label, st
			}
			continue
		}
		if st.lastIdx > bestStats.lastIdx {
			best, bestStats = label, st
		}
	}

	if bestStats == nil {
		return ""
	}

	ratio := float64(bestStats.count) / float64(len(sl.window))
	if ratio < s.config.MinConsensus {
		return ""
	}
	return best
}

// heldLongEnough reports whether the last MinHoldFrames observations all
// agree with the candidate.
func (s *Smoother) heldLongEnough(sl *slot, candidate string) bool {
	if len(sl.window) < s.config.MinHoldFrames {
		return false
	}
	for i := len(sl.window) - s.config.MinHoldFrames; i < len(sl.window); i++ {
		if sl.window[i].label != candidate {
			return false
		}
	}
	return true
}

// Current returns the most recently confirmed label across all slots, or
// "" when nothing is confirmed.
func (s *Smoother) Current() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var label string
	var latest time.Time
	for _, sl := range s.slots {
		if sl.confirmed != "" && sl.confirmedAt.After(latest) {
			label = sl.confirmed
			latest = sl.confirmedAt
		}
	}
	return label
}

// Retain drops slots at or beyond n. Called when the detector reports fewer
// hands than previously tracked.
func (s *Smoother) Retain(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.slots {
		if id >= n {
			delete(s.slots, id)
		}
	}
}

// ClearStale resets any slot not observed within AbsenceTimeout. Driven by
// the watchdog so stale confirmed labels disappear even when frames stop
// arriving.
func (s *Smoother) ClearStale(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sl := range s.slots {
		if now.Sub(sl.lastSeen) >= s.config.AbsenceTimeout {
			delete(s.slots, id)
		}
	}
}

// Reset discards all slot state.
func (s *Smoother) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = make(map[int]*slot)
}
