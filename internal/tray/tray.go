// Package tray provides a system tray interface for the InSync interpreter.
package tray

import (
	"sync"

	"github.com/getlantern/systray"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(running bool)
	onForce  func()
	onClear  func()
	onQuit   func()
	running  bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuSentence *systray.MenuItem
}

// New creates a new Tray instance. The interpreter starts in the running
// state, matching the pipeline it controls.
func New() *Tray {
	return &Tray{
		running: true,
	}
}

// OnToggle sets the callback for starting or stopping the interpreter.
func (t *Tray) OnToggle(fn func(running bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnForceSentence sets the callback for the "Speak Now" menu item.
func (t *Tray) OnForceSentence(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onForce = fn
}

// OnClear sets the callback for the "Clear" menu item.
func (t *Tray) OnClear(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClear = fn
}

// OnQuit sets the callback to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("InSync")
	systray.SetTooltip("InSync Sign Language Interpreter")

	t.menuToggle = systray.AddMenuItem("● Interpreting", "Start or stop the interpreter")
	systray.AddSeparator()

	t.menuSentence = systray.AddMenuItem("Sentence: (empty)", "Sentence being built")
	t.menuSentence.Disable()
	systray.AddSeparator()

	menuForce := systray.AddMenuItem("Speak Now", "Finalize and speak the current sentence")
	menuClear := systray.AddMenuItem("Clear", "Discard the current sentence and history")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit InSync")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuForce.ClickedCh:
				t.handleForce()
			case <-menuClear.ClickedCh:
				t.handleClear()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.running = !t.running
	running := t.running

	if running {
		t.menuToggle.SetTitle("● Interpreting")
	} else {
		t.menuToggle.SetTitle("○ Paused")
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(running)
	}
}

// handleForce handles the "Speak Now" menu item click.
func (t *Tray) handleForce() {
	t.mu.RLock()
	callback := t.onForce
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleClear handles the "Clear" menu item click.
func (t *Tray) handleClear() {
	t.mu.RLock()
	callback := t.onClear
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetSentence updates the in-progress sentence shown in the menu.
func (t *Tray) SetSentence(text string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSentence != nil {
		if text == "" {
			t.menuSentence.SetTitle("Sentence: (empty)")
		} else {
			t.menuSentence.SetTitle("Sentence: " + text)
		}
	}
}

// IsRunning returns whether the tray believes the interpreter is running.
func (t *Tray) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}
