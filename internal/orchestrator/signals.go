package orchestrator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// SignalWatcher handles out-of-band control via the .subagent directory.
// The host can stop queue processing or clear the execution history by
// touching files under .subagent/signals.
type SignalWatcher struct {
	subagentDir string

	mu           sync.RWMutex
	stopSignal   bool
	clearHistory bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalWatcher creates a signal watcher for the given workspace.
func NewSignalWatcher(workspaceRoot string) (*SignalWatcher, error) {
	subagentDir := filepath.Join(workspaceRoot, ".subagent")

	signalsDir := filepath.Join(subagentDir, "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, err
	}

	sw := &SignalWatcher{
		subagentDir: subagentDir,
		done:        make(chan struct{}),
	}

	// Start file watcher for immediate signals
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Continue without watcher - will use polling fallback
		return sw, nil
	}
	sw.watcher = watcher

	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		sw.watcher = nil
		return sw, nil
	}

	go sw.watchSignals()

	return sw, nil
}

// watchSignals monitors the signals directory for stop/clear-history files.
func (sw *SignalWatcher) watchSignals() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.mu.Lock()
			base := filepath.Base(event.Name)
			if base == "stop" && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sw.stopSignal = true
			} else if base == "clear-history" && (event.Op&fsnotify.Create != 0 || event.Op&fsnotify.Write != 0) {
				sw.clearHistory = true
			}
			sw.mu.Unlock()
		case <-sw.watcher.Errors:
			// Ignore errors, keep watching
		}
	}
}

// ShouldStop returns true if a stop signal has been received.
func (sw *SignalWatcher) ShouldStop() bool {
	// Also check file directly in case watcher missed it
	stopPath := filepath.Join(sw.subagentDir, "signals", "stop")
	if _, err := os.Stat(stopPath); err == nil {
		sw.mu.Lock()
		sw.stopSignal = true
		sw.mu.Unlock()
	}

	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.stopSignal
}

// ShouldClearHistory returns true if a clear-history signal has been received.
func (sw *SignalWatcher) ShouldClearHistory() bool {
	clearPath := filepath.Join(sw.subagentDir, "signals", "clear-history")
	if _, err := os.Stat(clearPath); err == nil {
		sw.mu.Lock()
		sw.clearHistory = true
		sw.mu.Unlock()
	}

	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.clearHistory
}

// SendStop creates a stop signal file.
func (sw *SignalWatcher) SendStop() error {
	path := filepath.Join(sw.subagentDir, "signals", "stop")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// SendClearHistory creates a clear-history signal file.
func (sw *SignalWatcher) SendClearHistory() error {
	path := filepath.Join(sw.subagentDir, "signals", "clear-history")
	return os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0644)
}

// ClearSignals removes all signal files and resets signal state.
func (sw *SignalWatcher) ClearSignals() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.stopSignal = false
	sw.clearHistory = false

	os.Remove(filepath.Join(sw.subagentDir, "signals", "stop"))
	os.Remove(filepath.Join(sw.subagentDir, "signals", "clear-history"))
}

// SubagentDir returns the path to the .subagent directory.
func (sw *SignalWatcher) SubagentDir() string {
	return sw.subagentDir
}

// Close shuts down the signal watcher.
func (sw *SignalWatcher) Close() {
	close(sw.done)
	if sw.watcher != nil {
		sw.watcher.Close()
	}
}
