package context

import (
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher clears a Detector's cache whenever the watched directory's VCS
// root or project marker changes, reusing fsnotify the same way
// internal/config does for hot reload (spec section 4.6).
type Watcher struct {
	fsw      *fsnotify.Watcher
	detector *Detector
	log      *zap.Logger
	done     chan struct{}
}

// NewWatcher starts watching dir for changes and wires them to detector's
// Clear method.
func NewWatcher(dir string, detector *Detector, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{fsw: fsw, detector: detector, log: log, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.detector.Clear()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("context watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsw.Close()
}
