package clientwatch

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LineHandler receives each new line read from path.
type LineHandler func(path string, line string)

// Watcher tails a set of files, triggered by both fsnotify write
// events and a periodic poll fallback, coalescing concurrent triggers
// for the same file into a single read (spec §4.6: a poll tick and an
// fsnotify event landing back-to-back for the same file must not
// double-dispatch its new lines).
type Watcher struct {
	log          *zap.Logger
	pollInterval time.Duration

	mu      sync.Mutex
	tailers map[string]*Tailer
	inFlight map[string]bool

	fsWatcher *fsnotify.Watcher
	stopCh    chan struct{}
	handler   LineHandler
}

// NewWatcher constructs a Watcher. handler is invoked from the
// watcher's own goroutine; callers that need concurrency safety on
// their side must provide it themselves.
func NewWatcher(log *zap.Logger, pollInterval time.Duration, handler LineHandler) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		log:          log.Named("clientwatch"),
		pollInterval: pollInterval,
		tailers:      map[string]*Tailer{},
		inFlight:     map[string]bool{},
		fsWatcher:    fw,
		handler:      handler,
	}, nil
}

// AddFile starts tailing path from startOffset (0 to read the whole
// file immediately, i.e. rescanLogsOnStartup behavior; pass the
// current file size to tail only new appends from process start).
func (w *Watcher) AddFile(path string, startOffset int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.tailers[path]; exists {
		return nil
	}
	w.tailers[path] = NewTailer(path, startOffset)
	return w.fsWatcher.Add(path)
}

// RemoveFile stops tailing path, e.g. after its client config is
// deleted or reloaded away.
func (w *Watcher) RemoveFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.tailers, path)
	_ = w.fsWatcher.Remove(path)
}

// Run blocks, dispatching fsnotify events and poll ticks until Stop
// is called.
func (w *Watcher) Run() {
	w.stopCh = make(chan struct{})
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.drain(ev.Name)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", zap.Error(err))
		case <-ticker.C:
			w.pollAll()
		}
	}
}

// Stop halts Run and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() {
	if w.stopCh != nil {
		close(w.stopCh)
	}
	_ = w.fsWatcher.Close()
}

func (w *Watcher) pollAll() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.tailers))
	for p := range w.tailers {
		paths = append(paths, p)
	}
	w.mu.Unlock()

	for _, p := range paths {
		w.drain(p)
	}
}

// drain reads every new line from path's tailer, skipping the call
// entirely if a read for the same path is already in flight so an
// fsnotify event and a poll tick landing at the same moment don't race
// each other over the same offset.
func (w *Watcher) drain(path string) {
	w.mu.Lock()
	if w.inFlight[path] {
		w.mu.Unlock()
		return
	}
	tailer, ok := w.tailers[path]
	if !ok {
		w.mu.Unlock()
		return
	}
	w.inFlight[path] = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.inFlight, path)
		w.mu.Unlock()
	}()

	lines, err := tailer.ReadNewLines()
	if err != nil {
		w.log.Warn("tail read failed", zap.String("path", path), zap.Error(err))
		return
	}
	for _, line := range lines {
		w.handler(path, line)
	}
}
