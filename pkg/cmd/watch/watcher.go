package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

const DefaultSettle = 500 * time.Millisecond

type (
	Handler func(ctx context.Context, file string)
	Option  func(*Watcher)
)

// WithSettle sets the quiet period after the last write before a file is
// handed to the handler. Exports are usually written in several chunks.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		w.log = l
	}
}

// Watcher calls a handler for each .csv file created or written in a directory.
type Watcher struct {
	dir     string
	handler Handler
	settle  time.Duration
	log     *log.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func NewWatcher(dir string, handler Handler, opts ...Option) *Watcher {
	ret := &Watcher{
		dir:     dir,
		handler: handler,
		settle:  DefaultSettle,
		log:     log.Default().Named("watch"),
		pending: map[string]*time.Timer{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func isDatalog(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}

// Run blocks until ctx is done or the watcher fails.
//
//nolint:cyclop // by design
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Error("could not create fsnotify watcher", log.ErrorField(err))
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(w.dir); err != nil {
		w.log.Error("could not watch directory", log.String("dir", w.dir), log.ErrorField(err))
		return err
	}
	w.log.Info("watching for datalogs", log.String("dir", w.dir))
	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("context done, stopping watch")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				w.log.Info("watcher events channel closed, stopping watch")
				return nil
			}
			w.log.Debug("change detected",
				log.String("file", event.Name), log.Any("event", event))
			if !isDatalog(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule(ctx, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				w.log.Info("watcher errors channel closed, stopping watch")
				return nil
			}
			w.log.Error("watcher error", log.ErrorField(err))
		}
	}
}

// schedule (re)starts the settle timer of a file.
func (w *Watcher) schedule(ctx context.Context, file string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[file]; ok && t.Stop() {
		t.Reset(w.settle)
		return
	}
	w.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(w.settle, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[file] == timer {
			delete(w.pending, file)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.handler(ctx, file)
	})
	w.pending[file] = timer
}

// stop cancels pending timers and waits for running handlers.
func (w *Watcher) stop() {
	w.mu.Lock()
	for file, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, file)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
