package hotfolder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/cardpile/cardpile/internal/ports"
)

// Default tuning values.
const (
	// DefaultSettleDelay is how long a file must stay unchanged before it is
	// treated as fully written.
	DefaultSettleDelay = 300 * time.Millisecond

	// processedDirName is the subdirectory consumed files are moved into.
	processedDirName = "processed"

	rewatchInitial = 500 * time.Millisecond
	rewatchMax     = 30 * time.Second
)

// imageExts are the file extensions treated as capture events.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Source watches a drop directory and delivers each new image file as one
// capture event.
type Source struct {
	dir    string
	settle time.Duration
	logger ports.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	pending map[string]*time.Timer
}

// New creates a hotfolder source for the given directory.
// A non-positive settle delay falls back to DefaultSettleDelay.
func New(dir string, settle time.Duration, logger ports.Logger) *Source {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Source{
		dir:     dir,
		settle:  settle,
		logger:  logger,
		pending: map[string]*time.Timer{},
	}
}

// Start establishes the watch and begins delivering captures in the
// background. Files already sitting in the directory are consumed first.
func (s *Source) Start(ctx context.Context, deliver func(image []byte)) error {
	if err := os.MkdirAll(filepath.Join(s.dir, processedDirName), 0o755); err != nil {
		return fmt.Errorf("create processed dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	s.consumeExisting(deliver)

	s.wg.Add(1)
	go s.loop(runCtx, watcher, deliver)
	s.logger.Info("hotfolder watch established", ports.String("dir", s.dir))
	return nil
}

// Close stops delivery and releases the watch. Settle timers that have not
// fired are stopped; callbacks already running are waited for, so no capture
// is delivered after Close returns.
func (s *Source) Close() error {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.mu.Lock()
	for path, timer := range s.pending {
		if timer.Stop() {
			// The callback will never run, so release its WaitGroup slot.
			s.wg.Done()
		}
		delete(s.pending, path)
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// loop dispatches watcher events until the context is canceled. A watcher
// failure tears the watch down and re-establishes it with backoff.
func (s *Source) loop(ctx context.Context, watcher *fsnotify.Watcher, deliver func([]byte)) {
	defer s.wg.Done()
	defer func() {
		if watcher != nil {
			watcher.Close()
		}
	}()

	back := newBackoff(rewatchInitial, rewatchMax)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				watcher = s.rewatch(ctx, watcher, back)
				if watcher == nil {
					return
				}
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 && s.isImage(event.Name) {
				s.scheduleConsume(ctx, event.Name, deliver)
			}

		case werr, ok := <-watcher.Errors:
			if !ok {
				watcher = s.rewatch(ctx, watcher, back)
				if watcher == nil {
					return
				}
				continue
			}
			s.logger.Error("hotfolder watch error", ports.Err(werr))
		}
	}
}

// rewatch rebuilds a dead watcher, retrying with backoff until it succeeds
// or the context is canceled.
func (s *Source) rewatch(ctx context.Context, old *fsnotify.Watcher, back *backoff) *fsnotify.Watcher {
	if old != nil {
		old.Close()
	}
	for {
		if ctx.Err() != nil {
			return nil
		}
		watcher, err := fsnotify.NewWatcher()
		if err == nil {
			if err = watcher.Add(s.dir); err == nil {
				back.Reset()
				s.logger.Info("hotfolder watch re-established", ports.String("dir", s.dir))
				return watcher
			}
			watcher.Close()
		}
		s.logger.Error("hotfolder rewatch failed", ports.Err(err))
		back.Sleep()
	}
}

// scheduleConsume debounces per-file: the timer restarts on every write and
// the file is consumed once it has settled.
func (s *Source) scheduleConsume(ctx context.Context, path string, deliver func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.pending[path]; ok {
		timer.Reset(s.settle)
		return
	}
	// The WaitGroup tracks the callback until it runs or Close stops the
	// timer first.
	s.wg.Add(1)
	s.pending[path] = time.AfterFunc(s.settle, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.pending, path)
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		s.consume(path, deliver)
	})
}

// consume moves the file out of the watched directory, reads it, and hands
// the bytes to the pipeline. Moving first keeps a slow delivery from being
// picked up twice.
func (s *Source) consume(path string, deliver func([]byte)) {
	dest := filepath.Join(s.dir, processedDirName, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		s.logger.Error("failed to move captured file", ports.String("file", path), ports.Err(err))
		return
	}

	image, err := os.ReadFile(dest)
	if err != nil {
		s.logger.Error("failed to read captured file", ports.String("file", dest), ports.Err(err))
		return
	}

	s.logger.Debug("capture event", ports.String("file", filepath.Base(path)), ports.Int("bytes", len(image)))
	deliver(image)
}

// consumeExisting delivers files already present when the watch starts.
func (s *Source) consumeExisting(deliver func([]byte)) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error("failed to list hotfolder", ports.Err(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !s.isImage(entry.Name()) {
			continue
		}
		s.consume(filepath.Join(s.dir, entry.Name()), deliver)
	}
}

func (s *Source) isImage(path string) bool {
	return imageExts[strings.ToLower(filepath.Ext(path))]
}
