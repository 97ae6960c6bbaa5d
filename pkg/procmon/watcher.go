package procmon

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is the default debounce interval for file watch events.
const DefaultWatchDebounce = 500 * time.Millisecond

// configWatcher reloads the configuration when its file changes. It watches
// the parent directory so that editors which save by rename are seen.
type configWatcher struct {
	watcher  *fsnotify.Watcher
	target   string
	debounce time.Duration
	onReload func() error
	onError  func(error)

	cancel context.CancelFunc
	done   chan struct{}
}

// newConfigWatcher creates a watcher for path. onReload runs once per burst
// of changes, after the debounce interval has passed without further events.
func newConfigWatcher(path string, debounce time.Duration, onReload func() error, onError func(error)) (*configWatcher, error) {
	target, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(target)); err != nil {
		w.Close()
		return nil, err
	}

	return &configWatcher{
		watcher:  w,
		target:   target,
		debounce: debounce,
		onReload: onReload,
		onError:  onError,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching on a new goroutine.
func (cw *configWatcher) Start(ctx context.Context) {
	ctx, cw.cancel = context.WithCancel(ctx)
	go cw.run(ctx)
}

// Stop ends the watch and waits for the goroutine to exit. A reload already
// in progress completes first.
func (cw *configWatcher) Stop() {
	if cw.cancel == nil {
		cw.watcher.Close()
		return
	}
	cw.cancel()
	<-cw.done
}

func (cw *configWatcher) run(ctx context.Context) {
	defer close(cw.done)
	defer cw.watcher.Close()

	timer := time.NewTimer(cw.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			timer.Reset(cw.debounce)

		case <-timer.C:
			if err := cw.onReload(); err != nil && cw.onError != nil {
				cw.onError(err)
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			if cw.onError != nil {
				cw.onError(err)
			}
		}
	}
}

// relevant reports whether event touches the watched file in a way that can
// change its content.
func (cw *configWatcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != cw.target {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
