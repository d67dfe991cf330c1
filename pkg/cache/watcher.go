package cache

import (
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const (
	errCreateWatcher = "cannot create watcher"
	errWatchDir      = "cannot watch directory"
)

// Watcher drops cached models whose compiled schema file changes
type Watcher struct {
	c      *Cache
	w      *fsnotify.Watcher
	stopCh chan struct{}
	doneCh chan struct{}
}

// Watch invalidates every revision of a module when a file of that module
// is written, created, removed or renamed in dir
func (c *Cache) Watch(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, errCreateWatcher)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "%s: %s", errWatchDir, dir)
	}
	w := &Watcher{
		c:      c,
		w:      fw,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go w.loop()
	c.log.Debug("watching compiled schemas", "dir", dir)
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.w.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := KeyFromFile(event.Name)
			if !ok {
				continue
			}
			n := w.c.InvalidateModule(key.Module)
			w.c.log.Debug("compiled schema changed", "file", event.Name, "event", event.Op.String(), "dropped", n)
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.c.log.Debug("watcher error", "error", err)
		case <-w.stopCh:
			return
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	close(w.stopCh)
	err := w.w.Close()
	<-w.doneCh
	return err
}
