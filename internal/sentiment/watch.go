package sentiment

import (
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the lexicon whenever path changes, debounced so editors
// that write-then-rename trigger a single reload. The watcher goroutine
// exits when stop is closed.
func (a *Analyzer) Watch(path string, stop <-chan struct{}) error {
	if path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return err
	}

	go func() {
		defer w.Close()
		debounce := time.NewTimer(0)
		if !debounce.Stop() {
			<-debounce.C
		}
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					if err := w.Add(ev.Name); err != nil {
						slog.Error("lexicon watch re-add", "path", ev.Name, "err", err)
					}
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					if !debounce.Stop() {
						select {
						case <-debounce.C:
						default:
						}
					}
					debounce.Reset(250 * time.Millisecond)
				}
			case <-debounce.C:
				if err := a.LoadLexicon(path); err != nil {
					slog.Error("lexicon reload failed", "path", path, "err", err)
				} else {
					slog.Info("lexicon reloaded", "path", path)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Error("lexicon watch error", "err", err)
			}
		}
	}()
	return nil
}
