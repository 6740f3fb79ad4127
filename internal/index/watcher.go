package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/inkwell/internal/storage"
)

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted"; path is relative to the
// working-copy root.
type EventCallback func(kind string, path string)

// Watcher follows the working copy's content directory.
type Watcher struct {
	DB       *DB
	Store    storage.Provider
	Root     string // absolute working-copy root
	Dir      string // content directory, relative to Root
	Parse    Parser
	Logger   *slog.Logger
	OnChange EventCallback
}

// Run processes file change events until ctx is cancelled. Only files
// directly inside the content directory are considered. Renames trigger a
// debounced resync that drops entries whose files are gone.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	absDir := filepath.Join(w.Root, filepath.FromSlash(w.Dir))
	if err := fw.Add(absDir); err != nil {
		return err
	}

	w.Logger.Info("watcher: started", slog.String("dir", absDir))

	var resyncTimer *time.Timer
	var resyncCh <-chan time.Time

	scheduleResync := func() {
		if resyncTimer == nil {
			resyncTimer = time.NewTimer(200 * time.Millisecond)
			resyncCh = resyncTimer.C
		} else {
			resyncTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if resyncTimer != nil {
				resyncTimer.Stop()
			}
			w.Logger.Info("watcher: stopped")
			return nil

		case <-resyncCh:
			w.resync()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(w.Root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			w.handle(ev, rel, scheduleResync)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, rel string, scheduleResync func()) {
	switch {
	case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
		data, readErr := w.Store.Read(rel)
		if readErr != nil {
			// Directories and vanished temp files land here.
			w.Logger.Debug("watcher: read skipped", slog.String("path", rel), slog.String("error", readErr.Error()))
			return
		}
		indexed, idxErr := indexFile(w.DB, rel, data, w.Parse)
		if idxErr != nil {
			w.Logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
			return
		}
		if !indexed {
			return
		}
		kind := "updated"
		if ev.Op&fsnotify.Create != 0 {
			kind = "created"
		}
		w.Logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		w.notify(kind, rel)

	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)

	case ev.Op&fsnotify.Rename != 0:
		// fsnotify fires Rename on the old path only; the new path arrives
		// as a separate Create when it stays inside the watched dir.
		w.remove(rel)
		scheduleResync()
	}
}

func (w *Watcher) remove(rel string) {
	rev, err := w.DB.GetRevision(rel)
	if err != nil || rev == "" {
		return
	}
	if delErr := w.DB.DeleteArtifact(rel); delErr != nil {
		w.Logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
		return
	}
	w.Logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify("deleted", rel)
}

func (w *Watcher) resync() {
	if err := Sync(w.DB, w.Store, w.Dir, w.Parse, w.Logger); err != nil {
		w.Logger.Warn("watcher: resync failed", slog.String("error", err.Error()))
	}
}

func (w *Watcher) notify(kind, rel string) {
	if w.OnChange != nil {
		w.OnChange(kind, rel)
	}
}
