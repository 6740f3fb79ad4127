package index

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/inkwell/internal/storage"
)

const watchDir = "content/blog"

// watcherTestEnv sets up a working copy, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, watchDir), 0o755); err != nil {
		t.Fatal(err)
	}
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func startWatcher(t *testing.T, root string, store storage.Provider, db *DB, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	w := &Watcher{DB: db, Store: store, Root: root, Dir: watchDir, Parse: testParse, Logger: quietLogger(), OnChange: cb}
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	var mu sync.Mutex
	var events []string
	startWatcher(t, root, store, db, func(kind, path string) {
		mu.Lock()
		events = append(events, kind+":"+path)
		mu.Unlock()
	})

	_ = os.WriteFile(filepath.Join(root, watchDir, "new.md"), []byte("# New"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rev, _ := db.GetRevision(watchDir + "/new.md")
		return rev != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "created:"+watchDir+"/new.md" {
				return true
			}
		}
		return false
	}, "expected created callback")
}

func TestWatcher_IgnoresNonArtifacts(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatcher(t, root, store, db, nil)

	_ = os.WriteFile(filepath.Join(root, watchDir, "notes.txt"), []byte("nope"), 0o644)
	_ = os.WriteFile(filepath.Join(root, watchDir, "real.md"), []byte("# Real"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rev, _ := db.GetRevision(watchDir + "/real.md")
		return rev != ""
	}, "artifact not indexed")
	revs, _ := db.AllRevisions()
	if _, ok := revs[watchDir+"/notes.txt"]; ok {
		t.Error("non-artifact file was indexed")
	}
}

func TestWatcher_AtomicWriteIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	startWatcher(t, root, store, db, nil)

	if err := store.Write(watchDir+"/atomic.md", []byte("# Atomic")); err != nil {
		t.Fatal(err)
	}
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		arts, _, _ := db.ListArtifacts(10, 0, "")
		return len(arts) == 1 && arts[0].Title == "Atomic"
	}, "atomic write not indexed under its final name")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, watchDir, "del.md"), []byte("# Delete Me"), 0o644)
	if err := Sync(db, store, watchDir, testParse, quietLogger()); err != nil {
		t.Fatal(err)
	}
	rev, _ := db.GetRevision(watchDir + "/del.md")
	if rev == "" {
		t.Fatal("precondition: file should be indexed")
	}

	startWatcher(t, root, store, db, nil)
	_ = os.Remove(filepath.Join(root, watchDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rev, _ := db.GetRevision(watchDir + "/del.md")
		return rev == ""
	}, "deleted file still in index")
}

func TestWatcher_RenameResyncs(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(root, watchDir, "old.md"), []byte("# Rename"), 0o644)
	_ = Sync(db, store, watchDir, testParse, quietLogger())

	startWatcher(t, root, store, db, nil)
	_ = os.Rename(filepath.Join(root, watchDir, "old.md"), filepath.Join(root, watchDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldRev, _ := db.GetRevision(watchDir + "/old.md")
		newRev, _ := db.GetRevision(watchDir + "/renamed.md")
		return oldRev == "" && newRev != ""
	}, "rename resync failed: old path should be removed and new path indexed")
}
