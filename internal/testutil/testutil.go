// Package testutil provides shared test helpers that wire a complete queue
// stack over temp directories and an in-memory remote.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/inkwell/internal/dualwrite"
	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/pipeline"
	"github.com/starford/inkwell/internal/reconcile"
	"github.com/starford/inkwell/internal/remote"
	"github.com/starford/inkwell/internal/storage"
)

// Layout shared by every stack.
const (
	TablePath  = "data/keywords.csv"
	ContentDir = "content/blog"
)

// Stack is a wired service with handles on its backing stores.
type Stack struct {
	Service     *pipeline.Service
	Coordinator *dualwrite.Coordinator
	Remote      *remote.Memory
	Local       *storage.FS
	DB          *index.DB
}

type stackConfig struct {
	mode  dualwrite.Mode
	store remote.Store
}

// StackOption customizes NewStack.
type StackOption func(*stackConfig)

// WithMode selects the authoritative store. Defaults to remote.
func WithMode(m dualwrite.Mode) StackOption {
	return func(c *stackConfig) { c.mode = m }
}

// WithStore replaces the remote seen by the coordinator, typically a wrapper
// around the stack's Memory that injects behaviour.
func WithStore(s remote.Store) StackOption {
	return func(c *stackConfig) { c.store = s }
}

// NewStack wires a pipeline service over a temp working copy, the given
// in-memory remote (a fresh one when nil), and a temp SQLite index.
func NewStack(t *testing.T, mem *remote.Memory, opts ...StackOption) *Stack {
	t.Helper()
	if mem == nil {
		mem = remote.NewMemory()
	}
	cfg := stackConfig{mode: dualwrite.ModeRemote, store: mem}
	for _, o := range opts {
		o(&cfg)
	}

	fs, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	coord, err := dualwrite.New(dualwrite.Config{
		Mode:       cfg.mode,
		TablePath:  TablePath,
		ContentDir: ContentDir,
	}, fs, cfg.store, nil)
	if err != nil {
		t.Fatalf("dualwrite.New: %v", err)
	}

	db := TestDB(t)
	var svcOpts []pipeline.Option
	if cfg.mode == dualwrite.ModeLocal {
		svcOpts = append(svcOpts, pipeline.WithLocker(fs))
	}
	return &Stack{
		Service:     pipeline.New(coord, reconcile.New(coord), db, svcOpts...),
		Coordinator: coord,
		Remote:      mem,
		Local:       fs,
		DB:          db,
	}
}

// TestDB creates a temporary SQLite index that is automatically closed.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "inkwell-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
