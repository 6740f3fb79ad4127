package remote

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/checksum"
)

// Op names a Store operation for failure injection.
type Op string

const (
	OpFetch  Op = "fetch"
	OpPut    Op = "put"
	OpDelete Op = "delete"
	OpList   Op = "list"
)

// Commit is one entry of the Memory store's history.
type Commit struct {
	Op       Op
	Path     string
	Message  string
	Revision string
	At       time.Time
}

type memFile struct {
	content  []byte
	revision string
}

// Memory is an in-process Store. Revisions are git blob SHAs, so identical
// content yields identical tokens as on GitHub.
type Memory struct {
	mu      sync.Mutex
	files   map[string]memFile
	commits []Commit
	failing map[Op]bool
	now     func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		files:   make(map[string]memFile),
		failing: make(map[Op]bool),
		now:     time.Now,
	}
}

// Seed stores content at p without any revision check and returns its revision.
func (m *Memory) Seed(p string, content []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commit(OpPut, p, content, "seed "+p)
}

// Fail makes the given operations return ErrRemoteUnavailable until Recover.
func (m *Memory) Fail(ops ...Op) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		m.failing[op] = true
	}
}

// Recover clears all injected failures.
func (m *Memory) Recover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = make(map[Op]bool)
}

// Commits returns a copy of the commit history, oldest first.
func (m *Memory) Commits() []Commit {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Commit, len(m.commits))
	copy(out, m.commits)
	return out
}

// Revision returns the current revision of p, or "" when absent.
func (m *Memory) Revision(p string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.files[clean(p)].revision
}

func (m *Memory) Fetch(_ context.Context, p string) (*Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(OpFetch); err != nil {
		return nil, err
	}
	f, ok := m.files[clean(p)]
	if !ok {
		return nil, fmt.Errorf("remote: fetch %s: %w", p, apperr.ErrNotFound)
	}
	content := make([]byte, len(f.content))
	copy(content, f.content)
	return &Blob{Path: clean(p), Content: content, Revision: f.revision}, nil
}

func (m *Memory) Put(_ context.Context, p string, content []byte, expectedRevision, message string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(OpPut); err != nil {
		return "", err
	}
	current := m.files[clean(p)].revision
	if current != expectedRevision {
		return "", &apperr.ConflictError{Path: p, ExpectedRevision: expectedRevision, CurrentRevision: current}
	}
	return m.commit(OpPut, p, content, message), nil
}

func (m *Memory) Delete(_ context.Context, p string, expectedRevision, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(OpDelete); err != nil {
		return err
	}
	if expectedRevision == "" {
		return apperr.Validationf("remote: delete %s: revision required", p)
	}
	f, ok := m.files[clean(p)]
	if !ok {
		return fmt.Errorf("remote: delete %s: %w", p, apperr.ErrNotFound)
	}
	if f.revision != expectedRevision {
		return &apperr.ConflictError{Path: p, ExpectedRevision: expectedRevision, CurrentRevision: f.revision}
	}
	delete(m.files, clean(p))
	m.commits = append(m.commits, Commit{Op: OpDelete, Path: clean(p), Message: message, At: m.now()})
	return nil
}

// List returns the files directly under dir sorted by name, matching the
// GitHub contents listing order.
func (m *Memory) List(_ context.Context, dir string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(OpList); err != nil {
		return nil, err
	}
	dir = clean(dir)
	var out []Entry
	for p, f := range m.files {
		if path.Dir(p) != dir && !(dir == "" && !strings.Contains(p, "/")) {
			continue
		}
		out = append(out, Entry{Name: path.Base(p), Path: p, Revision: f.revision})
	}
	if out == nil {
		return nil, fmt.Errorf("remote: list %s: %w", dir, apperr.ErrNotFound)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) commit(op Op, p string, content []byte, message string) string {
	stored := make([]byte, len(content))
	copy(stored, content)
	rev := checksum.GitBlob(stored)
	m.files[clean(p)] = memFile{content: stored, revision: rev}
	m.commits = append(m.commits, Commit{Op: op, Path: clean(p), Message: message, Revision: rev, At: m.now()})
	return rev
}

func (m *Memory) injected(op Op) error {
	if m.failing[op] {
		return fmt.Errorf("remote: %s: injected failure: %w", op, apperr.ErrRemoteUnavailable)
	}
	return nil
}

func clean(p string) string {
	p = strings.Trim(path.Clean("/"+p), "/")
	return p
}
