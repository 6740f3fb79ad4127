// Package dualwrite persists queue and artifact changes to the local working
// copy and the remote repository under a configurable failure policy.
//
// Writes go local first, then remote. Nothing is rolled back: a write that
// lands in one target but not the other is reported and left for the next
// successful write or reconciliation run to converge.
package dualwrite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/remote"
	"github.com/starford/inkwell/internal/storage"
	"github.com/starford/inkwell/internal/table"
)

// Mode selects which target is authoritative.
type Mode string

const (
	// ModeLocal treats the working copy as authoritative; remote failures
	// degrade to warnings.
	ModeLocal Mode = "local"
	// ModeRemote requires the remote; its failures are fatal.
	ModeRemote Mode = "remote"
)

// Config locates the table and the artifacts inside both targets.
type Config struct {
	Mode       Mode
	TablePath  string
	ContentDir string
}

// Table is a decoded queue table with the revision it was read at.
type Table struct {
	Records  []models.KeywordRecord
	Revision string
}

// ArtifactRef identifies a stored artifact file.
type ArtifactRef struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Revision string `json:"revision"`
}

// Outcome reports where a write landed.
type Outcome struct {
	Local    bool
	Remote   bool
	Revision string // remote revision after the write, when known
	Warning  string
}

// LocalAheadWarning accompanies a failed remote-mode write whose local mirror
// write already succeeded. The two targets differ until the next successful
// write or reconcile.
const LocalAheadWarning = "local working copy already updated"

// Partial reports whether the write succeeded with a degraded target.
func (o Outcome) Partial() bool { return o.Warning != "" }

// Coordinator applies the dual-write policy.
type Coordinator struct {
	cfg    Config
	local  storage.Provider
	remote remote.Store
	logger *slog.Logger
}

var tracer = otel.Tracer("github.com/starford/inkwell/internal/dualwrite")

// New creates a Coordinator. local may be nil in remote mode and rem may be
// nil in local mode.
func New(cfg Config, local storage.Provider, rem remote.Store, logger *slog.Logger) (*Coordinator, error) {
	switch cfg.Mode {
	case ModeLocal:
		if local == nil {
			return nil, apperr.Validationf("dualwrite: local mode needs a working copy")
		}
	case ModeRemote:
		if rem == nil {
			return nil, apperr.Validationf("dualwrite: remote mode needs a remote store")
		}
	default:
		return nil, apperr.Validationf("dualwrite: unknown mode %q", cfg.Mode)
	}
	if cfg.TablePath == "" {
		return nil, apperr.Validationf("dualwrite: table path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{cfg: cfg, local: local, remote: rem, logger: logger}, nil
}

// Mode returns the configured policy.
func (c *Coordinator) Mode() Mode { return c.cfg.Mode }

// HasRemote reports whether a remote target is configured.
func (c *Coordinator) HasRemote() bool { return c.remote != nil }

// ContentDir returns the artifact directory.
func (c *Coordinator) ContentDir() string { return c.cfg.ContentDir }

// LoadTable reads and decodes the authoritative table. A missing table is an
// empty queue.
func (c *Coordinator) LoadTable(ctx context.Context) (*Table, error) {
	raw, rev, err := c.readAuthoritative(ctx, c.cfg.TablePath)
	if errors.Is(err, apperr.ErrNotFound) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, err
	}
	records, err := table.Decode(raw)
	if err != nil {
		return nil, err
	}
	return &Table{Records: records, Revision: rev}, nil
}

// CommitTable encodes records and writes the whole table. loadedRevision is
// the revision LoadTable returned; in remote mode a stale value fails with a
// revision conflict and the remote is left untouched.
func (c *Coordinator) CommitTable(ctx context.Context, records []models.KeywordRecord, loadedRevision, message string) (Outcome, error) {
	data, err := table.Encode(records)
	if err != nil {
		return Outcome{}, err
	}
	return c.write(ctx, c.cfg.TablePath, data, loadedRevision, message)
}

func (c *Coordinator) write(ctx context.Context, p string, data []byte, expected, message string) (out Outcome, err error) {
	ctx, span := tracer.Start(ctx, "dualwrite.write")
	span.SetAttributes(attribute.String("dualwrite.mode", string(c.cfg.Mode)), attribute.String("dualwrite.path", p))
	defer func() {
		span.SetAttributes(attribute.Bool("dualwrite.partial", out.Partial()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if c.local != nil {
		if lerr := c.local.Write(p, data); lerr != nil {
			if c.cfg.Mode == ModeLocal {
				return out, fmt.Errorf("dualwrite: local write %s: %w", p, lerr)
			}
			out.Warning = fmt.Sprintf("local working copy not updated: %v", lerr)
			c.logger.Warn("local mirror write failed", slog.String("path", p), slog.Any("error", lerr))
		} else {
			out.Local = true
		}
	}
	if c.remote == nil {
		return out, nil
	}

	if c.cfg.Mode == ModeLocal {
		// The working copy wins: write over whatever the remote holds now.
		rev, ferr := c.remoteRevision(ctx, p)
		if ferr == nil {
			out.Revision, ferr = c.remote.Put(ctx, p, data, rev, message)
		}
		if ferr != nil {
			out.Warning = fmt.Sprintf("saved locally but remote sync failed: %v", ferr)
			c.logger.Warn("remote write failed; local copy is ahead",
				slog.String("path", p), slog.Any("error", ferr))
			return out, nil
		}
		out.Remote = true
		return out, nil
	}

	rev, rerr := c.remote.Put(ctx, p, data, expected, message)
	if rerr != nil {
		if out.Local {
			c.logger.Warn("remote write failed after local write",
				slog.String("path", p), slog.Any("error", rerr))
			out.Warning = LocalAheadWarning
			return out, fmt.Errorf("dualwrite: remote write %s failed; %s: %w", p, LocalAheadWarning, rerr)
		}
		return out, fmt.Errorf("dualwrite: remote write %s: %w", p, rerr)
	}
	out.Remote = true
	out.Revision = rev
	return out, nil
}

// DeleteArtifact removes an artifact from both targets. ref.Revision is the
// revision observed when listing; remote mode uses it as the expected
// revision, local mode deletes whatever the remote currently holds.
func (c *Coordinator) DeleteArtifact(ctx context.Context, ref ArtifactRef, message string) (out Outcome, err error) {
	ctx, span := tracer.Start(ctx, "dualwrite.delete")
	span.SetAttributes(attribute.String("dualwrite.mode", string(c.cfg.Mode)), attribute.String("dualwrite.path", ref.Path))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	localMissing := false
	if c.local != nil {
		lerr := c.local.Delete(ref.Path)
		switch {
		case lerr == nil:
			out.Local = true
		case errors.Is(lerr, apperr.ErrNotFound):
			localMissing = true
		case c.cfg.Mode == ModeLocal:
			return out, fmt.Errorf("dualwrite: local delete %s: %w", ref.Path, lerr)
		default:
			out.Warning = fmt.Sprintf("local working copy not updated: %v", lerr)
			c.logger.Warn("local mirror delete failed", slog.String("path", ref.Path), slog.Any("error", lerr))
		}
	}

	if c.remote == nil {
		if localMissing {
			return out, fmt.Errorf("dualwrite: delete %s: %w", ref.Path, apperr.ErrNotFound)
		}
		return out, nil
	}

	if c.cfg.Mode == ModeRemote {
		if derr := c.remote.Delete(ctx, ref.Path, ref.Revision, message); derr != nil {
			if out.Local {
				c.logger.Warn("remote delete failed after local delete",
					slog.String("path", ref.Path), slog.Any("error", derr))
				out.Warning = LocalAheadWarning
				return out, fmt.Errorf("dualwrite: remote delete %s failed; %s: %w", ref.Path, LocalAheadWarning, derr)
			}
			return out, fmt.Errorf("dualwrite: remote delete %s: %w", ref.Path, derr)
		}
		out.Remote = true
		return out, nil
	}

	rev, derr := c.remoteRevision(ctx, ref.Path)
	switch {
	case derr == nil && rev == "":
		if localMissing {
			return out, fmt.Errorf("dualwrite: delete %s: %w", ref.Path, apperr.ErrNotFound)
		}
		return out, nil
	case derr == nil:
		derr = c.remote.Delete(ctx, ref.Path, rev, message)
	}
	if derr != nil {
		if localMissing {
			return out, fmt.Errorf("dualwrite: remote delete %s: %w", ref.Path, derr)
		}
		out.Warning = fmt.Sprintf("deleted locally but remote sync failed: %v", derr)
		c.logger.Warn("remote delete failed; local copy is ahead",
			slog.String("path", ref.Path), slog.Any("error", derr))
		return out, nil
	}
	out.Remote = true
	return out, nil
}

// ListArtifacts lists the files directly inside the content directory of the
// authoritative target, in that target's listing order.
func (c *Coordinator) ListArtifacts(ctx context.Context) ([]ArtifactRef, error) {
	if c.cfg.Mode == ModeRemote {
		entries, err := c.remote.List(ctx, c.cfg.ContentDir)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		refs := make([]ArtifactRef, 0, len(entries))
		for _, e := range entries {
			refs = append(refs, ArtifactRef{Name: e.Name, Path: e.Path, Revision: e.Revision})
		}
		return refs, nil
	}

	metas, err := c.local.List(c.cfg.ContentDir)
	if err != nil {
		return nil, err
	}
	var refs []ArtifactRef
	dir := path.Clean(c.cfg.ContentDir)
	for _, m := range metas {
		if path.Dir(m.Path) != dir {
			continue
		}
		refs = append(refs, ArtifactRef{Name: path.Base(m.Path), Path: m.Path, Revision: m.Checksum})
	}
	return refs, nil
}

// ReadArtifact returns an artifact's content and revision from the
// authoritative target.
func (c *Coordinator) ReadArtifact(ctx context.Context, p string) ([]byte, string, error) {
	return c.readAuthoritative(ctx, p)
}

func (c *Coordinator) readAuthoritative(ctx context.Context, p string) ([]byte, string, error) {
	if c.cfg.Mode == ModeRemote {
		blob, err := c.remote.Fetch(ctx, p)
		if err != nil {
			return nil, "", err
		}
		return blob.Content, blob.Revision, nil
	}
	data, err := c.local.Read(p)
	if err != nil {
		return nil, "", err
	}
	return data, checksum.GitBlob(data), nil
}

// remoteRevision returns the remote's current revision of p, "" if absent.
func (c *Coordinator) remoteRevision(ctx context.Context, p string) (string, error) {
	blob, err := c.remote.Fetch(ctx, p)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return blob.Revision, nil
}
