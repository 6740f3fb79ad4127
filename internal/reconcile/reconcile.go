// Package reconcile converges the keyword queue with the set of published
// content artifacts.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/dualwrite"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/queue"
)

// Suffixes are the artifact file extensions, in stripping order.
var Suffixes = []string{".mdx", ".md", ".html"}

// Slug strips a known artifact suffix from a file name.
func Slug(name string) (string, bool) {
	base := path.Base(name)
	for _, s := range Suffixes {
		if strings.HasSuffix(base, s) && len(base) > len(s) {
			return strings.TrimSuffix(base, s), true
		}
	}
	return "", false
}

// Source lists and reads artifacts from the authoritative store.
type Source interface {
	ListArtifacts(ctx context.Context) ([]dualwrite.ArtifactRef, error)
	ReadArtifact(ctx context.Context, path string) ([]byte, string, error)
}

// Reconciler inspects artifacts and applies publication transitions.
type Reconciler struct {
	src         Source
	collection  string
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCollection sets the URL collection segment (default "blog").
func WithCollection(c string) Option {
	return func(r *Reconciler) {
		if c = strings.Trim(c, "/"); c != "" {
			r.collection = c
		}
	}
}

// WithConcurrency bounds parallel artifact reads (default 8).
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithClock overrides the run timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New creates a Reconciler over src.
func New(src Source, opts ...Option) *Reconciler {
	r := &Reconciler{
		src:         src,
		collection:  "blog",
		concurrency: 8,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// URLFor returns the public URL of slug.
func (r *Reconciler) URLFor(slug string) string {
	return "/" + r.collection + "/" + slug
}

// Artifacts lists and parses every artifact, preserving listing order.
// Files without a known suffix are ignored.
func (r *Reconciler) Artifacts(ctx context.Context) ([]models.ContentArtifact, error) {
	refs, err := r.src.ListArtifacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list artifacts: %w", err)
	}

	type item struct {
		ref  dualwrite.ArtifactRef
		slug string
	}
	var items []item
	for _, ref := range refs {
		if slug, ok := Slug(ref.Name); ok {
			items = append(items, item{ref: ref, slug: slug})
		}
	}

	at := r.now().UTC()
	out := make([]models.ContentArtifact, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, it := range items {
		g.Go(func() error {
			data, rev, err := r.src.ReadArtifact(gctx, it.ref.Path)
			if err != nil {
				return fmt.Errorf("reconcile: read %s: %w", it.ref.Path, err)
			}
			a, err := r.build(it.ref.Path, it.slug, data, rev, at)
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Parse builds an artifact from a working-copy file, for index maintenance.
// ok is false for files without an artifact suffix or that fail to parse.
func (r *Reconciler) Parse(p string, data []byte) (models.ContentArtifact, bool) {
	slug, ok := Slug(p)
	if !ok {
		return models.ContentArtifact{}, false
	}
	a, err := r.build(p, slug, data, checksum.GitBlob(data), r.now().UTC())
	if err != nil {
		r.logger.Warn("artifact parse failed", slog.String("path", p), slog.String("error", err.Error()))
		return models.ContentArtifact{}, false
	}
	return a, true
}

func (r *Reconciler) build(p, slug string, data []byte, rev string, at time.Time) (models.ContentArtifact, error) {
	parsed, err := parser.ParseFile(p, data)
	if err != nil {
		return models.ContentArtifact{}, fmt.Errorf("reconcile: parse %s: %w", p, err)
	}
	return models.ContentArtifact{
		Slug:        slug,
		Path:        p,
		Title:       parsed.Title,
		URL:         r.URLFor(slug),
		Excerpt:     parsed.Excerpt,
		Tags:        parsed.Tags,
		Body:        parsed.Body,
		Revision:    rev,
		PublishedAt: at,
	}, nil
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	Records   []models.KeywordRecord
	Updated   []string // keywords whose records changed
	Artifacts []models.ContentArtifact
}

// Run matches records against the current artifacts and returns the next
// table. records is not modified. A second Run over the returned records with
// unchanged artifacts reports no updates.
func (r *Reconciler) Run(ctx context.Context, records []models.KeywordRecord) (*Result, error) {
	artifacts, err := r.Artifacts(ctx)
	if err != nil {
		return nil, err
	}
	return r.Apply(records, artifacts), nil
}

// Apply is the pure part of Run.
func (r *Reconciler) Apply(records []models.KeywordRecord, artifacts []models.ContentArtifact) *Result {
	next := make([]models.KeywordRecord, len(records))
	copy(next, records)

	res := &Result{Records: next, Artifacts: artifacts}
	at := r.now()
	for _, m := range FindMatches(next, artifacts) {
		if queue.MarkPublished(&next[m.Index], artifacts[m.Artifact], at) {
			res.Updated = append(res.Updated, next[m.Index].Keyword)
			r.logger.Debug("keyword matched artifact",
				slog.String("keyword", next[m.Index].Keyword),
				slog.String("slug", artifacts[m.Artifact].Slug),
				slog.String("match", string(m.Kind)))
		}
	}
	return res
}
