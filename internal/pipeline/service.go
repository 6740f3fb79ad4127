// Package pipeline is the operation surface of the keyword queue: every
// entry point (HTTP, MCP, CLI) goes through Service.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/auth"
	"github.com/starford/inkwell/internal/dualwrite"
	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/queue"
	"github.com/starford/inkwell/internal/reconcile"
	"github.com/starford/inkwell/internal/sse"
	"github.com/starford/inkwell/internal/storage"
)

// Result is the user-facing outcome of a mutating operation. A non-empty
// Warning means the operation succeeded with a degraded target.
type Result struct {
	Message string `json:"message"`
	Warning string `json:"warning,omitempty"`
}

// Partial reports whether the operation only partially persisted.
func (r Result) Partial() bool { return r.Warning != "" }

// ReconcileResult reports a reconciliation pass.
type ReconcileResult struct {
	Result
	UpdatedCount int      `json:"updated_count"`
	Updated      []string `json:"updated"`
}

// Events receives change notifications.
type Events interface {
	Publish(event sse.Event)
	PublishChange(event sse.Event)
}

// Service serializes queue mutations and records them in the audit log.
type Service struct {
	coord  *dualwrite.Coordinator
	rec    *reconcile.Reconciler
	db     index.ContentIndex
	locker storage.Locker
	events Events
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLocker adds a cross-process lock taken around every mutation.
func WithLocker(l storage.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithEvents sets the change-notification sink.
func WithEvents(e Events) Option {
	return func(s *Service) { s.events = e }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service.
func New(coord *dualwrite.Coordinator, rec *reconcile.Reconciler, db index.ContentIndex, opts ...Option) *Service {
	s := &Service{coord: coord, rec: rec, db: db, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddKeyword validates req and appends it to the queue.
func (s *Service) AddKeyword(ctx context.Context, req queue.AddRequest) (rec models.KeywordRecord, res Result, err error) {
	defer func() { s.audit(ctx, "add_keyword", strings.TrimSpace(req.Keyword), res, err) }()
	if err = auth.RequireAdmin(ctx); err != nil {
		return rec, res, err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return rec, res, err
	}
	defer unlock()

	tbl, err := s.coord.LoadTable(ctx)
	if err != nil {
		return rec, res, err
	}
	next, rec, err := queue.Add(tbl.Records, req)
	if err != nil {
		return rec, res, err
	}
	out, err := s.coord.CommitTable(ctx, next, tbl.Revision, fmt.Sprintf("Add keyword %q", rec.Keyword))
	if err != nil {
		res.Warning = out.Warning
		return rec, res, err
	}

	res = s.result(out, fmt.Sprintf("Keyword %q added to the queue", rec.Keyword))
	s.publish(sse.Event{Type: sse.KeywordAdded, Data: rec})
	return rec, res, nil
}

// RemoveKeyword deletes the record whose keyword matches exactly.
func (s *Service) RemoveKeyword(ctx context.Context, keyword string) (res Result, err error) {
	defer func() { s.audit(ctx, "remove_keyword", keyword, res, err) }()
	if err = auth.RequireAdmin(ctx); err != nil {
		return res, err
	}
	if strings.TrimSpace(keyword) == "" {
		return res, apperr.Validationf("keyword is required")
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	tbl, err := s.coord.LoadTable(ctx)
	if err != nil {
		return res, err
	}
	next, err := queue.Remove(tbl.Records, keyword)
	if err != nil {
		return res, err
	}
	out, err := s.coord.CommitTable(ctx, next, tbl.Revision, fmt.Sprintf("Remove keyword %q", keyword))
	if err != nil {
		res.Warning = out.Warning
		return res, err
	}

	res = s.result(out, fmt.Sprintf("Keyword %q removed from the queue", keyword))
	s.publish(sse.Event{Type: sse.KeywordRemoved, Data: map[string]string{"keyword": keyword}})
	return res, nil
}

// SetStatus applies a production-state transition.
func (s *Service) SetStatus(ctx context.Context, keyword, status string) (rec models.KeywordRecord, res Result, err error) {
	defer func() { s.audit(ctx, "set_status", keyword, res, err) }()
	if err = auth.RequireAdmin(ctx); err != nil {
		return rec, res, err
	}
	st, ok := models.ParseStatus(status)
	if !ok {
		return rec, res, apperr.Validationf("unknown status %q", status)
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return rec, res, err
	}
	defer unlock()

	tbl, err := s.coord.LoadTable(ctx)
	if err != nil {
		return rec, res, err
	}
	next, changed, err := queue.SetStatus(tbl.Records, keyword, st)
	if err != nil {
		return rec, res, err
	}
	rec = next[queue.IndexOf(next, keyword)]
	if !changed {
		return rec, Result{Message: fmt.Sprintf("Keyword %q is already %s", rec.Keyword, st)}, nil
	}
	out, err := s.coord.CommitTable(ctx, next, tbl.Revision, fmt.Sprintf("Set %q to %s", rec.Keyword, st))
	if err != nil {
		res.Warning = out.Warning
		return rec, res, err
	}

	res = s.result(out, fmt.Sprintf("Keyword %q is now %s", rec.Keyword, st))
	s.publish(sse.Event{Type: sse.KeywordStatus, Data: rec})
	return rec, res, nil
}

// DeleteContent removes the artifact with the given slug from both targets
// and returns every record that pointed at it to the queue.
func (s *Service) DeleteContent(ctx context.Context, slug string) (res Result, err error) {
	defer func() { s.audit(ctx, "delete_content", slug, res, err) }()
	if err = auth.RequireAdmin(ctx); err != nil {
		return res, err
	}
	slug = strings.TrimSpace(slug)
	if slug == "" || strings.ContainsAny(slug, `/\`) || slug == "." || slug == ".." {
		return res, apperr.Validationf("invalid slug %q", slug)
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	ref, err := s.findArtifact(ctx, slug)
	if err != nil {
		return res, err
	}
	delOut, err := s.coord.DeleteArtifact(ctx, ref, fmt.Sprintf("Delete content %s", slug))
	if err != nil {
		res.Warning = delOut.Warning
		return res, err
	}
	if ierr := s.db.DeleteArtifact(ref.Path); ierr != nil {
		s.logger.Warn("index delete failed", slog.String("path", ref.Path), slog.String("error", ierr.Error()))
	}

	tbl, err := s.coord.LoadTable(ctx)
	if err != nil {
		return res, fmt.Errorf("content deleted but queue not updated: %w", err)
	}
	next, n := queue.ResetForSlug(tbl.Records, slug)
	warnings := []string{delOut.Warning}
	if n > 0 {
		out, err := s.coord.CommitTable(ctx, next, tbl.Revision, fmt.Sprintf("Requeue keywords for deleted content %s", slug))
		if err != nil {
			res.Warning = joinWarnings(delOut.Warning, out.Warning)
			return res, fmt.Errorf("content deleted but queue not updated: %w", err)
		}
		warnings = append(warnings, out.Warning)
	}

	res = Result{
		Message: fmt.Sprintf("Content %q deleted; %d keyword(s) returned to the queue", slug, n),
		Warning: joinWarnings(warnings...),
	}
	s.logResult("content deleted", res)
	s.publish(sse.Event{Type: sse.ContentDeleted, Data: map[string]any{"slug": slug, "requeued": n}})
	return res, nil
}

// Reconcile matches the queue against the published artifacts, refreshes the
// content index, and rewrites the table once when any record changed.
func (s *Service) Reconcile(ctx context.Context) (res ReconcileResult, err error) {
	defer func() { s.audit(ctx, "reconcile", "", res.Result, err) }()
	if err = auth.RequireAdmin(ctx); err != nil {
		return res, err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return res, err
	}
	defer unlock()

	tbl, err := s.coord.LoadTable(ctx)
	if err != nil {
		return res, err
	}
	run, err := s.rec.Run(ctx, tbl.Records)
	if err != nil {
		return res, err
	}
	if _, ierr := s.db.SyncArtifacts(run.Artifacts); ierr != nil {
		s.logger.Warn("index sync failed", slog.String("error", ierr.Error()))
	}

	res.Updated = nonNilSlice(run.Updated)
	res.UpdatedCount = len(run.Updated)
	if res.UpdatedCount == 0 {
		res.Message = "Queue already in sync with published content"
		return res, nil
	}
	out, err := s.coord.CommitTable(ctx, run.Records, tbl.Revision,
		fmt.Sprintf("Sync %d keyword(s) with published content", res.UpdatedCount))
	if err != nil {
		res.Warning = out.Warning
		return res, err
	}
	res.Result = s.result(out, fmt.Sprintf("Synced %d keyword(s) with published content", res.UpdatedCount))
	s.publish(sse.Event{Type: sse.QueueReconciled, Data: map[string]any{"updated_count": res.UpdatedCount, "updated": res.Updated}})
	return res, nil
}

// ListKeywords returns the queue, optionally filtered by status.
func (s *Service) ListKeywords(ctx context.Context, status string) ([]models.KeywordRecord, error) {
	var want models.Status
	if status != "" {
		st, ok := models.ParseStatus(status)
		if !ok {
			return nil, apperr.Validationf("unknown status %q", status)
		}
		want = st
	}
	tbl, err := s.coord.LoadTable(ctx)
	if err != nil {
		return nil, err
	}
	out := []models.KeywordRecord{}
	for _, r := range tbl.Records {
		if want == "" || r.Status == want {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListContent returns a page of indexed artifacts.
func (s *Service) ListContent(_ context.Context, limit, offset int, tag string) ([]models.ContentArtifact, int, error) {
	return s.db.ListArtifacts(limit, offset, tag)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.Validationf("query is required")
	}
	res, err := s.db.Search(query, limit)
	return nonNilSlice(res), err
}

// History returns recent audit-log entries, newest first.
func (s *Service) History(_ context.Context, limit int, subject string) ([]index.Operation, error) {
	return s.db.Operations(limit, subject)
}

// RefreshIndex rebuilds the content index from the authoritative artifacts.
func (s *Service) RefreshIndex(ctx context.Context) (int, error) {
	arts, err := s.rec.Artifacts(ctx)
	if err != nil {
		return 0, err
	}
	return s.db.SyncArtifacts(arts)
}

func (s *Service) findArtifact(ctx context.Context, slug string) (dualwrite.ArtifactRef, error) {
	refs, err := s.coord.ListArtifacts(ctx)
	if err != nil {
		return dualwrite.ArtifactRef{}, err
	}
	for _, ref := range refs {
		if got, ok := reconcile.Slug(ref.Name); ok && got == slug {
			return ref, nil
		}
	}
	return dualwrite.ArtifactRef{}, fmt.Errorf("content %q: %w", slug, apperr.ErrNotFound)
}

func (s *Service) lock(ctx context.Context) (func(), error) {
	s.mu.Lock()
	if s.locker == nil {
		return s.mu.Unlock, nil
	}
	release, err := s.locker.Lock(ctx)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	return func() {
		release()
		s.mu.Unlock()
	}, nil
}

func (s *Service) result(out dualwrite.Outcome, message string) Result {
	res := Result{Message: message, Warning: out.Warning}
	s.logResult(message, res)
	return res
}

func (s *Service) logResult(message string, res Result) {
	if res.Partial() {
		s.logger.Warn(message, slog.String("warning", res.Warning))
		return
	}
	s.logger.Info(message)
}

func (s *Service) publish(event sse.Event) {
	if s.events != nil {
		s.events.PublishChange(event)
	}
}

func (s *Service) audit(ctx context.Context, name, subject string, res Result, err error) {
	op := index.Operation{Name: name, Subject: subject, Outcome: index.OutcomeOK, Message: res.Message, Warning: res.Warning}
	if p, ok := auth.FromContext(ctx); ok {
		op.Actor = p.Subject
	}
	switch {
	case err != nil:
		op.Outcome = index.OutcomeFailed
		op.Message = err.Error()
	case res.Partial():
		op.Outcome = index.OutcomePartial
	}
	if _, aerr := s.db.RecordOperation(op); aerr != nil {
		s.logger.Warn("audit log write failed", slog.String("operation", name), slog.String("error", aerr.Error()))
	}
	if err != nil && !errors.Is(err, apperr.ErrValidation) && !errors.Is(err, apperr.ErrForbidden) {
		s.logger.Error("operation failed", slog.String("operation", name), slog.String("subject", subject), slog.String("error", err.Error()))
	}
}

func joinWarnings(ws ...string) string {
	var parts []string
	for _, w := range ws {
		if w != "" {
			parts = append(parts, w)
		}
	}
	return strings.Join(parts, "; ")
}

// nonNilSlice returns s if non-nil, otherwise an empty slice.
// Ensures JSON serialization produces [] instead of null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
