package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"

	"github.com/starford/inkwell/internal/apperr"
)

// GitHubConfig identifies the repository and branch the adapter writes to.
type GitHubConfig struct {
	Owner   string
	Repo    string
	Branch  string
	Token   string
	BaseURL string        // API root; empty means api.github.com
	Timeout time.Duration // per call; zero disables
}

// GitHub is a Store backed by the GitHub repository contents API.
type GitHub struct {
	client  *github.Client
	owner   string
	repo    string
	branch  string
	timeout time.Duration
}

// NewGitHub builds a contents-API adapter. httpClient may be nil.
func NewGitHub(cfg GitHubConfig, httpClient *http.Client) (*GitHub, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, apperr.Validationf("remote: github owner and repo are required")
	}
	client := github.NewClient(httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, apperr.Validationf("remote: invalid base url %q: %v", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}
	return &GitHub{
		client:  client,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		timeout: cfg.Timeout,
	}, nil
}

func (g *GitHub) Fetch(ctx context.Context, p string) (blob *Blob, err error) {
	ctx, span := startSpan(ctx, "remote.github.fetch", p)
	defer func() { endSpan(span, err) }()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	return g.fetch(ctx, p)
}

func (g *GitHub) fetch(ctx context.Context, p string) (*Blob, error) {
	file, _, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, p, g.getOpts())
	if err != nil {
		return nil, mapError("fetch", p, err)
	}
	if file == nil {
		return nil, fmt.Errorf("remote: fetch %s: is a directory: %w", p, apperr.ErrNotFound)
	}
	text, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("remote: decode %s: %w", p, err)
	}
	return &Blob{Path: file.GetPath(), Content: []byte(text), Revision: file.GetSHA()}, nil
}

func (g *GitHub) Put(ctx context.Context, p string, content []byte, expectedRevision, message string) (rev string, err error) {
	ctx, span := startSpan(ctx, "remote.github.put", p)
	defer func() { endSpan(span, err) }()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	current, err := g.currentRevision(ctx, p)
	if err != nil {
		return "", err
	}
	if current != expectedRevision {
		return "", &apperr.ConflictError{Path: p, ExpectedRevision: expectedRevision, CurrentRevision: current}
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}

	var res *github.RepositoryContentResponse
	if expectedRevision == "" {
		res, _, err = g.client.Repositories.CreateFile(ctx, g.owner, g.repo, p, opts)
	} else {
		opts.SHA = github.String(expectedRevision)
		res, _, err = g.client.Repositories.UpdateFile(ctx, g.owner, g.repo, p, opts)
	}
	if err != nil {
		return "", mapWriteError("put", p, expectedRevision, err)
	}
	if res == nil || res.Content == nil {
		return "", fmt.Errorf("remote: put %s: empty response: %w", p, apperr.ErrRemoteUnavailable)
	}
	return res.Content.GetSHA(), nil
}

func (g *GitHub) Delete(ctx context.Context, p string, expectedRevision, message string) (err error) {
	ctx, span := startSpan(ctx, "remote.github.delete", p)
	defer func() { endSpan(span, err) }()
	if expectedRevision == "" {
		return apperr.Validationf("remote: delete %s: revision required", p)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	current, err := g.currentRevision(ctx, p)
	if err != nil {
		return err
	}
	if current == "" {
		return fmt.Errorf("remote: delete %s: %w", p, apperr.ErrNotFound)
	}
	if current != expectedRevision {
		return &apperr.ConflictError{Path: p, ExpectedRevision: expectedRevision, CurrentRevision: current}
	}

	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(expectedRevision),
	}
	if g.branch != "" {
		opts.Branch = github.String(g.branch)
	}
	if _, _, err := g.client.Repositories.DeleteFile(ctx, g.owner, g.repo, p, opts); err != nil {
		return mapWriteError("delete", p, expectedRevision, err)
	}
	return nil
}

func (g *GitHub) List(ctx context.Context, dir string) (entries []Entry, err error) {
	ctx, span := startSpan(ctx, "remote.github.list", dir)
	defer func() { endSpan(span, err) }()
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	_, items, _, err := g.client.Repositories.GetContents(ctx, g.owner, g.repo, dir, g.getOpts())
	if err != nil {
		return nil, mapError("list", dir, err)
	}
	for _, it := range items {
		if it.GetType() != "file" {
			continue
		}
		entries = append(entries, Entry{Name: it.GetName(), Path: it.GetPath(), Revision: it.GetSHA()})
	}
	return entries, nil
}

// currentRevision re-reads the file's revision immediately before a write.
// A missing file has revision "".
func (g *GitHub) currentRevision(ctx context.Context, p string) (string, error) {
	blob, err := g.fetch(ctx, p)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return blob.Revision, nil
}

func (g *GitHub) getOpts() *github.RepositoryContentGetOptions {
	if g.branch == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: g.branch}
}

func (g *GitHub) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.timeout)
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

func mapError(op, p string, err error) error {
	if statusOf(err) == http.StatusNotFound {
		return fmt.Errorf("remote: %s %s: %w", op, p, apperr.ErrNotFound)
	}
	return fmt.Errorf("remote: %s %s: %w: %v", op, p, apperr.ErrRemoteUnavailable, err)
}

// mapWriteError treats GitHub's sha-mismatch responses as revision conflicts.
// The current revision is unknown at that point.
func mapWriteError(op, p, expected string, err error) error {
	switch statusOf(err) {
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return &apperr.ConflictError{Path: p, ExpectedRevision: expected}
	}
	return mapError(op, p, err)
}
