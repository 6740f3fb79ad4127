// Package remote adapts the version-controlled repository that mirrors the
// working copy. Every successful write is exactly one commit.
package remote

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Blob is a file fetched from the remote together with its revision token.
type Blob struct {
	Path     string
	Content  []byte
	Revision string
}

// Entry is one item of a directory listing.
type Entry struct {
	Name     string
	Path     string
	Revision string
}

// Store is a remote repository holding the queue table and the artifacts.
//
// Revision tokens implement optimistic concurrency. Put and Delete with a
// non-empty expected revision fail with *apperr.ConflictError when the
// current revision differs. Put with an empty expected revision creates the
// file and conflicts if it already exists.
//
// Transport and authentication failures match apperr.ErrRemoteUnavailable.
// Nothing is retried.
type Store interface {
	Fetch(ctx context.Context, path string) (*Blob, error)
	Put(ctx context.Context, path string, content []byte, expectedRevision, message string) (string, error)
	Delete(ctx context.Context, path string, expectedRevision, message string) error
	List(ctx context.Context, dir string) ([]Entry, error)
}

var tracer = otel.Tracer("github.com/starford/inkwell/internal/remote")

func startSpan(ctx context.Context, name, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("remote.path", path)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
