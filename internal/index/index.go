package index

import "github.com/starford/inkwell/internal/models"

// ContentIndex is the read model over published artifacts plus the
// operations audit log. Consumers depend on this interface rather than the
// concrete *DB type.
type ContentIndex interface {
	UpsertArtifact(a models.ContentArtifact) error
	DeleteArtifact(path string) error
	GetRevision(path string) (string, error)
	AllRevisions() (map[string]string, error)
	ListArtifacts(limit, offset int, tag string) ([]models.ContentArtifact, int, error)
	SyncArtifacts(arts []models.ContentArtifact) (int, error)
	Search(query string, limit int) ([]SearchResult, error)
	RecordOperation(op Operation) (Operation, error)
	Operations(limit int, subject string) ([]Operation, error)
	Close() error
}

// Verify *DB satisfies ContentIndex at compile time.
var _ ContentIndex = (*DB)(nil)
