package index

import (
	"log/slog"
	"path"

	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

// Parser builds the indexed form of an artifact file. ok is false for files
// that are not artifacts.
type Parser func(path string, data []byte) (a models.ContentArtifact, ok bool)

// Sync brings the index up to date with the artifacts directly inside dir of
// the working copy:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, dir string, parse Parser, logger *slog.Logger) error {
	metas, err := store.List(dir)
	if err != nil {
		return err
	}

	var arts []models.ContentArtifact
	for _, m := range metas {
		if path.Dir(m.Path) != path.Clean(dir) {
			continue
		}
		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		a, ok := parse(m.Path, data)
		if !ok {
			continue
		}
		arts = append(arts, a)
	}

	n, err := db.SyncArtifacts(arts)
	if err != nil {
		return err
	}
	logger.Debug("sync: index refreshed", slog.Int("artifacts", len(arts)), slog.Int("changed", n))
	return nil
}

// indexFile parses data and upserts it into the DB. It reports false when
// the file is not an artifact.
func indexFile(db *DB, p string, data []byte, parse Parser) (bool, error) {
	a, ok := parse(p, data)
	if !ok {
		return false, nil
	}
	return true, db.UpsertArtifact(a)
}
