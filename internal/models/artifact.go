package models

import "time"

// ContentArtifact is a published content file, identified by its slug.
type ContentArtifact struct {
	Slug        string    `json:"slug"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Excerpt     string    `json:"excerpt"`
	Tags        []string  `json:"tags"`
	Body        string    `json:"-"`
	Revision    string    `json:"revision"`
	PublishedAt time.Time `json:"published_at"`
}

// BlobMeta is a lightweight listing entry for a stored file.
type BlobMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
