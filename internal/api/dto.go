package api

import (
	"github.com/starford/inkwell/internal/index"
	"github.com/starford/inkwell/internal/models"
)

// AddKeywordRequest is the request body for queueing a keyword.
type AddKeywordRequest struct {
	Keyword  string `json:"keyword" example:"crm pricing" validate:"required"`
	Stage    string `json:"stage,omitempty" example:"MOFU"`
	Intent   string `json:"intent,omitempty" example:"commercial"`
	Priority string `json:"priority,omitempty" example:"high"`
}

// SetStatusRequest is the request body for a status transition.
type SetStatusRequest struct {
	Status string `json:"status" example:"generating" validate:"required"`
}

// KeywordListResponse wraps the queue listing.
type KeywordListResponse struct {
	Keywords []models.KeywordRecord `json:"keywords" validate:"required"`
	Total    int                    `json:"total" example:"12" validate:"required"`
}

// KeywordResponse is returned after a keyword mutation.
type KeywordResponse struct {
	Message string               `json:"message" validate:"required"`
	Warning string               `json:"warning,omitempty"`
	Partial bool                 `json:"partial,omitempty"`
	Keyword models.KeywordRecord `json:"keyword"`
}

// ContentListResponse wraps paginated artifact listings.
type ContentListResponse struct {
	Content []models.ContentArtifact `json:"content" validate:"required"`
	Total   int                      `json:"total" example:"42" validate:"required"`
}

// ReconcileResponse reports a reconciliation pass.
type ReconcileResponse struct {
	Message      string   `json:"message" validate:"required"`
	Warning      string   `json:"warning,omitempty"`
	Partial      bool     `json:"partial,omitempty"`
	UpdatedCount int      `json:"updated_count" example:"3" validate:"required"`
	Updated      []string `json:"updated" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// HistoryResponse wraps audit-log entries.
type HistoryResponse struct {
	Operations []index.Operation `json:"operations" validate:"required"`
}
