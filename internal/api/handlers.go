package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/pipeline"
	"github.com/starford/inkwell/internal/queue"
)

// Handler holds API route handlers.
type Handler struct {
	svc *pipeline.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pipeline.Service) *Handler {
	return &Handler{svc: svc}
}

// pathParam extracts a URL parameter. chi routes on RawPath when the request
// has one (an escaped "/" in a keyword, say), and the value is still escaped
// in that case only.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// ListKeywords handles GET /api/keywords.
//
//	@Summary		List the keyword queue
//	@Tags			keywords
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status"	Enums(queued, generating, published, failed)
//	@Success		200		{object}	KeywordListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/keywords [get]
func (h *Handler) ListKeywords(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListKeywords(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, "list keywords", err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordListResponse{Keywords: items, Total: len(items)})
}

// AddKeyword handles POST /api/keywords.
//
//	@Summary		Queue a new keyword
//	@Tags			keywords
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddKeywordRequest	true	"Keyword to queue"
//	@Success		201		{object}	KeywordResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/keywords [post]
func (h *Handler) AddKeyword(w http.ResponseWriter, r *http.Request) {
	var req AddKeywordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, res, err := h.svc.AddKeyword(r.Context(), queue.AddRequest{
		Keyword:  req.Keyword,
		Stage:    req.Stage,
		Intent:   req.Intent,
		Priority: req.Priority,
	})
	if err != nil {
		writeError(w, "add keyword", err)
		return
	}
	writeJSON(w, http.StatusCreated, resultBody(res, map[string]any{"keyword": rec}))
}

// RemoveKeyword handles DELETE /api/keywords/{keyword}.
//
//	@Summary		Remove a keyword from the queue
//	@Tags			keywords
//	@Produce		json
//	@Param			keyword	path		string	true	"Exact keyword"
//	@Success		200		{object}	KeywordResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/keywords/{keyword} [delete]
func (h *Handler) RemoveKeyword(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RemoveKeyword(r.Context(), pathParam(r, "keyword"))
	if err != nil {
		writeError(w, "remove keyword", err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody(res, nil))
}

// SetStatus handles PATCH /api/keywords/{keyword}.
//
//	@Summary		Move a keyword to another production state
//	@Tags			keywords
//	@Accept			json
//	@Produce		json
//	@Param			keyword	path		string				true	"Keyword"
//	@Param			body	body		SetStatusRequest	true	"Target status"
//	@Success		200		{object}	KeywordResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/keywords/{keyword} [patch]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req SetStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, res, err := h.svc.SetStatus(r.Context(), pathParam(r, "keyword"), req.Status)
	if err != nil {
		writeError(w, "set status", err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody(res, map[string]any{"keyword": rec}))
}

// ListContent handles GET /api/content.
//
//	@Summary		List indexed published content
//	@Tags			content
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Success		200		{object}	ContentListResponse
//	@Security		BearerAuth
//	@Router			/content [get]
func (h *Handler) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListContent(r.Context(), limit, offset, q.Get("tag"))
	if err != nil {
		writeError(w, "list content", err)
		return
	}
	writeJSON(w, http.StatusOK, ContentListResponse{Content: items, Total: total})
}

// DeleteContent handles DELETE /api/content/{slug}.
//
//	@Summary		Delete published content and requeue its keywords
//	@Tags			content
//	@Produce		json
//	@Param			slug	path		string	true	"Content slug"
//	@Success		200		{object}	KeywordResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/content/{slug} [delete]
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.DeleteContent(r.Context(), pathParam(r, "slug"))
	if err != nil {
		writeError(w, "delete content", err)
		return
	}
	writeJSON(w, http.StatusOK, resultBody(res, nil))
}

// Reconcile handles POST /api/reconcile.
//
//	@Summary		Sync the queue with published content
//	@Tags			queue
//	@Produce		json
//	@Success		200	{object}	ReconcileResponse
//	@Failure		409	{object}	errResponse
//	@Failure		502	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/reconcile [post]
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Reconcile(r.Context())
	if err != nil {
		writeError(w, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{
		Message:      res.Message,
		Warning:      res.Warning,
		Partial:      res.Partial(),
		UpdatedCount: res.UpdatedCount,
		Updated:      res.Updated,
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across published content
//	@Tags			content
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// History handles GET /api/history.
//
//	@Summary		Recent operations, newest first
//	@Tags			queue
//	@Produce		json
//	@Param			limit	query		int		false	"Max entries"
//	@Param			subject	query		string	false	"Filter by keyword or slug"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	ops, err := h.svc.History(r.Context(), limit, r.URL.Query().Get("subject"))
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Operations: ops})
}
