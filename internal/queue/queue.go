// Package queue implements the keyword queue's state transitions as pure
// functions over the record slice. Callers persist the returned table.
package queue

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/inkwell/internal/apperr"
	"github.com/starford/inkwell/internal/models"
)

// AddRequest describes a keyword to enqueue. Empty enum fields take the
// queue defaults.
type AddRequest struct {
	Keyword  string `json:"keyword"`
	Stage    string `json:"stage"`
	Intent   string `json:"intent"`
	Priority string `json:"priority"`
}

// Defaults applied by Add.
const (
	DefaultStage    = models.StageTOFU
	DefaultIntent   = models.IntentInformational
	DefaultPriority = models.PriorityMedium
)

// normalize trims and canonicalizes enum casing in place. Unknown values are
// left as given so Validate can reject them.
func (r *AddRequest) normalize() {
	r.Keyword = strings.TrimSpace(r.Keyword)
	r.Stage = strings.TrimSpace(r.Stage)
	r.Intent = strings.TrimSpace(r.Intent)
	r.Priority = strings.TrimSpace(r.Priority)
	if r.Stage == "" {
		r.Stage = string(DefaultStage)
	} else if s, ok := models.ParseStage(r.Stage); ok {
		r.Stage = string(s)
	}
	if r.Intent == "" {
		r.Intent = string(DefaultIntent)
	} else if i, ok := models.ParseIntent(r.Intent); ok {
		r.Intent = string(i)
	}
	if r.Priority == "" {
		r.Priority = string(DefaultPriority)
	} else if p, ok := models.ParsePriority(r.Priority); ok {
		r.Priority = string(p)
	}
}

// Validate checks the request after normalization.
func (r AddRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Keyword, validation.Required),
		validation.Field(&r.Stage, validation.In(toAny(models.StageValues())...)),
		validation.Field(&r.Intent, validation.In(toAny(models.IntentValues())...)),
		validation.Field(&r.Priority, validation.In(toAny(models.PriorityValues())...)),
	)
}

// Add appends a new queued record derived from req. Keywords are unique
// case-insensitively; the input slice is never modified.
func Add(records []models.KeywordRecord, req AddRequest) ([]models.KeywordRecord, models.KeywordRecord, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, models.KeywordRecord{}, fmt.Errorf("%w: %v", apperr.ErrValidation, err)
	}
	if i := IndexOf(records, req.Keyword); i >= 0 {
		return nil, models.KeywordRecord{}, fmt.Errorf("%w: %q already queued as %q",
			apperr.ErrDuplicateKeyword, req.Keyword, records[i].Keyword)
	}

	rec := models.KeywordRecord{
		Keyword:  req.Keyword,
		Status:   models.StatusQueued,
		Stage:    models.Stage(req.Stage),
		Intent:   models.Intent(req.Intent),
		Priority: models.Priority(req.Priority),
		Title:    DeriveTitle(req.Keyword),
		Excerpt:  DeriveExcerpt(req.Keyword),
	}
	out := make([]models.KeywordRecord, 0, len(records)+1)
	out = append(out, records...)
	out = append(out, rec)
	return out, rec, nil
}

// Remove drops the record whose keyword matches exactly (case-sensitive).
func Remove(records []models.KeywordRecord, keyword string) ([]models.KeywordRecord, error) {
	keyword = strings.TrimSpace(keyword)
	for i, r := range records {
		if r.Keyword == keyword {
			out := make([]models.KeywordRecord, 0, len(records)-1)
			out = append(out, records[:i]...)
			return append(out, records[i+1:]...), nil
		}
	}
	return nil, fmt.Errorf("keyword %q: %w", keyword, apperr.ErrNotFound)
}

// ResetForSlug returns every record whose URL points at slug to the queue,
// clearing its URL and last_generated. It reports how many records changed.
func ResetForSlug(records []models.KeywordRecord, slug string) ([]models.KeywordRecord, int) {
	out := clone(records)
	n := 0
	for i := range out {
		if out[i].URL == "" || SlugOf(out[i].URL) != slug {
			continue
		}
		out[i].Status = models.StatusQueued
		out[i].URL = ""
		out[i].LastGenerated = ""
		n++
	}
	return out, n
}

// MarkPublished records that rec is realized by artifact a, observed at the
// given time. It reports whether any field other than last_generated changed;
// last_generated is only stamped when something else did, so re-running over
// unchanged artifacts is a no-op.
func MarkPublished(rec *models.KeywordRecord, a models.ContentArtifact, at time.Time) bool {
	next := *rec
	next.Status = models.StatusPublished
	next.URL = a.URL
	if a.Title != "" {
		next.Title = a.Title
	}
	if a.Excerpt != "" {
		next.Excerpt = a.Excerpt
	}

	changed := next.Status != rec.Status ||
		next.URL != rec.URL ||
		next.Title != rec.Title ||
		next.Excerpt != rec.Excerpt
	if !changed {
		return false
	}
	next.LastGenerated = at.UTC().Format(time.RFC3339)
	*rec = next
	return true
}

var transitions = map[models.Status][]models.Status{
	models.StatusQueued:     {models.StatusGenerating},
	models.StatusGenerating: {models.StatusPublished, models.StatusFailed, models.StatusQueued},
	models.StatusFailed:     {models.StatusQueued},
	models.StatusPublished:  {},
}

// CanTransition reports whether SetStatus permits from → to.
func CanTransition(from, to models.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SetStatus moves keyword (matched case-insensitively) to status. Setting the
// current status again is a no-op and reports changed == false.
func SetStatus(records []models.KeywordRecord, keyword string, status models.Status) (out []models.KeywordRecord, changed bool, err error) {
	i := IndexOf(records, keyword)
	if i < 0 {
		return nil, false, fmt.Errorf("keyword %q: %w", keyword, apperr.ErrNotFound)
	}
	from := records[i].Status
	if from == status {
		return records, false, nil
	}
	if !CanTransition(from, status) {
		return nil, false, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, status)
	}
	out = clone(records)
	out[i].Status = status
	if status == models.StatusQueued {
		out[i].URL = ""
		out[i].LastGenerated = ""
	}
	return out, true, nil
}

// IndexOf returns the position of keyword under case-insensitive matching, or -1.
func IndexOf(records []models.KeywordRecord, keyword string) int {
	for i, r := range records {
		if models.SameKeyword(r.Keyword, keyword) {
			return i
		}
	}
	return -1
}

// DeriveTitle capitalizes the first letter of every word, leaving the other
// letters untouched ("crm for SaaS" → "Crm For SaaS").
func DeriveTitle(keyword string) string {
	return cases.Title(language.Und, cases.NoLower).String(strings.TrimSpace(keyword))
}

// DeriveExcerpt returns the placeholder excerpt for a newly queued keyword.
func DeriveExcerpt(keyword string) string {
	return fmt.Sprintf("Everything you need to know about %s.", strings.TrimSpace(keyword))
}

// SlugOf returns the path-unescaped last segment of a content URL.
func SlugOf(rawURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	if u, err := url.Parse(trimmed); err == nil {
		trimmed = u.EscapedPath()
	}
	seg := trimmed[strings.LastIndex(trimmed, "/")+1:]
	if unescaped, err := url.PathUnescape(seg); err == nil {
		return unescaped
	}
	return seg
}

func clone(records []models.KeywordRecord) []models.KeywordRecord {
	out := make([]models.KeywordRecord, len(records))
	copy(out, records)
	return out
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
