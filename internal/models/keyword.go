// Package models defines the domain types for Inkwell.
package models

import "strings"

// Status is the production lifecycle state of a keyword.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusGenerating Status = "generating"
	StatusPublished  Status = "published"
	StatusFailed     Status = "failed"
)

// Stage is the funnel classification of a keyword. Informational only.
type Stage string

const (
	StageTOFU Stage = "TOFU"
	StageMOFU Stage = "MOFU"
	StageBOFU Stage = "BOFU"
)

// Intent is the search intent of a keyword. Informational only.
type Intent string

const (
	IntentInformational Intent = "informational"
	IntentTransactional Intent = "transactional"
	IntentCommercial    Intent = "commercial"
	IntentComparison    Intent = "comparison"
)

// Priority orders keywords for production.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var (
	allStatuses   = []Status{StatusQueued, StatusGenerating, StatusPublished, StatusFailed}
	allStages     = []Stage{StageTOFU, StageMOFU, StageBOFU}
	allIntents    = []Intent{IntentInformational, IntentTransactional, IntentCommercial, IntentComparison}
	allPriorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}
)

// KeywordRecord is one row of the queue table.
type KeywordRecord struct {
	Keyword       string   `json:"keyword"`
	Status        Status   `json:"status"`
	Stage         Stage    `json:"stage"`
	Intent        Intent   `json:"intent"`
	Priority      Priority `json:"priority"`
	Title         string   `json:"title"`
	Excerpt       string   `json:"excerpt"`
	URL           string   `json:"url"`
	LastGenerated string   `json:"last_generated"`

	// Extra holds columns the table carries that are not part of the record
	// schema, so hand-added columns survive a rewrite.
	Extra map[string]string `json:"extra,omitempty"`
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range allStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// NormalizeStatus maps unknown or empty values to StatusQueued.
func NormalizeStatus(value string) Status {
	if s, ok := ParseStatus(value); ok {
		return s
	}
	return StatusQueued
}

// ParseStage accepts any casing of a known stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToUpper(strings.TrimSpace(value)))
	for _, s := range allStages {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// ParseIntent accepts any casing of a known intent.
func ParseIntent(value string) (Intent, bool) {
	normalized := Intent(strings.ToLower(strings.TrimSpace(value)))
	for _, i := range allIntents {
		if i == normalized {
			return i, true
		}
	}
	return "", false
}

// ParsePriority accepts any casing of a known priority.
func ParsePriority(value string) (Priority, bool) {
	normalized := Priority(strings.ToLower(strings.TrimSpace(value)))
	for _, p := range allPriorities {
		if p == normalized {
			return p, true
		}
	}
	return "", false
}

// StageValues, IntentValues and PriorityValues list the accepted enum values
// as plain strings, for validators and help text.
func StageValues() []string {
	out := make([]string, len(allStages))
	for i, s := range allStages {
		out[i] = string(s)
	}
	return out
}

func IntentValues() []string {
	out := make([]string, len(allIntents))
	for i, v := range allIntents {
		out[i] = string(v)
	}
	return out
}

func PriorityValues() []string {
	out := make([]string, len(allPriorities))
	for i, v := range allPriorities {
		out[i] = string(v)
	}
	return out
}

// SameKeyword reports whether two keywords collide under the queue's
// case-insensitive uniqueness rule.
func SameKeyword(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
