package reconcile

import (
	"regexp"
	"sort"
	"strings"

	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/queue"
)

var (
	nonWordRe    = regexp.MustCompile(`[^\w\s-]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	hyphensRe    = regexp.MustCompile(`-+`)
)

// Normalize turns free text into slug form: lowercase, punctuation stripped,
// whitespace runs replaced by a hyphen, hyphen runs collapsed and trimmed.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonWordRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = hyphensRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// MatchKind records which rule paired a record with an artifact.
type MatchKind string

const (
	MatchDirect      MatchKind = "direct"
	MatchExact       MatchKind = "exact"
	MatchContainment MatchKind = "containment"
)

// Match pairs the record at Index with the artifact at Artifact.
type Match struct {
	Index    int
	Artifact int
	Kind     MatchKind
}

type candidate struct {
	pos  int
	slug string
	norm string
}

// FindMatches pairs records with artifacts. Rules apply in order, first hit
// wins:
//
//  1. direct: the last segment of the record's URL is an artifact slug
//  2. exact: the normalized keyword equals the normalized slug
//  3. containment: either contains the other; the longest contained string
//     wins, ties broken by slug ascending
//
// Records with no match are omitted. Several records may match one artifact.
func FindMatches(records []models.KeywordRecord, artifacts []models.ContentArtifact) []Match {
	bySlug := make(map[string]int, len(artifacts))
	cands := make([]candidate, 0, len(artifacts))
	for i, a := range artifacts {
		if _, dup := bySlug[a.Slug]; !dup {
			bySlug[a.Slug] = i
		}
		if n := Normalize(a.Slug); n != "" {
			cands = append(cands, candidate{pos: i, slug: a.Slug, norm: n})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].slug < cands[j].slug })

	var out []Match
	for i, rec := range records {
		if rec.URL != "" {
			if pos, ok := bySlug[queue.SlugOf(rec.URL)]; ok {
				out = append(out, Match{Index: i, Artifact: pos, Kind: MatchDirect})
				continue
			}
		}
		nk := Normalize(rec.Keyword)
		if nk == "" {
			continue
		}
		if m, ok := heuristic(nk, cands); ok {
			m.Index = i
			out = append(out, m)
		}
	}
	return out
}

func heuristic(nk string, cands []candidate) (Match, bool) {
	for _, c := range cands {
		if c.norm == nk {
			return Match{Artifact: c.pos, Kind: MatchExact}, true
		}
	}
	best, bestLen := -1, 0
	for _, c := range cands {
		var contained int
		switch {
		case strings.Contains(c.norm, nk):
			contained = len(nk)
		case strings.Contains(nk, c.norm):
			contained = len(c.norm)
		default:
			continue
		}
		// cands is slug-sorted, so strict > keeps the lowest slug on ties.
		if contained > bestLen {
			best, bestLen = c.pos, contained
		}
	}
	if best < 0 {
		return Match{}, false
	}
	return Match{Artifact: best, Kind: MatchContainment}, true
}
