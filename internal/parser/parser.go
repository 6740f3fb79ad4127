// Package parser extracts frontmatter, title, excerpt and tags from content
// artifacts. HTML artifacts are converted to Markdown first.
package parser

import (
	"bytes"
	"fmt"
	"path"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing an artifact.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Tags        []string
	Title       string
	Excerpt     string
}

var converter = md.NewConverter("", true, nil)

// ParseFile dispatches on the file extension: .html is converted to Markdown
// before parsing, everything else is parsed as Markdown.
func ParseFile(name string, data []byte) (*Result, error) {
	if strings.EqualFold(path.Ext(name), ".html") {
		return ParseHTML(data)
	}
	return Parse(data)
}

// ParseHTML converts an HTML document to Markdown and parses the result.
func ParseHTML(data []byte) (*Result, error) {
	markdown, err := converter.ConvertString(string(data))
	if err != nil {
		return nil, fmt.Errorf("parser: convert html: %w", err)
	}
	return Parse([]byte(markdown))
}

// Parse extracts frontmatter, body, tags, title and excerpt from raw Markdown.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)
	return &Result{
		Frontmatter: fm,
		Body:        body,
		Tags:        extractTags(fm),
		Title:       deriveTitle(fm, body),
		Excerpt:     deriveExcerpt(fm, body),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: keep the whole file as body.
		return nil, string(data)
	}
	return fm, body
}

// extractTags reads frontmatter "tags" as a list or a comma-separated string.
func extractTags(fm map[string]interface{}) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	switch v := fm["tags"].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			add(s)
		}
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]interface{}, body string) string {
	if s := stringField(fm, "title"); s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// deriveExcerpt prefers frontmatter "excerpt" then "description", falling
// back to the first prose paragraph of the body.
func deriveExcerpt(fm map[string]interface{}, body string) string {
	for _, key := range []string{"excerpt", "description"} {
		if s := stringField(fm, key); s != "" {
			return s
		}
	}

	var para []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			if len(para) > 0 {
				return strings.Join(para, " ")
			}
		case isBlockMarker(trimmed):
			if len(para) > 0 {
				return strings.Join(para, " ")
			}
		default:
			para = append(para, trimmed)
		}
	}
	return strings.Join(para, " ")
}

func isBlockMarker(line string) bool {
	for _, p := range []string{"#", "```", "import ", "export ", "<", "![", "---", "|"} {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func stringField(fm map[string]interface{}, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
