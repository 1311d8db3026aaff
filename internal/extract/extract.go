// Package extract turns raw post bodies into plain text for scoring and
// relevance prompts.
package extract

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reMarkdownLink  = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reBlockMarks    = regexp.MustCompile(`(?m)^\s{0,3}(#{1,6}|>+|[-*+]\s)\s*`)
	reBareURL       = regexp.MustCompile(`https?://\S+`)
	reWhitespace    = regexp.MustCompile(`\s+`)
	reTag           = regexp.MustCompile(`<[a-zA-Z/][^>]*>`)

	// Paired emphasis markers. Underscores only count on word boundaries so
	// identifiers like snake_case survive.
	reCode       = regexp.MustCompile("`+([^`]+?)`+")
	reStrong     = regexp.MustCompile(`\*\*([^*\s](?:[^*]*?[^*\s])?)\*\*`)
	reStrike     = regexp.MustCompile(`~~([^~\s](?:[^~]*?[^~\s])?)~~`)
	reEm         = regexp.MustCompile(`\*([^*\s](?:[^*]*?[^*\s])?)\*`)
	reUnderscore = regexp.MustCompile(`(^|[^\p{L}\p{N}_])__?([^_\s](?:[^_]*?[^_\s])?)__?($|[^\p{L}\p{N}_])`)
)

// Text normalizes a post body: HTML markup is reduced to its text,
// entities are unescaped, markdown decoration and bare URLs are removed,
// and whitespace is collapsed.
func Text(body string) string {
	if body == "" {
		return ""
	}
	if reTag.MatchString(body) {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(body)); err == nil {
			body = doc.Text()
		}
	}
	body = html.UnescapeString(body)
	body = reMarkdownLink.ReplaceAllString(body, "$1")
	body = reBareURL.ReplaceAllString(body, " ")
	body = reBlockMarks.ReplaceAllString(body, "")
	body = stripEmphasis(body)
	return strings.TrimSpace(reWhitespace.ReplaceAllString(body, " "))
}

func stripEmphasis(s string) string {
	s = reCode.ReplaceAllString(s, "$1")
	s = reStrong.ReplaceAllString(s, "$1")
	s = reStrike.ReplaceAllString(s, "$1")
	s = reEm.ReplaceAllString(s, "$1")
	// Adjacent matches share their boundary character; a second pass
	// catches the ones the first skipped.
	for i := 0; i < 2; i++ {
		s = reUnderscore.ReplaceAllString(s, "${1}${2}${3}")
	}
	return s
}

// Truncate cuts s to at most n runes, appending an ellipsis when shortened.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}
