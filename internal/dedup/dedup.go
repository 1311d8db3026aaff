// Package dedup removes repeat candidates within a keyword group.
//
// Each group owns one Scope. The same post may surface once per group, so a
// run can report it under several groups, but never twice within one.
package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-radar/internal/model"
)

const (
	titleRunes   = 100
	titleHashLen = 16
)

// Scope holds the three key sets for one keyword group.
type Scope struct {
	ids    map[string]struct{}
	urls   map[string]struct{}
	titles map[string]struct{}
}

// NewScope creates an empty Scope.
func NewScope() *Scope {
	return &Scope{
		ids:    make(map[string]struct{}),
		urls:   make(map[string]struct{}),
		titles: make(map[string]struct{}),
	}
}

// Len returns the number of candidates admitted so far.
func (s *Scope) Len() int { return len(s.ids) }

// Seen reports whether c matches any key already in the scope.
func (s *Scope) Seen(c model.Candidate) bool {
	if _, ok := s.ids[c.ID]; ok && c.ID != "" {
		return true
	}
	if u := CanonicalURL(c); u != "" {
		if _, ok := s.urls[u]; ok {
			return true
		}
	}
	if t := TitleKey(c.Title); t != "" {
		if _, ok := s.titles[t]; ok {
			return true
		}
	}
	return false
}

// Add records every key of c.
func (s *Scope) Add(c model.Candidate) {
	if c.ID != "" {
		s.ids[c.ID] = struct{}{}
	}
	if u := CanonicalURL(c); u != "" {
		s.urls[u] = struct{}{}
	}
	if t := TitleKey(c.Title); t != "" {
		s.titles[t] = struct{}{}
	}
}

// Dedupe returns the candidates not already in the scope, in input order,
// and adds them to it. The input slice is not modified.
func (s *Scope) Dedupe(cands []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, 0, len(cands))
	for _, c := range cands {
		if s.Seen(c) {
			continue
		}
		s.Add(c)
		out = append(out, c)
	}
	return out
}

// Registry hands out one Scope per group key.
type Registry struct {
	scopes map[string]*Scope
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{scopes: make(map[string]*Scope)}
}

// Scope returns the scope for key, creating it on first use.
func (r *Registry) Scope(key string) *Scope {
	s, ok := r.scopes[key]
	if !ok {
		s = NewScope()
		r.scopes[key] = s
	}
	return s
}

// Dedupe filters cands against the scope for key.
func (r *Registry) Dedupe(cands []model.Candidate, key string) []model.Candidate {
	return r.Scope(key).Dedupe(cands)
}

// CanonicalURL prefers the external link for link posts and the permalink
// for text posts, with the trailing slash stripped and lower-cased.
func CanonicalURL(c model.Candidate) string {
	u := c.Permalink
	if !c.IsSelf && c.URL != "" {
		u = c.URL
	}
	u = strings.TrimSpace(u)
	u = strings.TrimRight(u, "/")
	return strings.ToLower(u)
}

// TitleKey hashes the normalized title truncated to a fixed prefix.
func TitleKey(title string) string {
	n := normalizeTitle(title)
	if n == "" {
		return ""
	}
	r := []rune(n)
	if len(r) > titleRunes {
		r = r[:titleRunes]
	}
	sum := sha256.Sum256([]byte(string(r)))
	return hex.EncodeToString(sum[:])[:titleHashLen]
}

// normalizeTitle folds diacritics, lower-cases and collapses every run of
// non-alphanumerics to a single space.
func normalizeTitle(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
