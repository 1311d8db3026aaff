package terms

import (
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-radar/internal/model"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Entry is one lexicon keyword with the profile words that trigger it.
// An entry without triggers always applies.
type Entry struct {
	Keyword  string   `yaml:"keyword"`
	Triggers []string `yaml:"triggers"`
}

// Lexicon maps keyword groups to their candidate keywords.
type Lexicon map[model.TermGroup][]Entry

// ParseLexicon decodes a YAML lexicon document with a top-level "lexicon" key.
func ParseLexicon(data []byte) (Lexicon, error) {
	var wrapper struct {
		Lexicon Lexicon `yaml:"lexicon"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "terms: parse lexicon")
	}
	return wrapper.Lexicon, nil
}

// DefaultLexicon returns the embedded lexicon.
func DefaultLexicon() Lexicon {
	lex, err := ParseLexicon(defaultLexicon)
	if err != nil {
		panic(err)
	}
	return lex
}

// Match returns the keywords of group g that apply to the lower-cased text:
// the keyword itself or one of its triggers appears, or it has no triggers.
func (l Lexicon) Match(g model.TermGroup, text string) []string {
	var out []string
	for _, e := range l[g] {
		if len(e.Triggers) == 0 || containsWord(text, strings.ToLower(e.Keyword)) || containsAny(text, e.Triggers) {
			out = append(out, e.Keyword)
		}
	}
	return out
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if containsWord(text, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// containsWord reports whether w appears in text on word boundaries.
func containsWord(text, w string) bool {
	for i := 0; ; {
		idx := strings.Index(text[i:], w)
		if idx < 0 {
			return false
		}
		start := i + idx
		end := start + len(w)
		if (start == 0 || !isWordByte(text[start-1])) && (end == len(text) || !isWordByte(text[end])) {
			return true
		}
		i = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
