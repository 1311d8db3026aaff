// Package terms generates categorized search terms for a product profile.
package terms

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-radar/internal/llm"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/anthropic"
)

// Source records which path produced a SearchTermSet.
type Source string

const (
	// SourceAI means the terms came from the completion endpoint.
	SourceAI Source = "ai"
	// SourceFallback means the terms were derived deterministically.
	SourceFallback Source = "fallback"
)

// DefaultMaxPerGroup caps the terms kept in each group.
const DefaultMaxPerGroup = 8

const systemPrompt = `You generate Reddit search terms that surface people who need a product.
Respond with a single JSON object and nothing else. The object must contain exactly these six keys,
each an array of short search phrases (2 to 5 words, lower case):
"problemTerms", "solutionTerms", "industryTerms", "conversationTerms", "urgencyTerms", "toolTerms".`

// Generator turns a product profile into a SearchTermSet.
type Generator struct {
	completer   *llm.Completer
	lexicon     Lexicon
	maxPerGroup int
}

// Option configures a Generator.
type Option func(*Generator)

// WithLexicon replaces the embedded fallback lexicon.
func WithLexicon(l Lexicon) Option {
	return func(g *Generator) { g.lexicon = l }
}

// WithMaxPerGroup sets the per-group cap.
func WithMaxPerGroup(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxPerGroup = n
		}
	}
}

// NewGenerator creates a Generator. A nil or unconfigured completer always
// uses the fallback path.
func NewGenerator(completer *llm.Completer, opts ...Option) *Generator {
	g := &Generator{
		completer:   completer,
		lexicon:     DefaultLexicon(),
		maxPerGroup: DefaultMaxPerGroup,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// aiTerms uses pointers so an absent key is distinguishable from an empty array.
type aiTerms struct {
	ProblemTerms      *[]string `json:"problemTerms"`
	SolutionTerms     *[]string `json:"solutionTerms"`
	IndustryTerms     *[]string `json:"industryTerms"`
	ConversationTerms *[]string `json:"conversationTerms"`
	UrgencyTerms      *[]string `json:"urgencyTerms"`
	ToolTerms         *[]string `json:"toolTerms"`
}

func (a aiTerms) validate() error {
	fields := map[string]*[]string{
		"problemTerms":      a.ProblemTerms,
		"solutionTerms":     a.SolutionTerms,
		"industryTerms":     a.IndustryTerms,
		"conversationTerms": a.ConversationTerms,
		"urgencyTerms":      a.UrgencyTerms,
		"toolTerms":         a.ToolTerms,
	}
	var missing []string
	for k, v := range fields {
		if v == nil {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("terms: missing keys %s", strings.Join(missing, ", "))
	}
	return nil
}

func (a aiTerms) set() model.SearchTermSet {
	return model.SearchTermSet{
		ProblemTerms:      *a.ProblemTerms,
		SolutionTerms:     *a.SolutionTerms,
		IndustryTerms:     *a.IndustryTerms,
		ConversationTerms: *a.ConversationTerms,
		UrgencyTerms:      *a.UrgencyTerms,
		ToolTerms:         *a.ToolTerms,
	}
}

// Generate returns the term set for profile. It never fails: any AI error,
// timeout, malformed payload or missing key yields the fallback set.
func (g *Generator) Generate(ctx context.Context, profile model.ProductProfile) (model.SearchTermSet, Source) {
	log := zap.L().With(zap.String("component", "terms"), zap.String("product_id", profile.ID))

	if g.completer.Available() {
		res := llm.Decode(ctx, g.completer, llm.Prompt{
			Phase:  "term_generation",
			System: []anthropic.SystemBlock{{Text: systemPrompt}},
			User:   describe(profile),
		}, func(a aiTerms) error { return a.validate() })

		if res.Ok() {
			set := g.normalize(res.Value.set())
			if set.Total() > 0 {
				return set, SourceAI
			}
			log.Warn("terms: ai returned no usable terms, using fallback")
		} else {
			log.Warn("terms: ai generation failed, using fallback",
				zap.String("kind", res.Kind.String()),
				zap.Error(res.Err),
			)
		}
	}

	return g.Fallback(profile), SourceFallback
}

// Fallback derives terms from the profile without any network call.
func (g *Generator) Fallback(profile model.ProductProfile) model.SearchTermSet {
	text := strings.ToLower(profile.Text())
	seeds := seedPhrases(profile)

	var set model.SearchTermSet
	set.ProblemTerms = append(append([]string{}, profile.PainPoints...), g.lexicon.Match(model.GroupProblem, text)...)
	set.SolutionTerms = append(append(append([]string{}, profile.Benefits...), profile.Features...), g.lexicon.Match(model.GroupSolution, text)...)
	set.IndustryTerms = g.lexicon.Match(model.GroupIndustry, text)
	set.ToolTerms = g.lexicon.Match(model.GroupTool, text)

	for _, s := range seeds {
		set.ConversationTerms = append(set.ConversationTerms,
			"looking for "+s,
			"recommend "+s,
			"alternative to "+s,
		)
		set.UrgencyTerms = append(set.UrgencyTerms,
			"need "+s+" asap",
			"urgent help with "+s,
		)
	}
	if profile.IdealCustomer != "" {
		set.IndustryTerms = append([]string{profile.IdealCustomer}, set.IndustryTerms...)
	}

	return g.normalize(set)
}

// normalize trims, lower-cases, de-duplicates and caps every group.
func (g *Generator) normalize(set model.SearchTermSet) model.SearchTermSet {
	var out model.SearchTermSet
	for _, grp := range model.AllGroups {
		seen := make(map[string]bool)
		var kept []string
		for _, t := range set.Terms(grp) {
			t = strings.Join(strings.Fields(strings.ToLower(t)), " ")
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			kept = append(kept, t)
			if len(kept) == g.maxPerGroup {
				break
			}
		}
		out.Set(grp, kept)
	}
	return out
}

// seedPhrases picks short product-domain phrases for templated terms.
func seedPhrases(p model.ProductProfile) []string {
	var seeds []string
	for _, s := range append(append([]string{}, p.Features...), p.Benefits...) {
		if n := len(strings.Fields(s)); n > 0 && n <= 4 {
			seeds = append(seeds, strings.ToLower(strings.TrimSpace(s)))
		}
		if len(seeds) == 2 {
			break
		}
	}
	if len(seeds) == 0 && p.Name != "" {
		seeds = append(seeds, strings.ToLower(p.Name))
	}
	return seeds
}

func describe(p model.ProductProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Product: %s\n", p.Name)
	fmt.Fprintf(&b, "Description: %s\n", p.Description)
	fmt.Fprintf(&b, "Features: %s\n", strings.Join(p.Features, "; "))
	fmt.Fprintf(&b, "Benefits: %s\n", strings.Join(p.Benefits, "; "))
	fmt.Fprintf(&b, "Pain points: %s\n", strings.Join(p.PainPoints, "; "))
	fmt.Fprintf(&b, "Ideal customer: %s\n", p.IdealCustomer)
	if len(p.TargetCommunities) > 0 {
		fmt.Fprintf(&b, "Communities: %s\n", strings.Join(p.TargetCommunities, ", "))
	}
	return b.String()
}
