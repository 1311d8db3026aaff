package terms

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-radar/internal/llm"
	"github.com/sells-group/lead-radar/internal/model"
	"github.com/sells-group/lead-radar/pkg/anthropic/mocks"
)

func testProfile() model.ProductProfile {
	return model.ProductProfile{
		ID:            "prod-1",
		Name:          "ShiftPilot",
		Description:   "Scheduling software for small business owners that replaces the spreadsheet.",
		Features:      []string{"Shift scheduling", "Automated reminders", "Payroll export to QuickBooks and other accounting tools"},
		Benefits:      []string{"Save hours every week"},
		PainPoints:    []string{"No-shows", "Manual spreadsheet scheduling"},
		IdealCustomer: "Restaurant owners",
	}
}

func TestFallback_Deterministic(t *testing.T) {
	g := NewGenerator(nil)
	a := g.Fallback(testProfile())
	b := g.Fallback(testProfile())
	assert.Equal(t, a, b)
}

func TestFallback_CopiesProfileAndMatchesLexicon(t *testing.T) {
	set := NewGenerator(nil).Fallback(testProfile())

	assert.Contains(t, set.ProblemTerms, "no-shows")
	assert.Contains(t, set.ProblemTerms, "manual spreadsheet scheduling")
	assert.Contains(t, set.ProblemTerms, "too much manual work")
	assert.Contains(t, set.SolutionTerms, "save hours every week")
	assert.Contains(t, set.SolutionTerms, "scheduling software")
	assert.Contains(t, set.IndustryTerms, "restaurant owners")
	assert.Contains(t, set.IndustryTerms, "small business")
	assert.Contains(t, set.ToolTerms, "excel")
	assert.Contains(t, set.ToolTerms, "quickbooks")
	assert.Contains(t, set.ConversationTerms, "looking for shift scheduling")
	assert.Contains(t, set.UrgencyTerms, "need shift scheduling asap")
	assert.NotContains(t, set.IndustryTerms, "healthcare")
}

func TestFallback_NeverEmpty(t *testing.T) {
	set := NewGenerator(nil).Fallback(model.ProductProfile{Name: "Widget"})
	assert.Greater(t, set.Total(), 0)
	assert.Contains(t, set.ConversationTerms, "looking for widget")
}

func TestNormalize_DedupesAndCaps(t *testing.T) {
	g := NewGenerator(nil, WithMaxPerGroup(2))
	set := g.normalize(model.SearchTermSet{
		ProblemTerms: []string{"  Slow  Payroll ", "slow payroll", "", "late invoices", "third"},
	})
	assert.Equal(t, []string{"slow payroll", "late invoices"}, set.ProblemTerms)
	assert.Empty(t, set.ToolTerms)
}

func TestGenerate_AI(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(mocks.TextResponse("```json\n"+`{
		"problemTerms": ["No Shows"],
		"solutionTerms": ["shift app"],
		"industryTerms": ["restaurants"],
		"conversationTerms": ["what do you use for scheduling"],
		"urgencyTerms": ["need scheduler now"],
		"toolTerms": ["when i work"]
	}`+"\n```"), nil)

	g := NewGenerator(llm.NewCompleter(client, "m"))
	set, src := g.Generate(context.Background(), testProfile())

	assert.Equal(t, SourceAI, src)
	assert.Equal(t, []string{"no shows"}, set.ProblemTerms)
	assert.Equal(t, []string{"when i work"}, set.ToolTerms)
}

func TestGenerate_MissingKeyFallsBack(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(mocks.TextResponse(
		`{"problemTerms":["a"],"solutionTerms":["b"],"industryTerms":["c"],"conversationTerms":["d"],"urgencyTerms":["e"]}`), nil)

	g := NewGenerator(llm.NewCompleter(client, "m"))
	set, src := g.Generate(context.Background(), testProfile())

	assert.Equal(t, SourceFallback, src)
	assert.Equal(t, g.Fallback(testProfile()), set)
}

func TestGenerate_ProviderErrorFallsBack(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	_, src := NewGenerator(llm.NewCompleter(client, "m")).Generate(context.Background(), testProfile())
	assert.Equal(t, SourceFallback, src)
}

func TestGenerate_NoKeySkipsCall(t *testing.T) {
	set, src := NewGenerator(llm.NewCompleter(nil, "m")).Generate(context.Background(), testProfile())
	assert.Equal(t, SourceFallback, src)
	assert.Greater(t, set.Total(), 0)
}

func TestLexiconMatch_KeywordTriggersAndUnconditional(t *testing.T) {
	lex := Lexicon{model.GroupProblem: {
		{Keyword: "losing customers", Triggers: []string{"churn"}},
		{Keyword: "struggling with"},
		{Keyword: "too expensive", Triggers: []string{"pricing"}},
	}}

	assert.Equal(t, []string{"losing customers", "struggling with"},
		lex.Match(model.GroupProblem, "we keep losing customers every month"))
	assert.Equal(t, []string{"losing customers", "struggling with"},
		lex.Match(model.GroupProblem, "reduce churn"))
	assert.Equal(t, []string{"struggling with"}, lex.Match(model.GroupProblem, "nothing relevant"))
}

func TestParseLexicon(t *testing.T) {
	lex, err := ParseLexicon([]byte(`
lexicon:
  tool:
    - keyword: hubspot
      triggers: [crm]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"hubspot"}, lex.Match(model.GroupTool, "we need a crm"))
	assert.Empty(t, lex.Match(model.GroupTool, "we need a crmx"))
	assert.Equal(t, []string{"hubspot"}, lex.Match(model.GroupTool, "moving off hubspot soon"))

	_, err = ParseLexicon([]byte("lexicon: [unclosed"))
	assert.Error(t, err)
}
