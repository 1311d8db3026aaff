package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-radar/internal/resilience"
	"github.com/sells-group/lead-radar/pkg/anthropic"
	"github.com/sells-group/lead-radar/pkg/anthropic/mocks"
)

type payload struct {
	Items []string `json:"items"`
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", "Here you go:\n{\"a\":1}\nThanks!", `{"a":1}`},
		{"array", "```json\n[{\"index\":0}]\n```", `[{"index":0}]`},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}

func TestUnmarshalLoose(t *testing.T) {
	var p payload
	require.NoError(t, UnmarshalLoose("```json\n{\"items\":[\"a\",\"b\"]}\n```", &p))
	assert.Equal(t, []string{"a", "b"}, p.Items)

	assert.Error(t, UnmarshalLoose("not json at all", &p))
	assert.Error(t, UnmarshalLoose("", &p))
}

func TestDecode_OK(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "m" && len(req.Messages) == 1 && req.Messages[0].Content == "hi"
	})).Return(mocks.TextResponse("```json\n{\"items\":[\"x\"]}\n```"), nil)

	c := NewCompleter(client, "m")
	res := Decode[payload](context.Background(), c, Prompt{Phase: "test", User: "hi"}, nil)
	require.True(t, res.Ok())
	assert.Equal(t, []string{"x"}, res.Value.Items)
	client.AssertExpectations(t)
}

func TestDecode_ParseError(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(mocks.TextResponse("sorry, I can't"), nil)

	res := Decode[payload](context.Background(), NewCompleter(client, "m"), Prompt{Phase: "test"}, nil)
	assert.Equal(t, KindParseError, res.Kind)
	assert.Error(t, res.Err)
}

func TestDecode_ValidationFailureIsParseError(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(mocks.TextResponse(`{"items":[]}`), nil)

	res := Decode(context.Background(), NewCompleter(client, "m"), Prompt{Phase: "test"}, func(p payload) error {
		if len(p.Items) == 0 {
			return errors.New("items missing")
		}
		return nil
	})
	assert.Equal(t, KindParseError, res.Kind)
	assert.Contains(t, res.Err.Error(), "items missing")
}

func TestDecode_ProviderError(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	res := Decode[payload](context.Background(), NewCompleter(client, "m"), Prompt{Phase: "test"}, nil)
	assert.Equal(t, KindProviderError, res.Kind)
	assert.Contains(t, res.Err.Error(), "llm: test")
}

func TestComplete_NoClient(t *testing.T) {
	c := NewCompleter(nil, "m")
	assert.False(t, c.Available())

	_, err := c.Complete(context.Background(), Prompt{Phase: "test"})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestComplete_Timeout(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	c := NewCompleter(client, "m", WithTimeout(10*time.Millisecond))
	start := time.Now()
	_, err := c.Complete(context.Background(), Prompt{Phase: "test"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestComplete_BreakerOpens(t *testing.T) {
	client := &mocks.MockClient{}
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Twice()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	c := NewCompleter(client, "m", WithBreaker(cb))

	for i := 0; i < 2; i++ {
		_, err := c.Complete(context.Background(), Prompt{Phase: "test"})
		require.Error(t, err)
	}
	_, err := c.Complete(context.Background(), Prompt{Phase: "test"})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "ok", KindOK.String())
	assert.Equal(t, "parse_error", KindParseError.String())
	assert.Equal(t, "provider_error", KindProviderError.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
