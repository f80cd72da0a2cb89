package agent

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type scriptedCompleter struct {
	replies []openai.ChatCompletionMessage
	repeat  *openai.ChatCompletionMessage
	err     error
	calls   int
	params  []openai.ChatCompletionNewParams
}

func (c *scriptedCompleter) New(_ context.Context, body openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	c.calls++
	c.params = append(c.params, body)
	if c.err != nil {
		return nil, c.err
	}
	var msg openai.ChatCompletionMessage
	switch {
	case len(c.replies) > 0:
		msg = c.replies[0]
		c.replies = c.replies[1:]
	case c.repeat != nil:
		msg = *c.repeat
	default:
		return &openai.ChatCompletion{}, nil
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{{Message: msg}},
		Usage:   openai.CompletionUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

type fakeTools struct {
	outputs map[string]string
	err     error
	calls   []string
}

func (f *fakeTools) Definitions() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{{
		Function: openai.FunctionDefinitionParam{Name: "get_stock_price"},
	}}
}

func (f *fakeTools) Execute(_ context.Context, call openai.ChatCompletionMessageToolCall) (string, error) {
	f.calls = append(f.calls, call.Function.Name)
	if f.err != nil {
		return "", f.err
	}
	return f.outputs[call.Function.Name], nil
}

func toolCallMessage(id, name, args string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		ToolCalls: []openai.ChatCompletionMessageToolCall{{
			ID: id,
			Function: openai.ChatCompletionMessageToolCallFunction{
				Name:      name,
				Arguments: args,
			},
		}},
	}
}

func testSettings() Settings {
	return Settings{Assistant: AssistantConfig{Model: "gemini-2.0-flash"}}
}

func newTestOrchestrator(t *testing.T, completer ChatCompleter, toolset ToolExecutor, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithCompleter(completer)}, opts...)
	o, err := New(testSettings(), toolset, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o
}

func TestRunToolCallThenFinalAnswer(t *testing.T) {
	completer := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		toolCallMessage("call_1", "get_stock_price", `{"ticker":"GOOG"}`),
		{Content: "GOOG closed higher. Chart saved as GOOG_price_chart.png"},
	}}
	toolset := &fakeTools{outputs: map[string]string{"get_stock_price": "Date  Close"}}
	o := newTestOrchestrator(t, completer, toolset)

	res, err := o.Run(context.Background(), "Analyze Alphabet Inc.")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonFinalAnswer {
		t.Fatalf("expected final answer, got %q", res.Reason)
	}
	if !strings.Contains(res.Content, "GOOG_price_chart.png") {
		t.Fatalf("unexpected content %q", res.Content)
	}
	if res.AutoReplies != 1 || completer.calls != 2 {
		t.Fatalf("expected 1 auto reply and 2 completions, got %d and %d", res.AutoReplies, completer.calls)
	}
	if len(toolset.calls) != 1 || toolset.calls[0] != "get_stock_price" {
		t.Fatalf("unexpected tool calls %v", toolset.calls)
	}
	if res.RunID == "" {
		t.Fatal("expected run id")
	}
	if res.Usage.TotalTokens != 30 {
		t.Fatalf("expected summed usage 30, got %d", res.Usage.TotalTokens)
	}

	// user task, assistant call, tool response, assistant answer
	if len(res.Turns) != 4 {
		t.Fatalf("expected 4 turns, got %d", len(res.Turns))
	}
	if res.Turns[2].Role != RoleTool || res.Turns[2].ToolCallID != "call_1" {
		t.Fatalf("unexpected tool turn %+v", res.Turns[2])
	}
	if got := len(completer.params[1].Messages); got != 4 {
		t.Fatalf("expected second request to carry 4 messages, got %d", got)
	}
	if len(completer.params[0].Tools) != 1 {
		t.Fatalf("expected tool definitions on request, got %d", len(completer.params[0].Tools))
	}
}

func TestRunStopsAtAutoReplyCap(t *testing.T) {
	repeat := toolCallMessage("call_x", "get_stock_price", `{"ticker":"GOOG"}`)
	completer := &scriptedCompleter{repeat: &repeat}
	toolset := &fakeTools{outputs: map[string]string{"get_stock_price": "table"}}
	o := newTestOrchestrator(t, completer, toolset)

	res, err := o.Run(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Reason != ReasonMaxAutoReplies {
		t.Fatalf("expected cap reason, got %q", res.Reason)
	}
	if res.AutoReplies != 5 {
		t.Fatalf("expected 5 auto replies, got %d", res.AutoReplies)
	}
	if completer.calls != 6 {
		t.Fatalf("expected 6 completions, got %d", completer.calls)
	}
	if len(toolset.calls) != 5 {
		t.Fatalf("expected 5 tool executions, got %d", len(toolset.calls))
	}
}

func TestRunCustomAutoReplyCap(t *testing.T) {
	repeat := openai.ChatCompletionMessage{}
	completer := &scriptedCompleter{repeat: &repeat}
	settings := testSettings()
	settings.Executor.MaxConsecutiveAutoReply = 2
	o, err := New(settings, &fakeTools{}, WithCompleter(completer))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := o.Run(context.Background(), "task")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.AutoReplies != 2 || completer.calls != 3 {
		t.Fatalf("expected 2 auto replies and 3 completions, got %d and %d", res.AutoReplies, completer.calls)
	}
}

func TestRunEmptyReplyGetsDefaultAutoReply(t *testing.T) {
	completer := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		{},
		{Content: "done"},
	}}
	o := newTestOrchestrator(t, completer, &fakeTools{})

	res, err := o.Run(context.Background(), "task")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Content != "done" || res.AutoReplies != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	filler := res.Turns[2]
	if filler.Role != RoleUser || filler.Content != "Please continue using available tools" {
		t.Fatalf("expected default auto reply turn, got %+v", filler)
	}
}

func TestRunToolErrorIsFedBack(t *testing.T) {
	completer := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		toolCallMessage("call_1", "get_stock_price", `{"ticker":"GOOG"}`),
		{Content: "could not fetch"},
	}}
	o := newTestOrchestrator(t, completer, &fakeTools{err: errors.New("boom")})

	res, err := o.Run(context.Background(), "task")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Turns[2].Content; !strings.Contains(got, `"ok":false`) || !strings.Contains(got, "boom") {
		t.Fatalf("expected error payload, got %q", got)
	}
}

func TestRunPropagatesCompletionError(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("quota exceeded")}
	o := newTestOrchestrator(t, completer, &fakeTools{})

	_, err := o.Run(context.Background(), "task")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected completion error, got %v", err)
	}
}

func TestRunRejectsEmptyChoices(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedCompleter{}, &fakeTools{})
	if _, err := o.Run(context.Background(), "task"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestRunRejectsBlankTask(t *testing.T) {
	o := newTestOrchestrator(t, &scriptedCompleter{}, &fakeTools{})
	if _, err := o.Run(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank task")
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(testSettings(), &fakeTools{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	if _, err := New(Settings{APIKey: "k"}, &fakeTools{}); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := New(testSettings(), nil, WithCompleter(&scriptedCompleter{})); err == nil {
		t.Fatal("expected error for nil toolset")
	}
	settings := testSettings()
	settings.Executor.HumanInputMode = "ALWAYS"
	if _, err := New(settings, &fakeTools{}, WithCompleter(&scriptedCompleter{})); err == nil {
		t.Fatal("expected error for unsupported input mode")
	}
	settings = testSettings()
	settings.APIKey = "test-key"
	if _, err := New(settings, &fakeTools{}); err != nil {
		t.Fatalf("expected client construction with api key, got %v", err)
	}
}

func TestTranscriptOutput(t *testing.T) {
	completer := &scriptedCompleter{replies: []openai.ChatCompletionMessage{
		toolCallMessage("call_1", "plot_stock_price", `{"ticker":"GOOG"}`),
		{Content: "Chart saved as GOOG_price_chart.png"},
	}}
	toolset := &fakeTools{outputs: map[string]string{"plot_stock_price": "Chart saved as GOOG_price_chart.png"}}
	var buf bytes.Buffer
	o := newTestOrchestrator(t, completer, toolset, WithTranscript(&buf))

	if _, err := o.Run(context.Background(), "Plot GOOG"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"User_Proxy (to Financial_Analyst):",
		"Financial_Analyst (to User_Proxy):",
		"***** Suggested tool call (call_1): plot_stock_price *****",
		"***** Response from calling tool (call_1) *****",
		separator,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("transcript missing %q:\n%s", want, out)
		}
	}
}
