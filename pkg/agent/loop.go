package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	loggerpkg "github.com/minhyannv/financial-analyst-go/pkg/logger"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// ErrMissingAPIKey is returned by New when no credential and no completer are given.
var ErrMissingAPIKey = errors.New("api key is not set")

const (
	defaultAssistantName    = "Financial_Analyst"
	defaultExecutorName     = "User_Proxy"
	defaultAutoReply        = "Please continue using available tools"
	defaultMaxAutoReplies   = 5
	defaultTemperature      = 0.7
	defaultAssistantMessage = "Analyze stock data for a ticker. Plot history and mention the chart filename. Manage the resource token carefully"
)

// ChatCompleter sends one chat completion request.
// *openai.ChatCompletionService satisfies it.
type ChatCompleter interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// ToolExecutor exposes the registered tools to the executor role.
type ToolExecutor interface {
	Definitions() []openai.ChatCompletionToolParam
	Execute(ctx context.Context, call openai.ChatCompletionMessageToolCall) (string, error)
}

// Orchestrator runs a two-role conversation: the assistant asks for tools,
// the executor runs them and feeds the results back.
type Orchestrator struct {
	assistant AssistantConfig
	executor  ExecutorConfig
	completer ChatCompleter
	tools     ToolExecutor

	logger     loggerpkg.Logger
	transcript io.Writer
	verbose    bool
}

// New builds an Orchestrator. Without WithCompleter it creates an OpenAI
// client from settings, which requires an API key.
func New(settings Settings, toolset ToolExecutor, opts ...Option) (*Orchestrator, error) {
	d := deps{logger: loggerpkg.NopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	if d.logger == nil {
		d.logger = loggerpkg.NopLogger{}
	}

	assistant := normalizeAssistant(settings.Assistant)
	executor := normalizeExecutor(settings.Executor)
	loggerpkg.Debug(settings.Verbose, d.logger, "orchestrator init", map[string]any{
		"assistant":  assistant.Name,
		"executor":   executor.Name,
		"model":      assistant.Model,
		"base_url":   settings.BaseURL,
		"max_auto":   executor.MaxConsecutiveAutoReply,
		"work_dir":   executor.WorkDir,
		"input_mode": executor.HumanInputMode,
	})

	if toolset == nil {
		return nil, errors.New("tool registry is required")
	}
	if assistant.Model == "" {
		return nil, errors.New("model is not set")
	}
	if executor.HumanInputMode != HumanInputNever {
		return nil, fmt.Errorf("unsupported human input mode: %s", executor.HumanInputMode)
	}
	if d.completer == nil {
		if strings.TrimSpace(settings.APIKey) == "" {
			return nil, ErrMissingAPIKey
		}
		d.completer = newOpenAICompleter(settings.APIKey, settings.BaseURL)
	}

	return &Orchestrator{
		assistant:  assistant,
		executor:   executor,
		completer:  d.completer,
		tools:      toolset,
		logger:     d.logger,
		transcript: d.transcript,
		verbose:    settings.Verbose,
	}, nil
}

func newOpenAICompleter(apiKey, baseURL string) ChatCompleter {
	opts := []option.RequestOption{option.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	client := openai.NewClient(opts...)
	return &client.Chat.Completions
}

func normalizeAssistant(cfg AssistantConfig) AssistantConfig {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.Name == "" {
		cfg.Name = defaultAssistantName
	}
	if strings.TrimSpace(cfg.SystemMessage) == "" {
		cfg.SystemMessage = defaultAssistantMessage
	}
	if cfg.Temperature < 0 {
		cfg.Temperature = defaultTemperature
	}
	return cfg
}

func normalizeExecutor(cfg ExecutorConfig) ExecutorConfig {
	cfg.Name = strings.TrimSpace(cfg.Name)
	if cfg.Name == "" {
		cfg.Name = defaultExecutorName
	}
	cfg.HumanInputMode = strings.ToUpper(strings.TrimSpace(cfg.HumanInputMode))
	if cfg.HumanInputMode == "" {
		cfg.HumanInputMode = HumanInputNever
	}
	if strings.TrimSpace(cfg.DefaultAutoReply) == "" {
		cfg.DefaultAutoReply = defaultAutoReply
	}
	if cfg.MaxConsecutiveAutoReply <= 0 {
		cfg.MaxConsecutiveAutoReply = defaultMaxAutoReplies
	}
	return cfg
}

// Run sends task to the assistant and keeps the conversation going until the
// assistant answers without a tool request or the executor reaches its
// auto-reply cap. Hitting the cap is not an error.
func (o *Orchestrator) Run(ctx context.Context, task string) (Result, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return Result{}, errors.New("task is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res := Result{RunID: uuid.NewString()}
	o.debug("run start", map[string]any{"run_id": res.RunID, "task": task})

	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(o.assistant.SystemMessage)}
	messages = append(messages, openai.UserMessage(task))
	o.record(&res, Turn{Role: RoleUser, Name: o.executor.Name, Content: task})

	autoReplies := 0
	for {
		message, err := o.ask(ctx, &res, messages)
		if err != nil {
			res.AutoReplies = autoReplies
			return res, err
		}
		if strings.TrimSpace(message.Content) != "" {
			res.Content = message.Content
		}
		messages = append(messages, message.ToParam())
		o.record(&res, assistantTurn(o.assistant.Name, message))

		if len(message.ToolCalls) == 0 && strings.TrimSpace(message.Content) != "" {
			res.Reason = ReasonFinalAnswer
			res.AutoReplies = autoReplies
			o.debug("run finished", map[string]any{"run_id": res.RunID, "auto_replies": autoReplies})
			return res, nil
		}

		if autoReplies >= o.executor.MaxConsecutiveAutoReply {
			res.Reason = ReasonMaxAutoReplies
			res.AutoReplies = autoReplies
			o.logger.Warn("auto-reply limit reached", map[string]any{
				"run_id": res.RunID,
				"limit":  o.executor.MaxConsecutiveAutoReply,
			})
			return res, nil
		}
		autoReplies++

		if len(message.ToolCalls) == 0 {
			messages = append(messages, openai.UserMessage(o.executor.DefaultAutoReply))
			o.record(&res, Turn{Role: RoleUser, Name: o.executor.Name, Content: o.executor.DefaultAutoReply})
			continue
		}
		messages = o.appendToolResponses(ctx, &res, messages, message.ToolCalls)
	}
}

// ask performs one assistant completion request.
func (o *Orchestrator) ask(ctx context.Context, res *Result, messages []openai.ChatCompletionMessageParamUnion) (openai.ChatCompletionMessage, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.assistant.Model),
		Messages:    messages,
		Tools:       o.tools.Definitions(),
		Temperature: openai.Float(o.assistant.Temperature),
	}
	if o.assistant.MaxTokens > 0 {
		params.MaxTokens = openai.Int(o.assistant.MaxTokens)
	}

	o.debug("assistant request", map[string]any{"run_id": res.RunID, "messages": len(messages)})
	completion, err := o.completer.New(ctx, params)
	if err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("assistant completion: %w", err)
	}
	if completion == nil || len(completion.Choices) == 0 {
		return openai.ChatCompletionMessage{}, errors.New("empty completion choices")
	}
	res.Usage.add(completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	o.debug("assistant reply", map[string]any{
		"run_id":        res.RunID,
		"finish_reason": completion.Choices[0].FinishReason,
		"tool_calls":    len(completion.Choices[0].Message.ToolCalls),
		"total_tokens":  completion.Usage.TotalTokens,
	})
	return completion.Choices[0].Message, nil
}

// appendToolResponses runs each requested tool synchronously. A failing tool
// becomes an error payload in the conversation and never ends the run.
func (o *Orchestrator) appendToolResponses(
	ctx context.Context,
	res *Result,
	messages []openai.ChatCompletionMessageParamUnion,
	toolCalls []openai.ChatCompletionMessageToolCall,
) []openai.ChatCompletionMessageParamUnion {
	updated := messages
	for _, call := range toolCalls {
		output, err := o.tools.Execute(ctx, call)
		if err != nil {
			o.logger.Error("tool execution failed", map[string]any{"tool": call.Function.Name, "error": err.Error()})
			output = fmt.Sprintf(`{"ok":false,"error":%q}`, err.Error())
		}
		updated = append(updated, openai.ToolMessage(output, call.ID))
		o.record(res, Turn{Role: RoleTool, Name: call.Function.Name, Content: output, ToolCallID: call.ID})
	}
	return updated
}

func assistantTurn(name string, message openai.ChatCompletionMessage) Turn {
	turn := Turn{Role: RoleAssistant, Name: name, Content: message.Content}
	for _, call := range message.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return turn
}

func (o *Orchestrator) record(res *Result, turn Turn) {
	res.Turns = append(res.Turns, turn)
	if o.transcript != nil {
		writeTurn(o.transcript, turn, o.recipient(turn))
	}
}

func (o *Orchestrator) recipient(turn Turn) string {
	if turn.Role == RoleAssistant {
		return o.executor.Name
	}
	return o.assistant.Name
}

func (o *Orchestrator) debug(msg string, obj any) {
	loggerpkg.Debug(o.verbose, o.logger, msg, obj)
}
