package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/minhyannv/financial-analyst-go/pkg/chart"
	loggerpkg "github.com/minhyannv/financial-analyst-go/pkg/logger"
	"github.com/minhyannv/financial-analyst-go/pkg/market"
	"github.com/openai/openai-go"
)

// ErrUnknownTool is reported when the model asks for a tool that is not registered.
var ErrUnknownTool = errors.New("unknown tool")

// Kind identifies one of the fixed set of tools.
type Kind int

const (
	KindGetStockPrice Kind = iota
	KindPlotStockPrice
	KindListExtensions
	KindDescribe
)

var kindNames = [...]string{
	KindGetStockPrice:  "get_stock_price",
	KindPlotStockPrice: "plot_stock_price",
	KindListExtensions: "list_available_extensions",
	KindDescribe:       "describe",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a tool name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), true
		}
	}
	return 0, false
}

type tool interface {
	kind() Kind
	description() string
	arguments() any
	execute(ctx context.Context, argText string) (string, error)
}

// Descriptor describes a registered tool.
type Descriptor struct {
	Kind        Kind
	Name        string
	Description string
}

// Context carries the dependencies shared by the tools.
type Context struct {
	Provider market.Provider
	Renderer *chart.Renderer
	Verbose  bool
	Logger   loggerpkg.Logger
}

func (c Context) debug(msg string, obj any) {
	loggerpkg.Debug(c.Verbose, c.Logger, msg, obj)
}

// Registry holds the registered tools and handles execution.
type Registry struct {
	ctx     Context
	ordered []tool
	byKind  map[Kind]tool
	params  []openai.ChatCompletionToolParam
}

type toolResponse struct {
	OK   bool        `json:"ok"`
	Tool string      `json:"tool,omitempty"`
	Data interface{} `json:"data,omitempty"`
	Err  string      `json:"error,omitempty"`
}

// New builds a registry with the four built-in tools. The set is fixed.
func New(ctx Context) *Registry {
	if ctx.Logger == nil {
		ctx.Logger = loggerpkg.NopLogger{}
	}
	if ctx.Renderer == nil {
		ctx.Renderer = chart.NewRenderer(".")
	}
	r := &Registry{
		ctx:    ctx,
		byKind: make(map[Kind]tool),
	}

	r.register(&stockPriceTool{reg: r})
	r.register(&plotStockPriceTool{reg: r})
	r.register(&listExtensionsTool{reg: r})
	r.register(&describeTool{reg: r})
	return r
}

func (r *Registry) register(t tool) {
	r.ordered = append(r.ordered, t)
	r.byKind[t.kind()] = t
	r.params = append(r.params, openai.ChatCompletionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        t.kind().String(),
			Description: openai.String(t.description()),
			Parameters:  parametersFor(t.arguments()),
		},
	})
	r.ctx.debug("registered tool", map[string]any{"name": t.kind().String()})
}

// Definitions returns the OpenAI tool definitions in registration order.
func (r *Registry) Definitions() []openai.ChatCompletionToolParam {
	return r.params
}

// Descriptors returns the registered tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.ordered))
	for _, t := range r.ordered {
		out = append(out, Descriptor{Kind: t.kind(), Name: t.kind().String(), Description: t.description()})
	}
	return out
}

// ListToolNames returns the tool names in registration order.
func (r *Registry) ListToolNames() []string {
	names := make([]string, 0, len(r.ordered))
	for _, t := range r.ordered {
		names = append(names, t.kind().String())
	}
	return names
}

// DescribeTools returns one "<name>: <description>" line per tool.
func (r *Registry) DescribeTools() string {
	lines := make([]string, 0, len(r.ordered))
	for _, d := range r.Descriptors() {
		lines = append(lines, d.Name+": "+d.Description)
	}
	return strings.Join(lines, "\n")
}

// ListAvailableExtensions returns the comma-separated tool names.
func (r *Registry) ListAvailableExtensions() string {
	return "Available extensions: " + strings.Join(r.ListToolNames(), ", ")
}

// Execute runs the tool requested by call and returns its text result.
// Dispatch failures are reported as a JSON error payload, not as a Go error.
func (r *Registry) Execute(ctx context.Context, call openai.ChatCompletionMessageToolCall) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return marshalToolResponse(call.Function.Name, nil, ctx.Err())
	default:
	}

	kind, ok := ParseKind(call.Function.Name)
	if !ok {
		return marshalToolResponse(call.Function.Name, nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Function.Name))
	}
	t, ok := r.byKind[kind]
	if !ok {
		return marshalToolResponse(call.Function.Name, nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Function.Name))
	}

	r.ctx.debug("executing tool", map[string]any{"name": call.Function.Name, "arguments": call.Function.Arguments})
	return t.execute(ctx, call.Function.Arguments)
}

func decodeArgs(argText string, out any) error {
	if strings.TrimSpace(argText) == "" {
		argText = "{}"
	}
	if err := json.Unmarshal([]byte(argText), out); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// parametersFor reflects a JSON schema for an argument struct.
func parametersFor(v any) openai.FunctionParameters {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	params := openai.FunctionParameters{}
	if b, err := json.Marshal(reflector.Reflect(v)); err == nil {
		_ = json.Unmarshal(b, &params)
	}
	delete(params, "$schema")
	delete(params, "$id")
	params["type"] = "object"
	if _, ok := params["properties"]; !ok {
		params["properties"] = map[string]any{}
	}
	return params
}

func marshalToolResponse(toolName string, data interface{}, err error) (string, error) {
	resp := toolResponse{
		OK:   err == nil,
		Tool: toolName,
		Data: data,
	}
	if err != nil {
		resp.Err = err.Error()
	}
	payload, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		return "", marshalErr
	}
	return string(payload), nil
}
