package agent

// Role is the role of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the assistant.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Turn is one message in a conversation run.
type Turn struct {
	Role       Role
	Name       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// Reason explains why a run stopped.
type Reason string

const (
	// ReasonFinalAnswer means the assistant replied without requesting a tool.
	ReasonFinalAnswer Reason = "final_answer"
	// ReasonMaxAutoReplies means the executor hit its consecutive auto-reply cap.
	ReasonMaxAutoReplies Reason = "max_auto_replies"
)

// Usage sums token counts over all completions of a run.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

func (u *Usage) add(prompt, completion, total int64) {
	u.PromptTokens += prompt
	u.CompletionTokens += completion
	u.TotalTokens += total
}

// Result is the outcome of one conversation run.
type Result struct {
	RunID       string
	Content     string
	Reason      Reason
	Turns       []Turn
	AutoReplies int
	Usage       Usage
}

// AssistantConfig configures the model-backed assistant role.
type AssistantConfig struct {
	Name          string
	Model         string
	Temperature   float64
	SystemMessage string
	// MaxTokens caps each completion when positive.
	MaxTokens int64
}

// HumanInputNever is the only supported human input mode.
const HumanInputNever = "NEVER"

// ExecutorConfig configures the executor role that runs tools and auto-replies.
type ExecutorConfig struct {
	Name                    string
	HumanInputMode          string
	WorkDir                 string
	DefaultAutoReply        string
	MaxConsecutiveAutoReply int
}

// Settings groups everything New needs to build an Orchestrator.
type Settings struct {
	APIKey    string
	BaseURL   string
	Assistant AssistantConfig
	Executor  ExecutorConfig
	Verbose   bool
}
