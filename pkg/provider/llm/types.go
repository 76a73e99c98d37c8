package llm

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in an LLM conversation.
type Message struct {
	// Role is one of RoleSystem, RoleUser or RoleAssistant.
	Role string

	// Content is the text content of the message.
	Content string

	// Name is an optional participant name.
	Name string
}

// ModelCapabilities describes the static limits of a model.
type ModelCapabilities struct {
	// ContextWindow is the maximum number of tokens (input + output) the model
	// accepts.
	ContextWindow int

	// MaxOutputTokens is the largest completion the model will produce.
	MaxOutputTokens int
}
