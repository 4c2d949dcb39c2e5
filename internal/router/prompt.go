// internal/router/prompt.go
package router

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm"
)

// PromptBuilder assembles token-budgeted prompts for the provider.
type PromptBuilder struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// NewPromptBuilder creates a builder with the given token budget.
// model selects the tokenizer; maxTokens is the context window size and
// reserve is held back for the model's response.
func NewPromptBuilder(model string, maxTokens, reserve int) (*PromptBuilder, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &PromptBuilder{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

func (p *PromptBuilder) countTokens(text string) int {
	return len(p.tokenizer.Encode(text, nil, nil))
}

// Build assembles a system message (with optional grounding context
// injected ahead of the history) followed by as much recent history as
// fits the input budget. The newest messages are kept; older ones are
// dropped first.
func (p *PromptBuilder) Build(systemPrompt, grounding string, history []*types.Message) []llm.Message {
	sys := systemPrompt
	if grounding != "" {
		sys += "\n\nContext:\n" + grounding
	}

	budget := p.maxTokens - p.reserve - p.countTokens(sys)

	// Walk history newest-first until the budget is spent.
	var kept []*types.Message
	used := 0
	for i := len(history) - 1; i >= 0; i-- {
		msgTokens := p.countTokens(history[i].Content) + 4
		if used+msgTokens > budget && len(kept) > 0 {
			break
		}
		kept = append(kept, history[i])
		used += msgTokens
	}

	messages := make([]llm.Message, 0, len(kept)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: sys})
	for i := len(kept) - 1; i >= 0; i-- {
		msg := kept[i]
		role := llm.RoleUser
		if msg.Role == types.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}
	return messages
}
