// internal/router/prompt_test.go
package router

import (
	"strings"
	"testing"

	"github.com/vihaan69-420/school-agent-simple/internal/types"
	"github.com/vihaan69-420/school-agent-simple/pkg/llm"
)

func TestNewPromptBuilder(t *testing.T) {
	p, err := NewPromptBuilder("gpt-4", 128000, 4096)
	if err != nil {
		t.Fatal(err)
	}
	if p == nil {
		t.Fatal("expected non-nil builder")
	}
}

func TestNewPromptBuilderUnknownModelFallsBack(t *testing.T) {
	if _, err := NewPromptBuilder("qwen-max", 128000, 4096); err != nil {
		t.Fatal("expected fallback tokenizer, got:", err)
	}
}

func TestBuildBasic(t *testing.T) {
	p, err := NewPromptBuilder("gpt-4", 128000, 4096)
	if err != nil {
		t.Fatal(err)
	}
	history := []*types.Message{
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi there"},
		{Role: types.RoleUser, Content: "what is a chord?"},
	}
	messages := p.Build("be helpful", "", history)
	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != llm.RoleSystem {
		t.Error("first message must be the system prompt")
	}
	if messages[3].Content != "what is a chord?" {
		t.Error("history order lost")
	}
}

func TestBuildInjectsGrounding(t *testing.T) {
	p, err := NewPromptBuilder("gpt-4", 128000, 4096)
	if err != nil {
		t.Fatal(err)
	}
	history := []*types.Message{{Role: types.RoleUser, Content: "q"}}
	messages := p.Build("sys", "[Lesson 3]\nchords", history)
	if !strings.Contains(messages[0].Content, "Lesson 3") {
		t.Error("grounding not injected ahead of history")
	}
}

func TestBuildTrimsOldestFirst(t *testing.T) {
	p, err := NewPromptBuilder("gpt-4", 120, 20)
	if err != nil {
		t.Fatal(err)
	}
	long := strings.Repeat("filler words ", 40)
	history := []*types.Message{
		{Role: types.RoleUser, Content: long},
		{Role: types.RoleAssistant, Content: long},
		{Role: types.RoleUser, Content: "recent question"},
	}
	messages := p.Build("sys", "", history)
	last := messages[len(messages)-1]
	if last.Content != "recent question" {
		t.Error("newest message must survive trimming")
	}
	if len(messages) >= 4 {
		t.Errorf("expected oldest messages dropped, got %d messages", len(messages))
	}
}
