package sandbox

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini runs interpreter sessions on Gemini chat sessions with the code
// execution tool enabled. Each chat keeps its own interpreter state, so a
// follow-up query can build on variables defined by an earlier one.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(client *genai.Client, model string) *Gemini {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{client: client, model: model}
}

func (g *Gemini) CreateSession(ctx context.Context) (Session, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, &genai.GenerateContentConfig{
		Tools:             []*genai.Tool{{CodeExecution: &genai.ToolCodeExecution{}}},
		SystemInstruction: interpreterPrompt(),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("could not start sandbox chat session: %w", err)
	}
	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) Execute(ctx context.Context, query string, contextTexts []string) (string, error) {
	var prompt strings.Builder
	if len(contextTexts) > 0 {
		prompt.WriteString("Context passages:\n\n")
		for i, text := range contextTexts {
			fmt.Fprintf(&prompt, "[%d] %s\n\n", i+1, text)
		}
	}
	prompt.WriteString("Question: ")
	prompt.WriteString(query)

	result, err := s.chat.SendMessage(ctx, genai.Part{Text: prompt.String()})
	if err != nil {
		return "", fmt.Errorf("sandbox execution failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("sandbox returned no candidates")
	}

	var answer strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			answer.WriteString(p.Text)
		}
	}
	if answer.Len() == 0 {
		return "", fmt.Errorf("sandbox returned no text")
	}
	return answer.String(), nil
}

// Close drops the chat reference; Gemini keeps no server-side session state
// for us to release.
func (s *geminiSession) Close(ctx context.Context) error {
	s.chat = nil
	return nil
}
