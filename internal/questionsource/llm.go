package questionsource

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hirelens/hirelens-backend/internal/loader"
)

// LLMConfig configures the generated-question source. BaseURL allows any
// OpenAI-compatible endpoint.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Count   int
}

// LLMSource implements loader.GeneratedSource over an OpenAI-compatible
// chat API with a JSON-constrained response.
type LLMSource struct {
	client *openai.Client
	model  string
	count  int
	log    zerolog.Logger
}

// NewLLMSource creates the generated-question source.
func NewLLMSource(cfg LLMConfig, log zerolog.Logger) (*LLMSource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	count := cfg.Count
	if count <= 0 {
		count = 10
	}
	return &LLMSource{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		count:  count,
		log:    log.With().Str("component", "llm_question_source").Logger(),
	}, nil
}

const generateSystemPrompt = `You are an assessment author for a technical hiring platform.
Produce interview questions as strict JSON. Respond with an object of the form:
{"questions":[{"question_text":"...","question_type":"MULTIPLE_CHOICE|CODING|ARCHITECTURE","options":{"A":"...","B":"...","C":"...","D":"..."},"language":"...","focus_areas":["..."]}]}
Rules:
- "options" only for MULTIPLE_CHOICE, exactly four entries A-D.
- "language" only for CODING.
- "focus_areas" only for ARCHITECTURE.
- Never include the correct answer.`

// generatedPayload is the constrained response shape.
type generatedPayload struct {
	Questions []loader.RawQuestion `json:"questions"`
}

// Generate asks the model for a question list on topic/level/subtopics.
func (s *LLMSource) Generate(ctx context.Context, topic, level string, subtopics []string) ([]loader.RawQuestion, error) {
	user := fmt.Sprintf("Write %d questions assessing %q at %s level.", s.count, topic, level)
	if len(subtopics) > 0 {
		user += " Cover these subtopics: " + strings.Join(subtopics, ", ") + "."
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	var payload generatedPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}

	s.log.Info().
		Str("topic", topic).
		Str("level", level).
		Int("count", len(payload.Questions)).
		Str("model", resp.Model).
		Msg("Questions generated")
	return payload.Questions, nil
}
