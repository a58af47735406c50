package llm

import (
	"context"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message used by the turn processor.
// Role must be one of: "system", "user", or "assistant".
type Message struct {
	Role    string
	Content string
}

// Client defines the model collaborator. Generate receives the assembled
// system instruction plus the full ordered turn history and returns the
// assistant reply. Summarize is a single-shot prompt/response call used by
// the patient-history summarizer and the symptom checker.
type Client interface {
	Generate(ctx context.Context, system string, history []Message) (string, error)
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Embedder turns free text into a vector for the note index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// OpenAIClient calls the OpenAI API for chat, summarisation and embeddings.
type OpenAIClient struct {
	client       *openai.Client
	chatModel    string
	summaryModel string
	embedModel   string
}

// NewOpenAIClient constructs an OpenAI-backed client. Empty model names fall
// back to sensible defaults.
func NewOpenAIClient(apiKey, chatModel, summaryModel, embedModel string) *OpenAIClient {
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if summaryModel == "" {
		summaryModel = chatModel
	}
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		chatModel:    chatModel,
		summaryModel: summaryModel,
		embedModel:   embedModel,
	}
}

// Generate sends the system instruction and message history to the chat
// completion API and returns the assistant's response.
func (c *OpenAIClient) Generate(ctx context.Context, system string, history []Message) (string, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, m := range history {
		role := m.Role
		if role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Messages:    oaMsgs,
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.Wrap(err, "chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Summarize runs a single prompt through the summary model.
func (c *OpenAIClient) Summarize(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.summaryModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", errors.Wrap(err, "summary completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("summary completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for a single text.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create embedding")
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response is empty")
	}
	return resp.Data[0].Embedding, nil
}
