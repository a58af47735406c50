package llm

import "context"

// MockClient is a scriptable Client and Embedder used in tests and offline
// development. Unset hooks fall back to canned responses.
type MockClient struct {
	GenerateFunc  func(ctx context.Context, system string, history []Message) (string, error)
	SummarizeFunc func(ctx context.Context, prompt string) (string, error)
	EmbedFunc     func(ctx context.Context, text string) ([]float32, error)
}

func (m *MockClient) Generate(ctx context.Context, system string, history []Message) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, system, history)
	}
	return "This is a mock reply.", nil
}

func (m *MockClient) Summarize(ctx context.Context, prompt string) (string, error) {
	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, prompt)
	}
	return "This is a mock summary.", nil
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, text)
	}
	// constant unit vector keeps cosine well-defined
	return []float32{1, 0, 0}, nil
}
