package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// NewProvider creates a Provider from configuration, wrapped as
// caller → retry → logging → adapter. It returns a nil Provider and no error
// when grading is turned off.
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var base Provider
	var err error
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderMock:
		return WithLogging(offlineMock(), nil), nil
	case ProviderOpenAI:
		base, err = NewOpenAIProvider(cfg.OpenAI)
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg.Anthropic)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	return WithRetry(WithLogging(base, nil), cfg.Retry), nil
}

// offlineMock grades every answer as zero with a fixed note, so the whole
// pipeline can run without network access.
func offlineMock() *MockProvider {
	m := NewMockProvider()
	m.Fallback = func(Request) MockResponse {
		body, _ := json.Marshal(gradeReply{Score: 0, Feedback: "graded offline by the mock provider", IsCorrect: false})
		return MockResponse{Content: body}
	}
	return m
}
