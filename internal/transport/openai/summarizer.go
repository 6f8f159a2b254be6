package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/corpusd/corpusd/internal/domain"
	"github.com/corpusd/corpusd/internal/metrics"
)

// summaryInstruction is the fixed template wrapped around every passage.
const summaryInstruction = "You are a friendly summarization assistant. " +
	"Take the input text and return a summary in three sentences. " +
	"Please keep your responses concise, up to three sentences."

// Summarizer condenses passages via chat completions before embedding.
type Summarizer struct {
	client      *openai.Client
	model       string
	temperature float32
	logger      *zap.Logger
}

// SummarizerConfig holds the summarization provider settings.
type SummarizerConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Logger      *zap.Logger
}

// NewSummarizer creates an OpenAI-compatible summarization provider.
func NewSummarizer(cfg *SummarizerConfig) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Summarizer{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger,
	}
}

// Summarize returns the provider's first textual output for the instruction
// template around text. All failures wrap domain.ErrSummarization.
func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryInstruction},
			{Role: openai.ChatMessageRoleUser, Content: "Please summarize the following text:\n\n" + text},
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.SummarizationRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return "", parseSummarizationError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.SummarizationRequestsTotal.WithLabelValues(s.model, "error").Inc()
		return "", fmt.Errorf("no completion choices returned: %w", domain.ErrSummarization)
	}

	metrics.SummarizationRequestsTotal.WithLabelValues(s.model, "success").Inc()
	metrics.SummarizationRequestDuration.WithLabelValues(s.model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}

func parseSummarizationError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("summarization API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrSummarization)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("summarization API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrSummarization)
	}

	return fmt.Errorf("summarization request failed: %v: %w", err, domain.ErrSummarization)
}
