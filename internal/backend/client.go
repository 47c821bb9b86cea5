// Package backend wraps one request/response exchange with the
// OpenAI-compatible text-generation service that produces story
// content.
package backend

import (
	"context"
	"errors"
	"io"
	"time"

	"Naqqal/internal/story"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Config holds the narration client settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	MaxOutputTokens int
	Timeout         time.Duration
	Streaming       bool
}

// Client performs narration calls against an OpenAI-compatible
// endpoint. One call per turn; the per-call timeout bounds blocking.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	streaming bool

	tracer   trace.Tracer
	duration metric.Float64Histogram
}

// New creates a narration client. APIKey is required; the remaining
// fields fall back to the defaults the service was built against.
func New(cfg Config, tracer trace.Tracer, meter metric.Meter) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("narration API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.avalai.ir/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxOutputTokens <= 0 {
		cfg.MaxOutputTokens = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL

	duration, err := meter.Float64Histogram(
		"narration.request.duration",
		metric.WithDescription("Narration request duration in milliseconds"),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		api:       openai.NewClientWithConfig(apiCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxOutputTokens,
		timeout:   cfg.Timeout,
		streaming: cfg.Streaming,
		tracer:    tracer,
		duration:  duration,
	}, nil
}

// Generate sends the full history to the backend and returns the
// completion text. In streaming mode, onDelta (if non-nil) receives
// partial text as it arrives; the returned text always equals the
// accumulated whole, so streaming is invisible to everything but the
// UI. Failures carry ErrTransport, ErrAuthentication or ErrBackend.
func (c *Client) Generate(ctx context.Context, history []story.Turn, onDelta func(partial string)) (string, error) {
	ctx, span := c.tracer.Start(ctx, "narration_call")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		c.duration.Record(ctx, float64(time.Since(start).Milliseconds()))
	}()

	req := openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toMessages(history),
		MaxTokens: c.maxTokens,
	}

	if c.streaming {
		return c.generateStream(ctx, req, onDelta)
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrBackend
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) generateStream(ctx context.Context, req openai.ChatCompletionRequest, onDelta func(string)) (string, error) {
	req.Stream = true

	stream, err := c.api.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	var full string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", classify(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full += delta
		if onDelta != nil {
			onDelta(full)
		}
	}

	if full == "" {
		return "", ErrBackend
	}
	return full, nil
}

func toMessages(history []story.Turn) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, len(history))
	for i, turn := range history {
		msgs[i] = openai.ChatCompletionMessage{
			Role:    string(turn.Speaker),
			Content: turn.Text,
		}
	}
	return msgs
}
