// Package llm calls language models through OpenRouter's OpenAI-compatible
// API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bcspragu/Switchboard"
)

var (
	ErrMissingAPIKey = errors.New("llm: OPENROUTER_API_KEY is required")
	ErrUnknownModel  = errors.New("llm: unknown model")
	ErrEmptyResponse = errors.New("llm: model returned no choices")
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	defaultAttempts = 3
	minBackoff      = 4 * time.Second
	maxBackoff      = 10 * time.Second

	// Non-reasoning models answer briefly.
	maxTokens = 100
)

// Client calls a model with a single user prompt.
type Client interface {
	Call(ctx context.Context, model, prompt string) (string, *switchboard.CallMeta, error)
}

// reasoningPatterns match model IDs that reject max_tokens and temperature.
var reasoningPatterns = []string{
	"o1",
	"o3",
	"o4",
	"gpt-5",
	"grok-4",
	"grok-3-mini",
	"gpt-oss-120b",
	"gpt-oss-20b",
	"qwen3",
}

func isReasoningModel(id string) bool {
	for _, p := range reasoningPatterns {
		if strings.Contains(id, p) {
			return true
		}
	}
	return false
}

// request builds the completion request for a model. Reasoning models get
// only the prompt, Gemini 2.5 models get temperature 0, and everything else
// is also capped at maxTokens.
func request(id, prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: id,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	switch {
	case isReasoningModel(id):
	case strings.HasPrefix(id, "google/gemini-2.5"):
		// Zero is omitted from the request body, the smallest float isn't.
		req.Temperature = math.SmallestNonzeroFloat32
	default:
		req.Temperature = math.SmallestNonzeroFloat32
		req.MaxTokens = maxTokens
	}
	return req
}

type Option func(*OpenRouter)

// WithBaseURL points the client at a different OpenAI-compatible endpoint.
func WithBaseURL(u string) Option {
	return func(o *OpenRouter) {
		o.baseURL = u
	}
}

// WithRetries sets how many attempts each call gets, and the first wait
// between them.
func WithRetries(attempts int, minWait time.Duration) Option {
	return func(o *OpenRouter) {
		o.attempts = attempts
		o.minWait = minWait
	}
}

// OpenRouter is a Client for the OpenRouter API. It's safe for concurrent use.
type OpenRouter struct {
	client *openai.Client
	models Mappings
	log    *zap.SugaredLogger

	baseURL  string
	attempts int
	minWait  time.Duration
}

func NewOpenRouter(apiKey string, models Mappings, log *zap.SugaredLogger, opts ...Option) (*OpenRouter, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if models == nil {
		models = DefaultMappings()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	o := &OpenRouter{
		models:   models,
		log:      log,
		baseURL:  DefaultBaseURL,
		attempts: defaultAttempts,
		minWait:  minBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.attempts < 1 {
		o.attempts = 1
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = o.baseURL
	cfg.HTTPClient = &http.Client{Transport: &attribution{next: http.DefaultTransport}}
	o.client = openai.NewClientWithConfig(cfg)
	return o, nil
}

// Models returns the client's model mappings.
func (o *OpenRouter) Models() Mappings {
	return o.models
}

// Call sends prompt to the model, retrying failed calls with exponential
// backoff.
func (o *OpenRouter) Call(ctx context.Context, model, prompt string) (string, *switchboard.CallMeta, error) {
	id, ok := o.models.Resolve(model)
	if !ok {
		o.log.Warnw("model not found in mappings, using as-is", "model", model)
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.minWait
	eb.MaxInterval = maxBackoff
	eb.Multiplier = 2
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(o.attempts-1)), ctx)

	var (
		text    string
		meta    *switchboard.CallMeta
		attempt int
	)
	op := func() error {
		attempt++
		var err error
		text, meta, err = o.call(ctx, model, id, prompt)
		return err
	}
	notify := func(err error, wait time.Duration) {
		o.log.Warnw("model call failed, retrying", "model", id, "attempt", attempt, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return "", nil, fmt.Errorf("calling %s (%s): %w", model, id, err)
	}
	return text, meta, nil
}

func (o *OpenRouter) call(ctx context.Context, model, id, prompt string) (string, *switchboard.CallMeta, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, request(id, prompt))
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, ErrEmptyResponse
	}

	meta := &switchboard.CallMeta{
		Model:        model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		LatencyMS:    float64(time.Since(start).Microseconds()) / 1000,
	}
	o.log.Debugw("model call completed", "model", id, "tokens", meta.TotalTokens, "latency_ms", meta.LatencyMS)
	return resp.Choices[0].Message.Content, meta, nil
}

// attribution adds the headers OpenRouter uses to attribute traffic.
type attribution struct {
	next http.RoundTripper
}

func (a *attribution) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("HTTP-Referer", "https://github.com/bcspragu/Switchboard")
	r.Header.Set("X-Title", "Switchboard Game Simulator")
	return a.next.RoundTrip(r)
}
