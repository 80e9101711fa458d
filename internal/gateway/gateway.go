// Package gateway wraps the hosted chat-completion API. It builds the prompt,
// applies the sampling policy and classifies upstream failures.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kalambet/taskchat/internal/failure"
	"github.com/kalambet/taskchat/internal/prompt"
	"github.com/kalambet/taskchat/internal/task"
)

const (
	// PlaceholderKey is the value shipped in example env files.
	PlaceholderKey = "your-openai-api-key-here"

	// FallbackText is returned when the model produces no usable candidate.
	FallbackText = "I apologize, but I couldn't generate a response. Please try again."

	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultTimeout = 30 * time.Second

	maxTokens       = 1000
	logPreviewRunes = 100
)

const tracerName = "taskchat.internal.gateway"

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config configures a Gateway.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// TracerProvider defaults to the global provider.
	TracerProvider trace.TracerProvider
}

// Request is a validated chat request.
type Request struct {
	Text     string
	TaskType task.Type
}

// Result is a successful completion. Fallback is set when Text is the fixed
// apology because the model returned nothing usable.
type Result struct {
	Text     string
	TaskType task.Type
	Fallback bool
}

// Gateway issues one completion request per call. It never retries.
type Gateway struct {
	client  ChatClient
	apiKey  string
	model   string
	timeout time.Duration
	tracer  trace.Tracer
}

// New creates a Gateway backed by the go-openai client.
func New(cfg Config) *Gateway {
	cfg = withDefaults(cfg)

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return NewWithClient(openai.NewClientWithConfig(clientCfg), cfg)
}

// NewWithClient creates a Gateway around an existing client (for testing).
func NewWithClient(client ChatClient, cfg Config) *Gateway {
	cfg = withDefaults(cfg)
	return &Gateway{
		client:  client,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		tracer:  cfg.TracerProvider.Tracer(tracerName),
	}
}

func withDefaults(cfg Config) Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	return cfg
}

// CredentialConfigured reports whether key is usable: non-empty and not the placeholder.
func CredentialConfigured(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderKey
}

// Configured reports whether the gateway holds a usable credential.
func (g *Gateway) Configured() bool {
	return CredentialConfigured(g.apiKey)
}

// Complete sends req to the completion API.
func (g *Gateway) Complete(ctx context.Context, req Request) (Result, error) {
	const op = "gateway.complete"

	if !g.Configured() {
		return Result{}, failure.New(failure.MissingCredential, op,
			"OpenAI API key is required but not configured. Please add your API key.")
	}

	ctx, span := g.tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("taskchat.task_type", string(req.TaskType)),
		attribute.String("taskchat.model", g.model),
	)

	slog.Info("processing completion request", "task_type", req.TaskType, "input", preview(req.Text))

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt.Build(req.Text)},
		},
		MaxTokens:   maxTokens,
		Temperature: req.TaskType.Temperature(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		slog.Error("completion API error", "task_type", req.TaskType, "error", err)
		return Result{}, classify(op, err, g.timeout)
	}

	span.SetAttributes(attribute.Int("taskchat.choices", len(resp.Choices)))

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("completion returned no usable candidate", "task_type", req.TaskType)
		return Result{Text: FallbackText, TaskType: req.TaskType, Fallback: true}, nil
	}

	slog.Info("completion succeeded", "task_type", req.TaskType)
	return Result{Text: resp.Choices[0].Message.Content, TaskType: req.TaskType}, nil
}

// classify maps an upstream error onto a failure kind.
func classify(op string, err error, timeout time.Duration) *failure.Error {
	status, code, msg := upstreamSignal(err)

	switch {
	case status == http.StatusTooManyRequests:
		return failure.Wrap(failure.QuotaExceeded, op,
			"OpenAI API quota exceeded. Please add credits to your OpenAI account or wait for quota reset.", err)
	case status == http.StatusUnauthorized:
		return failure.Wrap(failure.InvalidCredential, op,
			"Invalid OpenAI API key. Please check your API key is correct and active.", err)
	case status == http.StatusForbidden:
		return failure.Wrap(failure.AccessForbidden, op,
			"OpenAI API access forbidden. Please verify your API key permissions.", err)
	case code == "insufficient_quota":
		return failure.Wrap(failure.QuotaExceeded, op,
			"OpenAI account has insufficient quota. Please add credits to your OpenAI account.", err)
	case errors.Is(err, context.DeadlineExceeded):
		return failure.Wrap(failure.UpstreamError, op,
			fmt.Sprintf("AI Service Error: request timed out after %s", timeout), err)
	default:
		return failure.Wrap(failure.UpstreamError, op, "AI Service Error: "+msg, err)
	}
}

// upstreamSignal extracts the HTTP status, error code and message from err.
func upstreamSignal(err error) (status int, code, msg string) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		if code == "" {
			code = apiErr.Type
		}
		msg = apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return apiErr.HTTPStatusCode, code, msg
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode, "", reqErr.Error()
	}

	return 0, "", err.Error()
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= logPreviewRunes {
		return s
	}
	return string(r[:logPreviewRunes]) + "..."
}
