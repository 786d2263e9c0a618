package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultModel is the generative model used for every enrichment stage
	DefaultModel = "gemini-1.5-flash"
	// GeminiBaseURL is Google's OpenAI-compatible endpoint
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

var (
	// ErrEmptyPrompt is returned when the prompt is empty
	ErrEmptyPrompt = errors.New("prompt cannot be empty")
	// ErrEmptyResponse is returned when the model returns no choices
	ErrEmptyResponse = errors.New("model returned no choices")
	// ErrNoAPIKey is returned when the model API key is not set
	ErrNoAPIKey = errors.New("NOCTURNE_MODEL_API_KEY environment variable not set")
)

// CompletionRequest is a single JSON-mode completion call
type CompletionRequest struct {
	Prompt      string
	Temperature float32
}

// CompletionAPI defines the interface for JSON-mode text generation
type CompletionAPI interface {
	CreateJSONCompletion(ctx context.Context, req CompletionRequest) (string, error)
}

// Client wraps a generative model behind the CompletionAPI interface
type Client struct {
	api CompletionAPI
}

// OpenAIAdapter implements CompletionAPI with the go-openai client
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter creates an adapter, defaulting the model when cfg leaves it empty
func NewOpenAIAdapter(cfg Config) *OpenAIAdapter {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = GeminiBaseURL
	}
	return &OpenAIAdapter{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// CreateJSONCompletion asks the model for a JSON object response
func (a *OpenAIAdapter) CreateJSONCompletion(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		Temperature: req.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return resp.Choices[0].Message.Content, nil
}

// Config holds the model endpoint settings
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// NewClient creates a new model client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	return &Client{api: NewOpenAIAdapter(cfg)}, nil
}

// NewClientWithAPI creates a client around an existing CompletionAPI
func NewClientWithAPI(api CompletionAPI) *Client {
	return &Client{api: api}
}

// NewClientFromEnv creates a new client using NOCTURNE_MODEL_* environment variables
func NewClientFromEnv() (*Client, error) {
	return NewClient(Config{
		APIKey:  os.Getenv("NOCTURNE_MODEL_API_KEY"),
		BaseURL: os.Getenv("NOCTURNE_MODEL_BASE_URL"),
		Model:   os.Getenv("NOCTURNE_MODEL_NAME"),
	})
}

// Complete sends prompt to the model and returns the raw response text
func (c *Client) Complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	text, err := c.api.CreateJSONCompletion(ctx, CompletionRequest{
		Prompt:      prompt,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	return text, nil
}
