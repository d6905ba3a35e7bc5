// Package anthropic sends conversation requests to Claude models through the
// Anthropic Messages API, routed over Amazon Bedrock or straight to Anthropic.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicbedrock "github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/aws"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// ProviderName identifies this provider in errors and logs.
const ProviderName = "anthropic"

// Operation names reported in errors.
const (
	OpMessages       = "Messages"
	OpMessagesStream = "MessagesStream"
)

// Provider calls the Anthropic Messages API.
type Provider struct {
	client *anthropic.Client
	logger *slog.Logger
}

type settings struct {
	requestOptions []option.RequestOption
	logger         *slog.Logger
}

// Option configures a Provider.
type Option func(*settings)

// WithAWSConfig routes requests through Amazon Bedrock using cfg for region
// and credentials.
func WithAWSConfig(cfg aws.Config) Option {
	return func(s *settings) {
		s.requestOptions = append(s.requestOptions, anthropicbedrock.WithConfig(cfg))
	}
}

// WithAPIKey sends requests to the Anthropic API directly.
func WithAPIKey(apiKey string) Option {
	return func(s *settings) {
		if apiKey != "" {
			s.requestOptions = append(s.requestOptions, option.WithAPIKey(apiKey))
		}
	}
}

// WithRequestOptions appends raw SDK request options (base URL, retries, headers).
func WithRequestOptions(opts ...option.RequestOption) Option {
	return func(s *settings) {
		s.requestOptions = append(s.requestOptions, opts...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewProvider creates a provider. At least one of WithAWSConfig, WithAPIKey or
// WithRequestOptions is required.
func NewProvider(opts ...Option) (*Provider, error) {
	s := &settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if len(s.requestOptions) == 0 {
		return nil, &bedrockllm.ValidationError{
			Field:  "credentials",
			Reason: "an AWS config, API key or request options are required",
			Err:    bedrockllm.ErrInvalidRequest,
		}
	}

	client := anthropic.NewClient(s.requestOptions...)

	return &Provider{
		client: &client,
		logger: s.logger,
	}, nil
}

// SupportsModel returns true for Claude models: Bedrock IDs start with
// "anthropic." (optionally behind a region prefix such as "us."), Anthropic
// API IDs with "claude-".
func (p *Provider) SupportsModel(model string) bool {
	return strings.HasPrefix(model, "claude-") || strings.Contains(model, "anthropic.")
}

func (p *Provider) checkRequest(modelID string, req *bedrockllm.ConversationRequest) error {
	if req == nil {
		return &bedrockllm.ValidationError{
			Field:  "request",
			Reason: "conversation request is required",
			Err:    bedrockllm.ErrInvalidRequest,
		}
	}
	if !p.SupportsModel(modelID) {
		return &bedrockllm.ValidationError{
			Field:  "model_id",
			Value:  modelID,
			Reason: "model not supported by Anthropic (must be a Claude model)",
			Err:    bedrockllm.ErrInvalidRequest,
		}
	}
	return nil
}

// MessagesOnce sends the conversation and returns the concatenated text of
// the reply.
func (p *Provider) MessagesOnce(ctx context.Context, modelID string, req *bedrockllm.ConversationRequest) (string, error) {
	if err := p.checkRequest(modelID, req); err != nil {
		return "", err
	}

	// Build Anthropic API parameters (shared logic with MessagesStreamed)
	apiParams := buildMessageParams(modelID, req)

	message, err := p.client.Messages.New(ctx, apiParams)
	if err != nil {
		mapped := remoteError(OpMessages, modelID, err)
		p.logger.Error("anthropic call failed", "model_id", modelID, "error", mapped)
		return "", mapped
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	p.logger.Debug("anthropic call finished",
		"model_id", modelID,
		"stop_reason", string(message.StopReason),
		"input_tokens", message.Usage.InputTokens,
		"output_tokens", message.Usage.OutputTokens,
	)
	if sb.Len() == 0 && len(message.Content) > 0 {
		return "", malformedError(OpMessages, modelID, fmt.Sprintf("reply has %d content blocks but none are text", len(message.Content)))
	}
	return sb.String(), nil
}
