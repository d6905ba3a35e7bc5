package bedrockllm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CompletionRequest is a single-prompt, non-conversational generation request.
// The body follows the Meta Llama InvokeModel format:
// https://docs.aws.amazon.com/bedrock/latest/userguide/model-parameters-meta.html
type CompletionRequest struct {
	prompt      string
	temperature float64
	topP        float64
	maxGenLen   int
}

// CompletionOption customizes a CompletionRequest.
type CompletionOption func(*CompletionRequest)

// WithTemperature sets the sampling temperature (0.0-1.0).
func WithTemperature(t float64) CompletionOption {
	return func(r *CompletionRequest) { r.temperature = t }
}

// WithTopP sets the nucleus sampling probability (0.0-1.0).
func WithTopP(p float64) CompletionOption {
	return func(r *CompletionRequest) { r.topP = p }
}

// WithMaxGenLen sets the maximum number of generated tokens.
func WithMaxGenLen(n int) CompletionOption {
	return func(r *CompletionRequest) { r.maxGenLen = n }
}

// NewCompletionRequest builds and validates a completion request.
// Unset fields take the package defaults (temperature 0.7, top_p 0.9, max_gen_len 512).
func NewCompletionRequest(prompt string, opts ...CompletionOption) (*CompletionRequest, error) {
	r := &CompletionRequest{
		prompt:      prompt,
		temperature: DefaultTemperature,
		topP:        DefaultTopP,
		maxGenLen:   DefaultMaxGenLen,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := validatePrompt("prompt", r.prompt); err != nil {
		return nil, err
	}
	if err := validateUnitInterval("temperature", r.temperature); err != nil {
		return nil, err
	}
	if err := validateUnitInterval("top_p", r.topP); err != nil {
		return nil, err
	}
	if err := validateTokenLimit("max_gen_len", r.maxGenLen); err != nil {
		return nil, err
	}
	return r, nil
}

// Prompt returns the raw prompt text, before any chat template is applied.
func (r *CompletionRequest) Prompt() string { return r.prompt }

// Temperature returns the sampling temperature.
func (r *CompletionRequest) Temperature() float64 { return r.temperature }

// TopP returns the nucleus sampling probability.
func (r *CompletionRequest) TopP() float64 { return r.topP }

// MaxGenLen returns the maximum number of generated tokens.
func (r *CompletionRequest) MaxGenLen() int { return r.maxGenLen }

// completionWire is the InvokeModel body. Field order is the wire order.
type completionWire struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxGenLen   int     `json:"max_gen_len"`
}

// Serialize returns the InvokeModel request body.
func (r *CompletionRequest) Serialize() ([]byte, error) {
	return marshalNoEscape(completionWire{
		Prompt:      r.prompt,
		Temperature: r.temperature,
		TopP:        r.topP,
		MaxGenLen:   r.maxGenLen,
	})
}

// DecodeCompletionPayload parses an InvokeModel body and validates it.
// Missing numeric fields take the defaults.
func DecodeCompletionPayload(data []byte) (*CompletionRequest, error) {
	var wire struct {
		Prompt      string   `json:"prompt"`
		Temperature *float64 `json:"temperature"`
		TopP        *float64 `json:"top_p"`
		MaxGenLen   *int     `json:"max_gen_len"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &ValidationError{
			Field:  "payload",
			Value:  len(data),
			Reason: fmt.Sprintf("invalid JSON: %v", err),
			Err:    ErrInvalidRequest,
		}
	}

	var opts []CompletionOption
	if wire.Temperature != nil {
		opts = append(opts, WithTemperature(*wire.Temperature))
	}
	if wire.TopP != nil {
		opts = append(opts, WithTopP(*wire.TopP))
	}
	if wire.MaxGenLen != nil {
		opts = append(opts, WithMaxGenLen(*wire.MaxGenLen))
	}
	return NewCompletionRequest(wire.Prompt, opts...)
}

// marshalNoEscape encodes v without HTML escaping so prompt templates
// containing <|...|> markers go over the wire verbatim.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
