package bedrockllm

import (
	"fmt"
)

// InferenceConfig holds the common generation parameters of a Converse request.
//
// Fields are Optional: an absent temperature or top_p is left out of the
// payload so the model default applies. An absent max_tokens serializes as
// DefaultMaxTokens. NewInferenceConfig starts from the documented defaults
// (512 tokens, temperature 0.7, top_p 0.9, no stop sequences).
type InferenceConfig struct {
	maxTokens     Optional[int]
	temperature   Optional[float64]
	topP          Optional[float64]
	stopSequences []string
}

// InferenceOption customizes an InferenceConfig.
type InferenceOption func(*InferenceConfig)

// WithMaxTokens sets the maximum number of output tokens.
func WithMaxTokens(n int) InferenceOption {
	return func(c *InferenceConfig) { c.maxTokens = Some(n) }
}

// WithInferenceTemperature sets the sampling temperature (0.0-1.0).
func WithInferenceTemperature(t float64) InferenceOption {
	return func(c *InferenceConfig) { c.temperature = Some(t) }
}

// WithoutTemperature drops temperature from the payload.
func WithoutTemperature() InferenceOption {
	return func(c *InferenceConfig) { c.temperature = None[float64]() }
}

// WithInferenceTopP sets the nucleus sampling probability (0.0-1.0).
func WithInferenceTopP(p float64) InferenceOption {
	return func(c *InferenceConfig) { c.topP = Some(p) }
}

// WithoutTopP drops top_p from the payload.
func WithoutTopP() InferenceOption {
	return func(c *InferenceConfig) { c.topP = None[float64]() }
}

// WithStopSequences sets the strings that stop generation early.
func WithStopSequences(seqs ...string) InferenceOption {
	return func(c *InferenceConfig) { c.stopSequences = append([]string(nil), seqs...) }
}

// NewInferenceConfig returns the default config with opts applied.
// Validation happens when the config is attached to a ConversationRequest.
func NewInferenceConfig(opts ...InferenceOption) InferenceConfig {
	c := InferenceConfig{
		maxTokens:   Some(DefaultMaxTokens),
		temperature: Some(DefaultTemperature),
		topP:        Some(DefaultTopP),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// MaxTokens returns the output token limit.
func (c InferenceConfig) MaxTokens() int {
	return c.maxTokens.OrElse(DefaultMaxTokens)
}

// Temperature returns the sampling temperature, if set.
func (c InferenceConfig) Temperature() Optional[float64] {
	return c.temperature
}

// TopP returns the nucleus sampling probability, if set.
func (c InferenceConfig) TopP() Optional[float64] {
	return c.topP
}

// StopSequences returns a copy of the stop sequences.
func (c InferenceConfig) StopSequences() []string {
	return append([]string{}, c.stopSequences...)
}

func (c InferenceConfig) validate() error {
	if n, ok := c.maxTokens.Get(); ok {
		if err := validateTokenLimit("max_tokens", n); err != nil {
			return err
		}
	}
	if err := validateOptionalUnitInterval("temperature", c.temperature); err != nil {
		return err
	}
	if err := validateOptionalUnitInterval("top_p", c.topP); err != nil {
		return err
	}
	return validateStopSequences("stop_sequences", c.stopSequences)
}

// AdditionalModelFields carries model-specific knobs the common config does
// not cover. Absent fields are never sent.
type AdditionalModelFields struct {
	topK Optional[int]
}

// AdditionalFieldOption customizes AdditionalModelFields.
type AdditionalFieldOption func(*AdditionalModelFields)

// WithTopK bounds sampling to the k most likely tokens.
func WithTopK(k int) AdditionalFieldOption {
	return func(a *AdditionalModelFields) { a.topK = Some(k) }
}

// NewAdditionalModelFields returns an empty field bag with opts applied.
func NewAdditionalModelFields(opts ...AdditionalFieldOption) AdditionalModelFields {
	var a AdditionalModelFields
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// TopK returns the top-k bound, if set.
func (a AdditionalModelFields) TopK() Optional[int] {
	return a.topK
}

func (a AdditionalModelFields) validate() error {
	if k, ok := a.topK.Get(); ok && k < 1 {
		return &ValidationError{
			Field:  "top_k",
			Value:  k,
			Reason: "top_k must be positive",
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}

// ConversationRequest is a multi-turn request: system instructions, message
// history (oldest first), inference config and additional model fields.
type ConversationRequest struct {
	system     []TextBlock
	messages   []Message
	inference  InferenceConfig
	additional AdditionalModelFields
}

// NewConversationRequest validates and assembles a conversation request.
//
// It fails with *ValidationError when messages is empty, a content block is
// blank or a numeric field is out of range, and with *InvalidRoleError when a
// message role is not "user" or "assistant".
func NewConversationRequest(system []TextBlock, messages []Message, cfg InferenceConfig, extra AdditionalModelFields) (*ConversationRequest, error) {
	for i, prompt := range system {
		if err := prompt.validate(fmt.Sprintf("system_prompts[%d]", i)); err != nil {
			return nil, err
		}
	}

	if len(messages) == 0 {
		return nil, &ValidationError{
			Field:  "messages",
			Value:  0,
			Reason: "at least one message is required",
			Err:    ErrInvalidRequest,
		}
	}
	for i, msg := range messages {
		if err := msg.validate(i); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := extra.validate(); err != nil {
		return nil, err
	}

	return &ConversationRequest{
		system:     append([]TextBlock{}, system...),
		messages:   append([]Message(nil), messages...),
		inference:  cfg,
		additional: extra,
	}, nil
}

// SystemPrompts returns a copy of the system instruction blocks.
func (r *ConversationRequest) SystemPrompts() []TextBlock {
	return append([]TextBlock{}, r.system...)
}

// Messages returns a copy of the conversation history.
func (r *ConversationRequest) Messages() []Message {
	return append([]Message(nil), r.messages...)
}

// InferenceConfig returns the generation parameters.
func (r *ConversationRequest) InferenceConfig() InferenceConfig {
	return r.inference
}

// AdditionalModelFields returns the model-specific fields.
func (r *ConversationRequest) AdditionalModelFields() AdditionalModelFields {
	return r.additional
}
