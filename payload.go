package bedrockllm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Top-level keys of the Converse payload.
const (
	PayloadKeySystem           = "system"
	PayloadKeyMessages         = "messages"
	PayloadKeyInferenceConfig  = "inferenceConfig"
	PayloadKeyAdditionalFields = "additionalModelRequestFields"
)

// wireNames maps semantic field names to the names the Converse API expects.
// Fields missing from the table keep their semantic name on the wire.
var wireNames = map[string]string{
	"max_tokens":     "maxTokens",
	"temperature":    "temperature",
	"top_p":          "topP",
	"stop_sequences": "stopSequences",
	"top_k":          "topK",
}

var semanticNames = func() map[string]string {
	m := make(map[string]string, len(wireNames))
	for semantic, wire := range wireNames {
		m[wire] = semantic
	}
	return m
}()

// WireName returns the wire name of a semantic field name.
func WireName(semantic string) string {
	if wire, ok := wireNames[semantic]; ok {
		return wire
	}
	return semantic
}

// SemanticName returns the semantic name of a wire field name.
func SemanticName(wire string) string {
	if semantic, ok := semanticNames[wire]; ok {
		return semantic
	}
	return wire
}

type wireField struct {
	name  string
	value any
}

// wireFields lists the config in wire order with absent optionals dropped.
func (c InferenceConfig) wireFields() []wireField {
	fields := []wireField{{WireName("max_tokens"), c.MaxTokens()}}
	if t, ok := c.temperature.Get(); ok {
		fields = append(fields, wireField{WireName("temperature"), t})
	}
	if p, ok := c.topP.Get(); ok {
		fields = append(fields, wireField{WireName("top_p"), p})
	}
	fields = append(fields, wireField{WireName("stop_sequences"), c.StopSequences()})
	return fields
}

func (a AdditionalModelFields) wireFields() []wireField {
	var fields []wireField
	if k, ok := a.topK.Get(); ok {
		fields = append(fields, wireField{WireName("top_k"), k})
	}
	return fields
}

// WireFields returns the config keyed by wire name.
func (c InferenceConfig) WireFields() map[string]any {
	return fieldMap(c.wireFields())
}

// WireFields returns the present fields keyed by wire name.
// An empty bag yields an empty, non-nil map.
func (a AdditionalModelFields) WireFields() map[string]any {
	return fieldMap(a.wireFields())
}

func fieldMap(fields []wireField) map[string]any {
	m := make(map[string]any, len(fields))
	for _, f := range fields {
		m[f.name] = f.value
	}
	return m
}

// MarshalJSON encodes the config with wire names, in wire order.
func (c InferenceConfig) MarshalJSON() ([]byte, error) {
	return marshalFields(c.wireFields())
}

// MarshalJSON encodes the present fields with wire names.
func (a AdditionalModelFields) MarshalJSON() ([]byte, error) {
	return marshalFields(a.wireFields())
}

func marshalFields(fields []wireField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(f.name)
		if err != nil {
			return nil, err
		}
		val, err := marshalNoEscape(f.value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func blockWire(b ContentBlock) map[string]any {
	return map[string]any{b.BlockType(): b.wireValue()}
}

func contentWire(m Message) []map[string]any {
	content := make([]map[string]any, 0, len(m.content))
	for _, block := range m.content {
		content = append(content, blockWire(block))
	}
	return content
}

func messageWire(m Message) map[string]any {
	return map[string]any{
		"role":    m.role.String(),
		"content": contentWire(m),
	}
}

// MarshalJSON encodes the message as {"role": ..., "content": [...]}.
func (m Message) MarshalJSON() ([]byte, error) {
	return marshalNoEscape(struct {
		Role    Role             `json:"role"`
		Content []map[string]any `json:"content"`
	}{
		Role:    m.role,
		Content: contentWire(m),
	})
}

// conversePayload fixes the top-level key order of the serialized request.
type conversePayload struct {
	System                       []TextBlock           `json:"system"`
	Messages                     []Message             `json:"messages"`
	InferenceConfig              InferenceConfig       `json:"inferenceConfig"`
	AdditionalModelRequestFields AdditionalModelFields `json:"additionalModelRequestFields"`
}

// Serialize returns the Converse payload as JSON. The output depends only on
// the request, so repeated calls return identical bytes.
func (r *ConversationRequest) Serialize() ([]byte, error) {
	return marshalNoEscape(conversePayload{
		System:                       r.SystemPrompts(),
		Messages:                     r.messages,
		InferenceConfig:              r.inference,
		AdditionalModelRequestFields: r.additional,
	})
}

// Payload returns the Converse payload as a map with exactly four keys:
// system, messages, inferenceConfig and additionalModelRequestFields.
func (r *ConversationRequest) Payload() map[string]any {
	system := make([]map[string]any, 0, len(r.system))
	for _, prompt := range r.system {
		system = append(system, blockWire(prompt))
	}
	messages := make([]map[string]any, 0, len(r.messages))
	for _, msg := range r.messages {
		messages = append(messages, messageWire(msg))
	}
	return map[string]any{
		PayloadKeySystem:           system,
		PayloadKeyMessages:         messages,
		PayloadKeyInferenceConfig:  r.inference.WireFields(),
		PayloadKeyAdditionalFields: r.additional.WireFields(),
	}
}

// DecodeConversationPayload parses a Converse payload (wire names) back into
// a validated ConversationRequest. Fields missing from inferenceConfig stay
// absent, except maxTokens which falls back to DefaultMaxTokens.
func DecodeConversationPayload(data []byte) (*ConversationRequest, error) {
	var wire struct {
		System   []map[string]json.RawMessage `json:"system"`
		Messages []struct {
			Role    Role                         `json:"role"`
			Content []map[string]json.RawMessage `json:"content"`
		} `json:"messages"`
		InferenceConfig map[string]json.RawMessage `json:"inferenceConfig"`
		Additional      map[string]json.RawMessage `json:"additionalModelRequestFields"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, payloadError("payload", fmt.Sprintf("invalid JSON: %v", err))
	}

	system := make([]TextBlock, 0, len(wire.System))
	for i, raw := range wire.System {
		block, err := decodeBlock(fmt.Sprintf("system[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		tb, ok := block.(TextBlock)
		if !ok {
			return nil, payloadError(fmt.Sprintf("system[%d]", i), "system prompts must be text blocks")
		}
		system = append(system, tb)
	}

	messages := make([]Message, 0, len(wire.Messages))
	for i, m := range wire.Messages {
		content := make([]ContentBlock, 0, len(m.Content))
		for j, raw := range m.Content {
			block, err := decodeBlock(fmt.Sprintf("messages[%d].content[%d]", i, j), raw)
			if err != nil {
				return nil, err
			}
			content = append(content, block)
		}
		messages = append(messages, Message{role: m.Role, content: content})
	}

	cfg, err := decodeInferenceConfig(wire.InferenceConfig)
	if err != nil {
		return nil, err
	}
	extra, err := decodeAdditionalFields(wire.Additional)
	if err != nil {
		return nil, err
	}

	return NewConversationRequest(system, messages, cfg, extra)
}

func decodeBlock(path string, raw map[string]json.RawMessage) (ContentBlock, error) {
	if len(raw) != 1 {
		return nil, payloadError(path, "content block must have exactly one key")
	}
	for key, value := range raw {
		switch key {
		case BlockTypeText:
			var text string
			if err := json.Unmarshal(value, &text); err != nil {
				return nil, payloadError(path+".text", "text must be a string")
			}
			return Text(text), nil
		default:
			return nil, payloadError(path, fmt.Sprintf("unsupported content block %q", key))
		}
	}
	return nil, payloadError(path, "empty content block")
}

func decodeInferenceConfig(raw map[string]json.RawMessage) (InferenceConfig, error) {
	var c InferenceConfig
	for key, value := range raw {
		field := SemanticName(key)
		switch field {
		case "max_tokens":
			var n int
			if err := json.Unmarshal(value, &n); err != nil {
				return c, payloadError(field, "must be an integer")
			}
			c.maxTokens = Some(n)
		case "temperature", "top_p":
			var v *float64
			if err := json.Unmarshal(value, &v); err != nil {
				return c, payloadError(field, "must be a number")
			}
			opt := None[float64]()
			if v != nil {
				opt = Some(*v)
			}
			if field == "temperature" {
				c.temperature = opt
			} else {
				c.topP = opt
			}
		case "stop_sequences":
			var seqs []string
			if err := json.Unmarshal(value, &seqs); err != nil {
				return c, payloadError(field, "must be a list of strings")
			}
			c.stopSequences = seqs
		default:
			return c, payloadError(key, "unknown inference config field")
		}
	}
	return c, nil
}

func decodeAdditionalFields(raw map[string]json.RawMessage) (AdditionalModelFields, error) {
	var a AdditionalModelFields
	for key, value := range raw {
		field := SemanticName(key)
		switch field {
		case "top_k":
			var k *int
			if err := json.Unmarshal(value, &k); err != nil {
				return a, payloadError(field, "must be an integer")
			}
			if k != nil {
				a.topK = Some(*k)
			}
		default:
			return a, payloadError(key, "unknown additional model field")
		}
	}
	return a, nil
}

func payloadError(field, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  nil,
		Reason: reason,
		Err:    ErrInvalidRequest,
	}
}
