package bedrockllm

import "encoding/json"

// InvokeChunk is one fragment of a streamed completion.
type InvokeChunk struct {
	// Generation is the text produced since the previous chunk.
	Generation string

	// StopReason is set on the final chunk ("stop", "length"), empty otherwise.
	StopReason string

	// PromptTokens and GenerationTokens are running counts reported by the model, when present.
	PromptTokens     int
	GenerationTokens int

	// Raw is the chunk exactly as received.
	Raw json.RawMessage
}

// invokeChunkWire mirrors the Llama response and chunk body.
type invokeChunkWire struct {
	Generation           string  `json:"generation"`
	PromptTokenCount     *int    `json:"prompt_token_count"`
	GenerationTokenCount *int    `json:"generation_token_count"`
	StopReason           *string `json:"stop_reason"`
}

// DecodeInvokeChunk parses a Llama response body or stream chunk.
func DecodeInvokeChunk(data []byte) (InvokeChunk, error) {
	var wire invokeChunkWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return InvokeChunk{}, err
	}
	chunk := InvokeChunk{
		Generation: wire.Generation,
		Raw:        append(json.RawMessage(nil), data...),
	}
	if wire.StopReason != nil {
		chunk.StopReason = *wire.StopReason
	}
	if wire.PromptTokenCount != nil {
		chunk.PromptTokens = *wire.PromptTokenCount
	}
	if wire.GenerationTokenCount != nil {
		chunk.GenerationTokens = *wire.GenerationTokenCount
	}
	return chunk, nil
}
