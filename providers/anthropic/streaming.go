package anthropic

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// MessagesStreamed sends the conversation and streams the reply's text
// deltas. Cancelling ctx ends the stream without an error.
func (p *Provider) MessagesStreamed(ctx context.Context, modelID string, req *bedrockllm.ConversationRequest) (*bedrockllm.Stream[string], error) {
	if err := p.checkRequest(modelID, req); err != nil {
		return nil, err
	}

	// Build Anthropic API parameters (shared logic with MessagesOnce)
	apiParams := buildMessageParams(modelID, req)

	stream := p.client.Messages.NewStreaming(ctx, apiParams)

	// Accumulator for final message metadata
	message := anthropic.Message{}

	next := func() (string, bool, error) {
		for stream.Next() {
			event := stream.Current()

			if err := message.Accumulate(event); err != nil {
				return "", false, malformedError(OpMessagesStream, modelID, "failed to accumulate message: "+err.Error())
			}

			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if ev.Delta.Type == "text_delta" {
					return ev.Delta.Text, true, nil
				}
			case anthropic.MessageStopEvent:
				p.logger.Debug("anthropic stream finished",
					"model_id", modelID,
					"stop_reason", string(message.StopReason),
					"output_tokens", message.Usage.OutputTokens,
				)
			}
		}

		err := stream.Err()
		if err == nil || ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return "", false, nil
		}
		mapped := remoteError(OpMessagesStream, modelID, err)
		p.logger.Error("anthropic stream failed", "model_id", modelID, "error", mapped)
		return "", false, mapped
	}

	return bedrockllm.NewStream(next, stream.Close), nil
}
