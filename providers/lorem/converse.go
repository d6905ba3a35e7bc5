package lorem

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
)

// conversation is what the runtime needs from a Converse or ConverseStream input.
type conversation struct {
	promptTokens int
	limit        int
}

func inspectConversation(modelID *string, system []brtypes.SystemContentBlock, messages []brtypes.Message, cfg *brtypes.InferenceConfiguration) (conversation, error) {
	if aws.ToString(modelID) == "" {
		return conversation{}, validationException("modelId is required")
	}
	if len(messages) == 0 {
		return conversation{}, validationException("messages must contain at least one message")
	}

	var c conversation
	for _, block := range system {
		if text, ok := block.(*brtypes.SystemContentBlockMemberText); ok {
			c.promptTokens += countWords(text.Value)
		}
	}
	for i, msg := range messages {
		if msg.Role != brtypes.ConversationRoleUser && msg.Role != brtypes.ConversationRoleAssistant {
			return conversation{}, validationException(fmt.Sprintf("messages.%d.role: unsupported role %q", i, msg.Role))
		}
		if len(msg.Content) == 0 {
			return conversation{}, validationException(fmt.Sprintf("messages.%d.content must not be empty", i))
		}
		for _, block := range msg.Content {
			if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
				c.promptTokens += countWords(text.Value)
			}
		}
	}
	if cfg != nil {
		c.limit = int(aws.ToInt32(cfg.MaxTokens))
	}
	return c, nil
}

func converseStopReason(cut bool) brtypes.StopReason {
	if cut {
		return brtypes.StopReasonMaxTokens
	}
	return brtypes.StopReasonEndTurn
}

func usage(in, out int) *brtypes.TokenUsage {
	return &brtypes.TokenUsage{
		InputTokens:  aws.Int32(int32(in)),
		OutputTokens: aws.Int32(int32(out)),
		TotalTokens:  aws.Int32(int32(in + out)),
	}
}

// Converse answers with a single lorem ipsum text block.
func (r *Runtime) Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conv, err := inspectConversation(in.ModelId, in.System, in.Messages, in.InferenceConfig)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	n, cut := r.answerLength(conv.limit)
	text := strings.Join(r.words(n), " ")

	r.logger.Debug("lorem converse", "model_id", aws.ToString(in.ModelId), "words", n)
	return &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role:    brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: text}},
		}},
		StopReason: converseStopReason(cut),
		Usage:      usage(conv.promptTokens, n),
		Metrics:    &brtypes.ConverseMetrics{LatencyMs: aws.Int64(time.Since(start).Milliseconds())},
	}, nil
}

// ConverseStream emits the event sequence of a real ConverseStream call:
// messageStart, one contentBlockDelta per word, contentBlockStop, messageStop
// and metadata.
func (r *Runtime) ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (bedrock.ConverseEventReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conv, err := inspectConversation(in.ModelId, in.System, in.Messages, in.InferenceConfig)
	if err != nil {
		return nil, err
	}

	n, cut := r.answerLength(conv.limit)
	words := r.words(n)

	events := make([]brtypes.ConverseStreamOutput, 0, n+4)
	events = append(events, &brtypes.ConverseStreamOutputMemberMessageStart{
		Value: brtypes.MessageStartEvent{Role: brtypes.ConversationRoleAssistant},
	})
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		events = append(events, &brtypes.ConverseStreamOutputMemberContentBlockDelta{
			Value: brtypes.ContentBlockDeltaEvent{
				ContentBlockIndex: aws.Int32(0),
				Delta:             &brtypes.ContentBlockDeltaMemberText{Value: w},
			},
		})
	}
	events = append(events,
		&brtypes.ConverseStreamOutputMemberContentBlockStop{
			Value: brtypes.ContentBlockStopEvent{ContentBlockIndex: aws.Int32(0)},
		},
		&brtypes.ConverseStreamOutputMemberMessageStop{
			Value: brtypes.MessageStopEvent{StopReason: converseStopReason(cut)},
		},
		&brtypes.ConverseStreamOutputMemberMetadata{
			Value: brtypes.ConverseStreamMetadataEvent{Usage: usage(conv.promptTokens, n)},
		},
	)

	// Index 0 is messageStart, so the failure lands after failAfter deltas.
	failAt := -1
	if r.failAfter > 0 {
		failAt = r.failAfter + 1
	}

	reader := newEventReader[brtypes.ConverseStreamOutput]()
	go reader.run(ctx, events, r.wordDelay, failAt, streamFailure())
	return reader, nil
}
