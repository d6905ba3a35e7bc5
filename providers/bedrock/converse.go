package bedrock

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.opentelemetry.io/otel/attribute"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// converseFields holds the SDK form of a conversation request, shared by
// Converse and ConverseStream.
type converseFields struct {
	system     []brtypes.SystemContentBlock
	messages   []brtypes.Message
	inference  *brtypes.InferenceConfiguration
	additional document.Interface
}

func toConverseFields(req *bedrockllm.ConversationRequest) converseFields {
	f := converseFields{
		system:    toSystemBlocks(req.SystemPrompts()),
		messages:  toMessages(req.Messages()),
		inference: toInferenceConfig(req.InferenceConfig()),
	}
	if extra := req.AdditionalModelFields().WireFields(); len(extra) > 0 {
		f.additional = document.NewLazyDocument(extra)
	}
	return f
}

func toSystemBlocks(prompts []bedrockllm.TextBlock) []brtypes.SystemContentBlock {
	out := make([]brtypes.SystemContentBlock, 0, len(prompts))
	for _, p := range prompts {
		out = append(out, &brtypes.SystemContentBlockMemberText{Value: p.Text})
	}
	return out
}

func toMessages(messages []bedrockllm.Message) []brtypes.Message {
	out := make([]brtypes.Message, 0, len(messages))
	for _, m := range messages {
		blocks := m.Content()
		content := make([]brtypes.ContentBlock, 0, len(blocks))
		for _, b := range blocks {
			switch block := b.(type) {
			case bedrockllm.TextBlock:
				content = append(content, &brtypes.ContentBlockMemberText{Value: block.Text})
			}
		}
		out = append(out, brtypes.Message{
			Role:    brtypes.ConversationRole(m.Role()),
			Content: content,
		})
	}
	return out
}

func toInferenceConfig(cfg bedrockllm.InferenceConfig) *brtypes.InferenceConfiguration {
	out := &brtypes.InferenceConfiguration{
		MaxTokens:     aws.Int32(int32(cfg.MaxTokens())),
		StopSequences: cfg.StopSequences(),
	}
	if t, ok := cfg.Temperature().Get(); ok {
		out.Temperature = aws.Float32(float32(t))
	}
	if p, ok := cfg.TopP().Get(); ok {
		out.TopP = aws.Float32(float32(p))
	}
	return out
}

// ConverseOnce sends a conversation with the Converse API and returns the
// text of the output message, all text blocks concatenated.
func (c *Client) ConverseOnce(ctx context.Context, modelID string, req *bedrockllm.ConversationRequest) (string, error) {
	if err := c.prepareConverse(modelID, req, false); err != nil {
		return "", err
	}
	f := toConverseFields(req)

	ctx, inv := c.begin(ctx, OpConverse, modelID)
	defer inv.end()

	out, err := c.runtime.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:                      aws.String(modelID),
		System:                       f.system,
		Messages:                     f.messages,
		InferenceConfig:              f.inference,
		AdditionalModelRequestFields: f.additional,
	})
	if err != nil {
		return "", inv.fail(err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", inv.fail(malformedError(OpConverse, modelID, fmt.Sprintf("unexpected output %T", out.Output), nil))
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}

	inv.span.SetAttributes(attribute.String("bedrock.stop_reason", string(out.StopReason)))
	if out.Usage != nil {
		inv.span.SetAttributes(
			attribute.Int("bedrock.input_tokens", int(aws.ToInt32(out.Usage.InputTokens))),
			attribute.Int("bedrock.output_tokens", int(aws.ToInt32(out.Usage.OutputTokens))),
		)
	}
	return sb.String(), nil
}

// ConverseStreamed sends a conversation with ConverseStream. The stream
// yields the text of each content block delta in arrival order; all other
// events are skipped. The caller must drain or Close the stream.
func (c *Client) ConverseStreamed(ctx context.Context, modelID string, req *bedrockllm.ConversationRequest) (*bedrockllm.Stream[string], error) {
	if err := c.prepareConverse(modelID, req, true); err != nil {
		return nil, err
	}
	f := toConverseFields(req)

	ctx, inv := c.begin(ctx, OpConverseStream, modelID)
	reader, err := c.runtime.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:                      aws.String(modelID),
		System:                       f.system,
		Messages:                     f.messages,
		InferenceConfig:              f.inference,
		AdditionalModelRequestFields: f.additional,
	})
	if err != nil {
		err = inv.fail(err)
		inv.end()
		return nil, err
	}
	return newConverseStream(ctx, inv, reader), nil
}

func (c *Client) prepareConverse(modelID string, req *bedrockllm.ConversationRequest, streaming bool) error {
	if req == nil {
		return requestError("request", "conversation request is required", nil)
	}
	if err := checkModelID(modelID); err != nil {
		return err
	}

	c.warn(bedrockllm.Call{
		ModelID:   modelID,
		Operation: bedrockllm.OperationConverse,
		Streaming: streaming,
		MaxTokens: req.InferenceConfig().MaxTokens(),
	})
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		if payload, err := req.Serialize(); err == nil {
			c.logger.Debug("converse payload", "model_id", modelID, "payload", string(payload))
		}
	}
	return nil
}

func newConverseStream(ctx context.Context, inv *invocation, reader ConverseEventReader) *bedrockllm.Stream[string] {
	events := reader.Events()
	fragments := 0

	next := func() (string, bool, error) {
		for {
			ev, ok := <-events
			if !ok {
				return "", false, streamEnd(ctx, inv, reader.Err())
			}

			switch e := ev.(type) {
			case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
				if text, ok := e.Value.Delta.(*brtypes.ContentBlockDeltaMemberText); ok {
					fragments++
					return text.Value, true, nil
				}
				inv.logger.Debug("skipping non-text delta", "delta", fmt.Sprintf("%T", e.Value.Delta))
			case *brtypes.ConverseStreamOutputMemberMessageStop:
				inv.span.SetAttributes(attribute.String("bedrock.stop_reason", string(e.Value.StopReason)))
				inv.logger.Debug("skipping stream event", "event", "messageStop", "stop_reason", e.Value.StopReason)
			default:
				inv.logger.Debug("skipping stream event", "event", fmt.Sprintf("%T", ev))
			}
		}
	}

	closeFn := func() error {
		err := reader.Close()
		inv.end(attribute.Int("bedrock.fragments", fragments))
		return err
	}
	return bedrockllm.NewStream(next, closeFn)
}
