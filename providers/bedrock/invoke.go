package bedrock

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/attribute"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

const contentTypeJSON = "application/json"

//go:embed schemas/llama_response.json
var llamaResponseSchema []byte

var (
	responseSchema     *gojsonschema.Schema
	responseSchemaErr  error
	responseSchemaOnce sync.Once
)

// validateInvokeResponse checks an InvokeModel body against the Llama
// response schema.
func validateInvokeResponse(body []byte) error {
	responseSchemaOnce.Do(func() {
		responseSchema, responseSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(llamaResponseSchema))
	})
	if responseSchemaErr != nil {
		return fmt.Errorf("failed to compile response schema: %w", responseSchemaErr)
	}

	result, err := responseSchema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return err
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return errors.New(strings.Join(msgs, "; "))
	}
	return nil
}

// InvokeOnce sends a completion request with InvokeModel and returns the
// generated text.
func (c *Client) InvokeOnce(ctx context.Context, modelID string, req *bedrockllm.CompletionRequest) (string, error) {
	chunk, err := c.Invoke(ctx, modelID, req)
	if err != nil {
		return "", err
	}
	return chunk.Generation, nil
}

// Invoke is InvokeOnce keeping the token counts and stop reason of the
// response.
func (c *Client) Invoke(ctx context.Context, modelID string, req *bedrockllm.CompletionRequest) (bedrockllm.InvokeChunk, error) {
	body, err := c.prepareInvoke(modelID, req, false)
	if err != nil {
		return bedrockllm.InvokeChunk{}, err
	}

	ctx, inv := c.begin(ctx, OpInvokeModel, modelID)
	defer inv.end()

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		return bedrockllm.InvokeChunk{}, inv.fail(err)
	}

	if err := validateInvokeResponse(out.Body); err != nil {
		return bedrockllm.InvokeChunk{}, inv.fail(malformedError(OpInvokeModel, modelID, "response does not match the completion schema", err))
	}
	chunk, err := bedrockllm.DecodeInvokeChunk(out.Body)
	if err != nil {
		return bedrockllm.InvokeChunk{}, inv.fail(malformedError(OpInvokeModel, modelID, "undecodable response body", err))
	}

	inv.span.SetAttributes(
		attribute.Int("bedrock.prompt_tokens", chunk.PromptTokens),
		attribute.Int("bedrock.generation_tokens", chunk.GenerationTokens),
		attribute.String("bedrock.stop_reason", chunk.StopReason),
	)
	return chunk, nil
}

// InvokeStreamed sends a completion request with InvokeModelWithResponseStream.
// Each chunk of the returned stream carries the text generated since the
// previous one. The caller must drain or Close the stream.
func (c *Client) InvokeStreamed(ctx context.Context, modelID string, req *bedrockllm.CompletionRequest) (*bedrockllm.Stream[bedrockllm.InvokeChunk], error) {
	body, err := c.prepareInvoke(modelID, req, true)
	if err != nil {
		return nil, err
	}

	ctx, inv := c.begin(ctx, OpInvokeModelStream, modelID)
	reader, err := c.runtime.InvokeModelStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String(contentTypeJSON),
		Accept:      aws.String(contentTypeJSON),
	})
	if err != nil {
		err = inv.fail(err)
		inv.end()
		return nil, err
	}
	return newInvokeStream(ctx, inv, reader), nil
}

func (c *Client) prepareInvoke(modelID string, req *bedrockllm.CompletionRequest, streaming bool) ([]byte, error) {
	if req == nil {
		return nil, requestError("request", "completion request is required", nil)
	}
	if err := checkModelID(modelID); err != nil {
		return nil, err
	}

	body, err := req.Serialize()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize completion request: %w", err)
	}

	c.warn(bedrockllm.Call{
		ModelID:   modelID,
		Operation: bedrockllm.OperationInvoke,
		Streaming: streaming,
		MaxTokens: req.MaxGenLen(),
	})
	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("invoke request body", "model_id", modelID, "body", string(body))
	}
	return body, nil
}

func newInvokeStream(ctx context.Context, inv *invocation, reader InvokeEventReader) *bedrockllm.Stream[bedrockllm.InvokeChunk] {
	events := reader.Events()
	chunks := 0

	next := func() (bedrockllm.InvokeChunk, bool, error) {
		for {
			ev, ok := <-events
			if !ok {
				return bedrockllm.InvokeChunk{}, false, streamEnd(ctx, inv, reader.Err())
			}

			switch e := ev.(type) {
			case *brtypes.ResponseStreamMemberChunk:
				chunk, err := bedrockllm.DecodeInvokeChunk(e.Value.Bytes)
				if err != nil {
					return bedrockllm.InvokeChunk{}, false, inv.fail(malformedError(inv.op, inv.modelID, "undecodable stream chunk", err))
				}
				chunks++
				return chunk, true, nil
			default:
				inv.logger.Debug("skipping stream event", "event", fmt.Sprintf("%T", ev))
			}
		}
	}

	closeFn := func() error {
		err := reader.Close()
		inv.end(attribute.Int("bedrock.chunks", chunks))
		return err
	}
	return bedrockllm.NewStream(next, closeFn)
}

// streamEnd classifies the end of an event channel. Cancellation by the
// caller ends the stream without an error.
func streamEnd(ctx context.Context, inv *invocation, err error) error {
	if err == nil || ctx.Err() != nil {
		return nil
	}
	return inv.fail(err)
}
