package lorem

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
)

// llamaBody is a Llama response body or stream chunk.
type llamaBody struct {
	Generation           string  `json:"generation"`
	PromptTokenCount     *int    `json:"prompt_token_count"`
	GenerationTokenCount *int    `json:"generation_token_count"`
	StopReason           *string `json:"stop_reason"`
}

func invokeStopReason(cut bool) string {
	if cut {
		return "length"
	}
	return "stop"
}

func decodeInvoke(modelID *string, body []byte) (*bedrockllm.CompletionRequest, error) {
	if aws.ToString(modelID) == "" {
		return nil, validationException("modelId is required")
	}
	req, err := bedrockllm.DecodeCompletionPayload(body)
	if err != nil {
		return nil, validationException(fmt.Sprintf("malformed input request: %v", err))
	}
	return req, nil
}

// InvokeModel answers a Llama completion body with lorem ipsum.
func (r *Runtime) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := decodeInvoke(in.ModelId, in.Body)
	if err != nil {
		return nil, err
	}

	n, cut := r.answerLength(req.MaxGenLen())
	promptTokens := countWords(req.Prompt())
	stop := invokeStopReason(cut)

	body, err := json.Marshal(llamaBody{
		Generation:           strings.Join(r.words(n), " "),
		PromptTokenCount:     &promptTokens,
		GenerationTokenCount: &n,
		StopReason:           &stop,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lorem response: %w", err)
	}

	r.logger.Debug("lorem invoke", "model_id", aws.ToString(in.ModelId), "words", n)
	return &bedrockruntime.InvokeModelOutput{
		Body:        body,
		ContentType: aws.String("application/json"),
	}, nil
}

// InvokeModelStream streams one chunk per word, then a final chunk carrying
// the stop reason and token counts.
func (r *Runtime) InvokeModelStream(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (bedrock.InvokeEventReader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := decodeInvoke(in.ModelId, in.Body)
	if err != nil {
		return nil, err
	}

	n, cut := r.answerLength(req.MaxGenLen())
	words := r.words(n)

	events := make([]brtypes.ResponseStream, 0, n+1)
	for i, w := range words {
		if i > 0 {
			w = " " + w
		}
		count := i + 1
		chunk, err := json.Marshal(llamaBody{Generation: w, GenerationTokenCount: &count})
		if err != nil {
			return nil, fmt.Errorf("failed to encode lorem chunk: %w", err)
		}
		events = append(events, &brtypes.ResponseStreamMemberChunk{Value: brtypes.PayloadPart{Bytes: chunk}})
	}

	promptTokens := countWords(req.Prompt())
	stop := invokeStopReason(cut)
	final, err := json.Marshal(llamaBody{PromptTokenCount: &promptTokens, GenerationTokenCount: &n, StopReason: &stop})
	if err != nil {
		return nil, fmt.Errorf("failed to encode lorem chunk: %w", err)
	}
	events = append(events, &brtypes.ResponseStreamMemberChunk{Value: brtypes.PayloadPart{Bytes: final}})

	failAt := -1
	if r.failAfter > 0 {
		failAt = r.failAfter
	}

	reader := newEventReader[brtypes.ResponseStream]()
	go reader.run(ctx, events, r.wordDelay, failAt, streamFailure())
	return reader, nil
}
