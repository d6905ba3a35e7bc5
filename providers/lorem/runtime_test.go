package lorem

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/smithy-go"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
)

const testModel = "meta.llama3-8b-instruct-v1:0"

func offlineClient(opts ...Option) *bedrock.Client {
	rt := NewRuntime(append([]Option{WithWordDelay(0)}, opts...)...)
	return bedrock.NewClientWithAPIs(rt, rt)
}

func conversationRequest(t *testing.T, maxTokens int) *bedrockllm.ConversationRequest {
	t.Helper()
	msg, err := bedrockllm.UserText("Create a list of 3 pop songs.")
	if err != nil {
		t.Fatalf("UserText() error = %v", err)
	}
	req, err := bedrockllm.NewConversationRequest(
		[]bedrockllm.TextBlock{bedrockllm.Text("Only return song names and the artist.")},
		[]bedrockllm.Message{msg},
		bedrockllm.NewInferenceConfig(bedrockllm.WithMaxTokens(maxTokens)),
		bedrockllm.NewAdditionalModelFields(bedrockllm.WithTopK(200)),
	)
	if err != nil {
		t.Fatalf("NewConversationRequest() error = %v", err)
	}
	return req
}

func completion(t *testing.T, maxGenLen int) *bedrockllm.CompletionRequest {
	t.Helper()
	req, err := bedrockllm.NewCompletionRequest("Tell me a story.", bedrockllm.WithMaxGenLen(maxGenLen))
	if err != nil {
		t.Fatalf("NewCompletionRequest() error = %v", err)
	}
	return req
}

func TestRuntime_WordsHonourLimit(t *testing.T) {
	rt := NewRuntime(WithMaxWords(20))

	tests := []struct {
		limit   int
		want    int
		wantCut bool
	}{
		{0, 20, false},
		{5, 5, true},
		{20, 20, false},
		{512, 20, false},
	}
	for _, tt := range tests {
		n, cut := rt.answerLength(tt.limit)
		if n != tt.want || cut != tt.wantCut {
			t.Errorf("answerLength(%d) = (%d, %v), want (%d, %v)", tt.limit, n, cut, tt.want, tt.wantCut)
		}
		if got := len(rt.words(n)); got != n {
			t.Errorf("words(%d) returned %d words", n, got)
		}
	}
}

func TestRuntime_ConverseOnce(t *testing.T) {
	client := offlineClient()

	text, err := client.ConverseOnce(context.Background(), testModel, conversationRequest(t, 7))
	if err != nil {
		t.Fatalf("ConverseOnce() error = %v", err)
	}
	if got := len(strings.Fields(text)); got != 7 {
		t.Errorf("got %d words, want 7: %q", got, text)
	}
}

func TestRuntime_ConverseStreamed(t *testing.T) {
	client := offlineClient(WithMaxWords(12))

	stream, err := client.ConverseStreamed(context.Background(), testModel, conversationRequest(t, 512))
	if err != nil {
		t.Fatalf("ConverseStreamed() error = %v", err)
	}
	fragments, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(fragments) != 12 {
		t.Fatalf("got %d fragments, want 12", len(fragments))
	}
	if strings.HasPrefix(fragments[0], " ") || !strings.HasPrefix(fragments[1], " ") {
		t.Errorf("fragments should join into plain text: %q", fragments[:2])
	}
	if got := len(strings.Fields(strings.Join(fragments, ""))); got != 12 {
		t.Errorf("joined text has %d words, want 12", got)
	}
}

func TestRuntime_FailAfter(t *testing.T) {
	client := offlineClient(WithFailAfter(3))

	stream, err := client.ConverseStreamed(context.Background(), testModel, conversationRequest(t, 512))
	if err != nil {
		t.Fatalf("ConverseStreamed() error = %v", err)
	}
	fragments, err := stream.Collect()

	if len(fragments) != 3 {
		t.Errorf("got %d fragments before failure, want 3", len(fragments))
	}
	var remote *bedrockllm.RemoteInvocationError
	if !errors.As(err, &remote) {
		t.Fatalf("error = %v, want *RemoteInvocationError", err)
	}
	if remote.Code != "ModelStreamErrorException" || !remote.Retryable {
		t.Errorf("unexpected error: %+v", remote)
	}
}

func TestRuntime_InvokeOnce(t *testing.T) {
	client := offlineClient()

	chunk, err := client.Invoke(context.Background(), testModel, completion(t, 4))
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if got := len(strings.Fields(chunk.Generation)); got != 4 {
		t.Errorf("got %d words, want 4", got)
	}
	if chunk.StopReason != "length" || chunk.GenerationTokens != 4 || chunk.PromptTokens != 4 {
		t.Errorf("Invoke() = %+v", chunk)
	}
}

func TestRuntime_InvokeStreamed(t *testing.T) {
	client := offlineClient(WithMaxWords(6))

	stream, err := client.InvokeStreamed(context.Background(), testModel, completion(t, 512))
	if err != nil {
		t.Fatalf("InvokeStreamed() error = %v", err)
	}
	chunks, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	if len(chunks) != 7 {
		t.Fatalf("got %d chunks, want 6 words plus a final chunk", len(chunks))
	}
	last := chunks[len(chunks)-1]
	if last.Generation != "" || last.StopReason != "stop" || last.GenerationTokens != 6 {
		t.Errorf("final chunk = %+v", last)
	}
}

func TestRuntime_InvokeStreamedFailAfter(t *testing.T) {
	client := offlineClient(WithFailAfter(2))

	stream, err := client.InvokeStreamed(context.Background(), testModel, completion(t, 512))
	if err != nil {
		t.Fatalf("InvokeStreamed() error = %v", err)
	}
	chunks, err := stream.Collect()
	if len(chunks) != 2 || err == nil {
		t.Errorf("got %d chunks and err %v, want 2 chunks and an error", len(chunks), err)
	}
}

func TestRuntime_RejectsInvalidInput(t *testing.T) {
	rt := NewRuntime(WithWordDelay(0))
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"invoke bad body", func() error {
			_, err := rt.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{ModelId: aws.String(testModel), Body: []byte(`{"prompt":""}`)})
			return err
		}},
		{"invoke no model", func() error {
			_, err := rt.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{Body: []byte(`{"prompt":"hi"}`)})
			return err
		}},
		{"converse no messages", func() error {
			_, err := rt.Converse(ctx, &bedrockruntime.ConverseInput{ModelId: aws.String(testModel)})
			return err
		}},
		{"converse system role", func() error {
			_, err := rt.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
				ModelId: aws.String(testModel),
				Messages: []brtypes.Message{{
					Role:    brtypes.ConversationRole("system"),
					Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: "hi"}},
				}},
			})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var apiErr smithy.APIError
			if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "ValidationException" {
				t.Errorf("error = %v, want ValidationException", err)
			}
		})
	}
}

func TestRuntime_CancelMidStream(t *testing.T) {
	rt := NewRuntime(WithWordDelay(20 * time.Millisecond))
	client := bedrock.NewClientWithAPIs(rt, rt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.ConverseStreamed(ctx, testModel, conversationRequest(t, 512))
	if err != nil {
		t.Fatalf("ConverseStreamed() error = %v", err)
	}
	if !stream.Next() {
		t.Fatalf("expected a first fragment, err = %v", stream.Err())
	}
	cancel()

	for stream.Next() {
	}
	if stream.Err() != nil {
		t.Errorf("Err() = %v, want nil after cancellation", stream.Err())
	}
}

func TestRuntime_CloseEarly(t *testing.T) {
	rt := NewRuntime(WithWordDelay(5 * time.Millisecond))
	client := bedrock.NewClientWithAPIs(rt, rt)

	stream, err := client.ConverseStreamed(context.Background(), testModel, conversationRequest(t, 512))
	if err != nil {
		t.Fatalf("ConverseStreamed() error = %v", err)
	}
	if !stream.Next() {
		t.Fatal("expected a first fragment")
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if stream.Next() {
		t.Error("Next() after Close should be false")
	}
}

func TestRuntime_Catalog(t *testing.T) {
	client := offlineClient()
	ctx := context.Background()

	models, err := client.ListFoundationModels(ctx, bedrock.ModelFilter{Provider: "Meta"})
	if err != nil {
		t.Fatalf("ListFoundationModels() error = %v", err)
	}
	if len(models) == 0 {
		t.Fatal("expected Meta models")
	}
	for _, m := range models {
		if m.Provider != "Meta" || m.LifecycleStatus != "ACTIVE" {
			t.Errorf("unexpected model %+v", m)
		}
	}

	info, err := client.GetFoundationModel(ctx, testModel)
	if err != nil {
		t.Fatalf("GetFoundationModel() error = %v", err)
	}
	if !info.StreamingSupported || info.InvokeFormat != bedrockllm.InvokeFormatLlama {
		t.Errorf("GetFoundationModel() = %+v", info)
	}

	_, err = client.GetFoundationModel(ctx, "vendor.unknown")
	var remote *bedrockllm.RemoteInvocationError
	if !errors.As(err, &remote) || remote.Code != "ResourceNotFoundException" {
		t.Errorf("unknown model error = %v", err)
	}
}
