package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewProvider(
		WithAPIKey("test-key"),
		WithRequestOptions(option.WithBaseURL(srv.URL), option.WithMaxRetries(0)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return p
}

func TestNewProvider_RequiresCredentials(t *testing.T) {
	_, err := NewProvider()
	if !bedrockllm.IsInvalidRequest(err) {
		t.Errorf("NewProvider() error = %v, want invalid request", err)
	}
}

func TestSupportsModel(t *testing.T) {
	p, err := NewProvider(WithAPIKey("k"))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	tests := []struct {
		model string
		want  bool
	}{
		{"anthropic.claude-3-haiku-20240307-v1:0", true},
		{"us.anthropic.claude-3-5-sonnet-20240620-v1:0", true},
		{"claude-3-5-haiku-latest", true},
		{"meta.llama3-8b-instruct-v1:0", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := p.SupportsModel(tt.model); got != tt.want {
			t.Errorf("SupportsModel(%q) = %v, want %v", tt.model, got, tt.want)
		}
	}
}

func TestMessagesOnce(t *testing.T) {
	var body map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku",`+
			`"content":[{"type":"text","text":"Flights, "},{"type":"text","text":"hotels."}],`+
			`"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":12,"output_tokens":3}}`)
	})

	text, err := p.MessagesOnce(context.Background(), haikuModel, travelRequest(t))
	if err != nil {
		t.Fatalf("MessagesOnce() error = %v", err)
	}
	if text != "Flights, hotels." {
		t.Errorf("MessagesOnce() = %q", text)
	}

	if body["model"] != haikuModel || body["max_tokens"] != float64(512) || body["top_k"] != float64(200) {
		t.Errorf("unexpected request body: %v", body)
	}
	system, _ := body["system"].([]any)
	if len(system) != 1 {
		t.Fatalf("system = %v", body["system"])
	}
	if block, _ := system[0].(map[string]any); block["text"] != "You are a travel assistant." {
		t.Errorf("system block = %v", system[0])
	}
	if msgs, _ := body["messages"].([]any); len(msgs) != 3 {
		t.Errorf("messages = %v", body["messages"])
	}
}

func TestMessagesOnce_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      string
		wantRetryable bool
		wantSentinel  error
	}{
		{
			name:          "rate limited",
			status:        http.StatusTooManyRequests,
			body:          `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantCode:      "rate_limit_error",
			wantRetryable: true,
			wantSentinel:  bedrockllm.ErrRateLimited,
		},
		{
			name:         "bad key",
			status:       http.StatusUnauthorized,
			body:         `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantCode:     "authentication_error",
			wantSentinel: bedrockllm.ErrAuth,
		},
		{
			name:          "overloaded",
			status:        529,
			body:          `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantCode:      "overloaded_error",
			wantRetryable: true,
			wantSentinel:  bedrockllm.ErrRemoteInvocation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})

			_, err := p.MessagesOnce(context.Background(), haikuModel, travelRequest(t))

			var remote *bedrockllm.RemoteInvocationError
			if !errors.As(err, &remote) {
				t.Fatalf("error = %v, want *RemoteInvocationError", err)
			}
			if remote.StatusCode != tt.status || remote.Code != tt.wantCode || remote.Retryable != tt.wantRetryable {
				t.Errorf("unexpected error: %+v", remote)
			}
			if remote.Provider != ProviderName || remote.Operation != OpMessages {
				t.Errorf("error origin = %s/%s", remote.Provider, remote.Operation)
			}
			if !errors.Is(err, tt.wantSentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.wantSentinel)
			}
		})
	}
}

func TestMessagesOnce_RejectsBeforeCalling(t *testing.T) {
	called := false
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	tests := []struct {
		name  string
		model string
		req   *bedrockllm.ConversationRequest
	}{
		{"nil request", haikuModel, nil},
		{"llama model", "meta.llama3-8b-instruct-v1:0", travelRequest(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.MessagesOnce(context.Background(), tt.model, tt.req)
			if !bedrockllm.IsInvalidRequest(err) {
				t.Errorf("error = %v, want invalid request", err)
			}
		})
	}
	if called {
		t.Error("server should not be called for invalid input")
	}
}

func sse(events ...string) string {
	var sb strings.Builder
	for _, ev := range events {
		var head struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal([]byte(ev), &head)
		fmt.Fprintf(&sb, "event: %s\ndata: %s\n\n", head.Type, ev)
	}
	return sb.String()
}

func TestMessagesStreamed(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sse(
			`{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku","content":[],"stop_reason":null,"stop_sequence":null,"usage":{"input_tokens":12,"output_tokens":1}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Flights"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" and hotels."}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":4}}`,
			`{"type":"message_stop"}`,
		))
	})

	stream, err := p.MessagesStreamed(context.Background(), haikuModel, travelRequest(t))
	if err != nil {
		t.Fatalf("MessagesStreamed() error = %v", err)
	}
	fragments, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := []string{"Flights", " and hotels."}
	if len(fragments) != len(want) {
		t.Fatalf("fragments = %q, want %q", fragments, want)
	}
	for i := range want {
		if fragments[i] != want[i] {
			t.Errorf("fragment %d = %q, want %q", i, fragments[i], want[i])
		}
	}
}

func TestMessagesStreamed_RemoteFailure(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"type":"error","error":{"type":"permission_error","message":"denied"}}`)
	})

	stream, err := p.MessagesStreamed(context.Background(), haikuModel, travelRequest(t))
	if err != nil {
		t.Fatalf("MessagesStreamed() error = %v", err)
	}
	fragments, err := stream.Collect()
	if len(fragments) != 0 {
		t.Errorf("fragments = %q, want none", fragments)
	}
	if !bedrockllm.IsAuthError(err) {
		t.Errorf("error = %v, want auth error", err)
	}
}
