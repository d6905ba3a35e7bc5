package bedrockllm

import (
	"errors"
	"math"
	"testing"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name     string
		role     Role
		blocks   []ContentBlock
		wantErr  bool
		wantRole bool
	}{
		{"user text", RoleUser, []ContentBlock{Text("hello")}, false, false},
		{"assistant text", RoleAssistant, []ContentBlock{Text("hi there")}, false, false},
		{"multiple blocks", RoleUser, []ContentBlock{Text("a"), Text("b")}, false, false},
		{"system role", Role("system"), []ContentBlock{Text("hello")}, true, true},
		{"empty role", Role(""), []ContentBlock{Text("hello")}, true, true},
		{"no content", RoleUser, nil, true, false},
		{"blank text", RoleUser, []ContentBlock{Text("   ")}, true, false},
		{"nil block", RoleUser, []ContentBlock{nil}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.role, tt.blocks...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var roleErr *InvalidRoleError
				if got := errors.As(err, &roleErr); got != tt.wantRole {
					t.Errorf("InvalidRoleError = %v, want %v (err: %v)", got, tt.wantRole, err)
				}
				if !IsInvalidRequest(err) {
					t.Errorf("IsInvalidRequest(%v) = false", err)
				}
				return
			}
			if msg.Role() != tt.role {
				t.Errorf("Role() = %q, want %q", msg.Role(), tt.role)
			}
			if len(msg.Content()) != len(tt.blocks) {
				t.Errorf("Content() has %d blocks, want %d", len(msg.Content()), len(tt.blocks))
			}
		})
	}
}

func TestMessage_ContentIsCopied(t *testing.T) {
	blocks := []ContentBlock{Text("original")}
	msg, err := NewMessage(RoleUser, blocks...)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	blocks[0] = Text("mutated")
	got := msg.Content()
	got[0] = Text("mutated again")

	if msg.Text() != "original" {
		t.Errorf("Text() = %q, want %q", msg.Text(), "original")
	}
}

func TestMessage_Text(t *testing.T) {
	msg, err := NewMessage(RoleAssistant, Text("Hello, "), Text("world"))
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if msg.Text() != "Hello, world" {
		t.Errorf("Text() = %q", msg.Text())
	}
}

func TestNewConversationRequest_Validation(t *testing.T) {
	user, err := UserText("hi")
	if err != nil {
		t.Fatalf("UserText() error = %v", err)
	}
	systemMsg := Message{role: "system", content: []ContentBlock{Text("hi")}}

	tests := []struct {
		name      string
		system    []TextBlock
		messages  []Message
		cfg       InferenceConfig
		extra     AdditionalModelFields
		wantErr   bool
		wantField string
		wantRole  bool
	}{
		{
			name:     "valid",
			messages: []Message{user},
			cfg:      NewInferenceConfig(),
		},
		{
			name:      "empty messages",
			messages:  nil,
			cfg:       NewInferenceConfig(),
			wantErr:   true,
			wantField: "messages",
		},
		{
			name:      "blank system prompt",
			system:    []TextBlock{Text("")},
			messages:  []Message{user},
			cfg:       NewInferenceConfig(),
			wantErr:   true,
			wantField: "system_prompts[0].text",
		},
		{
			name:      "max tokens zero",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithMaxTokens(0)),
			wantErr:   true,
			wantField: "max_tokens",
		},
		{
			name:      "max tokens above int32",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithMaxTokens(1<<32 + 5)),
			wantErr:   true,
			wantField: "max_tokens",
		},
		{
			name:      "max tokens at int32 boundary",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithMaxTokens(1 << 31)),
			wantErr:   true,
			wantField: "max_tokens",
		},
		{
			name:     "max tokens int32 max",
			messages: []Message{user},
			cfg:      NewInferenceConfig(WithMaxTokens(math.MaxInt32)),
		},
		{
			name:     "system role",
			messages: []Message{user, systemMsg},
			cfg:      NewInferenceConfig(),
			wantErr:  true,
			wantRole: true,
		},
		{
			name:      "temperature above one",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithInferenceTemperature(1.01)),
			wantErr:   true,
			wantField: "temperature",
		},
		{
			name:      "top_p negative",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithInferenceTopP(-0.1)),
			wantErr:   true,
			wantField: "top_p",
		},
		{
			name:      "temperature NaN",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithInferenceTemperature(math.NaN())),
			wantErr:   true,
			wantField: "temperature",
		},
		{
			name:      "empty stop sequence",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(WithStopSequences("")),
			wantErr:   true,
			wantField: "stop_sequences[0]",
		},
		{
			name:      "top_k zero",
			messages:  []Message{user},
			cfg:       NewInferenceConfig(),
			extra:     NewAdditionalModelFields(WithTopK(0)),
			wantErr:   true,
			wantField: "top_k",
		},
		{
			name:     "absent sampling fields",
			messages: []Message{user},
			cfg:      NewInferenceConfig(WithoutTemperature(), WithoutTopP()),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewConversationRequest(tt.system, tt.messages, tt.cfg, tt.extra)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewConversationRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if req == nil {
					t.Fatal("expected request")
				}
				return
			}

			if tt.wantRole {
				var roleErr *InvalidRoleError
				if !errors.As(err, &roleErr) {
					t.Fatalf("expected *InvalidRoleError, got %T: %v", err, err)
				}
				if roleErr.Index != 1 {
					t.Errorf("Index = %d, want 1", roleErr.Index)
				}
				return
			}

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %T: %v", err, err)
			}
			if valErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", valErr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Error("expected errors.Is(err, ErrInvalidRequest)")
			}
		})
	}
}

func TestNewConversationRequest_InvalidRoleIndex(t *testing.T) {
	user, _ := UserText("first")
	assistant, _ := AssistantText("second")
	bad := Message{role: "system", content: []ContentBlock{Text("third")}}

	_, err := NewConversationRequest(nil, []Message{user, assistant, bad}, NewInferenceConfig(), AdditionalModelFields{})

	var roleErr *InvalidRoleError
	if !errors.As(err, &roleErr) {
		t.Fatalf("expected *InvalidRoleError, got %T: %v", err, err)
	}
	if roleErr.Index != 2 || roleErr.Role != "system" {
		t.Errorf("InvalidRoleError = %+v, want index 2 role system", roleErr)
	}
	if !errors.Is(err, ErrInvalidRole) {
		t.Error("expected errors.Is(err, ErrInvalidRole)")
	}
}

func TestInferenceConfig_Defaults(t *testing.T) {
	cfg := NewInferenceConfig()

	if cfg.MaxTokens() != DefaultMaxTokens {
		t.Errorf("MaxTokens() = %d, want %d", cfg.MaxTokens(), DefaultMaxTokens)
	}
	if v := cfg.Temperature().OrElse(-1); v != DefaultTemperature {
		t.Errorf("Temperature() = %v, want %v", v, DefaultTemperature)
	}
	if v := cfg.TopP().OrElse(-1); v != DefaultTopP {
		t.Errorf("TopP() = %v, want %v", v, DefaultTopP)
	}
	if cfg.StopSequences() == nil || len(cfg.StopSequences()) != 0 {
		t.Errorf("StopSequences() = %#v, want empty non-nil slice", cfg.StopSequences())
	}

	var zero InferenceConfig
	if zero.Temperature().IsPresent() || zero.TopP().IsPresent() {
		t.Error("zero InferenceConfig should have absent sampling fields")
	}
	if zero.MaxTokens() != DefaultMaxTokens {
		t.Errorf("zero MaxTokens() = %d, want %d", zero.MaxTokens(), DefaultMaxTokens)
	}
}

func TestOptional(t *testing.T) {
	some := Some(3)
	if v, ok := some.Get(); !ok || v != 3 {
		t.Errorf("Some(3).Get() = (%d, %v)", v, ok)
	}
	if some.OrElse(9) != 3 {
		t.Error("Some(3).OrElse(9) should be 3")
	}

	none := None[int]()
	if none.IsPresent() {
		t.Error("None should not be present")
	}
	if none.OrElse(9) != 9 {
		t.Error("None.OrElse(9) should be 9")
	}

	// Some(0) is present: zero is a legitimate value.
	if !Some(0.0).IsPresent() {
		t.Error("Some(0.0) should be present")
	}
}
