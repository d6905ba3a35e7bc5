package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// buildMessageParams constructs Anthropic API parameters from a ConversationRequest.
// This function is shared between MessagesOnce and MessagesStreamed.
func buildMessageParams(modelID string, req *bedrockllm.ConversationRequest) anthropic.MessageNewParams {
	cfg := req.InferenceConfig()

	apiParams := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		Messages:  convertMessages(req.Messages()),
		MaxTokens: int64(cfg.MaxTokens()),
	}

	if t, ok := cfg.Temperature().Get(); ok {
		apiParams.Temperature = anthropic.Float(t)
	}
	if p, ok := cfg.TopP().Get(); ok {
		apiParams.TopP = anthropic.Float(p)
	}
	if k, ok := req.AdditionalModelFields().TopK().Get(); ok {
		apiParams.TopK = anthropic.Int(int64(k))
	}
	if stop := cfg.StopSequences(); len(stop) > 0 {
		apiParams.StopSequences = stop
	}

	for _, prompt := range req.SystemPrompts() {
		apiParams.System = append(apiParams.System, anthropic.TextBlockParam{
			Type: "text",
			Text: prompt.Text,
		})
	}

	return apiParams
}

// convertMessages maps conversation turns to Anthropic message params.
// Roles are already validated by NewConversationRequest.
func convertMessages(msgs []bedrockllm.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, msg := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content()))
		for _, block := range msg.Content() {
			if text, ok := block.(bedrockllm.TextBlock); ok {
				blocks = append(blocks, anthropic.NewTextBlock(text.Text))
			}
		}
		if msg.Role() == bedrockllm.RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}
