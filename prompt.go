package bedrockllm

import (
	"strings"
)

// Llama 3 instruct template markers.
const (
	llamaBeginOfText = "<|begin_of_text|>"
	llamaStartHeader = "<|start_header_id|>"
	llamaEndHeader   = "<|end_header_id|>"
	llamaEndOfTurn   = "<|eot_id|>"
)

// FormatLlama3Prompt renders a system instruction and message history in the
// Llama 3 instruct format, ending with an open assistant header so the model
// writes the next assistant turn. An empty system string omits the system turn.
func FormatLlama3Prompt(system string, messages []Message) string {
	var sb strings.Builder
	sb.WriteString(llamaBeginOfText)
	if strings.TrimSpace(system) != "" {
		writeLlamaTurn(&sb, "system", system)
	}
	for _, msg := range messages {
		writeLlamaTurn(&sb, msg.Role().String(), msg.Text())
	}
	writeLlamaHeader(&sb, RoleAssistant.String())
	return sb.String()
}

func writeLlamaTurn(sb *strings.Builder, role, text string) {
	writeLlamaHeader(sb, role)
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString(llamaEndOfTurn)
}

func writeLlamaHeader(sb *strings.Builder, role string) {
	sb.WriteString(llamaStartHeader)
	sb.WriteString(role)
	sb.WriteString(llamaEndHeader)
	sb.WriteString("\n\n")
}
