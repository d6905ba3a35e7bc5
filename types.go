package bedrockllm

import (
	"fmt"
	"strings"
)

// Role identifies the author of a conversation message.
type Role string

// Roles accepted by the Converse API.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the roles the Converse API accepts.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// String returns the wire value of the role.
func (r Role) String() string {
	return string(r)
}

// Block type constants
const (
	BlockTypeText = "text"
)

// ContentBlock is one unit of message content.
//
// The set of implementations is closed to this package: every variant
// serializes itself as a single-key object keyed by its block type, which is
// the shape the Converse API expects ({"text": "..."}, {"image": {...}}, ...).
// Only TextBlock exists today.
type ContentBlock interface {
	// BlockType returns the wire key of the block (e.g. "text").
	BlockType() string

	wireValue() any
	validate(path string) error
	isContentBlock()
}

// TextBlock is a plain-text content block.
type TextBlock struct {
	Text string `json:"text"`
}

// Text returns a TextBlock holding s.
func Text(s string) TextBlock {
	return TextBlock{Text: s}
}

// BlockType returns "text".
func (TextBlock) BlockType() string { return BlockTypeText }

func (b TextBlock) wireValue() any { return b.Text }

func (b TextBlock) validate(path string) error {
	if strings.TrimSpace(b.Text) == "" {
		return &ValidationError{
			Field:  path + ".text",
			Value:  b.Text,
			Reason: "text block must not be empty",
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}

func (TextBlock) isContentBlock() {}

// Message is one turn of a conversation.
// Messages are immutable; build them with NewMessage, UserText or AssistantText.
type Message struct {
	role    Role
	content []ContentBlock
}

// NewMessage builds a message and validates its role and content.
// A role other than "user" or "assistant" fails with *InvalidRoleError.
func NewMessage(role Role, blocks ...ContentBlock) (Message, error) {
	msg := Message{
		role:    role,
		content: append([]ContentBlock(nil), blocks...),
	}
	if err := msg.validate(0); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// UserText builds a single-block user message.
func UserText(text string) (Message, error) {
	return NewMessage(RoleUser, Text(text))
}

// AssistantText builds a single-block assistant message.
func AssistantText(text string) (Message, error) {
	return NewMessage(RoleAssistant, Text(text))
}

// Role returns the message author.
func (m Message) Role() Role {
	return m.role
}

// Content returns a copy of the message's content blocks.
func (m Message) Content() []ContentBlock {
	return append([]ContentBlock(nil), m.content...)
}

// Text concatenates all text blocks of the message.
func (m Message) Text() string {
	var sb strings.Builder
	for _, block := range m.content {
		if tb, ok := block.(TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}

func (m Message) validate(index int) error {
	if !m.role.IsValid() {
		return &InvalidRoleError{Index: index, Role: string(m.role)}
	}
	if len(m.content) == 0 {
		return &ValidationError{
			Field:  fmt.Sprintf("messages[%d].content", index),
			Value:  0,
			Reason: "message must contain at least one content block",
			Err:    ErrInvalidRequest,
		}
	}
	for j, block := range m.content {
		if block == nil {
			return &ValidationError{
				Field:  fmt.Sprintf("messages[%d].content[%d]", index, j),
				Value:  nil,
				Reason: "content block must not be nil",
				Err:    ErrInvalidRequest,
			}
		}
		if err := block.validate(fmt.Sprintf("messages[%d].content[%d]", index, j)); err != nil {
			return err
		}
	}
	return nil
}
