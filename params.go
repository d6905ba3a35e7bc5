package bedrockllm

import (
	"fmt"
	"math"
	"strings"
)

// Defaults applied when a field is not supplied.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 0.9
	DefaultMaxGenLen   = 512
	DefaultMaxTokens   = 512
)

// validateUnitInterval checks that a sampling parameter lies in [0, 1].
func validateUnitInterval(field string, v float64) error {
	if math.IsNaN(v) || v < 0.0 || v > 1.0 {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("%s must be between 0.0 and 1.0", field),
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}

// validateTokenLimit checks that a token limit is at least 1 and fits the
// int32 the Bedrock APIs carry.
func validateTokenLimit(field string, v int) error {
	if v < 1 {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("%s must be positive", field),
			Err:    ErrInvalidRequest,
		}
	}
	if v > math.MaxInt32 {
		return &ValidationError{
			Field:  field,
			Value:  v,
			Reason: fmt.Sprintf("%s must not exceed %d", field, math.MaxInt32),
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}

func validateOptionalUnitInterval(field string, o Optional[float64]) error {
	if v, ok := o.Get(); ok {
		return validateUnitInterval(field, v)
	}
	return nil
}

func validateStopSequences(field string, seqs []string) error {
	for i, s := range seqs {
		if s == "" {
			return &ValidationError{
				Field:  fmt.Sprintf("%s[%d]", field, i),
				Value:  s,
				Reason: "stop sequence must not be empty",
				Err:    ErrInvalidRequest,
			}
		}
	}
	return nil
}

func validatePrompt(field, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return &ValidationError{
			Field:  field,
			Value:  prompt,
			Reason: "prompt is required",
			Err:    ErrInvalidRequest,
		}
	}
	return nil
}
