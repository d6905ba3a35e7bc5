package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// Anthropic error types that indicate a transient failure.
var retryableTypes = map[string]bool{
	"rate_limit_error": true,
	"overloaded_error": true,
	"api_error":        true,
}

// errorBody is the JSON body Anthropic returns with a failed request.
type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
	// Bedrock answers with a bare message instead.
	Message string `json:"message"`
}

// remoteError converts an SDK error into a RemoteInvocationError.
func remoteError(op, modelID string, err error) error {
	re := &bedrockllm.RemoteInvocationError{
		Provider:  ProviderName,
		Operation: op,
		ModelID:   modelID,
		Message:   err.Error(),
		Err:       err,
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		re.StatusCode = apiErr.StatusCode
		var body errorBody
		if json.Unmarshal([]byte(apiErr.RawJSON()), &body) == nil {
			switch {
			case body.Error.Type != "":
				re.Code = body.Error.Type
				re.Message = body.Error.Message
			case body.Message != "":
				re.Message = body.Message
			}
		}
	}

	re.Retryable = retryableTypes[re.Code] ||
		re.StatusCode == http.StatusTooManyRequests ||
		re.StatusCode >= http.StatusInternalServerError ||
		(apiErr == nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded))

	return re
}

func malformedError(op, modelID, detail string) error {
	return &bedrockllm.RemoteInvocationError{
		Provider:  ProviderName,
		Operation: op,
		ModelID:   modelID,
		Message:   detail,
		Err:       bedrockllm.ErrMalformedResponse,
	}
}
