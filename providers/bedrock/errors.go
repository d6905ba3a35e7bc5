package bedrock

import (
	"errors"
	"fmt"
	"net/http"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// Bedrock error codes that indicate a transient failure.
var retryableCodes = map[string]bool{
	"ThrottlingException":           true,
	"ServiceUnavailableException":   true,
	"InternalServerException":       true,
	"ModelNotReadyException":        true,
	"ModelTimeoutException":         true,
	"ModelStreamErrorException":     true,
	"TooManyRequestsException":      true,
	"ServiceQuotaExceededException": true,
}

// remoteError converts an SDK error into a RemoteInvocationError, keeping the
// AWS error code, message and HTTP status when the SDK exposes them.
func remoteError(op, modelID string, err error) error {
	var remote *bedrockllm.RemoteInvocationError
	if errors.As(err, &remote) {
		return err
	}

	re := &bedrockllm.RemoteInvocationError{
		Provider:  ProviderName,
		Operation: op,
		ModelID:   modelID,
		Message:   err.Error(),
		Err:       err,
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		re.Code = apiErr.ErrorCode()
		if msg := apiErr.ErrorMessage(); msg != "" {
			re.Message = msg
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		re.StatusCode = respErr.HTTPStatusCode()
	}

	re.Retryable = retryableCodes[re.Code] ||
		re.StatusCode == http.StatusTooManyRequests ||
		re.StatusCode >= http.StatusInternalServerError ||
		(apiErr != nil && apiErr.ErrorFault() == smithy.FaultServer)

	return re
}

// malformedError reports a response the client could not read.
func malformedError(op, modelID, detail string, cause error) error {
	wrapped := bedrockllm.ErrMalformedResponse
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", bedrockllm.ErrMalformedResponse, cause)
	}
	return &bedrockllm.RemoteInvocationError{
		Provider:  ProviderName,
		Operation: op,
		ModelID:   modelID,
		Message:   detail,
		Err:       wrapped,
	}
}

func requestError(field, reason string, value any) error {
	return &bedrockllm.ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
		Err:    bedrockllm.ErrInvalidRequest,
	}
}
