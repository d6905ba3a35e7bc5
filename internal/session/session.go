// Package session exchanges long-lived AWS keys for a temporary session and
// builds the aws.Config the Bedrock clients are created from.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// STS accepts session durations between 15 minutes and 36 hours.
const (
	MinDuration = 15 * time.Minute
	MaxDuration = 36 * time.Hour
)

// STSAPI is the part of the STS client used here.
type STSAPI interface {
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// Credentials is an access key pair with an optional session token.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiration      time.Time // zero for long-lived keys
}

// IsZero reports whether no keys are set.
func (c Credentials) IsZero() bool {
	return c.AccessKeyID == "" && c.SecretAccessKey == ""
}

// Exchange calls STS GetSessionToken. A zero duration lets STS pick its
// default (12 hours).
func Exchange(ctx context.Context, api STSAPI, duration time.Duration) (Credentials, error) {
	in := &sts.GetSessionTokenInput{}
	if duration != 0 {
		if duration < MinDuration || duration > MaxDuration {
			return Credentials{}, &bedrockllm.ValidationError{
				Field:  "session_duration",
				Value:  duration,
				Reason: fmt.Sprintf("must be between %s and %s", MinDuration, MaxDuration),
				Err:    bedrockllm.ErrInvalidRequest,
			}
		}
		in.DurationSeconds = aws.Int32(int32(duration / time.Second))
	}

	out, err := api.GetSessionToken(ctx, in)
	if err != nil {
		return Credentials{}, stsError(err)
	}
	if out.Credentials == nil {
		return Credentials{}, &bedrockllm.RemoteInvocationError{
			Provider:  "sts",
			Operation: "GetSessionToken",
			Message:   "response carries no credentials",
			Err:       bedrockllm.ErrMalformedResponse,
		}
	}

	return Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Expiration:      aws.ToTime(out.Credentials.Expiration),
	}, nil
}

func stsError(err error) error {
	re := &bedrockllm.RemoteInvocationError{
		Provider:  "sts",
		Operation: "GetSessionToken",
		Message:   err.Error(),
		Err:       err,
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		re.Code = apiErr.ErrorCode()
		re.Message = apiErr.ErrorMessage()
		re.Retryable = apiErr.ErrorFault() == smithy.FaultServer
	}
	return re
}

// LoadAWSConfig loads the SDK configuration for region. Non-zero creds
// replace the default credential chain with a static provider.
func LoadAWSConfig(ctx context.Context, region string, creds Credentials, optFns ...func(*config.LoadOptions) error) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	if !creds.IsZero() {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		))
	}
	opts = append(opts, optFns...)

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if cfg.Region == "" {
		return aws.Config{}, &bedrockllm.ValidationError{
			Field:  "region",
			Reason: "AWS region is required",
			Err:    bedrockllm.ErrInvalidRequest,
		}
	}
	return cfg, nil
}

// Start loads a config from the long-lived keys, exchanges them for a session
// token and returns a config signed with the temporary credentials.
func Start(ctx context.Context, region string, keys Credentials, duration time.Duration) (aws.Config, Credentials, error) {
	base, err := LoadAWSConfig(ctx, region, keys)
	if err != nil {
		return aws.Config{}, Credentials{}, err
	}
	temp, err := Exchange(ctx, sts.NewFromConfig(base), duration)
	if err != nil {
		return aws.Config{}, Credentials{}, err
	}
	cfg, err := LoadAWSConfig(ctx, region, temp)
	if err != nil {
		return aws.Config{}, Credentials{}, err
	}
	return cfg, temp, nil
}
