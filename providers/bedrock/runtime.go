package bedrock

import (
	"context"

	bedrocksvc "github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// InvokeEventReader is the event side of an InvokeModelWithResponseStream call.
// *bedrockruntime.InvokeModelWithResponseStreamEventStream satisfies it.
type InvokeEventReader interface {
	Events() <-chan brtypes.ResponseStream
	Close() error
	Err() error
}

// ConverseEventReader is the event side of a ConverseStream call.
// *bedrockruntime.ConverseStreamEventStream satisfies it.
type ConverseEventReader interface {
	Events() <-chan brtypes.ConverseStreamOutput
	Close() error
	Err() error
}

// RuntimeAPI is the subset of the Bedrock runtime the client uses.
// NewSDKRuntime adapts the AWS SDK client; the lorem package provides an
// offline implementation.
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error)
	InvokeModelStream(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (InvokeEventReader, error)
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (ConverseEventReader, error)
}

// CatalogAPI is the subset of the Bedrock control plane the client uses.
// *bedrock.Client from the AWS SDK satisfies it directly.
type CatalogAPI interface {
	ListFoundationModels(ctx context.Context, in *bedrocksvc.ListFoundationModelsInput, optFns ...func(*bedrocksvc.Options)) (*bedrocksvc.ListFoundationModelsOutput, error)
	GetFoundationModel(ctx context.Context, in *bedrocksvc.GetFoundationModelInput, optFns ...func(*bedrocksvc.Options)) (*bedrocksvc.GetFoundationModelOutput, error)
}

type sdkRuntime struct {
	client *bedrockruntime.Client
}

// NewSDKRuntime wraps an AWS SDK runtime client as a RuntimeAPI.
func NewSDKRuntime(client *bedrockruntime.Client) RuntimeAPI {
	return &sdkRuntime{client: client}
}

func (r *sdkRuntime) InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
	return r.client.InvokeModel(ctx, in)
}

func (r *sdkRuntime) InvokeModelStream(ctx context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (InvokeEventReader, error) {
	out, err := r.client.InvokeModelWithResponseStream(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.GetStream(), nil
}

func (r *sdkRuntime) Converse(ctx context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	return r.client.Converse(ctx, in)
}

func (r *sdkRuntime) ConverseStream(ctx context.Context, in *bedrockruntime.ConverseStreamInput) (ConverseEventReader, error) {
	out, err := r.client.ConverseStream(ctx, in)
	if err != nil {
		return nil, err
	}
	return out.GetStream(), nil
}
