package lorem

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrocksvc "github.com/aws/aws-sdk-go-v2/service/bedrock"
	bmtypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// ListFoundationModels lists the models of the runtime's catalog.
func (r *Runtime) ListFoundationModels(ctx context.Context, in *bedrocksvc.ListFoundationModelsInput, _ ...func(*bedrocksvc.Options)) (*bedrocksvc.ListFoundationModelsOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		in = &bedrocksvc.ListFoundationModelsInput{}
	}

	provider := aws.ToString(in.ByProvider)
	modality := string(in.ByOutputModality)

	out := &bedrocksvc.ListFoundationModelsOutput{}
	for _, m := range r.models.Models() {
		if provider != "" && !strings.EqualFold(m.Provider, provider) {
			continue
		}
		if modality != "" && !slices.Contains(m.OutputModalities, modality) {
			continue
		}
		out.ModelSummaries = append(out.ModelSummaries, summary(m))
	}
	return out, nil
}

// GetFoundationModel describes one model of the runtime's catalog.
func (r *Runtime) GetFoundationModel(ctx context.Context, in *bedrocksvc.GetFoundationModelInput, _ ...func(*bedrocksvc.Options)) (*bedrocksvc.GetFoundationModelOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	id := aws.ToString(in.ModelIdentifier)
	m, ok := r.models.Lookup(id)
	if !ok {
		return nil, &bmtypes.ResourceNotFoundException{
			Message: aws.String(fmt.Sprintf("Could not resolve the foundation model from the provided model identifier: %s", id)),
		}
	}

	s := summary(m)
	return &bedrocksvc.GetFoundationModelOutput{ModelDetails: &bmtypes.FoundationModelDetails{
		ModelId:                    s.ModelId,
		ModelArn:                   s.ModelArn,
		ModelName:                  s.ModelName,
		ProviderName:               s.ProviderName,
		InputModalities:            s.InputModalities,
		OutputModalities:           s.OutputModalities,
		ResponseStreamingSupported: s.ResponseStreamingSupported,
		ModelLifecycle:             s.ModelLifecycle,
	}}, nil
}

func summary(m bedrockllm.ModelInfo) bmtypes.FoundationModelSummary {
	arn := m.ARN
	if arn == "" {
		arn = "arn:aws:bedrock:us-east-1::foundation-model/" + m.ID
	}
	status := bmtypes.FoundationModelLifecycleStatusActive
	if m.LifecycleStatus != "" {
		status = bmtypes.FoundationModelLifecycleStatus(m.LifecycleStatus)
	}
	return bmtypes.FoundationModelSummary{
		ModelId:                    aws.String(m.ID),
		ModelArn:                   aws.String(arn),
		ModelName:                  aws.String(m.Name),
		ProviderName:               aws.String(m.Provider),
		InputModalities:            toModalities(m.InputModalities),
		OutputModalities:           toModalities(m.OutputModalities),
		ResponseStreamingSupported: aws.Bool(m.StreamingSupported),
		ModelLifecycle:             &bmtypes.FoundationModelLifecycle{Status: status},
	}
}

func toModalities(in []string) []bmtypes.ModelModality {
	out := make([]bmtypes.ModelModality, 0, len(in))
	for _, m := range in {
		out = append(out, bmtypes.ModelModality(m))
	}
	return out
}

func validationException(msg string) error {
	return &brtypes.ValidationException{Message: aws.String(msg)}
}

func streamFailure() error {
	return &brtypes.ModelStreamErrorException{Message: aws.String("lorem: simulated stream failure")}
}
