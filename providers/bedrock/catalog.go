package bedrock

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrocksvc "github.com/aws/aws-sdk-go-v2/service/bedrock"
	bmtypes "github.com/aws/aws-sdk-go-v2/service/bedrock/types"
	"go.opentelemetry.io/otel/attribute"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// ModelFilter narrows a model listing. Empty fields match everything.
type ModelFilter struct {
	Provider       string // Provider name, e.g. "Meta" (case-insensitive)
	OutputModality string // TEXT, IMAGE or EMBEDDING
}

// ListFoundationModels lists the foundation models available in the region.
// Fields the control plane does not report (invoke format, Converse support,
// output token limit) are filled from the local model catalog when known.
func (c *Client) ListFoundationModels(ctx context.Context, filter ModelFilter) ([]bedrockllm.ModelInfo, error) {
	if c.catalog == nil {
		return filterModels(c.models.Models(), filter), nil
	}

	ctx, inv := c.begin(ctx, OpListFoundationModels, "")
	defer inv.end()

	in := &bedrocksvc.ListFoundationModelsInput{}
	if filter.Provider != "" {
		in.ByProvider = aws.String(filter.Provider)
	}
	if filter.OutputModality != "" {
		in.ByOutputModality = bmtypes.ModelModality(strings.ToUpper(filter.OutputModality))
	}

	out, err := c.catalog.ListFoundationModels(ctx, in)
	if err != nil {
		return nil, inv.fail(err)
	}

	models := make([]bedrockllm.ModelInfo, 0, len(out.ModelSummaries))
	for _, s := range out.ModelSummaries {
		models = append(models, c.fromSummary(s))
	}
	inv.span.SetAttributes(attribute.Int("bedrock.model_count", len(models)))
	return models, nil
}

// GetFoundationModel describes one foundation model.
func (c *Client) GetFoundationModel(ctx context.Context, modelID string) (*bedrockllm.ModelInfo, error) {
	if err := checkModelID(modelID); err != nil {
		return nil, err
	}

	if c.catalog == nil {
		info, ok := c.models.Lookup(modelID)
		if !ok {
			return nil, &bedrockllm.RemoteInvocationError{
				Provider:   ProviderName,
				Operation:  OpGetFoundationModel,
				ModelID:    modelID,
				StatusCode: http.StatusNotFound,
				Code:       "ResourceNotFoundException",
				Message:    "model not found in local catalog",
			}
		}
		return &info, nil
	}

	ctx, inv := c.begin(ctx, OpGetFoundationModel, modelID)
	defer inv.end()

	out, err := c.catalog.GetFoundationModel(ctx, &bedrocksvc.GetFoundationModelInput{
		ModelIdentifier: aws.String(modelID),
	})
	if err != nil {
		return nil, inv.fail(err)
	}
	if out.ModelDetails == nil {
		return nil, inv.fail(malformedError(OpGetFoundationModel, modelID, "response has no model details", nil))
	}

	info := c.fromDetails(*out.ModelDetails)
	return &info, nil
}

func (c *Client) fromSummary(s bmtypes.FoundationModelSummary) bedrockllm.ModelInfo {
	id := aws.ToString(s.ModelId)
	info, _ := c.models.Lookup(id)
	info.ID = id
	info.Name = aws.ToString(s.ModelName)
	info.Provider = aws.ToString(s.ProviderName)
	info.ARN = aws.ToString(s.ModelArn)
	info.StreamingSupported = aws.ToBool(s.ResponseStreamingSupported)
	info.InputModalities = modalities(s.InputModalities)
	info.OutputModalities = modalities(s.OutputModalities)
	if s.ModelLifecycle != nil {
		info.LifecycleStatus = string(s.ModelLifecycle.Status)
	}
	return info
}

func (c *Client) fromDetails(d bmtypes.FoundationModelDetails) bedrockllm.ModelInfo {
	id := aws.ToString(d.ModelId)
	info, _ := c.models.Lookup(id)
	info.ID = id
	info.Name = aws.ToString(d.ModelName)
	info.Provider = aws.ToString(d.ProviderName)
	info.ARN = aws.ToString(d.ModelArn)
	info.StreamingSupported = aws.ToBool(d.ResponseStreamingSupported)
	info.InputModalities = modalities(d.InputModalities)
	info.OutputModalities = modalities(d.OutputModalities)
	if d.ModelLifecycle != nil {
		info.LifecycleStatus = string(d.ModelLifecycle.Status)
	}
	return info
}

func modalities(in []bmtypes.ModelModality) []string {
	out := make([]string, 0, len(in))
	for _, m := range in {
		out = append(out, string(m))
	}
	return out
}

func filterModels(models []bedrockllm.ModelInfo, filter ModelFilter) []bedrockllm.ModelInfo {
	out := make([]bedrockllm.ModelInfo, 0, len(models))
	for _, m := range models {
		if filter.Provider != "" && !strings.EqualFold(m.Provider, filter.Provider) {
			continue
		}
		if filter.OutputModality != "" && !slices.Contains(m.OutputModalities, strings.ToUpper(filter.OutputModality)) {
			continue
		}
		out = append(out, m)
	}
	return out
}
