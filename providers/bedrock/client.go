// Package bedrock is the transport wrapper over Amazon Bedrock: InvokeModel
// and Converse, each once or streamed, plus foundation model listing.
//
// Requests are built and validated by the root bedrockllm package; this
// package only turns them into runtime calls and maps every remote failure to
// *bedrockllm.RemoteInvocationError.
package bedrock

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	bedrocksvc "github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
)

// ProviderName identifies this transport in errors, logs and spans.
const ProviderName = "bedrock"

// Operation names as reported by the Bedrock APIs.
const (
	OpInvokeModel          = "InvokeModel"
	OpInvokeModelStream    = "InvokeModelWithResponseStream"
	OpConverse             = "Converse"
	OpConverseStream       = "ConverseStream"
	OpListFoundationModels = "ListFoundationModels"
	OpGetFoundationModel   = "GetFoundationModel"
)

const tracerName = "github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"

// Client issues Bedrock calls from validated requests.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	runtime RuntimeAPI
	catalog CatalogAPI
	models  *bedrockllm.ModelCatalog
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithModelCatalog sets the catalog used for advisory warnings and to enrich
// listings. Defaults to bedrockllm.DefaultCatalog().
func WithModelCatalog(models *bedrockllm.ModelCatalog) Option {
	return func(c *Client) {
		if models != nil {
			c.models = models
		}
	}
}

// WithTracer sets the tracer. Defaults to the global OpenTelemetry provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// NewClient builds a client backed by the AWS SDK runtime and control-plane
// clients for cfg.
func NewClient(cfg aws.Config, opts ...Option) *Client {
	return NewClientWithAPIs(
		NewSDKRuntime(bedrockruntime.NewFromConfig(cfg)),
		bedrocksvc.NewFromConfig(cfg),
		opts...,
	)
}

// NewClientWithAPIs builds a client over arbitrary implementations. A nil
// catalog makes model listing fall back to the local model catalog.
func NewClientWithAPIs(runtime RuntimeAPI, catalog CatalogAPI, opts ...Option) *Client {
	c := &Client{
		runtime: runtime,
		catalog: catalog,
		models:  bedrockllm.DefaultCatalog(),
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// invocation tracks one remote call for logging and tracing.
type invocation struct {
	id      string
	op      string
	modelID string
	start   time.Time
	span    trace.Span
	logger  *slog.Logger
}

func (c *Client) begin(ctx context.Context, op, modelID string) (context.Context, *invocation) {
	id := uuid.NewString()
	ctx, span := c.tracer.Start(ctx, "bedrock."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("bedrock.operation", op),
			attribute.String("bedrock.model_id", modelID),
			attribute.String("bedrock.invocation_id", id),
		),
	)
	inv := &invocation{
		id:      id,
		op:      op,
		modelID: modelID,
		start:   time.Now(),
		span:    span,
		logger:  c.logger.With("invocation_id", id, "operation", op, "model_id", modelID),
	}
	inv.logger.Debug("bedrock call started")
	return ctx, inv
}

// fail maps err, records it on the span and logs it. The span stays open.
func (inv *invocation) fail(err error) error {
	mapped := remoteError(inv.op, inv.modelID, err)
	inv.span.RecordError(mapped)
	inv.span.SetStatus(codes.Error, mapped.Error())
	inv.logger.Error("bedrock call failed", "error", mapped, "retryable", bedrockllm.IsRetryable(mapped))
	return mapped
}

func (inv *invocation) end(attrs ...attribute.KeyValue) {
	inv.span.SetAttributes(attrs...)
	inv.span.End()
	inv.logger.Debug("bedrock call finished", "duration", time.Since(inv.start))
}

// warn logs the advisory catalog warnings for a call. Calls are never blocked.
func (c *Client) warn(call bedrockllm.Call) {
	warnings := bedrockllm.CheckCall(c.models, call)
	c.logWarnings(slog.LevelInfo, call.ModelID, bedrockllm.FilterWarningsBySeverity(warnings, bedrockllm.SeverityInfo))
	c.logWarnings(slog.LevelWarn, call.ModelID, bedrockllm.FilterWarningsBySeverity(warnings, bedrockllm.SeverityWarning, bedrockllm.SeverityError))
}

func (c *Client) logWarnings(level slog.Level, modelID string, warnings []bedrockllm.Warning) {
	for _, w := range warnings {
		c.logger.Log(context.Background(), level, w.Message,
			"code", w.Code,
			"field", w.Field,
			"severity", w.Severity,
			"model_id", modelID,
		)
	}
}

func checkModelID(modelID string) error {
	if modelID == "" {
		return requestError("model_id", "model id is required", modelID)
	}
	return nil
}
