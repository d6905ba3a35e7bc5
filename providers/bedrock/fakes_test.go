package bedrock

import (
	"context"
	"io"
	"log/slog"

	bedrocksvc "github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// fakeReader replays a fixed list of events, then reports err.
type fakeReader[T any] struct {
	ch     chan T
	err    error
	closes int
}

func newFakeReader[T any](events []T, err error) *fakeReader[T] {
	ch := make(chan T, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return &fakeReader[T]{ch: ch, err: err}
}

func (r *fakeReader[T]) Events() <-chan T { return r.ch }
func (r *fakeReader[T]) Err() error { return r.err }
func (r *fakeReader[T]) Close() error {
	r.closes++
	return nil
}

type fakeRuntime struct {
	err error

	invokeIn  *bedrockruntime.InvokeModelInput
	invokeOut *bedrockruntime.InvokeModelOutput

	invokeStreamIn *bedrockruntime.InvokeModelWithResponseStreamInput
	invokeReader   *fakeReader[brtypes.ResponseStream]

	converseIn  *bedrockruntime.ConverseInput
	converseOut *bedrockruntime.ConverseOutput

	converseStreamIn *bedrockruntime.ConverseStreamInput
	converseReader   *fakeReader[brtypes.ConverseStreamOutput]

	calls int
}

func (f *fakeRuntime) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls++
	f.invokeIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.invokeOut, nil
}

func (f *fakeRuntime) InvokeModelStream(_ context.Context, in *bedrockruntime.InvokeModelWithResponseStreamInput) (InvokeEventReader, error) {
	f.calls++
	f.invokeStreamIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.invokeReader, nil
}

func (f *fakeRuntime) Converse(_ context.Context, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	f.calls++
	f.converseIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.converseOut, nil
}

func (f *fakeRuntime) ConverseStream(_ context.Context, in *bedrockruntime.ConverseStreamInput) (ConverseEventReader, error) {
	f.calls++
	f.converseStreamIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.converseReader, nil
}

type fakeCatalog struct {
	err     error
	listIn  *bedrocksvc.ListFoundationModelsInput
	listOut *bedrocksvc.ListFoundationModelsOutput
	getOut  *bedrocksvc.GetFoundationModelOutput
}

func (f *fakeCatalog) ListFoundationModels(_ context.Context, in *bedrocksvc.ListFoundationModelsInput, _ ...func(*bedrocksvc.Options)) (*bedrocksvc.ListFoundationModelsOutput, error) {
	f.listIn = in
	if f.err != nil {
		return nil, f.err
	}
	return f.listOut, nil
}

func (f *fakeCatalog) GetFoundationModel(_ context.Context, _ *bedrocksvc.GetFoundationModelInput, _ ...func(*bedrocksvc.Options)) (*bedrocksvc.GetFoundationModelOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.getOut, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
