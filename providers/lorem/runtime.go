package lorem

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	loremgen "github.com/bozaro/golorem"

	bedrockllm "github.com/lucasalvarezlacasa/amazon-bedrock"
	"github.com/lucasalvarezlacasa/amazon-bedrock/providers/bedrock"
)

// Defaults for generated responses.
const (
	DefaultWordDelay = 30 * time.Millisecond
	DefaultMaxWords  = 60
)

// Runtime is an offline stand-in for Amazon Bedrock that answers every call
// with lorem ipsum text. It implements bedrock.RuntimeAPI and
// bedrock.CatalogAPI, so a bedrock.Client built on it behaves like the real
// service without credentials or network access.
type Runtime struct {
	mu        sync.Mutex // guards generator
	generator *loremgen.Lorem

	wordDelay time.Duration
	maxWords  int
	failAfter int
	models    *bedrockllm.ModelCatalog
	logger    *slog.Logger
}

var (
	_ bedrock.RuntimeAPI = (*Runtime)(nil)
	_ bedrock.CatalogAPI = (*Runtime)(nil)
)

// Option customizes a Runtime.
type Option func(*Runtime)

// WithWordDelay sets the pause between streamed words.
// Examples: 500ms for a slow model, 0 for tests.
func WithWordDelay(d time.Duration) Option {
	return func(r *Runtime) { r.wordDelay = d }
}

// WithMaxWords caps the length of a generated answer. The request's own token
// limit still applies when it is lower.
func WithMaxWords(n int) Option {
	return func(r *Runtime) {
		if n > 0 {
			r.maxWords = n
		}
	}
}

// WithFailAfter makes streams fail with a ModelStreamErrorException after n
// text fragments. Zero disables the failure.
func WithFailAfter(n int) Option {
	return func(r *Runtime) { r.failAfter = n }
}

// WithModelCatalog sets the models reported by the catalog operations.
func WithModelCatalog(models *bedrockllm.ModelCatalog) Option {
	return func(r *Runtime) {
		if models != nil {
			r.models = models
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runtime) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRuntime creates an offline runtime.
func NewRuntime(opts ...Option) *Runtime {
	r := &Runtime{
		generator: loremgen.New(),
		wordDelay: DefaultWordDelay,
		maxWords:  DefaultMaxWords,
		models:    bedrockllm.DefaultCatalog(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// words returns exactly n lorem ipsum words.
func (r *Runtime) words(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, n)
	for len(out) < n {
		// Sentences of 5-15 words read more naturally than single words
		out = append(out, strings.Fields(r.generator.Sentence(5, 15))...)
	}
	return out[:n]
}

// answerLength picks how many words to generate for a token limit, and
// whether the limit cut the answer short.
func (r *Runtime) answerLength(limit int) (int, bool) {
	if limit > 0 && limit < r.maxWords {
		return limit, true
	}
	return r.maxWords, false
}

func countWords(texts ...string) int {
	n := 0
	for _, t := range texts {
		n += len(strings.Fields(t))
	}
	return n
}

// eventReader feeds pre-built events to a consumer, honouring a per-event
// delay, cancellation and an optional simulated failure.
type eventReader[T any] struct {
	ch        chan T
	done      chan struct{}
	closeOnce sync.Once

	mu  sync.Mutex
	err error
}

func newEventReader[T any]() *eventReader[T] {
	return &eventReader[T]{
		ch:   make(chan T),
		done: make(chan struct{}),
	}
}

func (e *eventReader[T]) Events() <-chan T { return e.ch }

func (e *eventReader[T]) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	return nil
}

func (e *eventReader[T]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *eventReader[T]) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}

// run sends events in order. failAt is the index at which the stream breaks
// with failErr; a negative value never fails.
func (e *eventReader[T]) run(ctx context.Context, events []T, delay time.Duration, failAt int, failErr error) {
	defer close(e.ch)

	for i, ev := range events {
		if i == failAt {
			e.setErr(failErr)
			return
		}
		if i > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				e.setErr(ctx.Err())
				return
			case <-e.done:
				return
			}
		}
		select {
		case e.ch <- ev:
		case <-ctx.Done():
			e.setErr(ctx.Err())
			return
		case <-e.done:
			return
		}
	}
}
