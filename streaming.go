package bedrockllm

// Stream is a finite, single-pass, pull-based sequence of response fragments.
//
// The caller drives it:
//
//	stream, err := client.ConverseStreamed(ctx, modelID, req)
//	if err != nil { return err }
//	defer stream.Close()
//	for stream.Next() {
//	    fmt.Print(stream.Current())
//	}
//	if err := stream.Err(); err != nil { return err }
//
// Fragments are delivered in arrival order. A failure ends the stream; the
// fragments already returned by Current stay valid. Close may be called at any
// point to abandon the stream and is safe to call more than once.
type Stream[T any] struct {
	next    func() (T, bool, error)
	closeFn func() error

	cur    T
	err    error
	done   bool
	closed bool
}

// NewStream builds a Stream from a pull function and a release function.
//
// next returns (fragment, true, nil) for each fragment, (zero, false, nil) at
// the end of the sequence and (zero, false, err) on failure. closeFn may be nil.
func NewStream[T any](next func() (T, bool, error), closeFn func() error) *Stream[T] {
	return &Stream[T]{next: next, closeFn: closeFn}
}

// Next advances to the next fragment. It returns false when the stream is
// exhausted, failed or closed; check Err to tell them apart.
func (s *Stream[T]) Next() bool {
	if s.done {
		return false
	}

	v, ok, err := s.next()
	if err != nil || !ok {
		var zero T
		s.cur = zero
		s.err = err
		_ = s.Close()
		return false
	}

	s.cur = v
	return true
}

// Current returns the fragment produced by the last successful Next.
func (s *Stream[T]) Current() T {
	return s.cur
}

// Err returns the error that ended the stream, or nil.
func (s *Stream[T]) Err() error {
	return s.err
}

// Close releases the underlying connection. Later calls to Next return false.
func (s *Stream[T]) Close() error {
	s.done = true
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// Collect drains the stream. On failure it returns the fragments received
// before the error together with the error.
func (s *Stream[T]) Collect() ([]T, error) {
	defer s.Close()

	var out []T
	for s.Next() {
		out = append(out, s.Current())
	}
	return out, s.Err()
}
