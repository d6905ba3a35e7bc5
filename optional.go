package bedrockllm

// Optional holds a value that may be absent.
// Absent optionals are dropped from serialized payloads instead of being sent as null.
type Optional[T any] struct {
	value   T
	present bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, present: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.present
}

// IsPresent reports whether a value is set.
func (o Optional[T]) IsPresent() bool {
	return o.present
}

// OrElse returns the value if present, otherwise def.
func (o Optional[T]) OrElse(def T) T {
	if o.present {
		return o.value
	}
	return def
}
