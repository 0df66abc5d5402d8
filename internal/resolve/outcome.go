package resolve

type outcomeKind int

const (
	outcomeAbsent outcomeKind = iota
	outcomeValue
	outcomeError
)

// Outcome is the classified result of one unit of work for a single entity id.
//
// Workers signal failure in one of two ways: by returning a non-nil error
// ("hard" failure, logged with full diagnostics and reported), or by
// returning a SoftError outcome ("soft" failure, logged as a warning only).
// Both converge to the Errors map of the batch result.
type Outcome[T any] struct {
	kind  outcomeKind
	value T
	err   error
	hard  bool
}

// Value wraps a successfully computed value.
func Value[T any](value T) Outcome[T] {
	return Outcome[T]{kind: outcomeValue, value: value}
}

// SoftError wraps a failure the worker chose to return instead of raising.
// No stack-level diagnostics are emitted for soft failures.
func SoftError[T any](err error) Outcome[T] {
	return Outcome[T]{kind: outcomeError, err: err}
}

// Absent means the worker produced nothing to record. The entity id ends up
// in neither the data nor the errors mapping.
func Absent[T any]() Outcome[T] {
	return Outcome[T]{kind: outcomeAbsent}
}

func hardError[T any](err error) Outcome[T] {
	return Outcome[T]{kind: outcomeError, err: err, hard: true}
}

// Data returns the value and whether this outcome holds one.
func (o Outcome[T]) Data() (T, bool) {
	return o.value, o.kind == outcomeValue
}

// Error returns the failure and whether this outcome holds one.
func (o Outcome[T]) Error() (error, bool) {
	return o.err, o.kind == outcomeError
}

func (o Outcome[T]) IsAbsent() bool {
	return o.kind == outcomeAbsent
}
