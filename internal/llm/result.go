package llm

// Kind is the closed set of outcomes of a structured AI call.
type Kind int

const (
	// KindOK means the payload decoded and validated.
	KindOK Kind = iota
	// KindParseError means the provider answered but the payload was unusable.
	KindParseError
	// KindProviderError means the call itself failed (timeout, status, open circuit).
	KindProviderError
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindParseError:
		return "parse_error"
	case KindProviderError:
		return "provider_error"
	default:
		return "unknown"
	}
}

// Result is a tagged outcome: Value is meaningful only when Kind is KindOK,
// Err only otherwise.
type Result[T any] struct {
	Kind  Kind
	Value T
	Err   error
}

// OK wraps a decoded value.
func OK[T any](v T) Result[T] {
	return Result[T]{Kind: KindOK, Value: v}
}

// ParseFailure wraps a decode or validation error.
func ParseFailure[T any](err error) Result[T] {
	return Result[T]{Kind: KindParseError, Err: err}
}

// ProviderFailure wraps a transport or provider error.
func ProviderFailure[T any](err error) Result[T] {
	return Result[T]{Kind: KindProviderError, Err: err}
}

// Ok reports whether the result carries a value.
func (r Result[T]) Ok() bool {
	return r.Kind == KindOK
}
