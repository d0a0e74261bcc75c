// Package derive holds the computations triggered by individual field edits:
// registration numbers, age and date of birth, BMI and contact validation.
package derive

// Result is the outcome of an advisory validation. Callers decide whether an
// invalid result only annotates a field or blocks the step.
type Result[T any] struct {
	Valid bool   `json:"valid"`
	Value T      `json:"value"`
	Error string `json:"error,omitempty"`
}

func valid[T any](v T) Result[T] {
	return Result[T]{Valid: true, Value: v}
}

func invalid[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}
