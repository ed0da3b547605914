package types

import "fmt"

// Outcome pairs a stage result with the diagnostics gathered while producing it.
// Stages return an Outcome instead of appending to a shared warnings slice.
type Outcome[T any] struct {
	Value    T
	Warnings []string
}

// Ok wraps a value with no warnings.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Warn wraps a value with a single formatted warning.
func Warn[T any](v T, format string, args ...any) Outcome[T] {
	return Outcome[T]{Value: v, Warnings: []string{fmt.Sprintf(format, args...)}}
}

// Warnf returns a copy of o with one more formatted warning.
func (o Outcome[T]) Warnf(format string, args ...any) Outcome[T] {
	o.Warnings = append(append([]string(nil), o.Warnings...), fmt.Sprintf(format, args...))
	return o
}

// Diagnostics collects warnings across several stage outcomes in call order.
type Diagnostics struct {
	warnings []string
}

// Merge appends warnings from a stage result.
func (d *Diagnostics) Merge(warnings []string) {
	d.warnings = append(d.warnings, warnings...)
}

// Addf appends one formatted warning.
func (d *Diagnostics) Addf(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

// Warnings returns the collected warnings, never nil.
func (d *Diagnostics) Warnings() []string {
	if d.warnings == nil {
		return []string{}
	}
	out := make([]string, len(d.warnings))
	copy(out, d.warnings)
	return out
}
