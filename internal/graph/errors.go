package graph

import "fmt"

// StructuralError marks a graph document that cannot be planned or
// executed: dangling edges, duplicate ids, unknown types or handles,
// invalid parameters, cycles, unknown start nodes. Runs failing with a
// StructuralError never start executing tasks.
type StructuralError struct {
	Reason string
}

func (e *StructuralError) Error() string { return e.Reason }

// Structuralf builds a StructuralError from a format string.
func Structuralf(format string, args ...any) error {
	return &StructuralError{Reason: fmt.Sprintf(format, args...)}
}
