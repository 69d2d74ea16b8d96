package container

import (
	"fmt"

	"github.com/danpasecinic/warden/internal/graph"
)

type CycleError = graph.CycleError

type MissingError struct {
	Key  string
	From string
}

func (e *MissingError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("no binding for %s", e.Key)
	}
	return fmt.Sprintf("no binding for %s (required by %s)", e.Key, e.From)
}

type ConstructionError struct {
	Key   string
	Cause error
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("constructing %s: %v", e.Key, e.Cause)
}

func (e *ConstructionError) Unwrap() error {
	return e.Cause
}
