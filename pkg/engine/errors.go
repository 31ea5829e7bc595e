package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAnalysisIncomplete is matched by every *IncompleteError.
var ErrAnalysisIncomplete = errors.New("analysis incomplete")

// errStepPanic wraps a recovered analyzer panic.
var errStepPanic = errors.New("analyzer panicked")

// IncompleteError reports the analyzer steps that failed for one unit while
// the others succeeded. The partial report is returned alongside it.
type IncompleteError struct {
	UnitID string
	Steps  []string
	Err    error
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %s: %s failed: %v", ErrAnalysisIncomplete, e.UnitID, strings.Join(e.Steps, ", "), e.Err)
}

// Is matches ErrAnalysisIncomplete.
func (e *IncompleteError) Is(target error) bool {
	return target == ErrAnalysisIncomplete
}

// Unwrap returns the joined step errors.
func (e *IncompleteError) Unwrap() error {
	return e.Err
}
