package chainladder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is matched by every validation failure of the engine.
var ErrInvalidInput = errors.New("invalid reserve analysis input")

// maxReportedViolations bounds the size of a ValidationError.
const maxReportedViolations = 20

// Violation describes one rejected value. Row is the zero-based policy index,
// or -1 when the violation concerns the table or the options.
type Violation struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	if v.Row < 0 {
		return v.Message
	}
	return fmt.Sprintf("row %d: %s", v.Row, v.Message)
}

// ValidationError is returned before any numeric stage runs.
type ValidationError struct {
	Violations []Violation
	Truncated  bool
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	msg := fmt.Sprintf("%s: %s", ErrInvalidInput, strings.Join(parts, "; "))
	if e.Truncated {
		msg += "; ..."
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func (e *ValidationError) add(v Violation) {
	if len(e.Violations) >= maxReportedViolations {
		e.Truncated = true
		return
	}
	e.Violations = append(e.Violations, v)
}

func (e *ValidationError) orNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
