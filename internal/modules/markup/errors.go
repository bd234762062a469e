package markup

import (
	"errors"
	"fmt"
)

// ErrNoResolvedMarkups is returned by preprocessing when not a single markup row could be
// matched to a customer profile. Nothing is loaded in that case.
var ErrNoResolvedMarkups = errors.New("no markup rows resolved to a customer profile")

// StructuralError marks a run that cannot proceed because its inputs are missing or
// unusable: no version folder, a missing input file, an unknown source kind, or a failed
// eshop lookup. Such runs abort before any write and are safe to retry once the input is fixed.
type StructuralError struct {
	Op    string
	Cause error
}

func (e *StructuralError) Error() string {
	if e == nil {
		return "structural input error"
	}
	if e.Cause == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *StructuralError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func structural(op string, cause error) error {
	return &StructuralError{Op: op, Cause: cause}
}

// IsStructural reports whether err (or anything it wraps) is a *StructuralError or
// ErrNoResolvedMarkups. Retrying such a run without changing its inputs cannot succeed.
func IsStructural(err error) bool {
	if err == nil {
		return false
	}
	var se *StructuralError
	return errors.As(err, &se) || errors.Is(err, ErrNoResolvedMarkups)
}
