package resolverrules

import (
	"errors"
	"fmt"
)

// ErrDuplicateKind is returned when registering a matcher or applier name twice.
var ErrDuplicateKind = errors.New("kind already registered")

// ErrNilResponse is returned by ApplyRules when no response is given.
var ErrNilResponse = errors.New("response is nil")

// UnknownApplierError reports a matched rule whose applier is not registered.
type UnknownApplierError struct {
	Apply string
	Match string
}

func (e *UnknownApplierError) Error() string {
	return fmt.Sprintf("unexpected apply %q for the rule %q", e.Apply, e.Match)
}

// RuleError is raised on purpose by the throw and statusError appliers.
type RuleError struct {
	Kind       string
	Status     int
	StatusText string
	Message    string
}

func (e *RuleError) Error() string { return e.Message }
