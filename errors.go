package warden

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/danpasecinic/warden/internal/container"
	"github.com/danpasecinic/warden/internal/registry"
)

type ErrorCode uint16

const (
	ErrCodeUnknown ErrorCode = iota
	ErrCodeBindingNotFound
	ErrCodeCircularDependency
	ErrCodeDuplicateBinding
	ErrCodeResolutionFailed
	ErrCodeConstructionFailed
	ErrCodeMissingDependency
	ErrCodeActionFailed
	ErrCodeInvalidProvider
	ErrCodeModuleApplyFailed
	ErrCodeShutdownFailed
	ErrCodeHealthCheckFailed
)

var codeNames = map[ErrorCode]string{
	ErrCodeUnknown:            "UNKNOWN",
	ErrCodeBindingNotFound:    "BINDING_NOT_FOUND",
	ErrCodeCircularDependency: "CIRCULAR_DEPENDENCY",
	ErrCodeDuplicateBinding:   "DUPLICATE_BINDING",
	ErrCodeResolutionFailed:   "RESOLUTION_FAILED",
	ErrCodeConstructionFailed: "CONSTRUCTION_FAILED",
	ErrCodeMissingDependency:  "MISSING_DEPENDENCY",
	ErrCodeActionFailed:       "ACTION_FAILED",
	ErrCodeInvalidProvider:    "INVALID_PROVIDER",
	ErrCodeModuleApplyFailed:  "MODULE_APPLY_FAILED",
	ErrCodeShutdownFailed:     "SHUTDOWN_FAILED",
	ErrCodeHealthCheckFailed:  "HEALTH_CHECK_FAILED",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", c)
}

type Error struct {
	Code    ErrorCode
	Message string
	Key     Key
	Cause   error
	Stack   []string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s]", e.Code))

	if e.Key != "" {
		b.WriteString(fmt.Sprintf(" key=%q:", e.Key))
	}

	b.WriteString(" ")
	b.WriteString(e.Message)

	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}

	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

func (e *Error) WithKey(key Key) *Error {
	e.Key = key
	return e
}

func (e *Error) WithStack(stack []string) *Error {
	e.Stack = stack
	return e
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// translate maps errors from the internal engine onto coded errors. Errors
// that are already coded pass through unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(*Error); ok {
		return err
	}

	if errs := multierr.Errors(err); len(errs) > 1 {
		return newError(ErrCodeMissingDependency, fmt.Sprintf("%d unresolved dependencies", len(errs)), err)
	}

	var dup *registry.DuplicateError
	if errors.As(err, &dup) {
		return errDuplicateBinding(Key(dup.Key), err)
	}

	var cycle *container.CycleError
	if errors.As(err, &cycle) {
		return errCircularDependency(cycle.Path, err)
	}

	var cerr *container.ConstructionError
	if errors.As(err, &cerr) {
		return errConstructionFailed(Key(cerr.Key), err)
	}

	var missing *container.MissingError
	if errors.As(err, &missing) {
		if missing.From != "" {
			return newError(ErrCodeMissingDependency, "unresolved dependency", err).WithKey(Key(missing.Key))
		}
		return errBindingNotFound(Key(missing.Key))
	}

	return newError(ErrCodeUnknown, "unexpected error", err)
}

func errBindingNotFound(key Key) *Error {
	return newError(
		ErrCodeBindingNotFound,
		fmt.Sprintf("no binding registered for %s", key),
		nil,
	).WithKey(key)
}

func errCircularDependency(chain []string, cause error) *Error {
	return newError(
		ErrCodeCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(chain, " -> ")),
		cause,
	).WithStack(chain)
}

func errDuplicateBinding(key Key, cause error) *Error {
	return newError(
		ErrCodeDuplicateBinding,
		fmt.Sprintf("incompatible bindings for %s", key),
		cause,
	).WithKey(key)
}

func errConstructionFailed(key Key, cause error) *Error {
	return newError(
		ErrCodeConstructionFailed,
		fmt.Sprintf("failed to construct %s", key),
		cause,
	).WithKey(key)
}

func errResolutionFailed(key Key, cause error) *Error {
	return newError(
		ErrCodeResolutionFailed,
		fmt.Sprintf("failed to resolve %s", key),
		cause,
	).WithKey(key)
}

func errActionFailed(action string, cause error) *Error {
	return newError(
		ErrCodeActionFailed,
		fmt.Sprintf("action %q failed", action),
		cause,
	)
}

func errInvalidProvider(key Key, cause error) *Error {
	return newError(
		ErrCodeInvalidProvider,
		"invalid provider",
		cause,
	).WithKey(key)
}

func errModuleApplyFailed(module string, cause error) *Error {
	return newError(
		ErrCodeModuleApplyFailed,
		"failed to apply module "+module,
		cause,
	)
}

func errShutdownFailed(cause error) *Error {
	return newError(
		ErrCodeShutdownFailed,
		"failed to stop singletons",
		cause,
	)
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeBindingNotFound)
}

func IsCircularDependency(err error) bool {
	return hasCode(err, ErrCodeCircularDependency)
}

func IsDuplicateBinding(err error) bool {
	return hasCode(err, ErrCodeDuplicateBinding)
}

func IsResolutionFailed(err error) bool {
	return hasCode(err, ErrCodeResolutionFailed)
}

func IsConstructionFailed(err error) bool {
	return hasCode(err, ErrCodeConstructionFailed)
}

func IsMissingDependency(err error) bool {
	return hasCode(err, ErrCodeMissingDependency)
}

func IsActionFailed(err error) bool {
	return hasCode(err, ErrCodeActionFailed)
}

func IsInvalidProvider(err error) bool {
	return hasCode(err, ErrCodeInvalidProvider)
}

func IsShutdownFailed(err error) bool {
	return hasCode(err, ErrCodeShutdownFailed)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
