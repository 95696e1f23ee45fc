package vm

import (
	"errors"
	"fmt"
	"strings"

	"ember/internal/object"
	"ember/internal/script"
	"ember/internal/value"
)

// ErrorCode identifies the kind of evaluation failure.
type ErrorCode int

// Stable error codes - do not change values.
const (
	ErrThrown      ErrorCode = 1001 // VM1001: value thrown by user code
	ErrInterrupted ErrorCode = 1002 // VM1002: execution interrupted

	ErrNotDefined       ErrorCode = 1101 // VM1101: read of an undeclared name
	ErrUnqualifiedWrite ErrorCode = 1102 // VM1102: strict write to an undeclared global

	ErrNotFunction     ErrorCode = 1201 // VM1201: call of a non-function
	ErrNullReceiver    ErrorCode = 1202 // VM1202: property access on null/undefined
	ErrNoPrimitive     ErrorCode = 1203 // VM1203: object has no primitive conversion
	ErrReadOnly        ErrorCode = 1204 // VM1204: write to a read-only property
	ErrNotExtensible   ErrorCode = 1205 // VM1205: new property on a non-extensible object
	ErrNonConfigurable ErrorCode = 1206 // VM1206: redefinition of a permanent property

	ErrRedeclared     ErrorCode = 1301 // VM1301: var/const redeclaration conflict
	ErrSpreadTooLarge ErrorCode = 1302 // VM1302: array literal index overflow

	ErrTooMuchRecursion ErrorCode = 1901 // VM1901: call depth exceeded
	ErrNoInterpreter    ErrorCode = 1902 // VM1902: no interpreter loop installed
	ErrIntrinsic        ErrorCode = 1903 // VM1903: unknown intrinsic
	ErrTier             ErrorCode = 1904 // VM1904: compiled tier failure
	ErrInternal         ErrorCode = 1999 // VM1999: engine invariant broken
)

// String returns the code as "VM1101" format.
func (c ErrorCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

// ErrorClass is the language-level error class of a code.
type ErrorClass uint8

const (
	ClassInternalError ErrorClass = iota
	ClassThrown
	ClassReferenceError
	ClassTypeError
	ClassSyntaxError
)

func (c ErrorClass) String() string {
	switch c {
	case ClassThrown:
		return "Uncaught"
	case ClassReferenceError:
		return "ReferenceError"
	case ClassTypeError:
		return "TypeError"
	case ClassSyntaxError:
		return "SyntaxError"
	default:
		return "InternalError"
	}
}

// Class maps the code to its error class.
func (c ErrorCode) Class() ErrorClass {
	switch {
	case c == ErrThrown:
		return ClassThrown
	case c >= 1100 && c < 1200:
		return ClassReferenceError
	case c >= 1200 && c < 1300:
		return ClassTypeError
	case c >= 1300 && c < 1400:
		return ClassSyntaxError
	default:
		return ClassInternalError
	}
}

// BacktraceFrame represents one frame in the error backtrace.
type BacktraceFrame struct {
	Script *script.Script
	Site   script.Site
}

// VMError is a failure propagated out of an operation.
type VMError struct {
	Code    ErrorCode
	Message string
	// Thrown is the user value for ErrThrown.
	Thrown value.Value
	// Fatal errors cannot be caught by the running script.
	Fatal     bool
	Site      script.Site      // site of the failing operation
	Backtrace []BacktraceFrame // stack frames from top to bottom
	cause     error
}

// Class returns the language-level error class.
func (e *VMError) Class() ErrorClass { return e.Code.Class() }

// Error implements the error interface.
func (e *VMError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Class(), e.Code, e.Message)
}

// Unwrap returns the object-model or tier error this one was built from.
func (e *VMError) Unwrap() error { return e.cause }

// Format renders the error with its backtrace.
func (e *VMError) Format() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteString("\n")
	if !e.Site.IsZero() {
		fmt.Fprintf(&sb, "at site %s\n", e.Site)
	}
	if len(e.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, fr := range e.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s pc=%d\n", i, fr.Script, fr.Site.PC)
		}
	}
	return sb.String()
}

// AsVMError extracts a *VMError from err.
func AsVMError(err error) (*VMError, bool) {
	var vmErr *VMError
	if errors.As(err, &vmErr) {
		return vmErr, true
	}
	return nil, false
}

// errorBuilder helps construct VMError values.
type errorBuilder struct {
	vm *VM
}

func (eb *errorBuilder) makeError(code ErrorCode, msg string) *VMError {
	e := &VMError{
		Code:    code,
		Message: msg,
	}
	stack := eb.vm.Stack
	if len(stack) > 0 {
		e.Site = stack[len(stack)-1].Site()
	}
	e.Backtrace = make([]BacktraceFrame, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		fr := stack[i]
		e.Backtrace[len(stack)-1-i] = BacktraceFrame{Script: fr.Script, Site: fr.Site()}
	}
	return e
}

func (eb *errorBuilder) notDefined(name string) *VMError {
	return eb.makeError(ErrNotDefined, fmt.Sprintf("%s is not defined", name))
}

func (eb *errorBuilder) unqualifiedWrite(name string) *VMError {
	return eb.makeError(ErrUnqualifiedWrite, fmt.Sprintf("assignment to undeclared variable %s", name))
}

func (eb *errorBuilder) notFunction(what string) *VMError {
	return eb.makeError(ErrNotFunction, fmt.Sprintf("%s is not a function", what))
}

func (eb *errorBuilder) nullReceiver(v value.Value) *VMError {
	return eb.makeError(ErrNullReceiver, fmt.Sprintf("%s has no properties", v))
}

func (eb *errorBuilder) noPrimitive(hint Hint) *VMError {
	return eb.makeError(ErrNoPrimitive, fmt.Sprintf("can't convert object to primitive type %s", hint))
}

func (eb *errorBuilder) redeclared(kind, name string) *VMError {
	return eb.makeError(ErrRedeclared, fmt.Sprintf("redeclaration of %s %s", kind, name))
}

func (eb *errorBuilder) spreadTooLarge() *VMError {
	e := eb.makeError(ErrSpreadTooLarge, "array too large due to spread operand(s)")
	e.Fatal = true
	return e
}

func (eb *errorBuilder) badArrayIndex(index uint32) *VMError {
	e := eb.makeError(ErrSpreadTooLarge, fmt.Sprintf("array literal index %d out of range", index))
	e.Fatal = true
	return e
}

func (eb *errorBuilder) tooMuchRecursion(depth int) *VMError {
	return eb.makeError(ErrTooMuchRecursion, fmt.Sprintf("too much recursion (depth %d)", depth))
}

func (eb *errorBuilder) interrupted() *VMError {
	e := eb.makeError(ErrInterrupted, "execution interrupted")
	e.Fatal = true
	return e
}

func (eb *errorBuilder) internal(msg string) *VMError {
	return eb.makeError(ErrInternal, msg)
}

func (eb *errorBuilder) thrown(v value.Value) *VMError {
	e := eb.makeError(ErrThrown, fmt.Sprintf("uncaught exception: %s", v))
	e.Thrown = v
	return e
}

// wrap converts an object-model or tier error into a VMError. A VMError
// raised by re-entrant user code passes through unchanged.
func (eb *errorBuilder) wrap(err error) *VMError {
	if err == nil {
		return nil
	}
	if vmErr, ok := AsVMError(err); ok {
		return vmErr
	}
	code := ErrInternal
	switch {
	case errors.Is(err, object.ErrReadOnly):
		code = ErrReadOnly
	case errors.Is(err, object.ErrNotExtensible):
		code = ErrNotExtensible
	case errors.Is(err, object.ErrPermanent):
		code = ErrNonConfigurable
	case errors.Is(err, object.ErrNotCallable):
		code = ErrNotFunction
	}
	e := eb.makeError(code, err.Error())
	e.cause = err
	return e
}

// asError returns vmErr as an error without the typed-nil trap.
func asError(vmErr *VMError) error {
	if vmErr == nil {
		return nil
	}
	return vmErr
}
