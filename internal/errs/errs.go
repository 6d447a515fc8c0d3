// Package errs implements the error taxonomy from spec.md §7: a fixed
// set of kinds, each carrying enough context to let callers decide
// whether a failure is fatal, retryable, or purely informational.
package errs

import "fmt"

// Kind identifies one of the eight error categories the engine
// distinguishes. Kinds drive policy (fatal vs. recorded vs. logged), not
// just presentation.
type Kind string

const (
	KindConfig        Kind = "config"         // invalid TestPlan fields; fatal before start
	KindTemplate      Kind = "template"        // malformed helper syntax; logged, token left literal
	KindDataExhausted Kind = "data_exhausted"  // unique/non-cycling provider ran dry
	KindHandler       Kind = "handler"         // protocol I/O failure
	KindCheckFailed   Kind = "check_failed"    // check predicate false
	KindHook          Kind = "hook"            // hook script failed
	KindSink          Kind = "sink"            // output-side failure
	KindFatalRunner   Kind = "fatal_runner"    // initialization failure
)

// HandlerSubKind refines KindHandler per the StepHandler contract.
type HandlerSubKind string

const (
	HandlerNetwork HandlerSubKind = "network"
	HandlerTimeout HandlerSubKind = "timeout"
	HandlerRequest HandlerSubKind = "request"
	HandlerUnknown HandlerSubKind = "unknown"
)

// Error is the concrete error type carried through the engine. It
// satisfies the standard error interface and additionally exposes Kind()
// so callers can switch on taxonomy without string matching.
type Error struct {
	Kind    Kind
	Sub     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Sub != "" {
		return fmt.Sprintf("%s(%s): %s", e.Kind, e.Sub, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorKind returns the taxonomy kind, satisfying callers that only need
// to branch on category.
func (e *Error) ErrorKind() Kind { return e.Kind }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Config(format string, args ...interface{}) *Error {
	return New(KindConfig, fmt.Sprintf(format, args...))
}

func Template(format string, args ...interface{}) *Error {
	return New(KindTemplate, fmt.Sprintf(format, args...))
}

func DataExhausted(provider string) *Error {
	return New(KindDataExhausted, fmt.Sprintf("data provider %q exhausted", provider))
}

func Handler(sub HandlerSubKind, cause error) *Error {
	return &Error{Kind: KindHandler, Sub: string(sub), Message: cause.Error(), Cause: cause}
}

func CheckFailed(format string, args ...interface{}) *Error {
	return New(KindCheckFailed, fmt.Sprintf(format, args...))
}

func Hook(cause error) *Error {
	return Wrap(KindHook, "hook failed", cause)
}

func Sink(name string, cause error) *Error {
	return Wrap(KindSink, fmt.Sprintf("sink %q failed", name), cause)
}

func FatalRunner(format string, args ...interface{}) *Error {
	return New(KindFatalRunner, fmt.Sprintf(format, args...))
}

// Errors is an accumulating collection, mirroring the teacher's
// ValidationErrors idiom (internal/performance/v2/config/validator.go)
// generalized to any error kind.
type Errors struct {
	Items []*Error
}

func (e *Errors) Add(err *Error) {
	e.Items = append(e.Items, err)
}

func (e *Errors) HasErrors() bool { return len(e.Items) > 0 }

func (e *Errors) Error() string {
	if len(e.Items) == 0 {
		return "no errors"
	}
	if len(e.Items) == 1 {
		return e.Items[0].Error()
	}
	msg := fmt.Sprintf("%d errors:\n", len(e.Items))
	for i, it := range e.Items {
		msg += fmt.Sprintf("  %d. %s\n", i+1, it.Error())
	}
	return msg
}
