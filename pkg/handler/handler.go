// Package handler defines the narrow protocol-handler contract the
// Step Executor dispatches to, and two reference implementations:
// RestHandler for `type: rest` steps and WaitHandler for `type: wait`.
//
// Grounded on internal/http/client.go's functional-options Client:
// RestHandler wraps it rather than reinventing request
// dispatch, generalizing its (DNS/connect/TLS/first-byte) httptrace
// timings into the handler Response's latency fields.
package handler

import "context"

// Response is what a StepHandler returns for one step execution
// (spec.md §6 "Protocol handler contract").
type Response struct {
	Success       bool
	Status        *int
	DurationMS    float64
	BytesSent     *int64
	BytesReceived *int64
	LatencyMS     *float64 // time to first byte
	ConnectTimeMS *float64
	Data          map[string]interface{} // parsed body, made available to checks/extractions
	RawBody       []byte
	RawHeaders    map[string][]string
	Error         error
}

// Step is the minimal view of a protocol step a handler needs: the
// payload plus the pieces of VU state checks/extractions read from.
// internal/testplan.Step is rendered into this shape by the Step
// Executor before dispatch.
type Step struct {
	Name      string
	Type      string
	Payload   map[string]interface{}
	TimeoutMS float64
}

// StepHandler executes one rendered step against its protocol. Handlers
// are registered per step type present in the plan (spec.md §4.8 step
// 1): only the handlers a TestPlan actually exercises are initialized.
type StepHandler interface {
	Execute(ctx context.Context, step Step) (Response, error)
}

// Initializer is implemented by handlers needing one-time setup before
// the first Execute call (e.g. opening a browser, connection pool).
type Initializer interface {
	Initialize() error
}

// Cleaner is implemented by handlers needing process-wide teardown at
// the end of a run.
type Cleaner interface {
	Cleanup() error
}

// VUCleaner is implemented by handlers holding per-VU resources (e.g. a
// browser page) that must be released when a VU stops.
type VUCleaner interface {
	CleanupVU(vuID int) error
}
