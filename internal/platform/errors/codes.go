// Package errors provides structured error handling for command failures.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Configuration errors
	CodeInvalidConfig Code = "INVALID_CONFIG"
	CodeUnknownStudy  Code = "UNKNOWN_STUDY"
	CodeScenarioLoad  Code = "SCENARIO_LOAD_FAILED"

	// Run errors
	CodeSimulationFailed Code = "SIMULATION_FAILED"
	CodeCanceled         Code = "CANCELED"

	// Output errors
	CodeOutputFailed  Code = "OUTPUT_FAILED"
	CodeStorageFailed Code = "STORAGE_FAILED"
)

// ExitCode maps a code to the process exit status used by the CLI.
func (c Code) ExitCode() int {
	switch c {
	case CodeInvalidConfig, CodeUnknownStudy, CodeScenarioLoad:
		return 2
	case CodeCanceled:
		return 130
	default:
		return 1
	}
}
