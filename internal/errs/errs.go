// Package errs defines the error taxonomy shared by the potential, façade,
// Hessian and MD packages. Each concrete error wraps one of the sentinel
// values below so callers can classify a failure with errors.Is while
// still recovering method/step/context detail with errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks an unknown or contradictory configuration option.
	ErrConfig = errors.New("curcuma: invalid configuration")

	// ErrBackendUnavailable marks a requested Potential method that was
	// not registered (compiled out).
	ErrBackendUnavailable = errors.New("curcuma: backend unavailable")

	// ErrConvergence marks a self-consistent cycle that failed to
	// converge within its iteration cap. Recoverable by MD rescue.
	ErrConvergence = errors.New("curcuma: convergence failure")

	// ErrNumerical marks a NaN/Inf in a gradient or an unstable
	// temperature. Fatal to the calling run.
	ErrNumerical = errors.New("curcuma: numerical failure")

	// ErrConstraint marks a RATTLE solve that did not converge within
	// rattle_maxiter.
	ErrConstraint = errors.New("curcuma: constraint failure")

	// ErrIO marks a missing or malformed restart/hessian file.
	ErrIO = errors.New("curcuma: io failure")
)

// ConfigError reports an invalid or contradictory configuration option.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: option %q: %s", e.Option, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// BackendUnavailableError reports a Potential method name with no
// registered constructor.
type BackendUnavailableError struct {
	Method string
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("backend %q is not available", e.Method)
}

func (e *BackendUnavailableError) Unwrap() error { return ErrBackendUnavailable }

// ConvergenceError reports a self-consistent cycle that exhausted its
// iteration budget.
type ConvergenceError struct {
	Method     string
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("%s: did not converge within %d iterations", e.Method, e.Iterations)
}

func (e *ConvergenceError) Unwrap() error { return ErrConvergence }

// NumericalError reports a NaN/Inf value or an unstable temperature.
type NumericalError struct {
	Reason string
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("numerical failure: %s", e.Reason)
}

func (e *NumericalError) Unwrap() error { return ErrNumerical }

// ConstraintError reports a RATTLE bond that did not settle within
// tolerance after rattle_maxiter iterations.
type ConstraintError struct {
	I, J     int
	Diff     float64
	MaxIters int
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("bond (%d,%d) did not converge after %d iterations (residual %.3e)", e.I, e.J, e.MaxIters, e.Diff)
}

func (e *ConstraintError) Unwrap() error { return ErrConstraint }

// IOError reports a missing or malformed restart/hessian file. Restart
// loading treats it as "skip restart", not a fatal condition.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io: %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return ErrIO }
