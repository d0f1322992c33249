package potential

import "github.com/mdkit/curcuma/internal/errs"

func nanError(method string) error {
	return &errs.NumericalError{Reason: method + ": NaN or Inf in energy/gradient"}
}

func convergenceError(method string, iters int) error {
	return &errs.ConvergenceError{Method: method, Iterations: iters}
}
