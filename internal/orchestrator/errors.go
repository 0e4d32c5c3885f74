package orchestrator

import "fmt"

// ServiceError records a failed deployment step for one service.
type ServiceError struct {
	Service string
	Op      string
	Err     error
}

func NewServiceError(service, op string, err error) *ServiceError {
	return &ServiceError{Service: service, Op: op, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NetworkSetupError is returned when the managed network could not be created
// after all attempts.
type NetworkSetupError struct {
	Network  string
	Attempts int
	Err      error
}

func NewNetworkSetupError(network string, attempts int, err error) *NetworkSetupError {
	return &NetworkSetupError{Network: network, Attempts: attempts, Err: err}
}

func (e *NetworkSetupError) Error() string {
	return fmt.Sprintf("network %s could not be created after %d attempt(s): %v", e.Network, e.Attempts, e.Err)
}

func (e *NetworkSetupError) Unwrap() error {
	return e.Err
}
