package readiness

import (
	"errors"
	"fmt"
)

// ErrContainerExited is matched by every ContainerExitedError.
var ErrContainerExited = errors.New("container exited")

// ContainerExitedError reports a managed container found in the exited state.
type ContainerExitedError struct {
	Container string
	Status    string
}

func NewContainerExitedError(container, status string) *ContainerExitedError {
	return &ContainerExitedError{Container: container, Status: status}
}

func (e *ContainerExitedError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("container %s exited", e.Container)
	}
	return fmt.Sprintf("container %s exited: %s", e.Container, e.Status)
}

func (e *ContainerExitedError) Is(target error) bool {
	return target == ErrContainerExited
}
