package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

var (
	ErrCommandNotPermitted = errors.New("command not permitted")
	ErrImagesMissing       = errors.New("required images are missing, run setup first")
	ErrContainerNotFound   = errors.New("container not found")
)

// CommandNotPermittedError is returned when a command's guard rejects the
// current state.
type CommandNotPermittedError struct {
	Command string
	State   state.AlfrescoState
}

func NewCommandNotPermittedError(command string, s state.AlfrescoState) *CommandNotPermittedError {
	return &CommandNotPermittedError{Command: command, State: s}
}

func (e *CommandNotPermittedError) Error() string {
	return fmt.Sprintf("%s is not permitted while %s", e.Command, e.State)
}

func (e *CommandNotPermittedError) Is(target error) bool {
	return target == ErrCommandNotPermitted
}

// StartupTimeoutError is observed when the installation stays STARTING past
// the configured deadline.
type StartupTimeoutError struct {
	Timeout time.Duration
	Pending []string
}

func NewStartupTimeoutError(timeout time.Duration, pending []string) *StartupTimeoutError {
	return &StartupTimeoutError{Timeout: timeout, Pending: pending}
}

func (e *StartupTimeoutError) Error() string {
	if len(e.Pending) == 0 {
		return fmt.Sprintf("services not ready after %s", e.Timeout)
	}
	return fmt.Sprintf("services not ready after %s: %v", e.Timeout, e.Pending)
}
