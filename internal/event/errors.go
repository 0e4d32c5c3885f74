package event

import (
	"fmt"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

type UnsupportedActionError struct {
	action domain.ContainerAction
}

func NewUnsupportedActionError(action domain.ContainerAction) *UnsupportedActionError {
	return &UnsupportedActionError{action: action}
}

func (e *UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported container action: %s", e.action)
}
