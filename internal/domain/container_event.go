package domain

import "time"

// ContainerAction is the engine event verb for a container.
type ContainerAction string

const (
	ActionStart   ContainerAction = "start"
	ActionStop    ContainerAction = "stop"
	ActionDie     ContainerAction = "die"
	ActionDestroy ContainerAction = "destroy"
)

func (a ContainerAction) IsValid() bool {
	switch a {
	case ActionStart, ActionStop, ActionDie, ActionDestroy:
		return true
	}
	return false
}

// ContainerEvent is a lifecycle change of a managed container.
type ContainerEvent struct {
	ID     string
	Name   string
	Action ContainerAction
	Time   time.Time
}
