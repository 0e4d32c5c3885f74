package event

import (
	"strings"
	"time"

	"github.com/docker/docker/api/types/events"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

func fromEventsMessage(msg events.Message) (domain.ContainerEvent, error) {
	ev := domain.ContainerEvent{
		ID:     msg.Actor.ID,
		Name:   strings.TrimPrefix(msg.Actor.Attributes["name"], "/"),
		Action: domain.ContainerAction(msg.Action),
		Time:   time.Unix(0, msg.TimeNano),
	}
	if !ev.Action.IsValid() {
		return domain.ContainerEvent{}, NewUnsupportedActionError(ev.Action)
	}
	return ev, nil
}
