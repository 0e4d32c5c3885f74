package state

import (
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/util"
)

// Transition applies one event to a snapshot and returns the result. Events
// with no transition from the current state leave the lifecycle state as it
// is. Transition never sets Since; the Store stamps state changes.
func Transition(s Snapshot, e Event) Snapshot {
	next := s.clone()

	switch ev := e.(type) {
	case Setup:
		if s.State != NotActive && s.State != Error {
			return next
		}
		next.State = NotActive
		next.Configuration = ev.Configuration
		next.Services = ev.Services
		next.Errors = nil
		next.Rows = nil
		next.ImagesPresent = false
		next.MissingImages = nil

	case DownloadImages:
		if s.State == NotActive && !s.ImagesPresent {
			next.State = DownloadingImages
			next.Errors = nil
		}

	case StartAlfresco:
		if CanRun(s.State) && s.ImagesPresent {
			next.State = Starting
			next.Errors = nil
		}

	case StopAlfresco:
		if CanStop(s.State) {
			next.State = Stopping
		}

	case RefreshImageState:
		next.MissingImages = ev.Missing
		next.ImagesPresent = len(ev.Missing) == 0
		if s.State == DownloadingImages && next.ImagesPresent {
			next.State = NotActive
		}

	case RefreshServiceState:
		next.Rows = ev.Rows
		next.State = refreshServices(s, ev)
		if next.State == Error && s.State != Error {
			next.Errors = ev.Errors
			if len(next.Errors) == 0 {
				next.Errors = []string{"a container exited unexpectedly"}
			}
		}

	case ErrorObserved:
		next.State = Error
		if ev.Err != nil {
			next.Errors = append(next.Errors, ev.Err.Error())
		}
	}
	return next
}

func refreshServices(s Snapshot, ev RefreshServiceState) AlfrescoState {
	exited := anyExited(ev.Rows)

	switch s.State {
	case Starting:
		if exited {
			return Error
		}
		if allReady(s.Services, ev.Rows) {
			return Running
		}
	case Running:
		if exited {
			return Error
		}
	case Stopping:
		if len(ev.Rows) == 0 {
			return NotActive
		}
	case NotActive:
		// Containers left over from an earlier session are re-attached.
		if len(ev.Rows) > 0 && !exited {
			if allReady(s.Services, ev.Rows) {
				return Running
			}
			return Starting
		}
	}
	return s.State
}

func anyExited(rows []domain.Row) bool {
	return util.Any(rows, func(r domain.Row) bool { return r.State == domain.RowExited })
}

// allReady reports whether every configured service has a row that is READY.
// UNKNOWN is accepted for services without a readiness policy.
func allReady(services []domain.ServiceConfiguration, rows []domain.Row) bool {
	if len(services) == 0 {
		return false
	}
	byName := make(map[string]domain.Row, len(rows))
	for _, r := range rows {
		byName[r.Name] = r
	}
	for _, svc := range services {
		r, ok := byName[svc.Service]
		if !ok {
			return false
		}
		switch domain.ReadinessStatus(r.State) {
		case domain.StatusReady:
		case domain.StatusUnknown:
			if svc.Kind != domain.KindUnknown {
				return false
			}
		default:
			return false
		}
	}
	return true
}
