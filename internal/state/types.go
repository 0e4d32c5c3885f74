package state

import (
	"slices"
	"time"

	"github.com/alfresco/alfresco-orchestrator/internal/domain"
)

// AlfrescoState is the lifecycle state of the whole installation.
type AlfrescoState string

const (
	NotActive         AlfrescoState = "NOT_ACTIVE"
	DownloadingImages AlfrescoState = "DOWNLOADING_IMAGES"
	Starting          AlfrescoState = "STARTING"
	Running           AlfrescoState = "RUNNING"
	Stopping          AlfrescoState = "STOPPING"
	Error             AlfrescoState = "ERROR"
)

func (s AlfrescoState) String() string {
	return string(s)
}

type EventType string

const (
	EventSetup               EventType = "SETUP"
	EventDownloadImages      EventType = "DOWNLOAD_IMAGES"
	EventStartAlfresco       EventType = "START_ALFRESCO"
	EventStopAlfresco        EventType = "STOP_ALFRESCO"
	EventRefreshServiceState EventType = "REFRESH_SERVICE_STATE"
	EventRefreshImageState   EventType = "REFRESH_IMAGE_STATE"
	EventErrorObserved       EventType = "ERROR_OBSERVED"
)

type Event interface {
	Type() EventType
}

// Setup selects the active service configuration.
type Setup struct {
	Configuration string
	Services      []domain.ServiceConfiguration
}

type DownloadImages struct{}

type StartAlfresco struct{}

type StopAlfresco struct{}

// RefreshServiceState carries the rows observed by one polling pass.
type RefreshServiceState struct {
	Rows   []domain.Row
	Errors []string
}

type RefreshImageState struct {
	Missing []string
}

type ErrorObserved struct {
	Err error
}

func (Setup) Type() EventType               { return EventSetup }
func (DownloadImages) Type() EventType      { return EventDownloadImages }
func (StartAlfresco) Type() EventType       { return EventStartAlfresco }
func (StopAlfresco) Type() EventType        { return EventStopAlfresco }
func (RefreshServiceState) Type() EventType { return EventRefreshServiceState }
func (RefreshImageState) Type() EventType   { return EventRefreshImageState }
func (ErrorObserved) Type() EventType       { return EventErrorObserved }

// Snapshot is the value held by the Store.
type Snapshot struct {
	State         AlfrescoState                 `json:"state"`
	Configuration string                        `json:"configuration"`
	Services      []domain.ServiceConfiguration `json:"services"`
	Errors        []string                      `json:"errors"`
	ImagesPresent bool                          `json:"imagesPresent"`
	MissingImages []string                      `json:"missingImages,omitempty"`
	Rows          []domain.Row                  `json:"rows"`
	Since         time.Time                     `json:"since"`
}

// NeedSetup reports whether images have to be downloaded before a run.
func (s Snapshot) NeedSetup() bool {
	return s.State == NotActive && !s.ImagesPresent
}

func (s Snapshot) clone() Snapshot {
	s.Services = slices.Clone(s.Services)
	s.Errors = slices.Clone(s.Errors)
	s.MissingImages = slices.Clone(s.MissingImages)
	s.Rows = slices.Clone(s.Rows)
	return s
}
