package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/alfresco/alfresco-orchestrator/internal/config"
	"github.com/alfresco/alfresco-orchestrator/internal/core"
	"github.com/alfresco/alfresco-orchestrator/internal/domain"
	"github.com/alfresco/alfresco-orchestrator/internal/lock"
	"github.com/alfresco/alfresco-orchestrator/internal/state"
)

type session interface {
	Snapshot() state.Snapshot
	Rows(ctx context.Context) ([]domain.Row, []string, error)
	ViewContainer(ctx context.Context, id string) (domain.ContainerDescriptor, error)
	SelectConfiguration(ctx context.Context, name string) (state.Snapshot, error)
	Setup(ctx context.Context) error
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
	OpenApplication(ctx context.Context) error
}

// StateResponse is the store as seen by the front end, with the guard
// predicates precomputed.
type StateResponse struct {
	State         state.AlfrescoState `json:"state"`
	Configuration string              `json:"configuration"`
	Errors        []string            `json:"errors"`
	ImagesPresent bool                `json:"imagesPresent"`
	MissingImages []string            `json:"missingImages,omitempty"`
	Since         time.Time           `json:"since"`

	CanRun       bool `json:"canRun"`
	CanStop      bool `json:"canStop"`
	IsRunning    bool `json:"isRunning"`
	IsLoading    bool `json:"isLoading"`
	IsStopping   bool `json:"isStopping"`
	IsInstalling bool `json:"isInstalling"`
	IsError      bool `json:"isError"`
	NeedSetup    bool `json:"needSetup"`
}

func newStateResponse(s state.Snapshot) StateResponse {
	errs := s.Errors
	if errs == nil {
		errs = []string{}
	}
	return StateResponse{
		State:         s.State,
		Configuration: s.Configuration,
		Errors:        errs,
		ImagesPresent: s.ImagesPresent,
		MissingImages: s.MissingImages,
		Since:         s.Since,
		CanRun:        state.CanRun(s.State),
		CanStop:       state.CanStop(s.State),
		IsRunning:     state.IsRunning(s.State),
		IsLoading:     state.IsLoading(s.State),
		IsStopping:    state.IsStopping(s.State),
		IsInstalling:  state.IsInstalling(s.State),
		IsError:       state.IsError(s.State),
		NeedSetup:     s.NeedSetup(),
	}
}

type ContainersResponse struct {
	Containers []domain.Row `json:"containers"`
	Errors     []string     `json:"errors"`
}

type SessionHandler struct {
	session session
}

func NewSessionHandler(s session) *SessionHandler {
	return &SessionHandler{session: s}
}

func (h *SessionHandler) GetState(c *fiber.Ctx) error {
	return c.JSON(newStateResponse(h.session.Snapshot()))
}

func (h *SessionHandler) ListConfigurations(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"active":         h.session.Snapshot().Configuration,
		"configurations": config.ConfigurationNames(),
	})
}

func (h *SessionHandler) SelectConfiguration(c *fiber.Ctx) error {
	snap, err := h.session.SelectConfiguration(c.UserContext(), c.Params("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(newStateResponse(snap))
}

func (h *SessionHandler) ListContainers(c *fiber.Ctx) error {
	rows, errs, err := h.session.Rows(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	if rows == nil {
		rows = []domain.Row{}
	}
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(ContainersResponse{Containers: rows, Errors: errs})
}

func (h *SessionHandler) GetContainer(c *fiber.Ctx) error {
	container, err := h.session.ViewContainer(c.UserContext(), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(container)
}

func (h *SessionHandler) Setup(c *fiber.Ctx) error {
	return h.command(c, h.session.Setup)
}

func (h *SessionHandler) Run(c *fiber.Ctx) error {
	return h.command(c, h.session.Run)
}

func (h *SessionHandler) Stop(c *fiber.Ctx) error {
	return h.command(c, h.session.Stop)
}

func (h *SessionHandler) Open(c *fiber.Ctx) error {
	if err := h.session.OpenApplication(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// command starts an orchestration and answers with the state it moved to.
func (h *SessionHandler) command(c *fiber.Ctx, fn func(ctx context.Context) error) error {
	if err := fn(c.UserContext()); err != nil {
		return errorResponse(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(newStateResponse(h.session.Snapshot()))
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrContainerNotFound), errors.Is(err, config.ErrUnknownConfiguration):
		return fiber.StatusNotFound
	case errors.Is(err, core.ErrCommandNotPermitted), errors.Is(err, core.ErrImagesMissing), errors.Is(err, lock.ErrLocked):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
