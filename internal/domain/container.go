package domain

import "strings"

// Raw engine states reported by the container runtime.
const (
	ContainerRunning = "running"
	ContainerExited  = "exited"
)

// ContainerDescriptor is the runtime-observed state of a deployed container.
// It is rebuilt on every poll.
type ContainerDescriptor struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Status  string `json:"status"`
	Image   string `json:"image"`
	Version string `json:"version"`
}

func (c ContainerDescriptor) IsExited() bool {
	return strings.EqualFold(c.State, ContainerExited)
}

func (c ContainerDescriptor) IsRunning() bool {
	return strings.EqualFold(c.State, ContainerRunning)
}

// SplitImage splits an image reference into repository and tag. The tag
// defaults to "latest".
func SplitImage(ref string) (string, string) {
	if i := strings.Index(ref, "@"); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	slash := strings.LastIndex(ref, "/")
	colon := strings.LastIndex(ref, ":")
	if colon > slash {
		return ref[:colon], ref[colon+1:]
	}
	return ref, "latest"
}

// Row is the display descriptor handed to the presentation layer. State holds
// the normalized readiness status, or EXITED.
type Row struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Status    string `json:"status"`
	Image     string `json:"image"`
	ImageName string `json:"imageName"`
	Version   string `json:"version"`
}

const RowExited = "EXITED"

func NewRow(c ContainerDescriptor, state string) Row {
	name, _ := SplitImage(c.Image)
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return Row{
		ID:        c.ID,
		Name:      c.Name,
		State:     state,
		Status:    c.Status,
		Image:     c.Image,
		ImageName: name,
		Version:   c.Version,
	}
}
