package domain

type ReadinessStatus string

const (
	StatusReady    ReadinessStatus = "READY"
	StatusStarting ReadinessStatus = "STARTING"
	StatusUnknown  ReadinessStatus = "UNKNOWN"
)
