package model

type TrackerState string

const (
	StateUnconfigured TrackerState = "unconfigured"
	StateIdle         TrackerState = "idle"
	StateStarting     TrackerState = "starting"
	StateRunning      TrackerState = "running"
	StateStopping     TrackerState = "stopping"
	StateRecovering   TrackerState = "recovering"
)

type DisplayMode string

const (
	DisplayModeClock DisplayMode = "clock"
	DisplayModeTotal DisplayMode = "total"
)

func ValidDisplayMode(m DisplayMode) bool {
	return m == DisplayModeClock || m == DisplayModeTotal
}
