package domain

import "time"

// EventLevel is the severity of an OrchestratorEvent.
type EventLevel string

const (
	EventLevelInfo    EventLevel = "INFO"
	EventLevelWarning EventLevel = "WARNING"
	EventLevelError   EventLevel = "ERROR"
)

// OrchestratorEvent is a persisted, structured record of one
// orchestrator-level decision: a failover, a terminal failure, a
// credential change.
type OrchestratorEvent struct {
	ID           int64
	Timestamp    time.Time
	Level        EventLevel
	Kind         string
	RequestID    string
	ProviderFrom string
	ProviderTo   string
	Model        string
	ErrorCode    string
	Message      string
	Meta         map[string]any
}

// ProviderLog is a persisted request/response trace for one upstream call.
type ProviderLog struct {
	ID           int64
	ProviderID   string
	CreatedAt    time.Time
	RequestID    string
	RequestBody  any
	ResponseBody any
}
