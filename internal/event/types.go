// Package event defines the generic domain-event envelope published on the
// Bus and persisted by the event store, decoupling the orchestrator,
// registry, mode manager, and cost tracker from one another and from any
// external subscriber.
package event

import "time"

// Type identifies the kind of domain event published on the bus. The set of
// values is closed: every event raised by the orchestrator, registry, mode
// manager, or cost tracker maps onto exactly one of these constants.
type Type string

const (
	TypeTaskCreated   Type = "task.created"
	TypeTaskStarted   Type = "task.started"
	TypeTaskPaused    Type = "task.paused"
	TypeTaskResumed   Type = "task.resumed"
	TypeTaskCompleted Type = "task.completed"
	TypeTaskFailed    Type = "task.failed"
	TypeTaskCancelled Type = "task.cancelled"

	TypePhaseStarted   Type = "task.phase.started"
	TypePhaseCompleted Type = "task.phase.completed"
	TypePhaseFailed    Type = "task.phase.failed"
	TypePhaseSkipped   Type = "task.phase.skipped"

	TypeAgentStarted   Type = "agent.started"
	TypeAgentProgress  Type = "agent.progress"
	TypeAgentCompleted Type = "agent.completed"
	TypeAgentFailed    Type = "agent.failed"
	TypeAgentLog       Type = "agent.log"

	TypeModeSwitching     Type = "mode.switching"
	TypeModeSwitched      Type = "mode.switched"
	TypeModeConfigUpdated Type = "mode.config.updated"

	TypeCostIncurred     Type = "cost.incurred"
	TypeCostLimitReached Type = "cost.limit.reached"

	TypeSystemStarted  Type = "system.started"
	TypeSystemShutdown Type = "system.shutdown"
	TypeSystemError    Type = "system.error"
)

// wildcard is the subscription key used by SubscribeAll to match every
// published event type.
const wildcard = "*"

// AggregateType names the kind of entity an event's AggregateID refers to.
type AggregateType string

const (
	AggregateTask      AggregateType = "task"
	AggregateProject   AggregateType = "project"
	AggregateExecution AggregateType = "execution"
	AggregateMode      AggregateType = "mode"
)

// Metadata carries provenance for an event: who caused it, what request
// triggered it, and which subsystem produced it. CorrelationID threads a
// single logical operation across multiple events; CausationID points at
// the event (by ID) that directly caused this one.
type Metadata struct {
	User          string `json:"user,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	CausationID   string `json:"causationId,omitempty"`
	Source        string `json:"source,omitempty"`
}

// Event is the single generic envelope for every occurrence published on
// the bus or appended to an event store. Payload shape is intentionally
// opaque (Data) so new event kinds never require a new Go struct; Type and
// AggregateType are the closed, type-checked parts of the model.
type Event struct {
	ID            string         `json:"id"`
	AggregateID   string         `json:"aggregateId"`
	AggregateType AggregateType  `json:"aggregateType"`
	Type          Type           `json:"type"`
	Data          map[string]any `json:"data"`
	Metadata      Metadata       `json:"metadata"`
	Version       int64          `json:"version"`
	Timestamp     time.Time      `json:"timestamp"`
}

// PublishOption customizes an Event before it is dispatched by Publish.
type PublishOption func(*Event)

// WithAggregate stamps the event's aggregate identity.
func WithAggregate(id string, kind AggregateType) PublishOption {
	return func(e *Event) {
		e.AggregateID = id
		e.AggregateType = kind
	}
}

// WithMetadata stamps provenance metadata on the event.
func WithMetadata(md Metadata) PublishOption {
	return func(e *Event) {
		e.Metadata = md
	}
}

// WithCorrelationID sets just the correlation ID, leaving other metadata
// fields untouched.
func WithCorrelationID(id string) PublishOption {
	return func(e *Event) {
		e.Metadata.CorrelationID = id
	}
}

// WithCausationID sets just the causation ID, leaving other metadata fields
// untouched.
func WithCausationID(id string) PublishOption {
	return func(e *Event) {
		e.Metadata.CausationID = id
	}
}

// WithSource sets the subsystem name that produced the event.
func WithSource(source string) PublishOption {
	return func(e *Event) {
		e.Metadata.Source = source
	}
}
