package audit

import "time"

// EventType identifies an alert lifecycle event
type EventType string

const (
	// Alert events
	EventAlertDetected       EventType = "alert.detected"
	EventAlertSuppressed     EventType = "alert.suppressed"
	EventAlertDelivered      EventType = "alert.delivered"
	EventAlertDeliveryFailed EventType = "alert.delivery_failed"

	// System events
	EventSystemStarted EventType = "system.started"
	EventSystemStopped EventType = "system.stopped"

	// Configuration events
	EventConfigReloaded EventType = "config.reloaded"
)

// Result is the outcome recorded with an event
type Result string

const (
	ResultSuccess    Result = "success"
	ResultFailure    Result = "failure"
	ResultSuppressed Result = "suppressed"
	ResultPending    Result = "pending"
)

// Event is one line of the alert journal
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"event_type"`
	Result    Result    `json:"result"`

	// Alert fields, empty for system events
	AlertID  string  `json:"alert_id,omitempty"`
	AlertKey string  `json:"alert_key,omitempty"`
	Metric   string  `json:"metric,omitempty"`
	Severity string  `json:"severity,omitempty"`
	Value    float64 `json:"value,omitempty"`

	Description string                 `json:"description,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// NewEvent creates an event stamped with the current UTC time
func NewEvent(eventType EventType) *Event {
	return &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Result:    ResultPending,
		Metadata:  make(map[string]interface{}),
	}
}

// WithAlert sets the alert identity fields
func (e *Event) WithAlert(id, key, metric, severity string) *Event {
	e.AlertID = id
	e.AlertKey = key
	e.Metric = metric
	e.Severity = severity
	return e
}

// WithValue sets the observed metric value
func (e *Event) WithValue(v float64) *Event {
	e.Value = v
	return e
}

func (e *Event) WithDescription(desc string) *Event {
	e.Description = desc
	return e
}

func (e *Event) WithResult(result Result) *Event {
	e.Result = result
	return e
}

// WithError records err and marks the event failed
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
		e.Result = ResultFailure
	}
	return e
}

func (e *Event) WithMetadata(key string, value interface{}) *Event {
	e.Metadata[key] = value
	return e
}
