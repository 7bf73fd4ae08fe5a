// Package events defines the event types published for provider and
// invocation lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/stratovia/cpi/pkg/models"
)

type EventType string

// Topic carries every lifecycle event.
const Topic = "cpi.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Provider lifecycle events.
	ProviderRegisteredEvent    EventType = "provider.registered"
	ProviderLoadFailedEvent    EventType = "provider.load.failed"
	ProviderDeregisteredEvent  EventType = "provider.deregistered"
	ProviderHealthCheckedEvent EventType = "provider.health.checked"

	// Invocation lifecycle events.
	InvocationStartedEvent  EventType = "invocation.started"
	InvocationFinishedEvent EventType = "invocation.finished"
	InvocationFailedEvent   EventType = "invocation.failed"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	Provider  string         `json:"provider"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, provider string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Provider:  provider,
		Metadata:  make(map[string]any),
	}
}

type ProviderRegistered struct {
	BaseEvent

	ProviderType string `json:"provider_type"`
	Version      string `json:"version"`
	Source       string `json:"source"`
	ActionCount  int    `json:"action_count"`
}

func (p ProviderRegistered) GetType() EventType {
	return ProviderRegisteredEvent
}

type ProviderLoadFailed struct {
	BaseEvent

	Path  string `json:"path"`
	Error string `json:"error"`
}

func (p ProviderLoadFailed) GetType() EventType {
	return ProviderLoadFailedEvent
}

type ProviderDeregistered struct {
	BaseEvent
}

func (p ProviderDeregistered) GetType() EventType {
	return ProviderDeregisteredEvent
}

type ProviderHealthChecked struct {
	BaseEvent

	Healthy bool   `json:"healthy"`
	Detail  any    `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (p ProviderHealthChecked) GetType() EventType {
	return ProviderHealthCheckedEvent
}

type InvocationStarted struct {
	BaseEvent

	InvocationID string         `json:"invocation_id"`
	Action       string         `json:"action"`
	Args         map[string]any `json:"args,omitempty"`
}

func (i InvocationStarted) GetType() EventType {
	return InvocationStartedEvent
}

type InvocationFinished struct {
	BaseEvent

	InvocationID string                  `json:"invocation_id"`
	Action       string                  `json:"action"`
	Status       models.InvocationStatus `json:"status"`
	DurationMS   int64                   `json:"duration_ms"`
}

func (i InvocationFinished) GetType() EventType {
	return InvocationFinishedEvent
}

type InvocationFailed struct {
	BaseEvent

	InvocationID string                  `json:"invocation_id"`
	Action       string                  `json:"action"`
	Status       models.InvocationStatus `json:"status"`
	Error        string                  `json:"error"`
	DurationMS   int64                   `json:"duration_ms"`
}

func (i InvocationFailed) GetType() EventType {
	return InvocationFailedEvent
}
