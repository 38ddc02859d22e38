package employee

import (
	"context"
	"time"
)

// EventType は社員のライフサイクルイベントの種別です。
type EventType string

const (
	EventRegistered EventType = "employee.registered"
	EventCreated    EventType = "employee.created"
	EventUpdated    EventType = "employee.updated"
	EventDeleted    EventType = "employee.deleted"
)

// Event はコミット後に外部へ通知される社員イベントです。
type Event struct {
	Type       EventType
	EmployeeID int64
	ActorID    int64
	Role       Role
	OccurredAt time.Time
}

// EventPublisher はイベント通知の抽象です。
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NoopPublisher はイベントを破棄する EventPublisher です。
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
