// Package queue defines message payloads exchanged over the message broker.
package queue

// NotificationQueue is the durable queue carrying NotificationCreatedEvent.
const NotificationQueue = "notifications.created"

// NotificationCreatedEvent is published when a notification is stored. It
// carries the whole record so consumers never need to call back into the
// service.
type NotificationCreatedEvent struct {
    ID         string            `json:"id"`
    Message    string            `json:"message"`
    Category   string            `json:"category"`
    Recipients []string          `json:"recipients,omitempty"`
    Context    map[string]string `json:"context,omitempty"`
    CreatedAt  string            `json:"created_at"`
}
