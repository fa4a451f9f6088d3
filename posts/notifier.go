package posts

import (
	"context"

	"newgenmusic/models"
)

type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes a committed change to a post.
type Event struct {
	Type EventType
	Post *models.Post
}

// Notifier receives post events after the repository write succeeds.
// Implementations must not block the request for long.
type Notifier interface {
	PostChanged(ctx context.Context, event Event)
}

type nopNotifier struct{}

func (nopNotifier) PostChanged(context.Context, Event) {}
