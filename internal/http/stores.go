package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/booklook/internal/entities"
)

// This file holds the interfaces shared by more than one controller.
// Each controller declares the rest of what it needs next to its handlers.

// BookGetter provides read access to live books.
type BookGetter interface {
	Get(ctx context.Context, id uint) (*entities.Book, error)
}

// TaskEnqueuer adds background tasks. *tasks.Client implements it.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}
