package database

import (
	"context"
	"errors"

	"quarterlog-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrUserNotFound is returned when a lookup by phone matches no user.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the interface for subscriber data operations.
type UserRepository interface {
	// Register inserts a new active user for the phone number, or
	// re-activates the existing one. It is idempotent and returns the
	// resulting row either way.
	Register(ctx context.Context, phone string) (*models.User, error)
	// FindByPhone returns the user for the phone number, or
	// ErrUserNotFound.
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	// ListActive returns all users with the active flag set.
	ListActive(ctx context.Context) ([]models.User, error)
	// Deactivate clears the active flag for the phone number. The row
	// is kept; Register restores it.
	Deactivate(ctx context.Context, phone string) error
}

// ActivityRepository defines the interface for the activity ledger.
type ActivityRepository interface {
	// Upsert writes the text for the (user, date, slot) key as a single
	// atomic insert-or-update and returns the stored entry. Concurrent
	// writers racing on the same key converge to one row, last write
	// wins.
	Upsert(ctx context.Context, userID primitive.ObjectID, date, slot, text string) (*models.ActivityEntry, error)
	// ListForUserAndDate returns the user's entries for one calendar
	// date, sorted by slot ascending.
	ListForUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) ([]models.ActivityEntry, error)
}
