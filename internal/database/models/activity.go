package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ActivityEntry is one free-text answer for a (user, date, slot) key.
// The collection carries a unique compound index on those three fields,
// so at most one entry exists per key; a second write for the same key
// replaces the text and refreshes UpdatedAt.
type ActivityEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Date      string             `bson:"date" json:"date"` // calendar date, "YYYY-MM-DD"
	Slot      string             `bson:"slot" json:"slot"` // timeslot.Slot.String(), "HH:MM"
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
