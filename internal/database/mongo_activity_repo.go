package database

import (
	"context"
	"fmt"
	"time"

	"quarterlog-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activityCollectionName = "activities"

// MongoActivityRepository implements ActivityRepository for MongoDB.
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new MongoDB activity repository.
func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{
		collection: db.Collection(activityCollectionName),
	}
}

// Upsert writes the text for the (user, date, slot) key and returns the
// stored entry. It is one conditional write, not a read-then-write, so
// two callers racing on the same key cannot create duplicate rows or
// lose each other's update; whichever write lands last wins.
func (r *MongoActivityRepository) Upsert(ctx context.Context, userID primitive.ObjectID, date, slot, text string) (*models.ActivityEntry, error) {
	now := time.Now()
	filter := bson.M{
		"user_id": userID,
		"date":    date,
		"slot":    slot,
	}
	update := bson.M{
		"$set": bson.M{
			"text":       text,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"date":       date,
			"slot":       slot,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var entry models.ActivityEntry
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert activity for user %s at %s %s: %w", userID.Hex(), date, slot, err)
	}
	return &entry, nil
}

// ListForUserAndDate returns the user's entries for one calendar date,
// sorted by slot ascending. Slot strings are zero-padded, so the
// lexicographic sort is chronological.
func (r *MongoActivityRepository) ListForUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) ([]models.ActivityEntry, error) {
	filter := bson.M{"user_id": userID, "date": date}

	findOptions := options.Find().SetSort(bson.D{{Key: "slot", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to find activities for user %s on %s: %w", userID.Hex(), date, err)
	}
	defer cursor.Close(ctx)

	var entries []models.ActivityEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return entries, nil
}
