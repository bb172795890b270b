package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quarterlog-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const userCollectionName = "users"

// MongoUserRepository implements UserRepository for MongoDB.
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoDB user repository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.Collection(userCollectionName),
	}
}

// Register inserts a new active user or re-activates an existing one,
// keyed by phone number. The whole operation is a single upsert so two
// concurrent registrations of the same phone cannot create duplicate
// rows; the unique phone index backs that up.
func (r *MongoUserRepository) Register(ctx context.Context, phone string) (*models.User, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"active": true,
		},
		"$setOnInsert": bson.M{
			"phone":      phone,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var user models.User
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"phone": phone}, update, opts).Decode(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to register user %s: %w", phone, err)
	}
	return &user, nil
}

// FindByPhone retrieves a single user by phone number.
// It returns ErrUserNotFound if no user matches.
func (r *MongoUserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"phone": phone}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user by phone %s: %w", phone, err)
	}
	return &user, nil
}

// ListActive returns every user whose active flag is set.
func (r *MongoUserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to find active users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode active users: %w", err)
	}
	return users, nil
}

// Deactivate clears the active flag for the given phone number.
// It returns ErrUserNotFound if no user matches.
func (r *MongoUserRepository) Deactivate(ctx context.Context, phone string) error {
	result, err := r.collection.UpdateOne(ctx, bson.M{"phone": phone}, bson.M{
		"$set": bson.M{"active": false},
	})
	if err != nil {
		return fmt.Errorf("failed to deactivate user %s: %w", phone, err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
