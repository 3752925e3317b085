// Package mongodb provides the chat sessions collection implementation.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainerrors "github.com/studybuddy/study-service/internal/domain/errors"
	"github.com/studybuddy/study-service/internal/domain/models"
)

// ChatsCollectionName is the name of the chat sessions collection.
const ChatsCollectionName = "chats"

// SessionsCollection implements the docdb.SessionsCollection interface for MongoDB.
type SessionsCollection struct {
	chats *mongo.Collection
	now   func() time.Time
}

// NewSessionsCollection creates a new sessions collection wrapper.
func NewSessionsCollection(db *mongo.Database) *SessionsCollection {
	return &SessionsCollection{
		chats: db.Collection(ChatsCollectionName),
		now:   time.Now,
	}
}

// Create inserts a new session document.
func (c *SessionsCollection) Create(ctx context.Context, ownerID, title string, messages []models.ChatMessage) (string, error) {
	now := c.now().UTC().Truncate(time.Millisecond)
	session := &models.ChatSession{
		ID:        models.NewSessionID(),
		OwnerID:   ownerID,
		Title:     title,
		Messages:  messages,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := c.chats.InsertOne(ctx, session); err != nil {
		return "", fmt.Errorf("failed to insert session: %w", err)
	}

	return session.ID, nil
}

// Get retrieves a session owned by ownerID.
func (c *SessionsCollection) Get(ctx context.Context, id, ownerID string) (*models.ChatSession, error) {
	var session models.ChatSession
	err := c.chats.FindOne(ctx, ownedBy(id, ownerID)).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainerrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// Append overwrites messages and updatedAt when the stored version matches.
func (c *SessionsCollection) Append(ctx context.Context, id, ownerID string, messages []models.ChatMessage, updatedAt time.Time, expectedVersion int64) error {
	filter := ownedBy(id, ownerID)
	filter["version"] = expectedVersion

	update := bson.M{
		"$set": bson.M{
			"messages":  messages,
			"updatedAt": updatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	result, err := c.chats.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to append to session: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the session is gone (or foreign) or the
	// version moved underneath us.
	count, err := c.chats.CountDocuments(ctx, ownedBy(id, ownerID))
	if err != nil {
		return fmt.Errorf("failed to resolve append miss: %w", err)
	}
	if count == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return domainerrors.ErrSessionConflict
}

// Delete removes a session owned by ownerID.
func (c *SessionsCollection) Delete(ctx context.Context, id, ownerID string) error {
	result, err := c.chats.DeleteOne(ctx, ownedBy(id, ownerID))
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.DeletedCount == 0 {
		return domainerrors.ErrSessionNotFound
	}
	return nil
}

// List returns summaries of the owner's sessions, most recently updated first.
func (c *SessionsCollection) List(ctx context.Context, ownerID string) ([]models.SessionSummary, error) {
	findOpts := options.Find().
		SetSort(bson.D{{Key: "updatedAt", Value: -1}}).
		SetProjection(bson.M{"title": 1, "updatedAt": 1})

	cursor, err := c.chats.Find(ctx, bson.M{"ownerId": ownerID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	summaries := []models.SessionSummary{}
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	for i := range summaries {
		if summaries[i].Title == "" {
			summaries[i].Title = "New Chat"
		}
	}

	return summaries, nil
}

// EnsureIndexes creates necessary indexes for the chats collection.
func (c *SessionsCollection) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "ownerId", Value: 1},
				{Key: "updatedAt", Value: -1},
			},
			Options: options.Index().SetName("idx_owner_updated"),
		},
	}

	if _, err := c.chats.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create chats indexes: %w", err)
	}
	return nil
}

// ownedBy builds the owner-scoped identity filter used by every lookup.
func ownedBy(id, ownerID string) bson.M {
	return bson.M{
		"_id":     id,
		"ownerId": ownerID,
	}
}
