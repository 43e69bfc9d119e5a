package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Seann-Moser/patrongate/patreon"
)

var _ Store = &MongoStore{}

// MongoStore is a MongoDB-backed implementation of Store. Records live in a
// single users collection keyed on patreonId.
type MongoStore struct {
	users *mongo.Collection
}

// NewMongoStore creates a store backed by the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{users: db.Collection("users")}
}

// Get loads the record for one patron.
func (s *MongoStore) Get(ctx context.Context, patreonID string) (*Patron, error) {
	var patron Patron
	err := s.users.FindOne(ctx, bson.M{"patreonId": patreonID}).Decode(&patron)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patron: %w", err)
	}
	return &patron, nil
}

// Upsert writes the profile and token triple together. createdAt is set only
// when the record is first inserted; updatedAt always moves.
func (s *MongoStore) Upsert(ctx context.Context, profile Profile, tokens patreon.TokenPair) error {
	now := time.Now().UnixMilli()
	update := bson.M{
		"$set": bson.M{
			"patreonId":    profile.PatreonID,
			"email":        profile.Email,
			"fullName":     profile.FullName,
			"accessToken":  tokens.AccessToken,
			"refreshToken": tokens.RefreshToken,
			"tokenExpiry":  tokens.ExpiresAt.UnixMilli(),
			"updatedAt":    now,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.users.UpdateOne(ctx, bson.M{"patreonId": profile.PatreonID}, update, opts)
	if err != nil {
		return fmt.Errorf("upsert patron: %w", err)
	}
	return nil
}

// ApplyMembershipUpdate writes only the membership fields. Patrons who never
// completed the OAuth flow have no record; the update matches nothing and
// that is fine.
func (s *MongoStore) ApplyMembershipUpdate(ctx context.Context, patreonID string, u MembershipUpdate) error {
	update := bson.M{
		"$set": bson.M{
			"membershipStatus":      u.Status,
			"membershipAmountCents": u.AmountCents,
			"membershipLastUpdated": u.At.UnixMilli(),
			"lastEventType":         u.EventType,
		},
	}
	_, err := s.users.UpdateOne(ctx, bson.M{"patreonId": patreonID}, update)
	if err != nil {
		return fmt.Errorf("apply membership update: %w", err)
	}
	return nil
}
