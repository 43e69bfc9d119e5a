package store

import (
	"context"

	"github.com/Seann-Moser/patrongate/patreon"
)

// Mock provides customizable hooks for testing Store behavior.
type Mock struct {
	GetFunc                   func(ctx context.Context, patreonID string) (*Patron, error)
	UpsertFunc                func(ctx context.Context, profile Profile, tokens patreon.TokenPair) error
	ApplyMembershipUpdateFunc func(ctx context.Context, patreonID string, update MembershipUpdate) error
}

// Ensure Mock implements Store
var _ Store = (*Mock)(nil)

// Get calls GetFunc if set, otherwise returns ErrNotFound
func (m *Mock) Get(ctx context.Context, patreonID string) (*Patron, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, patreonID)
	}
	return nil, ErrNotFound
}

// Upsert calls UpsertFunc if set, otherwise returns nil
func (m *Mock) Upsert(ctx context.Context, profile Profile, tokens patreon.TokenPair) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, profile, tokens)
	}
	return nil
}

// ApplyMembershipUpdate calls ApplyMembershipUpdateFunc if set, otherwise returns nil
func (m *Mock) ApplyMembershipUpdate(ctx context.Context, patreonID string, update MembershipUpdate) error {
	if m.ApplyMembershipUpdateFunc != nil {
		return m.ApplyMembershipUpdateFunc(ctx, patreonID, update)
	}
	return nil
}
