package patreon

import "context"

// Mock provides customizable hooks for testing Service behavior.
type Mock struct {
	AuthURLFunc              func(state string) string
	ExchangeCodeFunc         func(ctx context.Context, code string) (TokenPair, error)
	RefreshFunc              func(ctx context.Context, refreshToken string) (TokenPair, error)
	FetchIdentityFunc        func(ctx context.Context, accessToken string) (*IdentitySnapshot, error)
	FetchCampaignMembersFunc func(ctx context.Context, accessToken, campaignID, cursor string) (*MemberPage, error)
	FetchCampaignTiersFunc   func(ctx context.Context, campaignID string) (*IdentitySnapshot, error)
}

// Ensure Mock implements Service
var _ Service = (*Mock)(nil)

// AuthURL calls AuthURLFunc if set, otherwise returns ""
func (m *Mock) AuthURL(state string) string {
	if m.AuthURLFunc != nil {
		return m.AuthURLFunc(state)
	}
	return ""
}

// ExchangeCode calls ExchangeCodeFunc if set, otherwise returns an empty pair
func (m *Mock) ExchangeCode(ctx context.Context, code string) (TokenPair, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return TokenPair{}, nil
}

// Refresh calls RefreshFunc if set, otherwise returns an empty pair
func (m *Mock) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return TokenPair{}, nil
}

// FetchIdentity calls FetchIdentityFunc if set, otherwise returns nil, nil
func (m *Mock) FetchIdentity(ctx context.Context, accessToken string) (*IdentitySnapshot, error) {
	if m.FetchIdentityFunc != nil {
		return m.FetchIdentityFunc(ctx, accessToken)
	}
	return nil, nil
}

// FetchCampaignMembers calls FetchCampaignMembersFunc if set, otherwise returns nil, nil
func (m *Mock) FetchCampaignMembers(ctx context.Context, accessToken, campaignID, cursor string) (*MemberPage, error) {
	if m.FetchCampaignMembersFunc != nil {
		return m.FetchCampaignMembersFunc(ctx, accessToken, campaignID, cursor)
	}
	return nil, nil
}

// FetchCampaignTiers calls FetchCampaignTiersFunc if set, otherwise returns nil, nil
func (m *Mock) FetchCampaignTiers(ctx context.Context, campaignID string) (*IdentitySnapshot, error) {
	if m.FetchCampaignTiersFunc != nil {
		return m.FetchCampaignTiersFunc(ctx, campaignID)
	}
	return nil, nil
}
