package patreon

import "context"

// Service defines all operations against Patreon's OAuth2 and APIv2
// endpoints. Client is the real implementation; Mock serves tests.
type Service interface {
	// AuthURL builds the browser-facing authorization URL for the given
	// CSRF state. No network call, no side effect.
	AuthURL(state string) string

	// ExchangeCode trades a single-use authorization code for a token pair.
	ExchangeCode(ctx context.Context, code string) (TokenPair, error)

	// Refresh trades a refresh token for a fresh token pair without
	// mutating any local state.
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)

	// FetchIdentity fetches the token holder's identity plus membership and
	// tier includes.
	FetchIdentity(ctx context.Context, accessToken string) (*IdentitySnapshot, error)

	// FetchCampaignMembers lists one page of a campaign's members.
	FetchCampaignMembers(ctx context.Context, accessToken, campaignID, cursor string) (*MemberPage, error)

	// FetchCampaignTiers fetches a campaign's public tier listing.
	FetchCampaignTiers(ctx context.Context, campaignID string) (*IdentitySnapshot, error)
}

var _ Service = &Client{}
